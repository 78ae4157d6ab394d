package tab

import "time"

// progressPanelDelay is the estimated remaining time above which a
// progress panel is shown.
const progressPanelDelay = 3 * time.Second

// progressFraction returns done/total clamped to [0,1].
func progressFraction(done, total int64) float64 {
	if total <= 0 || done <= 0 {
		return 0
	}
	if done >= total {
		return 1
	}
	return float64(done) / float64(total)
}

// remaining extrapolates the time left from the elapsed time and the bytes
// processed so far. With an unknown total the elapsed time is returned.
func remaining(elapsed time.Duration, done, total int64) time.Duration {
	if total <= 0 || done <= 0 {
		return elapsed
	}
	estimated := time.Duration(float64(elapsed) * float64(total) / float64(done))
	return estimated - elapsed
}

// progress tracks one load, revert or save for the panel heuristic.
type progress struct {
	started time.Time
	active  bool
}

func (p *progress) reset() { *p = progress{} }

// update records a notification at now and reports whether the panel
// should be shown.
func (p *progress) update(now time.Time, done, total int64) bool {
	if !p.active {
		p.active = true
		p.started = now
	}
	return remaining(now.Sub(p.started), done, total) > progressPanelDelay
}

func (t *Tab) reportProgress(verb, uri string, done, total int64, cancel func()) {
	show := t.progress.update(t.cfg.Scheduler.Now(), done, total)
	if t.panel == nil && show {
		p := &Panel{
			Kind:    PanelProgress,
			Message: progressMessage(verb, t.doc.ShortName(), uri),
			URI:     uri,
		}
		p.respond = func(r Response) {
			if r == ResponseCancel && cancel != nil {
				cancel()
			}
		}
		t.setPanel(p)
	}
	if t.panel != nil && t.panel.Kind == PanelProgress {
		t.panel.setProgress(done, total)
	}
}
