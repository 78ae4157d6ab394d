package tab

import (
	"github.com/dshills/quire/internal/printing"
	"github.com/dshills/quire/internal/settings"
)

// Print renders the document to the print output. A displayed preview is
// closed first.
func (t *Tab) Print() error {
	t.require("Print", StateNormal, StateShowingPrintPreview)
	if t.preview != nil {
		t.preview.Close()
	}
	return t.printOrPreview(printing.ActionPrint)
}

// PrintPreview paginates the document and shows a preview of it.
func (t *Tab) PrintPreview() error {
	t.require("PrintPreview", StateNormal)
	return t.printOrPreview(printing.ActionPreview)
}

// PageSetup returns the page setup used for this document.
func (t *Tab) PageSetup() printing.PageSetup {
	if t.pageSetup != nil {
		return *t.pageSetup
	}
	if t.cfg.PrintDefaults != nil {
		return t.cfg.PrintDefaults.PageSetup()
	}
	return printing.DefaultPageSetup()
}

// SetPageSetup sets the page setup of this document and makes it the
// default for new ones.
func (t *Tab) SetPageSetup(p printing.PageSetup) {
	t.pageSetup = &p
	if t.cfg.PrintDefaults != nil {
		t.cfg.PrintDefaults.SetPageSetup(p)
	}
}

// PrintSettings returns the print settings used for this document. The
// output location is always derived from the document name.
func (t *Tab) PrintSettings() printing.PrintSettings {
	var ps printing.PrintSettings
	switch {
	case t.printSettings != nil:
		ps = *t.printSettings
	case t.cfg.PrintDefaults != nil:
		ps = t.cfg.PrintDefaults.PrintSettings()
	default:
		ps = printing.DefaultPrintSettings()
	}
	ps.OutputURI = printing.DefaultOutputURI(t.cfg.DocumentsDir, t.doc.ShortName())
	return ps
}

func (t *Tab) printOrPreview(action printing.Action) error {
	t.job = printing.NewJob(t.doc, printing.Config{
		Scheduler:    t.cfg.Scheduler,
		FS:           t.cfg.FS,
		Preferences:  func() settings.Print { return t.prefs().Print },
		DocumentsDir: t.cfg.DocumentsDir,
		Logger:       t.log,
	}, printing.Listener{
		Printing:        t.onPrinting,
		ShowPreview:     t.onShowPreview,
		PreviewRendered: t.onPreviewRendered,
		Done:            t.onPrintDone,
	})

	job := t.job
	p := &Panel{Kind: PanelProgress, Message: job.StatusString()}
	p.respond = func(r Response) {
		if r == ResponseCancel {
			job.Cancel()
		}
	}
	t.setPanel(p)

	if action == printing.ActionPreview {
		t.setState(StatePrintPreviewing)
	} else {
		t.setState(StatePrinting)
	}

	if err := job.Print(action, t.PageSetup(), t.PrintSettings()); err != nil {
		t.log.Warn("print %s: %v", t.doc.ShortName(), err)
		t.setPanel(nil)
		t.job = nil
		t.setState(StateNormal)
		return err
	}
	return nil
}

func (t *Tab) onPrinting(j *printing.Job, _ printing.Status) {
	if j != t.job || t.panel == nil || t.panel.Kind != PanelProgress {
		return
	}
	t.panel.Message = j.StatusString()
	t.panel.pulsing = false
	t.panel.fraction = j.Progress()
}

func (t *Tab) onShowPreview(j *printing.Job, p *printing.Preview) {
	if j != t.job {
		return
	}
	t.setPanel(nil)
	t.preview = p
}

func (t *Tab) onPreviewRendered(j *printing.Job) {
	if j != t.job || t.state != StatePrintPreviewing {
		return
	}
	t.setState(StateShowingPrintPreview)
}

func (t *Tab) onPrintDone(j *printing.Job, result printing.Result, err error) {
	if j != t.job {
		return
	}
	t.preview = nil
	if t.panel != nil && t.panel.Kind == PanelProgress {
		t.setPanel(nil)
	}
	if result == printing.ResultOK {
		t.storePrintSettings(j)
	}
	if err != nil {
		t.log.Warn("print %s: %v", t.doc.ShortName(), err)
	}
	switch t.state {
	case StatePrinting, StatePrintPreviewing, StateShowingPrintPreview:
		t.setState(StateNormal)
	}
	t.job = nil
}

// storePrintSettings remembers the settings of a successful job for this
// document and as the process-wide default.
func (t *Tab) storePrintSettings(j *printing.Job) {
	ps := j.PrintSettings()
	ps.Copies = 1
	setup := j.PageSetup()
	t.printSettings = &ps
	t.pageSetup = &setup
	if t.cfg.PrintDefaults != nil {
		t.cfg.PrintDefaults.SetPrintSettings(ps)
		t.cfg.PrintDefaults.SetPageSetup(setup)
	}
}
