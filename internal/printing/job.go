// Package printing lays out documents on pages and drives print jobs.
//
// A Job runs on the main loop in small steps: begin creates a Compositor
// from the print preferences of that moment, paginate runs until the whole
// text is laid out, then every page is drawn to the output file and end
// releases the compositor. A preview job stops after pagination and hands
// a Preview to its listener instead of drawing.
//
// Progress covers [0, 0.5] during pagination and [0.5, 1] while drawing.
// A preview has no drawing phase so pagination covers the whole range.
package printing

import (
	"fmt"
	"io"
	"path/filepath"

	"github.com/dshills/quire/internal/logging"
	"github.com/dshills/quire/internal/mainloop"
	"github.com/dshills/quire/internal/settings"
	"github.com/dshills/quire/internal/vfs"
)

// Status is the phase of a job.
type Status int

const (
	StatusInit Status = iota
	StatusPaginating
	StatusDrawing
	StatusDone
)

func (s Status) String() string {
	switch s {
	case StatusInit:
		return "init"
	case StatusPaginating:
		return "paginating"
	case StatusDrawing:
		return "drawing"
	case StatusDone:
		return "done"
	default:
		return "unknown"
	}
}

// Result is the outcome reported when a job is done.
type Result int

const (
	ResultOK Result = iota
	ResultCancel
	ResultError
)

func (r Result) String() string {
	switch r {
	case ResultOK:
		return "ok"
	case ResultCancel:
		return "cancel"
	case ResultError:
		return "error"
	default:
		return "unknown"
	}
}

// Action selects what a job produces.
type Action int

const (
	// ActionPrint draws every page to the output location.
	ActionPrint Action = iota
	// ActionPreview paginates and hands a Preview to the listener.
	ActionPreview
)

// Status strings reported by StatusString.
const (
	statusPreparing = "Preparing..."
	statusRendering = "Rendering page %d of %d..."
)

// Source is the document being printed.
type Source interface {
	Text() string
	ShortName() string
	Location() string
}

// Listener receives job notifications on the loop goroutine. Nil fields
// are skipped.
type Listener struct {
	// Printing is called whenever status or progress changes.
	Printing func(j *Job, status Status)
	// ShowPreview is called once pagination of a preview is complete.
	ShowPreview func(j *Job, p *Preview)
	// PreviewRendered is called the first time a preview page is rendered.
	PreviewRendered func(j *Job)
	// Done is called exactly once when the job finishes.
	Done func(j *Job, result Result, err error)
}

// Config holds the collaborators of a job.
type Config struct {
	Scheduler mainloop.Scheduler
	FS        vfs.FS
	// Preferences returns the current print preferences. It is called once
	// when the job begins.
	Preferences func() settings.Print
	// DocumentsDir is used for the default output location.
	DocumentsDir string
	// ChunkLines overrides the number of lines paginated per step.
	ChunkLines int
	Logger     *logging.Logger
}

// Job prints or previews one document. A Job is single use.
type Job struct {
	src      Source
	cfg      Config
	listener Listener
	log      *logging.Logger

	action   Action
	setup    PageSetup
	settings PrintSettings

	started      bool
	compositor   *Compositor
	status       Status
	statusString string
	progress     float64

	out       io.WriteCloser
	outPath   string
	page      int
	cancelled bool
	preview   *Preview
	finished  bool
}

// NewJob creates a job for src.
func NewJob(src Source, cfg Config, listener Listener) *Job {
	if cfg.Preferences == nil {
		cfg.Preferences = func() settings.Print { return settings.Defaults().Print }
	}
	if cfg.FS == nil {
		cfg.FS = vfs.NewOSFS()
	}
	log := cfg.Logger
	if log == nil {
		log = logging.NullLogger
	}
	return &Job{
		src:          src,
		cfg:          cfg,
		listener:     listener,
		log:          log.WithComponent("printing"),
		status:       StatusInit,
		statusString: statusPreparing,
	}
}

// Print starts the job. It may be called only once; a second call panics.
// An error is returned when the settings cannot be used, in which case no
// notification is delivered.
func (j *Job) Print(action Action, setup PageSetup, ps PrintSettings) error {
	if j.started {
		panic("printing: Print called twice on the same job")
	}
	j.started = true
	j.action = action
	j.setup = setup
	if ps.Printer == "" {
		ps.Printer = "file"
	}
	if ps.OutputURI == "" {
		ps.OutputURI = DefaultOutputURI(j.cfg.DocumentsDir, j.src.ShortName())
	}
	j.settings = ps

	if action == ActionPrint {
		if ps.Printer != "file" {
			return fmt.Errorf("%w: %s", ErrUnsupportedPrinter, ps.Printer)
		}
		p, err := vfs.PathFromURI(ps.OutputURI)
		if err != nil {
			return err
		}
		j.outPath = p
	}

	j.cfg.Scheduler.AddIdle(j.begin)
	return nil
}

// Cancel stops the job at its next step. A displayed preview is closed.
func (j *Job) Cancel() {
	if j.finished {
		return
	}
	j.cancelled = true
	if j.preview != nil {
		j.preview.closed = true
		j.preview = nil
		j.finish(ResultCancel, nil)
	}
}

// Status returns the current phase.
func (j *Job) Status() Status { return j.status }

// StatusString returns a human readable description of the phase.
func (j *Job) StatusString() string { return j.statusString }

// Progress returns the completed fraction in [0,1].
func (j *Job) Progress() float64 { return j.progress }

// IsPreview reports whether the job was started as a preview.
func (j *Job) IsPreview() bool { return j.started && j.action == ActionPreview }

// PrintSettings returns the settings the job runs with.
func (j *Job) PrintSettings() PrintSettings { return j.settings }

// PageSetup returns the page setup the job runs with.
func (j *Job) PageSetup() PageSetup { return j.setup }

// OutputPath returns the file pages are written to, empty for previews.
func (j *Job) OutputPath() string { return j.outPath }

func (j *Job) begin() {
	if j.cancelled {
		j.finish(ResultCancel, nil)
		return
	}
	name := j.src.Location()
	if name == "" {
		name = j.src.ShortName()
	} else if p, err := vfs.PathFromURI(name); err == nil {
		name = p
	}
	j.compositor = NewCompositor(j.src.Text(), name, j.setup, OptionsFromSettings(j.cfg.Preferences()))
	j.compositor.SetChunkLines(j.cfg.ChunkLines)
	j.setProgress(StatusPaginating, 0)
	j.cfg.Scheduler.AddIdle(j.paginate)
}

func (j *Job) paginate() {
	if j.cancelled {
		j.finish(ResultCancel, nil)
		return
	}
	done := j.compositor.Paginate()
	progress := j.compositor.PaginationProgress()
	if !j.IsPreview() {
		progress /= 2
	}
	j.setProgress(StatusPaginating, progress)
	if !done {
		j.cfg.Scheduler.AddIdle(j.paginate)
		return
	}

	if j.IsPreview() {
		j.preview = &Preview{job: j}
		if j.listener.ShowPreview != nil {
			j.listener.ShowPreview(j, j.preview)
		}
		return
	}

	if err := j.cfg.FS.MkdirAll(filepath.Dir(j.outPath), 0o755); err != nil {
		j.finish(ResultError, fmt.Errorf("create print output: %w", err))
		return
	}
	out, err := j.cfg.FS.Create(j.outPath, 0o644)
	if err != nil {
		j.finish(ResultError, fmt.Errorf("create print output: %w", err))
		return
	}
	j.out = out
	j.page = 0
	j.cfg.Scheduler.AddIdle(j.drawPage)
}

func (j *Job) drawPage() {
	if j.cancelled {
		j.abortOutput()
		j.finish(ResultCancel, nil)
		return
	}
	n := j.compositor.NPages()
	j.statusString = fmt.Sprintf(statusRendering, j.page+1, n)
	j.setProgress(StatusDrawing, float64(j.page)/float64(2*n)+0.5)

	var err error
	if j.page > 0 {
		_, err = io.WriteString(j.out, "\f")
	}
	if err == nil {
		err = j.compositor.DrawPage(j.out, j.page)
	}
	if err != nil {
		j.abortOutput()
		j.finish(ResultError, fmt.Errorf("draw page %d: %w", j.page+1, err))
		return
	}

	j.page++
	if j.page < n {
		j.cfg.Scheduler.AddIdle(j.drawPage)
		return
	}
	err = j.out.Close()
	j.out = nil
	if err != nil {
		j.finish(ResultError, fmt.Errorf("close print output: %w", err))
		return
	}
	j.finish(ResultOK, nil)
}

func (j *Job) abortOutput() {
	if j.out == nil {
		return
	}
	if err := j.out.Close(); err != nil {
		j.log.Debug("close aborted output: %v", err)
	}
	j.out = nil
	if err := j.cfg.FS.Remove(j.outPath); err != nil {
		j.log.Debug("remove aborted output: %v", err)
	}
}

// end releases the compositor.
func (j *Job) end() {
	j.compositor = nil
}

func (j *Job) finish(result Result, err error) {
	if j.finished {
		return
	}
	j.finished = true
	j.end()
	j.status = StatusDone
	if result == ResultOK {
		j.progress = 1
	}
	if err != nil {
		j.log.Warn("print %s: %v", j.src.ShortName(), err)
	}
	if j.listener.Done != nil {
		j.listener.Done(j, result, err)
	}
}

func (j *Job) setProgress(status Status, progress float64) {
	j.status = status
	j.progress = progress
	if j.listener.Printing != nil {
		j.listener.Printing(j, status)
	}
}

// Preview gives access to the pages of a paginated preview job.
type Preview struct {
	job      *Job
	closed   bool
	rendered bool
}

// NPages returns the number of pages.
func (p *Preview) NPages() int {
	if p.closed || p.job.compositor == nil {
		return 0
	}
	return p.job.compositor.NPages()
}

// RenderPage writes page i (zero based) to w.
func (p *Preview) RenderPage(w io.Writer, i int) error {
	if p.closed || p.job.compositor == nil {
		return ErrPreviewClosed
	}
	if err := p.job.compositor.DrawPage(w, i); err != nil {
		return err
	}
	if !p.rendered {
		p.rendered = true
		if p.job.listener.PreviewRendered != nil {
			p.job.listener.PreviewRendered(p.job)
		}
	}
	return nil
}

// Closed reports whether the preview was closed.
func (p *Preview) Closed() bool { return p.closed }

// Close dismisses the preview and completes the job.
func (p *Preview) Close() {
	if p.closed {
		return
	}
	p.closed = true
	p.job.preview = nil
	p.job.finish(ResultOK, nil)
}
