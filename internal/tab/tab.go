// Package tab implements the per-document I/O state machine.
//
// A Tab owns one Document and drives every load, revert, save and print
// of it. Operations are legal only from specific states; calling one from
// any other state is a programming error and panics with ErrIllegalState
// before anything changes. Failures never leave the tab: they are reported
// through a Panel whose responses pick the recovery path.
//
// All methods must be called from the main loop goroutine.
package tab

import (
	"fmt"
	"slices"
	"strconv"
	"time"

	"github.com/dshills/quire/internal/document"
	"github.com/dshills/quire/internal/encoding"
	"github.com/dshills/quire/internal/logging"
	"github.com/dshills/quire/internal/mainloop"
	"github.com/dshills/quire/internal/printing"
	"github.com/dshills/quire/internal/settings"
	"github.com/dshills/quire/internal/vfs"
)

// Auto-save timing.
const (
	DefaultAutoSaveInterval = 10 // minutes
	AutoSaveRetryDelay      = 30 * time.Second
)

// Recents is the recently used files list.
type Recents interface {
	AddRecent(uri string) error
	RemoveRecent(uri string) error
}

// Config holds the collaborators shared by the tabs of an application.
type Config struct {
	Scheduler mainloop.Scheduler
	FS        vfs.FS

	// Settings supplies preferences. Nil uses the built-in defaults.
	Settings *settings.Store
	// Metadata remembers encodings and cursor positions. Optional.
	Metadata document.Metadata
	// Recents is updated after loads and saves. Optional.
	Recents Recents
	// PrintDefaults holds the process-wide print settings. Optional.
	PrintDefaults *printing.Defaults
	// DocumentsDir is where print output is written.
	DocumentsDir string

	// OpenElsewhere reports whether uri is open in a tab other than t.
	OpenElsewhere func(t *Tab, uri string) bool
	// Remove closes t. It is called from an idle callback.
	Remove func(t *Tab)

	Logger *logging.Logger
}

// Tab is one open document and its I/O state.
type Tab struct {
	cfg Config
	log *logging.Logger
	doc *document.Document

	state State
	panel *Panel

	loader  *document.Loader
	saver   *document.Saver
	job     *printing.Job
	preview *printing.Preview

	progress progress

	// Pending save target, set while saving.
	saveURI      string
	saveEncoding *encoding.Encoding
	saveFlags    document.SaveFlags

	// Load parameters kept until the load completes.
	loadURI     string
	tmpEncoding *encoding.Encoding
	tmpLinePos  int

	autoSave         bool
	autoSaveInterval int
	autoSaveTimer    mainloop.SourceID

	askIfExternallyModified bool
	notEditable             bool
	cursorLine              int

	printSettings *printing.PrintSettings
	pageSetup     *printing.PageSetup

	onState []func(*Tab, State)

	// disposed is set once the tab was removed from its window.
	disposed bool
}

// New creates a tab holding an empty untitled document.
func New(cfg Config) *Tab {
	if cfg.FS == nil {
		cfg.FS = vfs.NewOSFS()
	}
	log := cfg.Logger
	if log == nil {
		log = logging.NullLogger
	}
	t := &Tab{
		cfg:              cfg,
		log:              log.WithComponent("tab"),
		doc:              document.New(),
		state:            StateNormal,
		autoSaveInterval: DefaultAutoSaveInterval,
	}
	prefs := t.prefs()
	t.autoSave = prefs.AutoSaveAllowed()
	if prefs.Editor.AutoSaveInterval > 0 {
		t.autoSaveInterval = prefs.Editor.AutoSaveInterval
	}
	t.installAutoSaveIfNeeded()
	return t
}

// Document returns the tab's document.
func (t *Tab) Document() *document.Document { return t.doc }

// URI returns the location being loaded while a load is running and the
// document location otherwise.
func (t *Tab) URI() string {
	if t.loader != nil && t.state == StateLoading {
		return t.loadURI
	}
	return t.doc.Location()
}

// State returns the current state.
func (t *Tab) State() State { return t.state }

// Panel returns the displayed panel, or nil.
func (t *Tab) Panel() *Panel { return t.panel }

// PrintJob returns the running print job, or nil.
func (t *Tab) PrintJob() *printing.Job { return t.job }

// Preview returns the displayed print preview, or nil.
func (t *Tab) Preview() *printing.Preview { return t.preview }

// CursorLine returns the zero based line of the cursor.
func (t *Tab) CursorLine() int { return t.cursorLine }

// SetCursorLine moves the cursor, clamped to the document.
func (t *Tab) SetCursorLine(line int) {
	t.cursorLine = max(0, min(line, t.doc.LineCount()-1))
}

// Editable reports whether the view accepts edits.
func (t *Tab) Editable() bool {
	return t.state == StateNormal && !t.notEditable && t.preview == nil
}

// AskIfExternallyModified reports whether focus-in checks the file on disk.
func (t *Tab) AskIfExternallyModified() bool { return t.askIfExternallyModified }

// SaveFlags returns the flags applied to every save of this tab.
func (t *Tab) SaveFlags() document.SaveFlags { return t.saveFlags }

// PendingSave returns the target of the save in progress, if any.
func (t *Tab) PendingSave() (string, *encoding.Encoding) { return t.saveURI, t.saveEncoding }

// Name returns the display name with a modified marker.
func (t *Tab) Name() string {
	name := t.doc.ShortName()
	if t.doc.Modified() {
		return "*" + name
	}
	return name
}

// OnStateChanged registers fn to run after every state change.
func (t *Tab) OnStateChanged(fn func(*Tab, State)) {
	t.onState = append(t.onState, fn)
}

func (t *Tab) setState(s State) {
	if t.state == s {
		return
	}
	t.log.Debug("%s: %s -> %s", t.doc.ShortName(), t.state, s)
	t.state = s
	for _, fn := range t.onState {
		fn(t, s)
	}
}

func (t *Tab) setPanel(p *Panel) {
	if p != nil {
		p.tab = t
	}
	t.panel = p
}

// require panics unless the tab is in one of the allowed states.
func (t *Tab) require(op string, allowed ...State) {
	if !slices.Contains(allowed, t.state) {
		panic(fmt.Errorf("%w: %s in state %s", ErrIllegalState, op, t.state))
	}
}

func (t *Tab) prefs() settings.Settings {
	if t.cfg.Settings == nil {
		return settings.Defaults()
	}
	return t.cfg.Settings.Get()
}

// stableState is the state a finished save or print returns to.
func (t *Tab) stableState() State {
	if t.preview != nil {
		return StateShowingPrintPreview
	}
	return StateNormal
}

func (t *Tab) removeLater() {
	t.cfg.Scheduler.AddIdle(func() {
		if t.cfg.Remove != nil {
			t.cfg.Remove(t)
		}
	})
}

func (t *Tab) addRecent(uri string) {
	if t.cfg.Recents == nil || uri == "" {
		return
	}
	if err := t.cfg.Recents.AddRecent(uri); err != nil {
		t.log.Warn("add %s to recent files: %v", uri, err)
	}
}

func (t *Tab) removeRecent(uri string) {
	if t.cfg.Recents == nil || uri == "" {
		return
	}
	if err := t.cfg.Recents.RemoveRecent(uri); err != nil {
		t.log.Warn("remove %s from recent files: %v", uri, err)
	}
}

func (t *Tab) rememberEncoding() {
	if t.cfg.Metadata == nil || t.doc.IsUntitled() {
		return
	}
	if err := t.cfg.Metadata.Set(t.doc.Location(), document.MetadataEncoding, t.doc.Encoding().Charset()); err != nil {
		t.log.Warn("store encoding of %s: %v", t.doc.Location(), err)
	}
}

// storedLine returns the cursor line remembered for uri.
func (t *Tab) storedLine(uri string) int {
	if t.cfg.Metadata == nil {
		return 0
	}
	n, err := strconv.Atoi(t.cfg.Metadata.Get(uri, document.MetadataPosition))
	if err != nil {
		return 0
	}
	return n
}

// MarkForClosing moves the tab to its terminal Closing state.
func (t *Tab) MarkForClosing() {
	t.require("MarkForClosing", StateNormal)
	t.setState(StateClosing)
}

// CanClose reports whether the tab can be closed without losing data.
func (t *Tab) CanClose() bool {
	switch t.state {
	case StateLoading, StateLoadingError, StateReverting, StateRevertingError:
		return true
	case StateSavingError:
		return false
	}
	return !t.doc.Modified() && !t.doc.Deleted()
}

// Dispose stops timers and running operations and remembers the cursor
// position. The window calls it when the tab is removed.
func (t *Tab) Dispose() {
	t.disposed = true
	t.removeAutoSave()
	if t.loader != nil {
		t.loader.Cancel()
	}
	if t.saver != nil {
		t.saver.Cancel()
	}
	if t.job != nil {
		t.job.Cancel()
	}
	if t.cfg.Metadata != nil && !t.doc.IsUntitled() && (t.state == StateNormal || t.state == StateClosing) {
		if err := t.cfg.Metadata.Set(t.doc.Location(), document.MetadataPosition, strconv.Itoa(t.cursorLine)); err != nil {
			t.log.Warn("store position of %s: %v", t.doc.Location(), err)
		}
	}
}

// FocusIn checks whether the file changed on disk when the view gains focus
// and asks the user what to do about it.
func (t *Tab) FocusIn() {
	if t.state != StateNormal || !t.askIfExternallyModified || !t.doc.IsLocal() {
		return
	}
	if !t.doc.CheckExternallyModified(t.cfg.FS) {
		return
	}
	t.setState(StateExternallyModifiedNotification)

	msg := fmt.Sprintf("The file %s changed on disk.", t.doc.ShortName())
	detail := "Do you want to reload the file?"
	if t.doc.Modified() {
		detail = "Do you want to drop your changes and reload the file?"
	}
	if t.doc.Deleted() {
		msg = fmt.Sprintf("The file %s was deleted from disk.", t.doc.ShortName())
	}
	p := &Panel{Kind: PanelExternallyModified, Message: msg, Detail: detail, URI: t.doc.Location()}
	p.respond = func(r Response) {
		t.setPanel(nil)
		if r == ResponseOK {
			t.Revert()
			return
		}
		t.askIfExternallyModified = false
		t.setState(StateNormal)
	}
	t.setPanel(p)
}
