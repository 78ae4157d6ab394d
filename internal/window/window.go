// Package window implements a top-level editor window: an ordered notebook
// of tabs with one active tab, plus the window geometry and panel state that
// sessions persist.
//
// A Window satisfies plugin.Window so the plugin engine can activate
// plugins against it. All methods must be called from the main loop
// goroutine.
package window

import (
	"errors"
	"fmt"
	"slices"

	"github.com/google/uuid"

	"github.com/dshills/quire/internal/encoding"
	"github.com/dshills/quire/internal/logging"
	"github.com/dshills/quire/internal/tab"
)

// Default window size used when none is configured or restored.
const (
	DefaultWidth  = 650
	DefaultHeight = 500
)

// Window errors.
var (
	// ErrTabNotFound indicates the tab does not belong to the window.
	ErrTabNotFound = errors.New("tab not found")

	// ErrUnsavedChanges indicates tabs would lose data if closed.
	ErrUnsavedChanges = errors.New("unsaved changes")

	// ErrClosed indicates the window was already closed.
	ErrClosed = errors.New("window closed")
)

// Config configures a Window.
type Config struct {
	// Tab is the template for every tab of the window. Its OpenElsewhere
	// and Remove hooks are replaced by the window.
	Tab tab.Config

	// Role identifies the window. Empty generates a unique one.
	Role string

	// Width and Height are the initial size. Values <= 0 use the defaults.
	Width, Height int

	SidePanelVisible   bool
	BottomPanelVisible bool

	// OpenElsewhere reports whether uri is open in a window other than w.
	OpenElsewhere func(w *Window, uri string) bool

	// OnChanged runs after a tab was added, removed or activated.
	OnChanged func(w *Window)

	// OnClosed runs once after the window was closed.
	OnClosed func(w *Window)

	Logger *logging.Logger
}

// Window is an ordered set of tabs with one active tab.
type Window struct {
	cfg Config
	log *logging.Logger

	role          string
	width, height int
	sidePanel     bool
	bottomPanel   bool

	tabs   []*tab.Tab
	active *tab.Tab
	closed bool
}

// New creates an empty window.
func New(cfg Config) *Window {
	log := cfg.Logger
	if log == nil {
		log = logging.NullLogger
	}
	w := &Window{
		cfg:         cfg,
		role:        cfg.Role,
		width:       cfg.Width,
		height:      cfg.Height,
		sidePanel:   cfg.SidePanelVisible,
		bottomPanel: cfg.BottomPanelVisible,
	}
	if w.role == "" {
		w.role = "quire-window-" + uuid.NewString()
	}
	if w.width <= 0 {
		w.width = DefaultWidth
	}
	if w.height <= 0 {
		w.height = DefaultHeight
	}
	w.log = log.WithComponent("window").WithField("role", w.role)
	if w.cfg.Tab.Logger == nil {
		w.cfg.Tab.Logger = log
	}
	return w
}

// Role returns the unique window identifier.
func (w *Window) Role() string { return w.role }

// Size returns the window size.
func (w *Window) Size() (width, height int) { return w.width, w.height }

// SetSize resizes the window. Values <= 0 keep the current dimension.
func (w *Window) SetSize(width, height int) {
	if width > 0 {
		w.width = width
	}
	if height > 0 {
		w.height = height
	}
}

// SidePanelVisible reports whether the side panel is shown.
func (w *Window) SidePanelVisible() bool { return w.sidePanel }

// SetSidePanelVisible shows or hides the side panel.
func (w *Window) SetSidePanelVisible(visible bool) { w.sidePanel = visible }

// BottomPanelVisible reports whether the bottom panel is shown.
func (w *Window) BottomPanelVisible() bool { return w.bottomPanel }

// SetBottomPanelVisible shows or hides the bottom panel.
func (w *Window) SetBottomPanelVisible(visible bool) { w.bottomPanel = visible }

// Closed reports whether Close has completed.
func (w *Window) Closed() bool { return w.closed }

// Tabs returns the tabs in notebook order.
func (w *Window) Tabs() []*tab.Tab { return slices.Clone(w.tabs) }

// NumTabs returns the number of tabs.
func (w *Window) NumTabs() int { return len(w.tabs) }

// ActiveTab returns the active tab, or nil for an empty window.
func (w *Window) ActiveTab() *tab.Tab { return w.active }

// SetActiveTab makes t the active tab.
func (w *Window) SetActiveTab(t *tab.Tab) error {
	if !slices.Contains(w.tabs, t) {
		return ErrTabNotFound
	}
	if w.active != t {
		w.active = t
		w.changed()
	}
	return nil
}

// TabByURI returns the tab whose document is at uri.
func (w *Window) TabByURI(uri string) *tab.Tab {
	if uri == "" {
		return nil
	}
	for _, t := range w.tabs {
		if t.URI() == uri {
			return t
		}
	}
	return nil
}

// DocumentURIs lists the document locations in tab order, including
// documents still loading. Untitled documents are reported as "".
func (w *Window) DocumentURIs() []string {
	uris := make([]string, len(w.tabs))
	for i, t := range w.tabs {
		uris[i] = t.URI()
	}
	return uris
}

// ActiveDocumentURI returns the location of the active document.
func (w *Window) ActiveDocumentURI() string {
	if w.active == nil {
		return ""
	}
	return w.active.URI()
}

// NewTab appends a tab with an empty untitled document and activates it.
func (w *Window) NewTab() *tab.Tab {
	t := w.addTab()
	w.active = t
	w.changed()
	return t
}

// OpenURI loads uri into a tab. A tab already showing uri is reused, as is
// a lone untitled tab that was never edited. jumpTo activates the tab.
func (w *Window) OpenURI(uri string, enc *encoding.Encoding, linePos int, create, jumpTo bool) *tab.Tab {
	if t := w.TabByURI(uri); t != nil {
		w.log.Debug("%s already open", uri)
		if jumpTo {
			_ = w.SetActiveTab(t)
		}
		return t
	}

	t := w.reusableTab()
	if t == nil {
		t = w.addTab()
	}
	if jumpTo || w.active == nil {
		w.active = t
	}
	w.changed()
	t.Load(uri, enc, linePos, create)
	return t
}

// OpenURIs loads every uri and activates the tab of the first one.
func (w *Window) OpenURIs(uris []string, enc *encoding.Encoding, linePos int, create bool) []*tab.Tab {
	tabs := make([]*tab.Tab, 0, len(uris))
	for i, uri := range uris {
		tabs = append(tabs, w.OpenURI(uri, enc, linePos, create, i == 0))
	}
	return tabs
}

// reusableTab returns the window's only tab when it holds an untouched
// untitled document.
func (w *Window) reusableTab() *tab.Tab {
	if len(w.tabs) != 1 {
		return nil
	}
	t := w.tabs[0]
	doc := t.Document()
	if t.State() != tab.StateNormal || !doc.IsUntitled() || doc.Modified() {
		return nil
	}
	return t
}

func (w *Window) addTab() *tab.Tab {
	cfg := w.cfg.Tab
	cfg.OpenElsewhere = func(self *tab.Tab, uri string) bool {
		for _, other := range w.tabs {
			if other != self && other.URI() == uri {
				return true
			}
		}
		return w.cfg.OpenElsewhere != nil && w.cfg.OpenElsewhere(w, uri)
	}
	cfg.Remove = func(self *tab.Tab) {
		if err := w.removeTab(self); err != nil {
			w.log.Debug("remove tab: %v", err)
		}
	}
	t := tab.New(cfg)
	w.tabs = append(w.tabs, t)
	return t
}

// removeTab disposes t and activates its right neighbour, or the left one
// when t was last.
func (w *Window) removeTab(t *tab.Tab) error {
	i := slices.Index(w.tabs, t)
	if i < 0 {
		return ErrTabNotFound
	}
	t.Dispose()
	w.tabs = slices.Delete(w.tabs, i, i+1)
	if w.active == t {
		switch {
		case len(w.tabs) == 0:
			w.active = nil
		case i < len(w.tabs):
			w.active = w.tabs[i]
		default:
			w.active = w.tabs[len(w.tabs)-1]
		}
	}
	w.changed()
	return nil
}

// UnsavedTabs returns the tabs that would lose data if closed.
func (w *Window) UnsavedTabs() []*tab.Tab {
	var unsaved []*tab.Tab
	for _, t := range w.tabs {
		if !t.CanClose() {
			unsaved = append(unsaved, t)
		}
	}
	return unsaved
}

// SaveAll saves every modified tab that can be saved in place. Tabs that
// are busy or in an error state are skipped. Untitled and read-only
// documents that need saving are returned in tab order for SaveAs.
func (w *Window) SaveAll() []*tab.Tab {
	var saveAs []*tab.Tab
	for _, t := range w.tabs {
		switch t.State() {
		case tab.StateNormal, tab.StateShowingPrintPreview:
		default:
			w.log.Debug("%s not saved in state %s", t.Document().ShortName(), t.State())
			continue
		}
		doc := t.Document()
		if !doc.Modified() && !doc.Deleted() {
			continue
		}
		if doc.IsUntitled() || doc.ReadOnly() {
			saveAs = append(saveAs, t)
			continue
		}
		t.Save()
	}
	return saveAs
}

// CloseTab removes t. Unless force is set a tab with unsaved changes is
// kept and ErrUnsavedChanges returned.
func (w *Window) CloseTab(t *tab.Tab, force bool) error {
	if !slices.Contains(w.tabs, t) {
		return ErrTabNotFound
	}
	if !force && !t.CanClose() {
		return fmt.Errorf("%w: %s", ErrUnsavedChanges, t.Document().ShortName())
	}
	if t.State() == tab.StateNormal {
		t.MarkForClosing()
	}
	return w.removeTab(t)
}

// CloseAll removes every tab. Unless force is set nothing is closed while
// any tab has unsaved changes.
func (w *Window) CloseAll(force bool) error {
	if !force {
		if unsaved := w.UnsavedTabs(); len(unsaved) > 0 {
			return fmt.Errorf("%w: %d documents", ErrUnsavedChanges, len(unsaved))
		}
	}
	for len(w.tabs) > 0 {
		t := w.tabs[len(w.tabs)-1]
		if t.State() == tab.StateNormal {
			t.MarkForClosing()
		}
		if err := w.removeTab(t); err != nil {
			return err
		}
	}
	return nil
}

// Close closes every tab and then the window.
func (w *Window) Close(force bool) error {
	if w.closed {
		return ErrClosed
	}
	if err := w.CloseAll(force); err != nil {
		return err
	}
	w.closed = true
	w.log.Debug("window closed")
	if w.cfg.OnClosed != nil {
		w.cfg.OnClosed(w)
	}
	return nil
}

func (w *Window) changed() {
	if w.cfg.OnChanged != nil {
		w.cfg.OnChanged(w)
	}
}
