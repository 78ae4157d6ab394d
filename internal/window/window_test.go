package window

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/dshills/quire/internal/mainloop"
	"github.com/dshills/quire/internal/plugin"
	"github.com/dshills/quire/internal/settings"
	"github.com/dshills/quire/internal/tab"
	"github.com/dshills/quire/internal/vfs"
)

var _ plugin.Window = (*Window)(nil)

type fixture struct {
	t    *testing.T
	loop *mainloop.Loop
	fs   *vfs.MemFS
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{t: t, loop: mainloop.New(), fs: vfs.NewMemFS()}
	if err := f.fs.MkdirAll("/w", 0o755); err != nil {
		t.Fatalf("MkdirAll() error = %v", err)
	}
	for _, name := range []string{"a", "b", "c"} {
		if err := f.fs.AddFile("/w/"+name+".txt", name); err != nil {
			t.Fatalf("AddFile() error = %v", err)
		}
	}
	return f
}

func (f *fixture) window(cfg Config) *Window {
	cfg.Tab = tab.Config{
		Scheduler: f.loop,
		FS:        f.fs,
		Settings:  settings.New(settings.Defaults()),
	}
	return New(cfg)
}

// settle runs the loop until no tab of w is loading or saving.
func (f *fixture) settle(w *Window) {
	f.t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	idle := func() bool {
		for _, t := range w.Tabs() {
			switch t.State() {
			case tab.StateLoading, tab.StateReverting, tab.StateSaving:
				return false
			}
		}
		return true
	}
	if err := f.loop.RunUntil(ctx, idle); err != nil {
		f.t.Fatalf("window did not settle: %v", err)
	}
	for f.loop.Iterate() {
	}
}

func TestNew(t *testing.T) {
	f := newFixture(t)
	w := f.window(Config{})

	if !strings.HasPrefix(w.Role(), "quire-window-") {
		t.Errorf("Role() = %q", w.Role())
	}
	if other := f.window(Config{}); other.Role() == w.Role() {
		t.Error("two windows share a role")
	}
	if width, height := w.Size(); width != DefaultWidth || height != DefaultHeight {
		t.Errorf("Size() = %d, %d", width, height)
	}
	if w.ActiveTab() != nil || w.NumTabs() != 0 || w.ActiveDocumentURI() != "" {
		t.Error("new window is not empty")
	}

	w = f.window(Config{Role: "main", Width: 800, Height: 600, SidePanelVisible: true})
	if w.Role() != "main" || !w.SidePanelVisible() || w.BottomPanelVisible() {
		t.Errorf("Role() = %q side = %v bottom = %v", w.Role(), w.SidePanelVisible(), w.BottomPanelVisible())
	}
	w.SetSize(1024, 0)
	if width, height := w.Size(); width != 1024 || height != 600 {
		t.Errorf("Size() = %d, %d, want 1024, 600", width, height)
	}
}

func TestWindow_OpenURIs(t *testing.T) {
	f := newFixture(t)
	changes := 0
	w := f.window(Config{OnChanged: func(*Window) { changes++ }})

	tabs := w.OpenURIs([]string{"file:///w/a.txt", "file:///w/b.txt"}, nil, 0, false)
	f.settle(w)

	if len(tabs) != 2 {
		t.Fatalf("len(tabs) = %d, want 2", len(tabs))
	}
	want := []string{"file:///w/a.txt", "file:///w/b.txt"}
	if diff := cmp.Diff(want, w.DocumentURIs()); diff != "" {
		t.Errorf("DocumentURIs() mismatch (-want +got):\n%s", diff)
	}
	if w.ActiveDocumentURI() != "file:///w/a.txt" {
		t.Errorf("ActiveDocumentURI() = %q, want the first file", w.ActiveDocumentURI())
	}
	if changes == 0 {
		t.Error("OnChanged not called")
	}

	again := w.OpenURI("file:///w/b.txt", nil, 0, false, true)
	if again != tabs[1] || w.NumTabs() != 2 {
		t.Error("OpenURI() of an open file created a new tab")
	}
	if w.ActiveTab() != tabs[1] {
		t.Error("OpenURI() with jumpTo did not activate the existing tab")
	}
	if w.TabByURI("file:///w/a.txt") != tabs[0] || w.TabByURI("file:///w/x.txt") != nil {
		t.Error("TabByURI() returned the wrong tab")
	}
}

func TestWindow_ReusesEmptyTab(t *testing.T) {
	f := newFixture(t)
	w := f.window(Config{})
	empty := w.NewTab()

	got := w.OpenURI("file:///w/a.txt", nil, 0, false, true)
	f.settle(w)
	if got != empty || w.NumTabs() != 1 {
		t.Errorf("OpenURI() did not reuse the untouched tab, NumTabs() = %d", w.NumTabs())
	}

	w2 := f.window(Config{})
	draft := w2.NewTab()
	draft.Document().SetText("draft")
	if w2.OpenURI("file:///w/a.txt", nil, 0, false, true) == draft {
		t.Error("OpenURI() replaced an edited document")
	}
	f.settle(w2)
}

func TestWindow_FileOpenInAnotherWindow(t *testing.T) {
	f := newFixture(t)
	first := f.window(Config{})
	first.OpenURI("file:///w/a.txt", nil, 0, false, true)
	f.settle(first)

	second := f.window(Config{OpenElsewhere: func(_ *Window, uri string) bool {
		return first.TabByURI(uri) != nil
	}})
	tb := second.OpenURI("file:///w/a.txt", nil, 0, false, true)
	f.settle(second)

	p := tb.Panel()
	if p == nil || p.Kind != tab.PanelFileAlreadyOpen {
		t.Fatalf("Panel() = %v, want the already-open warning", p)
	}
	if tb.Editable() {
		t.Error("Editable() = true for a file open in another window")
	}
}

func TestWindow_CancelledLoadRemovesTab(t *testing.T) {
	f := newFixture(t)
	w := f.window(Config{})
	w.OpenURI("file:///w/missing.txt", nil, 0, false, true)
	f.settle(w)

	tb := w.ActiveTab()
	if tb == nil {
		t.Fatal("tb = nil")
	}
	if tb.State() != tab.StateLoadingError {
		t.Fatalf("tb.State() = %v, want %v", tb.State(), tab.StateLoadingError)
	}
	tb.Panel().Respond(tab.ResponseClose)
	for f.loop.Iterate() {
	}

	if w.NumTabs() != 0 || w.ActiveTab() != nil {
		t.Errorf("NumTabs() = %d after closing the failed tab", w.NumTabs())
	}
}

func TestWindow_CloseTabActivatesNeighbour(t *testing.T) {
	f := newFixture(t)
	w := f.window(Config{})
	tabs := w.OpenURIs([]string{"file:///w/a.txt", "file:///w/b.txt", "file:///w/c.txt"}, nil, 0, false)
	f.settle(w)

	if err := w.SetActiveTab(tabs[1]); err != nil {
		t.Fatalf("SetActiveTab() error = %v", err)
	}
	if err := w.CloseTab(tabs[1], false); err != nil {
		t.Fatalf("CloseTab() error = %v", err)
	}
	if w.ActiveTab() != tabs[2] {
		t.Errorf("ActiveTab() = %v, want the right neighbour", w.ActiveTab().Name())
	}
	if tabs[1].State() != tab.StateClosing {
		t.Errorf("closed tab State() = %v, want %v", tabs[1].State(), tab.StateClosing)
	}

	if err := w.CloseTab(tabs[2], false); err != nil {
		t.Fatalf("CloseTab() error = %v", err)
	}
	if w.ActiveTab() != tabs[0] {
		t.Errorf("ActiveTab() = %v, want the left neighbour", w.ActiveTab().Name())
	}
	if err := w.CloseTab(tabs[2], false); !errors.Is(err, ErrTabNotFound) {
		t.Errorf("CloseTab() of a removed tab error = %v, want %v", err, ErrTabNotFound)
	}
	if err := w.SetActiveTab(tabs[2]); !errors.Is(err, ErrTabNotFound) {
		t.Errorf("SetActiveTab() error = %v, want %v", err, ErrTabNotFound)
	}
}

func TestWindow_UnsavedChanges(t *testing.T) {
	f := newFixture(t)
	w := f.window(Config{})
	tabs := w.OpenURIs([]string{"file:///w/a.txt", "file:///w/b.txt"}, nil, 0, false)
	f.settle(w)
	tabs[1].Document().SetText("edited")

	unsaved := w.UnsavedTabs()
	if len(unsaved) != 1 || unsaved[0] != tabs[1] {
		t.Fatalf("UnsavedTabs() = %v, want the edited tab", unsaved)
	}
	if err := w.CloseTab(tabs[1], false); !errors.Is(err, ErrUnsavedChanges) {
		t.Errorf("CloseTab() error = %v, want %v", err, ErrUnsavedChanges)
	}
	if err := w.CloseAll(false); !errors.Is(err, ErrUnsavedChanges) {
		t.Errorf("CloseAll() error = %v, want %v", err, ErrUnsavedChanges)
	}
	if w.NumTabs() != 2 {
		t.Errorf("NumTabs() = %d, refused close removed tabs", w.NumTabs())
	}

	closed := false
	w.cfg.OnClosed = func(*Window) { closed = true }
	if err := w.Close(true); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	if w.NumTabs() != 0 || !w.Closed() || !closed {
		t.Errorf("NumTabs() = %d Closed() = %v OnClosed = %v", w.NumTabs(), w.Closed(), closed)
	}
	if err := w.Close(true); !errors.Is(err, ErrClosed) {
		t.Errorf("second Close() error = %v, want %v", err, ErrClosed)
	}
}

func TestWindow_SaveAll(t *testing.T) {
	f := newFixture(t)
	w := f.window(Config{})
	tabs := w.OpenURIs([]string{"file:///w/a.txt", "file:///w/b.txt"}, nil, 0, false)
	f.settle(w)

	tabs[0].Document().SetText("a2")
	untitled := w.NewTab()
	untitled.Document().SetText("new")
	w.NewTab()

	saveAs := w.SaveAll()
	if len(saveAs) != 1 || saveAs[0] != untitled {
		t.Errorf("SaveAll() = %v, want the untitled tab", saveAs)
	}
	if tabs[1].State() != tab.StateNormal {
		t.Errorf("unmodified tab State() = %v, want %v", tabs[1].State(), tab.StateNormal)
	}
	f.settle(w)

	got, err := f.fs.ReadFile("/w/a.txt")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(got) != "a2" {
		t.Errorf("a.txt = %q, want a2", got)
	}
	if tabs[0].Document().Modified() {
		t.Error("saved tab still modified")
	}
}
