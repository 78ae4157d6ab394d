package session

import (
	"errors"
	"io/fs"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/dshills/quire/internal/encoding"
	"github.com/dshills/quire/internal/tab"
	"github.com/dshills/quire/internal/vfs"
	"github.com/dshills/quire/internal/window"
)

var (
	_ Source = (*window.Window)(nil)
	_ Opener = (*window.Window)(nil)
)

type fakeWindow struct {
	role          string
	width, height int
	side, bottom  bool
	uris          []string
	active        string
}

func (w fakeWindow) Role() string              { return w.role }
func (w fakeWindow) Size() (int, int)          { return w.width, w.height }
func (w fakeWindow) SidePanelVisible() bool    { return w.side }
func (w fakeWindow) BottomPanelVisible() bool  { return w.bottom }
func (w fakeWindow) DocumentURIs() []string    { return w.uris }
func (w fakeWindow) ActiveDocumentURI() string { return w.active }

type opened struct {
	uri    string
	jumpTo bool
}

type fakeOpener struct{ calls *[]opened }

func (o fakeOpener) OpenURI(uri string, _ *encoding.Encoding, _ int, _, jumpTo bool) *tab.Tab {
	*o.calls = append(*o.calls, opened{uri, jumpTo})
	return nil
}

func TestCapture(t *testing.T) {
	s := Capture(
		fakeWindow{
			role: "one", width: 800, height: 600, side: true,
			uris:   []string{"file:///a.txt", "", "file:///b.txt"},
			active: "file:///b.txt",
		},
		fakeWindow{role: "two", width: 650, height: 500, bottom: true, uris: []string{""}},
	)

	want := Session{Windows: []Window{
		{
			Role: "one", Width: 800, Height: 600, SidePanelVisible: true,
			ActiveDocument: "file:///b.txt",
			Documents:      []string{"file:///a.txt", "file:///b.txt"},
		},
		{Role: "two", Width: 650, Height: 500, BottomPanelVisible: true},
	}}
	if diff := cmp.Diff(want, s); diff != "" {
		t.Errorf("Capture() mismatch (-want +got):\n%s", diff)
	}
}

func TestSaveLoad(t *testing.T) {
	fsys := vfs.NewMemFS()
	s := Session{Windows: []Window{{
		Role: "main", Width: 1024, Height: 768, SidePanelVisible: true,
		ActiveDocument: "file:///w/a.txt",
		Documents:      []string{"file:///w/a.txt", "file:///w/b.txt"},
	}}}

	if err := Save(fsys, "/cfg/quire/session.yaml", s); err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	data, err := fsys.ReadFile("/cfg/quire/session.yaml")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(string(data), "side-panel-visible: true") {
		t.Errorf("session file = %q", data)
	}
	if vfs.Exists(fsys, "/cfg/quire/session.yaml.tmp") {
		t.Error("temporary file left behind")
	}

	got, err := Load(fsys, "/cfg/quire/session.yaml")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if diff := cmp.Diff(s, got); diff != "" {
		t.Errorf("Load() mismatch (-want +got):\n%s", diff)
	}
}

func TestDecode_Defaults(t *testing.T) {
	s, err := Decode(strings.NewReader("windows:\n  - role: bare\n    documents: [file:///x]\n"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := Window{Role: "bare", Width: -1, Height: -1, Documents: []string{"file:///x"}}
	if diff := cmp.Diff(want, s.Windows[0]); diff != "" {
		t.Errorf("window mismatch (-want +got):\n%s", diff)
	}
}

func TestDecode_Errors(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{"empty file", ""},
		{"no windows", "windows: []\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Decode(strings.NewReader(tt.input)); !errors.Is(err, ErrEmpty) {
				t.Errorf("Decode() error = %v, want %v", err, ErrEmpty)
			}
		})
	}

	if _, err := Decode(strings.NewReader("windows: {")); err == nil || errors.Is(err, ErrEmpty) {
		t.Errorf("Decode() of malformed YAML error = %v", err)
	}
}

func TestLoad_Missing(t *testing.T) {
	_, err := Load(vfs.NewMemFS(), "/nowhere/session.yaml")
	if !errors.Is(err, fs.ErrNotExist) {
		t.Errorf("Load() error = %v, want %v", err, fs.ErrNotExist)
	}
}

func TestRestore(t *testing.T) {
	s := Session{Windows: []Window{
		{Role: "one", ActiveDocument: "file:///b", Documents: []string{"file:///a", "file:///b"}},
		{Role: "two", Documents: []string{"file:///c"}},
	}}
	var roles []string
	var calls []opened
	n := Restore(s, func(w Window) Opener {
		roles = append(roles, w.Role)
		return fakeOpener{&calls}
	})

	if n != 3 {
		t.Errorf("Restore() = %d, want 3", n)
	}
	if diff := cmp.Diff([]string{"one", "two"}, roles); diff != "" {
		t.Errorf("windows mismatch (-want +got):\n%s", diff)
	}
	want := []opened{{"file:///a", false}, {"file:///b", true}, {"file:///c", false}}
	if diff := cmp.Diff(want, calls, cmp.AllowUnexported(opened{})); diff != "" {
		t.Errorf("opened mismatch (-want +got):\n%s", diff)
	}
}
