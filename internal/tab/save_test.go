package tab

import (
	"io/fs"
	"slices"
	"strings"
	"testing"
	"time"

	"github.com/dshills/quire/internal/document"
	"github.com/dshills/quire/internal/encoding"
)

func TestTab_SaveAs(t *testing.T) {
	f := newFixture(t)
	latin9, err := encoding.FromCharset("ISO-8859-15")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	tab := New(f.config())
	tab.Document().SetText("café\nb\n")
	tab.SaveAs("file:///w/out.txt", latin9, encoding.NewlineCRLF)
	if tab.State() != StateSaving {
		t.Fatalf("State() = %v, want %v", tab.State(), StateSaving)
	}
	if uri, enc := tab.PendingSave(); uri != "file:///w/out.txt" || enc != latin9 {
		t.Errorf("PendingSave() = %q, %v", uri, enc)
	}
	f.settle(tab)

	if tab.State() != StateNormal {
		t.Fatalf("State() = %v, want %v", tab.State(), StateNormal)
	}
	if got := f.file("/w/out.txt"); got != "caf\xe9\r\nb\r\n" {
		t.Errorf("file content = %q", got)
	}
	doc := tab.Document()
	if doc.Location() != "file:///w/out.txt" || doc.Modified() || doc.Encoding() != latin9 {
		t.Errorf("Location() = %q Modified() = %v Encoding() = %v", doc.Location(), doc.Modified(), doc.Encoding())
	}
	if uri, _ := tab.PendingSave(); uri != "" {
		t.Errorf("PendingSave() = %q after save", uri)
	}
	if !slices.Contains(f.recents.uris, "file:///w/out.txt") {
		t.Errorf("recents = %v", f.recents.uris)
	}
	if got := f.meta["file:///w/out.txt#"+document.MetadataEncoding]; got != "ISO-8859-15" {
		t.Errorf("remembered encoding = %q, want ISO-8859-15", got)
	}
}

func TestTab_Save(t *testing.T) {
	f := newFixture(t)
	_ = f.fs.AddFile("/w/a.txt", "v1")
	tab := f.open("file:///w/a.txt")

	tab.Document().SetText("v2")
	tab.Save()
	f.settle(tab)

	if tab.State() != StateNormal {
		t.Errorf("State() = %v, want %v", tab.State(), StateNormal)
	}
	if got := f.file("/w/a.txt"); got != "v2" {
		t.Errorf("file content = %q, want v2", got)
	}
	if tab.Document().Modified() {
		t.Error("Modified() = true after save")
	}
}

func TestTab_SaveKeepsLoadEncoding(t *testing.T) {
	f := newFixture(t)
	_ = f.fs.WriteFile("/w/a.txt", []byte("caf\xe9"), 0o644)
	latin1, err := encoding.FromCharset("ISO-8859-1")
	if err != nil {
		t.Fatalf("FromCharset() error = %v", err)
	}

	tab := New(f.config())
	tab.Load("file:///w/a.txt", latin1, 0, false)
	f.settle(tab)
	if tab.Document().Text() != "café" {
		t.Fatalf("Text() = %q, want %q", tab.Document().Text(), "café")
	}

	tab.Save()
	if tab.State() != StateSaving {
		t.Fatalf("State() = %v, want %v", tab.State(), StateSaving)
	}
	if uri, enc := tab.PendingSave(); uri != "file:///w/a.txt" || enc != latin1 {
		t.Errorf("PendingSave() = %q, %v, want file:///w/a.txt, %v", uri, enc, latin1)
	}
	f.settle(tab)

	if tab.State() != StateNormal {
		t.Fatalf("State() = %v, want %v", tab.State(), StateNormal)
	}
	if got := f.file("/w/a.txt"); got != "caf\xe9" {
		t.Errorf("file content = %q, want %q", got, "caf\xe9")
	}
	if tab.Document().Encoding() != latin1 {
		t.Errorf("Encoding() = %v, want %v", tab.Document().Encoding(), latin1)
	}
}

func TestTab_SaveReadOnlyNeedsSaveAs(t *testing.T) {
	f := newFixture(t)
	_ = f.fs.AddFile("/w/a.txt", "v1")
	tab := f.open("file:///w/a.txt")
	tab.Document().SetReadOnly(true)

	expectPanic(t, ErrNeedsSaveAs, tab.Save)
	if tab.State() != StateNormal {
		t.Errorf("State() = %v after rejected Save", tab.State())
	}
}

func TestTab_SaveExternallyModified(t *testing.T) {
	setup := func(t *testing.T) (*fixture, *Tab) {
		f := newFixture(t)
		_ = f.fs.AddFile("/w/a.txt", "v1")
		tab := f.open("file:///w/a.txt")
		_ = f.fs.Touch("/w/a.txt", stamp.Add(time.Hour))
		tab.Document().SetText("v2")
		tab.Save()
		f.settle(tab)

		if tab.State() != StateSavingError {
			t.Fatalf("State() = %v, want %v", tab.State(), StateSavingError)
		}
		p := tab.Panel()
		if p == nil {
			t.Fatal("Panel() = nil")
		}
		if p.Kind != PanelExternallyModifiedSaving {
			t.Fatalf("Panel().Kind = %v, want %v", p.Kind, PanelExternallyModifiedSaving)
		}
		if tab.CanClose() {
			t.Error("CanClose() = true in saving error")
		}
		return f, tab
	}

	t.Run("overwrite", func(t *testing.T) {
		f, tab := setup(t)
		tab.Panel().Respond(ResponseYes)
		f.settle(tab)
		if tab.State() != StateNormal {
			t.Errorf("State() = %v, want %v", tab.State(), StateNormal)
		}
		if got := f.file("/w/a.txt"); got != "v2" {
			t.Errorf("file content = %q, want v2", got)
		}
	})

	t.Run("abandon", func(t *testing.T) {
		f, tab := setup(t)
		tab.Panel().Respond(ResponseNo)
		if tab.State() != StateNormal || tab.Panel() != nil {
			t.Errorf("State() = %v Panel() = %v", tab.State(), tab.Panel())
		}
		if !tab.Document().Modified() {
			t.Error("abandoned save cleared the modified flag")
		}
		if got := f.file("/w/a.txt"); got != "v1" {
			t.Errorf("file content = %q, want v1", got)
		}
	})
}

func TestTab_SaveFromExternallyModifiedNotification(t *testing.T) {
	f := newFixture(t)
	_ = f.fs.AddFile("/w/a.txt", "v1")
	tab := f.open("file:///w/a.txt")

	_ = f.fs.Touch("/w/a.txt", stamp.Add(time.Hour))
	tab.FocusIn()
	if tab.State() != StateExternallyModifiedNotification {
		t.Fatalf("tab.State() = %v, want %v", tab.State(), StateExternallyModifiedNotification)
	}

	tab.Document().SetText("mine")
	tab.Save()
	if tab.Panel() != nil {
		t.Error("Save() kept the notification panel")
	}
	f.settle(tab)

	if tab.State() != StateNormal {
		t.Errorf("State() = %v, want %v", tab.State(), StateNormal)
	}
	if got := f.file("/w/a.txt"); got != "mine" {
		t.Errorf("file content = %q, want mine", got)
	}
}

func TestTab_SaveWithoutBackup(t *testing.T) {
	f := newFixture(t)
	_ = f.fs.AddFile("/w/a.txt", "v1")
	tab := f.open("file:///w/a.txt")
	f.fs.Fail("create", "/w/a.txt~", fs.ErrPermission)

	tab.Document().SetText("v2")
	tab.Save()
	f.settle(tab)

	p := tab.Panel()
	if p == nil {
		t.Fatal("Panel() = nil")
	}
	if p.Kind != PanelNoBackup {
		t.Fatalf("Panel().Kind = %v, want %v", p.Kind, PanelNoBackup)
	}
	p.Respond(ResponseYes)
	f.settle(tab)

	if tab.State() != StateNormal {
		t.Fatalf("State() = %v, want %v", tab.State(), StateNormal)
	}
	if tab.SaveFlags()&document.SaveIgnoreBackup == 0 {
		t.Error("SaveFlags() lost SaveIgnoreBackup")
	}
	if got := f.file("/w/a.txt"); got != "v2" {
		t.Errorf("file content = %q, want v2", got)
	}

	tab.Document().SetText("v3")
	tab.Save()
	f.settle(tab)
	if tab.State() != StateNormal || tab.Panel() != nil {
		t.Errorf("second save: State() = %v Panel() = %v", tab.State(), tab.Panel())
	}
}

func TestTab_SaveConversionError(t *testing.T) {
	f := newFixture(t)
	latin1, err := encoding.FromCharset("ISO-8859-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	tab := New(f.config())
	tab.Document().SetText("snowman ☃")
	tab.SaveAs("file:///w/s.txt", latin1, encoding.NewlineLF)
	f.settle(tab)

	p := tab.Panel()
	if p == nil {
		t.Fatal("Panel() = nil")
	}
	if p.Kind != PanelSavingConversion {
		t.Fatalf("Panel().Kind = %v, want %v", p.Kind, PanelSavingConversion)
	}
	if p.Encoding() != latin1 {
		t.Errorf("Panel().Encoding() = %v, want %v", p.Encoding(), latin1)
	}
	if !strings.Contains(p.Message, "ISO-8859-1") {
		t.Errorf("Panel().Message = %q", p.Message)
	}

	p.SetEncoding(encoding.UTF8())
	p.Respond(ResponseOK)
	f.settle(tab)

	if tab.State() != StateNormal {
		t.Fatalf("State() = %v, want %v", tab.State(), StateNormal)
	}
	if got := f.file("/w/s.txt"); got != "snowman ☃" {
		t.Errorf("file content = %q", got)
	}
	if tab.Document().Encoding() != encoding.UTF8() {
		t.Errorf("Encoding() = %v, want UTF-8", tab.Document().Encoding())
	}
}

func TestTab_SaveUnrecoverable(t *testing.T) {
	f := newFixture(t)
	_ = f.recents.AddRecent("file:///nowhere/a.txt")
	tab := New(f.config())
	tab.Document().SetText("x")
	tab.SaveAs("file:///nowhere/a.txt", nil, encoding.NewlineLF)
	f.settle(tab)

	p := tab.Panel()
	if p == nil {
		t.Fatal("Panel() = nil")
	}
	if p.Kind != PanelUnrecoverableSaving {
		t.Fatalf("Panel().Kind = %v, want %v", p.Kind, PanelUnrecoverableSaving)
	}
	if slices.Contains(f.recents.uris, "file:///nowhere/a.txt") {
		t.Error("failed target left in recent files")
	}

	p.Respond(ResponseClose)
	if tab.State() != StateNormal || tab.Panel() != nil {
		t.Errorf("State() = %v Panel() = %v", tab.State(), tab.Panel())
	}
	if uri, _ := tab.PendingSave(); uri != "" {
		t.Errorf("PendingSave() = %q after abandoning", uri)
	}
	if !tab.Document().IsUntitled() {
		t.Error("failed SaveAs changed the location")
	}
}

func TestPanel_StaleResponseIgnored(t *testing.T) {
	f := newFixture(t)
	tab := New(f.config())
	tab.Document().SetText("x")
	tab.SaveAs("file:///nowhere/a.txt", nil, encoding.NewlineLF)
	f.settle(tab)

	stale := tab.Panel()
	if stale == nil {
		t.Fatal("stale = nil")
	}
	stale.Respond(ResponseClose)
	if tab.State() != StateNormal {
		t.Fatalf("tab.State() = %v, want %v", tab.State(), StateNormal)
	}

	tab.SaveAs("file:///nowhere/b.txt", nil, encoding.NewlineLF)
	f.settle(tab)
	current := tab.Panel()
	if current == nil {
		t.Fatal("current = nil")
	}

	stale.Respond(ResponseClose)
	if tab.Panel() != current || tab.State() != StateSavingError {
		t.Errorf("stale response changed the tab: State() = %v", tab.State())
	}
}
