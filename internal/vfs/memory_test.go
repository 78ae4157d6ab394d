package vfs

import (
	"errors"
	"io"
	"io/fs"
	"testing"
	"time"
)

func TestMemFS_CreateVisibleOnClose(t *testing.T) {
	m := NewMemFS()
	if err := m.MkdirAll("/docs", 0o755); err != nil {
		t.Fatalf("MkdirAll() error = %v", err)
	}

	w, err := m.Create("/docs/a.txt", 0o644)
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	_, _ = w.Write([]byte("hello"))
	if Exists(m, "/docs/a.txt") {
		t.Error("file visible before Close")
	}
	if err := w.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	data, err := m.ReadFile("/docs/a.txt")
	if err != nil {
		t.Fatalf("ReadFile() error = %v", err)
	}
	if string(data) != "hello" {
		t.Errorf("ReadFile() = %q, want hello", data)
	}
}

func TestMemFS_CreateMissingParent(t *testing.T) {
	m := NewMemFS()
	_, err := m.Create("/missing/a.txt", 0o644)
	if !errors.Is(err, fs.ErrNotExist) {
		t.Errorf("Create() error = %v, want ErrNotExist", err)
	}
}

func TestMemFS_ReadOnlyFile(t *testing.T) {
	m := NewMemFS()
	_ = m.AddFile("/ro.txt", "x")
	_ = m.Chmod("/ro.txt", 0o444)

	info, err := m.Stat("/ro.txt")
	if err != nil {
		t.Fatalf("Stat() error = %v", err)
	}
	if info.Writable() {
		t.Error("Writable() = true for 0444 file")
	}
	if _, err := m.Create("/ro.txt", 0o644); !errors.Is(err, fs.ErrPermission) {
		t.Errorf("Create() error = %v, want ErrPermission", err)
	}
}

func TestMemFS_FailInjection(t *testing.T) {
	m := NewMemFS()
	_ = m.AddFile("/a.txt", "x")

	boom := errors.New("boom")
	m.Fail("open", "/a.txt", boom)
	if _, err := m.Open("/a.txt"); !errors.Is(err, boom) {
		t.Errorf("Open() error = %v, want boom", err)
	}

	m.Fail("open", "/a.txt", nil)
	r, err := m.Open("/a.txt")
	if err != nil {
		t.Fatalf("Open() after clearing fault error = %v", err)
	}
	data, _ := io.ReadAll(r)
	if string(data) != "x" {
		t.Errorf("content = %q, want x", data)
	}
}

func TestMemFS_RenameAndTouch(t *testing.T) {
	m := NewMemFS()
	stamp := time.Date(2020, 5, 1, 12, 0, 0, 0, time.UTC)
	m.SetClock(func() time.Time { return stamp })
	_ = m.AddFile("/a.txt", "x")

	if err := m.Rename("/a.txt", "/b.txt"); err != nil {
		t.Fatalf("Rename() error = %v", err)
	}
	if Exists(m, "/a.txt") || !Exists(m, "/b.txt") {
		t.Fatalf("files after rename = %v", m.Files())
	}

	info, _ := m.Stat("/b.txt")
	if !info.ModTime().Equal(stamp) {
		t.Errorf("ModTime() = %v, want %v", info.ModTime(), stamp)
	}

	later := stamp.Add(time.Hour)
	_ = m.Touch("/b.txt", later)
	info, _ = m.Stat("/b.txt")
	if !info.ModTime().Equal(later) {
		t.Errorf("ModTime() after Touch = %v, want %v", info.ModTime(), later)
	}
}

func TestMemFS_ReadDirSorted(t *testing.T) {
	m := NewMemFS()
	_ = m.AddFile("/p/b.txt", "")
	_ = m.AddFile("/p/a.txt", "")
	_ = m.MkdirAll("/p/sub", 0o755)

	entries, err := m.ReadDir("/p")
	if err != nil {
		t.Fatalf("ReadDir() error = %v", err)
	}
	want := []string{"a.txt", "b.txt", "sub"}
	if len(entries) != len(want) {
		t.Fatalf("ReadDir() len = %d, want %d", len(entries), len(want))
	}
	for i, e := range entries {
		if e.Name() != want[i] {
			t.Errorf("entry %d = %s, want %s", i, e.Name(), want[i])
		}
	}
	if !entries[2].IsDir() {
		t.Error("sub should be a directory")
	}
}
