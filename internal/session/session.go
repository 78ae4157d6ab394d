// Package session saves and restores the set of open windows and their
// documents.
//
// A session file is YAML with one group per window:
//
//	windows:
//	  - role: quire-window-1b2c
//	    width: 650
//	    height: 500
//	    side-panel-visible: true
//	    bottom-panel-visible: false
//	    active-document: file:///home/u/notes.txt
//	    documents:
//	      - file:///home/u/notes.txt
//	      - file:///home/u/todo.txt
package session

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"path"

	"gopkg.in/yaml.v3"

	"github.com/dshills/quire/internal/encoding"
	"github.com/dshills/quire/internal/tab"
	"github.com/dshills/quire/internal/vfs"
)

// DefaultFileName is the session file name in the config directory.
const DefaultFileName = "session.yaml"

// ErrEmpty indicates a session without windows.
var ErrEmpty = errors.New("session has no windows")

// Window is the saved state of one window.
type Window struct {
	Role               string   `yaml:"role"`
	Width              int      `yaml:"width"`
	Height             int      `yaml:"height"`
	SidePanelVisible   bool     `yaml:"side-panel-visible"`
	BottomPanelVisible bool     `yaml:"bottom-panel-visible"`
	ActiveDocument     string   `yaml:"active-document,omitempty"`
	Documents          []string `yaml:"documents,omitempty"`
}

// UnmarshalYAML decodes a window group. A missing size is reported as -1.
func (w *Window) UnmarshalYAML(node *yaml.Node) error {
	type plain Window
	v := plain{Width: -1, Height: -1}
	if err := node.Decode(&v); err != nil {
		return err
	}
	*w = Window(v)
	return nil
}

// Session is the saved state of every window.
type Session struct {
	Windows []Window `yaml:"windows"`
}

// Source is a window whose state can be captured.
type Source interface {
	Role() string
	Size() (width, height int)
	SidePanelVisible() bool
	BottomPanelVisible() bool
	DocumentURIs() []string
	ActiveDocumentURI() string
}

// Capture records the state of windows. Untitled documents are skipped.
func Capture(windows ...Source) Session {
	var s Session
	for _, src := range windows {
		width, height := src.Size()
		w := Window{
			Role:               src.Role(),
			Width:              width,
			Height:             height,
			SidePanelVisible:   src.SidePanelVisible(),
			BottomPanelVisible: src.BottomPanelVisible(),
			ActiveDocument:     src.ActiveDocumentURI(),
		}
		for _, uri := range src.DocumentURIs() {
			if uri != "" {
				w.Documents = append(w.Documents, uri)
			}
		}
		s.Windows = append(s.Windows, w)
	}
	return s
}

// Encode writes s as YAML.
func Encode(w io.Writer, s Session) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(s); err != nil {
		return err
	}
	return enc.Close()
}

// Decode reads a session written by Encode.
func Decode(r io.Reader) (Session, error) {
	var s Session
	if err := yaml.NewDecoder(r).Decode(&s); err != nil {
		if errors.Is(err, io.EOF) {
			return s, ErrEmpty
		}
		return s, fmt.Errorf("decode session: %w", err)
	}
	if len(s.Windows) == 0 {
		return s, ErrEmpty
	}
	return s, nil
}

// Save writes s to filePath, replacing any previous session.
func Save(fsys vfs.FS, filePath string, s Session) error {
	var buf bytes.Buffer
	if err := Encode(&buf, s); err != nil {
		return fmt.Errorf("encode session: %w", err)
	}
	if err := fsys.MkdirAll(path.Dir(filePath), 0o755); err != nil {
		return err
	}
	tmp := filePath + ".tmp"
	w, err := fsys.Create(tmp, 0o600)
	if err != nil {
		return err
	}
	if _, err := w.Write(buf.Bytes()); err != nil {
		w.Close()
		return err
	}
	if err := w.Close(); err != nil {
		return err
	}
	return fsys.Rename(tmp, filePath)
}

// Load reads the session at filePath.
func Load(fsys vfs.FS, filePath string) (Session, error) {
	r, err := fsys.Open(filePath)
	if err != nil {
		return Session{}, err
	}
	defer r.Close()
	return Decode(r)
}

// Opener opens documents in a restored window.
type Opener interface {
	OpenURI(uri string, enc *encoding.Encoding, linePos int, create, jumpTo bool) *tab.Tab
}

// Restore recreates every window of s with newWindow and opens its
// documents in order. The active document is the one jumped to. It returns
// the number of documents opened.
func Restore(s Session, newWindow func(Window) Opener) int {
	n := 0
	for _, w := range s.Windows {
		o := newWindow(w)
		for _, uri := range w.Documents {
			o.OpenURI(uri, nil, 0, false, uri == w.ActiveDocument)
			n++
		}
	}
	return n
}
