// Package document holds the text document model and the single-use loader
// and saver objects that move it between memory and storage.
//
// A Document is owned by the main loop: it is only read or mutated from loop
// callbacks. Loaders and savers do their I/O on a worker goroutine and apply
// results to the document through the loop.
package document

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/dshills/quire/internal/encoding"
	"github.com/dshills/quire/internal/vfs"
)

// Metadata keys stored per location.
const (
	MetadataEncoding = "encoding"
	MetadataPosition = "position"
)

// Metadata is per-location key/value storage kept across sessions.
type Metadata interface {
	Get(uri, key string) string
	Set(uri, key, value string) error
}

// Document is an in-memory text buffer bound to an optional location.
type Document struct {
	location       string
	untitledNumber int

	text     string
	encoding *encoding.Encoding
	newline  encoding.NewlineType

	modified bool
	readOnly bool
	deleted  bool

	mtime time.Time
	size  int64

	onChanged []func(*Document)
}

// New creates an empty untitled document.
func New() *Document {
	return &Document{
		encoding: encoding.UTF8(),
		newline:  encoding.DefaultNewline,
	}
}

// Location returns the document URI, or "" when untitled.
func (d *Document) Location() string { return d.location }

// IsUntitled reports whether the document has never been saved or loaded.
func (d *Document) IsUntitled() bool { return d.location == "" }

// IsLocal reports whether the document lives on the local file system.
func (d *Document) IsLocal() bool { return vfs.IsLocal(d.location) }

// SetUntitledNumber sets the number shown in the name of untitled documents.
func (d *Document) SetUntitledNumber(n int) { d.untitledNumber = n }

// ShortName returns the display name.
func (d *Document) ShortName() string {
	if d.IsUntitled() {
		if d.untitledNumber > 0 {
			return fmt.Sprintf("Unsaved Document %d", d.untitledNumber)
		}
		return "Unsaved Document"
	}
	return vfs.ShortName(d.location)
}

// Text returns the buffer content with \n line terminators.
func (d *Document) Text() string { return d.text }

// SetText replaces the buffer content and marks the document modified.
func (d *Document) SetText(text string) {
	d.text = encoding.NormalizeNewlines(text)
	d.modified = true
	d.changed()
}

// Insert appends text at the end of the buffer.
func (d *Document) Insert(text string) {
	d.SetText(d.text + text)
}

// LineCount returns the number of lines in the buffer.
func (d *Document) LineCount() int {
	if d.text == "" {
		return 1
	}
	return strings.Count(d.text, "\n") + 1
}

// Encoding returns the encoding used for the last load or save.
func (d *Document) Encoding() *encoding.Encoding { return d.encoding }

// NewlineType returns the line terminator convention used on disk.
func (d *Document) NewlineType() encoding.NewlineType { return d.newline }

// SetNewlineType changes the convention used by the next save.
func (d *Document) SetNewlineType(n encoding.NewlineType) { d.newline = n }

// Modified reports whether the buffer differs from the stored file.
func (d *Document) Modified() bool { return d.modified }

// SetModified sets the modified flag.
func (d *Document) SetModified(m bool) {
	if d.modified == m {
		return
	}
	d.modified = m
	d.changed()
}

// ReadOnly reports whether the document may not be saved in place.
func (d *Document) ReadOnly() bool { return d.readOnly }

// SetReadOnly sets the read-only flag.
func (d *Document) SetReadOnly(ro bool) {
	if d.readOnly == ro {
		return
	}
	d.readOnly = ro
	d.changed()
}

// Deleted reports whether the backing file disappeared since it was loaded.
func (d *Document) Deleted() bool { return d.deleted }

// ModTime returns the modification time recorded at the last load or save.
func (d *Document) ModTime() time.Time { return d.mtime }

// Size returns the on-disk size recorded at the last load or save.
func (d *Document) Size() int64 { return d.size }

// OnChanged registers fn to run after flag or content changes.
func (d *Document) OnChanged(fn func(*Document)) {
	d.onChanged = append(d.onChanged, fn)
}

func (d *Document) changed() {
	for _, fn := range d.onChanged {
		fn(d)
	}
}

// CheckExternallyModified stats the backing file and reports whether it
// changed or disappeared since the last load or save. It marks the document
// deleted when the file is gone.
func (d *Document) CheckExternallyModified(fsys vfs.FS) bool {
	if d.IsUntitled() || !d.IsLocal() {
		return false
	}
	path, err := vfs.PathFromURI(d.location)
	if err != nil {
		return false
	}
	info, err := fsys.Stat(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			if !d.deleted {
				d.deleted = true
				d.changed()
			}
			return true
		}
		return false
	}
	if d.deleted {
		d.deleted = false
		d.changed()
	}
	return !info.ModTime().Equal(d.mtime)
}

// applyLoad installs the result of a load.
func (d *Document) applyLoad(uri, text string, enc *encoding.Encoding, nl encoding.NewlineType, info vfs.FileInfo, readOnly bool) {
	d.location = uri
	d.text = text
	d.encoding = enc
	d.newline = nl
	d.mtime = info.ModTime()
	d.size = info.Size()
	d.readOnly = readOnly
	d.modified = false
	d.deleted = false
	d.changed()
}

// applySave records a successful save. The read-only flag is left alone.
func (d *Document) applySave(uri string, enc *encoding.Encoding, nl encoding.NewlineType, info vfs.FileInfo) {
	d.location = uri
	d.encoding = enc
	d.newline = nl
	d.mtime = info.ModTime()
	d.size = info.Size()
	d.modified = false
	d.deleted = false
	d.changed()
}
