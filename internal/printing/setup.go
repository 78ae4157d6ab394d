package printing

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"path"
	"sync"

	"github.com/pelletier/go-toml/v2"

	"github.com/dshills/quire/internal/logging"
	"github.com/dshills/quire/internal/vfs"
)

// File names of the process-wide defaults in the config directory.
const (
	PrintSettingsFile = "print-settings.toml"
	PageSetupFile     = "page-setup.toml"
)

// Page orientations.
const (
	Portrait  = "portrait"
	Landscape = "landscape"
)

// PageSetup describes the page grid in character cells.
type PageSetup struct {
	Paper       string `toml:"paper"`
	Orientation string `toml:"orientation"`
	Lines       int    `toml:"lines"`
	Columns     int    `toml:"columns"`
}

// DefaultPageSetup returns an A4 portrait page of 66 lines by 80 columns.
func DefaultPageSetup() PageSetup {
	return PageSetup{Paper: "A4", Orientation: Portrait, Lines: 66, Columns: 80}
}

// Grid returns the usable lines and columns, swapped for landscape pages.
func (p PageSetup) Grid() (lines, columns int) {
	lines, columns = p.Lines, p.Columns
	if p.Orientation == Landscape {
		lines, columns = columns, lines
	}
	if lines < 1 {
		lines = 1
	}
	if columns < 1 {
		columns = 1
	}
	return lines, columns
}

// PrintSettings selects where a job is written.
type PrintSettings struct {
	Printer   string `toml:"printer"`
	OutputURI string `toml:"output_uri"`
	Copies    int    `toml:"copies"`
}

// DefaultPrintSettings prints one copy to a file.
func DefaultPrintSettings() PrintSettings {
	return PrintSettings{Printer: "file", Copies: 1}
}

// DefaultOutputURI returns the output location used when the settings do
// not name one: <documentsDir>/<name>.txt.
func DefaultOutputURI(documentsDir, name string) string {
	return vfs.URIFromPath(path.Join(documentsDir, name+".txt"))
}

// Defaults holds the process-wide print settings and page setup. They are
// read on first access and written by Save.
type Defaults struct {
	mu  sync.Mutex
	fs  vfs.FS
	dir string
	log *logging.Logger

	settings *PrintSettings
	setup    *PageSetup
}

// NewDefaults creates defaults backed by files in dir.
func NewDefaults(fsys vfs.FS, dir string, log *logging.Logger) *Defaults {
	if log == nil {
		log = logging.NullLogger
	}
	return &Defaults{fs: fsys, dir: dir, log: log.WithComponent("printing")}
}

// PrintSettings returns a copy of the default print settings.
func (d *Defaults) PrintSettings() PrintSettings {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.settings == nil {
		s := DefaultPrintSettings()
		if err := d.read(PrintSettingsFile, &s); err != nil {
			d.log.Warn("read print settings: %v", err)
			s = DefaultPrintSettings()
		}
		d.settings = &s
	}
	return *d.settings
}

// SetPrintSettings replaces the default print settings. The copy count is
// not kept.
func (d *Defaults) SetPrintSettings(s PrintSettings) {
	d.mu.Lock()
	defer d.mu.Unlock()
	s.Copies = 1
	d.settings = &s
}

// PageSetup returns a copy of the default page setup.
func (d *Defaults) PageSetup() PageSetup {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.setup == nil {
		p := DefaultPageSetup()
		if err := d.read(PageSetupFile, &p); err != nil {
			d.log.Warn("read page setup: %v", err)
			p = DefaultPageSetup()
		}
		d.setup = &p
	}
	return *d.setup
}

// SetPageSetup replaces the default page setup.
func (d *Defaults) SetPageSetup(p PageSetup) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.setup = &p
}

// Save writes the defaults that were read or set.
func (d *Defaults) Save() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	var errs []error
	if d.settings != nil {
		errs = append(errs, d.write(PrintSettingsFile, d.settings))
	}
	if d.setup != nil {
		errs = append(errs, d.write(PageSetupFile, d.setup))
	}
	return errors.Join(errs...)
}

func (d *Defaults) read(name string, v any) error {
	r, err := d.fs.Open(path.Join(d.dir, name))
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err != nil {
		return err
	}
	defer r.Close()
	data, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	if err := toml.Unmarshal(data, v); err != nil {
		return fmt.Errorf("parse %s: %w", name, err)
	}
	return nil
}

func (d *Defaults) write(name string, v any) error {
	var buf bytes.Buffer
	if err := toml.NewEncoder(&buf).Encode(v); err != nil {
		return fmt.Errorf("encode %s: %w", name, err)
	}
	if err := d.fs.MkdirAll(d.dir, 0o755); err != nil {
		return err
	}
	w, err := d.fs.Create(path.Join(d.dir, name), 0o644)
	if err != nil {
		return err
	}
	if _, err := w.Write(buf.Bytes()); err != nil {
		w.Close()
		return err
	}
	return w.Close()
}
