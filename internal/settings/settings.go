// Package settings holds the editor preferences.
//
// Preferences live in a single TOML file in the config directory. A Store
// loads it over the built-in defaults, persists every update, and notifies
// observers with one Change per modified dotted key (for example
// "plugins.active"). A Watcher reloads the file when it is edited on disk.
package settings

import (
	"fmt"
	"slices"
)

// DefaultFileName is the settings file name inside the config directory.
const DefaultFileName = "settings.toml"

// Keys of settings that other components observe.
const (
	KeyAutoSave          = "editor.auto_save"
	KeyAutoSaveInterval  = "editor.auto_save_interval"
	KeyCreateBackup      = "editor.create_backup_copy"
	KeyMaxRecents        = "editor.max_recents"
	KeyAutoDetected      = "encodings.auto_detected"
	KeyActivePlugins     = "plugins.active"
	KeyDisableSaveToDisk = "lockdown.disable_save_to_disk"
	KeyPrint             = "print"
)

// Wrap modes for printing.
const (
	WrapNone = "none"
	WrapChar = "char"
	WrapWord = "word"
)

// Settings is the full preference tree.
type Settings struct {
	Editor    Editor    `toml:"editor"`
	Encodings Encodings `toml:"encodings"`
	Print     Print     `toml:"print"`
	Plugins   Plugins   `toml:"plugins"`
	Lockdown  Lockdown  `toml:"lockdown"`
}

// Editor holds document handling preferences.
type Editor struct {
	AutoSave bool `toml:"auto_save"`
	// AutoSaveInterval is in minutes.
	AutoSaveInterval int   `toml:"auto_save_interval"`
	CreateBackupCopy bool  `toml:"create_backup_copy"`
	MaxRecents       int   `toml:"max_recents"`
	MaxFileSize      int64 `toml:"max_file_size"`
}

// Encodings holds the charset lists.
type Encodings struct {
	// AutoDetected are tried in order when opening a file without an
	// explicit encoding.
	AutoDetected []string `toml:"auto_detected"`
	ShownInMenu  []string `toml:"shown_in_menu"`
}

// Print holds the compositor preferences read at the start of each job.
type Print struct {
	SyntaxHighlighting bool   `toml:"syntax_highlighting"`
	Header             bool   `toml:"header"`
	LineNumbers        int    `toml:"line_numbers"`
	WrapMode           string `toml:"wrap_mode"`
	BodyFont           string `toml:"body_font"`
	HeaderFont         string `toml:"header_font"`
	NumbersFont        string `toml:"numbers_font"`
}

// Plugins holds the plugin engine state.
type Plugins struct {
	Active []string `toml:"active"`
}

// Lockdown holds administrator restrictions.
type Lockdown struct {
	DisableSaveToDisk bool `toml:"disable_save_to_disk"`
}

// Defaults returns the built-in preferences.
func Defaults() Settings {
	return Settings{
		Editor: Editor{
			AutoSave:         false,
			AutoSaveInterval: 10,
			CreateBackupCopy: true,
			MaxRecents:       10,
			MaxFileSize:      100 * 1024 * 1024,
		},
		Encodings: Encodings{
			AutoDetected: []string{"UTF-8", "CURRENT", "ISO-8859-15"},
			ShownInMenu:  []string{"ISO-8859-15"},
		},
		Print: Print{
			SyntaxHighlighting: true,
			Header:             true,
			LineNumbers:        0,
			WrapMode:           WrapWord,
			BodyFont:           "Monospace 9",
			HeaderFont:         "Sans 11",
			NumbersFont:        "Sans 8",
		},
		Plugins: Plugins{Active: []string{}},
	}
}

// Clone returns a deep copy.
func (s Settings) Clone() Settings {
	s.Encodings.AutoDetected = slices.Clone(s.Encodings.AutoDetected)
	s.Encodings.ShownInMenu = slices.Clone(s.Encodings.ShownInMenu)
	s.Plugins.Active = slices.Clone(s.Plugins.Active)
	return s
}

// Validate checks value ranges.
func (s Settings) Validate() error {
	if s.Editor.AutoSaveInterval < 1 {
		return fmt.Errorf("%w: %s must be at least 1, got %d", ErrInvalidValue, KeyAutoSaveInterval, s.Editor.AutoSaveInterval)
	}
	if s.Editor.MaxRecents < 1 {
		return fmt.Errorf("%w: %s must be at least 1, got %d", ErrInvalidValue, KeyMaxRecents, s.Editor.MaxRecents)
	}
	if s.Print.LineNumbers < 0 {
		return fmt.Errorf("%w: print.line_numbers must not be negative", ErrInvalidValue)
	}
	switch s.Print.WrapMode {
	case WrapNone, WrapChar, WrapWord:
	default:
		return fmt.Errorf("%w: unknown print.wrap_mode %q", ErrInvalidValue, s.Print.WrapMode)
	}
	return nil
}

// AutoSaveAllowed reports whether auto-save may run at all.
func (s Settings) AutoSaveAllowed() bool {
	return s.Editor.AutoSave && !s.Lockdown.DisableSaveToDisk
}
