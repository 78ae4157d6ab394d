package app

import (
	"fmt"
	"path/filepath"

	"github.com/dshills/quire/internal/session"
	"github.com/dshills/quire/internal/tab"
	"github.com/dshills/quire/internal/window"
)

// UnsavedTabs returns the tabs of every window that would lose data if
// closed.
func (a *App) UnsavedTabs() []*tab.Tab {
	var unsaved []*tab.Tab
	for _, w := range a.windows {
		unsaved = append(unsaved, w.UnsavedTabs()...)
	}
	return unsaved
}

// SaveAll saves every modified document in every window. Documents that
// need a location first are returned for SaveAs.
func (a *App) SaveAll() []*tab.Tab {
	var saveAs []*tab.Tab
	for _, w := range a.windows {
		saveAs = append(saveAs, w.SaveAll()...)
	}
	return saveAs
}

// Quit closes every window and shuts the application down. Unless force is
// set nothing happens while a document has unsaved changes.
func (a *App) Quit(force bool) error {
	if a.shutdown {
		return ErrShutdown
	}
	if !force {
		if unsaved := a.UnsavedTabs(); len(unsaved) > 0 {
			return NewOperationError("quit", "", ErrUnsavedChanges).
				WithContext(fmt.Sprintf("%d documents", len(unsaved)))
		}
	}
	return a.Shutdown()
}

// SessionPath returns the default session file.
func (a *App) SessionPath() string {
	return filepath.Join(a.opts.ConfigDir, session.DefaultFileName)
}

// SaveSession writes the open windows and their documents to path.
func (a *App) SaveSession(path string) error {
	sources := make([]session.Source, len(a.windows))
	for i, w := range a.windows {
		sources[i] = w
	}
	if err := session.Save(a.fs, path, session.Capture(sources...)); err != nil {
		return NewOperationError("save session", path, err)
	}
	a.log.Info("session saved to %s", path)
	return nil
}

// RestoreSession reopens the windows saved in path and loads their
// documents. It returns the number of documents opened.
func (a *App) RestoreSession(path string) (int, error) {
	s, err := session.Load(a.fs, path)
	if err != nil {
		return 0, NewOperationError("restore session", path, err)
	}
	n := session.Restore(s, func(sw session.Window) session.Opener {
		return a.NewWindow(window.Config{
			Role:               sw.Role,
			Width:              sw.Width,
			Height:             sw.Height,
			SidePanelVisible:   sw.SidePanelVisible,
			BottomPanelVisible: sw.BottomPanelVisible,
		})
	})
	a.log.Info("restored %d windows with %d documents from %s", len(s.Windows), n, path)
	return n, nil
}

// EnablePlugin activates the plugin declared by module.
func (a *App) EnablePlugin(module string) error {
	info, ok := a.plugins.Lookup(module)
	if !ok {
		return NewOperationError("enable plugin", module, ErrPluginNotFound)
	}
	if err := a.plugins.ActivatePlugin(info); err != nil {
		return NewOperationError("enable plugin", module, err)
	}
	return nil
}

// DisablePlugin deactivates the plugin declared by module.
func (a *App) DisablePlugin(module string) error {
	info, ok := a.plugins.Lookup(module)
	if !ok {
		return NewOperationError("disable plugin", module, ErrPluginNotFound)
	}
	if err := a.plugins.DeactivatePlugin(info); err != nil {
		return NewOperationError("disable plugin", module, err)
	}
	return nil
}
