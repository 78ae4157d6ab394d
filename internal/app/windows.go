package app

import (
	"slices"

	"github.com/dshills/quire/internal/encoding"
	"github.com/dshills/quire/internal/plugin"
	"github.com/dshills/quire/internal/tab"
	"github.com/dshills/quire/internal/window"
)

// NewWindow creates a window, makes it the active one and activates every
// active plugin in it. The tab template and the lifecycle hooks of cfg are
// filled in by the app.
func (a *App) NewWindow(cfg window.Config) *window.Window {
	if cfg.Role != "" && a.WindowByRole(cfg.Role) != nil {
		a.log.Debug("window role %s in use, generating a new one", cfg.Role)
		cfg.Role = ""
	}
	cfg.Tab = tab.Config{
		Scheduler:     a.loop,
		FS:            a.fs,
		Settings:      a.settings,
		Metadata:      a.metadata,
		Recents:       a.metadata,
		PrintDefaults: a.print,
		DocumentsDir:  a.opts.DocumentsDir,
		Logger:        a.opts.Logger,
	}
	cfg.OpenElsewhere = a.openElsewhere
	cfg.OnChanged = func(w *window.Window) { a.plugins.UpdatePluginsUI(w) }
	cfg.OnClosed = a.windowClosed
	cfg.Logger = a.opts.Logger

	w := window.New(cfg)
	a.windows = append(a.windows, w)
	a.active = w
	a.plugins.ActivatePlugins(w)
	a.log.Debug("window %s created", w.Role())
	return w
}

// Windows returns the open windows in creation order.
func (a *App) Windows() []*window.Window { return slices.Clone(a.windows) }

// ActiveWindow returns the most recently activated window, or nil.
func (a *App) ActiveWindow() *window.Window { return a.active }

// SetActiveWindow makes w the active window.
func (a *App) SetActiveWindow(w *window.Window) error {
	if !slices.Contains(a.windows, w) {
		return ErrWindowNotFound
	}
	a.active = w
	return nil
}

// WindowByRole returns the open window with the given role.
func (a *App) WindowByRole(role string) *window.Window {
	for _, w := range a.windows {
		if w.Role() == role {
			return w
		}
	}
	return nil
}

// OpenURIs loads uris into the active window, creating one when none is
// open. The first document becomes the active tab.
func (a *App) OpenURIs(uris []string, enc *encoding.Encoding, linePos int, create bool) []*tab.Tab {
	w := a.active
	if w == nil {
		w = a.NewWindow(window.Config{})
	}
	return w.OpenURIs(uris, enc, linePos, create)
}

// CloseWindow closes w and its tabs. Unless force is set nothing is closed
// while a tab of w has unsaved changes.
func (a *App) CloseWindow(w *window.Window, force bool) error {
	if !slices.Contains(a.windows, w) {
		return ErrWindowNotFound
	}
	if err := w.Close(force); err != nil {
		return NewOperationError("close window", w.Role(), err)
	}
	return nil
}

// windowClosed deactivates the plugins of w and forgets it. Print defaults
// are written when the last window goes away.
func (a *App) windowClosed(w *window.Window) {
	a.plugins.DeactivatePlugins(w)
	i := slices.Index(a.windows, w)
	if i < 0 {
		return
	}
	a.windows = slices.Delete(a.windows, i, i+1)
	if a.active == w {
		a.active = nil
		if n := len(a.windows); n > 0 {
			a.active = a.windows[n-1]
		}
	}
	a.log.Debug("window %s closed", w.Role())
	if len(a.windows) == 0 {
		if err := a.print.Save(); err != nil {
			a.log.Warn("save print defaults: %v", err)
		}
	}
}

// openElsewhere reports whether uri is open in a window other than w.
func (a *App) openElsewhere(w *window.Window, uri string) bool {
	for _, other := range a.windows {
		if other != w && other.TabByURI(uri) != nil {
			return true
		}
	}
	return false
}

func (a *App) pluginWindows() []plugin.Window {
	out := make([]plugin.Window, len(a.windows))
	for i, w := range a.windows {
		out[i] = w
	}
	return out
}

// Tabs returns the tabs of every window.
func (a *App) Tabs() []*tab.Tab {
	var tabs []*tab.Tab
	for _, w := range a.windows {
		tabs = append(tabs, w.Tabs()...)
	}
	return tabs
}
