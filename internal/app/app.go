// Package app provides the application context of the Quire editor. It
// owns the preference and metadata stores, the print defaults, the plugin
// engine and every open window, and wires them together in dependency
// order.
//
// An App replaces process-wide singletons: components receive what they
// need from it at construction. All methods except Shutdown's file closing
// must be called from the main loop goroutine.
package app

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"slices"

	"github.com/dshills/quire/internal/logging"
	"github.com/dshills/quire/internal/mainloop"
	"github.com/dshills/quire/internal/metadata"
	"github.com/dshills/quire/internal/plugin"
	"github.com/dshills/quire/internal/plugin/lua"
	"github.com/dshills/quire/internal/plugin/native"
	"github.com/dshills/quire/internal/plugin/process"
	"github.com/dshills/quire/internal/plugin/wasm"
	"github.com/dshills/quire/internal/printing"
	"github.com/dshills/quire/internal/settings"
	"github.com/dshills/quire/internal/tab"
	"github.com/dshills/quire/internal/vfs"
	"github.com/dshills/quire/internal/window"
)

// App is the central coordinator for all Quire components.
type App struct {
	opts Options
	log  *logging.Logger
	loop *mainloop.Loop
	fs   vfs.FS

	// Stores
	settings *settings.Store
	watcher  *settings.Watcher
	metadata *metadata.Store
	print    *printing.Defaults

	// Extension components
	plugins *plugin.Engine
	loaders []plugin.Loader

	subs []*settings.Subscription

	windows []*window.Window
	active  *window.Window

	shutdown bool
}

// Options configures the application.
type Options struct {
	// ConfigDir holds the settings, metadata, print defaults, user plugins
	// and the default session file.
	ConfigDir string

	// Prefix is the installation prefix of the system plugins.
	Prefix string

	// DocumentsDir receives print output. Defaults to ~/Documents.
	DocumentsDir string

	// FS is used for documents, print defaults, manifests and sessions.
	// Defaults to the OS file system.
	FS vfs.FS

	// Loop runs every callback. A new loop is created when nil.
	Loop *mainloop.Loop

	// Builtins serves plugins with the native loader.
	Builtins *native.Registry

	// WatchSettings reloads the settings file when it changes on disk.
	WatchSettings bool

	// Getenv reads environment variables. Defaults to os.Getenv.
	Getenv func(string) string

	Logger *logging.Logger
}

// New creates an App, initializing components in dependency order. When a
// component fails the ones already started are shut down again.
func New(opts Options) (*App, error) {
	a := &App{opts: opts}
	if err := a.bootstrap(); err != nil {
		a.teardown()
		return nil, err
	}
	return a, nil
}

// bootstrap initializes all components in dependency order.
func (a *App) bootstrap() error {
	a.log = a.opts.Logger
	if a.log == nil {
		a.log = logging.NullLogger
	}
	a.log = a.log.WithComponent("app")

	a.fs = a.opts.FS
	if a.fs == nil {
		a.fs = vfs.NewOSFS()
	}
	if a.opts.Getenv == nil {
		a.opts.Getenv = os.Getenv
	}
	if a.opts.DocumentsDir == "" {
		a.opts.DocumentsDir = defaultDocumentsDir(a.opts.ConfigDir)
	}

	// 1. Main loop
	a.loop = a.opts.Loop
	if a.loop == nil {
		a.loop = mainloop.New(
			mainloop.WithLogger(a.opts.Logger),
			mainloop.WithPanicHandler(a.recovered),
		)
	}

	// 2. Preferences
	var err error
	a.settings, err = settings.Open(
		filepath.Join(a.opts.ConfigDir, settings.DefaultFileName),
		settings.WithLogger(a.log),
	)
	if err != nil {
		return &InitError{Component: "settings", Err: err}
	}
	if a.opts.WatchSettings {
		if err := os.MkdirAll(a.opts.ConfigDir, 0o755); err != nil {
			return &InitError{Component: "settings watcher", Err: err}
		}
		a.watcher, err = a.settings.Watch(settings.DefaultDebounce)
		if err != nil {
			return &InitError{Component: "settings watcher", Err: err}
		}
	}
	prefs := a.settings.Get()

	// 3. Metadata and recent files
	a.metadata, err = metadata.Open(
		filepath.Join(a.opts.ConfigDir, metadata.DefaultFileName),
		metadata.WithMaxRecents(prefs.Editor.MaxRecents),
		metadata.WithLogger(a.log),
	)
	if err != nil {
		return &InitError{Component: "metadata", Err: err}
	}

	// 4. Print defaults, read lazily
	a.print = printing.NewDefaults(a.fs, a.opts.ConfigDir, a.log)

	// 5. Plugin engine
	builtins := a.opts.Builtins
	if builtins == nil {
		builtins = native.NewRegistry()
	}
	a.plugins = plugin.NewEngine(plugin.Config{
		Dirs:     plugin.DefaultDirs(a.opts.ConfigDir, a.opts.Prefix),
		Settings: a.settings,
		Windows:  a.pluginWindows,
		Factories: map[string]plugin.Factory{
			native.LoaderID:  a.track(native.Factory(builtins)),
			lua.LoaderID:     a.track(lua.Factory(a.opts.Logger)),
			wasm.LoaderID:    a.track(wasm.Factory(wasm.WithLogger(a.opts.Logger))),
			process.LoaderID: a.track(process.Factory(a.opts.Logger)),
		},
		FS:     a.fs,
		Getenv: a.opts.Getenv,
		Logger: a.opts.Logger,
	})

	// 6. Preference observers
	a.subscribe()

	a.log.Debug("started with config dir %s", a.opts.ConfigDir)
	return nil
}

// track records every loader a factory creates so Shutdown can close it.
func (a *App) track(f plugin.Factory) plugin.Factory {
	return func() (plugin.Loader, error) {
		l, err := f()
		if err == nil && l != nil {
			a.loaders = append(a.loaders, l)
		}
		return l, err
	}
}

func (a *App) recovered(value any, stack []byte) {
	err := &RecoveredPanicError{Value: value, Stack: string(stack)}
	a.log.Error("%v", err)
}

func defaultDocumentsDir(fallback string) string {
	home, err := os.UserHomeDir()
	if err != nil {
		return fallback
	}
	return filepath.Join(home, "Documents")
}

// Loop returns the main loop.
func (a *App) Loop() *mainloop.Loop { return a.loop }

// FS returns the file system documents are read from.
func (a *App) FS() vfs.FS { return a.fs }

// Settings returns the preference store.
func (a *App) Settings() *settings.Store { return a.settings }

// Metadata returns the metadata and recent files store.
func (a *App) Metadata() *metadata.Store { return a.metadata }

// PrintDefaults returns the process-wide print settings.
func (a *App) PrintDefaults() *printing.Defaults { return a.print }

// Plugins returns the plugin engine.
func (a *App) Plugins() *plugin.Engine { return a.plugins }

// Logger returns the application logger.
func (a *App) Logger() *logging.Logger { return a.log }

// Run dispatches main loop callbacks until ctx is cancelled.
func (a *App) Run(ctx context.Context) error {
	if a.shutdown {
		return ErrShutdown
	}
	err := a.loop.Run(ctx)
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

// WaitIdle runs the loop until no tab is loading, saving or printing.
func (a *App) WaitIdle(ctx context.Context) error {
	return a.loop.RunUntil(ctx, func() bool {
		for _, w := range a.windows {
			for _, t := range w.Tabs() {
				if busy(t.State()) {
					return false
				}
			}
		}
		return true
	})
}

func busy(s tab.State) bool {
	switch s {
	case tab.StateLoading, tab.StateReverting, tab.StateSaving, tab.StatePrinting, tab.StatePrintPreviewing:
		return true
	}
	return false
}

// Shutdown closes every window, unloads the plugins and closes the stores
// in reverse initialization order. Unsaved changes are discarded. Calling
// Shutdown again does nothing.
func (a *App) Shutdown() error {
	if a.shutdown {
		return nil
	}
	for _, w := range slices.Clone(a.windows) {
		if err := w.Close(true); err != nil {
			a.log.Warn("close window %s: %v", w.Role(), err)
		}
	}
	return a.teardown()
}

// teardown releases whatever bootstrap initialized.
func (a *App) teardown() error {
	a.shutdown = true
	var errs []error

	for _, sub := range a.subs {
		sub.Unsubscribe()
	}
	a.subs = nil

	if a.plugins != nil {
		a.plugins.Shutdown()
	}
	for _, l := range a.loaders {
		switch c := l.(type) {
		case interface{ Close() error }:
			errs = append(errs, c.Close())
		case interface{ Close() }:
			c.Close()
		}
	}
	a.loaders = nil

	if a.print != nil {
		if err := a.print.Save(); err != nil {
			errs = append(errs, NewOperationError("save", "print defaults", err))
		}
	}
	if a.metadata != nil {
		errs = append(errs, a.metadata.Close())
	}
	if a.watcher != nil {
		errs = append(errs, a.watcher.Close())
	}
	return errors.Join(errs...)
}
