package plugin

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/dshills/quire/internal/logging"
	"github.com/dshills/quire/internal/settings"
	"github.com/dshills/quire/internal/vfs"
)

// Config configures an Engine.
type Config struct {
	// Dirs locates manifests, loader modules and plugin data.
	Dirs Dirs

	// Settings persists the active plugin list. Nil keeps it in memory.
	Settings *settings.Store

	// Windows returns the currently open windows.
	Windows func() []Window

	// Factories are the built-in loaders keyed by id.
	Factories map[string]Factory

	// Open opens loader shared objects. Defaults to OpenSharedObject.
	Open ModuleOpener

	// FS reads manifests. Defaults to the OS file system.
	FS vfs.FS

	// Locale selects translated manifest strings. Defaults to the
	// environment locale.
	Locale string

	// Getenv reads environment variables. Defaults to os.Getenv.
	Getenv func(string) string

	Logger *logging.Logger
}

// EventType is the kind of an engine event.
type EventType int

const (
	// EventActivated is emitted after a plugin became active.
	EventActivated EventType = iota
	// EventDeactivated is emitted after a plugin was deactivated.
	EventDeactivated
	// EventError is emitted when a plugin failed to load or run.
	EventError
)

// String returns a string representation of the event type.
func (t EventType) String() string {
	switch t {
	case EventActivated:
		return "activated"
	case EventDeactivated:
		return "deactivated"
	case EventError:
		return "error"
	default:
		return "unknown"
	}
}

// Event reports a change of plugin state.
type Event struct {
	Type   EventType
	Plugin *Info
	Err    error
}

// EventHandler receives engine events on the loop goroutine.
type EventHandler func(Event)

// Engine is the registry and activation authority for plugins.
type Engine struct {
	dirs      Dirs
	settings  *settings.Store
	windows   func() []Window
	factories map[string]Factory
	open      ModuleOpener
	fs        vfs.FS
	locale    string
	getenv    func(string) string
	log       *logging.Logger

	infos   []*Info
	loaders map[string]Loader
	scanned map[string]bool

	activeList     []string
	activeListRead bool

	handlers []EventHandler
}

// NewEngine creates an engine and scans for plugins.
func NewEngine(cfg Config) *Engine {
	e := &Engine{
		dirs:     cfg.Dirs,
		settings: cfg.Settings,
		windows:  cfg.Windows,
		open:     cfg.Open,
		fs:       cfg.FS,
		locale:   cfg.Locale,
		getenv:   cfg.Getenv,
		log:      cfg.Logger,
		loaders:  make(map[string]Loader),
		scanned:  make(map[string]bool),
	}
	if e.windows == nil {
		e.windows = func() []Window { return nil }
	}
	if e.open == nil {
		e.open = OpenSharedObject
	}
	if e.fs == nil {
		e.fs = vfs.NewOSFS()
	}
	if e.getenv == nil {
		e.getenv = os.Getenv
	}
	if e.locale == "" {
		e.locale = LocaleFromEnv(e.getenv)
	}
	if e.log == nil {
		e.log = logging.NullLogger
	}
	e.log = e.log.WithComponent("plugins")

	e.factories = make(map[string]Factory, len(cfg.Factories))
	for id, f := range cfg.Factories {
		e.factories[normalizeID(id)] = f
	}

	e.Rescan()
	return e
}

// OnEvent registers a handler for engine events.
func (e *Engine) OnEvent(h EventHandler) {
	e.handlers = append(e.handlers, h)
}

func (e *Engine) emit(ev Event) {
	for _, h := range e.handlers {
		h(ev)
	}
}

// Plugins returns the discovered plugins in discovery order.
func (e *Engine) Plugins() []*Info {
	out := make([]*Info, len(e.infos))
	copy(out, e.infos)
	return out
}

// Lookup returns the plugin with the given module name.
func (e *Engine) Lookup(module string) (*Info, bool) {
	for _, info := range e.infos {
		if info.module == module {
			return info, true
		}
	}
	return nil, false
}

// Rescan looks for manifests not registered yet. Earlier directories take
// priority: a module already registered shadows later manifests with the
// same name.
func (e *Engine) Rescan() {
	for _, dir := range e.dirs.ScanPath(e.getenv) {
		e.scanDir(dir)
	}
}

func (e *Engine) scanDir(dir string) {
	entries, err := e.fs.ReadDir(dir)
	if err != nil {
		e.log.Debug("skip plugin dir %s: %v", dir, err)
		return
	}
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ManifestExt) {
			continue
		}
		info, err := e.readManifest(entry.Path())
		if err != nil {
			e.log.Warn("bad plugin manifest: %v", err)
			continue
		}
		if prev, ok := e.Lookup(info.module); ok {
			if prev.file != info.file {
				e.log.Debug("plugin %s from %s shadowed by %s", info.module, info.file, prev.file)
			}
			continue
		}
		info.dataDir = e.dirs.DataDir(info.InstallDir(), info.DataDirName())
		e.infos = append(e.infos, info)
		e.log.Debug("found plugin %s in %s", info.module, dir)
	}
}

func (e *Engine) readManifest(path string) (*Info, error) {
	r, err := e.fs.Open(path)
	if err != nil {
		return nil, err
	}
	defer r.Close()
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	return ParseInfoData(path, data, e.locale)
}

// loaderFor resolves a loader id. Misses are cached.
func (e *Engine) loaderFor(id string) Loader {
	id = normalizeID(id)
	if loader, ok := e.loaders[id]; ok {
		return loader
	}

	if factory, ok := e.factories[id]; ok {
		loader, err := factory()
		if err != nil {
			e.log.Warn("create loader %s: %v", id, err)
			e.loaders[id] = nil
			return nil
		}
		e.loaders[id] = loader
		return loader
	}

	e.scanLoaderModules()
	if loader, ok := e.loaders[id]; ok {
		return loader
	}
	e.log.Debug("no loader for id %s", id)
	e.loaders[id] = nil
	return nil
}

// scanLoaderModules opens every loader module not opened before and caches
// the loaders they register.
func (e *Engine) scanLoaderModules() {
	if e.dirs.Loaders == "" {
		return
	}
	entries, err := e.fs.ReadDir(e.dirs.Loaders)
	if err != nil {
		e.log.Debug("skip loader dir %s: %v", e.dirs.Loaders, err)
		return
	}
	for _, entry := range entries {
		path := entry.Path()
		if entry.IsDir() || filepath.Ext(path) != LoaderExt || e.scanned[path] {
			continue
		}
		e.scanned[path] = true

		table, err := e.open(path)
		if err != nil {
			e.log.Warn("open loader module %s: %v", path, err)
			continue
		}
		loader, err := registerLoader(table)
		if err != nil {
			e.log.Warn("register loader module %s: %v", path, err)
			continue
		}
		id := normalizeID(loader.ID())
		if existing, ok := e.loaders[id]; ok && existing != nil {
			e.log.Debug("loader %s from %s ignored, already registered", id, path)
			continue
		}
		e.loaders[id] = loader
		e.log.Debug("registered loader %s from %s", id, path)
	}
}

// ActivatePlugin loads the plugin, activates it in every window and saves
// the active list. Activating an active plugin does nothing.
func (e *Engine) ActivatePlugin(info *Info) error {
	if info.IsActive() {
		return nil
	}
	if err := e.loadAndActivate(info); err != nil {
		return err
	}
	return e.saveActiveList()
}

// loadAndActivate loads info with its dependencies and activates every
// newly loaded plugin in every window.
func (e *Engine) loadAndActivate(info *Info) error {
	before := make(map[*Info]bool, len(e.infos))
	for _, other := range e.infos {
		before[other] = other.IsActive()
	}
	err := e.load(info, nil)

	windows := e.windows()
	for _, other := range e.infos {
		if before[other] || !other.IsActive() {
			continue
		}
		for _, w := range windows {
			e.activateIn(other, w)
		}
		e.emit(Event{Type: EventActivated, Plugin: other})
	}
	return err
}

// load instantiates info and its dependencies without touching windows.
func (e *Engine) load(info *Info, visiting map[string]bool) error {
	if info.IsActive() {
		return nil
	}
	if !info.available {
		return fmt.Errorf("%w: %s", ErrUnavailable, info.module)
	}

	if visiting == nil {
		visiting = make(map[string]bool)
	}
	visiting[info.module] = true
	for _, dep := range info.depends {
		if visiting[dep] {
			continue
		}
		depInfo, ok := e.Lookup(dep)
		if !ok {
			return e.fail(info, fmt.Errorf("dependency %s: %w", dep, ErrPluginNotFound))
		}
		if err := e.load(depInfo, visiting); err != nil {
			return e.fail(info, fmt.Errorf("dependency %s: %w", dep, err))
		}
	}

	loader := e.loaderFor(info.loaderID)
	if loader == nil {
		return e.fail(info, ErrLoaderNotFound)
	}
	p, err := loader.Load(info, info.InstallDir())
	if err == nil && p == nil {
		err = errors.New("loader returned no plugin")
	}
	if err != nil {
		return e.fail(info, err)
	}
	info.plugin = p
	e.log.Info("loaded plugin %s", info)
	return nil
}

func (e *Engine) fail(info *Info, err error) error {
	info.markUnavailable()
	loadErr := &LoadError{Module: info.module, Loader: info.loaderID, Err: err}
	e.log.Warn("%v", loadErr)
	e.emit(Event{Type: EventError, Plugin: info, Err: loadErr})
	return loadErr
}

func (e *Engine) activateIn(info *Info, w Window) {
	if err := info.plugin.Activate(w); err != nil {
		e.log.Warn("activate %s in window %s: %v", info.module, w.Role(), err)
		e.emit(Event{Type: EventError, Plugin: info, Err: err})
	}
}

func (e *Engine) deactivateIn(info *Info, w Window) {
	if err := info.plugin.Deactivate(w); err != nil {
		e.log.Warn("deactivate %s in window %s: %v", info.module, w.Role(), err)
		e.emit(Event{Type: EventError, Plugin: info, Err: err})
	}
}

// DeactivatePlugin deactivates the plugin in every window, releases it and
// saves the active list. Deactivating an inactive plugin does nothing.
func (e *Engine) DeactivatePlugin(info *Info) error {
	if !info.IsActive() {
		return nil
	}
	e.unload(info)
	return e.saveActiveList()
}

func (e *Engine) unload(info *Info) {
	for _, w := range e.windows() {
		e.deactivateIn(info, w)
	}
	info.plugin = nil
	if loader := e.loaderFor(info.loaderID); loader != nil {
		loader.Unload(info)
		loader.GarbageCollect()
	}
	e.log.Info("unloaded plugin %s", info)
	e.emit(Event{Type: EventDeactivated, Plugin: info})
}

// ActivatePlugins activates every active plugin in w. The first call loads
// the plugins listed in settings.
func (e *Engine) ActivatePlugins(w Window) {
	if !e.activeListRead {
		e.activeListRead = true
		e.activeList = e.storedActiveList()
		for _, info := range e.infos {
			if contains(e.activeList, info.module) {
				_ = e.load(info, nil)
			}
		}
	}
	for _, info := range e.infos {
		if info.IsActive() {
			e.activateIn(info, w)
		}
	}
	e.UpdatePluginsUI(w)
}

// DeactivatePlugins deactivates every active plugin in w.
func (e *Engine) DeactivatePlugins(w Window) {
	for _, info := range e.infos {
		if info.IsActive() {
			e.deactivateIn(info, w)
		}
	}
}

// UpdatePluginsUI lets every active plugin refresh its state for w.
func (e *Engine) UpdatePluginsUI(w Window) {
	for _, info := range e.infos {
		if info.IsActive() {
			info.plugin.UpdateUI(w)
		}
	}
}

// IsConfigurable reports whether info is active and offers options.
func (e *Engine) IsConfigurable(info *Info) bool {
	return info.IsConfigurable()
}

// ConfigurePlugin opens the options of an active plugin.
func (e *Engine) ConfigurePlugin(info *Info) error {
	if !info.IsActive() {
		return fmt.Errorf("%w: %s", ErrNotActive, info.module)
	}
	if !info.plugin.IsConfigurable() {
		return fmt.Errorf("%w: %s", ErrNotConfigurable, info.module)
	}
	return info.plugin.Configure()
}

// GarbageCollect asks every resolved loader to free unused resources.
func (e *Engine) GarbageCollect() {
	for _, loader := range e.loaders {
		if loader != nil {
			loader.GarbageCollect()
		}
	}
}

// ActivePluginsChanged brings the plugin states in line with the active
// list stored in settings. Windows are updated but the list is not written
// back.
func (e *Engine) ActivePluginsChanged() {
	e.activeList = e.storedActiveList()
	e.activeListRead = true

	for _, info := range e.infos {
		want := contains(e.activeList, info.module)
		switch {
		case want && !info.IsActive() && info.available:
			_ = e.loadAndActivate(info)
		case !want && info.IsActive():
			e.unload(info)
		}
	}
}

// Shutdown deactivates every plugin in every window. The active list is
// kept so the same plugins load next time.
func (e *Engine) Shutdown() {
	for _, info := range e.infos {
		if info.IsActive() {
			e.unload(info)
		}
	}
	e.GarbageCollect()
}

// ActiveNames returns the module names of the active plugins.
func (e *Engine) ActiveNames() []string {
	names := []string{}
	for _, info := range e.infos {
		if info.IsActive() {
			names = append(names, info.module)
		}
	}
	return names
}

func (e *Engine) storedActiveList() []string {
	if e.settings == nil {
		return e.activeList
	}
	return e.settings.Get().Plugins.Active
}

func (e *Engine) saveActiveList() error {
	names := e.ActiveNames()
	e.activeList = names
	if e.settings == nil {
		return nil
	}
	if err := e.settings.Update(func(s *settings.Settings) {
		s.Plugins.Active = names
	}); err != nil {
		return fmt.Errorf("save active plugins: %w", err)
	}
	return nil
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
