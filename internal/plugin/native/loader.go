// Package native serves plugins compiled into the editor binary.
package native

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/dshills/quire/internal/plugin"
)

// LoaderID is the manifest Loader value served by this package. It is the
// default when a manifest has no Loader key.
const LoaderID = plugin.DefaultLoaderID

// Constructor creates a plugin instance. dataDir is the plugin's resolved
// data directory.
type Constructor func(info *plugin.Info, dataDir string) (plugin.Plugin, error)

// Registry maps module names to constructors.
type Registry struct {
	mu           sync.RWMutex
	constructors map[string]Constructor
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{constructors: make(map[string]Constructor)}
}

// Register adds a constructor. Registering a module twice panics.
func (r *Registry) Register(module string, c Constructor) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, dup := r.constructors[module]; dup {
		panic(fmt.Sprintf("native: module %q registered twice", module))
	}
	r.constructors[module] = c
}

// Lookup returns the constructor for module.
func (r *Registry) Lookup(module string) (Constructor, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.constructors[module]
	return c, ok
}

// Modules returns the registered module names, sorted.
func (r *Registry) Modules() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.constructors))
	for name := range r.constructors {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Loader instantiates registered plugins.
type Loader struct {
	registry *Registry
	loaded   map[string]bool
}

// NewLoader creates a loader over registry.
func NewLoader(registry *Registry) *Loader {
	return &Loader{registry: registry, loaded: make(map[string]bool)}
}

// Factory returns a plugin.Factory creating a Loader over registry.
func Factory(registry *Registry) plugin.Factory {
	return func() (plugin.Loader, error) {
		return NewLoader(registry), nil
	}
}

// ID returns LoaderID.
func (l *Loader) ID() string { return LoaderID }

// Load calls the constructor registered for the plugin's module.
func (l *Loader) Load(info *plugin.Info, _ string) (plugin.Plugin, error) {
	c, ok := l.registry.Lookup(info.ModuleName())
	if !ok {
		return nil, fmt.Errorf("no native module %q (have %s)", info.ModuleName(), strings.Join(l.registry.Modules(), ", "))
	}
	p, err := c(info, info.DataDir())
	if err != nil {
		return nil, err
	}
	l.loaded[info.ModuleName()] = true
	return p, nil
}

// Unload forgets the plugin.
func (l *Loader) Unload(info *plugin.Info) {
	delete(l.loaded, info.ModuleName())
}

// GarbageCollect does nothing; native plugins are freed by the Go runtime.
func (l *Loader) GarbageCollect() {}

// Loaded reports whether module has a live instance.
func (l *Loader) Loaded(module string) bool {
	return l.loaded[module]
}
