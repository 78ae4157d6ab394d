package plugin

import (
	"fmt"
	goplugin "plugin"
	"strings"
)

// RegisterSymbol is the function a loader shared object must export:
//
//	func RegisterPluginLoader() plugin.Loader
const RegisterSymbol = "RegisterPluginLoader"

// LoaderExt is the file extension of loader shared objects.
const LoaderExt = ".so"

// Loader instantiates plugins of one runtime.
type Loader interface {
	// ID returns the loader id manifests refer to.
	ID() string
	// Load creates the plugin described by info, whose files live in
	// installDir.
	Load(info *Info, installDir string) (Plugin, error)
	// Unload releases what Load allocated for info.
	Unload(info *Info)
	// GarbageCollect frees resources no longer referenced by any plugin.
	GarbageCollect()
}

// Factory creates a loader on first use.
type Factory func() (Loader, error)

// SymbolTable resolves exported symbols of an opened module.
type SymbolTable interface {
	Lookup(name string) (any, error)
}

// ModuleOpener opens a loader shared object.
type ModuleOpener func(path string) (SymbolTable, error)

type sharedObject struct {
	p *goplugin.Plugin
}

func (s sharedObject) Lookup(name string) (any, error) {
	return s.p.Lookup(name)
}

// OpenSharedObject opens a Go plugin built with -buildmode=plugin.
func OpenSharedObject(path string) (SymbolTable, error) {
	p, err := goplugin.Open(path)
	if err != nil {
		return nil, err
	}
	return sharedObject{p: p}, nil
}

// registerLoader calls the registration symbol of an opened module.
func registerLoader(table SymbolTable) (Loader, error) {
	sym, err := table.Lookup(RegisterSymbol)
	if err != nil {
		return nil, err
	}
	var register func() Loader
	switch fn := sym.(type) {
	case func() Loader:
		register = fn
	case *func() Loader:
		register = *fn
	default:
		return nil, fmt.Errorf("%w: %s has type %T", ErrInvalidRegistration, RegisterSymbol, sym)
	}
	loader := register()
	if loader == nil {
		return nil, fmt.Errorf("%w: %s returned nil", ErrInvalidRegistration, RegisterSymbol)
	}
	return loader, nil
}

// normalizeID folds loader ids to their cache key.
func normalizeID(id string) string {
	return strings.ToLower(strings.TrimSpace(id))
}
