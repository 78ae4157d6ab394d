// Package wasm runs editor plugins compiled to WebAssembly.
//
// A plugin with Loader = "wasm" ships "<module>.wasm" next to its manifest.
// The module may export the functions activate, deactivate, update_ui and
// configure, all without parameters or results. It may import
// quire.log(ptr, len i32) to write a message from its memory to the editor
// log.
package wasm

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/api"

	"github.com/dshills/quire/internal/logging"
	"github.com/dshills/quire/internal/plugin"
)

// LoaderID is the manifest Loader value served by this package.
const LoaderID = "wasm"

// ModuleExt is the extension of plugin modules.
const ModuleExt = ".wasm"

// DefaultExecTimeout bounds every call into a module.
const DefaultExecTimeout = 5 * time.Second

const hostModule = "quire"

// Loader instantiates wasm plugins in a shared runtime.
type Loader struct {
	runtime     wazero.Runtime
	execTimeout time.Duration
	log         *logging.Logger

	modules map[string]*module
	retired []wazero.CompiledModule
}

// Option configures a Loader.
type Option func(*Loader)

// WithExecTimeout sets the maximum duration of a single call. Zero
// disables the limit.
func WithExecTimeout(d time.Duration) Option {
	return func(l *Loader) {
		l.execTimeout = d
	}
}

// WithLogger sets the logger receiving quire.log output.
func WithLogger(log *logging.Logger) Option {
	return func(l *Loader) {
		if log != nil {
			l.log = log
		}
	}
}

// NewLoader creates the runtime and the quire host module.
func NewLoader(opts ...Option) (*Loader, error) {
	l := &Loader{
		execTimeout: DefaultExecTimeout,
		log:         logging.NullLogger,
		modules:     make(map[string]*module),
	}
	for _, opt := range opts {
		opt(l)
	}
	l.log = l.log.WithComponent("wasm")

	ctx := context.Background()
	cfg := wazero.NewRuntimeConfig().WithCloseOnContextDone(true)
	l.runtime = wazero.NewRuntimeWithConfig(ctx, cfg)

	_, err := l.runtime.NewHostModuleBuilder(hostModule).
		NewFunctionBuilder().WithFunc(l.hostLog).Export("log").
		Instantiate(ctx)
	if err != nil {
		_ = l.runtime.Close(ctx)
		return nil, fmt.Errorf("instantiate host module: %w", err)
	}
	return l, nil
}

// Factory returns a plugin.Factory creating a Loader.
func Factory(opts ...Option) plugin.Factory {
	return func() (plugin.Loader, error) {
		return NewLoader(opts...)
	}
}

func (l *Loader) hostLog(_ context.Context, m api.Module, ptr, length uint32) {
	msg, ok := m.Memory().Read(ptr, length)
	if !ok {
		l.log.Warn("%s: log message out of range", m.Name())
		return
	}
	l.log.WithField("plugin", m.Name()).Info("%s", msg)
}

// ID returns LoaderID.
func (l *Loader) ID() string { return LoaderID }

// Load compiles and instantiates <installDir>/<module>.wasm.
func (l *Loader) Load(info *plugin.Info, installDir string) (plugin.Plugin, error) {
	path := filepath.Join(installDir, info.ModuleName()+ModuleExt)
	code, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return l.instantiate(info.ModuleName(), code)
}

func (l *Loader) instantiate(name string, code []byte) (*module, error) {
	ctx := context.Background()
	compiled, err := l.runtime.CompileModule(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("compile wasm module %s: %w", name, err)
	}
	instance, err := l.runtime.InstantiateModule(ctx, compiled, wazero.NewModuleConfig().WithName(name))
	if err != nil {
		_ = compiled.Close(ctx)
		return nil, fmt.Errorf("instantiate wasm module %s: %w", name, err)
	}
	m := &module{
		name:        name,
		compiled:    compiled,
		instance:    instance,
		execTimeout: l.execTimeout,
		log:         l.log,
	}
	l.modules[name] = m
	return m, nil
}

// Unload closes the plugin instance. Its compiled code is released by
// GarbageCollect.
func (l *Loader) Unload(info *plugin.Info) {
	m, ok := l.modules[info.ModuleName()]
	if !ok {
		return
	}
	delete(l.modules, info.ModuleName())
	if err := m.instance.Close(context.Background()); err != nil {
		l.log.Warn("close wasm module %s: %v", m.name, err)
	}
	l.retired = append(l.retired, m.compiled)
}

// GarbageCollect releases the compiled code of unloaded plugins.
func (l *Loader) GarbageCollect() {
	ctx := context.Background()
	for _, c := range l.retired {
		_ = c.Close(ctx)
	}
	l.retired = nil
}

// Close shuts the runtime down, closing every module.
func (l *Loader) Close() error {
	l.modules = make(map[string]*module)
	l.retired = nil
	return l.runtime.Close(context.Background())
}

// module adapts a wasm instance to plugin.Plugin.
type module struct {
	name        string
	compiled    wazero.CompiledModule
	instance    api.Module
	execTimeout time.Duration
	log         *logging.Logger
}

// call invokes an export. Missing exports are not an error.
func (m *module) call(fnName string) error {
	fn := m.instance.ExportedFunction(fnName)
	if fn == nil {
		return nil
	}
	ctx := context.Background()
	if m.execTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, m.execTimeout)
		defer cancel()
	}
	if _, err := fn.Call(ctx); err != nil {
		return fmt.Errorf("call %s in wasm module %s: %w", fnName, m.name, err)
	}
	return nil
}

func (m *module) Activate(plugin.Window) error { return m.call("activate") }

func (m *module) Deactivate(plugin.Window) error { return m.call("deactivate") }

func (m *module) UpdateUI(plugin.Window) {
	if err := m.call("update_ui"); err != nil {
		m.log.Warn("%v", err)
	}
}

func (m *module) IsConfigurable() bool {
	return m.instance.ExportedFunction("configure") != nil
}

func (m *module) Configure() error {
	if !m.IsConfigurable() {
		return plugin.ErrNotConfigurable
	}
	return m.call("configure")
}
