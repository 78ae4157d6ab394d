package lua

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	lua "github.com/yuin/gopher-lua"

	"github.com/dshills/quire/internal/logging"
	"github.com/dshills/quire/internal/plugin"
)

// LoaderID is the manifest Loader value served by this package.
const LoaderID = "lua"

// ScriptExt is the extension of plugin scripts.
const ScriptExt = ".lua"

// Loader loads Lua plugins, one state per plugin.
type Loader struct {
	opts    []StateOption
	log     *logging.Logger
	states  map[string]*State
	retired []*State
}

// NewLoader creates a Lua loader.
func NewLoader(log *logging.Logger, opts ...StateOption) *Loader {
	if log == nil {
		log = logging.NullLogger
	}
	return &Loader{
		opts:   opts,
		log:    log.WithComponent("lua"),
		states: make(map[string]*State),
	}
}

// Factory returns a plugin.Factory creating a Loader.
func Factory(log *logging.Logger, opts ...StateOption) plugin.Factory {
	return func() (plugin.Loader, error) {
		return NewLoader(log, opts...), nil
	}
}

// ID returns LoaderID.
func (l *Loader) ID() string { return LoaderID }

// Load runs <installDir>/<module>.lua in a fresh state.
func (l *Loader) Load(info *plugin.Info, installDir string) (plugin.Plugin, error) {
	script := filepath.Join(installDir, info.ModuleName()+ScriptExt)
	if _, err := os.Stat(script); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrNoScript, script)
		}
		return nil, err
	}

	s := NewState(l.opts...)
	installHost(s.L, info, l.log.WithField("plugin", info.ModuleName()))
	if err := s.DoFile(script); err != nil {
		s.Close()
		return nil, fmt.Errorf("run %s: %w", script, err)
	}
	l.states[info.ModuleName()] = s
	return &scriptPlugin{state: s, log: l.log}, nil
}

// Unload retires the plugin's state. It is closed by GarbageCollect.
func (l *Loader) Unload(info *plugin.Info) {
	s, ok := l.states[info.ModuleName()]
	if !ok {
		return
	}
	delete(l.states, info.ModuleName())
	l.retired = append(l.retired, s)
}

// GarbageCollect closes retired states.
func (l *Loader) GarbageCollect() {
	for _, s := range l.retired {
		s.Close()
	}
	l.retired = nil
}

// installHost exposes the quire table to the script.
func installHost(L *lua.LState, info *plugin.Info, log *logging.Logger) {
	host := L.NewTable()
	host.RawSetString("module", lua.LString(info.ModuleName()))
	host.RawSetString("plugin_dir", lua.LString(info.InstallDir()))
	host.RawSetString("data_dir", lua.LString(info.DataDir()))
	host.RawSetString("log", L.NewFunction(func(L *lua.LState) int {
		log.Info("%s", L.CheckString(1))
		return 0
	}))
	L.SetGlobal("quire", host)
}

// scriptPlugin adapts a script's globals to plugin.Plugin.
type scriptPlugin struct {
	state *State
	log   *logging.Logger
}

func windowTable(L *lua.LState, w plugin.Window) *lua.LTable {
	t := L.NewTable()
	t.RawSetString("role", lua.LString(w.Role()))
	docs := L.NewTable()
	for _, uri := range w.DocumentURIs() {
		docs.Append(lua.LString(uri))
	}
	t.RawSetString("documents", docs)
	t.RawSetString("active", lua.LString(w.ActiveDocumentURI()))
	return t
}

func (p *scriptPlugin) callWindow(name string, w plugin.Window) error {
	_, err := p.state.Call(name, windowTable(p.state.L, w))
	return err
}

func (p *scriptPlugin) Activate(w plugin.Window) error {
	return p.callWindow("activate", w)
}

func (p *scriptPlugin) Deactivate(w plugin.Window) error {
	return p.callWindow("deactivate", w)
}

func (p *scriptPlugin) UpdateUI(w plugin.Window) {
	if err := p.callWindow("update_ui", w); err != nil {
		p.log.Warn("update_ui: %v", err)
	}
}

func (p *scriptPlugin) IsConfigurable() bool {
	return p.state.Has("configure")
}

func (p *scriptPlugin) Configure() error {
	if !p.IsConfigurable() {
		return plugin.ErrNotConfigurable
	}
	_, err := p.state.Call("configure")
	return err
}
