// Package process runs editor plugins as separate executables speaking
// net/rpc through hashicorp/go-plugin.
//
// A plugin with Loader = "process" ships an executable named after its
// module next to the manifest. The executable calls Serve with its Remote
// implementation.
package process

import (
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"

	"github.com/hashicorp/go-hclog"
	goplugin "github.com/hashicorp/go-plugin"

	"github.com/dshills/quire/internal/logging"
	"github.com/dshills/quire/internal/plugin"
)

// LoaderID is the manifest Loader value served by this package.
const LoaderID = "process"

const pluginName = "plugin"

// Handshake is shared by the editor and plugin executables.
var Handshake = goplugin.HandshakeConfig{
	ProtocolVersion:  1,
	MagicCookieKey:   "QUIRE_PLUGIN",
	MagicCookieValue: "cXVpcmUtcHJvY2Vzcy1wbHVnaW4=",
}

// ErrBadDispense is returned when a plugin process serves an unexpected
// type.
var ErrBadDispense = errors.New("plugin process returned an unexpected type")

// PluginMap returns the plugin set served by plugin executables.
func PluginMap(impl Remote) map[string]goplugin.Plugin {
	return map[string]goplugin.Plugin{pluginName: &RPCPlugin{Impl: impl}}
}

// Serve runs impl as a plugin. It is called from the plugin executable's
// main function and does not return.
func Serve(impl Remote) {
	goplugin.Serve(&goplugin.ServeConfig{
		HandshakeConfig: Handshake,
		Plugins:         PluginMap(impl),
	})
}

// Loader starts one process per plugin.
type Loader struct {
	log     *logging.Logger
	clients map[string]*goplugin.Client
	retired []*goplugin.Client
}

// NewLoader creates a process loader.
func NewLoader(log *logging.Logger) *Loader {
	if log == nil {
		log = logging.NullLogger
	}
	return &Loader{
		log:     log.WithComponent("process"),
		clients: make(map[string]*goplugin.Client),
	}
}

// Factory returns a plugin.Factory creating a Loader.
func Factory(log *logging.Logger) plugin.Factory {
	return func() (plugin.Loader, error) {
		return NewLoader(log), nil
	}
}

// ID returns LoaderID.
func (l *Loader) ID() string { return LoaderID }

// clientConfig builds the go-plugin configuration for the executable at
// path. Plugin output goes to the editor log.
func (l *Loader) clientConfig(module, path string) *goplugin.ClientConfig {
	logger := hclog.New(&hclog.LoggerOptions{
		Name:   "plugin." + module,
		Output: l.log.Writer(logging.LogLevelDebug),
		Level:  hclog.Debug,
	})
	return &goplugin.ClientConfig{
		HandshakeConfig:  Handshake,
		Plugins:          PluginMap(nil),
		Cmd:              exec.Command(path),
		AllowedProtocols: []goplugin.Protocol{goplugin.ProtocolNetRPC},
		Logger:           logger,
	}
}

// Load starts <installDir>/<module> and connects to it.
func (l *Loader) Load(info *plugin.Info, installDir string) (plugin.Plugin, error) {
	path := filepath.Join(installDir, info.ModuleName())
	if _, err := os.Stat(path); err != nil {
		return nil, err
	}

	client := goplugin.NewClient(l.clientConfig(info.ModuleName(), path))
	rpcClient, err := client.Client()
	if err != nil {
		client.Kill()
		return nil, fmt.Errorf("start plugin process %s: %w", path, err)
	}
	raw, err := rpcClient.Dispense(pluginName)
	if err != nil {
		client.Kill()
		return nil, fmt.Errorf("dispense plugin %s: %w", info.ModuleName(), err)
	}
	remote, ok := raw.(Remote)
	if !ok {
		client.Kill()
		return nil, fmt.Errorf("%w: %T", ErrBadDispense, raw)
	}

	l.clients[info.ModuleName()] = client
	return NewPlugin(remote, l.log), nil
}

// Unload detaches the plugin process. It is stopped by GarbageCollect.
func (l *Loader) Unload(info *plugin.Info) {
	client, ok := l.clients[info.ModuleName()]
	if !ok {
		return
	}
	delete(l.clients, info.ModuleName())
	l.retired = append(l.retired, client)
}

// GarbageCollect stops the processes of unloaded plugins.
func (l *Loader) GarbageCollect() {
	for _, c := range l.retired {
		c.Kill()
	}
	l.retired = nil
}

// Close stops every plugin process.
func (l *Loader) Close() {
	for name, c := range l.clients {
		c.Kill()
		delete(l.clients, name)
	}
	l.GarbageCollect()
}

// remotePlugin adapts a Remote to plugin.Plugin.
type remotePlugin struct {
	remote Remote
	log    *logging.Logger
}

// NewPlugin wraps a connected Remote.
func NewPlugin(remote Remote, log *logging.Logger) plugin.Plugin {
	if log == nil {
		log = logging.NullLogger
	}
	return &remotePlugin{remote: remote, log: log}
}

func stateOf(w plugin.Window) WindowState {
	return WindowState{
		Role:      w.Role(),
		Documents: w.DocumentURIs(),
		Active:    w.ActiveDocumentURI(),
	}
}

func (p *remotePlugin) Activate(w plugin.Window) error {
	return p.remote.Activate(stateOf(w))
}

func (p *remotePlugin) Deactivate(w plugin.Window) error {
	return p.remote.Deactivate(stateOf(w))
}

func (p *remotePlugin) UpdateUI(w plugin.Window) {
	if err := p.remote.UpdateUI(stateOf(w)); err != nil {
		p.log.Warn("update_ui: %v", err)
	}
}

func (p *remotePlugin) IsConfigurable() bool {
	return p.remote.IsConfigurable()
}

func (p *remotePlugin) Configure() error {
	if !p.remote.IsConfigurable() {
		return plugin.ErrNotConfigurable
	}
	return p.remote.Configure()
}
