package process

import (
	"net/rpc"

	goplugin "github.com/hashicorp/go-plugin"
)

// WindowState is the window description sent to plugin processes.
type WindowState struct {
	Role      string
	Documents []string
	Active    string
}

// Remote is implemented by plugin processes.
type Remote interface {
	Activate(w WindowState) error
	Deactivate(w WindowState) error
	UpdateUI(w WindowState) error
	IsConfigurable() bool
	Configure() error
}

// RPCClient is the editor side of a Remote.
type RPCClient struct {
	client *rpc.Client
}

var _ Remote = (*RPCClient)(nil)

func (c *RPCClient) Activate(w WindowState) error {
	return c.client.Call("Plugin.Activate", w, new(any))
}

func (c *RPCClient) Deactivate(w WindowState) error {
	return c.client.Call("Plugin.Deactivate", w, new(any))
}

func (c *RPCClient) UpdateUI(w WindowState) error {
	return c.client.Call("Plugin.UpdateUI", w, new(any))
}

func (c *RPCClient) IsConfigurable() bool {
	var resp bool
	if err := c.client.Call("Plugin.IsConfigurable", new(any), &resp); err != nil {
		return false
	}
	return resp
}

func (c *RPCClient) Configure() error {
	return c.client.Call("Plugin.Configure", new(any), new(any))
}

// RPCServer exposes a Remote over net/rpc inside the plugin process.
type RPCServer struct {
	Impl Remote
}

func (s *RPCServer) Activate(w WindowState, _ *any) error {
	return s.Impl.Activate(w)
}

func (s *RPCServer) Deactivate(w WindowState, _ *any) error {
	return s.Impl.Deactivate(w)
}

func (s *RPCServer) UpdateUI(w WindowState, _ *any) error {
	return s.Impl.UpdateUI(w)
}

func (s *RPCServer) IsConfigurable(_ any, resp *bool) error {
	*resp = s.Impl.IsConfigurable()
	return nil
}

func (s *RPCServer) Configure(_ any, _ *any) error {
	return s.Impl.Configure()
}

// RPCPlugin is the go-plugin binding of Remote.
type RPCPlugin struct {
	Impl Remote
}

var _ goplugin.Plugin = (*RPCPlugin)(nil)

func (p *RPCPlugin) Server(*goplugin.MuxBroker) (any, error) {
	return &RPCServer{Impl: p.Impl}, nil
}

func (p *RPCPlugin) Client(_ *goplugin.MuxBroker, c *rpc.Client) (any, error) {
	return &RPCClient{client: c}, nil
}
