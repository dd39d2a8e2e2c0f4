package adapter

import (
	"context"
	"fmt"
	"net/rpc"
	"os/exec"

	"github.com/hashicorp/go-hclog"
	"github.com/hashicorp/go-plugin"
)

// handshakeConfig is shared between fabrik and every custom adapter
// plugin binary; both sides must agree on it or the plugin is rejected.
var handshakeConfig = plugin.HandshakeConfig{
	ProtocolVersion:  1,
	MagicCookieKey:   "FABRIK_ADAPTER_PLUGIN",
	MagicCookieValue: "fabrik_adapter_plugin_v1",
}

// CustomAdapterRPC is the net/rpc surface a custom adapter plugin binary
// must implement server-side. net/rpc methods take exactly one argument
// and one reply pointer, so the adapter.Send signature is flattened into
// request/response structs.
type CustomAdapterRPC interface {
	Send(args SendArgs, reply *SendReply) error
	Reset(args struct{}, reply *struct{}) error
}

// SendArgs is the net/rpc request shape for CustomAdapterRPC.Send.
type SendArgs struct {
	Message string
	SendCtx SendContext
}

// SendReply is the net/rpc response shape for CustomAdapterRPC.Send.
type SendReply struct {
	Response AgentResponse
}

// rpcClient is the client-side stub dispensed by the plugin framework; it
// satisfies CustomAdapterRPC by forwarding over the net/rpc connection.
type rpcClient struct{ client *rpc.Client }

func (c *rpcClient) Send(args SendArgs, reply *SendReply) error {
	return c.client.Call("Plugin.Send", args, reply)
}

func (c *rpcClient) Reset(args struct{}, reply *struct{}) error {
	return c.client.Call("Plugin.Reset", args, reply)
}

// rpcServer wraps a concrete CustomAdapterRPC implementation for
// net/rpc's reflection-based dispatch, which requires exported methods on
// a plain struct rather than an interface value directly.
type rpcServer struct{ Impl CustomAdapterRPC }

func (s *rpcServer) Send(args SendArgs, reply *SendReply) error {
	return s.Impl.Send(args, reply)
}

func (s *rpcServer) Reset(args struct{}, reply *struct{}) error {
	return s.Impl.Reset(args, reply)
}

// AdapterPlugin is the go-plugin Plugin implementation for the custom
// adapter kind, using the net/rpc transport (no protobuf codegen needed).
type AdapterPlugin struct {
	Impl CustomAdapterRPC
}

func (p *AdapterPlugin) Server(*plugin.MuxBroker) (interface{}, error) {
	return &rpcServer{Impl: p.Impl}, nil
}

func (p *AdapterPlugin) Client(b *plugin.MuxBroker, c *rpc.Client) (interface{}, error) {
	return &rpcClient{client: c}, nil
}

// CustomAdapter launches cfg.Module as a go-plugin subprocess and forwards
// Send/Reset over its net/rpc connection.
type CustomAdapter struct {
	cfg    Config
	client *plugin.Client
	rpc    CustomAdapterRPC
}

// NewCustomAdapter launches the plugin binary named by cfg.Module.
func NewCustomAdapter(cfg Config) (*CustomAdapter, error) {
	if cfg.Kind != KindCustom {
		return nil, fmt.Errorf("adapter: NewCustomAdapter requires KindCustom, got %q", cfg.Kind)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	client := plugin.NewClient(&plugin.ClientConfig{
		HandshakeConfig: handshakeConfig,
		Plugins: map[string]plugin.Plugin{
			"adapter": &AdapterPlugin{},
		},
		Cmd: exec.Command(cfg.Module),
		Logger: hclog.New(&hclog.LoggerOptions{
			Name:  "fabrik-adapter-plugin",
			Level: hclog.Warn,
		}),
		AllowedProtocols: []plugin.Protocol{plugin.ProtocolNetRPC},
	})

	rpcClient, err := client.Client()
	if err != nil {
		client.Kill()
		return nil, fmt.Errorf("adapter: connect to custom adapter plugin %s: %w", cfg.Module, err)
	}

	raw, err := rpcClient.Dispense("adapter")
	if err != nil {
		client.Kill()
		return nil, fmt.Errorf("adapter: dispense custom adapter plugin %s: %w", cfg.Module, err)
	}

	impl, ok := raw.(CustomAdapterRPC)
	if !ok {
		client.Kill()
		return nil, fmt.Errorf("adapter: plugin %s does not implement CustomAdapterRPC", cfg.Module)
	}

	return &CustomAdapter{cfg: cfg, client: client, rpc: impl}, nil
}

// Send implements Adapter by forwarding the call across the plugin
// boundary.
func (a *CustomAdapter) Send(ctx context.Context, message string, sendCtx SendContext) (AgentResponse, error) {
	var reply SendReply
	if err := a.rpc.Send(SendArgs{Message: message, SendCtx: sendCtx}, &reply); err != nil {
		return AgentResponse{}, fmt.Errorf("adapter: custom plugin send: %w", err)
	}
	return reply.Response, nil
}

// Reset implements Adapter by forwarding to the plugin's own reset logic.
func (a *CustomAdapter) Reset(ctx context.Context) error {
	return a.rpc.Reset(struct{}{}, &struct{}{})
}

// Close kills the plugin subprocess.
func (a *CustomAdapter) Close() error {
	a.client.Kill()
	return nil
}
