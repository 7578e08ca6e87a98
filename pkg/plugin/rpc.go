package plugin

import (
	"context"
	"fmt"
	"net/rpc"

	goplugin "github.com/hashicorp/go-plugin"
)

// RPCPlugin is the go-plugin implementation using net/rpc. Publisher
// payloads are plain structs, so the default gob codec carries them
// without generated stubs.
type RPCPlugin struct {
	// Impl is the concrete publisher, set on the plugin side.
	Impl Publisher
}

// Server returns the RPC server for this plugin.
func (p *RPCPlugin) Server(_ *goplugin.MuxBroker) (any, error) {
	return &rpcServer{impl: p.Impl}, nil
}

// Client returns the RPC client for this plugin.
func (p *RPCPlugin) Client(_ *goplugin.MuxBroker, c *rpc.Client) (any, error) {
	return &rpcClient{client: c}, nil
}

// rpcServer runs inside the plugin process.
type rpcServer struct {
	impl Publisher
}

// GetInfoArgs is the empty argument struct for GetInfo.
type GetInfoArgs struct{}

func (s *rpcServer) GetInfo(_ GetInfoArgs, reply *Info) error {
	*reply = s.impl.GetInfo()
	return nil
}

func (s *rpcServer) Publish(req PublishRequest, reply *PublishResponse) error {
	resp, err := s.impl.Publish(context.Background(), req)
	if err != nil {
		*reply = PublishResponse{Error: err.Error()}
		return nil
	}
	if resp == nil {
		*reply = PublishResponse{Error: "publisher returned no response"}
		return nil
	}
	*reply = *resp
	return nil
}

// ValidateArgs carries the configuration to validate.
type ValidateArgs struct {
	Config map[string]any
}

func (s *rpcServer) Validate(args ValidateArgs, reply *ValidateResponse) error {
	resp, err := s.impl.Validate(context.Background(), args.Config)
	if err != nil {
		return err
	}
	if resp == nil {
		resp = &ValidateResponse{Valid: true}
	}
	*reply = *resp
	return nil
}

// rpcClient runs inside the host process and satisfies Publisher.
type rpcClient struct {
	client *rpc.Client
}

var _ Publisher = (*rpcClient)(nil)

func (c *rpcClient) GetInfo() Info {
	var info Info
	if err := c.client.Call("Plugin.GetInfo", GetInfoArgs{}, &info); err != nil {
		return Info{}
	}
	return info
}

// Publish forwards the request to the plugin process. The context bounds
// the wait only; the remote call itself cannot be interrupted, so a
// context expiry means the publish outcome is unknown.
func (c *rpcClient) Publish(ctx context.Context, req PublishRequest) (*PublishResponse, error) {
	var resp PublishResponse
	call := c.client.Go("Plugin.Publish", req, &resp, make(chan *rpc.Call, 1))

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case done := <-call.Done:
		if done.Error != nil {
			return nil, done.Error
		}
	}

	if resp.Error != "" {
		return &resp, fmt.Errorf("publish failed: %s", resp.Error)
	}
	return &resp, nil
}

func (c *rpcClient) Validate(ctx context.Context, config map[string]any) (*ValidateResponse, error) {
	var resp ValidateResponse
	call := c.client.Go("Plugin.Validate", ValidateArgs{Config: config}, &resp, make(chan *rpc.Call, 1))

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case done := <-call.Done:
		if done.Error != nil {
			return nil, done.Error
		}
	}
	return &resp, nil
}
