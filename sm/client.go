package sm

import (
	"context"

	"google.golang.org/grpc"
)

// ServiceManagerClient is the RPC surface callers depend on, so tests can
// substitute mocks.ServiceManagerClient for the dialed *Client.
type ServiceManagerClient interface {
	RegisterService(ctx context.Context, serviceName string, maxSessions int32) (*RegisterServiceResponse, error)
	UnregisterService(ctx context.Context, serviceName string) (*UnregisterServiceResponse, error)
	AtmosphereInstallMitm(ctx context.Context, serviceName string) (*AtmosphereInstallMitmResponse, error)
	AtmosphereUninstallMitm(ctx context.Context, serviceName string) (*AtmosphereUninstallMitmResponse, error)
	AtmosphereAcknowledgeMitmSession(ctx context.Context, serviceName string) (*AtmosphereAcknowledgeMitmSessionResponse, error)
	AtmosphereClearFutureMitm(ctx context.Context, serviceName string) (*AtmosphereClearFutureMitmResponse, error)
	DetachClient(ctx context.Context, processID uint64) (*DetachClientResponse, error)
}

// Client calls the sm.ServiceManager RPC surface over an already-dialed
// connection, forcing the JSON content-subtype registered in codec.go on
// every call (the server negotiates the matching codec from that
// subtype, same as it would for a protobuf one).
type Client struct {
	cc grpc.ClientConnInterface
}

var _ ServiceManagerClient = (*Client)(nil)

// NewClient wraps cc.
func NewClient(cc grpc.ClientConnInterface) *Client {
	return &Client{cc: cc}
}

func (c *Client) invoke(ctx context.Context, method string, req, resp interface{}) error {
	return c.cc.Invoke(ctx, "/"+serviceName+"/"+method, req, resp, grpc.CallContentSubtype(jsonCodecName))
}

func (c *Client) RegisterService(ctx context.Context, serviceName string, maxSessions int32) (*RegisterServiceResponse, error) {
	resp := new(RegisterServiceResponse)
	req := &RegisterServiceRequest{ServiceName: serviceName, MaxSessions: maxSessions}
	if err := c.invoke(ctx, "RegisterService", req, resp); err != nil {
		return nil, err
	}
	return resp, nil
}

func (c *Client) UnregisterService(ctx context.Context, serviceName string) (*UnregisterServiceResponse, error) {
	resp := new(UnregisterServiceResponse)
	req := &UnregisterServiceRequest{ServiceName: serviceName}
	if err := c.invoke(ctx, "UnregisterService", req, resp); err != nil {
		return nil, err
	}
	return resp, nil
}

func (c *Client) AtmosphereInstallMitm(ctx context.Context, serviceName string) (*AtmosphereInstallMitmResponse, error) {
	resp := new(AtmosphereInstallMitmResponse)
	req := &AtmosphereInstallMitmRequest{ServiceName: serviceName}
	if err := c.invoke(ctx, "AtmosphereInstallMitm", req, resp); err != nil {
		return nil, err
	}
	return resp, nil
}

func (c *Client) AtmosphereUninstallMitm(ctx context.Context, serviceName string) (*AtmosphereUninstallMitmResponse, error) {
	resp := new(AtmosphereUninstallMitmResponse)
	req := &AtmosphereUninstallMitmRequest{ServiceName: serviceName}
	if err := c.invoke(ctx, "AtmosphereUninstallMitm", req, resp); err != nil {
		return nil, err
	}
	return resp, nil
}

func (c *Client) AtmosphereAcknowledgeMitmSession(ctx context.Context, serviceName string) (*AtmosphereAcknowledgeMitmSessionResponse, error) {
	resp := new(AtmosphereAcknowledgeMitmSessionResponse)
	req := &AtmosphereAcknowledgeMitmSessionRequest{ServiceName: serviceName}
	if err := c.invoke(ctx, "AtmosphereAcknowledgeMitmSession", req, resp); err != nil {
		return nil, err
	}
	return resp, nil
}

func (c *Client) AtmosphereClearFutureMitm(ctx context.Context, serviceName string) (*AtmosphereClearFutureMitmResponse, error) {
	resp := new(AtmosphereClearFutureMitmResponse)
	req := &AtmosphereClearFutureMitmRequest{ServiceName: serviceName}
	if err := c.invoke(ctx, "AtmosphereClearFutureMitm", req, resp); err != nil {
		return nil, err
	}
	return resp, nil
}

func (c *Client) DetachClient(ctx context.Context, processID uint64) (*DetachClientResponse, error) {
	resp := new(DetachClientResponse)
	req := &DetachClientRequest{ProcessID: processID}
	if err := c.invoke(ctx, "DetachClient", req, resp); err != nil {
		return nil, err
	}
	return resp, nil
}
