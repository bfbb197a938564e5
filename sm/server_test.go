package sm

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	"github.com/nestybox/horizon-ipc/kernel"
)

// dialServer spins up an sm.Server over a loopback listener and returns a
// Client dialed against it, cleaning both up on test completion.
func dialServer(t *testing.T, sys kernel.Syscalls) *Client {
	t.Helper()

	lis, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	gs := grpc.NewServer()
	RegisterServer(gs, NewServer(sys, NewRegistry(), nil))
	go gs.Serve(lis)
	t.Cleanup(gs.Stop)

	cc, err := grpc.NewClient(lis.Addr().String(), grpc.WithTransportCredentials(insecure.NewCredentials()))
	require.NoError(t, err)
	t.Cleanup(func() { cc.Close() })

	return NewClient(cc)
}

func TestServerRegisterAndInstallMitm(t *testing.T) {
	sys := kernel.NewLocal()
	client := dialServer(t, sys)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	regResp, err := client.RegisterService(ctx, "nn.hosbinder", 4)
	require.NoError(t, err)
	assert.NotZero(t, regResp.PortHandle)

	mitmResp, err := client.AtmosphereInstallMitm(ctx, "nn.hosbinder")
	require.NoError(t, err)
	assert.Equal(t, regResp.PortHandle, mitmResp.PortHandle)
	assert.NotZero(t, mitmResp.QueryHandle)

	ackResp, err := client.AtmosphereAcknowledgeMitmSession(ctx, "nn.hosbinder")
	require.NoError(t, err)
	assert.False(t, ackResp.Found, "no pending attribution has been set yet")

	_, err = client.AtmosphereUninstallMitm(ctx, "nn.hosbinder")
	require.NoError(t, err)

	_, err = client.UnregisterService(ctx, "nn.hosbinder")
	require.NoError(t, err)
}

func TestServerRegisterDuplicateFails(t *testing.T) {
	sys := kernel.NewLocal()
	client := dialServer(t, sys)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	_, err := client.RegisterService(ctx, "nn.hosbinder", 4)
	require.NoError(t, err)

	_, err = client.RegisterService(ctx, "nn.hosbinder", 4)
	assert.Error(t, err)
}
