package ipc

import (
	"context"
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nestybox/horizon-ipc/kernel"
	"github.com/nestybox/horizon-ipc/result"
)

const echoCommandID uint32 = 10

// echoService is a minimal SessionObject used to exercise ServerManager's
// accept/dispatch path end to end: it doubles whatever uint32 it's sent.
type echoService struct{}

func (e *echoService) CommandMetadataTable() []CommandMetadata {
	return []CommandMetadata{
		{CommandID: echoCommandID, Fn: echoCommandFn},
	}
}

func echoCommandFn(obj SessionObject, sc *ServerContext) error {
	v := ReadPOD[uint32](sc)
	WritePOD(sc, v*2)
	return nil
}

// TestServerManagerRequestDispatch exercises spec.md §8 property 1 (one
// request in, one matching response out) over a real accept+dispatch
// cycle driven by kernel.Local.
func TestServerManagerRequestDispatch(t *testing.T) {
	sys := kernel.NewLocal()
	port, err := sys.ManageNamedPort("ipc-echo-test", 4)
	require.NoError(t, err)

	mgr := NewServerManager(sys, 0, nil)
	require.NoError(t, mgr.RegisterServer(port, "ipc-echo-test", func() SessionObject { return &echoService{} }))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	errCh := make(chan error, 1)
	go func() {
		// One Process call accepts the session, a second dispatches the
		// request that arrives on it.
		if err := mgr.Process(ctx); err != nil {
			errCh <- err
			return
		}
		errCh <- mgr.Process(ctx)
	}()

	client, err := sys.ConnectToNamedPort("ipc-echo-test")
	require.NoError(t, err)

	data := make([]byte, 4)
	binary.LittleEndian.PutUint32(data, 21)
	req := WriteRequestHeader(CommandTypeRequest, 1, echoCommandID, data)

	buf := sys.MessageBuffer(client)
	copy(buf[:], req)
	require.NoError(t, sys.SendSyncRequest(client))

	_, respData, err := ReadResponseHeader(buf[:])
	require.NoError(t, err)
	assert.Equal(t, uint32(42), binary.LittleEndian.Uint32(respData[:4]))

	require.NoError(t, <-errCh)
}

// TestServerManagerEnforcesMaxObjectCount exercises spec.md §4.8's bounded
// capacity: the holder list must never grow past maxObjectCount, and an
// attempt to do so is reported as an error rather than silently dropped.
func TestServerManagerEnforcesMaxObjectCount(t *testing.T) {
	sys := kernel.NewLocal()
	mgr := NewServerManager(sys, 0, nil)

	for i := 0; i < maxObjectCount; i++ {
		require.NoError(t, mgr.RegisterSession(InvalidHandle, &fakeSessionObject{}))
	}
	assert.Len(t, mgr.holders, maxObjectCount)

	err := mgr.RegisterSession(InvalidHandle, &fakeSessionObject{})
	assert.ErrorIs(t, err, result.ErrTooManyObjects)
	assert.Len(t, mgr.holders, maxObjectCount)
}

// TestCommandMetadataMatchesVersionWindow exercises spec.md §4.5: entries
// whose MinVersion/MaxVersion window excludes the negotiated version are
// invisible to dispatch, even if the command id matches.
func TestCommandMetadataMatchesVersionWindow(t *testing.T) {
	m := CommandMetadata{CommandID: 5, MinVersion: 2, MaxVersion: 4}

	assert.True(t, m.Matches(5, 2))
	assert.True(t, m.Matches(5, 4))
	assert.False(t, m.Matches(5, 1), "below MinVersion must not match")
	assert.False(t, m.Matches(5, 5), "above MaxVersion must not match")
	assert.False(t, m.Matches(6, 2), "command id must still match")

	unbounded := CommandMetadata{CommandID: 5, MinVersion: 0, MaxVersion: 0}
	assert.True(t, unbounded.Matches(5, 9999), "MaxVersion 0 means no upper bound")
}

// fakeUnregistrar records the names it's asked to retire, letting a test
// assert a holder's Close actually unregisters its service.
type fakeUnregistrar struct {
	unregistered []string
	mitmUninstalled []string
}

func (f *fakeUnregistrar) UnregisterService(name string) error {
	f.unregistered = append(f.unregistered, name)
	return nil
}

func (f *fakeUnregistrar) AtmosphereUninstallMitm(name string) error {
	f.mitmUninstalled = append(f.mitmUninstalled, name)
	return nil
}

// TestServerHolderCloseUnregistersServiceName exercises spec.md §3's
// destruction-unregisters-the-service-name guarantee: only a holder that
// actually owns a service name (the listening-port holder, never an
// accepted/cloned session) retires it on Close.
func TestServerHolderCloseUnregistersServiceName(t *testing.T) {
	fu := &fakeUnregistrar{}
	noop := func(Handle) error { return nil }

	portHolder := NewServerHolder(InvalidHandle, "nn.test-service", func() SessionObject { return nil })
	require.NoError(t, portHolder.Close(noop, func(name string, isMitm bool) error {
		if isMitm {
			return fu.AtmosphereUninstallMitm(name)
		}
		return fu.UnregisterService(name)
	}))
	assert.Equal(t, []string{"nn.test-service"}, fu.unregistered)

	fu2 := &fakeUnregistrar{}
	sessionHolder := NewSessionHolder(InvalidHandle, &fakeSessionObject{})
	require.NoError(t, sessionHolder.Close(noop, func(name string, isMitm bool) error {
		if isMitm {
			return fu2.AtmosphereUninstallMitm(name)
		}
		return fu2.UnregisterService(name)
	}))
	assert.Empty(t, fu2.unregistered, "accepted session holders never carry a service name")
}

// TestHandleRequestCommandDomainCloseOnOwningObjectIsProtocolError exercises
// spec.md §9(c): a domain Close command addressed at the domain's owning
// (base) object is a protocol error, not a silent teardown-and-succeed.
func TestHandleRequestCommandDomainCloseOnOwningObjectIsProtocolError(t *testing.T) {
	sys := kernel.NewLocal()
	mgr := NewServerManager(sys, 0, nil)

	holder := NewSessionHolder(InvalidHandle, &fakeSessionObject{})
	id, err := holder.ConvertToDomain(nil)
	require.NoError(t, err)

	ctx := &CommandContext{ObjectInfo: ObjectInfoFromDomainObjectID(InvalidHandle, id)}
	ctx.ObjectInfo.OwnsHandle = true

	pr := parsedRequest{DomainCommandType: DomainCommandTypeClose, ObjectID: id}
	_, err = mgr.handleRequestCommand(ctx, holder, pr, nil)
	assert.ErrorIs(t, err, result.ErrInvalidDomainCommandType)

	// A non-owning domain member's Close still succeeds and deallocates.
	memberID, err := holder.DomainTable.AllocateID()
	require.NoError(t, err)
	holder.DomainTable.domains = append(holder.DomainTable.domains, NewDomainSessionHolder(0, memberID, &fakeSessionObject{}))
	memberCtx := &CommandContext{ObjectInfo: ObjectInfoFromDomainObjectID(InvalidHandle, memberID)}
	pr.ObjectID = memberID
	resp, err := mgr.handleRequestCommand(memberCtx, holder, pr, nil)
	require.NoError(t, err)
	assert.NotEmpty(t, resp)
	_, err = holder.DomainTable.FindDomain(memberID)
	assert.Error(t, err, "Close on a domain member deallocates it")
}

// emptyMitmObject answers no commands of its own, so every request a
// MITM holder dispatches to it falls through to forwarding.
type emptyMitmObject struct{}

func (emptyMitmObject) CommandMetadataTable() []CommandMetadata { return nil }

// TestServerManagerMitmForwardsUnmatchedCommand exercises spec.md §8's
// MITM forwarding property: a session with no matching command handler
// replays the request byte-for-byte on the upstream forward session and
// returns whatever it answers, untouched.
func TestServerManagerMitmForwardsUnmatchedCommand(t *testing.T) {
	sys := kernel.NewLocal()

	upstreamPort, err := sys.ManageNamedPort("ipc-mitm-upstream-test", 4)
	require.NoError(t, err)
	upstreamMgr := NewServerManager(sys, 0, nil)
	require.NoError(t, upstreamMgr.RegisterServer(upstreamPort, "ipc-mitm-upstream-test", func() SessionObject { return &echoService{} }))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() {
		for {
			if err := upstreamMgr.Process(ctx); err != nil {
				return
			}
		}
	}()

	forwardHandle, err := sys.ConnectToNamedPort("ipc-mitm-upstream-test")
	require.NoError(t, err)

	sessionServerHandle, sessionClientHandle, err := sys.CreateSession(false)
	require.NoError(t, err)

	mitmHolder := NewMitmServerHolder(InvalidHandle, "ipc-mitm-test", func(info MitmProcessInfo) SessionObject {
		return emptyMitmObject{}
	})
	sessionHolder, err := mitmHolder.MakeNewMitmSession(sessionServerHandle, forwardHandle, MitmProcessInfo{})
	require.NoError(t, err)

	mgr := NewServerManager(sys, 0, nil)
	mgr.holders = append(mgr.holders, sessionHolder)

	errCh := make(chan error, 1)
	go func() { errCh <- mgr.Process(ctx) }()

	data := make([]byte, 4)
	binary.LittleEndian.PutUint32(data, 30)
	req := WriteRequestHeader(CommandTypeRequest, 1, echoCommandID, data)

	buf := sys.MessageBuffer(sessionClientHandle)
	copy(buf[:], req)
	require.NoError(t, sys.SendSyncRequest(sessionClientHandle))

	_, respData, err := ReadResponseHeader(buf[:])
	require.NoError(t, err)
	assert.Equal(t, uint32(60), binary.LittleEndian.Uint32(respData[:4]))

	require.NoError(t, <-errCh)
}
