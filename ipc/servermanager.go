package ipc

import (
	"context"
	"errors"

	"github.com/sirupsen/logrus"

	"github.com/nestybox/horizon-ipc/kernel"
	"github.com/nestybox/horizon-ipc/result"
)

// Metrics is the observability hook ServerManager reports holder-count and
// MITM-forward activity to. Optional: a nil Metrics is simply never
// called. diag.Metrics satisfies this by structural typing, so ipc never
// needs to import diag.
type Metrics interface {
	SetHolderCount(n int)
	IncMitmForward()
}

// ServiceUnregistrar is the service-manager hook a holder's service name is
// retired through on teardown. Optional: a nil Unregistrar simply leaves
// registered names in place. sm.Client's real calls take a context and
// return (*Resp, error); callers wire a small adapter around it rather than
// satisfying this directly, same structural-typing story as Metrics.
type ServiceUnregistrar interface {
	UnregisterService(name string) error
	AtmosphereUninstallMitm(name string) error
}

// maxObjectCount bounds how many live holders (listening ports plus
// accepted/cloned sessions) a ServerManager tracks at once, per spec.md
// §4.8. Accepts beyond the cap are reported as an error, not dropped
// silently.
const maxObjectCount = 64

// ServerManager is the wait-multiplexer at the core of the runtime: it
// owns every registered server port and live session, waits on their
// kernel handles as a set, and dispatches whichever one wakes up to the
// right command table.
type ServerManager struct {
	sys            kernel.Syscalls
	holders        []*ServerHolder
	pointerBufSize int
	log            *logrus.Entry

	// Metrics, if set, is notified of holder-count changes and MITM
	// forwards. See SetMetrics.
	Metrics Metrics

	// Unregistrar, if set, retires a holder's service-manager registration
	// when it's closed. See SetUnregistrar.
	Unregistrar ServiceUnregistrar
}

// NewServerManager builds an empty manager driven by sys. pointerBufSize
// is the value query_pointer_buffer_size reports to every session; the
// manager allocates no pointer buffer and publishes none to the kernel
// before a receive.
func NewServerManager(sys kernel.Syscalls, pointerBufSize int, log *logrus.Entry) *ServerManager {
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	return &ServerManager{sys: sys, pointerBufSize: pointerBufSize, log: log}
}

// SetMetrics attaches an observability hook; pass nil to detach.
func (m *ServerManager) SetMetrics(metrics Metrics) {
	m.Metrics = metrics
}

// SetUnregistrar attaches the service-manager teardown hook; pass nil to
// detach.
func (m *ServerManager) SetUnregistrar(unregistrar ServiceUnregistrar) {
	m.Unregistrar = unregistrar
}

func (m *ServerManager) reportHolderCount() {
	if m.Metrics != nil {
		m.Metrics.SetHolderCount(len(m.holders))
	}
}

// appendHolder adds h to the holder list, enforcing maxObjectCount (spec.md
// §4.8). Every accept/register/clone path funnels through here instead of
// appending to m.holders directly.
func (m *ServerManager) appendHolder(h *ServerHolder) error {
	if len(m.holders) >= maxObjectCount {
		return result.ErrTooManyObjects
	}
	m.holders = append(m.holders, h)
	m.reportHolderCount()
	return nil
}

// RegisterServer registers a listening port that manufactures newFn()
// for each accepted session.
func (m *ServerManager) RegisterServer(handle Handle, serviceName string, newFn NewServerFn) error {
	return m.appendHolder(NewServerHolder(handle, serviceName, newFn))
}

// RegisterMitmServer registers a listening port whose accepted sessions
// are intercepted.
func (m *ServerManager) RegisterMitmServer(handle Handle, serviceName string, newFn NewMitmServerFn) error {
	return m.appendHolder(NewMitmServerHolder(handle, serviceName, newFn))
}

// RegisterSession registers an already-constructed session object bound
// to an already-connected session handle (not a listening port).
func (m *ServerManager) RegisterSession(handle Handle, obj SessionObject) error {
	return m.appendHolder(NewSessionHolder(handle, obj))
}

// prepareWaitHandles collects every holder's live kernel handle.
func (m *ServerManager) prepareWaitHandles() []Handle {
	handles := make([]Handle, 0, len(m.holders))
	for _, h := range m.holders {
		if h.Info.Handle != InvalidHandle {
			handles = append(handles, h.Info.Handle)
		}
	}
	return handles
}

func (m *ServerManager) findHolder(handle Handle) (*ServerHolder, int) {
	for i, h := range m.holders {
		if h.Info.Handle == handle {
			return h, i
		}
	}
	return nil, -1
}

// handleRequestCommand dispatches one Request/RequestWithContext command
// against the holder addressed by ctx.ObjectInfo, per spec.md §4.6: plain
// sessions dispatch against their bound object directly; domain sessions
// resolve ctx.ObjectInfo.DomainObjectID through the domain table first.
// An unimplemented command on a MITM holder is replayed byte-for-byte to
// the forward session instead of failing outright.
func (m *ServerManager) handleRequestCommand(ctx *CommandContext, holder *ServerHolder, pr parsedRequest, ipcBufBackup []byte) ([]byte, error) {
	isDomain := ctx.ObjectInfo.IsDomain()

	switch pr.DomainCommandType {
	case DomainCommandTypeInvalid:
		if isDomain {
			return nil, result.ErrInvalidDomainCommandType
		}
	case DomainCommandTypeClose:
		if ctx.ObjectInfo.OwnsHandle {
			// Closing the domain's owning/base object through a domain
			// Close command is a protocol error, not a teardown request:
			// the base object is torn down by closing the session itself.
			return nil, result.ErrInvalidDomainCommandType
		}
		if holder.DomainTable != nil {
			holder.DomainTable.DeallocateDomain(ctx.ObjectInfo.DomainObjectID)
		}
		return WriteCloseResponse(), nil
	case DomainCommandTypeSendMessage:
		// fall through to dispatch below
	}

	var target SessionObject
	if isDomain {
		if ctx.ObjectInfo.OwnsHandle {
			target = holder.Server
		} else if holder.DomainTable != nil {
			var err error
			target, err = holder.DomainTable.FindDomain(ctx.ObjectInfo.DomainObjectID)
			if err != nil {
				return nil, err
			}
		} else {
			return nil, result.ErrDomainNotFound
		}
	} else {
		target = holder.Server
	}
	if target == nil {
		return nil, result.ErrSignaledServerNotFound
	}

	var newSessions []*ServerHolder
	commandFound := false
	var dispatchErr error
	// rawData walks the request's raw data region (read-only); outData is
	// a separate, freshly seated walker over its own buffer so a handler's
	// WritePOD calls always land at the start of the response body,
	// regardless of how far reading inputs advanced rawData.
	rawData := NewDataWalker(pr.Data)
	outBuf := make([]byte, len(pr.Data))
	outData := NewDataWalker(outBuf)
	for _, cmd := range target.CommandMetadataTable() {
		if !cmd.Matches(pr.CommandID, pr.Version) {
			continue
		}
		commandFound = true
		sc := &ServerContext{
			Ctx:         ctx,
			RawData:     rawData,
			OutData:     outData,
			DomainTable: holder.DomainTable,
			NewSessions: &newSessions,
		}
		dispatchErr = cmd.Fn(target, sc)
		break
	}

	if !commandFound {
		if holder.IsMitmService {
			return m.forwardToUpstream(holder, ipcBufBackup)
		}
		return nil, result.ErrInvalidCommandRequestId
	}

	for _, s := range newSessions {
		if err := m.appendHolder(s); err != nil {
			return nil, err
		}
	}

	if dispatchErr != nil {
		if holder.IsMitmService && errors.Is(dispatchErr, result.ErrShouldForwardToSession) {
			return m.forwardToUpstream(holder, ipcBufBackup)
		}
		return nil, dispatchErr
	}
	return WriteResponseHeader(result.Result{}, outBuf[:outData.Size()]), nil
}

// forwardToUpstream replays the original request verbatim on the MITM
// holder's forward session and returns whatever it answers.
func (m *ServerManager) forwardToUpstream(holder *ServerHolder, ipcBufBackup []byte) ([]byte, error) {
	if holder.MitmForwardInfo.Handle == InvalidHandle {
		return nil, result.ErrSignaledServerNotFound
	}
	if m.Metrics != nil {
		m.Metrics.IncMitmForward()
	}
	buf := m.sys.MessageBuffer(holder.MitmForwardInfo.Handle)
	copy(buf[:], ipcBufBackup)
	if err := m.sys.SendSyncRequest(holder.MitmForwardInfo.Handle); err != nil {
		return nil, err
	}
	out := make([]byte, len(buf))
	copy(out, buf[:])
	return out, nil
}

// handleControlCommand dispatches a Control/ControlWithContext command
// against a transient HipcManager. CMIF-only, per spec.md §4.6.
func (m *ServerManager) handleControlCommand(ctx *CommandContext, holder *ServerHolder, pr parsedRequest) ([]byte, error) {
	if !ctx.ObjectInfo.UsesCmifProtocol() {
		return nil, result.ErrInvalidProtocol
	}

	manager := NewHipcManager(holder, m.pointerBufSize,
		func() (Handle, Handle, error) { return m.sys.CreateSession(false) },
		nil,
	)

	commandFound := false
	var dispatchErr error
	rawData := NewDataWalker(pr.Data)
	outBuf := make([]byte, len(pr.Data))
	outData := NewDataWalker(outBuf)
	for _, cmd := range manager.CommandMetadataTable() {
		if !cmd.Matches(pr.CommandID, pr.Version) {
			continue
		}
		commandFound = true
		var unused []*ServerHolder
		sc := &ServerContext{
			Ctx:         ctx,
			RawData:     rawData,
			OutData:     outData,
			NewSessions: &unused,
		}
		dispatchErr = cmd.Fn(manager, sc)
		break
	}

	if !commandFound {
		return nil, result.ErrInvalidCommandRequestId
	}
	if manager.HasClonedObject() {
		if err := m.appendHolder(manager.ClonedHolder()); err != nil {
			return nil, err
		}
	}
	if dispatchErr != nil {
		return nil, dispatchErr
	}
	return WriteResponseHeader(result.Result{}, outBuf[:outData.Size()]), nil
}

// processSignaledHandle is one iteration of the wait loop's body: a
// handle woke up, figure out whether it's a listening port (accept) or a
// live session (dispatch one command), and react.
func (m *ServerManager) processSignaledHandle(ctx context.Context, handle Handle) error {
	holder, index := m.findHolder(handle)
	if holder == nil {
		return result.ErrSignaledServerNotFound
	}

	switch holder.HandleType {
	case WaitHandleTypeServer:
		newHandle, err := m.sys.AcceptSession(handle)
		if err != nil {
			return err
		}
		if holder.IsMitmService {
			// A real deployment resolves the forwarding session and the
			// intercepted process's identity through the sm client here;
			// a bare ServerManager has no sm.Client wired in, so it
			// accepts the session without forwarding.
			newHolder, err := holder.MakeNewMitmSession(newHandle, InvalidHandle, MitmProcessInfo{})
			if err != nil {
				return err
			}
			if err := m.appendHolder(newHolder); err != nil {
				return err
			}
		} else {
			newHolder, err := holder.MakeNewSession(newHandle)
			if err != nil {
				return err
			}
			if err := m.appendHolder(newHolder); err != nil {
				return err
			}
		}
		return nil

	case WaitHandleTypeSession:
		signaled, err := m.sys.ReplyAndReceive(ctx, []Handle{handle}, InvalidHandle)
		if err != nil {
			if errors.Is(err, result.ErrSessionClosed) {
				m.removeHolder(index)
				return nil
			}
			return err
		}
		_ = signaled

		buf := m.sys.MessageBuffer(handle)
		ipcBufBackup := append([]byte{}, buf[:]...)

		pr, err := ReadRequestHeader(buf[:], holder.Info.IsDomain())
		if err != nil {
			return err
		}

		objInfo := holder.Info
		if holder.Info.IsDomain() {
			objInfo.DomainObjectID = pr.ObjectID
			objInfo.OwnsHandle = holder.Info.DomainObjectID == pr.ObjectID
		}
		reqCtx := &CommandContext{ObjectInfo: objInfo, PointerBuffer: nil}

		var response []byte
		switch pr.CommandType {
		case CommandTypeRequest, CommandTypeRequestWithContext, CommandTypeLegacyRequest:
			response, err = m.handleRequestCommand(reqCtx, holder, pr, ipcBufBackup)
		case CommandTypeControl, CommandTypeControlWithContext, CommandTypeLegacyControl:
			response, err = m.handleControlCommand(reqCtx, holder, pr)
		case CommandTypeClose:
			response = WriteCloseResponse()
			m.removeHolder(index)
		default:
			return result.ErrInvalidCommandType
		}

		if err != nil {
			var rc result.Result
			if !errors.As(err, &rc) {
				rc = result.ErrNotImplemented
			}
			response = WriteResponseHeader(rc, nil)
			m.log.WithError(err).Debug("dispatch returned an error; replying with a CMIF error response")
		}

		copy(buf[:], response)

		_, err = m.sys.ReplyAndReceive(ctx, []Handle{handle}, handle)
		if err != nil && !errors.Is(err, result.ErrTimedOut) && !errors.Is(err, result.ErrSessionClosed) {
			return err
		}
		return nil
	}

	return nil
}

func (m *ServerManager) removeHolder(index int) {
	if index < 0 || index >= len(m.holders) {
		return
	}
	holder := m.holders[index]
	if err := holder.Close(m.sys.CloseHandle, m.unregisterService); err != nil {
		m.log.WithError(err).Warn("error closing server holder; continuing")
	}
	m.holders = append(m.holders[:index], m.holders[index+1:]...)
	m.reportHolderCount()
}

// unregisterService retires name through m.Unregistrar, if one is set.
func (m *ServerManager) unregisterService(name string, isMitm bool) error {
	if m.Unregistrar == nil {
		return nil
	}
	if isMitm {
		return m.Unregistrar.AtmosphereUninstallMitm(name)
	}
	return m.Unregistrar.UnregisterService(name)
}

// Process runs one iteration: wait for any registered handle to be
// signaled, then react to it.
func (m *ServerManager) Process(ctx context.Context) error {
	handles := m.prepareWaitHandles()
	signaled, err := m.sys.ReplyAndReceive(ctx, handles, InvalidHandle)
	if err != nil {
		return err
	}
	return m.processSignaledHandle(ctx, signaled)
}

// LoopProcess runs Process until ctx is cancelled or a non-Cancelled
// error surfaces.
func (m *ServerManager) LoopProcess(ctx context.Context) error {
	for {
		if err := m.Process(ctx); err != nil {
			if errors.Is(err, result.ErrCancelled) || errors.Is(ctx.Err(), context.Canceled) {
				return nil
			}
			return err
		}
	}
}
