package ipc

import "github.com/nestybox/horizon-ipc/result"

// WaitHandleType distinguishes a listening server port (accept only) from
// an already-established session (request/control/close dispatch).
type WaitHandleType uint8

const (
	WaitHandleTypeServer WaitHandleType = iota
	WaitHandleTypeSession
)

// NewServerFn manufactures a fresh session object for a newly accepted
// connection to a registered service.
type NewServerFn func() SessionObject

// NewMitmServerFn is NewServerFn's MITM counterpart: construction also
// needs the intercepted process's identity.
type NewMitmServerFn func(info MitmProcessInfo) SessionObject

// ServerHolder is one entry in the ServerManager's wait set: either a
// listening server port waiting to accept, or a live session dispatching
// commands to a bound SessionObject. MITM holders additionally carry the
// forwarding session's ObjectInfo so an unimplemented command can be
// replayed upstream byte-for-byte.
type ServerHolder struct {
	Server SessionObject
	Info   ObjectInfo

	newServerFn     NewServerFn
	newMitmServerFn NewMitmServerFn

	HandleType WaitHandleType

	MitmForwardInfo ObjectInfo
	IsMitmService   bool
	ServiceName     string

	DomainTable *DomainTable
}

// NewSessionHolder wraps an already-constructed session object bound to
// an established session handle.
func NewSessionHolder(handle Handle, obj SessionObject) *ServerHolder {
	return &ServerHolder{
		Server:     obj,
		Info:       ObjectInfoFromHandle(handle),
		HandleType: WaitHandleTypeSession,
	}
}

// NewDomainSessionHolder wraps a session object bound to a domain member
// rather than a plain handle.
func NewDomainSessionHolder(handle Handle, id DomainObjectID, obj SessionObject) *ServerHolder {
	return &ServerHolder{
		Server:     obj,
		Info:       ObjectInfoFromDomainObjectID(handle, id),
		HandleType: WaitHandleTypeSession,
	}
}

// NewServerHolder registers a listening port that manufactures fresh
// instances of S for each accepted session.
func NewServerHolder(handle Handle, serviceName string, newFn NewServerFn) *ServerHolder {
	return &ServerHolder{
		Info:        ObjectInfoFromHandle(handle),
		newServerFn: newFn,
		HandleType:  WaitHandleTypeServer,
		ServiceName: serviceName,
	}
}

// NewMitmServerHolder registers a listening port whose accepted sessions
// are intercepted: each gets a fresh instance plus the forwarding session
// to the real implementation.
func NewMitmServerHolder(handle Handle, serviceName string, newFn NewMitmServerFn) *ServerHolder {
	return &ServerHolder{
		Info:            ObjectInfoFromHandle(handle),
		newMitmServerFn: newFn,
		HandleType:      WaitHandleTypeServer,
		IsMitmService:   true,
		ServiceName:     serviceName,
	}
}

// MakeNewSession accepts a connection to a plain registered server,
// manufacturing its session object from the holder's NewServerFn.
func (h *ServerHolder) MakeNewSession(handle Handle) (*ServerHolder, error) {
	if h.newServerFn == nil {
		return nil, result.ErrSessionClosed
	}
	return &ServerHolder{
		Server:      h.newServerFn(),
		Info:        ObjectInfoFromHandle(handle),
		newServerFn: h.newServerFn,
		HandleType:  WaitHandleTypeSession,
		IsMitmService: h.IsMitmService,
	}, nil
}

// MakeNewMitmSession accepts a connection to a MITM-registered server,
// manufacturing the interceptor's session object and recording the
// forwarding handle to the real upstream session.
func (h *ServerHolder) MakeNewMitmSession(handle Handle, forwardHandle Handle, info MitmProcessInfo) (*ServerHolder, error) {
	if h.newMitmServerFn == nil {
		return nil, result.ErrSessionClosed
	}
	return &ServerHolder{
		Server:          h.newMitmServerFn(info),
		Info:            ObjectInfoFromHandle(handle),
		newMitmServerFn: h.newMitmServerFn,
		HandleType:      WaitHandleTypeSession,
		MitmForwardInfo: ObjectInfoFromHandle(forwardHandle),
		IsMitmService:   h.IsMitmService,
	}, nil
}

// CloneSelf produces a second holder over the same session object bound
// to a freshly created server handle, used by clone_current_object.
func (h *ServerHolder) CloneSelf(handle Handle, forwardHandle Handle) *ServerHolder {
	info := h.Info
	info.Handle = handle
	fwd := h.MitmForwardInfo
	fwd.Handle = forwardHandle
	return &ServerHolder{
		Server:          h.Server,
		Info:            info,
		newServerFn:     h.newServerFn,
		newMitmServerFn: h.newMitmServerFn,
		HandleType:      WaitHandleTypeSession,
		MitmForwardInfo: fwd,
		IsMitmService:   forwardHandle != InvalidHandle,
		DomainTable:     h.DomainTable,
	}
}

// ConvertToDomain turns this session into the base object of a brand new
// domain, allocating its own domain table. For a MITM session, the
// forwarded session is converted in lockstep and its allocated id reused,
// so addressing stays consistent across both sides of the interception.
func (h *ServerHolder) ConvertToDomain(forwardConvert func() (DomainObjectID, error)) (DomainObjectID, error) {
	if h.Info.IsDomain() {
		return 0, result.ErrAlreadyDomain
	}

	table := NewDomainTable()
	h.DomainTable = table

	var id DomainObjectID
	var err error
	if h.IsMitmService && forwardConvert != nil {
		forwardID, ferr := forwardConvert()
		if ferr != nil {
			return 0, ferr
		}
		h.MitmForwardInfo.DomainObjectID = forwardID
		id, err = table.AllocateSpecificID(forwardID)
	} else {
		id, err = table.AllocateID()
	}
	if err != nil {
		return 0, err
	}

	h.Info.DomainObjectID = id
	return id, nil
}

// Close unregisters this holder's service name (if it owns one), then
// releases its kernel handle (if it owns one) and its forwarding handle (if
// any). Matching the source's own destructor discipline, Close errors are
// logged by the caller rather than panicking across a language boundary —
// see ServerManager.removeHolder.
//
// Only the listening-port holder (NewServerHolder/NewMitmServerHolder)
// carries a non-empty ServiceName; accepted and cloned session holders
// never do, so unregister is a no-op for them, matching the original's
// close() where session holders are always constructed with an empty
// service name.
func (h *ServerHolder) Close(closeHandle func(Handle) error, unregister func(name string, isMitm bool) error) error {
	if h.ServiceName != "" && unregister != nil {
		if err := unregister(h.ServiceName, h.IsMitmService); err != nil {
			return err
		}
	}
	if h.Info.OwnsHandle && h.Info.Handle != InvalidHandle {
		if err := closeHandle(h.Info.Handle); err != nil {
			return err
		}
	}
	if h.MitmForwardInfo.Handle != InvalidHandle {
		return closeHandle(h.MitmForwardInfo.Handle)
	}
	return nil
}
