package ipc

import "github.com/nestybox/horizon-ipc/result"

// SessionObject is any type that can sit at the far end of a session or
// domain member and answer dispatched commands.
type SessionObject interface {
	CommandMetadataTable() []CommandMetadata
}

// ServerObject is a SessionObject that a ServerHolder can manufacture
// fresh, once per accepted session, out of a registered service.
type ServerObject interface {
	SessionObject
	NewInstance() SessionObject
}

// MitmProcessInfo identifies the process whose session is being
// intercepted, handed to a MITM server object at construction time.
type MitmProcessInfo struct {
	ProcessID   uint64
	ProgramID   uint64
	Keygen      uint8
	Override    bool
}

// MitmServerObject is the MITM counterpart of ServerObject: construction
// takes the intercepted process's identity.
type MitmServerObject interface {
	SessionObject
	NewMitmInstance(info MitmProcessInfo) SessionObject
}

// MitmService is implemented by the static descriptor of a MITM-capable
// service: its session-object factory, and the predicate deciding whether
// a given process's session should be intercepted at all.
type MitmService interface {
	MitmServerObject
	ShouldMitm(info MitmProcessInfo) bool
}

// CommandFunc is the dispatch entry point for one command: given the
// addressed object and the in-flight request context, read inputs, do the
// work, and write outputs — or return an error, which the caller turns
// into a CMIF error response.
type CommandFunc func(obj SessionObject, ctx *ServerContext) error

// CommandMetadata declares one dispatchable command: which request id it
// answers to, the version window it is valid in (inclusive), and the
// handler. Tables are plain slices matched linearly, the direct
// generics-based analogue of the declarative (id, version, fn) tables the
// origin used trait specialization to avoid hand-rolling — Go has no
// specialization, so the metadata table itself is the dispatch mechanism.
type CommandMetadata struct {
	CommandID   uint32
	MinVersion  uint32
	MaxVersion  uint32
	Fn          CommandFunc
}

// Matches reports whether this metadata entry answers request id rqID
// under the protocol version currently negotiated (MaxVersion 0 means
// "no upper bound").
func (m CommandMetadata) Matches(rqID uint32, version uint32) bool {
	if m.CommandID != rqID {
		return false
	}
	if version < m.MinVersion {
		return false
	}
	if m.MaxVersion != 0 && version > m.MaxVersion {
		return false
	}
	return true
}

// ServerContext is the per-dispatch view a CommandFunc operates on: the
// shared CommandContext, a raw-data DataWalker positioned for POD
// parameters, the domain table (if this session is a domain), and the
// slice new sessions created while answering this command get appended
// to (mirrored into the ServerManager's holder list after dispatch
// returns).
type ServerContext struct {
	Ctx          *CommandContext
	RawData      *DataWalker
	OutData      *DataWalker
	DomainTable  *DomainTable
	NewSessions  *[]*ServerHolder
}

// ReadPOD reads the next POD value from the request's raw data region.
func ReadPOD[T Pod](sc *ServerContext) T {
	return AdvanceGet[T](sc.RawData)
}

// WritePOD writes a POD value to the response's raw data region. OutData is
// a separate, freshly seated walker from RawData (spec's in_params/out_params
// data_offset split) so a handler's reads never bleed into where its writes
// land.
func WritePOD[T Pod](sc *ServerContext, v T) {
	AdvanceSet(sc.OutData, v)
}

// ReadBuffer consumes the next attached buffer descriptor.
func ReadBuffer(sc *ServerContext) (Buffer, error) {
	return sc.Ctx.PopBuffer(sc.RawData)
}

// ReadHandle consumes the next attached in-handle.
func ReadHandle(sc *ServerContext) (Handle, error) {
	return sc.Ctx.InParams.PopHandle()
}

// WriteHandle attaches a handle to the response.
func WriteHandle(sc *ServerContext, h Handle) {
	sc.Ctx.OutParams.PushHandle(h)
}

// ReadProcessID consumes the placeholder 8-byte slot the kernel leaves in
// the raw data region ahead of a process-id request and returns the
// actual process id the kernel attached out of band. Whether that
// placeholder slot is really just padding, or carries meaning of its own,
// was never pinned down in the source this was ported from; we preserve
// the original's behavior (consume it, then return the side-channel
// value) without assuming more than the source justified. No test in this
// repository exercises this path.
func ReadProcessID(sc *ServerContext) (uint64, error) {
	if !sc.Ctx.InParams.SendProcessID {
		return 0, result.ErrUnsupportedOperation
	}
	AdvanceGet[uint64](sc.RawData)
	return sc.Ctx.InParams.ProcessID, nil
}

// WriteSessionObject shares obj into the reply: a fresh domain object id
// if the caller's session is already a domain, or a brand-new kernel
// session (recorded in sc.NewSessions so the ServerManager picks it up
// after this dispatch returns) otherwise.
func WriteSessionObject(sc *ServerContext, obj SessionObject, createSession func() (server Handle, client Handle, err error)) (Handle, error) {
	if sc.Ctx.ObjectInfo.IsDomain() {
		if sc.DomainTable == nil {
			return InvalidHandle, result.ErrDomainNotFound
		}
		id, err := sc.DomainTable.AllocateID()
		if err != nil {
			return InvalidHandle, err
		}
		sc.DomainTable.domains = append(sc.DomainTable.domains, NewDomainSessionHolder(0, id, obj))
		sc.Ctx.OutParams.PushDomainObject(id)
		return InvalidHandle, nil
	}

	serverHandle, clientHandle, err := createSession()
	if err != nil {
		return InvalidHandle, err
	}
	holder := NewSessionHolder(serverHandle, obj)
	*sc.NewSessions = append(*sc.NewSessions, holder)
	sc.Ctx.OutParams.PushHandle(clientHandle)
	return clientHandle, nil
}
