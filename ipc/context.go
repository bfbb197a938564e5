package ipc

import "github.com/nestybox/horizon-ipc/result"

// BufferMode records how a buffer descriptor was attached (A/B/W/C/X in
// CMIF terms, collapsed here to the in/out + pointer-vs-mapped distinction
// that actually changes behavior above the kernel boundary).
type BufferMode uint8

const (
	BufferModeIn BufferMode = iota
	BufferModeOut
)

// Buffer is a descriptor for one mapped or pointer buffer attached to a
// request or response.
type Buffer struct {
	Mode BufferMode
	Data []byte
}

// InParams holds everything the request side of a CommandContext carries
// besides the raw POD data region: handles, buffers, and process-id state.
type InParams struct {
	Handles        []Handle
	Buffers        []Buffer
	SendProcessID  bool
	ProcessID      uint64
	nextHandle     int
	nextBuffer     int
}

// PopHandle consumes the next in-handle in order.
func (p *InParams) PopHandle() (Handle, error) {
	if p.nextHandle >= len(p.Handles) {
		return InvalidHandle, result.ErrInvalidCommandType
	}
	h := p.Handles[p.nextHandle]
	p.nextHandle++
	return h, nil
}

// PopBuffer consumes the next in/out buffer descriptor in order.
func (p *InParams) PopBuffer() (Buffer, error) {
	if p.nextBuffer >= len(p.Buffers) {
		return Buffer{}, result.ErrInvalidCommandType
	}
	b := p.Buffers[p.nextBuffer]
	p.nextBuffer++
	return b, nil
}

// OutParams accumulates what the response side of a CommandContext must
// attach: out handles (by domain object id, if this is a domain session)
// and direct out handles for plain sessions.
type OutParams struct {
	Handles         []Handle
	DomainObjectIDs []DomainObjectID
}

// PushHandle appends a handle to be returned directly on a plain session.
func (p *OutParams) PushHandle(h Handle) {
	p.Handles = append(p.Handles, h)
}

// PushDomainObject appends a freshly allocated domain object id to be
// returned in place of a handle on a domain session.
func (p *OutParams) PushDomainObject(id DomainObjectID) {
	p.DomainObjectIDs = append(p.DomainObjectIDs, id)
}

// CommandContext is the per-request scratchpad threaded through a single
// dispatch: which object is addressed, the raw payload cursor state, and
// the in/out handle and buffer lists. One is allocated per request and
// discarded once the response is written.
type CommandContext struct {
	ObjectInfo    ObjectInfo
	InParams      InParams
	OutParams     OutParams
	PointerBuffer []byte

	DomainCommandType DomainCommandType
	RequestID         uint32
	CommandID         uint32
}

// NewServerContext builds a CommandContext for a freshly signaled server
// session, wired to the manager's shared pointer buffer.
func NewServerContext(info ObjectInfo, pointerBuffer []byte) *CommandContext {
	return &CommandContext{ObjectInfo: info, PointerBuffer: pointerBuffer}
}

// PopBuffer reads the next buffer descriptor attached to the request.
func (c *CommandContext) PopBuffer(w *DataWalker) (Buffer, error) {
	return c.InParams.PopBuffer()
}
