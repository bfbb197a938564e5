package ipc

import "github.com/nestybox/horizon-ipc/kernel"

// Protocol identifies which wire dialect a session was established under.
type Protocol uint8

const (
	ProtocolCmif Protocol = iota
	ProtocolTipc
)

// Handle is a kernel object reference, opaque to everything above kernel.
type Handle = kernel.Handle

// InvalidHandle is never a valid kernel handle.
const InvalidHandle = kernel.InvalidHandle

// DomainObjectID addresses one logical object inside a session that has
// been converted to a domain (multiple objects sharing one kernel handle).
// Zero means "not a domain object" (see ObjectInfo.IsDomain).
type DomainObjectID uint32

// ObjectInfo names one addressable object: either a plain session (handle
// only) or one member of a domain (handle plus a domain object id). At
// most one object per session owns the underlying kernel handle — that is
// the domain's base object, closed on its behalf by the others.
type ObjectInfo struct {
	Handle         Handle
	DomainObjectID DomainObjectID
	OwnsHandle     bool
	Protocol       Protocol
}

// NewObjectInfo returns the zero ObjectInfo (no handle, not a domain).
func NewObjectInfo() ObjectInfo {
	return ObjectInfo{}
}

// ObjectInfoFromHandle builds an ObjectInfo for a freshly accepted session
// that owns its kernel handle and is not (yet) a domain.
func ObjectInfoFromHandle(h Handle) ObjectInfo {
	return ObjectInfo{Handle: h, OwnsHandle: true}
}

// ObjectInfoFromDomainObjectID builds an ObjectInfo for a domain member
// living on top of an already-open session handle.
func ObjectInfoFromDomainObjectID(h Handle, id DomainObjectID) ObjectInfo {
	return ObjectInfo{Handle: h, DomainObjectID: id}
}

// IsDomain reports whether this object addresses a domain member rather
// than a plain session.
func (o ObjectInfo) IsDomain() bool {
	return o.DomainObjectID != 0
}

// UsesCmifProtocol reports whether control commands (CMIF-only) apply to
// this object.
func (o ObjectInfo) UsesCmifProtocol() bool {
	return o.Protocol == ProtocolCmif
}
