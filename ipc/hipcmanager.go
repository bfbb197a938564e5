package ipc

import "github.com/nestybox/horizon-ipc/result"

// hipcControlConvertToDomain etc. are the fixed CMIF control request ids,
// matching libnx's IHipcManager numbering.
const (
	hipcControlConvertToDomain     uint32 = 0
	hipcControlCopyFromDomain      uint32 = 1
	hipcControlCloneObject         uint32 = 2
	hipcControlQueryPointerBufSize uint32 = 3
	hipcControlCloneObjectEx       uint32 = 4
)

// HipcManager answers the fixed set of CMIF control commands against the
// holder it was constructed over: convert-to-domain, query the shared
// pointer-buffer size, and clone the current object into a second
// session. It is transient — built fresh per control dispatch and
// discarded once the response is written.
type HipcManager struct {
	holder        *ServerHolder
	pointerBufSize int

	ClonedObjectServerHandle  Handle
	ClonedObjectForwardHandle Handle

	createSession func() (server Handle, client Handle, err error)
	forwardConvert func() (DomainObjectID, error)
}

// NewHipcManager builds a control-command dispatcher bound to holder.
func NewHipcManager(holder *ServerHolder, pointerBufSize int, createSession func() (Handle, Handle, error), forwardConvert func() (DomainObjectID, error)) *HipcManager {
	return &HipcManager{holder: holder, pointerBufSize: pointerBufSize, createSession: createSession, forwardConvert: forwardConvert}
}

// HasClonedObject reports whether CloneCurrentObject ran during dispatch.
func (m *HipcManager) HasClonedObject() bool {
	return m.ClonedObjectServerHandle != InvalidHandle
}

// ClonedHolder builds the ServerHolder for a just-cloned object, to be
// registered by the caller once dispatch returns.
func (m *HipcManager) ClonedHolder() *ServerHolder {
	return m.holder.CloneSelf(m.ClonedObjectServerHandle, m.ClonedObjectForwardHandle)
}

func (m *HipcManager) convertCurrentObjectToDomain() (DomainObjectID, error) {
	return m.holder.ConvertToDomain(m.forwardConvert)
}

func (m *HipcManager) copyFromCurrentDomain(_ DomainObjectID) (Handle, error) {
	return InvalidHandle, result.ErrNotImplemented
}

func (m *HipcManager) cloneCurrentObject() (Handle, error) {
	serverHandle, clientHandle, err := m.createSession()
	if err != nil {
		return InvalidHandle, err
	}

	var forwardHandle Handle
	if m.holder.IsMitmService && m.holder.MitmForwardInfo.Handle != InvalidHandle {
		// The upstream forward session is not cloned: the cloned holder
		// gets no forward handle, so CloneSelf makes it a non-MITM
		// session.
		forwardHandle = InvalidHandle
	}

	m.ClonedObjectServerHandle = serverHandle
	m.ClonedObjectForwardHandle = forwardHandle
	return clientHandle, nil
}

func (m *HipcManager) queryPointerBufferSize() uint16 {
	return uint16(m.pointerBufSize)
}

// CommandMetadataTable implements SessionObject.
func (m *HipcManager) CommandMetadataTable() []CommandMetadata {
	return []CommandMetadata{
		{CommandID: hipcControlConvertToDomain, Fn: hipcConvertToDomain},
		{CommandID: hipcControlCopyFromDomain, Fn: hipcCopyFromDomain},
		{CommandID: hipcControlCloneObject, Fn: hipcCloneObject},
		{CommandID: hipcControlQueryPointerBufSize, Fn: hipcQueryPointerBufSize},
		{CommandID: hipcControlCloneObjectEx, Fn: hipcCloneObjectEx},
	}
}

func hipcConvertToDomain(obj SessionObject, sc *ServerContext) error {
	m := obj.(*HipcManager)
	id, err := m.convertCurrentObjectToDomain()
	if err != nil {
		return err
	}
	WritePOD(sc, uint32(id))
	return nil
}

func hipcCopyFromDomain(obj SessionObject, sc *ServerContext) error {
	m := obj.(*HipcManager)
	id := DomainObjectID(ReadPOD[uint32](sc))
	h, err := m.copyFromCurrentDomain(id)
	if err != nil {
		return err
	}
	WriteHandle(sc, h)
	return nil
}

func hipcCloneObject(obj SessionObject, sc *ServerContext) error {
	m := obj.(*HipcManager)
	h, err := m.cloneCurrentObject()
	if err != nil {
		return err
	}
	WriteHandle(sc, h)
	return nil
}

func hipcQueryPointerBufSize(obj SessionObject, sc *ServerContext) error {
	m := obj.(*HipcManager)
	WritePOD(sc, m.queryPointerBufferSize())
	return nil
}

func hipcCloneObjectEx(obj SessionObject, sc *ServerContext) error {
	ReadPOD[uint32](sc) // tag: unused, matching the source's own dead parameter
	return hipcCloneObject(obj, sc)
}
