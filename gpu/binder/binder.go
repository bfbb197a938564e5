// Package binder implements the graphics-buffer-producer client
// (android.gui.IGraphicBufferProducer, tunneled as Binder transactions
// through the out-of-scope dispdrv service) described in spec.md §4.3.
package binder

import (
	"github.com/nestybox/horizon-ipc/dispdrv"
	"github.com/nestybox/horizon-ipc/parcel"
	"github.com/nestybox/horizon-ipc/result"
)

// InterfaceToken is the fixed Binder interface name every transaction's
// parcel is stamped with before its payload.
const InterfaceToken = "android.gui.IGraphicBufferProducer"

// ErrorCode is the Binder wire status appended to the tail of every
// response parcel, pinned bit-for-bit to the Android NvErrorCode values.
type ErrorCode int32

const (
	ErrorCodeSuccess            ErrorCode = 0
	ErrorCodePermissionDenied   ErrorCode = -1
	ErrorCodeNameNotFound       ErrorCode = -2
	ErrorCodeWouldBlock         ErrorCode = -11
	ErrorCodeNoMemory           ErrorCode = -12
	ErrorCodeAlreadyExists      ErrorCode = -17
	ErrorCodeNoInit             ErrorCode = -19
	ErrorCodeBadValue           ErrorCode = -22
	ErrorCodeDeadObject         ErrorCode = -32
	ErrorCodeInvalidOperation   ErrorCode = -38
	ErrorCodeNotEnoughData      ErrorCode = -61
	ErrorCodeUnknownTransaction ErrorCode = -74
	ErrorCodeBadIndex           ErrorCode = -75
	ErrorCodeTimeOut            ErrorCode = -110
	ErrorCodeFdsNotAllowed      ErrorCode = -2147483641
	ErrorCodeFailedTransaction  ErrorCode = -2147483646
	ErrorCodeBadType            ErrorCode = -2147483647
)

// convertErrorCode maps a wire ErrorCode to the module-qualified Result
// taxonomy. An unrecognized negative value (S2 scenario) falls through to
// ErrGfxInvalid rather than panicking or propagating a raw integer.
func convertErrorCode(err ErrorCode) error {
	switch err {
	case ErrorCodeSuccess:
		return nil
	case ErrorCodePermissionDenied:
		return result.ErrGfxPermissionDenied
	case ErrorCodeNameNotFound:
		return result.ErrGfxNameNotFound
	case ErrorCodeWouldBlock:
		return result.ErrGfxWouldBlock
	case ErrorCodeNoMemory:
		return result.ErrGfxNoMemory
	case ErrorCodeAlreadyExists:
		return result.ErrGfxAlreadyExists
	case ErrorCodeNoInit:
		return result.ErrGfxNoInit
	case ErrorCodeBadValue:
		return result.ErrGfxBadValue
	case ErrorCodeDeadObject:
		return result.ErrGfxDeadObject
	case ErrorCodeInvalidOperation:
		return result.ErrGfxInvalidOperation
	case ErrorCodeNotEnoughData:
		return result.ErrGfxNotEnoughData
	case ErrorCodeUnknownTransaction:
		return result.ErrGfxUnknownTransaction
	case ErrorCodeBadIndex:
		return result.ErrGfxBadIndex
	case ErrorCodeTimeOut:
		return result.ErrGfxTimeOut
	case ErrorCodeFdsNotAllowed:
		return result.ErrGfxFdsNotAllowed
	case ErrorCodeFailedTransaction:
		return result.ErrGfxFailedTransaction
	case ErrorCodeBadType:
		return result.ErrGfxBadType
	default:
		return result.ErrGfxInvalid
	}
}

// Binder is a client handle bound to one dispdrv binder object, speaking
// the IGraphicBufferProducer parcel protocol over it.
type Binder struct {
	handle dispdrv.BinderHandle
	driver dispdrv.HOSBinderDriver
}

// New binds a Binder client to an already-created driver-side handle.
func New(handle dispdrv.BinderHandle, driver dispdrv.HOSBinderDriver) *Binder {
	return &Binder{handle: handle, driver: driver}
}

// Handle returns the bound driver-side binder handle.
func (b *Binder) Handle() dispdrv.BinderHandle {
	return b.handle
}

func (b *Binder) begin() *parcel.Parcel {
	p := parcel.New()
	p.WriteInterfaceToken(InterfaceToken)
	return p
}

// transact finalizes p, sends it to the driver under transactionID, and
// returns a Parcel positioned to read the response.
func (b *Binder) transact(transactionID dispdrv.ParcelTransactionId, p *parcel.Parcel) (*parcel.Parcel, error) {
	payload, _ := p.EndWrite()
	respBuf := make([]byte, 0x400)
	raw, err := b.driver.TransactParcel(b.handle, transactionID, 0, payload.Bytes(), respBuf)
	if err != nil {
		return nil, err
	}
	resp := parcel.New()
	resp.LoadFrom(parcel.PayloadFromBytes(raw))
	return resp, nil
}

// checkErr reads the trailing ErrorCode word every response carries and
// converts it to a Result, per spec.md §4.3's 5-step transact template.
func (b *Binder) checkErr(resp *parcel.Parcel) error {
	code, err := parcel.Read[int32](resp)
	if err != nil {
		return err
	}
	return convertErrorCode(ErrorCode(code))
}

// IncreaseRefcounts bumps both the weak and strong binder refcounts.
func (b *Binder) IncreaseRefcounts() error {
	if err := b.driver.AdjustRefcount(b.handle, 1, dispdrv.RefcountWeak); err != nil {
		return err
	}
	return b.driver.AdjustRefcount(b.handle, 1, dispdrv.RefcountStrong)
}

// DecreaseRefcounts undoes IncreaseRefcounts.
func (b *Binder) DecreaseRefcounts() error {
	if err := b.driver.AdjustRefcount(b.handle, -1, dispdrv.RefcountWeak); err != nil {
		return err
	}
	return b.driver.AdjustRefcount(b.handle, -1, dispdrv.RefcountStrong)
}

func boolToU32(v bool) uint32 {
	if v {
		return 1
	}
	return 0
}

// Connect registers api as the producer's client, returning the
// consumer's current buffer geometry and transform hint.
func (b *Binder) Connect(api ConnectionApi, producerControlledByApp bool) (QueueBufferOutput, error) {
	p := b.begin()
	parcel.Write[uint32](p, 0) // producer_listener: no local listener object
	parcel.Write[uint32](p, uint32(api))
	parcel.Write[uint32](p, boolToU32(producerControlledByApp))

	resp, err := b.transact(dispdrv.TransactionConnect, p)
	if err != nil {
		return QueueBufferOutput{}, err
	}

	var qbo QueueBufferOutput
	if err := readQueueBufferOutput(resp, &qbo); err != nil {
		return QueueBufferOutput{}, err
	}
	if err := b.checkErr(resp); err != nil {
		return QueueBufferOutput{}, err
	}
	return qbo, nil
}

// Disconnect releases api's claim on the producer.
func (b *Binder) Disconnect(api ConnectionApi, mode DisconnectMode) error {
	p := b.begin()
	parcel.Write[uint32](p, uint32(api))
	parcel.Write[uint32](p, uint32(mode))

	resp, err := b.transact(dispdrv.TransactionDisconnect, p)
	if err != nil {
		return err
	}
	return b.checkErr(resp)
}

// SetPreallocatedBuffer binds buf to slot ahead of any dequeue/attach.
func (b *Binder) SetPreallocatedBuffer(slot int32, buf GraphicBuffer) error {
	p := b.begin()
	parcel.Write[int32](p, slot)
	parcel.Write[uint32](p, 1) // has_input is always true: we always supply a buffer
	parcel.WriteSized[GraphicBuffer](p, buf)

	_, err := b.transact(dispdrv.TransactionSetPreallocatedBuffer, p)
	return err
}

// RequestBuffer fetches the GraphicBuffer currently bound to slot, if any.
func (b *Binder) RequestBuffer(slot int32) (bool, GraphicBuffer, error) {
	p := b.begin()
	parcel.Write[int32](p, slot)

	resp, err := b.transact(dispdrv.TransactionRequestBuffer, p)
	if err != nil {
		return false, GraphicBuffer{}, err
	}

	nonNullV, err := parcel.Read[uint32](resp)
	if err != nil {
		return false, GraphicBuffer{}, err
	}
	nonNull := nonNullV != 0

	var buf GraphicBuffer
	if nonNull {
		if err := parcel.ReadSized[*GraphicBuffer](resp, &buf); err != nil {
			return false, GraphicBuffer{}, err
		}
	}

	if err := b.checkErr(resp); err != nil {
		return false, GraphicBuffer{}, err
	}
	return nonNull, buf, nil
}

// DequeueBuffer reserves a free slot matching the requested geometry.
func (b *Binder) DequeueBuffer(isAsync bool, width, height uint32, getFrameTimestamps bool, usage GraphicsAllocatorUsage) (int32, bool, MultiFence, error) {
	p := b.begin()
	parcel.Write[uint32](p, boolToU32(isAsync))
	parcel.Write[uint32](p, width)
	parcel.Write[uint32](p, height)
	parcel.Write[uint32](p, boolToU32(getFrameTimestamps))
	parcel.Write[uint32](p, uint32(usage))

	resp, err := b.transact(dispdrv.TransactionDequeueBuffer, p)
	if err != nil {
		return 0, false, MultiFence{}, err
	}

	slot, err := parcel.Read[int32](resp)
	if err != nil {
		return 0, false, MultiFence{}, err
	}
	hasFencesV, err := parcel.Read[uint32](resp)
	if err != nil {
		return 0, false, MultiFence{}, err
	}
	hasFences := hasFencesV != 0

	var fences MultiFence
	if hasFences {
		if err := parcel.ReadSized[*MultiFence](resp, &fences); err != nil {
			return 0, false, MultiFence{}, err
		}
	}

	if err := b.checkErr(resp); err != nil {
		return 0, false, MultiFence{}, err
	}
	return slot, hasFences, fences, nil
}

// QueueBuffer submits slot for consumption, described by qbi.
func (b *Binder) QueueBuffer(slot int32, qbi QueueBufferInput) (QueueBufferOutput, error) {
	p := b.begin()
	parcel.Write[int32](p, slot)
	parcel.WriteSized[QueueBufferInput](p, qbi)

	resp, err := b.transact(dispdrv.TransactionQueueBuffer, p)
	if err != nil {
		return QueueBufferOutput{}, err
	}

	var qbo QueueBufferOutput
	if err := readQueueBufferOutput(resp, &qbo); err != nil {
		return QueueBufferOutput{}, err
	}
	if err := b.checkErr(resp); err != nil {
		return QueueBufferOutput{}, err
	}
	return qbo, nil
}

// GetNativeHandle retrieves a driver-managed kernel handle of the given
// kind (e.g. the buffer queue's underlying session), bypassing the parcel
// wire protocol entirely — this is a direct dispdrv call, not a binder
// transaction.
func (b *Binder) GetNativeHandle(kind dispdrv.NativeHandleType) (dispdrv.CopyHandle, error) {
	return b.driver.GetNativeHandle(b.handle, kind)
}

// readQueueBufferOutput reads a QueueBufferOutput's fields as plain
// scalars (not a WriteSized/ReadSized-framed object, matching how
// connect/queue_buffer actually lay it out on the wire).
func readQueueBufferOutput(p *parcel.Parcel, out *QueueBufferOutput) error {
	var err error
	if out.Width, err = parcel.Read[uint32](p); err != nil {
		return err
	}
	if out.Height, err = parcel.Read[uint32](p); err != nil {
		return err
	}
	if out.TransformHint, err = parcel.Read[uint32](p); err != nil {
		return err
	}
	if out.NumPendingBuffers, err = parcel.Read[uint32](p); err != nil {
		return err
	}
	return nil
}
