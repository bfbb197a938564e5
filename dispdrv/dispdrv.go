// Package dispdrv declares the interface of the graphics-driver service
// (nvnflinger/dispdrv in Horizon terms) that the gpu/binder client
// transacts against. This is an out-of-scope external collaborator per
// spec.md §1: only the on-wire shape of the calls it must answer is
// specified here, never its business logic.
package dispdrv

// BinderHandle identifies a binder object on the driver side.
type BinderHandle = int32

// ParcelTransactionId pins the Android IGraphicBufferProducer ordinals
// bit-for-bit (spec.md §4.3/§6 — these values must never be renumbered).
type ParcelTransactionId uint32

const (
	TransactionRequestBuffer          ParcelTransactionId = 1
	TransactionSetBufferCount         ParcelTransactionId = 2
	TransactionDequeueBuffer          ParcelTransactionId = 3
	TransactionDetachBuffer           ParcelTransactionId = 4
	TransactionDetachNextBuffer       ParcelTransactionId = 5
	TransactionAttachBuffer           ParcelTransactionId = 6
	TransactionQueueBuffer            ParcelTransactionId = 7
	TransactionCancelBuffer           ParcelTransactionId = 8
	TransactionQuery                  ParcelTransactionId = 9
	TransactionConnect                ParcelTransactionId = 10
	TransactionDisconnect             ParcelTransactionId = 11
	TransactionSetSidebandStream      ParcelTransactionId = 12
	TransactionAllocateBuffers        ParcelTransactionId = 13
	TransactionSetPreallocatedBuffer  ParcelTransactionId = 14
	TransactionGetFrameTimestamps     ParcelTransactionId = 20
	TransactionGetUniqueId            ParcelTransactionId = 21
)

// RefcountType distinguishes the two binder refcount classes.
type RefcountType int

const (
	RefcountWeak RefcountType = iota
	RefcountStrong
)

// NativeHandleType selects which native handle get_native_handle should
// return (e.g. the buffer-queue's underlying kernel session handle).
type NativeHandleType int32

// CopyHandle is a kernel handle returned by value (the caller does not
// take ownership away from the driver).
type CopyHandle uint32

// HOSBinderDriver is the out-of-scope graphics-driver service consumed by
// gpu/binder.Binder. A real implementation tunnels transact_parcel through
// the kernel IPC session to nvnflinger; tests substitute a fake.
type HOSBinderDriver interface {
	TransactParcel(handle BinderHandle, transactionID ParcelTransactionId, flags uint32, request []byte, responseBuf []byte) (response []byte, err error)
	AdjustRefcount(handle BinderHandle, addVal int32, kind RefcountType) error
	GetNativeHandle(handle BinderHandle, kind NativeHandleType) (CopyHandle, error)
}
