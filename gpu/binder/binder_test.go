package binder

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nestybox/horizon-ipc/dispdrv"
	"github.com/nestybox/horizon-ipc/parcel"
	"github.com/nestybox/horizon-ipc/result"
)

// fakeDriver is a minimal dispdrv.HOSBinderDriver double that scripts the
// response payload for the next TransactParcel call and records refcount
// adjustments, enough to drive the Binder client without a real driver.
type fakeDriver struct {
	nextResponse []byte
	refcounts    []int32
}

func (f *fakeDriver) TransactParcel(handle dispdrv.BinderHandle, transactionID dispdrv.ParcelTransactionId, flags uint32, request []byte, responseBuf []byte) ([]byte, error) {
	return f.nextResponse, nil
}

func (f *fakeDriver) AdjustRefcount(handle dispdrv.BinderHandle, addVal int32, kind dispdrv.RefcountType) error {
	f.refcounts = append(f.refcounts, addVal)
	return nil
}

func (f *fakeDriver) GetNativeHandle(handle dispdrv.BinderHandle, kind dispdrv.NativeHandleType) (dispdrv.CopyHandle, error) {
	return dispdrv.CopyHandle(handle), nil
}

func connectResponse(t *testing.T, code ErrorCode) []byte {
	t.Helper()
	p := parcel.New()
	parcel.Write[uint32](p, 640)
	parcel.Write[uint32](p, 480)
	parcel.Write[uint32](p, 0)
	parcel.Write[uint32](p, 2)
	parcel.Write[int32](p, int32(code))
	payload, _ := p.EndWrite()
	return payload.Bytes()
}

func TestConnectSuccess(t *testing.T) {
	driver := &fakeDriver{nextResponse: connectResponse(t, ErrorCodeSuccess)}
	b := New(7, driver)

	qbo, err := b.Connect(ApiEGL, false)
	require.NoError(t, err)
	assert.Equal(t, uint32(640), qbo.Width)
	assert.Equal(t, uint32(480), qbo.Height)
	assert.Equal(t, uint32(2), qbo.NumPendingBuffers)
}

// TestConnectErrorMapping exercises the S2 scenario: every pinned wire
// ErrorCode must map to its corresponding result.Result, and an
// unrecognized negative value must fall through to ErrGfxInvalid rather
// than panicking or surfacing the raw integer.
func TestConnectErrorMapping(t *testing.T) {
	cases := []struct {
		code ErrorCode
		want result.Result
	}{
		{ErrorCodePermissionDenied, result.ErrGfxPermissionDenied},
		{ErrorCodeNameNotFound, result.ErrGfxNameNotFound},
		{ErrorCodeWouldBlock, result.ErrGfxWouldBlock},
		{ErrorCodeNoMemory, result.ErrGfxNoMemory},
		{ErrorCodeAlreadyExists, result.ErrGfxAlreadyExists},
		{ErrorCodeNoInit, result.ErrGfxNoInit},
		{ErrorCodeBadValue, result.ErrGfxBadValue},
		{ErrorCodeDeadObject, result.ErrGfxDeadObject},
		{ErrorCodeInvalidOperation, result.ErrGfxInvalidOperation},
		{ErrorCodeNotEnoughData, result.ErrGfxNotEnoughData},
		{ErrorCodeUnknownTransaction, result.ErrGfxUnknownTransaction},
		{ErrorCodeBadIndex, result.ErrGfxBadIndex},
		{ErrorCodeTimeOut, result.ErrGfxTimeOut},
		{ErrorCodeFdsNotAllowed, result.ErrGfxFdsNotAllowed},
		{ErrorCodeFailedTransaction, result.ErrGfxFailedTransaction},
		{ErrorCodeBadType, result.ErrGfxBadType},
		{ErrorCode(-9999), result.ErrGfxInvalid},
	}

	for _, tc := range cases {
		driver := &fakeDriver{nextResponse: connectResponse(t, tc.code)}
		b := New(7, driver)

		_, err := b.Connect(ApiEGL, false)
		assert.ErrorIs(t, err, tc.want, "code %d", tc.code)
	}
}

func TestIncreaseDecreaseRefcounts(t *testing.T) {
	driver := &fakeDriver{}
	b := New(3, driver)

	require.NoError(t, b.IncreaseRefcounts())
	require.NoError(t, b.DecreaseRefcounts())
	assert.Equal(t, []int32{1, 1, -1, -1}, driver.refcounts)
}

func TestDequeueBufferWithFences(t *testing.T) {
	fence := MultiFence{FenceIDs: []uint32{11, 22}}

	p := parcel.New()
	parcel.Write[int32](p, 2)
	parcel.Write[uint32](p, 1)
	parcel.WriteSized[MultiFence](p, fence)
	parcel.Write[int32](p, int32(ErrorCodeSuccess))
	payload, _ := p.EndWrite()

	driver := &fakeDriver{nextResponse: payload.Bytes()}
	b := New(1, driver)

	slot, hasFences, gotFence, err := b.DequeueBuffer(false, 1280, 720, false, 0)
	require.NoError(t, err)
	assert.Equal(t, int32(2), slot)
	assert.True(t, hasFences)
	assert.Equal(t, fence.FenceIDs, gotFence.FenceIDs)
}
