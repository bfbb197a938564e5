package parcel

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nestybox/horizon-ipc/result"
)

// TestInterfaceTokenRoundTrip exercises spec.md §8 property 3 for the
// android.gui.IGraphicBufferProducer token plus a handful of scalars (the
// S1 scenario). The token is 34 ASCII chars (68 bytes UTF-16LE) framed by a
// 4-byte length prefix and a 4-byte zero terminator: 76 bytes, already
// 4-byte aligned, so no implicit padding is inserted before the scalars
// that follow.
func TestInterfaceTokenRoundTrip(t *testing.T) {
	const token = "android.gui.IGraphicBufferProducer"

	p := New()
	p.WriteInterfaceToken(token)
	Write[uint32](p, 1)
	Write[uint32](p, 0)
	Write[uint32](p, 1)

	payload, totalSize := p.EndWrite()

	const tokenBytes = 4 + len(token)*2 + 4
	const scalarsBytes = 3 * 4
	assert.Equal(t, uint32(tokenBytes+scalarsBytes), payload.DataSize)
	assert.Equal(t, uint32(0), payload.ObjectsSize)
	assert.Equal(t, 16+int(payload.DataSize), totalSize)

	reader := New()
	reader.LoadFrom(payload)

	gotToken, err := reader.ReadInterfaceToken()
	require.NoError(t, err)
	assert.Equal(t, token, gotToken)

	v1, err := Read[uint32](reader)
	require.NoError(t, err)
	v2, err := Read[uint32](reader)
	require.NoError(t, err)
	v3, err := Read[uint32](reader)
	require.NoError(t, err)
	assert.Equal(t, []uint32{1, 0, 1}, []uint32{v1, v2, v3})
}

func TestReadBeyondDataSizeFails(t *testing.T) {
	p := New()
	Write[uint32](p, 42)
	payload, _ := p.EndWrite()

	reader := New()
	reader.LoadFrom(payload)

	_, err := Read[uint32](reader)
	require.NoError(t, err)

	_, err = Read[uint32](reader)
	assert.ErrorIs(t, err, result.ErrNotEnoughData)
}
