package binder

import "encoding/binary"

// ConnectionApi selects which graphics API is connecting to the producer.
type ConnectionApi uint32

const (
	ApiEGL ConnectionApi = iota + 1
	ApiCPU
	ApiMedia
	ApiCamera
)

// DisconnectMode mirrors Android's DisconnectMode enum.
type DisconnectMode uint32

const (
	DisconnectApi DisconnectMode = iota
	DisconnectAllLocal
)

// GraphicsAllocatorUsage is a bitmask of gralloc usage flags.
type GraphicsAllocatorUsage uint32

// GraphicBuffer is a fixed-size descriptor of a graphics buffer allocation.
// Only the fields the producer protocol actually inspects are modeled;
// the rest of Android's gralloc metadata is opaque bytes carried verbatim.
type GraphicBuffer struct {
	Width       uint32
	Height      uint32
	Stride      uint32
	Format      uint32
	Usage       uint32
	Opaque      []byte
}

func (g GraphicBuffer) MarshalParcel() []byte {
	buf := make([]byte, 20+len(g.Opaque))
	binary.LittleEndian.PutUint32(buf[0:4], g.Width)
	binary.LittleEndian.PutUint32(buf[4:8], g.Height)
	binary.LittleEndian.PutUint32(buf[8:12], g.Stride)
	binary.LittleEndian.PutUint32(buf[12:16], g.Format)
	binary.LittleEndian.PutUint32(buf[16:20], g.Usage)
	copy(buf[20:], g.Opaque)
	return buf
}

func (g *GraphicBuffer) UnmarshalParcel(b []byte) error {
	if len(b) < 20 {
		return errShortBuffer
	}
	g.Width = binary.LittleEndian.Uint32(b[0:4])
	g.Height = binary.LittleEndian.Uint32(b[4:8])
	g.Stride = binary.LittleEndian.Uint32(b[8:12])
	g.Format = binary.LittleEndian.Uint32(b[12:16])
	g.Usage = binary.LittleEndian.Uint32(b[16:20])
	g.Opaque = append([]byte{}, b[20:]...)
	return nil
}

// MultiFence carries the set of sync fences a dequeue/queue operation
// waits on or produces.
type MultiFence struct {
	FenceIDs []uint32
}

func (m MultiFence) MarshalParcel() []byte {
	buf := make([]byte, 4+4*len(m.FenceIDs))
	binary.LittleEndian.PutUint32(buf[0:4], uint32(len(m.FenceIDs)))
	for i, id := range m.FenceIDs {
		binary.LittleEndian.PutUint32(buf[4+4*i:], id)
	}
	return buf
}

func (m *MultiFence) UnmarshalParcel(b []byte) error {
	if len(b) < 4 {
		return errShortBuffer
	}
	n := binary.LittleEndian.Uint32(b[0:4])
	if len(b) < int(4+4*n) {
		return errShortBuffer
	}
	m.FenceIDs = make([]uint32, n)
	for i := range m.FenceIDs {
		m.FenceIDs[i] = binary.LittleEndian.Uint32(b[4+4*i:])
	}
	return nil
}

// QueueBufferInput carries the producer's queue_buffer request metadata.
type QueueBufferInput struct {
	Timestamp       int64
	IsAutoTimestamp uint32
	Crop            [4]int32
	ScalingMode     uint32
	Transform       uint32
	StickyTransform uint32
	Fence           MultiFence
}

func (q QueueBufferInput) MarshalParcel() []byte {
	buf := make([]byte, 8+4+16+4+4+4)
	binary.LittleEndian.PutUint64(buf[0:8], uint64(q.Timestamp))
	binary.LittleEndian.PutUint32(buf[8:12], q.IsAutoTimestamp)
	for i, c := range q.Crop {
		binary.LittleEndian.PutUint32(buf[12+4*i:], uint32(c))
	}
	binary.LittleEndian.PutUint32(buf[28:32], q.ScalingMode)
	binary.LittleEndian.PutUint32(buf[32:36], q.Transform)
	binary.LittleEndian.PutUint32(buf[36:40], q.StickyTransform)
	return append(buf, q.Fence.MarshalParcel()...)
}

func (q *QueueBufferInput) UnmarshalParcel(b []byte) error {
	if len(b) < 40 {
		return errShortBuffer
	}
	q.Timestamp = int64(binary.LittleEndian.Uint64(b[0:8]))
	q.IsAutoTimestamp = binary.LittleEndian.Uint32(b[8:12])
	for i := range q.Crop {
		q.Crop[i] = int32(binary.LittleEndian.Uint32(b[12+4*i:]))
	}
	q.ScalingMode = binary.LittleEndian.Uint32(b[28:32])
	q.Transform = binary.LittleEndian.Uint32(b[32:36])
	q.StickyTransform = binary.LittleEndian.Uint32(b[36:40])
	return q.Fence.UnmarshalParcel(b[40:])
}

// QueueBufferOutput is the result of connect/queue_buffer: the dimensions
// and transform hint the consumer currently expects.
type QueueBufferOutput struct {
	Width              uint32
	Height              uint32
	TransformHint       uint32
	NumPendingBuffers   uint32
}

func (q QueueBufferOutput) MarshalParcel() []byte {
	buf := make([]byte, 16)
	binary.LittleEndian.PutUint32(buf[0:4], q.Width)
	binary.LittleEndian.PutUint32(buf[4:8], q.Height)
	binary.LittleEndian.PutUint32(buf[8:12], q.TransformHint)
	binary.LittleEndian.PutUint32(buf[12:16], q.NumPendingBuffers)
	return buf
}

func (q *QueueBufferOutput) UnmarshalParcel(b []byte) error {
	if len(b) < 16 {
		return errShortBuffer
	}
	q.Width = binary.LittleEndian.Uint32(b[0:4])
	q.Height = binary.LittleEndian.Uint32(b[4:8])
	q.TransformHint = binary.LittleEndian.Uint32(b[8:12])
	q.NumPendingBuffers = binary.LittleEndian.Uint32(b[12:16])
	return nil
}

var errShortBuffer = shortBufferErr{}

type shortBufferErr struct{}

func (shortBufferErr) Error() string { return "binder: short buffer" }
