package ipc

import (
	"encoding/binary"
	"math"
	"unsafe"
)

// Pod is the set of fixed-width scalar types DataWalker can advance over
// without a caller-supplied codec, mirroring the POD bound the original
// request/response parameter traits were specialized against.
type Pod interface {
	~uint8 | ~uint16 | ~uint32 | ~uint64 | ~int8 | ~int16 | ~int32 | ~int64 | ~float32 | ~float64
}

// DataWalker is a raw-data cursor with two modes: nil-backed, where it
// only tracks how many bytes a sequence of values would occupy, and
// backed, where it writes (or reads) values at those same offsets. Both
// modes align identically, so the same sequence of Advance calls yields
// the same offsets in either. ServerManager's dispatch uses only backed
// walkers (one over the request data, one over a fresh response buffer)
// and runs no nil-backed sizing pass.
type DataWalker struct {
	buf    []byte // nil during the sizing pass
	offset int
}

// NewSizingWalker starts a walker with no backing buffer: every Advance
// only grows offset, used to learn how big a response's raw data region
// must be before it is allocated.
func NewSizingWalker() *DataWalker {
	return &DataWalker{}
}

// NewDataWalker wraps an already-sized buffer for the real read/write pass.
func NewDataWalker(buf []byte) *DataWalker {
	return &DataWalker{buf: buf}
}

// Empty returns a walker with no backing data, used for the parameterless
// control-command contexts that never touch raw data.
func Empty() *DataWalker {
	return &DataWalker{}
}

// Size reports how many bytes have been advanced over so far.
func (w *DataWalker) Size() int {
	return w.offset
}

func podSize[T Pod]() int {
	var zero T
	return int(unsafe.Sizeof(zero))
}

func podAlign[T Pod]() int {
	var zero T
	return int(unsafe.Alignof(zero))
}

// alignUp rounds offset up to the next multiple of align (a power of two).
func alignUp(offset, align int) int {
	return (offset + align - 1) &^ (align - 1)
}

// AdvanceGet reads a POD value at the current offset and advances past it.
// The offset is first aligned up to align_of(T), per spec's
// natural-alignment-rounded cursor. During the sizing pass (nil buffer)
// it returns the zero value.
func AdvanceGet[T Pod](w *DataWalker) T {
	w.offset = alignUp(w.offset, podAlign[T]())
	sz := podSize[T]()
	var v T
	if w.buf != nil && w.offset+sz <= len(w.buf) {
		v = decodePod[T](w.buf[w.offset : w.offset+sz])
	}
	w.offset += sz
	return v
}

// AdvanceSet writes a POD value at the current offset and advances past
// it, aligning up to align_of(T) first. During the sizing pass it only
// advances the offset.
func AdvanceSet[T Pod](w *DataWalker, v T) {
	w.offset = alignUp(w.offset, podAlign[T]())
	sz := podSize[T]()
	if w.buf != nil && w.offset+sz <= len(w.buf) {
		encodePod(w.buf[w.offset:w.offset+sz], v)
	}
	w.offset += sz
}

// Advance skips over a POD-sized slot without reading or writing it,
// aligning up to align_of(T) first. ServerManager's dispatch does not
// call it.
func Advance[T Pod](w *DataWalker) {
	w.offset = alignUp(w.offset, podAlign[T]())
	w.offset += podSize[T]()
}

func decodePod[T Pod](b []byte) T {
	var v T
	switch any(v).(type) {
	case uint8, int8:
		return T(b[0])
	case uint16, int16:
		return T(binary.LittleEndian.Uint16(b))
	case uint32, int32:
		return T(binary.LittleEndian.Uint32(b))
	case float32:
		return any(math.Float32frombits(binary.LittleEndian.Uint32(b))).(T)
	case float64:
		return any(math.Float64frombits(binary.LittleEndian.Uint64(b))).(T)
	default:
		return T(binary.LittleEndian.Uint64(b))
	}
}

func encodePod[T Pod](b []byte, v T) {
	switch x := any(v).(type) {
	case uint8:
		b[0] = x
	case int8:
		b[0] = byte(x)
	case uint16:
		binary.LittleEndian.PutUint16(b, x)
	case int16:
		binary.LittleEndian.PutUint16(b, uint16(x))
	case uint32:
		binary.LittleEndian.PutUint32(b, x)
	case int32:
		binary.LittleEndian.PutUint32(b, uint32(x))
	case float32:
		binary.LittleEndian.PutUint32(b, math.Float32bits(x))
	case uint64:
		binary.LittleEndian.PutUint64(b, x)
	case int64:
		binary.LittleEndian.PutUint64(b, uint64(x))
	case float64:
		binary.LittleEndian.PutUint64(b, math.Float64bits(x))
	}
}
