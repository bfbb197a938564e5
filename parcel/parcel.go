// Package parcel implements the Android-style length-prefixed, 4-byte
// aligned binary container used to tunnel the graphics-buffer-producer
// ("Binder") protocol over the kernel's session IPC transport.
package parcel

import (
	"encoding/binary"
	"unicode/utf16"

	"github.com/nestybox/horizon-ipc/result"
)

const headerSize = 16

// Payload is the finalized, on-wire representation of a Parcel: a 16-byte
// header followed by the data region and the (currently always empty for
// our use case) objects region.
type Payload struct {
	DataSize     uint32
	DataOffset   uint32
	ObjectsSize  uint32
	ObjectsOffset uint32
	Data         []byte
	Objects      []byte
}

// Bytes serializes the payload header plus regions into a single buffer,
// suitable for handing to the driver's transact_parcel call.
func (p Payload) Bytes() []byte {
	buf := make([]byte, headerSize+len(p.Data)+len(p.Objects))
	binary.LittleEndian.PutUint32(buf[0:4], p.DataSize)
	binary.LittleEndian.PutUint32(buf[4:8], p.DataOffset)
	binary.LittleEndian.PutUint32(buf[8:12], p.ObjectsSize)
	binary.LittleEndian.PutUint32(buf[12:16], p.ObjectsOffset)
	copy(buf[p.DataOffset:], p.Data)
	copy(buf[p.ObjectsOffset:], p.Objects)
	return buf
}

// PayloadFromBytes parses the 16-byte header out of a raw transacted buffer.
func PayloadFromBytes(buf []byte) Payload {
	p := Payload{
		DataSize:      binary.LittleEndian.Uint32(buf[0:4]),
		DataOffset:    binary.LittleEndian.Uint32(buf[4:8]),
		ObjectsSize:   binary.LittleEndian.Uint32(buf[8:12]),
		ObjectsOffset: binary.LittleEndian.Uint32(buf[12:16]),
	}
	p.Data = buf[p.DataOffset : p.DataOffset+p.DataSize]
	p.Objects = buf[p.ObjectsOffset : p.ObjectsOffset+p.ObjectsSize]
	return p
}

// Parcel is the read/write cursor over a data buffer being built (or having
// been loaded from a Payload). Initial capacity of 0x400 mirrors the
// teacher-domain's typical scratch-buffer sizing.
type Parcel struct {
	payload    []byte
	readCursor int
	writeCursor int
}

// New returns an empty Parcel ready for writing.
func New() *Parcel {
	return &Parcel{payload: make([]byte, 0, 0x400)}
}

func alignUp4(v int) int {
	return (v + 3) &^ 3
}

func (p *Parcel) padWriteTo(n int) {
	for len(p.payload) < n {
		p.payload = append(p.payload, 0)
	}
}

// writeRaw appends b at the current write cursor, 4-byte aligning the
// cursor beforehand.
func (p *Parcel) writeRaw(b []byte) {
	aligned := alignUp4(p.writeCursor)
	p.padWriteTo(aligned)
	p.payload = append(p.payload[:aligned], b...)
	p.writeCursor = aligned + len(b)
}

// WriteInterfaceToken writes the UTF-16LE interface-token string prefixed by
// its code-unit length and followed by a zero terminator word, per
// spec.md §4.2/§6.
func (p *Parcel) WriteInterfaceToken(s string) {
	units := utf16.Encode([]rune(s))

	lenBuf := make([]byte, 4)
	binary.LittleEndian.PutUint32(lenBuf, uint32(len(units)))
	p.writeRaw(lenBuf)

	chars := make([]byte, len(units)*2)
	for i, u := range units {
		binary.LittleEndian.PutUint16(chars[i*2:], u)
	}
	p.writeRaw(chars)

	term := make([]byte, 4)
	p.writeRaw(term)
}

// ReadInterfaceToken is the read-side counterpart of WriteInterfaceToken,
// returning the decoded string and discarding the terminator word.
func (p *Parcel) ReadInterfaceToken() (string, error) {
	n, err := p.readU32()
	if err != nil {
		return "", err
	}
	byteLen := int(n) * 2
	raw, err := p.readRaw(byteLen)
	if err != nil {
		return "", err
	}
	units := make([]uint16, n)
	for i := range units {
		units[i] = binary.LittleEndian.Uint16(raw[i*2:])
	}
	if _, err := p.readRaw(4); err != nil {
		return "", err
	}
	return string(utf16.Decode(units)), nil
}

func (p *Parcel) readRaw(n int) ([]byte, error) {
	aligned := alignUp4(p.readCursor)
	if aligned+n > len(p.payload) {
		return nil, result.ErrNotEnoughData
	}
	out := p.payload[aligned : aligned+n]
	p.readCursor = alignUp4(aligned + n)
	return out, nil
}

func (p *Parcel) readU32() (uint32, error) {
	raw, err := p.readRaw(4)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint32(raw), nil
}

// EndWrite finalizes the 16-byte header over everything written so far and
// returns the resulting Payload. data_size is the write cursor rounded up
// to 4-byte alignment; this implementation never embeds sized objects in
// the objects region (no GraphicBuffer/QueueBufferInput parameter in this
// protocol surface needs it), so ObjectsSize is always zero.
func (p *Parcel) EndWrite() (Payload, int) {
	dataSize := uint32(alignUp4(p.writeCursor))
	p.padWriteTo(int(dataSize))
	return Payload{
		DataSize:      dataSize,
		DataOffset:    headerSize,
		ObjectsSize:   0,
		ObjectsOffset: headerSize + dataSize,
		Data:          append([]byte{}, p.payload[:dataSize]...),
	}, int(headerSize + dataSize)
}

// LoadFrom seats a fresh read cursor at a previously finalized Payload's
// data region.
func (p *Parcel) LoadFrom(payload Payload) {
	p.payload = payload.Data
	p.readCursor = 0
	p.writeCursor = 0
}

// Scalar is the set of plain POD types the codec knows how to read/write
// without a caller-supplied codec function. Extend as new wire types are
// tunneled through the parcel.
type Scalar interface {
	~int32 | ~uint32 | ~int64 | ~uint64 | ~float32
}

// Write appends a scalar value, 4-byte aligning the cursor first (64-bit
// values too).
func Write[T Scalar](p *Parcel, v T) {
	switch any(v).(type) {
	case int64, uint64:
		buf := make([]byte, 8)
		binary.LittleEndian.PutUint64(buf, uint64(anyToU64(v)))
		p.writeRaw(buf)
	default:
		buf := make([]byte, 4)
		binary.LittleEndian.PutUint32(buf, uint32(anyToU64(v)))
		p.writeRaw(buf)
	}
}

func anyToU64[T Scalar](v T) uint64 {
	switch x := any(v).(type) {
	case int32:
		return uint64(uint32(x))
	case uint32:
		return uint64(x)
	case int64:
		return uint64(x)
	case uint64:
		return x
	case float32:
		return uint64(x)
	default:
		return 0
	}
}

// Read reads a scalar value previously written with Write.
func Read[T Scalar](p *Parcel) (T, error) {
	var zero T
	switch any(zero).(type) {
	case int64, uint64:
		raw, err := p.readRaw(8)
		if err != nil {
			return zero, err
		}
		return T(binary.LittleEndian.Uint64(raw)), nil
	default:
		raw, err := p.readRaw(4)
		if err != nil {
			return zero, err
		}
		return T(binary.LittleEndian.Uint32(raw)), nil
	}
}

// Sized is implemented by structured wire objects (GraphicBuffer,
// QueueBufferInput/Output, MultiFence, ...) that know how to marshal
// themselves into a flat byte slice for WriteSized/ReadSized.
type Sized interface {
	MarshalParcel() []byte
	UnmarshalParcel([]byte) error
}

// WriteSized emits a 4-byte size prefix, 4 bytes of padding, then the
// object's bytes padded up to a 4-byte boundary, per spec.md §6.
func WriteSized[T Sized](p *Parcel, v T) {
	body := v.MarshalParcel()
	sizeBuf := make([]byte, 4)
	binary.LittleEndian.PutUint32(sizeBuf, uint32(len(body)))
	p.writeRaw(sizeBuf)
	p.writeRaw(make([]byte, 4))
	p.writeRaw(body)
}

// ReadSized is the counterpart of WriteSized.
func ReadSized[T Sized](p *Parcel, v T) error {
	size, err := p.readU32()
	if err != nil {
		return err
	}
	if _, err := p.readRaw(4); err != nil {
		return err
	}
	body, err := p.readRaw(int(size))
	if err != nil {
		return err
	}
	return v.UnmarshalParcel(body)
}
