// Package blob implements Blob, the engine's growable byte container
// parameterized over an Allocator, plus its binary reader/writer surface
// (spec.md §3 "Blob", §4.4).
package blob

import (
	"encoding/binary"
	"unsafe"

	"github.com/forgecore/enginecore/alloc"
	"github.com/pkg/errors"
)

// GrowPolicy controls how Reserve grows the backing buffer.
type GrowPolicy int

const (
	// GrowNone means the blob never grows past its initial capacity.
	GrowNone GrowPolicy = iota
	// GrowLinear grows by the smallest multiple of Step >= required.
	GrowLinear
	// GrowMultiply grows to max(2*capacity, required).
	GrowMultiply
)

var (
	// ErrFixedCapacity is returned by Reserve when GrowNone can't satisfy
	// a request.
	ErrFixedCapacity = errors.New("blob: fixed capacity exceeded")
	// ErrShortRead is returned when a Read/ReadStringBinary call would
	// need more bytes than remain after readOffset.
	ErrShortRead = errors.New("blob: short read")
	// ErrStringTooLong is returned by the 16-bit string writer when
	// len(s) >= 65535.
	ErrStringTooLong = errors.New("blob: string too long for 16-bit length prefix")
)

// Blob is (allocator, buffer, size, capacity, readOffset, growPolicy).
// Invariant: readOffset <= size <= capacity.
type Blob struct {
	allocator  alloc.Allocator
	buf        []byte // len(buf) == capacity
	size       int
	readOffset int
	align      int

	policy     GrowPolicy
	linearStep int
}

// New creates an empty blob backed by a. policy/linearStep govern Reserve's
// growth behavior (linearStep is only used by GrowLinear).
func New(a alloc.Allocator, policy GrowPolicy, linearStep int) *Blob {
	if linearStep <= 0 {
		linearStep = 4096
	}
	return &Blob{allocator: a, policy: policy, linearStep: linearStep, align: alloc.WordSize}
}

// Reserve grows capacity to at least n bytes, per the blob's GrowPolicy.
func (b *Blob) Reserve(n int) error {
	if n <= len(b.buf) {
		return nil
	}
	var newCap int
	switch b.policy {
	case GrowNone:
		return ErrFixedCapacity
	case GrowLinear:
		newCap = ((n + b.linearStep - 1) / b.linearStep) * b.linearStep
	case GrowMultiply:
		newCap = len(b.buf) * 2
		if newCap < n {
			newCap = n
		}
	default:
		return ErrFixedCapacity
	}
	newBuf := b.allocator.Malloc(newCap, b.align)
	if newBuf == nil {
		return errors.New("blob: allocation failed")
	}
	copy(newBuf, b.buf[:b.size])
	if b.buf != nil {
		b.allocator.Free(b.buf, b.align)
	}
	b.buf = newBuf
	return nil
}

// Write appends data to the blob, growing as needed.
func (b *Blob) Write(data []byte) error {
	if err := b.Reserve(b.size + len(data)); err != nil {
		return err
	}
	copy(b.buf[b.size:], data)
	b.size += len(data)
	return nil
}

// Read copies up to len(dst) bytes starting at readOffset into dst,
// advancing readOffset. It errors if fewer than len(dst) bytes remain.
func (b *Blob) Read(dst []byte) error {
	if b.readOffset+len(dst) > b.size {
		return ErrShortRead
	}
	copy(dst, b.buf[b.readOffset:b.readOffset+len(dst)])
	b.readOffset += len(dst)
	return nil
}

// WriteT appends the binary representation of a fixed-size value v (numeric
// types and structs of such) in machine-native layout, mirroring the
// original's Write<T> binary reader/writer surface.
func WriteT[T any](b *Blob, v T) error {
	size := int(unsafe.Sizeof(v))
	buf := make([]byte, size)
	*(*T)(unsafe.Pointer(&buf[0])) = v
	return b.Write(buf)
}

// ReadT reads back a value written by WriteT.
func ReadT[T any](b *Blob) (T, error) {
	var v T
	size := int(unsafe.Sizeof(v))
	buf := make([]byte, size)
	if err := b.Read(buf); err != nil {
		return v, err
	}
	v = *(*T)(unsafe.Pointer(&buf[0]))
	return v, nil
}

// WriteStringBinary writes a length-prefixed (u32) string with no null
// terminator.
func (b *Blob) WriteStringBinary(s string) error {
	var lenBuf [4]byte
	binary.LittleEndian.PutUint32(lenBuf[:], uint32(len(s)))
	if err := b.Write(lenBuf[:]); err != nil {
		return err
	}
	return b.Write([]byte(s))
}

// ReadStringBinary reads a u32-length-prefixed string into dst, returning
// the number of bytes read. dst must have length >= the encoded length.
func (b *Blob) ReadStringBinary(dst []byte) (int, error) {
	var lenBuf [4]byte
	if err := b.Read(lenBuf[:]); err != nil {
		return 0, err
	}
	n := int(binary.LittleEndian.Uint32(lenBuf[:]))
	if n > len(dst) {
		return 0, errors.Errorf("blob: string length %d exceeds destination capacity %d", n, len(dst))
	}
	if err := b.Read(dst[:n]); err != nil {
		return 0, err
	}
	return n, nil
}

// ReadStringBinaryAlloc is the ergonomic counterpart of ReadStringBinary
// that allocates the exact-sized destination itself.
func (b *Blob) ReadStringBinaryAlloc() (string, error) {
	var lenBuf [4]byte
	if err := b.Read(lenBuf[:]); err != nil {
		return "", err
	}
	n := int(binary.LittleEndian.Uint32(lenBuf[:]))
	dst := make([]byte, n)
	if err := b.Read(dst); err != nil {
		return "", err
	}
	return string(dst), nil
}

// WriteStringBinary16 writes a u16-length-prefixed string; it asserts
// len(s) < 65535 per spec.md §4.4.
func (b *Blob) WriteStringBinary16(s string) error {
	if len(s) >= 65535 {
		return ErrStringTooLong
	}
	var lenBuf [2]byte
	binary.LittleEndian.PutUint16(lenBuf[:], uint16(len(s)))
	if err := b.Write(lenBuf[:]); err != nil {
		return err
	}
	return b.Write([]byte(s))
}

// ReadStringBinary16 reads a u16-length-prefixed string.
func (b *Blob) ReadStringBinary16() (string, error) {
	var lenBuf [2]byte
	if err := b.Read(lenBuf[:]); err != nil {
		return "", err
	}
	n := int(binary.LittleEndian.Uint16(lenBuf[:]))
	dst := make([]byte, n)
	if err := b.Read(dst); err != nil {
		return "", err
	}
	return string(dst), nil
}

// Attach adopts an existing buffer; a subsequent Free releases it via
// allocator.
func (b *Blob) Attach(buf []byte, allocator alloc.Allocator) {
	if b.buf != nil {
		b.allocator.Free(b.buf, b.align)
	}
	b.allocator = allocator
	b.buf = buf
	b.size = len(buf)
	b.readOffset = 0
}

// Detach relinquishes ownership of the underlying buffer; the blob becomes
// empty. The caller is responsible for eventually freeing the returned
// slice via the blob's original allocator.
func (b *Blob) Detach() ([]byte, int) {
	buf, size := b.buf, b.size
	b.buf = nil
	b.size = 0
	b.readOffset = 0
	return buf, size
}

// Free releases the backing buffer via its allocator.
func (b *Blob) Free() {
	if b.buf != nil {
		b.allocator.Free(b.buf, b.align)
	}
	b.buf = nil
	b.size = 0
	b.readOffset = 0
}

// Rewind resets readOffset to zero without touching size.
func (b *Blob) Rewind() { b.readOffset = 0 }

// Bytes returns the logically-written portion of the buffer (read-only
// view; callers must not retain it past further mutation).
func (b *Blob) Bytes() []byte { return b.buf[:b.size] }

// Size reports the logical length of written data.
func (b *Blob) Size() int { return b.size }

// Capacity reports the backing buffer's capacity.
func (b *Blob) Capacity() int { return len(b.buf) }

// ReadOffset reports the current read cursor.
func (b *Blob) ReadOffset() int { return b.readOffset }

// Remaining reports the number of unread bytes.
func (b *Blob) Remaining() int { return b.size - b.readOffset }
