// Package bitarray implements a packed bit vector (component A) plus a
// rank/select index over it. The bit array itself is a sequence of
// 64-bit big-endian blocks terminated by an 8-byte big-endian bit
// count. The index adds two logarithmic arrays — one "subrank" per
// 64-bit block, and one cumulative popcount per superblock of 52
// blocks — giving O(1) rank and O(log n) select.
package bitarray

import (
	"encoding/binary"
	"fmt"
)

// BitArray is a read-only packed bit vector.
type BitArray struct {
	bytes []byte // padded to a multiple of 8 bytes, footer stripped
	n     uint64 // number of meaningful bits
}

// Get reads bit i.
func (b *BitArray) Get(i uint64) bool {
	if i >= b.n {
		panic(fmt.Sprintf("bitarray: index %d out of range [0,%d)", i, b.n))
	}
	byt := b.bytes[i/8]
	mask := byte(128 >> (i % 8))
	return byt&mask != 0
}

// Len returns the number of meaningful bits.
func (b *BitArray) Len() uint64 { return b.n }

// NumBlocks returns the number of 64-bit blocks backing the array.
func (b *BitArray) NumBlocks() int { return len(b.bytes) / 8 }

// Block returns the raw 64-bit big-endian value of block i (0-based).
func (b *BitArray) Block(i int) uint64 {
	return binary.BigEndian.Uint64(b.bytes[i*8 : i*8+8])
}

// Encode serializes the bit array, footer included.
func Encode(b *BitArray) []byte {
	out := make([]byte, len(b.bytes)+8)
	copy(out, b.bytes)
	binary.BigEndian.PutUint64(out[len(b.bytes):], b.n)
	return out
}

// Decode parses the on-disk byte form of a BitArray, footer included.
func Decode(data []byte) (*BitArray, error) {
	if len(data) < 8 || (len(data)-8)%8 != 0 {
		return nil, fmt.Errorf("bitarray: unexpected length %d", len(data))
	}
	n := binary.BigEndian.Uint64(data[len(data)-8:])
	return &BitArray{bytes: data[:len(data)-8], n: n}, nil
}

// Builder accumulates bits and produces a finalized BitArray.
type Builder struct {
	cur    byte
	curPos uint8
	bytes  []byte
	n      uint64
}

// NewBuilder returns an empty bit array builder.
func NewBuilder() *Builder { return &Builder{} }

// Push appends a single bit.
func (bld *Builder) Push(bit bool) {
	if bit {
		bld.cur |= 128 >> bld.curPos
	}
	bld.curPos++
	bld.n++
	if bld.curPos == 8 {
		bld.bytes = append(bld.bytes, bld.cur)
		bld.cur = 0
		bld.curPos = 0
	}
}

// PushN pushes count copies of bit.
func (bld *Builder) PushN(bit bool, count uint64) {
	for i := uint64(0); i < count; i++ {
		bld.Push(bit)
	}
}

// Finalize flushes any partial byte (padded with zero bits) and pads
// to a multiple of 8 bytes, returning the immutable BitArray.
func (bld *Builder) Finalize() *BitArray {
	if bld.curPos != 0 {
		bld.bytes = append(bld.bytes, bld.cur)
		bld.cur = 0
		bld.curPos = 0
	}
	for len(bld.bytes)%8 != 0 {
		bld.bytes = append(bld.bytes, 0)
	}
	return &BitArray{bytes: bld.bytes, n: bld.n}
}

// FromBits builds a finalized BitArray directly from a bool slice.
func FromBits(bits []bool) *BitArray {
	bld := NewBuilder()
	for _, b := range bits {
		bld.Push(b)
	}
	return bld.Finalize()
}
