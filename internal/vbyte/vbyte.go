// Package vbyte implements the self-delimiting variable-byte integer
// encoding used inside front-coded dictionary blocks: seven data bits
// per byte, little-endian, with the most significant bit of the final
// byte set to mark the end of the sequence.
package vbyte

import "fmt"

// MaxLen is the largest number of bytes a uint64 can ever encode to.
const MaxLen = 10

// Encode appends the vbyte encoding of v to dst and returns the
// extended slice.
func Encode(dst []byte, v uint64) []byte {
	for {
		b := byte(v & 0x7f)
		v >>= 7
		if v == 0 {
			return append(dst, b|0x80)
		}
		dst = append(dst, b)
	}
}

// Decode reads a vbyte-encoded integer from the front of data and
// returns the value and the number of bytes consumed. It returns an
// error if data contains no terminal byte.
func Decode(data []byte) (uint64, int, error) {
	var v uint64
	var shift uint
	for i, b := range data {
		v |= uint64(b&0x7f) << shift
		if b&0x80 != 0 {
			return v, i + 1, nil
		}
		shift += 7
		if shift > 63 {
			return 0, 0, fmt.Errorf("vbyte: value too wide, no terminal byte within %d bytes", MaxLen)
		}
	}
	return 0, 0, fmt.Errorf("vbyte: truncated input, no terminal byte found")
}

// Len returns the number of bytes Encode would produce for v.
func Len(v uint64) int {
	n := 1
	for v >>= 7; v != 0; v >>= 7 {
		n++
	}
	return n
}
