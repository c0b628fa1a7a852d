// Package layer implements layer files (component H), triple iterators
// (component I), and the layer stack (component J): the queryable
// read path over the succinct structures in internal/*.
package layer

import (
	"crypto/rand"
	"encoding/binary"
	"encoding/hex"
	"fmt"
)

// ID is a layer's 160-bit opaque identifier: five big-endian 32-bit
// words, generated from a uniform random source (spec.md §6).
type ID [20]byte

// Zero is the sentinel ID meaning "no parent"/"no rollup".
var Zero ID

// NewID generates a fresh random layer id.
func NewID() (ID, error) {
	var id ID
	if _, err := rand.Read(id[:]); err != nil {
		return Zero, fmt.Errorf("layer: generating id: %w", err)
	}
	return id, nil
}

// IsZero reports whether id is the zero sentinel.
func (id ID) IsZero() bool { return id == Zero }

// String renders id as hex, grouped into its five 32-bit words.
func (id ID) String() string {
	var words [5]uint32
	for i := range words {
		words[i] = binary.BigEndian.Uint32(id[i*4 : i*4+4])
	}
	return fmt.Sprintf("%08x-%08x-%08x-%08x-%08x", words[0], words[1], words[2], words[3], words[4])
}

// ParseID parses the 40-character hex form produced by hex.EncodeToString.
func ParseID(s string) (ID, error) {
	var id ID
	b, err := hex.DecodeString(s)
	if err != nil || len(b) != len(id) {
		return Zero, fmt.Errorf("layer: invalid id %q", s)
	}
	copy(id[:], b)
	return id, nil
}

// Hex returns the raw 40-character hex encoding of id, the form used
// to key maps and log fields.
func (id ID) Hex() string { return hex.EncodeToString(id[:]) }
