// Package idmap implements the per-layer ID remap (component G): the
// bijection between the insertion-order id a layer's builder assigns to
// a dictionary entry and the lexicographic id it receives once merged
// with its ancestors' entries. It is a thin wrapper over an
// internal/wavelet tree.
//
// Ids below base belong to an ancestor layer and are never remapped by
// this layer; a Map with a nil tree is the identity mapping over its
// whole domain, used when a layer introduces no new dictionary entries.
package idmap

import (
	"fmt"

	"github.com/veylan/triplestore/internal/bitarray"
	"github.com/veylan/triplestore/internal/wavelet"
)

// Map is a read-only id remap.
type Map struct {
	tree *wavelet.Tree
	base uint64
}

// Identity returns a Map with no remap: every id passes through unchanged.
func Identity() *Map { return &Map{} }

// Build constructs a Map from outerIDsInLexOrder, the insertion-order
// (outer) id of each entry, indexed by its 0-based position in
// lexicographic order. base is the parent's cumulative entry count;
// ids <= base are left untouched by this layer's remap.
func Build(outerIDsInLexOrder []uint64, base uint64) *Map {
	if len(outerIDsInLexOrder) == 0 {
		return &Map{base: base}
	}
	return &Map{tree: wavelet.Build(outerIDsInLexOrder), base: base}
}

// OuterToInner maps an insertion-order id to its lexicographic id.
func (m *Map) OuterToInner(id uint64) uint64 {
	if m.tree == nil || id <= m.base {
		return id
	}
	pos, ok := m.tree.Select(id-m.base, 1)
	if !ok {
		panic(fmt.Sprintf("idmap: outer id %d is not present in this layer's remap", id))
	}
	// pos is 0-based; ids are 1-based.
	return m.base + pos + 1
}

// InnerToOuter maps a lexicographic id back to its insertion-order id.
func (m *Map) InnerToOuter(id uint64) uint64 {
	if m.tree == nil || id <= m.base {
		return id
	}
	return m.base + m.tree.Access(id-m.base-1)
}

// Files is the three-file on-disk encoding of a Map's wavelet tree. A
// Map with no remap encodes to the zero value; Decode with n=0
// reproduces the identity Map without reading Files.
type Files = bitarray.IndexFiles

// Encode serializes m's wavelet tree. ok is false when m is an
// identity map, in which case files is the zero value and need not be
// written to disk.
func Encode(m *Map) (files Files, ok bool) {
	if m.tree == nil {
		return Files{}, false
	}
	return wavelet.Encode(m.tree), true
}

// Decode parses files back into a Map. n is the number of entries this
// layer introduced (0 means identity, and files is ignored).
func Decode(files Files, n, base uint64) (*Map, error) {
	if n == 0 {
		return &Map{base: base}, nil
	}
	tree, err := wavelet.Decode(files, n)
	if err != nil {
		return nil, fmt.Errorf("idmap: %w", err)
	}
	return &Map{tree: tree, base: base}, nil
}
