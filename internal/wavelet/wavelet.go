// Package wavelet implements a pointer-free wavelet matrix (component
// F) over a sequence of fixed-width symbols. All levels are flattened
// into a single bit index, mirroring the on-disk shape of the predicate
// wavelet tree: one bits/blocks/sblocks triple, exactly like a plain
// bit index. A symbol's level-0 bit occupies the first n positions, its
// level-1 bit the next n, and so on, with each level stably partitioned
// (zeros, then ones) by the bit examined at that level.
//
// This is the structure backing both the predicate wavelet tree, which
// answers "at which sp_o positions does predicate p occur", and the
// node/value id remap, which answers outer_to_inner and inner_to_outer
// lookups over a permutation of a layer's own ids.
package wavelet

import (
	"fmt"

	"github.com/bits-and-blooms/bitset"
	"github.com/veylan/triplestore/internal/bitarray"
	"github.com/veylan/triplestore/internal/logarray"
)

// Tree is a read-only wavelet matrix over n symbols of the given width.
type Tree struct {
	idx   *bitarray.Index
	n     uint64
	width uint64

	// zeros[l] is the number of zero bits in level l as a whole.
	// zeroPrefix[l] is the number of zero bits in levels [0,l).
	zeros      []uint64
	zeroPrefix []uint64
}

func bitAt(symbol uint64, width, level uint64) bool {
	shift := width - 1 - level
	return (symbol>>shift)&1 == 1
}

// Build constructs a wavelet matrix over seq in its given order.
// Symbols are implicitly unsigned; the width is at least 1, so an empty
// seq (or one of all zeros) produces a tree with a single level.
func Build(seq []uint64) *Tree {
	n := uint64(len(seq))
	var max uint64
	for _, v := range seq {
		if v > max {
			max = v
		}
	}
	width := uint64(logarray.BitsNeeded(max))
	if width == 0 {
		width = 1
	}

	bits := bitset.New(uint(width * n))
	cur := append([]uint64(nil), seq...)
	zeros := make([]uint64, width)

	for lvl := uint64(0); lvl < width; lvl++ {
		levelStart := lvl * n
		var zeroCount uint64
		levelBits := make([]bool, len(cur))
		for i, v := range cur {
			b := bitAt(v, width, lvl)
			levelBits[i] = b
			if b {
				bits.Set(uint(levelStart + uint64(i)))
			} else {
				zeroCount++
			}
		}
		zeros[lvl] = zeroCount

		if lvl == width-1 {
			break
		}
		next := make([]uint64, 0, len(cur))
		for i, b := range levelBits {
			if !b {
				next = append(next, cur[i])
			}
		}
		for i, b := range levelBits {
			if b {
				next = append(next, cur[i])
			}
		}
		cur = next
	}

	flat := make([]bool, width*n)
	for i := uint64(0); i < width*n; i++ {
		flat[i] = bits.Test(uint(i))
	}
	idx := bitarray.BuildIndex(bitarray.FromBits(flat))

	return finish(idx, n, width, zeros)
}

func finish(idx *bitarray.Index, n, width uint64, zeros []uint64) *Tree {
	zeroPrefix := make([]uint64, width+1)
	for l := uint64(0); l < width; l++ {
		zeroPrefix[l+1] = zeroPrefix[l] + zeros[l]
	}
	return &Tree{idx: idx, n: n, width: width, zeros: zeros, zeroPrefix: zeroPrefix}
}

// FromIndex reassembles a Tree from a decoded Index plus the symbol
// count n. width is derived as idx.Len()/n; it must divide evenly.
func FromIndex(idx *bitarray.Index, n uint64) (*Tree, error) {
	if n == 0 {
		return finish(idx, 0, 1, []uint64{0}), nil
	}
	if idx.Len()%n != 0 {
		return nil, fmt.Errorf("wavelet: index length %d is not a multiple of n=%d", idx.Len(), n)
	}
	width := idx.Len() / n
	zeros := make([]uint64, width)
	for lvl := uint64(0); lvl < width; lvl++ {
		start := lvl * n
		zeros[lvl] = idx.Rank0Range(start, start+n)
	}
	return finish(idx, n, width, zeros), nil
}

// Len returns the number of symbols.
func (t *Tree) Len() uint64 { return t.n }

// Access returns the symbol at original position i.
func (t *Tree) Access(i uint64) uint64 {
	var v uint64
	pos := i
	for lvl := uint64(0); lvl < t.width; lvl++ {
		levelStart := lvl * t.n
		bit := t.idx.Get(levelStart + pos)
		if bit {
			v |= 1 << (t.width - 1 - lvl)
			pos = t.zeros[lvl] + t.idx.Rank1Range(levelStart, levelStart+pos)
		} else {
			pos = t.idx.Rank0Range(levelStart, levelStart+pos)
		}
	}
	return v
}

// Count returns the number of occurrences of symbol in the sequence.
func (t *Tree) Count(symbol uint64) uint64 {
	lo, hi := t.rangeFor(symbol)
	return hi - lo
}

// rangeFor computes the [lo,hi) range, in the final level's coordinate
// space, of positions whose full path of bits matches symbol.
func (t *Tree) rangeFor(symbol uint64) (lo, hi uint64) {
	lo, hi = 0, t.n
	for lvl := uint64(0); lvl < t.width; lvl++ {
		levelStart := lvl * t.n
		if bitAt(symbol, t.width, lvl) {
			z := t.zeros[lvl]
			lo = z + t.idx.Rank1Range(levelStart, levelStart+lo)
			hi = z + t.idx.Rank1Range(levelStart, levelStart+hi)
		} else {
			lo = t.idx.Rank0Range(levelStart, levelStart+lo)
			hi = t.idx.Rank0Range(levelStart, levelStart+hi)
		}
	}
	return lo, hi
}

// localSelect0 returns the local (within-level) position of the
// localRank-th (1-based) zero bit in level lvl.
func (t *Tree) localSelect0(lvl, localRank uint64) uint64 {
	global := t.idx.Select0(t.zeroPrefix[lvl] + localRank)
	return global - lvl*t.n
}

// localSelect1 returns the local (within-level) position of the
// localRank-th (1-based) one bit in level lvl.
func (t *Tree) localSelect1(lvl, localRank uint64) uint64 {
	onePrefix := lvl*t.n - t.zeroPrefix[lvl]
	global := t.idx.Select1(onePrefix + localRank)
	return global - lvl*t.n
}

// Select returns the original position of the k-th (1-based)
// occurrence of symbol.
func (t *Tree) Select(symbol, k uint64) (uint64, bool) {
	lo, hi := t.rangeFor(symbol)
	if k < 1 || k > hi-lo {
		return 0, false
	}
	pos := lo + (k - 1)
	for l := int(t.width) - 1; l >= 0; l-- {
		lvl := uint64(l)
		if bitAt(symbol, t.width, lvl) {
			pos = t.localSelect1(lvl, pos-t.zeros[lvl]+1)
		} else {
			pos = t.localSelect0(lvl, pos+1)
		}
	}
	return pos, true
}

// Lookup returns a cursor over every original position holding symbol,
// in ascending order.
func (t *Tree) Lookup(symbol uint64) *PositionIter {
	return &PositionIter{tree: t, symbol: symbol, count: t.Count(symbol)}
}

// PositionIter iterates the positions of one symbol in ascending order.
type PositionIter struct {
	tree   *Tree
	symbol uint64
	k      uint64
	count  uint64
}

// Next returns the next position and true, or (0, false) when exhausted.
func (it *PositionIter) Next() (uint64, bool) {
	if it.k >= it.count {
		return 0, false
	}
	it.k++
	return it.tree.Select(it.symbol, it.k)
}
