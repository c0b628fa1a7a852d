// Package adjacency implements the bit-indexed adjacency list
// (component E): a compact multimap from a 1-based left id to an
// ordered multiset of right ids, stored as a flat logarray of values
// plus a bit array marking each group's last position.
package adjacency

import (
	"fmt"

	"github.com/veylan/triplestore/internal/bitarray"
	"github.com/veylan/triplestore/internal/logarray"
)

// List is a read-only adjacency list.
type List struct {
	nums *logarray.LogArray
	bits *bitarray.Index
}

// FromParts assembles a List from its decoded side tables.
func FromParts(nums *logarray.LogArray, bits *bitarray.Index) *List {
	return &List{nums: nums, bits: bits}
}

// OffsetFor returns the 0-based index into Nums() of the first slot
// belonging to left id u (whether or not that slot holds a non-zero
// value). Callers that need the raw array position of a specific
// member — not just its filtered value — scan from here to
// l.Bits().Select1(u), inclusive.
func (l *List) OffsetFor(u uint64) uint64 {
	if u <= 1 {
		return 0
	}
	return l.bits.Select1(u-1) + 1
}

// Get returns the ordered, non-zero members of the group for left id
// u. An empty group returns an empty (non-nil-length-0) slice.
func (l *List) Get(u uint64) []uint64 {
	if u < 1 {
		panic("adjacency: minimum left id is 1")
	}
	start := l.OffsetFor(u)
	end := l.bits.Select1(u)
	out := make([]uint64, 0, end-start+1)
	for i := start; i <= end; i++ {
		if v := l.nums.Entry(int(i)); v != 0 {
			out = append(out, v)
		}
	}
	return out
}

// RightCount returns the number of non-zero values stored, i.e. the
// total number of (left,right) pairs represented.
func (l *List) RightCount() int {
	count := 0
	for i := 0; i < l.nums.Len(); i++ {
		if l.nums.Entry(i) != 0 {
			count++
		}
	}
	return count
}

// Domain returns the number of groups (the largest valid left id, or 0
// if the list is empty). Querying Get beyond Domain is out of range.
func (l *List) Domain() uint64 {
	if l.bits.Len() == 0 {
		return 0
	}
	return l.bits.Rank1(l.bits.Len() - 1)
}

// GroupFor returns the left id whose group contains raw nums-array
// position i (0-based), the inverse of OffsetFor/Select1. Used by
// callers that locate a group from a raw position discovered some
// other way (e.g. a predicate wavelet tree lookup over this list's
// flattened Nums()).
func (l *List) GroupFor(i uint64) uint64 {
	if l.bits.Get(i) {
		return l.bits.Rank1(i)
	}
	return l.bits.Rank1(i) + 1
}

// Nums exposes the backing values logarray, used by iterators that
// need to scan the flattened stream directly (e.g. the predicate
// wavelet tree build, or sp_o traversal from an s_p position).
func (l *List) Nums() *logarray.LogArray { return l.nums }

// Bits exposes the backing group-boundary bit index.
func (l *List) Bits() *bitarray.Index { return l.bits }

// PackPair encodes two 1-based ids into a single right id via a
// Cantor pairing function, for an adjacency list whose groups (o_ps)
// hold unordered (predicate, subject) pairs rather than a single id.
// Unlike a fixed-width interleave, this needs no external bound on
// either component to decode.
func PackPair(a, b uint64) uint64 {
	a0, b0 := a-1, b-1
	s := a0 + b0
	return s*(s+1)/2 + b0 + 1
}

// UnpackPair reverses PackPair.
func UnpackPair(c uint64) (a, b uint64) {
	c0 := c - 1
	w := (isqrt(8*c0+1) - 1) / 2
	t := w * (w + 1) / 2
	b0 := c0 - t
	a0 := w - b0
	return a0 + 1, b0 + 1
}

// isqrt returns floor(sqrt(n)) via Newton's method.
func isqrt(n uint64) uint64 {
	if n == 0 {
		return 0
	}
	x := n
	y := (x + 1) / 2
	for y < x {
		x = y
		y = (x + n/x) / 2
	}
	return x
}

// Builder incrementally constructs a List from (left, right) pairs fed
// in strictly increasing (left, right) order.
type Builder struct {
	lastLeft  uint64
	lastRight uint64
	started   bool
	nums      []uint64
	bits      []bool
	maxRight  uint64
}

// NewBuilder returns an empty adjacency list builder.
func NewBuilder() *Builder { return &Builder{} }

// Push records one (left, right) pair. left and right must both be
// >= 1 and pairs must arrive in strictly increasing (left, right) order.
func (b *Builder) Push(left, right uint64) error {
	if right < 1 {
		return fmt.Errorf("adjacency: right id must be >= 1, got %d", right)
	}
	if left < b.lastLeft || (b.started && left == b.lastLeft && right <= b.lastRight) {
		return fmt.Errorf("adjacency: pushed unordered pair (%d,%d) after (%d,%d)", left, right, b.lastLeft, b.lastRight)
	}

	skip := left - b.lastLeft
	switch {
	case skip == 0:
		// same left as before: the previous entry was not the group's last,
		// so its already-recorded 0 bit stays as it is.
		// Only reachable once started, since left >= 1 > 0 == the
		// implicit lastLeft before the first push.
	default:
		// left increased: close the previous group if one is open, then
		// record `skip-1` empty groups for the lefts strictly between,
		// marking each with a lone 0 value and an immediate closing bit.
		// Before the first push this also synthesizes the leading empty
		// groups for lefts 1..left-1 (lastLeft's zero value stands in
		// for "no left seen yet"), required so a dense list's group
		// position lines up with its left id even when the smallest
		// left actually pushed is > 1.
		if len(b.bits) > 0 {
			b.bits[len(b.bits)-1] = true
		}
		for i := uint64(0); i < skip-1; i++ {
			b.nums = append(b.nums, 0)
			b.bits = append(b.bits, true)
		}
	}

	b.nums = append(b.nums, right)
	b.bits = append(b.bits, false)
	b.started = true
	b.lastLeft = left
	b.lastRight = right
	if right > b.maxRight {
		b.maxRight = right
	}
	return nil
}

// Finalize closes the last open group and builds the List.
func (b *Builder) Finalize() *List {
	if b.started && len(b.bits) > 0 {
		b.bits[len(b.bits)-1] = true
	}

	width := logarray.BitsNeeded(b.maxRight)
	nums := logarray.NewWidth(b.nums, width)
	bits := bitarray.BuildIndex(bitarray.FromBits(b.bits))
	return &List{nums: nums, bits: bits}
}
