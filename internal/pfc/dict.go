// Package pfc implements the front-coded string dictionary (component
// D): strings are grouped into blocks of 8, each block storing its
// first ("head") string in full and every subsequent string as a
// shared-prefix length plus a literal suffix. Dictionary entries are
// 1-based, dense, and strictly lexicographically ordered.
package pfc

import (
	"bytes"
	"fmt"

	"github.com/veylan/triplestore/internal/logarray"
	"github.com/veylan/triplestore/internal/vbyte"
)

// BlockSize is the number of strings front-coded together into one block.
const BlockSize = 8

// Dict is a read-only front-coded dictionary.
type Dict struct {
	blocks  []byte
	offsets *logarray.LogArray // byte offset of each block's head, for blocks 1..numBlocks-1
	n       int
}

// FoundKind classifies the result of an ID lookup.
type FoundKind int

const (
	// NotFound means s sorts before every entry in the dictionary.
	NotFound FoundKind = iota
	// Found means s is present at the returned id.
	Found
	// Closest means s is absent; the returned id is the largest id
	// whose string is lexicographically less than s.
	Closest
)

func (k FoundKind) String() string {
	switch k {
	case Found:
		return "Found"
	case Closest:
		return "Closest"
	default:
		return "NotFound"
	}
}

// Build constructs a Dict from a strictly ascending, deduplicated
// slice of strings.
func Build(strings []string) (*Dict, error) {
	for i := 1; i < len(strings); i++ {
		if strings[i-1] >= strings[i] {
			return nil, fmt.Errorf("pfc: input not strictly ascending at index %d (%q >= %q)", i, strings[i-1], strings[i])
		}
	}

	var blockBuf []byte
	var blockOffsets []uint64

	for i, s := range strings {
		if i%BlockSize == 0 {
			if i != 0 {
				blockOffsets = append(blockOffsets, uint64(len(blockBuf)))
			}
			blockBuf = vbyte.Encode(blockBuf, uint64(len(s)))
			blockBuf = append(blockBuf, s...)
			blockBuf = append(blockBuf, 0)
			continue
		}

		prev := strings[i-1]
		shared := commonPrefixLen(prev, s)
		blockBuf = vbyte.Encode(blockBuf, uint64(shared))
		blockBuf = append(blockBuf, s[shared:]...)
		blockBuf = append(blockBuf, 0)
	}

	return &Dict{
		blocks:  blockBuf,
		offsets: logarray.New(blockOffsets),
		n:       len(strings),
	}, nil
}

func commonPrefixLen(a, b string) int {
	max := len(a)
	if len(b) < max {
		max = len(b)
	}
	i := 0
	for i < max && a[i] == b[i] {
		i++
	}
	return i
}

// Len returns the number of entries in the dictionary.
func (d *Dict) Len() int { return d.n }

func (d *Dict) numBlocks() int {
	if d.n == 0 {
		return 0
	}
	return (d.n + BlockSize - 1) / BlockSize
}

func (d *Dict) blockOffset(blockIdx int) int {
	if blockIdx == 0 {
		return 0
	}
	return int(d.offsets.Entry(blockIdx - 1))
}

func (d *Dict) blockCount(blockIdx int) int {
	nb := d.numBlocks()
	if blockIdx < nb-1 {
		return BlockSize
	}
	return d.n - blockIdx*BlockSize
}

// decodeBlock decodes up to `upto` entries (1..=BlockSize) of the
// block starting at byte offset, calling visit(localIndex, string) for
// each, in order. It stops early if visit returns false.
func decodeBlock(data []byte, offset, upto int, visit func(i int, s string) bool) {
	pos := offset
	headLen, n, err := vbyte.Decode(data[pos:])
	if err != nil {
		panic(fmt.Sprintf("pfc: corrupt block head length at offset %d: %v", pos, err))
	}
	pos += n
	head := string(data[pos : pos+int(headLen)])
	pos += int(headLen) + 1 // NUL terminator

	if !visit(0, head) {
		return
	}
	cur := head
	for i := 1; i < upto; i++ {
		shared, n2, err := vbyte.Decode(data[pos:])
		if err != nil {
			panic(fmt.Sprintf("pfc: corrupt shared-prefix length at offset %d: %v", pos, err))
		}
		pos += n2
		nulIdx := bytes.IndexByte(data[pos:], 0)
		if nulIdx < 0 {
			panic("pfc: unterminated suffix string")
		}
		suffix := data[pos : pos+nulIdx]
		cur = cur[:shared] + string(suffix)
		pos += nulIdx + 1

		if !visit(i, cur) {
			return
		}
	}
}

// Get returns the string at the given 1-based id.
func (d *Dict) Get(id int) (string, bool) {
	if id < 1 || id > d.n {
		return "", false
	}
	idx := id - 1
	blockIdx := idx / BlockSize
	posInBlock := idx % BlockSize

	var result string
	decodeBlock(d.blocks, d.blockOffset(blockIdx), posInBlock+1, func(i int, s string) bool {
		if i == posInBlock {
			result = s
			return false
		}
		return true
	})
	return result, true
}

func (d *Dict) blockHead(blockIdx int) string {
	var head string
	decodeBlock(d.blocks, d.blockOffset(blockIdx), 1, func(i int, s string) bool {
		head = s
		return false
	})
	return head
}

// ID looks up s. It returns Found(i) if s is present at id i, Closest(i)
// if s is absent but i is the largest id whose string sorts before s,
// or NotFound if s sorts before every entry.
func (d *Dict) ID(s string) (int, FoundKind) {
	numBlocks := d.numBlocks()
	if numBlocks == 0 {
		return 0, NotFound
	}

	lo, hi := 0, numBlocks-1
	for lo < hi {
		mid := (lo + hi + 1) / 2
		if d.blockHead(mid) <= s {
			lo = mid
		} else {
			hi = mid - 1
		}
	}
	block := lo
	if s < d.blockHead(block) {
		if block == 0 {
			return 0, NotFound
		}
		block--
	}

	count := d.blockCount(block)
	offset := d.blockOffset(block)

	lastID, lastFound := 0, false
	found := false

	decodeBlock(d.blocks, offset, count, func(i int, str string) bool {
		id := block*BlockSize + i + 1
		switch {
		case str == s:
			lastID, lastFound, found = id, true, true
			return false
		case str < s:
			lastID, lastFound = id, true
			return true
		default: // str > s
			return false
		}
	})

	if found {
		return lastID, Found
	}
	if lastFound {
		return lastID, Closest
	}
	return 0, NotFound
}

// All decodes every entry in order, calling visit(1-based id, string).
func (d *Dict) All(visit func(id int, s string)) {
	nb := d.numBlocks()
	for b := 0; b < nb; b++ {
		count := d.blockCount(b)
		offset := d.blockOffset(b)
		decodeBlock(d.blocks, offset, count, func(i int, s string) bool {
			visit(b*BlockSize+i+1, s)
			return true
		})
	}
}

// Files is the two-file on-disk encoding of a Dict.
type Files struct {
	Blocks  []byte
	Offsets []byte
}

// Encode serializes d to its on-disk byte buffers: the blocks buffer
// padded to 8 bytes with an 8-byte big-endian entry count footer, and
// the offsets logarray.
func Encode(d *Dict) Files {
	blocks := make([]byte, len(d.blocks))
	copy(blocks, d.blocks)
	for len(blocks)%8 != 0 {
		blocks = append(blocks, 0)
	}
	footer := make([]byte, 8)
	putUint64BE(footer, uint64(d.n))
	blocks = append(blocks, footer...)

	return Files{
		Blocks:  blocks,
		Offsets: logarray.Encode(d.offsets),
	}
}

func putUint64BE(dst []byte, v uint64) {
	for i := 7; i >= 0; i-- {
		dst[i] = byte(v)
		v >>= 8
	}
}

// Decode parses the on-disk byte buffers back into a Dict.
func Decode(f Files) (*Dict, error) {
	if len(f.Blocks) < 8 {
		return nil, fmt.Errorf("pfc: truncated blocks file (%d bytes)", len(f.Blocks))
	}
	footer := f.Blocks[len(f.Blocks)-8:]
	var n uint64
	for _, b := range footer {
		n = n<<8 | uint64(b)
	}

	body := f.Blocks[:len(f.Blocks)-8]
	// strip the 8-byte padding block-content, if any trailing zero pad
	// bytes beyond the last NUL were added to reach a multiple of 8;
	// they are harmless since block decoding is driven by explicit
	// offsets/counts, never by scanning to end of buffer.

	offsets, err := logarray.Decode(f.Offsets)
	if err != nil {
		return nil, fmt.Errorf("pfc: decoding offsets: %w", err)
	}

	return &Dict{blocks: body, offsets: offsets, n: int(n)}, nil
}
