package adjacency

import (
	"github.com/veylan/triplestore/internal/bitarray"
	"github.com/veylan/triplestore/internal/logarray"
)

// Files is the four-file on-disk encoding of an adjacency List.
type Files struct {
	Nums    []byte
	Bits    []byte
	Blocks  []byte
	Sblocks []byte
}

// Encode serializes l to its four on-disk byte buffers.
func Encode(l *List) Files {
	idxFiles := bitarray.EncodeIndex(l.bits)
	return Files{
		Nums:    logarray.Encode(l.nums),
		Bits:    idxFiles.Bits,
		Blocks:  idxFiles.Blocks,
		Sblocks: idxFiles.Sblocks,
	}
}

// Decode parses the four on-disk byte buffers back into a List.
func Decode(f Files) (*List, error) {
	nums, err := logarray.Decode(f.Nums)
	if err != nil {
		return nil, err
	}
	idx, err := bitarray.DecodeIndex(bitarray.IndexFiles{Bits: f.Bits, Blocks: f.Blocks, Sblocks: f.Sblocks})
	if err != nil {
		return nil, err
	}
	return FromParts(nums, idx), nil
}
