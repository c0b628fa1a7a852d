package bitarray

import "github.com/veylan/triplestore/internal/logarray"

// IndexFiles is the three-file encoding of an Index: the bit array's
// own bytes, the per-block subrank array, and the per-superblock
// cumulative rank array.
type IndexFiles struct {
	Bits    []byte
	Blocks  []byte
	Sblocks []byte
}

// EncodeIndex serializes idx to its three on-disk byte buffers.
func EncodeIndex(idx *Index) IndexFiles {
	return IndexFiles{
		Bits:    Encode(idx.arr),
		Blocks:  logarray.Encode(idx.blocks),
		Sblocks: logarray.Encode(idx.sblocks),
	}
}

// DecodeIndex parses the three on-disk byte buffers back into an Index.
func DecodeIndex(f IndexFiles) (*Index, error) {
	arr, err := Decode(f.Bits)
	if err != nil {
		return nil, err
	}
	blocks, err := logarray.Decode(f.Blocks)
	if err != nil {
		return nil, err
	}
	sblocks, err := logarray.Decode(f.Sblocks)
	if err != nil {
		return nil, err
	}
	return FromParts(arr, blocks, sblocks), nil
}
