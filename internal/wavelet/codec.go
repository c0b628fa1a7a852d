package wavelet

import "github.com/veylan/triplestore/internal/bitarray"

// Encode serializes t to the same three-file shape as a plain bit
// index: the symbol count n is not part of the file set and must be
// tracked by the caller (it is always known independently, e.g. as the
// length of the s_p stream a predicate tree indexes, or a layer's own
// node-and-value count for an id remap).
func Encode(t *Tree) bitarray.IndexFiles {
	return bitarray.EncodeIndex(t.idx)
}

// Decode parses files back into a Tree, given the symbol count n.
func Decode(files bitarray.IndexFiles, n uint64) (*Tree, error) {
	idx, err := bitarray.DecodeIndex(files)
	if err != nil {
		return nil, err
	}
	return FromIndex(idx, n)
}
