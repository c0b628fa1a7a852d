package bitarray

import (
	"fmt"
	"math/bits"

	"github.com/veylan/triplestore/internal/logarray"
)

// SuperblockSize is the number of 64-bit blocks per superblock. A
// superblock's rank always fits in 13 bits (52*64 = 3328), which is
// why 52 was chosen: the per-block subrank logarray stays narrow.
const SuperblockSize = 52

// Index adds O(1) rank and O(log n) select to a BitArray via two
// logarithmic arrays: blocks (one subrank per 64-bit block) and
// sblocks (one cumulative rank per superblock of 52 blocks).
type Index struct {
	arr     *BitArray
	blocks  *logarray.LogArray
	sblocks *logarray.LogArray
}

// BuildIndex computes the blocks/sblocks side tables for arr.
func BuildIndex(arr *BitArray) *Index {
	nblocks := arr.NumBlocks()
	nsblocks := (nblocks + SuperblockSize - 1) / SuperblockSize

	blockVals := make([]uint64, nblocks)
	sblockVals := make([]uint64, nsblocks)

	var tally uint64
	for sb := 0; sb < nsblocks; sb++ {
		start := sb * SuperblockSize
		end := start + SuperblockSize
		if end > nblocks {
			end = nblocks
		}

		popcounts := make([]uint64, end-start)
		var subrank uint64
		for i := start; i < end; i++ {
			pc := uint64(bits.OnesCount64(arr.Block(i)))
			popcounts[i-start] = pc
			subrank += pc
		}

		rank := subrank
		for i := start; i < end; i++ {
			blockVals[i] = rank
			rank -= popcounts[i-start]
		}

		sblockRank := subrank + tally
		sblockVals[sb] = sblockRank
		tally = sblockRank
	}

	blocksWidth := logarray.BitsNeeded(uint64(SuperblockSize * 64))
	return &Index{
		arr:     arr,
		blocks:  logarray.NewWidth(blockVals, blocksWidth),
		sblocks: logarray.NewWidth(sblockVals, 64),
	}
}

// FromParts reassembles an Index from its three component arrays, as
// loaded from disk.
func FromParts(arr *BitArray, blocks, sblocks *logarray.LogArray) *Index {
	return &Index{arr: arr, blocks: blocks, sblocks: sblocks}
}

// Array returns the underlying bit array.
func (idx *Index) Array() *BitArray { return idx.arr }

// Blocks returns the per-block subrank side table.
func (idx *Index) Blocks() *logarray.LogArray { return idx.blocks }

// Sblocks returns the per-superblock cumulative rank side table.
func (idx *Index) Sblocks() *logarray.LogArray { return idx.sblocks }

// Len returns the number of bits in the underlying array.
func (idx *Index) Len() uint64 { return idx.arr.Len() }

// Get reads bit i of the underlying array.
func (idx *Index) Get(i uint64) bool { return idx.arr.Get(i) }

// Rank1 returns the number of set bits in [0, index], inclusive.
func (idx *Index) Rank1(index uint64) uint64 {
	blockIdx := index / 64
	sblockIdx := blockIdx / SuperblockSize

	blockRank := idx.blocks.Entry(int(blockIdx))
	sblockRank := idx.sblocks.Entry(int(sblockIdx))

	word := idx.arr.Block(int(blockIdx))
	word >>= 63 - index%64
	bitsRank := uint64(bits.OnesCount64(word))

	return sblockRank - blockRank + bitsRank
}

// Rank0 returns the number of unset bits in [0, index], inclusive.
func (idx *Index) Rank0(index uint64) uint64 {
	return 1 + index - idx.Rank1(index)
}

// Rank1Range returns the number of set bits in [start, end).
func (idx *Index) Rank1Range(start, end uint64) uint64 {
	if end == start {
		return 0
	}
	rank := idx.Rank1(end - 1)
	if start != 0 {
		rank -= idx.Rank1(start - 1)
	}
	return rank
}

// Rank0Range returns the number of unset bits in [start, end).
func (idx *Index) Rank0Range(start, end uint64) uint64 {
	if end == start {
		return 0
	}
	rank := idx.Rank0(end - 1)
	if start != 0 {
		rank -= idx.Rank0(start - 1)
	}
	return rank
}

func (idx *Index) select1Sblock(rank uint64) int {
	start, end := 0, idx.sblocks.Len()-1
	for start != end {
		mid := (start + end) / 2
		if idx.sblocks.Entry(mid) < rank {
			start = mid + 1
		} else {
			end = mid
		}
	}
	return start
}

func (idx *Index) select1Block(sblock int, subrank uint64) int {
	start := sblock * SuperblockSize
	end := start + SuperblockSize - 1
	if end > idx.blocks.Len()-1 {
		end = idx.blocks.Len() - 1
	}
	for start != end {
		mid := (start + end + 1) / 2
		if idx.blocks.Entry(mid) > subrank {
			start = mid
		} else {
			end = mid - 1
		}
	}
	return start
}

// Select1 returns the 0-based position of the rank-th set bit
// (1-based rank: Select1(1) is the first set bit).
func (idx *Index) Select1(rank uint64) uint64 {
	sblock := idx.select1Sblock(rank)
	sblockRank := idx.sblocks.Entry(sblock)
	block := idx.select1Block(sblock, sblockRank-rank)
	blockSubrank := idx.blocks.Entry(block)
	rankInBlock := rank - (sblockRank - blockSubrank)
	if rankInBlock > 64 {
		panic(fmt.Sprintf("bitindex: select1 computed out-of-range rank-in-block %d", rankInBlock))
	}

	word := idx.arr.Block(block)
	tally := rankInBlock
	for i := 0; i < 64; i++ {
		if word&0x8000000000000000 != 0 {
			tally--
			if tally == 0 {
				return uint64(block)*64 + uint64(i)
			}
		}
		word <<= 1
	}
	panic("bitindex: select1 reached end of block without a result")
}

func (idx *Index) select0Sblock(rank uint64) int {
	start, end := 0, idx.sblocks.Len()-1
	for start != end {
		mid := (start + end) / 2
		r := uint64(1+mid)*SuperblockSize*64 - idx.sblocks.Entry(mid)
		if r < rank {
			start = mid + 1
		} else {
			end = mid
		}
	}
	return start
}

func (idx *Index) select0Block(sblock int, subrank uint64) int {
	start := sblock * SuperblockSize
	end := start + SuperblockSize - 1
	if end > idx.blocks.Len()-1 {
		end = idx.blocks.Len() - 1
	}
	for start != end {
		mid := (start + end + 1) / 2
		r := uint64(SuperblockSize-mid%SuperblockSize)*64 - idx.blocks.Entry(mid)
		if r > subrank {
			start = mid
		} else {
			end = mid - 1
		}
	}
	return start
}

// Select0 returns the 0-based position of the rank-th unset bit.
func (idx *Index) Select0(rank uint64) uint64 {
	sblock := idx.select0Sblock(rank)
	sblockRank := uint64(1+sblock)*SuperblockSize*64 - idx.sblocks.Entry(sblock)
	block := idx.select0Block(sblock, sblockRank-rank)
	blockSubrank := uint64(SuperblockSize-block%SuperblockSize)*64 - idx.blocks.Entry(block)
	rankInBlock := rank - (sblockRank - blockSubrank)
	if rankInBlock > 64 {
		panic(fmt.Sprintf("bitindex: select0 computed out-of-range rank-in-block %d", rankInBlock))
	}

	word := idx.arr.Block(block)
	tally := rankInBlock
	for i := 0; i < 64; i++ {
		if word&0x8000000000000000 == 0 {
			tally--
			if tally == 0 {
				return uint64(block)*64 + uint64(i)
			}
		}
		word <<= 1
	}
	panic("bitindex: select0 reached end of block without a result")
}
