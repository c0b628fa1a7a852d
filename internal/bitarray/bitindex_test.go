package bitarray

import "testing"

func buildTestArray(n int, pred func(int) bool) *BitArray {
	bits := make([]bool, n)
	for i := range bits {
		bits[i] = pred(i)
	}
	return FromBits(bits)
}

func TestRank1AndSelect1(t *testing.T) {
	const n = 123456
	ba := buildTestArray(n, func(i int) bool { return i%3 == 0 })
	idx := BuildIndex(ba)

	for i := 0; i < n; i++ {
		want := uint64(i/3 + 1)
		if got := idx.Rank1(uint64(i)); got != want {
			t.Fatalf("Rank1(%d) = %d, want %d", i, got, want)
		}
	}

	for i := 1; i < n/3; i++ {
		want := uint64((i - 1) * 3)
		if got := idx.Select1(uint64(i)); got != want {
			t.Fatalf("Select1(%d) = %d, want %d", i, got, want)
		}
	}
}

func TestRank0AndSelect0(t *testing.T) {
	const n = 123456
	ba := buildTestArray(n, func(i int) bool { return i%3 == 0 })
	idx := BuildIndex(ba)

	for i := 0; i < n; i++ {
		want := uint64(i) - uint64(i/3)
		if got := idx.Rank0(uint64(i)); got != want {
			t.Fatalf("Rank0(%d) = %d, want %d", i, got, want)
		}
	}

	// the k-th zero (1-based) sits at position k + floor((k-1)/2), since
	// among every 3 consecutive positions exactly one is set.
	for k := 1; k <= 2*(n/3); k++ {
		pos := idx.Select0(uint64(k))
		if ba.Get(pos) {
			t.Fatalf("Select0(%d) = %d, but bit is set", k, pos)
		}
		if idx.Rank0(pos) != uint64(k) {
			t.Fatalf("Select0(%d) = %d, Rank0(%d) = %d, want %d", k, pos, pos, idx.Rank0(pos), k)
		}
	}
}

func TestRankRangeAndEncodeDecode(t *testing.T) {
	const n = 5000
	ba := buildTestArray(n, func(i int) bool { return i%5 == 0 })
	idx := BuildIndex(ba)

	files := EncodeIndex(idx)
	decoded, err := DecodeIndex(files)
	if err != nil {
		t.Fatalf("DecodeIndex: %v", err)
	}

	if got, want := decoded.Rank1Range(100, 200), idx.Rank1Range(100, 200); got != want {
		t.Fatalf("decoded Rank1Range = %d, want %d", got, want)
	}
	if got, want := decoded.Select1(5), idx.Select1(5); got != want {
		t.Fatalf("decoded Select1(5) = %d, want %d", got, want)
	}
}

func TestSelect1InverseOfRank1(t *testing.T) {
	const n = 2000
	ba := buildTestArray(n, func(i int) bool { return (i*13+7)%17 == 0 })
	idx := BuildIndex(ba)

	popcount := idx.Rank1(n - 1)
	for k := uint64(1); k <= popcount; k++ {
		pos := idx.Select1(k)
		if !ba.Get(pos) {
			t.Fatalf("Select1(%d) = %d, bit not set", k, pos)
		}
		if idx.Rank1(pos) != k {
			t.Fatalf("Rank1(Select1(%d)=%d) = %d, want %d", k, pos, idx.Rank1(pos), k)
		}
	}
}
