package wavelet

import "testing"

func TestAccessRoundTrip(t *testing.T) {
	seq := []uint64{3, 1, 4, 1, 5, 9, 2, 6, 5, 3, 5}
	tr := Build(seq)
	if tr.Len() != uint64(len(seq)) {
		t.Fatalf("Len() = %d, want %d", tr.Len(), len(seq))
	}
	for i, want := range seq {
		if got := tr.Access(uint64(i)); got != want {
			t.Fatalf("Access(%d) = %d, want %d", i, got, want)
		}
	}
}

func TestCountAndSelect(t *testing.T) {
	seq := []uint64{3, 1, 4, 1, 5, 9, 2, 6, 5, 3, 5}
	tr := Build(seq)

	want := map[uint64][]uint64{
		1: {1, 3},
		5: {4, 8, 10},
		3: {0, 9},
		9: {5},
		2: {6},
	}
	for symbol, positions := range want {
		if got := tr.Count(symbol); got != uint64(len(positions)) {
			t.Fatalf("Count(%d) = %d, want %d", symbol, got, len(positions))
		}
		for k, pos := range positions {
			got, ok := tr.Select(symbol, uint64(k+1))
			if !ok || got != pos {
				t.Fatalf("Select(%d,%d) = %d,%v, want %d,true", symbol, k+1, got, ok, pos)
			}
		}
	}

	if _, ok := tr.Select(3, 3); ok {
		t.Fatal("Select beyond Count should return false")
	}
	if got := tr.Count(42); got != 0 {
		t.Fatalf("Count(42) = %d, want 0 (symbol absent)", got)
	}
}

func TestLookupIteratesAscending(t *testing.T) {
	seq := []uint64{3, 1, 4, 1, 5, 9, 2, 6, 5, 3, 5}
	tr := Build(seq)

	it := tr.Lookup(5)
	var got []uint64
	for {
		pos, ok := it.Next()
		if !ok {
			break
		}
		got = append(got, pos)
	}
	want := []uint64{4, 8, 10}
	if len(got) != len(want) {
		t.Fatalf("Lookup(5) = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("Lookup(5) = %v, want %v", got, want)
		}
	}
}

func TestEncodeDecode(t *testing.T) {
	seq := []uint64{3, 1, 4, 1, 5, 9, 2, 6, 5, 3, 5}
	tr := Build(seq)
	files := Encode(tr)

	decoded, err := Decode(files, uint64(len(seq)))
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	for i, want := range seq {
		if got := decoded.Access(uint64(i)); got != want {
			t.Fatalf("decoded Access(%d) = %d, want %d", i, got, want)
		}
	}
	if got := decoded.Count(5); got != 3 {
		t.Fatalf("decoded Count(5) = %d, want 3", got)
	}
}

func TestEmptySequence(t *testing.T) {
	tr := Build(nil)
	if tr.Len() != 0 {
		t.Fatalf("Len() = %d, want 0", tr.Len())
	}
	if got := tr.Count(0); got != 0 {
		t.Fatalf("Count(0) = %d, want 0", got)
	}
}

func TestSingleDistinctSymbol(t *testing.T) {
	seq := []uint64{7, 7, 7, 7}
	tr := Build(seq)
	if got := tr.Count(7); got != 4 {
		t.Fatalf("Count(7) = %d, want 4", got)
	}
	for i := uint64(0); i < 4; i++ {
		if got := tr.Access(i); got != 7 {
			t.Fatalf("Access(%d) = %d, want 7", i, got)
		}
	}
}
