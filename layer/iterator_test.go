package layer

import (
	"testing"

	"github.com/veylan/triplestore/internal/adjacency"
)

func allTriples(t *testing.T, it TripleIterator) []Triple {
	t.Helper()
	var out []Triple
	for {
		tr, ok := it.Next()
		if !ok {
			break
		}
		out = append(out, tr)
	}
	return out
}

func wantTriples(t *testing.T, got, want []Triple) {
	t.Helper()
	if len(got) != len(want) {
		t.Fatalf("got %d triples %+v, want %d %+v", len(got), got, len(want), want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("triple %d = %+v, want %+v (full got %+v)", i, got[i], want[i], got)
		}
	}
}

func TestSubjectIteratorOrder(t *testing.T) {
	l := testFixture(t)
	got := allTriples(t, NewSubjectIterator(&l.pos))
	wantTriples(t, got, []Triple{
		{1, 1, 2},
		{1, 1, 3},
		{2, 2, 4},
		{3, 2, 1},
	})
}

func TestSubjectIteratorSeek(t *testing.T) {
	l := testFixture(t)

	it := NewSubjectIterator(&l.pos)
	it.SeekSubject(2)
	got := allTriples(t, it)
	wantTriples(t, got, []Triple{{2, 2, 4}, {3, 2, 1}})

	it2 := NewSubjectIterator(&l.pos)
	it2.SeekSubjectPredicate(1, 1)
	got2 := allTriples(t, it2)
	wantTriples(t, got2, []Triple{{1, 1, 2}, {1, 1, 3}, {2, 2, 4}, {3, 2, 1}})
}

func TestPredicateIteratorOrder(t *testing.T) {
	l := testFixture(t)

	got := allTriples(t, NewPredicateIterator(&l.pos, 2))
	wantTriples(t, got, []Triple{{2, 2, 4}, {3, 2, 1}})

	got1 := allTriples(t, NewPredicateIterator(&l.pos, 1))
	wantTriples(t, got1, []Triple{{1, 1, 2}, {1, 1, 3}})
}

func TestObjectIteratorOrder(t *testing.T) {
	l := testFixture(t)

	got := allTriples(t, NewObjectIterator(&l.pos))
	wantTriples(t, got, []Triple{
		{3, 2, 1},
		{1, 1, 2},
		{1, 1, 3},
		{2, 2, 4},
	})
}

// TestObjectIteratorOrdersPairsLexicographically guards against a
// regression where a single object's (predicate, subject) pairs were
// emitted in raw Cantor-pack storage order instead of lexicographic
// (predicate, subject) order: pack(2,1)=2 sorts before pack(1,3)=6
// even though predicate 1 should come first.
func TestObjectIteratorOrdersPairsLexicographically(t *testing.T) {
	ops := buildAdjacency(t, [][2]uint64{
		{1, adjacency.PackPair(2, 1)},
		{1, adjacency.PackPair(1, 3)},
	})
	s := set{ops: ops}

	got := allTriples(t, NewObjectIterator(&s))
	wantTriples(t, got, []Triple{
		{Subject: 3, Predicate: 1, Object: 1},
		{Subject: 1, Predicate: 2, Object: 1},
	})
}

func TestObjectIteratorSeek(t *testing.T) {
	l := testFixture(t)

	it := NewObjectIterator(&l.pos)
	it.SeekObject(3)
	got := allTriples(t, it)
	wantTriples(t, got, []Triple{{1, 1, 3}, {2, 2, 4}})
}
