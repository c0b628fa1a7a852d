package layer

import (
	"testing"

	"github.com/veylan/triplestore/internal/adjacency"
	"github.com/veylan/triplestore/internal/idmap"
	"github.com/veylan/triplestore/internal/logarray"
	"github.com/veylan/triplestore/internal/wavelet"
)

func TestNodeValueAndPredicateLookup(t *testing.T) {
	l := testFixture(t)

	cases := []struct {
		s  string
		id uint64
	}{
		{"alice", 1}, {"bob", 2}, {"carol", 3}, {"7", 4},
	}
	for _, c := range cases {
		got, ok := l.NodeValueID(c.s)
		if !ok || got != c.id {
			t.Fatalf("NodeValueID(%q) = %d,%v, want %d,true", c.s, got, ok, c.id)
		}
		s, ok := l.NodeValueAt(c.id)
		if !ok || s != c.s {
			t.Fatalf("NodeValueAt(%d) = %q,%v, want %q,true", c.id, s, ok, c.s)
		}
	}

	if _, ok := l.NodeValueID("dave"); ok {
		t.Fatal("NodeValueID(\"dave\") found, want not found")
	}

	predCases := []struct {
		s  string
		id uint64
	}{{"knows", 1}, {"likes", 2}}
	for _, c := range predCases {
		got, ok := l.PredicateID(c.s)
		if !ok || got != c.id {
			t.Fatalf("PredicateID(%q) = %d,%v, want %d,true", c.s, got, ok, c.id)
		}
		s, ok := l.PredicateAt(c.id)
		if !ok || s != c.s {
			t.Fatalf("PredicateAt(%d) = %q,%v, want %q,true", c.id, s, ok, c.s)
		}
	}
}

func TestHasPositiveAndNegative(t *testing.T) {
	l := testFixture(t)

	present := []Triple{
		{Subject: 1, Predicate: 1, Object: 2},
		{Subject: 1, Predicate: 1, Object: 3},
		{Subject: 2, Predicate: 2, Object: 4},
		{Subject: 3, Predicate: 2, Object: 1},
	}
	for _, tr := range present {
		if !l.HasPositive(tr) {
			t.Fatalf("HasPositive(%+v) = false, want true", tr)
		}
	}

	absent := []Triple{
		{Subject: 1, Predicate: 2, Object: 2},
		{Subject: 4, Predicate: 1, Object: 1},
		{Subject: 2, Predicate: 1, Object: 4},
	}
	for _, tr := range absent {
		if l.HasPositive(tr) {
			t.Fatalf("HasPositive(%+v) = true, want false", tr)
		}
	}

	if l.HasNegative(present[0]) {
		t.Fatal("HasNegative on a base layer, want always false")
	}
}

func TestChildLayerChainResolution(t *testing.T) {
	parent := testFixture(t)

	childNodeDict := mustDict(t, []string{"dave"})
	childPredicateDict := mustDict(t, []string{"owns"})
	childValueDict := mustDict(t, []string{})

	childSP := buildAdjacency(t, [][2]uint64{{1, 3}})
	childSPO := buildAdjacency(t, [][2]uint64{{1, 6}})
	childOPS := buildAdjacency(t, [][2]uint64{{6, adjacency.PackPair(3, 5)}})
	childWavelet := wavelet.Build(childSP.Nums().Slice(0, childSP.Nums().Len()))
	childSubjects := logarray.NewMonotonic(logarray.New([]uint64{5}))
	pos := NewSet(childSP, childSPO, childOPS, childWavelet, childSubjects, nil)

	child := New(mustID(t), Child, parent, childNodeDict, childPredicateDict, childValueDict,
		idmap.Identity(), idmap.Identity(), parent.NodeAndValueCount(), parent.PredicateCount(), pos, nil)

	if got, ok := child.NodeValueID("dave"); !ok || got != 5 {
		t.Fatalf("NodeValueID(dave) = %d,%v, want 5,true", got, ok)
	}
	if got, ok := child.NodeValueID("alice"); !ok || got != 1 {
		t.Fatalf("NodeValueID(alice) via parent = %d,%v, want 1,true", got, ok)
	}
	if got, ok := child.PredicateID("owns"); !ok || got != 3 {
		t.Fatalf("PredicateID(owns) = %d,%v, want 3,true", got, ok)
	}
	if got, ok := child.PredicateID("knows"); !ok || got != 1 {
		t.Fatalf("PredicateID(knows) via parent = %d,%v, want 1,true", got, ok)
	}

	if !child.HasPositive(Triple{Subject: 5, Predicate: 3, Object: 6}) {
		t.Fatal("child HasPositive(dave owns 6) = false, want true")
	}
	if !Contains(child, Triple{Subject: 1, Predicate: 1, Object: 2}) {
		t.Fatal("Contains(child, alice knows bob) = false, want true (inherited from parent)")
	}
}

func TestWithRollupPreservesIdentity(t *testing.T) {
	original := testFixture(t)
	target := testFixture(t)

	rolled := WithRollup(original, target)

	if rolled.ID() != original.ID() {
		t.Fatal("WithRollup changed identity")
	}
	if !rolled.IsRolledUp() || rolled.RollupTarget() != target {
		t.Fatal("WithRollup did not record the rollup target")
	}
	if !rolled.HasPositive(Triple{Subject: 1, Predicate: 1, Object: 2}) {
		t.Fatal("rolled-up layer should delegate data reads to its target")
	}
}
