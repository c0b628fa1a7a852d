package layer

import (
	"testing"

	"github.com/veylan/triplestore/internal/adjacency"
	"github.com/veylan/triplestore/internal/idmap"
	"github.com/veylan/triplestore/internal/pfc"
	"github.com/veylan/triplestore/internal/wavelet"
)

// buildAdjacency pushes pairs (already in increasing (left,right) order)
// into a fresh adjacency.Builder and finalizes it.
func buildAdjacency(t *testing.T, pairs [][2]uint64) *adjacency.List {
	t.Helper()
	b := adjacency.NewBuilder()
	for _, p := range pairs {
		if err := b.Push(p[0], p[1]); err != nil {
			t.Fatalf("adjacency Push%v: %v", p, err)
		}
	}
	return b.Finalize()
}

func mustDict(t *testing.T, strs []string) *pfc.Dict {
	t.Helper()
	d, err := pfc.Build(strs)
	if err != nil {
		t.Fatalf("pfc.Build: %v", err)
	}
	return d
}

// testFixture builds the tiny base layer used across layer package
// tests: nodes alice(1) bob(2) carol(3), one value "7"(4), predicates
// knows(1) likes(2), and the triples
//
//	alice knows bob    (1,1,2)
//	alice knows carol  (1,1,3)
//	bob   likes "7"    (2,2,4)
//	carol likes alice  (3,2,1)
func testFixture(t *testing.T) *Layer {
	t.Helper()

	nodeDict := mustDict(t, []string{"alice", "bob", "carol"})
	predicateDict := mustDict(t, []string{"knows", "likes"})
	valueDict := mustDict(t, []string{"7"})

	sp := buildAdjacency(t, [][2]uint64{{1, 1}, {2, 2}, {3, 2}})
	spo := buildAdjacency(t, [][2]uint64{{1, 2}, {1, 3}, {2, 4}, {3, 1}})
	ops := buildAdjacency(t, [][2]uint64{
		{1, adjacency.PackPair(2, 3)},
		{2, adjacency.PackPair(1, 1)},
		{3, adjacency.PackPair(1, 1)},
		{4, adjacency.PackPair(2, 2)},
	})
	predWavelet := wavelet.Build(sp.Nums().Slice(0, sp.Nums().Len()))

	pos := NewSet(sp, spo, ops, predWavelet, nil, nil)

	return New(mustID(t), Base, nil, nodeDict, predicateDict, valueDict,
		idmap.Identity(), idmap.Identity(), 0, 0, pos, nil)
}

func mustID(t *testing.T) ID {
	t.Helper()
	id, err := NewID()
	if err != nil {
		t.Fatalf("NewID: %v", err)
	}
	return id
}
