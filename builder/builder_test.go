package builder_test

import (
	"testing"

	"github.com/veylan/triplestore/builder"
	"github.com/veylan/triplestore/layer"
)

func stmt(s, p, o string) builder.Statement {
	return builder.Statement{Subject: builder.Node(s), Predicate: builder.Node(p), Object: builder.Node(o)}
}

func stmtValue(s, p, v string) builder.Statement {
	return builder.Statement{Subject: builder.Node(s), Predicate: builder.Node(p), Object: builder.Value(v)}
}

func allTriples(t *testing.T, l *layer.Layer) []layer.Triple {
	t.Helper()
	var out []layer.Triple
	it := layer.NewStackIterator(l)
	for {
		tr, ok := it.Next()
		if !ok {
			break
		}
		out = append(out, tr)
	}
	return out
}

func TestBuildBaseLayer(t *testing.T) {
	adds := []builder.Statement{
		stmt("alice", "knows", "bob"),
		stmt("alice", "knows", "carol"),
		stmtValue("bob", "likes", "7"),
		stmt("carol", "likes", "alice"),
	}

	l, err := builder.Build(layer.Base, nil, adds, nil)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if l.Kind() != layer.Base {
		t.Fatalf("Kind() = %v, want Base", l.Kind())
	}
	if l.Parent() != nil {
		t.Fatalf("Parent() = %v, want nil", l.Parent())
	}

	aliceID, ok := l.NodeValueID("alice")
	if !ok {
		t.Fatal("alice not resolved")
	}
	bobID, ok := l.NodeValueID("bob")
	if !ok {
		t.Fatal("bob not resolved")
	}
	knowsID, ok := l.PredicateID("knows")
	if !ok {
		t.Fatal("knows not resolved")
	}

	if !l.HasPositive(layer.Triple{Subject: aliceID, Predicate: knowsID, Object: bobID}) {
		t.Fatal("expected alice knows bob to be present")
	}

	got := allTriples(t, l)
	if len(got) != 4 {
		t.Fatalf("got %d triples, want 4: %+v", len(got), got)
	}

	s, ok := l.NodeValueAt(got[0].Object)
	if !ok {
		t.Fatal("could not resolve first triple's object back to a string")
	}
	_ = s
}

func TestBuildChildLayerAddAndRemove(t *testing.T) {
	base, err := builder.Build(layer.Base, nil, []builder.Statement{
		stmt("alice", "knows", "bob"),
		stmt("alice", "knows", "carol"),
	}, nil)
	if err != nil {
		t.Fatalf("Build(base): %v", err)
	}

	child, err := builder.Build(layer.Child, base,
		[]builder.Statement{stmt("alice", "knows", "dave")},
		[]builder.Statement{stmt("alice", "knows", "bob")},
	)
	if err != nil {
		t.Fatalf("Build(child): %v", err)
	}

	aliceID, _ := base.NodeValueID("alice")
	bobID, _ := base.NodeValueID("bob")
	carolID, _ := base.NodeValueID("carol")
	knowsID, _ := base.PredicateID("knows")
	daveID, ok := child.NodeValueID("dave")
	if !ok {
		t.Fatal("dave not resolved in child")
	}

	if layer.Contains(child, layer.Triple{Subject: aliceID, Predicate: knowsID, Object: bobID}) {
		t.Fatal("removed triple should not be contained")
	}
	if !layer.Contains(child, layer.Triple{Subject: aliceID, Predicate: knowsID, Object: carolID}) {
		t.Fatal("untouched inherited triple should still be contained")
	}
	if !layer.Contains(child, layer.Triple{Subject: aliceID, Predicate: knowsID, Object: daveID}) {
		t.Fatal("newly added triple should be contained")
	}

	got := allTriples(t, child)
	if len(got) != 2 {
		t.Fatalf("got %d effective triples, want 2: %+v", len(got), got)
	}
}

func TestBuildCrossesOffNoOps(t *testing.T) {
	l, err := builder.Build(layer.Base, nil, []builder.Statement{
		stmt("alice", "knows", "bob"),
	}, nil)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	child, err := builder.Build(layer.Child, l,
		[]builder.Statement{stmt("alice", "knows", "carol")},
		[]builder.Statement{stmt("alice", "knows", "carol")},
	)
	if err != nil {
		t.Fatalf("Build(child): %v", err)
	}

	got := allTriples(t, child)
	if len(got) != 1 {
		t.Fatalf("got %d effective triples, want 1 (no-op should cancel out): %+v", len(got), got)
	}
}

// TestBuildBaseLayerSubjectNotLexicographicallySmallest guards against a
// dense s_p/o_ps group indexing bug: when the lexicographically smallest
// node is never used as a subject (here "a" < "b", but "b" is the only
// subject), the base builder must still synthesize the leading empty
// s_p/o_ps groups so the real group lands at its actual subject/object
// position rather than shifting down to position 1.
func TestBuildBaseLayerSubjectNotLexicographicallySmallest(t *testing.T) {
	l, err := builder.Build(layer.Base, nil, []builder.Statement{
		stmt("b", "p", "a"),
	}, nil)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	aID, _ := l.NodeValueID("a")
	bID, _ := l.NodeValueID("b")
	pID, _ := l.PredicateID("p")
	if aID != 1 || bID != 2 {
		t.Fatalf("aID=%d bID=%d, want a=1 b=2 (a sorts first lexicographically)", aID, bID)
	}

	want := layer.Triple{Subject: bID, Predicate: pID, Object: aID}
	if !l.HasPositive(want) {
		t.Fatalf("expected %+v to be present", want)
	}
	if l.HasPositive(layer.Triple{Subject: aID, Predicate: pID, Object: aID}) {
		t.Fatal("(a,p,a) should not be present: it was never added")
	}

	got := allTriples(t, l)
	if len(got) != 1 || got[0] != want {
		t.Fatalf("got %+v, want exactly [%+v]", got, want)
	}
}

func TestBuildDropsUnresolvedRemovals(t *testing.T) {
	l, err := builder.Build(layer.Base, nil, []builder.Statement{
		stmt("alice", "knows", "bob"),
	}, nil)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	child, err := builder.Build(layer.Child, l, nil,
		[]builder.Statement{stmt("nobody", "knows", "nothing")},
	)
	if err != nil {
		t.Fatalf("Build(child): %v", err)
	}

	got := allTriples(t, child)
	if len(got) != 1 {
		t.Fatalf("got %d effective triples, want 1 (unresolved removal should be dropped): %+v", len(got), got)
	}
}
