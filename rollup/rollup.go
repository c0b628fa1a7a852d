// Package rollup implements layer rollup (component L): collapsing a
// layer's effective triple set, or the delta between a layer and one
// of its ancestors, into a single freshly-built layer.
//
// Both the full and bounded forms translate their source triples back
// to strings and hand them to builder.Build, which already performs
// exactly the dictionary-merge, id-allocation, adjacency-list, and
// wavelet construction component L's algorithm calls for — rollup's
// own job is choosing which triples to feed it and whether the result
// is a base or a child layer.
package rollup

import (
	"fmt"

	"github.com/veylan/triplestore/builder"
	"github.com/veylan/triplestore/layer"
)

// Full produces a single base layer whose triple set equals l's
// effective set (spec.md §4.L, full rollup).
func Full(l *layer.Layer) (*layer.Layer, error) {
	adds, err := statementsFrom(l, layer.NewStackIterator(l))
	if err != nil {
		return nil, err
	}
	return builder.Build(layer.Base, nil, adds, nil)
}

// Bounded produces a child layer, parented at u, whose positive and
// negative deltas collapse every layer between l and u (spec.md §4.L,
// bounded rollup). u must be an in-memory ancestor of l; see SafeUpto.
func Bounded(l, u *layer.Layer) (*layer.Layer, error) {
	var adds, rems []builder.Statement
	it := layer.NewChangeIterator(l, u)
	for {
		t, tag, ok := it.Next()
		if !ok {
			break
		}
		stmt, err := statementFrom(l, t)
		if err != nil {
			return nil, err
		}
		if tag == layer.Addition {
			adds = append(adds, stmt)
		} else {
			rems = append(rems, stmt)
		}
	}
	return builder.Build(layer.Child, u, adds, rems)
}

// SafeUpto implements spec.md §4.L's "safe upto bound": if requested
// is not among l's in-memory ancestors, the deepest in-memory ancestor
// reached while walking up from l is used instead. Callers that also
// need "known to the store" (the other half of the spec's rule) apply
// that filter themselves before calling SafeUpto, or re-walk the
// result through their own registry.
func SafeUpto(l, requested *layer.Layer) *layer.Layer {
	var deepest *layer.Layer
	for cur := l; cur != nil; cur = cur.Parent() {
		if cur == requested {
			return requested
		}
		deepest = cur
	}
	return deepest
}

func statementsFrom(l *layer.Layer, it layer.TripleIterator) ([]builder.Statement, error) {
	var out []builder.Statement
	for {
		t, ok := it.Next()
		if !ok {
			break
		}
		stmt, err := statementFrom(l, t)
		if err != nil {
			return nil, err
		}
		out = append(out, stmt)
	}
	return out, nil
}

// statementFrom translates an id-form triple, resolved against l's
// full chain, back to the string-or-value statement builder.Build
// expects.
func statementFrom(l *layer.Layer, t layer.Triple) (builder.Statement, error) {
	subj, ok := l.NodeValueAt(t.Subject)
	if !ok {
		return builder.Statement{}, fmt.Errorf("rollup: subject id %d not resolvable in chain", t.Subject)
	}
	pred, ok := l.PredicateAt(t.Predicate)
	if !ok {
		return builder.Statement{}, fmt.Errorf("rollup: predicate id %d not resolvable in chain", t.Predicate)
	}
	obj, ok := l.NodeValueAt(t.Object)
	if !ok {
		return builder.Statement{}, fmt.Errorf("rollup: object id %d not resolvable in chain", t.Object)
	}

	object := builder.Node(obj)
	if l.NodeValueIsValue(t.Object) {
		object = builder.Value(obj)
	}
	return builder.Statement{
		Subject:   builder.Node(subj),
		Predicate: builder.Node(pred),
		Object:    object,
	}, nil
}
