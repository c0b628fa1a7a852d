// Package builder implements the layer builder (component K): it
// turns a batch of string-or-id-form triples into a finalized,
// immutable layer.Layer.
package builder

import (
	"fmt"
	"sort"

	"golang.org/x/sync/errgroup"

	"github.com/veylan/triplestore/internal/adjacency"
	"github.com/veylan/triplestore/internal/idmap"
	"github.com/veylan/triplestore/internal/logarray"
	"github.com/veylan/triplestore/internal/pfc"
	"github.com/veylan/triplestore/internal/wavelet"
	"github.com/veylan/triplestore/layer"
)

// Ref names one triple component: either an id a caller has already
// resolved, or a raw string awaiting resolution against the parent
// chain (and, failing that, allocation as a new dictionary entry).
type Ref struct {
	id      uint64
	str     string
	isValue bool
}

// Resolved wraps an id-form component.
func Resolved(id uint64) Ref { return Ref{id: id} }

// Node names a graph node by string: valid in subject or object position.
func Node(s string) Ref { return Ref{str: s} }

// Value names a literal by string: object position only. A Value
// string that turns out to already exist as a node elsewhere in the
// chain resolves to that node's id regardless; isValue only decides
// which dictionary a never-before-seen string is allocated into.
func Value(s string) Ref { return Ref{str: s, isValue: true} }

func (r Ref) resolved() bool { return r.id != 0 }

// Statement is one string-or-id-form triple fed to Build.
type Statement struct {
	Subject, Predicate, Object Ref
}

// Build runs the eight-step construction algorithm of component K
// over additions and, for a child layer, removals, returning the
// finalized layer. parent is nil for a base layer. A base layer with
// any removals is a programming error.
func Build(kind layer.Kind, parent *layer.Layer, additions, removals []Statement) (*layer.Layer, error) {
	if kind == layer.Base && len(removals) != 0 {
		panic("builder: a base layer cannot have removals")
	}

	adds := cloneStatements(additions)
	rems := cloneStatements(removals)

	resolveAll(parent, adds)
	resolveAll(parent, rems)

	skipAdd, skipRem := crossOffNoOps(adds, rems)

	if kind != layer.Child {
		rems, skipRem = nil, nil
	} else {
		rems, skipRem = dropUnresolvedRemovals(rems, skipRem)
	}

	var parentNV, parentPred uint64
	if parent != nil {
		parentNV = parent.NodeAndValueCount()
		parentPred = parent.PredicateCount()
	}

	nodeStrs, valueStrs, predStrs := newStrings(adds, skipAdd)

	var nodeDict, valueDict, predDict *pfc.Dict
	var dictErr error
	{
		var g errgroup.Group
		g.Go(func() error {
			d, err := pfc.Build(nodeStrs)
			nodeDict, dictErr = d, firstErr(dictErr, err)
			return nil
		})
		g.Go(func() error {
			d, err := pfc.Build(valueStrs)
			valueDict, dictErr = d, firstErr(dictErr, err)
			return nil
		})
		g.Go(func() error {
			d, err := pfc.Build(predStrs)
			predDict, dictErr = d, firstErr(dictErr, err)
			return nil
		})
		g.Wait()
	}
	if dictErr != nil {
		// new-string sets are deduplicated and sorted by this package
		// itself; a failure here means that invariant was broken.
		panic(fmt.Sprintf("builder: building dictionaries: %v", dictErr))
	}

	finalResolve(adds, skipAdd, nodeDict, valueDict, predDict, parentNV, parentPred)
	finalResolve(rems, skipRem, nodeDict, valueDict, predDict, parentNV, parentPred)

	addTriples := toTriples(adds, skipAdd)
	remTriples := toTriples(rems, skipRem)

	sparse := kind == layer.Child

	var posSP, posSPO, posOPS, negSP, negSPO, negOPS *adjacency.List
	var posWavelet, negWavelet *wavelet.Tree
	var posSubj, posObj, negSubj, negObj *logarray.Monotonic
	{
		var g errgroup.Group
		g.Go(func() error {
			posSP, posSPO, posOPS, posWavelet, posSubj, posObj = buildPolarity(addTriples, sparse)
			return nil
		})
		if kind == layer.Child {
			g.Go(func() error {
				negSP, negSPO, negOPS, negWavelet, negSubj, negObj = buildPolarity(remTriples, sparse)
				return nil
			})
		}
		g.Wait()
	}

	pos := layer.NewSet(posSP, posSPO, posOPS, posWavelet, posSubj, posObj)

	id, err := layer.NewID()
	if err != nil {
		return nil, fmt.Errorf("builder: allocating layer id: %w", err)
	}

	if kind == layer.Child {
		n := layer.NewSet(negSP, negSPO, negOPS, negWavelet, negSubj, negObj)
		return layer.New(id, kind, parent, nodeDict, predDict, valueDict,
			idmap.Identity(), idmap.Identity(), parentNV, parentPred, pos, &n), nil
	}
	return layer.New(id, kind, parent, nodeDict, predDict, valueDict,
		idmap.Identity(), idmap.Identity(), parentNV, parentPred, pos, nil), nil
}

func cloneStatements(in []Statement) []Statement {
	return append([]Statement(nil), in...)
}

// resolveAll looks up every still-unresolved ref in stmts against
// parent's chain, in place. Leaves a ref unresolved (id==0) when
// parent is nil or the string is not found anywhere in the chain.
func resolveAll(parent *layer.Layer, stmts []Statement) {
	if parent == nil {
		return
	}
	for i := range stmts {
		s := &stmts[i]
		if !s.Subject.resolved() {
			if id, ok := parent.NodeValueID(s.Subject.str); ok {
				s.Subject.id = id
			}
		}
		if !s.Predicate.resolved() {
			if id, ok := parent.PredicateID(s.Predicate.str); ok {
				s.Predicate.id = id
			}
		}
		if !s.Object.resolved() {
			if id, ok := parent.NodeValueID(s.Object.str); ok {
				s.Object.id = id
			}
		}
	}
}

// refKey returns a comparable key distinguishing resolved ids from
// unresolved strings, so two refs compare equal only when both are in
// the same resolution state and hold the same value.
func refKey(r Ref) string {
	if r.resolved() {
		return fmt.Sprintf("id:%d", r.id)
	}
	if r.isValue {
		return "val:" + r.str
	}
	return "node:" + r.str
}

func stmtKey(s Statement) string {
	return refKey(s.Subject) + "|" + refKey(s.Predicate) + "|" + refKey(s.Object)
}

// crossOffNoOps marks, for each side, which statements also appear
// (structurally identical, component by component) on the other side:
// a triple that is both added and removed by the same builder call is
// a no-op (spec.md component K, step 2) and is skipped entirely.
func crossOffNoOps(adds, rems []Statement) (skipAdd, skipRem []bool) {
	skipAdd = make([]bool, len(adds))
	skipRem = make([]bool, len(rems))

	remByKey := make(map[string][]int, len(rems))
	for i, s := range rems {
		k := stmtKey(s)
		remByKey[k] = append(remByKey[k], i)
	}

	for i, s := range adds {
		k := stmtKey(s)
		cands := remByKey[k]
		for ci, ri := range cands {
			if !skipRem[ri] {
				skipAdd[i] = true
				skipRem[ri] = true
				remByKey[k] = append(cands[:ci], cands[ci+1:]...)
				break
			}
		}
	}
	return skipAdd, skipRem
}

// dropUnresolvedRemovals discards any removal statement that still
// has an unresolved component: it cannot refer to an existing triple
// in the ancestor chain, so the builder elides it (spec.md step 3).
func dropUnresolvedRemovals(rems []Statement, skip []bool) ([]Statement, []bool) {
	out := make([]Statement, 0, len(rems))
	outSkip := make([]bool, 0, len(rems))
	for i, s := range rems {
		if skip[i] {
			continue // already a no-op; never contributes a removal
		}
		if !s.Subject.resolved() || !s.Predicate.resolved() || !s.Object.resolved() {
			continue
		}
		out = append(out, s)
		outSkip = append(outSkip, false)
	}
	return out, outSkip
}

// newStrings collects the distinct, lex-sorted strings that additions
// introduce in each of the three dictionary spaces, excluding no-op
// statements (which never need an allocated id).
func newStrings(adds []Statement, skip []bool) (nodes, values, preds []string) {
	nodeSet := map[string]bool{}
	valueSet := map[string]bool{}
	predSet := map[string]bool{}

	for i, s := range adds {
		if skip != nil && skip[i] {
			continue
		}
		if !s.Subject.resolved() {
			nodeSet[s.Subject.str] = true
		}
		if !s.Predicate.resolved() {
			predSet[s.Predicate.str] = true
		}
		if !s.Object.resolved() {
			if s.Object.isValue {
				valueSet[s.Object.str] = true
			} else {
				nodeSet[s.Object.str] = true
			}
		}
	}

	return sortedKeys(nodeSet), sortedKeys(valueSet), sortedKeys(predSet)
}

func sortedKeys(m map[string]bool) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// finalResolve assigns a final id to every still-unresolved ref in
// stmts, now that the new dictionaries exist: a new node's id is
// parentNV plus its 1-based position in nodeDict, a new value's id is
// parentNV plus nodeDict.Len() plus its position in valueDict, and a
// new predicate's id is parentPred plus its position in predDict.
func finalResolve(stmts []Statement, skip []bool, nodeDict, valueDict, predDict *pfc.Dict, parentNV, parentPred uint64) {
	for i := range stmts {
		if skip != nil && skip[i] {
			continue
		}
		s := &stmts[i]
		if !s.Subject.resolved() {
			s.Subject.id = resolveNode(s.Subject.str, nodeDict, parentNV)
		}
		if !s.Predicate.resolved() {
			s.Predicate.id = resolvePredicate(s.Predicate.str, predDict, parentPred)
		}
		if !s.Object.resolved() {
			if s.Object.isValue {
				s.Object.id = resolveValue(s.Object.str, nodeDict, valueDict, parentNV)
			} else {
				s.Object.id = resolveNode(s.Object.str, nodeDict, parentNV)
			}
		}
	}
}

func resolveNode(s string, nodeDict *pfc.Dict, parentNV uint64) uint64 {
	id, kind := nodeDict.ID(s)
	if kind != pfc.Found {
		panic(fmt.Sprintf("builder: node %q not found in its own freshly built dictionary", s))
	}
	return parentNV + uint64(id)
}

func resolveValue(s string, nodeDict, valueDict *pfc.Dict, parentNV uint64) uint64 {
	id, kind := valueDict.ID(s)
	if kind != pfc.Found {
		panic(fmt.Sprintf("builder: value %q not found in its own freshly built dictionary", s))
	}
	return parentNV + uint64(nodeDict.Len()) + uint64(id)
}

func resolvePredicate(s string, predDict *pfc.Dict, parentPred uint64) uint64 {
	id, kind := predDict.ID(s)
	if kind != pfc.Found {
		panic(fmt.Sprintf("builder: predicate %q not found in its own freshly built dictionary", s))
	}
	return parentPred + uint64(id)
}

// toTriples translates fully-resolved statements to sorted, deduped
// layer.Triple values, dropping any marked as a no-op.
func toTriples(stmts []Statement, skip []bool) []layer.Triple {
	out := make([]layer.Triple, 0, len(stmts))
	for i, s := range stmts {
		if skip != nil && skip[i] {
			continue
		}
		out = append(out, layer.Triple{Subject: s.Subject.id, Predicate: s.Predicate.id, Object: s.Object.id})
	}
	sort.Slice(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.Subject != b.Subject {
			return a.Subject < b.Subject
		}
		if a.Predicate != b.Predicate {
			return a.Predicate < b.Predicate
		}
		return a.Object < b.Object
	})
	return dedupeTriples(out)
}

func dedupeTriples(sorted []layer.Triple) []layer.Triple {
	out := sorted[:0]
	for i, t := range sorted {
		if i == 0 || t != sorted[i-1] {
			out = append(out, t)
		}
	}
	return out
}

func firstErr(have, next error) error {
	if have != nil {
		return have
	}
	return next
}

// buildPolarity writes the s_p, sp_o, and o_ps adjacency lists plus
// the predicate wavelet tree for one polarity's sorted, deduped
// triples (component K, steps 6-7). sparse selects whether subject and
// object ids are translated through freshly-built position tables (a
// child layer's delta, which never covers its domain densely) or used
// as direct 1-based left ids (a base layer's dense space).
func buildPolarity(triples []layer.Triple, sparse bool) (sp, spo, ops *adjacency.List, predWavelet *wavelet.Tree, subjects, objects *logarray.Monotonic) {
	if len(triples) == 0 {
		return nil, nil, nil, nil, nil, nil
	}

	subjectPos, subjects := positionFunc(triples, sparse, func(t layer.Triple) uint64 { return t.Subject })
	objectPos, objects := positionFunc(triples, sparse, func(t layer.Triple) uint64 { return t.Object })

	spB := adjacency.NewBuilder()
	spoB := adjacency.NewBuilder()

	var lastSubj, lastPred uint64
	haveGroup := false
	rawPos := uint64(0)

	for _, t := range triples {
		sPos := subjectPos(t.Subject)
		if !haveGroup || sPos != lastSubj || t.Predicate != lastPred {
			var gap uint64
			switch {
			case !haveGroup:
				// first group: spB will synthesize sPos-1 leading empty
				// groups before it (see adjacency.Builder.Push), so this
				// group's raw position is sPos, not 1.
				gap = sPos - 1
			case sPos != lastSubj:
				gap = sPos - lastSubj - 1
			}
			rawPos += gap + 1
			must(spB.Push(sPos, t.Predicate))
			lastSubj, lastPred, haveGroup = sPos, t.Predicate, true
		}
		must(spoB.Push(rawPos, t.Object))
	}
	sp = spB.Finalize()
	spo = spoB.Finalize()
	predWavelet = wavelet.Build(sp.Nums().Slice(0, sp.Nums().Len()))

	type pair struct{ left, pack uint64 }
	pairs := make([]pair, 0, len(triples))
	for _, t := range triples {
		pairs = append(pairs, pair{left: objectPos(t.Object), pack: adjacency.PackPair(t.Predicate, t.Subject)})
	}
	sort.Slice(pairs, func(i, j int) bool {
		if pairs[i].left != pairs[j].left {
			return pairs[i].left < pairs[j].left
		}
		return pairs[i].pack < pairs[j].pack
	})
	opsB := adjacency.NewBuilder()
	for _, p := range pairs {
		must(opsB.Push(p.left, p.pack))
	}
	ops = opsB.Finalize()

	return sp, spo, ops, predWavelet, subjects, objects
}

// positionFunc returns a translator from a global id to its 1-based
// left-id position, plus the side table backing it when sparse (or
// nil when dense, in which case the translator is the identity).
func positionFunc(triples []layer.Triple, sparse bool, component func(layer.Triple) uint64) (func(uint64) uint64, *logarray.Monotonic) {
	if !sparse {
		return func(id uint64) uint64 { return id }, nil
	}

	seen := map[uint64]bool{}
	var distinct []uint64
	for _, t := range triples {
		v := component(t)
		if !seen[v] {
			seen[v] = true
			distinct = append(distinct, v)
		}
	}
	sort.Slice(distinct, func(i, j int) bool { return distinct[i] < distinct[j] })

	rank := make(map[uint64]uint64, len(distinct))
	for i, v := range distinct {
		rank[v] = uint64(i) + 1
	}
	table := logarray.NewMonotonic(logarray.New(distinct))
	return func(id uint64) uint64 { return rank[id] }, table
}

func must(err error) {
	if err != nil {
		panic(fmt.Sprintf("builder: %v", err))
	}
}
