package layer

import (
	"github.com/veylan/triplestore/internal/adjacency"
	"github.com/veylan/triplestore/internal/idmap"
	"github.com/veylan/triplestore/internal/logarray"
	"github.com/veylan/triplestore/internal/pfc"
	"github.com/veylan/triplestore/internal/wavelet"
)

// Triple is a resolved (subject, predicate, object) id tuple.
type Triple struct {
	Subject, Predicate, Object uint64
}

// Tag marks a triple as contributed by an addition or a removal set,
// used by stack_change_iterator (component J).
type Tag int

const (
	Addition Tag = iota
	Removal
)

func (t Tag) String() string {
	if t == Removal {
		return "Removal"
	}
	return "Addition"
}

// Kind distinguishes a base layer (no parent, dense id space) from a
// child layer (parent plus sparse pos/neg deltas). Rollup is not a
// third Kind: it is a thin identity override (see WithRollup) whose
// Kind mirrors the layer it substitutes.
type Kind int

const (
	Base Kind = iota
	Child
)

func (k Kind) String() string {
	if k == Child {
		return "Child"
	}
	return "Base"
}

// set bundles the three adjacency lists, predicate wavelet tree, and
// sparse subject/object indexes of one polarity (positive or negative).
type set struct {
	sp, spo, ops *adjacency.List
	predWavelet  *wavelet.Tree
	subjects     *logarray.Monotonic
	objects      *logarray.Monotonic
}

// Layer is the unified Base/Child/Rollup representation (component H):
// a tagged variant, per spec.md §9's design note, rather than separate
// types per kind.
type Layer struct {
	id     ID
	kind   Kind
	parent *Layer // nil for a base layer, or when the parent is not loaded in memory

	nodeDict, predicateDict, valueDict *pfc.Dict
	nodeValueIDMap, predicateIDMap     *idmap.Map

	// cumulative counts *through this layer's parent* (the idmap's base
	// and the global id offset for this layer's own dictionary entries).
	parentNodeValueCount uint64
	parentPredicateCount uint64

	pos set
	neg *set // nil on a base layer

	rollupTarget *Layer // non-nil when this layer has been rolled up
}

// New assembles a Layer from its decoded parts. parent may be nil for
// a base layer. neg is nil for a base layer's set (bases have no
// removals to represent).
func New(id ID, kind Kind, parent *Layer, nodeDict, predicateDict, valueDict *pfc.Dict, nodeValueIDMap, predicateIDMap *idmap.Map, parentNodeValueCount, parentPredicateCount uint64, pos set, neg *set) *Layer {
	return &Layer{
		id:                   id,
		kind:                 kind,
		parent:               parent,
		nodeDict:             nodeDict,
		predicateDict:        predicateDict,
		valueDict:            valueDict,
		nodeValueIDMap:       nodeValueIDMap,
		predicateIDMap:       predicateIDMap,
		parentNodeValueCount: parentNodeValueCount,
		parentPredicateCount: parentPredicateCount,
		pos:                  pos,
		neg:                  neg,
	}
}

// NewSet builds a set value for use with New.
func NewSet(sp, spo, ops *adjacency.List, predWavelet *wavelet.Tree, subjects, objects *logarray.Monotonic) set {
	return set{sp: sp, spo: spo, ops: ops, predWavelet: predWavelet, subjects: subjects, objects: objects}
}

// WithRollup returns a copy of original whose identity (ID, Parent)
// is unchanged but whose data operations delegate to target — the
// Rollup variant of spec.md §4.H/§9: "composes by delegating most
// operations to its inner layer but overriding identity."
func WithRollup(original, target *Layer) *Layer {
	cp := *original
	cp.rollupTarget = target
	return &cp
}

// data returns the layer whose fields actually back data operations,
// following a rollup substitution if present.
func (l *Layer) data() *Layer {
	if l.rollupTarget != nil {
		return l.rollupTarget.data()
	}
	return l
}

// ID returns this layer's identity, which a rollup substitution never changes.
func (l *Layer) ID() ID { return l.id }

// Kind reports whether this layer is a base or a child.
func (l *Layer) Kind() Kind { return l.kind }

// Parent returns the in-memory parent link, or nil if this is a base
// layer or the parent has not been loaded.
func (l *Layer) Parent() *Layer { return l.parent }

// SetParent attaches the in-memory parent link after loading (used by
// a layer store once it resolves a persisted parent id to a layer).
func (l *Layer) SetParent(p *Layer) { l.parent = p }

// IsRolledUp reports whether this layer has a substituted data source.
func (l *Layer) IsRolledUp() bool { return l.rollupTarget != nil }

// RollupTarget returns the layer whose data this layer's operations
// are delegated to, or nil if this layer has not been rolled up.
func (l *Layer) RollupTarget() *Layer { return l.rollupTarget }

// NodeAndValueCount returns the cumulative node+value count through
// (and including) this layer.
func (l *Layer) NodeAndValueCount() uint64 {
	d := l.data()
	return d.parentNodeValueCount + uint64(d.nodeDict.Len()) + uint64(d.valueDict.Len())
}

// PredicateCount returns the cumulative predicate count through (and
// including) this layer.
func (l *Layer) PredicateCount() uint64 {
	d := l.data()
	return d.parentPredicateCount + uint64(d.predicateDict.Len())
}

// localNodeValueID resolves a string to this layer's own local
// node/value dictionary id-space (nodes numbered first, then values),
// without walking the parent chain.
func (l *Layer) localNodeValueID(s string) (local uint64, found pfc.FoundKind) {
	d := l.data()
	if id, kind := d.nodeDict.ID(s); kind == pfc.Found {
		return uint64(id), pfc.Found
	}
	if id, kind := d.valueDict.ID(s); kind == pfc.Found {
		return uint64(d.nodeDict.Len()) + uint64(id), pfc.Found
	}
	return 0, pfc.NotFound
}

// NodeValueID resolves a node or value string to its global inner
// (lexicographic) id by walking this layer's parent chain, per
// spec.md §9: "Dictionary lookup in a deep chain: string -> id walks
// parents until a hit, then adds the parent's cumulative count."
func (l *Layer) NodeValueID(s string) (uint64, bool) {
	d := l.data()
	if local, found := d.localNodeValueID(s); found == pfc.Found {
		outer := d.parentNodeValueCount + local
		return d.nodeValueIDMap.OuterToInner(outer), true
	}
	if d.parent != nil {
		return d.parent.NodeValueID(s)
	}
	return 0, false
}

// PredicateID resolves a predicate string to its global inner id.
func (l *Layer) PredicateID(s string) (uint64, bool) {
	d := l.data()
	if id, kind := d.predicateDict.ID(s); kind == pfc.Found {
		outer := d.parentPredicateCount + uint64(id)
		return d.predicateIDMap.OuterToInner(outer), true
	}
	if d.parent != nil {
		return d.parent.PredicateID(s)
	}
	return 0, false
}

// NodeValueAt resolves a global inner node/value id back to its
// string, by finding the layer in the chain whose range contains the
// id's outer form.
func (l *Layer) NodeValueAt(id uint64) (string, bool) {
	d := l.data()
	outer := d.nodeValueIDMap.InnerToOuter(id)
	if outer <= d.parentNodeValueCount {
		// ids <= base pass through idmap as identity, so outer is
		// already the parent's own global inner id.
		if d.parent != nil {
			return d.parent.NodeValueAt(outer)
		}
		return "", false
	}
	local := outer - d.parentNodeValueCount
	nlen := uint64(d.nodeDict.Len())
	if local <= nlen {
		return d.nodeDict.Get(int(local))
	}
	return d.valueDict.Get(int(local - nlen))
}

// NodeValueIsValue reports whether id names a value-dictionary entry
// rather than a node, by retracing NodeValueAt's chain walk without
// paying for the string decode.
func (l *Layer) NodeValueIsValue(id uint64) bool {
	d := l.data()
	outer := d.nodeValueIDMap.InnerToOuter(id)
	if outer <= d.parentNodeValueCount {
		if d.parent != nil {
			return d.parent.NodeValueIsValue(outer)
		}
		return false
	}
	local := outer - d.parentNodeValueCount
	return local > uint64(d.nodeDict.Len())
}

// PredicateAt resolves a global inner predicate id back to its string.
func (l *Layer) PredicateAt(id uint64) (string, bool) {
	d := l.data()
	outer := d.predicateIDMap.InnerToOuter(id)
	if outer <= d.parentPredicateCount {
		if d.parent != nil {
			return d.parent.PredicateAt(outer)
		}
		return "", false
	}
	local := outer - d.parentPredicateCount
	return d.predicateDict.Get(int(local))
}

// PosSP, PosSPO, PosOPS, PosWavelet, PosSubjects, PosObjects expose the
// positive (addition) structures; every layer, base or child, has them.
func (l *Layer) PosSP() *adjacency.List             { return l.data().pos.sp }
func (l *Layer) PosSPO() *adjacency.List            { return l.data().pos.spo }
func (l *Layer) PosOPS() *adjacency.List            { return l.data().pos.ops }
func (l *Layer) PosWavelet() *wavelet.Tree          { return l.data().pos.predWavelet }
func (l *Layer) PosSubjects() *logarray.Monotonic   { return l.data().pos.subjects }
func (l *Layer) PosObjects() *logarray.Monotonic    { return l.data().pos.objects }

// NegSP, NegSPO, NegOPS, NegWavelet, NegSubjects, NegObjects expose the
// negative (removal) structures; nil on a base layer.
func (l *Layer) NegSP() *adjacency.List {
	if n := l.data().neg; n != nil {
		return n.sp
	}
	return nil
}
func (l *Layer) NegSPO() *adjacency.List {
	if n := l.data().neg; n != nil {
		return n.spo
	}
	return nil
}
func (l *Layer) NegOPS() *adjacency.List {
	if n := l.data().neg; n != nil {
		return n.ops
	}
	return nil
}
func (l *Layer) NegWavelet() *wavelet.Tree {
	if n := l.data().neg; n != nil {
		return n.predWavelet
	}
	return nil
}
func (l *Layer) NegSubjects() *logarray.Monotonic {
	if n := l.data().neg; n != nil {
		return n.subjects
	}
	return nil
}
func (l *Layer) NegObjects() *logarray.Monotonic {
	if n := l.data().neg; n != nil {
		return n.objects
	}
	return nil
}

// HasPositive reports whether t is a member of exactly this layer's
// positive set (no chain walking).
func (l *Layer) HasPositive(t Triple) bool { return hasInSet(&l.data().pos, t) }

// HasNegative reports whether t is a member of exactly this layer's
// negative set (always false on a base layer).
func (l *Layer) HasNegative(t Triple) bool {
	n := l.data().neg
	if n == nil {
		return false
	}
	return hasInSet(n, t)
}

func hasInSet(s *set, t Triple) bool {
	if s == nil || s.sp == nil {
		return false
	}
	pos, ok := subjectPosition(s, t.Subject)
	if !ok {
		return false
	}
	key, ok := spoKeyFor(s.sp, pos, t.Predicate)
	if !ok {
		return false
	}
	for _, o := range s.spo.Get(key) {
		if o == t.Object {
			return true
		}
	}
	return false
}

// subjectPosition translates a global subject id to its 1-based
// position in s.sp: a direct identity bounds-check against Domain()
// for a dense set (no subjects side table), or a binary-searched
// lookup through subjects for a sparse one.
func subjectPosition(s *set, subject uint64) (uint64, bool) {
	if s.subjects != nil {
		idx, ok := s.subjects.IndexOf(subject)
		if !ok {
			return 0, false
		}
		return uint64(idx) + 1, true
	}
	if subject < 1 || subject > s.sp.Domain() {
		return 0, false
	}
	return subject, true
}

// spoKeyFor locates (subject,predicate)'s raw 1-based position within
// sp's nums array, given subject's own 1-based position in sp (not
// its global id): sp_o's "left id" domain is exactly sp's own
// flattened nums stream, one sp_o group per s_p slot, so the key
// sp_o.Get expects is that slot's 0-based array index plus one. Since a
// non-empty group's raw entries are never interleaved with the
// zero-sentinel of an empty group (each empty group is its own
// dedicated slot), the filtered Get(pos) members line up 1:1 with the
// raw slots starting at OffsetFor(pos).
func spoKeyFor(sp *adjacency.List, pos, predicate uint64) (uint64, bool) {
	for i, p := range sp.Get(pos) {
		if p == predicate {
			return sp.OffsetFor(pos) + uint64(i) + 1, true
		}
	}
	return 0, false
}
