package layer

import "container/heap"

// Contains walks the layer stack rooted at l (component J): l's own
// positive/negative sets first, then its ancestors, stopping at the
// first layer that settles t one way or the other. Advances through
// data().Parent() rather than Parent(): a rolled-up layer's own data
// already absorbs every layer between it and its rollup target's
// parent, so walking the *original* topology's parent from there
// would re-apply that span a second time.
func Contains(l *Layer, t Triple) bool {
	for cur := l; cur != nil; cur = cur.data().Parent() {
		if cur.HasPositive(t) {
			return true
		}
		if cur.HasNegative(t) {
			return false
		}
	}
	return false
}

// stackEntry is one live source feeding a merge: a single layer's
// positive or negative stream, at a known chain depth (0 = nearest
// the query layer, increasing toward the root).
type stackEntry struct {
	iter  TripleIterator
	depth int
	tag   Tag
	cur   Triple
}

type entryHeap []*stackEntry

func (h entryHeap) Len() int { return len(h) }

func (h entryHeap) Less(i, j int) bool {
	a, b := h[i], h[j]
	if a.cur.Subject != b.cur.Subject {
		return a.cur.Subject < b.cur.Subject
	}
	if a.cur.Predicate != b.cur.Predicate {
		return a.cur.Predicate < b.cur.Predicate
	}
	if a.cur.Object != b.cur.Object {
		return a.cur.Object < b.cur.Object
	}
	// same triple: the shallower layer's tag is the one that counts.
	return a.depth < b.depth
}

func (h entryHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }

func (h *entryHeap) Push(x any) { *h = append(*h, x.(*stackEntry)) }

func (h *entryHeap) Pop() any {
	old := *h
	n := len(old)
	item := old[n-1]
	*h = old[:n-1]
	return item
}

func pushEntry(h *entryHeap, it TripleIterator, depth int, tag Tag) {
	e := &stackEntry{iter: it, depth: depth, tag: tag}
	if cur, ok := it.Next(); ok {
		e.cur = cur
		heap.Push(h, e)
	}
}

func sourcesFrom(l, upto *Layer) *entryHeap {
	h := &entryHeap{}
	depth := 0
	for cur := l; cur != nil && cur != upto; cur = cur.data().Parent() {
		d := cur.data()
		if d.pos.sp != nil {
			pushEntry(h, NewSubjectIterator(&d.pos), depth, Addition)
		}
		if d.neg != nil && d.neg.sp != nil {
			pushEntry(h, NewSubjectIterator(d.neg), depth, Removal)
		}
		depth++
	}
	heap.Init(h)
	return h
}

// popEqual advances every source whose current triple equals t,
// keeping the shallowest one's tag (heap order guarantees the head is
// the shallowest among equals), and returns that tag.
func popEqual(h *entryHeap) (t Triple, tag Tag) {
	top := (*h)[0]
	t, tag = top.cur, top.tag
	for h.Len() > 0 && (*h)[0].cur == t {
		e := heap.Pop(h).(*stackEntry)
		if nxt, ok := e.iter.Next(); ok {
			e.cur = nxt
			heap.Push(h, e)
		}
	}
	return t, tag
}

// StackIterator enumerates the effective triple set of a layer stack
// rooted at a query layer: every layer's additions and removals,
// merged in (s, p, o) order, with a triple's shallowest-layer tag
// deciding whether it survives. Restartable only by constructing a
// fresh StackIterator.
type StackIterator struct {
	h *entryHeap
}

// NewStackIterator returns an iterator over l's full effective set.
func NewStackIterator(l *Layer) *StackIterator {
	return &StackIterator{h: sourcesFrom(l, nil)}
}

// Next returns the next surviving triple, in ascending (s, p, o) order.
func (s *StackIterator) Next() (Triple, bool) {
	for s.h.Len() > 0 {
		t, tag := popEqual(s.h)
		if tag == Addition {
			return t, true
		}
	}
	return Triple{}, false
}

// ChangeIterator enumerates the tagged deltas contributed by the
// layers from l up to (but not including) upto: l.rollup's bounded
// form (component L) feeds each resulting (Triple, Tag) into the
// rebuilt layer's addition or removal set. upto may be nil to run to
// the root.
type ChangeIterator struct {
	h *entryHeap
}

// NewChangeIterator returns a change iterator over [l, upto).
func NewChangeIterator(l, upto *Layer) *ChangeIterator {
	return &ChangeIterator{h: sourcesFrom(l, upto)}
}

// Next returns the next surviving (triple, tag) pair, in ascending
// (s, p, o) order. A triple that nets to a no-op within the range
// (e.g. added then removed again by a shallower layer's logical
// opposite) never happens in practice: a child layer's own additions
// and removals are disjoint by construction, so the only collisions
// Next resolves are between distinct layers, and those always resolve
// to the shallower layer's tag.
func (c *ChangeIterator) Next() (Triple, Tag, bool) {
	if c.h.Len() == 0 {
		return Triple{}, Addition, false
	}
	t, tag := popEqual(c.h)
	return t, tag, true
}
