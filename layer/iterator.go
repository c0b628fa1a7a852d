package layer

import (
	"sort"

	"github.com/veylan/triplestore/internal/adjacency"
	"github.com/veylan/triplestore/internal/wavelet"
)

// TripleIterator is a single-pass cursor over one layer's single
// positive or negative set (component I). It never walks a parent
// chain; stack.go composes several of these into a multi-layer view.
type TripleIterator interface {
	// Next advances to and returns the next triple, or (zero, false)
	// once exhausted.
	Next() (Triple, bool)
}

// subjectAt resolves position pos (1-based, within domain) to its
// actual subject id: dense and equal to pos when s has no subjects
// side table (a base layer's positive set spans the whole dense id
// space), or looked up through it otherwise (a child layer's sparse
// subject positions).
func subjectAt(s *set, pos uint64) uint64 {
	if s.subjects != nil {
		return s.subjects.Entry(int(pos) - 1)
	}
	return pos
}

func objectAt(s *set, pos uint64) uint64 {
	if s.objects != nil {
		return s.objects.Entry(int(pos) - 1)
	}
	return pos
}

// SubjectIterator walks (subject, predicate, object) triples in
// lexicographic (s, p, o) order by scanning s_p's groups, then, for
// each (s, p) pair, its sp_o group.
type SubjectIterator struct {
	s      *set
	domain uint64

	pos     uint64 // loaded s_p position, 0 before the first Next/Seek
	subject uint64
	preds   []uint64
	predIdx int
	objs    []uint64
	objIdx  int
}

// NewSubjectIterator returns an iterator over s's triples, starting
// before the first subject.
func NewSubjectIterator(s *set) *SubjectIterator {
	return &SubjectIterator{s: s, domain: s.sp.Domain()}
}

func (it *SubjectIterator) loadGroup(pos uint64) {
	it.pos = pos
	it.subject = subjectAt(it.s, pos)
	it.preds = it.s.sp.Get(pos)
	it.predIdx = 0
	it.objs = nil
	it.objIdx = 0
}

// Next returns the next triple in (s, p, o) order.
func (it *SubjectIterator) Next() (Triple, bool) {
	for {
		if it.objIdx < len(it.objs) {
			o := it.objs[it.objIdx]
			it.objIdx++
			return Triple{Subject: it.subject, Predicate: it.preds[it.predIdx-1], Object: o}, true
		}
		if it.predIdx < len(it.preds) {
			key := it.s.sp.OffsetFor(it.pos) + uint64(it.predIdx) + 1
			it.predIdx++
			it.objs = it.s.spo.Get(key)
			it.objIdx = 0
			continue
		}
		if it.pos >= it.domain {
			return Triple{}, false
		}
		it.loadGroup(it.pos + 1)
	}
}

// SeekSubject positions the iterator so the next Next() call begins
// at the first position whose subject is >= subject.
func (it *SubjectIterator) SeekSubject(subject uint64) {
	lo, hi := uint64(1), it.domain+1
	for lo < hi {
		mid := lo + (hi-lo)/2
		if subjectAt(it.s, mid) < subject {
			lo = mid + 1
		} else {
			hi = mid
		}
	}
	it.pos = lo - 1
	it.preds, it.predIdx, it.objs, it.objIdx = nil, 0, nil, 0
}

// SeekSubjectPredicate positions the iterator so the next Next() call
// begins at the first (subject, predicate') pair with predicate' >=
// predicate, within subject's own group.
func (it *SubjectIterator) SeekSubjectPredicate(subject, predicate uint64) {
	it.SeekSubject(subject)
	if it.pos+1 > it.domain || subjectAt(it.s, it.pos+1) != subject {
		return
	}
	it.loadGroup(it.pos + 1)
	for it.predIdx < len(it.preds) && it.preds[it.predIdx] < predicate {
		it.predIdx++
	}
}

// PredicateIterator walks triples in (predicate, subject, object)
// order, using the predicate wavelet tree to locate every (subject,
// predicate) occurrence for one fixed predicate.
type PredicateIterator struct {
	s         *set
	predicate uint64
	positions *wavelet.PositionIter

	subject uint64
	objs    []uint64
	objIdx  int
	done    bool
}

// NewPredicateIterator returns an iterator over every triple in s
// whose predicate is exactly predicate.
func NewPredicateIterator(s *set, predicate uint64) *PredicateIterator {
	if s.predWavelet == nil {
		return &PredicateIterator{s: s, predicate: predicate, done: true}
	}
	return &PredicateIterator{s: s, predicate: predicate, positions: s.predWavelet.Lookup(predicate)}
}

// Next returns the next triple in (p, s, o) order.
func (it *PredicateIterator) Next() (Triple, bool) {
	for {
		if it.objIdx < len(it.objs) {
			o := it.objs[it.objIdx]
			it.objIdx++
			return Triple{Subject: it.subject, Predicate: it.predicate, Object: o}, true
		}
		if it.done {
			return Triple{}, false
		}
		pos, ok := it.positions.Next()
		if !ok {
			it.done = true
			continue
		}
		it.subject = subjectAt(it.s, it.s.sp.GroupFor(pos))
		it.objs = it.s.spo.Get(pos + 1)
		it.objIdx = 0
	}
}

// opsEntry is one (predicate, subject) pair decoded from an o_ps
// group's packed right id.
type opsEntry struct{ predicate, subject uint64 }

// ObjectIterator walks triples in (object, predicate, subject) order
// by scanning o_ps's groups; each entry there packs a (predicate,
// subject) pair into one right id, per spec.md's o_ps encoding. The
// pack value's own ordering (Cantor) isn't lexicographic in
// (predicate, subject), so each group is unpacked and re-sorted before
// being walked.
type ObjectIterator struct {
	s      *set
	domain uint64

	pos    uint64
	object uint64
	pairs  []opsEntry
	idx    int
}

// NewObjectIterator returns an iterator over s's triples ordered by object.
func NewObjectIterator(s *set) *ObjectIterator {
	return &ObjectIterator{s: s, domain: s.ops.Domain()}
}

func (it *ObjectIterator) loadGroup(pos uint64) {
	it.pos = pos
	it.object = objectAt(it.s, pos)

	raw := it.s.ops.Get(pos)
	pairs := make([]opsEntry, len(raw))
	for i, v := range raw {
		p, s := adjacency.UnpackPair(v)
		pairs[i] = opsEntry{predicate: p, subject: s}
	}
	sort.Slice(pairs, func(i, j int) bool {
		if pairs[i].predicate != pairs[j].predicate {
			return pairs[i].predicate < pairs[j].predicate
		}
		return pairs[i].subject < pairs[j].subject
	})
	it.pairs = pairs
	it.idx = 0
}

// Next returns the next triple in (o, p, s) order.
func (it *ObjectIterator) Next() (Triple, bool) {
	for {
		if it.idx < len(it.pairs) {
			e := it.pairs[it.idx]
			it.idx++
			return Triple{Subject: e.subject, Predicate: e.predicate, Object: it.object}, true
		}
		if it.pos >= it.domain {
			return Triple{}, false
		}
		it.loadGroup(it.pos + 1)
	}
}

// SeekObject positions the iterator so the next Next() call begins at
// the first position whose object is >= object.
func (it *ObjectIterator) SeekObject(object uint64) {
	lo, hi := uint64(1), it.domain+1
	for lo < hi {
		mid := lo + (hi-lo)/2
		if objectAt(it.s, mid) < object {
			lo = mid + 1
		} else {
			hi = mid
		}
	}
	it.pos = lo - 1
	it.pairs, it.idx = nil, 0
}
