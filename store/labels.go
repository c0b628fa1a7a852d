package store

import (
	"errors"
	"sync"

	"github.com/veylan/triplestore/layer"
)

// ErrVersionMismatch is returned by Labels.Update when the caller's
// presented version no longer matches the stored one (spec.md §4.M:
// "A mismatch returns 'not updated'; the caller is expected to re-read
// and retry").
var ErrVersionMismatch = errors.New("store: label version mismatch")

// Label is one name -> (version, layer_id?) record. HasLayer is false
// for a freshly created label that has never been pointed at a layer.
type Label struct {
	Name     string
	Version  uint64
	LayerID  layer.ID
	HasLayer bool
}

// Labels is the CAS-updated name -> layer mapping of spec.md §4.M.
// Updates are linearizable per label (spec.md §5); no ordering is
// promised across distinct labels, so one mutex per Labels (not a
// global store-wide lock) is enough.
//
// The filtered reference source's own label store (a separate,
// directory-backed implementation) isn't present in this retrieval
// pack, and spec.md enumerates an exact on-disk file layout for layers
// but not for labels; Labels is kept in-memory only rather than
// inventing an unspecified wire format.
type Labels struct {
	mu      sync.RWMutex
	records map[string]Label
}

// NewLabels returns an empty label set.
func NewLabels() *Labels {
	return &Labels{records: make(map[string]Label)}
}

// Get returns the current record for name, or (Label{Name: name},
// false) if it has never been created.
func (lb *Labels) Get(name string) (Label, bool) {
	lb.mu.RLock()
	defer lb.mu.RUnlock()
	rec, ok := lb.records[name]
	if !ok {
		return Label{Name: name}, false
	}
	return rec, true
}

// Create registers name at version 0 with no layer, if it doesn't
// already exist. Returns the existing record unchanged if it does.
func (lb *Labels) Create(name string) Label {
	lb.mu.Lock()
	defer lb.mu.Unlock()
	if rec, ok := lb.records[name]; ok {
		return rec
	}
	rec := Label{Name: name}
	lb.records[name] = rec
	return rec
}

// Update performs the compare-and-swap described in spec.md §4.M:
// prev must equal the record Update would currently return for
// prev.Name, or ErrVersionMismatch is returned together with the
// actual current record so the caller can retry against it.
func (lb *Labels) Update(prev Label, newLayer layer.ID) (Label, error) {
	lb.mu.Lock()
	defer lb.mu.Unlock()

	cur, ok := lb.records[prev.Name]
	if !ok {
		cur = Label{Name: prev.Name}
	}
	if cur.Version != prev.Version {
		return cur, ErrVersionMismatch
	}

	next := Label{Name: prev.Name, Version: cur.Version + 1, LayerID: newLayer, HasLayer: true}
	lb.records[prev.Name] = next
	return next, nil
}
