// Package store implements the layer store, cache, and labels
// (component M): the top-level entry point that resolves a layer id
// to a fully chain-linked, rollup-substituted layer.Layer, persists
// newly built layers, and exposes the CAS label protocol over them.
package store

import (
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"
	"go.uber.org/zap"

	"github.com/veylan/triplestore/builder"
	"github.com/veylan/triplestore/layer"
	"github.com/veylan/triplestore/rollup"
	"github.com/veylan/triplestore/storage"
)

// DefaultCacheTTL is the identity-cache lifetime new Stores use unless
// overridden (see Cache's doc comment for why this substitutes for a
// weak reference).
const DefaultCacheTTL = 30 * time.Second

// Store is the layer store of spec.md §4.M: one per-layer namespace
// under root (directories, or nested in-memory stores), a Cache for
// identity-equal repeat lookups, and a Labels set for the CAS naming
// protocol.
type Store struct {
	root storage.SubStore

	cache  *Cache
	sf     singleflight.Group // collapses concurrent loads of the same layer id
	rollMu sync.Mutex         // guards register-then-invalidate as one step, per spec.md's "atomically"

	Labels *Labels
	log    *zap.Logger
}

// New wires a Store over root (a storage backend that can carve out
// per-layer namespaces; storage.DirStore and storage.MemoryStore both
// qualify). log may be nil, in which case a no-op logger is used.
func New(root storage.SubStore, log *zap.Logger) *Store {
	if log == nil {
		log = zap.NewNop()
	}
	return &Store{
		root:   root,
		cache:  NewCache(DefaultCacheTTL),
		Labels: NewLabels(),
		log:    log.Named("layer_store"),
	}
}

// GetLayer resolves id's full ancestor chain and any rollup
// substitution, returning a ready-to-query layer.Layer.
func (s *Store) GetLayer(id layer.ID) (*layer.Layer, error) {
	return s.loadChain(id)
}

// loadChain returns the cached handle for id if still live, otherwise
// loads it (coalescing concurrent callers via singleflight, so two
// overlapping misses for the same id produce one disk read and one
// cached result — the identity-equality guarantee spec.md §5 asks
// for).
func (s *Store) loadChain(id layer.ID) (*layer.Layer, error) {
	if l := s.cache.get(id); l != nil {
		return l, nil
	}

	v, err, _ := s.sf.Do(id.Hex(), func() (any, error) {
		if l := s.cache.get(id); l != nil {
			return l, nil
		}
		l, err := s.loadOne(id)
		if err != nil {
			return nil, err
		}
		s.cache.put(id, l)
		return l, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*layer.Layer), nil
}

// loadOne reads id's own files plus, recursively, its parent and (if
// rolled up) rollup target — both of which go back through loadChain,
// so an ancestor shared by two concurrent loads is itself coalesced
// and cached only once.
func (s *Store) loadOne(id layer.ID) (*layer.Layer, error) {
	ns, err := s.root.Sub(id.Hex())
	if err != nil {
		return nil, fmt.Errorf("store: opening layer %s: %w", id, err)
	}

	parentID, hasParent, err := layer.ParentID(ns)
	if err != nil {
		return nil, fmt.Errorf("store: reading parent pointer of %s: %w", id, err)
	}

	kind := layer.Base
	var parent *layer.Layer
	if hasParent {
		kind = layer.Child
		parent, err = s.loadChain(parentID)
		if err != nil {
			return nil, fmt.Errorf("store: loading parent %s of %s: %w", parentID, id, err)
		}
	}

	l, err := layer.Load(ns, id, kind, parent)
	if err != nil {
		return nil, fmt.Errorf("store: loading layer %s: %w", id, err)
	}

	rollupID, hasRollup, err := layer.RollupID(ns)
	if err != nil {
		return nil, fmt.Errorf("store: reading rollup pointer of %s: %w", id, err)
	}
	if hasRollup {
		target, err := s.loadChain(rollupID)
		if err != nil {
			return nil, fmt.Errorf("store: loading rollup target %s of %s: %w", rollupID, id, err)
		}
		l = layer.WithRollup(l, target)
	}

	s.log.Debug("loaded layer", zap.Stringer("layer", id), zap.Stringer("kind", kind), zap.Bool("rollup", hasRollup))
	return l, nil
}

// persist writes l's files into its own namespace and seeds the
// cache, so a just-built layer is immediately identity-stable across
// subsequent GetLayer calls without a round trip through storage.
func (s *Store) persist(l *layer.Layer) error {
	ns, err := s.root.Sub(l.ID().Hex())
	if err != nil {
		return fmt.Errorf("store: creating namespace for %s: %w", l.ID(), err)
	}
	if err := layer.Save(ns, l); err != nil {
		return fmt.Errorf("store: saving %s: %w", l.ID(), err)
	}
	s.cache.put(l.ID(), l)
	s.log.Debug("persisted layer", zap.Stringer("layer", l.ID()), zap.Stringer("kind", l.Kind()))
	return nil
}

// CreateBaseLayer builds and persists a new base layer from adds.
func (s *Store) CreateBaseLayer(adds []builder.Statement) (*layer.Layer, error) {
	l, err := builder.Build(layer.Base, nil, adds, nil)
	if err != nil {
		return nil, fmt.Errorf("store: building base layer: %w", err)
	}
	if err := s.persist(l); err != nil {
		return nil, err
	}
	return l, nil
}

// CreateChildLayer builds and persists a new child layer over parent.
func (s *Store) CreateChildLayer(parent *layer.Layer, adds, rems []builder.Statement) (*layer.Layer, error) {
	l, err := builder.Build(layer.Child, parent, adds, rems)
	if err != nil {
		return nil, fmt.Errorf("store: building child layer of %s: %w", parent.ID(), err)
	}
	if err := s.persist(l); err != nil {
		return nil, err
	}
	return l, nil
}

// RegisterRollup points an already-persisted layer at its rollup
// result: the on-disk pointer write and the cache invalidation happen
// under one lock, so a concurrent GetLayer(id) either observes the old
// state in full or reloads and observes the new rollup pointer — never
// a torn mix of the two (spec.md §4.M's "atomically").
func (s *Store) RegisterRollup(id, rollupID layer.ID) error {
	ns, err := s.root.Sub(id.Hex())
	if err != nil {
		return fmt.Errorf("store: opening layer %s: %w", id, err)
	}

	s.rollMu.Lock()
	defer s.rollMu.Unlock()

	if err := layer.SaveRollupPointer(ns, rollupID); err != nil {
		return fmt.Errorf("store: registering rollup %s for %s: %w", rollupID, id, err)
	}
	s.cache.invalidate(id)
	s.log.Info("registered rollup", zap.Stringer("layer", id), zap.Stringer("rollup", rollupID))
	return nil
}

// PerformRollup fully collapses l's effective set into a new base
// layer, persists it, and registers it against l (spec.md §4.L's full
// rollup, wired through the store).
func (s *Store) PerformRollup(l *layer.Layer) (*layer.Layer, error) {
	op := uuid.NewString()
	log := s.log.With(zap.String("op", op), zap.Stringer("layer", l.ID()))
	log.Info("starting full rollup")

	rolled, err := rollup.Full(l)
	if err != nil {
		return nil, fmt.Errorf("store: rolling up %s: %w", l.ID(), err)
	}
	if err := s.persist(rolled); err != nil {
		return nil, err
	}
	if err := s.RegisterRollup(l.ID(), rolled.ID()); err != nil {
		return nil, err
	}
	log.Info("finished full rollup", zap.Stringer("result", rolled.ID()))
	return rolled, nil
}

// PerformRollupUpto collapses l down to requested, falling back to the
// deepest ancestor the store actually knows about if requested isn't
// one of l's ancestors (combining rollup.SafeUpto's in-memory half
// with this store's own "known to the store" registry: resolving
// requested through GetLayer proves both at once, since this store
// only ever returns a layer by walking its chain all the way into
// memory).
func (s *Store) PerformRollupUpto(l *layer.Layer, requested layer.ID) (*layer.Layer, error) {
	op := uuid.NewString()
	log := s.log.With(zap.String("op", op), zap.Stringer("layer", l.ID()), zap.Stringer("requested", requested))

	req, err := s.GetLayer(requested)
	if err != nil {
		log.Warn("requested rollup bound not known to the store, falling back", zap.Error(err))
		req = nil
	}
	u := rollup.SafeUpto(l, req)
	if u == nil {
		return nil, fmt.Errorf("store: rolling up %s: no ancestor reachable", l.ID())
	}

	rolled, err := rollup.Bounded(l, u)
	if err != nil {
		return nil, fmt.Errorf("store: rolling up %s to %s: %w", l.ID(), u.ID(), err)
	}
	if err := s.persist(rolled); err != nil {
		return nil, err
	}
	if err := s.RegisterRollup(l.ID(), rolled.ID()); err != nil {
		return nil, err
	}
	log.Info("finished bounded rollup", zap.Stringer("bound", u.ID()), zap.Stringer("result", rolled.ID()))
	return rolled, nil
}
