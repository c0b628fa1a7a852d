package layer

import (
	"fmt"

	"github.com/veylan/triplestore/internal/adjacency"
	"github.com/veylan/triplestore/internal/bitarray"
	"github.com/veylan/triplestore/internal/idmap"
	"github.com/veylan/triplestore/internal/logarray"
	"github.com/veylan/triplestore/internal/pfc"
	"github.com/veylan/triplestore/internal/wavelet"
	"github.com/veylan/triplestore/storage"
)

// File names, matching the layout of a layer's on-disk directory. A
// base layer's own set uses the unprefixed adjacency/wavelet/subjects/
// objects names; a child layer's two sets (additions, removals) use
// the pos_/neg_ prefixed forms.
const (
	nodeDictionaryBlocks       = "node_dictionary_blocks"
	nodeDictionaryOffsets      = "node_dictionary_offsets"
	predicateDictionaryBlocks  = "predicate_dictionary_blocks"
	predicateDictionaryOffsets = "predicate_dictionary_offsets"
	valueDictionaryBlocks      = "value_dictionary_blocks"
	valueDictionaryOffsets     = "value_dictionary_offsets"

	nodeValueIDMapBits    = "node_value_idmap_bits"
	nodeValueIDMapBlocks  = "node_value_idmap_blocks"
	nodeValueIDMapSblocks = "node_value_idmap_sblocks"

	predicateIDMapBits    = "predicate_idmap_bits"
	predicateIDMapBlocks  = "predicate_idmap_blocks"
	predicateIDMapSblocks = "predicate_idmap_sblocks"

	parentFile = "parent"
	rollupFile = "rollup"
)

// setNames returns the file names for one polarity's set. prefix is ""
// for a base layer's only set, or "pos_"/"neg_" for a child layer's
// two sets.
type setNames struct {
	sp, spo, ops, wavelet, subjects, objects string
}

func namesFor(prefix string) setNames {
	return setNames{
		sp:       prefix + "s_p_adjacency_list",
		spo:      prefix + "sp_o_adjacency_list",
		ops:      prefix + "o_ps_adjacency_list",
		wavelet:  prefix + "predicate_wavelet_tree",
		subjects: prefix + "subjects",
		objects:  prefix + "objects",
	}
}

func adjacencyFileNames(base string) (bits, blocks, sblocks, nums string) {
	return base + "_bits", base + "_blocks", base + "_sblocks", base + "_nums"
}

func waveletFileNames(base string) (bits, blocks, sblocks string) {
	return base + "_bits", base + "_blocks", base + "_sblocks"
}

func writeFile(store storage.Store, name string, data []byte) error {
	if len(data) == 0 {
		return nil
	}
	w, err := store.GetFile(name).OpenWrite()
	if err != nil {
		return fmt.Errorf("layer: opening %s for write: %w", name, err)
	}
	if _, err := w.Write(data); err != nil {
		w.Close()
		return fmt.Errorf("layer: writing %s: %w", name, err)
	}
	if err := w.SyncAll(); err != nil {
		w.Close()
		return fmt.Errorf("layer: syncing %s: %w", name, err)
	}
	return w.Close()
}

func readFile(store storage.Store, name string) ([]byte, error) {
	f := store.GetFile(name)
	if !f.Exists() {
		return nil, nil
	}
	data, err := f.Map()
	if err != nil {
		return nil, fmt.Errorf("layer: reading %s: %w", name, err)
	}
	return data, nil
}

func saveAdjacency(store storage.Store, base string, l *adjacency.List) error {
	if l == nil {
		return nil
	}
	files := adjacency.Encode(l)
	bits, blocks, sblocks, nums := adjacencyFileNames(base)
	for name, data := range map[string][]byte{bits: files.Bits, blocks: files.Blocks, sblocks: files.Sblocks, nums: files.Nums} {
		if err := writeFile(store, name, data); err != nil {
			return err
		}
	}
	return nil
}

func loadAdjacency(store storage.Store, base string) (*adjacency.List, error) {
	bits, blocks, sblocks, nums := adjacencyFileNames(base)
	bitsData, err := readFile(store, bits)
	if err != nil || bitsData == nil {
		return nil, err
	}
	blocksData, err := readFile(store, blocks)
	if err != nil {
		return nil, err
	}
	sblocksData, err := readFile(store, sblocks)
	if err != nil {
		return nil, err
	}
	numsData, err := readFile(store, nums)
	if err != nil {
		return nil, err
	}
	return adjacency.Decode(adjacency.Files{Bits: bitsData, Blocks: blocksData, Sblocks: sblocksData, Nums: numsData})
}

func saveWavelet(store storage.Store, base string, t *wavelet.Tree) error {
	if t == nil {
		return nil
	}
	files := wavelet.Encode(t)
	bits, blocks, sblocks := waveletFileNames(base)
	for name, data := range map[string][]byte{bits: files.Bits, blocks: files.Blocks, sblocks: files.Sblocks} {
		if err := writeFile(store, name, data); err != nil {
			return err
		}
	}
	return nil
}

func loadWavelet(store storage.Store, base string, n uint64) (*wavelet.Tree, error) {
	bits, blocks, sblocks := waveletFileNames(base)
	bitsData, err := readFile(store, bits)
	if err != nil || bitsData == nil {
		return nil, err
	}
	blocksData, err := readFile(store, blocks)
	if err != nil {
		return nil, err
	}
	sblocksData, err := readFile(store, sblocks)
	if err != nil {
		return nil, err
	}
	return wavelet.Decode(bitarray.IndexFiles{Bits: bitsData, Blocks: blocksData, Sblocks: sblocksData}, n)
}

func saveMonotonic(store storage.Store, name string, m *logarray.Monotonic) error {
	if m == nil {
		return nil
	}
	return writeFile(store, name, logarray.Encode(m.LogArray))
}

func loadMonotonic(store storage.Store, name string) (*logarray.Monotonic, error) {
	data, err := readFile(store, name)
	if err != nil || data == nil {
		return nil, err
	}
	la, err := logarray.Decode(data)
	if err != nil {
		return nil, fmt.Errorf("layer: decoding %s: %w", name, err)
	}
	return logarray.NewMonotonic(la), nil
}

func saveSet(store storage.Store, prefix string, s *set) error {
	if s == nil {
		return nil
	}
	names := namesFor(prefix)
	if err := saveAdjacency(store, names.sp, s.sp); err != nil {
		return err
	}
	if err := saveAdjacency(store, names.spo, s.spo); err != nil {
		return err
	}
	if err := saveAdjacency(store, names.ops, s.ops); err != nil {
		return err
	}
	if err := saveWavelet(store, names.wavelet, s.predWavelet); err != nil {
		return err
	}
	if err := saveMonotonic(store, names.subjects, s.subjects); err != nil {
		return err
	}
	if err := saveMonotonic(store, names.objects, s.objects); err != nil {
		return err
	}
	return nil
}

func loadSet(store storage.Store, prefix string) (set, error) {
	names := namesFor(prefix)
	sp, err := loadAdjacency(store, names.sp)
	if err != nil {
		return set{}, err
	}
	spo, err := loadAdjacency(store, names.spo)
	if err != nil {
		return set{}, err
	}
	ops, err := loadAdjacency(store, names.ops)
	if err != nil {
		return set{}, err
	}
	// the predicate wavelet tree is built over sp's own flattened nums
	// sequence, so its symbol count is exactly sp's length, not any
	// layer-level predicate count.
	var waveletN uint64
	if sp != nil {
		waveletN = uint64(sp.Nums().Len())
	}
	wt, err := loadWavelet(store, names.wavelet, waveletN)
	if err != nil {
		return set{}, err
	}
	subjects, err := loadMonotonic(store, names.subjects)
	if err != nil {
		return set{}, err
	}
	objects, err := loadMonotonic(store, names.objects)
	if err != nil {
		return set{}, err
	}
	return NewSet(sp, spo, ops, wt, subjects, objects), nil
}

func saveDict(store storage.Store, blocksName, offsetsName string, d *pfc.Dict) error {
	files := pfc.Encode(d)
	if err := writeFile(store, blocksName, files.Blocks); err != nil {
		return err
	}
	return writeFile(store, offsetsName, files.Offsets)
}

func loadDict(store storage.Store, blocksName, offsetsName string) (*pfc.Dict, error) {
	blocks, err := readFile(store, blocksName)
	if err != nil {
		return nil, err
	}
	offsets, err := readFile(store, offsetsName)
	if err != nil {
		return nil, err
	}
	return pfc.Decode(pfc.Files{Blocks: blocks, Offsets: offsets})
}

func saveIDMap(store storage.Store, bitsName, blocksName, sblocksName string, m *idmap.Map) error {
	files, ok := idmap.Encode(m)
	if !ok {
		return nil
	}
	if err := writeFile(store, bitsName, files.Bits); err != nil {
		return err
	}
	if err := writeFile(store, blocksName, files.Blocks); err != nil {
		return err
	}
	return writeFile(store, sblocksName, files.Sblocks)
}

func loadIDMap(store storage.Store, bitsName, blocksName, sblocksName string, n, base uint64) (*idmap.Map, error) {
	bits, err := readFile(store, bitsName)
	if err != nil {
		return nil, err
	}
	if bits == nil {
		return idmap.Decode(idmap.Files{}, 0, base)
	}
	blocks, err := readFile(store, blocksName)
	if err != nil {
		return nil, err
	}
	sblocks, err := readFile(store, sblocksName)
	if err != nil {
		return nil, err
	}
	return idmap.Decode(idmap.Files{Bits: bits, Blocks: blocks, Sblocks: sblocks}, n, base)
}

// Save writes l's full on-disk representation into store: one
// directory per layer, in spec.md's terms.
func Save(store storage.Store, l *Layer) error {
	if l.IsRolledUp() {
		return writeFile(store, rollupFile, l.rollupTarget.id[:])
	}
	if l.parent != nil {
		if err := writeFile(store, parentFile, l.parent.id[:]); err != nil {
			return err
		}
	}

	if err := saveDict(store, nodeDictionaryBlocks, nodeDictionaryOffsets, l.nodeDict); err != nil {
		return err
	}
	if err := saveDict(store, predicateDictionaryBlocks, predicateDictionaryOffsets, l.predicateDict); err != nil {
		return err
	}
	if err := saveDict(store, valueDictionaryBlocks, valueDictionaryOffsets, l.valueDict); err != nil {
		return err
	}
	if err := saveIDMap(store, nodeValueIDMapBits, nodeValueIDMapBlocks, nodeValueIDMapSblocks, l.nodeValueIDMap); err != nil {
		return err
	}
	if err := saveIDMap(store, predicateIDMapBits, predicateIDMapBlocks, predicateIDMapSblocks, l.predicateIDMap); err != nil {
		return err
	}

	posPrefix := ""
	if l.kind == Child {
		posPrefix = "pos_"
	}
	if err := saveSet(store, posPrefix, &l.pos); err != nil {
		return err
	}
	return saveSet(store, "neg_", l.neg)
}

// Load reads a layer's on-disk representation out of store. parent is
// the already-loaded parent layer, or nil for a base layer; kind tells
// Load which file-name prefix to expect (base: unprefixed, child:
// pos_/neg_).
func Load(store storage.Store, id ID, kind Kind, parent *Layer) (*Layer, error) {
	nodeDict, err := loadDict(store, nodeDictionaryBlocks, nodeDictionaryOffsets)
	if err != nil {
		return nil, fmt.Errorf("layer: loading node dictionary: %w", err)
	}
	predicateDict, err := loadDict(store, predicateDictionaryBlocks, predicateDictionaryOffsets)
	if err != nil {
		return nil, fmt.Errorf("layer: loading predicate dictionary: %w", err)
	}
	valueDict, err := loadDict(store, valueDictionaryBlocks, valueDictionaryOffsets)
	if err != nil {
		return nil, fmt.Errorf("layer: loading value dictionary: %w", err)
	}

	var parentNodeValueCount, parentPredicateCount uint64
	if parent != nil {
		parentNodeValueCount = parent.NodeAndValueCount()
		parentPredicateCount = parent.PredicateCount()
	}

	localNV := uint64(nodeDict.Len() + valueDict.Len())
	localPred := uint64(predicateDict.Len())

	nodeValueIDMap, err := loadIDMap(store, nodeValueIDMapBits, nodeValueIDMapBlocks, nodeValueIDMapSblocks, localNV, parentNodeValueCount)
	if err != nil {
		return nil, fmt.Errorf("layer: loading node/value idmap: %w", err)
	}
	predicateIDMap, err := loadIDMap(store, predicateIDMapBits, predicateIDMapBlocks, predicateIDMapSblocks, localPred, parentPredicateCount)
	if err != nil {
		return nil, fmt.Errorf("layer: loading predicate idmap: %w", err)
	}

	posPrefix := ""
	if kind == Child {
		posPrefix = "pos_"
	}
	pos, err := loadSet(store, posPrefix)
	if err != nil {
		return nil, fmt.Errorf("layer: loading positive set: %w", err)
	}

	var neg *set
	if kind == Child {
		n, err := loadSet(store, "neg_")
		if err != nil {
			return nil, fmt.Errorf("layer: loading negative set: %w", err)
		}
		neg = &n
	}

	return New(id, kind, parent, nodeDict, predicateDict, valueDict, nodeValueIDMap, predicateIDMap, parentNodeValueCount, parentPredicateCount, pos, neg), nil
}

// SaveRollupPointer writes just the rollup-target-id file, for a store
// registering a rollup against an already-persisted layer without
// rewriting the rest of its files (spec.md §4.M: "register_rollup(id,
// rollup_id) atomically sets the pointer").
func SaveRollupPointer(store storage.Store, rollupID ID) error {
	return writeFile(store, rollupFile, rollupID[:])
}

// ParentID reads the parent-id file without loading the rest of the
// layer, letting a store resolve a chain top-down before constructing
// any Layer values.
func ParentID(store storage.Store) (ID, bool, error) {
	data, err := readFile(store, parentFile)
	if err != nil || data == nil {
		return Zero, false, err
	}
	if len(data) != len(Zero) {
		return Zero, false, fmt.Errorf("layer: corrupt parent file (%d bytes)", len(data))
	}
	var id ID
	copy(id[:], data)
	return id, true, nil
}

// RollupID reads the rollup-target-id file, if this layer has been
// rolled up.
func RollupID(store storage.Store) (ID, bool, error) {
	data, err := readFile(store, rollupFile)
	if err != nil || data == nil {
		return Zero, false, err
	}
	if len(data) != len(Zero) {
		return Zero, false, fmt.Errorf("layer: corrupt rollup file (%d bytes)", len(data))
	}
	var id ID
	copy(id[:], data)
	return id, true, nil
}
