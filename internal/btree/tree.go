// Package btree layers a balanced multi-way search tree over the page
// store: internal nodes hold keys and child page ids, leaves hold
// sorted fixed-size records, and every node rewrite is copy-on-write,
// reconciled through an in-memory page-id mapping table.
package btree

import (
	"encoding/binary"
	"fmt"

	"github.com/ubco-db/btree/internal/logger"
	"github.com/ubco-db/btree/internal/pagestore"
)

// MaxLevels bounds active-path depth; no realistic fanout on target
// hardware needs more than this.
const MaxLevels = 8

// Config configures a Tree's record geometry. PageSize must match the
// page store it will run over.
type Config struct {
	PageSize        int
	KeySize         int
	DataSize        int
	MappingCapacity int
	Compare         CompareFunc
}

// Tree is the B-tree engine (BT).
type Tree struct {
	ps  *pagestore.Store
	cmp CompareFunc
	log *logger.Logger

	pageSize       int
	keySize        int
	dataSize       int
	recordSize     int
	maxLeafRecords int
	maxFanout      int

	mapping *mappingTable

	root       uint32
	levels     int
	numNodes   uint32
	totalPages uint32
}

// New builds a Tree over an already-open Store and wires itself in as
// the store's block-recycling callback target.
func New(ps *pagestore.Store, cfg Config, log *logger.Logger) (*Tree, error) {
	if cfg.Compare == nil {
		cfg.Compare = UnsignedCompare
	}
	if cfg.KeySize <= 0 || cfg.DataSize <= 0 {
		return nil, fmt.Errorf("btree: key_size and data_size must be positive")
	}
	recordSize := cfg.KeySize + cfg.DataSize
	maxLeaf := (cfg.PageSize - pagestore.HeaderSize) / recordSize
	maxFanout := (cfg.PageSize - pagestore.HeaderSize - 4) / (cfg.KeySize + 4)
	if maxLeaf < 2 || maxFanout < 2 {
		return nil, fmt.Errorf("btree: page_size %d too small for key_size=%d data_size=%d", cfg.PageSize, cfg.KeySize, cfg.DataSize)
	}

	t := &Tree{
		ps:             ps,
		cmp:            cfg.Compare,
		log:            log,
		pageSize:       cfg.PageSize,
		keySize:        cfg.KeySize,
		dataSize:       cfg.DataSize,
		recordSize:     recordSize,
		maxLeafRecords: maxLeaf,
		maxFanout:      maxFanout,
		mapping:        newMappingTable(cfg.MappingCapacity),
		totalPages:     ps.NumPages(),
	}
	ps.SetCallbacks(t)
	return t, nil
}

func (t *Tree) MaxLeafRecords() int { return t.maxLeafRecords }
func (t *Tree) MaxFanout() int      { return t.maxFanout }
func (t *Tree) Levels() int         { return t.levels }
func (t *Tree) NumNodes() uint32    { return t.numNodes }

// Init has PS erase its first two blocks, then writes an empty root
// leaf at PS's current write head.
func (t *Tree) Init() error {
	if err := t.ps.Init(); err != nil {
		return err
	}
	root := pagestore.NewPage(t.pageSize)
	root.SetCount(0, false, true)
	root.SetPrevID(pagestore.Sentinel)
	root.SetNextID(pagestore.Sentinel)
	rootID, err := t.ps.Write(root)
	if err != nil {
		return err
	}
	t.root = rootID
	t.levels = 1
	t.numNodes = 1
	t.mapping.reset()
	t.ps.SetActiveRoot(t.root)
	return nil
}

// Recover reattaches to a medium PS already opened, scanning every
// physical page for the highest logical_id carrying the root flag.
// The mapping table is not persisted and starts empty; this is the
// non-goal the design notes call out explicitly.
func (t *Tree) Recover() error {
	total := t.ps.NumPages()
	scratch := make([]byte, t.pageSize)
	found := false
	var bestLogical, bestID uint32
	var maxLogical, maxID uint32
	for pnum := uint32(0); pnum < total; pnum++ {
		if err := t.ps.ReadRaw(pnum, scratch); err != nil {
			return err
		}
		page := &pagestore.Page{ID: pnum, Data: scratch}
		if lid := page.LogicalID(); lid > maxLogical {
			maxLogical, maxID = lid, pnum
		}
		if !page.IsRootFlag() {
			continue
		}
		lid := page.LogicalID()
		if !found || lid > bestLogical {
			found, bestLogical, bestID = true, lid, pnum
		}
	}
	if !found {
		return fmt.Errorf("btree: no root page found during recovery")
	}

	t.root = bestID
	t.mapping.reset()
	t.ps.SetActiveRoot(t.root)
	t.ps.SetWritePosition((maxID+1)%total, maxLogical+1)

	levels := 1
	curID := t.root
	for {
		page, _, err := t.loadChained(curID)
		if err != nil {
			return err
		}
		if !NodeKind(page) {
			break
		}
		curID = internalChild(page, 0, t.keySize, t.maxFanout)
		levels++
	}
	t.levels = levels

	n, err := t.countNodes(t.root, 0)
	if err != nil {
		return err
	}
	t.numNodes = n
	return nil
}

func (t *Tree) countNodes(id uint32, level int) (uint32, error) {
	page, _, err := t.loadChained(id)
	if err != nil {
		return 0, err
	}
	total := uint32(1)
	if level < t.levels-1 {
		count := int(page.Count())
		// page lives in the scratch slot, which the recursive reads
		// below reuse, so copy the child ids out first.
		children := make([]uint32, count+1)
		for i := range children {
			children[i] = internalChild(page, i, t.keySize, t.maxFanout)
		}
		for _, child := range children {
			n, err := t.countNodes(child, level+1)
			if err != nil {
				return 0, err
			}
			total += n
		}
	}
	return total, nil
}

func (t *Tree) capacityLimit() uint32 { return t.totalPages / 2 }

// loadChained reads id into the scratch buffer and follows any on-disk
// next_id chain left behind by mapping-table exhaustion, returning the
// final page and its physical id.
func (t *Tree) loadChained(id uint32) (*pagestore.Page, uint32, error) {
	page, err := t.ps.ReadInto(id)
	if err != nil {
		return nil, 0, err
	}
	for page.NextID() != pagestore.Sentinel {
		id = page.NextID()
		page, err = t.ps.ReadInto(id)
		if err != nil {
			return nil, 0, err
		}
	}
	return page, id, nil
}

// descend walks from the root to the leaf that should hold key,
// recording the physical id of every internal node visited (path) and
// the child slot chosen at each of those nodes (idxPath), so a caller
// that needs to split can promote a new separator into the right slot
// without searching again.
func (t *Tree) descend(key []byte) (leafID uint32, path []uint32, idxPath []int, err error) {
	curID := t.mapping.resolve(t.root)
	for level := 0; level < t.levels-1; level++ {
		node, id, err := t.loadChained(curID)
		if err != nil {
			return 0, nil, nil, err
		}
		path = append(path, id)
		count := int(node.Count())
		i := internalSearch(node, key, count, t.keySize, t.maxFanout, t.cmp)
		idxPath = append(idxPath, i)
		raw := internalChild(node, i, t.keySize, t.maxFanout)
		curID = t.mapping.resolve(raw)
	}
	return curID, path, idxPath, nil
}

// updatePrev standardizes buf's prev_id to currID unless it is already
// consistent with it (directly, or via the mapping table).
func (t *Tree) updatePrev(buf *pagestore.Page, currID uint32) uint32 {
	prev := buf.PrevID()
	if prev == pagestore.Sentinel || t.mapping.resolve(prev) != currID {
		buf.SetPrevID(currID)
		return currID
	}
	return prev
}

// fixMappings installs prev -> curr in the mapping table, or, if the
// table is full, patches curr directly into prev's on-disk next_id
// field so future reads chase the chain instead.
func (t *Tree) fixMappings(prev, curr uint32) error {
	if prev == curr {
		return nil
	}
	if t.mapping.insert(prev, curr) {
		return nil
	}
	t.log.Debugf("fixMappings: table full, chaining %d -> %d via next_id", prev, curr)
	var buf [4]byte
	binary.LittleEndian.PutUint32(buf[:], curr)
	return t.ps.WriteBytes(buf[:], prev, pagestore.NextIDOffset)
}

// updatePointers rewrites any child pointer of an internal node that
// has a live mapping entry, deleting the entry once absorbed.
func (t *Tree) updatePointers(a *pagestore.Page, count int) {
	for i := 0; i <= count; i++ {
		raw := internalChild(a, i, t.keySize, t.maxFanout)
		resolved := t.mapping.resolve(raw)
		if resolved != raw {
			internalSetChild(a, i, t.keySize, t.maxFanout, resolved)
			t.mapping.delete(raw)
		}
	}
}

// Get copies the value stored for key, or returns ErrNotFound.
func (t *Tree) Get(key []byte) ([]byte, error) {
	if len(key) != t.keySize {
		return nil, fmt.Errorf("btree: key must be %d bytes", t.keySize)
	}
	var leafRawID uint32
	if t.levels == 1 {
		leafRawID = t.mapping.resolve(t.root)
	} else {
		var err error
		leafRawID, _, _, err = t.descend(key)
		if err != nil {
			return nil, err
		}
	}
	leaf, _, err := t.loadChained(leafRawID)
	if err != nil {
		return nil, err
	}
	count := int(leaf.Count())
	idx := leafSearchExact(leaf, key, count, t.recordSize, t.keySize, t.cmp)
	if idx < 0 {
		return nil, ErrNotFound
	}
	return append([]byte(nil), leafValue(leaf, idx, t.recordSize, t.keySize, t.dataSize)...), nil
}

// Put inserts (key, value), or overwrites the existing leaf slot for
// key if it is already present.
func (t *Tree) Put(key, value []byte) error {
	if len(key) != t.keySize {
		return fmt.Errorf("btree: key must be %d bytes", t.keySize)
	}
	if len(value) != t.dataSize {
		return fmt.Errorf("btree: value must be %d bytes", t.dataSize)
	}
	if t.numNodes >= t.capacityLimit() {
		return ErrCapacity
	}

	var path []uint32
	var idxPath []int
	var leafRawID uint32
	var err error
	if t.levels == 1 {
		leafRawID = t.mapping.resolve(t.root)
	} else {
		leafRawID, path, idxPath, err = t.descend(key)
		if err != nil {
			return err
		}
	}

	leaf, leafID, err := t.loadChained(leafRawID)
	if err != nil {
		return err
	}
	count := int(leaf.Count())

	if idx := leafSearchExact(leaf, key, count, t.recordSize, t.keySize, t.cmp); idx >= 0 {
		copy(leafValue(leaf, idx, t.recordSize, t.keySize, t.dataSize), value)
		_, err := t.ps.Overwrite(leaf, leafID)
		return err
	}

	if count < t.maxLeafRecords {
		at := leafSearchRange(leaf, key, count, t.recordSize, t.keySize, t.cmp) + 1
		leafInsertAt(leaf, at, count, t.recordSize, t.keySize, t.dataSize, key, value)
		isRoot := t.levels == 1
		leaf.SetCount(uint16(count+1), false, isRoot)
		if isRoot {
			if _, err := t.ps.Overwrite(leaf, leafID); err != nil {
				return err
			}
			t.root = leafID
			t.ps.SetActiveRoot(t.root)
			return nil
		}
		effectivePrev := t.updatePrev(leaf, leafID)
		if _, err := t.ps.Overwrite(leaf, leafID); err != nil {
			return err
		}
		return t.fixMappings(effectivePrev, leafID)
	}

	left, right, sepKey, err := t.splitLeaf(leaf, key, value, count)
	if err != nil {
		return err
	}
	leftID, err := t.ps.Write(left)
	if err != nil {
		return err
	}
	rightID, err := t.ps.Write(right)
	if err != nil {
		return err
	}
	t.numNodes++

	return t.promote(path, idxPath, sepKey, leftID, rightID)
}

func (t *Tree) recordAt(leaf *pagestore.Page, key, value []byte, at, i int) ([]byte, []byte) {
	switch {
	case i < at:
		return leafKey(leaf, i, t.recordSize, t.keySize), leafValue(leaf, i, t.recordSize, t.keySize, t.dataSize)
	case i == at:
		return key, value
	default:
		return leafKey(leaf, i-1, t.recordSize, t.keySize), leafValue(leaf, i-1, t.recordSize, t.keySize, t.dataSize)
	}
}

// splitLeaf divides a full leaf (plus the record being inserted) into
// two freshly-allocated halves, returning the separator key promoted
// to the parent: the first key of the right half.
func (t *Tree) splitLeaf(leaf *pagestore.Page, key, value []byte, count int) (left, right *pagestore.Page, sepKey []byte, err error) {
	mid := leafSplitPoint(count)
	at := leafSearchRange(leaf, key, count, t.recordSize, t.keySize, t.cmp) + 1

	left = pagestore.NewPage(t.pageSize)
	right = pagestore.NewPage(t.pageSize)

	leftCount := 0
	for i := 0; i < mid; i++ {
		k, v := t.recordAt(leaf, key, value, at, i)
		leafInsertAt(left, leftCount, leftCount, t.recordSize, t.keySize, t.dataSize, k, v)
		leftCount++
	}
	rightCount := 0
	for i := mid; i <= count; i++ {
		k, v := t.recordAt(leaf, key, value, at, i)
		leafInsertAt(right, rightCount, rightCount, t.recordSize, t.keySize, t.dataSize, k, v)
		if rightCount == 0 {
			sepKey = append([]byte(nil), k...)
		}
		rightCount++
	}
	if leftCount == 0 || rightCount == 0 {
		t.log.Errorf("splitLeaf: split produced an empty side (left=%d right=%d), refusing", leftCount, rightCount)
		return nil, nil, nil, ErrInvariant
	}
	left.SetCount(uint16(leftCount), false, false)
	right.SetCount(uint16(rightCount), false, false)
	left.SetPrevID(pagestore.Sentinel)
	left.SetNextID(pagestore.Sentinel)
	right.SetPrevID(pagestore.Sentinel)
	right.SetNextID(pagestore.Sentinel)
	return left, right, sepKey, nil
}

// promote walks active path entries from leaf-parent back to root,
// inserting (sepKey, leftChild, rightChild) at the slot the just-split
// node used to occupy, splitting ancestors in turn when they are also
// full, and finally creating a new root if the promotion climbs past
// the current one.
func (t *Tree) promote(path []uint32, idxPath []int, sepKey []byte, leftChild, rightChild uint32) error {
	for i := len(path) - 1; i >= 0; i-- {
		a, aID, err := t.loadChained(t.mapping.resolve(path[i]))
		if err != nil {
			return err
		}
		count := int(a.Count())
		t.updatePointers(a, count)
		at := idxPath[i]

		if count < t.maxFanout {
			internalInsertAt(a, at, count, t.keySize, t.maxFanout, sepKey, rightChild)
			internalSetChild(a, at, t.keySize, t.maxFanout, leftChild)
			isRoot := i == 0
			a.SetCount(uint16(count+1), true, isRoot)
			if isRoot {
				if _, err := t.ps.Overwrite(a, aID); err != nil {
					return err
				}
				t.root = aID
				t.ps.SetActiveRoot(t.root)
				return nil
			}
			effectivePrev := t.updatePrev(a, aID)
			if _, err := t.ps.Overwrite(a, aID); err != nil {
				return err
			}
			return t.fixMappings(effectivePrev, aID)
		}

		left, right, newSep, err := t.splitInternal(a, at, sepKey, leftChild, rightChild, count)
		if err != nil {
			return err
		}
		leftID, err := t.ps.Write(left)
		if err != nil {
			return err
		}
		rightID, err := t.ps.Write(right)
		if err != nil {
			return err
		}
		t.numNodes++
		sepKey, leftChild, rightChild = newSep, leftID, rightID
	}
	return t.newRoot(sepKey, leftChild, rightChild)
}

// splitInternal inserts (sepKey, leftChild, rightChild) into a
// conceptually oversized copy of a's keys/children, then divides that
// into two fresh internal nodes around the middle key, which is
// promoted (not duplicated into either child, unlike a B+tree).
func (t *Tree) splitInternal(a *pagestore.Page, at int, sepKey []byte, leftChild, rightChild uint32, count int) (left, right *pagestore.Page, newSep []byte, err error) {
	keys := make([][]byte, count, count+1)
	for i := 0; i < count; i++ {
		keys[i] = append([]byte(nil), internalKey(a, i, t.keySize)...)
	}
	children := make([]uint32, count+1, count+2)
	for i := 0; i <= count; i++ {
		children[i] = internalChild(a, i, t.keySize, t.maxFanout)
	}

	children[at] = leftChild
	keys = append(keys, nil)
	copy(keys[at+1:], keys[at:len(keys)-1])
	keys[at] = sepKey
	children = append(children, 0)
	copy(children[at+2:], children[at+1:len(children)-1])
	children[at+1] = rightChild

	totalKeys := count + 1
	mid := internalSplitPoint(totalKeys)
	rightKeyCount := totalKeys - mid - 1
	if mid == 0 || rightKeyCount == 0 {
		t.log.Errorf("splitInternal: split produced an empty side (mid=%d rightKeyCount=%d), refusing", mid, rightKeyCount)
		return nil, nil, nil, ErrInvariant
	}

	left = pagestore.NewPage(t.pageSize)
	right = pagestore.NewPage(t.pageSize)
	for i := 0; i < mid; i++ {
		internalSetKey(left, i, t.keySize, keys[i])
	}
	for i := 0; i <= mid; i++ {
		internalSetChild(left, i, t.keySize, t.maxFanout, children[i])
	}
	for i := 0; i < rightKeyCount; i++ {
		internalSetKey(right, i, t.keySize, keys[mid+1+i])
	}
	for i := 0; i <= rightKeyCount; i++ {
		internalSetChild(right, i, t.keySize, t.maxFanout, children[mid+1+i])
	}

	left.SetCount(uint16(mid), true, false)
	right.SetCount(uint16(rightKeyCount), true, false)
	left.SetPrevID(pagestore.Sentinel)
	left.SetNextID(pagestore.Sentinel)
	right.SetPrevID(pagestore.Sentinel)
	right.SetNextID(pagestore.Sentinel)
	return left, right, keys[mid], nil
}

func (t *Tree) newRoot(sepKey []byte, leftChild, rightChild uint32) error {
	if t.levels+1 > MaxLevels {
		t.log.Errorf("newRoot: promotion would push depth past %d levels, refusing", MaxLevels)
		return ErrInvariant
	}
	root := pagestore.NewPage(t.pageSize)
	internalSetKey(root, 0, t.keySize, sepKey)
	internalSetChild(root, 0, t.keySize, t.maxFanout, leftChild)
	internalSetChild(root, 1, t.keySize, t.maxFanout, rightChild)
	root.SetCount(1, true, true)
	root.SetPrevID(pagestore.Sentinel)
	root.SetNextID(pagestore.Sentinel)
	rootID, err := t.ps.Write(root)
	if err != nil {
		return err
	}
	t.numNodes++
	t.levels++
	t.root = rootID
	t.ps.SetActiveRoot(t.root)
	return nil
}

// IsValid implements pagestore.Callbacks: it decides whether physical
// page pnum is still reachable from the current root by extracting its
// minimum key and descending for it, resolving every child pointer
// through the mapping table before testing it against pnum (a parent
// is only rewritten lazily, so the raw pointer it stores is routinely
// stale and must be resolved the same way a normal descent would).
// Once reachability is established, whether pnum itself additionally
// has a forward mapping entry (already superseded by a newer copy
// written elsewhere) decides status 0 (pnum is the live copy; the
// caller must relocate it) versus status 1 (pnum is already stale
// and superseded; only the parent needs rewriting, to absorb the
// mapping and retire it).
func (t *Tree) IsValid(pnum uint32) (int8, uint32, error) {
	scratch := make([]byte, t.pageSize)
	if err := t.ps.ReadRaw(pnum, scratch); err != nil {
		return -1, 0, err
	}
	page := &pagestore.Page{ID: pnum, Data: scratch}

	var minKey []byte
	if NodeKind(page) {
		if page.Count() == 0 {
			return -1, 0, nil
		}
		minKey = internalKey(page, 0, t.keySize)
	} else {
		if page.Count() == 0 {
			return -1, 0, nil
		}
		minKey = leafKey(page, 0, t.recordSize, t.keySize)
	}

	curID := t.mapping.resolve(t.root)
	for level := 0; level < t.levels-1; level++ {
		node, id, err := t.loadChained(curID)
		if err != nil {
			return -1, 0, err
		}
		count := int(node.Count())
		i := internalSearch(node, minKey, count, t.keySize, t.maxFanout, t.cmp)
		raw := internalChild(node, i, t.keySize, t.maxFanout)
		resolved := t.mapping.resolve(raw)
		if resolved == pnum {
			if t.mapping.has(pnum) {
				return 1, id, nil
			}
			return 0, id, nil
		}
		curID = resolved
	}
	return -1, 0, nil
}

// MovePage implements pagestore.Callbacks: it adjusts buf's own child
// pointers if it is internal, then either repoints the active root or
// installs a mapping so readers still reach curr through prev.
func (t *Tree) MovePage(prev, curr uint32, buf *pagestore.Page) error {
	if NodeKind(buf) {
		t.updatePointers(buf, int(buf.Count()))
	}
	if prev == t.root {
		t.root = curr
		t.ps.SetActiveRoot(t.root)
		return nil
	}
	effectivePrev := t.updatePrev(buf, prev)
	return t.fixMappings(effectivePrev, curr)
}

// ParentRewritten implements pagestore.Callbacks: it reports whether id
// already carries a forward mapping entry, i.e. whether a MovePage call
// earlier in the same recycling pass already rewrote it.
func (t *Tree) ParentRewritten(id uint32) bool {
	return t.mapping.has(id)
}

// RetireMapping implements pagestore.Callbacks: it drops id's mapping
// entry once a duplicate parent rewrite in the same pass makes it dead
// weight the table no longer needs to carry.
func (t *Tree) RetireMapping(id uint32) {
	t.mapping.delete(id)
}
