package btree

import "github.com/ubco-db/btree/internal/pagestore"

// Iterator is a stateful cursor over a range of the tree as it stood
// at IterInit. Concurrent mutation of the tree while an Iterator is
// live is undefined, per the single-writer/single-reader model.
type Iterator struct {
	t      *Tree
	maxKey []byte

	path []uint32 // internal node ids, root to leaf-parent (len == t.levels-1)
	idx  []int    // child slot chosen at each entry of path

	leaf      *pagestore.Page
	leafID    uint32
	leafCount int
	recIdx    int

	exhausted bool
}

// IterInit positions a cursor at the first record with key >= minKey,
// or the logical start of the tree if minKey is nil.
func (t *Tree) IterInit(minKey, maxKey []byte) (*Iterator, error) {
	it := &Iterator{t: t, maxKey: maxKey}
	path := make([]uint32, t.levels-1)
	idx := make([]int, t.levels-1)

	curID := t.mapping.resolve(t.root)
	for level := 0; level < t.levels-1; level++ {
		node, id, err := t.loadChained(curID)
		if err != nil {
			return nil, err
		}
		path[level] = id
		count := int(node.Count())
		i := 0
		if minKey != nil {
			i = internalSearch(node, minKey, count, t.keySize, t.maxFanout, t.cmp)
		}
		idx[level] = i
		raw := internalChild(node, i, t.keySize, t.maxFanout)
		curID = t.mapping.resolve(raw)
	}

	leaf, leafID, err := t.loadChained(curID)
	if err != nil {
		return nil, err
	}
	it.path = path
	it.idx = idx
	it.leaf = leaf
	it.leafID = leafID
	it.leafCount = int(leaf.Count())

	if minKey != nil {
		last := leafSearchRange(leaf, minKey, it.leafCount, t.recordSize, t.keySize, t.cmp)
		it.recIdx = last + 1
		if last >= 0 && t.cmp(leafKey(leaf, last, t.recordSize, t.keySize), minKey) == 0 {
			it.recIdx = last
		}
	}
	if it.recIdx >= it.leafCount {
		if !it.advance() {
			it.exhausted = true
		}
	}
	return it, nil
}

// Next returns the next in-range record. ok is false once the range
// (or the tree) is exhausted; callers should stop calling Next then.
func (it *Iterator) Next() (key, value []byte, ok bool, err error) {
	if it.exhausted {
		return nil, nil, false, nil
	}
	if it.recIdx >= it.leafCount {
		if !it.advance() {
			it.exhausted = true
			return nil, nil, false, nil
		}
	}
	t := it.t
	k := leafKey(it.leaf, it.recIdx, t.recordSize, t.keySize)
	if it.maxKey != nil && t.cmp(k, it.maxKey) > 0 {
		it.exhausted = true
		return nil, nil, false, nil
	}
	v := leafValue(it.leaf, it.recIdx, t.recordSize, t.keySize, t.dataSize)
	outKey := append([]byte(nil), k...)
	outVal := append([]byte(nil), v...)
	it.recIdx++
	return outKey, outVal, true, nil
}

// advance walks up the stored path incrementing child indices until a
// level has another child to descend into, then re-descends the
// leftmost way down from there. Returns false when the whole tree has
// been exhausted.
func (it *Iterator) advance() bool {
	t := it.t
	for level := len(it.path) - 1; level >= 0; level-- {
		node, _, err := t.loadChained(it.path[level])
		if err != nil {
			return false
		}
		count := int(node.Count())
		it.idx[level]++
		if it.idx[level] > count {
			continue
		}
		raw := internalChild(node, it.idx[level], t.keySize, t.maxFanout)
		curID := t.mapping.resolve(raw)
		for l := level + 1; l < len(it.path); l++ {
			n2, id2, err := t.loadChained(curID)
			if err != nil {
				return false
			}
			it.path[l] = id2
			it.idx[l] = 0
			raw2 := internalChild(n2, 0, t.keySize, t.maxFanout)
			curID = t.mapping.resolve(raw2)
		}
		leaf, leafID, err := t.loadChained(curID)
		if err != nil {
			return false
		}
		it.leaf = leaf
		it.leafID = leafID
		it.leafCount = int(leaf.Count())
		it.recIdx = 0
		if it.leafCount == 0 {
			return it.advance()
		}
		return true
	}
	return false
}
