package btree_test

import (
	"encoding/binary"
	"math/rand"
	"testing"

	"github.com/ubco-db/btree/internal/btree"
	"github.com/ubco-db/btree/internal/logger"
	"github.com/ubco-db/btree/internal/pagestore"
	"github.com/ubco-db/btree/internal/randseq"
)

const (
	testPageSize = 512
	testKeySize  = 4
	testDataSize = 12
)

func keyOf(n uint32) []byte {
	b := make([]byte, testKeySize)
	binary.BigEndian.PutUint32(b, n)
	return b
}

func valueOf(n uint32) []byte {
	b := make([]byte, testDataSize)
	binary.BigEndian.PutUint32(b, n)
	return b
}

func keyToUint(b []byte) uint32 { return binary.BigEndian.Uint32(b) }

func newTestTree(t *testing.T, numBuffers int, eraseBlockPages, numPages uint32, mappingCapacity int) *btree.Tree {
	t.Helper()
	medium := pagestore.NewMemMedium(testPageSize, numPages)
	ps, err := pagestore.Open(medium, testPageSize, numBuffers, eraseBlockPages, logger.Nop())
	if err != nil {
		t.Fatalf("pagestore.Open: %v", err)
	}
	tree, err := btree.New(ps, btree.Config{
		PageSize:        testPageSize,
		KeySize:         testKeySize,
		DataSize:        testDataSize,
		MappingCapacity: mappingCapacity,
	}, logger.Nop())
	if err != nil {
		t.Fatalf("btree.New: %v", err)
	}
	if err := tree.Init(); err != nil {
		t.Fatalf("Init: %v", err)
	}
	return tree
}

func mustGet(t *testing.T, tree *btree.Tree, key uint32) []byte {
	t.Helper()
	v, err := tree.Get(keyOf(key))
	if err != nil {
		t.Fatalf("Get(%d): %v", key, err)
	}
	return v
}

// TestShuffledDenseSequence inserts keys 1..500 in a permuted order and
// checks that previously inserted keys stay retrievable throughout, and
// that the full range comes back in order at the end.
func TestShuffledDenseSequence(t *testing.T) {
	const n = 500
	tree := newTestTree(t, 4, 4096, 32768, 32)

	perm := rand.New(rand.NewSource(1)).Perm(n)
	inserted := make([]uint32, 0, n)

	for i, p := range perm {
		key := uint32(p + 1)
		if err := tree.Put(keyOf(key), valueOf(key)); err != nil {
			t.Fatalf("Put(%d): %v", key, err)
		}
		inserted = append(inserted, key)

		// Full retrievability check periodically, plus always for the
		// key that was just inserted.
		if i%50 == 0 || i == n-1 {
			for _, k := range inserted {
				if got := mustGet(t, tree, k); keyToUint(got) != k {
					t.Fatalf("Get(%d) = %d after %d inserts", k, keyToUint(got), i+1)
				}
			}
		} else if got := mustGet(t, tree, key); keyToUint(got) != key {
			t.Fatalf("Get(%d) = %d immediately after insert", key, keyToUint(got))
		}
	}

	it, err := tree.IterInit(keyOf(1), keyOf(n))
	if err != nil {
		t.Fatalf("IterInit: %v", err)
	}
	count := 0
	var prev uint32
	for {
		k, v, ok, err := it.Next()
		if err != nil {
			t.Fatalf("Next: %v", err)
		}
		if !ok {
			break
		}
		got := keyToUint(k)
		if count > 0 && got <= prev {
			t.Fatalf("iterator not strictly ascending: %d after %d", got, prev)
		}
		if keyToUint(v) != got {
			t.Fatalf("value mismatch for key %d: %d", got, keyToUint(v))
		}
		prev = got
		count++
	}
	if count != n {
		t.Fatalf("iterator yielded %d records, want %d", count, n)
	}
}

func TestOutOfRangeGet(t *testing.T) {
	tree := newTestTree(t, 4, 4096, 32768, 32)
	for k := uint32(1); k <= 500; k++ {
		if err := tree.Put(keyOf(k), valueOf(k)); err != nil {
			t.Fatalf("Put(%d): %v", k, err)
		}
	}

	if _, err := tree.Get(keyOf(0)); err != btree.ErrNotFound {
		t.Fatalf("Get(0) = %v, want ErrNotFound", err)
	}
	if _, err := tree.Get(keyOf(3_500_000)); err != btree.ErrNotFound {
		t.Fatalf("Get(3500000) = %v, want ErrNotFound", err)
	}
}

func TestRangeIterator(t *testing.T) {
	tree := newTestTree(t, 4, 4096, 32768, 32)
	for k := uint32(1); k <= 500; k++ {
		if err := tree.Put(keyOf(k), valueOf(k)); err != nil {
			t.Fatalf("Put(%d): %v", k, err)
		}
	}

	it, err := tree.IterInit(keyOf(40), keyOf(299))
	if err != nil {
		t.Fatalf("IterInit: %v", err)
	}
	want := uint32(40)
	count := 0
	for {
		k, _, ok, err := it.Next()
		if err != nil {
			t.Fatalf("Next: %v", err)
		}
		if !ok {
			break
		}
		got := keyToUint(k)
		if got != want {
			t.Fatalf("iterator yielded %d, want %d", got, want)
		}
		want++
		count++
	}
	if count != 260 {
		t.Fatalf("iterator yielded %d records, want 260", count)
	}
}

func TestLastWriteWins(t *testing.T) {
	tree := newTestTree(t, 4, 4096, 32768, 32)
	if err := tree.Put(keyOf(1), valueOf(1)); err != nil {
		t.Fatalf("Put v1: %v", err)
	}
	if err := tree.Put(keyOf(1), valueOf(2)); err != nil {
		t.Fatalf("Put v2: %v", err)
	}
	if got := mustGet(t, tree, 1); keyToUint(got) != 2 {
		t.Fatalf("Get(1) = %d, want 2", keyToUint(got))
	}
}

// TestWrapAroundRecycling drives enough inserts through a tiny buffer
// pool and erase-block size to force the medium to wrap at least once,
// exercising PS's live-page relocation and the B-tree's mapping table
// under recycling pressure.
func TestWrapAroundRecycling(t *testing.T) {
	const n = 4000
	tree := newTestTree(t, 2, 4, 256, 4)

	for k := uint32(1); k <= n; k++ {
		if err := tree.Put(keyOf(k), valueOf(k)); err != nil {
			t.Fatalf("Put(%d): %v", k, err)
		}
	}
	for k := uint32(1); k <= n; k++ {
		if got := mustGet(t, tree, k); keyToUint(got) != k {
			t.Fatalf("Get(%d) = %d after wraparound recycling", k, keyToUint(got))
		}
	}
}

// TestMappingExhaustion forces the in-RAM mapping table to overflow
// (capacity 4) during a run with block recycling, so at least one
// stale page ends up chained via an on-disk next_id patch instead of a
// RAM entry; reads must still return correct values afterward.
func TestMappingExhaustion(t *testing.T) {
	const n = 3000
	tree := newTestTree(t, 3, 4, 256, 4)

	for k := uint32(1); k <= n; k++ {
		if err := tree.Put(keyOf(k), valueOf(k)); err != nil {
			t.Fatalf("Put(%d): %v", k, err)
		}
	}
	for k := uint32(1); k <= n; k++ {
		if got := mustGet(t, tree, k); keyToUint(got) != k {
			t.Fatalf("Get(%d) = %d after mapping exhaustion", k, keyToUint(got))
		}
	}
}

// TestLargeRandomSequence loads a tree using one quadratic-residue key
// stream and verifies every key with an independent second stream over
// the same (size, different seed) range, matching how the generator is
// exercised end to end rather than just unit-tested in isolation.
func TestLargeRandomSequence(t *testing.T) {
	const size = 4000
	tree := newTestTree(t, 4, 4096, 32768, 32)

	load := randseq.New(size, 0)
	inserted := make(map[uint32]bool, size)
	for i := 0; i < size; i++ {
		k := load.Next()
		if inserted[k] {
			continue
		}
		inserted[k] = true
		if err := tree.Put(keyOf(k), valueOf(k)); err != nil {
			t.Fatalf("Put(%d): %v", k, err)
		}
	}

	verify := randseq.New(size, 1)
	for i := 0; i < size; i++ {
		k := verify.Next()
		if !inserted[k] {
			continue
		}
		if got := mustGet(t, tree, k); keyToUint(got) != k {
			t.Fatalf("Get(%d) = %d, want %d", k, keyToUint(got), k)
		}
	}
}

func TestRecoverRebuildsFromHighestRoot(t *testing.T) {
	medium := pagestore.NewMemMedium(testPageSize, 32768)
	ps, err := pagestore.Open(medium, testPageSize, 4, 4096, logger.Nop())
	if err != nil {
		t.Fatalf("pagestore.Open: %v", err)
	}
	tree, err := btree.New(ps, btree.Config{
		PageSize:        testPageSize,
		KeySize:         testKeySize,
		DataSize:        testDataSize,
		MappingCapacity: 32,
	}, logger.Nop())
	if err != nil {
		t.Fatalf("btree.New: %v", err)
	}
	if err := tree.Init(); err != nil {
		t.Fatalf("Init: %v", err)
	}
	for k := uint32(1); k <= 500; k++ {
		if err := tree.Put(keyOf(k), valueOf(k)); err != nil {
			t.Fatalf("Put(%d): %v", k, err)
		}
	}

	recovered, err := btree.New(ps, btree.Config{
		PageSize:        testPageSize,
		KeySize:         testKeySize,
		DataSize:        testDataSize,
		MappingCapacity: 32,
	}, logger.Nop())
	if err != nil {
		t.Fatalf("btree.New (recovered): %v", err)
	}
	if err := recovered.Recover(); err != nil {
		t.Fatalf("Recover: %v", err)
	}
	for k := uint32(1); k <= 500; k++ {
		v, err := recovered.Get(keyOf(k))
		if err != nil {
			t.Fatalf("Get(%d) after recover: %v", k, err)
		}
		if keyToUint(v) != k {
			t.Fatalf("Get(%d) after recover = %d", k, keyToUint(v))
		}
	}
}
