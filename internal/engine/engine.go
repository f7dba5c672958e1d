// Package engine wires the page store and B-tree engine together into
// the key-value surface the server and CLI talk to: string keys are
// hashed into the tree's fixed-width key field, values are opaque
// byte slices padded or rejected against the configured data size.
package engine

import (
	"errors"

	"github.com/cespare/xxhash/v2"

	"github.com/ubco-db/btree/internal/btree"
	"github.com/ubco-db/btree/internal/logger"
	"github.com/ubco-db/btree/internal/pagestore"
)

// ErrNotSupported marks an operation the underlying tree deliberately
// does not implement: per-key deletion is out of scope for this tree.
var ErrNotSupported = errors.New("engine: operation not supported")

// ErrValueTooLarge is returned by Set when value exceeds the
// configured data size and would be silently truncated otherwise.
var ErrValueTooLarge = errors.New("engine: value exceeds configured data_size")

// Engine is the runtime pairing of an open page store and the B-tree
// layered over it.
type Engine struct {
	ps       *pagestore.Store
	tree     *btree.Tree
	log      *logger.Logger
	keySize  int
	dataSize int
}

func NewEngine(ps *pagestore.Store, tree *btree.Tree, log *logger.Logger, keySize, dataSize int) *Engine {
	return &Engine{ps: ps, tree: tree, log: log, keySize: keySize, dataSize: dataSize}
}

// hashKey folds an arbitrary string key down to the tree's fixed
// key_size using xxhash, truncating (or zero-extending) the 8-byte
// digest to fit whatever key_size the database was configured with.
func (e *Engine) hashKey(key string) []byte {
	sum := xxhash.Sum64String(key)
	digest := make([]byte, 8)
	for i := 0; i < 8; i++ {
		digest[7-i] = byte(sum)
		sum >>= 8
	}
	out := make([]byte, e.keySize)
	if e.keySize <= 8 {
		copy(out, digest[8-e.keySize:])
	} else {
		copy(out[e.keySize-8:], digest)
	}
	return out
}

func (e *Engine) fitValue(value []byte) ([]byte, error) {
	if len(value) > e.dataSize {
		return nil, ErrValueTooLarge
	}
	out := make([]byte, e.dataSize)
	copy(out, value)
	return out, nil
}

// Set inserts or overwrites key with value.
func (e *Engine) Set(key string, value []byte) error {
	padded, err := e.fitValue(value)
	if err != nil {
		return err
	}
	return e.tree.Put(e.hashKey(key), padded)
}

// Get returns the padded data_size-length value stored under key.
func (e *Engine) Get(key string) ([]byte, error) {
	return e.tree.Get(e.hashKey(key))
}

// Del always fails: per-key deletion is an explicit non-goal of the
// underlying tree.
func (e *Engine) Del(key string) error {
	return ErrNotSupported
}

// Iterate walks every record in the tree, calling fn for each, and
// stops at the first error fn returns. Because keys are hashed, the ordering observed here is
// hash order, not the caller's original key order — callers wanting
// insertion-order or lexical iteration should track that separately.
func (e *Engine) Iterate(fn func(key, value []byte) error) error {
	it, err := e.tree.IterInit(nil, nil)
	if err != nil {
		return err
	}
	for {
		k, v, ok, err := it.Next()
		if err != nil {
			return err
		}
		if !ok {
			return nil
		}
		if err := fn(k, v); err != nil {
			return err
		}
	}
}

func (e *Engine) Stats() pagestore.Stats { return e.ps.Stats() }

func (e *Engine) Close() error { return e.ps.Close() }
