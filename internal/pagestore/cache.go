package pagestore

import (
	"github.com/dgraph-io/ristretto/v2"
)

// readCache is a per-page read cache sitting behind the fixed buffer
// pool: a page evicted from the buffer array can still be served
// without touching the medium if it is hot.
// It never backs the reserved scratch (slot 0), root (slot 1), or
// active-path buffers — those stay in bufferPool's own fixed array, so
// the device's guaranteed memory budget never depends on cache hits.
type readCache struct {
	cache *ristretto.Cache[uint32, []byte]
}

func newReadCache(numBuffers, pageSize int) (*readCache, error) {
	maxCost := int64(numBuffers) * int64(pageSize) * 8
	if maxCost < 1<<16 {
		maxCost = 1 << 16
	}
	c, err := ristretto.NewCache(&ristretto.Config[uint32, []byte]{
		NumCounters: maxCost / int64(pageSize) * 10,
		MaxCost:     maxCost,
		BufferItems: 64,
	})
	if err != nil {
		return nil, err
	}
	return &readCache{cache: c}, nil
}

func (c *readCache) get(pnum uint32) ([]byte, bool) {
	if c == nil {
		return nil, false
	}
	return c.cache.Get(pnum)
}

func (c *readCache) set(pnum uint32, data []byte) {
	if c == nil {
		return
	}
	cp := make([]byte, len(data))
	copy(cp, data)
	c.cache.Set(pnum, cp, int64(len(cp)))
}

func (c *readCache) invalidate(pnum uint32) {
	if c == nil {
		return
	}
	c.cache.Del(pnum)
	// ristretto applies a queued Set asynchronously; waiting here keeps
	// an earlier Set of pnum from reappearing after this Del returns.
	c.cache.Wait()
}

func (c *readCache) close() {
	if c == nil {
		return
	}
	c.cache.Close()
}
