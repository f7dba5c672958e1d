package pagestore

// bufferSlot is one in-memory page buffer. status holds the physical
// page id currently cached there, or Sentinel (0) if empty — which
// means a real page 0 can never register as a hit, matching the format
// note in page.go.
type bufferSlot struct {
	status uint32
	page   *Page
}

// bufferPool implements a fixed, deterministic replacement policy:
//
//   - slot 0 is reserved scratch space, only filled via ReadInto.
//   - slot 1 is reserved for the root (activeRoot) when there are at
//     least 3 buffers.
//   - with exactly 2 buffers, every non-reserved read lands in slot 1.
//   - with exactly 3 buffers, every non-root read lands in slot 2.
//   - with 4 or more, reads round-robin over slots 2..B-1, preferring
//     an empty slot first, and never evict the slot holding lastHit.
type bufferPool struct {
	slots      []bufferSlot
	numBuffers int
	pageSize   int
	nextRobin  int
	lastHit    uint32
	activeRoot uint32
}

func newBufferPool(numBuffers, pageSize int) *bufferPool {
	slots := make([]bufferSlot, numBuffers)
	for i := range slots {
		slots[i].page = NewPage(pageSize)
	}
	return &bufferPool{
		slots:      slots,
		numBuffers: numBuffers,
		pageSize:   pageSize,
		nextRobin:  2,
	}
}

// setActiveRoot records the current physical id of the tree root so
// slot 1 reservation (B >= 3) can recognize root reads.
func (b *bufferPool) setActiveRoot(id uint32) {
	b.activeRoot = id
}

// find returns the slot index already caching pnum, or -1. pnum == 0
// never matches, by construction (Sentinel marks an empty slot).
func (b *bufferPool) find(pnum uint32) int {
	if pnum == Sentinel {
		return -1
	}
	for i := 1; i < b.numBuffers; i++ {
		if b.slots[i].status == pnum {
			return i
		}
	}
	return -1
}

// slotFor picks the buffer slot a fresh read of pnum should land in,
// per the replacement policy. It never returns 0 (reserved for
// ReadInto) and never returns a slot equal to lastHit's slot content
// when alternatives exist.
func (b *bufferPool) slotFor(pnum uint32) int {
	switch {
	case b.numBuffers == 2:
		return 1
	case pnum == b.activeRoot:
		return 1
	case b.numBuffers == 3:
		return 2
	default:
		for i := 2; i < b.numBuffers; i++ {
			if b.slots[i].status == Sentinel {
				return i
			}
		}
		i := b.nextRobin
		for {
			if i > b.numBuffers-1 {
				i = 2
			}
			if b.slots[i].status != b.lastHit {
				break
			}
			i++
		}
		b.nextRobin = i + 1
		return i
	}
}

func (b *bufferPool) at(i int) *Page { return b.slots[i].page }

func (b *bufferPool) install(i int, pnum uint32) {
	b.slots[i].status = pnum
	b.lastHit = pnum
}

// invalidate clears any slot caching pnum, used after a page is
// recycled/superseded so a stale copy is never served as a hit.
func (b *bufferPool) invalidate(pnum uint32) {
	if pnum == Sentinel {
		return
	}
	for i := 1; i < b.numBuffers; i++ {
		if b.slots[i].status == pnum {
			b.slots[i].status = Sentinel
		}
	}
}

// patch overwrites the contents of any slot already caching pnum, used
// by Overwrite/WriteBytes to keep the buffer pool coherent with the
// medium.
func (b *bufferPool) patch(pnum uint32, data []byte) {
	if pnum == Sentinel {
		return
	}
	for i := 1; i < b.numBuffers; i++ {
		if b.slots[i].status == pnum {
			copy(b.slots[i].page.Data, data)
			b.slots[i].page.ID = pnum
		}
	}
}
