package pagestore

import (
	"fmt"

	"github.com/ubco-db/btree/internal/logger"
)

// Callbacks is the capability the B-tree engine hands PS at
// construction so block recycling can cooperate with tree semantics
// without PS knowing anything about node layout. It is only ever
// invoked from inside Write, which is itself only ever invoked from
// inside the engine's Init and Put — there is no reentrancy beyond
// that call chain.
type Callbacks interface {
	// IsValid reports whether physical page pnum is still reachable
	// from the current root: -1 garbage, 0 live and reachable directly,
	// 1 reachable only through the mapping table. When not -1 it also
	// returns the parent page id that would need rewriting.
	IsValid(pnum uint32) (status int8, parentID uint32, err error)
	// MovePage rewrites buf's internal child pointers (if any) through
	// the mapping table so a relocated copy reflects the most current
	// children, and folds the prev/curr relationship into the mapping
	// table or active path as appropriate.
	MovePage(prev, curr uint32, buf *Page) error
	// ParentRewritten reports whether id already has a mapping entry
	// distinct from id, i.e. whether it was already rewritten earlier
	// in the current recycling pass.
	ParentRewritten(id uint32) bool
	// RetireMapping deletes any mapping table entry keyed by id.
	RetireMapping(id uint32)
}

// Store is the page store (PS): a flat, block-addressable medium with
// a tiny fixed pool of in-memory buffers, append-write with block-erase
// cycling, in-place overwrite, and per-page read caching.
type Store struct {
	medium   Medium
	log      *logger.Logger
	pool     *bufferPool
	cache    *readCache
	pageSize int

	eraseBlockPages uint32
	numBlocks       uint32
	endDataPage     uint32

	blockEndPage    uint32
	erasedStartPage uint32
	openBlock       uint32
	wrappedMemory   bool

	nextPageID      uint32
	nextPageWriteID uint32

	callbacks Callbacks

	stats Stats
}

// Open creates or reattaches to medium and initializes PS state, with
// the write head at page 0. Erasing the first two erase-blocks of a
// fresh medium is left to Init. Reattaching to an existing
// medium leaves block geometry derived from medium.NumPages and
// eraseBlockPages; the engine's Recover is responsible for positioning
// nextPageWriteID/nextPageID from the persisted data (PS itself has no
// superblock to read that from).
func Open(medium Medium, pageSize int, numBuffers int, eraseBlockPages uint32, log *logger.Logger) (*Store, error) {
	if numBuffers < 2 {
		return nil, fmt.Errorf("pagestore: num_buffers must be >= 2")
	}
	total := medium.NumPages()
	if eraseBlockPages == 0 {
		eraseBlockPages = 1
	}
	if total%eraseBlockPages != 0 || total < eraseBlockPages*2 {
		return nil, fmt.Errorf("pagestore: medium page count %d must be a multiple of erase_block_pages %d and hold at least 2 blocks", total, eraseBlockPages)
	}

	cache, err := newReadCache(numBuffers, pageSize)
	if err != nil {
		return nil, err
	}

	s := &Store{
		medium:          medium,
		log:             log,
		pool:            newBufferPool(numBuffers, pageSize),
		cache:           cache,
		pageSize:        pageSize,
		eraseBlockPages: eraseBlockPages,
		numBlocks:       total / eraseBlockPages,
		endDataPage:     total - 1,
		blockEndPage:    eraseBlockPages - 1,
		erasedStartPage: eraseBlockPages,
		openBlock:       0,
	}
	return s, nil
}

// SetCallbacks wires the engine's recycling callbacks. Without them,
// recycling after a wrap relocates nothing: every page in the block
// about to be erased is treated as garbage.
func (s *Store) SetCallbacks(cb Callbacks) { s.callbacks = cb }

// Init erases the first two blocks, used only for a brand-new medium.
// Open already leaves the geometry fields correct; Init additionally
// performs the physical erase.
func (s *Store) Init() error {
	if err := s.medium.ErasePages(0, s.blockEndPage); err != nil {
		return err
	}
	if err := s.medium.ErasePages(s.erasedStartPage, s.erasedStartPage+s.eraseBlockPages-1); err != nil {
		return err
	}
	return nil
}

// SetWritePosition lets the engine's Recover reposition the write head
// and logical id counter after scanning the medium for the highest
// root logical_id, and recomputes which block is currently open.
func (s *Store) SetWritePosition(nextPageWriteID, nextPageID uint32) {
	s.nextPageWriteID = nextPageWriteID
	s.nextPageID = nextPageID
	s.openBlock = nextPageWriteID / s.eraseBlockPages
	s.blockEndPage = s.openBlock*s.eraseBlockPages + s.eraseBlockPages - 1
	s.erasedStartPage = (s.blockEndPage + 1) % (s.numBlocks * s.eraseBlockPages)
}

func (s *Store) SetActiveRoot(id uint32) { s.pool.setActiveRoot(id) }

func (s *Store) Stats() Stats { return s.stats }

func (s *Store) PageSize() int { return s.pageSize }

func (s *Store) NumPages() uint32 { return s.medium.NumPages() }

// ReadRaw reads pnum directly from the medium, bypassing the buffer
// pool and read cache. Used by recovery, which needs to scan every
// physical page once without disturbing cache/buffer state meant for
// steady-state operation.
func (s *Store) ReadRaw(pnum uint32, dst []byte) error {
	return s.medium.ReadPage(pnum, dst)
}

// Read returns the buffer holding physical page pnum, either from the
// buffer pool, the read cache, or freshly loaded from the medium.
func (s *Store) Read(pnum uint32) (*Page, error) {
	if i := s.pool.find(pnum); i >= 0 {
		s.stats.BufferHits++
		s.pool.lastHit = pnum
		return s.pool.at(i), nil
	}
	i := s.pool.slotFor(pnum)
	return s.fillSlot(pnum, i)
}

// ReadInto forces pnum into buffer slot 0, the scratch slot the engine
// uses when it intends to modify a node in place.
func (s *Store) ReadInto(pnum uint32) (*Page, error) {
	return s.fillSlot(pnum, 0)
}

func (s *Store) fillSlot(pnum uint32, slot int) (*Page, error) {
	buf := s.pool.at(slot)
	if pnum != Sentinel {
		if cached, ok := s.cache.get(pnum); ok {
			copy(buf.Data, cached)
			buf.ID = pnum
			s.stats.BufferHits++
			s.pool.install(slot, pnum)
			return buf, nil
		}
	}
	if err := s.medium.ReadPage(pnum, buf.Data); err != nil {
		return nil, err
	}
	buf.ID = pnum
	s.stats.Reads++
	s.cache.set(pnum, buf.Data)
	s.pool.install(slot, pnum)
	return buf, nil
}

// Write append-writes buf at the current write head, stamps its
// logical_id, advances the head, and — if the head has just crossed
// into unerased territory — recycles the next block ahead.
func (s *Store) Write(buf *Page) (uint32, error) {
	pnum := s.nextPageWriteID
	buf.SetLogicalID(s.nextPageID)
	s.nextPageID++
	buf.ID = pnum

	if err := s.medium.WritePage(pnum, buf.Data); err != nil {
		return 0, err
	}
	s.stats.Writes++
	s.pool.invalidate(pnum)
	s.cache.set(pnum, buf.Data)

	s.nextPageWriteID++
	if s.nextPageWriteID > s.blockEndPage {
		if err := s.recycle(); err != nil {
			return pnum, err
		}
	}
	return pnum, nil
}

// Overwrite rewrites pnum in place and patches any buffer slot or
// cache entry already holding it.
func (s *Store) Overwrite(buf *Page, pnum uint32) (uint32, error) {
	buf.ID = pnum
	if err := s.medium.WritePage(pnum, buf.Data); err != nil {
		return 0, err
	}
	s.stats.Overwrites++
	s.pool.patch(pnum, buf.Data)
	s.cache.invalidate(pnum)
	return pnum, nil
}

// WriteBytes patches size bytes at offset within pnum, used to append
// an on-disk next_id chain onto an already-written page without
// rewriting the rest of its contents.
func (s *Store) WriteBytes(data []byte, pnum uint32, offset int) error {
	full := make([]byte, s.pageSize)
	if err := s.medium.ReadPage(pnum, full); err != nil {
		return err
	}
	copy(full[offset:], data)
	if err := s.medium.WritePage(pnum, full); err != nil {
		return err
	}
	s.pool.patch(pnum, full)
	s.cache.invalidate(pnum)
	return nil
}

func (s *Store) ErasePages(first, last uint32) error {
	return s.medium.ErasePages(first, last)
}

func (s *Store) Close() error {
	s.cache.close()
	return s.medium.Close()
}

// recycle implements the block-erase discipline: open the block that
// was already pre-erased, then find and pre-erase the block after
// that, relocating any still-live pages out of it first if the medium
// has wrapped.
func (s *Store) recycle() error {
	s.openBlock = s.erasedStartPage / s.eraseBlockPages
	s.blockEndPage = s.openBlock*s.eraseBlockPages + s.eraseBlockPages - 1

	for attempt := uint32(0); attempt < s.numBlocks; attempt++ {
		candidate := (s.openBlock + 1 + attempt) % s.numBlocks
		if candidate == 0 {
			s.wrappedMemory = true
		}
		startErase := candidate * s.eraseBlockPages
		endErase := startErase + s.eraseBlockPages - 1

		live, err := s.scheduleRelocations(startErase, endErase)
		if err != nil {
			return err
		}
		if s.wrappedMemory && uint32(len(live))*2 > s.eraseBlockPages {
			s.log.Debugf("recycle: block %d more than half live (%d/%d), skipping", candidate, len(live), s.eraseBlockPages)
			continue
		}

		if err := s.relocate(live); err != nil {
			return err
		}
		if err := s.medium.ErasePages(startErase, endErase); err != nil {
			return err
		}
		s.erasedStartPage = startErase
		return nil
	}
	return ErrStorageFull
}

type pendingRelocation struct {
	pageNum    uint32
	parentOnly bool
	parentID   uint32
}

// scheduleRelocations calls the engine's IsValid for every page in
// [startErase, endErase] when the medium has wrapped, classifying each
// as garbage (dropped), live-and-reachable (full relocation), or
// live-via-mapping (parent rewrite only, to retire the mapping).
func (s *Store) scheduleRelocations(startErase, endErase uint32) ([]pendingRelocation, error) {
	if !s.wrappedMemory || s.callbacks == nil {
		return nil, nil
	}
	var scheduled []pendingRelocation
	for i := startErase; i <= endErase; i++ {
		status, parentID, err := s.callbacks.IsValid(i)
		if err != nil {
			return nil, err
		}
		switch status {
		case -1:
			continue
		case 0:
			scheduled = append(scheduled, pendingRelocation{pageNum: i, parentID: parentID})
		case 1:
			scheduled = append(scheduled, pendingRelocation{pageNum: i, parentOnly: true, parentID: parentID})
		}
	}
	return scheduled, nil
}

// relocate performs step 5 of the recycling protocol: move each
// scheduled live page forward, then rewrite (or retire the mapping of)
// its parent. A parent shared by more than one scheduled entry is only
// ever rewritten once per pass: the mapping table itself, not a local
// set, is the source of truth for "already rewritten this pass", since
// the first rewrite installs a mapping(parentID) entry that every
// later entry sharing that parentID can observe.
func (s *Store) relocate(scheduled []pendingRelocation) error {
	for _, r := range scheduled {
		if !r.parentOnly {
			buf, err := s.Read(r.pageNum)
			if err != nil {
				return err
			}
			moved := buf.Clone()
			newID := s.nextPageWriteID
			if err := s.callbacks.MovePage(r.pageNum, newID, moved); err != nil {
				return err
			}
			if _, err := s.rawAppend(moved); err != nil {
				return err
			}
		}

		if s.callbacks.ParentRewritten(r.parentID) {
			s.callbacks.RetireMapping(r.parentID)
			continue
		}
		parentBuf, err := s.ReadInto(r.parentID)
		if err != nil {
			return err
		}
		newParentID := s.nextPageWriteID
		if err := s.callbacks.MovePage(r.parentID, newParentID, parentBuf); err != nil {
			return err
		}
		if _, err := s.rawAppend(parentBuf); err != nil {
			return err
		}
	}
	return nil
}

// rawAppend writes buf at nextPageWriteID without triggering recursive
// recycling (relocation writes must land past the block currently
// being erased, and a second recycle mid-relocation would re-enter
// IsValid/MovePage, which is not reentrant).
func (s *Store) rawAppend(buf *Page) (uint32, error) {
	pnum := s.nextPageWriteID
	buf.SetLogicalID(s.nextPageID)
	s.nextPageID++
	buf.ID = pnum
	if err := s.medium.WritePage(pnum, buf.Data); err != nil {
		return 0, err
	}
	s.stats.Writes++
	s.pool.invalidate(pnum)
	s.cache.invalidate(pnum)
	s.nextPageWriteID++
	return pnum, nil
}
