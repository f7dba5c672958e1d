// Package pagestore implements the log-structured page store (PS) from
// the embedded B-tree's design: a flat array of fixed-size physical
// pages, a tiny fixed pool of in-memory buffers, append-write with
// block-erase cycling, and in-place overwrite.
package pagestore

import "encoding/binary"

// HeaderSize is the fixed 16-byte page header laid out exactly as:
//
//	offset  size  field
//	0       4     logical_id
//	4       4     prev_id
//	8       4     next_id
//	12      2     count_and_flags
//	14      2     padding
const HeaderSize = 16

const (
	logicalIDOffset = 0
	prevIDOffset    = 4
	nextIDOffset    = 8
	countFlagOffset = 12
)

// NextIDOffset is exported so callers that patch the next_id chain
// directly via WriteBytes (rather than rewriting a whole page) know
// where the 4-byte field lives.
const NextIDOffset = nextIDOffset

// Sentinel is the value used for "no page" in prev_id/next_id chains and
// for an empty buffer slot. Physical page id 0 is therefore never a
// buffer-cache hit (see Store.Read) even though it is a writable page.
const Sentinel uint32 = 0

// Page is a fixed page_size view over one node's on-storage bytes. ID is
// the page's physical address (offset / page_size); it is not itself
// part of Data, it is set by the store on Write/Overwrite/Read.
type Page struct {
	ID   uint32
	Data []byte
}

// NewPage allocates a zeroed page-sized buffer.
func NewPage(pageSize int) *Page {
	return &Page{Data: make([]byte, pageSize)}
}

func (p *Page) LogicalID() uint32 {
	return binary.LittleEndian.Uint32(p.Data[logicalIDOffset:])
}

func (p *Page) SetLogicalID(id uint32) {
	binary.LittleEndian.PutUint32(p.Data[logicalIDOffset:], id)
}

func (p *Page) PrevID() uint32 {
	return binary.LittleEndian.Uint32(p.Data[prevIDOffset:])
}

func (p *Page) SetPrevID(id uint32) {
	binary.LittleEndian.PutUint32(p.Data[prevIDOffset:], id)
}

func (p *Page) NextID() uint32 {
	return binary.LittleEndian.Uint32(p.Data[nextIDOffset:])
}

func (p *Page) SetNextID(id uint32) {
	binary.LittleEndian.PutUint32(p.Data[nextIDOffset:], id)
}

func (p *Page) rawCountAndFlags() uint16 {
	return binary.LittleEndian.Uint16(p.Data[countFlagOffset:])
}

func (p *Page) setRawCountAndFlags(v uint16) {
	binary.LittleEndian.PutUint16(p.Data[countFlagOffset:], v)
}

// Count decodes the raw record count, always < 10000 per the format
// invariant.
func (p *Page) Count() uint16 {
	v := p.rawCountAndFlags()
	if v >= 20000 {
		v -= 20000
	}
	return v % 10000
}

// IsInternalFlag reports whether the interior-node bit is set. Count,
// interior and root are packed as independent components of the same
// field (unlike a cascading-threshold scheme where a root's own range
// would swallow the interior range, leaving a root-leaf and a
// root-interior node indistinguishable without also knowing the tree's
// current depth), so this is a complete, unambiguous check on its own
// — see the design note in node_kind.go.
func (p *Page) IsInternalFlag() bool {
	v := p.rawCountAndFlags()
	if v >= 20000 {
		v -= 20000
	}
	return v >= 10000
}

// IsRootFlag reports whether the root bit is set.
func (p *Page) IsRootFlag() bool {
	return p.rawCountAndFlags() >= 20000
}

// SetCountAndFlags packs count (always < 10000), the interior flag and
// the root flag into the 16-bit field as three independent components:
// +10000 for interior, +20000 for root, so a root-interior node reads
// back as both flags set rather than one shadowing the other.
func SetCountAndFlags(count uint16, internal, root bool) uint16 {
	v := count % 10000
	if internal {
		v += 10000
	}
	if root {
		v += 20000
	}
	return v
}

func (p *Page) SetCount(count uint16, internal, root bool) {
	p.setRawCountAndFlags(SetCountAndFlags(count, internal, root))
}

// Payload returns the page bytes after the header, where node-specific
// content (leaf records or internal node keys+children) begins.
func (p *Page) Payload() []byte {
	return p.Data[HeaderSize:]
}

// Reset clears header and payload, leaving Data page-size zeroed but
// keeps the physical ID (callers overwrite ID themselves on write).
func (p *Page) Reset() {
	for i := range p.Data {
		p.Data[i] = 0
	}
}

// Clone returns a deep copy, used whenever a page must be handed to a
// caller or cached independently of the buffer slot that produced it.
func (p *Page) Clone() *Page {
	cp := &Page{ID: p.ID, Data: make([]byte, len(p.Data))}
	copy(cp.Data, p.Data)
	return cp
}
