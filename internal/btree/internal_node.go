package btree

import (
	"encoding/binary"

	"github.com/ubco-db/btree/internal/pagestore"
)

// internal node payload layout: K*F bytes of keys, then 4*(F+1) bytes
// of child ids, laid out contiguously after the page header.

func internalKeyOffset(i, keySize int) int { return i * keySize }

func internalChildOffset(i, keySize, fanout int) int {
	return keySize*fanout + i*4
}

func internalKey(page *pagestore.Page, i, keySize int) []byte {
	off := internalKeyOffset(i, keySize)
	return page.Payload()[off : off+keySize]
}

func internalChild(page *pagestore.Page, i, keySize, fanout int) uint32 {
	off := internalChildOffset(i, keySize, fanout)
	return binary.LittleEndian.Uint32(page.Payload()[off : off+4])
}

func internalSetChild(page *pagestore.Page, i, keySize, fanout int, id uint32) {
	off := internalChildOffset(i, keySize, fanout)
	binary.LittleEndian.PutUint32(page.Payload()[off:off+4], id)
}

func internalSetKey(page *pagestore.Page, i, keySize int, key []byte) {
	off := internalKeyOffset(i, keySize)
	copy(page.Payload()[off:off+keySize], key)
}

// internalSearch returns the child slot i such that keys in child i
// are <= key and keys in child i+1 are > key, breaking ties to the
// rightmost child holding the key. count is the number of keys
// currently stored (n children = count+1).
func internalSearch(page *pagestore.Page, key []byte, count, keySize, fanout int, cmp CompareFunc) int {
	lo, hi := 0, count-1
	slot := count
	for lo <= hi {
		mid := (lo + hi) / 2
		if cmp(internalKey(page, mid, keySize), key) <= 0 {
			lo = mid + 1
		} else {
			slot = mid
			hi = mid - 1
		}
	}
	return slot
}

// internalInsertAt shifts keys/children above at one slot right and
// installs a new separator key with its right child; the existing
// child at `at` becomes the left child of the new key, unchanged.
func internalInsertAt(page *pagestore.Page, at, count, keySize, fanout int, key []byte, rightChild uint32) {
	for i := count; i > at; i-- {
		copy(internalKey(page, i, keySize), internalKey(page, i-1, keySize))
	}
	internalSetKey(page, at, keySize, key)
	for i := count + 1; i > at+1; i-- {
		internalSetChild(page, i, keySize, fanout, internalChild(page, i-1, keySize, fanout))
	}
	internalSetChild(page, at+1, keySize, fanout, rightChild)
}

func internalSplitPoint(count int) int { return count / 2 }
