package btree

import "github.com/ubco-db/btree/internal/pagestore"

// leafRecordOffset returns the payload-relative byte offset of record i.
func leafRecordOffset(i, recordSize int) int { return i * recordSize }

func leafKey(page *pagestore.Page, i, recordSize, keySize int) []byte {
	off := leafRecordOffset(i, recordSize)
	return page.Payload()[off : off+keySize]
}

func leafValue(page *pagestore.Page, i, recordSize, keySize, dataSize int) []byte {
	off := leafRecordOffset(i, recordSize) + keySize
	return page.Payload()[off : off+dataSize]
}

// leafSearchExact returns the index of the record whose key equals
// key, or -1.
func leafSearchExact(page *pagestore.Page, key []byte, count, recordSize, keySize int, cmp CompareFunc) int {
	lo, hi := 0, count-1
	for lo <= hi {
		mid := (lo + hi) / 2
		c := cmp(leafKey(page, mid, recordSize, keySize), key)
		switch {
		case c == 0:
			return mid
		case c < 0:
			lo = mid + 1
		default:
			hi = mid - 1
		}
	}
	return -1
}

// leafSearchRange returns the index of the last record with key <=
// target, or -1 if every record's key is greater.
func leafSearchRange(page *pagestore.Page, target []byte, count, recordSize, keySize int, cmp CompareFunc) int {
	lo, hi := 0, count-1
	result := -1
	for lo <= hi {
		mid := (lo + hi) / 2
		c := cmp(leafKey(page, mid, recordSize, keySize), target)
		if c <= 0 {
			result = mid
			lo = mid + 1
		} else {
			hi = mid - 1
		}
	}
	return result
}

// leafInsertAt shifts records at index >= at one slot to the right and
// writes (key, value) into the freed slot. Caller is responsible for
// checking room (count < L) beforehand and bumping the stored count.
func leafInsertAt(page *pagestore.Page, at, count, recordSize, keySize, dataSize int, key, value []byte) {
	payload := page.Payload()
	src := leafRecordOffset(at, recordSize)
	dst := src + recordSize
	tailLen := (count - at) * recordSize
	copy(payload[dst:dst+tailLen], payload[src:src+tailLen])
	copy(payload[src:src+keySize], key)
	copy(payload[src+keySize:src+keySize+dataSize], value)
}

// leafSplitPoint returns the record index (mid = count/2) used to
// divide a full leaf into two halves.
func leafSplitPoint(count int) int { return count / 2 }
