package btree

// CompareFunc orders two fixed-length keys, returning <0, 0, or >0 the
// way bytes.Compare does. Records are kept sorted and searched by this
// total order; the default treats a key as an unsigned big-endian
// integer.
type CompareFunc func(a, b []byte) int

// UnsignedCompare treats a and b as unsigned big-endian integers of
// equal length. It is the default comparator when a tree is opened
// without one.
func UnsignedCompare(a, b []byte) int {
	for i := range a {
		if a[i] != b[i] {
			if a[i] < b[i] {
				return -1
			}
			return 1
		}
	}
	return 0
}
