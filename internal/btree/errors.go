package btree

import "errors"

var (
	// ErrNotFound is returned by Get for a missing key; it is the
	// expected outcome of a missed lookup, not a failure. Iterator
	// exhaustion is reported by Next's ok result, not by this error.
	ErrNotFound = errors.New("btree: key not found")
	// ErrCapacity is returned by Put once the tree's node count reaches
	// half the medium's total pages.
	ErrCapacity = errors.New("btree: medium capacity exhausted")
	// ErrInvariant marks an assertion failure in the engine's own
	// bookkeeping (a split that would leave one side empty, or a new
	// root that would push the depth past MaxLevels). The engine's
	// state is considered corrupt past this point.
	ErrInvariant = errors.New("btree: invariant violation")
)
