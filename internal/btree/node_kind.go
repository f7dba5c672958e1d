package btree

import "github.com/ubco-db/btree/internal/pagestore"

// NodeKind reports whether page is an internal node. A cascading-
// threshold encoding (root's own range starting above interior's)
// would leave a one-level tree's root-leaf indistinguishable from a
// root-interior node without also consulting the tree's current
// depth. This encoding instead treats count, interior and root as
// three independent components of the field (see SetCountAndFlags),
// so a direct flag check is a complete answer on its own — no depth
// lookup needed, and no bootstrap ordering problem when the depth
// itself isn't known yet (as in Tree.Recover).
func NodeKind(page *pagestore.Page) bool {
	return page.IsInternalFlag()
}
