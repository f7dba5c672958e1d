// Command store is the gostore CLI entrypoint: it dispatches to the
// interactive REPL or one of the administrative subcommands (create,
// delete, start, create-user, ...) via internal/cli.
package main

import (
	"github.com/ubco-db/btree/internal/cli"
)

func main() {
	cli.Execute()
}
