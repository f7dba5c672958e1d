package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"github.com/ubco-db/btree/internal/engine"
)

var createCmd = &cobra.Command{
	Use:   "create <dbname>",
	Args:  cobra.ExactArgs(1),
	Short: "Create a new database",
	RunE: func(cmd *cobra.Command, args []string) error {
		dbname := args[0]

		dbPath := filepath.Join(cfg.DataDir, dbname, dbname+".db")
		if _, err := os.Stat(dbPath); err == nil {
			return fmt.Errorf("%s already exists", dbname)
		}

		newDB, err := engine.Open(dbname, cfg)
		if err != nil {
			return err
		}
		if err := newDB.Close(); err != nil {
			return err
		}

		fmt.Printf("Database %s created\n", dbname)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(createCmd)
}
