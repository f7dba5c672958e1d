package cli

import (
	"fmt"
	"slices"

	"github.com/spf13/cobra"
	"github.com/ubco-db/btree/internal/auth"
)

var grantCmd = &cobra.Command{
	Use:   "grant <username> <dbname>",
	Args:  cobra.ExactArgs(2),
	Short: "Grant user access to db",
	RunE: func(cmd *cobra.Command, args []string) error {
		username, dbname := args[0], args[1]

		fs, err := auth.NewFileStore(cfg.UserFile)
		if err != nil {
			return err
		}

		u, err := fs.GetUser(username)
		if err != nil {
			return fmt.Errorf("could not find user %s: %w", username, err)
		}

		if !slices.Contains(u.AccessDB, dbname) {
			u.AccessDB = append(u.AccessDB, dbname)
		}

		if err := fs.SaveUser(u); err != nil {
			return err
		}

		fmt.Printf("Granted %s access to %s\n", username, dbname)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(grantCmd)
}
