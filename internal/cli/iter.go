package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

var iterCmd = &cobra.Command{
	Use:   "iter",
	Short: "Print every key/value pair in the open database",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if db == nil {
			return fmt.Errorf("no database open")
		}
		return db.Iterate(func(key, value []byte) error {
			fmt.Printf("%x = %s\n", key, value)
			return nil
		})
	},
}

func init() {
	rootCmd.AddCommand(iterCmd)
}
