package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/ubco-db/btree/internal/config"
	"github.com/ubco-db/btree/internal/engine"
)

var (
	homeFlag   string
	configFlag string
	cfg        *config.Config
	db         *engine.Database
)

var rootCmd = &cobra.Command{
	Use:   "gostore [dbname]",
	Short: "GoStore - embedded key-value store",
	Args:  cobra.MaximumNArgs(1),
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.Load(homeFlag, configFlag)
		return err
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		if len(args) == 1 {
			var err error
			db, err = engine.Open(args[0], cfg)
			if err != nil {
				return fmt.Errorf("failed to open database: %w", err)
			}
			defer db.Close()
		}
		startREPL(cmd.Root())
		return nil
	},
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Println("Error:", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&homeFlag, "home", "", "gostore home directory (default $GOSTORE_HOME or ~/.local/share/gostore)")
	rootCmd.PersistentFlags().StringVar(&configFlag, "config", "", "path to config.yaml")
}
