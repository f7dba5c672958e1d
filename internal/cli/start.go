package cli

import (
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"github.com/ubco-db/btree/internal/logger"
	"github.com/ubco-db/btree/internal/server"
)

var startCmd = &cobra.Command{
	Use:   "start",
	Short: "Start GoStore server",
	RunE: func(cmd *cobra.Command, args []string) error {
		logPath := filepath.Join(cfg.LogDir, "gostore.log")
		f, err := os.OpenFile(logPath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
		if err != nil {
			return err
		}
		defer f.Close()

		log := logger.New(f, logger.INFO)

		srv, err := server.New(cfg, log)
		if err != nil {
			return err
		}

		log.Infof("server starting on %s", cfg.Addr)
		return srv.Listen()
	},
}

func init() {
	rootCmd.AddCommand(startCmd)
}
