package cli

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
	"github.com/ubco-db/btree/internal/engine"
	"github.com/ubco-db/btree/internal/randseq"
)

var (
	benchCount uint32
	benchSeed  int64
)

var benchCmd = &cobra.Command{
	Use:   "bench <dbname>",
	Args:  cobra.ExactArgs(1),
	Short: "Load a database with a reproducible pseudo-random key sequence and print page-store counters",
	RunE: func(cmd *cobra.Command, args []string) error {
		dbname := args[0]

		bdb, err := engine.Open(dbname, cfg)
		if err != nil {
			return err
		}
		defer bdb.Close()

		seq := randseq.New(benchCount, benchSeed)
		for i := uint32(0); i < benchCount; i++ {
			key := strconv.FormatUint(uint64(seq.Next()), 10)
			if err := bdb.Set(key, []byte(key)); err != nil {
				return err
			}
		}

		fmt.Println(bdb.Stats())
		return nil
	},
}

func init() {
	benchCmd.Flags().Uint32Var(&benchCount, "n", 100000, "number of keys to load")
	benchCmd.Flags().Int64Var(&benchSeed, "seed", 0, "sequence seed")
	rootCmd.AddCommand(benchCmd)
}
