// Command seed loads a database with a reproducible pseudo-random key
// sequence and prints the resulting page-store counters. It exists to
// reproduce large-N load scenarios outside the test suite's smaller
// in-test runs, at whatever scale the caller asks for.
package main

import (
	"flag"
	"fmt"
	"log"
	"strconv"

	"github.com/ubco-db/btree/internal/config"
	"github.com/ubco-db/btree/internal/engine"
	"github.com/ubco-db/btree/internal/randseq"
)

func main() {
	dbname := flag.String("db", "seed", "database name to open under GOSTORE_HOME/data")
	count := flag.Uint("n", 100000, "number of keys to load")
	seed := flag.Int64("seed", 0, "sequence seed")
	home := flag.String("home", "", "gostore home directory override")
	flag.Parse()

	cfg, err := config.Load(*home, "")
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	db, err := engine.Open(*dbname, cfg)
	if err != nil {
		log.Fatalf("open database: %v", err)
	}
	defer db.Close()

	seq := randseq.New(uint32(*count), *seed)
	for i := uint(0); i < *count; i++ {
		key := strconv.FormatUint(uint64(seq.Next()), 10)
		if err := db.Set(key, []byte(key)); err != nil {
			log.Fatalf("set %s: %v", key, err)
		}
	}

	fmt.Printf("loaded %d keys into %q\n", *count, *dbname)
	fmt.Println(db.Stats())
}
