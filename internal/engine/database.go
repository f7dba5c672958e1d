package engine

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/ubco-db/btree/internal/btree"
	"github.com/ubco-db/btree/internal/config"
	"github.com/ubco-db/btree/internal/logger"
	"github.com/ubco-db/btree/internal/pagestore"
)

// Database is the named, on-disk handle the server and CLI open and
// close: one page-store file plus the tree layered over it.
type Database struct {
	Name string

	engine *Engine
	path   string
}

// Open attaches to dbname under cfg.DataDir, creating the backing file
// and an empty tree if it does not exist yet, or recovering the
// existing tree's root otherwise.
func Open(dbname string, cfg *config.Config) (*Database, error) {
	dbDir := filepath.Join(cfg.DataDir, dbname)
	if err := os.MkdirAll(dbDir, 0o755); err != nil {
		return nil, fmt.Errorf("engine: create db dir: %w", err)
	}
	dbPath := filepath.Join(dbDir, dbname+".db")
	logPath := filepath.Join(cfg.LogDir, dbname+".log")

	logFile, err := os.OpenFile(logPath, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o666)
	if err != nil {
		return nil, fmt.Errorf("engine: open log file: %w", err)
	}
	log := logger.New(logFile, logger.INFO)

	_, statErr := os.Stat(dbPath)
	fresh := os.IsNotExist(statErr)

	numPages := numPagesFor(cfg)
	medium, err := pagestore.OpenFileMedium(dbPath, cfg.PageSize, numPages)
	if err != nil {
		return nil, fmt.Errorf("engine: open medium: %w", err)
	}

	ps, err := pagestore.Open(medium, cfg.PageSize, cfg.NumBuffers, uint32(cfg.EraseBlockPages), log)
	if err != nil {
		return nil, err
	}

	tree, err := btree.New(ps, btree.Config{
		PageSize:        cfg.PageSize,
		KeySize:         cfg.KeySize,
		DataSize:        cfg.DataSize,
		MappingCapacity: cfg.MappingCapacity,
	}, log)
	if err != nil {
		return nil, err
	}

	if fresh {
		log.Infof("initializing new database %q at %s", dbname, dbPath)
		if err := tree.Init(); err != nil {
			return nil, err
		}
	} else {
		log.Infof("recovering database %q from %s", dbname, dbPath)
		if err := tree.Recover(); err != nil {
			return nil, err
		}
	}

	eng := NewEngine(ps, tree, log, cfg.KeySize, cfg.DataSize)
	return &Database{Name: dbname, engine: eng, path: dbPath}, nil
}

// numPagesFor sizes the backing medium to 4 MiB worth of pages (at
// least four erase-blocks), rounded down to a whole number of
// erase-blocks as PS.Open requires.
func numPagesFor(cfg *config.Config) uint32 {
	const defaultDataBytes = 4 * 1024 * 1024
	n := uint32(defaultDataBytes / cfg.PageSize)
	block := uint32(cfg.EraseBlockPages)
	if block == 0 {
		block = 1
	}
	if n < block*4 {
		n = block * 4
	}
	n -= n % block
	return n
}

func (db *Database) Set(key string, value []byte) error { return db.engine.Set(key, value) }
func (db *Database) Get(key string) ([]byte, error)     { return db.engine.Get(key) }
func (db *Database) Del(key string) error               { return db.engine.Del(key) }

func (db *Database) Iterate(fn func(key, value []byte) error) error {
	return db.engine.Iterate(fn)
}

func (db *Database) Stats() pagestore.Stats { return db.engine.Stats() }

func (db *Database) Close() error { return db.engine.Close() }
