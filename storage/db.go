package storage

import (
	"github.com/ethereum/go-ethereum/core/rawdb"
	"github.com/ethereum/go-ethereum/ethdb"
	ethleveldb "github.com/ethereum/go-ethereum/ethdb/leveldb"
	"github.com/ethereum/go-ethereum/triedb"
	"github.com/syndtr/goleveldb/leveldb/opt"
)

// Database is a generic interface for a key-value store backing the escrow
// ledger. The TrieDB handle is shared with the state trie so raw metadata and
// trie nodes live in the same store.
type Database interface {
	Put(key []byte, value []byte) error
	Get(key []byte) ([]byte, error)
	Close()
	TrieDB() *triedb.Database
}

// --- In-Memory DB (for testing) ---

// MemDB is an ephemeral database used by tests and tooling.
type MemDB struct {
	kv     ethdb.Database
	trieDB *triedb.Database
}

func NewMemDB() *MemDB {
	kv := rawdb.NewMemoryDatabase()
	return &MemDB{
		kv:     kv,
		trieDB: triedb.NewDatabase(kv, triedb.HashDefaults),
	}
}

func (db *MemDB) Put(key []byte, value []byte) error {
	return db.kv.Put(key, value)
}

func (db *MemDB) Get(key []byte) ([]byte, error) {
	return db.kv.Get(key)
}

// Close satisfies the Database interface for MemDB.
func (db *MemDB) Close() {
	db.trieDB.Close()
	db.kv.Close()
}

func (db *MemDB) TrieDB() *triedb.Database {
	return db.trieDB
}

// --- Persistent DB ---

// LevelDB is a persistent key-value store using LevelDB.
type LevelDB struct {
	kv     ethdb.Database
	trieDB *triedb.Database
}

// NewLevelDB creates or opens a LevelDB database at the specified path.
func NewLevelDB(path string) (*LevelDB, error) {
	ldb, err := ethleveldb.NewCustom(path, "tradep2p", func(options *opt.Options) {
		options.OpenFilesCacheCapacity = 64
		options.BlockCacheCapacity = 16 * opt.MiB
		options.WriteBuffer = 16 * opt.MiB
	})
	if err != nil {
		return nil, err
	}
	kv := rawdb.NewDatabase(ldb)
	return &LevelDB{
		kv:     kv,
		trieDB: triedb.NewDatabase(kv, triedb.HashDefaults),
	}, nil
}

// Put inserts or updates a key-value pair.
func (ldb *LevelDB) Put(key []byte, value []byte) error {
	return ldb.kv.Put(key, value)
}

// Get retrieves a value for a given key.
func (ldb *LevelDB) Get(key []byte) ([]byte, error) {
	return ldb.kv.Get(key)
}

// Close closes the database connection.
func (ldb *LevelDB) Close() {
	ldb.trieDB.Close()
	ldb.kv.Close()
}

func (ldb *LevelDB) TrieDB() *triedb.Database {
	return ldb.trieDB
}
