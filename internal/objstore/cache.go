package objstore

import (
	"encoding/json"
	"fmt"
	"time"

	badger "github.com/dgraph-io/badger/v4"

	"cellvcs/internal/errors"
	"cellvcs/internal/hashing"
)

// objMeta is the badger-mirrored record for one object. It is a cache of
// facts the filesystem already holds; losing the database never loses
// data, only the shortcut.
type objMeta struct {
	Kind           string    `json:"kind"`
	OriginalSize   int       `json:"original_size"`
	CompressedSize int       `json:"compressed_size"`
	CreatedAt      time.Time `json:"created_at"`
}

// MetaCache mirrors object existence and size metadata into an embedded
// badger database, keyed "obj:<hash>".
type MetaCache struct {
	db *badger.DB
}

// OpenMetaCache opens (creating if absent) a badger database at dir.
func OpenMetaCache(dir string) (*MetaCache, error) {
	opts := badger.DefaultOptions(dir).WithLogger(nil)
	db, err := badger.Open(opts)
	if err != nil {
		return nil, errors.IoFailure("opening object metadata cache: " + err.Error())
	}
	return &MetaCache{db: db}, nil
}

// Close releases the underlying badger database.
func (c *MetaCache) Close() error {
	if c == nil || c.db == nil {
		return nil
	}
	return c.db.Close()
}

func metaKey(h hashing.Hash) []byte {
	return []byte(fmt.Sprintf("obj:%s", h.String()))
}

// Record mirrors a freshly written object's metadata into the cache. It
// never returns an error to callers — a failed mirror write degrades to a
// cache miss on the next lookup, never to incorrect data.
func (c *MetaCache) Record(h hashing.Hash, kind string, originalSize, compressedSize int) {
	if c == nil || c.db == nil {
		return
	}
	m := objMeta{
		Kind:           kind,
		OriginalSize:   originalSize,
		CompressedSize: compressedSize,
		CreatedAt:      time.Now(),
	}
	b, err := json.Marshal(m)
	if err != nil {
		return
	}
	_ = c.db.Update(func(txn *badger.Txn) error {
		return txn.Set(metaKey(h), b)
	})
}

// Exists reports (found, hit) — hit is false when the cache has no entry
// for h (the caller should fall back to a filesystem stat), true when it
// does (found then reflects whether the object is recorded as present).
func (c *MetaCache) Exists(h hashing.Hash) (found bool, hit bool) {
	if c == nil || c.db == nil {
		return false, false
	}
	err := c.db.View(func(txn *badger.Txn) error {
		_, err := txn.Get(metaKey(h))
		return err
	})
	if err == badger.ErrKeyNotFound {
		return false, false
	}
	if err != nil {
		return false, false
	}
	return true, true
}
