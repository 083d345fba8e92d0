// Package bolt is the bbolt-backed implementation of storage.Engine.
//
// bbolt is chosen because it is:
//   - Pure Go (no CGO, no external process)
//   - ACID — every Update commits fully or not at all, even across crashes
//   - Single file (queue.db inside the queue directory)
//   - Single-writer: write transactions are serialized by the database
//     itself, in-process and across processes via the file lock
//
// That last property is load-bearing: the queue performs every operation,
// reads included, inside a write transaction, so the database's writer lock
// is the sole synchronization mechanism between producers and consumers.
package bolt

import (
	"fmt"
	"os"
	"path/filepath"

	"go.etcd.io/bbolt"

	"github.com/arthur78/nque/internal/storage"
)

const dbFileName = "queue.db"

// bucketQueue is the single namespace holding the reserved pointer keys and
// all item keys.
var bucketQueue = []byte("queue")

// Options tune how the store is opened.
// The zero value is valid; Open fills in defaults.
type Options struct {
	// InitialMmapSize pre-sizes the memory map, in bytes, so that write
	// transactions never stall on growing the file under load. The queue
	// passes twice its maximum total payload size.
	InitialMmapSize int

	// FileMode is the permission mode for the database file. Zero means 0o640.
	FileMode os.FileMode
}

// Store is a bbolt database exposed through the storage.Engine interface.
// All methods are safe for concurrent use.
type Store struct {
	db *bbolt.DB
}

// Ensure Store satisfies the interface at compile time.
var _ storage.Engine = (*Store)(nil)

// Open creates (or reopens) the store backed by dir/queue.db.
func Open(dir string, opts Options) (*Store, error) {
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, fmt.Errorf("bolt: create dir %s: %w", dir, err)
	}

	mode := opts.FileMode
	if mode == 0 {
		mode = 0o640
	}

	db, err := bbolt.Open(filepath.Join(dir, dbFileName), mode, &bbolt.Options{
		Timeout:         0,
		InitialMmapSize: opts.InitialMmapSize,
	})
	if err != nil {
		return nil, fmt.Errorf("bolt: open %s: %w", dir, err)
	}

	// Ensure the queue bucket exists.
	if err := db.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(bucketQueue)
		return err
	}); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("bolt: init bucket: %w", err)
	}

	return &Store{db: db}, nil
}

// Update runs fn inside a bbolt write transaction. bbolt admits one write
// transaction at a time, so every fn body runs serialized against all other
// writers. The transaction commits when fn returns nil and rolls back
// otherwise.
func (s *Store) Update(fn func(storage.Txn) error) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		return fn(&txn{b: tx.Bucket(bucketQueue)})
	})
}

// Close releases the database and its file lock.
func (s *Store) Close() error {
	return s.db.Close()
}

// txn adapts a bbolt bucket to storage.Txn.
type txn struct {
	b *bbolt.Bucket
}

func (t *txn) Get(key []byte) ([]byte, error) {
	val := t.b.Get(key)
	if val == nil {
		return nil, storage.ErrNotFound
	}
	// bbolt slices are only valid for the life of the transaction; copy so
	// callers may keep the value after commit.
	out := make([]byte, len(val))
	copy(out, val)
	return out, nil
}

func (t *txn) Put(key, value []byte) error {
	return t.b.Put(key, value)
}

func (t *txn) Delete(key []byte) error {
	return t.b.Delete(key)
}

// EntryCount counts keys with a cursor walk rather than bucket statistics:
// the cursor sees this transaction's own uncommitted writes, while the
// precomputed stats only cover committed pages. The key space is bounded by
// the queue capacity, so the walk stays cheap.
func (t *txn) EntryCount() (int, error) {
	n := 0
	c := t.b.Cursor()
	for k, _ := c.First(); k != nil; k, _ = c.Next() {
		n++
	}
	return n, nil
}
