package nque

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/arthur78/nque/internal/storage"
	"github.com/arthur78/nque/internal/storage/bolt"
)

// ─── Config ──────────────────────────────────────────────────────────────────

// Defaults for Config fields left zero.
const (
	DefaultItemMaxBytes  = 20 * 1024
	DefaultItemsMax      = 1000
	DefaultRetryInterval = 100 * time.Millisecond
)

// Config holds tunable parameters for a queue instance.
// All zero-values are valid; use DefaultConfig() for the canonical defaults.
type Config struct {
	// ItemMaxBytes caps the size of a single item. 0 = DefaultItemMaxBytes.
	ItemMaxBytes int

	// ItemsMax caps how many items the queue may hold, and is also the size
	// of the circular position space, so it must stay fixed for the
	// lifetime of a persisted queue: changing it once data exists breaks
	// the key-width assumption and is unsupported. 0 = DefaultItemsMax.
	ItemsMax int

	// RequireLease makes Get and Remove fail with ErrNoLease unless this
	// handle holds the consumer lease (see AcquireConsumer). Pop never
	// needs the lease. Off by default: exclusivity is then a caller
	// contract, as documented in the package comment.
	RequireLease bool

	// RetryInterval paces PutWait attempts while the queue is full.
	// 0 = DefaultRetryInterval.
	RetryInterval time.Duration

	// Logger receives operational log records. Nil means slog.Default().
	Logger *slog.Logger
}

// DefaultConfig returns a Config with the canonical defaults.
func DefaultConfig() Config {
	return Config{
		ItemMaxBytes:  DefaultItemMaxBytes,
		ItemsMax:      DefaultItemsMax,
		RetryInterval: DefaultRetryInterval,
	}
}

// ─── Queue ───────────────────────────────────────────────────────────────────

// Queue is a persistent FIFO queue of byte blobs.
//
// Every operation runs as one atomic write transaction against the backing
// store, including the read-only Get — staying inside the store's writer
// serialization keeps all operations in a single concurrency model. See the
// package comment for the multi-producer / multi-consumer contract.
type Queue struct {
	eng   storage.Engine
	codec keyCodec
	cfg   Config
	log   *slog.Logger

	mu    sync.Mutex
	lease string // ULID token while this handle holds the consumer lease
}

// Open creates or reopens the queue persisted in dir.
//
// The backing store is sized to twice the maximum total payload
// (ItemsMax * ItemMaxBytes). Consumers are writers too, so a store that ran
// out of space would block consumption as well as production; the headroom
// guarantees write transactions never fail for backing space.
func Open(dir string, cfg Config) (*Queue, error) {
	if cfg.ItemMaxBytes <= 0 {
		cfg.ItemMaxBytes = DefaultItemMaxBytes
	}
	if cfg.ItemsMax <= 0 {
		cfg.ItemsMax = DefaultItemsMax
	}
	if cfg.RetryInterval <= 0 {
		cfg.RetryInterval = DefaultRetryInterval
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	eng, err := bolt.Open(dir, bolt.Options{
		InitialMmapSize: 2 * cfg.ItemsMax * cfg.ItemMaxBytes,
	})
	if err != nil {
		return nil, fmt.Errorf("nque: open %s: %w", dir, err)
	}

	return &Queue{
		eng:   eng,
		codec: newKeyCodec(cfg.ItemsMax),
		cfg:   cfg,
		log:   cfg.Logger,
	}, nil
}

// Close releases the backing store. The queue must not be used afterwards.
func (q *Queue) Close() error {
	return q.eng.Close()
}

// ─── Validation ──────────────────────────────────────────────────────────────

// validateItems checks a Put batch before any transaction opens.
func (q *Queue) validateItems(items [][]byte) error {
	if len(items) == 0 {
		return fmt.Errorf("%w: no items", ErrInvalidArgument)
	}
	if len(items) > q.cfg.ItemsMax {
		return fmt.Errorf("%w: too many items (max %d)", ErrInvalidArgument, q.cfg.ItemsMax)
	}
	for i, item := range items {
		if len(item) == 0 {
			return fmt.Errorf("%w: empty item at index %d", ErrInvalidArgument, i)
		}
		if len(item) > q.cfg.ItemMaxBytes {
			return fmt.Errorf("%w: item at index %d exceeds %d bytes", ErrInvalidArgument, i, q.cfg.ItemMaxBytes)
		}
	}
	return nil
}

// validateCount checks a Get/Remove/Pop count before any transaction opens.
func (q *Queue) validateCount(n int) error {
	if n <= 0 {
		return fmt.Errorf("%w: items count must be > 0", ErrInvalidArgument)
	}
	if n > q.cfg.ItemsMax {
		return fmt.Errorf("%w: items count must be <= %d", ErrInvalidArgument, q.cfg.ItemsMax)
	}
	return nil
}

// ─── Put ─────────────────────────────────────────────────────────────────────

// Put appends the given items to the end of the queue, in order, as one
// atomic batch: either every item is admitted or none is.
//
// Returns ErrFull when the batch does not fit under ItemsMax; the caller is
// expected to retry after consumers free space (or use PutWait).
func (q *Queue) Put(items [][]byte) error {
	if err := q.validateItems(items); err != nil {
		return err
	}

	err := q.eng.Update(func(tx storage.Txn) error {
		ok, err := q.permitPut(len(items), tx)
		if err != nil {
			return err
		}
		if !ok {
			return ErrFull
		}

		tail, err := readTail(tx)
		if err != nil {
			return err
		}
		for _, item := range items {
			if err := tx.Put(q.codec.encode(tail), item); err != nil {
				return err
			}
			tail = q.codec.next(tail)
		}
		return writeTail(tx, tail)
	})

	switch {
	case err == nil:
		return nil
	case errors.Is(err, ErrFull):
		// Expected under load: consumers may free space in a short while.
		q.log.Warn("put not permitted, queue full", "items", len(items))
		return ErrFull
	default:
		q.log.Error("put failed", "items", len(items), "err", err)
		return &StorageError{Op: "put", Err: err}
	}
}

// PutWait puts items, blocking and retrying while the queue is full.
// Attempts are paced at one per Config.RetryInterval. It returns the
// context's error if ctx ends first; any error other than ErrFull aborts
// immediately.
func (q *Queue) PutWait(ctx context.Context, items [][]byte) error {
	if err := q.validateItems(items); err != nil {
		return err
	}

	lim := rate.NewLimiter(rate.Every(q.cfg.RetryInterval), 1)
	for {
		if err := lim.Wait(ctx); err != nil {
			return err
		}
		err := q.Put(items)
		if !errors.Is(err, ErrFull) {
			return err
		}
	}
}

// ─── Get ─────────────────────────────────────────────────────────────────────

// Get returns up to n items from the beginning of the queue without
// removing them. If fewer than n items exist, exactly what exists is
// returned; an empty queue yields an empty slice, not an error.
//
// Use Get when items must only be removed after they have been processed
// successfully, then call Remove. That pattern is single-consumer only —
// see the package comment.
func (q *Queue) Get(n int) ([][]byte, error) {
	if err := q.validateCount(n); err != nil {
		return nil, err
	}

	var items [][]byte
	err := q.eng.Update(func(tx storage.Txn) error {
		items = items[:0]
		if err := q.checkLease(tx); err != nil {
			return err
		}

		pos, err := readHead(tx)
		if err != nil {
			return err
		}
		for i := 0; i < n; i++ {
			item, err := tx.Get(q.codec.encode(pos))
			if errors.Is(err, storage.ErrNotFound) {
				break
			}
			if err != nil {
				return err
			}
			items = append(items, item)
			pos = q.codec.next(pos)
		}
		return nil
	})
	if err != nil {
		if isLeaseErr(err) {
			return nil, err
		}
		q.log.Error("get failed", "count", n, "err", err)
		return nil, &StorageError{Op: "get", Err: err}
	}
	return items, nil
}

// ─── Remove ──────────────────────────────────────────────────────────────────

// Remove deletes up to n items from the beginning of the queue. It removes
// at most what is present and is a no-op on an empty queue.
//
// Use Remove only as the complement of Get, after the obtained items have
// been processed. Get may have returned fewer than requested, so passing
// the right count is the consumer's responsibility.
func (q *Queue) Remove(n int) error {
	if err := q.validateCount(n); err != nil {
		return err
	}

	err := q.eng.Update(func(tx storage.Txn) error {
		if err := q.checkLease(tx); err != nil {
			return err
		}

		pos, err := readHead(tx)
		if err != nil {
			return err
		}
		for i := 0; i < n; i++ {
			key := q.codec.encode(pos)
			if _, err := tx.Get(key); errors.Is(err, storage.ErrNotFound) {
				break
			} else if err != nil {
				return err
			}
			if err := tx.Delete(key); err != nil {
				return err
			}
			pos = q.codec.next(pos)
		}
		return writeHead(tx, pos)
	})
	if err != nil {
		if isLeaseErr(err) {
			return err
		}
		q.log.Error("remove failed", "count", n, "err", err)
		return &StorageError{Op: "remove", Err: err}
	}
	return nil
}

// ─── Pop ─────────────────────────────────────────────────────────────────────

// Pop returns up to n items from the beginning of the queue and removes
// them, all within a single transaction: every returned item is guaranteed
// deleted in the same atomic unit, so no other caller can observe or re-pop
// it. Pop is therefore the only consumption path that is safe under
// arbitrary concurrent consumers.
func (q *Queue) Pop(n int) ([][]byte, error) {
	if err := q.validateCount(n); err != nil {
		return nil, err
	}

	var items [][]byte
	err := q.eng.Update(func(tx storage.Txn) error {
		items = items[:0]

		pos, err := readHead(tx)
		if err != nil {
			return err
		}
		for i := 0; i < n; i++ {
			key := q.codec.encode(pos)
			item, err := tx.Get(key)
			if errors.Is(err, storage.ErrNotFound) {
				break
			}
			if err != nil {
				return err
			}
			if err := tx.Delete(key); err != nil {
				return err
			}
			items = append(items, item)
			pos = q.codec.next(pos)
		}
		return writeHead(tx, pos)
	})
	if err != nil {
		q.log.Error("pop failed", "count", n, "err", err)
		return nil, &StorageError{Op: "pop", Err: err}
	}
	return items, nil
}

// ─── Len ─────────────────────────────────────────────────────────────────────

// Len returns the number of items currently stored. It uses the same live
// entry count the capacity guard trusts, so it is exact at the moment its
// transaction commits.
func (q *Queue) Len() (int, error) {
	var n int
	err := q.eng.Update(func(tx storage.Txn) error {
		var err error
		n, err = liveCount(tx)
		return err
	})
	if err != nil {
		q.log.Error("len failed", "err", err)
		return 0, &StorageError{Op: "len", Err: err}
	}
	return n, nil
}
