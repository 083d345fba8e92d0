package nque

import (
	"errors"

	"github.com/arthur78/nque/internal/storage"
)

// permitPut reports whether n more items fit under the ItemsMax limit.
// Must run inside the same transaction that will insert the items, before
// anything is written.
//
// The live item count is derived from the store's actual entry count minus
// whichever reserved keys currently exist — never from tail-head
// arithmetic, which cannot tell an empty queue from a full one once the
// pointers coincide. Counting what is physically stored is also immune to
// any pointer drift left by earlier partial failures.
func (q *Queue) permitPut(n int, tx storage.Txn) (bool, error) {
	live, err := liveCount(tx)
	if err != nil {
		return false, err
	}
	return live+n <= q.cfg.ItemsMax, nil
}

// liveCount returns the number of item entries present in the store.
func liveCount(tx storage.Txn) (int, error) {
	total, err := tx.EntryCount()
	if err != nil {
		return 0, err
	}
	reserved := 0
	for _, key := range reservedKeys {
		_, err := tx.Get(key)
		switch {
		case err == nil:
			reserved++
		case errors.Is(err, storage.ErrNotFound):
			// not present, nothing to discount
		default:
			return 0, err
		}
	}
	return total - reserved, nil
}
