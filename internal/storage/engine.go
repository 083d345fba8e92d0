// Package storage defines the Engine abstraction the queue persists through.
//
// Design principle: the queue core must ONLY interact with the embedded store
// through this interface. Never call bbolt directly from queue code. The
// position-management protocol depends on nothing but atomic write
// transactions, point lookups, key deletion, and a live entry count — so any
// engine providing those can back the queue without touching queue logic.
package storage

import "errors"

// ErrNotFound is returned by Txn.Get when no value is stored under a key.
var ErrNotFound = errors.New("storage: not found")

// Txn is a single write-capable transaction against the store.
//
// A Txn is only valid inside the Engine.Update call that produced it.
// All reads and writes through it observe and mutate one isolated view of
// the key space; nothing becomes visible to other transactions until the
// enclosing Update commits.
type Txn interface {
	// Get returns the value stored under key.
	// Returns ErrNotFound if the key is absent.
	Get(key []byte) ([]byte, error)

	// Put stores value under key, overwriting any previous value.
	Put(key, value []byte) error

	// Delete removes key. Deleting an absent key is not an error.
	Delete(key []byte) error

	// EntryCount returns the number of keys currently stored as seen by
	// this transaction, reserved keys included.
	EntryCount() (int, error)
}

// Engine is a transactional embedded key-value store.
//
// Implementations must serialize write transactions: at most one Update body
// runs at a time, and its effects are atomic — either the whole transaction
// commits or none of it does. That serialization is the queue's only
// synchronization mechanism; no in-process locks sit on top of it.
type Engine interface {
	// Update runs fn inside a write transaction. The transaction commits
	// when fn returns nil and rolls back when fn returns an error, in which
	// case Update returns that error unchanged.
	Update(fn func(Txn) error) error

	// Close releases the store. No transactions may be started afterwards.
	Close() error
}
