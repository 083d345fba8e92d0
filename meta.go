package nque

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/arthur78/nque/internal/storage"
)

// Reserved keys. All are non-numeric, so they can never collide with the
// zero-padded decimal item keys.
var (
	headKey  = []byte("head")  // position of the oldest stored item
	tailKey  = []byte("tail")  // position the next Put will write to
	leaseKey = []byte("lease") // consumer lease token, present while held
)

// reservedKeys is the full set the capacity guard must discount from the
// store's entry count.
var reservedKeys = [][]byte{headKey, tailKey, leaseKey}

// readHead returns the head pointer. A fresh queue with no head key starts
// at position 0.
//
// head alone says nothing about emptiness: head == tail holds both for an
// empty queue and for one holding exactly capacity items. Only the stored
// item keys themselves are authoritative for what exists.
func readHead(tx storage.Txn) (int, error) {
	return readPos(tx, headKey)
}

// readTail returns the tail pointer, defaulting to 0 when absent.
func readTail(tx storage.Txn) (int, error) {
	return readPos(tx, tailKey)
}

func writeHead(tx storage.Txn, pos int) error {
	return tx.Put(headKey, []byte(strconv.Itoa(pos)))
}

func writeTail(tx storage.Txn, pos int) error {
	return tx.Put(tailKey, []byte(strconv.Itoa(pos)))
}

// readPos reads a decimal-text position from a reserved key.
func readPos(tx storage.Txn, key []byte) (int, error) {
	raw, err := tx.Get(key)
	if errors.Is(err, storage.ErrNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	pos, err := strconv.Atoi(string(raw))
	if err != nil {
		return 0, fmt.Errorf("corrupt %s pointer %q: %w", key, raw, err)
	}
	return pos, nil
}
