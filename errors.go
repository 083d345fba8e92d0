package nque

import "errors"

var (
	// ErrInvalidArgument is returned when a caller passes malformed input:
	// an empty batch, a non-positive or oversized count, or an item that
	// exceeds the configured size limit. It is always raised before any
	// transaction opens, so no partial state is ever left behind.
	ErrInvalidArgument = errors.New("nque: invalid argument")

	// ErrFull is returned by Put when admitting the batch would push the
	// queue past its ItemsMax limit. It is an expected, retryable
	// condition, not a hard failure: consumers may free space at any
	// moment, so producers should back off and try again (see PutWait).
	ErrFull = errors.New("nque: queue full, try later")

	// ErrLeaseHeld is returned when the consumer lease is already held by
	// another handle.
	ErrLeaseHeld = errors.New("nque: consumer lease held by another consumer")

	// ErrNoLease is returned by Get and Remove on a queue opened with
	// Config.RequireLease when this handle has not acquired the consumer
	// lease, and by ReleaseConsumer when there is nothing to release.
	ErrNoLease = errors.New("nque: consumer lease not held")
)

// StorageError reports a failure of the underlying store during an
// operation. The transaction that hit it was rolled back in full; nothing
// was applied. It is fatal for that call, not for the queue.
type StorageError struct {
	Op  string // "put", "get", "remove", "pop", "len", "lease"
	Err error  // the underlying storage failure
}

func (e *StorageError) Error() string {
	return "nque: " + e.Op + ": " + e.Err.Error()
}

func (e *StorageError) Unwrap() error {
	return e.Err
}
