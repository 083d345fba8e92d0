package nque

import (
	"crypto/rand"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/arthur78/nque/internal/storage"
)

// The consumer lease turns the "one Get/Remove consumer at a time" caller
// contract into an enforced invariant. The lease lives at a reserved key as
// a ULID token, claimed and verified inside the same write transactions
// that consume items, so holding it is as atomic as the consumption itself.
// The lease does not expire: a consumer that dies without releasing keeps
// it until ReleaseConsumer deletes the key (or the operator does).

// Shared monotone entropy so tokens stay time-ordered even when generated
// within the same millisecond.
var (
	leaseEntropyMu sync.Mutex
	leaseEntropy   io.Reader = ulid.Monotonic(rand.Reader, 0)
)

func newLeaseToken() (string, error) {
	leaseEntropyMu.Lock()
	defer leaseEntropyMu.Unlock()
	id, err := ulid.New(ulid.Timestamp(time.Now()), leaseEntropy)
	if err != nil {
		return "", err
	}
	return id.String(), nil
}

// AcquireConsumer claims the queue's consumer lease for this handle and
// returns the token. It fails with ErrLeaseHeld if any other handle holds
// the lease, including handles in other processes.
func (q *Queue) AcquireConsumer() (string, error) {
	token, err := newLeaseToken()
	if err != nil {
		return "", fmt.Errorf("nque: lease token: %w", err)
	}

	err = q.eng.Update(func(tx storage.Txn) error {
		_, err := tx.Get(leaseKey)
		if err == nil {
			return ErrLeaseHeld
		}
		if !errors.Is(err, storage.ErrNotFound) {
			return err
		}
		return tx.Put(leaseKey, []byte(token))
	})
	switch {
	case err == nil:
	case errors.Is(err, ErrLeaseHeld):
		return "", ErrLeaseHeld
	default:
		q.log.Error("lease acquire failed", "err", err)
		return "", &StorageError{Op: "lease", Err: err}
	}

	q.mu.Lock()
	q.lease = token
	q.mu.Unlock()
	return token, nil
}

// ReleaseConsumer gives the lease back. Only the handle that acquired it
// may release it; ErrNoLease is returned when this handle holds nothing.
func (q *Queue) ReleaseConsumer() error {
	q.mu.Lock()
	token := q.lease
	q.mu.Unlock()
	if token == "" {
		return ErrNoLease
	}

	err := q.eng.Update(func(tx storage.Txn) error {
		cur, err := tx.Get(leaseKey)
		if errors.Is(err, storage.ErrNotFound) {
			// Already gone: releasing is idempotent in effect.
			return nil
		}
		if err != nil {
			return err
		}
		if string(cur) != token {
			return ErrLeaseHeld
		}
		return tx.Delete(leaseKey)
	})
	switch {
	case err == nil:
	case errors.Is(err, ErrLeaseHeld):
		return ErrLeaseHeld
	default:
		q.log.Error("lease release failed", "err", err)
		return &StorageError{Op: "lease", Err: err}
	}

	q.mu.Lock()
	q.lease = ""
	q.mu.Unlock()
	return nil
}

// checkLease enforces the consumer lease for Get and Remove when the queue
// was opened with Config.RequireLease. It must run inside the consuming
// transaction so that the check and the consumption are one atomic unit.
func (q *Queue) checkLease(tx storage.Txn) error {
	if !q.cfg.RequireLease {
		return nil
	}

	q.mu.Lock()
	token := q.lease
	q.mu.Unlock()
	if token == "" {
		return ErrNoLease
	}

	cur, err := tx.Get(leaseKey)
	if errors.Is(err, storage.ErrNotFound) {
		return ErrNoLease
	}
	if err != nil {
		return err
	}
	if string(cur) != token {
		return ErrLeaseHeld
	}
	return nil
}

// isLeaseErr reports whether err is a lease violation rather than a
// storage failure.
func isLeaseErr(err error) bool {
	return errors.Is(err, ErrNoLease) || errors.Is(err, ErrLeaseHeld)
}
