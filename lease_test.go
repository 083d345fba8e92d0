package nque_test

import (
	"errors"
	"fmt"
	"testing"

	"github.com/arthur78/nque"
)

func leaseQueue(t *testing.T, itemsMax int) *nque.Queue {
	t.Helper()
	cfg := nque.DefaultConfig()
	cfg.ItemsMax = itemsMax
	cfg.RequireLease = true
	return openQueue(t, cfg)
}

func TestLease_AcquireIsExclusive(t *testing.T) {
	q := leaseQueue(t, 10)

	token, err := q.AcquireConsumer()
	if err != nil {
		t.Fatalf("AcquireConsumer: %v", err)
	}
	if token == "" {
		t.Fatal("AcquireConsumer: empty token")
	}

	if _, err := q.AcquireConsumer(); !errors.Is(err, nque.ErrLeaseHeld) {
		t.Fatalf("second acquire: want ErrLeaseHeld, got %v", err)
	}

	if err := q.ReleaseConsumer(); err != nil {
		t.Fatalf("ReleaseConsumer: %v", err)
	}
	if _, err := q.AcquireConsumer(); err != nil {
		t.Fatalf("acquire after release: %v", err)
	}
}

func TestLease_ReleaseWithoutAcquire(t *testing.T) {
	q := leaseQueue(t, 10)

	if err := q.ReleaseConsumer(); !errors.Is(err, nque.ErrNoLease) {
		t.Fatalf("want ErrNoLease, got %v", err)
	}
}

func TestLease_RequiredForGetAndRemove(t *testing.T) {
	q := leaseQueue(t, 10)
	put(t, q, "item1", "item2")

	if _, err := q.Get(1); !errors.Is(err, nque.ErrNoLease) {
		t.Fatalf("Get without lease: want ErrNoLease, got %v", err)
	}
	if err := q.Remove(1); !errors.Is(err, nque.ErrNoLease) {
		t.Fatalf("Remove without lease: want ErrNoLease, got %v", err)
	}

	if _, err := q.AcquireConsumer(); err != nil {
		t.Fatalf("AcquireConsumer: %v", err)
	}
	items, err := q.Get(1)
	if err != nil {
		t.Fatalf("Get with lease: %v", err)
	}
	wantItems(t, items, "item1")
	if err := q.Remove(1); err != nil {
		t.Fatalf("Remove with lease: %v", err)
	}

	if err := q.ReleaseConsumer(); err != nil {
		t.Fatalf("ReleaseConsumer: %v", err)
	}
	if _, err := q.Get(1); !errors.Is(err, nque.ErrNoLease) {
		t.Fatalf("Get after release: want ErrNoLease, got %v", err)
	}
}

// Pop stays lease-free: it is already safe under concurrent consumers.
func TestLease_PopNeedsNoLease(t *testing.T) {
	q := leaseQueue(t, 10)
	put(t, q, "item1")

	items, err := q.Pop(1)
	if err != nil {
		t.Fatalf("Pop: %v", err)
	}
	wantItems(t, items, "item1")
}

// The lease key is a reserved entry and must not eat into item capacity.
func TestLease_DoesNotConsumeCapacity(t *testing.T) {
	q := leaseQueue(t, 3)

	if _, err := q.AcquireConsumer(); err != nil {
		t.Fatalf("AcquireConsumer: %v", err)
	}
	for i := 0; i < 3; i++ {
		put(t, q, fmt.Sprintf("item%d", i))
	}
	if err := q.Put([][]byte{[]byte("overflow")}); !errors.Is(err, nque.ErrFull) {
		t.Fatalf("want ErrFull, got %v", err)
	}
	if n, err := q.Len(); err != nil || n != 3 {
		t.Fatalf("Len: want 3, got %d (err %v)", n, err)
	}
}
