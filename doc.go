// Package nque implements a persistent, crash-safe FIFO queue on top of an
// embedded transactional key-value store.
//
// Items are opaque byte blobs. Logical FIFO order is mapped onto a bounded,
// wrapping set of storage keys addressed by two persisted pointers (head and
// tail), and every operation runs as one atomic write transaction against
// the store, so no partial state ever survives a crash or an error.
//
//	q, err := nque.Open("./data", nque.DefaultConfig())
//	if err != nil {
//		log.Fatal(err)
//	}
//	defer q.Close()
//
//	err = q.Put([][]byte{[]byte("a"), []byte("b")}) // atomic batch insert
//	items, err := q.Pop(2)                          // get+remove in one transaction
//
// # Concurrency contract
//
// Multiple producer processes and goroutines may call Put concurrently; the
// store serializes their write transactions.
//
// Multiple consumers may run concurrently only if they all consume via Pop:
// each item Pop returns is deleted in the same transaction that read it, so
// no two consumers can observe the same item.
//
// The Get/Remove pattern — read items, process them, then remove them — is
// safe for at most ONE consumer at a time. Two agents interleaving Get and
// Remove can both process the same items, and one can remove items the other
// never saw. By default this exclusivity is a caller contract, matching the
// behavior of Pop-only deployments that never use Get/Remove. Opening the
// queue with Config.RequireLease turns the contract into an enforced one:
// Get and Remove then demand the consumer lease acquired via AcquireConsumer.
//
// Producers and consumers are both queue writers, so all of them contend on
// the store's single writer lock; every operation blocks for the duration of
// its own transaction and nothing more.
package nque
