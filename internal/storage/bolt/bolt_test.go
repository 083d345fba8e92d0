package bolt_test

import (
	"bytes"
	"errors"
	"testing"

	"github.com/arthur78/nque/internal/storage"
	"github.com/arthur78/nque/internal/storage/bolt"
)

func openStore(t *testing.T) *bolt.Store {
	t.Helper()
	s, err := bolt.Open(t.TempDir(), bolt.Options{})
	if err != nil {
		t.Fatalf("bolt.Open: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestStore_PutGetDelete(t *testing.T) {
	s := openStore(t)

	err := s.Update(func(tx storage.Txn) error {
		return tx.Put([]byte("k"), []byte("v"))
	})
	if err != nil {
		t.Fatalf("Update: %v", err)
	}

	err = s.Update(func(tx storage.Txn) error {
		val, err := tx.Get([]byte("k"))
		if err != nil {
			return err
		}
		if !bytes.Equal(val, []byte("v")) {
			t.Errorf("Get: want v, got %q", val)
		}
		return tx.Delete([]byte("k"))
	})
	if err != nil {
		t.Fatalf("Update: %v", err)
	}

	err = s.Update(func(tx storage.Txn) error {
		_, err := tx.Get([]byte("k"))
		if !errors.Is(err, storage.ErrNotFound) {
			t.Errorf("Get after delete: want ErrNotFound, got %v", err)
		}
		return nil
	})
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
}

func TestStore_DeleteAbsentKeyIsNoError(t *testing.T) {
	s := openStore(t)

	err := s.Update(func(tx storage.Txn) error {
		return tx.Delete([]byte("never-written"))
	})
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
}

// EntryCount must reflect the transaction's own uncommitted writes — the
// capacity guard and Len both count inside open transactions.
func TestStore_EntryCountSeesOwnWrites(t *testing.T) {
	s := openStore(t)

	err := s.Update(func(tx storage.Txn) error {
		n, err := tx.EntryCount()
		if err != nil {
			return err
		}
		if n != 0 {
			t.Errorf("initial EntryCount: want 0, got %d", n)
		}

		if err := tx.Put([]byte("a"), []byte("1")); err != nil {
			return err
		}
		if err := tx.Put([]byte("b"), []byte("2")); err != nil {
			return err
		}

		n, err = tx.EntryCount()
		if err != nil {
			return err
		}
		if n != 2 {
			t.Errorf("EntryCount after puts: want 2, got %d", n)
		}
		return nil
	})
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
}

// An error returned from the Update body must roll the transaction back.
func TestStore_ErrorRollsBack(t *testing.T) {
	s := openStore(t)
	boom := errors.New("boom")

	err := s.Update(func(tx storage.Txn) error {
		if err := tx.Put([]byte("k"), []byte("v")); err != nil {
			return err
		}
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("Update: want boom, got %v", err)
	}

	err = s.Update(func(tx storage.Txn) error {
		_, err := tx.Get([]byte("k"))
		if !errors.Is(err, storage.ErrNotFound) {
			t.Errorf("want rolled-back key absent, got %v", err)
		}
		return nil
	})
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
}

func TestStore_PersistsAcrossReopen(t *testing.T) {
	dir := t.TempDir()

	s, err := bolt.Open(dir, bolt.Options{})
	if err != nil {
		t.Fatalf("bolt.Open: %v", err)
	}
	err = s.Update(func(tx storage.Txn) error {
		return tx.Put([]byte("k"), []byte("v"))
	})
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	s, err = bolt.Open(dir, bolt.Options{})
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer s.Close()

	err = s.Update(func(tx storage.Txn) error {
		val, err := tx.Get([]byte("k"))
		if err != nil {
			return err
		}
		if !bytes.Equal(val, []byte("v")) {
			t.Errorf("Get after reopen: want v, got %q", val)
		}
		return nil
	})
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
}
