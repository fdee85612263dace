// ABOUTME: Small key-value store backed by BadgerDB
// ABOUTME: Serves as local storage on disk and session storage in memory
package storage

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"

	"github.com/dgraph-io/badger/v3"
)

var (
	ErrNotFound = errors.New("key not found")

	// ErrLocked means another leadlab process holds the directory.
	ErrLocked = errors.New("storage is in use by another leadlab process")
)

// Store is a string-keyed KV. A nil *Store is never valid.
type Store struct {
	db       *badger.DB
	dir      string
	closeMu  sync.Mutex
	isClosed bool
}

// Open opens a disk store at dir, or an in-memory store when dir is empty.
func Open(dir string) (*Store, error) {
	if dir == "" {
		return OpenInMemory()
	}
	if err := os.MkdirAll(dir, 0700); err != nil {
		return nil, fmt.Errorf("failed to create storage directory: %w", err)
	}
	db, err := badger.Open(badger.DefaultOptions(dir).WithLogger(nil))
	if err != nil {
		if strings.Contains(err.Error(), "Cannot acquire directory lock") {
			return nil, fmt.Errorf("%w: %s", ErrLocked, dir)
		}
		return nil, fmt.Errorf("failed to open storage at %s: %w", dir, err)
	}
	return &Store{db: db, dir: dir}, nil
}

// OpenInMemory opens a store that disappears on Close.
func OpenInMemory() (*Store, error) {
	db, err := badger.Open(badger.DefaultOptions("").WithInMemory(true).WithLogger(nil))
	if err != nil {
		return nil, fmt.Errorf("failed to open in-memory storage: %w", err)
	}
	return &Store{db: db}, nil
}

// Persistent reports whether values survive a restart.
func (s *Store) Persistent() bool { return s.dir != "" }

func (s *Store) Get(key string) ([]byte, error) {
	var result []byte
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(key))
		if err != nil {
			return err
		}
		result, err = item.ValueCopy(nil)
		return err
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, ErrNotFound
	}
	return result, err
}

func (s *Store) Set(key string, value []byte) error {
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(key), value)
	})
}

// Delete removes key. Missing keys are not an error.
func (s *Store) Delete(keys ...string) error {
	return s.db.Update(func(txn *badger.Txn) error {
		for _, key := range keys {
			if err := txn.Delete([]byte(key)); err != nil {
				return err
			}
		}
		return nil
	})
}

// Take reads and deletes key in one transaction.
func (s *Store) Take(key string) ([]byte, error) {
	var result []byte
	err := s.db.Update(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(key))
		if err != nil {
			return err
		}
		if result, err = item.ValueCopy(nil); err != nil {
			return err
		}
		return txn.Delete([]byte(key))
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, ErrNotFound
	}
	return result, err
}

// Getter and Setter are the halves of a store GetJSON and SetJSON need.
type Getter interface {
	Get(key string) ([]byte, error)
}

type Setter interface {
	Set(key string, value []byte) error
}

// GetJSON decodes the value at key into out.
func GetJSON(g Getter, key string, out any) error {
	data, err := g.Get(key)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("failed to decode %s: %w", key, err)
	}
	return nil
}

func SetJSON(s Setter, key string, value any) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to encode %s: %w", key, err)
	}
	return s.Set(key, data)
}

// Close is idempotent.
func (s *Store) Close() error {
	s.closeMu.Lock()
	defer s.closeMu.Unlock()
	if s.isClosed {
		return nil
	}
	s.isClosed = true
	return s.db.Close()
}
