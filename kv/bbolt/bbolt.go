// Package bbolt provides the BoltDB-backed implementation of the
// workspace store.  The interface types live here so the kv package
// can alias them without a circular dependency.
package bbolt

import (
	"fmt"

	"go.etcd.io/bbolt"
)

// Buckets created when a store is opened: files holds raw extracted
// file content by id, meta holds the file metadata records, config
// holds loose workspace settings.
var Buckets = []string{"files", "meta", "config"}

// ReadTx is a read-only view of the store.
type ReadTx interface {
	Get(bucket, key string) []byte
	ForEach(bucket string, fn func(k, v []byte) error) error
}

// WriteTx is a read-write view of the store.
type WriteTx interface {
	ReadTx
	Put(bucket, key string, value []byte) error
	Delete(bucket, key string) error
	CreateBucketIfNotExists(bucket string) error
}

// KVStore is implemented by BoltStore.
type KVStore interface {
	View(fn func(ReadTx) error) error
	Update(fn func(WriteTx) error) error
	Close() error
}

// BoltStore wraps bbolt.DB with transaction adapters.
type BoltStore struct {
	db *bbolt.DB
}

// NewBoltStore opens or creates the store at dbPath and ensures the
// default buckets exist.
func NewBoltStore(dbPath string) (*BoltStore, error) {
	db, err := bbolt.Open(dbPath, 0600, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to open store: %w", err)
	}

	store := &BoltStore{db: db}

	err = store.Update(func(tx WriteTx) error {
		for _, bucket := range Buckets {
			if err := tx.CreateBucketIfNotExists(bucket); err != nil {
				return fmt.Errorf("failed to create bucket %s: %w", bucket, err)
			}
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, err
	}

	return store, nil
}

// View executes a read-only transaction
func (b *BoltStore) View(fn func(ReadTx) error) error {
	return b.db.View(func(tx *bbolt.Tx) error {
		return fn(&readTx{tx: tx})
	})
}

// Update executes a read-write transaction
func (b *BoltStore) Update(fn func(WriteTx) error) error {
	return b.db.Update(func(tx *bbolt.Tx) error {
		return fn(&writeTx{readTx{tx: tx}})
	})
}

// Close closes the database
func (b *BoltStore) Close() error {
	return b.db.Close()
}

type readTx struct {
	tx *bbolt.Tx
}

// Get returns a copy of the value, so it survives the transaction.
func (r *readTx) Get(bucket, key string) []byte {
	buck := r.tx.Bucket([]byte(bucket))
	if buck == nil {
		return nil
	}
	value := buck.Get([]byte(key))
	if value == nil {
		return nil
	}
	result := make([]byte, len(value))
	copy(result, value)
	return result
}

// ForEach passes copies of each key and value to fn.
func (r *readTx) ForEach(bucket string, fn func(k, v []byte) error) error {
	buck := r.tx.Bucket([]byte(bucket))
	if buck == nil {
		return nil
	}
	return buck.ForEach(func(k, v []byte) error {
		kCopy := make([]byte, len(k))
		copy(kCopy, k)
		vCopy := make([]byte, len(v))
		copy(vCopy, v)
		return fn(kCopy, vCopy)
	})
}

type writeTx struct {
	readTx
}

func (w *writeTx) Put(bucket, key string, value []byte) error {
	buck, err := w.tx.CreateBucketIfNotExists([]byte(bucket))
	if err != nil {
		return fmt.Errorf("failed to create bucket %s: %w", bucket, err)
	}
	return buck.Put([]byte(key), value)
}

func (w *writeTx) Delete(bucket, key string) error {
	buck := w.tx.Bucket([]byte(bucket))
	if buck == nil {
		return nil
	}
	return buck.Delete([]byte(key))
}

func (w *writeTx) CreateBucketIfNotExists(bucket string) error {
	_, err := w.tx.CreateBucketIfNotExists([]byte(bucket))
	return err
}
