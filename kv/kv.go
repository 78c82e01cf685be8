// Package kv is the abstraction layer over the workspace blob store.
package kv

import (
	"github.com/stevegt/decant/kv/bbolt"
)

// Re-export interface types from bbolt as type aliases.  Callers
// depend on this package rather than on the backing store, so the
// backend can change without touching them.
type ReadTx = bbolt.ReadTx
type WriteTx = bbolt.WriteTx
type KVStore = bbolt.KVStore

// Open opens or creates a BoltDB-backed store at path.
func Open(path string) (KVStore, error) {
	return bbolt.NewBoltStore(path)
}
