package db

import (
	"errors"

	"github.com/dgraph-io/badger/v4"
	"github.com/txpull/sourcecheck/options"
)

// ErrKeyNotFound mirrors badger.ErrKeyNotFound so callers need not import badger directly.
var ErrKeyNotFound = errors.New("key not found")

// BadgerDB is the embedded key-value store backing verification_jobs_ephemeral
// (spec §4.E): large job payloads (sources, bytecodes) that don't belong in
// the relational schema and are pruned independently of the Postgres job row.
// It also backs the local signature cache in front of Postgres (spec §4.I).
type BadgerDB struct {
	db *badger.DB
}

// NewBadgerDB opens (creating if absent) the embedded store at opts.Path.
func NewBadgerDB(opts options.Badger) (*BadgerDB, error) {
	badgerOpts := badger.DefaultOptions(opts.Path).WithLogger(nil)

	bdb, err := badger.Open(badgerOpts)
	if err != nil {
		return nil, err
	}

	return &BadgerDB{db: bdb}, nil
}

// Get returns the value stored under key, or ErrKeyNotFound.
func (b *BadgerDB) Get(key string) ([]byte, error) {
	var value []byte
	err := b.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(key))
		if err != nil {
			if errors.Is(err, badger.ErrKeyNotFound) {
				return ErrKeyNotFound
			}
			return err
		}
		return item.Value(func(v []byte) error {
			value = append([]byte(nil), v...)
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return value, nil
}

// Set stores value under key with no expiry. Ephemeral job payloads are
// pruned explicitly by the worker pool (spec §4.E), not via TTL.
func (b *BadgerDB) Set(key string, value []byte) error {
	return b.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(key), value)
	})
}

// Delete removes key, used by the worker pool once a job's ephemeral payload
// is no longer needed (spec §4.E's independent pruning schedule).
func (b *BadgerDB) Delete(key string) error {
	return b.db.Update(func(txn *badger.Txn) error {
		return txn.Delete([]byte(key))
	})
}

// Close closes the underlying Badger database.
func (b *BadgerDB) Close() error {
	return b.db.Close()
}
