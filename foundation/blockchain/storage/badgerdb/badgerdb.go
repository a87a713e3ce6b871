// Package badgerdb implements snapshot storage on top of a badger key/value
// store so the ledger can live next to other node data.
package badgerdb

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/dgraph-io/badger/v4"

	"github.com/adamwoolhether/ledger/foundation/blockchain/database"
)

// snapshotKey is the key the snapshot record is stored under.
var snapshotKey = []byte("ledger:snapshot")

// Badger represents the storage implementation for reading and storing the
// snapshot in badger. This implements the database.Storage interface.
type Badger struct {
	db *badger.DB
}

// New opens, or creates, the badger database in the directory.
func New(dbPath string) (*Badger, error) {
	opts := badger.DefaultOptions(dbPath).
		WithSyncWrites(true).
		WithLogger(nil)

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("opening badger at %s: %w", dbPath, err)
	}

	return &Badger{db: db}, nil
}

// NewInMemory opens a badger database that is never written to disk.
func NewInMemory() (*Badger, error) {
	opts := badger.DefaultOptions("").
		WithInMemory(true).
		WithLogger(nil)

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("opening in-memory badger: %w", err)
	}

	return &Badger{db: db}, nil
}

// Save writes the snapshot in a single transaction.
func (b *Badger) Save(snapshot database.Snapshot) error {
	data, err := json.Marshal(snapshot)
	if err != nil {
		return err
	}

	return b.db.Update(func(txn *badger.Txn) error {
		return txn.Set(snapshotKey, data)
	})
}

// Load reads the snapshot record.
func (b *Badger) Load() (database.Snapshot, error) {
	var snapshot database.Snapshot

	err := b.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(snapshotKey)
		if err != nil {
			return err
		}

		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &snapshot)
		})
	})

	switch {
	case errors.Is(err, badger.ErrKeyNotFound):
		return database.Snapshot{}, database.ErrNoSnapshot
	case err != nil:
		return database.Snapshot{}, err
	}

	return snapshot, nil
}

// Reset deletes the snapshot record.
func (b *Badger) Reset() error {
	return b.db.Update(func(txn *badger.Txn) error {
		return txn.Delete(snapshotKey)
	})
}

// Close closes the badger database.
func (b *Badger) Close() error {
	return b.db.Close()
}
