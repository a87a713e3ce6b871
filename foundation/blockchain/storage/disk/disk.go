// Package disk implements the ability to read and write the ledger snapshot
// to a JSON file on disk.
package disk

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"github.com/adamwoolhether/ledger/foundation/blockchain/database"
)

// fileName is the name of the snapshot file inside the db path.
const fileName = "ledger.json"

// Disk represents the storage implementation for reading and storing the
// snapshot in a single file. This implements the database.Storage interface.
type Disk struct {
	mu     sync.Mutex
	dbPath string
}

// New constructs a Disk value for use.
func New(dbPath string) (*Disk, error) {
	if err := os.MkdirAll(dbPath, 0755); err != nil {
		return nil, err
	}

	return &Disk{dbPath: dbPath}, nil
}

// Close in this implementation has nothing to do since the file is
// written and then immediately closed.
func (d *Disk) Close() error {
	return nil
}

// Save writes the snapshot to a temporary file and renames it over the
// previous one so a reader never sees a partial write.
func (d *Disk) Save(snapshot database.Snapshot) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	// Marshal the snapshot for writing to disk in a more human readable format.
	data, err := json.MarshalIndent(snapshot, "", "  ")
	if err != nil {
		return err
	}

	f, err := os.CreateTemp(d.dbPath, fileName+".*")
	if err != nil {
		return err
	}
	tmp := f.Name()
	defer os.Remove(tmp)

	if _, err := f.Write(data); err != nil {
		f.Close()
		return err
	}

	if err := f.Sync(); err != nil {
		f.Close()
		return err
	}

	if err := f.Close(); err != nil {
		return err
	}

	return os.Rename(tmp, d.path())
}

// Load reads the snapshot back from disk.
func (d *Disk) Load() (database.Snapshot, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	f, err := os.Open(d.path())
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return database.Snapshot{}, database.ErrNoSnapshot
		}
		return database.Snapshot{}, err
	}
	defer f.Close()

	var snapshot database.Snapshot
	if err := json.NewDecoder(f).Decode(&snapshot); err != nil {
		return database.Snapshot{}, fmt.Errorf("decoding %s: %w", d.path(), err)
	}

	return snapshot, nil
}

// Reset will remove the snapshot from disk.
func (d *Disk) Reset() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if err := os.Remove(d.path()); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}

	return nil
}

// path forms the path to the snapshot file.
func (d *Disk) path() string {
	return filepath.Join(d.dbPath, fileName)
}
