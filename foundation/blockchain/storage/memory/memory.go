// Package memory implements snapshot storage that lives only as long as
// the process. It is used for tests and throwaway nodes.
package memory

import (
	"encoding/json"
	"sync"

	"github.com/adamwoolhether/ledger/foundation/blockchain/database"
)

// Memory keeps the last saved snapshot encoded so callers never share
// memory with what was stored. This implements the database.Storage interface.
type Memory struct {
	mu    sync.Mutex
	data  []byte
	saves int
	fail  error
}

// New constructs an empty Memory value for use.
func New() *Memory {
	return &Memory{}
}

// Save stores an encoded copy of the snapshot.
func (m *Memory) Save(snapshot database.Snapshot) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.fail != nil {
		return m.fail
	}

	data, err := json.Marshal(snapshot)
	if err != nil {
		return err
	}

	m.data = data
	m.saves++

	return nil
}

// Load decodes the last saved snapshot.
func (m *Memory) Load() (database.Snapshot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.data == nil {
		return database.Snapshot{}, database.ErrNoSnapshot
	}

	var snapshot database.Snapshot
	if err := json.Unmarshal(m.data, &snapshot); err != nil {
		return database.Snapshot{}, err
	}

	return snapshot, nil
}

// Reset drops the stored snapshot.
func (m *Memory) Reset() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.data = nil

	return nil
}

// Close has nothing to release.
func (m *Memory) Close() error {
	return nil
}

// Saves returns the number of successful saves.
func (m *Memory) Saves() int {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.saves
}

// FailWith makes every following Save return the error. Passing nil
// makes saves succeed again.
func (m *Memory) FailWith(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.fail = err
}
