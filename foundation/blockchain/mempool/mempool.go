// Package mempool maintains the pending pools for the ledger.
package mempool

import (
	"sort"
	"sync"

	"github.com/adamwoolhether/ledger/foundation/blockchain/database"
	"github.com/adamwoolhether/ledger/foundation/blockchain/mempool/selector"
)

// Mempool represents a cache of transactions that have not been mined,
// organized by transaction id.
type Mempool struct {
	mu       sync.RWMutex
	pool     map[string]database.Tx
	selectFn selector.Func
}

// New constructs a new mempool using the default select strategy.
func New() (*Mempool, error) {
	return NewWithStrategy(selector.StrategyOldest)
}

// NewWithStrategy constructs a new mempool with the specified sort strategy.
func NewWithStrategy(strategy string) (*Mempool, error) {
	selectFn, err := selector.Retrieve(strategy)
	if err != nil {
		return nil, err
	}

	mp := Mempool{
		pool:     make(map[string]database.Tx),
		selectFn: selectFn,
	}

	return &mp, nil
}

// Count returns the current number of transactions in the pool.
func (mp *Mempool) Count() int {
	mp.mu.RLock()
	defer mp.mu.RUnlock()

	return len(mp.pool)
}

// CountApproved returns the number of transactions waiting to be mined.
func (mp *Mempool) CountApproved() int {
	mp.mu.RLock()
	defer mp.mu.RUnlock()

	var n int
	for _, tx := range mp.pool {
		if tx.Status == database.StatusApproved {
			n++
		}
	}

	return n
}

// Upsert adds or replaces a transaction in the mempool.
func (mp *Mempool) Upsert(tx database.Tx) {
	mp.mu.Lock()
	defer mp.mu.Unlock()

	mp.pool[tx.ID] = tx
}

// Get returns the transaction with the specified id.
func (mp *Mempool) Get(id string) (database.Tx, bool) {
	mp.mu.RLock()
	defer mp.mu.RUnlock()

	tx, exists := mp.pool[id]
	return tx, exists
}

// GetByHash finds the transaction with the content hash.
func (mp *Mempool) GetByHash(contentHash string) (database.Tx, bool) {
	mp.mu.RLock()
	defer mp.mu.RUnlock()

	for _, tx := range mp.pool {
		if tx.ContentHash == contentHash {
			return tx, true
		}
	}

	return database.Tx{}, false
}

// Delete removes a transaction from the mempool. It reports whether the
// transaction was present.
func (mp *Mempool) Delete(id string) bool {
	mp.mu.Lock()
	defer mp.mu.Unlock()

	if _, exists := mp.pool[id]; !exists {
		return false
	}
	delete(mp.pool, id)

	return true
}

// Truncate clears all the transactions from the pool.
func (mp *Mempool) Truncate() {
	mp.mu.Lock()
	defer mp.mu.Unlock()

	mp.pool = make(map[string]database.Tx)
}

// Copy returns every transaction in the order they were created.
func (mp *Mempool) Copy() []database.Tx {
	mp.mu.RLock()
	defer mp.mu.RUnlock()

	cpy := make([]database.Tx, 0, len(mp.pool))
	for _, tx := range mp.pool {
		cpy = append(cpy, tx)
	}

	sort.Slice(cpy, func(i, j int) bool {
		if cpy[i].TimeStamp == cpy[j].TimeStamp {
			return cpy[i].ID < cpy[j].ID
		}
		return cpy[i].TimeStamp < cpy[j].TimeStamp
	})

	return cpy
}

// PickApproved uses the configured sort strategy to return the approved
// transactions for the next block. Pending transactions are never picked.
func (mp *Mempool) PickApproved(howMany ...int) []database.Tx {
	number := -1
	if len(howMany) > 0 {
		number = howMany[0]
	}

	// Copy all the approved transactions for each account
	// into separate slices for each account.
	m := make(map[database.AccountID][]database.Tx)
	mp.mu.RLock()
	{
		for _, tx := range mp.pool {
			if tx.Status != database.StatusApproved {
				continue
			}
			m[tx.FromID] = append(m[tx.FromID], tx)
		}
	}
	mp.mu.RUnlock()

	return mp.selectFn(m, number)
}
