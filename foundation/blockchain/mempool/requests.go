package mempool

import (
	"sort"
	"sync"

	"github.com/adamwoolhether/ledger/foundation/blockchain/database"
)

// RequestPool holds the requests waiting on an approval decision.
type RequestPool struct {
	mu   sync.RWMutex
	pool map[string]database.Request
}

// NewRequestPool constructs an empty request pool.
func NewRequestPool() *RequestPool {
	return &RequestPool{
		pool: make(map[string]database.Request),
	}
}

// Add places the request in the pool. It reports false when a request
// with the same id is already waiting.
func (rp *RequestPool) Add(req database.Request) bool {
	rp.mu.Lock()
	defer rp.mu.Unlock()

	if _, exists := rp.pool[req.ID]; exists {
		return false
	}
	rp.pool[req.ID] = req

	return true
}

// Remove takes the request out of the pool and returns it.
func (rp *RequestPool) Remove(id string) (database.Request, bool) {
	rp.mu.Lock()
	defer rp.mu.Unlock()

	req, exists := rp.pool[id]
	if !exists {
		return database.Request{}, false
	}
	delete(rp.pool, id)

	return req, true
}

// Has reports whether the request is waiting in the pool.
func (rp *RequestPool) Has(id string) bool {
	rp.mu.RLock()
	defer rp.mu.RUnlock()

	_, exists := rp.pool[id]
	return exists
}

// Count returns the number of waiting requests.
func (rp *RequestPool) Count() int {
	rp.mu.RLock()
	defer rp.mu.RUnlock()

	return len(rp.pool)
}

// Truncate clears all the requests from the pool.
func (rp *RequestPool) Truncate() {
	rp.mu.Lock()
	defer rp.mu.Unlock()

	rp.pool = make(map[string]database.Request)
}

// Copy returns the waiting requests, oldest first.
func (rp *RequestPool) Copy() []database.Request {
	rp.mu.RLock()
	defer rp.mu.RUnlock()

	cpy := make([]database.Request, 0, len(rp.pool))
	for _, req := range rp.pool {
		cpy = append(cpy, req)
	}

	sort.Slice(cpy, func(i, j int) bool {
		if cpy[i].TimeStamp == cpy[j].TimeStamp {
			return cpy[i].ID < cpy[j].ID
		}
		return cpy[i].TimeStamp < cpy[j].TimeStamp
	})

	return cpy
}
