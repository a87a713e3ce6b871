package database

import "github.com/shopspring/decimal"

// Snapshot is the full persisted state of the ledger: chain, balances and
// both pending pools. It is always written and read as a single record.
type Snapshot struct {
	Chain               []Block                       `json:"chain"`
	Difficulty          int                           `json:"difficulty"`
	PendingTransactions []Tx                          `json:"pendingTransactions"`
	PendingRequests     []Request                     `json:"pendingRequests"`
	Balances            map[AccountID]decimal.Decimal `json:"balances"`
	DecidedRequests     []string                      `json:"decidedRequests,omitempty"`
	DecidedTransactions []string                      `json:"decidedTransactions,omitempty"`
}

// Storage interface represents the behavior required to be implemented by any
// package providing support for reading and writing the ledger snapshot.
type Storage interface {
	// Load returns ErrNoSnapshot when nothing has been saved yet.
	Load() (Snapshot, error)
	Save(snapshot Snapshot) error
	Reset() error
	Close() error
}
