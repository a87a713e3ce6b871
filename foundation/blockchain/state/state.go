// Package state is the core API for the ledger and implements
// all the business rules and processing.
package state

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	lru "github.com/hashicorp/golang-lru"

	"github.com/adamwoolhether/ledger/foundation/blockchain/database"
	"github.com/adamwoolhether/ledger/foundation/blockchain/genesis"
	"github.com/adamwoolhether/ledger/foundation/blockchain/mempool"
	"github.com/adamwoolhether/ledger/foundation/events"
)

// Set of errors returned by the ledger engine.
var (
	ErrRequestNotFound      = errors.New("request not found")
	ErrTransactionNotFound  = errors.New("transaction not found")
	ErrDuplicateRequest     = errors.New("request already submitted")
	ErrDuplicateTransaction = errors.New("transaction already submitted")
	ErrNoTransactions       = errors.New("no approved transactions to mine")
	ErrMining               = errors.New("mining failed")
)

// txCacheSize is the number of mined transaction locations kept for lookups.
const txCacheSize = 1024

// EventHandler defines a function that is called when events
// occur in the processing of requests, transactions and blocks.
type EventHandler func(v string, args ...any)

// Worker interface represents the behavior required to be implemented
// by any package providing support for background mining.
type Worker interface {
	Shutdown()
	SignalStartMining()
	SignalCancelMining() (done func())
}

// =============================================================================

// Config represents the configuration required to start the ledger.
type Config struct {
	Genesis        genesis.Genesis
	Storage        database.Storage
	SelectStrategy string
	EvHandler      EventHandler
	Events         *events.Bus
}

// State manages the ledger: balances, both pending pools and the chain.
// Every change is persisted before the call that made it returns.
type State struct {
	mu       sync.RWMutex
	miningMu sync.Mutex

	evHandler EventHandler
	events    *events.Bus

	genesis  genesis.Genesis
	db       *database.Database
	mempool  *mempool.Mempool
	requests *mempool.RequestPool
	txCache  *lru.Cache

	// Ids of requests and of transactions rejected off the pool. Both are
	// refused on resubmission.
	decided    map[string]struct{}
	decidedTxs map[string]struct{}

	cancelMu     sync.Mutex
	cancelMining context.CancelFunc

	Worker Worker
}

// New constructs the ledger. A previously saved snapshot is restored,
// otherwise the ledger starts from the genesis settings and saves them.
func New(cfg Config) (*State, error) {
	// Build a safe event handler for use.
	ev := func(v string, args ...any) {
		if cfg.EvHandler != nil {
			cfg.EvHandler(v, args...)
		}
	}

	bus := cfg.Events
	if bus == nil {
		bus = events.New(ev)
	}

	strategy := cfg.SelectStrategy
	if strategy == "" {
		strategy = "oldest"
	}

	// Access the storage for the ledger.
	db, err := database.New(cfg.Genesis, cfg.Storage)
	if err != nil {
		return nil, err
	}

	// Construct a mempool with the specified sort strategy.
	mpool, err := mempool.NewWithStrategy(strategy)
	if err != nil {
		return nil, err
	}

	cache, err := lru.New(txCacheSize)
	if err != nil {
		return nil, err
	}

	state := State{
		evHandler: ev,
		events:    bus,
		genesis:   cfg.Genesis,
		db:        db,
		mempool:   mpool,
		requests:  mempool.NewRequestPool(),
		decided:    make(map[string]struct{}),
		decidedTxs: make(map[string]struct{}),
		txCache:   cache,
	}

	snapshot, err := db.Load()
	switch {
	case errors.Is(err, database.ErrNoSnapshot):
		ev("state: New: no snapshot: starting from genesis: treasury[%s]: difficulty[%d]", db.Treasury(), db.Difficulty())
		if err := db.Write(state.snapshot()); err != nil {
			return nil, fmt.Errorf("saving genesis snapshot: %w", err)
		}

	case err != nil:
		return nil, fmt.Errorf("loading snapshot: %w", err)

	default:
		if err := state.restore(snapshot); err != nil {
			return nil, fmt.Errorf("restoring snapshot: %w", err)
		}
		ev("state: New: snapshot restored: blocks[%d]: pendingTxs[%d]: pendingReqs[%d]", len(snapshot.Chain), len(snapshot.PendingTransactions), len(snapshot.PendingRequests))
	}

	// The Worker is not set here. The call to worker.Run will assign
	// itself and start everything up and running for the node.

	return &state, nil
}

// Shutdown cleanly brings the ledger down.
func (s *State) Shutdown() error {
	s.evHandler("state: shutdown: started")
	defer s.evHandler("state: shutdown: completed")

	// Make sure the database field is properly closed.
	defer func() {
		s.db.Close()
	}()

	// Stop all mining activity.
	if s.Worker != nil {
		s.Worker.Shutdown()
	}
	s.stopMining()

	s.events.Close()

	return nil
}

// Reset wipes every balance, pending pool and block and starts the ledger
// again from the genesis settings. There is no undo.
func (s *State) Reset() error {
	s.evHandler("state: Reset: started")
	defer s.evHandler("state: Reset: completed")

	if s.Worker != nil {
		done := s.Worker.SignalCancelMining()
		defer done()
	}
	s.stopMining()

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.db.Reset(); err != nil {
		return err
	}

	s.mempool.Truncate()
	s.requests.Truncate()
	s.decided = make(map[string]struct{})
	s.decidedTxs = make(map[string]struct{})
	s.txCache.Purge()

	if err := s.db.Write(s.snapshot()); err != nil {
		return fmt.Errorf("saving genesis snapshot: %w", err)
	}

	s.events.Publish(events.Event{Kind: events.LedgerReset})

	return nil
}

// Subscribe returns a channel that receives every ledger event until
// Unsubscribe is called.
func (s *State) Subscribe() (events.SubscriberID, <-chan events.Event) {
	return s.events.Subscribe()
}

// Unsubscribe stops the delivery of events to the subscriber.
func (s *State) Unsubscribe(id events.SubscriberID) {
	s.events.Unsubscribe(id)
}

// Genesis returns a copy of the genesis settings.
func (s *State) Genesis() genesis.Genesis {
	return s.genesis
}

// =============================================================================

// snapshot captures the full ledger state. The caller must hold s.mu.
func (s *State) snapshot() database.Snapshot {
	return database.Snapshot{
		Chain:               s.db.CopyChain(),
		Difficulty:          s.db.Difficulty(),
		PendingTransactions: s.mempool.Copy(),
		PendingRequests:     s.requests.Copy(),
		Balances:            s.db.CopyBalances(),
		DecidedRequests:     sortedIDs(s.decided),
		DecidedTransactions: sortedIDs(s.decidedTxs),
	}
}

// restore replaces the in-memory state with the snapshot. The caller must
// hold s.mu or have exclusive access.
func (s *State) restore(snapshot database.Snapshot) error {
	if err := s.db.Restore(snapshot); err != nil {
		return err
	}

	s.mempool.Truncate()
	for _, tx := range snapshot.PendingTransactions {
		s.mempool.Upsert(tx)
	}

	s.requests.Truncate()
	for _, req := range snapshot.PendingRequests {
		s.requests.Add(req)
	}

	s.decided = make(map[string]struct{}, len(snapshot.DecidedRequests))
	for _, id := range snapshot.DecidedRequests {
		s.decided[id] = struct{}{}
	}

	s.decidedTxs = make(map[string]struct{}, len(snapshot.DecidedTransactions))
	for _, id := range snapshot.DecidedTransactions {
		s.decidedTxs[id] = struct{}{}
	}

	s.txCache.Purge()

	return nil
}

// commit persists the current state. When the write fails the in-memory
// state is put back to the previous snapshot so memory never runs ahead
// of storage. The caller must hold s.mu.
func (s *State) commit(prev database.Snapshot) error {
	err := s.db.Write(s.snapshot())
	if err == nil {
		return nil
	}

	s.evHandler("state: commit: ERROR: %s: rolling back", err)

	if rerr := s.restore(prev); rerr != nil {
		return fmt.Errorf("persisting snapshot: %w: rollback: %s", err, rerr)
	}

	return fmt.Errorf("persisting snapshot: %w", err)
}

// signalMining asks the worker, when there is one, to mine the approved
// transactions.
func (s *State) signalMining() {
	if s.Worker != nil {
		s.Worker.SignalStartMining()
	}
}

// stopMining cancels a mining operation started through MineNewBlock.
func (s *State) stopMining() {
	s.cancelMu.Lock()
	defer s.cancelMu.Unlock()

	if s.cancelMining != nil {
		s.cancelMining()
	}
}

// setMiningCancel records the cancel function of the mining operation in flight.
func (s *State) setMiningCancel(cancel context.CancelFunc) {
	s.cancelMu.Lock()
	defer s.cancelMu.Unlock()

	s.cancelMining = cancel
}

func sortedIDs(set map[string]struct{}) []string {
	ids := make([]string, 0, len(set))
	for id := range set {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	return ids
}
