package state

import (
	"context"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/adamwoolhether/ledger/foundation/blockchain/database"
	"github.com/adamwoolhether/ledger/foundation/events"
)

// AddMintRequest constructs a request for the treasury to pay the account
// and places it in the pending pool.
func (s *State) AddMintRequest(fromID database.AccountID, amount decimal.Decimal, reason string) (database.Request, error) {
	req, err := database.NewMintRequest(fromID, amount, reason)
	if err != nil {
		return database.Request{}, err
	}

	if err := s.AddRequest(req); err != nil {
		return database.Request{}, err
	}

	return req, nil
}

// AddTransferRequest constructs a request to move coins between two
// accounts and places it in the pending pool.
func (s *State) AddTransferRequest(fromID, toID database.AccountID, amount decimal.Decimal, reason string) (database.Request, error) {
	req, err := database.NewTransferRequest(fromID, toID, amount, reason)
	if err != nil {
		return database.Request{}, err
	}

	if err := s.AddRequest(req); err != nil {
		return database.Request{}, err
	}

	return req, nil
}

// AddRequest places a request in the pending pool where it waits for a
// single approval decision. An id that is pending or was already decided
// is refused.
func (s *State) AddRequest(req database.Request) error {
	if err := req.Validate(); err != nil {
		return err
	}

	if req.FromID == s.db.Treasury() {
		return fmt.Errorf("%w: the treasury can't raise requests", database.ErrInvalidRequest)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.decided[req.ID]; exists {
		return fmt.Errorf("%w: %s was already decided", ErrDuplicateRequest, req.ID)
	}

	prev := s.snapshot()

	if !s.requests.Add(req) {
		return fmt.Errorf("%w: %s is already pending", ErrDuplicateRequest, req.ID)
	}

	if err := s.commit(prev); err != nil {
		return err
	}

	s.evHandler("state: AddRequest: id[%s]: kind[%s]: from[%s]: to[%s]: amount[%s]", req.ID, req.Kind, req.FromID, req.ToID, req.Amount)
	s.events.Publish(events.Event{Kind: events.RequestAdded, ID: req.ID})

	return nil
}

// ValidateRequest applies the one decision a request gets. The request
// leaves the pending pool, and that removal is saved, before any balance
// moves. An approved request is settled, recorded as an approved
// transaction that points back at the request and mined into a block.
// A settlement that fails leaves the request removed.
func (s *State) ValidateRequest(ctx context.Context, id string, approve bool) (database.Tx, error) {
	tx, err := s.decideRequest(id, approve)
	if err != nil || !approve {
		return tx, err
	}

	if _, err := s.MineNewBlock(ctx); err != nil && !errors.Is(err, ErrNoTransactions) {
		return tx, err
	}

	return tx, nil
}

// PendingRequests returns the requests waiting on a decision, oldest first.
func (s *State) PendingRequests() []database.Request {
	return s.requests.Copy()
}

// =============================================================================

// decideRequest removes the request from the pool and settles it. The
// returned transaction is the zero value for a rejection.
func (s *State) decideRequest(id string, approve bool) (database.Tx, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	prev := s.snapshot()

	req, exists := s.requests.Remove(id)
	if !exists {
		return database.Tx{}, fmt.Errorf("%w: %s", ErrRequestNotFound, id)
	}
	s.decided[id] = struct{}{}

	if err := s.commit(prev); err != nil {
		return database.Tx{}, err
	}

	s.evHandler("state: ValidateRequest: id[%s]: removed: approve[%t]", id, approve)

	if !approve {
		s.events.Publish(events.Event{Kind: events.RequestDecided, ID: id})
		return database.Tx{}, nil
	}

	tx, err := s.settleRequest(req)
	if err != nil {
		s.evHandler("state: ValidateRequest: id[%s]: ERROR: %s", id, err)
		s.events.Publish(events.Event{Kind: events.RequestDecided, ID: id, Error: err.Error()})
		return database.Tx{}, err
	}

	s.events.Publish(events.Event{Kind: events.RequestDecided, ID: id, Approved: true})

	return tx, nil
}

// settleRequest moves the balances for an approved request and queues the
// resulting transaction for mining. The caller must hold s.mu.
func (s *State) settleRequest(req database.Request) (database.Tx, error) {
	fromID, toID := req.FromID, req.ToID
	if req.Kind == database.KindMint {
		fromID, toID = s.db.Treasury(), req.FromID
	}

	tx, err := database.NewTx(fromID, toID, req.Amount, req.Kind, database.StatusApproved, req.Reason)
	if err != nil {
		return database.Tx{}, err
	}
	tx.OriginalRequestID = req.ID

	prev := s.snapshot()

	if err := s.db.ApplyTx(tx); err != nil {
		return database.Tx{}, err
	}
	s.mempool.Upsert(tx)

	if err := s.commit(prev); err != nil {
		return database.Tx{}, err
	}

	s.evHandler("state: ValidateRequest: id[%s]: settled: tx[%s]", req.ID, tx)

	return tx, nil
}
