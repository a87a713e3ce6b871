package state

import (
	"context"
	"errors"
	"fmt"

	"github.com/adamwoolhether/ledger/foundation/blockchain/database"
	"github.com/adamwoolhether/ledger/foundation/events"
)

// AddTransaction accepts a direct transaction for inclusion. A PENDING
// transaction waits for ValidateTransaction. An APPROVED transaction is
// settled on admission and the worker is signaled to mine it. Signatures
// are optional, but one that is present must be valid.
func (s *State) AddTransaction(tx database.Tx) error {
	if err := validateTransaction(tx); err != nil {
		return err
	}

	if tx.Kind == database.KindMint && tx.FromID != s.db.Treasury() {
		return fmt.Errorf("%w: mint must be paid by %s", database.ErrInvalidTransaction, s.db.Treasury())
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.checkReplay(tx); err != nil {
		return err
	}

	prev := s.snapshot()

	if tx.Status == database.StatusApproved {
		if err := s.db.ApplyTx(tx); err != nil {
			return err
		}
	}
	s.mempool.Upsert(tx)

	if err := s.commit(prev); err != nil {
		return err
	}

	s.evHandler("state: AddTransaction: tx[%s]: status[%s]", tx, tx.Status)
	s.events.Publish(events.Event{Kind: events.TransactionAdded, ID: tx.ID, Approved: tx.Status == database.StatusApproved})

	if tx.Status == database.StatusApproved {
		s.signalMining()
	}

	return nil
}

// ValidateTransaction applies the one decision a pending transaction gets.
// An approved transaction is settled and mined. A rejected one, or one that
// can't be settled, is marked REJECTED and dropped from the pool.
func (s *State) ValidateTransaction(ctx context.Context, id string, approve bool) (database.Tx, error) {
	tx, err := s.decideTransaction(id, approve)
	if err != nil || tx.Status != database.StatusApproved {
		return tx, err
	}

	if _, err := s.MineNewBlock(ctx); err != nil && !errors.Is(err, ErrNoTransactions) {
		return tx, err
	}

	return tx, nil
}

// PendingTransactions returns every transaction that is not yet mined,
// oldest first.
func (s *State) PendingTransactions() []database.Tx {
	return s.mempool.Copy()
}

// AllTransactions returns every mined transaction followed by the approved
// transactions still waiting to be mined. A transaction is visible as soon
// as it is approved.
func (s *State) AllTransactions() []database.Tx {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var txs []database.Tx
	for _, block := range s.db.CopyChain() {
		txs = append(txs, block.Transactions...)
	}

	for _, tx := range s.mempool.Copy() {
		if tx.Status == database.StatusApproved {
			txs = append(txs, tx)
		}
	}

	return txs
}

// =============================================================================

// decideTransaction settles or rejects the pending transaction.
func (s *State) decideTransaction(id string, approve bool) (database.Tx, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, exists := s.mempool.Get(id)
	if !exists || tx.Status != database.StatusPending {
		return database.Tx{}, fmt.Errorf("%w: %s is not pending", ErrTransactionNotFound, id)
	}

	prev := s.snapshot()

	if err := tx.Decide(approve); err != nil {
		return database.Tx{}, err
	}

	var settleErr error
	if approve {
		if settleErr = s.db.ApplyTx(tx); settleErr != nil {
			tx.Status = database.StatusRejected
		}
	}

	switch tx.Status {
	case database.StatusApproved:
		s.mempool.Upsert(tx)
	default:
		s.mempool.Delete(tx.ID)
		s.decidedTxs[tx.ID] = struct{}{}
	}

	if err := s.commit(prev); err != nil {
		return database.Tx{}, err
	}

	s.evHandler("state: ValidateTransaction: tx[%s]: status[%s]", tx, tx.Status)

	ev := events.Event{Kind: events.TransactionDecided, ID: tx.ID, Approved: tx.Status == database.StatusApproved}
	if settleErr != nil {
		ev.Error = settleErr.Error()
	}
	s.events.Publish(ev)

	if settleErr != nil {
		return tx, settleErr
	}

	return tx, nil
}

// checkReplay refuses a transaction the ledger has already seen, whether it
// is pending, mined or was rejected. Mined transactions are matched on the
// chain by id and by content. The caller must hold s.mu.
func (s *State) checkReplay(tx database.Tx) error {
	if _, exists := s.mempool.Get(tx.ID); exists {
		return fmt.Errorf("%w: %s is pending", ErrDuplicateTransaction, tx.ID)
	}

	if pooled, exists := s.mempool.GetByHash(tx.ContentHash); exists {
		return fmt.Errorf("%w: %s repeats pending %s", ErrDuplicateTransaction, tx.ID, pooled.ID)
	}

	if _, exists := s.decidedTxs[tx.ID]; exists {
		return fmt.Errorf("%w: %s was already rejected", ErrDuplicateTransaction, tx.ID)
	}

	if number, exists := s.db.MinedBlock(tx.ID); exists {
		return fmt.Errorf("%w: %s is mined in block %d", ErrDuplicateTransaction, tx.ID, number)
	}

	if id, exists := s.db.MinedHash(tx.ContentHash); exists {
		return fmt.Errorf("%w: %s repeats mined %s", ErrDuplicateTransaction, tx.ID, id)
	}

	return nil
}

// validateTransaction checks the transaction is well formed and, when it
// carries a signature, that the signature belongs to the sender.
func validateTransaction(tx database.Tx) error {
	if tx.ID == "" || tx.FromID == "" || tx.ToID == "" {
		return fmt.Errorf("%w: transaction must include id, from and to", database.ErrInvalidTransaction)
	}

	if tx.FromID == tx.ToID {
		return fmt.Errorf("%w: sending money to yourself, %s", database.ErrInvalidTransaction, tx.FromID)
	}

	if !tx.Amount.IsPositive() {
		return fmt.Errorf("%w: amount %s must be greater than zero", database.ErrInvalidTransaction, tx.Amount)
	}

	if _, err := tx.Kind.MarshalText(); err != nil {
		return fmt.Errorf("%w: %s", database.ErrInvalidTransaction, err)
	}

	if tx.Status != database.StatusPending && tx.Status != database.StatusApproved {
		return fmt.Errorf("%w: status %s can't be submitted", database.ErrInvalidTransaction, tx.Status)
	}

	if err := tx.VerifySubmission(); err != nil {
		return err
	}

	if tx.Signature != "" {
		return tx.Verify()
	}

	return nil
}
