package state

import (
	"context"
	"fmt"

	"github.com/adamwoolhether/ledger/foundation/blockchain/database"
	"github.com/adamwoolhether/ledger/foundation/events"
)

// MineNewBlock seals every approved transaction waiting in the mempool into
// a new block and appends it to the chain. Only one mining operation runs at
// a time; a second caller waits for the first to finish. When there is
// nothing approved to mine ErrNoTransactions is returned and no block is made.
// A failure leaves the chain and the mempool as they were.
func (s *State) MineNewBlock(ctx context.Context) (database.Block, error) {
	s.miningMu.Lock()
	defer s.miningMu.Unlock()

	s.evHandler("state: MineNewBlock: MINING: check mempool count")

	s.mu.RLock()
	txs := s.mempool.PickApproved()
	prevBlock := s.db.LatestBlock()
	difficulty := s.db.Difficulty()
	s.mu.RUnlock()

	// Are there any transactions to mine.
	if len(txs) == 0 {
		return database.Block{}, ErrNoTransactions
	}

	ctx, cancel := context.WithCancel(ctx)
	s.setMiningCancel(cancel)
	defer func() {
		s.setMiningCancel(nil)
		cancel()
	}()

	s.evHandler("state: MineNewBlock: MINING: perform POW: numTrans[%d]", len(txs))
	s.events.Publish(events.Event{Kind: events.MiningStarted, Block: prevBlock.Number + 1})

	// Attempt to create a new block by solving the POW puzzle. This can be cancelled.
	block, err := database.POW(ctx, database.POWArgs{
		PrevBlock:  prevBlock,
		Difficulty: difficulty,
		Txs:        txs,
		EvHandler:  s.evHandler,
	})
	if err != nil {
		return database.Block{}, s.miningFailed(prevBlock.Number+1, err)
	}

	s.evHandler("state: MineNewBlock: MINING: validate and update database")

	// Validate the block and update the ledger.
	if err := s.writeBlock(prevBlock, block); err != nil {
		return database.Block{}, s.miningFailed(block.Number, err)
	}

	s.events.Publish(events.Event{Kind: events.MiningCompleted, ID: block.Hash, Block: block.Number})

	return block, nil
}

// =============================================================================

// writeBlock appends the mined block and takes its transactions out of the
// mempool. The block is refused when the chain or the mempool changed
// underneath the mining operation.
func (s *State) writeBlock(prevBlock database.Block, block database.Block) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if latest := s.db.LatestBlock(); latest.Hash != prevBlock.Hash || latest.Number != prevBlock.Number {
		return fmt.Errorf("chain moved to block %d while mining", latest.Number)
	}

	for _, tx := range block.Transactions {
		pooled, exists := s.mempool.Get(tx.ID)
		if !exists || pooled.Status != database.StatusApproved {
			return fmt.Errorf("transaction %s left the mempool while mining", tx.ID)
		}
	}

	prev := s.snapshot()

	if err := s.db.AppendBlock(block); err != nil {
		return err
	}

	for _, tx := range block.Transactions {
		s.evHandler("state: MineNewBlock: tx[%s] remove from mempool", tx)
		s.mempool.Delete(tx.ID)
	}

	if err := s.commit(prev); err != nil {
		return err
	}

	for _, tx := range block.Transactions {
		s.txCache.Add(tx.ID, block.Number)
	}

	return nil
}

// miningFailed reports the failure to subscribers and wraps the cause.
func (s *State) miningFailed(number uint64, err error) error {
	s.evHandler("state: MineNewBlock: MINING: ERROR: %s", err)
	s.events.Publish(events.Event{Kind: events.MiningFailed, Block: number, Error: err.Error()})

	return fmt.Errorf("%w: %w", ErrMining, err)
}
