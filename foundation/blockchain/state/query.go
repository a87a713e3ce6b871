package state

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/adamwoolhether/ledger/foundation/blockchain/database"
)

// QueryLatest represents a query to the latest block in the chain.
const QueryLatest = ^uint64(0) >> 1

// Balance returns the balance of the account. Unknown accounts hold zero.
func (s *State) Balance(accountID database.AccountID) decimal.Decimal {
	return s.db.Balance(accountID)
}

// Accounts returns a copy of every account, sorted by account id.
func (s *State) Accounts() []database.Account {
	return s.db.CopyAccounts()
}

// CreateAccount registers the account with the initial balance. Creating
// an account that exists is a no-op that reports false.
func (s *State) CreateAccount(accountID database.AccountID, initialBalance decimal.Decimal) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	prev := s.snapshot()

	created, err := s.db.CreateAccount(accountID, initialBalance)
	if err != nil || !created {
		return false, err
	}

	if err := s.commit(prev); err != nil {
		return false, err
	}

	s.evHandler("state: CreateAccount: account[%s]: balance[%s]", accountID, initialBalance)

	return true, nil
}

// Difficulty returns the number of leading zeros new blocks need.
func (s *State) Difficulty() int {
	return s.db.Difficulty()
}

// LatestBlock returns the last block appended to the chain.
func (s *State) LatestBlock() database.Block {
	return s.db.LatestBlock()
}

// Blocks returns the whole chain starting with genesis.
func (s *State) Blocks() []database.Block {
	return s.db.CopyChain()
}

// QueryBlocksByNumber returns the set of blocks based on block numbers.
func (s *State) QueryBlocksByNumber(from, to uint64) []database.Block {
	if from == QueryLatest {
		from = s.db.LatestBlock().Number
		to = from
	}

	if to == QueryLatest {
		to = s.db.LatestBlock().Number
	}

	var out []database.Block
	for i := from; i <= to; i++ {
		block, err := s.db.GetBlock(i)
		if err != nil {
			s.evHandler("state: QueryBlocksByNumber: ERROR: %s", err)
			break
		}
		out = append(out, block)
	}

	return out
}

// QueryBlocksByAccount returns the blocks holding a transaction to or from
// the account. If the account is empty, all blocks are returned.
func (s *State) QueryBlocksByAccount(accountID database.AccountID) []database.Block {
	var out []database.Block

	for _, block := range s.db.CopyChain() {
		if accountID == "" {
			out = append(out, block)
			continue
		}

		for _, tx := range block.Transactions {
			if tx.FromID == accountID || tx.ToID == accountID {
				out = append(out, block)
				break
			}
		}
	}

	return out
}

// QueryTransaction finds a transaction by id. The block number is zero
// while the transaction waits in the mempool.
func (s *State) QueryTransaction(id string) (database.Tx, uint64, error) {
	if tx, exists := s.mempool.Get(id); exists {
		return tx, 0, nil
	}

	var number uint64
	if v, cached := s.txCache.Get(id); cached {
		number = v.(uint64)
	} else {
		mined, exists := s.db.MinedBlock(id)
		if !exists {
			return database.Tx{}, 0, fmt.Errorf("%w: %s", ErrTransactionNotFound, id)
		}
		number = mined
		s.txCache.Add(id, number)
	}

	if block, err := s.db.GetBlock(number); err == nil {
		for _, tx := range block.Transactions {
			if tx.ID == id {
				return tx, block.Number, nil
			}
		}
	}
	s.txCache.Remove(id)

	return database.Tx{}, 0, fmt.Errorf("%w: %s", ErrTransactionNotFound, id)
}

// QueryMempoolLength returns the number of approved transactions waiting
// to be mined.
func (s *State) QueryMempoolLength() int {
	return s.mempool.CountApproved()
}
