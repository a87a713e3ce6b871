// Package database maintains account balances and the chain of mined blocks.
package database

import (
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/adamwoolhether/ledger/foundation/blockchain/genesis"
)

// Database manages the balances of every account that has been referenced
// on the ledger and the chain of blocks that record how they got there.
type Database struct {
	mu sync.RWMutex

	genesis    genesis.Genesis
	treasury   AccountID
	difficulty int
	accounts   map[AccountID]Account
	chain      []Block

	// Every mined transaction by id and by content hash, rebuilt from the
	// chain on restore.
	minedIDs    map[string]uint64
	minedHashes map[string]string

	storage Storage
}

// New constructs a database at the genesis state. Call Load and Restore
// to pick up a previously persisted snapshot.
func New(gen genesis.Genesis, storage Storage) (*Database, error) {
	if err := gen.Validate(); err != nil {
		return nil, err
	}

	treasury, err := ToAccountID(gen.Treasury)
	if err != nil {
		return nil, err
	}

	db := Database{
		genesis:  gen,
		treasury: treasury,
		storage:  storage,
	}

	if err := db.applyGenesis(); err != nil {
		return nil, err
	}

	return &db, nil
}

// Close closes the underlying storage.
func (db *Database) Close() error {
	return db.storage.Close()
}

// Reset deletes the persisted snapshot and re-initializes the database back
// to the genesis state.
func (db *Database) Reset() error {
	if err := db.storage.Reset(); err != nil {
		return err
	}

	db.mu.Lock()
	defer db.mu.Unlock()

	return db.applyGenesis()
}

// Load reads the persisted snapshot from storage.
func (db *Database) Load() (Snapshot, error) {
	return db.storage.Load()
}

// Write persists the snapshot to storage.
func (db *Database) Write(snapshot Snapshot) error {
	return db.storage.Save(snapshot)
}

// Restore replaces the balances and chain with the snapshot contents after
// verifying the chain.
func (db *Database) Restore(snapshot Snapshot) error {
	if err := VerifyChain(snapshot.Chain); err != nil {
		return err
	}

	accounts := make(map[AccountID]Account, len(snapshot.Balances))
	for accountID, balance := range snapshot.Balances {
		if balance.IsNegative() {
			return fmt.Errorf("account %s restored with negative balance %s", accountID, balance)
		}
		accounts[accountID] = Account{AccountID: accountID, Balance: balance}
	}

	ids, hashes, err := indexChain(snapshot.Chain)
	if err != nil {
		return err
	}

	db.mu.Lock()
	defer db.mu.Unlock()

	db.difficulty = snapshot.Difficulty
	db.accounts = accounts
	db.chain = append([]Block(nil), snapshot.Chain...)
	db.minedIDs = ids
	db.minedHashes = hashes

	return nil
}

// =============================================================================

// Treasury returns the account that backs every mint.
func (db *Database) Treasury() AccountID {
	return db.treasury
}

// Difficulty returns the number of leading zeros new blocks need.
func (db *Database) Difficulty() int {
	db.mu.RLock()
	defer db.mu.RUnlock()

	return db.difficulty
}

// Balance returns the balance for the account. Unknown accounts hold zero.
func (db *Database) Balance(accountID AccountID) decimal.Decimal {
	db.mu.RLock()
	defer db.mu.RUnlock()

	account, exists := db.accounts[accountID]
	if !exists {
		return decimal.Zero
	}

	return account.Balance
}

// CreateAccount adds the account with the initial balance. It returns false
// without touching anything when the account already exists.
func (db *Database) CreateAccount(accountID AccountID, initialBalance decimal.Decimal) (bool, error) {
	if initialBalance.IsNegative() {
		return false, fmt.Errorf("initial balance %s can't be negative", initialBalance)
	}

	db.mu.Lock()
	defer db.mu.Unlock()

	if _, exists := db.accounts[accountID]; exists {
		return false, nil
	}

	db.accounts[accountID] = Account{AccountID: accountID, Balance: initialBalance}

	return true, nil
}

// CopyAccounts makes a copy of the current accounts sorted by account id.
func (db *Database) CopyAccounts() []Account {
	db.mu.RLock()
	defer db.mu.RUnlock()

	accounts := make([]Account, 0, len(db.accounts))
	for _, account := range db.accounts {
		accounts = append(accounts, account)
	}

	sort.Slice(accounts, func(i, j int) bool {
		return accounts[i].AccountID < accounts[j].AccountID
	})

	return accounts
}

// CopyBalances makes a copy of the balance of every account.
func (db *Database) CopyBalances() map[AccountID]decimal.Decimal {
	db.mu.RLock()
	defer db.mu.RUnlock()

	balances := make(map[AccountID]decimal.Decimal, len(db.accounts))
	for accountID, account := range db.accounts {
		balances[accountID] = account.Balance
	}

	return balances
}

// ApplyTx performs the business logic for settling an approved transaction:
// the sender is debited and the receiver credited, both or neither.
func (db *Database) ApplyTx(tx Tx) error {
	if tx.Status != StatusApproved {
		return fmt.Errorf("%w: can't settle %s transaction %s", ErrInvalidTransaction, tx.Status, tx.ID)
	}

	if !tx.Amount.IsPositive() {
		return fmt.Errorf("%w: amount %s must be greater than zero", ErrInvalidTransaction, tx.Amount)
	}

	if tx.Kind == KindMint && tx.FromID != db.treasury {
		return fmt.Errorf("%w: mint must be paid by %s, got %s", ErrInvalidTransaction, db.treasury, tx.FromID)
	}

	db.mu.Lock()
	defer db.mu.Unlock()

	from := db.accounts[tx.FromID]
	to := db.accounts[tx.ToID]

	if from.Balance.LessThan(tx.Amount) {
		err := ErrInsufficientFunds
		if tx.Kind == KindMint {
			err = ErrInsufficientTreasury
		}
		return fmt.Errorf("%w: %s has %s, needed %s", err, tx.FromID, from.Balance, tx.Amount)
	}

	from.AccountID = tx.FromID
	from.Balance = from.Balance.Sub(tx.Amount)

	to.AccountID = tx.ToID
	to.Balance = to.Balance.Add(tx.Amount)

	db.accounts[tx.FromID] = from
	db.accounts[tx.ToID] = to

	return nil
}

// =============================================================================

// LatestBlock returns the latest block.
func (db *Database) LatestBlock() Block {
	db.mu.RLock()
	defer db.mu.RUnlock()

	return db.chain[len(db.chain)-1]
}

// GetBlock returns the block with the specified number.
func (db *Database) GetBlock(num uint64) (Block, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()

	if num >= uint64(len(db.chain)) {
		return Block{}, fmt.Errorf("block %d not found, latest is %d", num, len(db.chain)-1)
	}

	return db.chain[num], nil
}

// MinedBlock returns the number of the block holding the transaction.
func (db *Database) MinedBlock(id string) (uint64, bool) {
	db.mu.RLock()
	defer db.mu.RUnlock()

	number, exists := db.minedIDs[id]
	return number, exists
}

// MinedHash returns the id of the mined transaction with the content hash.
func (db *Database) MinedHash(contentHash string) (string, bool) {
	db.mu.RLock()
	defer db.mu.RUnlock()

	id, exists := db.minedHashes[contentHash]
	return id, exists
}

// CopyChain returns a copy of the chain starting with genesis.
func (db *Database) CopyChain() []Block {
	db.mu.RLock()
	defer db.mu.RUnlock()

	return append([]Block(nil), db.chain...)
}

// AppendBlock validates the block against the latest block and the current
// difficulty, then adds it to the end of the chain.
func (db *Database) AppendBlock(block Block) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	if err := block.ValidateBlock(db.chain[len(db.chain)-1], db.difficulty); err != nil {
		return err
	}

	seen := make(map[string]struct{}, len(block.Transactions))
	for _, tx := range block.Transactions {
		if _, exists := seen[tx.ID]; exists {
			return fmt.Errorf("%w: transaction %s appears twice in the block", ErrInvalidBlock, tx.ID)
		}
		seen[tx.ID] = struct{}{}

		if number, exists := db.minedIDs[tx.ID]; exists {
			return fmt.Errorf("%w: transaction %s already mined in block %d", ErrInvalidBlock, tx.ID, number)
		}
		if id, exists := db.minedHashes[tx.ContentHash]; exists {
			return fmt.Errorf("%w: transaction %s repeats the content of %s", ErrInvalidBlock, tx.ID, id)
		}
	}

	db.chain = append(db.chain, block)

	for _, tx := range block.Transactions {
		db.minedIDs[tx.ID] = block.Number
		db.minedHashes[tx.ContentHash] = tx.ID
	}

	return nil
}

// =============================================================================

// applyGenesis resets balances, chain and difficulty from the genesis settings.
func (db *Database) applyGenesis() error {
	accounts := make(map[AccountID]Account, len(db.genesis.Balances))
	for accountStr, balance := range db.genesis.Balances {
		accountID, err := ToAccountID(accountStr)
		if err != nil {
			return err
		}
		if balance > uint64(1<<63-1) {
			return errors.New("genesis balance overflows")
		}
		accounts[accountID] = Account{AccountID: accountID, Balance: decimal.NewFromInt(int64(balance))}
	}

	db.difficulty = db.genesis.Difficulty
	db.accounts = accounts
	db.chain = []Block{GenesisBlock(time.Now())}
	db.minedIDs = make(map[string]uint64)
	db.minedHashes = make(map[string]string)

	return nil
}

// indexChain maps every mined transaction id and content hash to where it
// was mined. A chain that mines the same transaction twice is refused.
func indexChain(chain []Block) (map[string]uint64, map[string]string, error) {
	ids := make(map[string]uint64)
	hashes := make(map[string]string)

	for _, block := range chain {
		for _, tx := range block.Transactions {
			if number, exists := ids[tx.ID]; exists {
				return nil, nil, fmt.Errorf("%w: transaction %s mined in blocks %d and %d", ErrInvalidBlock, tx.ID, number, block.Number)
			}
			if id, exists := hashes[tx.ContentHash]; exists {
				return nil, nil, fmt.Errorf("%w: transactions %s and %s share content", ErrInvalidBlock, id, tx.ID)
			}
			ids[tx.ID] = block.Number
			hashes[tx.ContentHash] = tx.ID
		}
	}

	return ids, hashes, nil
}
