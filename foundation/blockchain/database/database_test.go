package database_test

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/adamwoolhether/ledger/foundation/blockchain/database"
	"github.com/adamwoolhether/ledger/foundation/blockchain/genesis"
	"github.com/adamwoolhether/ledger/foundation/blockchain/storage/memory"
)

const (
	success = "\u2713"
	failed  = "\u2717"
)

func newDatabase(t *testing.T) *database.Database {
	db, err := database.New(genesis.Default(), memory.New())
	if err != nil {
		t.Fatalf("\t%s\tShould be able to construct the database: %v", failed, err)
	}
	return db
}

func approvedTx(t *testing.T, from, to database.AccountID, amount int64, kind database.Kind) database.Tx {
	tx, err := database.NewTx(from, to, decimal.NewFromInt(amount), kind, database.StatusApproved, "test")
	if err != nil {
		t.Fatalf("\t%s\tShould be able to construct the transaction: %v", failed, err)
	}
	return tx
}

func TestGenesisState(t *testing.T) {
	t.Log("Given the need to start a ledger from the default genesis.")
	{
		t.Logf("\tTest 0:\tWhen constructing a new database.")
		{
			db := newDatabase(t)

			if got := db.Balance("government"); !got.Equal(decimal.NewFromInt(1_000_000)) {
				t.Fatalf("\t%s\tTest 0:\tShould seed the treasury with 1000000, got %s.", failed, got)
			}
			t.Logf("\t%s\tTest 0:\tShould seed the treasury with 1000000.", success)

			accounts := db.CopyAccounts()
			if len(accounts) != 4 {
				t.Fatalf("\t%s\tTest 0:\tShould have 4 accounts, got %d.", failed, len(accounts))
			}
			if accounts[0].AccountID != "client1" || accounts[3].AccountID != "government" {
				t.Fatalf("\t%s\tTest 0:\tShould sort accounts by id, got %v.", failed, accounts)
			}
			t.Logf("\t%s\tTest 0:\tShould have the 4 default accounts in order.", success)

			chain := db.CopyChain()
			if len(chain) != 1 || !chain[0].IsGenesis() {
				t.Fatalf("\t%s\tTest 0:\tShould start with only the genesis block.", failed)
			}
			if chain[0].Hash != "0" || chain[0].PreviousHash != "0" {
				t.Fatalf("\t%s\tTest 0:\tShould give genesis the zero hashes, got %s/%s.", failed, chain[0].Hash, chain[0].PreviousHash)
			}
			t.Logf("\t%s\tTest 0:\tShould start with only the genesis block.", success)

			if db.Difficulty() != 2 {
				t.Fatalf("\t%s\tTest 0:\tShould have difficulty 2, got %d.", failed, db.Difficulty())
			}
			t.Logf("\t%s\tTest 0:\tShould have difficulty 2.", success)

			if got := db.Balance("nobody"); !got.IsZero() {
				t.Fatalf("\t%s\tTest 0:\tShould report zero for an unknown account, got %s.", failed, got)
			}
			t.Logf("\t%s\tTest 0:\tShould report zero for an unknown account.", success)
		}
	}
}

func TestCreateAccount(t *testing.T) {
	t.Log("Given the need to register accounts.")
	{
		db := newDatabase(t)

		t.Logf("\tTest 0:\tWhen creating a new account with an initial balance.")
		{
			created, err := db.CreateAccount("client9", decimal.NewFromInt(7))
			if err != nil || !created {
				t.Fatalf("\t%s\tTest 0:\tShould create the account: %v", failed, err)
			}
			t.Logf("\t%s\tTest 0:\tShould create the account.", success)

			created, err = db.CreateAccount("client9", decimal.NewFromInt(100))
			if err != nil || created {
				t.Fatalf("\t%s\tTest 0:\tShould not create the account twice: %v", failed, err)
			}
			if got := db.Balance("client9"); !got.Equal(decimal.NewFromInt(7)) {
				t.Fatalf("\t%s\tTest 0:\tShould keep the original balance, got %s.", failed, got)
			}
			t.Logf("\t%s\tTest 0:\tShould leave an existing account untouched.", success)
		}

		t.Logf("\tTest 1:\tWhen creating an account with a negative balance.")
		{
			if _, err := db.CreateAccount("client10", decimal.NewFromInt(-1)); err == nil {
				t.Fatalf("\t%s\tTest 1:\tShould refuse a negative balance.", failed)
			}
			t.Logf("\t%s\tTest 1:\tShould refuse a negative balance.", success)
		}
	}
}

func TestApplyTx(t *testing.T) {
	type table struct {
		name  string
		tx    func(t *testing.T) database.Tx
		err   error
		from  database.AccountID
		to    database.AccountID
		fromB int64
		toB   int64
	}

	tt := []table{
		{
			name:  "mint",
			tx:    func(t *testing.T) database.Tx { return approvedTx(t, "government", "client1", 50, database.KindMint) },
			from:  "government",
			to:    "client1",
			fromB: 999_950,
			toB:   50,
		},
		{
			name:  "transfer without funds",
			tx:    func(t *testing.T) database.Tx { return approvedTx(t, "client1", "client2", 10, database.KindTransfer) },
			err:   database.ErrInsufficientFunds,
			from:  "client1",
			to:    "client2",
			fromB: 0,
			toB:   0,
		},
		{
			name:  "mint beyond the treasury",
			tx:    func(t *testing.T) database.Tx { return approvedTx(t, "government", "client1", 1_000_001, database.KindMint) },
			err:   database.ErrInsufficientTreasury,
			from:  "government",
			to:    "client1",
			fromB: 1_000_000,
			toB:   0,
		},
		{
			name:  "mint not paid by the treasury",
			tx:    func(t *testing.T) database.Tx { return approvedTx(t, "client1", "client2", 1, database.KindMint) },
			err:   database.ErrInvalidTransaction,
			from:  "client1",
			to:    "client2",
			fromB: 0,
			toB:   0,
		},
		{
			name: "pending",
			tx: func(t *testing.T) database.Tx {
				tx, err := database.NewTx("government", "client1", decimal.NewFromInt(1), database.KindTransfer, database.StatusPending, "")
				if err != nil {
					t.Fatal(err)
				}
				return tx
			},
			err:   database.ErrInvalidTransaction,
			from:  "government",
			to:    "client1",
			fromB: 1_000_000,
			toB:   0,
		},
	}

	t.Log("Given the need to settle transactions atomically.")
	{
		for testID, tst := range tt {
			f := func(t *testing.T) {
				t.Logf("\tTest %d:\tWhen applying a %s transaction.", testID, tst.name)
				{
					db := newDatabase(t)

					err := db.ApplyTx(tst.tx(t))
					if !errors.Is(err, tst.err) {
						t.Fatalf("\t%s\tTest %d:\tShould get error %v, got %v.", failed, testID, tst.err, err)
					}
					t.Logf("\t%s\tTest %d:\tShould get the expected error.", success, testID)

					if got := db.Balance(tst.from); !got.Equal(decimal.NewFromInt(tst.fromB)) {
						t.Fatalf("\t%s\tTest %d:\tShould leave %s with %d, got %s.", failed, testID, tst.from, tst.fromB, got)
					}
					if got := db.Balance(tst.to); !got.Equal(decimal.NewFromInt(tst.toB)) {
						t.Fatalf("\t%s\tTest %d:\tShould leave %s with %d, got %s.", failed, testID, tst.to, tst.toB, got)
					}
					t.Logf("\t%s\tTest %d:\tShould have the expected balances.", success, testID)
				}
			}

			t.Run(tst.name, f)
		}
	}
}

func TestAppendAndRestore(t *testing.T) {
	t.Log("Given the need to extend the chain and reload it.")
	{
		t.Logf("\tTest 0:\tWhen appending a mined block.")
		{
			db := newDatabase(t)
			tx := approvedTx(t, "government", "client1", 50, database.KindMint)

			if err := db.ApplyTx(tx); err != nil {
				t.Fatalf("\t%s\tTest 0:\tShould settle the transaction: %v", failed, err)
			}

			block := mine(t, db.LatestBlock(), db.Difficulty(), tx)

			if err := db.AppendBlock(block); err != nil {
				t.Fatalf("\t%s\tTest 0:\tShould append the block: %v", failed, err)
			}
			t.Logf("\t%s\tTest 0:\tShould append the block.", success)

			if err := db.AppendBlock(block); !errors.Is(err, database.ErrInvalidBlock) {
				t.Fatalf("\t%s\tTest 0:\tShould refuse the same block twice, got %v.", failed, err)
			}
			t.Logf("\t%s\tTest 0:\tShould refuse the same block twice.", success)

			again := mine(t, db.LatestBlock(), db.Difficulty(), tx)
			if err := db.AppendBlock(again); !errors.Is(err, database.ErrInvalidBlock) {
				t.Fatalf("\t%s\tTest 0:\tShould refuse a block that mines the transaction again, got %v.", failed, err)
			}
			t.Logf("\t%s\tTest 0:\tShould refuse a block that mines the transaction again.", success)

			if number, exists := db.MinedBlock(tx.ID); !exists || number != 1 {
				t.Fatalf("\t%s\tTest 0:\tShould index the transaction in block 1, got %d %t.", failed, number, exists)
			}
			if id, exists := db.MinedHash(tx.ContentHash); !exists || id != tx.ID {
				t.Fatalf("\t%s\tTest 0:\tShould index the transaction by content hash.", failed)
			}
			t.Logf("\t%s\tTest 0:\tShould index the mined transaction.", success)

			snap := database.Snapshot{
				Chain:      db.CopyChain(),
				Difficulty: db.Difficulty(),
				Balances:   db.CopyBalances(),
			}
			if err := db.Write(snap); err != nil {
				t.Fatalf("\t%s\tTest 0:\tShould write the snapshot: %v", failed, err)
			}

			if err := db.Reset(); err != nil {
				t.Fatalf("\t%s\tTest 0:\tShould reset the database: %v", failed, err)
			}
			if len(db.CopyChain()) != 1 || !db.Balance("client1").IsZero() {
				t.Fatalf("\t%s\tTest 0:\tShould be back at genesis after reset.", failed)
			}
			t.Logf("\t%s\tTest 0:\tShould be back at genesis after reset.", success)

			if _, err := db.Load(); !errors.Is(err, database.ErrNoSnapshot) {
				t.Fatalf("\t%s\tTest 0:\tShould have no snapshot after reset, got %v.", failed, err)
			}

			if err := db.Restore(snap); err != nil {
				t.Fatalf("\t%s\tTest 0:\tShould restore the snapshot: %v", failed, err)
			}
			if len(db.CopyChain()) != 2 || !db.Balance("client1").Equal(decimal.NewFromInt(50)) {
				t.Fatalf("\t%s\tTest 0:\tShould have the mined state after restore.", failed)
			}
			t.Logf("\t%s\tTest 0:\tShould have the mined state after restore.", success)

			if number, exists := db.MinedBlock(tx.ID); !exists || number != 1 {
				t.Fatalf("\t%s\tTest 0:\tShould rebuild the mined index on restore.", failed)
			}
			t.Logf("\t%s\tTest 0:\tShould rebuild the mined index on restore.", success)
		}

		t.Logf("\tTest 1:\tWhen restoring a tampered chain.")
		{
			db := newDatabase(t)
			tx := approvedTx(t, "government", "client1", 50, database.KindMint)
			block := mine(t, db.LatestBlock(), db.Difficulty(), tx)
			block.Transactions[0].Amount = decimal.NewFromInt(5000)

			snap := database.Snapshot{
				Chain:      []database.Block{db.LatestBlock(), block},
				Difficulty: db.Difficulty(),
				Balances:   db.CopyBalances(),
			}

			if err := db.Restore(snap); err == nil {
				t.Fatalf("\t%s\tTest 1:\tShould refuse a tampered chain.", failed)
			}
			t.Logf("\t%s\tTest 1:\tShould refuse a tampered chain.", success)
		}

		t.Logf("\tTest 2:\tWhen restoring a chain that mines a transaction twice.")
		{
			db := newDatabase(t)
			tx := approvedTx(t, "government", "client1", 50, database.KindMint)
			first := mine(t, db.LatestBlock(), db.Difficulty(), tx)
			second := mine(t, first, db.Difficulty(), tx)

			snap := database.Snapshot{
				Chain:      []database.Block{db.LatestBlock(), first, second},
				Difficulty: db.Difficulty(),
				Balances:   db.CopyBalances(),
			}

			if err := db.Restore(snap); !errors.Is(err, database.ErrInvalidBlock) {
				t.Fatalf("\t%s\tTest 2:\tShould refuse the chain, got %v.", failed, err)
			}
			if len(db.CopyChain()) != 1 {
				t.Fatalf("\t%s\tTest 2:\tShould keep the current chain.", failed)
			}
			t.Logf("\t%s\tTest 2:\tShould refuse the chain and keep the current one.", success)
		}
	}
}
