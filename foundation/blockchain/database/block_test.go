package database_test

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/adamwoolhether/ledger/foundation/blockchain/database"
)

func mine(t *testing.T, prev database.Block, difficulty int, txs ...database.Tx) database.Block {
	args := database.POWArgs{
		PrevBlock:  prev,
		Difficulty: difficulty,
		Txs:        txs,
	}

	block, err := database.POW(context.Background(), args)
	if err != nil {
		t.Fatalf("\t%s\tShould be able to mine a block: %v", failed, err)
	}
	return block
}

func TestPOW(t *testing.T) {
	t.Log("Given the need to seal approved transactions into blocks.")
	{
		genesis := database.GenesisBlock(time.Now())

		t.Logf("\tTest 0:\tWhen mining a block at difficulty 2.")
		{
			tx1 := approvedTx(t, "government", "client1", 50, database.KindMint)
			tx2 := approvedTx(t, "client1", "client2", 20, database.KindTransfer)

			block := mine(t, genesis, 2, tx1, tx2)

			if !strings.HasPrefix(block.Hash, "00") {
				t.Fatalf("\t%s\tTest 0:\tShould have a hash with 2 leading zeros, got %s.", failed, block.Hash)
			}
			t.Logf("\t%s\tTest 0:\tShould have a hash with 2 leading zeros.", success)

			if block.PreviousHash != genesis.Hash || block.Number != 1 {
				t.Fatalf("\t%s\tTest 0:\tShould link to genesis, got prev[%s] number[%d].", failed, block.PreviousHash, block.Number)
			}
			t.Logf("\t%s\tTest 0:\tShould link to genesis.", success)

			if block.CalculateHash() != block.Hash {
				t.Fatalf("\t%s\tTest 0:\tShould store the hash of its own contents.", failed)
			}
			t.Logf("\t%s\tTest 0:\tShould store the hash of its own contents.", success)

			if err := block.ValidateBlock(genesis, 2); err != nil {
				t.Fatalf("\t%s\tTest 0:\tShould validate against its parent: %v", failed, err)
			}
			t.Logf("\t%s\tTest 0:\tShould validate against its parent.", success)

			if err := database.VerifyChain([]database.Block{genesis, block}); err != nil {
				t.Fatalf("\t%s\tTest 0:\tShould form a valid chain: %v", failed, err)
			}
			t.Logf("\t%s\tTest 0:\tShould form a valid chain.", success)

			next := mine(t, block, 2, approvedTx(t, "government", "client3", 1, database.KindMint))
			if next.PreviousHash != block.Hash || next.Number != 2 {
				t.Fatalf("\t%s\tTest 0:\tShould link the next block to this one.", failed)
			}
			if err := database.VerifyChain([]database.Block{genesis, block, next}); err != nil {
				t.Fatalf("\t%s\tTest 0:\tShould extend the chain: %v", failed, err)
			}
			t.Logf("\t%s\tTest 0:\tShould extend the chain.", success)
		}

		t.Logf("\tTest 1:\tWhen there is nothing to mine.")
		{
			_, err := database.POW(context.Background(), database.POWArgs{PrevBlock: genesis, Difficulty: 1})
			if !errors.Is(err, database.ErrInvalidBlock) {
				t.Fatalf("\t%s\tTest 1:\tShould refuse to mine an empty block, got %v.", failed, err)
			}
			t.Logf("\t%s\tTest 1:\tShould refuse to mine an empty block.", success)
		}

		t.Logf("\tTest 2:\tWhen the mining is cancelled.")
		{
			ctx, cancel := context.WithCancel(context.Background())
			cancel()

			args := database.POWArgs{
				PrevBlock:  genesis,
				Difficulty: 64,
				Txs:        []database.Tx{approvedTx(t, "government", "client1", 1, database.KindMint)},
			}

			_, err := database.POW(ctx, args)
			if !errors.Is(err, context.Canceled) {
				t.Fatalf("\t%s\tTest 2:\tShould stop with context.Canceled, got %v.", failed, err)
			}
			t.Logf("\t%s\tTest 2:\tShould stop with context.Canceled.", success)
		}
	}
}

func TestValidateBlock(t *testing.T) {
	genesis := database.GenesisBlock(time.Now())

	type table struct {
		name   string
		mutate func(b *database.Block)
	}

	tt := []table{
		{"wrong number", func(b *database.Block) { b.Number = 5 }},
		{"wrong parent", func(b *database.Block) { b.PreviousHash = "abc" }},
		{"wrong difficulty", func(b *database.Block) { b.Difficulty = 1 }},
		{"changed nonce", func(b *database.Block) { b.Nonce++ }},
		{"changed root", func(b *database.Block) { b.TransRoot = strings.Repeat("0", 64) }},
		{"dropped transactions", func(b *database.Block) { b.Transactions = nil }},
		{"pending transaction", func(b *database.Block) { b.Transactions[0].Status = database.StatusPending }},
	}

	t.Log("Given the need to refuse blocks that don't follow the rules.")
	{
		for testID, tst := range tt {
			f := func(t *testing.T) {
				t.Logf("\tTest %d:\tWhen a block has a %s.", testID, tst.name)
				{
					block := mine(t, genesis, 2, approvedTx(t, "government", "client1", 50, database.KindMint))
					tst.mutate(&block)

					if err := block.ValidateBlock(genesis, 2); !errors.Is(err, database.ErrInvalidBlock) {
						t.Fatalf("\t%s\tTest %d:\tShould refuse the block, got %v.", failed, testID, err)
					}
					t.Logf("\t%s\tTest %d:\tShould refuse the block.", success, testID)
				}
			}

			t.Run(tst.name, f)
		}
	}
}
