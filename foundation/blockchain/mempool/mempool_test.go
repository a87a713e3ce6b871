package mempool_test

import (
	"testing"

	"github.com/shopspring/decimal"

	"github.com/adamwoolhether/ledger/foundation/blockchain/database"
	"github.com/adamwoolhether/ledger/foundation/blockchain/mempool"
)

const (
	success = "\u2713"
	failed  = "\u2717"
)

func newTx(t *testing.T, from, to database.AccountID, amount int64, status database.Status) database.Tx {
	tx, err := database.NewTx(from, to, decimal.NewFromInt(amount), database.KindTransfer, status, "")
	if err != nil {
		t.Fatalf("\t%s\tShould be able to construct the transaction: %v", failed, err)
	}
	return tx
}

func TestMempool(t *testing.T) {
	t.Log("Given the need to hold transactions until they are mined.")
	{
		t.Logf("\tTest 0:\tWhen adding pending and approved transactions.")
		{
			mp, err := mempool.New()
			if err != nil {
				t.Fatalf("\t%s\tTest 0:\tShould be able to construct the mempool: %v", failed, err)
			}

			pending := newTx(t, "client1", "client2", 5, database.StatusPending)
			approved := newTx(t, "government", "client1", 50, database.StatusApproved)

			mp.Upsert(pending)
			mp.Upsert(approved)

			if mp.Count() != 2 || mp.CountApproved() != 1 {
				t.Fatalf("\t%s\tTest 0:\tShould count 2 with 1 approved, got %d/%d.", failed, mp.Count(), mp.CountApproved())
			}
			t.Logf("\t%s\tTest 0:\tShould count 2 with 1 approved.", success)

			picked := mp.PickApproved()
			if len(picked) != 1 || picked[0].ID != approved.ID {
				t.Fatalf("\t%s\tTest 0:\tShould only pick the approved transaction, got %v.", failed, picked)
			}
			t.Logf("\t%s\tTest 0:\tShould only pick the approved transaction.", success)

			if err := pending.Decide(true); err != nil {
				t.Fatalf("\t%s\tTest 0:\tShould approve the pending transaction: %v", failed, err)
			}
			mp.Upsert(pending)

			if mp.Count() != 2 || len(mp.PickApproved()) != 2 {
				t.Fatalf("\t%s\tTest 0:\tShould replace the transaction in place.", failed)
			}
			t.Logf("\t%s\tTest 0:\tShould replace the transaction in place.", success)

			got, exists := mp.Get(pending.ID)
			if !exists || got.Status != database.StatusApproved {
				t.Fatalf("\t%s\tTest 0:\tShould get the updated transaction.", failed)
			}
			t.Logf("\t%s\tTest 0:\tShould get the updated transaction.", success)

			if !mp.Delete(pending.ID) || mp.Delete(pending.ID) {
				t.Fatalf("\t%s\tTest 0:\tShould delete the transaction exactly once.", failed)
			}
			t.Logf("\t%s\tTest 0:\tShould delete the transaction exactly once.", success)

			mp.Truncate()
			if mp.Count() != 0 {
				t.Fatalf("\t%s\tTest 0:\tShould be empty after truncate.", failed)
			}
			t.Logf("\t%s\tTest 0:\tShould be empty after truncate.", success)
		}

		t.Logf("\tTest 1:\tWhen asking for an unknown strategy.")
		{
			if _, err := mempool.NewWithStrategy("tip"); err == nil {
				t.Fatalf("\t%s\tTest 1:\tShould refuse the strategy.", failed)
			}
			t.Logf("\t%s\tTest 1:\tShould refuse the strategy.", success)
		}
	}
}

func TestGetByHash(t *testing.T) {
	t.Log("Given the need to find pending transactions by their content.")
	{
		t.Logf("\tTest 0:\tWhen looking up a content hash.")
		{
			mp, err := mempool.New()
			if err != nil {
				t.Fatalf("\t%s\tTest 0:\tShould be able to construct the mempool: %v", failed, err)
			}

			tx := newTx(t, "client1", "client2", 5, database.StatusPending)
			mp.Upsert(tx)

			got, exists := mp.GetByHash(tx.ContentHash)
			if !exists || got.ID != tx.ID {
				t.Fatalf("\t%s\tTest 0:\tShould find the transaction by hash.", failed)
			}
			t.Logf("\t%s\tTest 0:\tShould find the transaction by hash.", success)

			mp.Delete(tx.ID)
			if _, exists := mp.GetByHash(tx.ContentHash); exists {
				t.Fatalf("\t%s\tTest 0:\tShould not find a deleted transaction.", failed)
			}
			t.Logf("\t%s\tTest 0:\tShould not find a deleted transaction.", success)
		}
	}
}

func TestRequestPool(t *testing.T) {
	t.Log("Given the need to hold requests until they are decided.")
	{
		t.Logf("\tTest 0:\tWhen adding and removing a request.")
		{
			rp := mempool.NewRequestPool()

			req, err := database.NewMintRequest("client1", decimal.NewFromInt(50), "test")
			if err != nil {
				t.Fatalf("\t%s\tTest 0:\tShould construct the request: %v", failed, err)
			}

			if !rp.Add(req) || rp.Add(req) {
				t.Fatalf("\t%s\tTest 0:\tShould add the request exactly once.", failed)
			}
			t.Logf("\t%s\tTest 0:\tShould add the request exactly once.", success)

			if !rp.Has(req.ID) || rp.Count() != 1 || len(rp.Copy()) != 1 {
				t.Fatalf("\t%s\tTest 0:\tShould hold the request.", failed)
			}
			t.Logf("\t%s\tTest 0:\tShould hold the request.", success)

			got, exists := rp.Remove(req.ID)
			if !exists || got.ID != req.ID {
				t.Fatalf("\t%s\tTest 0:\tShould remove the request.", failed)
			}
			if _, exists := rp.Remove(req.ID); exists || rp.Has(req.ID) {
				t.Fatalf("\t%s\tTest 0:\tShould not find the request again.", failed)
			}
			t.Logf("\t%s\tTest 0:\tShould remove the request exactly once.", success)
		}
	}
}
