package database_test

import (
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/ethereum/go-ethereum/crypto"
	"github.com/shopspring/decimal"

	"github.com/adamwoolhether/ledger/foundation/blockchain/database"
	"github.com/adamwoolhether/ledger/foundation/blockchain/signature"
)

func TestNewTx(t *testing.T) {
	type table struct {
		name   string
		from   database.AccountID
		to     database.AccountID
		amount int64
		kind   database.Kind
		status database.Status
	}

	tt := []table{
		{"missing from", "", "client1", 1, database.KindTransfer, database.StatusPending},
		{"same account", "client1", "client1", 1, database.KindTransfer, database.StatusPending},
		{"zero amount", "client1", "client2", 0, database.KindTransfer, database.StatusPending},
		{"negative amount", "client1", "client2", -5, database.KindTransfer, database.StatusPending},
		{"unknown kind", "client1", "client2", 1, database.Kind(9), database.StatusPending},
		{"rejected status", "client1", "client2", 1, database.KindTransfer, database.StatusRejected},
	}

	t.Log("Given the need to refuse malformed transactions.")
	{
		for testID, tst := range tt {
			f := func(t *testing.T) {
				t.Logf("\tTest %d:\tWhen constructing a transaction with %s.", testID, tst.name)
				{
					_, err := database.NewTx(tst.from, tst.to, decimal.NewFromInt(tst.amount), tst.kind, tst.status, "")
					if !errors.Is(err, database.ErrInvalidTransaction) {
						t.Fatalf("\t%s\tTest %d:\tShould get ErrInvalidTransaction, got %v.", failed, testID, err)
					}
					t.Logf("\t%s\tTest %d:\tShould get ErrInvalidTransaction.", success, testID)
				}
			}

			t.Run(tst.name, f)
		}
	}

	t.Log("Given the need to stamp valid transactions.")
	{
		t.Logf("\tTest 0:\tWhen constructing a pending transfer.")
		{
			tx, err := database.NewTx("client1", "client2", decimal.NewFromInt(20), database.KindTransfer, database.StatusPending, "rent")
			if err != nil {
				t.Fatalf("\t%s\tTest 0:\tShould construct the transaction: %v", failed, err)
			}
			t.Logf("\t%s\tTest 0:\tShould construct the transaction.", success)

			if !strings.HasPrefix(tx.ID, "TX_client1_client2_") {
				t.Fatalf("\t%s\tTest 0:\tShould have an id naming both accounts, got %s.", failed, tx.ID)
			}
			t.Logf("\t%s\tTest 0:\tShould have an id naming both accounts.", success)

			if len(tx.ContentHash) != 64 {
				t.Fatalf("\t%s\tTest 0:\tShould have a sha256 hex content hash, got %q.", failed, tx.ContentHash)
			}
			if err := tx.VerifyHash(); err != nil {
				t.Fatalf("\t%s\tTest 0:\tShould verify its own hash: %v", failed, err)
			}
			t.Logf("\t%s\tTest 0:\tShould carry a verifiable content hash.", success)

			hash := tx.ContentHash
			if err := tx.Decide(true); err != nil {
				t.Fatalf("\t%s\tTest 0:\tShould approve the transaction: %v", failed, err)
			}
			if tx.ContentHash != hash || tx.VerifyHash() != nil {
				t.Fatalf("\t%s\tTest 0:\tShould keep a verifiable hash after approval.", failed)
			}
			t.Logf("\t%s\tTest 0:\tShould keep a verifiable hash after approval.", success)

			if err := tx.Decide(false); !errors.Is(err, database.ErrInvalidTransaction) {
				t.Fatalf("\t%s\tTest 0:\tShould not decide a transaction twice, got %v.", failed, err)
			}
			t.Logf("\t%s\tTest 0:\tShould not decide a transaction twice.", success)

			tx.Amount = decimal.NewFromInt(2000)
			if err := tx.VerifyHash(); !errors.Is(err, database.ErrInvalidTransaction) {
				t.Fatalf("\t%s\tTest 0:\tShould detect a changed amount, got %v.", failed, err)
			}
			t.Logf("\t%s\tTest 0:\tShould detect a changed amount.", success)
		}
	}
}

func TestVerifySubmission(t *testing.T) {
	t.Log("Given the need to bind a submitted transaction to its content.")
	{
		tx, err := database.NewTx("client1", "client2", decimal.NewFromInt(7), database.KindTransfer, database.StatusPending, "")
		if err != nil {
			t.Fatalf("\t%s\tShould construct the transaction: %v", failed, err)
		}

		t.Logf("\tTest 0:\tWhen the transaction is submitted as built.")
		{
			if err := tx.VerifySubmission(); err != nil {
				t.Fatalf("\t%s\tTest 0:\tShould accept it: %v", failed, err)
			}
			t.Logf("\t%s\tTest 0:\tShould accept it.", success)
		}

		t.Logf("\tTest 1:\tWhen the id is changed.")
		{
			renamed := tx
			renamed.ID += "x"

			if err := renamed.VerifySubmission(); !errors.Is(err, database.ErrInvalidTransaction) {
				t.Fatalf("\t%s\tTest 1:\tShould refuse it, got %v.", failed, err)
			}
			t.Logf("\t%s\tTest 1:\tShould refuse it.", success)
		}

		t.Logf("\tTest 2:\tWhen the id and timestamp are moved together.")
		{
			moved := tx
			moved.TimeStamp++
			moved.ID = strings.TrimSuffix(tx.ID, fmt.Sprint(tx.TimeStamp)) + fmt.Sprint(moved.TimeStamp)

			if err := moved.VerifySubmission(); !errors.Is(err, database.ErrInvalidTransaction) {
				t.Fatalf("\t%s\tTest 2:\tShould refuse the stale hash, got %v.", failed, err)
			}
			t.Logf("\t%s\tTest 2:\tShould refuse the stale hash.", success)
		}

		t.Logf("\tTest 3:\tWhen a pending transaction is resubmitted as approved.")
		{
			flipped := tx
			flipped.Status = database.StatusApproved

			if err := flipped.VerifyHash(); err != nil {
				t.Fatalf("\t%s\tTest 3:\tShould still verify as a stored record: %v", failed, err)
			}
			if err := flipped.VerifySubmission(); !errors.Is(err, database.ErrInvalidTransaction) {
				t.Fatalf("\t%s\tTest 3:\tShould refuse the submission, got %v.", failed, err)
			}
			t.Logf("\t%s\tTest 3:\tShould refuse the submission.", success)
		}
	}
}

func TestSignVerify(t *testing.T) {
	t.Log("Given the need to sign transactions with the sender's key.")
	{
		pk, err := crypto.GenerateKey()
		if err != nil {
			t.Fatalf("\t%s\tShould be able to generate a key: %v", failed, err)
		}
		from := database.AccountID(signature.Address(pk.PublicKey))

		t.Logf("\tTest 0:\tWhen signing with the sender's key.")
		{
			tx, err := database.NewTx(from, "client1", decimal.NewFromInt(3), database.KindTransfer, database.StatusPending, "")
			if err != nil {
				t.Fatalf("\t%s\tTest 0:\tShould construct the transaction: %v", failed, err)
			}

			if err := tx.Verify(); !errors.Is(err, database.ErrMissingSignature) {
				t.Fatalf("\t%s\tTest 0:\tShould report a missing signature, got %v.", failed, err)
			}
			t.Logf("\t%s\tTest 0:\tShould report a missing signature.", success)

			if err := tx.Sign(pk); err != nil {
				t.Fatalf("\t%s\tTest 0:\tShould sign the transaction: %v", failed, err)
			}
			if err := tx.Verify(); err != nil {
				t.Fatalf("\t%s\tTest 0:\tShould verify the signature: %v", failed, err)
			}
			t.Logf("\t%s\tTest 0:\tShould verify the signature.", success)
		}

		t.Logf("\tTest 1:\tWhen signing with someone else's key.")
		{
			tx, err := database.NewTx("client1", "client2", decimal.NewFromInt(3), database.KindTransfer, database.StatusPending, "")
			if err != nil {
				t.Fatalf("\t%s\tTest 1:\tShould construct the transaction: %v", failed, err)
			}

			if err := tx.Sign(pk); !errors.Is(err, database.ErrInvalidKey) {
				t.Fatalf("\t%s\tTest 1:\tShould refuse the key, got %v.", failed, err)
			}
			t.Logf("\t%s\tTest 1:\tShould refuse the key.", success)

			tx.Signature = "0x00"
			if err := tx.Verify(); !errors.Is(err, database.ErrInvalidSignature) {
				t.Fatalf("\t%s\tTest 1:\tShould refuse a forged signature, got %v.", failed, err)
			}
			t.Logf("\t%s\tTest 1:\tShould refuse a forged signature.", success)
		}
	}
}

func TestNewRequest(t *testing.T) {
	t.Log("Given the need to construct approval requests.")
	{
		t.Logf("\tTest 0:\tWhen asking the treasury to mint.")
		{
			req, err := database.NewMintRequest("client1", decimal.NewFromInt(50), "salary")
			if err != nil {
				t.Fatalf("\t%s\tTest 0:\tShould construct the request: %v", failed, err)
			}
			if !strings.HasPrefix(req.ID, "REQ_client1_") || req.Kind != database.KindMint || req.Status != database.StatusPending {
				t.Fatalf("\t%s\tTest 0:\tShould be a pending mint request, got %+v.", failed, req)
			}
			t.Logf("\t%s\tTest 0:\tShould be a pending mint request.", success)
		}

		t.Logf("\tTest 1:\tWhen asking to transfer.")
		{
			req, err := database.NewTransferRequest("client1", "client2", decimal.NewFromInt(20), "")
			if err != nil {
				t.Fatalf("\t%s\tTest 1:\tShould construct the request: %v", failed, err)
			}
			if !strings.HasPrefix(req.ID, "TRANSFER_REQ_client1_client2_") || req.Kind != database.KindTransfer {
				t.Fatalf("\t%s\tTest 1:\tShould be a transfer request, got %+v.", failed, req)
			}
			t.Logf("\t%s\tTest 1:\tShould be a transfer request.", success)

			if _, err := database.NewTransferRequest("client1", "client1", decimal.NewFromInt(20), ""); !errors.Is(err, database.ErrInvalidRequest) {
				t.Fatalf("\t%s\tTest 1:\tShould refuse a transfer to self, got %v.", failed, err)
			}
			if _, err := database.NewMintRequest("client1", decimal.Zero, ""); !errors.Is(err, database.ErrInvalidRequest) {
				t.Fatalf("\t%s\tTest 1:\tShould refuse a zero amount, got %v.", failed, err)
			}
			t.Logf("\t%s\tTest 1:\tShould refuse malformed requests.", success)
		}
	}
}
