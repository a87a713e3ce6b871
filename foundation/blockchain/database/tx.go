package database

import (
	"crypto/ecdsa"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/adamwoolhether/ledger/foundation/blockchain/signature"
)

// Tx is the record of a value movement between two accounts. The identity
// and content hash are fixed at construction, only the status changes.
type Tx struct {
	ID                string          `json:"id"`
	FromID            AccountID       `json:"from"`
	ToID              AccountID       `json:"to"`
	Amount            decimal.Decimal `json:"amount"`
	Kind              Kind            `json:"type"`
	Status            Status          `json:"status"`
	Reason            string          `json:"reason"`
	TimeStamp         int64           `json:"timestamp"` // Unix nanoseconds.
	ContentHash       string          `json:"hash"`
	Signature         string          `json:"signature,omitempty"`
	OriginalRequestID string          `json:"original_request_id,omitempty"`
}

// NewTx constructs a new transaction and stamps it with an id and hash.
func NewTx(fromID, toID AccountID, amount decimal.Decimal, kind Kind, status Status, reason string) (Tx, error) {
	if fromID == "" || toID == "" {
		return Tx{}, fmt.Errorf("%w: transaction must include from and to account", ErrInvalidTransaction)
	}

	if fromID == toID {
		return Tx{}, fmt.Errorf("%w: sending money to yourself, from %s, to %s", ErrInvalidTransaction, fromID, toID)
	}

	if !amount.IsPositive() {
		return Tx{}, fmt.Errorf("%w: amount %s must be greater than zero", ErrInvalidTransaction, amount)
	}

	if _, err := kind.MarshalText(); err != nil {
		return Tx{}, fmt.Errorf("%w: %s", ErrInvalidTransaction, err)
	}

	if status != StatusPending && status != StatusApproved {
		return Tx{}, fmt.Errorf("%w: new transactions start PENDING or APPROVED, got %s", ErrInvalidTransaction, status)
	}

	now := time.Now().UTC().UnixNano()

	tx := Tx{
		ID:        txID(fromID, toID, now),
		FromID:    fromID,
		ToID:      toID,
		Amount:    amount,
		Kind:      kind,
		Status:    status,
		Reason:    reason,
		TimeStamp: now,
	}
	tx.ContentHash = tx.calculateHash()

	return tx, nil
}

// Decide moves a pending transaction to its terminal status.
func (tx *Tx) Decide(approve bool) error {
	if tx.Status != StatusPending {
		return fmt.Errorf("%w: transaction %s already %s", ErrInvalidTransaction, tx.ID, tx.Status)
	}

	tx.Status = StatusRejected
	if approve {
		tx.Status = StatusApproved
	}

	return nil
}

// Sign signs the content hash with the private key. The key must belong
// to the sending account.
func (tx *Tx) Sign(privateKey *ecdsa.PrivateKey) error {
	if AccountID(signature.Address(privateKey.PublicKey)) != tx.FromID {
		return ErrInvalidKey
	}

	sig, err := signature.Sign(tx.ContentHash, privateKey)
	if err != nil {
		return err
	}
	tx.Signature = sig

	return nil
}

// Verify checks the content hash and signature of the transaction.
// Transactions without a sender are system records and always valid.
func (tx Tx) Verify() error {
	if tx.FromID == "" {
		return nil
	}

	if err := tx.VerifyHash(); err != nil {
		return err
	}

	if tx.Signature == "" {
		return ErrMissingSignature
	}

	if err := signature.Verify(tx.ContentHash, tx.Signature, string(tx.FromID)); err != nil {
		return fmt.Errorf("%w: %s", ErrInvalidSignature, err)
	}

	return nil
}

// VerifyHash checks the stored content hash matches the fields of the
// transaction as they were at construction. A decided transaction keeps
// the hash it was built with, so the PENDING form is accepted for stored
// records. Transactions arriving from outside use VerifySubmission.
func (tx Tx) VerifyHash() error {
	if tx.ContentHash != tx.calculateHash() && tx.ContentHash != tx.calculateHashWith(StatusPending) {
		return fmt.Errorf("%w: content hash mismatch for %s", ErrInvalidTransaction, tx.ID)
	}
	return nil
}

// VerifySubmission checks a transaction arriving from outside the ledger.
// The id must follow from the accounts and timestamp, and the content hash
// must match the status as submitted.
func (tx Tx) VerifySubmission() error {
	if id := txID(tx.FromID, tx.ToID, tx.TimeStamp); tx.ID != id {
		return fmt.Errorf("%w: id %s doesn't match its content, want %s", ErrInvalidTransaction, tx.ID, id)
	}

	if tx.ContentHash != tx.calculateHash() {
		return fmt.Errorf("%w: content hash mismatch for %s as %s", ErrInvalidTransaction, tx.ID, tx.Status)
	}

	return nil
}

// Hash implements the merkle Hashable interface.
func (tx Tx) Hash() ([]byte, error) {
	return hex.DecodeString(tx.ContentHash)
}

// Equals implements the merkle Hashable interface.
func (tx Tx) Equals(other Tx) bool {
	return tx.ID == other.ID && tx.ContentHash == other.ContentHash
}

// String implements the fmt.Stringer interface for logging.
func (tx Tx) String() string {
	return fmt.Sprintf("%s:%s:%s->%s:%s", tx.ID, tx.Kind, tx.FromID, tx.ToID, tx.Amount)
}

// =============================================================================

func txID(fromID, toID AccountID, timeStamp int64) string {
	return fmt.Sprintf("TX_%s_%s_%d", fromID, toID, timeStamp)
}

func (tx Tx) calculateHash() string {
	return tx.calculateHashWith(tx.Status)
}

func (tx Tx) calculateHashWith(status Status) string {
	data := fmt.Sprintf("%s|%s|%s|%s|%s|%d|%s", tx.FromID, tx.ToID, tx.Amount.String(), tx.Kind, status, tx.TimeStamp, tx.Reason)
	return signature.HashString(data)
}
