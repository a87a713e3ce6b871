package database

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Request is an ask for value that waits on a single approval decision.
// A MINT request has no destination: the treasury pays the requester.
type Request struct {
	ID        string          `json:"id"`
	Kind      Kind            `json:"type"`
	FromID    AccountID       `json:"from"`
	ToID      AccountID       `json:"to,omitempty"`
	Amount    decimal.Decimal `json:"amount"`
	Reason    string          `json:"reason"`
	TimeStamp int64           `json:"timestamp"` // Unix milliseconds.
	Status    Status          `json:"status"`
}

// NewMintRequest constructs a request for the treasury to issue coins
// to the requesting account.
func NewMintRequest(fromID AccountID, amount decimal.Decimal, reason string) (Request, error) {
	req := Request{
		ID:        fmt.Sprintf("REQ_%s_%s", fromID, uuid.NewString()),
		Kind:      KindMint,
		FromID:    fromID,
		Amount:    amount,
		Reason:    reason,
		TimeStamp: time.Now().UTC().UnixMilli(),
		Status:    StatusPending,
	}

	if err := req.Validate(); err != nil {
		return Request{}, err
	}

	return req, nil
}

// NewTransferRequest constructs a request to move coins between two
// client accounts once approved.
func NewTransferRequest(fromID, toID AccountID, amount decimal.Decimal, reason string) (Request, error) {
	req := Request{
		ID:        fmt.Sprintf("TRANSFER_REQ_%s_%s_%s", fromID, toID, uuid.NewString()),
		Kind:      KindTransfer,
		FromID:    fromID,
		ToID:      toID,
		Amount:    amount,
		Reason:    reason,
		TimeStamp: time.Now().UTC().UnixMilli(),
		Status:    StatusPending,
	}

	if err := req.Validate(); err != nil {
		return Request{}, err
	}

	return req, nil
}

// Validate checks the request is well formed for its kind.
func (r Request) Validate() error {
	if r.ID == "" {
		return fmt.Errorf("%w: missing id", ErrInvalidRequest)
	}

	if r.FromID == "" {
		return fmt.Errorf("%w: missing from account", ErrInvalidRequest)
	}

	if !r.Amount.IsPositive() {
		return fmt.Errorf("%w: amount %s must be greater than zero", ErrInvalidRequest, r.Amount)
	}

	if r.Status != StatusPending {
		return fmt.Errorf("%w: new requests must be PENDING, got %s", ErrInvalidRequest, r.Status)
	}

	switch r.Kind {
	case KindMint:
		if r.ToID != "" {
			return fmt.Errorf("%w: mint requests are paid to the requester, got to %s", ErrInvalidRequest, r.ToID)
		}

	case KindTransfer:
		if r.ToID == "" {
			return fmt.Errorf("%w: transfer requests need a to account", ErrInvalidRequest)
		}
		if r.ToID == r.FromID {
			return fmt.Errorf("%w: sending money to yourself, %s", ErrInvalidRequest, r.FromID)
		}

	default:
		return fmt.Errorf("%w: unknown kind %s", ErrInvalidRequest, r.Kind)
	}

	return nil
}
