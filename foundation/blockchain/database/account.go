package database

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// AccountID represents an opaque account address on the ledger.
type AccountID string

// ToAccountID validates the string is usable as an account address.
func ToAccountID(s string) (AccountID, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return "", fmt.Errorf("%w: empty account", ErrInvalidTransaction)
	}

	if strings.ContainsAny(s, " \t\r\n") {
		return "", fmt.Errorf("%w: account %q contains whitespace", ErrInvalidTransaction, s)
	}

	return AccountID(s), nil
}

// Account represents information stored in the database for an individual account.
type Account struct {
	AccountID AccountID       `json:"account"`
	Balance   decimal.Decimal `json:"balance"`
}
