package public

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/adamwoolhether/ledger/foundation/blockchain/database"
)

type mintRequest struct {
	From   string `json:"from" validate:"required"`
	Amount string `json:"amount" validate:"required"`
	Reason string `json:"reason"`
}

type transferRequest struct {
	From   string `json:"from" validate:"required"`
	To     string `json:"to" validate:"required,nefield=From"`
	Amount string `json:"amount" validate:"required"`
	Reason string `json:"reason"`
}

type newAccount struct {
	Account string `json:"account" validate:"required"`
	Balance string `json:"balance"`
}

type balance struct {
	Account database.AccountID `json:"account"`
	Balance decimal.Decimal    `json:"balance"`
}

type txInfo struct {
	Block uint64      `json:"block"`
	Tx    database.Tx `json:"tx"`
}

type acctInfo struct {
	LatestBlock string             `json:"latest_block"`
	Uncommitted int                `json:"uncommitted"`
	Accounts    []database.Account `json:"accounts"`
}

// toAmount parses a positive amount. An empty string is zero when
// allowZero is set.
func toAmount(s string, allowZero bool) (decimal.Decimal, error) {
	if s == "" && allowZero {
		return decimal.Zero, nil
	}

	amount, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Decimal{}, fmt.Errorf("amount %q is not a number", s)
	}

	switch {
	case amount.IsNegative():
		return decimal.Decimal{}, fmt.Errorf("amount %s can't be negative", amount)
	case amount.IsZero() && !allowZero:
		return decimal.Decimal{}, fmt.Errorf("amount must be greater than zero")
	}

	return amount, nil
}
