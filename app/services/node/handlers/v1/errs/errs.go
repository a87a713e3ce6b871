// Package errs maps ledger errors onto trusted web errors.
package errs

import (
	"errors"
	"net/http"

	"github.com/adamwoolhether/ledger/business/web/v1/response"
	"github.com/adamwoolhether/ledger/foundation/blockchain/database"
	"github.com/adamwoolhether/ledger/foundation/blockchain/state"
)

// Set of ledger errors and the status code a client receives for them.
var statuses = []struct {
	err    error
	status int
}{
	{database.ErrInvalidTransaction, http.StatusBadRequest},
	{database.ErrInvalidRequest, http.StatusBadRequest},
	{database.ErrMissingSignature, http.StatusBadRequest},
	{database.ErrInvalidSignature, http.StatusBadRequest},
	{database.ErrInvalidKey, http.StatusBadRequest},
	{state.ErrRequestNotFound, http.StatusNotFound},
	{state.ErrTransactionNotFound, http.StatusNotFound},
	{state.ErrDuplicateRequest, http.StatusConflict},
	{state.ErrDuplicateTransaction, http.StatusConflict},
	{database.ErrInsufficientFunds, http.StatusConflict},
	{database.ErrInsufficientTreasury, http.StatusConflict},
	{state.ErrNoTransactions, http.StatusConflict},
}

// Trusted converts an expected ledger error into a request error. Any
// other error is returned as is and becomes a 500.
func Trusted(err error) error {
	for _, s := range statuses {
		if errors.Is(err, s.err) {
			return response.NewRequestError(err, s.status)
		}
	}
	return err
}

// BadRequest marks the error as the client's fault.
func BadRequest(err error) error {
	return response.NewRequestError(err, http.StatusBadRequest)
}
