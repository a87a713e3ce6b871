package database

import "errors"

// Set of errors the ledger can return. Callers test for them with errors.Is.
var (
	ErrInsufficientFunds    = errors.New("insufficient funds")
	ErrInsufficientTreasury = errors.New("insufficient treasury")
	ErrInvalidTransaction   = errors.New("invalid transaction")
	ErrInvalidRequest       = errors.New("invalid request")
	ErrInvalidKey           = errors.New("private key does not match the sender account")
	ErrMissingSignature     = errors.New("no signature in transaction")
	ErrInvalidSignature     = errors.New("invalid signature")
	ErrInvalidBlock         = errors.New("invalid block")
	ErrNoSnapshot           = errors.New("no snapshot")
)
