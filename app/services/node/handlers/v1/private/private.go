// Package private maintains the group of handlers for operator access.
package private

import (
	"context"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/adamwoolhether/ledger/app/services/node/handlers/v1/errs"
	"github.com/adamwoolhether/ledger/business/sys/validate"
	"github.com/adamwoolhether/ledger/foundation/blockchain/database"
	"github.com/adamwoolhether/ledger/foundation/blockchain/state"
	"github.com/adamwoolhether/ledger/foundation/web"
)

// Handlers manages the set of operator ledger endpoints.
type Handlers struct {
	Log   *zap.SugaredLogger
	State *state.State
}

type decision struct {
	Approve *bool `json:"approve" validate:"required"`
}

type status struct {
	LatestBlockHash   string `json:"latest_block_hash"`
	LatestBlockNumber uint64 `json:"latest_block_number"`
	Difficulty        int    `json:"difficulty"`
	PendingRequests   int    `json:"pending_requests"`
	PendingTxs        int    `json:"pending_transactions"`
	ApprovedTxs       int    `json:"approved_transactions"`
}

// Status returns the current status of the node.
func (h Handlers) Status(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	latest := h.State.LatestBlock()

	st := status{
		LatestBlockHash:   latest.Hash,
		LatestBlockNumber: latest.Number,
		Difficulty:        h.State.Difficulty(),
		PendingRequests:   len(h.State.PendingRequests()),
		PendingTxs:        len(h.State.PendingTransactions()),
		ApprovedTxs:       h.State.QueryMempoolLength(),
	}

	return web.Respond(ctx, w, st, http.StatusOK)
}

// DecideRequest approves or rejects a pending request.
func (h Handlers) DecideRequest(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	v, err := web.GetValues(ctx)
	if err != nil {
		return web.NewShutdownError("web value missing from context")
	}

	var d decision
	if err := web.Decode(r, &d); err != nil {
		return errs.BadRequest(err)
	}

	if err := validate.Check(d); err != nil {
		return err
	}

	id := web.Param(r, "id")
	h.Log.Infow("decide request", "traceid", v.TraceID, "id", id, "approve", *d.Approve)

	tx, err := h.State.ValidateRequest(ctx, id, *d.Approve)
	return h.respondDecision(ctx, w, tx, err)
}

// DecideTransaction approves or rejects a pending transaction.
func (h Handlers) DecideTransaction(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	v, err := web.GetValues(ctx)
	if err != nil {
		return web.NewShutdownError("web value missing from context")
	}

	var d decision
	if err := web.Decode(r, &d); err != nil {
		return errs.BadRequest(err)
	}

	if err := validate.Check(d); err != nil {
		return err
	}

	id := web.Param(r, "id")
	h.Log.Infow("decide tran", "traceid", v.TraceID, "id", id, "approve", *d.Approve)

	tx, err := h.State.ValidateTransaction(ctx, id, *d.Approve)
	return h.respondDecision(ctx, w, tx, err)
}

// MineBlock mines the approved transactions waiting in the mempool.
func (h Handlers) MineBlock(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	block, err := h.State.MineNewBlock(ctx)
	if err != nil {
		return errs.Trusted(err)
	}

	return web.Respond(ctx, w, block, http.StatusCreated)
}

// Reset wipes the ledger back to its genesis state.
func (h Handlers) Reset(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	v, err := web.GetValues(ctx)
	if err != nil {
		return web.NewShutdownError("web value missing from context")
	}

	h.Log.Infow("reset ledger", "traceid", v.TraceID)

	if err := h.State.Reset(); err != nil {
		return err
	}

	return web.Respond(ctx, w, nil, http.StatusNoContent)
}

// respondDecision reports the settled transaction. A rejected request has
// no transaction. A transaction that was settled but not mined stays
// approved in the mempool for the worker to retry, so the client gets 202
// instead of an error.
func (h Handlers) respondDecision(ctx context.Context, w http.ResponseWriter, tx database.Tx, err error) error {
	switch {
	case err == nil && tx.ID == "":
		return web.Respond(ctx, w, nil, http.StatusNoContent)

	case err == nil:
		return web.Respond(ctx, w, tx, http.StatusOK)

	case errors.Is(err, state.ErrMining):
		h.Log.Infow("decide", "traceid", web.GetTraceID(ctx), "id", tx.ID, "ERROR", err)
		return web.Respond(ctx, w, tx, http.StatusAccepted)
	}

	return errs.Trusted(err)
}
