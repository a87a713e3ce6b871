// Package public maintains the group of handlers for public access.
package public

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/adamwoolhether/ledger/app/services/node/handlers/v1/errs"
	"github.com/adamwoolhether/ledger/business/sys/validate"
	"github.com/adamwoolhether/ledger/foundation/blockchain/database"
	"github.com/adamwoolhether/ledger/foundation/blockchain/state"
	"github.com/adamwoolhether/ledger/foundation/web"
)

// pingInterval is how often an idle event stream is pinged.
const pingInterval = 30 * time.Second

// Handlers manages the set of ledger endpoints.
type Handlers struct {
	Log   *zap.SugaredLogger
	State *state.State
	WS    websocket.Upgrader
}

// Genesis returns the genesis settings.
func (h Handlers) Genesis(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	return web.Respond(ctx, w, h.State.Genesis(), http.StatusOK)
}

// Accounts returns the current balances for all accounts.
func (h Handlers) Accounts(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	info := acctInfo{
		LatestBlock: h.State.LatestBlock().Hash,
		Uncommitted: h.State.QueryMempoolLength(),
		Accounts:    h.State.Accounts(),
	}

	return web.Respond(ctx, w, info, http.StatusOK)
}

// Balance returns the balance of a single account. Unknown accounts hold zero.
func (h Handlers) Balance(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	accountID, err := database.ToAccountID(web.Param(r, "account"))
	if err != nil {
		return errs.BadRequest(err)
	}

	resp := balance{
		Account: accountID,
		Balance: h.State.Balance(accountID),
	}

	return web.Respond(ctx, w, resp, http.StatusOK)
}

// CreateAccount registers an account with an optional starting balance.
func (h Handlers) CreateAccount(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	var na newAccount
	if err := web.Decode(r, &na); err != nil {
		return errs.BadRequest(err)
	}

	if err := validate.Check(na); err != nil {
		return err
	}

	accountID, err := database.ToAccountID(na.Account)
	if err != nil {
		return errs.BadRequest(err)
	}

	amount, err := toAmount(na.Balance, true)
	if err != nil {
		return errs.BadRequest(err)
	}

	created, err := h.State.CreateAccount(accountID, amount)
	if err != nil {
		return errs.Trusted(err)
	}

	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}

	resp := balance{
		Account: accountID,
		Balance: h.State.Balance(accountID),
	}

	return web.Respond(ctx, w, resp, status)
}

// =============================================================================

// PendingRequests returns the requests waiting on a decision.
func (h Handlers) PendingRequests(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	return web.Respond(ctx, w, h.State.PendingRequests(), http.StatusOK)
}

// SubmitMintRequest asks the treasury to issue coins to an account.
func (h Handlers) SubmitMintRequest(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	v, err := web.GetValues(ctx)
	if err != nil {
		return web.NewShutdownError("web value missing from context")
	}

	var mr mintRequest
	if err := web.Decode(r, &mr); err != nil {
		return errs.BadRequest(err)
	}

	if err := validate.Check(mr); err != nil {
		return err
	}

	from, err := database.ToAccountID(mr.From)
	if err != nil {
		return errs.BadRequest(err)
	}

	amount, err := toAmount(mr.Amount, false)
	if err != nil {
		return errs.BadRequest(err)
	}

	req, err := h.State.AddMintRequest(from, amount, mr.Reason)
	if err != nil {
		return errs.Trusted(err)
	}

	h.Log.Infow("add mint request", "traceid", v.TraceID, "id", req.ID, "from", req.FromID, "amount", req.Amount)

	return web.Respond(ctx, w, req, http.StatusCreated)
}

// SubmitTransferRequest asks for coins to move between two accounts.
func (h Handlers) SubmitTransferRequest(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	v, err := web.GetValues(ctx)
	if err != nil {
		return web.NewShutdownError("web value missing from context")
	}

	var tr transferRequest
	if err := web.Decode(r, &tr); err != nil {
		return errs.BadRequest(err)
	}

	if err := validate.Check(tr); err != nil {
		return err
	}

	from, err := database.ToAccountID(tr.From)
	if err != nil {
		return errs.BadRequest(err)
	}

	to, err := database.ToAccountID(tr.To)
	if err != nil {
		return errs.BadRequest(err)
	}

	amount, err := toAmount(tr.Amount, false)
	if err != nil {
		return errs.BadRequest(err)
	}

	req, err := h.State.AddTransferRequest(from, to, amount, tr.Reason)
	if err != nil {
		return errs.Trusted(err)
	}

	h.Log.Infow("add transfer request", "traceid", v.TraceID, "id", req.ID, "from", req.FromID, "to", req.ToID, "amount", req.Amount)

	return web.Respond(ctx, w, req, http.StatusCreated)
}

// =============================================================================

// SubmitTransaction adds a direct transaction to the mempool.
func (h Handlers) SubmitTransaction(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	v, err := web.GetValues(ctx)
	if err != nil {
		return web.NewShutdownError("web value missing from context")
	}

	var tx database.Tx
	if err := web.Decode(r, &tx); err != nil {
		return errs.BadRequest(err)
	}

	h.Log.Infow("add tran", "traceid", v.TraceID, "id", tx.ID, "from", tx.FromID, "to", tx.ToID, "amount", tx.Amount, "status", tx.Status)

	if err := h.State.AddTransaction(tx); err != nil {
		return errs.Trusted(err)
	}

	resp := struct {
		Status string `json:"status"`
	}{
		Status: "transaction added to mempool",
	}

	return web.Respond(ctx, w, resp, http.StatusOK)
}

// Transactions returns every mined transaction plus the approved ones
// waiting to be mined.
func (h Handlers) Transactions(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	return web.Respond(ctx, w, h.State.AllTransactions(), http.StatusOK)
}

// Mempool returns the set of uncommitted transactions.
func (h Handlers) Mempool(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	return web.Respond(ctx, w, h.State.PendingTransactions(), http.StatusOK)
}

// QueryTransaction returns a transaction and the block it was mined into.
func (h Handlers) QueryTransaction(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	tx, number, err := h.State.QueryTransaction(web.Param(r, "id"))
	if err != nil {
		return errs.Trusted(err)
	}

	return web.Respond(ctx, w, txInfo{Block: number, Tx: tx}, http.StatusOK)
}

// =============================================================================

// BlocksByNumber returns the blocks in the inclusive from/to range. Without
// a range the whole chain is returned.
func (h Handlers) BlocksByNumber(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	fromStr := web.Param(r, "from")
	toStr := web.Param(r, "to")

	if fromStr == "" && toStr == "" {
		return web.Respond(ctx, w, h.State.Blocks(), http.StatusOK)
	}

	from, err := strconv.ParseUint(fromStr, 10, 64)
	if err != nil {
		return errs.BadRequest(fmt.Errorf("invalid from block %q", fromStr))
	}

	to := h.State.LatestBlock().Number
	if toStr != "latest" {
		if to, err = strconv.ParseUint(toStr, 10, 64); err != nil {
			return errs.BadRequest(fmt.Errorf("invalid to block %q", toStr))
		}
	}

	if from > to {
		return errs.BadRequest(errors.New("from greater than to"))
	}

	return web.Respond(ctx, w, h.State.QueryBlocksByNumber(from, to), http.StatusOK)
}

// BlocksByAccount returns the blocks holding transactions for an account.
func (h Handlers) BlocksByAccount(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	accountID, err := database.ToAccountID(web.Param(r, "account"))
	if err != nil {
		return errs.BadRequest(err)
	}

	return web.Respond(ctx, w, h.State.QueryBlocksByAccount(accountID), http.StatusOK)
}

// LatestBlock returns the last block in the chain.
func (h Handlers) LatestBlock(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	return web.Respond(ctx, w, h.State.LatestBlock(), http.StatusOK)
}

// =============================================================================

// Events streams ledger events over a websocket until the client leaves.
func (h Handlers) Events(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	v, err := web.GetValues(ctx)
	if err != nil {
		return web.NewShutdownError("web value missing from context")
	}

	// Need this to handle CORS on the websocket.
	h.WS.CheckOrigin = func(r *http.Request) bool { return true }

	// This upgrades the HTTP connection to a websocket connection.
	c, err := h.WS.Upgrade(w, r, nil)
	if err != nil {
		return err
	}
	defer c.Close()

	id, ch := h.State.Subscribe()
	defer h.State.Unsubscribe(id)

	h.Log.Infow("websocket open", "traceid", v.TraceID, "subscriber", id)
	defer h.Log.Infow("websocket closed", "traceid", v.TraceID, "subscriber", id)

	// The client never sends anything, so a failed read means it left.
	gone := make(chan struct{})
	go func() {
		defer close(gone)
		for {
			if _, _, err := c.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()

	for {
		select {
		case ev, ok := <-ch:
			if !ok {
				return nil
			}
			if err := c.WriteJSON(ev); err != nil {
				h.Log.Infow("websocket write", "traceid", v.TraceID, "ERROR", err)
				return nil
			}

		case <-ticker.C:
			if err := c.WriteMessage(websocket.PingMessage, []byte("ping")); err != nil {
				return nil
			}

		case <-gone:
			return nil

		case <-ctx.Done():
			return nil
		}
	}
}
