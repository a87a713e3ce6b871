// Package v1 contains the full set of handler functions and
// routes supported by the v1 web api.
package v1

import (
	"net/http"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/adamwoolhether/ledger/app/services/node/handlers/v1/private"
	"github.com/adamwoolhether/ledger/app/services/node/handlers/v1/public"
	"github.com/adamwoolhether/ledger/foundation/blockchain/state"
	"github.com/adamwoolhether/ledger/foundation/web"
)

const version = "v1"

// Config contains all mandatory systems required by handlers.
type Config struct {
	Log   *zap.SugaredLogger
	State *state.State
}

// PublicRoutes binds all version 1 public routes.
func PublicRoutes(app *web.App, cfg Config) {
	pbl := public.Handlers{
		Log:   cfg.Log,
		State: cfg.State,
		WS:    websocket.Upgrader{},
	}

	app.Handle(http.MethodGet, version, "/events", pbl.Events)
	app.Handle(http.MethodGet, version, "/genesis", pbl.Genesis)
	app.Handle(http.MethodGet, version, "/accounts/list", pbl.Accounts)
	app.Handle(http.MethodGet, version, "/accounts/:account", pbl.Balance)
	app.Handle(http.MethodPost, version, "/accounts", pbl.CreateAccount)
	app.Handle(http.MethodGet, version, "/requests/pending", pbl.PendingRequests)
	app.Handle(http.MethodPost, version, "/requests/mint", pbl.SubmitMintRequest)
	app.Handle(http.MethodPost, version, "/requests/transfer", pbl.SubmitTransferRequest)
	app.Handle(http.MethodGet, version, "/tx/list", pbl.Transactions)
	app.Handle(http.MethodGet, version, "/tx/uncommitted/list", pbl.Mempool)
	app.Handle(http.MethodPost, version, "/tx/submit", pbl.SubmitTransaction)
	app.Handle(http.MethodGet, version, "/tx/:id", pbl.QueryTransaction)
	app.Handle(http.MethodGet, version, "/blocks/latest", pbl.LatestBlock)
	app.Handle(http.MethodGet, version, "/blocks/list", pbl.BlocksByNumber)
	app.Handle(http.MethodGet, version, "/blocks/list/:from/:to", pbl.BlocksByNumber)
	app.Handle(http.MethodGet, version, "/blocks/account/:account", pbl.BlocksByAccount)
}

// PrivateRoutes binds all version 1 private routes.
func PrivateRoutes(app *web.App, cfg Config) {
	prv := private.Handlers{
		Log:   cfg.Log,
		State: cfg.State,
	}

	app.Handle(http.MethodGet, version, "/node/status", prv.Status)
	app.Handle(http.MethodPost, version, "/node/mine", prv.MineBlock)
	app.Handle(http.MethodPost, version, "/node/reset", prv.Reset)
	app.Handle(http.MethodPost, version, "/node/requests/:id/decide", prv.DecideRequest)
	app.Handle(http.MethodPost, version, "/node/tx/:id/decide", prv.DecideTransaction)
}
