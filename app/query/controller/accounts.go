package controller

import (
	"context"
	"net/http"

	"github.com/canopy-network/explorerx/pkg/rpc"
	"github.com/gorilla/mux"
)

// HandleAccount returns live balances, delegations and rewards from the chain node.
// It answers 503 until the RPC client has connected.
func (c *Controller) HandleAccount(w http.ResponseWriter, r *http.Request) {
	address := mux.Vars(r)["address"]
	serveItem(c, w, r, func(ctx context.Context) (*rpc.Account, error) {
		return c.App.Service.Account(ctx, address)
	})
}
