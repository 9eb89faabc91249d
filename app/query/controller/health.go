package controller

import (
	"net/http"
)

type healthResponse struct {
	Status   string `json:"status"`
	Database string `json:"database"`
	Redis    string `json:"redis"`
	ChainRPC string `json:"chainRpc"`
}

// HandleHealth reports 500 only when the database is unreachable. Redis and
// the chain RPC are optional and only reported.
func (c *Controller) HandleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := c.requestContext(r)
	defer cancel()

	resp := healthResponse{Status: "ok", Database: "ok", Redis: "disabled", ChainRPC: "disabled"}
	status := http.StatusOK

	if err := c.App.Store.Ping(ctx); err != nil {
		resp.Status, resp.Database = "errored", "database connection error"
		status = http.StatusInternalServerError
	}

	if c.App.RedisClient != nil {
		resp.Redis = "ok"
		if err := c.App.RedisClient.Health(ctx); err != nil {
			resp.Redis = "unreachable"
		}
	}

	if c.App.Chain != nil {
		resp.ChainRPC = "connecting"
		if c.App.Chain.Ready() {
			resp.ChainRPC = "ok"
		}
	}

	writeJSON(w, status, resp)
}
