package controller

import (
	"net/http"

	"github.com/canopy-network/explorerx/app/query/types"
	"github.com/gorilla/mux"
)

type Controller struct {
	App *types.App
}

// NewController returns a new controller.
func NewController(app *types.App) *Controller {
	return &Controller{
		App: app,
	}
}

// WithCORS is a middleware that adds CORS headers to the response.
// The explorer API is public and read-only, so any origin may call it.
func WithCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		w.Header().Set("Access-Control-Allow-Methods", http.MethodGet+", "+http.MethodOptions)

		// Fast-path the preflight
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// NewRouter returns a new router with all the routes defined in this file.
func (c *Controller) NewRouter() (*mux.Router, error) {
	r := mux.NewRouter()
	r.Use(c.withRequestLog)

	r.Handle("/health", http.HandlerFunc(c.HandleHealth)).Methods(http.MethodGet)

	r.HandleFunc("/blocks", c.HandleBlocks).Methods(http.MethodGet)
	r.HandleFunc("/blocks/{height}", c.HandleBlock).Methods(http.MethodGet)
	r.HandleFunc("/transactions", c.HandleTransactions).Methods(http.MethodGet)
	r.HandleFunc("/transactions/{hash}", c.HandleTransaction).Methods(http.MethodGet)

	r.HandleFunc("/validators", c.HandleValidators).Methods(http.MethodGet)
	r.HandleFunc("/validators/{address}", c.HandleValidator).Methods(http.MethodGet)
	r.HandleFunc("/finality-providers", c.HandleFinalityProviders).Methods(http.MethodGet)
	r.HandleFunc("/finality-providers/{btcPk}", c.HandleFinalityProvider).Methods(http.MethodGet)
	r.HandleFunc("/delegations", c.HandleDelegations).Methods(http.MethodGet)
	r.HandleFunc("/delegations/{stakingTxHash}", c.HandleDelegation).Methods(http.MethodGet)

	r.HandleFunc("/proposals", c.HandleProposals).Methods(http.MethodGet)
	r.HandleFunc("/proposals/{id}", c.HandleProposal).Methods(http.MethodGet)
	r.HandleFunc("/tokens", c.HandleTokens).Methods(http.MethodGet)
	// IBC denoms contain slashes: ibc/27394FB0...
	r.HandleFunc("/tokens/{denom:.+}", c.HandleToken).Methods(http.MethodGet)

	r.HandleFunc("/accounts/{address}", c.HandleAccount).Methods(http.MethodGet)

	r.HandleFunc("/stats/overview", c.HandleStatsOverview).Methods(http.MethodGet)
	r.HandleFunc("/stats/daily/{metric}", c.HandleStatsDaily).Methods(http.MethodGet)

	r.HandleFunc("/ws", c.HandleWebSocket).Methods(http.MethodGet)

	r.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusNotFound, "not_found", "route not found")
	})

	return r, nil
}
