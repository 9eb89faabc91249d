package controller

import (
	"context"
	"net/http"

	"github.com/canopy-network/explorerx/app/query/service"
	indexermodels "github.com/canopy-network/explorerx/pkg/db/models/indexer"
	"github.com/canopy-network/explorerx/pkg/query"
	"github.com/gorilla/mux"
)

// serveList parses the list parameters for spec and writes the page envelope.
func serveList[T any](c *Controller, w http.ResponseWriter, r *http.Request, spec *query.Spec, list func(context.Context, query.ListQuery) (query.Page[T], error)) {
	q, err := parseListQuery(r, spec)
	if err != nil {
		c.writeQueryError(w, r, err)
		return
	}
	ctx, cancel := c.requestContext(r)
	defer cancel()

	page, err := list(ctx, q)
	if err != nil {
		c.writeQueryError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, page)
}

// serveItem writes the detail envelope for get.
func serveItem[T any](c *Controller, w http.ResponseWriter, r *http.Request, get func(context.Context) (*T, error)) {
	ctx, cancel := c.requestContext(r)
	defer cancel()

	item, err := get(ctx)
	if err != nil {
		c.writeQueryError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, query.Item[T]{Item: item})
}

func (c *Controller) HandleBlocks(w http.ResponseWriter, r *http.Request) {
	serveList(c, w, r, indexermodels.BlockSpec, c.App.Service.ListBlocks)
}

// HandleBlock returns a single block by height.
func (c *Controller) HandleBlock(w http.ResponseWriter, r *http.Request) {
	height, err := int64Var(mux.Vars(r)["height"], "height")
	if err != nil {
		c.writeQueryError(w, r, err)
		return
	}
	serveItem(c, w, r, func(ctx context.Context) (*service.Block, error) {
		return c.App.Service.GetBlock(ctx, height)
	})
}

func (c *Controller) HandleTransactions(w http.ResponseWriter, r *http.Request) {
	serveList(c, w, r, indexermodels.TransactionSpec, c.App.Service.ListTransactions)
}

func (c *Controller) HandleTransaction(w http.ResponseWriter, r *http.Request) {
	hash := mux.Vars(r)["hash"]
	serveItem(c, w, r, func(ctx context.Context) (*indexermodels.Transaction, error) {
		return c.App.Service.GetTransaction(ctx, hash)
	})
}

func (c *Controller) HandleValidators(w http.ResponseWriter, r *http.Request) {
	serveList(c, w, r, indexermodels.ValidatorSpec, c.App.Service.ListValidators)
}

func (c *Controller) HandleValidator(w http.ResponseWriter, r *http.Request) {
	address := mux.Vars(r)["address"]
	serveItem(c, w, r, func(ctx context.Context) (*service.Validator, error) {
		return c.App.Service.GetValidator(ctx, address)
	})
}

// HandleFinalityProviders accepts growthDays to size the stake inflow comparison.
func (c *Controller) HandleFinalityProviders(w http.ResponseWriter, r *http.Request) {
	growthDays, err := intParam(r, "growthDays")
	if err != nil {
		c.writeQueryError(w, r, err)
		return
	}
	serveList(c, w, r, indexermodels.FinalityProviderSpec, func(ctx context.Context, q query.ListQuery) (query.Page[service.FinalityProvider], error) {
		return c.App.Service.ListFinalityProviders(ctx, q, growthDays)
	})
}

func (c *Controller) HandleFinalityProvider(w http.ResponseWriter, r *http.Request) {
	growthDays, err := intParam(r, "growthDays")
	if err != nil {
		c.writeQueryError(w, r, err)
		return
	}
	btcPk := mux.Vars(r)["btcPk"]
	serveItem(c, w, r, func(ctx context.Context) (*service.FinalityProvider, error) {
		return c.App.Service.GetFinalityProvider(ctx, btcPk, growthDays)
	})
}

func (c *Controller) HandleDelegations(w http.ResponseWriter, r *http.Request) {
	serveList(c, w, r, indexermodels.DelegationSpec, c.App.Service.ListDelegations)
}

func (c *Controller) HandleDelegation(w http.ResponseWriter, r *http.Request) {
	hash := mux.Vars(r)["stakingTxHash"]
	serveItem(c, w, r, func(ctx context.Context) (*service.Delegation, error) {
		return c.App.Service.GetDelegation(ctx, hash)
	})
}

func (c *Controller) HandleProposals(w http.ResponseWriter, r *http.Request) {
	serveList(c, w, r, indexermodels.ProposalSpec, c.App.Service.ListProposals)
}

func (c *Controller) HandleProposal(w http.ResponseWriter, r *http.Request) {
	id, err := int64Var(mux.Vars(r)["id"], "proposal id")
	if err != nil {
		c.writeQueryError(w, r, err)
		return
	}
	serveItem(c, w, r, func(ctx context.Context) (*service.Proposal, error) {
		return c.App.Service.GetProposal(ctx, id)
	})
}

func (c *Controller) HandleTokens(w http.ResponseWriter, r *http.Request) {
	serveList(c, w, r, indexermodels.TokenSpec, c.App.Service.ListTokens)
}

func (c *Controller) HandleToken(w http.ResponseWriter, r *http.Request) {
	denom := mux.Vars(r)["denom"]
	serveItem(c, w, r, func(ctx context.Context) (*service.Token, error) {
		return c.App.Service.GetToken(ctx, denom)
	})
}
