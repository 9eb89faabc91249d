package rpc

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"time"

	"golang.org/x/sync/errgroup"
)

// Client captures the node queries the explorer serves live instead of from the index.
type Client interface {
	ChainHead(ctx context.Context) (Head, error)
	Balances(ctx context.Context, address string) ([]Coin, error)
	Delegations(ctx context.Context, address string) ([]Delegation, error)
	Rewards(ctx context.Context, address string) ([]Coin, error)
}

// Coin is an amount in the smallest unit of denom. Amounts stay strings; they exceed int64.
type Coin struct {
	Denom  string `json:"denom"`
	Amount string `json:"amount"`
}

// Delegation is one validator delegation of an account.
type Delegation struct {
	ValidatorAddress string `json:"validatorAddress"`
	Shares           string `json:"shares"`
	Balance          Coin   `json:"balance"`
}

// Head is the latest block known to the node.
type Head struct {
	Height int64     `json:"height"`
	Time   time.Time `json:"time"`
}

// Account is the live account view assembled from several node queries.
type Account struct {
	Address     string       `json:"address"`
	Height      int64        `json:"height"`
	Balances    []Coin       `json:"balances"`
	Delegations []Delegation `json:"delegations"`
	Rewards     []Coin       `json:"rewards"`
}

type latestBlockResponse struct {
	Block struct {
		Header struct {
			Height string    `json:"height"`
			Time   time.Time `json:"time"`
		} `json:"header"`
	} `json:"block"`
}

type balancesResponse struct {
	Balances   []Coin      `json:"balances"`
	Pagination pageRequest `json:"pagination"`
}

func (r *balancesResponse) items() []Coin   { return r.Balances }
func (r *balancesResponse) nextKey() string { return r.Pagination.NextKey }

type delegationsResponse struct {
	DelegationResponses []struct {
		Delegation struct {
			ValidatorAddress string `json:"validator_address"`
			Shares           string `json:"shares"`
		} `json:"delegation"`
		Balance Coin `json:"balance"`
	} `json:"delegation_responses"`
	Pagination pageRequest `json:"pagination"`
}

func (r *delegationsResponse) items() []Delegation {
	out := make([]Delegation, 0, len(r.DelegationResponses))
	for _, d := range r.DelegationResponses {
		out = append(out, Delegation{
			ValidatorAddress: d.Delegation.ValidatorAddress,
			Shares:           d.Delegation.Shares,
			Balance:          d.Balance,
		})
	}
	return out
}
func (r *delegationsResponse) nextKey() string { return r.Pagination.NextKey }

type rewardsResponse struct {
	Total []Coin `json:"total"`
}

// ChainHead returns the node's latest block height and time.
func (c *HTTPClient) ChainHead(ctx context.Context) (Head, error) {
	var resp latestBlockResponse
	if err := c.getJSON(ctx, latestBlockPath, nil, &resp); err != nil {
		return Head{}, err
	}
	height, err := strconv.ParseInt(resp.Block.Header.Height, 10, 64)
	if err != nil {
		return Head{}, fmt.Errorf("parse head height %q: %w", resp.Block.Header.Height, err)
	}
	return Head{Height: height, Time: resp.Block.Header.Time}, nil
}

// Balances lists every bank balance of address.
func (c *HTTPClient) Balances(ctx context.Context, address string) ([]Coin, error) {
	path := fmt.Sprintf(balancesPath, url.PathEscape(address))
	return ListPaged[Coin](ctx, c, path, func() *balancesResponse { return &balancesResponse{} })
}

// Delegations lists the staking delegations of address.
func (c *HTTPClient) Delegations(ctx context.Context, address string) ([]Delegation, error) {
	path := fmt.Sprintf(delegationsPath, url.PathEscape(address))
	return ListPaged[Delegation](ctx, c, path, func() *delegationsResponse { return &delegationsResponse{} })
}

// Rewards returns the summed pending staking rewards of address.
func (c *HTTPClient) Rewards(ctx context.Context, address string) ([]Coin, error) {
	var resp rewardsResponse
	if err := c.getJSON(ctx, fmt.Sprintf(rewardsPath, url.PathEscape(address)), nil, &resp); err != nil {
		return nil, err
	}
	return resp.Total, nil
}

// FetchAccount runs the account queries concurrently and assembles the result.
// Empty lists are returned as empty slices, not nil.
func FetchAccount(ctx context.Context, c Client, address string) (*Account, error) {
	acc := &Account{Address: address}
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		head, err := c.ChainHead(gctx)
		if err != nil {
			return fmt.Errorf("chain head: %w", err)
		}
		acc.Height = head.Height
		return nil
	})
	g.Go(func() error {
		balances, err := c.Balances(gctx, address)
		if err != nil {
			return fmt.Errorf("balances: %w", err)
		}
		acc.Balances = nonNil(balances)
		return nil
	})
	g.Go(func() error {
		delegations, err := c.Delegations(gctx, address)
		if err != nil {
			return fmt.Errorf("delegations: %w", err)
		}
		acc.Delegations = nonNil(delegations)
		return nil
	})
	g.Go(func() error {
		rewards, err := c.Rewards(gctx, address)
		if err != nil {
			return fmt.Errorf("rewards: %w", err)
		}
		acc.Rewards = nonNil(rewards)
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return acc, nil
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
