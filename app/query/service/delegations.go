package service

import (
	"context"
	"strings"

	indexermodels "github.com/canopy-network/explorerx/pkg/db/models/indexer"
	"github.com/canopy-network/explorerx/pkg/enrich"
	"github.com/canopy-network/explorerx/pkg/query"
	"github.com/canopy-network/explorerx/pkg/stats"
	"github.com/shopspring/decimal"
)

// Delegation is a delegation with the moniker of the provider it delegates to.
type Delegation struct {
	indexermodels.Delegation
	AmountBtc               decimal.Decimal `json:"amountBtc"`
	FinalityProviderMoniker string          `json:"finalityProviderMoniker"`
}

func (s *Service) ListDelegations(ctx context.Context, q query.ListQuery) (query.Page[Delegation], error) {
	page, err := listPage(ctx, indexermodels.DelegationSpec, q, s.Store.ListDelegations)
	if err != nil {
		return query.Page[Delegation]{}, err
	}
	rows, err := s.enrichDelegations(ctx, page.Items)
	if err != nil {
		return query.Page[Delegation]{}, err
	}
	return query.Page[Delegation]{Items: rows, NextCursor: page.NextCursor}, nil
}

func (s *Service) GetDelegation(ctx context.Context, stakingTxHash string) (*Delegation, error) {
	stakingTxHash = strings.ToLower(strings.TrimSpace(stakingTxHash))
	if stakingTxHash == "" {
		return nil, query.Invalid("stakingTxHash is required")
	}
	row, err := s.Store.GetDelegation(ctx, stakingTxHash)
	return detail(ctx, row, err, s.enrichDelegations)
}

func (s *Service) enrichDelegations(ctx context.Context, delegations []indexermodels.Delegation) ([]Delegation, error) {
	b := s.batch()
	monikers := enrich.Add(b, "finality_provider_monikers",
		enrich.Keys(delegations, func(d indexermodels.Delegation) string { return d.FpBtcPk }),
		s.Store.FinalityProviderMonikers)
	if err := b.Run(ctx); err != nil {
		return nil, err
	}

	out := make([]Delegation, len(delegations))
	for i, d := range delegations {
		out[i] = Delegation{
			Delegation:              d,
			AmountBtc:               stats.Display(d.AmountSats, stats.BTCDecimals),
			FinalityProviderMoniker: monikers.Or(d.FpBtcPk, UnknownMoniker),
		}
	}
	return out, nil
}
