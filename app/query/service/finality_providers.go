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

// DefaultGrowthDays is the stake inflow window when the request names none.
const DefaultGrowthDays = 7

// FinalityProvider is a finality provider with its vote inclusion, active
// delegation count and newly delegated stake compared with the prior window.
type FinalityProvider struct {
	indexermodels.FinalityProvider
	ActiveBtc         decimal.Decimal                        `json:"activeBtc"`
	Signing           *indexermodels.FinalityProviderSigning `json:"signing"`
	ActiveDelegations int64                                  `json:"activeDelegations"`
	StakeInflow       stats.GrowthMetric                     `json:"stakeInflow"`
}

// ListFinalityProviders pages providers. growthDays sizes the inflow windows; 0 selects DefaultGrowthDays.
func (s *Service) ListFinalityProviders(ctx context.Context, q query.ListQuery, growthDays int) (query.Page[FinalityProvider], error) {
	days, err := growthWindow(growthDays)
	if err != nil {
		return query.Page[FinalityProvider]{}, err
	}
	page, err := listPage(ctx, indexermodels.FinalityProviderSpec, q, s.Store.ListFinalityProviders)
	if err != nil {
		return query.Page[FinalityProvider]{}, err
	}
	rows, err := s.enrichFinalityProviders(ctx, page.Items, days)
	if err != nil {
		return query.Page[FinalityProvider]{}, err
	}
	return query.Page[FinalityProvider]{Items: rows, NextCursor: page.NextCursor}, nil
}

func (s *Service) GetFinalityProvider(ctx context.Context, btcPk string, growthDays int) (*FinalityProvider, error) {
	btcPk = strings.ToLower(strings.TrimSpace(btcPk))
	if btcPk == "" {
		return nil, query.Invalid("btcPk is required")
	}
	days, err := growthWindow(growthDays)
	if err != nil {
		return nil, err
	}
	row, err := s.Store.GetFinalityProvider(ctx, btcPk)
	return detail(ctx, row, err, func(ctx context.Context, fps []indexermodels.FinalityProvider) ([]FinalityProvider, error) {
		return s.enrichFinalityProviders(ctx, fps, days)
	})
}

func growthWindow(days int) (int, error) {
	switch {
	case days == 0:
		return DefaultGrowthDays, nil
	case days < 0 || days > stats.MaxIntervalDays:
		return 0, query.Invalid("growthDays must be between 1 and %d", stats.MaxIntervalDays)
	}
	return days, nil
}

func (s *Service) enrichFinalityProviders(ctx context.Context, fps []indexermodels.FinalityProvider, growthDays int) ([]FinalityProvider, error) {
	keys := enrich.Keys(fps, func(fp indexermodels.FinalityProvider) string { return fp.BtcPk })
	current, prior := stats.Windows(s.now(), growthDays)

	b := s.batch()
	signing := enrich.Add(b, "finality_provider_signing", keys, s.Store.FinalityProviderSigning)
	counts := enrich.Add(b, "finality_provider_delegations", keys, s.Store.FinalityProviderDelegationCounts)
	inflow := enrich.Add(b, "finality_provider_inflow", keys,
		func(ctx context.Context, pks []string) (map[string]indexermodels.PeriodCounts, error) {
			return s.Store.FinalityProviderStakeInflow(ctx, pks, current, prior)
		})
	if err := b.Run(ctx); err != nil {
		return nil, err
	}

	out := make([]FinalityProvider, len(fps))
	for i, fp := range fps {
		pc := inflow.Or(fp.BtcPk, indexermodels.PeriodCounts{})
		out[i] = FinalityProvider{
			FinalityProvider:  fp,
			ActiveBtc:         stats.Display(fp.ActiveSats, stats.BTCDecimals),
			Signing:           signing.Ptr(fp.BtcPk),
			ActiveDelegations: counts.Or(fp.BtcPk, 0),
			StakeInflow:       stats.Growth(pc.Current, pc.Prior),
		}
	}
	return out, nil
}
