package service

import (
	"context"
	"fmt"
	"slices"
	"time"

	"github.com/canopy-network/explorerx/pkg/cache"
	indexermodels "github.com/canopy-network/explorerx/pkg/db/models/indexer"
	"github.com/canopy-network/explorerx/pkg/query"
	"github.com/canopy-network/explorerx/pkg/stats"
)

// Overview compares headline aggregates over the current window with the prior window of equal length.
type Overview struct {
	IntervalDays   int                `json:"intervalDays"`
	Current        stats.Window       `json:"current"`
	Prior          stats.Window       `json:"prior"`
	Transactions   stats.GrowthMetric `json:"transactions"`
	ActiveAccounts stats.GrowthMetric `json:"activeAccounts"`
	Fees           stats.GrowthMetric `json:"fees"`
	Staked         stats.GrowthMetric `json:"staked"`
}

// Series is a zero-filled daily series, one bucket per UTC day, oldest first.
type Series struct {
	Metric       indexermodels.Metric `json:"metric"`
	IntervalDays int                  `json:"intervalDays"`
	Items        []stats.DailyBucket  `json:"items"`
}

// resolveInterval validates intervalDays, reading the earliest block only when
// the caller asked for the default. With paired set the default leaves room for
// a prior window of equal length inside the indexed history.
func (s *Service) resolveInterval(ctx context.Context, intervalDays int, now time.Time, paired bool) (int, error) {
	if intervalDays != 0 {
		return stats.ResolveInterval(intervalDays, time.Time{}, now)
	}
	earliest, err := s.Store.EarliestBlockTime(ctx)
	if err != nil {
		return 0, err
	}
	if paired {
		return stats.ComparableDays(earliest, now), nil
	}
	return stats.ResolveInterval(0, earliest, now)
}

// Overview computes the growth of transactions, active accounts, fees and
// staked amount. The window ends at the current minute so concurrent requests
// share a cache entry.
func (s *Service) Overview(ctx context.Context, intervalDays int) (*Overview, error) {
	now := s.now().Truncate(time.Minute)
	days, err := s.resolveInterval(ctx, intervalDays, now, true)
	if err != nil {
		return nil, err
	}

	key := fmt.Sprintf("overview:%d:%d", days, now.Unix())
	return cache.Load(ctx, s.Cache, key, func(ctx context.Context) (*Overview, error) {
		current, prior := stats.Windows(now, days)
		var tx, accounts, fees, staked indexermodels.PeriodCounts
		compare := func(metric indexermodels.Metric, dst *indexermodels.PeriodCounts) func(context.Context) error {
			return func(ctx context.Context) error {
				pc, err := s.Store.ComparePeriods(ctx, metric, current, prior)
				if err != nil {
					return err
				}
				*dst = pc
				return nil
			}
		}
		err := s.parallel(ctx,
			compare(indexermodels.MetricTransactions, &tx),
			compare(indexermodels.MetricActiveAccounts, &accounts),
			compare(indexermodels.MetricFees, &fees),
			compare(indexermodels.MetricStaked, &staked),
		)
		if err != nil {
			return nil, err
		}
		return &Overview{
			IntervalDays:   days,
			Current:        current,
			Prior:          prior,
			Transactions:   stats.Growth(tx.Current, tx.Prior),
			ActiveAccounts: stats.Growth(accounts.Current, accounts.Prior),
			Fees:           stats.Growth(fees.Current, fees.Prior),
			Staked:         stats.Growth(staked.Current, staked.Prior),
		}, nil
	})
}

// Daily returns the named metric per day for the last intervalDays days, today included.
func (s *Service) Daily(ctx context.Context, metric string, intervalDays int) (*Series, error) {
	m, err := indexermodels.ParseMetric(metric)
	if err != nil || !slices.Contains(indexermodels.DailyMetrics, m) {
		return nil, query.Invalid("metric must be one of %v", indexermodels.DailyMetrics)
	}
	now := s.now()
	days, err := s.resolveInterval(ctx, intervalDays, now, false)
	if err != nil {
		return nil, err
	}
	from, to := stats.DayRange(now, days)

	// today's bucket is still filling; cache per hour
	key := fmt.Sprintf("daily:%s:%d:%d", m, days, now.Truncate(time.Hour).Unix())
	return cache.Load(ctx, s.Cache, key, func(ctx context.Context) (*Series, error) {
		points, err := s.Store.DailySeries(ctx, m, from, to)
		if err != nil {
			return nil, err
		}
		return &Series{Metric: m, IntervalDays: days, Items: stats.FillDaily(from, to, points)}, nil
	})
}
