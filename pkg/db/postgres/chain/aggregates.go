package chain

import (
	"context"
	"fmt"
	"time"

	indexermodels "github.com/canopy-network/explorerx/pkg/db/models/indexer"
	"github.com/canopy-network/explorerx/pkg/query"
	"github.com/canopy-network/explorerx/pkg/stats"
)

// metricSource is the whitelisted SQL behind a metric. Only these constants
// are formatted into statements; time bounds are always bound parameters.
type metricSource struct {
	table     string
	timeCol   string
	aggregate string
}

var metricSources = map[indexermodels.Metric]metricSource{
	indexermodels.MetricTransactions:   {table: "transactions", timeCol: "time", aggregate: "COUNT(*)"},
	indexermodels.MetricBlocks:         {table: "blocks", timeCol: "time", aggregate: "COUNT(*)"},
	indexermodels.MetricFees:           {table: "transactions", timeCol: "time", aggregate: "SUM(fee_amount)"},
	indexermodels.MetricStaked:         {table: "delegations", timeCol: "created_at", aggregate: "SUM(amount_sats)"},
	indexermodels.MetricActiveAccounts: {table: "transactions", timeCol: "time", aggregate: "COUNT(DISTINCT sender)"},
}

func sourceFor(metric indexermodels.Metric) (metricSource, error) {
	src, ok := metricSources[metric]
	if !ok {
		return metricSource{}, query.Invalid("unsupported metric %q", metric)
	}
	return src, nil
}

// ComparePeriods evaluates metric over the current and prior windows in a single statement.
func (db *DB) ComparePeriods(ctx context.Context, metric indexermodels.Metric, current, prior stats.Window) (indexermodels.PeriodCounts, error) {
	src, err := sourceFor(metric)
	if err != nil {
		return indexermodels.PeriodCounts{}, err
	}
	if !current.Start.Equal(prior.End) {
		return indexermodels.PeriodCounts{}, fmt.Errorf("windows are not contiguous: prior ends %s, current starts %s", prior.End, current.Start)
	}

	sql := fmt.Sprintf(`
		SELECT COALESCE(%[1]s FILTER (WHERE %[2]s >= $2 AND %[2]s < $3), 0)::bigint AS current,
		       COALESCE(%[1]s FILTER (WHERE %[2]s >= $1 AND %[2]s < $2), 0)::bigint AS prior
		FROM %[3]s
		WHERE %[2]s >= $1 AND %[2]s < $3`, src.aggregate, src.timeCol, src.table)

	var out indexermodels.PeriodCounts
	if err := db.QueryRow(ctx, sql, prior.Start, current.Start, current.End).Scan(&out.Current, &out.Prior); err != nil {
		return indexermodels.PeriodCounts{}, query.StoreFailure("ComparePeriods", fmt.Errorf("%s: %w", metric, err))
	}
	return out, nil
}

type dailyRow struct {
	Day   time.Time `db:"day"`
	Value int64     `db:"value"`
}

// DailySeries returns one bucket per UTC day from..to inclusive, ascending,
// generated from a day sequence left joined against the per-day aggregate.
func (db *DB) DailySeries(ctx context.Context, metric indexermodels.Metric, from, to time.Time) ([]stats.DailyBucket, error) {
	src, err := sourceFor(metric)
	if err != nil {
		return nil, err
	}

	sql := fmt.Sprintf(`
		WITH days AS (
			SELECT generate_series($1::date, $2::date, interval '1 day')::date AS day
		), agg AS (
			SELECT (%[2]s AT TIME ZONE 'UTC')::date AS day, %[1]s AS value
			FROM %[3]s
			WHERE %[2]s >= ($1::timestamp AT TIME ZONE 'UTC')
			  AND %[2]s < (($2::date + 1)::timestamp AT TIME ZONE 'UTC')
			GROUP BY 1
		)
		SELECT days.day, COALESCE(agg.value, 0)::bigint AS value
		FROM days
		LEFT JOIN agg ON agg.day = days.day
		ORDER BY days.day ASC`, src.aggregate, src.timeCol, src.table)

	rows, err := selectRows[dailyRow](ctx, db, "DailySeries", sql,
		from.UTC().Format(time.DateOnly), to.UTC().Format(time.DateOnly))
	if err != nil {
		return nil, err
	}
	out := make([]stats.DailyBucket, len(rows))
	for i, r := range rows {
		out[i] = stats.DailyBucket{Timestamp: stats.DayStart(r.Day).Unix(), Value: r.Value}
	}
	return out, nil
}
