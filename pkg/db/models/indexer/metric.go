package indexer

import "fmt"

// Metric names an aggregate the stats endpoints can compare or chart.
type Metric string

const (
	MetricTransactions   Metric = "transactions"
	MetricBlocks         Metric = "blocks"
	MetricFees           Metric = "fees"
	MetricStaked         Metric = "staked"
	MetricActiveAccounts Metric = "active_accounts"
)

// DailyMetrics are the metrics exposed as daily series.
var DailyMetrics = []Metric{MetricTransactions, MetricBlocks, MetricFees, MetricStaked}

func ParseMetric(s string) (Metric, error) {
	switch m := Metric(s); m {
	case MetricTransactions, MetricBlocks, MetricFees, MetricStaked, MetricActiveAccounts:
		return m, nil
	}
	return "", fmt.Errorf("unknown metric %q", s)
}

// PeriodCounts is an aggregate over a current window and the prior window of equal length.
type PeriodCounts struct {
	Current int64 `db:"current"`
	Prior   int64 `db:"prior"`
}
