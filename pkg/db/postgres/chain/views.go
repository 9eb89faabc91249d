package chain

import (
	"context"
	"fmt"
	"time"

	indexermodels "github.com/canopy-network/explorerx/pkg/db/models/indexer"
	"go.uber.org/zap"
)

// SigningWindowBlocks is how many recent blocks the signing views cover.
const SigningWindowBlocks = 10000

// viewDefinitions are created in order by EnsureViews. Each view has a unique
// index so it can be refreshed concurrently.
var viewDefinitions = []struct {
	name string
	ddl  string
}{
	{
		name: indexermodels.ValidatorUptimeViewName,
		ddl: fmt.Sprintf(`
			CREATE MATERIALIZED VIEW IF NOT EXISTS validator_uptime AS
			SELECT s.consensus_address,
			       COUNT(*) FILTER (WHERE s.signed) AS signed_blocks,
			       COUNT(*) FILTER (WHERE NOT s.signed) AS missed_blocks,
			       COALESCE(ROUND(COUNT(*) FILTER (WHERE s.signed) * 100.0 / NULLIF(COUNT(*), 0), 2), 0)::float8 AS uptime
			FROM validator_signatures s
			WHERE s.height > (SELECT COALESCE(MAX(height), 0) FROM blocks) - %d
			GROUP BY s.consensus_address;

			CREATE UNIQUE INDEX IF NOT EXISTS validator_uptime_consensus_address
				ON validator_uptime (consensus_address);`, SigningWindowBlocks),
	},
	{
		name: indexermodels.FinalityProviderSigningViewName,
		ddl: fmt.Sprintf(`
			CREATE MATERIALIZED VIEW IF NOT EXISTS finality_provider_signing AS
			WITH window_blocks AS (
				SELECT height FROM blocks
				WHERE height > (SELECT COALESCE(MAX(height), 0) FROM blocks) - %d
			), expected AS (
				SELECT COUNT(*) AS n FROM window_blocks
			)
			SELECT fp.btc_pk,
			       COUNT(v.height) AS votes,
			       expected.n AS expected,
			       COALESCE(ROUND(COUNT(v.height) * 100.0 / NULLIF(expected.n, 0), 2), 0)::float8 AS inclusion_rate
			FROM finality_providers fp
			CROSS JOIN expected
			LEFT JOIN finality_provider_votes v
				ON v.fp_btc_pk = fp.btc_pk AND v.height IN (SELECT height FROM window_blocks)
			GROUP BY fp.btc_pk, expected.n;

			CREATE UNIQUE INDEX IF NOT EXISTS finality_provider_signing_btc_pk
				ON finality_provider_signing (btc_pk);`, SigningWindowBlocks),
	},
}

// EnsureViews creates the materialized views if they do not exist yet.
func (db *DB) EnsureViews(ctx context.Context) error {
	for _, v := range viewDefinitions {
		if err := db.Exec(ctx, v.ddl); err != nil {
			return fmt.Errorf("create view %s: %w", v.name, err)
		}
	}
	return nil
}

// RefreshViews refreshes every materialized view concurrently with readers.
// A failing view is logged and the rest are still refreshed.
func (db *DB) RefreshViews(ctx context.Context) error {
	var firstErr error
	for _, v := range viewDefinitions {
		start := time.Now()
		// Names come from viewDefinitions only.
		if err := db.Exec(ctx, "REFRESH MATERIALIZED VIEW CONCURRENTLY "+v.name); err != nil {
			db.Logger.Error("Failed to refresh materialized view", zap.String("view", v.name), zap.Error(err))
			if firstErr == nil {
				firstErr = fmt.Errorf("refresh %s: %w", v.name, err)
			}
			continue
		}
		db.Logger.Debug("Refreshed materialized view",
			zap.String("view", v.name),
			zap.Duration("duration", time.Since(start)))
	}
	return firstErr
}
