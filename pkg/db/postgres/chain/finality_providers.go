package chain

import (
	"context"
	"fmt"

	indexermodels "github.com/canopy-network/explorerx/pkg/db/models/indexer"
	"github.com/canopy-network/explorerx/pkg/query"
	"github.com/canopy-network/explorerx/pkg/stats"
)

const finalityProviderSelect = `
	SELECT * FROM (
		SELECT fp.btc_pk, fp.babylon_address, fp.moniker, fp.commission::text AS commission,
		       fp.status, fp.slashed, COALESCE(st.active_sats, 0)::bigint AS active_sats
		FROM finality_providers fp
		LEFT JOIN (
			SELECT fp_btc_pk, SUM(amount_sats) AS active_sats
			FROM delegations
			WHERE state = 'active'
			GROUP BY fp_btc_pk
		) st ON st.fp_btc_pk = fp.btc_pk
	) fps`

// ListFinalityProviders returns up to plan.Take+1 finality providers from plan.Skip.
func (db *DB) ListFinalityProviders(ctx context.Context, plan *query.Plan) ([]indexermodels.FinalityProvider, error) {
	return list[indexermodels.FinalityProvider](ctx, db, "ListFinalityProviders", plan, finalityProviderSelect)
}

// GetFinalityProvider retrieves a finality provider by BTC public key.
func (db *DB) GetFinalityProvider(ctx context.Context, btcPk string) (*indexermodels.FinalityProvider, error) {
	return one[indexermodels.FinalityProvider](ctx, db, "GetFinalityProvider", "finality provider "+btcPk,
		finalityProviderSelect+` WHERE fps.btc_pk = $1`, btcPk)
}

// FinalityProviderMonikers maps BTC public keys to monikers.
func (db *DB) FinalityProviderMonikers(ctx context.Context, btcPks []string) (map[string]string, error) {
	return lookup[string, string](ctx, db, "FinalityProviderMonikers", `
		SELECT btc_pk AS key, moniker AS value
		FROM finality_providers
		WHERE btc_pk = ANY($1)`, btcPks)
}

// FinalityProviderSigning reads the finality_provider_signing view for the given keys.
func (db *DB) FinalityProviderSigning(ctx context.Context, btcPks []string) (map[string]indexermodels.FinalityProviderSigning, error) {
	rows, err := selectRows[indexermodels.FinalityProviderSigning](ctx, db, "FinalityProviderSigning", `
		SELECT btc_pk, votes, expected, inclusion_rate
		FROM finality_provider_signing
		WHERE btc_pk = ANY($1)`, btcPks)
	if err != nil {
		return nil, err
	}
	out := make(map[string]indexermodels.FinalityProviderSigning, len(rows))
	for _, r := range rows {
		out[r.BtcPk] = r
	}
	return out, nil
}

// FinalityProviderDelegationCounts counts active delegations per finality provider.
func (db *DB) FinalityProviderDelegationCounts(ctx context.Context, btcPks []string) (map[string]int64, error) {
	return lookup[string, int64](ctx, db, "FinalityProviderDelegationCounts", `
		SELECT fp_btc_pk AS key, COUNT(*) AS value
		FROM delegations
		WHERE fp_btc_pk = ANY($1) AND state = 'active'
		GROUP BY fp_btc_pk`, btcPks)
}

type keyedPeriod struct {
	Key     string `db:"key"`
	Current int64  `db:"current"`
	Prior   int64  `db:"prior"`
}

// FinalityProviderStakeInflow sums newly created delegation stake per finality
// provider over the current and prior windows in one statement.
func (db *DB) FinalityProviderStakeInflow(ctx context.Context, btcPks []string, current, prior stats.Window) (map[string]indexermodels.PeriodCounts, error) {
	if !current.Start.Equal(prior.End) {
		return nil, fmt.Errorf("windows are not contiguous: prior ends %s, current starts %s", prior.End, current.Start)
	}
	rows, err := selectRows[keyedPeriod](ctx, db, "FinalityProviderStakeInflow", `
		SELECT fp_btc_pk AS key,
		       COALESCE(SUM(amount_sats) FILTER (WHERE created_at >= $3 AND created_at < $4), 0)::bigint AS current,
		       COALESCE(SUM(amount_sats) FILTER (WHERE created_at >= $2 AND created_at < $3), 0)::bigint AS prior
		FROM delegations
		WHERE fp_btc_pk = ANY($1) AND created_at >= $2 AND created_at < $4
		GROUP BY fp_btc_pk`, btcPks, prior.Start, current.Start, current.End)
	if err != nil {
		return nil, err
	}
	out := make(map[string]indexermodels.PeriodCounts, len(rows))
	for _, r := range rows {
		out[r.Key] = indexermodels.PeriodCounts{Current: r.Current, Prior: r.Prior}
	}
	return out, nil
}
