package chain

import (
	"context"

	indexermodels "github.com/canopy-network/explorerx/pkg/db/models/indexer"
	"github.com/canopy-network/explorerx/pkg/query"
)

// validatorSelect exposes the validator set with shares computed over every
// active validator ordered by tokens. The running total is evaluated before
// any request filter, sort or page is applied, so it never depends on them.
const validatorSelect = `
	SELECT * FROM (
		SELECT v.operator_address, v.consensus_address, v.moniker, v.status, v.jailed, v.tokens,
		       v.commission_rate::text AS commission_rate,
		       CASE WHEN v.status = 'active' THEN
		           ROUND(v.tokens::numeric * 100
		                 / NULLIF(SUM(v.tokens) FILTER (WHERE v.status = 'active') OVER (), 0), 4)::float8
		       END AS voting_power_share,
		       CASE WHEN v.status = 'active' THEN
		           ROUND(SUM(v.tokens) FILTER (WHERE v.status = 'active') OVER power_order * 100
		                 / NULLIF(SUM(v.tokens) FILTER (WHERE v.status = 'active') OVER (), 0), 4)::float8
		       END AS cumulative_share,
		       CASE WHEN v.status = 'active' THEN
		           COUNT(*) FILTER (WHERE v.status = 'active') OVER power_order
		       END AS rank
		FROM validators v
		WINDOW power_order AS (
			ORDER BY v.tokens DESC, v.operator_address ASC
			ROWS BETWEEN UNBOUNDED PRECEDING AND CURRENT ROW
		)
	) vs`

// ListValidators returns up to plan.Take+1 validators from plan.Skip.
func (db *DB) ListValidators(ctx context.Context, plan *query.Plan) ([]indexermodels.Validator, error) {
	return list[indexermodels.Validator](ctx, db, "ListValidators", plan, validatorSelect)
}

// GetValidator retrieves a validator by operator or consensus address.
func (db *DB) GetValidator(ctx context.Context, address string) (*indexermodels.Validator, error) {
	return one[indexermodels.Validator](ctx, db, "GetValidator", "validator "+address,
		validatorSelect+` WHERE vs.operator_address = $1 OR vs.consensus_address = $1`, address)
}

// ValidatorMonikers maps consensus addresses to monikers.
func (db *DB) ValidatorMonikers(ctx context.Context, consensusAddresses []string) (map[string]string, error) {
	return lookup[string, string](ctx, db, "ValidatorMonikers", `
		SELECT consensus_address AS key, moniker AS value
		FROM validators
		WHERE consensus_address = ANY($1)`, consensusAddresses)
}

// ValidatorUptime reads the validator_uptime view for the given consensus addresses.
func (db *DB) ValidatorUptime(ctx context.Context, consensusAddresses []string) (map[string]indexermodels.ValidatorUptime, error) {
	rows, err := selectRows[indexermodels.ValidatorUptime](ctx, db, "ValidatorUptime", `
		SELECT consensus_address, signed_blocks, missed_blocks, uptime
		FROM validator_uptime
		WHERE consensus_address = ANY($1)`, consensusAddresses)
	if err != nil {
		return nil, err
	}
	out := make(map[string]indexermodels.ValidatorUptime, len(rows))
	for _, r := range rows {
		out[r.ConsensusAddress] = r
	}
	return out, nil
}
