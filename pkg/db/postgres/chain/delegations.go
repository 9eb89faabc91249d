package chain

import (
	"context"

	indexermodels "github.com/canopy-network/explorerx/pkg/db/models/indexer"
	"github.com/canopy-network/explorerx/pkg/query"
)

const delegationSelect = `
	SELECT d.staking_tx_hash, d.staker_btc_pk, d.fp_btc_pk, d.amount_sats, d.staking_block_height,
	       d.staking_output_idx, d.staking_time, d.state, d.start_height, d.end_height, d.created_at
	FROM delegations d`

// ListDelegations returns up to plan.Take+1 delegations.
func (db *DB) ListDelegations(ctx context.Context, plan *query.Plan) ([]indexermodels.Delegation, error) {
	return list[indexermodels.Delegation](ctx, db, "ListDelegations", plan, delegationSelect)
}

// GetDelegation retrieves a delegation by its staking transaction hash.
func (db *DB) GetDelegation(ctx context.Context, stakingTxHash string) (*indexermodels.Delegation, error) {
	return one[indexermodels.Delegation](ctx, db, "GetDelegation", "delegation "+stakingTxHash,
		delegationSelect+` WHERE d.staking_tx_hash = $1`, stakingTxHash)
}
