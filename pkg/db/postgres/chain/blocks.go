package chain

import (
	"context"
	"fmt"

	indexermodels "github.com/canopy-network/explorerx/pkg/db/models/indexer"
	"github.com/canopy-network/explorerx/pkg/query"
)

const blockSelect = `
	SELECT b.height, b.hash, b.time, b.proposer_address, b.num_txs, b.gas_used, b.gas_wanted
	FROM blocks b`

// ListBlocks returns up to plan.Take+1 blocks.
func (db *DB) ListBlocks(ctx context.Context, plan *query.Plan) ([]indexermodels.Block, error) {
	return list[indexermodels.Block](ctx, db, "ListBlocks", plan, blockSelect)
}

// GetBlock retrieves a block by height
func (db *DB) GetBlock(ctx context.Context, height int64) (*indexermodels.Block, error) {
	return one[indexermodels.Block](ctx, db, "GetBlock", fmt.Sprintf("block %d", height),
		blockSelect+` WHERE b.height = $1`, height)
}
