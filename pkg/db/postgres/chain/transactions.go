package chain

import (
	"context"

	indexermodels "github.com/canopy-network/explorerx/pkg/db/models/indexer"
	"github.com/canopy-network/explorerx/pkg/query"
)

const transactionSelect = `
	SELECT t.hash, t.height, t.tx_index, t.time, t.sender, t.type, t.success, t.code,
	       t.fee_amount, t.fee_denom, t.gas_used, t.gas_wanted, t.memo
	FROM transactions t`

// ListTransactions returns up to plan.Take+1 transactions.
func (db *DB) ListTransactions(ctx context.Context, plan *query.Plan) ([]indexermodels.Transaction, error) {
	return list[indexermodels.Transaction](ctx, db, "ListTransactions", plan, transactionSelect)
}

// GetTransaction retrieves a transaction by hash (case-insensitive hex).
func (db *DB) GetTransaction(ctx context.Context, hash string) (*indexermodels.Transaction, error) {
	return one[indexermodels.Transaction](ctx, db, "GetTransaction", "transaction "+hash,
		transactionSelect+` WHERE upper(t.hash) = upper($1)`, hash)
}
