package chain

import (
	"context"

	indexermodels "github.com/canopy-network/explorerx/pkg/db/models/indexer"
	"github.com/canopy-network/explorerx/pkg/query"
)

const tokenSelect = `
	SELECT tk.denom, tk.symbol, tk.name, tk.decimals, tk.total_supply::text AS total_supply, tk.native
	FROM tokens tk`

// ListTokens returns up to plan.Take+1 tokens.
func (db *DB) ListTokens(ctx context.Context, plan *query.Plan) ([]indexermodels.Token, error) {
	return list[indexermodels.Token](ctx, db, "ListTokens", plan, tokenSelect)
}

// GetToken retrieves a token by denom
func (db *DB) GetToken(ctx context.Context, denom string) (*indexermodels.Token, error) {
	return one[indexermodels.Token](ctx, db, "GetToken", "token "+denom,
		tokenSelect+` WHERE tk.denom = $1`, denom)
}

// TokenHolders counts accounts with a positive balance per denom.
func (db *DB) TokenHolders(ctx context.Context, denoms []string) (map[string]int64, error) {
	return lookup[string, int64](ctx, db, "TokenHolders", `
		SELECT denom AS key, COUNT(*) AS value
		FROM account_balances
		WHERE denom = ANY($1) AND amount > 0
		GROUP BY denom`, denoms)
}
