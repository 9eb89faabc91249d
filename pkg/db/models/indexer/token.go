package indexer

const (
	TokensTableName          = "tokens"
	AccountBalancesTableName = "account_balances"
)

// Token is a denomination known to the chain. TotalSupply is the integer
// supply in the smallest unit, kept as text since it can exceed int64.
type Token struct {
	Denom       string `db:"denom" json:"denom"`
	Symbol      string `db:"symbol" json:"symbol"`
	Name        string `db:"name" json:"name"`
	Decimals    int32  `db:"decimals" json:"decimals"`
	TotalSupply string `db:"total_supply" json:"totalSupply"`
	Native      bool   `db:"native" json:"native"`
}

func (t Token) CursorKey(column string) any {
	switch column {
	case "denom":
		return t.Denom
	case "symbol":
		return t.Symbol
	}
	return nil
}
