package indexer

import "time"

const TransactionsTableName = "transactions"

// Transaction is a transaction included in a block. (height, tx_index) is unique.
type Transaction struct {
	Hash      string    `db:"hash" json:"hash"`
	Height    int64     `db:"height" json:"height"`
	TxIndex   int32     `db:"tx_index" json:"txIndex"`
	Time      time.Time `db:"time" json:"time"`
	Sender    string    `db:"sender" json:"sender"`
	Type      string    `db:"type" json:"type"`
	Success   bool      `db:"success" json:"success"`
	Code      int32     `db:"code" json:"code"`
	FeeAmount int64     `db:"fee_amount" json:"feeAmount"`
	FeeDenom  string    `db:"fee_denom" json:"feeDenom"`
	GasUsed   int64     `db:"gas_used" json:"gasUsed"`
	GasWanted int64     `db:"gas_wanted" json:"gasWanted"`
	Memo      string    `db:"memo" json:"memo"`
}

func (t Transaction) CursorKey(column string) any {
	switch column {
	case "height":
		return t.Height
	case "tx_index":
		return t.TxIndex
	case "time":
		return t.Time
	case "fee_amount":
		return t.FeeAmount
	case "gas_used":
		return t.GasUsed
	}
	return nil
}
