package indexer

import "time"

const BlocksTableName = "blocks"

// Block is one committed block as written by the indexer.
type Block struct {
	Height          int64     `db:"height" json:"height"`
	Hash            string    `db:"hash" json:"hash"`
	Time            time.Time `db:"time" json:"time"`
	ProposerAddress string    `db:"proposer_address" json:"proposerAddress"`
	NumTxs          int32     `db:"num_txs" json:"numTxs"`
	GasUsed         int64     `db:"gas_used" json:"gasUsed"`
	GasWanted       int64     `db:"gas_wanted" json:"gasWanted"`
}

func (b Block) CursorKey(column string) any {
	switch column {
	case "height":
		return b.Height
	case "time":
		return b.Time
	case "num_txs":
		return b.NumTxs
	case "gas_used":
		return b.GasUsed
	}
	return nil
}
