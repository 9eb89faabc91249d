package indexer

import "time"

const DelegationsTableName = "delegations"

// Delegation states as reported by the staking indexer.
var DelegationStates = []string{"pending", "verified", "active", "unbonding", "unbonded", "withdrawn", "slashed"}

// Delegation is a BTC staking delegation. It is positioned by the block that
// included its staking transaction and the output index inside it.
type Delegation struct {
	StakingTxHash      string    `db:"staking_tx_hash" json:"stakingTxHash"`
	StakerBtcPk        string    `db:"staker_btc_pk" json:"stakerBtcPk"`
	FpBtcPk            string    `db:"fp_btc_pk" json:"fpBtcPk"`
	AmountSats         int64     `db:"amount_sats" json:"amountSats"`
	StakingBlockHeight int64     `db:"staking_block_height" json:"stakingBlockHeight"`
	StakingOutputIdx   int32     `db:"staking_output_idx" json:"stakingOutputIdx"`
	StakingTime        int32     `db:"staking_time" json:"stakingTime"`
	State              string    `db:"state" json:"state"`
	StartHeight        int64     `db:"start_height" json:"startHeight"`
	EndHeight          int64     `db:"end_height" json:"endHeight"`
	CreatedAt          time.Time `db:"created_at" json:"createdAt"`
}

func (d Delegation) CursorKey(column string) any {
	switch column {
	case "staking_block_height":
		return d.StakingBlockHeight
	case "staking_output_idx":
		return d.StakingOutputIdx
	case "staking_tx_hash":
		return d.StakingTxHash
	case "amount_sats":
		return d.AmountSats
	}
	return nil
}
