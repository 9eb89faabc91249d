package indexer

const (
	ValidatorsTableName = "validators"
	// ValidatorUptimeViewName is refreshed by the query service; see RefreshViews.
	ValidatorUptimeViewName = "validator_uptime"
)

// Validator statuses as normalized by the indexer.
const (
	ValidatorStatusActive   = "active"
	ValidatorStatusInactive = "inactive"
	ValidatorStatusJailed   = "jailed"
)

// Validator is the current state of a validator.
//
// VotingPowerShare, CumulativeShare and Rank are computed across the whole
// active set ordered by tokens, independent of the page, sort or filter of
// the request. They are nil for validators outside the active set.
type Validator struct {
	OperatorAddress  string   `db:"operator_address" json:"operatorAddress"`
	ConsensusAddress string   `db:"consensus_address" json:"consensusAddress"`
	Moniker          string   `db:"moniker" json:"moniker"`
	Status           string   `db:"status" json:"status"`
	Jailed           bool     `db:"jailed" json:"jailed"`
	Tokens           int64    `db:"tokens" json:"tokens"`
	CommissionRate   string   `db:"commission_rate" json:"commissionRate"`
	VotingPowerShare *float64 `db:"voting_power_share" json:"votingPowerShare"`
	CumulativeShare  *float64 `db:"cumulative_share" json:"cumulativeShare"`
	Rank             *int64   `db:"rank" json:"rank"`
}

// CursorKey is unused by offset-paged lists but keeps Validator pageable.
func (v Validator) CursorKey(column string) any {
	switch column {
	case "operator_address":
		return v.OperatorAddress
	case "tokens":
		return v.Tokens
	case "moniker":
		return v.Moniker
	}
	return nil
}

// ValidatorUptime is a row of the validator_uptime materialized view.
type ValidatorUptime struct {
	ConsensusAddress string  `db:"consensus_address" json:"-"`
	SignedBlocks     int64   `db:"signed_blocks" json:"signedBlocks"`
	MissedBlocks     int64   `db:"missed_blocks" json:"missedBlocks"`
	Uptime           float64 `db:"uptime" json:"uptime"`
}
