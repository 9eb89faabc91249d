package indexer

import "time"

const (
	ProposalsTableName     = "proposals"
	ProposalVotesTableName = "proposal_votes"
)

var ProposalStatuses = []string{"deposit_period", "voting_period", "passed", "rejected", "failed"}

type Proposal struct {
	ID            int64      `db:"id" json:"id"`
	Title         string     `db:"title" json:"title"`
	ProposalType  string     `db:"proposal_type" json:"proposalType"`
	Status        string     `db:"status" json:"status"`
	Proposer      string     `db:"proposer" json:"proposer"`
	SubmitTime    time.Time  `db:"submit_time" json:"submitTime"`
	VotingEndTime *time.Time `db:"voting_end_time" json:"votingEndTime"`
	TotalDeposit  int64      `db:"total_deposit" json:"totalDeposit"`
}

func (p Proposal) CursorKey(column string) any {
	switch column {
	case "id":
		return p.ID
	case "submit_time":
		return p.SubmitTime
	}
	return nil
}

// ProposalTally sums vote weight per option.
type ProposalTally struct {
	ProposalID int64 `db:"proposal_id" json:"-"`
	Yes        int64 `db:"yes" json:"yes"`
	No         int64 `db:"no" json:"no"`
	Abstain    int64 `db:"abstain" json:"abstain"`
	NoWithVeto int64 `db:"no_with_veto" json:"noWithVeto"`
	Voters     int64 `db:"voters" json:"voters"`
}
