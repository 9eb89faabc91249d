package chain

import (
	"context"
	"fmt"

	indexermodels "github.com/canopy-network/explorerx/pkg/db/models/indexer"
	"github.com/canopy-network/explorerx/pkg/query"
)

const proposalSelect = `
	SELECT p.id, p.title, p.proposal_type, p.status, p.proposer, p.submit_time,
	       p.voting_end_time, p.total_deposit
	FROM proposals p`

// ListProposals returns up to plan.Take+1 proposals.
func (db *DB) ListProposals(ctx context.Context, plan *query.Plan) ([]indexermodels.Proposal, error) {
	return list[indexermodels.Proposal](ctx, db, "ListProposals", plan, proposalSelect)
}

// GetProposal retrieves a proposal by id
func (db *DB) GetProposal(ctx context.Context, id int64) (*indexermodels.Proposal, error) {
	return one[indexermodels.Proposal](ctx, db, "GetProposal", fmt.Sprintf("proposal %d", id),
		proposalSelect+` WHERE p.id = $1`, id)
}

// ProposalTallies sums vote weight per option for each proposal in one query.
func (db *DB) ProposalTallies(ctx context.Context, ids []int64) (map[int64]indexermodels.ProposalTally, error) {
	rows, err := selectRows[indexermodels.ProposalTally](ctx, db, "ProposalTallies", `
		SELECT proposal_id,
		       COALESCE(SUM(weight) FILTER (WHERE option = 'yes'), 0)::bigint AS yes,
		       COALESCE(SUM(weight) FILTER (WHERE option = 'no'), 0)::bigint AS no,
		       COALESCE(SUM(weight) FILTER (WHERE option = 'abstain'), 0)::bigint AS abstain,
		       COALESCE(SUM(weight) FILTER (WHERE option = 'no_with_veto'), 0)::bigint AS no_with_veto,
		       COUNT(DISTINCT voter) AS voters
		FROM proposal_votes
		WHERE proposal_id = ANY($1)
		GROUP BY proposal_id`, ids)
	if err != nil {
		return nil, err
	}
	out := make(map[int64]indexermodels.ProposalTally, len(rows))
	for _, r := range rows {
		out[r.ProposalID] = r
	}
	return out, nil
}
