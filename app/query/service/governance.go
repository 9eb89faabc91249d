package service

import (
	"context"
	"strings"

	indexermodels "github.com/canopy-network/explorerx/pkg/db/models/indexer"
	"github.com/canopy-network/explorerx/pkg/enrich"
	"github.com/canopy-network/explorerx/pkg/query"
	"github.com/canopy-network/explorerx/pkg/stats"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// Proposal is a governance proposal with its vote tally. Proposals without votes carry a zero tally.
type Proposal struct {
	indexermodels.Proposal
	Tally indexermodels.ProposalTally `json:"tally"`
}

// Token is a denomination with the number of accounts holding a positive
// balance. DisplaySupply is nil when the stored supply is not an integer.
type Token struct {
	indexermodels.Token
	DisplaySupply *decimal.Decimal `json:"displaySupply"`
	Holders       int64            `json:"holders"`
}

func (s *Service) ListProposals(ctx context.Context, q query.ListQuery) (query.Page[Proposal], error) {
	page, err := listPage(ctx, indexermodels.ProposalSpec, q, s.Store.ListProposals)
	if err != nil {
		return query.Page[Proposal]{}, err
	}
	rows, err := s.enrichProposals(ctx, page.Items)
	if err != nil {
		return query.Page[Proposal]{}, err
	}
	return query.Page[Proposal]{Items: rows, NextCursor: page.NextCursor}, nil
}

func (s *Service) GetProposal(ctx context.Context, id int64) (*Proposal, error) {
	if id <= 0 {
		return nil, query.Invalid("proposal id must be positive")
	}
	row, err := s.Store.GetProposal(ctx, id)
	return detail(ctx, row, err, s.enrichProposals)
}

func (s *Service) enrichProposals(ctx context.Context, proposals []indexermodels.Proposal) ([]Proposal, error) {
	b := s.batch()
	tallies := enrich.Add(b, "proposal_tallies",
		enrich.Keys(proposals, func(p indexermodels.Proposal) int64 { return p.ID }),
		s.Store.ProposalTallies)
	if err := b.Run(ctx); err != nil {
		return nil, err
	}

	out := make([]Proposal, len(proposals))
	for i, p := range proposals {
		tally := tallies.Or(p.ID, indexermodels.ProposalTally{})
		tally.ProposalID = p.ID
		out[i] = Proposal{Proposal: p, Tally: tally}
	}
	return out, nil
}

func (s *Service) ListTokens(ctx context.Context, q query.ListQuery) (query.Page[Token], error) {
	page, err := listPage(ctx, indexermodels.TokenSpec, q, s.Store.ListTokens)
	if err != nil {
		return query.Page[Token]{}, err
	}
	rows, err := s.enrichTokens(ctx, page.Items)
	if err != nil {
		return query.Page[Token]{}, err
	}
	return query.Page[Token]{Items: rows, NextCursor: page.NextCursor}, nil
}

// GetToken looks up a denom. IBC denoms contain a slash and arrive unescaped.
func (s *Service) GetToken(ctx context.Context, denom string) (*Token, error) {
	denom = strings.TrimSpace(denom)
	if denom == "" {
		return nil, query.Invalid("denom is required")
	}
	row, err := s.Store.GetToken(ctx, denom)
	return detail(ctx, row, err, s.enrichTokens)
}

func (s *Service) enrichTokens(ctx context.Context, tokens []indexermodels.Token) ([]Token, error) {
	b := s.batch()
	holders := enrich.Add(b, "token_holders",
		enrich.Keys(tokens, func(t indexermodels.Token) string { return t.Denom }),
		s.Store.TokenHolders)
	if err := b.Run(ctx); err != nil {
		return nil, err
	}

	out := make([]Token, len(tokens))
	for i, t := range tokens {
		out[i] = Token{Token: t, Holders: holders.Or(t.Denom, 0)}
		if supply, err := stats.DisplayText(t.TotalSupply, t.Decimals); err == nil {
			out[i].DisplaySupply = &supply
		} else {
			s.Logger.Debug("Token supply not displayable", zap.String("denom", t.Denom), zap.Error(err))
		}
	}
	return out, nil
}
