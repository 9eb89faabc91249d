package service

import (
	"context"
	"strings"

	indexermodels "github.com/canopy-network/explorerx/pkg/db/models/indexer"
	"github.com/canopy-network/explorerx/pkg/enrich"
	"github.com/canopy-network/explorerx/pkg/query"
)

// Validator is a validator with its signing record over the uptime window.
// Uptime is nil until the validator appears in the uptime view.
type Validator struct {
	indexermodels.Validator
	Uptime *indexermodels.ValidatorUptime `json:"uptime"`
}

func (s *Service) ListValidators(ctx context.Context, q query.ListQuery) (query.Page[Validator], error) {
	page, err := listPage(ctx, indexermodels.ValidatorSpec, q, s.Store.ListValidators)
	if err != nil {
		return query.Page[Validator]{}, err
	}
	rows, err := s.enrichValidators(ctx, page.Items)
	if err != nil {
		return query.Page[Validator]{}, err
	}
	return query.Page[Validator]{Items: rows, NextCursor: page.NextCursor}, nil
}

func (s *Service) GetValidator(ctx context.Context, address string) (*Validator, error) {
	address = strings.TrimSpace(address)
	if address == "" {
		return nil, query.Invalid("address is required")
	}
	row, err := s.Store.GetValidator(ctx, address)
	return detail(ctx, row, err, s.enrichValidators)
}

func (s *Service) enrichValidators(ctx context.Context, validators []indexermodels.Validator) ([]Validator, error) {
	b := s.batch()
	uptime := enrich.Add(b, "validator_uptime",
		enrich.Keys(validators, func(v indexermodels.Validator) string { return v.ConsensusAddress }),
		s.Store.ValidatorUptime)
	if err := b.Run(ctx); err != nil {
		return nil, err
	}

	out := make([]Validator, len(validators))
	for i, v := range validators {
		out[i] = Validator{Validator: v, Uptime: uptime.Ptr(v.ConsensusAddress)}
	}
	return out, nil
}
