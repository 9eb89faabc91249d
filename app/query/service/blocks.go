package service

import (
	"context"

	indexermodels "github.com/canopy-network/explorerx/pkg/db/models/indexer"
	"github.com/canopy-network/explorerx/pkg/enrich"
	"github.com/canopy-network/explorerx/pkg/query"
)

// Block is a block with its proposer's moniker.
type Block struct {
	indexermodels.Block
	ProposerMoniker string `json:"proposerMoniker"`
}

func (s *Service) ListBlocks(ctx context.Context, q query.ListQuery) (query.Page[Block], error) {
	page, err := listPage(ctx, indexermodels.BlockSpec, q, s.Store.ListBlocks)
	if err != nil {
		return query.Page[Block]{}, err
	}
	rows, err := s.enrichBlocks(ctx, page.Items)
	if err != nil {
		return query.Page[Block]{}, err
	}
	return query.Page[Block]{Items: rows, NextCursor: page.NextCursor}, nil
}

func (s *Service) GetBlock(ctx context.Context, height int64) (*Block, error) {
	if height <= 0 {
		return nil, query.Invalid("height must be positive")
	}
	row, err := s.Store.GetBlock(ctx, height)
	return detail(ctx, row, err, s.enrichBlocks)
}

func (s *Service) enrichBlocks(ctx context.Context, blocks []indexermodels.Block) ([]Block, error) {
	b := s.batch()
	monikers := enrich.Add(b, "validator_monikers",
		enrich.Keys(blocks, func(b indexermodels.Block) string { return b.ProposerAddress }),
		s.Store.ValidatorMonikers)
	if err := b.Run(ctx); err != nil {
		return nil, err
	}

	out := make([]Block, len(blocks))
	for i, blk := range blocks {
		out[i] = Block{Block: blk, ProposerMoniker: monikers.Or(blk.ProposerAddress, UnknownMoniker)}
	}
	return out, nil
}

func (s *Service) ListTransactions(ctx context.Context, q query.ListQuery) (query.Page[indexermodels.Transaction], error) {
	return listPage(ctx, indexermodels.TransactionSpec, q, s.Store.ListTransactions)
}

func (s *Service) GetTransaction(ctx context.Context, hash string) (*indexermodels.Transaction, error) {
	if hash == "" {
		return nil, query.Invalid("hash is required")
	}
	return s.Store.GetTransaction(ctx, hash)
}
