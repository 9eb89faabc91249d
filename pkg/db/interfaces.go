package db

import (
	"context"
	"time"

	"github.com/canopy-network/explorerx/pkg/db/models/indexer"
	"github.com/canopy-network/explorerx/pkg/query"
	"github.com/canopy-network/explorerx/pkg/stats"
)

// ExplorerStore is the read surface the query service needs from the indexer database.
// List methods return up to plan.Take+1 rows in plan order so the pager can detect a next page.
// Get methods return a query.KindNotFound error when nothing matches.
type ExplorerStore interface {
	Ping(ctx context.Context) error
	Close() error

	ListBlocks(ctx context.Context, plan *query.Plan) ([]indexer.Block, error)
	GetBlock(ctx context.Context, height int64) (*indexer.Block, error)
	EarliestBlockTime(ctx context.Context) (time.Time, error)

	ListTransactions(ctx context.Context, plan *query.Plan) ([]indexer.Transaction, error)
	GetTransaction(ctx context.Context, hash string) (*indexer.Transaction, error)

	ListValidators(ctx context.Context, plan *query.Plan) ([]indexer.Validator, error)
	GetValidator(ctx context.Context, address string) (*indexer.Validator, error)
	ValidatorMonikers(ctx context.Context, consensusAddresses []string) (map[string]string, error)
	ValidatorUptime(ctx context.Context, consensusAddresses []string) (map[string]indexer.ValidatorUptime, error)

	ListFinalityProviders(ctx context.Context, plan *query.Plan) ([]indexer.FinalityProvider, error)
	GetFinalityProvider(ctx context.Context, btcPk string) (*indexer.FinalityProvider, error)
	FinalityProviderMonikers(ctx context.Context, btcPks []string) (map[string]string, error)
	FinalityProviderSigning(ctx context.Context, btcPks []string) (map[string]indexer.FinalityProviderSigning, error)
	FinalityProviderDelegationCounts(ctx context.Context, btcPks []string) (map[string]int64, error)
	FinalityProviderStakeInflow(ctx context.Context, btcPks []string, current, prior stats.Window) (map[string]indexer.PeriodCounts, error)

	ListDelegations(ctx context.Context, plan *query.Plan) ([]indexer.Delegation, error)
	GetDelegation(ctx context.Context, stakingTxHash string) (*indexer.Delegation, error)

	ListProposals(ctx context.Context, plan *query.Plan) ([]indexer.Proposal, error)
	GetProposal(ctx context.Context, id int64) (*indexer.Proposal, error)
	ProposalTallies(ctx context.Context, ids []int64) (map[int64]indexer.ProposalTally, error)

	ListTokens(ctx context.Context, plan *query.Plan) ([]indexer.Token, error)
	GetToken(ctx context.Context, denom string) (*indexer.Token, error)
	TokenHolders(ctx context.Context, denoms []string) (map[string]int64, error)

	ComparePeriods(ctx context.Context, metric indexer.Metric, current, prior stats.Window) (indexer.PeriodCounts, error)
	DailySeries(ctx context.Context, metric indexer.Metric, from, to time.Time) ([]stats.DailyBucket, error)
}

// ViewMaintainer owns the materialized views behind uptime and inclusion rates.
type ViewMaintainer interface {
	EnsureViews(ctx context.Context) error
	RefreshViews(ctx context.Context) error
	Close() error
}
