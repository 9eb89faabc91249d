package service

import (
	"context"
	"encoding/json"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alitto/pond/v2"
	"github.com/canopy-network/explorerx/pkg/cache"
	"github.com/canopy-network/explorerx/pkg/db"
	indexermodels "github.com/canopy-network/explorerx/pkg/db/models/indexer"
	"github.com/canopy-network/explorerx/pkg/query"
	"github.com/canopy-network/explorerx/pkg/retry"
	"github.com/canopy-network/explorerx/pkg/rpc"
	"github.com/canopy-network/explorerx/pkg/stats"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

// fakeStore implements the methods exercised here; anything else panics on the nil interface.
type fakeStore struct {
	db.ExplorerStore

	blocks     []indexermodels.Block
	monikers   map[string]string
	validators []indexermodels.Validator
	uptimeErr  error
	fps        []indexermodels.FinalityProvider
	inflow     map[string]indexermodels.PeriodCounts
	proposals  []indexermodels.Proposal
	tokens     []indexermodels.Token
	delegs     []indexermodels.Delegation
	periods    map[indexermodels.Metric]indexermodels.PeriodCounts
	daily      []stats.DailyBucket
	earliest   time.Time

	compareCalls atomic.Int32
	windows      [2]stats.Window
}

func takeRows[T any](rows []T, plan *query.Plan) []T {
	if len(rows) > plan.Take+1 {
		return rows[:plan.Take+1]
	}
	return rows
}

func (f *fakeStore) ListBlocks(_ context.Context, plan *query.Plan) ([]indexermodels.Block, error) {
	return takeRows(f.blocks, plan), nil
}

func (f *fakeStore) GetBlock(_ context.Context, height int64) (*indexermodels.Block, error) {
	for _, b := range f.blocks {
		if b.Height == height {
			return &b, nil
		}
	}
	return nil, query.NotFound("block %d not found", height)
}

func (f *fakeStore) ValidatorMonikers(_ context.Context, keys []string) (map[string]string, error) {
	out := map[string]string{}
	for _, k := range keys {
		if m, ok := f.monikers[k]; ok {
			out[k] = m
		}
	}
	return out, nil
}

func (f *fakeStore) ListValidators(_ context.Context, plan *query.Plan) ([]indexermodels.Validator, error) {
	return takeRows(f.validators, plan), nil
}

func (f *fakeStore) ValidatorUptime(context.Context, []string) (map[string]indexermodels.ValidatorUptime, error) {
	return nil, f.uptimeErr
}

func (f *fakeStore) ListFinalityProviders(_ context.Context, plan *query.Plan) ([]indexermodels.FinalityProvider, error) {
	return takeRows(f.fps, plan), nil
}

func (f *fakeStore) FinalityProviderSigning(context.Context, []string) (map[string]indexermodels.FinalityProviderSigning, error) {
	return map[string]indexermodels.FinalityProviderSigning{}, nil
}

func (f *fakeStore) FinalityProviderDelegationCounts(_ context.Context, keys []string) (map[string]int64, error) {
	return map[string]int64{keys[0]: 3}, nil
}

func (f *fakeStore) FinalityProviderStakeInflow(_ context.Context, _ []string, current, prior stats.Window) (map[string]indexermodels.PeriodCounts, error) {
	f.windows = [2]stats.Window{current, prior}
	return f.inflow, nil
}

func (f *fakeStore) ListProposals(_ context.Context, plan *query.Plan) ([]indexermodels.Proposal, error) {
	return takeRows(f.proposals, plan), nil
}

func (f *fakeStore) ProposalTallies(context.Context, []int64) (map[int64]indexermodels.ProposalTally, error) {
	return map[int64]indexermodels.ProposalTally{2: {ProposalID: 2, Yes: 10, Voters: 1}}, nil
}

func (f *fakeStore) ListTokens(_ context.Context, plan *query.Plan) ([]indexermodels.Token, error) {
	return takeRows(f.tokens, plan), nil
}

func (f *fakeStore) TokenHolders(context.Context, []string) (map[string]int64, error) {
	return map[string]int64{}, nil
}

func (f *fakeStore) ListDelegations(_ context.Context, plan *query.Plan) ([]indexermodels.Delegation, error) {
	return takeRows(f.delegs, plan), nil
}

func (f *fakeStore) FinalityProviderMonikers(context.Context, []string) (map[string]string, error) {
	return map[string]string{"aa": "Provider A"}, nil
}

func (f *fakeStore) EarliestBlockTime(context.Context) (time.Time, error) {
	return f.earliest, nil
}

func (f *fakeStore) ComparePeriods(_ context.Context, metric indexermodels.Metric, current, prior stats.Window) (indexermodels.PeriodCounts, error) {
	f.compareCalls.Add(1)
	if !current.Start.Equal(prior.End) {
		return indexermodels.PeriodCounts{}, errors.New("windows not contiguous")
	}
	return f.periods[metric], nil
}

func (f *fakeStore) DailySeries(context.Context, indexermodels.Metric, time.Time, time.Time) ([]stats.DailyBucket, error) {
	return f.daily, nil
}

var testNow = time.Date(2025, 3, 10, 15, 30, 0, 0, time.UTC)

func newTestService(t *testing.T, store db.ExplorerStore) *Service {
	t.Helper()
	pool := pond.NewPool(4)
	t.Cleanup(pool.StopAndWait)
	s := New(store, nil, pool, nil, zaptest.NewLogger(t))
	s.Now = func() time.Time { return testNow }
	return s
}

func TestListBlocks_EnrichesAndPages(t *testing.T) {
	store := &fakeStore{
		blocks: []indexermodels.Block{
			{Height: 10, ProposerAddress: "valA"},
			{Height: 9, ProposerAddress: "valB"},
			{Height: 8, ProposerAddress: "valA"},
		},
		monikers: map[string]string{"valA": "alpha"},
	}
	s := newTestService(t, store)

	page, err := s.ListBlocks(context.Background(), query.ListQuery{Take: 2, Desc: true})
	require.NoError(t, err)
	require.Len(t, page.Items, 2)
	assert.True(t, page.HasNextPage())
	assert.Equal(t, "alpha", page.Items[0].ProposerMoniker)
	assert.Equal(t, UnknownMoniker, page.Items[1].ProposerMoniker)
	assert.Equal(t, int64(9), page.Items[1].Height)
}

func TestGetBlock(t *testing.T) {
	store := &fakeStore{blocks: []indexermodels.Block{{Height: 5, ProposerAddress: "valA"}}, monikers: map[string]string{"valA": "alpha"}}
	s := newTestService(t, store)

	blk, err := s.GetBlock(context.Background(), 5)
	require.NoError(t, err)
	assert.Equal(t, "alpha", blk.ProposerMoniker)

	_, err = s.GetBlock(context.Background(), 6)
	assert.ErrorIs(t, err, query.ErrNotFound)

	_, err = s.GetBlock(context.Background(), 0)
	assert.ErrorIs(t, err, query.ErrValidation)
}

func TestListValidators_SourceFailureKeepsRows(t *testing.T) {
	share := 0.4
	store := &fakeStore{
		validators: []indexermodels.Validator{
			{OperatorAddress: "op1", ConsensusAddress: "c1", VotingPowerShare: &share},
			{OperatorAddress: "op2", ConsensusAddress: "c2"},
		},
		uptimeErr: errors.New("view missing"),
	}
	s := newTestService(t, store)

	page, err := s.ListValidators(context.Background(), query.ListQuery{Take: 10, Desc: true})
	require.NoError(t, err)
	require.Len(t, page.Items, 2)
	for _, v := range page.Items {
		assert.Nil(t, v.Uptime)
	}
	assert.False(t, page.HasNextPage())
}

func TestListFinalityProviders_StakeInflowGrowth(t *testing.T) {
	store := &fakeStore{
		fps:    []indexermodels.FinalityProvider{{BtcPk: "aa", ActiveSats: 150_000_000}, {BtcPk: "bb"}},
		inflow: map[string]indexermodels.PeriodCounts{"aa": {Current: 150, Prior: 100}},
	}
	s := newTestService(t, store)

	page, err := s.ListFinalityProviders(context.Background(), query.ListQuery{Take: 10, Desc: true}, 0)
	require.NoError(t, err)
	require.Len(t, page.Items, 2)

	aa := page.Items[0]
	require.NotNil(t, aa.StakeInflow.Percentage)
	assert.Equal(t, 50.0, *aa.StakeInflow.Percentage)
	assert.Equal(t, int64(3), aa.ActiveDelegations)
	assert.Nil(t, aa.Signing)
	assert.Equal(t, "1.5", aa.ActiveBtc.String())

	bb := page.Items[1]
	assert.Nil(t, bb.StakeInflow.Percentage)
	assert.Zero(t, bb.ActiveDelegations)

	current, prior := store.windows[0], store.windows[1]
	assert.Equal(t, testNow, current.End)
	assert.Equal(t, DefaultGrowthDays*24*time.Hour, current.End.Sub(current.Start))
	assert.Equal(t, current.Start, prior.End)

	_, err = s.ListFinalityProviders(context.Background(), query.ListQuery{Take: 10}, 400)
	assert.ErrorIs(t, err, query.ErrValidation)
}

func TestListProposals_ZeroTallyDefault(t *testing.T) {
	store := &fakeStore{proposals: []indexermodels.Proposal{{ID: 2}, {ID: 1}}}
	s := newTestService(t, store)

	page, err := s.ListProposals(context.Background(), query.ListQuery{Take: 10, Desc: true})
	require.NoError(t, err)
	require.Len(t, page.Items, 2)
	assert.Equal(t, int64(10), page.Items[0].Tally.Yes)
	assert.Equal(t, indexermodels.ProposalTally{ProposalID: 1}, page.Items[1].Tally)
}

func TestListTokens_DisplaySupply(t *testing.T) {
	store := &fakeStore{tokens: []indexermodels.Token{
		{Denom: "ubbn", Decimals: 6, TotalSupply: "10000000000000000000001"},
		{Denom: "ibc/ABC", Decimals: 6, TotalSupply: ""},
	}}
	s := newTestService(t, store)

	page, err := s.ListTokens(context.Background(), query.ListQuery{Take: 10})
	require.NoError(t, err)
	require.Len(t, page.Items, 2)
	require.NotNil(t, page.Items[0].DisplaySupply)
	assert.Equal(t, "10000000000000000.000001", page.Items[0].DisplaySupply.String())
	assert.Nil(t, page.Items[1].DisplaySupply)

	out, err := json.Marshal(page.Items[0])
	require.NoError(t, err)
	assert.Contains(t, string(out), `"displaySupply":"10000000000000000.000001"`)
}

func TestListDelegations_AmountBtc(t *testing.T) {
	store := &fakeStore{delegs: []indexermodels.Delegation{
		{StakingTxHash: "t1", FpBtcPk: "aa", AmountSats: 25_000_000},
		{StakingTxHash: "t2", FpBtcPk: "zz", AmountSats: 1},
	}}
	s := newTestService(t, store)

	page, err := s.ListDelegations(context.Background(), query.ListQuery{Take: 10, Desc: true})
	require.NoError(t, err)
	require.Len(t, page.Items, 2)
	assert.Equal(t, "0.25", page.Items[0].AmountBtc.String())
	assert.Equal(t, "Provider A", page.Items[0].FinalityProviderMoniker)
	assert.Equal(t, "0.00000001", page.Items[1].AmountBtc.String())
	assert.Equal(t, UnknownMoniker, page.Items[1].FinalityProviderMoniker)
}

func TestOverview(t *testing.T) {
	store := &fakeStore{periods: map[indexermodels.Metric]indexermodels.PeriodCounts{
		indexermodels.MetricTransactions:   {Current: 150, Prior: 100},
		indexermodels.MetricActiveAccounts: {Current: 50, Prior: 100},
		indexermodels.MetricFees:           {Current: 10, Prior: 0},
	}}
	s := newTestService(t, store)
	s.Cache = cache.NewLoader(cache.NewMemory(), time.Minute, zaptest.NewLogger(t))

	ov, err := s.Overview(context.Background(), 7)
	require.NoError(t, err)
	assert.Equal(t, 7, ov.IntervalDays)
	require.NotNil(t, ov.Transactions.Percentage)
	assert.Equal(t, 50.0, *ov.Transactions.Percentage)
	assert.Equal(t, -50.0, *ov.ActiveAccounts.Percentage)
	assert.Nil(t, ov.Fees.Percentage)
	assert.Equal(t, int64(10), ov.Fees.Delta)
	assert.Nil(t, ov.Staked.Percentage)
	assert.Equal(t, ov.Current.Start, ov.Prior.End)
	assert.Equal(t, int32(4), store.compareCalls.Load())

	cached, err := s.Overview(context.Background(), 7)
	require.NoError(t, err)
	assert.Equal(t, ov.Transactions, cached.Transactions)
	assert.Equal(t, int32(4), store.compareCalls.Load())
}

func TestOverview_IntervalValidation(t *testing.T) {
	store := &fakeStore{earliest: testNow.AddDate(0, 0, -3)}
	s := newTestService(t, store)

	_, err := s.Overview(context.Background(), 366)
	assert.ErrorIs(t, err, query.ErrValidation)
	_, err = s.Overview(context.Background(), -1)
	assert.ErrorIs(t, err, query.ErrValidation)

	ov, err := s.Overview(context.Background(), 0)
	require.NoError(t, err)
	assert.Equal(t, 1, ov.IntervalDays)
}

func TestOverview_DefaultIntervalFitsHistory(t *testing.T) {
	earliest := testNow.AddDate(0, 0, -30)
	s := newTestService(t, &fakeStore{earliest: earliest})

	ov, err := s.Overview(context.Background(), 0)
	require.NoError(t, err)
	assert.Equal(t, 15, ov.IntervalDays)
	assert.False(t, ov.Prior.Start.Before(earliest), "prior window %v starts before %v", ov.Prior.Start, earliest)

	series, err := s.Daily(context.Background(), "transactions", 0)
	require.NoError(t, err)
	assert.Equal(t, 30, series.IntervalDays)
}

func TestDaily_GapFill(t *testing.T) {
	day := func(d int) int64 { return time.Date(2025, 3, d, 0, 0, 0, 0, time.UTC).Unix() }
	store := &fakeStore{daily: []stats.DailyBucket{{Timestamp: day(7), Value: 5}, {Timestamp: day(9), Value: 2}}}
	s := newTestService(t, store)

	series, err := s.Daily(context.Background(), "transactions", 5)
	require.NoError(t, err)
	values := make([]int64, 0, len(series.Items))
	for _, b := range series.Items {
		values = append(values, b.Value)
	}
	assert.Equal(t, []int64{0, 5, 0, 2, 0}, values)
	assert.Equal(t, day(6), series.Items[0].Timestamp)
	assert.Equal(t, day(10), series.Items[4].Timestamp)

	_, err = s.Daily(context.Background(), "active_accounts", 5)
	assert.ErrorIs(t, err, query.ErrValidation)
	_, err = s.Daily(context.Background(), "transactions", 400)
	assert.ErrorIs(t, err, query.ErrValidation)
}

type fakeChain struct{ rpc.Client }

func (fakeChain) ChainHead(context.Context) (rpc.Head, error) { return rpc.Head{Height: 42}, nil }
func (fakeChain) Balances(context.Context, string) ([]rpc.Coin, error) {
	return []rpc.Coin{{Denom: "ubbn", Amount: "1"}}, nil
}
func (fakeChain) Delegations(context.Context, string) ([]rpc.Delegation, error) { return nil, nil }
func (fakeChain) Rewards(context.Context, string) ([]rpc.Coin, error)           { return nil, nil }

func TestAccount(t *testing.T) {
	s := newTestService(t, &fakeStore{})

	_, err := s.Account(context.Background(), "bbn1abc")
	assert.ErrorIs(t, err, query.ErrUpstream)

	s.Chain = rpc.NewLazyWith(func(context.Context) (rpc.Client, error) {
		return nil, errors.New("dial tcp: connection refused")
	}, retry.Config{MaxRetries: 1}, zaptest.NewLogger(t))
	_, err = s.Account(context.Background(), "bbn1abc")
	assert.ErrorIs(t, err, query.ErrUpstream)

	s.Chain = rpc.NewLazyWith(func(context.Context) (rpc.Client, error) {
		return fakeChain{}, nil
	}, retry.Config{MaxRetries: 1}, zaptest.NewLogger(t))
	acc, err := s.Account(context.Background(), "bbn1abc")
	require.NoError(t, err)
	assert.Equal(t, int64(42), acc.Height)
	assert.Len(t, acc.Balances, 1)
	assert.Empty(t, acc.Delegations)

	_, err = s.Account(context.Background(), " ")
	assert.ErrorIs(t, err, query.ErrValidation)
}
