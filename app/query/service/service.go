// Package service assembles explorer responses: it plans and pages list
// queries, joins auxiliary sources onto each page and computes the stats
// payloads. Handlers in app/query/controller only translate HTTP.
package service

import (
	"context"
	"errors"
	"time"

	"github.com/alitto/pond/v2"
	"github.com/canopy-network/explorerx/pkg/cache"
	"github.com/canopy-network/explorerx/pkg/db"
	"github.com/canopy-network/explorerx/pkg/enrich"
	"github.com/canopy-network/explorerx/pkg/query"
	"github.com/canopy-network/explorerx/pkg/rpc"
	"go.uber.org/zap"
)

// UnknownMoniker is the display name for addresses without a registered validator or provider.
const UnknownMoniker = "unknown"

type Service struct {
	Store  db.ExplorerStore
	Cache  *cache.Loader
	Pool   pond.Pool
	Chain  *rpc.Lazy
	Logger *zap.Logger

	// Now is the clock for stats windows.
	Now func() time.Time
}

// New returns a service. Cache, pool and chain may be nil: aggregates are then
// uncached, lookups run sequentially and account queries report upstream errors.
func New(store db.ExplorerStore, loader *cache.Loader, pool pond.Pool, chain *rpc.Lazy, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		Store:  store,
		Cache:  loader,
		Pool:   pool,
		Chain:  chain,
		Logger: logger,
		Now:    time.Now,
	}
}

func (s *Service) now() time.Time {
	if s.Now == nil {
		return time.Now().UTC()
	}
	return s.Now().UTC()
}

func (s *Service) batch() *enrich.Batch {
	return enrich.NewBatch(s.Pool, s.Logger)
}

// listPage plans q against spec, fetches take+1 rows and trims them into a page.
func listPage[T query.Keyed](ctx context.Context, spec *query.Spec, q query.ListQuery, fetch func(context.Context, *query.Plan) ([]T, error)) (query.Page[T], error) {
	plan, err := spec.Plan(q)
	if err != nil {
		return query.Page[T]{}, err
	}
	rows, err := fetch(ctx, plan)
	if err != nil {
		return query.Page[T]{}, err
	}
	return query.Paginate(plan, rows)
}

// detail wraps a single-row lookup so it can share the list enrichment.
func detail[T, U any](ctx context.Context, row *T, err error, enrichRows func(context.Context, []T) ([]U, error)) (*U, error) {
	if err != nil {
		return nil, err
	}
	out, err := enrichRows(ctx, []T{*row})
	if err != nil {
		return nil, err
	}
	return &out[0], nil
}

// parallel runs fns on the pool and returns the first failure.
func (s *Service) parallel(ctx context.Context, fns ...func(context.Context) error) error {
	errs := make([]error, len(fns))
	if s.Pool == nil {
		for i, fn := range fns {
			if errs[i] = fn(ctx); errs[i] != nil {
				return errs[i]
			}
		}
		return nil
	}

	group := s.Pool.NewGroupContext(ctx)
	groupCtx := group.Context()
	for i, fn := range fns {
		group.Submit(func() {
			if err := groupCtx.Err(); err != nil {
				errs[i] = err
				return
			}
			errs[i] = fn(groupCtx)
		})
	}
	if err := group.Wait(); err != nil && !errors.Is(err, context.Canceled) && !errors.Is(err, pond.ErrGroupStopped) {
		s.Logger.Warn("parallel aggregate fetch encountered error", zap.Error(err))
	}
	for _, err := range errs {
		if err != nil {
			return err
		}
	}
	return ctx.Err()
}
