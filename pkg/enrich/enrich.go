// Package enrich joins auxiliary data onto a page of rows. Each source is
// queried once per page with the page's keys, sources run concurrently on a
// shared pond pool, and the join happens in memory. Rows are never dropped:
// a key without a match (logged at debug) or a source that fails (logged at
// warn) yields the caller's default.
package enrich

import (
	"context"
	"errors"
	"sync"

	"github.com/alitto/pond/v2"
	"go.uber.org/zap"
)

// Lookup fetches values for a batch of keys. Keys without a value are simply absent from the map.
type Lookup[K comparable, V any] func(ctx context.Context, keys []K) (map[K]V, error)

// Result holds one source's matches once the batch has run.
type Result[K comparable, V any] struct {
	name   string
	mu     sync.Mutex
	values map[K]V
	misses int
	err    error
}

// Get returns the value for k and whether the source had one.
func (r *Result[K, V]) Get(k K) (V, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	v, ok := r.values[k]
	return v, ok
}

// Or returns the value for k or def.
func (r *Result[K, V]) Or(k K, def V) V {
	if v, ok := r.Get(k); ok {
		return v
	}
	return def
}

// Ptr returns a pointer to the value for k, nil on a miss.
func (r *Result[K, V]) Ptr(k K) *V {
	if v, ok := r.Get(k); ok {
		return &v
	}
	return nil
}

// Misses counts the requested keys the source had no value for.
func (r *Result[K, V]) Misses() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.misses
}

// Err is the source's failure, if any.
func (r *Result[K, V]) Err() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.err
}

type task struct {
	name string
	keys int
	run  func(ctx context.Context) error
}

// Batch collects the lookups for one page.
type Batch struct {
	pool   pond.Pool
	logger *zap.Logger
	tasks  []task
}

// NewBatch returns a batch that runs on pool. A nil pool runs sources sequentially.
func NewBatch(pool pond.Pool, logger *zap.Logger) *Batch {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Batch{pool: pool, logger: logger}
}

// Add registers a source for keys. Empty key sets never reach the source.
func Add[K comparable, V any](b *Batch, name string, keys []K, fetch Lookup[K, V]) *Result[K, V] {
	r := &Result[K, V]{name: name, values: map[K]V{}}
	if len(keys) == 0 {
		return r
	}
	b.tasks = append(b.tasks, task{
		name: name,
		keys: len(keys),
		run: func(ctx context.Context) error {
			values, err := fetch(ctx, keys)
			r.mu.Lock()
			defer r.mu.Unlock()
			if err != nil {
				r.err = err
				return err
			}
			if values != nil {
				r.values = values
			}
			for _, k := range keys {
				if _, ok := r.values[k]; !ok {
					r.misses++
				}
			}
			if r.misses > 0 {
				b.logger.Debug("enrichment source missing keys, using defaults",
					zap.String("source", name),
					zap.Int("keys", len(keys)),
					zap.Int("misses", r.misses))
			}
			return nil
		},
	})
	return r
}

// Run executes every registered source and waits for all of them.
// Source failures are logged and leave that source's matches empty;
// only cancellation of ctx is returned.
func (b *Batch) Run(ctx context.Context) error {
	if len(b.tasks) == 0 {
		return nil
	}

	if b.pool == nil {
		for _, t := range b.tasks {
			if err := ctx.Err(); err != nil {
				return err
			}
			b.report(t, t.run(ctx))
		}
		return ctx.Err()
	}

	group := b.pool.NewGroupContext(ctx)
	groupCtx := group.Context()
	for _, t := range b.tasks {
		group.Submit(func() {
			if err := groupCtx.Err(); err != nil {
				return
			}
			b.report(t, t.run(groupCtx))
		})
	}

	if err := group.Wait(); err != nil && !errors.Is(err, context.Canceled) && !errors.Is(err, pond.ErrGroupStopped) {
		b.logger.Warn("enrichment batch encountered error", zap.Error(err))
	}
	return ctx.Err()
}

func (b *Batch) report(t task, err error) {
	if err == nil || errors.Is(err, context.Canceled) {
		return
	}
	b.logger.Warn("enrichment source failed, using defaults",
		zap.String("source", t.name),
		zap.Int("keys", t.keys),
		zap.Error(err),
	)
}

// Keys collects the distinct non-zero keys of rows in first-seen order.
func Keys[T any, K comparable](rows []T, key func(T) K) []K {
	var zero K
	seen := make(map[K]struct{}, len(rows))
	out := make([]K, 0, len(rows))
	for _, row := range rows {
		k := key(row)
		if k == zero {
			continue
		}
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, k)
	}
	return out
}
