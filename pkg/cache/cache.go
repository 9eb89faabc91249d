// Package cache stores computed aggregates for a short time so repeated
// stats requests do not rescan the store. Redis backs it when enabled,
// otherwise an in-process map does.
package cache

import (
	"context"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

// Cache stores JSON-serializable values with a TTL.
type Cache interface {
	// Get decodes the value under key into dest and reports whether it was present.
	Get(ctx context.Context, key string, dest any) (bool, error)
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
}

// DefaultLoadTimeout bounds a shared load once it is detached from the caller.
const DefaultLoadTimeout = 30 * time.Second

// Loader wraps a Cache with single-flight loading so concurrent misses for
// one key hit the store once.
type Loader struct {
	cache  Cache
	ttl    time.Duration
	logger *zap.Logger
	group  singleflight.Group

	// LoadTimeout bounds the shared load. It runs detached from any one
	// caller's cancellation, so a departing caller cannot fail the others.
	LoadTimeout time.Duration
}

func NewLoader(c Cache, ttl time.Duration, logger *zap.Logger) *Loader {
	return &Loader{cache: c, ttl: ttl, logger: logger, LoadTimeout: DefaultLoadTimeout}
}

// Load returns the cached value for key or computes it with load and caches
// the result. Cache failures are logged and fall through to load.
func Load[T any](ctx context.Context, l *Loader, key string, load func(ctx context.Context) (T, error)) (T, error) {
	var cached T
	if l == nil || l.cache == nil || l.ttl <= 0 {
		return load(ctx)
	}

	ok, err := l.cache.Get(ctx, key, &cached)
	if err != nil {
		l.logger.Warn("Cache read failed", zap.String("key", key), zap.Error(err))
	}
	if ok {
		return cached, nil
	}

	timeout := l.LoadTimeout
	if timeout <= 0 {
		timeout = DefaultLoadTimeout
	}
	ch := l.group.DoChan(key, func() (any, error) {
		loadCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), timeout)
		defer cancel()
		fresh, err := load(loadCtx)
		if err != nil {
			return fresh, err
		}
		if err := l.cache.Set(loadCtx, key, fresh, l.ttl); err != nil {
			l.logger.Warn("Cache write failed", zap.String("key", key), zap.Error(err))
		}
		return fresh, nil
	})

	var zero T
	select {
	case <-ctx.Done():
		return zero, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return zero, res.Err
		}
		return res.Val.(T), nil
	}
}
