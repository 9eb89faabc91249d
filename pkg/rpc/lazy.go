package rpc

import (
	"context"
	"errors"
	"sync/atomic"

	"github.com/canopy-network/explorerx/pkg/query"
	"github.com/canopy-network/explorerx/pkg/retry"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

// BuildFunc constructs a client and proves it can reach the node.
type BuildFunc func(ctx context.Context) (Client, error)

type holder struct{ c Client }

// Lazy owns the chain client. It connects once, shared by every caller through
// singleflight, and keeps retrying in the background until it succeeds.
// Until then Client reports query.ErrUpstream.
type Lazy struct {
	build  BuildFunc
	retry  retry.Config
	logger *zap.Logger

	client atomic.Pointer[holder]
	group  singleflight.Group
}

// NewLazy returns a handle that builds an HTTPClient from opts and checks it can read the chain head.
func NewLazy(opts Opts, logger *zap.Logger) *Lazy {
	return NewLazyWith(func(ctx context.Context) (Client, error) {
		if len(opts.Endpoints) == 0 {
			return nil, ErrNoEndpoints
		}
		c := NewHTTPWithOpts(opts)
		if _, err := c.ChainHead(ctx); err != nil {
			return nil, err
		}
		return c, nil
	}, retry.Forever(), logger)
}

// NewLazyWith returns a handle over an arbitrary build function.
func NewLazyWith(build BuildFunc, cfg retry.Config, logger *zap.Logger) *Lazy {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Lazy{build: build, retry: cfg, logger: logger}
}

// Start connects in the background until it succeeds or ctx is done.
// The returned channel closes when the loop exits.
func (l *Lazy) Start(ctx context.Context) <-chan struct{} {
	done := make(chan struct{})
	go func() {
		defer close(done)
		err := retry.WithBackoff(ctx, l.retry, l.logger, "chain rpc connect", func(ctx context.Context, _ int) error {
			_, err := l.connect(ctx)
			if errors.Is(err, ErrNoEndpoints) {
				return retry.Permanent(err)
			}
			return err
		})
		switch {
		case l.Ready():
			l.logger.Info("chain rpc ready")
		case errors.Is(err, ErrNoEndpoints):
			l.logger.Warn("chain rpc disabled, no endpoints configured")
		case ctx.Err() == nil:
			l.logger.Error("chain rpc connect gave up", zap.Error(err))
		}
	}()
	return done
}

// Ready reports whether a connected client is available.
func (l *Lazy) Ready() bool {
	return l.client.Load() != nil
}

// Client returns the connected client. When none exists it joins (or starts) one
// connect attempt bounded by ctx and reports query.ErrUpstream if that fails.
func (l *Lazy) Client(ctx context.Context) (Client, error) {
	if h := l.client.Load(); h != nil {
		return h.c, nil
	}
	c, err := l.connect(ctx)
	if err != nil {
		if errors.Is(err, ErrNoEndpoints) {
			return nil, query.Unavailable("chain rpc not configured", nil)
		}
		return nil, query.Unavailable("chain rpc not ready", err)
	}
	return c, nil
}

// connect joins the in-flight attempt or starts one, but waits no longer than
// ctx allows. An abandoned attempt keeps running for the callers still on it.
func (l *Lazy) connect(ctx context.Context) (Client, error) {
	ch := l.group.DoChan("connect", func() (any, error) {
		if h := l.client.Load(); h != nil {
			return h.c, nil
		}
		c, err := l.build(ctx)
		if err != nil {
			return nil, err
		}
		l.client.Store(&holder{c: c})
		return c, nil
	})
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(Client), nil
	}
}
