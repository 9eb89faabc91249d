package rpc

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"sync"
	"sync/atomic"
	"time"

	"github.com/canopy-network/explorerx/pkg/utils"
)

// maxPages caps how many pages ListPaged follows for a single address.
const maxPages = 20

// ErrNoEndpoints is returned when a client is built without endpoints.
var ErrNoEndpoints = errors.New("no endpoints configured")

// StatusError is a non-retryable HTTP response from the node (4xx).
type StatusError struct {
	Code int
	Path string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("http %d: %s", e.Code, e.Path)
}

// HTTPClient is a wrapper around an http.Client that implements a circuit-breaker and token-bucket.
type HTTPClient struct {
	endpoints []string
	client    *http.Client

	// token-bucket
	tokens      int64
	maxTokens   int64
	refillEvery time.Duration
	lastRefill  atomic.Value // time.Time

	// circuit-breaker
	mu       sync.Mutex
	failures map[string]int
	opened   map[string]time.Time

	breakerThreshold int
	breakerCooldown  time.Duration
}

// Opts is the set of options for a new HTTPClient.
type Opts struct {
	Endpoints       []string
	Timeout         time.Duration
	RPS             int
	Burst           int
	BreakerFailures int
	BreakerCooldown time.Duration
	HTTPClient      *http.Client
}

// OptsFromEnv reads CHAIN_RPC_ENDPOINTS, CHAIN_RPC_TIMEOUT and CHAIN_RPC_RPS.
func OptsFromEnv() Opts {
	return Opts{
		Endpoints: utils.EnvList("CHAIN_RPC_ENDPOINTS", nil),
		Timeout:   utils.EnvDuration("CHAIN_RPC_TIMEOUT", 10*time.Second),
		RPS:       utils.EnvInt("CHAIN_RPC_RPS", 20),
	}
}

// NewHTTPWithOpts creates a new HTTPClient with the given options.
func NewHTTPWithOpts(o Opts) *HTTPClient {
	if o.RPS <= 0 {
		o.RPS = 20
	}
	if o.Burst <= 0 {
		o.Burst = 2 * o.RPS
	}
	if o.Timeout <= 0 {
		o.Timeout = 10 * time.Second
	}
	if o.BreakerFailures <= 0 {
		o.BreakerFailures = 3
	}
	if o.BreakerCooldown <= 0 {
		o.BreakerCooldown = 5 * time.Second
	}

	client := o.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: o.Timeout}
	} else if client.Timeout == 0 {
		client.Timeout = o.Timeout
	}

	c := &HTTPClient{
		endpoints:        utils.Dedup(o.Endpoints),
		client:           client,
		maxTokens:        int64(o.Burst),
		refillEvery:      time.Second / time.Duration(o.RPS),
		failures:         map[string]int{},
		opened:           map[string]time.Time{},
		breakerThreshold: o.BreakerFailures,
		breakerCooldown:  o.BreakerCooldown,
	}
	c.tokens = c.maxTokens
	c.lastRefill.Store(time.Now())
	return c
}

func (c *HTTPClient) refill() {
	last := c.lastRefill.Load().(time.Time)
	now := time.Now()
	if now.Sub(last) >= c.refillEvery {
		if atomic.LoadInt64(&c.tokens) < c.maxTokens {
			atomic.AddInt64(&c.tokens, 1)
		}
		c.lastRefill.Store(now)
	}
}

// acquire takes a token from the bucket, waiting until one is available or ctx is done.
func (c *HTTPClient) acquire(ctx context.Context) error {
	for {
		c.refill()
		if atomic.AddInt64(&c.tokens, -1) >= 0 {
			return nil
		}
		atomic.AddInt64(&c.tokens, 1)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(c.refillEvery / 2):
		}
	}
}

// isOpen reports whether the endpoint's breaker is OPEN.
func (c *HTTPClient) isOpen(ep string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	until, ok := c.opened[ep]
	if !ok {
		return false
	}
	if time.Now().After(until) {
		delete(c.opened, ep)
		c.failures[ep] = 0
		return false
	}
	return true
}

func (c *HTTPClient) noteFailure(ep string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.failures[ep]++
	if c.failures[ep] >= c.breakerThreshold {
		c.opened[ep] = time.Now().Add(c.breakerCooldown)
	}
}

func (c *HTTPClient) noteSuccess(ep string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.failures[ep] = 0
}

// getJSON issues a GET against the first healthy endpoint and decodes the body into out.
// Transport failures and 5xx responses fail over to the next endpoint and count against
// its breaker. A 4xx is returned immediately as *StatusError.
func (c *HTTPClient) getJSON(ctx context.Context, path string, params url.Values, out any) error {
	if len(c.endpoints) == 0 {
		return ErrNoEndpoints
	}
	if len(params) > 0 {
		path += "?" + params.Encode()
	}

	var lastErr error
	for _, ep := range c.endpoints {
		if c.isOpen(ep) {
			continue
		}
		if err := c.acquire(ctx); err != nil {
			return err
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, ep+path, nil)
		if err != nil {
			return err
		}
		req.Header.Set("Accept", "application/json")

		resp, err := c.client.Do(req)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			lastErr = err
			c.noteFailure(ep)
			continue
		}

		if resp.StatusCode >= 500 {
			lastErr = fmt.Errorf("server %d", resp.StatusCode)
			c.noteFailure(ep)
			_ = utils.DrainAndClose(resp.Body)
			continue
		}
		if resp.StatusCode >= 300 {
			_ = utils.DrainAndClose(resp.Body)
			return &StatusError{Code: resp.StatusCode, Path: path}
		}

		decodeErr := json.NewDecoder(resp.Body).Decode(out)
		_ = utils.DrainAndClose(resp.Body)
		if decodeErr != nil {
			lastErr = fmt.Errorf("decode %s: %w", path, decodeErr)
			continue
		}
		c.noteSuccess(ep)
		return nil
	}

	if lastErr == nil {
		lastErr = errors.New("all endpoints unavailable")
	}
	return lastErr
}

// pageRequest is the LCD pagination block echoed by list endpoints.
type pageRequest struct {
	NextKey string `json:"next_key"`
}

// paged is implemented by LCD list responses.
type paged[T any] interface {
	items() []T
	nextKey() string
}

// ListPaged follows pagination.next_key until the node reports no more pages.
func ListPaged[T any, R paged[T]](ctx context.Context, c *HTTPClient, path string, newResp func() R) ([]T, error) {
	var (
		all []T
		key string
	)
	for page := 0; page < maxPages; page++ {
		params := url.Values{}
		if key != "" {
			params.Set("pagination.key", key)
		}
		resp := newResp()
		if err := c.getJSON(ctx, path, params, resp); err != nil {
			return nil, err
		}
		all = append(all, resp.items()...)
		key = resp.nextKey()
		if key == "" {
			return all, nil
		}
	}
	return all, fmt.Errorf("%s: more than %d pages", path, maxPages)
}
