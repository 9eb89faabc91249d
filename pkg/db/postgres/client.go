package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/canopy-network/explorerx/pkg/retry"
	"github.com/canopy-network/explorerx/pkg/utils"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

// Executor is implemented by *pgxpool.Pool and pgx.Tx.
type Executor interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Client wraps a PostgreSQL connection pool and provides helper methods
type Client struct {
	Logger *zap.Logger
	Pool   *pgxpool.Pool
}

// PoolConfig defines connection pool settings for a specific component
type PoolConfig struct {
	MinConns        int32
	MaxConns        int32
	ConnMaxLifetime time.Duration
	ConnMaxIdleTime time.Duration
	// StatementTimeout is applied per session; zero leaves the server default.
	StatementTimeout time.Duration
	// ReadOnly sessions reject writes; maintenance pools that refresh views leave it off.
	ReadOnly  bool
	Component string // For logging/debugging
}

// New connects to POSTGRES_URL with retries and verifies the pool with a ping.
func New(ctx context.Context, logger *zap.Logger, poolConf *PoolConfig) (client Client, err error) {
	connCtx, cancel := context.WithTimeout(ctx, 5*time.Minute)
	defer cancel()

	client.Logger = logger
	if poolConf == nil {
		poolConf = GetPoolConfigForComponent("unknown")
	}

	dbURL := utils.Env("POSTGRES_URL", "postgres://localhost:5432/postgres")
	config, err := pgxpool.ParseConfig(dbURL)
	if err != nil {
		return Client{}, fmt.Errorf("failed to parse POSTGRES_URL: %w", err)
	}

	config.MinConns = poolConf.MinConns
	config.MaxConns = poolConf.MaxConns
	config.MaxConnLifetime = poolConf.ConnMaxLifetime
	config.MaxConnIdleTime = poolConf.ConnMaxIdleTime
	if poolConf.StatementTimeout > 0 {
		config.ConnConfig.RuntimeParams["statement_timeout"] = fmt.Sprintf("%d", poolConf.StatementTimeout.Milliseconds())
	}
	if poolConf.ReadOnly {
		config.ConnConfig.RuntimeParams["default_transaction_read_only"] = "on"
	}

	retryErr := retry.WithBackoff(connCtx, retry.DefaultConfig(), logger, "postgres_connection", func(ctx context.Context, _ int) error {
		pool, openErr := pgxpool.NewWithConfig(ctx, config)
		if openErr != nil {
			return fmt.Errorf("failed to create postgres connection pool: %w", openErr)
		}

		if pingErr := pool.Ping(ctx); pingErr != nil {
			pool.Close()
			pingErr = fmt.Errorf("failed to ping postgres: %w", pingErr)
			if isFatalConnectError(pingErr) {
				return retry.Permanent(pingErr)
			}
			return pingErr
		}
		client.Pool = pool

		logger.Info("PostgreSQL connection pool configured",
			zap.String("component", poolConf.Component),
			zap.Int32("min_conns", poolConf.MinConns),
			zap.Int32("max_conns", poolConf.MaxConns),
			zap.Duration("conn_max_lifetime", poolConf.ConnMaxLifetime),
			zap.Duration("conn_max_idle_time", poolConf.ConnMaxIdleTime),
			zap.Duration("statement_timeout", poolConf.StatementTimeout),
		)
		return nil
	})
	if retryErr != nil {
		return Client{}, retryErr
	}

	return client, nil
}

// isFatalConnectError reports errors a retry cannot fix: bad credentials or a
// missing database.
func isFatalConnectError(err error) bool {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return false
	}
	switch pgErr.Code {
	case "28000", "28P01", "3D000":
		return true
	}
	return false
}

// Exec executes a statement without returning any rows
func (c *Client) Exec(ctx context.Context, query string, args ...any) error {
	_, err := c.Pool.Exec(ctx, query, args...)
	return err
}

// Query executes a query that returns rows
// IMPORTANT: Caller MUST call rows.Close() when done to release the connection
func (c *Client) Query(ctx context.Context, query string, args ...any) (pgx.Rows, error) {
	return c.Pool.Query(ctx, query, args...)
}

// QueryRow executes a query that is expected to return at most one row
func (c *Client) QueryRow(ctx context.Context, query string, args ...any) pgx.Row {
	return c.Pool.QueryRow(ctx, query, args...)
}

func (c *Client) Ping(ctx context.Context) error {
	return c.Pool.Ping(ctx)
}

// Close closes the connection pool
func (c *Client) Close() {
	if c.Pool != nil {
		c.Pool.Close()
	}
}

// Select runs query and scans every row into T by column name.
func Select[T any](ctx context.Context, exec Executor, query string, args ...any) ([]T, error) {
	rows, err := exec.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, pgx.RowToStructByName[T])
}

// Get runs query and scans exactly one row into T. pgx.ErrNoRows is returned when nothing matched.
func Get[T any](ctx context.Context, exec Executor, query string, args ...any) (T, error) {
	rows, err := exec.Query(ctx, query, args...)
	if err != nil {
		var zero T
		return zero, err
	}
	return pgx.CollectExactlyOneRow(rows, pgx.RowToStructByName[T])
}

// IsNoRows checks if the error is a "no rows" error
func IsNoRows(err error) bool {
	return errors.Is(err, pgx.ErrNoRows)
}

// GetPoolConfigForComponent returns deterministic pool settings for each component.
// POSTGRES_MAX_CONNS overrides the maximum for any component.
func GetPoolConfigForComponent(component string) *PoolConfig {
	var minConns, maxConns int32
	connMaxLifetime := 5 * time.Minute
	connMaxIdleTime := 2 * time.Minute

	readOnly := false

	switch component {
	case "query":
		minConns = 4
		maxConns = 40
		readOnly = true
	case "maintenance":
		minConns = 1
		maxConns = 2
	default:
		minConns = 2
		maxConns = 20
	}
	maxConns = int32(utils.EnvInt("POSTGRES_MAX_CONNS", int(maxConns)))
	minConns = min(minConns, maxConns)

	return &PoolConfig{
		MinConns:         minConns,
		MaxConns:         maxConns,
		ConnMaxLifetime:  connMaxLifetime,
		ConnMaxIdleTime:  connMaxIdleTime,
		StatementTimeout: utils.EnvDuration("POSTGRES_STATEMENT_TIMEOUT", 15*time.Second),
		ReadOnly:         readOnly,
		Component:        component,
	}
}
