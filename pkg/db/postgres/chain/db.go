// Package chain reads the explorer tables written by the chain indexer.
//
// Expected relations: blocks, transactions, validators, validator_signatures,
// finality_providers, finality_provider_votes, delegations, proposals,
// proposal_votes, tokens and account_balances. The validator_uptime and
// finality_provider_signing materialized views are owned here (see views.go).
package chain

import (
	"context"
	"time"

	"github.com/canopy-network/explorerx/pkg/db/postgres"
	"github.com/canopy-network/explorerx/pkg/query"
	"go.uber.org/zap"
)

// DB represents a PostgreSQL connection for explorer reads.
type DB struct {
	postgres.Client
}

// New connects the explorer store with the given pool configuration.
func New(ctx context.Context, logger *zap.Logger, poolConfig *postgres.PoolConfig) (*DB, error) {
	client, err := postgres.New(ctx, logger.With(zap.String("component", poolConfig.Component)), poolConfig)
	if err != nil {
		return nil, err
	}
	return &DB{Client: client}, nil
}

// Close terminates the underlying PostgreSQL connection
func (db *DB) Close() error {
	db.Client.Close()
	return nil
}

// EarliestBlockTime returns the time of the first indexed block, zero when empty.
func (db *DB) EarliestBlockTime(ctx context.Context) (time.Time, error) {
	var t *time.Time
	if err := db.QueryRow(ctx, `SELECT MIN(time) FROM blocks`).Scan(&t); err != nil {
		return time.Time{}, query.StoreFailure("EarliestBlockTime", err)
	}
	if t == nil {
		return time.Time{}, nil
	}
	return *t, nil
}

// list renders plan against base and scans the take+1 rows.
func list[T any](ctx context.Context, db *DB, op string, plan *query.Plan, base string) ([]T, error) {
	args := &query.Args{}
	sql := plan.SQL(base, args)
	return selectRows[T](ctx, db, op, sql, args.Values()...)
}

// one returns the single row matching sql or a NotFound error naming what.
func one[T any](ctx context.Context, db *DB, op, what string, sql string, args ...any) (*T, error) {
	row, err := postgres.Get[T](ctx, db.Pool, sql, args...)
	if err != nil {
		if postgres.IsNoRows(err) {
			return nil, query.NotFound("%s not found", what)
		}
		return nil, query.StoreFailure(op, err)
	}
	return &row, nil
}

// selectRows scans every row of sql into T, wrapping failures with op.
func selectRows[T any](ctx context.Context, db *DB, op, sql string, args ...any) ([]T, error) {
	rows, err := postgres.Select[T](ctx, db.Pool, sql, args...)
	if err != nil {
		return nil, query.StoreFailure(op, err)
	}
	return rows, nil
}

type keyValue[K comparable, V any] struct {
	Key   K `db:"key"`
	Value V `db:"value"`
}

// lookup runs a batched "key, value" query and returns it as a map.
func lookup[K comparable, V any](ctx context.Context, db *DB, op, sql string, args ...any) (map[K]V, error) {
	rows, err := postgres.Select[keyValue[K, V]](ctx, db.Pool, sql, args...)
	if err != nil {
		return nil, query.StoreFailure(op, err)
	}
	out := make(map[K]V, len(rows))
	for _, r := range rows {
		out[r.Key] = r.Value
	}
	return out, nil
}
