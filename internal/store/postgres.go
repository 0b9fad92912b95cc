// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Shardgate Contributors

// Package store provides PostgreSQL connectivity and schema management.
package store

import (
	"context"
	"errors"
	"sync/atomic"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/samber/oops"
)

// ErrNotReady is returned when the store is used before initialization
// completes or after it has been closed.
var ErrNotReady = errors.New("store not ready")

// Querier is the subset of pgxpool.Pool that repositories use. Mock
// pools (pgxmock) satisfy it too.
type Querier interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Postgres wraps a pgx connection pool with an explicit readiness state.
// Repositories obtain the querier through Querier so that requests
// arriving before initialization finishes get ErrNotReady instead of a
// nil deref.
type Postgres struct {
	pool    *pgxpool.Pool
	querier Querier
	ready   atomic.Bool
}

// Open connects to PostgreSQL and verifies the connection with a ping.
// The returned store is ready for use.
func Open(ctx context.Context, dsn string) (*Postgres, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, oops.Code("DB_CONNECT_FAILED").With("operation", "create pool").Wrap(err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, oops.Code("DB_CONNECT_FAILED").With("operation", "ping").Wrap(err)
	}

	s := &Postgres{pool: pool, querier: pool}
	s.ready.Store(true)
	return s, nil
}

// WithQuerier creates a ready store backed by an arbitrary querier
// instead of a live pool. Used by repository tests with pgxmock.
func WithQuerier(q Querier) *Postgres {
	s := &Postgres{querier: q}
	s.ready.Store(true)
	return s
}

// Querier returns the query interface, or ErrNotReady if the store has
// not been initialized or has been closed.
func (s *Postgres) Querier() (Querier, error) {
	if !s.ready.Load() {
		return nil, ErrNotReady
	}
	return s.querier, nil
}

// Ready reports whether the store can serve queries.
func (s *Postgres) Ready() bool {
	return s.ready.Load()
}

// Close shuts down the connection pool. The store is not ready afterwards.
func (s *Postgres) Close() {
	s.ready.Store(false)
	if s.pool != nil {
		s.pool.Close()
	}
}
