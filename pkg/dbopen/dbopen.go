// Package dbopen opens the Postgres pool shared by the pgx and sqlx call sites.
package dbopen

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"
	"github.com/pgx-contrib/pgxotel"
)

type Options struct {
	ConnString string
	MaxConns   int32
	// Tracing attaches an OpenTelemetry query tracer to every connection.
	Tracing bool
}

// Open creates a pgx pool and a sqlx handle backed by the same pool.
func Open(ctx context.Context, opts Options) (*pgxpool.Pool, *sqlx.DB, error) {
	cfg, err := pgxpool.ParseConfig(opts.ConnString)
	if err != nil {
		return nil, nil, errors.Wrap(err, "parse database config")
	}
	if opts.MaxConns > 0 {
		cfg.MaxConns = opts.MaxConns
	}
	if opts.Tracing {
		cfg.ConnConfig.Tracer = &pgxotel.QueryTracer{Name: "hmis"}
	}
	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, nil, errors.Wrap(err, "open pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, nil, errors.Wrap(err, "ping database")
	}
	return pool, FromPool(pool), nil
}

// FromPool wraps pool in a sqlx handle using the pgx database/sql driver.
func FromPool(pool *pgxpool.Pool) *sqlx.DB {
	return sqlx.NewDb(stdlib.OpenDBFromPool(pool), "pgx")
}
