package db

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/txpull/sourcecheck/options"
)

// Postgres encapsulates the content-addressed relational store (spec §3):
// code, contracts, contract_deployments, compiled_contracts, sources,
// compiled_contract_sources, verified_contracts, sourcify_matches,
// verification_jobs and the signature tables.
type Postgres struct {
	ctx  context.Context
	opts options.Postgres
	pool *pgxpool.Pool
}

// Pool returns the underlying connection pool for callers that need direct
// query access (the model packages).
func (p *Postgres) Pool() *pgxpool.Pool {
	return p.pool
}

// ValidateOptions checks the minimum fields required to dial Postgres.
func (p *Postgres) ValidateOptions() error {
	if p.opts.Host == "" {
		return errors.New("postgres host must be set")
	}
	if p.opts.Database == "" {
		return errors.New("postgres database must be set")
	}
	if p.opts.User == "" {
		return errors.New("postgres user must be set")
	}
	return nil
}

// NewPostgres dials a pooled Postgres connection per opts and pings it.
func NewPostgres(ctx context.Context, opts options.Postgres) (*Postgres, error) {
	client := &Postgres{ctx: ctx, opts: opts}
	if err := client.ValidateOptions(); err != nil {
		return nil, err
	}

	schema := opts.Schema
	if schema == "" {
		schema = "public"
	}

	dsn := fmt.Sprintf("postgres://%s:%s@%s:%d/%s?search_path=%s",
		opts.User, opts.Password, opts.Host, opts.Port, opts.Database, schema)

	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parsing postgres dsn: %w", err)
	}
	if opts.MaxConns > 0 {
		cfg.MaxConns = opts.MaxConns
	}
	if opts.MinConns > 0 {
		cfg.MinConns = opts.MinConns
	}
	if opts.ConnMaxLifetime > 0 {
		cfg.MaxConnLifetime = opts.ConnMaxLifetime
	}

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("dialing postgres: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("pinging postgres: %w", err)
	}

	client.pool = pool
	return client, nil
}

// Close releases the pool's connections.
func (p *Postgres) Close() {
	p.pool.Close()
}
