package db

import (
	"context"
)

// postgresSchema creates every relational table named in spec §3, in an
// order that satisfies their foreign keys. Columns and uniqueness
// constraints mirror exactly what db/models' hand-written queries expect;
// this file has no ORM, following the teacher's db/models CreateXTable idiom
// (adapted here to Postgres DDL instead of ClickHouse MergeTree tables).
var postgresSchema = []string{
	`CREATE TABLE IF NOT EXISTS code (
		code_hash BYTEA PRIMARY KEY,
		code      BYTEA NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS contracts (
		id                 BIGSERIAL PRIMARY KEY,
		creation_code_hash BYTEA,
		runtime_code_hash  BYTEA NOT NULL,
		UNIQUE NULLS NOT DISTINCT (creation_code_hash, runtime_code_hash)
	)`,
	`CREATE TABLE IF NOT EXISTS contract_deployments (
		id                 BIGSERIAL PRIMARY KEY,
		chain_id           BIGINT NOT NULL,
		address            BYTEA NOT NULL,
		transaction_hash   BYTEA NOT NULL,
		contract_id        BIGINT NOT NULL REFERENCES contracts(id),
		block_number       BIGINT,
		transaction_index  INT,
		deployer           BYTEA,
		UNIQUE (chain_id, address, transaction_hash, contract_id)
	)`,
	`CREATE INDEX IF NOT EXISTS contract_deployments_chain_address_idx
		ON contract_deployments (chain_id, address)`,
	`CREATE TABLE IF NOT EXISTS compiled_contracts (
		id                       BIGSERIAL PRIMARY KEY,
		compiler                 TEXT NOT NULL,
		language                 TEXT NOT NULL,
		version                  TEXT NOT NULL,
		compilation_target       TEXT NOT NULL,
		compiler_settings        JSONB NOT NULL,
		compilation_artifacts    JSONB,
		creation_code_hash       BYTEA,
		runtime_code_hash        BYTEA NOT NULL,
		creation_code_artifacts  JSONB,
		runtime_code_artifacts   JSONB,
		UNIQUE NULLS NOT DISTINCT (compiler, language, creation_code_hash, runtime_code_hash)
	)`,
	`CREATE TABLE IF NOT EXISTS sources (
		source_hash BYTEA PRIMARY KEY,
		content     TEXT NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS compiled_contract_sources (
		compilation_id BIGINT NOT NULL REFERENCES compiled_contracts(id),
		source_hash    BYTEA NOT NULL REFERENCES sources(source_hash),
		path           TEXT NOT NULL,
		UNIQUE (compilation_id, source_hash, path)
	)`,
	`CREATE TABLE IF NOT EXISTS verified_contracts (
		id                       BIGSERIAL PRIMARY KEY,
		compilation_id           BIGINT NOT NULL REFERENCES compiled_contracts(id),
		deployment_id            BIGINT NOT NULL REFERENCES contract_deployments(id),
		runtime_match            TEXT NOT NULL,
		creation_match            TEXT NOT NULL,
		runtime_transformations  JSONB,
		creation_transformations JSONB,
		transformation_values    JSONB,
		runtime_metadata_match   BOOLEAN NOT NULL DEFAULT false,
		creation_metadata_match  BOOLEAN NOT NULL DEFAULT false,
		created_at               TIMESTAMPTZ NOT NULL DEFAULT now(),
		UNIQUE (compilation_id, deployment_id)
	)`,
	`CREATE TABLE IF NOT EXISTS sourcify_matches (
		id                   BIGSERIAL PRIMARY KEY,
		verified_contract_id BIGINT NOT NULL REFERENCES verified_contracts(id),
		deployment_id        BIGINT NOT NULL REFERENCES contract_deployments(id),
		metadata             JSONB,
		license_code         TEXT,
		label                TEXT,
		similar_match_id     BIGINT REFERENCES sourcify_matches(id),
		UNIQUE (verified_contract_id)
	)`,
	`CREATE UNIQUE INDEX IF NOT EXISTS sourcify_matches_deployment_idx
		ON sourcify_matches (deployment_id)`,
	`CREATE TABLE IF NOT EXISTS verification_jobs (
		id                     UUID PRIMARY KEY,
		started_at             TIMESTAMPTZ NOT NULL,
		completed_at           TIMESTAMPTZ,
		chain_id               BIGINT NOT NULL,
		contract_address       TEXT NOT NULL,
		verified_contract_id   BIGINT REFERENCES verified_contracts(id),
		error                  JSONB,
		compilation_time       BIGINT,
		verification_endpoint  TEXT,
		hardware               TEXT
	)`,
	`CREATE TABLE IF NOT EXISTS signatures (
		id                BIGSERIAL PRIMARY KEY,
		signature_hash_4  BYTEA NOT NULL,
		signature_hash_32 BYTEA NOT NULL UNIQUE,
		signature         TEXT NOT NULL,
		created_at        TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE INDEX IF NOT EXISTS signatures_hash_4_idx ON signatures (signature_hash_4)`,
	`CREATE TABLE IF NOT EXISTS compiled_contract_signatures (
		compilation_id BIGINT NOT NULL REFERENCES compiled_contracts(id),
		signature_id   BIGINT NOT NULL REFERENCES signatures(id),
		signature_type TEXT NOT NULL,
		UNIQUE (compilation_id, signature_id, signature_type)
	)`,
}

// Migrate applies postgresSchema in order, each statement idempotent via
// IF NOT EXISTS, so re-running Migrate against an already-provisioned
// database is a no-op (spec §4.J's out-of-scope "shell" still needs a
// concrete bootstrap path, which this provides).
func (p *Postgres) Migrate(ctx context.Context) error {
	for _, stmt := range postgresSchema {
		if _, err := p.pool.Exec(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}

// clickhouseSchema creates the signature_stats aggregate (spec §4.I) as a
// plain MergeTree table, not a materialized view. Nothing in this
// repository fills it; its counts come from a refresh job run outside this
// repository. Migrate only establishes the table's shape so reads never
// fail against an empty database.
var clickhouseSchema = []string{
	`CREATE TABLE IF NOT EXISTS signature_stats (
		signature_type String,
		count UInt64,
		unknown UInt64,
		refreshed_at DateTime
	) ENGINE = MergeTree() ORDER BY signature_type`,
}

// Migrate applies clickhouseSchema in order.
func (c *ClickHouse) Migrate(ctx context.Context) error {
	for _, stmt := range clickhouseSchema {
		if err := c.conn.Exec(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}
