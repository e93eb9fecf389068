package models

import (
	"context"

	"github.com/ethereum/go-ethereum/crypto"
	"github.com/txpull/sourcecheck/db"
)

// Source is a content-addressed source file, shared across compilations via
// CompiledContractSource (spec §3).
type Source struct {
	SourceHash       []byte // keccak256(content)
	Content          string
	SourceHashKeccak string // hex-encoded, for human-readable lookups
}

// UpsertSource inserts content if its hash is not already present and
// returns the hash.
func UpsertSource(ctx context.Context, pg *db.Postgres, content string) ([]byte, error) {
	hash := crypto.Keccak256([]byte(content))

	_, err := pg.Pool().Exec(ctx, `
		INSERT INTO sources (source_hash, content)
		VALUES ($1, $2)
		ON CONFLICT (source_hash) DO NOTHING
	`, hash, content)
	if err != nil {
		return nil, err
	}
	return hash, nil
}

// LinkCompiledContractSource records that compilationID includes the source
// at sourceHash under path.
func LinkCompiledContractSource(ctx context.Context, pg *db.Postgres, compilationID int64, sourceHash []byte, path string) error {
	_, err := pg.Pool().Exec(ctx, `
		INSERT INTO compiled_contract_sources (compilation_id, source_hash, path)
		VALUES ($1, $2, $3)
		ON CONFLICT (compilation_id, source_hash, path) DO NOTHING
	`, compilationID, sourceHash, path)
	return err
}
