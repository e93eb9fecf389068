package models

import (
	"context"
	"encoding/json"

	"github.com/ethereum/go-ethereum/common"
	"github.com/txpull/sourcecheck/db"
)

// CompiledContract is a content-addressed compilation output (spec §3).
// Two compilations producing the same bytecodes collapse to one row.
type CompiledContract struct {
	ID                   int64
	Compiler             string
	Language             string
	Version              string
	CompilationTarget    string
	CompilerSettings     json.RawMessage
	CompilationArtifacts json.RawMessage
	CreationCodeHash     *common.Hash
	RuntimeCodeHash      common.Hash
	CreationCodeArtifacts json.RawMessage
	RuntimeCodeArtifacts  json.RawMessage
}

// UpsertCompiledContract inserts c, unique on
// (compiler, language, creation_code_hash, runtime_code_hash).
func UpsertCompiledContract(ctx context.Context, pg *db.Postgres, c CompiledContract) (int64, error) {
	var id int64
	err := pg.Pool().QueryRow(ctx, `
		INSERT INTO compiled_contracts
			(compiler, language, version, compilation_target, compiler_settings, compilation_artifacts,
			 creation_code_hash, runtime_code_hash, creation_code_artifacts, runtime_code_artifacts)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (compiler, language, creation_code_hash, runtime_code_hash) DO UPDATE SET
			compilation_artifacts = EXCLUDED.compilation_artifacts
		RETURNING id
	`, c.Compiler, c.Language, c.Version, c.CompilationTarget, c.CompilerSettings, c.CompilationArtifacts,
		nullableHashBytes(c.CreationCodeHash), c.RuntimeCodeHash.Bytes(),
		c.CreationCodeArtifacts, c.RuntimeCodeArtifacts).
		Scan(&id)
	if err != nil {
		return 0, err
	}
	return id, nil
}

func nullableHashBytes(h *common.Hash) []byte {
	if h == nil {
		return nil
	}
	return h.Bytes()
}
