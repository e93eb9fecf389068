package models

import (
	"context"
	"database/sql"

	"github.com/ethereum/go-ethereum/common"
	"github.com/txpull/sourcecheck/db"
)

// Contract is the chain-side identity of deployed bytecode: a pair of code
// hashes, independent of any chain or address (spec §3).
type Contract struct {
	ID               int64
	CreationCodeHash *common.Hash
	RuntimeCodeHash  common.Hash
}

// UpsertContract inserts (creationCodeHash, runtimeCodeHash) if absent and
// returns its id. creationCodeHash may be nil when the creation code is
// unknown.
func UpsertContract(ctx context.Context, pg *db.Postgres, creationCodeHash *common.Hash, runtimeCodeHash common.Hash) (int64, error) {
	var creationBytes []byte
	if creationCodeHash != nil {
		creationBytes = creationCodeHash.Bytes()
	}

	var id int64
	err := pg.Pool().QueryRow(ctx, `
		INSERT INTO contracts (creation_code_hash, runtime_code_hash)
		VALUES ($1, $2)
		ON CONFLICT (creation_code_hash, runtime_code_hash) DO UPDATE SET runtime_code_hash = EXCLUDED.runtime_code_hash
		RETURNING id
	`, nullableBytes(creationBytes), runtimeCodeHash.Bytes()).Scan(&id)
	if err != nil {
		return 0, err
	}
	return id, nil
}

func nullableBytes(b []byte) interface{} {
	if b == nil {
		return sql.NullString{}
	}
	return b
}
