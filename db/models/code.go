// Package models holds the content-addressed relational rows of spec §3 and
// the Postgres accessors that read/write them. Queries follow the teacher's
// raw-SQL style (db.Postgres.Pool().Exec/QueryRow, manual struct scanning)
// rather than an ORM.
package models

import (
	"context"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/txpull/sourcecheck/db"
)

// Code is the content-addressed raw byte sequence keyed by its keccak256 hash.
type Code struct {
	CodeHash common.Hash
	Code     []byte
}

// UpsertCode inserts code if its hash is not already present. Code rows are
// immutable once written (spec §3 invariant).
func UpsertCode(ctx context.Context, pg *db.Postgres, code []byte) (common.Hash, error) {
	hash := common.BytesToHash(crypto.Keccak256(code))

	_, err := pg.Pool().Exec(ctx, `
		INSERT INTO code (code_hash, code)
		VALUES ($1, $2)
		ON CONFLICT (code_hash) DO NOTHING
	`, hash.Bytes(), code)
	if err != nil {
		return common.Hash{}, err
	}

	return hash, nil
}

// GetCode fetches the raw bytes for codeHash.
func GetCode(ctx context.Context, pg *db.Postgres, codeHash common.Hash) ([]byte, error) {
	var code []byte
	err := pg.Pool().QueryRow(ctx, `SELECT code FROM code WHERE code_hash = $1`, codeHash.Bytes()).Scan(&code)
	if err != nil {
		return nil, err
	}
	return code, nil
}
