package models

import (
	"context"

	"github.com/txpull/sourcecheck/db"
)

// SignatureType is the selector kind a Signature belongs to (spec §3).
type SignatureType string

const (
	SignatureFunction SignatureType = "function"
	SignatureEvent    SignatureType = "event"
	SignatureError    SignatureType = "error"
)

// Signature is a registered function/event/error selector (spec §3).
type Signature struct {
	ID              int64
	HashFour        []byte // first 4 bytes of the Keccak-256 hash (function/error selector)
	HashThirtyTwo   []byte // full 32-byte Keccak-256 hash (event topic)
	Text            string
}

// InsertSignature inserts a signature row if its 32-byte hash is not already present.
func InsertSignature(ctx context.Context, pg *db.Postgres, hashFour, hashThirtyTwo []byte, text string) (int64, error) {
	var id int64
	err := pg.Pool().QueryRow(ctx, `
		INSERT INTO signatures (signature_hash_4, signature_hash_32, signature, created_at)
		VALUES ($1, $2, $3, now())
		ON CONFLICT (signature_hash_32) DO UPDATE SET signature = EXCLUDED.signature
		RETURNING id
	`, hashFour, hashThirtyTwo, text).Scan(&id)
	if err != nil {
		return 0, err
	}
	return id, nil
}

// LinkCompiledContractSignature records that compilationID's bytecode
// references signatureID as the given signatureType.
func LinkCompiledContractSignature(ctx context.Context, pg *db.Postgres, compilationID, signatureID int64, sigType SignatureType) error {
	_, err := pg.Pool().Exec(ctx, `
		INSERT INTO compiled_contract_signatures (compilation_id, signature_id, signature_type)
		VALUES ($1, $2, $3)
		ON CONFLICT DO NOTHING
	`, compilationID, signatureID, sigType)
	return err
}

// SearchByHexPrefix returns up to limit signatures whose text matches a
// wildcard search, used by the Signature Registry's search operation (spec §4.I).
func SearchByHexPrefix(ctx context.Context, pg *db.Postgres, likePattern string, limit int) ([]Signature, error) {
	rows, err := pg.Pool().Query(ctx, `
		SELECT id, signature_hash_4, signature_hash_32, signature
		FROM signatures WHERE signature ILIKE $1 LIMIT $2
	`, likePattern, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Signature
	for rows.Next() {
		var s Signature
		if err := rows.Scan(&s.ID, &s.HashFour, &s.HashThirtyTwo, &s.Text); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// GetByHashThirtyTwo returns the signature registered under the given 32-byte
// hash (event selectors, or a function/error looked up by its full hash).
func GetByHashThirtyTwo(ctx context.Context, pg *db.Postgres, hash32 []byte) (*Signature, error) {
	var s Signature
	err := pg.Pool().QueryRow(ctx, `
		SELECT id, signature_hash_4, signature_hash_32, signature
		FROM signatures WHERE signature_hash_32 = $1
	`, hash32).Scan(&s.ID, &s.HashFour, &s.HashThirtyTwo, &s.Text)
	if err != nil {
		return nil, err
	}
	return &s, nil
}

// GetByHashFour returns every signature sharing the given 4-byte selector
// (multiple texts can collide on the first 4 bytes of keccak256).
func GetByHashFour(ctx context.Context, pg *db.Postgres, hash4 []byte) ([]Signature, error) {
	rows, err := pg.Pool().Query(ctx, `
		SELECT id, signature_hash_4, signature_hash_32, signature
		FROM signatures WHERE signature_hash_4 = $1
	`, hash4)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Signature
	for rows.Next() {
		var s Signature
		if err := rows.Scan(&s.ID, &s.HashFour, &s.HashThirtyTwo, &s.Text); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// HasVerifiedContract reports whether any compiled_contract_signature row
// references signatureID, i.e. the selector has been observed in at least
// one verified contract's bytecode (spec §4.I lookup's hasVerifiedContract flag).
func HasVerifiedContract(ctx context.Context, pg *db.Postgres, signatureID int64) (bool, error) {
	var exists bool
	err := pg.Pool().QueryRow(ctx, `
		SELECT EXISTS(SELECT 1 FROM compiled_contract_signatures WHERE signature_id = $1)
	`, signatureID).Scan(&exists)
	return exists, err
}
