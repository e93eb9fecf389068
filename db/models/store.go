package models

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/jackc/pgx/v5"
	"github.com/txpull/sourcecheck/apierror"
	"github.com/txpull/sourcecheck/db"
)

// StoreVerificationInput is everything StoreVerification needs to persist one
// verification result as a single content-addressed transaction (spec §4.E).
type StoreVerificationInput struct {
	ChainID          uint64
	Address          common.Address
	TransactionHash  common.Hash
	BlockNumber      *uint64
	TransactionIndex *uint
	Deployer         *common.Address

	Compiler          string
	Language          string
	Version           string
	CompilationTarget string
	CompilerSettings  json.RawMessage

	RuntimeCode  []byte
	CreationCode []byte // may be nil when unknown

	RuntimeMatch            MatchVerdict
	CreationMatch           MatchVerdict
	RuntimeTransformations  json.RawMessage
	CreationTransformations json.RawMessage
	TransformationValues    json.RawMessage
	RuntimeMetadataMatch    bool
	CreationMetadataMatch   bool

	Metadata    []byte
	LicenseCode string
}

// StoreVerificationResult is the set of row ids a caller (the worker pool)
// needs to link back to its job record.
type StoreVerificationResult struct {
	VerifiedContractID int64
	SourcifyMatchID    int64
}

// StoreVerification performs the full content-addressed upsert chain
// (code -> contract -> deployment -> compiled_contract -> verified_contract
// -> sourcify_match) inside a single transaction, per spec §4.E. It is the
// only write path into the relational schema once a VerificationExport
// exists; the worker pool calls it after the Verification Engine returns.
func StoreVerification(ctx context.Context, pg *db.Postgres, in StoreVerificationInput) (*StoreVerificationResult, error) {
	tx, err := pg.Pool().Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	runtimeHash := common.BytesToHash(crypto.Keccak256(in.RuntimeCode))
	if _, err := tx.Exec(ctx, `
		INSERT INTO code (code_hash, code) VALUES ($1, $2) ON CONFLICT (code_hash) DO NOTHING
	`, runtimeHash.Bytes(), in.RuntimeCode); err != nil {
		return nil, err
	}

	var creationHash *common.Hash
	if len(in.CreationCode) > 0 {
		h := common.BytesToHash(crypto.Keccak256(in.CreationCode))
		creationHash = &h
		if _, err := tx.Exec(ctx, `
			INSERT INTO code (code_hash, code) VALUES ($1, $2) ON CONFLICT (code_hash) DO NOTHING
		`, h.Bytes(), in.CreationCode); err != nil {
			return nil, err
		}
	}

	var contractID int64
	if err := tx.QueryRow(ctx, `
		INSERT INTO contracts (creation_code_hash, runtime_code_hash)
		VALUES ($1, $2)
		ON CONFLICT (creation_code_hash, runtime_code_hash) DO UPDATE SET runtime_code_hash = EXCLUDED.runtime_code_hash
		RETURNING id
	`, nullableHashBytes(creationHash), runtimeHash.Bytes()).Scan(&contractID); err != nil {
		return nil, err
	}

	var deploymentID int64
	if err := tx.QueryRow(ctx, `
		INSERT INTO contract_deployments
			(chain_id, address, transaction_hash, contract_id, block_number, transaction_index, deployer)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (chain_id, address, transaction_hash, contract_id) DO UPDATE SET
			block_number = COALESCE(EXCLUDED.block_number, contract_deployments.block_number)
		RETURNING id
	`, in.ChainID, in.Address.Bytes(), in.TransactionHash.Bytes(), contractID, in.BlockNumber, in.TransactionIndex,
		deployerBytes(in.Deployer)).Scan(&deploymentID); err != nil {
		return nil, err
	}

	var compilationID int64
	if err := tx.QueryRow(ctx, `
		INSERT INTO compiled_contracts
			(compiler, language, version, compilation_target, compiler_settings,
			 creation_code_hash, runtime_code_hash)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (compiler, language, creation_code_hash, runtime_code_hash) DO UPDATE SET
			compiler_settings = EXCLUDED.compiler_settings
		RETURNING id
	`, in.Compiler, in.Language, in.Version, in.CompilationTarget, in.CompilerSettings,
		nullableHashBytes(creationHash), runtimeHash.Bytes()).Scan(&compilationID); err != nil {
		return nil, err
	}

	// verified_contracts rows are never overwritten (spec §3); the
	// no-op DO UPDATE exists only so RETURNING still yields the existing id
	// when this exact (compilation_id, deployment_id) pair was already recorded.
	var verifiedContractID int64
	if err := tx.QueryRow(ctx, `
		INSERT INTO verified_contracts
			(compilation_id, deployment_id, runtime_match, creation_match,
			 runtime_transformations, creation_transformations, transformation_values,
			 runtime_metadata_match, creation_metadata_match)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (compilation_id, deployment_id) DO UPDATE SET compilation_id = verified_contracts.compilation_id
		RETURNING id
	`, compilationID, deploymentID, in.RuntimeMatch, in.CreationMatch,
		in.RuntimeTransformations, in.CreationTransformations, in.TransformationValues,
		in.RuntimeMetadataMatch, in.CreationMetadataMatch).Scan(&verifiedContractID); err != nil {
		return nil, err
	}

	sourcifyMatchID, err := upsertSourcifyMatchInTx(ctx, tx, deploymentID, verifiedContractID, in.RuntimeMatch, in.Metadata, in.LicenseCode)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}

	return &StoreVerificationResult{VerifiedContractID: verifiedContractID, SourcifyMatchID: sourcifyMatchID}, nil
}

// upsertSourcifyMatchInTx is UpsertBestMatch's logic reused inside an
// already-open transaction, avoiding nested transactions.
func upsertSourcifyMatchInTx(ctx context.Context, tx pgx.Tx, deploymentID, verifiedContractID int64, newVerdict MatchVerdict, metadata []byte, licenseCode string) (int64, error) {
	var existingID int64
	var existingVerdict MatchVerdict
	err := tx.QueryRow(ctx, `
		SELECT sm.id, vc.runtime_match
		FROM sourcify_matches sm
		JOIN verified_contracts vc ON vc.id = sm.verified_contract_id
		WHERE vc.deployment_id = $1
		FOR UPDATE OF sm
	`, deploymentID).Scan(&existingID, &existingVerdict)

	switch {
	case errors.Is(err, pgx.ErrNoRows):
		var id int64
		if insErr := tx.QueryRow(ctx, `
			INSERT INTO sourcify_matches (verified_contract_id, deployment_id, metadata, license_code)
			VALUES ($1, $2, $3, $4)
			RETURNING id
		`, verifiedContractID, deploymentID, metadata, licenseCode).Scan(&id); insErr != nil {
			return 0, insErr
		}
		return id, nil

	case err != nil:
		return 0, err

	default:
		// Re-point the match only when the new verdict is strictly better than
		// the one already recorded; an equal or worse verdict is a conflict
		// rather than a silent re-point (spec §4.E/§5).
		if newVerdict.rank() <= existingVerdict.rank() {
			return 0, apierror.New(apierror.CodeConflict, nil, nil)
		}
		if _, err := tx.Exec(ctx, `
			UPDATE sourcify_matches SET verified_contract_id = $1, metadata = $2, license_code = $3
			WHERE id = $4
		`, verifiedContractID, metadata, licenseCode, existingID); err != nil {
			return 0, err
		}
		return existingID, nil
	}
}
