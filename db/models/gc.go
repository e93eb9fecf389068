package models

import (
	"context"

	"github.com/ethereum/go-ethereum/common"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/txpull/sourcecheck/db"
)

// DeleteMatch removes a deployment's verification state and sweeps every row
// left orphaned by that removal, per spec §4.E: ephemeral ->
// verification_jobs -> sourcify_matches -> verified_contracts -> orphan
// compiled_contract_{sources,signatures} -> orphan sources -> orphan
// signatures -> orphan compiled_contracts -> orphan contract_deployments ->
// orphan contracts -> orphan code.
func DeleteMatch(ctx context.Context, pg *db.Postgres, ephem *db.BadgerDB, chainID uint64, address common.Address) error {
	jobIDs, err := jobIDsForAddress(ctx, pg, chainID, address)
	if err != nil {
		return err
	}
	for _, id := range jobIDs {
		if delErr := ephem.Delete(id.String()); delErr != nil && delErr != db.ErrKeyNotFound {
			return delErr
		}
	}

	tx, err := pg.Pool().Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `
		DELETE FROM verification_jobs WHERE chain_id = $1 AND contract_address = $2
	`, chainID, address.Hex()); err != nil {
		return err
	}

	if _, err := tx.Exec(ctx, `
		DELETE FROM sourcify_matches sm
		USING verified_contracts vc, contract_deployments cd
		WHERE sm.verified_contract_id = vc.id AND vc.deployment_id = cd.id
		  AND cd.chain_id = $1 AND cd.address = $2
	`, chainID, address.Bytes()); err != nil {
		return err
	}

	if _, err := tx.Exec(ctx, `
		DELETE FROM verified_contracts vc
		USING contract_deployments cd
		WHERE vc.deployment_id = cd.id AND cd.chain_id = $1 AND cd.address = $2
	`, chainID, address.Bytes()); err != nil {
		return err
	}

	if err := orphanSweepInTx(ctx, tx); err != nil {
		return err
	}

	return tx.Commit(ctx)
}

// OrphanGC applies the same orphan sweep DeleteMatch runs after a targeted
// delete, globally (spec §4.E orphanGc). It is safe to run on a schedule: an
// empty sweep (no orphans) commits as a no-op.
func OrphanGC(ctx context.Context, pg *db.Postgres) error {
	tx, err := pg.Pool().Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	if err := orphanSweepInTx(ctx, tx); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

// orphanSweepInTx deletes, in dependency order, every row no longer
// referenced by anything above it in the content-addressed schema (spec §3).
func orphanSweepInTx(ctx context.Context, tx pgx.Tx) error {
	stmts := []string{
		`DELETE FROM compiled_contract_sources WHERE compilation_id NOT IN (SELECT compilation_id FROM verified_contracts)`,
		`DELETE FROM compiled_contract_signatures WHERE compilation_id NOT IN (SELECT compilation_id FROM verified_contracts)`,
		`DELETE FROM sources WHERE source_hash NOT IN (SELECT source_hash FROM compiled_contract_sources)`,
		`DELETE FROM signatures WHERE id NOT IN (SELECT signature_id FROM compiled_contract_signatures)`,
		`DELETE FROM compiled_contracts WHERE id NOT IN (SELECT compilation_id FROM verified_contracts)`,
		`DELETE FROM contract_deployments WHERE id NOT IN (SELECT deployment_id FROM verified_contracts)`,
		`DELETE FROM contracts WHERE id NOT IN (SELECT contract_id FROM contract_deployments)`,
		`DELETE FROM code WHERE code_hash NOT IN (
			SELECT runtime_code_hash FROM contracts
			UNION SELECT creation_code_hash FROM contracts WHERE creation_code_hash IS NOT NULL
			UNION SELECT runtime_code_hash FROM compiled_contracts
			UNION SELECT creation_code_hash FROM compiled_contracts WHERE creation_code_hash IS NOT NULL
		)`,
	}
	for _, stmt := range stmts {
		if _, err := tx.Exec(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}

func jobIDsForAddress(ctx context.Context, pg *db.Postgres, chainID uint64, address common.Address) ([]uuid.UUID, error) {
	rows, err := pg.Pool().Query(ctx, `
		SELECT id FROM verification_jobs WHERE chain_id = $1 AND contract_address = $2
	`, chainID, address.Hex())
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}
