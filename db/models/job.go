package models

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/txpull/sourcecheck/db"
)

// VerificationJob is the durable job record (spec §3). Its ephemeral
// counterpart (large payloads) lives in Badger under the same id.
type VerificationJob struct {
	ID                   uuid.UUID
	StartedAt            time.Time
	CompletedAt          *time.Time
	ChainID              uint64
	ContractAddress      string
	VerifiedContractID   *int64
	Error                json.RawMessage // {code, id, data} per apierror.Error
	CompilationTimeMS    int64
	VerificationEndpoint string
	Hardware             string
}

// InsertJob creates a new job row with StartedAt = now.
func InsertJob(ctx context.Context, pg *db.Postgres, chainID uint64, address string, endpoint, hardware string) (uuid.UUID, error) {
	id := uuid.New()
	_, err := pg.Pool().Exec(ctx, `
		INSERT INTO verification_jobs (id, started_at, chain_id, contract_address, verification_endpoint, hardware)
		VALUES ($1, now(), $2, $3, $4, $5)
	`, id, chainID, address, endpoint, hardware)
	if err != nil {
		return uuid.Nil, err
	}
	return id, nil
}

// CompleteJob records a successful completion.
func CompleteJob(ctx context.Context, pg *db.Postgres, id uuid.UUID, verifiedContractID int64, compilationTimeMS int64) error {
	_, err := pg.Pool().Exec(ctx, `
		UPDATE verification_jobs
		SET completed_at = now(), verified_contract_id = $2, compilation_time = $3
		WHERE id = $1
	`, id, verifiedContractID, compilationTimeMS)
	return err
}

// FailJob records a handled failure as a {code, id, data} envelope.
func FailJob(ctx context.Context, pg *db.Postgres, id uuid.UUID, errEnvelope json.RawMessage) error {
	_, err := pg.Pool().Exec(ctx, `
		UPDATE verification_jobs SET completed_at = now(), error = $2 WHERE id = $1
	`, id, errEnvelope)
	return err
}

// GetJob fetches a job by id.
func GetJob(ctx context.Context, pg *db.Postgres, id uuid.UUID) (*VerificationJob, error) {
	var j VerificationJob
	err := pg.Pool().QueryRow(ctx, `
		SELECT id, started_at, completed_at, chain_id, contract_address, verified_contract_id,
		       error, compilation_time, verification_endpoint, hardware
		FROM verification_jobs WHERE id = $1
	`, id).Scan(&j.ID, &j.StartedAt, &j.CompletedAt, &j.ChainID, &j.ContractAddress, &j.VerifiedContractID,
		&j.Error, &j.CompilationTimeMS, &j.VerificationEndpoint, &j.Hardware)
	if err != nil {
		return nil, err
	}
	return &j, nil
}
