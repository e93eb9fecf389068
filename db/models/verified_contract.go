package models

import (
	"context"
	"encoding/json"

	"github.com/txpull/sourcecheck/db"
)

// MatchVerdict is the persisted form of verifier.Verdict, kept as a plain
// string here so the models package has no dependency on the verifier
// package (only the store layer bridges the two).
type MatchVerdict string

const (
	MatchPerfect MatchVerdict = "perfect"
	MatchPartial MatchVerdict = "partial"
	MatchNull    MatchVerdict = "null"
)

// VerifiedContract links a CompiledContract to a ContractDeployment plus the
// verdict, unique on (compilation_id, deployment_id) (spec §3).
type VerifiedContract struct {
	ID                   int64
	CompilationID        int64
	DeploymentID         int64
	RuntimeMatch         MatchVerdict
	CreationMatch        MatchVerdict
	RuntimeTransformations json.RawMessage
	CreationTransformations json.RawMessage
	TransformationValues json.RawMessage
	RuntimeMetadataMatch bool
	CreationMetadataMatch bool
}

// InsertVerifiedContract inserts a new row; a prior row for the same
// (compilation_id, deployment_id) is never overwritten (spec §3, "old
// verified_contracts rows are never deleted") — on conflict this returns the
// existing row's id untouched, since an identical compilation+deployment
// pair only happens when the exact same verification was already recorded.
func InsertVerifiedContract(ctx context.Context, pg *db.Postgres, v VerifiedContract) (int64, error) {
	var id int64
	err := pg.Pool().QueryRow(ctx, `
		INSERT INTO verified_contracts
			(compilation_id, deployment_id, runtime_match, creation_match,
			 runtime_transformations, creation_transformations, transformation_values,
			 runtime_metadata_match, creation_metadata_match)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (compilation_id, deployment_id) DO UPDATE SET compilation_id = verified_contracts.compilation_id
		RETURNING id
	`, v.CompilationID, v.DeploymentID, v.RuntimeMatch, v.CreationMatch,
		v.RuntimeTransformations, v.CreationTransformations, v.TransformationValues,
		v.RuntimeMetadataMatch, v.CreationMetadataMatch).
		Scan(&id)
	if err != nil {
		return 0, err
	}
	return id, nil
}

// rank orders MatchVerdict for the monotonicity invariant SourcifyMatch enforces.
func (m MatchVerdict) rank() int {
	switch m {
	case MatchPerfect:
		return 2
	case MatchPartial:
		return 1
	default:
		return 0
	}
}
