package models

import (
	"context"

	"github.com/txpull/sourcecheck/db"
)

// SourcifyMatch is the canonical (best) verification for a deployment: one
// row per verified_contract_id (spec §3). Only ever one per deployment;
// updated in place when a better verification arrives.
type SourcifyMatch struct {
	ID                 int64
	VerifiedContractID int64
	DeploymentID        int64
	Metadata           []byte
	LicenseCode        string
	Label              *string
	SimilarMatchID     *int64
}

// UpsertBestMatch serializes the read-then-decide against a concurrent
// writer for the same deploymentID using SELECT ... FOR UPDATE inside tx,
// per spec §5's "registry serializes persistence" guarantee. It only writes
// when newVerdict is strictly better than the row's current verdict (spec
// §3's monotonicity invariant); an equal or worse verdict returns
// apierror.CodeConflict.
func UpsertBestMatch(ctx context.Context, pg *db.Postgres, deploymentID int64, verifiedContractID int64, newVerdict MatchVerdict, metadata []byte, licenseCode string) (*SourcifyMatch, error) {
	tx, err := pg.Pool().Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	id, err := upsertSourcifyMatchInTx(ctx, tx, deploymentID, verifiedContractID, newVerdict, metadata, licenseCode)
	if err != nil {
		return nil, err
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return &SourcifyMatch{ID: id, VerifiedContractID: verifiedContractID, DeploymentID: deploymentID, Metadata: metadata, LicenseCode: licenseCode}, nil
}
