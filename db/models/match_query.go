package models

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/txpull/sourcecheck/compilers"
	"github.com/txpull/sourcecheck/db"
)

// MatchProperty is one field of the projection lookupByChainAndAddress may
// return (spec §4.E's enumerated property set).
type MatchProperty string

const (
	PropertyID                     MatchProperty = "id"
	PropertyCreationMatch          MatchProperty = "creation_match"
	PropertyRuntimeMatch           MatchProperty = "runtime_match"
	PropertyAddress                MatchProperty = "address"
	PropertyVerifiedAt             MatchProperty = "verified_at"
	PropertyMetadata               MatchProperty = "metadata"
	PropertySources                MatchProperty = "sources"
	PropertyStdJSONInput           MatchProperty = "std_json_input"
	PropertyTransformations        MatchProperty = "transformations"
	PropertyCompilerSettings       MatchProperty = "compiler_settings"
	PropertyOnchainRuntimeCode     MatchProperty = "onchain_runtime_code"
	PropertyOnchainCreationCode    MatchProperty = "onchain_creation_code"
	PropertyRecompiledRuntimeCode  MatchProperty = "recompiled_runtime_code"
	PropertyRecompiledCreationCode MatchProperty = "recompiled_creation_code"
)

// SourceFile is one member of a compilation's source set.
type SourceFile struct {
	Path    string
	Content string
}

// MatchLookup is lookupByChainAndAddress's projection. Only the fields named
// by the properties passed to LookupByChainAndAddress are populated; the
// rest are left at their zero value.
type MatchLookup struct {
	ID                     int64
	RuntimeMatch           MatchVerdict
	CreationMatch          MatchVerdict
	Address                common.Address
	VerifiedAt             time.Time
	Metadata               json.RawMessage
	Sources                []SourceFile
	StdJSONInput           json.RawMessage
	Transformations        json.RawMessage
	CompilerSettings       json.RawMessage
	OnchainRuntimeCode     []byte
	OnchainCreationCode    []byte
	RecompiledRuntimeCode  []byte
	RecompiledCreationCode []byte
}

// LookupByChainAndAddress returns the projection of properties for the most
// recent deployment of address on chainID, sourced from its sourcify_matches
// row. The match for a deployment is unique (sourcify_matches.deployment_id
// is unique), so "most recent deployment" and "the match" coincide.
func LookupByChainAndAddress(ctx context.Context, pg *db.Postgres, chainID uint64, address common.Address, properties []MatchProperty) (*MatchLookup, error) {
	want := make(map[MatchProperty]bool, len(properties))
	for _, p := range properties {
		want[p] = true
	}

	var (
		matchID                                       int64
		compilationID                                 int64
		runtimeMatch, creationMatch                   MatchVerdict
		verifiedAt                                     time.Time
		metadata, compilerSettings, runtimeTransforms []byte
		addrBytes                                     []byte
		language                                      string
		onchainRuntimeHash, onchainCreationHash       []byte
		recompiledRuntimeHash, recompiledCreationHash []byte
	)

	err := pg.Pool().QueryRow(ctx, `
		SELECT sm.id, vc.compilation_id,
		       vc.runtime_match, vc.creation_match, vc.created_at,
		       sm.metadata, cc.compiler_settings, vc.runtime_transformations,
		       cd.address, cc.language,
		       ct.runtime_code_hash, ct.creation_code_hash,
		       cc.runtime_code_hash, cc.creation_code_hash
		FROM sourcify_matches sm
		JOIN verified_contracts vc ON vc.id = sm.verified_contract_id
		JOIN contract_deployments cd ON cd.id = vc.deployment_id
		JOIN contracts ct ON ct.id = cd.contract_id
		JOIN compiled_contracts cc ON cc.id = vc.compilation_id
		WHERE cd.chain_id = $1 AND cd.address = $2
		ORDER BY cd.block_number DESC NULLS LAST
		LIMIT 1
	`, chainID, address.Bytes()).Scan(
		&matchID, &compilationID,
		&runtimeMatch, &creationMatch, &verifiedAt,
		&metadata, &compilerSettings, &runtimeTransforms,
		&addrBytes, &language,
		&onchainRuntimeHash, &onchainCreationHash,
		&recompiledRuntimeHash, &recompiledCreationHash,
	)
	if err != nil {
		return nil, err
	}

	out := &MatchLookup{}
	if want[PropertyID] {
		out.ID = matchID
	}
	if want[PropertyRuntimeMatch] {
		out.RuntimeMatch = runtimeMatch
	}
	if want[PropertyCreationMatch] {
		out.CreationMatch = creationMatch
	}
	if want[PropertyAddress] {
		out.Address = common.BytesToAddress(addrBytes)
	}
	if want[PropertyVerifiedAt] {
		out.VerifiedAt = verifiedAt
	}
	if want[PropertyMetadata] {
		out.Metadata = metadata
	}
	if want[PropertyCompilerSettings] {
		out.CompilerSettings = compilerSettings
	}
	if want[PropertyTransformations] {
		out.Transformations = runtimeTransforms
	}

	if want[PropertyOnchainRuntimeCode] {
		if out.OnchainRuntimeCode, err = GetCode(ctx, pg, common.BytesToHash(onchainRuntimeHash)); err != nil {
			return nil, err
		}
	}
	if want[PropertyOnchainCreationCode] && onchainCreationHash != nil {
		if out.OnchainCreationCode, err = GetCode(ctx, pg, common.BytesToHash(onchainCreationHash)); err != nil {
			return nil, err
		}
	}
	if want[PropertyRecompiledRuntimeCode] {
		if out.RecompiledRuntimeCode, err = GetCode(ctx, pg, common.BytesToHash(recompiledRuntimeHash)); err != nil {
			return nil, err
		}
	}
	if want[PropertyRecompiledCreationCode] && recompiledCreationHash != nil {
		if out.RecompiledCreationCode, err = GetCode(ctx, pg, common.BytesToHash(recompiledCreationHash)); err != nil {
			return nil, err
		}
	}

	if want[PropertySources] || want[PropertyStdJSONInput] {
		if out.Sources, err = sourcesForCompilation(ctx, pg, compilationID); err != nil {
			return nil, err
		}
	}
	if want[PropertyStdJSONInput] {
		if out.StdJSONInput, err = buildStdJSONInput(language, compilerSettings, out.Sources); err != nil {
			return nil, err
		}
		if !want[PropertySources] {
			out.Sources = nil
		}
	}

	return out, nil
}

func sourcesForCompilation(ctx context.Context, pg *db.Postgres, compilationID int64) ([]SourceFile, error) {
	rows, err := pg.Pool().Query(ctx, `
		SELECT ccs.path, s.content
		FROM compiled_contract_sources ccs
		JOIN sources s ON s.source_hash = ccs.source_hash
		WHERE ccs.compilation_id = $1
		ORDER BY ccs.path
	`, compilationID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []SourceFile
	for rows.Next() {
		var sf SourceFile
		if err := rows.Scan(&sf.Path, &sf.Content); err != nil {
			return nil, err
		}
		out = append(out, sf)
	}
	return out, rows.Err()
}

func buildStdJSONInput(language string, compilerSettings []byte, sources []SourceFile) (json.RawMessage, error) {
	input := compilers.Input{
		Language: language,
		Sources:  make(map[string]compilers.Source, len(sources)),
	}
	for _, s := range sources {
		input.Sources[s.Path] = compilers.Source{Content: s.Content}
	}
	if len(compilerSettings) > 0 {
		if err := json.Unmarshal(compilerSettings, &input.Settings); err != nil {
			return nil, err
		}
	}
	return json.Marshal(input)
}

// MatchFilter narrows PaginateMatches to a verdict class.
type MatchFilter string

const (
	FilterFull    MatchFilter = "full"
	FilterPartial MatchFilter = "partial"
	FilterAny     MatchFilter = "any"
)

// MatchSummary is one row of a PaginateMatches page.
type MatchSummary struct {
	ID            int64
	ChainID       uint64
	Address       common.Address
	RuntimeMatch  MatchVerdict
	CreationMatch MatchVerdict
}

// PaginateMatches keyset-paginates sourcify_matches by id, per spec §4.E.
// afterId is the last id of the previous page (0 to start from the
// beginning); descending reverses both the comparison and the ordering.
func PaginateMatches(ctx context.Context, pg *db.Postgres, chainID uint64, filter MatchFilter, afterID int64, limit int, descending bool) ([]MatchSummary, error) {
	verdictClause := ""
	switch filter {
	case FilterFull:
		verdictClause = "AND vc.runtime_match = 'perfect' AND vc.creation_match = 'perfect'"
	case FilterPartial:
		verdictClause = "AND NOT (vc.runtime_match = 'perfect' AND vc.creation_match = 'perfect')"
	}

	cmp, order := ">", "ASC"
	if descending {
		cmp, order = "<", "DESC"
		if afterID == 0 {
			afterID = math.MaxInt64
		}
	}

	query := fmt.Sprintf(`
		SELECT sm.id, cd.address, vc.runtime_match, vc.creation_match
		FROM sourcify_matches sm
		JOIN verified_contracts vc ON vc.id = sm.verified_contract_id
		JOIN contract_deployments cd ON cd.id = vc.deployment_id
		WHERE cd.chain_id = $1 AND sm.id %s $2
		%s
		ORDER BY sm.id %s
		LIMIT $3
	`, cmp, verdictClause, order)

	rows, err := pg.Pool().Query(ctx, query, chainID, afterID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []MatchSummary
	for rows.Next() {
		var (
			m         MatchSummary
			addrBytes []byte
		)
		m.ChainID = chainID
		if err := rows.Scan(&m.ID, &addrBytes, &m.RuntimeMatch, &m.CreationMatch); err != nil {
			return nil, err
		}
		m.Address = common.BytesToAddress(addrBytes)
		out = append(out, m)
	}
	return out, rows.Err()
}
