package worker

import (
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/google/uuid"
	"github.com/txpull/sourcecheck/compilers"
)

// Kind selects which of the three job shapes spec §4.F describes a Job is.
type Kind string

const (
	KindJSONInput Kind = "json_input"
	KindMetadata  Kind = "metadata"
	KindExplorer  Kind = "explorer"
)

// Job is one unit of work dequeued by a pool worker. Exactly one of the
// payload fields is populated, selected by Kind.
type Job struct {
	ID             uuid.UUID
	Kind           Kind
	ChainID        uint64
	Address        common.Address
	CreationTxHash common.Hash
	SubmittedAt    time.Time

	// KindJSONInput
	Language     compilers.Language
	Version      string
	Sources      map[string]compilers.Source
	Settings     map[string]interface{}
	ContractPath string
	ContractName string

	// KindMetadata
	Metadata        []byte
	MetadataSources map[string]string

	// KindExplorer is resolved into a KindJSONInput-shaped job by the
	// Etherscan Importer before it ever reaches the pool (spec §4.G step 4
	// already produces a ProcessedEtherscanResult with a jsonInput), so the
	// pool only ever sees JSONInput or Metadata jobs in practice; Kind is
	// still distinguished here for job-record bookkeeping.
}

// NewJSONInputJob builds a KindJSONInput job, assigning a fresh uuid.
func NewJSONInputJob(chainID uint64, address common.Address, language compilers.Language, version string, sources map[string]compilers.Source, settings map[string]interface{}, contractPath, contractName string, creationTxHash common.Hash) *Job {
	return &Job{
		ID:             uuid.New(),
		Kind:           KindJSONInput,
		ChainID:        chainID,
		Address:        address,
		CreationTxHash: creationTxHash,
		SubmittedAt:    time.Now(),
		Language:       language,
		Version:        version,
		Sources:        sources,
		Settings:       settings,
		ContractPath:   contractPath,
		ContractName:   contractName,
	}
}

// NewMetadataJob builds a KindMetadata job.
func NewMetadataJob(chainID uint64, address common.Address, metadata []byte, sources map[string]string, creationTxHash common.Hash) *Job {
	return &Job{
		ID:              uuid.New(),
		Kind:            KindMetadata,
		ChainID:         chainID,
		Address:         address,
		CreationTxHash:  creationTxHash,
		SubmittedAt:     time.Now(),
		Metadata:        metadata,
		MetadataSources: sources,
	}
}

// chainIDBig is a convenience used when calling into verifier.Engine, which
// takes *big.Int per go-ethereum convention.
func (j *Job) chainIDBig() *big.Int {
	return new(big.Int).SetUint64(j.ChainID)
}
