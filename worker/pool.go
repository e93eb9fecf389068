// Package worker generalizes the teacher's round-robin EthClient dispatch
// (clients/geth.go) into a bounded pool of verification workers draining a
// shared job channel, per spec §4.F and §5's "N workers, stateless except
// for lazily-initialized per-worker caches" scheduling model.
package worker

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"strings"
	"sync"
	"time"

	"github.com/txpull/sourcecheck/apierror"
	"github.com/txpull/sourcecheck/compilers"
	"github.com/txpull/sourcecheck/db"
	"github.com/txpull/sourcecheck/db/models"
	"github.com/txpull/sourcecheck/verifier"
	"go.uber.org/zap"
)

// Option configures a Pool.
type Option func(*Pool)

// WithSize sets the number of worker goroutines. Default 4.
func WithSize(n int) Option {
	return func(p *Pool) { p.size = n }
}

// WithQueueSize sets the buffered job channel capacity. Default 64.
func WithQueueSize(n int) Option {
	return func(p *Pool) { p.queueSize = n }
}

// WithJobTimeout bounds how long a single job may run before its context is
// cancelled (spec §4.F "context-scoped deadline").
func WithJobTimeout(d time.Duration) Option {
	return func(p *Pool) { p.jobTimeout = d }
}

// Pool is the bounded verification worker pool. Its fields are shared,
// read-only after New, and handed to every worker goroutine by reference
// (never copied), matching spec §5's shared-cache requirement.
type Pool struct {
	size       int
	queueSize  int
	jobTimeout time.Duration

	engine *verifier.Engine
	pg     *db.Postgres
	ephem  *db.BadgerDB

	jobs   chan *Job
	wg     sync.WaitGroup
	closed chan struct{}
	once   sync.Once
}

// New constructs a Pool bound to the given verification Engine and stores.
func New(engine *verifier.Engine, pg *db.Postgres, ephem *db.BadgerDB, opts ...Option) *Pool {
	p := &Pool{
		size:       4,
		queueSize:  64,
		jobTimeout: 2 * time.Minute,
		engine:     engine,
		pg:         pg,
		ephem:      ephem,
		closed:     make(chan struct{}),
	}
	for _, opt := range opts {
		opt(p)
	}
	p.jobs = make(chan *Job, p.queueSize)
	return p
}

// Start spawns the worker goroutines. Must be called once before Submit.
func (p *Pool) Start(ctx context.Context) {
	for i := 0; i < p.size; i++ {
		p.wg.Add(1)
		go p.runWorker(ctx, i)
	}
}

// Submit enqueues a job, blocking if the queue is full.
func (p *Pool) Submit(ctx context.Context, j *Job) error {
	select {
	case <-p.closed:
		return ErrPoolClosed
	default:
	}
	select {
	case p.jobs <- j:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-p.closed:
		return ErrPoolClosed
	}
}

// TrySubmit enqueues a job without blocking, returning ErrQueueFull if there
// is no free slot.
func (p *Pool) TrySubmit(j *Job) error {
	select {
	case <-p.closed:
		return ErrPoolClosed
	default:
	}
	select {
	case p.jobs <- j:
		return nil
	default:
		return ErrQueueFull
	}
}

// Close stops accepting new jobs and waits for in-flight jobs to finish.
func (p *Pool) Close() {
	p.once.Do(func() {
		close(p.closed)
		close(p.jobs)
	})
	p.wg.Wait()
}

func (p *Pool) runWorker(ctx context.Context, id int) {
	defer p.wg.Done()
	for j := range p.jobs {
		p.runJob(ctx, id, j)
	}
}

// runJob executes one job to completion, persisting a verification_jobs row
// per spec §4.F regardless of outcome (success persists via models.StoreVerification;
// failure records error_code/error_id/error_data).
func (p *Pool) runJob(ctx context.Context, workerID int, j *Job) {
	jobCtx, cancel := context.WithTimeout(ctx, p.jobTimeout)
	defer cancel()

	jobID, err := models.InsertJob(jobCtx, p.pg, j.ChainID, j.Address.Hex(), "", "")
	if err != nil {
		zap.L().Error("failed to persist verification job", zap.Error(err))
		return
	}

	start := time.Now()
	export, compilation, err := p.verify(jobCtx, j)
	elapsedMS := time.Since(start).Milliseconds()

	if err != nil {
		envelope, _ := json.Marshal(asAPIError(err))
		if failErr := models.FailJob(jobCtx, p.pg, jobID, envelope); failErr != nil {
			zap.L().Error("failed to record job failure", zap.Error(failErr))
		}
		zap.L().Warn("verification job failed",
			zap.String("job_id", jobID.String()),
			zap.Uint64("chain_id", j.ChainID),
			zap.String("address", j.Address.Hex()),
			zap.Error(err),
		)
		return
	}

	result, err := p.store(jobCtx, j, export, compilation)
	if err != nil {
		envelope, _ := json.Marshal(asAPIError(err))
		_ = models.FailJob(jobCtx, p.pg, jobID, envelope)
		zap.L().Error("failed to persist verification result", zap.Error(err))
		return
	}

	if err := models.CompleteJob(jobCtx, p.pg, jobID, result.VerifiedContractID, elapsedMS); err != nil {
		zap.L().Error("failed to mark job complete", zap.Error(err))
	}
}

// verify resolves j into a verifier.Compilation and runs the engine.
func (p *Pool) verify(ctx context.Context, j *Job) (*verifier.VerificationExport, verifier.Compilation, error) {
	var compilation verifier.Compilation

	switch j.Kind {
	case KindJSONInput:
		compilation = newCompilation(j.Language, j.Version, j.ContractPath, j.ContractName, j.Sources, nil, j.Settings)

	case KindMetadata:
		c, err := buildCompilationFromMetadata(j.Metadata, j.MetadataSources)
		if err != nil {
			return nil, nil, err
		}
		compilation = newCompilation(c.language, c.version, c.contractPath, c.contractName, c.sources, c.extraSources, c.settings)

	default:
		return nil, nil, apierror.New(apierror.CodeContractNotFound, nil, nil)
	}

	export, err := p.engine.Verify(ctx, compilation, j.chainIDBig(), j.Address, j.CreationTxHash)
	if err != nil {
		return nil, nil, err
	}
	return export, compilation, nil
}

func newCompilation(language compilers.Language, version, contractPath, contractName string, sources, extraSources map[string]compilers.Source, settings map[string]interface{}) verifier.Compilation {
	switch language {
	case compilers.LanguageVyper:
		return verifier.NewVyperCompilation(version, contractPath, contractName, sources, settings)
	case compilers.LanguageYul:
		return verifier.NewYulCompilation(version, contractName, sources, settings)
	default:
		return verifier.NewSolidityCompilationWithExtraSources(version, contractPath, contractName, sources, extraSources, settings)
	}
}

// store persists a successful VerificationExport via the single-transaction
// content-addressed chain described in spec §4.E.
func (p *Pool) store(ctx context.Context, j *Job, export *verifier.VerificationExport, compilation verifier.Compilation) (*models.StoreVerificationResult, error) {
	runtimeTransformJSON, _ := json.Marshal(export.RuntimeTransformations)
	creationTransformJSON, _ := json.Marshal(export.CreationTransformations)
	transformValuesJSON, _ := json.Marshal(export.TransformationValues)
	settingsJSON, _ := json.Marshal(map[string]interface{}{})
	onchainCreation, _ := decodeHex(export.OnchainCreationBytecode)

	in := models.StoreVerificationInput{
		ChainID:                 j.ChainID,
		Address:                 j.Address,
		TransactionHash:         j.CreationTxHash,
		Compiler:                compilation.Language(),
		Language:                compilation.Language(),
		Version:                 compilation.Version(),
		CompilationTarget:       j.ContractPath + ":" + j.ContractName,
		CompilerSettings:        settingsJSON,
		RuntimeCode:             mustDecodeHex(export.OnchainRuntimeBytecode),
		CreationCode:            onchainCreation,
		RuntimeMatch:            verdictToModel(export.Verdict),
		CreationMatch:           verdictToModel(export.Verdict),
		RuntimeTransformations:  runtimeTransformJSON,
		CreationTransformations: creationTransformJSON,
		TransformationValues:    transformValuesJSON,
		RuntimeMetadataMatch:    export.RuntimeMetadataMatch,
		CreationMetadataMatch:   export.CreationMetadataMatch,
	}

	return models.StoreVerification(ctx, p.pg, in)
}

func verdictToModel(v verifier.Verdict) models.MatchVerdict {
	switch v {
	case verifier.VerdictPerfect:
		return models.MatchPerfect
	case verifier.VerdictPartial:
		return models.MatchPartial
	default:
		return models.MatchNull
	}
}

func asAPIError(err error) *apierror.Error {
	if ae, ok := err.(*apierror.Error); ok {
		return ae
	}
	return apierror.New(apierror.CodeCompilerError, nil, err)
}

func mustDecodeHex(s string) []byte {
	b, _ := decodeHex(s)
	return b
}

func decodeHex(s string) ([]byte, error) {
	if s == "" {
		return nil, nil
	}
	s = strings.TrimPrefix(strings.TrimPrefix(s, "0x"), "0X")
	return hex.DecodeString(s)
}
