package businessflow

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/amirphl/workforce-ledger/app/dto"
	"github.com/amirphl/workforce-ledger/app/metrics"
	"github.com/amirphl/workforce-ledger/app/services"
	"github.com/amirphl/workforce-ledger/config"
	"github.com/amirphl/workforce-ledger/models"
	"github.com/amirphl/workforce-ledger/repository"
	"github.com/amirphl/workforce-ledger/utils"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"gorm.io/gorm"
)

// IngestionFlow runs one call-log upload through the whole pipeline
type IngestionFlow interface {
	Ingest(ctx context.Context, req *dto.IngestRequest) (*dto.IngestResponse, error)
}

// IngestionFlowImpl implements IngestionFlow
type IngestionFlowImpl struct {
	db         *gorm.DB
	runs       repository.IngestionRunRepository
	history    *HistoryResolver
	hierarchy  *HierarchyRegistry
	reconciler *RowReconciler
	loader     *BulkLoader
	directory  *DirectorySync
	activity   ActivitySink
	lock       services.RunLock
	metrics    *metrics.IngestionMetrics
	cfg        config.IngestionConfig
	validate   *validator.Validate
	logger     zerolog.Logger
}

func NewIngestionFlow(
	db *gorm.DB,
	runs repository.IngestionRunRepository,
	history *HistoryResolver,
	hierarchy *HierarchyRegistry,
	reconciler *RowReconciler,
	loader *BulkLoader,
	directory *DirectorySync,
	activity ActivitySink,
	lock services.RunLock,
	m *metrics.IngestionMetrics,
	cfg config.IngestionConfig,
	logger zerolog.Logger,
) IngestionFlow {
	return &IngestionFlowImpl{
		db:         db,
		runs:       runs,
		history:    history,
		hierarchy:  hierarchy,
		reconciler: reconciler,
		loader:     loader,
		directory:  directory,
		activity:   activity,
		lock:       lock,
		metrics:    m,
		cfg:        cfg,
		validate:   validator.New(),
		logger:     logger.With().Str("component", "ingestion").Logger(),
	}
}

// ingestRun carries the state of one run between stages
type ingestRun struct {
	id      uuid.UUID
	record  *models.IngestionRun
	req     *dto.IngestRequest
	stage   Stage
	started time.Time
	logger  zerolog.Logger
	resp    *dto.IngestResponse
}

func (r *ingestRun) reach(stage Stage) {
	r.stage = stage
	r.logger.Debug().Str("stage", string(stage)).Msg("stage reached")
}

// Ingest parses, validates, reconciles and loads one file. It either commits every row of the
// file or none. Steps after the commit only add warnings.
func (f *IngestionFlowImpl) Ingest(ctx context.Context, req *dto.IngestRequest) (*dto.IngestResponse, error) {
	if req == nil || req.Reader == nil {
		return nil, newIngestionError(StageStarted, CodeReadFailed, "Call log reader is required", ErrReaderRequired)
	}
	if req.SourceName == "" {
		return nil, newIngestionError(StageStarted, CodeReadFailed, "Source file name is required", ErrSourceRequired)
	}
	if err := f.validate.Struct(req); err != nil {
		return nil, newIngestionError(StageStarted, CodeReadFailed, "Invalid ingestion request", err)
	}

	if f.lock != nil {
		release, err := f.lock.Acquire(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil, aborted(StageStarted, ctx.Err())
			}
			if errors.Is(err, services.ErrRunLockHeld) {
				return nil, newIngestionError(StageStarted, CodeRunLocked, "Another ingestion is running", fmt.Errorf("%w: %v", ErrRunLocked, err))
			}
			return nil, newIngestionError(StageStarted, CodeRunLocked, "Failed to acquire ingestion lock", err)
		}
		defer release()
	}

	run := f.startRun(ctx, req)

	resp, err := f.execute(ctx, run)
	if err != nil {
		f.failRun(ctx, run, err)
		return nil, err
	}
	f.completeRun(ctx, run)
	return resp, nil
}

func (f *IngestionFlowImpl) execute(ctx context.Context, run *ingestRun) (*dto.IngestResponse, error) {
	req := run.req

	// Parse
	format, err := services.DetectFormat(req.Format, req.SourceName)
	if err != nil {
		return nil, newIngestionError(run.stage, CodeReadFailed, "Unsupported call log format", err)
	}
	table, err := services.ReadCallLogs(req.Reader, format)
	if err != nil {
		return nil, newIngestionError(run.stage, CodeReadFailed, "Failed to read call log file", err)
	}
	run.reach(StageParsed)

	// Validate
	if err := table.Validate(); err != nil {
		var missing *services.MissingColumnsError
		if errors.As(err, &missing) {
			return nil, newIngestionError(run.stage, CodeSchemaInvalid, "Call log file is missing required columns", &SchemaError{Missing: missing.Missing})
		}
		return nil, newIngestionError(run.stage, CodeSchemaInvalid, "Invalid call log file", err)
	}
	if table.Len() == 0 {
		return nil, newIngestionError(run.stage, CodeSchemaInvalid, "Call log file has no data rows", ErrEmptyFile)
	}
	run.reach(StageValidated)

	// Normalize
	rows, skipped, err := f.normalize(table.Records())
	if err != nil {
		return nil, newIngestionError(run.stage, CodeInvalidRow, "Call log file has rows without an agent name", err)
	}
	if len(rows) == 0 {
		return nil, newIngestionError(run.stage, CodeInvalidRow, "Call log file has no rows with an agent name", ErrEmptyFile)
	}

	names := make([]string, len(rows))
	times := make([]*time.Time, len(rows))
	partTimers := 0
	for i, row := range rows {
		names[i] = row.Name
		times[i] = row.Record.LogTime
		if row.Role == models.RolePartTimer {
			partTimers++
		}
	}
	agents := utils.Unique(names)
	cutoff, latest := utils.MinMaxTime(times)

	run.record.TotalRows = len(rows)
	run.record.SkippedRows = skipped
	run.record.PartTimerRows = partTimers
	run.record.MinLogTime = cutoff
	run.record.MaxLogTime = latest
	run.reach(StageNormalized)

	// Resolve history
	if err := f.hierarchy.Load(ctx); err != nil {
		if ctx.Err() != nil {
			return nil, aborted(run.stage, ctx.Err())
		}
		return nil, newIngestionError(run.stage, CodeReadFailed, "Failed to load team leaders", err)
	}
	history, err := f.history.Resolve(ctx, agents, cutoff)
	if err != nil {
		if ctx.Err() != nil {
			return nil, aborted(run.stage, ctx.Err())
		}
		return nil, newIngestionError(run.stage, CodeHistoryLookupFailed, "Failed to resolve agent history", err)
	}
	run.reach(StageHistoryResolved)

	// Reconcile
	runID := run.id.String()
	updated, err := f.reconciler.ReconcileAll(ctx, rows, history.Priors, f.hierarchy, req.SourceName, runID, f.cfg.Workers)
	if err != nil {
		return nil, aborted(run.stage, err)
	}
	raw := make([]*models.RawCallLog, len(rows))
	for i, row := range rows {
		raw[i] = ToRawCallLog(row.Record, req.SourceName, runID)
	}
	run.reach(StageReconciled)

	// Load. Cancellation is honoured up to here; the write itself is not interruptible.
	if err := ctx.Err(); err != nil {
		return nil, aborted(run.stage, err)
	}
	var stats LoadStats
	err = repository.WithTransaction(context.WithoutCancel(ctx), f.db, func(txCtx context.Context) error {
		tx, _ := repository.TxFromContext(txCtx)
		var lerr error
		stats, lerr = f.loader.Load(tx, raw, updated)
		return lerr
	})
	if err != nil {
		f.loader.Restore(f.db.WithContext(context.WithoutCancel(ctx)))
		if !errors.Is(err, ErrBulkWrite) {
			err = fmt.Errorf("%w: %v", ErrBulkWrite, err)
		}
		return nil, newIngestionError(run.stage, CodeWriteFailed, "Failed to write call logs", err)
	}
	f.metrics.AddRows(models.RawCallLog{}.TableName(), stats.RawRows)
	f.metrics.AddRows(models.UpdatedCallLog{}.TableName(), stats.UpdatedRows)
	run.reach(StageLoaded)

	resp := &dto.IngestResponse{
		RunUUID:         runID,
		SourceName:      req.SourceName,
		TotalRows:       len(rows),
		SkippedRows:     skipped,
		PartTimerRows:   partTimers,
		Agents:          len(agents),
		AgentsWithPrior: len(history.Priors),
		HistoryDegraded: history.Degraded,
		MinLogTime:      cutoff,
		MaxLogTime:      latest,
	}
	if history.Degraded {
		resp.Warnings = append(resp.Warnings, "history lookup used the fallback query; prior state may be newer than the file")
	}
	run.resp = resp

	// Best-effort maintenance after commit
	postCtx := context.WithoutCancel(ctx)

	created, err := f.hierarchy.Absorb(postCtx, updated)
	if err != nil {
		f.postSyncFailed(run, &PostSyncError{Step: "hierarchy_absorb", Err: err})
	}
	for _, tl := range created {
		resp.LeadersCreated = append(resp.LeadersCreated, tl.Name)
	}
	refitted, err := f.hierarchy.Preserve(postCtx)
	if err != nil {
		f.postSyncFailed(run, &PostSyncError{Step: "hierarchy_preserve", Err: err})
	}
	resp.LeadersRefitted = refitted
	run.reach(StageHierarchySynced)

	synced, err := f.directory.Sync(postCtx, agents)
	if err != nil {
		f.postSyncFailed(run, &PostSyncError{Step: "directory_sync", Err: err})
	}
	resp.DirectoryRows = synced
	run.reach(StageDirectorySynced)

	run.reach(StageComplete)
	resp.Stage = string(StageComplete)
	resp.Duration = time.Since(run.started).Round(time.Millisecond).String()
	resp.Message = fmt.Sprintf("uploaded and ingested file %s (%d rows)", req.SourceName, len(rows))
	return resp, nil
}

func aborted(stage Stage, cause error) *IngestionError {
	return newIngestionError(stage, CodeRunAborted, "Ingestion aborted", fmt.Errorf("%w: %v", ErrRunAborted, cause))
}

// normalize canonicalizes names and applies the blank name policy
func (f *IngestionFlowImpl) normalize(records []services.CallLogRecord) ([]NormalizedRow, int, error) {
	all := Normalize(records)

	var blankLines []int
	rows := all[:0]
	for _, row := range all {
		if row.Name == "" {
			blankLines = append(blankLines, row.Record.Line)
			continue
		}
		rows = append(rows, row)
	}
	if len(blankLines) > 0 && f.cfg.BlankNamePolicy != config.BlankNameSkip {
		return nil, 0, &InvalidRowsError{Lines: blankLines}
	}
	return rows, len(blankLines), nil
}

func (f *IngestionFlowImpl) postSyncFailed(run *ingestRun, err *PostSyncError) {
	run.logger.Error().Err(err.Err).Str("step", err.Step).Msg("post-load step failed")
	f.metrics.PostSyncFailed(err.Step)
	run.resp.Warnings = append(run.resp.Warnings, err.Error())
}

// startRun records the run; a failure to record never blocks ingestion
func (f *IngestionFlowImpl) startRun(ctx context.Context, req *dto.IngestRequest) *ingestRun {
	id := uuid.New()
	actor := req.Actor
	if actor == "" {
		actor = utils.SystemActor
	}

	run := &ingestRun{
		id:  id,
		req: req,
		record: &models.IngestionRun{
			UUID:       id,
			SourceFile: req.SourceName,
			Actor:      actor,
			Status:     models.IngestionRunStatusRunning,
			Stage:      string(StageStarted),
			StartedAt:  utils.UTCNow(),
		},
		stage:   StageStarted,
		started: time.Now(),
		logger: f.logger.With().
			Str("run_uuid", id.String()).
			Str("source", req.SourceName).
			Logger(),
	}

	if f.runs != nil {
		if err := f.runs.Save(ctx, run.record); err != nil {
			run.logger.Warn().Err(err).Msg("failed to record ingestion run")
		}
	}
	run.logger.Info().Str("actor", actor).Msg("ingestion started")
	return run
}

func (f *IngestionFlowImpl) completeRun(ctx context.Context, run *ingestRun) {
	ctx = context.WithoutCancel(ctx)

	run.record.Status = models.IngestionRunStatusCompleted
	run.record.Stage = string(run.stage)
	run.record.FinishedAt = utils.UTCNowPtr()
	f.finishRecord(ctx, run)

	elapsed := time.Since(run.started)
	f.metrics.ObserveRun(models.IngestionRunStatusCompleted, string(run.stage), elapsed)
	recordActivity(ctx, f.activity, run.logger, run.record.Actor, run.resp.Message)

	run.logger.Info().
		Int("rows", run.resp.TotalRows).
		Int("skipped", run.resp.SkippedRows).
		Int("agents", run.resp.Agents).
		Int("agents_with_prior", run.resp.AgentsWithPrior).
		Strs("leaders_created", run.resp.LeadersCreated).
		Int("warnings", len(run.resp.Warnings)).
		Dur("elapsed", elapsed).
		Msg("ingestion completed")
}

func (f *IngestionFlowImpl) failRun(ctx context.Context, run *ingestRun, err error) {
	ctx = context.WithoutCancel(ctx)

	msg := err.Error()
	run.record.Status = models.IngestionRunStatusFailed
	run.record.Stage = string(StageFailed)
	run.record.FailedStage = string(run.stage)
	run.record.ErrorMessage = &msg
	run.record.FinishedAt = utils.UTCNowPtr()
	f.finishRecord(ctx, run)

	elapsed := time.Since(run.started)
	f.metrics.ObserveRun(models.IngestionRunStatusFailed, string(run.stage), elapsed)
	recordActivity(ctx, f.activity, run.logger, run.record.Actor, fmt.Sprintf("failed to ingest file %s: %s", run.req.SourceName, msg))

	run.logger.Error().
		Err(err).
		Str("code", ErrorCode(err)).
		Str("stage", string(run.stage)).
		Dur("elapsed", elapsed).
		Msg("ingestion failed")
}

func (f *IngestionFlowImpl) finishRecord(ctx context.Context, run *ingestRun) {
	if f.runs == nil || run.record.ID == 0 {
		return
	}
	if err := f.runs.Finish(ctx, run.record); err != nil {
		run.logger.Warn().Err(err).Msg("failed to finish ingestion run record")
	}
}
