package businessflow

import (
	"context"
	"fmt"
	"strings"

	"github.com/amirphl/workforce-ledger/app/dto"
	"github.com/amirphl/workforce-ledger/repository"
	"github.com/amirphl/workforce-ledger/utils"
	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
)

// FileMaintenanceFlow removes and lists uploaded call-log files
type FileMaintenanceFlow interface {
	DeleteFile(ctx context.Context, req *dto.DeleteFileRequest) (*dto.DeleteFileResponse, error)
	ListFiles(ctx context.Context) ([]string, error)
	ListDates(ctx context.Context, sourceName string) ([]string, error)
}

// FileMaintenanceFlowImpl implements FileMaintenanceFlow
type FileMaintenanceFlowImpl struct {
	callLogs  repository.CallLogRepository
	directory *DirectorySync
	activity  ActivitySink
	validate  *validator.Validate
	logger    zerolog.Logger
}

func NewFileMaintenanceFlow(callLogs repository.CallLogRepository, directory *DirectorySync, activity ActivitySink, logger zerolog.Logger) FileMaintenanceFlow {
	return &FileMaintenanceFlowImpl{
		callLogs:  callLogs,
		directory: directory,
		activity:  activity,
		validate:  validator.New(),
		logger:    logger.With().Str("component", "file_maintenance").Logger(),
	}
}

// DeleteFile drops an upload from both logs. With dates, only rows logged on those days go.
// The agent directory is refreshed afterwards for every remaining agent.
func (f *FileMaintenanceFlowImpl) DeleteFile(ctx context.Context, req *dto.DeleteFileRequest) (*dto.DeleteFileResponse, error) {
	if req == nil {
		return nil, ErrSourceRequired
	}
	if err := f.validate.Struct(req); err != nil {
		return nil, NewBusinessError("VALIDATION_ERROR", "Invalid delete request", err)
	}

	dates := make([]string, 0, len(req.Dates))
	for _, d := range req.Dates {
		parsed, err := utils.ParseDate(d)
		if err != nil {
			return nil, fmt.Errorf("%w: %q", ErrInvalidDate, d)
		}
		dates = append(dates, parsed.Format(utils.DateLayout))
	}
	dates = utils.Unique(dates)

	raw, updated, err := f.callLogs.DeleteBySourceFile(ctx, req.SourceName, dates)
	if err != nil {
		return nil, NewBusinessError(CodeWriteFailed, "Failed to delete call logs", err)
	}

	if _, err := f.directory.Sync(ctx, nil); err != nil {
		f.logger.Warn().Err(err).Str("source", req.SourceName).Msg("agent directory refresh after delete failed")
	}

	var msg string
	if len(dates) == 0 {
		msg = fmt.Sprintf("deleted all data of file %s", req.SourceName)
	} else {
		msg = fmt.Sprintf("deleted data of file %s for dates %s", req.SourceName, strings.Join(dates, ", "))
	}
	recordActivity(ctx, f.activity, f.logger, req.Actor, msg)

	f.logger.Info().
		Str("source", req.SourceName).
		Strs("dates", dates).
		Int64("raw_rows", raw).
		Int64("updated_rows", updated).
		Msg("call logs deleted")

	return &dto.DeleteFileResponse{
		Message:     msg,
		RawRows:     raw,
		UpdatedRows: updated,
	}, nil
}

func (f *FileMaintenanceFlowImpl) ListFiles(ctx context.Context) ([]string, error) {
	return f.callLogs.SourceFiles(ctx)
}

func (f *FileMaintenanceFlowImpl) ListDates(ctx context.Context, sourceName string) ([]string, error) {
	if strings.TrimSpace(sourceName) == "" {
		return nil, ErrSourceRequired
	}
	return f.callLogs.RawDates(ctx, sourceName)
}
