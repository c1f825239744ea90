package businessflow

import (
	"context"
	"time"

	"github.com/amirphl/workforce-ledger/models"
	"github.com/amirphl/workforce-ledger/repository"
	"github.com/amirphl/workforce-ledger/utils"
	"github.com/rs/zerolog"
)

// ActivitySink accepts audit entries; failures never abort the caller
type ActivitySink interface {
	Record(ctx context.Context, actor, message string, at time.Time) error
}

// RepositoryActivitySink stores audit entries in the activity_logs table
type RepositoryActivitySink struct {
	repo repository.ActivityLogRepository
}

func NewRepositoryActivitySink(repo repository.ActivityLogRepository) *RepositoryActivitySink {
	return &RepositoryActivitySink{repo: repo}
}

func (s *RepositoryActivitySink) Record(ctx context.Context, actor, message string, at time.Time) error {
	if actor == "" {
		actor = utils.SystemActor
	}
	return s.repo.Save(ctx, &models.ActivityLog{
		User: actor,
		Msg:  message,
		Date: at.UTC(),
	})
}

// recordActivity writes to the sink and only logs on failure
func recordActivity(ctx context.Context, sink ActivitySink, logger zerolog.Logger, actor, message string) {
	if sink == nil {
		return
	}
	if err := sink.Record(ctx, actor, message, utils.UTCNow()); err != nil {
		logger.Warn().Err(err).Str("actor", actor).Msg("failed to record activity")
	}
}
