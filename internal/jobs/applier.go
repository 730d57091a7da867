package jobs

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"autostudio/internal/domain"
	"autostudio/internal/lifecycle"
)

// casRetries bounds the reload-and-reapply loop when a concurrent writer wins
// the version race. The engine is idempotent, so reapplying is always safe.
const casRetries = 3

// Applier is the single write path into job records. Webhook reconciliation
// and status polling both feed their classified events through here, which is
// what keeps the two event sources from diverging: one legal state graph, one
// per-job exclusivity scope, one optimistic-version update.
type Applier struct {
	repo   domain.JobRepository
	locks  *keyedLocks
	logger zerolog.Logger
}

func NewApplier(repo domain.JobRepository, logger zerolog.Logger) *Applier {
	return &Applier{repo: repo, locks: newKeyedLocks(), logger: logger}
}

// ApplyEvent runs one classified event against the identified job. Discarded
// events (stale, terminal conflict) are not errors: the raw payload is kept
// for audit and the record is otherwise untouched. The updated record is
// returned so callers can serve it without a second read.
func (a *Applier) ApplyEvent(ctx context.Context, jobID string, event domain.JobEvent) (*domain.Job, bool, error) {
	release := a.locks.acquire(jobID)
	defer release()

	for attempt := 0; attempt < casRetries; attempt++ {
		job, err := a.repo.GetByID(ctx, jobID)
		if err != nil {
			return nil, false, err
		}
		expected := job.Version

		changed, applyErr := lifecycle.Apply(job, event, time.Now().UTC())
		if applyErr != nil {
			if errors.Is(applyErr, domain.ErrStaleEvent) || errors.Is(applyErr, domain.ErrTerminalConflict) {
				a.logger.Debug().
					Str("job_id", jobID).
					Str("stage", string(event.Stage)).
					Str("state", string(job.State)).
					Msg("event discarded")
				if err := a.repo.RecordNotice(ctx, jobID, event.Raw); err != nil {
					a.logger.Warn().Err(err).Str("job_id", jobID).Msg("audit write failed")
				}
				return job, false, nil
			}
			return nil, false, applyErr
		}
		if !changed {
			// Exact duplicate content: nothing to persist, but the raw
			// payload is still kept as the last notification received.
			if err := a.repo.RecordNotice(ctx, jobID, event.Raw); err != nil {
				a.logger.Warn().Err(err).Str("job_id", jobID).Msg("audit write failed")
			}
			return job, false, nil
		}

		err = a.repo.Update(ctx, job, expected)
		if err == nil {
			a.logger.Info().
				Str("job_id", jobID).
				Str("state", string(job.State)).
				Int("assets", len(job.ResultAssets)).
				Msg("job transitioned")
			return job, true, nil
		}
		if !errors.Is(err, domain.ErrVersionConflict) {
			return nil, false, err
		}
		// Lost the version race to a concurrent writer; reload and reapply.
	}
	return nil, false, fmt.Errorf("apply event: %w after %d attempts", domain.ErrVersionConflict, casRetries)
}
