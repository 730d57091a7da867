package jobs

import (
	"context"
	"errors"

	"github.com/rs/zerolog"

	"autostudio/internal/domain"
	"autostudio/internal/lifecycle"
)

// StatusView is the caller-facing result of a status query. Stale marks a
// view served from the last known record because the provider could not be
// reached.
type StatusView struct {
	Job   domain.Job
	Stale bool
}

// PollGateway queries the provider for current job status on demand and runs
// the response through the identical transition path the webhook reconciler
// uses. It backs the client-facing status endpoint and the sweep
// reconciliation loop.
type PollGateway struct {
	repo     domain.JobRepository
	provider ProviderClient
	applier  *Applier
	logger   zerolog.Logger
}

func NewPollGateway(repo domain.JobRepository, client ProviderClient, applier *Applier, logger zerolog.Logger) *PollGateway {
	return &PollGateway{repo: repo, provider: client, applier: applier, logger: logger}
}

// Poll returns the current view of a job, refreshing it from the provider
// when the job is still in flight. A provider outage returns the last known
// record flagged stale rather than an error: the record is real even when the
// provider is not reachable.
func (g *PollGateway) Poll(ctx context.Context, jobID string) (*StatusView, error) {
	job, err := g.repo.GetByID(ctx, jobID)
	if err != nil {
		return nil, err
	}
	if job.State.IsTerminal() || job.ProviderHandle == "" {
		return &StatusView{Job: *job}, nil
	}

	raw, err := g.provider.Status(ctx, job.ProviderHandle)
	if err != nil {
		if errors.Is(err, domain.ErrProviderUnavailable) || errors.Is(err, domain.ErrNotFound) {
			g.logger.Warn().Err(err).Str("job_id", job.ID).Msg("poll: provider query failed, serving last known state")
			return &StatusView{Job: *job, Stale: true}, nil
		}
		return nil, err
	}

	event, err := lifecycle.Classify(job.Kind, raw)
	if err != nil {
		g.logger.Warn().Err(err).Str("job_id", job.ID).Msg("poll: unclassifiable provider response")
		return &StatusView{Job: *job, Stale: true}, nil
	}

	updated, _, err := g.applier.ApplyEvent(ctx, job.ID, event)
	if err != nil {
		return nil, err
	}
	return &StatusView{Job: *updated}, nil
}
