package jobs

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"

	"autostudio/internal/domain"
	"autostudio/internal/infra"
	"autostudio/internal/lifecycle"
)

// noticeDedupeTTL bounds how long a provider notification id is remembered.
// The state machine's idempotency is the authoritative guard; the cache only
// saves the round-trip for hot retries.
const noticeDedupeTTL = 24 * time.Hour

// Ack reports what happened to one webhook delivery. Received and Processed
// are deliberately separate: the transport acknowledgment to the provider is
// decided by Received/Malformed alone, while Processed keeps internal
// visibility into deliveries that were swallowed to avoid retry storms.
type Ack struct {
	Received  bool
	Processed bool
	Malformed bool
	Matched   bool
	Duplicate bool
	JobID     string
}

// Reconciler consumes provider push notifications and applies them to job
// records through the shared transition path.
type Reconciler struct {
	repo    domain.JobRepository
	applier *Applier
	cache   *infra.Cache
	logger  zerolog.Logger
}

func NewReconciler(repo domain.JobRepository, applier *Applier, cache *infra.Cache, logger zerolog.Logger) *Reconciler {
	return &Reconciler{repo: repo, applier: applier, cache: cache, logger: logger}
}

// HandleNotification processes one raw webhook delivery. Only an unparseable
// payload is reported as malformed (the transport layer answers 4xx so the
// provider's delivery system can flag it); every other failure is logged and
// acknowledged as received so transient internal errors never amplify into
// provider-side retry storms.
func (r *Reconciler) HandleNotification(ctx context.Context, raw []byte) Ack {
	handle, noticeID, err := lifecycle.Correlate(raw)
	if err != nil {
		r.logger.Warn().Err(err).Msg("webhook: malformed payload")
		return Ack{Malformed: true}
	}
	ack := Ack{Received: true}

	if noticeID != "" {
		first, err := r.cache.MarkOnce(ctx, "webhook:notice:"+noticeID, noticeDedupeTTL)
		if err != nil {
			r.logger.Warn().Err(err).Msg("webhook: dedupe cache unavailable")
		}
		if !first {
			r.logger.Debug().Str("notification_id", noticeID).Msg("webhook: duplicate delivery short-circuited")
			ack.Duplicate = true
			ack.Processed = true
			return ack
		}
	}

	job, err := r.repo.GetByProviderHandle(ctx, handle)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			// Unknown handle: acknowledged as a no-op so the provider does
			// not retry a delivery this system can never match.
			r.logger.Warn().Str("provider_handle", handle).Msg("webhook: no matching job record")
			ack.Processed = true
			return ack
		}
		r.logger.Error().Err(err).Str("provider_handle", handle).Msg("webhook: job lookup failed")
		return ack
	}
	ack.Matched = true
	ack.JobID = job.ID

	event, err := lifecycle.Classify(job.Kind, raw)
	if err != nil {
		// Correlate succeeded, so the payload parses; a classification
		// failure here means no recognizable status. Logged and acknowledged.
		r.logger.Warn().Err(err).Str("job_id", job.ID).Msg("webhook: unclassifiable notification")
		if auditErr := r.repo.RecordNotice(ctx, job.ID, raw); auditErr != nil {
			r.logger.Warn().Err(auditErr).Str("job_id", job.ID).Msg("webhook: audit write failed")
		}
		ack.Processed = true
		return ack
	}

	if _, _, err := r.applier.ApplyEvent(ctx, job.ID, event); err != nil {
		r.logger.Error().Err(err).Str("job_id", job.ID).Msg("webhook: transition failed")
		return ack
	}
	ack.Processed = true
	return ack
}
