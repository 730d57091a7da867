package lifecycle

import (
	"time"

	"autostudio/internal/domain"
)

// Apply runs one classified event against a job record and mutates it in
// place. It owns the legal state graph and every conflict-resolution rule;
// webhook and poll reconciliation both funnel through here so the two event
// sources can never diverge.
//
// Returned errors are advisory for the caller's bookkeeping, not failures:
// domain.ErrStaleEvent and domain.ErrTerminalConflict mean the event was
// discarded and the record is untouched except for the raw-payload audit the
// caller may still perform.
func Apply(job *domain.Job, event domain.JobEvent, now time.Time) (bool, error) {
	if job.State.IsTerminal() {
		return applyToTerminal(job, event)
	}

	switch {
	case event.Stage == domain.JobStateFailed:
		// Failure is sticky: it wins over any non-terminal state regardless
		// of what a simultaneous late update reports.
		job.State = domain.JobStateFailed
		job.ErrorDetail = event.ErrorDetail
		job.LastTransitionAt = now
		completed := now
		job.CompletedAt = &completed
		job.RawLastNotice = event.Raw
		return true, nil

	case event.Stage.Rank() < job.State.Rank():
		return false, domain.ErrStaleEvent

	case event.Stage == job.State:
		// Repeated report of the current state: no transition, no timestamp
		// churn. Partial per-asset completions may still carry new or updated
		// artifact references, which merge by identity.
		changed := job.MergeAssets(event.Assets, false)
		job.RawLastNotice = event.Raw
		return changed, nil

	case event.Stage == domain.JobStateCompleted:
		job.MergeAssets(event.Assets, event.Snapshot)
		job.State = domain.JobStateCompleted
		job.LastTransitionAt = now
		completed := now
		job.CompletedAt = &completed
		job.RawLastNotice = event.Raw
		return true, nil

	default:
		job.State = event.Stage
		job.MergeAssets(event.Assets, false)
		job.LastTransitionAt = now
		job.RawLastNotice = event.Raw
		return true, nil
	}
}

// applyToTerminal handles events arriving after the job already reached
// Completed or Failed. A late duplicate of the terminal outcome is a no-op;
// anything that would move the job backward is a terminal conflict and is
// discarded.
func applyToTerminal(job *domain.Job, event domain.JobEvent) (bool, error) {
	if event.Stage == job.State {
		if job.State == domain.JobStateCompleted {
			// Identical or superseding result content for an already
			// completed job merges quietly; timestamps stay put.
			return job.MergeAssets(event.Assets, false), nil
		}
		return false, nil
	}
	return false, domain.ErrTerminalConflict
}
