package domain

import (
	"context"
	"time"
)

// JobRepository defines persistence for job records.
type JobRepository interface {
	Create(ctx context.Context, job *Job) error
	GetByID(ctx context.Context, jobID string) (*Job, error)
	GetByProviderHandle(ctx context.Context, handle string) (*Job, error)
	ListBySubject(ctx context.Context, subjectID string) ([]Job, error)
	// ListInFlightBefore returns non-terminal jobs whose last transition is
	// older than the cutoff, for sweep reconciliation.
	ListInFlightBefore(ctx context.Context, cutoff time.Time, limit int) ([]Job, error)
	// Update persists the job guarded by its Version at read time; a
	// concurrent writer surfaces as ErrVersionConflict.
	Update(ctx context.Context, job *Job, expectedVersion int) error
	// RecordNotice stores the raw payload of a discarded (stale or duplicate)
	// notification for audit without touching lifecycle fields.
	RecordNotice(ctx context.Context, jobID string, raw []byte) error
}
