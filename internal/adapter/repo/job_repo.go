package repo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"autostudio/internal/domain"
)

// JobRepositoryPG implements domain.JobRepository on PostgreSQL.
type JobRepositoryPG struct {
	pool *pgxpool.Pool
}

// NewJobRepository creates a job repository backed by PostgreSQL.
func NewJobRepository(pool *pgxpool.Pool) *JobRepositoryPG {
	return &JobRepositoryPG{pool: pool}
}

const jobColumns = `id, provider_handle, kind, subject_id, owner_id, preset, features, state,
result_assets, error_detail, created_at, last_transition_at, completed_at, raw_last_notification, version`

// Create inserts a new job record. A duplicate provider handle violates the
// unique index and surfaces as domain.ErrDuplicateHandle.
func (r *JobRepositoryPG) Create(ctx context.Context, job *domain.Job) error {
	assets, err := marshalAssets(job.ResultAssets)
	if err != nil {
		return err
	}
	query := `
INSERT INTO transform_jobs (id, provider_handle, kind, subject_id, owner_id, preset, features, state,
                            result_assets, error_detail, created_at, last_transition_at, raw_last_notification, version)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, 1);
`
	_, err = r.pool.Exec(ctx, query,
		job.ID,
		nullableText(job.ProviderHandle),
		job.Kind,
		job.SubjectID,
		nullableText(job.OwnerID),
		job.Preset,
		job.Features,
		job.State,
		assets,
		nullableText(job.ErrorDetail),
		job.CreatedAt,
		job.LastTransitionAt,
		nullableBytes(job.RawLastNotice),
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return domain.ErrDuplicateHandle
		}
		return err
	}
	job.Version = 1
	return nil
}

// GetByID fetches a job by its internal identifier.
func (r *JobRepositoryPG) GetByID(ctx context.Context, jobID string) (*domain.Job, error) {
	query := fmt.Sprintf(`SELECT %s FROM transform_jobs WHERE id = $1;`, jobColumns)
	return r.scanOne(r.pool.QueryRow(ctx, query, jobID))
}

// GetByProviderHandle resolves the record a provider notification refers to.
func (r *JobRepositoryPG) GetByProviderHandle(ctx context.Context, handle string) (*domain.Job, error) {
	query := fmt.Sprintf(`SELECT %s FROM transform_jobs WHERE provider_handle = $1;`, jobColumns)
	return r.scanOne(r.pool.QueryRow(ctx, query, handle))
}

// ListBySubject returns all jobs for a vehicle, newest first.
func (r *JobRepositoryPG) ListBySubject(ctx context.Context, subjectID string) ([]domain.Job, error) {
	query := fmt.Sprintf(`SELECT %s FROM transform_jobs WHERE subject_id = $1 ORDER BY created_at DESC;`, jobColumns)
	rows, err := r.pool.Query(ctx, query, subjectID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return r.scanMany(rows)
}

// ListInFlightBefore returns non-terminal jobs whose last transition is older
// than the cutoff, oldest first, for sweep reconciliation.
func (r *JobRepositoryPG) ListInFlightBefore(ctx context.Context, cutoff time.Time, limit int) ([]domain.Job, error) {
	query := fmt.Sprintf(`
SELECT %s FROM transform_jobs
WHERE state NOT IN ('completed', 'failed')
  AND provider_handle IS NOT NULL
  AND last_transition_at < $1
ORDER BY last_transition_at ASC
LIMIT $2;`, jobColumns)
	rows, err := r.pool.Query(ctx, query, cutoff, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return r.scanMany(rows)
}

// Update persists the record guarded by the version read before mutation.
// A row matched by id but not by version means a concurrent writer won;
// the caller reloads and reapplies.
func (r *JobRepositoryPG) Update(ctx context.Context, job *domain.Job, expectedVersion int) error {
	assets, err := marshalAssets(job.ResultAssets)
	if err != nil {
		return err
	}
	query := `
UPDATE transform_jobs
SET provider_handle = $3,
    state = $4,
    result_assets = $5,
    error_detail = $6,
    last_transition_at = $7,
    completed_at = $8,
    raw_last_notification = COALESCE($9, raw_last_notification),
    version = version + 1
WHERE id = $1 AND version = $2;
`
	tag, err := r.pool.Exec(ctx, query,
		job.ID,
		expectedVersion,
		nullableText(job.ProviderHandle),
		job.State,
		assets,
		nullableText(job.ErrorDetail),
		job.LastTransitionAt,
		job.CompletedAt,
		nullableBytes(job.RawLastNotice),
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrVersionConflict
	}
	job.Version = expectedVersion + 1
	return nil
}

// RecordNotice stores the raw payload of a discarded notification for audit
// without touching lifecycle fields or the version counter.
func (r *JobRepositoryPG) RecordNotice(ctx context.Context, jobID string, raw []byte) error {
	if len(raw) == 0 {
		return nil
	}
	query := `UPDATE transform_jobs SET raw_last_notification = $2 WHERE id = $1;`
	_, err := r.pool.Exec(ctx, query, jobID, raw)
	return err
}

func (r *JobRepositoryPG) scanOne(row pgx.Row) (*domain.Job, error) {
	var (
		job         domain.Job
		handle      *string
		ownerID     *string
		errorDetail *string
		assets      []byte
	)
	if err := row.Scan(
		&job.ID,
		&handle,
		&job.Kind,
		&job.SubjectID,
		&ownerID,
		&job.Preset,
		&job.Features,
		&job.State,
		&assets,
		&errorDetail,
		&job.CreatedAt,
		&job.LastTransitionAt,
		&job.CompletedAt,
		&job.RawLastNotice,
		&job.Version,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	if handle != nil {
		job.ProviderHandle = *handle
	}
	if ownerID != nil {
		job.OwnerID = *ownerID
	}
	if errorDetail != nil {
		job.ErrorDetail = *errorDetail
	}
	if len(assets) > 0 {
		if err := json.Unmarshal(assets, &job.ResultAssets); err != nil {
			return nil, fmt.Errorf("decode result assets: %w", err)
		}
	}
	return &job, nil
}

func (r *JobRepositoryPG) scanMany(rows pgx.Rows) ([]domain.Job, error) {
	var jobs []domain.Job
	for rows.Next() {
		job, err := r.scanOne(rows)
		if err != nil {
			return nil, err
		}
		jobs = append(jobs, *job)
	}
	return jobs, rows.Err()
}

func marshalAssets(assets []domain.ResultAsset) ([]byte, error) {
	if len(assets) == 0 {
		return []byte("[]"), nil
	}
	return json.Marshal(assets)
}

func nullableText(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func nullableBytes(b []byte) []byte {
	if len(b) == 0 {
		return nil
	}
	return b
}
