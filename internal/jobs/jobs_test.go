package jobs

import (
	"context"
	"sync"
	"time"

	"autostudio/internal/domain"
	"autostudio/internal/provider"
)

// memRepo is an in-memory domain.JobRepository with the same version
// semantics as the PostgreSQL implementation.
type memRepo struct {
	mu   sync.Mutex
	jobs map[string]*domain.Job
}

func newMemRepo() *memRepo {
	return &memRepo{jobs: make(map[string]*domain.Job)}
}

func (r *memRepo) Create(ctx context.Context, job *domain.Job) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if job.ProviderHandle != "" {
		for _, existing := range r.jobs {
			if existing.ProviderHandle == job.ProviderHandle {
				return domain.ErrDuplicateHandle
			}
		}
	}
	job.Version = 1
	clone := cloneJob(job)
	r.jobs[job.ID] = &clone
	return nil
}

func (r *memRepo) GetByID(ctx context.Context, jobID string) (*domain.Job, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	job, ok := r.jobs[jobID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	clone := cloneJob(job)
	return &clone, nil
}

func (r *memRepo) GetByProviderHandle(ctx context.Context, handle string) (*domain.Job, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, job := range r.jobs {
		if job.ProviderHandle == handle {
			clone := cloneJob(job)
			return &clone, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (r *memRepo) ListBySubject(ctx context.Context, subjectID string) ([]domain.Job, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []domain.Job
	for _, job := range r.jobs {
		if job.SubjectID == subjectID {
			out = append(out, cloneJob(job))
		}
	}
	return out, nil
}

func (r *memRepo) ListInFlightBefore(ctx context.Context, cutoff time.Time, limit int) ([]domain.Job, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []domain.Job
	for _, job := range r.jobs {
		if !job.State.IsTerminal() && job.LastTransitionAt.Before(cutoff) {
			out = append(out, cloneJob(job))
		}
		if len(out) == limit {
			break
		}
	}
	return out, nil
}

func (r *memRepo) Update(ctx context.Context, job *domain.Job, expectedVersion int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	current, ok := r.jobs[job.ID]
	if !ok {
		return domain.ErrNotFound
	}
	if current.Version != expectedVersion {
		return domain.ErrVersionConflict
	}
	job.Version = expectedVersion + 1
	clone := cloneJob(job)
	r.jobs[job.ID] = &clone
	return nil
}

func (r *memRepo) RecordNotice(ctx context.Context, jobID string, raw []byte) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if job, ok := r.jobs[jobID]; ok && len(raw) > 0 {
		job.RawLastNotice = append([]byte(nil), raw...)
	}
	return nil
}

func (r *memRepo) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.jobs)
}

func cloneJob(j *domain.Job) domain.Job {
	clone := *j
	clone.Features = append([]string(nil), j.Features...)
	clone.ResultAssets = append([]domain.ResultAsset(nil), j.ResultAssets...)
	clone.RawLastNotice = append([]byte(nil), j.RawLastNotice...)
	if j.CompletedAt != nil {
		t := *j.CompletedAt
		clone.CompletedAt = &t
	}
	return clone
}

// stubProvider scripts provider behavior per test.
type stubProvider struct {
	mu          sync.Mutex
	submitErr   error
	handle      string
	estimated   int
	submitCalls int
	lastSubmit  provider.SubmitRequest
	statusBody  []byte
	statusErr   error
	statusCalls int
}

func (s *stubProvider) Submit(ctx context.Context, req provider.SubmitRequest) (*provider.Receipt, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.submitCalls++
	s.lastSubmit = req
	if s.submitErr != nil {
		return nil, s.submitErr
	}
	handle := s.handle
	if handle == "" {
		handle = "prov-default"
	}
	return &provider.Receipt{Handle: handle, EstimatedSeconds: s.estimated}, nil
}

func (s *stubProvider) Status(ctx context.Context, handle string) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.statusCalls++
	if s.statusErr != nil {
		return nil, s.statusErr
	}
	return s.statusBody, nil
}
