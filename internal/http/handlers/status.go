package handlers

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"autostudio/internal/domain"
)

type jobView struct {
	JobID        string             `json:"job_id"`
	Kind         string             `json:"kind"`
	SubjectID    string             `json:"subject_id"`
	Preset       string             `json:"preset"`
	Status       string             `json:"status"`
	Stale        bool               `json:"stale,omitempty"`
	ResultAssets []assetView        `json:"result_assets"`
	ErrorDetail  string             `json:"error_detail,omitempty"`
	CreatedAt    time.Time          `json:"created_at"`
	UpdatedAt    time.Time          `json:"updated_at"`
	CompletedAt  *time.Time         `json:"completed_at,omitempty"`
}

type assetView struct {
	ID     string `json:"id"`
	Kind   string `json:"kind"`
	URL    string `json:"url"`
	Status string `json:"status"`
}

func newJobView(job domain.Job, stale bool) jobView {
	view := jobView{
		JobID:        job.ID,
		Kind:         string(job.Kind),
		SubjectID:    job.SubjectID,
		Preset:       job.Preset,
		Status:       string(job.State),
		Stale:        stale,
		ResultAssets: make([]assetView, 0, len(job.ResultAssets)),
		ErrorDetail:  job.ErrorDetail,
		CreatedAt:    job.CreatedAt,
		UpdatedAt:    job.LastTransitionAt,
		CompletedAt:  job.CompletedAt,
	}
	for _, a := range job.ResultAssets {
		view.ResultAssets = append(view.ResultAssets, assetView{
			ID:     a.ID,
			Kind:   a.Kind,
			URL:    a.URL,
			Status: string(a.Status),
		})
	}
	return view
}

// JobStatus is the client-facing status check: it polls through to the
// provider for in-flight jobs and serves the reconciled record.
func (a *App) JobStatus(w http.ResponseWriter, r *http.Request) {
	if _, ok := a.currentAccount(r); !ok {
		a.error(w, http.StatusUnauthorized, "unauthorized", "missing account context")
		return
	}
	jobID := chi.URLParam(r, "job_id")
	if jobID == "" {
		a.error(w, http.StatusBadRequest, "bad_request", "job_id required")
		return
	}
	view, err := a.Poll.Poll(r.Context(), jobID)
	if err != nil {
		a.writeDomainError(w, err)
		return
	}
	a.json(w, http.StatusOK, newJobView(view.Job, view.Stale))
}

// JobAssets lists the produced artifacts of one job.
func (a *App) JobAssets(w http.ResponseWriter, r *http.Request) {
	if _, ok := a.currentAccount(r); !ok {
		a.error(w, http.StatusUnauthorized, "unauthorized", "missing account context")
		return
	}
	jobID := chi.URLParam(r, "job_id")
	if jobID == "" {
		a.error(w, http.StatusBadRequest, "bad_request", "job_id required")
		return
	}
	job, err := a.Repo.GetByID(r.Context(), jobID)
	if err != nil {
		a.writeDomainError(w, err)
		return
	}
	items := make([]assetView, 0, len(job.ResultAssets))
	for _, asset := range job.ResultAssets {
		items = append(items, assetView{
			ID:     asset.ID,
			Kind:   asset.Kind,
			URL:    asset.URL,
			Status: string(asset.Status),
		})
	}
	a.json(w, http.StatusOK, map[string]any{"job_id": job.ID, "items": items})
}

// SubjectJobs lists every transformation job for one vehicle.
func (a *App) SubjectJobs(w http.ResponseWriter, r *http.Request) {
	if _, ok := a.currentAccount(r); !ok {
		a.error(w, http.StatusUnauthorized, "unauthorized", "missing account context")
		return
	}
	subjectID := chi.URLParam(r, "subject_id")
	if subjectID == "" {
		a.error(w, http.StatusBadRequest, "bad_request", "subject_id required")
		return
	}
	jobsList, err := a.Repo.ListBySubject(r.Context(), subjectID)
	if err != nil {
		a.writeDomainError(w, err)
		return
	}
	items := make([]jobView, 0, len(jobsList))
	for _, job := range jobsList {
		items = append(items, newJobView(job, false))
	}
	a.json(w, http.StatusOK, map[string]any{"subject_id": subjectID, "items": items})
}
