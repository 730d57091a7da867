package handlers

import (
	"encoding/json"
	"net/http"

	"autostudio/internal/domain"
	"autostudio/internal/jobs"
)

type submitRequest struct {
	SubjectID            string   `json:"subject_id"`
	AssetURLs            []string `json:"asset_urls"`
	Preset               string   `json:"preset"`
	VideoDurationSeconds int      `json:"video_duration_seconds"`
}

type submitResponse struct {
	JobID                    string `json:"job_id"`
	Status                   string `json:"status"`
	PollURL                  string `json:"poll_url"`
	EstimatedDurationSeconds int    `json:"estimated_duration_seconds"`
	Preset                   string `json:"preset"`
	PresetSubstituted        bool   `json:"preset_substituted,omitempty"`
	Advisory                 string `json:"advisory,omitempty"`
}

func (a *App) TransformImage(w http.ResponseWriter, r *http.Request) {
	a.submit(w, r, domain.JobKindImageTransform)
}

func (a *App) TransformImageBatch(w http.ResponseWriter, r *http.Request) {
	a.submit(w, r, domain.JobKindImageBatchTransform)
}

func (a *App) TransformPhotoSpin(w http.ResponseWriter, r *http.Request) {
	a.submit(w, r, domain.JobKindPhotoSpin360)
}

func (a *App) TransformVideoSpin(w http.ResponseWriter, r *http.Request) {
	a.submit(w, r, domain.JobKindVideoSpin360)
}

func (a *App) TransformVideoTour(w http.ResponseWriter, r *http.Request) {
	a.submit(w, r, domain.JobKindVideoTour)
}

// submit is the shared path for all five submission endpoints; only the kind
// differs. The response is always an accepted receipt with a polling
// reference, never a synchronous result.
func (a *App) submit(w http.ResponseWriter, r *http.Request, kind domain.JobKind) {
	acct, ok := a.currentAccount(r)
	if !ok {
		a.error(w, http.StatusUnauthorized, "unauthorized", "missing account context")
		return
	}
	var req submitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		a.error(w, http.StatusBadRequest, "bad_request", "invalid payload")
		return
	}

	receipt, err := a.Orchestrator.Submit(r.Context(), jobs.SubmitRequest{
		Kind:                 kind,
		SubjectID:            req.SubjectID,
		AssetURLs:            req.AssetURLs,
		Preset:               req.Preset,
		VideoDurationSeconds: req.VideoDurationSeconds,
		Account:              acct,
	})
	if err != nil {
		a.writeDomainError(w, err)
		return
	}

	a.json(w, http.StatusAccepted, submitResponse{
		JobID:                    receipt.JobID,
		Status:                   string(receipt.State),
		PollURL:                  receipt.PollURL,
		EstimatedDurationSeconds: receipt.EstimatedSeconds,
		Preset:                   receipt.EffectivePreset,
		PresetSubstituted:        receipt.PresetSubstituted,
		Advisory:                 receipt.Advisory,
	})
}
