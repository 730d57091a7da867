package jobs

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"autostudio/internal/domain"
	"autostudio/internal/entitlement"
	"autostudio/internal/provider"
)

// ProviderClient is the slice of the provider API the job subsystem uses.
type ProviderClient interface {
	Submit(ctx context.Context, req provider.SubmitRequest) (*provider.Receipt, error)
	Status(ctx context.Context, handle string) ([]byte, error)
}

// SubmitRequest is one inbound transformation request, already authenticated.
type SubmitRequest struct {
	Kind      domain.JobKind
	SubjectID string
	AssetURLs []string
	Preset    string
	// VideoDurationSeconds is advisory metadata for video-spin submissions.
	VideoDurationSeconds int
	Account              domain.Account
}

// SubmitReceipt is the accepted response for a submission; results are never
// synchronous.
type SubmitReceipt struct {
	JobID             string
	State             domain.JobState
	PollURL           string
	EstimatedSeconds  int
	EffectivePreset   string
	PresetSubstituted bool
	Advisory          string
}

// assetBounds holds the structural constraint per kind, enforced before any
// provider call so invalid requests never burn provider quota.
var assetBounds = map[domain.JobKind]struct{ min, max int }{
	domain.JobKindImageTransform:      {1, 1},
	domain.JobKindImageBatchTransform: {1, 50},
	domain.JobKindPhotoSpin360:        {6, 72},
	domain.JobKindVideoSpin360:        {1, 1},
	domain.JobKindVideoTour:           {5, 100},
}

// estimatedSeconds is the fallback duration hint per kind when the provider's
// acknowledgment does not carry one.
var estimatedSeconds = map[domain.JobKind]int{
	domain.JobKindImageTransform:      90,
	domain.JobKindImageBatchTransform: 300,
	domain.JobKindPhotoSpin360:        600,
	domain.JobKindVideoSpin360:        900,
	domain.JobKindVideoTour:           900,
}

// Orchestrator validates submissions, resolves entitlement, makes the single
// outbound provider call and creates the job record.
type Orchestrator struct {
	repo          domain.JobRepository
	provider      ProviderClient
	logger        zerolog.Logger
	publicBaseURL string
	webhookURL    string
}

func NewOrchestrator(repo domain.JobRepository, client ProviderClient, logger zerolog.Logger, publicBaseURL string) *Orchestrator {
	return &Orchestrator{
		repo:          repo,
		provider:      client,
		logger:        logger,
		publicBaseURL: publicBaseURL,
		webhookURL:    publicBaseURL + "/v1/webhooks/provider",
	}
}

// Submit performs validation, entitlement resolution, exactly one provider
// call and, on acknowledgment, exactly one record insert in Submitted state.
// A provider failure or timeout creates nothing: the caller retries the
// submission, it never polls a job that may not exist.
func (o *Orchestrator) Submit(ctx context.Context, req SubmitRequest) (*SubmitReceipt, error) {
	if err := validate(req); err != nil {
		return nil, err
	}

	feature := entitlement.FeatureForKind(req.Kind)
	res := entitlement.Resolve(req.Account, feature, req.Preset)
	if !res.Allowed {
		return nil, &domain.EntitlementError{
			Reason:  res.DenialReason,
			Feature: feature,
			Prompt:  res.Prompt,
		}
	}

	frameCount := 0
	if req.Kind == domain.JobKindPhotoSpin360 {
		// Downstream frame count equals the supplied asset count.
		frameCount = len(req.AssetURLs)
	}

	receipt, err := o.provider.Submit(ctx, provider.SubmitRequest{
		Kind:       req.Kind,
		SubjectID:  req.SubjectID,
		AssetURLs:  req.AssetURLs,
		Preset:     res.EffectivePreset,
		Features:   []string{feature},
		FrameCount: frameCount,
		WebhookURL: o.webhookURL,
	})
	if err != nil {
		o.logger.Warn().Err(err).
			Str("kind", string(req.Kind)).
			Str("subject_id", req.SubjectID).
			Msg("provider submission failed, no record created")
		return nil, err
	}

	now := time.Now().UTC()
	job := &domain.Job{
		ID:               uuid.NewString(),
		ProviderHandle:   receipt.Handle,
		Kind:             req.Kind,
		SubjectID:        req.SubjectID,
		OwnerID:          req.Account.ID,
		Preset:           res.EffectivePreset,
		Features:         []string{feature},
		State:            domain.JobStateSubmitted,
		CreatedAt:        now,
		LastTransitionAt: now,
	}
	if err := o.repo.Create(ctx, job); err != nil {
		// The provider accepted but the insert failed; surface it so the
		// caller retries rather than silently keeping an orphaned handle.
		return nil, fmt.Errorf("create job record: %w", err)
	}

	o.logger.Info().
		Str("job_id", job.ID).
		Str("provider_handle", job.ProviderHandle).
		Str("kind", string(job.Kind)).
		Str("subject_id", job.SubjectID).
		Bool("preset_substituted", res.Substituted).
		Msg("job submitted")

	out := &SubmitReceipt{
		JobID:             job.ID,
		State:             job.State,
		PollURL:           fmt.Sprintf("%s/v1/jobs/%s", o.publicBaseURL, job.ID),
		EstimatedSeconds:  receipt.EstimatedSeconds,
		EffectivePreset:   res.EffectivePreset,
		PresetSubstituted: res.Substituted,
		Advisory:          durationAdvisory(req),
	}
	if out.EstimatedSeconds <= 0 {
		out.EstimatedSeconds = estimatedSeconds[req.Kind]
	}
	return out, nil
}

func validate(req SubmitRequest) error {
	if req.SubjectID == "" {
		return &domain.ValidationError{Field: "subject_id", Constraint: "is required", Supplied: 0}
	}
	bounds, ok := assetBounds[req.Kind]
	if !ok {
		return &domain.ValidationError{Field: "kind", Constraint: "is not a supported transformation", Supplied: 0}
	}
	n := len(req.AssetURLs)
	if n < bounds.min || n > bounds.max {
		constraint := fmt.Sprintf("requires between %d and %d asset urls", bounds.min, bounds.max)
		if bounds.min == bounds.max {
			constraint = fmt.Sprintf("requires exactly %d asset url", bounds.min)
		}
		return &domain.ValidationError{Field: "asset_urls", Constraint: constraint, Supplied: n}
	}
	for i, u := range req.AssetURLs {
		if u == "" {
			return &domain.ValidationError{Field: "asset_urls", Constraint: fmt.Sprintf("entry %d must not be empty", i), Supplied: n}
		}
	}
	return nil
}

// durationAdvisory surfaces the 30-90s guidance for video spins without
// enforcing it.
func durationAdvisory(req SubmitRequest) string {
	if req.Kind != domain.JobKindVideoSpin360 || req.VideoDurationSeconds <= 0 {
		return ""
	}
	if req.VideoDurationSeconds < 30 {
		return fmt.Sprintf("video is %ds; 30-90s walkaround videos produce the best spins", req.VideoDurationSeconds)
	}
	if req.VideoDurationSeconds > 90 {
		return fmt.Sprintf("video is %ds; 30-90s walkaround videos produce the best spins", req.VideoDurationSeconds)
	}
	return ""
}
