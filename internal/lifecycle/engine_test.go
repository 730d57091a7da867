package lifecycle

import (
	"errors"
	"testing"
	"time"

	"autostudio/internal/domain"
)

func newJob(kind domain.JobKind, state domain.JobState) *domain.Job {
	return &domain.Job{
		ID:               "job-1",
		ProviderHandle:   "prov-1",
		Kind:             kind,
		SubjectID:        "veh-1",
		State:            state,
		CreatedAt:        time.Date(2026, 1, 1, 10, 0, 0, 0, time.UTC),
		LastTransitionAt: time.Date(2026, 1, 1, 10, 0, 0, 0, time.UTC),
	}
}

func TestApplyForwardTransition(t *testing.T) {
	now := time.Date(2026, 1, 1, 11, 0, 0, 0, time.UTC)
	job := newJob(domain.JobKindImageTransform, domain.JobStateSubmitted)

	changed, err := Apply(job, domain.JobEvent{Stage: domain.JobStateProcessing}, now)
	if err != nil {
		t.Fatalf("apply: %v", err)
	}
	if !changed {
		t.Fatalf("expected change")
	}
	if job.State != domain.JobStateProcessing {
		t.Fatalf("state = %s, want processing", job.State)
	}
	if !job.LastTransitionAt.Equal(now) {
		t.Fatalf("last transition not updated")
	}
}

func TestApplyStaleEventDiscarded(t *testing.T) {
	job := newJob(domain.JobKindPhotoSpin360, domain.JobStateProcessing)
	prev := job.LastTransitionAt

	changed, err := Apply(job, domain.JobEvent{Stage: domain.JobStateUploading}, time.Now())
	if !errors.Is(err, domain.ErrStaleEvent) {
		t.Fatalf("err = %v, want ErrStaleEvent", err)
	}
	if changed {
		t.Fatalf("stale event must not change the record")
	}
	if job.State != domain.JobStateProcessing {
		t.Fatalf("state regressed to %s", job.State)
	}
	if !job.LastTransitionAt.Equal(prev) {
		t.Fatalf("timestamp touched by stale event")
	}
}

func TestApplyFailureWinsOverAnyNonTerminal(t *testing.T) {
	for _, state := range []domain.JobState{
		domain.JobStateSubmitted,
		domain.JobStateUploading,
		domain.JobStateExtractingFrames,
		domain.JobStateProcessing,
	} {
		job := newJob(domain.JobKindVideoSpin360, state)
		changed, err := Apply(job, domain.JobEvent{
			Stage:       domain.JobStateFailed,
			ErrorDetail: "codec mismatch",
		}, time.Now())
		if err != nil || !changed {
			t.Fatalf("from %s: changed=%v err=%v", state, changed, err)
		}
		if job.State != domain.JobStateFailed {
			t.Fatalf("from %s: state = %s", state, job.State)
		}
		if job.ErrorDetail != "codec mismatch" {
			t.Fatalf("error detail = %q", job.ErrorDetail)
		}
		if job.CompletedAt == nil {
			t.Fatalf("failed job missing completion timestamp")
		}
	}
}

func TestApplyCompletedMergesAssets(t *testing.T) {
	job := newJob(domain.JobKindImageBatchTransform, domain.JobStateProcessing)
	job.ResultAssets = []domain.ResultAsset{
		{ID: "image-01", Kind: "image", URL: "https://cdn.example/a1.jpg", Status: domain.AssetStatusPending},
	}

	event := domain.JobEvent{
		Stage: domain.JobStateCompleted,
		Assets: []domain.ResultAsset{
			{ID: "image-01", Kind: "image", URL: "https://cdn.example/a1-final.jpg", Status: domain.AssetStatusReady},
			{ID: "image-02", Kind: "image", URL: "https://cdn.example/a2-final.jpg", Status: domain.AssetStatusReady},
		},
	}
	changed, err := Apply(job, event, time.Now())
	if err != nil || !changed {
		t.Fatalf("changed=%v err=%v", changed, err)
	}
	if job.State != domain.JobStateCompleted {
		t.Fatalf("state = %s", job.State)
	}
	if len(job.ResultAssets) != 2 {
		t.Fatalf("assets = %d, want 2 (merge, not append blindly)", len(job.ResultAssets))
	}
	if job.ResultAssets[0].URL != "https://cdn.example/a1-final.jpg" {
		t.Fatalf("asset not replaced by identity: %+v", job.ResultAssets[0])
	}
}

func TestApplySnapshotReplacesWholesale(t *testing.T) {
	job := newJob(domain.JobKindImageBatchTransform, domain.JobStateProcessing)
	job.ResultAssets = []domain.ResultAsset{
		{ID: "image-01"}, {ID: "image-02"}, {ID: "image-03"},
	}
	event := domain.JobEvent{
		Stage:    domain.JobStateCompleted,
		Snapshot: true,
		Assets:   []domain.ResultAsset{{ID: "image-01", Status: domain.AssetStatusReady}},
	}
	if _, err := Apply(job, event, time.Now()); err != nil {
		t.Fatalf("apply: %v", err)
	}
	if len(job.ResultAssets) != 1 {
		t.Fatalf("authoritative snapshot not applied: %d assets", len(job.ResultAssets))
	}
}

func TestApplyDuplicateEventIsNoOp(t *testing.T) {
	job := newJob(domain.JobKindImageTransform, domain.JobStateProcessing)
	event := domain.JobEvent{
		Stage: domain.JobStateCompleted,
		Assets: []domain.ResultAsset{
			{ID: "image-01", Kind: "image", URL: "https://cdn.example/out.jpg", Status: domain.AssetStatusReady},
		},
	}

	if _, err := Apply(job, event, time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)); err != nil {
		t.Fatalf("first apply: %v", err)
	}
	firstCompleted := *job.CompletedAt

	changed, err := Apply(job, event, time.Date(2026, 1, 1, 12, 5, 0, 0, time.UTC))
	if err != nil {
		t.Fatalf("second apply: %v", err)
	}
	if changed {
		t.Fatalf("duplicate completion must be a no-op")
	}
	if !job.CompletedAt.Equal(firstCompleted) {
		t.Fatalf("completion timestamp overwritten by duplicate")
	}
	if len(job.ResultAssets) != 1 {
		t.Fatalf("duplicate grew asset list: %d", len(job.ResultAssets))
	}
}

func TestApplyTerminalConflictDiscarded(t *testing.T) {
	job := newJob(domain.JobKindImageTransform, domain.JobStateCompleted)
	changed, err := Apply(job, domain.JobEvent{Stage: domain.JobStateProcessing}, time.Now())
	if !errors.Is(err, domain.ErrTerminalConflict) {
		t.Fatalf("err = %v, want ErrTerminalConflict", err)
	}
	if changed || job.State != domain.JobStateCompleted {
		t.Fatalf("terminal state moved: %s", job.State)
	}

	failed := newJob(domain.JobKindVideoTour, domain.JobStateFailed)
	if _, err := Apply(failed, domain.JobEvent{Stage: domain.JobStateCompleted}, time.Now()); !errors.Is(err, domain.ErrTerminalConflict) {
		t.Fatalf("failed job accepted completion: %v", err)
	}
}

func TestApplySameStateMergesPartialAssets(t *testing.T) {
	job := newJob(domain.JobKindImageBatchTransform, domain.JobStateProcessing)
	first := domain.JobEvent{
		Stage:  domain.JobStateProcessing,
		Assets: []domain.ResultAsset{{ID: "image-01", Status: domain.AssetStatusReady}},
	}
	second := domain.JobEvent{
		Stage:  domain.JobStateProcessing,
		Assets: []domain.ResultAsset{{ID: "image-02", Status: domain.AssetStatusReady}},
	}
	prev := job.LastTransitionAt
	if _, err := Apply(job, first, time.Now()); err != nil {
		t.Fatalf("first: %v", err)
	}
	if _, err := Apply(job, second, time.Now()); err != nil {
		t.Fatalf("second: %v", err)
	}
	if len(job.ResultAssets) != 2 {
		t.Fatalf("partial completions lost: %d assets", len(job.ResultAssets))
	}
	if !job.LastTransitionAt.Equal(prev) {
		t.Fatalf("same-state report must not bump transition time")
	}
}

func TestApplySameStateAssetUpdateIsReported(t *testing.T) {
	// Sibling assets finish independently: a repeated-stage notification that
	// only flips one asset's sub-status must still count as a change so the
	// caller persists it.
	job := newJob(domain.JobKindImageBatchTransform, domain.JobStateProcessing)
	job.ResultAssets = []domain.ResultAsset{
		{ID: "image-01", Kind: "image", URL: "https://cdn.example/a1.jpg", Status: domain.AssetStatusPending},
	}
	prev := job.LastTransitionAt

	event := domain.JobEvent{
		Stage: domain.JobStateProcessing,
		Assets: []domain.ResultAsset{
			{ID: "image-01", Kind: "image", URL: "https://cdn.example/a1-final.jpg", Status: domain.AssetStatusReady},
		},
	}
	changed, err := Apply(job, event, time.Now())
	if err != nil {
		t.Fatalf("apply: %v", err)
	}
	if !changed {
		t.Fatalf("asset replacement by identity not reported as change")
	}
	if job.ResultAssets[0].Status != domain.AssetStatusReady || job.ResultAssets[0].URL != "https://cdn.example/a1-final.jpg" {
		t.Fatalf("asset not updated: %+v", job.ResultAssets[0])
	}
	if !job.LastTransitionAt.Equal(prev) {
		t.Fatalf("same-state report must not bump transition time")
	}

	// Same content again is a genuine no-op.
	changed, err = Apply(job, event, time.Now())
	if err != nil {
		t.Fatalf("repeat apply: %v", err)
	}
	if changed {
		t.Fatalf("identical asset content reported as change")
	}
}

func TestApplyTerminalAssetUpdateIsReported(t *testing.T) {
	job := newJob(domain.JobKindImageTransform, domain.JobStateCompleted)
	job.ResultAssets = []domain.ResultAsset{
		{ID: "image-01", Kind: "image", URL: "https://cdn.example/out.jpg", Status: domain.AssetStatusPending},
	}
	event := domain.JobEvent{
		Stage: domain.JobStateCompleted,
		Assets: []domain.ResultAsset{
			{ID: "image-01", Kind: "image", URL: "https://cdn.example/out.jpg", Status: domain.AssetStatusReady},
		},
	}
	changed, err := Apply(job, event, time.Now())
	if err != nil {
		t.Fatalf("apply: %v", err)
	}
	if !changed {
		t.Fatalf("late sub-status flip on completed job not reported as change")
	}
	if job.ResultAssets[0].Status != domain.AssetStatusReady {
		t.Fatalf("asset status = %s", job.ResultAssets[0].Status)
	}
}

func TestMonotonicityUnderAnyDeliveryOrder(t *testing.T) {
	events := []domain.JobEvent{
		{Stage: domain.JobStateUploading},
		{Stage: domain.JobStateCompleted},
		{Stage: domain.JobStateExtractingFrames},
		{Stage: domain.JobStateProcessing},
		{Stage: domain.JobStateUploading},
	}
	job := newJob(domain.JobKindPhotoSpin360, domain.JobStateSubmitted)
	highest := job.State.Rank()
	for _, ev := range events {
		_, err := Apply(job, ev, time.Now())
		if err != nil && !errors.Is(err, domain.ErrStaleEvent) && !errors.Is(err, domain.ErrTerminalConflict) {
			t.Fatalf("unexpected error: %v", err)
		}
		if job.State.Rank() < highest {
			t.Fatalf("state regressed to %s", job.State)
		}
		highest = job.State.Rank()
	}
	if job.State != domain.JobStateCompleted {
		t.Fatalf("final state = %s, want completed", job.State)
	}
}
