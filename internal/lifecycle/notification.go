package lifecycle

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"autostudio/internal/domain"
)

// notification is the permissive wire shape of a provider push or poll
// response. Image, spin and video jobs each report status through their own
// sub-object with independent field shapes; unknown fields are ignored.
type notification struct {
	NotificationID string          `json:"notification_id"`
	JobID          string          `json:"job_id"`
	Status         string          `json:"status"`
	Final          bool            `json:"final"`
	Error          *noticeError    `json:"error"`
	Image          *imageSection   `json:"image"`
	Spin           *spinSection    `json:"spin"`
	Video          *videoSection   `json:"video"`
	Assets         []noticeAsset   `json:"assets"`
	Timestamp      json.RawMessage `json:"timestamp"`
}

type noticeError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type imageSection struct {
	Status  string        `json:"status"`
	Results []noticeAsset `json:"results"`
}

type spinSection struct {
	Status      string `json:"status"`
	FramesDone  int    `json:"frames_done"`
	FramesTotal int    `json:"frames_total"`
	ViewerURL   string `json:"viewer_url"`
}

type videoSection struct {
	Status string `json:"status"`
	URL    string `json:"url"`
}

type noticeAsset struct {
	ID     string `json:"id"`
	Kind   string `json:"kind"`
	URL    string `json:"url"`
	Status string `json:"status"`
}

// Correlate extracts the provider job handle and the delivery's notification
// id from a raw payload without classifying it. The reconciler needs the
// handle first to look up the job whose kind drives classification.
func Correlate(raw []byte) (handle, notificationID string, err error) {
	var n notification
	if err := json.Unmarshal(raw, &n); err != nil {
		return "", "", fmt.Errorf("%w: %v", domain.ErrMalformedNotification, err)
	}
	handle = strings.TrimSpace(n.JobID)
	if handle == "" {
		return "", "", fmt.Errorf("%w: missing job_id", domain.ErrMalformedNotification)
	}
	return handle, strings.TrimSpace(n.NotificationID), nil
}

// Classify parses one raw provider payload and unions its heterogeneous
// sub-statuses into exactly one job-level event. A payload that cannot be
// parsed at all yields domain.ErrMalformedNotification; a parsed payload with
// no recognizable stage information does too, so the webhook channel can
// reject it explicitly instead of guessing.
func Classify(kind domain.JobKind, raw []byte) (domain.JobEvent, error) {
	var n notification
	if err := json.Unmarshal(raw, &n); err != nil {
		return domain.JobEvent{}, fmt.Errorf("%w: %v", domain.ErrMalformedNotification, err)
	}
	if strings.TrimSpace(n.JobID) == "" {
		return domain.JobEvent{}, fmt.Errorf("%w: missing job_id", domain.ErrMalformedNotification)
	}

	event := domain.JobEvent{
		ProviderHandle: n.JobID,
		NotificationID: strings.TrimSpace(n.NotificationID),
		Snapshot:       n.Final,
		Raw:            append([]byte(nil), raw...),
		OccurredAt:     time.Now().UTC(),
	}

	stage, failed := unionStage(kind, &n)
	if stage == "" {
		return domain.JobEvent{}, fmt.Errorf("%w: no recognizable status", domain.ErrMalformedNotification)
	}
	event.Stage = stage
	if failed {
		event.ErrorDetail = failureDetail(&n)
	}
	event.Assets = collectAssets(&n)
	return event, nil
}

// unionStage folds the job-level status and every present sub-status into a
// single stage. Failure anywhere wins; otherwise the most advanced reported
// stage is taken, so one notification never implies two transitions.
func unionStage(kind domain.JobKind, n *notification) (domain.JobState, bool) {
	candidates := make([]domain.JobState, 0, 4)
	failed := n.Error != nil
	add := func(raw string) {
		s, ok := parseStage(kind, raw)
		if !ok {
			return
		}
		if s == domain.JobStateFailed {
			failed = true
			return
		}
		candidates = append(candidates, s)
	}
	add(n.Status)
	if n.Image != nil {
		add(n.Image.Status)
	}
	if n.Spin != nil {
		add(n.Spin.Status)
	}
	if n.Video != nil {
		add(n.Video.Status)
	}
	if failed {
		return domain.JobStateFailed, true
	}
	var best domain.JobState
	for _, c := range candidates {
		if best == "" || c.Rank() > best.Rank() {
			best = c
		}
	}
	return best, false
}

func parseStage(kind domain.JobKind, raw string) (domain.JobState, bool) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "queued", "submitted", "accepted":
		return domain.JobStateSubmitted, true
	case "uploading", "upload":
		return domain.JobStateUploading, true
	case "extracting", "extracting_frames", "frame_extraction":
		// Plain image jobs have no extraction stage; normalize so the
		// engine never sees a stage outside the job's graph.
		if !kind.HasExtractionStage() {
			return domain.JobStateProcessing, true
		}
		return domain.JobStateExtractingFrames, true
	case "processing", "running", "in_progress":
		return domain.JobStateProcessing, true
	case "completed", "succeeded", "done", "finished":
		return domain.JobStateCompleted, true
	case "failed", "error", "cancelled":
		return domain.JobStateFailed, true
	}
	return "", false
}

func failureDetail(n *notification) string {
	if n.Error != nil {
		if n.Error.Code != "" {
			return fmt.Sprintf("%s: %s", n.Error.Code, n.Error.Message)
		}
		if n.Error.Message != "" {
			return n.Error.Message
		}
	}
	return "provider reported failure"
}

func collectAssets(n *notification) []domain.ResultAsset {
	var out []domain.ResultAsset
	if n.Image != nil {
		for i, r := range n.Image.Results {
			out = append(out, normalizeAsset(r, "image", fmt.Sprintf("image-%02d", i+1)))
		}
	}
	if n.Spin != nil && n.Spin.ViewerURL != "" {
		out = append(out, domain.ResultAsset{
			ID:     "spin-viewer",
			Kind:   "spin_viewer",
			URL:    n.Spin.ViewerURL,
			Status: spinAssetStatus(n.Spin),
		})
	}
	if n.Video != nil && n.Video.URL != "" {
		status := domain.AssetStatusPending
		if s, ok := parseStage(domain.JobKindVideoTour, n.Video.Status); ok && s == domain.JobStateCompleted {
			status = domain.AssetStatusReady
		}
		out = append(out, domain.ResultAsset{ID: "video", Kind: "video", URL: n.Video.URL, Status: status})
	}
	for i, a := range n.Assets {
		out = append(out, normalizeAsset(a, a.Kind, fmt.Sprintf("asset-%02d", i+1)))
	}
	return out
}

func normalizeAsset(a noticeAsset, fallbackKind, fallbackID string) domain.ResultAsset {
	asset := domain.ResultAsset{ID: a.ID, Kind: a.Kind, URL: a.URL}
	if asset.ID == "" {
		asset.ID = fallbackID
	}
	if asset.Kind == "" {
		asset.Kind = fallbackKind
	}
	switch strings.ToLower(strings.TrimSpace(a.Status)) {
	case "ready", "completed", "done", "succeeded":
		asset.Status = domain.AssetStatusReady
	case "failed", "error":
		asset.Status = domain.AssetStatusFailed
	default:
		asset.Status = domain.AssetStatusPending
	}
	return asset
}

func spinAssetStatus(s *spinSection) domain.AssetStatus {
	if st, ok := parseStage(domain.JobKindPhotoSpin360, s.Status); ok && st == domain.JobStateCompleted {
		return domain.AssetStatusReady
	}
	return domain.AssetStatusPending
}
