package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"autostudio/internal/domain"
)

// Options configures the transformation provider client.
type Options struct {
	BaseURL    string
	APIKey     string
	HTTPClient *http.Client
	Timeout    time.Duration
}

// Client talks to the external AI transformation provider. Submission and
// status query are the only outbound calls this service makes.
type Client struct {
	httpClient *http.Client
	baseURL    string
	token      string
}

func NewClient(opts Options) *Client {
	base := strings.TrimRight(opts.BaseURL, "/")
	if base == "" {
		base = "https://api.vehiclestudio.example/v1"
	}
	client := opts.HTTPClient
	if client == nil {
		timeout := opts.Timeout
		if timeout <= 0 {
			timeout = 30 * time.Second
		}
		client = &http.Client{Timeout: timeout}
	}
	return &Client{
		httpClient: client,
		baseURL:    base,
		token:      strings.TrimSpace(opts.APIKey),
	}
}

// SubmitRequest is the outbound job submission payload.
type SubmitRequest struct {
	Kind       domain.JobKind
	SubjectID  string
	AssetURLs  []string
	Preset     string
	Features   []string
	FrameCount int
	WebhookURL string
}

// Receipt is the provider's acknowledgment of a submission. The handle may be
// the only thing this system ever hears back if webhooks go missing.
type Receipt struct {
	Handle           string
	EstimatedSeconds int
}

type submitPayload struct {
	SubjectRef string   `json:"subject_ref"`
	Assets     []string `json:"assets"`
	Preset     string   `json:"preset,omitempty"`
	Features   []string `json:"features,omitempty"`
	FrameCount int      `json:"frame_count,omitempty"`
	WebhookURL string   `json:"webhook_url,omitempty"`
}

type submitResponse struct {
	JobID            string `json:"job_id"`
	EstimatedSeconds int    `json:"estimated_seconds"`
	Code             string `json:"code"`
	Message          string `json:"message"`
}

var kindPaths = map[domain.JobKind]string{
	domain.JobKindImageTransform:      "/jobs/image",
	domain.JobKindImageBatchTransform: "/jobs/image-batch",
	domain.JobKindPhotoSpin360:        "/jobs/photo-spin",
	domain.JobKindVideoSpin360:        "/jobs/video-spin",
	domain.JobKindVideoTour:           "/jobs/video-tour",
}

// Submit issues exactly one provider call for the given request. Any
// transport error, timeout or non-2xx response maps to
// domain.ErrProviderUnavailable so the orchestrator knows no job record may
// be created.
func (c *Client) Submit(ctx context.Context, req SubmitRequest) (*Receipt, error) {
	if c == nil {
		return nil, errors.New("provider client not configured")
	}
	path, ok := kindPaths[req.Kind]
	if !ok {
		return nil, fmt.Errorf("provider: unsupported kind %q", req.Kind)
	}
	payload := submitPayload{
		SubjectRef: req.SubjectID,
		Assets:     req.AssetURLs,
		Preset:     req.Preset,
		Features:   req.Features,
		FrameCount: req.FrameCount,
		WebhookURL: req.WebhookURL,
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if c.token != "" {
		httpReq.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("%w: submit: %v", domain.ErrProviderUnavailable, err)
	}
	defer resp.Body.Close()

	var out submitResponse
	if decodeErr := json.NewDecoder(resp.Body).Decode(&out); decodeErr != nil {
		if resp.StatusCode >= http.StatusBadRequest {
			return nil, fmt.Errorf("%w: submit: http %d", domain.ErrProviderUnavailable, resp.StatusCode)
		}
		return nil, fmt.Errorf("%w: submit: %v", domain.ErrProviderUnavailable, decodeErr)
	}
	if resp.StatusCode >= http.StatusBadRequest {
		if out.Message != "" {
			return nil, fmt.Errorf("%w: submit: %s (%s)", domain.ErrProviderUnavailable, out.Message, out.Code)
		}
		return nil, fmt.Errorf("%w: submit: http %d", domain.ErrProviderUnavailable, resp.StatusCode)
	}
	if strings.TrimSpace(out.JobID) == "" {
		return nil, fmt.Errorf("%w: submit: acknowledgment missing job id", domain.ErrProviderUnavailable)
	}
	return &Receipt{Handle: out.JobID, EstimatedSeconds: out.EstimatedSeconds}, nil
}

// Status fetches the provider's current view of a job. The raw body is
// returned untouched so the caller can run it through the same
// classification path webhooks use.
func (c *Client) Status(ctx context.Context, handle string) ([]byte, error) {
	if c == nil {
		return nil, errors.New("provider client not configured")
	}
	handle = strings.TrimSpace(handle)
	if handle == "" {
		return nil, errors.New("provider: handle required")
	}
	endpoint := c.baseURL + "/jobs/" + url.PathEscape(handle)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	if c.token != "" {
		httpReq.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("%w: status: %v", domain.ErrProviderUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, domain.ErrNotFound
	}
	if resp.StatusCode >= http.StatusBadRequest {
		return nil, fmt.Errorf("%w: status: http %d", domain.ErrProviderUnavailable, resp.StatusCode)
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("%w: status: %v", domain.ErrProviderUnavailable, err)
	}
	return body, nil
}
