package provider

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"autostudio/internal/domain"
)

func TestClientSubmitPhotoSpin(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/jobs/photo-spin" {
			t.Fatalf("unexpected path: %s", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer test-key" {
			t.Fatalf("unexpected auth header: %s", got)
		}
		var payload submitPayload
		if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		if len(payload.Assets) != 36 || payload.FrameCount != 36 {
			t.Fatalf("frame count mismatch: assets=%d frames=%d", len(payload.Assets), payload.FrameCount)
		}
		if payload.Preset != "studio" {
			t.Fatalf("preset = %s", payload.Preset)
		}
		_ = json.NewEncoder(w).Encode(submitResponse{JobID: "prov-88", EstimatedSeconds: 240})
	}))
	defer ts.Close()

	client := NewClient(Options{BaseURL: ts.URL, APIKey: "test-key"})
	assets := make([]string, 36)
	for i := range assets {
		assets[i] = "https://cdn.example/frame.jpg"
	}
	receipt, err := client.Submit(context.Background(), SubmitRequest{
		Kind:       domain.JobKindPhotoSpin360,
		SubjectID:  "veh-1",
		AssetURLs:  assets,
		Preset:     "studio",
		FrameCount: 36,
	})
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if receipt.Handle != "prov-88" || receipt.EstimatedSeconds != 240 {
		t.Fatalf("receipt = %+v", receipt)
	}
}

func TestClientSubmitProviderErrorsMapToUnavailable(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
	}{
		{
			name: "5xx",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusBadGateway)
			},
		},
		{
			name: "4xx with body",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusUnprocessableEntity)
				_ = json.NewEncoder(w).Encode(submitResponse{Code: "E_ASSET", Message: "asset unreachable"})
			},
		},
		{
			name: "ack missing handle",
			handler: func(w http.ResponseWriter, r *http.Request) {
				_ = json.NewEncoder(w).Encode(submitResponse{})
			},
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			ts := httptest.NewServer(tc.handler)
			defer ts.Close()
			client := NewClient(Options{BaseURL: ts.URL})
			_, err := client.Submit(context.Background(), SubmitRequest{
				Kind:      domain.JobKindImageTransform,
				SubjectID: "veh-1",
				AssetURLs: []string{"https://cdn.example/a.jpg"},
			})
			if !errors.Is(err, domain.ErrProviderUnavailable) {
				t.Fatalf("err = %v, want ErrProviderUnavailable", err)
			}
		})
	}
}

func TestClientSubmitTimeout(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
	}))
	defer ts.Close()

	client := NewClient(Options{BaseURL: ts.URL, Timeout: 20 * time.Millisecond})
	_, err := client.Submit(context.Background(), SubmitRequest{
		Kind:      domain.JobKindImageTransform,
		SubjectID: "veh-1",
		AssetURLs: []string{"https://cdn.example/a.jpg"},
	})
	if !errors.Is(err, domain.ErrProviderUnavailable) {
		t.Fatalf("timeout err = %v, want ErrProviderUnavailable", err)
	}
}

func TestClientStatus(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/jobs/prov-12" {
			t.Fatalf("unexpected path: %s", r.URL.Path)
		}
		_, _ = w.Write([]byte(`{"job_id":"prov-12","status":"processing"}`))
	}))
	defer ts.Close()

	client := NewClient(Options{BaseURL: ts.URL})
	body, err := client.Status(context.Background(), "prov-12")
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	var parsed map[string]any
	if err := json.Unmarshal(body, &parsed); err != nil {
		t.Fatalf("raw body not passed through: %v", err)
	}
	if parsed["status"] != "processing" {
		t.Fatalf("unexpected body: %s", body)
	}
}

func TestClientStatusNotFound(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer ts.Close()

	client := NewClient(Options{BaseURL: ts.URL})
	if _, err := client.Status(context.Background(), "missing"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}
