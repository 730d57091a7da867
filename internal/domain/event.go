package domain

import "time"

// JobEvent is the single job-level event produced by classifying one provider
// notification or poll response. Heterogeneous per-media sub-statuses are
// unioned before this type is built, so consumers never branch on payload
// shape.
type JobEvent struct {
	ProviderHandle string
	NotificationID string
	Stage          JobState
	Assets         []ResultAsset
	// Snapshot marks the asset set as authoritative for the whole job.
	Snapshot    bool
	ErrorDetail string
	Raw         []byte
	OccurredAt  time.Time
}
