package domain

import "time"

// JobKind enumerates supported media transformation categories.
type JobKind string

const (
	JobKindImageTransform      JobKind = "image_transform"
	JobKindImageBatchTransform JobKind = "image_batch_transform"
	JobKindPhotoSpin360        JobKind = "photo_spin_360"
	JobKindVideoSpin360        JobKind = "video_spin_360"
	JobKindVideoTour           JobKind = "video_tour"
)

// IsComposite reports whether the kind requires provider-side composition of
// multiple source assets (spins, tours) as opposed to a plain image transform.
func (k JobKind) IsComposite() bool {
	switch k {
	case JobKindPhotoSpin360, JobKindVideoSpin360, JobKindVideoTour:
		return true
	}
	return false
}

// HasExtractionStage reports whether jobs of this kind pass through the
// frame-extraction stage before processing.
func (k JobKind) HasExtractionStage() bool {
	return k.IsComposite()
}

// JobState enumerates job lifecycle states.
type JobState string

const (
	JobStateSubmitted        JobState = "submitted"
	JobStateUploading        JobState = "uploading"
	JobStateExtractingFrames JobState = "extracting_frames"
	JobStateProcessing       JobState = "processing"
	JobStateCompleted        JobState = "completed"
	JobStateFailed           JobState = "failed"
)

// stateRank orders states along the legal transition graph. Terminal states
// share the highest rank; Failed wins by the stickiness rule, not by rank.
var stateRank = map[JobState]int{
	JobStateSubmitted:        0,
	JobStateUploading:        1,
	JobStateExtractingFrames: 2,
	JobStateProcessing:       3,
	JobStateCompleted:        4,
	JobStateFailed:           4,
}

// Rank returns the position of the state along the transition graph,
// or -1 for an unknown state.
func (s JobState) Rank() int {
	if r, ok := stateRank[s]; ok {
		return r
	}
	return -1
}

// IsTerminal reports whether the state admits no further transitions.
func (s JobState) IsTerminal() bool {
	return s == JobStateCompleted || s == JobStateFailed
}

// AssetStatus is the per-artifact sub-status; sibling assets of one job may
// finish independently.
type AssetStatus string

const (
	AssetStatusPending AssetStatus = "pending"
	AssetStatusReady   AssetStatus = "ready"
	AssetStatusFailed  AssetStatus = "failed"
)

// ResultAsset is one produced artifact reference (processed image URL, spin
// viewer URL, video URL).
type ResultAsset struct {
	ID     string      `json:"id"`
	Kind   string      `json:"kind"`
	URL    string      `json:"url"`
	Status AssetStatus `json:"status"`
}

// Job is the durable record of one asynchronous transformation request.
// Mutated only through the lifecycle engine; never deleted.
type Job struct {
	ID               string
	ProviderHandle   string
	Kind             JobKind
	SubjectID        string
	OwnerID          string
	Preset           string
	Features         []string
	State            JobState
	ResultAssets     []ResultAsset
	ErrorDetail      string
	CreatedAt        time.Time
	LastTransitionAt time.Time
	CompletedAt      *time.Time
	RawLastNotice    []byte
	Version          int
}

// MergeAssets applies incoming artifact references by asset identity:
// existing entries are replaced, new ones appended in arrival order. When
// snapshot is true the incoming set is authoritative for the whole job and
// replaces the collection wholesale. It reports whether the collection
// actually changed; a replacement that only flips an asset's sub-status or
// URL counts, so callers persist partial per-asset progress.
func (j *Job) MergeAssets(incoming []ResultAsset, snapshot bool) bool {
	if len(incoming) == 0 {
		return false
	}
	if snapshot {
		changed := len(j.ResultAssets) != len(incoming)
		if !changed {
			for i, a := range incoming {
				if j.ResultAssets[i] != a {
					changed = true
					break
				}
			}
		}
		j.ResultAssets = append([]ResultAsset(nil), incoming...)
		return changed
	}
	changed := false
	index := make(map[string]int, len(j.ResultAssets))
	for i, a := range j.ResultAssets {
		index[a.ID] = i
	}
	for _, a := range incoming {
		if i, ok := index[a.ID]; ok {
			if j.ResultAssets[i] != a {
				j.ResultAssets[i] = a
				changed = true
			}
			continue
		}
		index[a.ID] = len(j.ResultAssets)
		j.ResultAssets = append(j.ResultAssets, a)
		changed = true
	}
	return changed
}
