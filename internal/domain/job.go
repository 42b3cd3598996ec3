package domain

import "time"

// JobStatus tracks a dubbing job through the service pipeline.
type JobStatus string

const (
	JobQueued       JobStatus = "queued"
	JobFetching     JobStatus = "fetching"
	JobTranscribing JobStatus = "transcribing"
	JobTranslating  JobStatus = "translating"
	JobDubbing      JobStatus = "dubbing"
	JobUploading    JobStatus = "uploading"
	JobDone         JobStatus = "done"
	JobFailed       JobStatus = "failed"
)

// Terminal reports whether no further transitions are allowed.
func (s JobStatus) Terminal() bool {
	return s == JobDone || s == JobFailed
}

// Job is one dubbing request as tracked by the service layer.
type Job struct {
	ID          string    `json:"id"`
	VideoID     string    `json:"videoId"`
	TargetLang  string    `json:"targetLang"`
	Status      JobStatus `json:"status"`
	Error       string    `json:"error,omitempty"`
	AudioObject string    `json:"audioObject,omitempty"`
	Skipped     int       `json:"skippedSegments"`
	Message     string    `json:"message,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}
