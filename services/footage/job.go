package footage

import "time"

type JobStatus string

const (
	StatusPending           JobStatus = "pending"
	StatusInProgress        JobStatus = "in_progress"
	StatusCompleted         JobStatus = "completed"
	StatusFailed            JobStatus = "failed"
	StatusPermanentlyFailed JobStatus = "permanently_failed"
)

// Terminal reports whether a status admits no further transitions.
func (s JobStatus) Terminal() bool {
	return s == StatusCompleted || s == StatusPermanentlyFailed
}

// DownloadJob tracks one asynchronous footage fetch. VideoPath is set iff the
// job completed; Error is set iff it failed. Transitions are monotonic: once
// a job reaches a terminal status the store refuses regressions.
type DownloadJob struct {
	ID         string            `json:"id"`
	SearchTerm string            `json:"search_term"`
	Metadata   map[string]string `json:"metadata,omitempty"`
	Status     JobStatus         `json:"status"`
	VideoPath  string            `json:"video_path,omitempty"`
	Error      string            `json:"error,omitempty"`
	Attempts   int               `json:"attempts"`
	CreatedAt  time.Time         `json:"created_at"`
	UpdatedAt  time.Time         `json:"updated_at"`

	// RetrievedAt is set the first time a caller observes a terminal status.
	// The store garbage-collects retrieved jobs; the orchestrator never does.
	RetrievedAt time.Time `json:"retrieved_at,omitempty"`
}

// Clone returns a copy so that polling callers never share mutable state
// with the worker.
func (j *DownloadJob) Clone() *DownloadJob {
	c := *j
	if j.Metadata != nil {
		c.Metadata = make(map[string]string, len(j.Metadata))
		for k, v := range j.Metadata {
			c.Metadata[k] = v
		}
	}
	return &c
}
