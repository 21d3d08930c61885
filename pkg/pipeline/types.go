package pipeline

import "time"

// ProcessRequest represents a request to analyze one uploaded image
type ProcessRequest struct {
	Bucket   string            `json:"bucket"`
	Name     string            `json:"name"`
	Job      string            `json:"job,omitempty"` // defaults to image_analysis
	Metadata map[string]string `json:"metadata,omitempty"`
}

// ProcessResponse represents the response from triggering processing
type ProcessResponse struct {
	RunID           string `json:"run_id"`
	Outcome         string `json:"outcome,omitempty"`
	DedupeSeenCount int    `json:"dedupe_seen_count"`
}

// JobType constants
const (
	JobImageAnalysis = "image_analysis"
)

// PipelineVersion is recorded with every delivery in the dedupe ledger
const PipelineVersion = 1

// Outcome constants
const (
	OutcomeStored                 = "stored"
	OutcomeSkippedUnsafe          = "skipped_unsafe"
	OutcomeSkippedEmptyBatch      = "skipped_empty_batch"
	OutcomeSkippedAnnotationError = "skipped_annotation_error"
	OutcomeSkippedInvalidKey      = "skipped_invalid_key"
	OutcomeFailed                 = "failed"
)

// RunStatus is the status of an enqueued run as returned by GET /v1/runs/{id}
type RunStatus struct {
	RunID     string    `json:"run_id"`
	State     string    `json:"state"`
	RawStatus string    `json:"raw_status"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
