// internal/models/application.go
package models

import "time"

// ProcessingStatus tracks enrichment pipeline progress on an owning record.
// It replaces the opaque processed boolean so API consumers and tests can
// observe pipeline progress deterministically.
type ProcessingStatus string

const (
	StatusPending  ProcessingStatus = "pending"
	StatusComplete ProcessingStatus = "complete"
	StatusDegraded ProcessingStatus = "degraded"
)

// Done reports whether enrichment finished, successfully or via fallback.
func (s ProcessingStatus) Done() bool {
	return s == StatusComplete || s == StatusDegraded
}

// Evaluation is the result of a relevance computation for one
// (job, application) pair.
type Evaluation struct {
	Score       float64   `json:"score"` // 0..100
	Feedback    string    `json:"feedback"`
	Degraded    bool      `json:"degraded"`
	EvaluatedAt time.Time `json:"evaluatedAt"`
}

// ApplicationRecord is a job application owned by the primary store.
// Status is a best-effort completion marker, not a correctness guarantee.
type ApplicationRecord struct {
	ID             string           `json:"id"`
	UserID         string           `json:"userId"`
	JobID          string           `json:"jobId"`
	Status         ProcessingStatus `json:"status"`
	LastEvaluation *Evaluation      `json:"lastEvaluation,omitempty"`
	CreatedAt      time.Time        `json:"createdAt"`
	UpdatedAt      time.Time        `json:"updatedAt"`
}

// Processed is kept for compatibility with consumers of the old boolean flag.
func (a *ApplicationRecord) Processed() bool {
	return a.Status.Done()
}
