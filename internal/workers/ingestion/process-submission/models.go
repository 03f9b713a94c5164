// internal/workers/ingestion/process-submission/models.go
package processsubmission

import "careerhunt-pipeline/internal/models"

// SubmissionKind selects which owning record the pipeline enriches.
type SubmissionKind string

const (
	KindApplication SubmissionKind = "application"
	KindJob         SubmissionKind = "job"
)

// Input is one submission to enrich. For applications, Text is the resume
// and RelatedJobID the posting applied to; for jobs, Text is the posting
// description and Title/Company describe the posting.
type Input struct {
	Kind         SubmissionKind `json:"kind"`
	ID           string         `json:"id"`
	UserID       string         `json:"userId,omitempty"`
	Text         string         `json:"text"`
	RelatedJobID string         `json:"relatedJobId,omitempty"`
	Title        string         `json:"title,omitempty"`
	Company      string         `json:"company,omitempty"`
}

// Output reports how the enrichment run ended.
type Output struct {
	Status       models.ProcessingStatus `json:"status"`
	Degraded     bool                    `json:"degraded"`
	LinkedSkills []string                `json:"linkedSkills"`
}
