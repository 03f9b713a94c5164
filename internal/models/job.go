// internal/models/job.go
package models

import "time"

// JobRecord is a job posting owned by the primary store.
type JobRecord struct {
	ID          string           `json:"id"`
	Title       string           `json:"title"`
	Company     string           `json:"company"`
	Description string           `json:"description,omitempty"`
	Expired     bool             `json:"expired"`
	Status      ProcessingStatus `json:"status"`
	CreatedAt   time.Time        `json:"createdAt"`
	UpdatedAt   time.Time        `json:"updatedAt"`
}
