// internal/models/user.go
package models

import "time"

// UserRecord holds the per-user state the pipeline reads.
// LastProcessedApplication is a weak back-reference (lookup only) used as the
// default recommendation context when no explicit query is given.
type UserRecord struct {
	ID                       string    `json:"id"`
	Email                    string    `json:"email,omitempty"`
	LastProcessedApplication string    `json:"lastProcessedApplication,omitempty"`
	CreatedAt                time.Time `json:"createdAt"`
	UpdatedAt                time.Time `json:"updatedAt"`
}
