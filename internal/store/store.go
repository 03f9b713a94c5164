// internal/store/store.go

// Package store is the primary-store access layer. It owns jobs, users,
// applications, and the skill table; the knowledge graph is a derived index
// and never read as a source of truth here.
package store

import (
	"context"

	"careerhunt-pipeline/internal/models"
)

// SkillLink describes one extracted skill being attached to an owning record.
type SkillLink struct {
	Name        string // normalized
	DisplayName string
	Confidence  float64
	Origin      models.SkillOrigin
	OwnerID     string // application or job identifier, by Origin
}

// Skills manages the canonical skill table.
type Skills interface {
	// UpsertLink creates the skill if absent and links the owner, atomically.
	// Concurrent calls for the same name must both be reflected in frequency
	// and in the owner arrays.
	UpsertLink(ctx context.Context, link SkillLink) (*models.SkillRecord, error)

	// NamesForApplications returns the union of skill names linked to any of
	// the given applications.
	NamesForApplications(ctx context.Context, applicationIDs []string) ([]string, error)

	// UnlinkJob removes a job from every skill's JobIDs array. Skill records
	// themselves are never deleted.
	UnlinkJob(ctx context.Context, jobID string) error
}

// Jobs reads and flags job postings.
type Jobs interface {
	// ByIDs returns the jobs that exist and are not expired, in no particular
	// order. Unknown identifiers are silently absent from the result.
	ByIDs(ctx context.Context, ids []string) ([]models.JobRecord, error)

	SetStatus(ctx context.Context, id string, status models.ProcessingStatus) error
}

// Applications tracks enrichment status and evaluation results.
type Applications interface {
	ByID(ctx context.Context, id string) (*models.ApplicationRecord, error)
	SetStatus(ctx context.Context, id string, status models.ProcessingStatus) error
	SaveEvaluation(ctx context.Context, id string, eval models.Evaluation) error
}

// Users reads per-user pipeline state.
type Users interface {
	LastProcessedApplication(ctx context.Context, userID string) (string, error)
	SetLastProcessedApplication(ctx context.Context, userID, applicationID string) error
	ApplicationIDs(ctx context.Context, userID string) ([]string, error)
}

// Store bundles the repositories handed to workers.
type Store struct {
	Skills       Skills
	Jobs         Jobs
	Applications Applications
	Users        Users
}
