// internal/workers/ingestion/link-skills/models.go
package linkskills

import "careerhunt-pipeline/internal/models"

// Entry is one extracted skill candidate before normalization.
type Entry struct {
	Name       string
	Confidence float64
}

// Input links a batch of extracted skills to one owning record.
type Input struct {
	OwnerID string
	Origin  models.SkillOrigin
	Entries []Entry
}

// Output reports which skills were linked. A failed entry never aborts the
// batch; its name is recorded and the rest proceed.
type Output struct {
	Linked []models.SkillRecord
	Failed []string
}
