// internal/workers/recommendation/resolve-jobs/models.go
package resolvejobs

import "careerhunt-pipeline/internal/models"

// Result sources, most to least preferred.
const (
	SourceCache       = "cache"
	SourceVector      = "vector-recommendations"
	SourceSkillGraph  = "skill-graph-query"
	SourcePlaceholder = "placeholder"
	SourceNone        = "none"
)

// Output is a resolved recommendation set. Jobs preserves the external
// ranking; Degraded is true whenever anything but the primary strategy
// produced the result.
type Output struct {
	Jobs     []models.JobRecord `json:"jobs"`
	Degraded bool               `json:"degraded"`
	Source   string             `json:"source"`
}
