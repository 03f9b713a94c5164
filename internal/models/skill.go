// internal/models/skill.go
package models

import "time"

// SkillOrigin records which kind of document a skill was first extracted from.
type SkillOrigin string

const (
	OriginResume     SkillOrigin = "resume"
	OriginJobPosting SkillOrigin = "job_posting"
)

// SkillRecord is the canonical skill entity in the primary store.
// Identity is the normalized (case-folded, trimmed) name. Records are never
// deleted; job deletion only removes entries from JobIDs.
type SkillRecord struct {
	ID             string      `json:"id"`
	Name           string      `json:"name"`        // normalized, unique
	DisplayName    string      `json:"displayName"` // as first extracted
	Confidence     float64     `json:"confidence"`  // 0..1, best seen so far
	Origin         SkillOrigin `json:"origin"`
	Frequency      int64       `json:"frequency"` // incremented on every link
	ApplicationIDs []string    `json:"applicationIds"`
	JobIDs         []string    `json:"jobIds"`
	CreatedAt      time.Time   `json:"createdAt"`
	UpdatedAt      time.Time   `json:"updatedAt"`
}
