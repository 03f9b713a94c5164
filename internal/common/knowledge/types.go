// internal/common/knowledge/types.go
package knowledge

import (
	"context"
	"strings"
)

// NodeType tags a graph node. The service infers types from ID prefixes for
// implicitly created neighbors; this client always sends the tag explicitly.
type NodeType string

const (
	NodeTypeSkill       NodeType = "skill"
	NodeTypeJob         NodeType = "job"
	NodeTypeCompany     NodeType = "company"
	NodeTypeApplication NodeType = "application"
)

// Node identity conventions shared with the knowledge-store service.
const (
	SkillNodePrefix       = "skill_"
	JobNodePrefix         = "job_"
	CompanyNodePrefix     = "company_"
	ApplicationNodePrefix = "application_"
)

func SkillNodeID(name string) string     { return SkillNodePrefix + name }
func JobNodeID(id string) string         { return JobNodePrefix + id }
func CompanyNodeID(name string) string   { return CompanyNodePrefix + name }
func ApplicationNodeID(id string) string { return ApplicationNodePrefix + id }

// TrimJobPrefix maps a graph job identity back to a primary-store ID.
// Identities are otherwise opaque; only the job_ prefix convention is used.
func TrimJobPrefix(id string) string {
	return strings.TrimPrefix(id, JobNodePrefix)
}

// Node is one idempotent upsert: neighbor sets are unions, never replacements.
type Node struct {
	ID        string   `json:"id"`
	Type      NodeType `json:"type"`
	Neighbors []string `json:"neighbors"`
	Title     string   `json:"title,omitempty"`
}

// RelatedSkill is one entry of a related-skills query result.
type RelatedSkill struct {
	Name string `json:"name"`
}

// CandidateEvaluation is the service's relevance verdict for one
// (job, application) pair.
type CandidateEvaluation struct {
	Score    float64 `json:"relevance_score"`
	Feedback string  `json:"personalized_feedback"`
}

// GraphStats reports knowledge-store graph size.
type GraphStats struct {
	NodeCount    int64            `json:"node_count"`
	EdgeCount    int64            `json:"edge_count"`
	CountsByType map[string]int64 `json:"counts_by_type"`
}

// Service is the knowledge-store contract. All calls carry a bounded timeout;
// failures surface as typed errors, never as panics.
type Service interface {
	UpsertNode(ctx context.Context, node Node) error
	QueryJobsByEntities(ctx context.Context, entities []string, limit int) ([]string, error)
	QueryRelatedSkills(ctx context.Context, entities []string, limit int) ([]RelatedSkill, error)
	RecommendationsFor(ctx context.Context, applicationID string) ([]string, error)
	EvaluateCandidate(ctx context.Context, jobID, applicationID string) (*CandidateEvaluation, error)
	Stats(ctx context.Context) (*GraphStats, error)
}
