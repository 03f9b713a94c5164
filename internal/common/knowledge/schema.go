// internal/common/knowledge/schema.go
package knowledge

import (
	"fmt"

	"github.com/xeipuuv/gojsonschema"
)

// Response schemas for the knowledge-store service. A body that fails its
// schema is a malformed response and is handled like a transient failure.

const upsertResponseSchema = `{
	"type": "object",
	"required": ["status"],
	"properties": {
		"status": {"type": "string"}
	}
}`

const jobIDsResponseSchema = `{
	"type": "object",
	"required": ["job_ids"],
	"properties": {
		"job_ids": {
			"type": "array",
			"items": {"type": "string"}
		}
	}
}`

const relatedSkillsResponseSchema = `{
	"type": "object",
	"required": ["skills"],
	"properties": {
		"skills": {
			"type": "array",
			"items": {
				"type": "object",
				"required": ["name"],
				"properties": {
					"name": {"type": "string"}
				}
			}
		}
	}
}`

const evaluationResponseSchema = `{
	"type": "object",
	"required": ["relevance_score", "personalized_feedback"],
	"properties": {
		"relevance_score": {"type": "number", "minimum": 0, "maximum": 100},
		"personalized_feedback": {"type": "string"}
	}
}`

const statsResponseSchema = `{
	"type": "object",
	"required": ["node_count", "edge_count"],
	"properties": {
		"node_count": {"type": "integer", "minimum": 0},
		"edge_count": {"type": "integer", "minimum": 0},
		"counts_by_type": {
			"type": "object",
			"additionalProperties": {"type": "integer"}
		}
	}
}`

type responseSchemas struct {
	upsert        *gojsonschema.Schema
	jobIDs        *gojsonschema.Schema
	relatedSkills *gojsonschema.Schema
	evaluation    *gojsonschema.Schema
	stats         *gojsonschema.Schema
}

func compileSchemas() (*responseSchemas, error) {
	compile := func(src string) (*gojsonschema.Schema, error) {
		return gojsonschema.NewSchema(gojsonschema.NewStringLoader(src))
	}

	var s responseSchemas
	var err error
	if s.upsert, err = compile(upsertResponseSchema); err != nil {
		return nil, fmt.Errorf("compile upsert schema: %w", err)
	}
	if s.jobIDs, err = compile(jobIDsResponseSchema); err != nil {
		return nil, fmt.Errorf("compile job ids schema: %w", err)
	}
	if s.relatedSkills, err = compile(relatedSkillsResponseSchema); err != nil {
		return nil, fmt.Errorf("compile related skills schema: %w", err)
	}
	if s.evaluation, err = compile(evaluationResponseSchema); err != nil {
		return nil, fmt.Errorf("compile evaluation schema: %w", err)
	}
	if s.stats, err = compile(statsResponseSchema); err != nil {
		return nil, fmt.Errorf("compile stats schema: %w", err)
	}
	return &s, nil
}

// validateBody checks raw response bytes against a schema and returns a
// human-readable reason on mismatch.
func validateBody(schema *gojsonschema.Schema, body []byte) error {
	result, err := schema.Validate(gojsonschema.NewBytesLoader(body))
	if err != nil {
		return fmt.Errorf("not valid JSON: %v", err)
	}
	if !result.Valid() {
		return fmt.Errorf("schema violation: %v", result.Errors())
	}
	return nil
}
