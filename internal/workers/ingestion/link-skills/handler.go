// internal/workers/ingestion/link-skills/handler.go

// Package linkskills attaches extracted skills to the canonical skill table.
// Identity is the normalized name, so "Python" and "python" land on the same
// record regardless of which document mentioned them first.
package linkskills

import (
	"context"
	"strings"

	"careerhunt-pipeline/internal/common/logger"
	"careerhunt-pipeline/internal/store"
)

// Handler links extracted skills to their owning record.
type Handler struct {
	skills store.Skills
	logger logger.Logger
}

func NewHandler(skills store.Skills, log logger.Logger) *Handler {
	return &Handler{
		skills: skills,
		logger: log.With(map[string]interface{}{"worker": "link-skills"}),
	}
}

// Execute normalizes and deduplicates the batch, then upserts each skill.
// The store upsert is a single atomic statement, so two documents linking
// the same skill concurrently both count toward frequency and both owners
// survive in the record.
func (h *Handler) Execute(ctx context.Context, input Input) (*Output, error) {
	entries := dedupe(input.Entries)

	output := &Output{}
	for _, entry := range entries {
		record, err := h.skills.UpsertLink(ctx, store.SkillLink{
			Name:        entry.normalized,
			DisplayName: entry.display,
			Confidence:  entry.confidence,
			Origin:      input.Origin,
			OwnerID:     input.OwnerID,
		})
		if err != nil {
			h.logger.Error("skill link failed", map[string]interface{}{
				"skill":   entry.normalized,
				"ownerId": input.OwnerID,
				"error":   err.Error(),
			})
			output.Failed = append(output.Failed, entry.normalized)
			continue
		}
		output.Linked = append(output.Linked, *record)
	}

	h.logger.Info("skills linked", map[string]interface{}{
		"ownerId": input.OwnerID,
		"linked":  len(output.Linked),
		"failed":  len(output.Failed),
	})

	return output, nil
}

type normalizedEntry struct {
	normalized string
	display    string
	confidence float64
}

// Normalize lowercases and trims; empty names are dropped. Within one batch a
// repeated skill keeps its highest confidence and its first display form.
func Normalize(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

func dedupe(entries []Entry) []normalizedEntry {
	index := make(map[string]int)
	var out []normalizedEntry

	for _, entry := range entries {
		name := Normalize(entry.Name)
		if name == "" {
			continue
		}
		if i, seen := index[name]; seen {
			if entry.Confidence > out[i].confidence {
				out[i].confidence = entry.Confidence
			}
			continue
		}
		index[name] = len(out)
		out = append(out, normalizedEntry{
			normalized: name,
			display:    strings.TrimSpace(entry.Name),
			confidence: entry.Confidence,
		})
	}

	return out
}
