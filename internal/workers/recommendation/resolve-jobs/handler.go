// internal/workers/recommendation/resolve-jobs/handler.go

// Package resolvejobs turns opaque ranked job identities from the knowledge
// store into full job records, falling back through cheaper strategies when
// the preferred one fails. Only failures advance the chain: a strategy that
// succeeds with zero results is a legitimate final answer.
package resolvejobs

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"careerhunt-pipeline/internal/common/config"
	"careerhunt-pipeline/internal/common/fallback"
	"careerhunt-pipeline/internal/common/knowledge"
	"careerhunt-pipeline/internal/common/logger"
	"careerhunt-pipeline/internal/common/observability"
	"careerhunt-pipeline/internal/models"
	"careerhunt-pipeline/internal/store"

	"github.com/redis/go-redis/v9"
)

const cacheKeyPrefix = "rec:user:"

// Handler resolves recommendations for one user.
type Handler struct {
	graph  knowledge.Service
	store  *store.Store
	cache  *redis.Client
	cfg    config.RecommendationConfig
	obs    *observability.Observability
	logger logger.Logger
}

func NewHandler(
	graph knowledge.Service,
	st *store.Store,
	cache *redis.Client,
	cfg config.RecommendationConfig,
	obs *observability.Observability,
	log logger.Logger,
) *Handler {
	if cfg.Limit <= 0 {
		cfg.Limit = 5
	}
	return &Handler{
		graph:  graph,
		store:  st,
		cache:  cache,
		cfg:    cfg,
		obs:    obs,
		logger: log.With(map[string]interface{}{"worker": "resolve-jobs"}),
	}
}

// Resolve returns ranked, hydrated job recommendations for the user.
func (h *Handler) Resolve(ctx context.Context, userID string) (*Output, error) {
	if cached := h.fromCache(ctx, userID); cached != nil {
		return cached, nil
	}

	applicationID, err := h.store.Users.LastProcessedApplication(ctx, userID)
	if err != nil {
		return nil, err
	}

	skillNames, err := h.userSkills(ctx, userID)
	if err != nil {
		return nil, err
	}

	if applicationID == "" {
		// Nothing has been enriched for this user yet. Without an anchor
		// application the vector path has no query, so go straight to the
		// skill graph; no skills at all means an honest empty answer.
		if len(skillNames) == 0 {
			return &Output{Jobs: []models.JobRecord{}, Source: SourceNone}, nil
		}
		return h.resolveBySkills(ctx, userID, skillNames)
	}

	stages := []fallback.Stage[[]string]{
		{
			Name: SourceVector,
			Run: func(ctx context.Context) ([]string, error) {
				return h.graph.RecommendationsFor(ctx, applicationID)
			},
		},
		{
			Name: SourceSkillGraph,
			Run: func(ctx context.Context) ([]string, error) {
				entities := append([]string{knowledge.ApplicationNodeID(applicationID)}, asSkillEntities(skillNames)...)
				return h.graph.QueryJobsByEntities(ctx, entities, h.cfg.Limit)
			},
		},
	}

	outcome, err := fallback.Run(ctx, h.logger, stages)
	if err != nil {
		h.logger.Error("all recommendation strategies failed", map[string]interface{}{
			"userId": userID,
			"error":  err.Error(),
		})
		return h.placeholder(ctx, userID), nil
	}

	output, err := h.hydrate(ctx, outcome.Value, outcome.Stage, outcome.Degraded)
	if err != nil {
		return nil, err
	}

	h.storeInCache(ctx, userID, output)
	return output, nil
}

func (h *Handler) resolveBySkills(ctx context.Context, userID string, skillNames []string) (*Output, error) {
	jobIDs, err := h.graph.QueryJobsByEntities(ctx, asSkillEntities(skillNames), h.cfg.Limit)
	if err != nil {
		h.logger.Error("skill graph query failed", map[string]interface{}{
			"userId": userID,
			"error":  err.Error(),
		})
		return h.placeholder(ctx, userID), nil
	}

	output, err := h.hydrate(ctx, jobIDs, SourceSkillGraph, false)
	if err != nil {
		return nil, err
	}
	h.storeInCache(ctx, userID, output)
	return output, nil
}

// hydrate maps graph identities to primary-store records while preserving
// the external rank order. Identities that are unknown or expired in the
// primary store are dropped, not substituted.
func (h *Handler) hydrate(ctx context.Context, graphJobIDs []string, source string, degraded bool) (*Output, error) {
	ids := make([]string, 0, len(graphJobIDs))
	for _, graphID := range graphJobIDs {
		ids = append(ids, knowledge.TrimJobPrefix(graphID))
	}

	jobs, err := h.store.Jobs.ByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}

	byID := make(map[string]models.JobRecord, len(jobs))
	for _, job := range jobs {
		byID[job.ID] = job
	}

	ranked := make([]models.JobRecord, 0, len(ids))
	for _, id := range ids {
		if job, ok := byID[id]; ok {
			ranked = append(ranked, job)
		}
	}

	if degraded {
		h.obs.RecordDegraded(ctx, "resolve-jobs", source)
	}

	return &Output{Jobs: ranked, Degraded: degraded, Source: source}, nil
}

// placeholder is the last resort when every strategy failed: deterministic
// suggestion slots so the response shape stays intact. Always degraded and
// never cached.
func (h *Handler) placeholder(ctx context.Context, userID string) *Output {
	jobs := make([]models.JobRecord, 0, h.cfg.Limit)
	for i := 1; i <= h.cfg.Limit; i++ {
		jobs = append(jobs, models.JobRecord{
			ID:      fmt.Sprintf("job_fallback_%d", i),
			Title:   "Suggested role",
			Company: "CareerHunt",
		})
	}

	h.obs.RecordDegraded(ctx, "resolve-jobs", SourcePlaceholder)
	h.logger.Warn("serving placeholder recommendations", map[string]interface{}{
		"userId": userID,
	})

	return &Output{Jobs: jobs, Degraded: true, Source: SourcePlaceholder}
}

func (h *Handler) userSkills(ctx context.Context, userID string) ([]string, error) {
	applicationIDs, err := h.store.Users.ApplicationIDs(ctx, userID)
	if err != nil {
		return nil, err
	}
	if len(applicationIDs) == 0 {
		return nil, nil
	}
	return h.store.Skills.NamesForApplications(ctx, applicationIDs)
}

func asSkillEntities(names []string) []string {
	entities := make([]string, 0, len(names))
	for _, name := range names {
		entities = append(entities, knowledge.SkillNodeID(name))
	}
	return entities
}

func (h *Handler) fromCache(ctx context.Context, userID string) *Output {
	if h.cache == nil {
		return nil
	}

	raw, err := h.cache.Get(ctx, cacheKeyPrefix+userID).Result()
	if err != nil {
		if err != redis.Nil {
			h.logger.Warn("recommendation cache read failed", map[string]interface{}{
				"userId": userID,
				"error":  err.Error(),
			})
		}
		return nil
	}

	var output Output
	if err := json.Unmarshal([]byte(raw), &output); err != nil {
		return nil
	}
	output.Source = SourceCache
	return &output
}

// storeInCache caches healthy results only. A degraded answer must not
// outlive the outage that produced it.
func (h *Handler) storeInCache(ctx context.Context, userID string, output *Output) {
	if h.cache == nil || output.Degraded {
		return
	}

	raw, err := json.Marshal(output)
	if err != nil {
		return
	}

	ttl := time.Duration(h.cfg.CacheTTL) * time.Millisecond
	if err := h.cache.Set(ctx, cacheKeyPrefix+userID, raw, ttl).Err(); err != nil {
		h.logger.Warn("recommendation cache write failed", map[string]interface{}{
			"userId": userID,
			"error":  err.Error(),
		})
	}
}
