// internal/workers/ingestion/process-submission/handler.go

// Package processsubmission runs the asynchronous enrichment pipeline for
// one submitted document: extract skills, link them in the primary store,
// mirror the result into the knowledge graph, then flag the owning record.
//
// The pipeline is best effort. Any step may fail without aborting the run;
// failures downgrade the final status to degraded instead. The enrichment
// stages run once per submission (the skill upsert counts invocations), so
// pool-level retries replay only the final status write.
package processsubmission

import (
	"context"
	"fmt"

	"careerhunt-pipeline/internal/common/genai"
	"careerhunt-pipeline/internal/common/knowledge"
	"careerhunt-pipeline/internal/common/logger"
	"careerhunt-pipeline/internal/common/observability"
	"careerhunt-pipeline/internal/common/taskpool"
	"careerhunt-pipeline/internal/models"
	"careerhunt-pipeline/internal/store"

	linkskills "careerhunt-pipeline/internal/workers/ingestion/link-skills"
)

// TaskKind identifies enrichment tasks in pool metrics and dead letters.
const TaskKind = "process-submission"

// fallbackEntries are linked when extraction fails outright, so downstream
// queries still have something to anchor on. The run is marked degraded.
var fallbackEntries = []linkskills.Entry{
	{Name: "general", Confidence: 0.1},
}

// Handler orchestrates one enrichment run.
type Handler struct {
	extractor genai.Extractor
	linker    *linkskills.Handler
	graph     knowledge.Service
	store     *store.Store
	obs       *observability.Observability
	logger    logger.Logger
}

func NewHandler(
	extractor genai.Extractor,
	linker *linkskills.Handler,
	graph knowledge.Service,
	st *store.Store,
	obs *observability.Observability,
	log logger.Logger,
) *Handler {
	return &Handler{
		extractor: extractor,
		linker:    linker,
		graph:     graph,
		store:     st,
		obs:       obs,
		logger:    log.With(map[string]interface{}{"worker": TaskKind}),
	}
}

// Trigger enqueues the enrichment run and returns immediately. The caller's
// response never waits on extraction or graph sync. When the status write
// fails with a retryable error, retries replay the write alone; enrichment
// is not repeated, since the skill upsert counts invocations.
func (h *Handler) Trigger(pool *taskpool.Pool, input Input) error {
	var out *Output
	return pool.Submit(&taskpool.Task{
		Kind:    TaskKind,
		Payload: input,
		Run: func(ctx context.Context) error {
			if out == nil {
				out = h.enrich(ctx, input)
			}
			return h.finalize(ctx, input, out)
		},
	})
}

// Execute runs the full pipeline once. Extraction, linking, and graph sync
// are best effort; only the final status write can fail the task.
func (h *Handler) Execute(ctx context.Context, input Input) (*Output, error) {
	out := h.enrich(ctx, input)
	if err := h.finalize(ctx, input, out); err != nil {
		return nil, err
	}
	return out, nil
}

// enrich runs the best-effort stages and decides the final status. It never
// fails; every stage failure is absorbed into a degraded result.
func (h *Handler) enrich(ctx context.Context, input Input) *Output {
	degraded := false

	entries, err := h.extract(ctx, input)
	if err != nil {
		h.logger.Error("extraction failed, using fallback skills", map[string]interface{}{
			"kind":  string(input.Kind),
			"id":    input.ID,
			"error": err.Error(),
		})
		entries = fallbackEntries
		degraded = true
	}

	linked, linkDegraded := h.link(ctx, input, entries)
	degraded = degraded || linkDegraded

	if h.syncGraph(ctx, input, linked) {
		degraded = true
	}

	status := models.StatusComplete
	if degraded {
		status = models.StatusDegraded
		h.obs.RecordDegraded(ctx, TaskKind, "enrichment")
	}

	return &Output{
		Status:       status,
		Degraded:     degraded,
		LinkedSkills: linked,
	}
}

// finalize writes the completion status exactly once per successful run and
// records the user's processing pointer. Safe to replay on retry.
func (h *Handler) finalize(ctx context.Context, input Input, out *Output) error {
	if err := h.setStatus(ctx, input, out.Status); err != nil {
		return err
	}

	if input.Kind == KindApplication && input.UserID != "" {
		if err := h.store.Users.SetLastProcessedApplication(ctx, input.UserID, input.ID); err != nil {
			h.logger.Warn("could not record last processed application", map[string]interface{}{
				"userId": input.UserID,
				"error":  err.Error(),
			})
		}
	}

	h.logger.Info("submission processed", map[string]interface{}{
		"kind":     string(input.Kind),
		"id":       input.ID,
		"status":   string(out.Status),
		"skills":   len(out.LinkedSkills),
		"degraded": out.Degraded,
	})
	return nil
}

// DeletionTaskKind identifies job-deletion cleanup tasks.
const DeletionTaskKind = "unlink-job"

// TriggerDeletion enqueues cleanup after a job is removed from the primary
// store: skill references to the job are unlinked; skill records survive.
// The graph node is left behind, since the knowledge store reconciles stale
// nodes during its periodic full rebuild.
func (h *Handler) TriggerDeletion(pool *taskpool.Pool, jobID string) error {
	return pool.Submit(&taskpool.Task{
		Kind:    DeletionTaskKind,
		Payload: map[string]string{"jobId": jobID},
		Run: func(ctx context.Context) error {
			return h.store.Skills.UnlinkJob(ctx, jobID)
		},
	})
}

func (h *Handler) extract(ctx context.Context, input Input) ([]linkskills.Entry, error) {
	skills, err := h.extractor.Extract(ctx, input.Text)
	if err != nil {
		return nil, err
	}

	entries := make([]linkskills.Entry, 0, len(skills))
	for _, s := range skills {
		entries = append(entries, linkskills.Entry{Name: s.Name, Confidence: s.Confidence})
	}
	return entries, nil
}

func (h *Handler) link(ctx context.Context, input Input, entries []linkskills.Entry) ([]string, bool) {
	origin := models.OriginResume
	if input.Kind == KindJob {
		origin = models.OriginJobPosting
	}

	out, err := h.linker.Execute(ctx, linkskills.Input{
		OwnerID: input.ID,
		Origin:  origin,
		Entries: entries,
	})
	if err != nil {
		h.logger.Error("skill linking failed", map[string]interface{}{
			"id":    input.ID,
			"error": err.Error(),
		})
		return nil, true
	}

	names := make([]string, 0, len(out.Linked))
	for _, record := range out.Linked {
		names = append(names, record.Name)
	}
	return names, len(out.Failed) > 0
}

// syncGraph mirrors the submission into the knowledge graph as one node per
// entity with neighbor unions. Each upsert stands alone: a failed node is
// logged and skipped, leaving a partially synced graph that the nightly
// rebuild reconciles. Returns true when any upsert failed.
func (h *Handler) syncGraph(ctx context.Context, input Input, skillNames []string) bool {
	failed := false
	for _, node := range h.graphNodes(input, skillNames) {
		if err := h.graph.UpsertNode(ctx, node); err != nil {
			h.logger.Error("graph node sync failed", map[string]interface{}{
				"nodeId": node.ID,
				"error":  err.Error(),
			})
			failed = true
		}
	}
	return failed
}

func (h *Handler) graphNodes(input Input, skillNames []string) []knowledge.Node {
	skillNodeIDs := make([]string, 0, len(skillNames))
	for _, name := range skillNames {
		skillNodeIDs = append(skillNodeIDs, knowledge.SkillNodeID(name))
	}

	var nodes []knowledge.Node

	switch input.Kind {
	case KindApplication:
		ownerID := knowledge.ApplicationNodeID(input.ID)
		neighbors := skillNodeIDs
		if input.RelatedJobID != "" {
			neighbors = append(neighbors, knowledge.JobNodeID(input.RelatedJobID))
		}
		nodes = append(nodes, knowledge.Node{
			ID:        ownerID,
			Type:      knowledge.NodeTypeApplication,
			Neighbors: neighbors,
		})
		for _, skillID := range skillNodeIDs {
			nodes = append(nodes, knowledge.Node{
				ID:        skillID,
				Type:      knowledge.NodeTypeSkill,
				Neighbors: []string{ownerID},
			})
		}

	case KindJob:
		ownerID := knowledge.JobNodeID(input.ID)
		neighbors := skillNodeIDs
		if input.Company != "" {
			companyID := knowledge.CompanyNodeID(input.Company)
			neighbors = append(neighbors, companyID)
			nodes = append(nodes, knowledge.Node{
				ID:        companyID,
				Type:      knowledge.NodeTypeCompany,
				Neighbors: []string{ownerID},
			})
		}
		nodes = append(nodes, knowledge.Node{
			ID:        ownerID,
			Type:      knowledge.NodeTypeJob,
			Title:     input.Title,
			Neighbors: neighbors,
		})
		for _, skillID := range skillNodeIDs {
			nodes = append(nodes, knowledge.Node{
				ID:        skillID,
				Type:      knowledge.NodeTypeSkill,
				Neighbors: []string{ownerID},
			})
		}
	}

	return nodes
}

func (h *Handler) setStatus(ctx context.Context, input Input, status models.ProcessingStatus) error {
	switch input.Kind {
	case KindApplication:
		return h.store.Applications.SetStatus(ctx, input.ID, status)
	case KindJob:
		return h.store.Jobs.SetStatus(ctx, input.ID, status)
	default:
		return fmt.Errorf("unknown submission kind %q", input.Kind)
	}
}
