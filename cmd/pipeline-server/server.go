// cmd/pipeline-server/server.go
package main

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"careerhunt-pipeline/internal/common/config"
	pipeerrors "careerhunt-pipeline/internal/common/errors"
	"careerhunt-pipeline/internal/common/knowledge"
	"careerhunt-pipeline/internal/common/logger"
	"careerhunt-pipeline/internal/common/taskpool"
	"careerhunt-pipeline/internal/store"

	evaluatecandidate "careerhunt-pipeline/internal/workers/evaluation/evaluate-candidate"
	processsubmission "careerhunt-pipeline/internal/workers/ingestion/process-submission"
	resolvejobs "careerhunt-pipeline/internal/workers/recommendation/resolve-jobs"
)

type serverDeps struct {
	cfg       *config.Config
	logger    logger.Logger
	graph     knowledge.Service
	store     *store.Store
	pool      *taskpool.Pool
	ingestion *processsubmission.Handler
	resolver  *resolvejobs.Handler
	evaluator *evaluatecandidate.Handler
}

type server struct {
	serverDeps
}

func newServer(deps serverDeps) *server {
	return &server{serverDeps: deps}
}

func (s *server) routes() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("POST /process/cv-submission", s.handleCVSubmission)
	mux.HandleFunc("POST /process/jd-submission", s.handleJDSubmission)
	mux.HandleFunc("DELETE /process/jd-submission/{jobId}", s.handleJDDeletion)
	mux.HandleFunc("POST /rag/evaluate-candidate", s.handleEvaluateCandidate)
	mux.HandleFunc("GET /rag/recommendations/{userId}", s.handleRecommendations)
	mux.HandleFunc("GET /rag/related-skills/{skill}", s.handleRelatedSkills)
	mux.HandleFunc("GET /graph/stats", s.handleGraphStats)

	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.Handle("GET /metrics", promhttp.Handler())
	mux.Handle("/debug/", http.DefaultServeMux) // pprof

	return mux
}

type cvSubmissionRequest struct {
	ApplicationID string `json:"applicationId"`
	UserID        string `json:"userId"`
	JobID         string `json:"jobId"`
	ResumeText    string `json:"resumeText"`
}

// handleCVSubmission accepts a resume for enrichment. The work happens in
// the background pool; the response only confirms the hand-off.
func (s *server) handleCVSubmission(w http.ResponseWriter, r *http.Request) {
	var req cvSubmissionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.ApplicationID == "" || req.ResumeText == "" {
		s.writeError(w, http.StatusBadRequest, "applicationId and resumeText are required")
		return
	}

	err := s.ingestion.Trigger(s.pool, processsubmission.Input{
		Kind:         processsubmission.KindApplication,
		ID:           req.ApplicationID,
		UserID:       req.UserID,
		Text:         req.ResumeText,
		RelatedJobID: req.JobID,
	})
	if err != nil {
		s.writeQueueError(w, err)
		return
	}

	s.writeJSON(w, http.StatusAccepted, map[string]string{
		"status":        "accepted",
		"applicationId": req.ApplicationID,
	})
}

type jdSubmissionRequest struct {
	JobID          string `json:"jobId"`
	JobTitle       string `json:"jobTitle"`
	JobDescription string `json:"jobDescription"`
	Company        string `json:"company"`
}

func (s *server) handleJDSubmission(w http.ResponseWriter, r *http.Request) {
	var req jdSubmissionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.JobID == "" || req.JobDescription == "" {
		s.writeError(w, http.StatusBadRequest, "jobId and jobDescription are required")
		return
	}

	err := s.ingestion.Trigger(s.pool, processsubmission.Input{
		Kind:    processsubmission.KindJob,
		ID:      req.JobID,
		Text:    req.JobDescription,
		Title:   req.JobTitle,
		Company: req.Company,
	})
	if err != nil {
		s.writeQueueError(w, err)
		return
	}

	s.writeJSON(w, http.StatusAccepted, map[string]string{
		"status": "accepted",
		"jobId":  req.JobID,
	})
}

// handleJDDeletion queues reference cleanup for a removed job posting.
func (s *server) handleJDDeletion(w http.ResponseWriter, r *http.Request) {
	jobID := r.PathValue("jobId")

	if err := s.ingestion.TriggerDeletion(s.pool, jobID); err != nil {
		s.writeQueueError(w, err)
		return
	}

	s.writeJSON(w, http.StatusAccepted, map[string]string{
		"status": "accepted",
		"jobId":  jobID,
	})
}

func (s *server) handleRelatedSkills(w http.ResponseWriter, r *http.Request) {
	skill := r.PathValue("skill")

	related, err := s.graph.QueryRelatedSkills(r.Context(), []string{knowledge.SkillNodeID(skill)}, 10)
	if err != nil {
		s.logger.Warn("related skills unavailable", map[string]interface{}{
			"skill": skill,
			"error": err.Error(),
		})
		// Degraded but well-formed: an empty set, flagged.
		s.writeJSON(w, http.StatusOK, map[string]interface{}{
			"skills":   []knowledge.RelatedSkill{},
			"degraded": true,
		})
		return
	}

	s.writeJSON(w, http.StatusOK, map[string]interface{}{
		"skills":   related,
		"degraded": false,
	})
}

type evaluateCandidateRequest struct {
	JobID         string `json:"job_id"`
	ApplicationID string `json:"application_id"`
}

// handleEvaluateCandidate always answers 200 with a well-formed score.
// Failures of the knowledge store degrade the evaluation; failures to
// persist it are logged but do not affect the response.
func (s *server) handleEvaluateCandidate(w http.ResponseWriter, r *http.Request) {
	var req evaluateCandidateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.JobID == "" || req.ApplicationID == "" {
		s.writeError(w, http.StatusBadRequest, "job_id and application_id are required")
		return
	}

	eval := s.evaluator.Execute(r.Context(), req.JobID, req.ApplicationID)

	if err := s.store.Applications.SaveEvaluation(r.Context(), req.ApplicationID, *eval); err != nil {
		s.logger.Warn("evaluation not persisted", map[string]interface{}{
			"applicationId": req.ApplicationID,
			"error":         err.Error(),
		})
	}

	s.writeJSON(w, http.StatusOK, map[string]interface{}{
		"relevance_score":       eval.Score,
		"personalized_feedback": eval.Feedback,
		"degraded":              eval.Degraded,
	})
}

func (s *server) handleRecommendations(w http.ResponseWriter, r *http.Request) {
	userID := r.PathValue("userId")

	output, err := s.resolver.Resolve(r.Context(), userID)
	if err != nil {
		if pipeerrors.IsNotFound(err) {
			s.writeError(w, http.StatusNotFound, "user not found")
			return
		}
		s.logger.Error("recommendation resolve failed", map[string]interface{}{
			"userId": userID,
			"error":  err.Error(),
		})
		s.writeError(w, http.StatusInternalServerError, "recommendation resolution failed")
		return
	}

	s.writeJSON(w, http.StatusOK, output)
}

func (s *server) handleGraphStats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.graph.Stats(r.Context())
	if err != nil {
		s.logger.Error("graph stats unavailable", map[string]interface{}{
			"error": err.Error(),
		})
		s.writeError(w, http.StatusBadGateway, "knowledge store unavailable")
		return
	}
	s.writeJSON(w, http.StatusOK, stats)
}

func (s *server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{
		"status": "healthy",
		"time":   time.Now().Format(time.RFC3339),
	})
}

func (s *server) writeQueueError(w http.ResponseWriter, err error) {
	if pipeerrors.CodeOf(err) == pipeerrors.ErrCodeQueueFull {
		s.writeError(w, http.StatusServiceUnavailable, "enrichment queue is full, try again later")
		return
	}
	s.writeError(w, http.StatusInternalServerError, "could not enqueue enrichment")
}

func (s *server) writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		s.logger.Error("response encode failed", map[string]interface{}{"error": err.Error()})
	}
}

func (s *server) writeError(w http.ResponseWriter, status int, message string) {
	s.writeJSON(w, status, map[string]string{"error": message})
}
