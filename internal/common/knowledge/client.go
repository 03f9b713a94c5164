// internal/common/knowledge/client.go
package knowledge

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"time"

	"careerhunt-pipeline/internal/common/config"
	pipeerrors "careerhunt-pipeline/internal/common/errors"
	"careerhunt-pipeline/internal/common/logger"

	"github.com/sony/gobreaker"
	"github.com/xeipuuv/gojsonschema"
)

// Client is the long-lived HTTP client for the knowledge-store service.
// It replaces the original design of spawning an ephemeral script per call:
// one persistent connection pool, a fixed request/response schema, and a
// circuit breaker so a dead service degrades enrichment instead of hanging
// every caller for the full timeout.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	breaker    *gobreaker.CircuitBreaker
	schemas    *responseSchemas
	logger     logger.Logger
}

func NewClient(cfg config.KnowledgeStoreConfig, log logger.Logger) (*Client, error) {
	schemas, err := compileSchemas()
	if err != nil {
		return nil, err
	}

	maxFailures := uint32(cfg.BreakerMaxFailures)
	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:    "knowledge-store",
		Timeout: time.Duration(cfg.BreakerCooldown) * time.Millisecond,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= maxFailures
		},
	})

	return &Client{
		baseURL: cfg.BaseURL,
		apiKey:  cfg.APIKey,
		httpClient: &http.Client{
			Timeout: time.Duration(cfg.Timeout) * time.Millisecond,
		},
		breaker: breaker,
		schemas: schemas,
		logger:  log.With(map[string]interface{}{"component": "knowledge-store"}),
	}, nil
}

// UpsertNode sends one idempotent node upsert. Neighbor sets are unions on
// the service side, so repeating a call leaves the store unchanged.
func (c *Client) UpsertNode(ctx context.Context, node Node) error {
	var resp struct {
		Status string `json:"status"`
	}
	if err := c.call(ctx, http.MethodPost, "/graph/nodes", node, c.schemas.upsert, &resp); err != nil {
		return err
	}
	if resp.Status != "ok" {
		return pipeerrors.NewGraphSyncFailedError(node.ID, fmt.Errorf("service status %q", resp.Status))
	}
	return nil
}

// QueryJobsByEntities returns ranked job identities related to the given
// entity names (skill names, application identity, ...).
func (c *Client) QueryJobsByEntities(ctx context.Context, entities []string, limit int) ([]string, error) {
	req := map[string]interface{}{
		"entities": entities,
		"limit":    limit,
	}
	var resp struct {
		JobIDs []string `json:"job_ids"`
	}
	if err := c.call(ctx, http.MethodPost, "/graph/query/jobs", req, c.schemas.jobIDs, &resp); err != nil {
		return nil, err
	}
	return resp.JobIDs, nil
}

// QueryRelatedSkills returns skills neighboring the given entities.
func (c *Client) QueryRelatedSkills(ctx context.Context, entities []string, limit int) ([]RelatedSkill, error) {
	req := map[string]interface{}{
		"entities": entities,
		"limit":    limit,
	}
	var resp struct {
		Skills []RelatedSkill `json:"skills"`
	}
	if err := c.call(ctx, http.MethodPost, "/graph/query/skills", req, c.schemas.relatedSkills, &resp); err != nil {
		return nil, err
	}
	return resp.Skills, nil
}

// RecommendationsFor returns job identities for an application, in rank order.
func (c *Client) RecommendationsFor(ctx context.Context, applicationID string) ([]string, error) {
	path := "/rag/recommendations/" + url.PathEscape(applicationID)
	var resp struct {
		JobIDs []string `json:"job_ids"`
	}
	if err := c.call(ctx, http.MethodGet, path, nil, c.schemas.jobIDs, &resp); err != nil {
		return nil, err
	}
	return resp.JobIDs, nil
}

// EvaluateCandidate requests a relevance score and feedback for one pair.
func (c *Client) EvaluateCandidate(ctx context.Context, jobID, applicationID string) (*CandidateEvaluation, error) {
	req := map[string]interface{}{
		"job_id":         jobID,
		"application_id": applicationID,
	}
	var resp CandidateEvaluation
	if err := c.call(ctx, http.MethodPost, "/rag/evaluate-candidate", req, c.schemas.evaluation, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Stats returns graph size counters.
func (c *Client) Stats(ctx context.Context) (*GraphStats, error) {
	var resp GraphStats
	if err := c.call(ctx, http.MethodGet, "/graph/stats", nil, c.schemas.stats, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// call performs one request through the circuit breaker, validates the
// response body against its schema, and decodes into out.
func (c *Client) call(ctx context.Context, method, path string, payload interface{}, schema *gojsonschema.Schema, out interface{}) error {
	operation := method + " " + path

	body, err := c.breaker.Execute(func() (interface{}, error) {
		return c.doRequest(ctx, method, path, payload, operation)
	})
	if err != nil {
		if err == gobreaker.ErrOpenState || err == gobreaker.ErrTooManyRequests {
			return pipeerrors.NewCircuitOpenError(operation)
		}
		return err
	}

	raw := body.([]byte)
	if err := validateBody(schema, raw); err != nil {
		return pipeerrors.NewMalformedResponseError(operation, err.Error())
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return pipeerrors.NewMalformedResponseError(operation, err.Error())
	}
	return nil
}

func (c *Client) doRequest(ctx context.Context, method, path string, payload interface{}, operation string) ([]byte, error) {
	var reqBody io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return nil, pipeerrors.NewMalformedResponseError(operation, fmt.Sprintf("marshal request: %v", err))
		}
		reqBody = bytes.NewBuffer(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return nil, pipeerrors.NewExternalUnavailableError(operation, err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("X-API-Key", c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if isTimeout(ctx, err) {
			return nil, pipeerrors.NewExternalTimeoutError(operation)
		}
		return nil, pipeerrors.NewExternalUnavailableError(operation, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		if isTimeout(ctx, err) {
			return nil, pipeerrors.NewExternalTimeoutError(operation)
		}
		return nil, pipeerrors.NewExternalUnavailableError(operation, err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, pipeerrors.NewExternalUnavailableError(operation, fmt.Errorf("status %d", resp.StatusCode))
	}

	return raw, nil
}

func isTimeout(ctx context.Context, err error) bool {
	if ctx.Err() == context.DeadlineExceeded || errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var ne net.Error
	return errors.As(err, &ne) && ne.Timeout()
}
