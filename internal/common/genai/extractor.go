// internal/common/genai/extractor.go
package genai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"careerhunt-pipeline/internal/common/config"
	"careerhunt-pipeline/internal/common/logger"
)

var (
	ErrExtractionFailed  = errors.New("EXTRACTION_FAILED")
	ErrExtractionTimeout = errors.New("EXTRACTION_TIMEOUT")
)

// SkillEntry is one extracted skill with the model's confidence.
type SkillEntry struct {
	Name       string  `json:"name"`
	Confidence float64 `json:"confidence"`
}

// Extractor is the black-box extraction function: text in, skills out.
// Treated as pure and side-effect-free by the pipeline.
type Extractor interface {
	Extract(ctx context.Context, text string) ([]SkillEntry, error)
}

// Client calls the GenAI extraction endpoint.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	logger     logger.Logger
}

func NewClient(cfg config.ExtractionConfig, log logger.Logger) *Client {
	return &Client{
		baseURL: cfg.BaseURL,
		apiKey:  cfg.APIKey,
		httpClient: &http.Client{
			Timeout: time.Duration(cfg.Timeout) * time.Millisecond,
		},
		logger: log.With(map[string]interface{}{"component": "skill-extractor"}),
	}
}

func (c *Client) Extract(ctx context.Context, text string) ([]SkillEntry, error) {
	if text == "" {
		return nil, nil
	}

	body, _ := json.Marshal(map[string]interface{}{
		"text": text,
	})
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/ai/extract-skills", bytes.NewBuffer(body))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrExtractionFailed, err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if isTimeout(ctx, err) {
			return nil, ErrExtractionTimeout
		}
		return nil, fmt.Errorf("%w: %v", ErrExtractionFailed, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: status %d", ErrExtractionFailed, resp.StatusCode)
	}

	var apiResponse struct {
		Skills []SkillEntry `json:"skills"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&apiResponse); err != nil {
		return nil, fmt.Errorf("%w: decode error: %v", ErrExtractionFailed, err)
	}

	c.logger.Debug("skills extracted", map[string]interface{}{
		"count": len(apiResponse.Skills),
	})

	return apiResponse.Skills, nil
}

func isTimeout(ctx context.Context, err error) bool {
	if ctx.Err() == context.DeadlineExceeded || errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var ne net.Error
	return errors.As(err, &ne) && ne.Timeout()
}
