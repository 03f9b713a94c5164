// internal/common/genai/extractor_test.go
package genai

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"careerhunt-pipeline/internal/common/config"
	"careerhunt-pipeline/internal/common/logger"
)

func newTestClient(t *testing.T, baseURL string, timeoutMs int) *Client {
	return NewClient(config.ExtractionConfig{
		BaseURL: baseURL,
		APIKey:  "test-key",
		Timeout: timeoutMs,
	}, logger.NewTestLogger(t))
}

func TestExtract_Success(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/ai/extract-skills", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))

		var req map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "ten years of Python", req["text"])

		json.NewEncoder(w).Encode(map[string]interface{}{
			"skills": []map[string]interface{}{
				{"name": "Python", "confidence": 0.95},
				{"name": "SQL", "confidence": 0.7},
			},
		})
	}))
	defer server.Close()

	client := newTestClient(t, server.URL, 5000)

	skills, err := client.Extract(context.Background(), "ten years of Python")
	require.NoError(t, err)

	require.Len(t, skills, 2)
	assert.Equal(t, "Python", skills[0].Name)
	assert.Equal(t, 0.95, skills[0].Confidence)
}

func TestExtract_EmptyText(t *testing.T) {
	client := newTestClient(t, "http://unused", 5000)

	skills, err := client.Extract(context.Background(), "")
	require.NoError(t, err)
	assert.Nil(t, skills)
}

func TestExtract_ServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	client := newTestClient(t, server.URL, 5000)

	_, err := client.Extract(context.Background(), "some text")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrExtractionFailed)
}

func TestExtract_Timeout(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(300 * time.Millisecond)
	}))
	defer server.Close()

	client := newTestClient(t, server.URL, 50)

	_, err := client.Extract(context.Background(), "some text")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrExtractionTimeout)
}

func TestExtract_DecodeError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("not json"))
	}))
	defer server.Close()

	client := newTestClient(t, server.URL, 5000)

	_, err := client.Extract(context.Background(), "some text")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrExtractionFailed)
}
