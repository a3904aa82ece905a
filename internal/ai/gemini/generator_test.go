package gemini

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sghtao/companion-camp-backend/internal/ai"
)

func setupTestServer(t *testing.T, handler http.HandlerFunc) *Generator {
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	gen, err := NewGenerator(context.Background(), "test-key", "test-model", server.URL)
	require.NoError(t, err)
	return gen
}

func TestGenerator_Generate(t *testing.T) {
	gen := setupTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Contains(t, r.URL.Path, "test-model:generateContent")

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"candidates":[{"content":{"role":"model","parts":[{"text":"{\"quality_score\": 64}"}]},"finishReason":"STOP"}]}`))
	})

	out, err := gen.Generate(context.Background(), "be strict", "score this")
	require.NoError(t, err)
	assert.Equal(t, `{"quality_score": 64}`, out)
}

func TestGenerator_Generate_RateLimited(t *testing.T) {
	gen := setupTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"error":{"code":429,"message":"Resource has been exhausted","status":"RESOURCE_EXHAUSTED"}}`))
	})

	_, err := gen.Generate(context.Background(), "sys", "prompt")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ai.ErrRateLimited))
}

func TestGenerator_Generate_EmptyResponse(t *testing.T) {
	gen := setupTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"candidates":[]}`))
	})

	_, err := gen.Generate(context.Background(), "sys", "prompt")
	require.Error(t, err)
	assert.False(t, errors.Is(err, ai.ErrRateLimited))
}

func TestNewGenerator_RequiresKey(t *testing.T) {
	_, err := NewGenerator(context.Background(), "", "", "")
	assert.Error(t, err)
}

func TestGenerator_Live(t *testing.T) {
	apiKey := os.Getenv("GEMINI_API_KEY")
	if apiKey == "" || testing.Short() {
		t.Skip("GEMINI_API_KEY not set")
	}

	gen, err := NewGenerator(context.Background(), apiKey, "", "")
	require.NoError(t, err)

	out, err := gen.Generate(context.Background(), "Answer with JSON only.", `Return {"ok": true}`)
	require.NoError(t, err)
	assert.Contains(t, out, "ok")
}
