package xapi

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"sync/atomic"
	"testing"

	"github.com/go-resty/resty/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sghtao/companion-camp-backend/internal/data"
	"github.com/sghtao/companion-camp-backend/internal/models"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func setupTestServer(t *testing.T, handler http.HandlerFunc) (*httptest.Server, *Adapter) {
	server := httptest.NewServer(handler)

	adapter := NewAdapter("test-token", testLogger())
	adapter.baseURL = server.URL
	adapter.httpClient = resty.NewWithClient(server.Client())

	return server, adapter
}

func writeJSON(t *testing.T, w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	require.NoError(t, json.NewEncoder(w).Encode(v))
}

func timelinePayload(n int) map[string]interface{} {
	tweets := make([]map[string]interface{}, 0, n)
	for i := 0; i < n; i++ {
		tweets = append(tweets, map[string]interface{}{
			"id":         fmt.Sprintf("t%d", i),
			"text":       fmt.Sprintf("post %d #ad", i),
			"created_at": "2024-01-10T10:00:00Z",
			"public_metrics": map[string]int{
				"like_count":    100 * (i + 1),
				"retweet_count": 10 + 20*i,
				"reply_count":   5 + 10*i,
			},
		})
	}
	return map[string]interface{}{"data": tweets}
}

func petHandler(t *testing.T) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer test-token", r.Header.Get("Authorization"))
		switch r.URL.Path {
		case "/2/users/by/username/demo_pet":
			writeJSON(t, w, map[string]interface{}{
				"data": map[string]interface{}{
					"id":             "42",
					"username":       "demo_pet",
					"public_metrics": map[string]int{"followers_count": 10000},
				},
			})
		case "/2/users/42/tweets":
			writeJSON(t, w, timelinePayload(2))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}
}

func TestAdapter_Name(t *testing.T) {
	assert.Equal(t, "x", NewAdapter("", testLogger()).Name())
}

func TestAdapter_GetAccountStats(t *testing.T) {
	server, adapter := setupTestServer(t, petHandler(t))
	defer server.Close()

	stats, err := adapter.GetAccountStats(context.Background(), "@demo_pet")
	require.NoError(t, err)

	assert.Equal(t, "demo_pet", stats.Handle)
	assert.Equal(t, 10000, stats.FollowerCount)
	assert.Equal(t, 150, stats.AvgLikes)
	assert.Equal(t, 20, stats.AvgRetweets)
	assert.Equal(t, 10, stats.AvgReplies)
	assert.InDelta(t, 1.8, stats.EngagementRate, 1e-9)
	assert.InDelta(t, 1.4, stats.ReachScore, 1e-9)
}

func TestAdapter_GetRecentPosts(t *testing.T) {
	server, adapter := setupTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/2/users/by/username/demo_pet":
			writeJSON(t, w, map[string]interface{}{
				"data": map[string]interface{}{"id": "42", "username": "demo_pet"},
			})
		case "/2/users/42/tweets":
			assert.Equal(t, "5", r.URL.Query().Get("max_results"))
			writeJSON(t, w, timelinePayload(5))
		}
	})
	defer server.Close()

	posts, err := adapter.GetRecentPosts(context.Background(), "demo_pet", 3)
	require.NoError(t, err)
	require.Len(t, posts, 3)

	assert.Equal(t, "t0", posts[0].ID)
	assert.Equal(t, "post 0 #ad", posts[0].Text)
	assert.Equal(t, 100, posts[0].Likes)
	assert.False(t, posts[0].CreatedAt.IsZero())
}

func TestAdapter_GetAccountSnapshot(t *testing.T) {
	var lookups, timelines atomic.Int32
	server, adapter := setupTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/2/users/by/username/demo_pet":
			lookups.Add(1)
			writeJSON(t, w, map[string]interface{}{
				"data": map[string]interface{}{
					"id":             "42",
					"username":       "demo_pet",
					"public_metrics": map[string]int{"followers_count": 10000},
				},
			})
		case "/2/users/42/tweets":
			timelines.Add(1)
			assert.Equal(t, "20", r.URL.Query().Get("max_results"))
			writeJSON(t, w, timelinePayload(20))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	})
	defer server.Close()

	stats, posts, err := adapter.GetAccountSnapshot(context.Background(), "@demo_pet", 3)
	require.NoError(t, err)

	// one lookup and one timeline page for both stats and posts
	assert.Equal(t, int32(1), lookups.Load())
	assert.Equal(t, int32(1), timelines.Load())

	require.Len(t, posts, 3)
	assert.Equal(t, "t0", posts[0].ID)

	// stats cover the full sample, not only the returned posts
	assert.Equal(t, "demo_pet", stats.Handle)
	assert.Equal(t, 10000, stats.FollowerCount)
	assert.Equal(t, 1050, stats.AvgLikes)
}

func TestAdapter_GetAccountSnapshot_NotFound(t *testing.T) {
	server, adapter := setupTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})
	defer server.Close()

	stats, posts, err := adapter.GetAccountSnapshot(context.Background(), "ghost", 20)
	assert.ErrorIs(t, err, data.ErrAccountNotFound)
	assert.Nil(t, stats)
	assert.Nil(t, posts)
}

func TestAdapter_ErrorHandling(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
		wantErr error
	}{
		{
			name: "unknown user reported in errors array",
			handler: func(w http.ResponseWriter, r *http.Request) {
				writeJSON(t, w, map[string]interface{}{
					"errors": []map[string]string{{"title": "Not Found Error"}},
				})
			},
			wantErr: data.ErrAccountNotFound,
		},
		{
			name: "http 404",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusNotFound)
			},
			wantErr: data.ErrAccountNotFound,
		},
		{
			name: "http 429 rate limit",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusTooManyRequests)
			},
			wantErr: data.ErrProviderUnavailable,
		},
		{
			name: "invalid json",
			handler: func(w http.ResponseWriter, r *http.Request) {
				_, _ = w.Write([]byte("invalid json"))
			},
			wantErr: data.ErrProviderUnavailable,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server, adapter := setupTestServer(t, tt.handler)
			defer server.Close()

			_, err := adapter.GetAccountStats(context.Background(), "ghost")
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestAdapter_TransportFailure(t *testing.T) {
	server, adapter := setupTestServer(t, petHandler(t))
	server.Close()

	_, err := adapter.GetRecentPosts(context.Background(), "demo_pet", 5)
	assert.ErrorIs(t, err, data.ErrProviderUnavailable)
}

func TestComputeStats(t *testing.T) {
	tests := []struct {
		name      string
		followers int
		posts     []models.Post
		wantRate  float64
		wantReach float64
	}{
		{
			name:      "no posts",
			followers: 500,
		},
		{
			name:      "no followers",
			followers: 0,
			posts:     []models.Post{{Likes: 10}},
			wantRate:  0,
			wantReach: 0,
		},
		{
			name:      "reach capped at ten",
			followers: 100000,
			posts:     []models.Post{{Likes: 50000, Reposts: 10000, Replies: 5000}},
			wantRate:  65,
			wantReach: 10,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			stats := computeStats("pet", tt.followers, tt.posts)
			assert.Equal(t, tt.followers, stats.FollowerCount)
			assert.InDelta(t, tt.wantRate, stats.EngagementRate, 1e-9)
			assert.InDelta(t, tt.wantReach, stats.ReachScore, 1e-9)
			assert.GreaterOrEqual(t, stats.ReachScore, 0.0)
			assert.LessOrEqual(t, stats.ReachScore, 10.0)
		})
	}
}

func TestAdapterIntegration(t *testing.T) {
	token := os.Getenv("X_BEARER_TOKEN")
	if testing.Short() || token == "" {
		t.Skip("Skipping integration test without X_BEARER_TOKEN")
	}

	adapter := NewAdapter(token, testLogger())
	stats, err := adapter.GetAccountStats(context.Background(), "XDevelopers")
	require.NoError(t, err)
	t.Logf("stats: %+v", stats)
}
