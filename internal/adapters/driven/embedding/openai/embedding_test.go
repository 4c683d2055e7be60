package openai

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arkiv-labs/arkiv/internal/core/domain"
)

func testConfig(url string) Config {
	return Config{
		APIKey:     "test-key",
		BaseURL:    url,
		Dimensions: 3,
		RateLimit:  RateLimitConfig{RequestsPerSecond: 1000, BurstSize: 1000},
		Retry: RetryConfig{
			MaxAttempts: 3,
			BaseDelay:   time.Millisecond,
			MaxDelay:    5 * time.Millisecond,
			Multiplier:  2.0,
		},
	}
}

func embeddingsHandler(t *testing.T, fn func(w http.ResponseWriter, req embeddingRequest)) http.HandlerFunc {
	t.Helper()
	return func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/embeddings", r.URL.Path)
		require.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))

		var req embeddingRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		fn(w, req)
	}
}

func respondEmbeddings(w http.ResponseWriter, n int) {
	resp := map[string]any{"data": []map[string]any{}}
	data := make([]map[string]any, n)
	// Reverse order exercises index-based reassembly.
	for i := n - 1; i >= 0; i-- {
		data[n-1-i] = map[string]any{
			"embedding": []float64{float64(i), 0.5, 1.5},
			"index":     i,
		}
	}
	resp["data"] = data
	_ = json.NewEncoder(w).Encode(resp)
}

func TestNew(t *testing.T) {
	t.Run("requires api key", func(t *testing.T) {
		_, err := New(Config{})
		assert.ErrorIs(t, err, domain.ErrInvalidConfig)
	})

	t.Run("defaults applied", func(t *testing.T) {
		svc, err := New(Config{APIKey: "k"})
		require.NoError(t, err)
		assert.Equal(t, DefaultModel, svc.ModelName())
		assert.Equal(t, 1536, svc.Dimensions())
	})
}

func TestEmbedBatch(t *testing.T) {
	t.Run("order preserved", func(t *testing.T) {
		srv := httptest.NewServer(embeddingsHandler(t, func(w http.ResponseWriter, req embeddingRequest) {
			respondEmbeddings(w, len(req.Input))
		}))
		defer srv.Close()

		svc, err := New(testConfig(srv.URL))
		require.NoError(t, err)

		embeddings, err := svc.EmbedBatch(context.Background(), []string{"a", "b", "c"})
		require.NoError(t, err)
		require.Len(t, embeddings, 3)
		for i, vec := range embeddings {
			assert.Equal(t, float32(i), vec[0])
		}
	})

	t.Run("empty input", func(t *testing.T) {
		svc, err := New(testConfig("http://unused"))
		require.NoError(t, err)
		embeddings, err := svc.EmbedBatch(context.Background(), nil)
		require.NoError(t, err)
		assert.Nil(t, embeddings)
	})

	t.Run("throttle retried then succeeds", func(t *testing.T) {
		var calls atomic.Int32
		srv := httptest.NewServer(embeddingsHandler(t, func(w http.ResponseWriter, req embeddingRequest) {
			if calls.Add(1) == 1 {
				w.WriteHeader(http.StatusTooManyRequests)
				return
			}
			respondEmbeddings(w, len(req.Input))
		}))
		defer srv.Close()

		svc, err := New(testConfig(srv.URL))
		require.NoError(t, err)

		embeddings, err := svc.EmbedBatch(context.Background(), []string{"x"})
		require.NoError(t, err)
		require.Len(t, embeddings, 1)
		assert.Equal(t, int32(2), calls.Load())
	})

	t.Run("exhausted retries surface rate limit", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusTooManyRequests)
		}))
		defer srv.Close()

		svc, err := New(testConfig(srv.URL))
		require.NoError(t, err)

		_, err = svc.EmbedBatch(context.Background(), []string{"x"})
		assert.ErrorIs(t, err, domain.ErrRateLimited)
	})

	t.Run("permanent api error not retried", func(t *testing.T) {
		var calls atomic.Int32
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			calls.Add(1)
			w.WriteHeader(http.StatusBadRequest)
			_ = json.NewEncoder(w).Encode(map[string]any{
				"error": map[string]any{"message": "invalid input", "type": "invalid_request_error"},
			})
		}))
		defer srv.Close()

		svc, err := New(testConfig(srv.URL))
		require.NoError(t, err)

		_, err = svc.EmbedBatch(context.Background(), []string{"x"})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "invalid input")
		assert.Equal(t, int32(1), calls.Load())
	})

	t.Run("server errors retried", func(t *testing.T) {
		var calls atomic.Int32
		srv := httptest.NewServer(embeddingsHandler(t, func(w http.ResponseWriter, req embeddingRequest) {
			if calls.Add(1) < 3 {
				w.WriteHeader(http.StatusBadGateway)
				return
			}
			respondEmbeddings(w, len(req.Input))
		}))
		defer srv.Close()

		svc, err := New(testConfig(srv.URL))
		require.NoError(t, err)

		_, err = svc.EmbedBatch(context.Background(), []string{"x"})
		require.NoError(t, err)
		assert.Equal(t, int32(3), calls.Load())
	})
}
