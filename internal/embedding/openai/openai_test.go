package openai

import (
	"context"
	"encoding/json"
	"math"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"exegesis/internal/domain"
)

func newTestClient(t *testing.T, url string, batch int) *Client {
	t.Helper()
	t.Setenv("EXEGESIS_TEST_EMBED_KEY", "secret")
	c, err := NewClient(Config{BaseURL: url, APIKeyEnv: "EXEGESIS_TEST_EMBED_KEY", BatchSize: batch, MaxRetries: 1})
	require.NoError(t, err)
	return c
}

func TestNewClientRequiresKey(t *testing.T) {
	t.Setenv("EXEGESIS_TEST_EMBED_KEY", "")
	_, err := NewClient(Config{APIKeyEnv: "EXEGESIS_TEST_EMBED_KEY"})
	assert.ErrorIs(t, err, domain.ErrMissingCredentials)
}

func TestEncodeBatchesAndOrders(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		assert.Equal(t, "/embeddings", r.URL.Path)
		assert.Equal(t, "Bearer secret", r.Header.Get("Authorization"))
		var body struct {
			Input []string `json:"input"`
		}
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))

		type item struct {
			Index     int       `json:"index"`
			Embedding []float64 `json:"embedding"`
		}
		// reply out of order to check index handling
		data := make([]item, 0, len(body.Input))
		for i := len(body.Input) - 1; i >= 0; i-- {
			data = append(data, item{Index: i, Embedding: []float64{float64(len(body.Input[i])), 0}})
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"data": data})
	}))
	defer srv.Close()

	c := newTestClient(t, srv.URL, 2)
	vecs, err := c.Encode(context.Background(), []string{"a", "bb", "ccc"}, false)
	require.NoError(t, err)
	assert.Equal(t, int32(2), calls.Load())
	assert.Equal(t, [][]float64{{1, 0}, {2, 0}, {3, 0}}, vecs)
	assert.Equal(t, 2, c.Dimension())
}

func TestEncodeOllamaShapeAndNormalize(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"embedding":[3,4]}`))
	}))
	defer srv.Close()

	vecs, err := newTestClient(t, srv.URL, 8).Encode(context.Background(), []string{"dharma"}, true)
	require.NoError(t, err)
	require.Len(t, vecs, 1)
	assert.InDelta(t, 0.6, vecs[0][0], 1e-9)
	assert.InDelta(t, 0.8, vecs[0][1], 1e-9)
	assert.InDelta(t, 1.0, math.Hypot(vecs[0][0], vecs[0][1]), 1e-9)
}

func TestEncodeRetriesOnServerError(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.Header().Set("Retry-After", "0")
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		_, _ = w.Write([]byte(`{"embeddings":[[1,0]]}`))
	}))
	defer srv.Close()

	vecs, err := newTestClient(t, srv.URL, 8).Encode(context.Background(), []string{"x"}, false)
	require.NoError(t, err)
	assert.Equal(t, [][]float64{{1, 0}}, vecs)
	assert.Equal(t, int32(2), calls.Load())
}

func TestEncodeClientErrorIsNotRetried(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	_, err := newTestClient(t, srv.URL, 8).Encode(context.Background(), []string{"x"}, false)
	var se *domain.ServiceError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, http.StatusUnauthorized, se.StatusCode)
	assert.Equal(t, int32(1), calls.Load())
}
