package qdrant

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"exegesis/internal/domain"
)

func TestStorageRoundTrip(t *testing.T) {
	var upserted []map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "k", r.Header.Get("api-key"))
		switch {
		case r.Method == http.MethodPut && r.URL.Path == "/collections/nodes":
			w.WriteHeader(http.StatusConflict)
		case r.Method == http.MethodPut && r.URL.Path == "/collections/nodes/points":
			var body struct {
				Points []map[string]any `json:"points"`
			}
			assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
			upserted = body.Points
			_, _ = w.Write([]byte(`{"result":{"status":"completed"}}`))
		case r.Method == http.MethodPost && r.URL.Path == "/collections/nodes/points/search":
			_, _ = w.Write([]byte(`{"result":[{"id":4,"score":0.9},{"id":1,"score":0.5}]}`))
		case r.Method == http.MethodPost && r.URL.Path == "/collections/nodes/points/count":
			_, _ = w.Write([]byte(`{"result":{"count":2}}`))
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	ctx := context.Background()
	s := NewStorage(Config{URL: srv.URL, APIKey: "k", Collection: "nodes"})
	require.NoError(t, s.Init(ctx, 2))
	require.NoError(t, s.Upsert(ctx, []int64{1, 4}, [][]float64{{1, 0}, {0, 1}}))
	require.Len(t, upserted, 2)
	assert.Equal(t, float64(4), upserted[1]["id"])

	scores, ids, err := s.Search(ctx, []float64{0, 1}, 3)
	require.NoError(t, err)
	assert.Equal(t, []int64{4, 1, domain.NoResult}, ids)
	assert.Equal(t, []float64{0.9, 0.5, 0}, scores)

	n, err := s.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}

func TestStorageReportsServiceErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	s := NewStorage(Config{URL: srv.URL, Collection: "nodes"})
	_, _, err := s.Search(context.Background(), []float64{1}, 1)
	var se *domain.ServiceError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, http.StatusInternalServerError, se.StatusCode)
	assert.Error(t, s.Upsert(context.Background(), []int64{-1}, [][]float64{{1}}))
}

func TestClearRecreatesCollection(t *testing.T) {
	var methods []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		methods = append(methods, r.Method)
		_, _ = w.Write([]byte(`{"result":true}`))
	}))
	defer srv.Close()

	ctx := context.Background()
	s := NewStorage(Config{URL: srv.URL, Collection: "nodes"})
	require.NoError(t, s.Init(ctx, 3))
	require.NoError(t, s.Clear(ctx))
	assert.Equal(t, []string{http.MethodPut, http.MethodDelete, http.MethodPut}, methods)
}
