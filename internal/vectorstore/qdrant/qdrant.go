package qdrant

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"exegesis/internal/domain"
)

// Storage is a minimal REST client to Qdrant.
// It assumes cosine distance and creates the collection if missing.
type Storage struct {
	url        string
	apiKey     string
	collection string
	dimension  int
	client     *http.Client
}

var _ domain.VectorIndex = (*Storage)(nil)

type Config struct {
	URL        string
	APIKey     string
	Collection string
	Timeout    time.Duration
}

func NewStorage(cfg Config) *Storage {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 15 * time.Second
	}
	return &Storage{
		url:        cfg.URL,
		apiKey:     cfg.APIKey,
		collection: cfg.Collection,
		client:     &http.Client{Timeout: timeout},
	}
}

func (s *Storage) Init(ctx context.Context, dimension int) error {
	if dimension <= 0 {
		return errors.New("invalid dimension")
	}
	s.dimension = dimension
	return s.createCollection(ctx)
}

func (s *Storage) createCollection(ctx context.Context) error {
	body := map[string]any{
		"vectors": map[string]any{
			"size":     s.dimension,
			"distance": "Cosine",
		},
	}
	err := s.do(ctx, http.MethodPut, s.collectionURL(""), body, nil)
	var se *domain.ServiceError
	if errors.As(err, &se) && se.StatusCode == http.StatusConflict {
		// collection already exists
		return nil
	}
	return err
}

// Upsert stores vectors under their integer ids. Qdrant accepts unsigned
// integer point ids, so negative ids are rejected.
func (s *Storage) Upsert(ctx context.Context, ids []int64, vectors [][]float64) error {
	if len(ids) != len(vectors) {
		return errors.New("ids and vectors length mismatch")
	}
	points := make([]map[string]any, len(ids))
	for i := range ids {
		if ids[i] < 0 {
			return fmt.Errorf("invalid vector id %d", ids[i])
		}
		points[i] = map[string]any{
			"id":     uint64(ids[i]),
			"vector": vectors[i],
		}
	}
	body := map[string]any{"points": points}
	return s.do(ctx, http.MethodPut, s.collectionURL("/points?wait=true"), body, nil)
}

// Search pads the result to k slots with domain.NoResult.
func (s *Storage) Search(ctx context.Context, vector []float64, k int) ([]float64, []int64, error) {
	if k <= 0 {
		return nil, nil, nil
	}
	req := map[string]any{
		"vector":       vector,
		"limit":        k,
		"with_payload": false,
	}
	var resp struct {
		Result []struct {
			ID    uint64  `json:"id"`
			Score float64 `json:"score"`
		} `json:"result"`
	}
	if err := s.do(ctx, http.MethodPost, s.collectionURL("/points/search"), req, &resp); err != nil {
		return nil, nil, err
	}
	scores := make([]float64, k)
	ids := make([]int64, k)
	for i := range ids {
		ids[i] = domain.NoResult
	}
	for i, r := range resp.Result {
		if i >= k {
			break
		}
		scores[i] = r.Score
		ids[i] = int64(r.ID)
	}
	return scores, ids, nil
}

func (s *Storage) Count(ctx context.Context) (int, error) {
	var resp struct {
		Result struct {
			Count int `json:"count"`
		} `json:"result"`
	}
	if err := s.do(ctx, http.MethodPost, s.collectionURL("/points/count"), map[string]any{"exact": true}, &resp); err != nil {
		return 0, err
	}
	return resp.Result.Count, nil
}

// Clear drops the collection and, once initialized, recreates it empty.
func (s *Storage) Clear(ctx context.Context) error {
	err := s.do(ctx, http.MethodDelete, s.collectionURL(""), nil, nil)
	var se *domain.ServiceError
	if err != nil && !(errors.As(err, &se) && se.StatusCode == http.StatusNotFound) {
		return err
	}
	if s.dimension == 0 {
		return nil
	}
	return s.createCollection(ctx)
}

func (s *Storage) collectionURL(suffix string) string {
	return fmt.Sprintf("%s/collections/%s%s", s.url, s.collection, suffix)
}

func (s *Storage) do(ctx context.Context, method, url string, body, out any) error {
	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}
	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if s.apiKey != "" {
		req.Header.Set("api-key", s.apiKey)
	}
	resp, err := s.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return &domain.ServiceError{StatusCode: resp.StatusCode, Message: fmt.Sprintf("qdrant %s %s failed", method, url)}
	}
	if out != nil {
		return json.NewDecoder(resp.Body).Decode(out)
	}
	return nil
}
