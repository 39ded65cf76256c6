package openai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"net/http"
	"os"
	"strconv"
	"sync"
	"time"

	"exegesis/internal/domain"
)

// ErrNoEmbedding is returned when a response carries no usable vectors.
var ErrNoEmbedding = errors.New("no embedding returned")

// Client is an OpenAI-compatible embeddings client. It also understands the
// Ollama response shapes so a local server can stand in for the hosted API.
type Client struct {
	baseURL    string
	apiKey     string
	model      string
	batchSize  int
	client     *http.Client
	maxRetries int

	mu        sync.RWMutex
	dimension int
}

// Config configures the OpenAI-compatible embeddings client.
type Config struct {
	BaseURL    string
	APIKeyEnv  string
	Model      string
	Timeout    time.Duration
	BatchSize  int
	MaxRetries int
}

// NewClient creates a new embeddings client using the provided configuration.
func NewClient(cfg Config) (*Client, error) {
	key := os.Getenv(cfg.APIKeyEnv)
	if key == "" {
		return nil, fmt.Errorf("%w: env %s is empty", domain.ErrMissingCredentials, cfg.APIKeyEnv)
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://api.openai.com/v1"
	}
	if cfg.Model == "" {
		cfg.Model = "text-embedding-3-small"
	}
	t := cfg.Timeout
	if t == 0 {
		t = 30 * time.Second
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 32
	}
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = 5
	}
	return &Client{
		baseURL:    cfg.BaseURL,
		apiKey:     key,
		model:      cfg.Model,
		batchSize:  cfg.BatchSize,
		client:     &http.Client{Timeout: t},
		maxRetries: cfg.MaxRetries,
	}, nil
}

// Name returns the identifier of this embedder implementation.
func (c *Client) Name() string { return "openai" }

// Prepare is not required for remote embedding. Dimension is set on first encode.
func (c *Client) Prepare(corpus []string) error { return nil }

// Dimension returns the dimensionality of the produced embedding vectors.
func (c *Client) Dimension() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.dimension
}

// Encode embeds texts in batches, preserving order.
func (c *Client) Encode(ctx context.Context, texts []string, normalize bool) ([][]float64, error) {
	out := make([][]float64, 0, len(texts))
	for start := 0; start < len(texts); start += c.batchSize {
		end := min(start+c.batchSize, len(texts))
		batch, err := c.embedBatch(ctx, texts[start:end])
		if err != nil {
			return nil, err
		}
		if len(batch) != end-start {
			return nil, fmt.Errorf("embedding batch size mismatch: sent %d, got %d", end-start, len(batch))
		}
		out = append(out, batch...)
	}
	if len(out) > 0 {
		c.mu.Lock()
		if c.dimension == 0 {
			c.dimension = len(out[0])
		}
		c.mu.Unlock()
	}
	if normalize {
		for _, v := range out {
			l2Normalize(v)
		}
	}
	return out, nil
}

func (c *Client) embedBatch(ctx context.Context, texts []string) ([][]float64, error) {
	type reqBody struct {
		Input  any    `json:"input,omitempty"`
		Prompt string `json:"prompt,omitempty"`
		Model  string `json:"model"`
	}
	body := reqBody{Input: texts, Model: c.model}
	if len(texts) == 1 {
		// Ollama's legacy endpoint only reads "prompt".
		body.Prompt = texts[0]
	}
	data, err := json.Marshal(body)
	if err != nil {
		return nil, err
	}
	url := fmt.Sprintf("%s/embeddings", c.baseURL)

	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(data))
		if err != nil {
			return nil, err
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Authorization", "Bearer "+c.apiKey)

		resp, err := c.client.Do(req)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			if attempt < c.maxRetries {
				if err := sleep(ctx, retryDelay(attempt)); err != nil {
					return nil, err
				}
				continue
			}
			return nil, err
		}

		if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
			_ = resp.Body.Close()
			if attempt >= c.maxRetries {
				return nil, &domain.ServiceError{StatusCode: resp.StatusCode, Message: "embeddings failed"}
			}
			delay := retryDelay(attempt)
			// Respect Retry-After if provided
			if secs, err := strconv.Atoi(resp.Header.Get("Retry-After")); err == nil && secs >= 0 {
				delay = time.Duration(secs) * time.Second
			}
			if err := sleep(ctx, delay); err != nil {
				return nil, err
			}
			continue
		}

		if resp.StatusCode >= 300 {
			_ = resp.Body.Close()
			return nil, &domain.ServiceError{StatusCode: resp.StatusCode, Message: "embeddings failed"}
		}

		payload, err := io.ReadAll(resp.Body)
		_ = resp.Body.Close()
		if err == nil {
			if vecs, ok := decodeEmbeddings(payload); ok {
				return vecs, nil
			}
		}
		if attempt < c.maxRetries {
			if err := sleep(ctx, retryDelay(attempt)); err != nil {
				return nil, err
			}
			continue
		}
		if err != nil {
			return nil, err
		}
		return nil, ErrNoEmbedding
	}
	return nil, ErrNoEmbedding
}

// decodeEmbeddings accepts the OpenAI shape {"data":[{"embedding":[...],"index":n}]}
// and the Ollama shapes {"embeddings":[[...]]} and {"embedding":[...]}.
func decodeEmbeddings(payload []byte) ([][]float64, bool) {
	var openaiOut struct {
		Data []struct {
			Index     int       `json:"index"`
			Embedding []float64 `json:"embedding"`
		} `json:"data"`
	}
	if err := json.Unmarshal(payload, &openaiOut); err == nil && len(openaiOut.Data) > 0 {
		vecs := make([][]float64, len(openaiOut.Data))
		for i, d := range openaiOut.Data {
			pos := d.Index
			if pos < 0 || pos >= len(vecs) || vecs[pos] != nil {
				pos = i
			}
			if len(d.Embedding) == 0 {
				return nil, false
			}
			vecs[pos] = d.Embedding
		}
		for _, v := range vecs {
			if v == nil {
				return nil, false
			}
		}
		return vecs, true
	}

	var batchOut struct {
		Embeddings [][]float64 `json:"embeddings"`
	}
	if err := json.Unmarshal(payload, &batchOut); err == nil && len(batchOut.Embeddings) > 0 {
		return batchOut.Embeddings, true
	}

	var single struct {
		Embedding []float64 `json:"embedding"`
	}
	if err := json.Unmarshal(payload, &single); err == nil && len(single.Embedding) > 0 {
		return [][]float64{single.Embedding}, true
	}
	return nil, false
}

func l2Normalize(vec []float64) {
	norm := 0.0
	for _, v := range vec {
		norm += v * v
	}
	norm = math.Sqrt(norm)
	if norm == 0 {
		return
	}
	for i := range vec {
		vec[i] /= norm
	}
}

func sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

func retryDelay(attempt int) time.Duration {
	if attempt < 0 {
		attempt = 0
	}
	base := 200 * time.Millisecond
	// exponential backoff capped at 5s
	d := base << attempt
	if d > 5*time.Second {
		d = 5 * time.Second
	}
	return d
}
