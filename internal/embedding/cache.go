// Package embedding holds helpers shared by the embedder implementations.
package embedding

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"fmt"

	lru "github.com/hashicorp/golang-lru/v2"

	"exegesis/internal/domain"
)

// Cached memoizes Encode results of an underlying embedder in an LRU keyed by
// text and normalization flag. Prepare purges the cache since a new corpus
// changes every vector.
type Cached struct {
	inner domain.Embedder
	cache *lru.Cache[string, []float64]
}

var _ domain.Embedder = (*Cached)(nil)

// NewCached wraps inner with an LRU of the given size.
func NewCached(inner domain.Embedder, size int) (*Cached, error) {
	if size <= 0 {
		size = 4096
	}
	c, err := lru.New[string, []float64](size)
	if err != nil {
		return nil, fmt.Errorf("create embedding cache: %w", err)
	}
	return &Cached{inner: inner, cache: c}, nil
}

func (c *Cached) Name() string   { return c.inner.Name() }
func (c *Cached) Dimension() int { return c.inner.Dimension() }

func (c *Cached) Prepare(corpus []string) error {
	c.cache.Purge()
	return c.inner.Prepare(corpus)
}

// Encode serves cached vectors and forwards only the misses, in one call.
func (c *Cached) Encode(ctx context.Context, texts []string, normalize bool) ([][]float64, error) {
	out := make([][]float64, len(texts))
	var missIdx []int
	var missTexts []string
	for i, t := range texts {
		if v, ok := c.cache.Get(cacheKey(t, normalize)); ok {
			out[i] = cloneVector(v)
			continue
		}
		missIdx = append(missIdx, i)
		missTexts = append(missTexts, t)
	}
	if len(missTexts) == 0 {
		return out, nil
	}
	vecs, err := c.inner.Encode(ctx, missTexts, normalize)
	if err != nil {
		return nil, err
	}
	if len(vecs) != len(missTexts) {
		return nil, fmt.Errorf("embedder %s returned %d vectors for %d texts", c.inner.Name(), len(vecs), len(missTexts))
	}
	for j, i := range missIdx {
		c.cache.Add(cacheKey(missTexts[j], normalize), cloneVector(vecs[j]))
		out[i] = vecs[j]
	}
	return out, nil
}

func cacheKey(text string, normalize bool) string {
	h := sha1.New()
	if normalize {
		h.Write([]byte{1})
	} else {
		h.Write([]byte{0})
	}
	h.Write([]byte(text))
	return hex.EncodeToString(h.Sum(nil))
}

func cloneVector(v []float64) []float64 {
	out := make([]float64, len(v))
	copy(out, v)
	return out
}
