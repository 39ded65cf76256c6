package memory

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"exegesis/internal/domain"
)

// Storage is a simple in-memory vector store using brute-force inner product.
// Vectors are expected to be L2-normalized, so the score is cosine similarity.
type Storage struct {
	mu        sync.RWMutex
	dimension int
	ids       []int64
	vectors   [][]float64
	pos       map[int64]int
}

var _ domain.VectorIndex = (*Storage)(nil)

func NewStorage() *Storage { return &Storage{pos: make(map[int64]int)} }

func (s *Storage) Init(_ context.Context, dimension int) error {
	if dimension <= 0 {
		return errors.New("invalid dimension")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.dimension = dimension
	s.ids = nil
	s.vectors = nil
	s.pos = make(map[int64]int)
	return nil
}

// Upsert inserts vectors, replacing any vector already stored under the same id.
func (s *Storage) Upsert(_ context.Context, ids []int64, vectors [][]float64) error {
	if len(ids) != len(vectors) {
		return errors.New("ids and vectors length mismatch")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, v := range vectors {
		if len(v) != s.dimension {
			return fmt.Errorf("vector dimension mismatch: got %d, want %d", len(v), s.dimension)
		}
		if ids[i] < 0 {
			return fmt.Errorf("invalid vector id %d", ids[i])
		}
	}
	for i, id := range ids {
		v := make([]float64, len(vectors[i]))
		copy(v, vectors[i])
		if p, ok := s.pos[id]; ok {
			s.vectors[p] = v
			continue
		}
		s.pos[id] = len(s.ids)
		s.ids = append(s.ids, id)
		s.vectors = append(s.vectors, v)
	}
	return nil
}

// Search returns exactly k slots. Slots past the stored count carry
// domain.NoResult and a zero score. Equal scores are ordered by id.
func (s *Storage) Search(_ context.Context, vector []float64, k int) ([]float64, []int64, error) {
	if k <= 0 {
		return nil, nil, nil
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.dimension > 0 && len(vector) != s.dimension {
		return nil, nil, fmt.Errorf("query dimension mismatch: got %d, want %d", len(vector), s.dimension)
	}

	order := make([]int, len(s.vectors))
	scores := make([]float64, len(s.vectors))
	for i := range s.vectors {
		order[i] = i
		scores[i] = dot(s.vectors[i], vector)
	}
	sort.Slice(order, func(a, b int) bool {
		sa, sb := scores[order[a]], scores[order[b]]
		if sa != sb {
			return sa > sb
		}
		return s.ids[order[a]] < s.ids[order[b]]
	})

	outScores := make([]float64, k)
	outIDs := make([]int64, k)
	for i := 0; i < k; i++ {
		if i < len(order) {
			outScores[i] = scores[order[i]]
			outIDs[i] = s.ids[order[i]]
			continue
		}
		outIDs[i] = domain.NoResult
	}
	return outScores, outIDs, nil
}

func (s *Storage) Count(_ context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.ids), nil
}

func (s *Storage) Clear(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ids = nil
	s.vectors = nil
	s.pos = make(map[int64]int)
	return nil
}

func dot(a, b []float64) float64 {
	n := min(len(a), len(b))
	sum := 0.0
	for i := 0; i < n; i++ {
		sum += a[i] * b[i]
	}
	return sum
}
