package repository

import (
	"context"
	"errors"
	"math"
	"sort"
	"sync"

	"studenthousing/internal/model"
)

// MemoryIndex is an in-process vector index using brute-force cosine similarity.
// It is used for local development and tests.
type MemoryIndex struct {
	mu     sync.RWMutex
	points map[string]Point
	order  []string
}

// NewMemoryIndex creates an empty in-memory index
func NewMemoryIndex() *MemoryIndex {
	return &MemoryIndex{points: make(map[string]Point)}
}

// Search returns the closest points matching the filter, best first
func (m *MemoryIndex) Search(ctx context.Context, vector []float32, filter model.Filter, limit int) ([]model.Hit, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = 10
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	hits := make([]model.Hit, 0, len(m.points))
	for _, id := range m.order {
		p := m.points[id]
		if !matchesFilter(p.Payload, filter) {
			continue
		}
		hits = append(hits, model.Hit{ID: p.ID, Payload: p.Payload, Score: cosine(p.Vector, vector)})
	}

	sort.SliceStable(hits, func(i, j int) bool {
		return hits[i].Score > hits[j].Score
	})
	if len(hits) > limit {
		hits = hits[:limit]
	}
	return hits, nil
}

// Upsert inserts or replaces points
func (m *MemoryIndex) Upsert(ctx context.Context, points []Point) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	for _, p := range points {
		if p.ID == "" {
			return errors.New("point without id")
		}
		if _, exists := m.points[p.ID]; !exists {
			m.order = append(m.order, p.ID)
		}
		m.points[p.ID] = p
	}
	return nil
}

// Delete removes points by id; unknown ids are ignored
func (m *MemoryIndex) Delete(ctx context.Context, ids []string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	remove := make(map[string]bool, len(ids))
	for _, id := range ids {
		if _, ok := m.points[id]; ok {
			delete(m.points, id)
			remove[id] = true
		}
	}
	if len(remove) == 0 {
		return nil
	}

	kept := m.order[:0]
	for _, id := range m.order {
		if !remove[id] {
			kept = append(kept, id)
		}
	}
	m.order = kept
	return nil
}

// Len returns the number of stored points
func (m *MemoryIndex) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.points)
}

func cosine(a, b []float32) float64 {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	var dot, na, nb float64
	for i := 0; i < n; i++ {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}
