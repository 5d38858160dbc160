package vector

import (
	"context"
	"fmt"
	"math"
	"sort"
	"sync"
)

// MemoryIndex is an in-process index used with the SQLite driver and in
// tests. Points are held in a map per collection and searched by brute
// force, which is fine for the single-instance dev profile it serves.
type MemoryIndex struct {
	mu          sync.RWMutex
	collections map[string]map[string]memoryPoint
	seq         uint64
}

// memoryPoint pairs a point with its insertion sequence so List can order
// by recency the way the pgvector table orders by created_ts.
type memoryPoint struct {
	Point
	seq uint64
}

var _ Index = (*MemoryIndex)(nil)

// NewMemoryIndex creates an empty in-memory index.
func NewMemoryIndex() *MemoryIndex {
	return &MemoryIndex{
		collections: map[string]map[string]memoryPoint{},
	}
}

func (x *MemoryIndex) Upsert(_ context.Context, collection string, points []Point) error {
	x.mu.Lock()
	defer x.mu.Unlock()

	c, ok := x.collections[collection]
	if !ok {
		c = map[string]memoryPoint{}
		x.collections[collection] = c
	}
	for _, point := range points {
		seq := x.seq
		if existing, ok := c[point.ID]; ok {
			seq = existing.seq
		} else {
			x.seq++
		}
		c[point.ID] = memoryPoint{Point: point, seq: seq}
	}
	return nil
}

func (x *MemoryIndex) Search(_ context.Context, collection string, vector []float32, limit int, filter Filter) ([]Hit, error) {
	if limit <= 0 {
		limit = 10
	}

	x.mu.RLock()
	defer x.mu.RUnlock()

	hits := []Hit{}
	for _, point := range x.collections[collection] {
		if !matchesFilter(point.Payload, filter) {
			continue
		}
		hits = append(hits, Hit{
			ID:      point.ID,
			Score:   cosineSimilarity(vector, point.Vector),
			Payload: point.Payload,
		})
	}
	sort.Slice(hits, func(i, j int) bool {
		return hits[i].Score > hits[j].Score
	})
	if len(hits) > limit {
		hits = hits[:limit]
	}
	return hits, nil
}

func (x *MemoryIndex) List(_ context.Context, collection string, limit int, filter Filter) ([]Hit, error) {
	if limit <= 0 {
		limit = 10
	}

	x.mu.RLock()
	defer x.mu.RUnlock()

	matched := []memoryPoint{}
	for _, point := range x.collections[collection] {
		if !matchesFilter(point.Payload, filter) {
			continue
		}
		matched = append(matched, point)
	}
	sort.Slice(matched, func(i, j int) bool {
		return matched[i].seq > matched[j].seq
	})
	if len(matched) > limit {
		matched = matched[:limit]
	}

	hits := make([]Hit, 0, len(matched))
	for _, point := range matched {
		hits = append(hits, Hit{ID: point.ID, Payload: point.Payload})
	}
	return hits, nil
}

func (x *MemoryIndex) Delete(_ context.Context, collection string, ids []string) error {
	x.mu.Lock()
	defer x.mu.Unlock()

	c, ok := x.collections[collection]
	if !ok {
		return nil
	}
	for _, id := range ids {
		delete(c, id)
	}
	return nil
}

func matchesFilter(payload map[string]any, filter Filter) bool {
	for key, want := range filter {
		got, ok := payload[key]
		if !ok || fmt.Sprintf("%v", got) != fmt.Sprintf("%v", want) {
			return false
		}
	}
	return true
}

func cosineSimilarity(a, b []float32) float32 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return float32(dot / (math.Sqrt(normA) * math.Sqrt(normB)))
}
