// Package vector defines the similarity index the agent mirrors memory
// items and knowledge documents into. The relational store stays
// authoritative; index writes are best effort and a lost point only
// degrades retrieval quality.
package vector

import "context"

// Point is a single embedded document in a collection.
type Point struct {
	ID      string
	Vector  []float32
	Payload map[string]any
}

// Hit is a search result with a similarity score in [0,1], higher is closer.
type Hit struct {
	ID      string
	Score   float32
	Payload map[string]any
}

// Filter restricts a search to points whose payload matches every entry.
// Values are compared as their JSON string representation.
type Filter map[string]any

// MemoryCollection is the per-project collection holding memory item points.
func MemoryCollection(projectID string) string {
	return "mem_" + projectID
}

// KnowledgeCollection is the per-project collection holding knowledge base
// document points.
func KnowledgeCollection(projectID string) string {
	return "kb_" + projectID
}

// Index is a named-collection vector store.
type Index interface {
	// Upsert inserts or replaces points in a collection, creating the
	// collection on first write.
	Upsert(ctx context.Context, collection string, points []Point) error
	// Search returns up to limit nearest points by cosine similarity.
	// A missing collection yields an empty result, not an error.
	Search(ctx context.Context, collection string, vector []float32, limit int, filter Filter) ([]Hit, error)
	// List returns up to limit matching points, newest first, without a
	// query vector. Hit scores are zero.
	List(ctx context.Context, collection string, limit int, filter Filter) ([]Hit, error)
	// Delete removes points by id. Missing ids are ignored.
	Delete(ctx context.Context, collection string, ids []string) error
}
