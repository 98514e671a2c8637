// Package vectorstore implements the vector store client (C5): a
// provider-agnostic interface over embedding storage and similarity
// search, backed by pgvector (default, colocated with the relational
// database) or Qdrant.
package vectorstore

import "context"

// Result is one similarity-search hit.
type Result struct {
	ID       string
	Score    float64
	Content  string
	Metadata map[string]string
}

// Store upserts and queries embeddings scoped by namespace (one
// namespace per knowledge base).
type Store interface {
	Upsert(ctx context.Context, namespace, id string, vector []float32, content string, metadata map[string]string) error
	Query(ctx context.Context, namespace string, vector []float32, topK int) ([]Result, error)
	Delete(ctx context.Context, namespace, id string) error
}
