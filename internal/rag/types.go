package rag

import (
	"context"
	"errors"
)

// ErrEmptyText is returned when asked to embed or retrieve for blank input.
var ErrEmptyText = errors.New("text to embed is empty")

// Retriever fetches relevant context from a knowledge base.
type Retriever interface {
	Retrieve(ctx context.Context, query string, opts RetrievalOptions) ([]Document, error)
}

// RetrievalOptions configures retrieval behavior.
// Zero values fall back to the retriever defaults.
type RetrievalOptions struct {
	TopK      int
	Threshold float64
	Filters   map[string]string
}

// Document represents a retrieved knowledge base entry.
type Document struct {
	ID       string
	Content  string
	Metadata map[string]interface{}
	Score    float64
}

// Source returns the document's source label, falling back to its ID.
func (d Document) Source() string {
	if s, ok := d.Metadata["source"].(string); ok && s != "" {
		return s
	}
	return d.ID
}

// Embedder generates vector embeddings for text.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	Dimensions() int
	ModelName() string
}

// VectorIndex is a similarity-searchable vector store.
type VectorIndex interface {
	Query(ctx context.Context, vector []float32, topK int, filters map[string]string) ([]Match, error)
	Stats(ctx context.Context) (*IndexStats, error)
	Close() error
}

// Match is a single vector search hit.
type Match struct {
	ID       string
	Score    float64
	Text     string
	Metadata map[string]interface{}
}

// IndexStats describes the remote index.
type IndexStats struct {
	Dimension   int
	VectorCount int
}
