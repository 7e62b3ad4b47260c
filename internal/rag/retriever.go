package rag

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"go.uber.org/zap"
)

// DefaultTopK is the number of documents returned when none is requested
const DefaultTopK = 3

// VectorRetriever runs similarity search by embedding the query and
// searching a vector index.
type VectorRetriever struct {
	embedder  Embedder
	index     VectorIndex
	topK      int
	threshold float64
	logger    *zap.Logger
}

// NewVectorRetriever creates a new retriever. topK <= 0 uses DefaultTopK.
func NewVectorRetriever(embedder Embedder, index VectorIndex, topK int, threshold float64, logger *zap.Logger) *VectorRetriever {
	if topK <= 0 {
		topK = DefaultTopK
	}
	return &VectorRetriever{
		embedder:  embedder,
		index:     index,
		topK:      topK,
		threshold: threshold,
		logger:    logger,
	}
}

// Retrieve returns the documents most similar to query, best first
func (r *VectorRetriever) Retrieve(ctx context.Context, query string, opts RetrievalOptions) ([]Document, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, ErrEmptyText
	}

	topK := opts.TopK
	if topK <= 0 {
		topK = r.topK
	}
	threshold := opts.Threshold
	if threshold <= 0 {
		threshold = r.threshold
	}

	vector, err := r.embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}

	matches, err := r.index.Query(ctx, vector, topK, opts.Filters)
	if err != nil {
		return nil, fmt.Errorf("query index: %w", err)
	}

	docs := make([]Document, 0, len(matches))
	for _, m := range matches {
		if threshold > 0 && m.Score < threshold {
			continue
		}
		docs = append(docs, Document{
			ID:       m.ID,
			Content:  m.Text,
			Metadata: m.Metadata,
			Score:    m.Score,
		})
	}
	sort.SliceStable(docs, func(i, j int) bool {
		return docs[i].Score > docs[j].Score
	})
	if len(docs) > topK {
		docs = docs[:topK]
	}

	r.logger.Debug("Retrieved documents",
		zap.Int("matches", len(matches)),
		zap.Int("documents", len(docs)),
		zap.Int("top_k", topK),
		zap.String("embedding_model", r.embedder.ModelName()),
	)

	return docs, nil
}

// CheckDimensions compares the embedder's output size with the index.
// It is a no-op when either side does not report a dimension.
func (r *VectorRetriever) CheckDimensions(ctx context.Context) error {
	want := r.embedder.Dimensions()
	if want == 0 {
		return nil
	}
	stats, err := r.index.Stats(ctx)
	if err != nil {
		return err
	}
	if stats.Dimension != 0 && stats.Dimension != want {
		return &DimensionMismatchError{Model: r.embedder.ModelName(), Embedding: want, Index: stats.Dimension}
	}
	return nil
}

// DimensionMismatchError reports an embedder whose vectors cannot query the index
type DimensionMismatchError struct {
	Model     string
	Embedding int
	Index     int
}

func (e *DimensionMismatchError) Error() string {
	return fmt.Sprintf("embedding model %s produces %d dimensions but the index has %d", e.Model, e.Embedding, e.Index)
}

// Stats proxies the index statistics
func (r *VectorRetriever) Stats(ctx context.Context) (*IndexStats, error) {
	return r.index.Stats(ctx)
}

// Close closes the underlying index
func (r *VectorRetriever) Close() error {
	return r.index.Close()
}
