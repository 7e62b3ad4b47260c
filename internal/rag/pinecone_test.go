package rag

import (
	"context"
	"errors"
	"testing"

	"github.com/msenthi7/medical-chatbot/services/providers"
	"github.com/pinecone-io/go-pinecone/pinecone"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/protobuf/types/known/structpb"
)

type fakeConn struct {
	lastQuery *pinecone.QueryByVectorValuesRequest
	matches   []*pinecone.ScoredVector
	stats     *pinecone.DescribeIndexStatsResponse
	err       error
	closed    bool
}

func (f *fakeConn) QueryByVectorValues(ctx context.Context, in *pinecone.QueryByVectorValuesRequest) (*pinecone.QueryVectorsResponse, error) {
	f.lastQuery = in
	if f.err != nil {
		return nil, f.err
	}
	return &pinecone.QueryVectorsResponse{Matches: f.matches}, nil
}

func (f *fakeConn) DescribeIndexStats(ctx context.Context) (*pinecone.DescribeIndexStatsResponse, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.stats, nil
}

func (f *fakeConn) Close() error {
	f.closed = true
	return nil
}

func scored(t *testing.T, id string, score float32, md map[string]interface{}) *pinecone.ScoredVector {
	t.Helper()
	s, err := structpb.NewStruct(md)
	require.NoError(t, err)
	return &pinecone.ScoredVector{Vector: &pinecone.Vector{Id: id, Metadata: s}, Score: score}
}

func TestPineconeIndex_Query(t *testing.T) {
	conn := &fakeConn{matches: []*pinecone.ScoredVector{
		scored(t, "a", 0.91, map[string]interface{}{"text": "Acne is a skin condition.", "source": "Medical_book.pdf", "page": 12}),
		scored(t, "b", 0.80, map[string]interface{}{"source": "no-text.pdf"}),
		{Vector: nil, Score: 0.5},
	}}
	idx := newPineconeIndex(conn, "medical-chatbot", "")

	matches, err := idx.Query(context.Background(), []float32{0.1, 0.2}, 3, nil)
	require.NoError(t, err)
	require.Len(t, matches, 1)

	assert.Equal(t, "a", matches[0].ID)
	assert.Equal(t, "Acne is a skin condition.", matches[0].Text)
	assert.InDelta(t, 0.91, matches[0].Score, 1e-6)
	assert.Equal(t, "Medical_book.pdf", matches[0].Metadata["source"])
	assert.NotContains(t, matches[0].Metadata, "text")

	assert.EqualValues(t, 3, conn.lastQuery.TopK)
	assert.True(t, conn.lastQuery.IncludeMetadata)
	assert.Nil(t, conn.lastQuery.MetadataFilter)
}

func TestPineconeIndex_QueryWithFilter(t *testing.T) {
	conn := &fakeConn{}
	idx := newPineconeIndex(conn, "medical-chatbot", "page_content")

	_, err := idx.Query(context.Background(), []float32{0.1}, 2, map[string]string{"source": "Medical_book.pdf"})
	require.NoError(t, err)

	require.NotNil(t, conn.lastQuery.MetadataFilter)
	assert.Equal(t, map[string]interface{}{
		"source": map[string]interface{}{"$eq": "Medical_book.pdf"},
	}, conn.lastQuery.MetadataFilter.AsMap())
}

func TestPineconeIndex_QueryError(t *testing.T) {
	idx := newPineconeIndex(&fakeConn{err: errors.New("unavailable")}, "medical-chatbot", "")

	_, err := idx.Query(context.Background(), []float32{0.1}, 3, nil)

	var provErr *providers.ProviderError
	require.True(t, errors.As(err, &provErr))
	assert.Equal(t, "pinecone", provErr.Provider)
	assert.Equal(t, "VECTOR_STORE_ERROR", provErr.Code)
	assert.True(t, provErr.Retryable)
}

func TestPineconeIndex_StatsAndClose(t *testing.T) {
	conn := &fakeConn{stats: &pinecone.DescribeIndexStatsResponse{Dimension: 384, TotalVectorCount: 5859}}
	idx := newPineconeIndex(conn, "medical-chatbot", "")

	stats, err := idx.Stats(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 384, stats.Dimension)
	assert.Equal(t, 5859, stats.VectorCount)
	assert.Equal(t, "medical-chatbot", idx.Name())

	require.NoError(t, idx.Close())
	assert.True(t, conn.closed)
}

func TestNewPineconeIndex_MissingKey(t *testing.T) {
	_, err := NewPineconeIndex(context.Background(), PineconeConfig{IndexName: "medical-chatbot"})
	assert.ErrorIs(t, err, ErrMissingPineconeKey)
}
