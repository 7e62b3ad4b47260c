package rag

import (
	"context"
	"errors"
	"fmt"

	"github.com/msenthi7/medical-chatbot/services/providers"
	"github.com/pinecone-io/go-pinecone/pinecone"
	"google.golang.org/protobuf/types/known/structpb"
)

const (
	pineconeProvider = "pinecone"
	defaultTextKey   = "text"
)

// ErrMissingPineconeKey is returned when no Pinecone API key is configured
var ErrMissingPineconeKey = errors.New("pinecone API key is not configured")

// PineconeConfig points at a pre-existing Pinecone index
type PineconeConfig struct {
	APIKey    string
	IndexName string
	IndexHost string // Resolved with DescribeIndex when empty
	Namespace string
	TextKey   string
}

// indexConnection is the subset of *pinecone.IndexConnection used here
type indexConnection interface {
	QueryByVectorValues(ctx context.Context, in *pinecone.QueryByVectorValuesRequest) (*pinecone.QueryVectorsResponse, error)
	DescribeIndexStats(ctx context.Context) (*pinecone.DescribeIndexStatsResponse, error)
	Close() error
}

// PineconeIndex queries a Pinecone index populated with LangChain-style
// records, where the chunk text lives under a metadata key.
type PineconeIndex struct {
	conn    indexConnection
	name    string
	textKey string
}

// NewPineconeIndex connects to an existing index
func NewPineconeIndex(ctx context.Context, config PineconeConfig) (*PineconeIndex, error) {
	if config.APIKey == "" {
		return nil, ErrMissingPineconeKey
	}

	pc, err := pinecone.NewClient(pinecone.NewClientParams{ApiKey: config.APIKey})
	if err != nil {
		return nil, fmt.Errorf("create pinecone client: %w", err)
	}

	host := config.IndexHost
	if host == "" {
		idx, err := pc.DescribeIndex(ctx, config.IndexName)
		if err != nil {
			return nil, wrapPineconeError("describe index "+config.IndexName, err)
		}
		host = idx.Host
	}

	conn, err := pc.Index(pinecone.NewIndexConnParams{Host: host, Namespace: config.Namespace})
	if err != nil {
		return nil, fmt.Errorf("connect to pinecone index %s: %w", config.IndexName, err)
	}

	return newPineconeIndex(conn, config.IndexName, config.TextKey), nil
}

func newPineconeIndex(conn indexConnection, name, textKey string) *PineconeIndex {
	if textKey == "" {
		textKey = defaultTextKey
	}
	return &PineconeIndex{conn: conn, name: name, textKey: textKey}
}

// Name returns the index name
func (p *PineconeIndex) Name() string {
	return p.name
}

// Query runs a similarity search. Matches without text are skipped.
func (p *PineconeIndex) Query(ctx context.Context, vector []float32, topK int, filters map[string]string) ([]Match, error) {
	req := &pinecone.QueryByVectorValuesRequest{
		Vector:          vector,
		TopK:            uint32(topK),
		IncludeMetadata: true,
	}
	if len(filters) > 0 {
		filter, err := buildMetadataFilter(filters)
		if err != nil {
			return nil, err
		}
		req.MetadataFilter = filter
	}

	resp, err := p.conn.QueryByVectorValues(ctx, req)
	if err != nil {
		return nil, wrapPineconeError("query index "+p.name, err)
	}

	matches := make([]Match, 0, len(resp.Matches))
	for _, sv := range resp.Matches {
		if sv == nil || sv.Vector == nil {
			continue
		}
		var metadata map[string]interface{}
		if sv.Vector.Metadata != nil {
			metadata = sv.Vector.Metadata.AsMap()
		}
		text, _ := metadata[p.textKey].(string)
		if text == "" {
			continue
		}
		delete(metadata, p.textKey)

		matches = append(matches, Match{
			ID:       sv.Vector.Id,
			Score:    float64(sv.Score),
			Text:     text,
			Metadata: metadata,
		})
	}
	return matches, nil
}

// Stats returns the index dimension and vector count
func (p *PineconeIndex) Stats(ctx context.Context) (*IndexStats, error) {
	resp, err := p.conn.DescribeIndexStats(ctx)
	if err != nil {
		return nil, wrapPineconeError("describe index stats", err)
	}
	return &IndexStats{
		Dimension:   int(resp.Dimension),
		VectorCount: int(resp.TotalVectorCount),
	}, nil
}

// Close releases the gRPC connection
func (p *PineconeIndex) Close() error {
	return p.conn.Close()
}

func buildMetadataFilter(filters map[string]string) (*structpb.Struct, error) {
	fields := make(map[string]interface{}, len(filters))
	for k, v := range filters {
		fields[k] = map[string]interface{}{"$eq": v}
	}
	s, err := structpb.NewStruct(fields)
	if err != nil {
		return nil, fmt.Errorf("build metadata filter: %w", err)
	}
	return s, nil
}

func wrapPineconeError(op string, err error) error {
	if errors.Is(err, context.Canceled) {
		return providers.NewProviderError(pineconeProvider, "CANCELED", op+" canceled", 0, false, err)
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return providers.NewProviderError(pineconeProvider, "TIMEOUT", op+" timed out", 0, true, err)
	}
	return providers.NewProviderError(pineconeProvider, "VECTOR_STORE_ERROR", op+" failed", 0, true, err)
}
