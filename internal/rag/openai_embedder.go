package rag

import (
	"context"
	"errors"
	"strings"

	"github.com/msenthi7/medical-chatbot/services/providers"
	openaiprovider "github.com/msenthi7/medical-chatbot/services/providers/openai"
	"github.com/openai/openai-go"
)

// OpenAIEmbedder computes query embeddings with the OpenAI embeddings API
type OpenAIEmbedder struct {
	client     openai.Client
	model      string
	dimensions int
}

// NewOpenAIEmbedder creates an embedder sharing the chat adapter's client options.
// dimensions is sent to the API only when positive.
func NewOpenAIEmbedder(config providers.ProviderConfig, model string, dimensions int) *OpenAIEmbedder {
	return &OpenAIEmbedder{
		client:     openai.NewClient(openaiprovider.ClientOptions(config)...),
		model:      model,
		dimensions: dimensions,
	}
}

// Embed returns the embedding for text
func (e *OpenAIEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	if strings.TrimSpace(text) == "" {
		return nil, ErrEmptyText
	}

	params := openai.EmbeddingNewParams{
		Input: openai.EmbeddingNewParamsInputUnion{OfString: openai.String(text)},
		Model: openai.EmbeddingModel(e.model),
	}
	if e.dimensions > 0 {
		params.Dimensions = openai.Int(int64(e.dimensions))
	}

	resp, err := e.client.Embeddings.New(ctx, params)
	if err != nil {
		return nil, openaiprovider.ClassifyError(err)
	}
	if len(resp.Data) == 0 {
		return nil, providers.NewProviderError(openaiprovider.ProviderName, "EMPTY_RESPONSE", "no embedding returned", 0, false, errors.New("empty data"))
	}

	return toFloat32(resp.Data[0].Embedding)
}

// Dimensions returns the requested embedding size, 0 when the model default applies
func (e *OpenAIEmbedder) Dimensions() int {
	return e.dimensions
}

// ModelName returns the embedding model
func (e *OpenAIEmbedder) ModelName() string {
	return e.model
}
