package rag

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"net/http"
	"strings"
	"time"

	"github.com/msenthi7/medical-chatbot/services/providers"
	"github.com/tmc/langchaingo/llms/huggingface"
)

const (
	huggingFaceProvider   = "huggingface"
	defaultHuggingFaceURL = "https://router.huggingface.co/hf-inference"
	featureExtractionTask = "feature-extraction"
	maxErrorBody          = 4 << 10
)

// HuggingFaceConfig configures the HuggingFace feature-extraction embedder
type HuggingFaceConfig struct {
	BaseURL    string
	Model      string
	APIKey     string // Falls back to HF_TOKEN and the local token file
	Dimensions int
	Timeout    time.Duration
}

// HuggingFaceEmbedder computes query embeddings with the hosted
// feature-extraction pipeline of a sentence-transformers model.
type HuggingFaceEmbedder struct {
	config  HuggingFaceConfig
	client  *huggingface.LLM
	initErr error
}

// NewHuggingFaceEmbedder creates a new HuggingFace embedder. Without a
// usable token the embedder is still returned and every Embed call fails
// with an authentication error.
func NewHuggingFaceEmbedder(config HuggingFaceConfig) *HuggingFaceEmbedder {
	if config.BaseURL == "" {
		config.BaseURL = defaultHuggingFaceURL
	}
	if config.Timeout == 0 {
		config.Timeout = 30 * time.Second
	}

	opts := []huggingface.Option{
		huggingface.WithURL(strings.TrimRight(config.BaseURL, "/")),
		huggingface.WithModel(config.Model),
		huggingface.WithHTTPClient(&http.Client{
			Timeout:   config.Timeout,
			Transport: statusTransport{next: http.DefaultTransport},
		}),
	}
	if config.APIKey != "" {
		opts = append(opts, huggingface.WithToken(config.APIKey))
	}

	client, err := huggingface.New(opts...)
	return &HuggingFaceEmbedder{config: config, client: client, initErr: err}
}

// Embed returns the sentence embedding for text
func (e *HuggingFaceEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	if strings.TrimSpace(text) == "" {
		return nil, ErrEmptyText
	}
	if e.initErr != nil {
		return nil, providers.NewProviderError(huggingFaceProvider, "AUTHENTICATION_ERROR",
			"HuggingFace client is not configured", 0, false, e.initErr)
	}

	rows, err := e.client.CreateEmbedding(ctx, []string{text}, e.config.Model, featureExtractionTask)
	switch {
	case errors.Is(err, huggingface.ErrUnexpectedResponseLength):
		// A token-level model answers a single input with a token x dim matrix.
		vec, poolErr := poolRows(rows)
		if poolErr != nil {
			return nil, providers.NewProviderError(huggingFaceProvider, "INVALID_RESPONSE", "decode embedding response", 0, false, poolErr)
		}
		return vec, nil
	case err != nil:
		return nil, classifyHuggingFaceError(err)
	case len(rows) == 0 || len(rows[0]) == 0:
		return nil, providers.NewProviderError(huggingFaceProvider, "INVALID_RESPONSE", "empty embedding vector", 0, false, nil)
	}
	return rows[0], nil
}

// Dimensions returns the configured embedding size
func (e *HuggingFaceEmbedder) Dimensions() int {
	return e.config.Dimensions
}

// ModelName returns the model identifier
func (e *HuggingFaceEmbedder) ModelName() string {
	return e.config.Model
}

func classifyHuggingFaceError(err error) error {
	var provErr *providers.ProviderError
	if errors.As(err, &provErr) {
		return provErr
	}
	var typeErr *json.UnmarshalTypeError
	var syntaxErr *json.SyntaxError
	switch {
	case errors.As(err, &typeErr), errors.As(err, &syntaxErr):
		return providers.NewProviderError(huggingFaceProvider, "INVALID_RESPONSE", "decode embedding response", 0, false, err)
	case errors.Is(err, context.Canceled):
		return providers.NewProviderError(huggingFaceProvider, "CANCELED", "embedding request canceled", 0, false, err)
	case errors.Is(err, context.DeadlineExceeded):
		return providers.NewProviderError(huggingFaceProvider, "TIMEOUT", "embedding request timed out", 0, true, err)
	case errors.Is(err, huggingface.ErrEmptyResponse):
		return providers.NewProviderError(huggingFaceProvider, "EMPTY_RESPONSE", "no embedding returned", 0, false, err)
	}
	return providers.NewProviderError(huggingFaceProvider, "HTTP_ERROR", "embedding request failed", 0, true, err)
}

// statusTransport turns non-2xx inference responses into provider errors
// so the status code survives the client's own error formatting.
type statusTransport struct {
	next http.RoundTripper
}

func (t statusTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	resp, err := t.next.RoundTrip(req)
	if err != nil || (resp.StatusCode >= 200 && resp.StatusCode < 300) {
		return resp, err
	}
	defer resp.Body.Close()

	msg, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	code, retryable := providers.ErrorCodeForStatus(resp.StatusCode)
	return nil, providers.NewProviderError(huggingFaceProvider, code,
		fmt.Sprintf("embedding request returned %d: %s", resp.StatusCode, strings.TrimSpace(string(msg))),
		resp.StatusCode, retryable, nil)
}

// poolRows mean-pools a token x dim matrix and L2-normalises the result.
func poolRows(rows [][]float32) ([]float32, error) {
	if len(rows) == 0 {
		return nil, errors.New("empty embedding matrix")
	}
	dim := len(rows[0])
	if dim == 0 {
		return nil, errors.New("empty embedding vector")
	}

	sum := make([]float64, dim)
	for _, row := range rows {
		if len(row) != dim {
			return nil, fmt.Errorf("ragged embedding matrix: row of %d, want %d", len(row), dim)
		}
		for i, v := range row {
			sum[i] += float64(v)
		}
	}

	var norm float64
	for i := range sum {
		sum[i] /= float64(len(rows))
		norm += sum[i] * sum[i]
	}
	norm = math.Sqrt(norm)
	if norm > 0 {
		for i := range sum {
			sum[i] /= norm
		}
	}
	return toFloat32(sum)
}

func toFloat32(v []float64) ([]float32, error) {
	if len(v) == 0 {
		return nil, errors.New("empty embedding vector")
	}
	out := make([]float32, len(v))
	for i, f := range v {
		out[i] = float32(f)
	}
	return out, nil
}
