package knowledge

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// Embedder converts text into a fixed-dimension float32 vector. The model
// behind it is a black-box collaborator; the store only relies on this
// contract.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	Dimensions() int
}

// NoopEmbedder produces no vectors. With it configured, the store skips
// cosine ranking and serves recency-ordered results instead.
type NoopEmbedder struct{}

func (NoopEmbedder) Embed(context.Context, string) ([]float32, error) { return nil, nil }
func (NoopEmbedder) Dimensions() int                                  { return 0 }

// RemoteConfig configures a RemoteEmbedder.
type RemoteConfig struct {
	// Endpoint is the full embeddings URL, e.g.
	// "https://api.openai.com/v1/embeddings" or
	// "http://localhost:11434/api/embeddings".
	Endpoint string

	// APIKey is sent as a Bearer token when non-empty.
	APIKey string

	// Model is the embedding model name.
	Model string

	// Dimensions is the expected vector length; 0 means detect from the
	// first response.
	Dimensions int

	// Timeout bounds each request. Default 30s.
	Timeout time.Duration
}

// RemoteEmbedder calls an OpenAI-compatible embeddings endpoint. Ollama's
// endpoint is accepted too: the request carries both "input" and "prompt",
// and the response parser handles either shape.
type RemoteEmbedder struct {
	cfg    RemoteConfig
	client *http.Client
}

// NewRemoteEmbedder creates a RemoteEmbedder from cfg.
func NewRemoteEmbedder(cfg RemoteConfig) *RemoteEmbedder {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	return &RemoteEmbedder{
		cfg:    cfg,
		client: &http.Client{Timeout: cfg.Timeout},
	}
}

// Dimensions returns the configured or detected vector length.
func (e *RemoteEmbedder) Dimensions() int { return e.cfg.Dimensions }

type embedRequest struct {
	Model  string `json:"model"`
	Input  string `json:"input"`
	Prompt string `json:"prompt"`
}

type embedResponse struct {
	Data []struct {
		Embedding []float32 `json:"embedding"`
	} `json:"data"`
	Embedding []float32 `json:"embedding"`
}

// Embed requests a vector for text.
func (e *RemoteEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	body, err := json.Marshal(embedRequest{Model: e.cfg.Model, Input: text, Prompt: text})
	if err != nil {
		return nil, fmt.Errorf("embedder: marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.cfg.Endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("embedder: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if e.cfg.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+e.cfg.APIKey)
	}

	resp, err := e.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("embedder: request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("embedder: status %d: %s", resp.StatusCode, string(detail))
	}

	var parsed embedResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("embedder: decode response: %w", err)
	}

	var vec []float32
	switch {
	case len(parsed.Data) > 0:
		vec = parsed.Data[0].Embedding
	case len(parsed.Embedding) > 0:
		vec = parsed.Embedding
	default:
		return nil, fmt.Errorf("embedder: empty response")
	}

	if e.cfg.Dimensions == 0 {
		e.cfg.Dimensions = len(vec)
	} else if len(vec) != e.cfg.Dimensions {
		return nil, fmt.Errorf("embedder: got %d dimensions, want %d", len(vec), e.cfg.Dimensions)
	}
	return vec, nil
}
