// Package clip implements pkg/embeddings' Embedder against a CLIP
// inference sidecar exposing text and image embedding endpoints.
package clip

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/streamlens/streamlens/pkg/embeddings"
)

const (
	// DefaultModel is the default CLIP checkpoint served by the sidecar.
	DefaultModel = "clip-vit-large-patch14"

	// DefaultBaseURL is the default sidecar URL.
	DefaultBaseURL = "http://localhost:8093"
)

// Embedder wraps the CLIP sidecar's embedding API.
type Embedder struct {
	baseURL    string
	model      string
	httpClient *http.Client
}

// EmbedderConfig holds configuration for the CLIP embedder.
type EmbedderConfig struct {
	// BaseURL is the sidecar URL (e.g. "http://localhost:8093").
	// Defaults to DefaultBaseURL if empty.
	BaseURL string

	// Model is the CLIP checkpoint to embed with.
	// Defaults to DefaultModel if empty.
	Model string
}

// textRequest is the request body for the text embedding endpoint.
type textRequest struct {
	Model string   `json:"model"`
	Texts []string `json:"texts"`
}

// imageRequest is the request body for the image embedding endpoint.
// Images travel base64-encoded.
type imageRequest struct {
	Model  string   `json:"model"`
	Images []string `json:"images"`
}

// embedResponse is the response from either embedding endpoint.
type embedResponse struct {
	Embeddings [][]float32 `json:"embeddings"`
}

// NewEmbedder creates an embedder backed by the CLIP sidecar.
func NewEmbedder(cfg EmbedderConfig) (*Embedder, error) {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}

	model := cfg.Model
	if model == "" {
		model = DefaultModel
	}

	return &Embedder{
		baseURL: baseURL,
		model:   model,
		httpClient: &http.Client{
			Timeout: 120 * time.Second,
		},
	}, nil
}

// EmbedTexts converts texts into vector embeddings in one batched call.
func (e *Embedder) EmbedTexts(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}
	return e.embed(ctx, "/embeddings/text", textRequest{
		Model: e.model,
		Texts: texts,
	}, len(texts))
}

// EmbedImages converts raw image bytes into vector embeddings in one
// batched call.
func (e *Embedder) EmbedImages(ctx context.Context, images [][]byte) ([][]float32, error) {
	if len(images) == 0 {
		return nil, nil
	}

	encoded := make([]string, len(images))
	for i, img := range images {
		encoded[i] = base64.StdEncoding.EncodeToString(img)
	}

	return e.embed(ctx, "/embeddings/image", imageRequest{
		Model:  e.model,
		Images: encoded,
	}, len(images))
}

func (e *Embedder) embed(ctx context.Context, path string, body any, want int) ([][]float32, error) {
	jsonBody, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("%w: marshaling request: %v", embeddings.ErrEmbedding, err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", e.baseURL+path, bytes.NewReader(jsonBody))
	if err != nil {
		return nil, fmt.Errorf("%w: creating request: %v", embeddings.ErrEmbedding, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := e.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: sending request: %v", embeddings.ErrEmbedding, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("%w: clip sidecar returned status %d: %s", embeddings.ErrEmbedding, resp.StatusCode, string(respBody))
	}

	var embedResp embedResponse
	if err := json.NewDecoder(resp.Body).Decode(&embedResp); err != nil {
		return nil, fmt.Errorf("%w: decoding response: %v", embeddings.ErrEmbedding, err)
	}

	if len(embedResp.Embeddings) != want {
		return nil, fmt.Errorf("%w: expected %d embeddings, got %d", embeddings.ErrEmbedding, want, len(embedResp.Embeddings))
	}

	return embedResp.Embeddings, nil
}

// Close releases resources held by the embedder.
func (e *Embedder) Close() error {
	// HTTP client doesn't require explicit cleanup
	return nil
}

var _ embeddings.Embedder = (*Embedder)(nil)
