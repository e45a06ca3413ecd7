package testutils

import (
	"context"
	"fmt"
)

// MockEmbedder is a test embedder that returns predictable embeddings.
// Text inputs are looked up verbatim; image inputs are looked up by
// their raw bytes as a string key.
type MockEmbedder struct {
	Embeddings map[string][]float32

	// Default is returned for unknown inputs. Leave nil to fail on
	// unknown inputs instead.
	Default []float32

	// FailOn causes embedding to return an error when an input matches
	FailOn string
}

func NewMockEmbedder() *MockEmbedder {
	return &MockEmbedder{
		Embeddings: make(map[string][]float32),
		Default:    []float32{0.1, 0.2, 0.3},
	}
}

func (m *MockEmbedder) EmbedTexts(_ context.Context, texts []string) ([][]float32, error) {
	return m.lookup(texts)
}

func (m *MockEmbedder) EmbedImages(_ context.Context, images [][]byte) ([][]float32, error) {
	keys := make([]string, len(images))
	for i, img := range images {
		keys[i] = string(img)
	}
	return m.lookup(keys)
}

func (m *MockEmbedder) lookup(keys []string) ([][]float32, error) {
	out := make([][]float32, len(keys))
	for i, key := range keys {
		if m.FailOn != "" && key == m.FailOn {
			return nil, fmt.Errorf("mock embedding failure for: %s", key)
		}
		if emb, ok := m.Embeddings[key]; ok {
			out[i] = emb
			continue
		}
		if m.Default == nil {
			return nil, fmt.Errorf("no mock embedding for: %s", key)
		}
		out[i] = m.Default
	}
	return out, nil
}

func (m *MockEmbedder) Close() error {
	return nil
}
