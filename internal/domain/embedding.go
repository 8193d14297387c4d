package domain

import (
	"context"
	"fmt"
	"sort"
)

// Embedder is the shared text vectorization contract between layers.
type Embedder interface {
	Embed(ctx context.Context, text string) (EmbeddingResult, error)
}

// HealthChecker verifies provider availability.
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}

// EmbeddingResult carries the embedding vector and token usage through the decorator chain.
type EmbeddingResult struct {
	Embedding    []float32
	PromptTokens int
	TotalTokens  int
}

// SparseVector is a lexical token-to-weight map. Weights are positive; a
// missing token has weight zero.
type SparseVector map[string]float64

// SparseEncoder converts text into a sparse lexical vector. Encoding is local
// and deterministic, so there is no error path and no context.
type SparseEncoder interface {
	Encode(text string) SparseVector
}

// TopTokens returns up to n tokens ordered by descending weight, ties broken
// by token for determinism.
func (v SparseVector) TopTokens(n int) []string {
	tokens := make([]string, 0, len(v))
	for t := range v {
		tokens = append(tokens, t)
	}
	sort.Slice(tokens, func(i, j int) bool {
		if v[tokens[i]] != v[tokens[j]] {
			return v[tokens[i]] > v[tokens[j]]
		}
		return tokens[i] < tokens[j]
	})
	if n > 0 && len(tokens) > n {
		tokens = tokens[:n]
	}
	return tokens
}

// InstructionEmbedder is a domain decorator that prepends instruction text
// before embedding (asymmetric query/document models).
type InstructionEmbedder struct {
	inner       Embedder
	instruction string
}

// NewInstructionEmbedder creates a decorator that prepends instruction text.
func NewInstructionEmbedder(inner Embedder, instruction string) *InstructionEmbedder {
	return &InstructionEmbedder{inner: inner, instruction: instruction}
}

// Embed prepends instruction and delegates to inner embedder.
func (e *InstructionEmbedder) Embed(ctx context.Context, text string) (EmbeddingResult, error) {
	result, err := e.inner.Embed(ctx, e.instruction+text)
	if err != nil {
		return EmbeddingResult{}, fmt.Errorf("instruction embed: %w", err)
	}
	return result, nil
}
