package search

import (
	"context"

	"github.com/kindred-social/matchengine/internal/domain"
)

// Repository defines the storage contract for candidate retrieval.
type Repository interface {
	SearchDense(ctx context.Context, vector []float32, topK int, excludeIDs []string) ([]domain.Candidate, error)
	SearchSparse(ctx context.Context, sparse domain.SparseVector, topTokens, topK int, excludeIDs []string) ([]domain.Candidate, error)
}

// Embedder vectorizes text into embeddings.
type Embedder interface {
	Embed(ctx context.Context, text string) (domain.EmbeddingResult, error)
}

// SparseEncoder produces the lexical counterpart of a query.
type SparseEncoder interface {
	Encode(text string) domain.SparseVector
}
