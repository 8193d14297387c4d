package profile

import (
	"context"

	"github.com/kindred-social/matchengine/internal/domain"
)

// Repository stores profile vector records.
type Repository interface {
	Upsert(ctx context.Context, p domain.Profile, dense []float32, sparse domain.SparseVector) error
	Get(ctx context.Context, userID string) (domain.Profile, error)
	ProfileText(ctx context.Context, userID string) (string, error)
	Delete(ctx context.Context, userID string) error
}

// Embedder vectorizes text into embeddings.
type Embedder interface {
	Embed(ctx context.Context, text string) (domain.EmbeddingResult, error)
}

// SparseEncoder produces the lexical counterpart of profile text.
type SparseEncoder interface {
	Encode(text string) domain.SparseVector
}
