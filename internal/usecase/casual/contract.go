package casual

import (
	"context"
	"time"

	"github.com/kindred-social/matchengine/internal/domain"
)

// Repository stores casual requests and their vectors.
type Repository interface {
	Upsert(ctx context.Context, req domain.CasualRequest, dense []float32) error
	SearchNearest(ctx context.Context, vector []float32, k int, excludeUserIDs []string) ([]domain.Candidate, error)
	Expired(ctx context.Context, cutoff time.Time, limit int) ([]string, error)
	Delete(ctx context.Context, userID string) (meta, vector bool, err error)
}

// Completer produces structured chat completions.
type Completer interface {
	CompleteJSON(ctx context.Context, req domain.ChatRequest, out any) (domain.ChatResult, error)
}

// Embedder vectorizes text into embeddings.
type Embedder interface {
	Embed(ctx context.Context, text string) (domain.EmbeddingResult, error)
}
