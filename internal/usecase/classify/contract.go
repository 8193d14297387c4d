package classify

import (
	"context"

	"github.com/kindred-social/matchengine/internal/domain"
)

// Completer produces structured chat completions.
type Completer interface {
	CompleteJSON(ctx context.Context, req domain.ChatRequest, out any) (domain.ChatResult, error)
}
