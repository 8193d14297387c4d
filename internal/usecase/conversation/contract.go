package conversation

import (
	"context"

	"github.com/kindred-social/matchengine/internal/domain"
	"github.com/kindred-social/matchengine/internal/domain/intent"
)

// Classifier routes a message to an intent.
type Classifier interface {
	Classify(ctx context.Context, text, referencedID, requesterContext string) intent.Classification
}

// Optimizer rewrites a request into retrieval-friendly text.
type Optimizer interface {
	Rewrite(ctx context.Context, text string) string
}

// Matcher runs the progressive search ladder.
type Matcher interface {
	Match(ctx context.Context, query string, excludeIDs []string, lang string) (domain.Assessment, error)
}

// CasualSubmitter stores and pairs a casual request.
type CasualSubmitter interface {
	Submit(ctx context.Context, userID, text, lang string) (domain.SubmitReceipt, error)
}

// SwipeHistory exposes the per-actor exclusion set.
type SwipeHistory interface {
	ExcludedTargets(ctx context.Context, actorID string) ([]string, error)
}

// ProfileReader fetches profile text for the inquiry path.
type ProfileReader interface {
	ProfileText(ctx context.Context, userID string) (string, error)
}

// Completer produces free-form chat completions.
type Completer interface {
	Complete(ctx context.Context, req domain.ChatRequest) (domain.ChatResult, error)
}
