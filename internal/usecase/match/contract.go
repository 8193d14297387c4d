package match

import (
	"context"

	"github.com/kindred-social/matchengine/internal/domain"
)

// Retriever fetches candidates at a given breadth. denseOnly drops the
// lexical leg for recall-first passes.
type Retriever interface {
	Retrieve(ctx context.Context, text string, breadth int, excludeIDs []string, denseOnly bool) ([]domain.Candidate, error)
}

// Assessor grades a candidate set against the query.
type Assessor interface {
	Assess(ctx context.Context, query string, candidates []domain.Candidate, lang string) domain.Assessment
}
