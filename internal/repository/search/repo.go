// Package search is the retrieval client over the profile collection: a
// dense KNN leg and a sparse weighted-term leg, both with store-level id
// exclusion.
package search

import (
	"context"
	"fmt"
	"strings"

	"github.com/kindred-social/matchengine/internal/db"
	"github.com/kindred-social/matchengine/internal/domain"
)

// store is the consumer interface for search operations (ISP).
type store interface {
	SearchKNN(ctx context.Context, q *db.KNNQuery) (*db.SearchResult, error)
	SearchLexical(ctx context.Context, q *db.LexicalQuery) (*db.SearchResult, error)
}

// Repo implements the hybrid retrieval contract for the matching pipeline.
type Repo struct {
	store      store
	keyPrefix  string
	collection string
}

// New creates a retrieval repository over the given collection.
func New(s store, keyPrefix, collection string) *Repo {
	return &Repo{store: s, keyPrefix: keyPrefix, collection: collection}
}

func (r *Repo) indexName() string {
	return fmt.Sprintf("%s%s:idx", r.keyPrefix, r.collection)
}

func (r *Repo) keyPrefixFull() string {
	return fmt.Sprintf("%s%s:", r.keyPrefix, r.collection)
}

var returnFields = []string{"user_id", "profile_text", "tags", "__vector_score"}

// SearchDense runs the KNN leg. Excluded ids are filtered inside the store:
// they never appear, and breadth applies to the eligible population only.
func (r *Repo) SearchDense(
	ctx context.Context, vector []float32, breadth int, excludeIDs []string,
) ([]domain.Candidate, error) {
	q := &db.KNNQuery{
		IndexName:    r.indexName(),
		Vector:       vector,
		K:            breadth,
		ReturnFields: returnFields,
	}
	if len(excludeIDs) > 0 {
		q.Exclude = &db.Exclusion{TagField: "user_id", IDs: excludeIDs}
	}

	sr, err := r.store.SearchKNN(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("search dense %s: %w", r.collection, err)
	}
	return r.parseEntries(sr), nil
}

// SearchSparse runs the lexical leg using the top-weighted sparse tokens as
// a weighted term disjunction.
func (r *Repo) SearchSparse(
	ctx context.Context, sparse domain.SparseVector, topTokens, breadth int, excludeIDs []string,
) ([]domain.Candidate, error) {
	tokens := sparse.TopTokens(topTokens)
	if len(tokens) == 0 {
		return nil, nil
	}

	terms := make([]db.WeightedTerm, 0, len(tokens))
	for _, tok := range tokens {
		terms = append(terms, db.WeightedTerm{Token: tok, Weight: sparse[tok]})
	}

	q := &db.LexicalQuery{
		IndexName:    r.indexName(),
		TextField:    "profile_text",
		Terms:        terms,
		TopK:         breadth,
		ReturnFields: returnFields,
	}
	if len(excludeIDs) > 0 {
		q.Exclude = &db.Exclusion{TagField: "user_id", IDs: excludeIDs}
	}

	sr, err := r.store.SearchLexical(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("search sparse %s: %w", r.collection, err)
	}
	return r.parseEntries(sr), nil
}

func (r *Repo) parseEntries(sr *db.SearchResult) []domain.Candidate {
	if sr == nil || len(sr.Entries) == 0 {
		return nil
	}

	prefix := r.keyPrefixFull()
	candidates := make([]domain.Candidate, 0, len(sr.Entries))
	for _, e := range sr.Entries {
		c := domain.Candidate{
			UserID:      strings.TrimPrefix(e.Key, prefix),
			Score:       e.Score,
			ProfileText: e.Fields["profile_text"],
		}
		if tags := e.Fields["tags"]; tags != "" {
			c.Tags = strings.Split(tags, ",")
		}
		candidates = append(candidates, c)
	}
	return candidates
}
