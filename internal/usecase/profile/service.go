// Package profile keeps the searchable profile index in step with user
// state: sync on create or update, delete on deactivation.
package profile

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/kindred-social/matchengine/internal/domain"
)

// Service maintains profile vector records.
type Service struct {
	repo   Repository
	embed  Embedder
	sparse SparseEncoder
	logger *zap.Logger
	now    func() time.Time
}

// New creates a profile service.
func New(repo Repository, embed Embedder, sparse SparseEncoder, logger *zap.Logger) *Service {
	return &Service{repo: repo, embed: embed, sparse: sparse, logger: logger, now: time.Now}
}

// Sync embeds p's text and writes the record, replacing any existing one.
func (s *Service) Sync(ctx context.Context, p domain.Profile) error {
	if p.UserID == "" {
		return fmt.Errorf("user id is required")
	}
	if strings.TrimSpace(p.ProfileText) == "" {
		return fmt.Errorf("profile text is required")
	}
	if p.LastUpdated.IsZero() {
		p.LastUpdated = s.now()
	}

	embResult, err := s.embed.Embed(ctx, p.ProfileText)
	if err != nil {
		return fmt.Errorf("vectorize profile: %w", err)
	}

	sparse := s.sparse.Encode(p.ProfileText)

	if err := s.repo.Upsert(ctx, p, embResult.Embedding, sparse); err != nil {
		return err
	}

	s.logger.Debug("profile synced",
		zap.String("user_id", p.UserID),
		zap.Int("sparse_tokens", len(sparse)))
	return nil
}

// Get returns the stored profile payload.
func (s *Service) Get(ctx context.Context, userID string) (domain.Profile, error) {
	return s.repo.Get(ctx, userID)
}

// ProfileText returns the stored free text for a user.
func (s *Service) ProfileText(ctx context.Context, userID string) (string, error) {
	return s.repo.ProfileText(ctx, userID)
}

// Deactivate removes the user's record from the index.
func (s *Service) Deactivate(ctx context.Context, userID string) error {
	if err := s.repo.Delete(ctx, userID); err != nil {
		return err
	}
	s.logger.Debug("profile deactivated", zap.String("user_id", userID))
	return nil
}
