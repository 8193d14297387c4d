// Package swipes records swipe decisions and exposes the per-actor
// exclusion set consumed by retrieval.
package swipes

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	swiperepo "github.com/kindred-social/matchengine/internal/repository/swipes"
)

// Repository persists swipe events and exclusion sets.
type Repository interface {
	Append(ctx context.Context, rec swiperepo.Record) error
	SwipedTargetIDs(ctx context.Context, actorID string) ([]string, error)
}

// Service wraps swipe persistence with validation.
type Service struct {
	repo   Repository
	logger *zap.Logger
	now    func() time.Time
}

// New creates a swipe service.
func New(repo Repository, logger *zap.Logger) *Service {
	return &Service{repo: repo, logger: logger, now: time.Now}
}

// Record stores one swipe. Both directions feed the exclusion set: a
// judged profile is never surfaced to the same actor again.
func (s *Service) Record(ctx context.Context, actorID, targetID string, direction swiperepo.Direction) error {
	if direction != swiperepo.Like && direction != swiperepo.Pass {
		return fmt.Errorf("unknown swipe direction %q", direction)
	}
	return s.repo.Append(ctx, swiperepo.Record{
		ActorID:   actorID,
		TargetID:  targetID,
		Direction: direction,
		Timestamp: s.now(),
	})
}

// ExcludedTargets returns every user id the actor has already judged.
func (s *Service) ExcludedTargets(ctx context.Context, actorID string) ([]string, error) {
	return s.repo.SwipedTargetIDs(ctx, actorID)
}
