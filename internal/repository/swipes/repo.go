// Package swipes keeps the append-only swipe log. Individual events are never
// read back by the matching engine; only the aggregate per-actor target set
// is consumed, as the hard exclusion filter for retrieval.
package swipes

import (
	"context"
	"encoding/json"
	"fmt"
	"time"
)

// store is the consumer interface for swipe log operations (ISP).
type store interface {
	SAdd(ctx context.Context, key string, members ...string) error
	SMembers(ctx context.Context, key string) ([]string, error)
	RPush(ctx context.Context, key string, values ...string) error
}

// Direction is the swipe direction.
type Direction string

// Swipe directions.
const (
	Like Direction = "like"
	Pass Direction = "pass"
)

// Record is one swipe event.
type Record struct {
	ActorID   string    `json:"actor_id"`
	TargetID  string    `json:"target_id"`
	Direction Direction `json:"direction"`
	Timestamp time.Time `json:"timestamp"`
}

// Repo implements the swipe-history store.
type Repo struct {
	store     store
	keyPrefix string
}

// New creates a swipe-history repository.
func New(s store, keyPrefix string) *Repo {
	return &Repo{store: s, keyPrefix: keyPrefix}
}

func (r *Repo) logKey(actorID string) string {
	return fmt.Sprintf("%sswipes:log:%s", r.keyPrefix, actorID)
}

func (r *Repo) targetsKey(actorID string) string {
	return fmt.Sprintf("%sswipes:targets:%s", r.keyPrefix, actorID)
}

// Append records a swipe: the event goes to the per-actor log, the target id
// to the per-actor exclusion set. The log is append-only; nothing is ever
// removed from either structure.
func (r *Repo) Append(ctx context.Context, rec Record) error {
	if rec.ActorID == "" || rec.TargetID == "" {
		return fmt.Errorf("actor and target ids are required")
	}
	if rec.Timestamp.IsZero() {
		rec.Timestamp = time.Now().UTC()
	}

	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("encode swipe: %w", err)
	}

	if err := r.store.RPush(ctx, r.logKey(rec.ActorID), string(data)); err != nil {
		return fmt.Errorf("append swipe log: %w", err)
	}
	if err := r.store.SAdd(ctx, r.targetsKey(rec.ActorID), rec.TargetID); err != nil {
		return fmt.Errorf("add swipe target: %w", err)
	}
	return nil
}

// SwipedTargetIDs returns every target the actor has ever swiped, in no
// particular order.
func (r *Repo) SwipedTargetIDs(ctx context.Context, actorID string) ([]string, error) {
	ids, err := r.store.SMembers(ctx, r.targetsKey(actorID))
	if err != nil {
		return nil, fmt.Errorf("swiped targets %s: %w", actorID, err)
	}
	return ids, nil
}
