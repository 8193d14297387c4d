// Package matchengine provides an embedded, in-process client for the
// matching engine: the same repositories and services the HTTP server
// composes, wired directly over a Redis connection. It suits batch jobs
// and tools that already hold provider credentials and do not want to
// round-trip through the API.
package matchengine

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/kindred-social/matchengine/internal/db"
	dbRedis "github.com/kindred-social/matchengine/internal/db/redis"
	"github.com/kindred-social/matchengine/internal/domain"
	casualrepo "github.com/kindred-social/matchengine/internal/repository/casual"
	profilerepo "github.com/kindred-social/matchengine/internal/repository/profile"
	searchrepo "github.com/kindred-social/matchengine/internal/repository/search"
	swiperepo "github.com/kindred-social/matchengine/internal/repository/swipes"
	"github.com/kindred-social/matchengine/internal/sparse"
	casualuc "github.com/kindred-social/matchengine/internal/usecase/casual"
	profileuc "github.com/kindred-social/matchengine/internal/usecase/profile"
	searchuc "github.com/kindred-social/matchengine/internal/usecase/search"
	swipesuc "github.com/kindred-social/matchengine/internal/usecase/swipes"
)

const defaultReadinessTimeout = 10 * time.Second

// Embedder vectorizes text. Satisfied by any OpenAI-compatible embedding
// client; the caller supplies it so the embedded client stays free of
// provider credentials.
type Embedder = domain.Embedder

// Completer produces structured chat completions for the casual
// pipeline. Optional: without it, casual submissions store and pair on
// similarity alone.
type Completer = domain.StructuredCompleter

// Candidate, Profile and SubmitReceipt are re-exported domain types.
type (
	Candidate     = domain.Candidate
	Profile       = domain.Profile
	SubmitReceipt = domain.SubmitReceipt
)

// Options configures the embedded client.
type Options struct {
	Addrs     []string
	Username  string
	Password  string
	KeyPrefix string

	// Profiles and Casual name the two vector collections. Empty values
	// take the server defaults.
	Profiles string
	Casual   string

	VectorDim int
	Embedder  Embedder
	Completer Completer

	// SearchBreadth bounds ad-hoc Search calls; CasualBreadth bounds
	// pairing lookups.
	SearchBreadth int
	CasualBreadth int

	Logger *zap.Logger
}

func (o *Options) applyDefaults() {
	if o.KeyPrefix == "" {
		o.KeyPrefix = "matchengine:"
	}
	if o.Profiles == "" {
		o.Profiles = "profiles"
	}
	if o.Casual == "" {
		o.Casual = "casual_requests"
	}
	if o.SearchBreadth <= 0 {
		o.SearchBreadth = 50
	}
	if o.CasualBreadth <= 0 {
		o.CasualBreadth = 20
	}
	if o.Logger == nil {
		o.Logger = zap.NewNop()
	}
}

// Client is the embedded entry point.
type Client struct {
	store    db.Store
	profiles *profileuc.Service
	swipes   *swipesuc.Service
	search   *searchuc.Service
	casual   *casualuc.Service
	breadth  int
}

// New connects to Redis and assembles the engine services. The
// connection is verified before returning.
func New(ctx context.Context, opts Options) (*Client, error) {
	if len(opts.Addrs) == 0 {
		return nil, errors.New("at least one address is required")
	}
	if opts.VectorDim <= 0 {
		return nil, errors.New("vector dimensions are required")
	}
	if opts.Embedder == nil {
		return nil, errors.New("an embedder is required")
	}
	opts.applyDefaults()

	store, err := dbRedis.NewStore(dbRedis.Config{
		Addrs:    opts.Addrs,
		Username: opts.Username,
		Password: opts.Password,
	})
	if err != nil {
		return nil, fmt.Errorf("connect: %w", err)
	}
	if err := store.WaitForReady(ctx, defaultReadinessTimeout); err != nil {
		store.Close()
		return nil, fmt.Errorf("database not ready: %w", err)
	}

	profileRepo := profilerepo.New(store, opts.KeyPrefix, opts.Profiles, opts.VectorDim)
	casualRepo := casualrepo.New(store, opts.KeyPrefix, opts.Casual, opts.VectorDim)
	searchRepo := searchrepo.New(store, opts.KeyPrefix, opts.Profiles)
	swipeRepo := swiperepo.New(store, opts.KeyPrefix)

	if err := profileRepo.EnsureIndex(ctx); err != nil {
		store.Close()
		return nil, fmt.Errorf("ensure profile index: %w", err)
	}
	if err := casualRepo.EnsureIndex(ctx); err != nil {
		store.Close()
		return nil, fmt.Errorf("ensure casual index: %w", err)
	}

	enc := sparse.NewEncoder()

	return &Client{
		store:    store,
		profiles: profileuc.New(profileRepo, opts.Embedder, enc, opts.Logger),
		swipes:   swipesuc.New(swipeRepo, opts.Logger),
		search: searchuc.New(searchRepo, opts.Embedder, enc,
			searchuc.FusionRRF, 24, opts.Logger),
		casual: casualuc.New(casualRepo, opts.Completer, opts.Embedder,
			opts.CasualBreadth, 1, 0, opts.Logger),
		breadth: opts.SearchBreadth,
	}, nil
}

// Close releases the underlying connection.
func (c *Client) Close() {
	c.store.Close()
}

// SyncProfile embeds and stores a profile, replacing any existing record.
func (c *Client) SyncProfile(ctx context.Context, p Profile) error {
	return c.profiles.Sync(ctx, p)
}

// GetProfile returns a stored profile.
func (c *Client) GetProfile(ctx context.Context, userID string) (Profile, error) {
	return c.profiles.Get(ctx, userID)
}

// DeactivateProfile removes a user from the index.
func (c *Client) DeactivateProfile(ctx context.Context, userID string) error {
	return c.profiles.Deactivate(ctx, userID)
}

// RecordSwipe stores one swipe decision. direction is "like" or "pass".
func (c *Client) RecordSwipe(ctx context.Context, actorID, targetID, direction string) error {
	return c.swipes.Record(ctx, actorID, targetID, swiperepo.Direction(direction))
}

// Search runs one hybrid retrieval pass over the profile index,
// excluding the requester and their swipe history.
func (c *Client) Search(ctx context.Context, requesterID, query string) ([]Candidate, error) {
	exclude := []string{requesterID}
	swiped, err := c.swipes.ExcludedTargets(ctx, requesterID)
	if err != nil {
		return nil, fmt.Errorf("swipe history: %w", err)
	}
	exclude = append(exclude, swiped...)

	return c.search.Search(ctx, searchuc.Query{
		Text:       query,
		Breadth:    c.breadth,
		ExcludeIDs: exclude,
	})
}

// SubmitCasual stores a casual request and attempts to pair it.
func (c *Client) SubmitCasual(ctx context.Context, userID, text, lang string) (SubmitReceipt, error) {
	return c.casual.Submit(ctx, userID, text, lang)
}
