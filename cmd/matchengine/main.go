package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/kindred-social/matchengine/internal/config"
	"github.com/kindred-social/matchengine/internal/db"
	dbRedis "github.com/kindred-social/matchengine/internal/db/redis"
	"github.com/kindred-social/matchengine/internal/domain"
	logpkg "github.com/kindred-social/matchengine/internal/logger"
	"github.com/kindred-social/matchengine/internal/metrics"
	budgetrepo "github.com/kindred-social/matchengine/internal/repository/budget"
	casualrepo "github.com/kindred-social/matchengine/internal/repository/casual"
	"github.com/kindred-social/matchengine/internal/repository/embcache"
	profilerepo "github.com/kindred-social/matchengine/internal/repository/profile"
	searchrepo "github.com/kindred-social/matchengine/internal/repository/search"
	swiperepo "github.com/kindred-social/matchengine/internal/repository/swipes"
	"github.com/kindred-social/matchengine/internal/sparse"
	chiTransport "github.com/kindred-social/matchengine/internal/transport/chi"
	openaiTransport "github.com/kindred-social/matchengine/internal/transport/openai"
	"github.com/kindred-social/matchengine/internal/usecase/assess"
	casualuc "github.com/kindred-social/matchengine/internal/usecase/casual"
	"github.com/kindred-social/matchengine/internal/usecase/classify"
	conversationuc "github.com/kindred-social/matchengine/internal/usecase/conversation"
	embeddinguc "github.com/kindred-social/matchengine/internal/usecase/embedding"
	healthuc "github.com/kindred-social/matchengine/internal/usecase/health"
	matchuc "github.com/kindred-social/matchengine/internal/usecase/match"
	"github.com/kindred-social/matchengine/internal/usecase/optimize"
	profileuc "github.com/kindred-social/matchengine/internal/usecase/profile"
	searchuc "github.com/kindred-social/matchengine/internal/usecase/search"
	swipesuc "github.com/kindred-social/matchengine/internal/usecase/swipes"
	usageuc "github.com/kindred-social/matchengine/internal/usecase/usage"
	"github.com/kindred-social/matchengine/internal/version"
)

func main() {
	// Load configuration based on ENV
	env := config.GetEnv()

	cfg, err := config.Load(env)
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	logger, err := logpkg.NewLogger(env, cfg.Logging.Level)
	if err != nil {
		panic("failed to create logger: " + err.Error())
	}
	defer func() { _ = logger.Sync() }()

	logger.Info("Starting matchengine API server",
		zap.String("version", version.Version),
		zap.String("commit", version.Commit),
		zap.String("env", env),
		zap.Int("http_port", cfg.HTTP.Port),
		zap.Strings("db_addrs", cfg.Database.Addrs),
	)

	store, err := dbRedis.NewStore(dbRedis.Config{
		Addrs:    cfg.Database.Addrs,
		Username: cfg.Database.Username,
		Password: cfg.Database.Password,
	})
	if err != nil {
		logger.Fatal("Failed to create database store", zap.Error(err))
	}
	defer store.Close()

	// Wait for database to be ready
	ctx := context.Background()
	if err := store.WaitForReady(ctx, time.Duration(cfg.Database.ReadinessTimeout)*time.Second); err != nil {
		logger.Fatal("Database not ready", zap.Error(err))
	}
	logger.Info("Connected to database")

	// Register metrics explicitly (no init())
	metrics.RegisterEmbeddingMetrics()
	metrics.RegisterLLMMetrics()

	keyPrefix := cfg.Database.KeyPrefix

	// Single BudgetTracker shared by the embedder and the LLM client.
	var budget *embeddinguc.BudgetTracker
	budgetCfg := cfg.Embedding.Budget
	if budgetCfg.DailyTokenLimit > 0 || budgetCfg.MonthlyTokenLimit > 0 {
		action := embeddinguc.BudgetActionWarn
		if budgetCfg.Action == "reject" {
			action = embeddinguc.BudgetActionReject
		}
		budget = embeddinguc.NewBudgetTracker(
			keyPrefix, "openai", budgetCfg.DailyTokenLimit, budgetCfg.MonthlyTokenLimit, action, logger,
		)
		// Connect persistence store, loading current counters from DB.
		budgetStore := budgetrepo.New(store, 48*time.Hour, 62*24*time.Hour)
		budget.WithStore(ctx, budgetStore)
	}

	// Pass nil interface (not typed nil pointer!) if budget is not configured.
	// Go gotcha: (*BudgetTracker)(nil) wrapped in BudgetChecker != nil.
	var budgetChecker embeddinguc.BudgetChecker
	if budget != nil {
		budgetChecker = budget
	}

	embedder := buildEmbedder(cfg.Embedding, keyPrefix, store, budgetChecker, logger)
	logger.Info("Embedder created",
		zap.String("model", cfg.Embedding.Model),
		zap.Int("dimensions", cfg.Embedding.Dimensions),
	)

	llmBase := openaiTransport.NewLLM(&openaiTransport.LLMConfig{
		APIKey:      cfg.LLM.APIKey,
		BaseURL:     cfg.LLM.BaseURL,
		Model:       cfg.LLM.Model,
		Temperature: cfg.LLM.Temperature,
		MaxTokens:   cfg.LLM.MaxTokens,
		Logger:      logger,
	})
	llm := embeddinguc.NewInstrumentedCompleter(llmBase, "openai", budgetChecker, logger)
	logger.Info("LLM client created", zap.String("model", cfg.LLM.Model))

	// Repositories
	vectorDim := cfg.Embedding.Dimensions
	profileRepo := profilerepo.New(store, keyPrefix, cfg.Collections.Profiles, vectorDim)
	casualRepo := casualrepo.New(store, keyPrefix, cfg.Collections.Casual, vectorDim)
	searchRepo := searchrepo.New(store, keyPrefix, cfg.Collections.Profiles)
	swipeRepo := swiperepo.New(store, keyPrefix)

	if err := profileRepo.EnsureIndex(ctx); err != nil {
		logger.Fatal("Failed to ensure profile index", zap.Error(err))
	}
	if err := casualRepo.EnsureIndex(ctx); err != nil {
		logger.Fatal("Failed to ensure casual index", zap.Error(err))
	}

	sparseEncoder := sparse.NewEncoder()
	retryMax := cfg.LLM.RetryMax
	retryBackoff := time.Duration(cfg.LLM.RetryBackoffMS) * time.Millisecond

	tiers := make([]int, len(cfg.Search.Tiers))
	for i, t := range cfg.Search.Tiers {
		tiers[i] = t.Breadth
	}

	// Use case services
	classifySvc := classify.New(llm, retryMax, retryBackoff, logger)
	optimizeSvc := optimize.New(llm, retryMax, retryBackoff, logger)
	searchSvc := searchuc.New(searchRepo, embedder, sparseEncoder,
		cfg.Search.Fusion, cfg.Search.SparseTopTokens, logger)
	assessSvc := assess.New(llm, cfg.Search.MaxResults, retryMax, retryBackoff, logger)
	matchSvc := matchuc.New(searchSvc, assessSvc, tiers, cfg.Search.MaxResults, logger)
	profileSvc := profileuc.New(profileRepo, embedder, sparseEncoder, logger)
	swipeSvc := swipesuc.New(swipeRepo, logger)
	casualSvc := casualuc.New(casualRepo, llm, embedder,
		cfg.Casual.SearchBreadth, retryMax, retryBackoff, logger)
	reaper := casualuc.NewReaper(casualRepo,
		time.Duration(cfg.Casual.RetentionDays)*24*time.Hour, cfg.Casual.ReapPageSize, logger)
	conversationSvc := conversationuc.New(
		classifySvc, optimizeSvc, matchSvc, casualSvc, swipeSvc, profileSvc,
		llm, retryMax, retryBackoff, logger,
	)

	// Usage service reads from the shared BudgetTracker
	var budgetReader usageuc.BudgetReader
	if budget != nil {
		budgetReader = budget
	}
	usageSvc := usageuc.New(budgetReader)

	// Health service
	healthSvc := healthuc.New(store, newEmbeddingHealthChecker(embedder), llmBase)

	server := chiTransport.NewServer(
		conversationSvc, casualSvc, reaper, profileSvc, swipeSvc, usageSvc, healthSvc, logger,
	)

	r := chi.NewRouter()
	r.Use(jsonRecoverer(logger))
	r.Use(chiMiddleware.RequestID)
	r.Use(wideEventMiddleware(logger))
	r.Use(chiMiddleware.Timeout(time.Duration(cfg.HTTP.RequestDeadline) * time.Second))
	r.Use(chiTransport.BearerAuthMiddleware(cfg.Auth.APIKeys))
	r.Use(metrics.Middleware())
	server.Routes(r)

	// Background reaper
	reaperCtx, stopReaper := context.WithCancel(ctx)
	go reaper.RunPeriodic(reaperCtx, time.Duration(cfg.Casual.ReapIntervalMin)*time.Minute)

	addr := fmt.Sprintf(":%d", cfg.HTTP.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  time.Duration(cfg.HTTP.ReadTimeoutSec) * time.Second,
		WriteTimeout: time.Duration(cfg.HTTP.WriteTimeoutSec) * time.Second,
	}

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

	go func() {
		logger.Info("Starting HTTP server", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("HTTP server error", zap.Error(err))
		}
	}()

	<-quit
	logger.Info("Received shutdown signal")
	stopReaper()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.HTTP.ShutdownSec)*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Error during shutdown", zap.Error(err))
	}

	logger.Info("Server stopped gracefully")
}

// embeddingHealthChecker wraps domain.Embedder to implement health.EmbeddingChecker.
type embeddingHealthChecker struct {
	embedder domain.Embedder
}

func newEmbeddingHealthChecker(embedder domain.Embedder) *embeddingHealthChecker {
	return &embeddingHealthChecker{embedder: embedder}
}

func (h *embeddingHealthChecker) HealthCheck(ctx context.Context) error {
	if hc, ok := h.embedder.(domain.HealthChecker); ok {
		if err := hc.HealthCheck(ctx); err != nil {
			return fmt.Errorf("embedding health check: %w", err)
		}
	}
	return nil
}

// buildEmbedder assembles the decorator chain: OpenAI -> Cached -> Instrumented -> Instruction
func buildEmbedder(
	embCfg config.EmbeddingConfig,
	keyPrefix string,
	store db.Store,
	budget embeddinguc.BudgetChecker,
	logger *zap.Logger,
) domain.Embedder {
	// Base provider (with transport metrics built-in)
	base := openaiTransport.NewEmbedder(&openaiTransport.Config{
		APIKey:     embCfg.APIKey,
		BaseURL:    embCfg.BaseURL,
		Model:      embCfg.Model,
		Dimensions: embCfg.Dimensions,
		Provider:   "openai",
		Logger:     logger,
	})

	// Cached
	var embedder domain.Embedder = base
	if store != nil {
		embedder = embcache.New(base, store, keyPrefix, metrics.EmbeddingCacheTotal, logger)
	}

	// Instrumented (budget + metrics)
	embedder = embeddinguc.NewInstrumentedEmbedder(
		embedder, "openai", embCfg.Model, budget, logger,
	)

	// Instruction prefix (outermost: cache key includes instruction)
	if embCfg.QueryInstruction != "" {
		return domain.NewInstructionEmbedder(embedder, embCfg.QueryInstruction)
	}

	return embedder
}

// jsonRecoverer is a recovery middleware that returns JSON instead of a plain text stacktrace.
func jsonRecoverer(logger *zap.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if rvr := recover(); rvr != nil {
					logger.Error("panic recovered",
						zap.Any("panic", rvr),
						zap.Stack("stacktrace"),
					)
					w.Header().Set("Content-Type", "application/json")
					w.WriteHeader(http.StatusInternalServerError)
					_ = json.NewEncoder(w).Encode(map[string]string{
						"code":    "internal_error",
						"message": "internal error",
					})
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}

// wideEventMiddleware emits a canonical log line per request and propagates X-Request-ID.
func wideEventMiddleware(logger *zap.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			// chi.middleware.RequestID already placed request_id in context
			requestID := chiMiddleware.GetReqID(r.Context())

			if requestID != "" {
				w.Header().Set("X-Request-ID", requestID)
			}

			// Per-request logger with request_id
			reqLogger := logger.With(zap.String("request_id", requestID))
			ctx := logpkg.ContextWithLogger(r.Context(), reqLogger)

			ww := chiMiddleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r.WithContext(ctx))

			// Canonical log line, one per request
			reqLogger.Info("http_request",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", ww.Status()),
				zap.Duration("latency", time.Since(start)),
				zap.String("ip", r.RemoteAddr),
				zap.Int64("content_length", r.ContentLength),
				zap.String("user_agent", r.UserAgent()),
				zap.Int("response_bytes", ww.BytesWritten()),
			)
		})
	}
}
