// Package chi exposes the matching engine over HTTP. Handlers stay thin:
// decode, validate, delegate to a use case, map domain errors onto the
// uniform error payload.
package chi

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/kindred-social/matchengine/internal/domain"
	swiperepo "github.com/kindred-social/matchengine/internal/repository/swipes"
	casualuc "github.com/kindred-social/matchengine/internal/usecase/casual"
	conversationuc "github.com/kindred-social/matchengine/internal/usecase/conversation"
	healthuc "github.com/kindred-social/matchengine/internal/usecase/health"
	profileuc "github.com/kindred-social/matchengine/internal/usecase/profile"
	swipesuc "github.com/kindred-social/matchengine/internal/usecase/swipes"
	usageuc "github.com/kindred-social/matchengine/internal/usecase/usage"
)

// errorHandler tries to handle a domain error. Returns true if handled.
type errorHandler func(w http.ResponseWriter, err error, msg string) bool

// Server hosts the HTTP API.
type Server struct {
	conversations *conversationuc.Service
	casual        *casualuc.Service
	reaper        *casualuc.Reaper
	profiles      *profileuc.Service
	swipes        *swipesuc.Service
	usage         *usageuc.Service
	health        *healthuc.Service
	logger        *zap.Logger
	errorHandlers []errorHandler
}

// NewServer creates an HTTP API server.
func NewServer(
	conversations *conversationuc.Service,
	casual *casualuc.Service,
	reaper *casualuc.Reaper,
	profiles *profileuc.Service,
	swipes *swipesuc.Service,
	usage *usageuc.Service,
	health *healthuc.Service,
	logger *zap.Logger,
) *Server {
	s := &Server{
		conversations: conversations,
		casual:        casual,
		reaper:        reaper,
		profiles:      profiles,
		swipes:        swipes,
		usage:         usage,
		health:        health,
		logger:        logger,
	}
	s.errorHandlers = []errorHandler{
		sentinelHandler(domain.ErrProfileNotFound, http.StatusNotFound, CodeProfileNotFound),
		sentinelHandler(domain.ErrCasualRequestNotFound, http.StatusNotFound, CodeCasualRequestNotFound),
		sentinelHandler(domain.ErrRateLimited, http.StatusTooManyRequests, CodeRateLimited),
		sentinelHandler(domain.ErrTokenBudgetExceeded, http.StatusPaymentRequired, CodeTokenBudgetExceeded),
		sentinelHandler(domain.ErrEmbeddingProviderError, http.StatusBadGateway, CodeEmbeddingProviderError),
		sentinelHandler(domain.ErrLLMProviderError, http.StatusBadGateway, CodeLLMProviderError),
	}
	return s
}

// Routes registers the API on r.
func (s *Server) Routes(r chi.Router) {
	r.Get("/health", s.Health)
	r.Get("/metrics", s.Metrics)

	r.Route("/v1", func(r chi.Router) {
		r.Post("/conversations", s.CreateConversation)
		r.Post("/swipes", s.CreateSwipe)
		r.Post("/casual-requests", s.SubmitCasualRequest)
		r.Post("/reaper/run", s.RunReaper)
		r.Get("/usage", s.GetUsage)

		r.Route("/profiles/{userID}", func(r chi.Router) {
			r.Put("/", s.SyncProfile)
			r.Get("/", s.GetProfile)
			r.Delete("/", s.DeactivateProfile)
		})
	})
}

// CreateConversation handles POST /v1/conversations.
func (s *Server) CreateConversation(w http.ResponseWriter, r *http.Request) {
	var req ConversationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, CodeBadRequest, "Invalid request body: "+err.Error())
		return
	}
	if req.UserID == "" || req.Message == "" {
		writeError(w, http.StatusBadRequest, CodeValidationFailed, "user_id and message are required")
		return
	}

	result, err := s.conversations.Handle(r.Context(), conversationuc.Input{
		RequesterID:      req.UserID,
		Text:             req.Message,
		ReferencedID:     req.ReferencedID,
		ExcludeIDs:       req.ExcludeIDs,
		RequesterContext: req.RequesterContext,
	})
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, ConversationResponse{
		Intent:               result.Intent.String(),
		Language:             result.Language,
		Matches:              matchesToDTO(result.Matches),
		Answer:               result.Answer,
		ReceiverNotification: result.Notification(),
	})
}

// CreateSwipe handles POST /v1/swipes.
func (s *Server) CreateSwipe(w http.ResponseWriter, r *http.Request) {
	var req SwipeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, CodeBadRequest, "Invalid request body: "+err.Error())
		return
	}
	if req.ActorID == "" || req.TargetID == "" {
		writeError(w, http.StatusBadRequest, CodeValidationFailed, "actor_id and target_id are required")
		return
	}
	direction := swiperepo.Direction(req.Direction)
	if direction != swiperepo.Like && direction != swiperepo.Pass {
		writeError(w, http.StatusBadRequest, CodeValidationFailed, "direction must be like or pass")
		return
	}

	if err := s.swipes.Record(r.Context(), req.ActorID, req.TargetID, direction); err != nil {
		s.handleDomainError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// SubmitCasualRequest handles POST /v1/casual-requests.
func (s *Server) SubmitCasualRequest(w http.ResponseWriter, r *http.Request) {
	var req CasualSubmitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, CodeBadRequest, "Invalid request body: "+err.Error())
		return
	}
	if req.UserID == "" || req.Message == "" {
		writeError(w, http.StatusBadRequest, CodeValidationFailed, "user_id and message are required")
		return
	}

	receipt, err := s.casual.Submit(r.Context(), req.UserID, req.Message, conversationuc.DetectLanguage(req.Message))
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	resp := CasualSubmitResponse{Stored: receipt.Stored, OptimizedText: receipt.OptimizedText}
	if m := receipt.Match; m != nil {
		resp.Match = &CasualMatchDTO{
			UserID:               m.UserID,
			Score:                m.Score,
			Reason:               m.Reason,
			ReceiverNotification: m.ReceiverNotification,
			ShouldContact:        m.ShouldContact,
		}
	}
	writeJSON(w, http.StatusCreated, resp)
}

// RunReaper handles POST /v1/reaper/run: a manual, synchronous reap.
func (s *Server) RunReaper(w http.ResponseWriter, r *http.Request) {
	report, err := s.reaper.Reap(r.Context())
	if err != nil {
		s.handleDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, ReapResponse{
		DeletedRelational: report.DeletedRelational,
		DeletedVector:     report.DeletedVector,
	})
}

// SyncProfile handles PUT /v1/profiles/{userID}.
func (s *Server) SyncProfile(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userID")

	var req ProfileSyncRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, CodeBadRequest, "Invalid request body: "+err.Error())
		return
	}
	if req.ProfileText == "" {
		writeError(w, http.StatusBadRequest, CodeValidationFailed, "profile_text is required")
		return
	}

	err := s.profiles.Sync(r.Context(), domain.Profile{
		UserID:      userID,
		ProfileText: req.ProfileText,
		Tags:        req.Tags,
	})
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// GetProfile handles GET /v1/profiles/{userID}.
func (s *Server) GetProfile(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userID")

	p, err := s.profiles.Get(r.Context(), userID)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, ProfileResponse{
		UserID:      p.UserID,
		ProfileText: p.ProfileText,
		Tags:        p.Tags,
		LastUpdated: p.LastUpdated,
	})
}

// DeactivateProfile handles DELETE /v1/profiles/{userID}.
func (s *Server) DeactivateProfile(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userID")

	if err := s.profiles.Deactivate(r.Context(), userID); err != nil {
		s.handleDomainError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// GetUsage handles GET /v1/usage.
func (s *Server) GetUsage(w http.ResponseWriter, r *http.Request) {
	period := r.URL.Query().Get("period")
	if period == "" {
		period = usageuc.PeriodDay
	}
	writeJSON(w, http.StatusOK, s.usage.GetReport(r.Context(), period))
}

// Health handles GET /health.
func (s *Server) Health(w http.ResponseWriter, r *http.Request) {
	report := s.health.Check(r.Context())

	status := http.StatusOK
	if report.Status != healthuc.Healthy {
		status = http.StatusServiceUnavailable
	}

	writeJSON(w, status, map[string]any{
		"status": report.Status,
		"checks": report.Checks,
	})
}

// Metrics handles GET /metrics.
func (s *Server) Metrics(w http.ResponseWriter, r *http.Request) {
	promhttp.Handler().ServeHTTP(w, r)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code ErrorResponseCode, message string) {
	writeJSON(w, status, ErrorResponse{
		Code:    code,
		Message: message,
	})
}

// safeDomainMessage returns a sentinel error message for the client without exposing internals.
func safeDomainMessage(err error) string {
	sentinels := []error{
		domain.ErrProfileNotFound,
		domain.ErrCasualRequestNotFound,
		domain.ErrRateLimited,
		domain.ErrTokenBudgetExceeded,
		domain.ErrEmbeddingProviderError,
		domain.ErrLLMProviderError,
	}
	for _, s := range sentinels {
		if errors.Is(err, s) {
			return s.Error()
		}
	}
	return "internal error"
}

// sentinelHandler returns an errorHandler that matches a single sentinel error.
func sentinelHandler(sentinel error, status int, code ErrorResponseCode) errorHandler {
	return func(w http.ResponseWriter, err error, msg string) bool {
		if !errors.Is(err, sentinel) {
			return false
		}
		writeError(w, status, code, msg)
		return true
	}
}

func (s *Server) handleDomainError(w http.ResponseWriter, err error) {
	s.logger.Warn("domain error", zap.Error(err))
	msg := safeDomainMessage(err)
	for _, h := range s.errorHandlers {
		if h(w, err, msg) {
			return
		}
	}
	s.logger.Error("internal error", zap.Error(err))
	writeError(w, http.StatusInternalServerError, CodeInternalError, "internal error")
}
