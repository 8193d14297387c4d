package chi

import (
	"time"

	"github.com/kindred-social/matchengine/internal/domain"
)

// ErrorResponseCode enumerates machine-readable API error codes.
type ErrorResponseCode string

// API error codes.
const (
	CodeBadRequest             ErrorResponseCode = "bad_request"
	CodeValidationFailed       ErrorResponseCode = "validation_failed"
	CodeUnauthorized           ErrorResponseCode = "unauthorized"
	CodeProfileNotFound        ErrorResponseCode = "profile_not_found"
	CodeCasualRequestNotFound  ErrorResponseCode = "casual_request_not_found"
	CodeRateLimited            ErrorResponseCode = "rate_limited"
	CodeTokenBudgetExceeded    ErrorResponseCode = "token_budget_exceeded"
	CodeEmbeddingProviderError ErrorResponseCode = "embedding_provider_error"
	CodeLLMProviderError       ErrorResponseCode = "llm_provider_error"
	CodeInternalError          ErrorResponseCode = "internal_error"
)

// ErrorResponse is the uniform error payload.
type ErrorResponse struct {
	Code    ErrorResponseCode `json:"code"`
	Message string            `json:"message"`
}

// ConversationRequest is the POST /v1/conversations payload.
type ConversationRequest struct {
	UserID       string   `json:"user_id"`
	Message      string   `json:"message"`
	ReferencedID string   `json:"referenced_id,omitempty"`
	ExcludeIDs   []string `json:"exclude_ids,omitempty"`
	// RequesterContext is an optional summary of the requester passed to
	// intent classification.
	RequesterContext string `json:"requester_context,omitempty"`
}

// MatchDTO is one selected match in API responses.
type MatchDTO struct {
	UserID               string   `json:"user_id"`
	MatchScore           float64  `json:"match_score"`
	KeyStrengths         []string `json:"key_strengths,omitempty"`
	MatchReason          string   `json:"match_reason,omitempty"`
	ReceiverNotification string   `json:"receiver_notification,omitempty"`
}

// ConversationResponse is the unified envelope returned by every
// conversation path.
type ConversationResponse struct {
	Intent               string     `json:"intent"`
	Language             string     `json:"language"`
	Matches              []MatchDTO `json:"matches,omitempty"`
	Answer               string     `json:"answer,omitempty"`
	ReceiverNotification string     `json:"receiver_notification,omitempty"`
}

// SwipeRequest is the POST /v1/swipes payload.
type SwipeRequest struct {
	ActorID   string `json:"actor_id"`
	TargetID  string `json:"target_id"`
	Direction string `json:"direction"`
}

// CasualSubmitRequest is the POST /v1/casual-requests payload.
type CasualSubmitRequest struct {
	UserID  string `json:"user_id"`
	Message string `json:"message"`
}

// CasualMatchDTO mirrors a casual pairing result.
type CasualMatchDTO struct {
	UserID               string  `json:"user_id"`
	Score                float64 `json:"score"`
	Reason               string  `json:"reason,omitempty"`
	ReceiverNotification string  `json:"receiver_notification,omitempty"`
	ShouldContact        bool    `json:"should_contact"`
}

// CasualSubmitResponse acknowledges a stored casual request.
type CasualSubmitResponse struct {
	Stored        bool            `json:"stored"`
	OptimizedText string          `json:"optimized_text"`
	Match         *CasualMatchDTO `json:"match,omitempty"`
}

// ReapResponse reports one reaper run.
type ReapResponse struct {
	DeletedRelational int `json:"deleted_relational"`
	DeletedVector     int `json:"deleted_vector"`
}

// ProfileSyncRequest is the PUT /v1/profiles/{userID} payload.
type ProfileSyncRequest struct {
	ProfileText string   `json:"profile_text"`
	Tags        []string `json:"tags,omitempty"`
}

// ProfileResponse is the stored profile payload.
type ProfileResponse struct {
	UserID      string    `json:"user_id"`
	ProfileText string    `json:"profile_text"`
	Tags        []string  `json:"tags,omitempty"`
	LastUpdated time.Time `json:"last_updated"`
}

func matchesToDTO(matches []domain.MatchResult) []MatchDTO {
	if len(matches) == 0 {
		return nil
	}
	out := make([]MatchDTO, len(matches))
	for i, m := range matches {
		out[i] = MatchDTO{
			UserID:               m.UserID,
			MatchScore:           m.MatchScore,
			KeyStrengths:         m.KeyStrengths,
			MatchReason:          m.MatchReason,
			ReceiverNotification: m.ReceiverNotification,
		}
	}
	return out
}
