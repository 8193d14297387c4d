package domain

import "github.com/kindred-social/matchengine/internal/domain/intent"

// UnifiedResult is the response envelope shared by all four conversation
// paths. Matches is populated for search/casual, Answer for inquiry/chat.
// ReceiverNotification, when present, is extractable regardless of the path
// that produced it.
type UnifiedResult struct {
	Intent               intent.Intent
	Language             string
	Matches              []MatchResult
	Answer               string
	ReceiverNotification string
}

// Notification returns the receiver-facing text for this result: the
// top-level field when set, otherwise the first selected match's.
func (r *UnifiedResult) Notification() string {
	if r.ReceiverNotification != "" {
		return r.ReceiverNotification
	}
	if len(r.Matches) > 0 {
		return r.Matches[0].ReceiverNotification
	}
	return ""
}
