package domain

import "time"

// CasualRequest is the stored state of a user's live social request. At most
// one exists per user: each new submission replaces the prior record.
type CasualRequest struct {
	UserID         string
	OriginalText   string
	OptimizedText  string
	Activity       string
	TimeHint       string
	LocationHint   string
	LastActivityAt time.Time
}

// CasualMatch is the best-match selection for a casual request.
type CasualMatch struct {
	UserID               string
	Score                float64
	Reason               string
	ReceiverNotification string
	ShouldContact        bool
}

// SubmitReceipt acknowledges a stored casual request.
type SubmitReceipt struct {
	Stored        bool
	OptimizedText string
	Match         *CasualMatch
}

// ReapReport counts records removed by one reaper run.
type ReapReport struct {
	DeletedRelational int
	DeletedVector     int
}
