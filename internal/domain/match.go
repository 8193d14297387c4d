package domain

import "time"

// Candidate is a single retrieval hit: a user surfaced by vector search
// before quality assessment.
type Candidate struct {
	UserID      string
	Score       float64
	ProfileText string
	Tags        []string
}

// Profile is the payload of a user vector record. One record exists per
// active user; it is replaced on profile change and removed on deactivation.
type Profile struct {
	UserID      string
	ProfileText string
	Tags        []string
	LastUpdated time.Time
}

// MatchResult is one selected match with requester- and receiver-facing text.
type MatchResult struct {
	UserID string
	// MatchScore is the assessed fit on a 1-10 scale.
	MatchScore float64
	// KeyStrengths lists what makes this candidate fit the query.
	KeyStrengths []string
	// MatchReason explains the match to the requester. Never empty.
	MatchReason string
	// ReceiverNotification explains the match to the matched user. Never empty.
	ReceiverNotification string
}

// Quality is the assessor's judgement of a candidate set.
type Quality string

// Quality labels. Unknown labels from the model normalize to Fair, which
// keeps the progressive controller escalating.
const (
	QualityExcellent Quality = "excellent"
	QualityGood      Quality = "good"
	QualityFair      Quality = "fair"
	QualityPoor      Quality = "poor"
)

// ParseQuality normalizes a raw model label into a Quality.
func ParseQuality(s string) Quality {
	switch Quality(s) {
	case QualityExcellent, QualityGood, QualityFair, QualityPoor:
		return Quality(s)
	default:
		return QualityFair
	}
}

// Sufficient reports whether this quality level stops tier escalation.
func (q Quality) Sufficient() bool {
	return q == QualityExcellent || q == QualityGood
}

// Assessment is the quality assessor output for one candidate set.
type Assessment struct {
	OverallQuality Quality
	ShouldContinue bool
	Selected       []MatchResult
	Analysis       string
	// Intro is a requester-facing summary sentence for the selection.
	Intro string
}
