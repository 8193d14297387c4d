// Package intent defines the closed set of conversation intents produced by
// the classifier and consumed by the orchestrator's routing switch.
package intent

import "fmt"

// Intent is the conversation intent category.
type Intent string

// Intent constants. The set is closed: the orchestrator switches exhaustively
// over these four values.
const (
	// Search is a people search with enumerable criteria (skills, role, location).
	Search Intent = "search"
	// Inquiry is a question about a specific referenced person.
	Inquiry Intent = "inquiry"
	// Chat is general conversation with no retrieval.
	Chat Intent = "chat"
	// Casual is a social/activity request (movie, dinner, sports).
	Casual Intent = "casual"
)

// IsValid checks if the intent is one of the supported values.
func (i Intent) IsValid() bool {
	return i == Search || i == Inquiry || i == Chat || i == Casual
}

func (i Intent) String() string { return string(i) }

// Parse converts a raw classifier label into an Intent.
func Parse(s string) (Intent, error) {
	i := Intent(s)
	if !i.IsValid() {
		return "", fmt.Errorf("unknown intent %q", s)
	}
	return i, nil
}

// Classification is the classifier output: exactly one intent, a confidence
// in [0,1], and a short human-readable rationale.
type Classification struct {
	Intent     Intent
	Confidence float64
	Rationale  string
}
