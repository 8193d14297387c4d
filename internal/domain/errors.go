package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrProfileNotFound signals a missing user profile record.
	ErrProfileNotFound = errors.New("profile not found")
	// ErrCasualRequestNotFound signals a missing casual request record.
	ErrCasualRequestNotFound = errors.New("casual request not found")
	// ErrEmbeddingProviderError signals an embedding provider failure.
	ErrEmbeddingProviderError = errors.New("embedding provider error")
	// ErrLLMProviderError signals a chat-completion provider failure.
	ErrLLMProviderError = errors.New("llm provider error")
	// ErrLLMMalformedOutput signals that the model returned output that could
	// not be parsed as the expected JSON structure.
	ErrLLMMalformedOutput = errors.New("llm returned malformed output")
	// ErrTokenBudgetExceeded signals an exhausted provider token budget.
	ErrTokenBudgetExceeded = errors.New("token budget exceeded")
	// ErrRateLimited signals a rate limit hit.
	ErrRateLimited = errors.New("rate limited")
)

// ParseError wraps ErrLLMMalformedOutput with the raw model output so callers
// can log what the model actually said before falling back.
type ParseError struct {
	Raw string
	Err error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("%s: %v", ErrLLMMalformedOutput.Error(), e.Err)
}

func (e *ParseError) Unwrap() error { return ErrLLMMalformedOutput }

// NewParseError creates a parse error carrying the raw model output.
func NewParseError(raw string, err error) error {
	return &ParseError{Raw: raw, Err: err}
}
