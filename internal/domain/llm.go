package domain

import "context"

// Pipeline stage names carried in ChatRequest.Op.
const (
	OpClassify    = "classify"
	OpOptimize    = "optimize"
	OpAssess      = "assess"
	OpChat        = "chat"
	OpInquiry     = "inquiry"
	OpCasualMatch = "casual_match"
)

// ChatRequest is a single chat-completion call. System sets the role prompt,
// User carries the actual input. JSONOnly requests a structured JSON response
// from providers that support response_format.
type ChatRequest struct {
	// Op names the pipeline stage issuing the call (classify, optimize,
	// assess, chat, inquiry, casual_match). Used for per-stage metrics.
	Op          string
	System      string
	User        string
	Temperature float32
	MaxTokens   int
	JSONOnly    bool
}

// ChatResult carries the model output and token usage.
type ChatResult struct {
	Content      string
	PromptTokens int
	TotalTokens  int
}

// ChatCompleter is the chat-completion contract between use cases and the
// LLM transport.
type ChatCompleter interface {
	Complete(ctx context.Context, req ChatRequest) (ChatResult, error)
}

// StructuredCompleter performs a chat completion and decodes the response
// into out. Implementations must tolerate prose around the JSON object
// (extract the first well-formed object) before returning a ParseError.
type StructuredCompleter interface {
	ChatCompleter
	CompleteJSON(ctx context.Context, req ChatRequest, out any) (ChatResult, error)
}
