package classify

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/kindred-social/matchengine/internal/domain"
	"github.com/kindred-social/matchengine/internal/domain/intent"
)

// --- Mocks ---

type mockCompleter struct {
	replies []string
	errs    []error
	calls   int
	lastReq domain.ChatRequest
}

func (m *mockCompleter) CompleteJSON(_ context.Context, req domain.ChatRequest, out any) (domain.ChatResult, error) {
	i := m.calls
	m.calls++
	m.lastReq = req
	if i < len(m.errs) && m.errs[i] != nil {
		return domain.ChatResult{}, m.errs[i]
	}
	reply := m.replies[min(i, len(m.replies)-1)]
	if err := json.Unmarshal([]byte(reply), out); err != nil {
		return domain.ChatResult{}, err
	}
	return domain.ChatResult{Content: reply}, nil
}

// --- Tests ---

func TestClassify_SearchIntent(t *testing.T) {
	llm := &mockCompleter{replies: []string{
		`{"intent": "search", "confidence": 0.92, "rationale": "describes a partner"}`,
	}}
	svc := New(llm, 1, 0, zap.NewNop())

	c := svc.Classify(context.Background(), "find me a hiking partner in Shanghai", "", "")

	if c.Intent != intent.Search {
		t.Errorf("expected search, got %s", c.Intent)
	}
	if c.Confidence != 0.92 {
		t.Errorf("expected confidence 0.92, got %f", c.Confidence)
	}
	if !llm.lastReq.JSONOnly {
		t.Error("classification request should demand JSON output")
	}
	if llm.lastReq.Op != domain.OpClassify {
		t.Errorf("expected op %q, got %q", domain.OpClassify, llm.lastReq.Op)
	}
}

func TestClassify_ProviderFailureFallsBackToChat(t *testing.T) {
	llm := &mockCompleter{errs: []error{domain.ErrLLMProviderError, domain.ErrLLMProviderError}}
	svc := New(llm, 2, time.Millisecond, zap.NewNop())

	c := svc.Classify(context.Background(), "hello", "", "")

	if c.Intent != intent.Chat {
		t.Errorf("expected chat fallback, got %s", c.Intent)
	}
	if c.Confidence != 0 {
		t.Errorf("fallback confidence must be 0, got %f", c.Confidence)
	}
	if llm.calls != 2 {
		t.Errorf("expected one retry, got %d calls", llm.calls)
	}
}

func TestClassify_MalformedOutputNotRetried(t *testing.T) {
	llm := &mockCompleter{errs: []error{domain.NewParseError("???", errors.New("no json"))}}
	svc := New(llm, 3, time.Millisecond, zap.NewNop())

	c := svc.Classify(context.Background(), "hello", "", "")

	if c.Intent != intent.Chat || c.Confidence != 0 {
		t.Errorf("expected chat/0 fallback, got %s/%f", c.Intent, c.Confidence)
	}
	if llm.calls != 1 {
		t.Errorf("parse errors are deterministic and must not retry, got %d calls", llm.calls)
	}
}

func TestClassify_UnknownIntentFallsBackToChat(t *testing.T) {
	llm := &mockCompleter{replies: []string{`{"intent": "dating", "confidence": 0.8}`}}
	svc := New(llm, 1, 0, zap.NewNop())

	c := svc.Classify(context.Background(), "hello", "", "")

	if c.Intent != intent.Chat || c.Confidence != 0 {
		t.Errorf("unknown label should degrade to chat/0, got %s/%f", c.Intent, c.Confidence)
	}
}

func TestClassify_ConfidenceClamped(t *testing.T) {
	llm := &mockCompleter{replies: []string{`{"intent": "casual", "confidence": 1.7}`}}
	svc := New(llm, 1, 0, zap.NewNop())

	c := svc.Classify(context.Background(), "dinner tonight?", "", "")

	if c.Intent != intent.Casual {
		t.Errorf("expected casual, got %s", c.Intent)
	}
	if c.Confidence != 1 {
		t.Errorf("confidence should clamp to 1, got %f", c.Confidence)
	}
}

func TestClassify_ReferencedProfileInPrompt(t *testing.T) {
	llm := &mockCompleter{replies: []string{`{"intent": "inquiry", "confidence": 0.9}`}}
	svc := New(llm, 1, 0, zap.NewNop())

	c := svc.Classify(context.Background(), "does she like hiking?", "user-42", "")

	if c.Intent != intent.Inquiry {
		t.Errorf("expected inquiry, got %s", c.Intent)
	}
	if want := "user-42"; !strings.Contains(llm.lastReq.User, want) {
		t.Errorf("prompt should mention referenced profile %q:\n%s", want, llm.lastReq.User)
	}
}

func TestClassify_RequesterContextInPrompt(t *testing.T) {
	llm := &mockCompleter{replies: []string{`{"intent": "search", "confidence": 0.8}`}}
	svc := New(llm, 1, 0, zap.NewNop())

	svc.Classify(context.Background(), "find me a mentor", "", "senior backend engineer, looking to grow")

	if want := "senior backend engineer"; !strings.Contains(llm.lastReq.User, want) {
		t.Errorf("prompt should carry the requester context %q:\n%s", want, llm.lastReq.User)
	}
}
