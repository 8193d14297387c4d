package openai

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"go.uber.org/zap"

	"github.com/kindred-social/matchengine/internal/domain"
)

func newChatServer(t *testing.T, content string) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat/completions" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{
			"id":      "chatcmpl-test",
			"object":  "chat.completion",
			"model":   "test-model",
			"choices": []map[string]any{{
				"index":         0,
				"message":       map[string]any{"role": "assistant", "content": content},
				"finish_reason": "stop",
			}},
			"usage": map[string]any{"prompt_tokens": 12, "completion_tokens": 8, "total_tokens": 20},
		})
	}))
}

func newTestLLM(baseURL string) *LLM {
	return NewLLM(&LLMConfig{
		APIKey:  "test-key",
		BaseURL: baseURL,
		Model:   "test-model",
		Logger:  zap.NewNop(),
	})
}

func TestLLM_Complete(t *testing.T) {
	server := newChatServer(t, "Nice to meet you!")
	defer server.Close()

	res, err := newTestLLM(server.URL).Complete(context.Background(), domain.ChatRequest{
		Op:     domain.OpChat,
		System: "be brief",
		User:   "hello",
	})
	if err != nil {
		t.Fatalf("Complete failed: %v", err)
	}
	if res.Content != "Nice to meet you!" {
		t.Errorf("content = %q", res.Content)
	}
	if res.PromptTokens != 12 || res.TotalTokens != 20 {
		t.Errorf("usage = %d/%d", res.PromptTokens, res.TotalTokens)
	}
}

func TestLLM_CompleteAPIError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadGateway)
		json.NewEncoder(w).Encode(map[string]any{
			"error": map[string]any{"message": "upstream down", "type": "server_error"},
		})
	}))
	defer server.Close()

	_, err := newTestLLM(server.URL).Complete(context.Background(), domain.ChatRequest{
		Op: domain.OpChat, User: "hello",
	})
	if !errors.Is(err, domain.ErrLLMProviderError) {
		t.Fatalf("expected ErrLLMProviderError, got %v", err)
	}
}

func TestLLM_CompleteJSON(t *testing.T) {
	server := newChatServer(t, `{"intent": "search", "confidence": 0.92}`)
	defer server.Close()

	var out struct {
		Intent     string  `json:"intent"`
		Confidence float64 `json:"confidence"`
	}
	res, err := newTestLLM(server.URL).CompleteJSON(context.Background(), domain.ChatRequest{
		Op: domain.OpClassify, User: "find me a hiker",
	}, &out)
	if err != nil {
		t.Fatalf("CompleteJSON failed: %v", err)
	}
	if out.Intent != "search" || out.Confidence != 0.92 {
		t.Errorf("decoded %+v", out)
	}
	if res.TotalTokens != 20 {
		t.Errorf("usage lost: %d", res.TotalTokens)
	}
}

func TestLLM_CompleteJSONStripsCodeFences(t *testing.T) {
	server := newChatServer(t, "```json\n{\"intent\": \"chat\"}\n```")
	defer server.Close()

	var out struct {
		Intent string `json:"intent"`
	}
	if _, err := newTestLLM(server.URL).CompleteJSON(context.Background(), domain.ChatRequest{
		Op: domain.OpClassify, User: "hi",
	}, &out); err != nil {
		t.Fatalf("CompleteJSON failed: %v", err)
	}
	if out.Intent != "chat" {
		t.Errorf("decoded %+v", out)
	}
}

func TestLLM_CompleteJSONExtractsFromProse(t *testing.T) {
	server := newChatServer(t, `Sure, here is the result: {"intent": "casual"} hope that helps!`)
	defer server.Close()

	var out struct {
		Intent string `json:"intent"`
	}
	if _, err := newTestLLM(server.URL).CompleteJSON(context.Background(), domain.ChatRequest{
		Op: domain.OpClassify, User: "hi",
	}, &out); err != nil {
		t.Fatalf("CompleteJSON failed: %v", err)
	}
	if out.Intent != "casual" {
		t.Errorf("decoded %+v", out)
	}
}

func TestLLM_CompleteJSONMalformed(t *testing.T) {
	server := newChatServer(t, "I cannot produce JSON today.")
	defer server.Close()

	var out struct{}
	_, err := newTestLLM(server.URL).CompleteJSON(context.Background(), domain.ChatRequest{
		Op: domain.OpClassify, User: "hi",
	}, &out)
	if !errors.Is(err, domain.ErrLLMMalformedOutput) {
		t.Fatalf("expected ErrLLMMalformedOutput, got %v", err)
	}

	var parseErr *domain.ParseError
	if !errors.As(err, &parseErr) {
		t.Fatal("expected *domain.ParseError")
	}
	if parseErr.Raw != "I cannot produce JSON today." {
		t.Errorf("raw output lost: %q", parseErr.Raw)
	}
}

func TestStripCodeFences(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{`{"a": 1}`, `{"a": 1}`},
		{"```json\n{\"a\": 1}\n```", `{"a": 1}`},
		{"```\n{\"a\": 1}\n```", `{"a": 1}`},
		{"  {\"a\": 1}  ", `{"a": 1}`},
	}
	for _, tt := range tests {
		if got := stripCodeFences(tt.in); got != tt.want {
			t.Errorf("stripCodeFences(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestFirstJSONObject(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
		ok   bool
	}{
		{"bare", `{"a": 1}`, `{"a": 1}`, true},
		{"prose around", `result: {"a": 1} done`, `{"a": 1}`, true},
		{"nested", `{"a": {"b": 2}}`, `{"a": {"b": 2}}`, true},
		{"brace inside string", `{"a": "}"}`, `{"a": "}"}`, true},
		{"escaped quote", `{"a": "\"}"}`, `{"a": "\"}"}`, true},
		{"no object", "nothing here", "", false},
		{"unbalanced", `{"a": 1`, "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := firstJSONObject(tt.in)
			if ok != tt.ok || got != tt.want {
				t.Errorf("firstJSONObject(%q) = %q, %v; want %q, %v", tt.in, got, ok, tt.want, tt.ok)
			}
		})
	}
}
