package assess

import (
	"context"
	"encoding/json"
	"testing"

	"go.uber.org/zap"

	"github.com/kindred-social/matchengine/internal/domain"
)

type mockCompleter struct {
	reply   string
	err     error
	calls   int
	lastReq domain.ChatRequest
}

func (m *mockCompleter) CompleteJSON(_ context.Context, req domain.ChatRequest, out any) (domain.ChatResult, error) {
	m.calls++
	m.lastReq = req
	if m.err != nil {
		return domain.ChatResult{}, m.err
	}
	if err := json.Unmarshal([]byte(m.reply), out); err != nil {
		return domain.ChatResult{}, err
	}
	return domain.ChatResult{Content: m.reply}, nil
}

func testCandidates() []domain.Candidate {
	return []domain.Candidate{
		{UserID: "u1", Score: 0.91, ProfileText: "hiker"},
		{UserID: "u2", Score: 0.85, ProfileText: "climber"},
		{UserID: "u3", Score: 0.60, ProfileText: "runner"},
		{UserID: "u4", Score: 0.40, ProfileText: "swimmer"},
	}
}

func TestAssess_AcceptsModelVerdict(t *testing.T) {
	llm := &mockCompleter{reply: `{
		"overall_quality": "good", "should_continue": false,
		"analysis": "solid overlap", "intro": "here are your matches",
		"selected": [
			{"user_id": "u1", "match_score": 9, "key_strengths": ["hiking"], "match_reason": "both hike", "receiver_notification": "someone wants to meet you"},
			{"user_id": "u2", "match_score": 7, "key_strengths": ["outdoors"], "match_reason": "similar hobbies", "receiver_notification": "a hiker noticed you"}
		]}`}
	svc := New(llm, 10, 1, 0, zap.NewNop())

	a := svc.Assess(context.Background(), "hiking partner", testCandidates(), "en")

	if a.OverallQuality != domain.QualityGood {
		t.Errorf("expected good, got %s", a.OverallQuality)
	}
	if a.ShouldContinue {
		t.Error("should_continue should be false")
	}
	if len(a.Selected) != 2 || a.Selected[0].UserID != "u1" {
		t.Errorf("unexpected selection: %+v", a.Selected)
	}
	if llm.lastReq.Op != domain.OpAssess {
		t.Errorf("expected op %q, got %q", domain.OpAssess, llm.lastReq.Op)
	}
}

func TestAssess_DropsUnknownAndDuplicateIDs(t *testing.T) {
	llm := &mockCompleter{reply: `{
		"overall_quality": "good", "should_continue": false,
		"selected": [
			{"user_id": "u1", "match_score": 9},
			{"user_id": "u1", "match_score": 8},
			{"user_id": "ghost", "match_score": 10}
		]}`}
	svc := New(llm, 10, 1, 0, zap.NewNop())

	a := svc.Assess(context.Background(), "q", testCandidates(), "en")

	if len(a.Selected) != 1 || a.Selected[0].UserID != "u1" {
		t.Errorf("expected single u1 selection, got %+v", a.Selected)
	}
}

func TestAssess_ClampsScoresAndFillsTemplates(t *testing.T) {
	llm := &mockCompleter{reply: `{
		"overall_quality": "excellent", "should_continue": false,
		"selected": [{"user_id": "u1", "match_score": 42}]}`}
	svc := New(llm, 10, 1, 0, zap.NewNop())

	a := svc.Assess(context.Background(), "q", testCandidates(), "en")

	sel := a.Selected[0]
	if sel.MatchScore != 10 {
		t.Errorf("score should clamp to 10, got %f", sel.MatchScore)
	}
	if sel.MatchReason == "" || sel.ReceiverNotification == "" {
		t.Error("empty model text should be filled from templates")
	}
	if len(sel.KeyStrengths) == 0 {
		t.Error("key strengths should never be empty")
	}
}

func TestAssess_CapsSelection(t *testing.T) {
	llm := &mockCompleter{reply: `{
		"overall_quality": "good", "should_continue": false,
		"selected": [
			{"user_id": "u1", "match_score": 9},
			{"user_id": "u2", "match_score": 8},
			{"user_id": "u3", "match_score": 7}
		]}`}
	svc := New(llm, 2, 1, 0, zap.NewNop())

	a := svc.Assess(context.Background(), "q", testCandidates(), "en")
	if len(a.Selected) != 2 {
		t.Errorf("selection should cap at 2, got %d", len(a.Selected))
	}
}

func TestAssess_EmptySelectionKeepsEscalating(t *testing.T) {
	llm := &mockCompleter{reply: `{"overall_quality": "good", "should_continue": false, "selected": []}`}
	svc := New(llm, 10, 1, 0, zap.NewNop())

	a := svc.Assess(context.Background(), "q", testCandidates(), "en")

	if a.OverallQuality != domain.QualityPoor || !a.ShouldContinue {
		t.Errorf("empty selection must stay poor and continue, got %s/%v",
			a.OverallQuality, a.ShouldContinue)
	}
}

func TestAssess_UnknownQualityNormalizesToFair(t *testing.T) {
	llm := &mockCompleter{reply: `{
		"overall_quality": "amazing", "should_continue": true,
		"selected": [{"user_id": "u1", "match_score": 8}]}`}
	svc := New(llm, 10, 1, 0, zap.NewNop())

	a := svc.Assess(context.Background(), "q", testCandidates(), "en")
	if a.OverallQuality != domain.QualityFair {
		t.Errorf("unknown label should normalize to fair, got %s", a.OverallQuality)
	}
}

func TestAssess_ProviderFailureFallsBack(t *testing.T) {
	llm := &mockCompleter{err: domain.ErrLLMProviderError}
	svc := New(llm, 10, 1, 0, zap.NewNop())

	a := svc.Assess(context.Background(), "q", testCandidates(), "en")

	if a.ShouldContinue {
		t.Error("fallback must never ask for another tier")
	}
	if a.OverallQuality != domain.QualityFair {
		t.Errorf("fallback quality should be fair, got %s", a.OverallQuality)
	}
	if len(a.Selected) != 3 {
		t.Fatalf("fallback should select top 3, got %d", len(a.Selected))
	}
	if a.Selected[0].UserID != "u1" || a.Selected[1].UserID != "u2" || a.Selected[2].UserID != "u3" {
		t.Errorf("fallback order wrong: %+v", a.Selected)
	}
}

func TestAssess_NoCandidates(t *testing.T) {
	llm := &mockCompleter{}
	svc := New(llm, 10, 1, 0, zap.NewNop())

	a := svc.Assess(context.Background(), "q", nil, "en")

	if llm.calls != 0 {
		t.Error("no candidates should not reach the model")
	}
	if a.OverallQuality != domain.QualityPoor || !a.ShouldContinue {
		t.Errorf("empty set must escalate, got %s/%v", a.OverallQuality, a.ShouldContinue)
	}
}

func TestFallback_DeterministicTieBreak(t *testing.T) {
	candidates := []domain.Candidate{
		{UserID: "zed", Score: 0.8},
		{UserID: "amy", Score: 0.8},
		{UserID: "bob", Score: 0.8},
		{UserID: "low", Score: 0.1},
	}

	a := Fallback(candidates, "en")

	if len(a.Selected) != 3 {
		t.Fatalf("expected 3 selections, got %d", len(a.Selected))
	}
	if a.Selected[0].UserID != "amy" || a.Selected[1].UserID != "bob" || a.Selected[2].UserID != "zed" {
		t.Errorf("ties should break by id ascending: %+v", a.Selected)
	}
}

func TestFallback_ScoreMapping(t *testing.T) {
	a := Fallback([]domain.Candidate{{UserID: "u1", Score: 0.91}}, "en")
	if got := a.Selected[0].MatchScore; got != 9 {
		t.Errorf("similarity 0.91 should map to score 9, got %f", got)
	}

	a = Fallback([]domain.Candidate{{UserID: "u1", Score: 0.0}}, "en")
	if got := a.Selected[0].MatchScore; got != 1 {
		t.Errorf("floor should be 1, got %f", got)
	}
}

func TestFallback_ChineseTemplates(t *testing.T) {
	a := Fallback([]domain.Candidate{{UserID: "u1", Score: 0.9}}, "zh")
	if a.Selected[0].MatchReason == "" || a.Selected[0].ReceiverNotification == "" {
		t.Error("zh templates should fill text")
	}
}
