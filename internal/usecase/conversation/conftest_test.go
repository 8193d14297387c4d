package conversation

import (
	"context"

	"go.uber.org/zap"

	"github.com/kindred-social/matchengine/internal/domain"
	"github.com/kindred-social/matchengine/internal/domain/intent"
)

type mockClassifier struct {
	result      intent.Classification
	lastRef     string
	lastContext string
}

func (m *mockClassifier) Classify(_ context.Context, _ string, referencedID, requesterContext string) intent.Classification {
	m.lastRef = referencedID
	m.lastContext = requesterContext
	return m.result
}

type mockOptimizer struct {
	rewrite string
}

func (m *mockOptimizer) Rewrite(_ context.Context, text string) string {
	if m.rewrite == "" {
		return text
	}
	return m.rewrite
}

type mockMatcher struct {
	assessment  domain.Assessment
	err         error
	lastQuery   string
	lastExclude []string
	lastLang    string
}

func (m *mockMatcher) Match(_ context.Context, query string, excludeIDs []string, lang string) (domain.Assessment, error) {
	m.lastQuery = query
	m.lastExclude = excludeIDs
	m.lastLang = lang
	if m.err != nil {
		return domain.Assessment{}, m.err
	}
	return m.assessment, nil
}

type mockCasual struct {
	receipt  domain.SubmitReceipt
	err      error
	lastUser string
	lastText string
}

func (m *mockCasual) Submit(_ context.Context, userID, text, _ string) (domain.SubmitReceipt, error) {
	m.lastUser = userID
	m.lastText = text
	if m.err != nil {
		return domain.SubmitReceipt{}, m.err
	}
	return m.receipt, nil
}

type mockSwipes struct {
	targets []string
	err     error
}

func (m *mockSwipes) ExcludedTargets(_ context.Context, _ string) ([]string, error) {
	if m.err != nil {
		return nil, m.err
	}
	return m.targets, nil
}

type mockProfiles struct {
	text string
	err  error
}

func (m *mockProfiles) ProfileText(_ context.Context, _ string) (string, error) {
	if m.err != nil {
		return "", m.err
	}
	return m.text, nil
}

type mockChat struct {
	reply      string
	err        error
	calls      int
	lastSystem string
	lastOp     string
}

func (m *mockChat) Complete(_ context.Context, req domain.ChatRequest) (domain.ChatResult, error) {
	m.calls++
	m.lastSystem = req.System
	m.lastOp = req.Op
	if m.err != nil {
		return domain.ChatResult{}, m.err
	}
	return domain.ChatResult{Content: m.reply}, nil
}

type deps struct {
	classifier *mockClassifier
	optimizer  *mockOptimizer
	matcher    *mockMatcher
	casual     *mockCasual
	swipes     *mockSwipes
	profiles   *mockProfiles
	chat       *mockChat
}

func newTestService(d deps) *Service {
	if d.classifier == nil {
		d.classifier = &mockClassifier{}
	}
	if d.optimizer == nil {
		d.optimizer = &mockOptimizer{}
	}
	if d.matcher == nil {
		d.matcher = &mockMatcher{}
	}
	if d.casual == nil {
		d.casual = &mockCasual{}
	}
	if d.swipes == nil {
		d.swipes = &mockSwipes{}
	}
	if d.profiles == nil {
		d.profiles = &mockProfiles{}
	}
	if d.chat == nil {
		d.chat = &mockChat{reply: "hello"}
	}
	return New(d.classifier, d.optimizer, d.matcher, d.casual, d.swipes, d.profiles,
		d.chat, 1, 0, zap.NewNop())
}

func classified(i intent.Intent) *mockClassifier {
	return &mockClassifier{result: intent.Classification{Intent: i, Confidence: 0.9}}
}
