package retry

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/kindred-social/matchengine/internal/domain"
)

func TestDo_SucceedsFirstTry(t *testing.T) {
	calls := 0
	err := Do(context.Background(), 3, 0, func(context.Context) error {
		calls++
		return nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if calls != 1 {
		t.Errorf("expected 1 call, got %d", calls)
	}
}

func TestDo_RetriesTransientFailure(t *testing.T) {
	calls := 0
	err := Do(context.Background(), 3, 0, func(context.Context) error {
		calls++
		if calls < 3 {
			return errors.New("transient")
		}
		return nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if calls != 3 {
		t.Errorf("expected 3 calls, got %d", calls)
	}
}

func TestDo_ExhaustsAttempts(t *testing.T) {
	calls := 0
	wantErr := errors.New("still down")
	err := Do(context.Background(), 2, 0, func(context.Context) error {
		calls++
		return wantErr
	})
	if !errors.Is(err, wantErr) {
		t.Fatalf("expected last error, got %v", err)
	}
	if calls != 2 {
		t.Errorf("expected 2 calls, got %d", calls)
	}
}

func TestDo_NoRetryOnParseError(t *testing.T) {
	calls := 0
	err := Do(context.Background(), 3, 0, func(context.Context) error {
		calls++
		return domain.NewParseError("garbage", errors.New("invalid json"))
	})
	if !errors.Is(err, domain.ErrLLMMalformedOutput) {
		t.Fatalf("expected malformed-output error, got %v", err)
	}
	if calls != 1 {
		t.Errorf("parse errors are deterministic, expected 1 call, got %d", calls)
	}
}

func TestDo_NoRetryOnBudgetExceeded(t *testing.T) {
	calls := 0
	Do(context.Background(), 3, 0, func(context.Context) error {
		calls++
		return fmt.Errorf("provider: %w", domain.ErrTokenBudgetExceeded)
	})
	if calls != 1 {
		t.Errorf("budget rejections are deterministic, expected 1 call, got %d", calls)
	}
}

func TestDo_NoRetryAfterCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	calls := 0
	err := Do(ctx, 3, 0, func(context.Context) error {
		calls++
		cancel()
		return ctx.Err()
	})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if calls != 1 {
		t.Errorf("expected 1 call, got %d", calls)
	}
}

func TestDo_ZeroAttemptsRunsOnce(t *testing.T) {
	calls := 0
	Do(context.Background(), 0, 0, func(context.Context) error {
		calls++
		return nil
	})
	if calls != 1 {
		t.Errorf("expected 1 call, got %d", calls)
	}
}

func TestRetryable(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"transient", errors.New("dial timeout"), true},
		{"cancelled", context.Canceled, false},
		{"deadline", context.DeadlineExceeded, false},
		{"malformed output", domain.ErrLLMMalformedOutput, false},
		{"budget", domain.ErrTokenBudgetExceeded, false},
		{"wrapped provider", fmt.Errorf("call: %w", domain.ErrLLMProviderError), true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Retryable(tt.err); got != tt.want {
				t.Errorf("Retryable(%v) = %v, want %v", tt.err, got, tt.want)
			}
		})
	}
}
