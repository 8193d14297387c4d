package casual

import (
	"context"
	"errors"
	"testing"
	"time"

	"go.uber.org/zap"
)

func newTestReaper(repo *mockRepo, pageSize int) *Reaper {
	r := NewReaper(repo, 7*24*time.Hour, pageSize, zap.NewNop())
	r.now = func() time.Time { return time.Date(2025, 6, 8, 0, 0, 0, 0, time.UTC) }
	return r
}

func TestReap_DeletesExpiredRecords(t *testing.T) {
	repo := &mockRepo{
		expiredPages: [][]string{{"u1", "u2"}},
		deleteMeta:   true,
		deleteVector: true,
	}
	r := newTestReaper(repo, 200)

	report, err := r.Reap(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if report.DeletedRelational != 2 || report.DeletedVector != 2 {
		t.Errorf("expected 2/2 deletions, got %+v", report)
	}
	if len(repo.deleted) != 2 {
		t.Errorf("expected 2 delete calls, got %v", repo.deleted)
	}
}

func TestReap_NothingExpired(t *testing.T) {
	repo := &mockRepo{deleteMeta: true, deleteVector: true}
	r := newTestReaper(repo, 200)

	report, err := r.Reap(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if report.DeletedRelational != 0 || report.DeletedVector != 0 {
		t.Errorf("expected empty report, got %+v", report)
	}
}

func TestReap_PagesThroughFullBatches(t *testing.T) {
	repo := &mockRepo{
		expiredPages: [][]string{{"u1", "u2"}, {"u3", "u4"}, {"u5"}},
		deleteMeta:   true,
		deleteVector: true,
	}
	r := newTestReaper(repo, 2)

	report, err := r.Reap(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if report.DeletedRelational != 5 {
		t.Errorf("expected 5 deletions across pages, got %d", report.DeletedRelational)
	}
	// The short final page ends the scan without another round trip.
	if repo.expiredCalls != 3 {
		t.Errorf("expected 3 scan calls, got %d", repo.expiredCalls)
	}
}

func TestReap_CountsMetaAndVectorSeparately(t *testing.T) {
	repo := &mockRepo{
		expiredPages: [][]string{{"u1"}},
		deleteMeta:   true,
		deleteVector: false,
	}
	r := newTestReaper(repo, 200)

	report, err := r.Reap(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if report.DeletedRelational != 1 || report.DeletedVector != 0 {
		t.Errorf("expected 1 relational and 0 vector, got %+v", report)
	}
}

func TestReap_ScanFailureAborts(t *testing.T) {
	repo := &mockRepo{expiredErr: errors.New("scan down")}
	r := newTestReaper(repo, 200)

	if _, err := r.Reap(context.Background()); err == nil {
		t.Fatal("scan failure must abort the run")
	}
}

func TestReap_DeleteFailureAbortsWithPartialReport(t *testing.T) {
	repo := &mockRepo{
		expiredPages: [][]string{{"u1"}},
		deleteErr:    errors.New("delete down"),
	}
	r := newTestReaper(repo, 200)

	report, err := r.Reap(context.Background())
	if err == nil {
		t.Fatal("delete failure must abort the run")
	}
	if report.DeletedRelational != 0 {
		t.Errorf("failed delete must not be counted, got %+v", report)
	}
}

func TestReap_ContextCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	repo := &mockRepo{expiredPages: [][]string{{"u1"}}}
	r := newTestReaper(repo, 200)

	if _, err := r.Reap(ctx); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if repo.expiredCalls != 0 {
		t.Error("cancelled context should stop before scanning")
	}
}
