package store

import (
	"context"
	"path/filepath"
	"testing"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()

	s, err := Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestEventRepo_Append(t *testing.T) {
	s := openTestStore(t)
	repo := s.EventRepo()

	err := repo.AppendLLMRequest(context.Background(), RequestEventData{
		Backend:      "hosted",
		Model:        "gpt-4o-mini",
		Purpose:      "generation",
		InputTokens:  120,
		OutputTokens: 350,
		LatencyMs:    840,
		Success:      true,
	})
	if err != nil {
		t.Fatalf("append: %v", err)
	}

	var count int
	if err := s.DB().QueryRow(`SELECT COUNT(*) FROM llm_requests`).Scan(&count); err != nil {
		t.Fatalf("count: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected 1 event, got %d", count)
	}
}

func TestRunRepo_SaveAndRecent(t *testing.T) {
	s := openTestStore(t)
	repo := s.RunRepo()
	ctx := context.Background()

	first := &Run{
		JobID: "job-1", Kind: "generation", Model: "gpt-4o-mini", Label: "Security",
		ConfigCount: 2, SampleCount: 10, DurationMs: 1500, Status: "completed",
	}
	second := &Run{
		JobID: "job-2", Kind: "optimization", Model: "gpt-4o-mini", Label: "Security",
		ConfigCount: 1, SampleCount: 0, DurationMs: 9000, Status: "completed",
	}

	if err := repo.Save(ctx, first); err != nil {
		t.Fatalf("save first: %v", err)
	}
	if err := repo.Save(ctx, second); err != nil {
		t.Fatalf("save second: %v", err)
	}
	if first.ID == 0 || second.ID == 0 {
		t.Fatal("expected assigned ids")
	}

	runs, err := repo.Recent(ctx, 10)
	if err != nil {
		t.Fatalf("recent: %v", err)
	}
	if len(runs) != 2 {
		t.Fatalf("expected 2 runs, got %d", len(runs))
	}
	// Newest first.
	if runs[0].JobID != "job-2" || runs[1].JobID != "job-1" {
		t.Fatalf("unexpected order: %s then %s", runs[0].JobID, runs[1].JobID)
	}
	if runs[1].Kind != "generation" || runs[1].SampleCount != 10 {
		t.Fatalf("run fields not round-tripped: %+v", runs[1])
	}
}
