package store

import (
	"context"
	"database/sql"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"voicecoach-go/internal/types"
)

func testStore(t *testing.T) (*Store, *sql.DB) {
	t.Helper()
	db, err := Open(filepath.Join(t.TempDir(), "store_test.sqlite"))
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return New(db), db
}

func sampleResult() types.VoiceAnalysisResult {
	return types.VoiceAnalysisResult{
		AnalyzedAt:       time.Date(2026, 8, 1, 10, 0, 0, 0, time.UTC),
		SegmentsAnalyzed: 3,
		SecondsCovered:   540,
		Grade:            "B+",
		Summary:          "Solid delivery overall.",
		TopStrengths:     []string{"Steady pace"},
		TopImprovements:  []string{"Fewer fillers"},
		Metrics:          types.VoiceMetrics{AvgWPM: 150, CompositeScore: 88},
	}
}

func TestSaveVoiceAnalysisInsertsWhenRowMissing(t *testing.T) {
	ctx := context.Background()
	s, db := testStore(t)

	if err := s.SaveVoiceAnalysis(ctx, "call-1", "u1", sampleResult()); err != nil {
		t.Fatalf("save: %v", err)
	}

	got, err := s.VoiceAnalysis(ctx, "call-1")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if got == nil || got.Grade != "B+" {
		t.Fatalf("unexpected result: %+v", got)
	}

	var status string
	if err := db.QueryRow(`SELECT status FROM analysis_records WHERE owner_id = 'call-1'`).Scan(&status); err != nil {
		t.Fatalf("status: %v", err)
	}
	if status != "pending" {
		t.Fatalf("fallback insert must use placeholder status, got %q", status)
	}
}

func TestSaveVoiceAnalysisUpdatesExistingRow(t *testing.T) {
	ctx := context.Background()
	s, db := testStore(t)

	// Simulate the text pipeline having created the canonical row first.
	_, err := db.Exec(`
		INSERT INTO analysis_records (id, owner_id, user_id, status, created_at, updated_at)
		VALUES ('row-1', 'call-2', 'u1', 'completed', '2026-08-01T00:00:00Z', '2026-08-01T00:00:00Z')
	`)
	if err != nil {
		t.Fatalf("seed: %v", err)
	}

	if err := s.SaveVoiceAnalysis(ctx, "call-2", "u1", sampleResult()); err != nil {
		t.Fatalf("save: %v", err)
	}

	var id, status string
	if err := db.QueryRow(`SELECT id, status FROM analysis_records WHERE owner_id = 'call-2'`).Scan(&id, &status); err != nil {
		t.Fatalf("query: %v", err)
	}
	if id != "row-1" {
		t.Fatalf("update path must keep the existing row id, got %q", id)
	}
	if status != "completed" {
		t.Fatalf("update must not touch columns owned by the other writer, got status %q", status)
	}
}

func TestSaveVoiceAnalysisOverwritesWholesale(t *testing.T) {
	ctx := context.Background()
	s, _ := testStore(t)

	first := sampleResult()
	if err := s.SaveVoiceAnalysis(ctx, "call-3", "u1", first); err != nil {
		t.Fatalf("save: %v", err)
	}

	second := sampleResult()
	second.Grade = "A"
	second.SegmentsAnalyzed = 1
	if err := s.SaveVoiceAnalysis(ctx, "call-3", "u1", second); err != nil {
		t.Fatalf("save again: %v", err)
	}

	got, err := s.VoiceAnalysis(ctx, "call-3")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if got.Grade != "A" || got.SegmentsAnalyzed != 1 {
		t.Fatalf("second run must replace the first, got %+v", got)
	}
}

func TestSaveVoiceAnalysisSingleRowUnderConcurrency(t *testing.T) {
	ctx := context.Background()
	s, db := testStore(t)

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = s.SaveVoiceAnalysis(ctx, "call-4", "u1", sampleResult())
		}()
	}
	wg.Wait()

	var count int
	if err := db.QueryRow(`SELECT COUNT(*) FROM analysis_records WHERE owner_id = 'call-4'`).Scan(&count); err != nil {
		t.Fatalf("count: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected one row per owner, got %d", count)
	}
}

func TestVoiceAnalysisAbsent(t *testing.T) {
	ctx := context.Background()
	s, _ := testStore(t)

	got, err := s.VoiceAnalysis(ctx, "missing")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if got != nil {
		t.Fatalf("expected nil for missing owner, got %+v", got)
	}
}
