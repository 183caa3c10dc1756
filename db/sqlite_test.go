package db

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"mindsync/ml"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := Open(StoreConfig{Path: filepath.Join(t.TempDir(), "data", "mindsync.db"), EnableWAL: true})
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func TestSubmissionsNewestFirst(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	for i, score := range []float64{55, 72, 64} {
		sub, err := store.SaveSubmission(ctx, Submission{
			Input: ml.DailyInput{ScreenTimeHours: float64(i + 5), SleepQuality: 3},
			Score: score,
			Band:  "good",
		})
		if err != nil {
			t.Fatalf("save submission: %v", err)
		}
		if sub.ID == "" || sub.CreatedAt.IsZero() {
			t.Fatalf("expected id and timestamp, got %+v", sub)
		}
	}

	subs, err := store.ListSubmissions(ctx, 0)
	if err != nil {
		t.Fatalf("list submissions: %v", err)
	}
	if len(subs) != 3 {
		t.Fatalf("expected 3 submissions, got %d", len(subs))
	}
	if subs[0].Score != 64 || subs[2].Score != 55 {
		t.Fatalf("expected newest first, got %v %v %v", subs[0].Score, subs[1].Score, subs[2].Score)
	}
	if subs[0].Input.ScreenTimeHours != 7 {
		t.Fatalf("expected input to round trip, got %+v", subs[0].Input)
	}

	limited, err := store.ListSubmissions(ctx, 2)
	if err != nil {
		t.Fatalf("list submissions: %v", err)
	}
	if len(limited) != 2 {
		t.Fatalf("expected 2 submissions, got %d", len(limited))
	}
}

func TestSubmissionStats(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	stats, err := store.SubmissionStats(ctx)
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if stats.Count != 0 || stats.Trend != 0 {
		t.Fatalf("expected empty stats, got %+v", stats)
	}

	for _, score := range []float64{50, 80, 70} {
		if _, err := store.SaveSubmission(ctx, Submission{Score: score, Band: "good"}); err != nil {
			t.Fatalf("save submission: %v", err)
		}
	}
	stats, err = store.SubmissionStats(ctx)
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if stats.Count != 3 || stats.Latest != 70 || stats.Best != 80 || stats.Trend != -10 {
		t.Fatalf("unexpected stats %+v", stats)
	}
	if stats.Average < 66.66 || stats.Average > 66.67 {
		t.Fatalf("expected average 66.67, got %v", stats.Average)
	}
}

func TestTrainingLog(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	first := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	if err := store.SaveTrainingLog(ctx, TrainingLog{ModelName: ml.ModelTypeRandomForest, R2: 0.7, TrainedAt: first, DataPoints: 80}); err != nil {
		t.Fatalf("save log: %v", err)
	}
	if err := store.SaveTrainingLog(ctx, TrainingLog{ModelName: ml.ModelTypeRandomForest, R2: 0.8, DataPoints: 90}); err != nil {
		t.Fatalf("save log: %v", err)
	}

	logs, err := store.LoadTrainingLog(ctx)
	if err != nil {
		t.Fatalf("load log: %v", err)
	}
	if len(logs) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(logs))
	}
	if logs[0].R2 != 0.8 || !logs[1].TrainedAt.Equal(first) {
		t.Fatalf("unexpected log order %+v", logs)
	}
}

func TestOpenRequiresPath(t *testing.T) {
	if _, err := Open(StoreConfig{}); err == nil {
		t.Fatal("expected error for empty path")
	}
}
