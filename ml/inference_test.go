package ml

import "testing"

func trainedForest(t *testing.T) *RandomForest {
	t.Helper()
	X, y := syntheticRows(40, 6)
	forest := NewRandomForest(ForestConfig{Trees: 10, Seed: 6})
	if err := forest.Train(X, y); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	return forest
}

func TestPredictorCachesScores(t *testing.T) {
	forest := trainedForest(t)
	predictor, err := NewPredictor(forest, 2)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	in := DailyInput{ScreenTimeHours: 6, WorkScreenHours: 3, LeisureScreenHours: 3, SleepHours: 7, SleepQuality: 3, StressLevel: 4, Productivity: 60}
	first, err := predictor.Predict(in)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	second, _ := predictor.Predict(in)
	if first != second {
		t.Fatalf("expected cached score %v, got %v", first, second)
	}
	direct, _ := Predict(forest, in)
	if direct != first {
		t.Fatalf("expected cached score to match model, got %v and %v", first, direct)
	}

	stats := predictor.Stats()
	if stats.Hits != 1 || stats.Misses != 1 || stats.Size != 1 {
		t.Fatalf("unexpected stats %+v", stats)
	}

	for i := 0; i < 3; i++ {
		in.StressLevel = float64(i)
		predictor.Predict(in)
	}
	if size := predictor.Stats().Size; size != 2 {
		t.Fatalf("expected cache bounded at 2, got %d", size)
	}
	predictor.Resize(1)
	if size := predictor.Stats().Size; size != 1 {
		t.Fatalf("expected cache shrunk to 1, got %d", size)
	}
}

func TestPredictorWithoutCache(t *testing.T) {
	predictor, err := NewPredictor(trainedForest(t), 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	in := DailyInput{ScreenTimeHours: 2}
	predictor.Predict(in)
	predictor.Predict(in)
	if stats := predictor.Stats(); stats.Hits != 0 || stats.Misses != 2 {
		t.Fatalf("unexpected stats %+v", stats)
	}
}

func TestPredictRequiresModel(t *testing.T) {
	if _, err := Predict(nil, DailyInput{}); err == nil {
		t.Fatal("expected error for nil model")
	}
	if _, err := NewPredictor(nil, 4); err == nil {
		t.Fatal("expected error for nil model")
	}
	if _, err := Predict(NewRandomForest(ForestConfig{}), DailyInput{}); err == nil {
		t.Fatal("expected error for untrained model")
	}
}

func TestPredictTypedNilModel(t *testing.T) {
	var forest *RandomForest
	var tree *RegressionTree
	for name, model := range map[string]Regressor{"forest": forest, "tree": tree} {
		t.Run(name, func(t *testing.T) {
			if _, err := Predict(model, DailyInput{}); err == nil {
				t.Fatal("expected error for nil model")
			}
			if _, err := model.Predict(make([]float64, 7)); err == nil {
				t.Fatal("expected error from nil receiver")
			}
			if _, err := NewPredictor(model, 4); err == nil {
				t.Fatal("expected error for nil model")
			}
		})
	}
}
