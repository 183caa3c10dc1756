package ml

import (
	"math"
	"path/filepath"
	"testing"
)

func TestRandomForestDeterministicAcrossWorkers(t *testing.T) {
	X, y := syntheticRows(60, 5)

	serial := NewRandomForest(ForestConfig{Trees: 25, Seed: 7, Workers: 1})
	if err := serial.Train(X, y); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	parallel := NewRandomForest(ForestConfig{Trees: 25, Seed: 7, Workers: 8})
	if err := parallel.Train(X, y); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	for _, row := range X {
		a, _ := serial.Predict(row)
		b, _ := parallel.Predict(row)
		if a != b {
			t.Fatalf("expected identical predictions, got %v and %v", a, b)
		}
	}
}

func TestRandomForestPredictionIsTreeMean(t *testing.T) {
	X, y := syntheticRows(30, 11)
	forest := NewRandomForest(ForestConfig{Trees: 10, Seed: 1})
	if err := forest.Train(X, y); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	row := X[0]
	sum := 0.0
	for _, tree := range forest.trees {
		v, err := tree.Predict(row)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		sum += v
	}
	got, _ := forest.Predict(row)
	if math.Abs(got-sum/10) > 1e-9 {
		t.Fatalf("expected mean of trees %v, got %v", sum/10, got)
	}
}

func TestRandomForestFeatureImportancesSumToOne(t *testing.T) {
	X, y := syntheticRows(80, 2)
	forest := NewRandomForest(ForestConfig{Trees: 50, Seed: 3})
	if err := forest.Train(X, y); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	total := 0.0
	for _, v := range forest.FeatureImportances() {
		if v < 0 {
			t.Fatalf("negative importance %v", v)
		}
		total += v
	}
	if math.Abs(total-1) > 1e-6 {
		t.Fatalf("expected importances to sum to 1, got %v", total)
	}
}

func TestRandomForestConstantTargetUniformImportance(t *testing.T) {
	X, _ := syntheticRows(20, 4)
	y := make([]float64, len(X))
	for i := range y {
		y[i] = 42
	}
	forest := NewRandomForest(ForestConfig{Trees: 5, Seed: 1})
	if err := forest.Train(X, y); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	got, _ := forest.Predict(X[3])
	if got != 42 {
		t.Fatalf("expected 42, got %v", got)
	}
	for _, v := range forest.FeatureImportances() {
		if math.Abs(v-1.0/7) > 1e-12 {
			t.Fatalf("expected uniform importance, got %v", v)
		}
	}
}

func TestRandomForestSaveLoad(t *testing.T) {
	X, y := syntheticRows(40, 8)
	forest := NewRandomForest(ForestConfig{Trees: 12, Seed: 9})
	forest.SetFeatureNames(DefaultFeatures())
	if err := forest.Train(X, y); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	path := filepath.Join(t.TempDir(), "forest.json")
	if err := forest.Save(path); err != nil {
		t.Fatalf("save: %v", err)
	}
	loaded, err := LoadForest(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if loaded.NumTrees() != 12 || loaded.Width() != 7 {
		t.Fatalf("unexpected shape: %d trees, width %d", loaded.NumTrees(), loaded.Width())
	}
	if names := loaded.FeatureNames(); len(names) != 7 || names[0] != ColScreenTime {
		t.Fatalf("unexpected feature names %v", names)
	}
	for _, row := range X {
		want, _ := forest.Predict(row)
		got, _ := loaded.Predict(row)
		if got != want {
			t.Fatalf("expected %v after reload, got %v", want, got)
		}
	}

	if _, err := LoadModel("svm", path); err == nil {
		t.Fatal("expected error for unsupported model type")
	}
}

func TestRandomForestRejectsBadInput(t *testing.T) {
	forest := NewRandomForest(ForestConfig{Trees: 3})
	if _, err := forest.Predict([]float64{1}); err == nil {
		t.Fatal("expected error before training")
	}
	if err := forest.Train([][]float64{{1, 2}, {3}}, []float64{1, 2}); err == nil {
		t.Fatal("expected error for ragged rows")
	}
	forest.SetFeatureNames([]string{"only_one"})
	if err := forest.Train([][]float64{{1, 2}, {3, 4}}, []float64{1, 2}); err == nil {
		t.Fatal("expected error for feature name mismatch")
	}
}
