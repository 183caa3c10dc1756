package ml

import (
	"encoding/json"
	"errors"
	"math"
	"strings"
	"testing"
)

func TestCalculateMetricsValues(t *testing.T) {
	tests := []struct {
		name  string
		yTrue []float64
		yPred []float64
		r2    float64
		mae   float64
		mape  float64
		smape float64
	}{
		{
			name:  "exact",
			yTrue: []float64{10, 20, 30},
			yPred: []float64{10, 20, 30},
			r2:    1,
		},
		{
			name:  "zero observation skipped by mape",
			yTrue: []float64{0, 50},
			yPred: []float64{5, 45},
			r2:    1 - 50.0/1250.0,
			mae:   5,
			mape:  10,
			smape: (200 + 2*5.0/95*100) / 2,
		},
		{
			name:  "both zero is a perfect smape row",
			yTrue: []float64{0, 10},
			yPred: []float64{0, 10},
			r2:    1,
			mape:  0,
			smape: 0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			report, err := CalculateMetrics(tt.yTrue, tt.yPred, nil, nil)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			check := func(metric string, got, want float64) {
				if math.Abs(got-want) > 1e-9 {
					t.Fatalf("expected %s %v, got %v", metric, want, got)
				}
			}
			check("r2", report.R2, tt.r2)
			check("mae", report.MAE, tt.mae)
			check("mape", report.MAPE, tt.mape)
			check("smape", report.SMAPE, tt.smape)
			if report.Samples != len(tt.yTrue) {
				t.Fatalf("expected %d samples, got %d", len(tt.yTrue), report.Samples)
			}
			if report.FeatureImportance != nil {
				t.Fatal("expected no importance table without a model")
			}
		})
	}
}

func TestCalculateMetricsBounds(t *testing.T) {
	yTrue := []float64{80, 20, 55, 0, 100, 42}
	yPred := []float64{10, 90, 0, 60, 0, 41}
	report, err := CalculateMetrics(yTrue, yPred, nil, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if report.R2 > 1 {
		t.Fatalf("r2 above 1: %v", report.R2)
	}
	if report.SMAPE < 0 || report.SMAPE > 200 {
		t.Fatalf("smape out of range: %v", report.SMAPE)
	}
	if report.MAE < 0 || report.MAPE < 0 {
		t.Fatalf("negative error metric: mae %v mape %v", report.MAE, report.MAPE)
	}
}

func TestCalculateMetricsConstantObservations(t *testing.T) {
	report, _ := CalculateMetrics([]float64{5, 5}, []float64{5, 6}, nil, nil)
	if report.R2 != 0 {
		t.Fatalf("expected r2 0 for inexact constant fit, got %v", report.R2)
	}
}

func TestCalculateMetricsErrors(t *testing.T) {
	tests := []struct {
		name  string
		yTrue []float64
		yPred []float64
	}{
		{name: "empty", yTrue: nil, yPred: nil},
		{name: "mismatch", yTrue: []float64{1, 2}, yPred: []float64{1}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := CalculateMetrics(tt.yTrue, tt.yPred, nil, nil)
			var empty *EmptyInputError
			if !errors.As(err, &empty) {
				t.Fatalf("expected EmptyInputError, got %v", err)
			}
		})
	}
}

func TestCalculateMetricsImportanceTable(t *testing.T) {
	X, y := syntheticRows(60, 3)
	forest := NewRandomForest(ForestConfig{Trees: 30, Seed: 4})
	if err := forest.Train(X, y); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	pred, _ := forest.PredictBatch(X)
	report, err := CalculateMetrics(y, pred, DefaultFeatures(), forest)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(report.FeatureImportance) != 7 {
		t.Fatalf("expected 7 rows, got %d", len(report.FeatureImportance))
	}
	for i := 1; i < len(report.FeatureImportance); i++ {
		if report.FeatureImportance[i].Importance > report.FeatureImportance[i-1].Importance {
			t.Fatal("expected descending importance")
		}
	}
	if total := ImportanceTotal(report.FeatureImportance); math.Abs(total-1) > 1e-6 {
		t.Fatalf("expected total 1, got %v", total)
	}

	if _, err := CalculateMetrics(y, pred, []string{"a"}, forest); err == nil {
		t.Fatal("expected error for name count mismatch")
	}
}

func TestRankImportancesTies(t *testing.T) {
	table, err := RankImportances([]string{"b", "a", "c"}, []float64{0.25, 0.25, 0.5})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := []string{"c", "a", "b"}
	for i, row := range table {
		if row.Feature != want[i] {
			t.Fatalf("expected order %v, got %v", want, table)
		}
	}
}

func TestMetricsReportUndefinedMAPEEncodesNull(t *testing.T) {
	report, err := CalculateMetrics([]float64{0, 0}, []float64{1, 0}, nil, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !math.IsNaN(report.MAPE) {
		t.Fatalf("expected NaN mape, got %v", report.MAPE)
	}
	payload, err := json.Marshal(report)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if !strings.Contains(string(payload), `"mape":null`) {
		t.Fatalf("expected null mape in %s", payload)
	}
	if strings.Count(string(payload), `"mape"`) != 1 {
		t.Fatalf("expected a single mape key in %s", payload)
	}
}
