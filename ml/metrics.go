package ml

import (
	"encoding/json"
	"math"
	"sort"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

type FeatureImportance struct {
	Feature    string  `json:"feature"`
	Importance float64 `json:"importance"`
}

// MetricsReport summarizes held-out accuracy. MAPE and SMAPE are percentages.
type MetricsReport struct {
	R2                float64             `json:"r2"`
	MAE               float64             `json:"mae"`
	MAPE              float64             `json:"mape"`
	SMAPE             float64             `json:"smape"`
	Samples           int                 `json:"samples"`
	FeatureImportance []FeatureImportance `json:"feature_importance,omitempty"`
}

// CalculateMetrics scores predictions against observed values. The importance
// table is filled only when both names and model are given.
//
// MAPE skips rows whose observed value is zero; it is NaN when every row is zero.
// A SMAPE row where both values are zero counts as a perfect prediction.
func CalculateMetrics(yTrue, yPred []float64, names []string, model ImportanceProvider) (*MetricsReport, error) {
	if len(yTrue) == 0 || len(yPred) == 0 {
		return nil, &EmptyInputError{What: "metrics input", Expected: len(yTrue), Got: len(yPred)}
	}
	if len(yTrue) != len(yPred) {
		return nil, &EmptyInputError{What: "metrics input", Expected: len(yTrue), Got: len(yPred)}
	}

	report := &MetricsReport{
		R2:      R2Score(yTrue, yPred),
		MAE:     MeanAbsoluteError(yTrue, yPred),
		MAPE:    MeanAbsolutePercentageError(yTrue, yPred),
		SMAPE:   SymmetricMAPE(yTrue, yPred),
		Samples: len(yTrue),
	}

	if names != nil && model != nil {
		table, err := RankImportances(names, model.FeatureImportances())
		if err != nil {
			return nil, err
		}
		report.FeatureImportance = table
	}
	return report, nil
}

// R2Score is 1 - SSres/SStot. With constant observations it is 1 for an exact
// fit and 0 otherwise.
func R2Score(yTrue, yPred []float64) float64 {
	mean := stat.Mean(yTrue, nil)
	ssRes, ssTot := 0.0, 0.0
	for i := range yTrue {
		res := yTrue[i] - yPred[i]
		tot := yTrue[i] - mean
		ssRes += res * res
		ssTot += tot * tot
	}
	if ssTot == 0 {
		if ssRes == 0 {
			return 1
		}
		return 0
	}
	return 1 - ssRes/ssTot
}

func MeanAbsoluteError(yTrue, yPred []float64) float64 {
	errs := make([]float64, len(yTrue))
	for i := range yTrue {
		errs[i] = math.Abs(yTrue[i] - yPred[i])
	}
	return stat.Mean(errs, nil)
}

func MeanAbsolutePercentageError(yTrue, yPred []float64) float64 {
	ratios := make([]float64, 0, len(yTrue))
	for i := range yTrue {
		if yTrue[i] == 0 {
			continue
		}
		ratios = append(ratios, math.Abs((yTrue[i]-yPred[i])/yTrue[i]))
	}
	if len(ratios) == 0 {
		return math.NaN()
	}
	return stat.Mean(ratios, nil) * 100
}

func SymmetricMAPE(yTrue, yPred []float64) float64 {
	terms := make([]float64, len(yTrue))
	for i := range yTrue {
		denom := math.Abs(yTrue[i]) + math.Abs(yPred[i])
		if denom == 0 {
			continue
		}
		terms[i] = 2 * math.Abs(yTrue[i]-yPred[i]) / denom
	}
	return stat.Mean(terms, nil) * 100
}

// RankImportances pairs names with scores and sorts by descending importance,
// breaking ties by name.
func RankImportances(names []string, importances []float64) ([]FeatureImportance, error) {
	if len(names) != len(importances) {
		return nil, &EmptyInputError{What: "feature importance", Expected: len(names), Got: len(importances)}
	}
	table := make([]FeatureImportance, len(names))
	for i, name := range names {
		table[i] = FeatureImportance{Feature: name, Importance: importances[i]}
	}
	sort.SliceStable(table, func(a, b int) bool {
		if table[a].Importance != table[b].Importance {
			return table[a].Importance > table[b].Importance
		}
		return table[a].Feature < table[b].Feature
	})
	return table, nil
}

// ImportanceTotal sums a ranked table.
func ImportanceTotal(table []FeatureImportance) float64 {
	values := make([]float64, len(table))
	for i, row := range table {
		values[i] = row.Importance
	}
	return floats.Sum(values)
}

// MarshalJSON encodes an undefined MAPE as null.
func (r MetricsReport) MarshalJSON() ([]byte, error) {
	type plain MetricsReport
	out := struct {
		plain
		MAPE *float64 `json:"mape"`
	}{plain: plain(r)}
	if !math.IsNaN(r.MAPE) {
		mape := r.MAPE
		out.MAPE = &mape
	}
	return json.Marshal(out)
}
