package wellness

import "mindsync/ml"

// Evaluation is the full interpretation of one predicted day.
type Evaluation struct {
	Score      float64          `json:"score"`
	Band       string           `json:"band"`
	Indices    Indices          `json:"indices"`
	Levels     map[string]Level `json:"levels"`
	Insights   []Insight        `json:"insights"`
	Percentile float64          `json:"percentile"`
}

// Evaluate interprets a predicted score for in. population holds the observed
// wellness values the percentile is ranked against and may be empty.
func Evaluate(score float64, in ml.DailyInput, population []float64) Evaluation {
	indices := ComputeIndices(score, in)
	return Evaluation{
		Score:      score,
		Band:       Band(score),
		Indices:    indices,
		Levels:     indices.Levels(),
		Insights:   Insights(in),
		Percentile: Percentile(score, population),
	}
}
