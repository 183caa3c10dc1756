package wellness

import (
	"fmt"
	"sort"
	"strings"

	"mindsync/ml"
)

// Band labels for a predicted wellness index.
const (
	BandExcellent        = "excellent"
	BandGood             = "good"
	BandNeedsImprovement = "needs_improvement"
	BandAttentionNeeded  = "attention_needed"
)

// Band maps a 0-100 wellness index to its interpretation.
func Band(score float64) string {
	switch {
	case score >= 80:
		return BandExcellent
	case score >= 60:
		return BandGood
	case score >= 40:
		return BandNeedsImprovement
	default:
		return BandAttentionNeeded
	}
}

// FieldError is one out-of-range input value.
type FieldError struct {
	Field   string  `json:"field"`
	Value   float64 `json:"value"`
	Message string  `json:"message"`
}

// ValidationError lists every field of a DailyInput that failed validation.
type ValidationError struct {
	Fields []FieldError
}

func (e *ValidationError) Error() string {
	parts := make([]string, len(e.Fields))
	for i, f := range e.Fields {
		parts[i] = fmt.Sprintf("%s %s (got %g)", f.Field, f.Message, f.Value)
	}
	return "invalid input: " + strings.Join(parts, "; ")
}

// ValidateInput checks the ranges a user can report. The model itself accepts
// anything; this guards the HTTP and CLI entry points.
func ValidateInput(in ml.DailyInput) error {
	var fields []FieldError
	check := func(name string, value, min, max float64) {
		if value < min || value > max {
			fields = append(fields, FieldError{
				Field:   name,
				Value:   value,
				Message: fmt.Sprintf("must be between %g and %g", min, max),
			})
		}
	}

	check("screen_time_hours", in.ScreenTimeHours, 0, 24)
	check("work_screen_hours", in.WorkScreenHours, 0, 24)
	check("leisure_screen_hours", in.LeisureScreenHours, 0, 24)
	check("sleep_hours", in.SleepHours, 0, 24)
	check("sleep_quality", in.SleepQuality, 1, 5)
	check("stress_level", in.StressLevel, 0, 10)
	check("productivity", in.Productivity, 0, 100)

	if in.WorkScreenHours+in.LeisureScreenHours > in.ScreenTimeHours {
		fields = append(fields, FieldError{
			Field:   "screen_time_hours",
			Value:   in.ScreenTimeHours,
			Message: "must be at least work plus leisure screen hours",
		})
	}

	if len(fields) == 0 {
		return nil
	}
	return &ValidationError{Fields: fields}
}

// Percentile is the share of population strictly below score, in percent.
func Percentile(score float64, population []float64) float64 {
	if len(population) == 0 {
		return 0
	}
	sorted := append([]float64(nil), population...)
	sort.Float64s(sorted)
	below := sort.SearchFloat64s(sorted, score)
	return float64(below) / float64(len(sorted)) * 100
}
