package wellness

import (
	"errors"
	"math"
	"testing"
)

func answers(v int) []int {
	out := make([]int, len(Questionnaire))
	for i := range out {
		out[i] = v
	}
	return out
}

func titles(recs []Recommendation) []string {
	out := make([]string, len(recs))
	for i, r := range recs {
		out[i] = r.Title
	}
	return out
}

func sameTitles(got []Recommendation, want ...string) bool {
	if len(got) != len(want) {
		return false
	}
	for i := range want {
		if got[i].Title != want[i] {
			return false
		}
	}
	return true
}

func TestAssessmentLevel(t *testing.T) {
	tests := []struct {
		score float64
		want  string
	}{
		{0, AssessmentHealthy},
		{24.99, AssessmentHealthy},
		{25, AssessmentModerate},
		{49.99, AssessmentModerate},
		{50, AssessmentConcerning},
		{74.99, AssessmentConcerning},
		{75, AssessmentCritical},
		{100, AssessmentCritical},
	}
	for _, tt := range tests {
		if got, _ := AssessmentLevel(tt.score); got != tt.want {
			t.Fatalf("AssessmentLevel(%v): expected %s, got %s", tt.score, tt.want, got)
		}
	}
}

func TestAssessDigitalWellness(t *testing.T) {
	tests := []struct {
		name      string
		req       AssessmentRequest
		wantScore float64
		wantLevel string
		wantRecs  []string
	}{
		{
			name:      "never",
			req:       AssessmentRequest{Answers: answers(0)},
			wantScore: 0,
			wantLevel: AssessmentHealthy,
			wantRecs:  []string{"Digital Literacy", "Intentional Usage"},
		},
		{
			name:      "rarely is the moderate boundary",
			req:       AssessmentRequest{Answers: answers(1)},
			wantScore: 25,
			wantLevel: AssessmentModerate,
			wantRecs:  []string{"Digital Literacy", "Intentional Usage"},
		},
		{
			name:      "sometimes is the concerning boundary",
			req:       AssessmentRequest{Answers: answers(2)},
			wantScore: 50,
			wantLevel: AssessmentConcerning,
			wantRecs:  []string{"Digital Detox Challenge"},
		},
		{
			name:      "always",
			req:       AssessmentRequest{Answers: answers(4)},
			wantScore: 100,
			wantLevel: AssessmentCritical,
			wantRecs:  []string{"Digital Detox Challenge", "Mindfulness Training", "Reality Check Practice"},
		},
		{
			name:      "usage over three hours",
			req:       AssessmentRequest{Answers: answers(1), Usage: map[string]int{"instagram": 120, "tiktok": 61}},
			wantScore: 25,
			wantLevel: AssessmentModerate,
			wantRecs:  []string{"Usage Time Limits"},
		},
		{
			name:      "usage at three hours",
			req:       AssessmentRequest{Answers: answers(0), Usage: map[string]int{"youtube": 180}},
			wantScore: 0,
			wantLevel: AssessmentHealthy,
			wantRecs:  []string{"Digital Literacy", "Intentional Usage"},
		},
		{
			name:      "anxious only",
			req:       AssessmentRequest{Answers: []int{3, 0, 0, 0, 0, 0, 0, 0}},
			wantScore: 3.6 / 34.8 * 100,
			wantLevel: AssessmentHealthy,
			wantRecs:  []string{"Mindfulness Training"},
		},
		{
			name:      "comparison below the category threshold",
			req:       AssessmentRequest{Answers: []int{0, 0, 2, 0, 0, 0, 0, 0}},
			wantScore: 2.6 / 34.8 * 100,
			wantLevel: AssessmentHealthy,
			wantRecs:  []string{"Digital Literacy", "Intentional Usage"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := AssessDigitalWellness(tt.req)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if math.Abs(got.Score-tt.wantScore) > 1e-9 {
				t.Fatalf("expected score %v, got %v", tt.wantScore, got.Score)
			}
			if got.Level != tt.wantLevel {
				t.Fatalf("expected level %s, got %s", tt.wantLevel, got.Level)
			}
			if !sameTitles(got.Recommendations, tt.wantRecs...) {
				t.Fatalf("expected recommendations %v, got %v", tt.wantRecs, titles(got.Recommendations))
			}
		})
	}
}

func TestAssessmentUsageMessage(t *testing.T) {
	got, err := AssessDigitalWellness(AssessmentRequest{
		Answers: answers(0),
		Usage:   map[string]int{"instagram": 150, "discord": 90},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.TotalUsage != 240 {
		t.Fatalf("expected 240 minutes, got %d", got.TotalUsage)
	}
	want := "Set app limits to reduce from 240 to 120 minutes daily"
	if len(got.Recommendations) != 1 || got.Recommendations[0].Description != want {
		t.Fatalf("expected %q, got %+v", want, got.Recommendations)
	}
}

func TestAssessmentCategories(t *testing.T) {
	got, err := AssessDigitalWellness(AssessmentRequest{Answers: answers(4)})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got.Categories) != 7 {
		t.Fatalf("expected 7 categories, got %d", len(got.Categories))
	}
	if got.Categories[0].Category != CategoryAnxiety {
		t.Fatalf("expected categories in questionnaire order, got %s first", got.Categories[0].Category)
	}
	for _, c := range got.Categories {
		if c.Category == CategoryValidation {
			// Mean of 4*1.1 and 4*1.0 over the larger weight's maximum.
			if math.Abs(c.Average-4.2) > 1e-9 || math.Abs(c.Percent-4.2/4.4*100) > 1e-9 {
				t.Fatalf("unexpected validation category %+v", c)
			}
			continue
		}
		if math.Abs(c.Percent-100) > 1e-9 {
			t.Fatalf("expected %s at 100%%, got %v", c.Category, c.Percent)
		}
	}
}

func TestAssessmentValidation(t *testing.T) {
	tests := []struct {
		name  string
		req   AssessmentRequest
		field string
	}{
		{"too few answers", AssessmentRequest{Answers: []int{1, 2}}, "answers"},
		{"answer above range", AssessmentRequest{Answers: []int{5, 0, 0, 0, 0, 0, 0, 0}}, "answers[0]"},
		{"negative answer", AssessmentRequest{Answers: []int{0, 0, 0, -1, 0, 0, 0, 0}}, "answers[3]"},
		{"negative minutes", AssessmentRequest{Answers: answers(0), Usage: map[string]int{"tiktok": -5}}, "usage.tiktok"},
		{"too many minutes", AssessmentRequest{Answers: answers(0), Usage: map[string]int{"tiktok": 481}}, "usage.tiktok"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := AssessDigitalWellness(tt.req)
			var verr *ValidationError
			if !errors.As(err, &verr) {
				t.Fatalf("expected ValidationError, got %v", err)
			}
			if verr.Fields[0].Field != tt.field {
				t.Fatalf("expected field %s, got %+v", tt.field, verr.Fields)
			}
		})
	}
}
