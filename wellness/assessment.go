package wellness

import (
	"fmt"
	"sort"
	"strings"
)

// Assessment levels for the digital wellness questionnaire.
const (
	AssessmentHealthy    = "healthy"
	AssessmentModerate   = "moderate"
	AssessmentConcerning = "concerning"
	AssessmentCritical   = "critical"
)

const (
	MaxAnswer           = 4
	MaxPlatformMinutes  = 480
	usageLimitMinutes   = 180
	usageTargetMinutes  = 120
	categoryHighImpact  = 3.0
	CategoryAnxiety     = "anxiety"
	CategoryFOMO        = "fomo"
	CategoryComparison  = "social_comparison"
	CategoryValidation  = "validation_seeking"
	CategoryHabit       = "habit_formation"
	CategoryConsumption = "mindless_consumption"
	CategorySelfEsteem  = "self_esteem"
)

// Question is one weighted item of the assessment. Answers run from 0 (never)
// to 4 (always).
type Question struct {
	Text     string  `json:"text"`
	Category string  `json:"category"`
	Weight   float64 `json:"weight"`
}

// Questionnaire is the fixed question set. Answers are matched by position.
var Questionnaire = []Question{
	{"How often do you feel anxious when you can't check your social media?", CategoryAnxiety, 1.2},
	{"Do you feel left out when you see others having fun without you?", CategoryFOMO, 1.0},
	{"How often do you compare your life to others' social media posts?", CategoryComparison, 1.3},
	{"Do you feel pressured to post about your life to keep up appearances?", CategoryValidation, 1.1},
	{"How often do you check social media first thing in the morning?", CategoryHabit, 0.9},
	{"Do you feel your posts don't get enough likes/comments?", CategoryValidation, 1.0},
	{"How often do you scroll through feeds mindlessly?", CategoryConsumption, 0.8},
	{"Do you feel inadequate when seeing others' achievements?", CategorySelfEsteem, 1.4},
}

// AssessmentRequest carries one answer per Questionnaire item and optional
// daily minutes per platform.
type AssessmentRequest struct {
	Answers []int          `json:"answers"`
	Usage   map[string]int `json:"usage,omitempty"`
}

type Recommendation struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Priority    string `json:"priority"`
	Category    string `json:"category"`
}

// CategoryScore is the mean weighted answer of a category and its share of the
// category maximum in percent.
type CategoryScore struct {
	Category string  `json:"category"`
	Average  float64 `json:"average"`
	Percent  float64 `json:"percent"`
}

type Assessment struct {
	Score           float64          `json:"score"`
	Level           string           `json:"level"`
	Description     string           `json:"description"`
	TotalUsage      int              `json:"total_usage_minutes"`
	Categories      []CategoryScore  `json:"categories"`
	Recommendations []Recommendation `json:"recommendations"`
}

// AssessmentLevel maps a 0-100 assessment score to its level and description.
func AssessmentLevel(score float64) (string, string) {
	switch {
	case score < 25:
		return AssessmentHealthy, "You have a balanced relationship with digital technology"
	case score < 50:
		return AssessmentModerate, "Some signs of digital stress, stay aware of your habits"
	case score < 75:
		return AssessmentConcerning, "Significant digital impact, consider a digital detox"
	default:
		return AssessmentCritical, "Digital habits need urgent attention for your mental health"
	}
}

func validateAssessment(req AssessmentRequest) error {
	var fields []FieldError
	if len(req.Answers) != len(Questionnaire) {
		fields = append(fields, FieldError{
			Field:   "answers",
			Value:   float64(len(req.Answers)),
			Message: fmt.Sprintf("must contain exactly %d answers", len(Questionnaire)),
		})
	}
	for i, a := range req.Answers {
		if a < 0 || a > MaxAnswer {
			fields = append(fields, FieldError{
				Field:   fmt.Sprintf("answers[%d]", i),
				Value:   float64(a),
				Message: fmt.Sprintf("must be between 0 and %d", MaxAnswer),
			})
		}
	}
	for _, platform := range sortedPlatforms(req.Usage) {
		minutes := req.Usage[platform]
		if strings.TrimSpace(platform) == "" || minutes < 0 || minutes > MaxPlatformMinutes {
			fields = append(fields, FieldError{
				Field:   "usage." + platform,
				Value:   float64(minutes),
				Message: fmt.Sprintf("must name a platform with 0 to %d minutes", MaxPlatformMinutes),
			})
		}
	}
	if len(fields) == 0 {
		return nil
	}
	return &ValidationError{Fields: fields}
}

func sortedPlatforms(usage map[string]int) []string {
	names := make([]string, 0, len(usage))
	for name := range usage {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// AssessDigitalWellness scores the questionnaire as the weighted answer total
// over its maximum, 4 times the summed weights, and derives recommendations from
// the level, the total platform minutes and the per-category averages.
func AssessDigitalWellness(req AssessmentRequest) (Assessment, error) {
	if err := validateAssessment(req); err != nil {
		return Assessment{}, err
	}

	total, maxTotal := 0.0, 0.0
	for i, q := range Questionnaire {
		total += float64(req.Answers[i]) * q.Weight
		maxTotal += MaxAnswer * q.Weight
	}
	score := total / maxTotal * 100
	level, description := AssessmentLevel(score)

	usage := 0
	for _, minutes := range req.Usage {
		usage += minutes
	}

	categories := categoryScores(req.Answers)
	return Assessment{
		Score:           score,
		Level:           level,
		Description:     description,
		TotalUsage:      usage,
		Categories:      categories,
		Recommendations: recommendations(level, usage, categories),
	}, nil
}

// categoryScores keeps categories in questionnaire order.
func categoryScores(answers []int) []CategoryScore {
	type acc struct {
		sum, maxWeight float64
		n              int
	}
	var order []string
	byCategory := map[string]*acc{}
	for i, q := range Questionnaire {
		a, ok := byCategory[q.Category]
		if !ok {
			a = &acc{}
			byCategory[q.Category] = a
			order = append(order, q.Category)
		}
		a.sum += float64(answers[i]) * q.Weight
		a.n++
		if q.Weight > a.maxWeight {
			a.maxWeight = q.Weight
		}
	}

	scores := make([]CategoryScore, len(order))
	for i, name := range order {
		a := byCategory[name]
		avg := a.sum / float64(a.n)
		scores[i] = CategoryScore{
			Category: name,
			Average:  avg,
			Percent:  clamp(avg / (MaxAnswer * a.maxWeight) * 100),
		}
	}
	return scores
}

func recommendations(level string, usage int, categories []CategoryScore) []Recommendation {
	recs := []Recommendation{}
	if level == AssessmentConcerning || level == AssessmentCritical {
		recs = append(recs, Recommendation{
			Title:       "Digital Detox Challenge",
			Description: "Start with 1 hour of no social media daily, gradually increasing to 4 hours",
			Priority:    "high",
			Category:    "immediate_action",
		})
	}
	if usage > usageLimitMinutes {
		recs = append(recs, Recommendation{
			Title:       "Usage Time Limits",
			Description: fmt.Sprintf("Set app limits to reduce from %d to %d minutes daily", usage, usageTargetMinutes),
			Priority:    "high",
			Category:    "usage_management",
		})
	}
	for _, c := range categories {
		if c.Average <= categoryHighImpact {
			continue
		}
		switch c.Category {
		case CategoryComparison:
			recs = append(recs, Recommendation{
				Title:       "Reality Check Practice",
				Description: "Social media shows highlights, not reality. Practice gratitude journaling",
				Priority:    "medium",
				Category:    "mindset_shift",
			})
		case CategoryAnxiety:
			recs = append(recs, Recommendation{
				Title:       "Mindfulness Training",
				Description: "Try 5 minutes of meditation before checking social media",
				Priority:    "medium",
				Category:    "anxiety_management",
			})
		}
	}

	if len(recs) == 0 {
		recs = append(recs,
			Recommendation{
				Title:       "Digital Literacy",
				Description: "Learn how feed algorithms and curated content shape what you see",
				Priority:    "low",
				Category:    "education",
			},
			Recommendation{
				Title:       "Intentional Usage",
				Description: "Set a purpose for each session instead of scrolling by default",
				Priority:    "medium",
				Category:    "habit_building",
			},
		)
	}
	return recs
}
