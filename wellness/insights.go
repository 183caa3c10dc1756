package wellness

import "mindsync/ml"

// Insight is an observation about one day with the matching recommendation.
type Insight struct {
	Area           string `json:"area"`
	Observation    string `json:"observation"`
	Recommendation string `json:"recommendation"`
}

// Insights applies the fixed observation rules to in. Days that trigger no rule
// return an empty slice.
func Insights(in ml.DailyInput) []Insight {
	insights := []Insight{}

	switch {
	case in.ScreenTimeHours > 10:
		insights = append(insights, Insight{"screen_time", "High screen time", "Try cutting screen time by 1-2 hours a day"})
	case in.ScreenTimeHours < 4:
		insights = append(insights, Insight{"screen_time", "Healthy screen time", "Keep up the healthy screen time habits"})
	}

	switch {
	case in.SleepHours < 6:
		insights = append(insights, Insight{"sleep", "Not enough sleep", "Aim for 7-9 hours of sleep a night"})
	case in.SleepHours >= 7:
		insights = append(insights, Insight{"sleep", "Enough sleep", "Your sleep is in good shape, keep it up"})
	}

	switch {
	case in.StressLevel > 7:
		insights = append(insights, Insight{"stress", "High stress", "Try relaxation techniques or meditation"})
	case in.StressLevel < 4:
		insights = append(insights, Insight{"stress", "Stress under control", "Your stress is well managed"})
	}

	if in.Productivity > 85 {
		insights = append(insights, Insight{"productivity", "High productivity", "Remember to take breaks between focused work"})
	}

	return insights
}
