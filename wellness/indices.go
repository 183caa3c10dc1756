package wellness

import (
	"math"

	"mindsync/ml"
)

type Level string

const (
	LevelHealthy    Level = "healthy"
	LevelModerate   Level = "moderate"
	LevelConcerning Level = "concerning"
)

// Indices groups the three scores shown for one day.
type Indices struct {
	MentalWellness float64 `json:"mental_wellness_index"`
	DigitalStress  float64 `json:"digital_stress_index"`
	DigitalBalance float64 `json:"digital_balance_index"`
}

func ComputeIndices(mwi float64, in ml.DailyInput) Indices {
	return Indices{
		MentalWellness: mwi,
		DigitalStress:  DigitalStressIndex(in),
		DigitalBalance: DigitalBalanceIndex(in),
	}
}

// Levels interprets each index. Stress is inverted: lower is healthier.
func (i Indices) Levels() map[string]Level {
	return map[string]Level{
		"mental_wellness_index": MentalWellnessLevel(i.MentalWellness),
		"digital_stress_index":  DigitalStressLevel(i.DigitalStress),
		"digital_balance_index": DigitalBalanceLevel(i.DigitalBalance),
	}
}

// DigitalStressIndex weighs screen time and stress at 30% each, poor sleep
// quality and lost productivity at 20% each. Screen time saturates at 12 hours.
func DigitalStressIndex(in ml.DailyInput) float64 {
	screen := math.Min(in.ScreenTimeHours/12*100, 100)
	stress := in.StressLevel * 10
	sleep := (5 - in.SleepQuality) * 20
	productivity := 100 - in.Productivity

	return clamp(screen*0.3 + stress*0.3 + sleep*0.2 + productivity*0.2)
}

// DigitalBalanceIndex averages work/leisure balance, sleep duration,
// productivity and screen time health.
func DigitalBalanceIndex(in ml.DailyInput) float64 {
	balance := 100.0
	if in.ScreenTimeHours > 0 {
		balance = (1 - math.Abs(in.WorkScreenHours-in.LeisureScreenHours)/in.ScreenTimeHours) * 100
	}

	sleep := 100.0
	if in.SleepHours < 7 || in.SleepHours > 9 {
		sleep = 100 - math.Abs(in.SleepHours-8)*12.5
	}

	screen := 100.0
	if in.ScreenTimeHours > 6 {
		screen = math.Max(100-(in.ScreenTimeHours-6)*10, 0)
	}

	return clamp(balance*0.25 + sleep*0.25 + in.Productivity*0.25 + screen*0.25)
}

func MentalWellnessLevel(score float64) Level {
	switch {
	case score >= 70:
		return LevelHealthy
	case score >= 50:
		return LevelModerate
	default:
		return LevelConcerning
	}
}

func DigitalStressLevel(score float64) Level {
	switch {
	case score <= 40:
		return LevelHealthy
	case score <= 70:
		return LevelModerate
	default:
		return LevelConcerning
	}
}

func DigitalBalanceLevel(score float64) Level {
	switch {
	case score >= 70:
		return LevelHealthy
	case score >= 50:
		return LevelModerate
	default:
		return LevelConcerning
	}
}

func clamp(v float64) float64 {
	return math.Min(math.Max(v, 0), 100)
}
