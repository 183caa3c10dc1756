package ml

const (
	ColScreenTime    = "screen_time_hours"
	ColWorkScreen    = "work_screen_hours"
	ColLeisureScreen = "leisure_screen_hours"
	ColSleepHours    = "sleep_hours"
	ColSleepQuality  = "sleep_quality_1_5"
	ColStressLevel   = "stress_level_0_10"
	ColProductivity  = "productivity_0_100"

	DefaultTarget = "mental_wellness_index_0_100"
)

// DailyInput is one day of self-reported behaviour. Field order matches
// DefaultFeatures and is the column order models are trained on.
type DailyInput struct {
	ScreenTimeHours    float64 `json:"screen_time_hours"`
	WorkScreenHours    float64 `json:"work_screen_hours"`
	LeisureScreenHours float64 `json:"leisure_screen_hours"`
	SleepHours         float64 `json:"sleep_hours"`
	SleepQuality       float64 `json:"sleep_quality"`
	StressLevel        float64 `json:"stress_level"`
	Productivity       float64 `json:"productivity"`
}

// Record is a dataset row with its observed wellness index.
type Record struct {
	Input         DailyInput
	WellnessIndex float64
}

func DefaultFeatures() []string {
	return []string{
		ColScreenTime,
		ColWorkScreen,
		ColLeisureScreen,
		ColSleepHours,
		ColSleepQuality,
		ColStressLevel,
		ColProductivity,
	}
}

func (in DailyInput) Vector() []float64 {
	return []float64{
		in.ScreenTimeHours,
		in.WorkScreenHours,
		in.LeisureScreenHours,
		in.SleepHours,
		in.SleepQuality,
		in.StressLevel,
		in.Productivity,
	}
}

// InputFromVector is the inverse of DailyInput.Vector.
func InputFromVector(v []float64) (DailyInput, error) {
	if len(v) != len(DefaultFeatures()) {
		return DailyInput{}, &EmptyInputError{What: "feature vector", Expected: len(DefaultFeatures()), Got: len(v)}
	}
	return DailyInput{
		ScreenTimeHours:    v[0],
		WorkScreenHours:    v[1],
		LeisureScreenHours: v[2],
		SleepHours:         v[3],
		SleepQuality:       v[4],
		StressLevel:        v[5],
		Productivity:       v[6],
	}, nil
}

// SelectFeatures projects the named feature columns and the target column out of ds.
// A nil features slice selects DefaultFeatures and an empty target selects
// DefaultTarget. Columns of the returned matrix follow the order of features.
func SelectFeatures(ds *Dataset, features []string, target string) (X [][]float64, y []float64, names []string, err error) {
	if ds == nil || ds.Len() == 0 {
		return nil, nil, nil, &DataLoadError{Reason: "dataset has zero rows"}
	}
	if features == nil {
		features = DefaultFeatures()
	}
	if len(features) == 0 {
		return nil, nil, nil, &EmptyInputError{What: "feature list"}
	}
	if target == "" {
		target = DefaultTarget
	}

	for _, name := range features {
		if !ds.HasColumn(name) {
			return nil, nil, nil, &MissingColumnError{Column: name}
		}
	}
	if !ds.HasColumn(target) {
		return nil, nil, nil, &MissingColumnError{Column: target}
	}

	columns := make([][]float64, len(features))
	for j, name := range features {
		col, err := ds.Column(name)
		if err != nil {
			return nil, nil, nil, err
		}
		columns[j] = col
	}
	y, err = ds.Column(target)
	if err != nil {
		return nil, nil, nil, err
	}

	X = make([][]float64, ds.Len())
	for i := range X {
		row := make([]float64, len(features))
		for j := range features {
			row[j] = columns[j][i]
		}
		X[i] = row
	}
	names = append([]string(nil), features...)
	return X, y, names, nil
}
