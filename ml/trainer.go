package ml

import (
	"fmt"
	"math"
	"math/rand"
)

// TrainConfig configures Train. Zero fields fall back to DefaultTrainConfig, so
// a seed of 0 is read as the default 42.
type TrainConfig struct {
	TestFraction float64
	Seed         int64
	Forest       ForestConfig
	FeatureNames []string
}

func DefaultTrainConfig() TrainConfig {
	return TrainConfig{
		TestFraction: 0.2,
		Seed:         42,
		Forest:       DefaultForestConfig(),
	}
}

func (c TrainConfig) withDefaults() TrainConfig {
	if c.TestFraction == 0 {
		c.TestFraction = 0.2
	}
	if c.Seed == 0 {
		c.Seed = 42
	}
	if c.Forest.Trees <= 0 {
		c.Forest.Trees = 300
	}
	return c
}

// Split is a seeded train/test partition. Index slices refer to rows of the
// matrix passed to SplitTrainTest.
type Split struct {
	XTrain     [][]float64
	XTest      [][]float64
	YTrain     []float64
	YTest      []float64
	TrainIndex []int
	TestIndex  []int
}

// SplitTrainTest shuffles row indices with seed and assigns the first
// round(n*(1-testFraction)) of them to the training partition.
func SplitTrainTest(features [][]float64, targets []float64, testFraction float64, seed int64) (*Split, error) {
	if len(features) == 0 || len(targets) == 0 {
		return nil, &EmptyInputError{What: "split input"}
	}
	if len(features) != len(targets) {
		return nil, &EmptyInputError{What: "split input", Expected: len(features), Got: len(targets)}
	}
	if testFraction <= 0 || testFraction >= 1 {
		return nil, fmt.Errorf("test fraction must be in (0, 1), got %v", testFraction)
	}

	n := len(features)
	trainSize := int(math.Round(float64(n) * (1 - testFraction)))
	if trainSize < 2 || n-trainSize < 2 {
		return nil, &InsufficientDataError{Rows: n, Train: trainSize, Test: n - trainSize}
	}

	rnd := rand.New(rand.NewSource(seed))
	indices := rnd.Perm(n)

	split := &Split{
		XTrain:     make([][]float64, 0, trainSize),
		XTest:      make([][]float64, 0, n-trainSize),
		YTrain:     make([]float64, 0, trainSize),
		YTest:      make([]float64, 0, n-trainSize),
		TrainIndex: make([]int, 0, trainSize),
		TestIndex:  make([]int, 0, n-trainSize),
	}
	for i, idx := range indices {
		if i < trainSize {
			split.XTrain = append(split.XTrain, features[idx])
			split.YTrain = append(split.YTrain, targets[idx])
			split.TrainIndex = append(split.TrainIndex, idx)
		} else {
			split.XTest = append(split.XTest, features[idx])
			split.YTest = append(split.YTest, targets[idx])
			split.TestIndex = append(split.TestIndex, idx)
		}
	}
	return split, nil
}

// TrainResult is the fitted model with the partitions it was fitted and scored on.
type TrainResult struct {
	Model *RandomForest
	Split *Split
	YPred []float64
}

// Train splits the data, fits a random forest on the training partition and
// predicts the held-out partition. The forest seed defaults to the split seed.
func Train(features [][]float64, targets []float64, config TrainConfig) (*TrainResult, error) {
	config = config.withDefaults()
	if err := checkTrainingInput(features, targets); err != nil {
		return nil, err
	}
	if config.FeatureNames != nil && len(config.FeatureNames) != len(features[0]) {
		return nil, &EmptyInputError{What: "feature names", Expected: len(features[0]), Got: len(config.FeatureNames)}
	}

	split, err := SplitTrainTest(features, targets, config.TestFraction, config.Seed)
	if err != nil {
		return nil, err
	}

	forestConfig := config.Forest
	if forestConfig.Seed == 0 {
		forestConfig.Seed = config.Seed
	}
	model := NewRandomForest(forestConfig)
	if config.FeatureNames != nil {
		model.SetFeatureNames(config.FeatureNames)
	}
	if err := model.Train(split.XTrain, split.YTrain); err != nil {
		return nil, fmt.Errorf("fit forest: %w", err)
	}

	predictions, err := model.PredictBatch(split.XTest)
	if err != nil {
		return nil, fmt.Errorf("predict test partition: %w", err)
	}

	return &TrainResult{
		Model: model,
		Split: split,
		YPred: predictions,
	}, nil
}
