package ml

// Regressor scores a single feature vector.
type Regressor interface {
	Predict(features []float64) (float64, error)
}

// ImportanceProvider exposes per-feature attribution in training column order.
type ImportanceProvider interface {
	FeatureImportances() []float64
}

type MLModel interface {
	Regressor
	ImportanceProvider
	Train(features [][]float64, targets []float64) error
	Save(path string) error
	Load(path string) error
}

var (
	_ MLModel = (*RandomForest)(nil)
	_ MLModel = (*RegressionTree)(nil)
)
