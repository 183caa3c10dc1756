package ml

// PipelineResult is everything produced by one TrainPipeline run.
type PipelineResult struct {
	Dataset  *Dataset
	Features []string
	Target   string
	Train    *TrainResult
	Metrics  *MetricsReport
}

func (r *PipelineResult) Model() *RandomForest {
	return r.Train.Model
}

// TrainPipeline loads the dataset at path, selects the default features and the
// given target, trains a forest and scores it on the held-out partition.
func TrainPipeline(path, target string, config TrainConfig, opts ...LoadOption) (*PipelineResult, error) {
	ds, err := LoadDataset(path, opts...)
	if err != nil {
		return nil, err
	}
	return TrainOnDataset(ds, target, config)
}

func TrainOnDataset(ds *Dataset, target string, config TrainConfig) (*PipelineResult, error) {
	if target == "" {
		target = DefaultTarget
	}
	X, y, names, err := SelectFeatures(ds, nil, target)
	if err != nil {
		return nil, err
	}

	config.FeatureNames = names
	result, err := Train(X, y, config)
	if err != nil {
		return nil, err
	}

	metrics, err := CalculateMetrics(result.Split.YTest, result.YPred, names, result.Model)
	if err != nil {
		return nil, err
	}

	return &PipelineResult{
		Dataset:  ds,
		Features: names,
		Target:   target,
		Train:    result,
		Metrics:  metrics,
	}, nil
}
