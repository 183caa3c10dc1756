package ml

import (
	"encoding/json"
	"errors"
	"math/rand"
	"os"
	"runtime"

	"golang.org/x/sync/errgroup"
)

const (
	ModelTypeRandomForest   = "random_forest"
	ModelTypeRegressionTree = "regression_tree"
)

// ForestConfig controls the bagged ensemble. Zero values select the defaults
// noted on each field.
type ForestConfig struct {
	Trees           int   `json:"trees"`             // 300
	MaxDepth        int   `json:"max_depth"`         // 0: unlimited
	MinSamplesSplit int   `json:"min_samples_split"` // 2
	MinSamplesLeaf  int   `json:"min_samples_leaf"`  // 1
	MaxFeatures     int   `json:"max_features"`      // 0: max(1, width/3)
	Seed            int64 `json:"seed"`
	Workers         int   `json:"-"` // 0: GOMAXPROCS
}

func DefaultForestConfig() ForestConfig {
	return ForestConfig{
		Trees:           300,
		MinSamplesSplit: 2,
		MinSamplesLeaf:  1,
		Seed:            42,
	}
}

// RandomForest averages regression trees, each grown on a bootstrap resample with
// a random feature subset considered at every split. After Train it is read-only
// and safe for concurrent Predict calls.
type RandomForest struct {
	config   ForestConfig
	trees    []*RegressionTree
	features []string
	width    int
}

func NewRandomForest(config ForestConfig) *RandomForest {
	if config.Trees <= 0 {
		config.Trees = 300
	}
	if config.MinSamplesSplit < 2 {
		config.MinSamplesSplit = 2
	}
	if config.MinSamplesLeaf < 1 {
		config.MinSamplesLeaf = 1
	}
	return &RandomForest{config: config}
}

// SetFeatureNames records the column order the forest was trained on.
func (f *RandomForest) SetFeatureNames(names []string) {
	f.features = append([]string(nil), names...)
}

func (f *RandomForest) FeatureNames() []string {
	return append([]string(nil), f.features...)
}

func (f *RandomForest) NumTrees() int {
	return len(f.trees)
}

func (f *RandomForest) Width() int {
	return f.width
}

// Train grows the ensemble. Per-tree seeds are drawn from config.Seed before any
// tree is grown, so the result does not depend on Workers.
func (f *RandomForest) Train(features [][]float64, targets []float64) error {
	if err := checkTrainingInput(features, targets); err != nil {
		return err
	}
	if f.features != nil && len(f.features) != len(features[0]) {
		return &EmptyInputError{What: "feature names", Expected: len(features[0]), Got: len(f.features)}
	}

	width := len(features[0])
	maxFeatures := f.config.MaxFeatures
	if maxFeatures <= 0 {
		maxFeatures = width / 3
		if maxFeatures < 1 {
			maxFeatures = 1
		}
	}

	master := rand.New(rand.NewSource(f.config.Seed))
	seeds := make([]int64, f.config.Trees)
	for i := range seeds {
		seeds[i] = master.Int63()
	}

	workers := f.config.Workers
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}

	trees := make([]*RegressionTree, f.config.Trees)
	n := len(features)
	var g errgroup.Group
	g.SetLimit(workers)
	for i := range trees {
		i := i
		g.Go(func() error {
			rnd := rand.New(rand.NewSource(seeds[i]))
			rows := make([]int, n)
			for j := range rows {
				rows[j] = rnd.Intn(n)
			}
			tree := NewRegressionTree(TreeConfig{
				MaxDepth:        f.config.MaxDepth,
				MinSamplesSplit: f.config.MinSamplesSplit,
				MinSamplesLeaf:  f.config.MinSamplesLeaf,
				MaxFeatures:     maxFeatures,
				Seed:            seeds[i],
			})
			if err := tree.fit(features, targets, rows, rnd); err != nil {
				return err
			}
			trees[i] = tree
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	f.trees = trees
	f.width = width
	return nil
}

func (f *RandomForest) Predict(features []float64) (float64, error) {
	if f == nil || len(f.trees) == 0 {
		return 0, errors.New("model not trained")
	}
	if len(features) != f.width {
		return 0, &EmptyInputError{What: "feature vector", Expected: f.width, Got: len(features)}
	}
	sum := 0.0
	for _, tree := range f.trees {
		sum += tree.predict(features)
	}
	return sum / float64(len(f.trees)), nil
}

func (f *RandomForest) PredictBatch(rows [][]float64) ([]float64, error) {
	out := make([]float64, len(rows))
	for i, row := range rows {
		v, err := f.Predict(row)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

// FeatureImportances averages the per-tree normalized impurity decrease and
// renormalizes so the result sums to 1. When no tree ever split, every feature
// gets an equal share.
func (f *RandomForest) FeatureImportances() []float64 {
	importances := make([]float64, f.width)
	if f.width == 0 {
		return importances
	}
	for _, tree := range f.trees {
		for i, v := range tree.FeatureImportances() {
			importances[i] += v
		}
	}
	total := 0.0
	for _, v := range importances {
		total += v
	}
	if total == 0 {
		for i := range importances {
			importances[i] = 1 / float64(f.width)
		}
		return importances
	}
	for i := range importances {
		importances[i] /= total
	}
	return importances
}

type forestArtifact struct {
	ModelType string       `json:"model_type"`
	Config    ForestConfig `json:"config"`
	Features  []string     `json:"features"`
	Width     int          `json:"width"`
	Trees     [][]TreeNode `json:"trees"`
}

func (f *RandomForest) Save(path string) error {
	if len(f.trees) == 0 {
		return errors.New("model not trained")
	}
	artifact := forestArtifact{
		ModelType: ModelTypeRandomForest,
		Config:    f.config,
		Features:  f.features,
		Width:     f.width,
		Trees:     make([][]TreeNode, len(f.trees)),
	}
	for i, tree := range f.trees {
		artifact.Trees[i] = tree.nodes
	}
	payload, err := json.Marshal(artifact)
	if err != nil {
		return err
	}
	return os.WriteFile(path, payload, 0o600)
}

func (f *RandomForest) Load(path string) error {
	payload, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	var artifact forestArtifact
	if err := json.Unmarshal(payload, &artifact); err != nil {
		return err
	}
	if artifact.ModelType != "" && artifact.ModelType != ModelTypeRandomForest {
		return errors.New("unexpected model type " + artifact.ModelType)
	}
	if len(artifact.Trees) == 0 {
		return errors.New("model has no trees")
	}
	if artifact.Features != nil && len(artifact.Features) != artifact.Width {
		return errors.New("feature names do not match model width")
	}

	trees := make([]*RegressionTree, len(artifact.Trees))
	for i, nodes := range artifact.Trees {
		tree := &RegressionTree{}
		if err := tree.restore(treeArtifact{Width: artifact.Width, Nodes: nodes}); err != nil {
			return err
		}
		trees[i] = tree
	}
	f.config = artifact.Config
	f.features = artifact.Features
	f.width = artifact.Width
	f.trees = trees
	return nil
}

func LoadForest(path string) (*RandomForest, error) {
	forest := &RandomForest{}
	if err := forest.Load(path); err != nil {
		return nil, err
	}
	return forest, nil
}
