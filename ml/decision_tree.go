package ml

import (
	"encoding/json"
	"errors"
	"math"
	"math/rand"
	"os"
	"sort"
)

// RegressionTree is a CART-style regression tree stored as a flat node array.
// Node 0 is the root; children are addressed by absolute index.
type RegressionTree struct {
	config TreeConfig
	nodes  []TreeNode
	width  int
}

type TreeNode struct {
	FeatureIdx int     `json:"feature_idx"`
	Threshold  float64 `json:"threshold"`
	LeftChild  int     `json:"left_child"`
	RightChild int     `json:"right_child"`
	Value      float64 `json:"value"`
	Samples    int     `json:"samples"`
	Impurity   float64 `json:"impurity"`
	IsLeaf     bool    `json:"is_leaf"`
}

// TreeConfig bounds tree growth. MaxDepth <= 0 means unlimited and
// MaxFeatures <= 0 means every feature is a split candidate.
type TreeConfig struct {
	MaxDepth        int   `json:"max_depth"`
	MinSamplesSplit int   `json:"min_samples_split"`
	MinSamplesLeaf  int   `json:"min_samples_leaf"`
	MaxFeatures     int   `json:"max_features"`
	Seed            int64 `json:"seed"`
}

func NewRegressionTree(config TreeConfig) *RegressionTree {
	if config.MinSamplesSplit < 2 {
		config.MinSamplesSplit = 2
	}
	if config.MinSamplesLeaf < 1 {
		config.MinSamplesLeaf = 1
	}
	return &RegressionTree{config: config}
}

// Train fits the tree on every row of features.
func (t *RegressionTree) Train(features [][]float64, targets []float64) error {
	if err := checkTrainingInput(features, targets); err != nil {
		return err
	}
	rows := make([]int, len(features))
	for i := range rows {
		rows[i] = i
	}
	return t.fit(features, targets, rows, rand.New(rand.NewSource(t.config.Seed)))
}

func (t *RegressionTree) fit(features [][]float64, targets []float64, rows []int, rnd *rand.Rand) error {
	if len(rows) == 0 {
		return &EmptyInputError{What: "tree rows"}
	}
	t.width = len(features[0])
	t.nodes = t.nodes[:0]
	t.buildNode(features, targets, rows, 0, rnd)
	return nil
}

func (t *RegressionTree) Predict(features []float64) (float64, error) {
	if t == nil || len(t.nodes) == 0 {
		return 0, errors.New("model not trained")
	}
	if len(features) != t.width {
		return 0, &EmptyInputError{What: "feature vector", Expected: t.width, Got: len(features)}
	}
	return t.predict(features), nil
}

func (t *RegressionTree) predict(features []float64) float64 {
	idx := 0
	for {
		node := t.nodes[idx]
		if node.IsLeaf {
			return node.Value
		}
		if features[node.FeatureIdx] <= node.Threshold {
			idx = node.LeftChild
		} else {
			idx = node.RightChild
		}
	}
}

// FeatureImportances returns the normalized impurity decrease attributed to each
// feature. A tree that never split reports all zeros.
func (t *RegressionTree) FeatureImportances() []float64 {
	importances := make([]float64, t.width)
	total := 0.0
	for _, node := range t.nodes {
		if node.IsLeaf {
			continue
		}
		left := t.nodes[node.LeftChild]
		right := t.nodes[node.RightChild]
		decrease := float64(node.Samples)*node.Impurity -
			float64(left.Samples)*left.Impurity -
			float64(right.Samples)*right.Impurity
		if decrease < 0 {
			decrease = 0
		}
		importances[node.FeatureIdx] += decrease
		total += decrease
	}
	if total > 0 {
		for i := range importances {
			importances[i] /= total
		}
	}
	return importances
}

func (t *RegressionTree) Depth() int {
	if len(t.nodes) == 0 {
		return 0
	}
	return t.depthFrom(0)
}

func (t *RegressionTree) depthFrom(idx int) int {
	node := t.nodes[idx]
	if node.IsLeaf {
		return 0
	}
	left := t.depthFrom(node.LeftChild)
	right := t.depthFrom(node.RightChild)
	if left > right {
		return left + 1
	}
	return right + 1
}

func (t *RegressionTree) Save(path string) error {
	if len(t.nodes) == 0 {
		return errors.New("model not trained")
	}
	payload, err := json.Marshal(treeArtifact{Config: t.config, Width: t.width, Nodes: t.nodes})
	if err != nil {
		return err
	}
	return os.WriteFile(path, payload, 0o600)
}

func (t *RegressionTree) Load(path string) error {
	payload, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	var artifact treeArtifact
	if err := json.Unmarshal(payload, &artifact); err != nil {
		return err
	}
	return t.restore(artifact)
}

type treeArtifact struct {
	Config TreeConfig `json:"config"`
	Width  int        `json:"width"`
	Nodes  []TreeNode `json:"nodes"`
}

func (t *RegressionTree) restore(artifact treeArtifact) error {
	if len(artifact.Nodes) == 0 {
		return errors.New("tree has no nodes")
	}
	for i, node := range artifact.Nodes {
		if node.IsLeaf {
			continue
		}
		if node.FeatureIdx < 0 || node.FeatureIdx >= artifact.Width {
			return errors.New("feature index out of range")
		}
		// Children are appended after their parent while growing.
		if node.LeftChild <= i || node.LeftChild >= len(artifact.Nodes) ||
			node.RightChild <= i || node.RightChild >= len(artifact.Nodes) {
			return errors.New("invalid tree state")
		}
	}
	t.config = artifact.Config
	t.width = artifact.Width
	t.nodes = artifact.Nodes
	return nil
}

func (t *RegressionTree) buildNode(features [][]float64, targets []float64, rows []int, depth int, rnd *rand.Rand) int {
	mean, impurity := meanAndVariance(targets, rows)
	idx := len(t.nodes)
	t.nodes = append(t.nodes, TreeNode{
		FeatureIdx: -1,
		LeftChild:  -1,
		RightChild: -1,
		Value:      mean,
		Samples:    len(rows),
		Impurity:   impurity,
		IsLeaf:     true,
	})

	if t.config.MaxDepth > 0 && depth >= t.config.MaxDepth {
		return idx
	}
	if len(rows) < t.config.MinSamplesSplit || len(rows) < 2*t.config.MinSamplesLeaf || impurity <= 1e-12 {
		return idx
	}

	split, ok := t.findBestSplit(features, targets, rows, rnd)
	if !ok {
		return idx
	}

	leftRows := make([]int, 0, split.leftCount)
	rightRows := make([]int, 0, len(rows)-split.leftCount)
	for _, r := range rows {
		if features[r][split.feature] <= split.threshold {
			leftRows = append(leftRows, r)
		} else {
			rightRows = append(rightRows, r)
		}
	}

	left := t.buildNode(features, targets, leftRows, depth+1, rnd)
	right := t.buildNode(features, targets, rightRows, depth+1, rnd)

	node := &t.nodes[idx]
	node.FeatureIdx = split.feature
	node.Threshold = split.threshold
	node.LeftChild = left
	node.RightChild = right
	node.IsLeaf = false
	return idx
}

type splitCandidate struct {
	feature   int
	threshold float64
	score     float64
	leftCount int
}

// findBestSplit visits features in random order. Once MaxFeatures candidates have
// been examined it stops at the first feature set that produced a valid split, so a
// node is only turned into a leaf when no feature at all can separate its rows.
func (t *RegressionTree) findBestSplit(features [][]float64, targets []float64, rows []int, rnd *rand.Rand) (splitCandidate, bool) {
	maxFeatures := t.config.MaxFeatures
	if maxFeatures <= 0 || maxFeatures > t.width {
		maxFeatures = t.width
	}

	best := splitCandidate{feature: -1, score: math.Inf(1)}
	sorted := make([]int, len(rows))
	for visited, feature := range rnd.Perm(t.width) {
		if visited >= maxFeatures && best.feature != -1 {
			break
		}
		copy(sorted, rows)
		sort.SliceStable(sorted, func(a, b int) bool {
			return features[sorted[a]][feature] < features[sorted[b]][feature]
		})
		if candidate, ok := t.scanFeature(features, targets, sorted, feature); ok && candidate.score < best.score {
			best = candidate
		}
	}
	return best, best.feature != -1
}

// scanFeature sweeps rows sorted by one feature and returns the threshold that
// minimizes the summed squared error of both children.
func (t *RegressionTree) scanFeature(features [][]float64, targets []float64, sorted []int, feature int) (splitCandidate, bool) {
	n := len(sorted)
	totalSum, totalSq := 0.0, 0.0
	for _, r := range sorted {
		totalSum += targets[r]
		totalSq += targets[r] * targets[r]
	}

	minLeaf := t.config.MinSamplesLeaf
	best := splitCandidate{feature: -1, score: math.Inf(1)}
	leftSum, leftSq := 0.0, 0.0
	for i := 0; i < n-1; i++ {
		y := targets[sorted[i]]
		leftSum += y
		leftSq += y * y

		current := features[sorted[i]][feature]
		next := features[sorted[i+1]][feature]
		if current == next {
			continue
		}
		leftN := float64(i + 1)
		rightN := float64(n - i - 1)
		if i+1 < minLeaf || n-i-1 < minLeaf {
			continue
		}
		rightSum := totalSum - leftSum
		rightSq := totalSq - leftSq
		score := (leftSq - leftSum*leftSum/leftN) + (rightSq - rightSum*rightSum/rightN)
		if score < best.score {
			threshold := current + (next-current)/2
			if threshold >= next {
				// adjacent floats: the midpoint rounded up onto next
				threshold = current
			}
			best = splitCandidate{
				feature:   feature,
				threshold: threshold,
				score:     score,
				leftCount: i + 1,
			}
		}
	}
	return best, best.feature != -1
}

func meanAndVariance(targets []float64, rows []int) (float64, float64) {
	if len(rows) == 0 {
		return 0, 0
	}
	mean := 0.0
	for _, r := range rows {
		mean += targets[r]
	}
	mean /= float64(len(rows))
	variance := 0.0
	for _, r := range rows {
		diff := targets[r] - mean
		variance += diff * diff
	}
	return mean, variance / float64(len(rows))
}

func checkTrainingInput(features [][]float64, targets []float64) error {
	if len(features) == 0 || len(targets) == 0 {
		return &EmptyInputError{What: "training data"}
	}
	if len(features) != len(targets) {
		return &EmptyInputError{What: "training data", Expected: len(features), Got: len(targets)}
	}
	width := len(features[0])
	if width == 0 {
		return &EmptyInputError{What: "feature row"}
	}
	for _, row := range features {
		if len(row) != width {
			return &EmptyInputError{What: "feature row", Expected: width, Got: len(row)}
		}
	}
	return nil
}
