package ml

import (
	"errors"
	"sync/atomic"

	lru "github.com/hashicorp/golang-lru/v2"
)

var errNotTrained = errors.New("model not trained")

// Predict scores one day of input with model. Values are not range-checked;
// out-of-distribution inputs fall into whichever leaves the trees route them to.
func Predict(model Regressor, in DailyInput) (float64, error) {
	if missingModel(model) {
		return 0, errNotTrained
	}
	return model.Predict(in.Vector())
}

// missingModel also catches a nil *RandomForest or *RegressionTree stored in
// the interface.
func missingModel(model Regressor) bool {
	switch m := model.(type) {
	case nil:
		return true
	case *RandomForest:
		return m == nil
	case *RegressionTree:
		return m == nil
	}
	return false
}

// Predictor serves predictions from a fitted model through a bounded LRU cache.
// The model is never mutated, so cached and fresh scores are identical.
type Predictor struct {
	model  Regressor
	cache  *lru.Cache[DailyInput, float64]
	hits   atomic.Int64
	misses atomic.Int64
}

type PredictorStats struct {
	Hits   int64 `json:"hits"`
	Misses int64 `json:"misses"`
	Size   int   `json:"size"`
}

// NewPredictor wraps model. A cacheSize <= 0 disables caching.
func NewPredictor(model Regressor, cacheSize int) (*Predictor, error) {
	if missingModel(model) {
		return nil, errors.New("model is required")
	}
	p := &Predictor{model: model}
	if cacheSize > 0 {
		cache, err := lru.New[DailyInput, float64](cacheSize)
		if err != nil {
			return nil, err
		}
		p.cache = cache
	}
	return p, nil
}

func (p *Predictor) Predict(in DailyInput) (float64, error) {
	if p.cache != nil {
		if score, ok := p.cache.Get(in); ok {
			p.hits.Add(1)
			return score, nil
		}
	}
	p.misses.Add(1)
	score, err := Predict(p.model, in)
	if err != nil {
		return 0, err
	}
	if p.cache != nil {
		p.cache.Add(in, score)
	}
	return score, nil
}

// Resize changes the cache capacity; it is a no-op when caching is disabled.
func (p *Predictor) Resize(size int) {
	if p.cache == nil || size <= 0 {
		return
	}
	p.cache.Resize(size)
}

func (p *Predictor) Model() Regressor {
	return p.model
}

func (p *Predictor) Stats() PredictorStats {
	stats := PredictorStats{Hits: p.hits.Load(), Misses: p.misses.Load()}
	if p.cache != nil {
		stats.Size = p.cache.Len()
	}
	return stats
}
