// Package tree implements CART regression trees on gonum matrices.
package tree

import (
	"fmt"
	"math/rand"

	"github.com/YuminosukeSato/regselect/core/model"
	"github.com/YuminosukeSato/regselect/pkg/errors"
	"gonum.org/v1/gonum/mat"
)

// DecisionTreeRegressor は二乗誤差を基準とする回帰木。
// デフォルトは scikit-learn の DecisionTreeRegressor() と同じ（深さ無制限、
// min_samples_split=2, min_samples_leaf=1, すべての特徴量を探索）。
type DecisionTreeRegressor struct {
	state *model.StateManager

	maxDepth        int
	minSamplesSplit int
	minSamplesLeaf  int
	maxFeatures     int
	randomState     int64

	tree_ *Tree
}

// Option は DecisionTreeRegressor の設定オプション
type Option func(*DecisionTreeRegressor)

// WithMaxDepth は木の最大深さを設定する（-1 で無制限）
func WithMaxDepth(depth int) Option {
	return func(dt *DecisionTreeRegressor) {
		dt.maxDepth = depth
	}
}

// WithMinSamplesSplit は分割に必要な最小サンプル数を設定する
func WithMinSamplesSplit(n int) Option {
	return func(dt *DecisionTreeRegressor) {
		dt.minSamplesSplit = n
	}
}

// WithMinSamplesLeaf は葉の最小サンプル数を設定する
func WithMinSamplesLeaf(n int) Option {
	return func(dt *DecisionTreeRegressor) {
		dt.minSamplesLeaf = n
	}
}

// WithMaxFeatures は各分割で探索する特徴量数を設定する（0 ですべて）
func WithMaxFeatures(n int) Option {
	return func(dt *DecisionTreeRegressor) {
		dt.maxFeatures = n
	}
}

// WithRandomState は特徴量サンプリングの乱数シードを設定する
func WithRandomState(seed int64) Option {
	return func(dt *DecisionTreeRegressor) {
		dt.randomState = seed
	}
}

// NewDecisionTreeRegressor は新しい回帰木を作成する
func NewDecisionTreeRegressor(opts ...Option) *DecisionTreeRegressor {
	dt := &DecisionTreeRegressor{
		state:           model.NewStateManager(),
		maxDepth:        -1,
		minSamplesSplit: 2,
		minSamplesLeaf:  1,
		randomState:     42,
	}
	for _, opt := range opts {
		opt(dt)
	}
	return dt
}

// Fit は回帰木を学習する
func (dt *DecisionTreeRegressor) Fit(X, y mat.Matrix) (err error) {
	defer errors.Recover(&err, "DecisionTreeRegressor.Fit")

	rows, cols, err := model.ValidateFitInput("DecisionTreeRegressor.Fit", X, y)
	if err != nil {
		return err
	}
	return dt.FitRows(model.Rows(X), model.Column(y), nil, cols, rows)
}

// FitRows は展開済みの行データとサンプル重みで学習する。
// weights が nil なら全サンプル重み 1。重み 0 のサンプルは使われない。
// アンサンブルがブートストラップ重みで木を学習するために使う。
func (dt *DecisionTreeRegressor) FitRows(X [][]float64, y, weights []float64, nFeatures, nSamples int) error {
	if err := dt.validateParams(); err != nil {
		return err
	}

	if weights == nil {
		weights = make([]float64, len(y))
		for i := range weights {
			weights[i] = 1
		}
	}

	indices := make([]int, 0, len(y))
	for i, w := range weights {
		if w > 0 {
			indices = append(indices, i)
		}
	}
	if len(indices) == 0 {
		return errors.NewModelError("DecisionTreeRegressor.Fit", "all sample weights are zero", errors.ErrEmptyData)
	}

	builder := &Builder{
		Params: BuildParams{
			MaxDepth:        dt.maxDepth,
			MinSamplesSplit: dt.minSamplesSplit,
			MinSamplesLeaf:  dt.minSamplesLeaf,
			MaxFeatures:     dt.maxFeatures,
		},
		Rng: rand.New(rand.NewSource(dt.randomState)),
	}
	dt.tree_ = builder.Build(X, y, weights, indices)
	dt.state.SetFitted(nFeatures, nSamples)
	return nil
}

func (dt *DecisionTreeRegressor) validateParams() error {
	if dt.minSamplesSplit < 2 {
		return errors.NewValidationError("min_samples_split", "must be >= 2", dt.minSamplesSplit)
	}
	if dt.minSamplesLeaf < 1 {
		return errors.NewValidationError("min_samples_leaf", "must be >= 1", dt.minSamplesLeaf)
	}
	if dt.maxDepth == 0 {
		return errors.NewValidationError("max_depth", "must be positive or -1 for unlimited", dt.maxDepth)
	}
	return nil
}

// Predict は各サンプルの葉の平均値を返す
func (dt *DecisionTreeRegressor) Predict(X mat.Matrix) (mat.Matrix, error) {
	if err := dt.state.RequireFitted("DecisionTreeRegressor", "Predict", X); err != nil {
		return nil, err
	}

	rows, _ := X.Dims()
	out := mat.NewDense(rows, 1, nil)
	for i, row := range model.Rows(X) {
		out.Set(i, 0, dt.tree_.PredictRow(row))
	}
	return out, nil
}

// PredictRow は1サンプルの予測値を返す
func (dt *DecisionTreeRegressor) PredictRow(row []float64) float64 {
	return dt.tree_.PredictRow(row)
}

// Score は決定係数（R²）を返す
func (dt *DecisionTreeRegressor) Score(X, y mat.Matrix) (float64, error) {
	return model.ScoreR2(dt, X, y)
}

// IsFitted returns whether the model has been fitted
func (dt *DecisionTreeRegressor) IsFitted() bool {
	return dt.state.IsFitted()
}

// Tree は学習済みの木を返す
func (dt *DecisionTreeRegressor) Tree() *Tree {
	return dt.tree_
}

// GetParams returns the hyperparameters using scikit-learn names.
func (dt *DecisionTreeRegressor) GetParams() map[string]interface{} {
	return map[string]interface{}{
		"criterion":         "squared_error",
		"max_depth":         dt.maxDepth,
		"min_samples_split": dt.minSamplesSplit,
		"min_samples_leaf":  dt.minSamplesLeaf,
		"max_features":      dt.maxFeatures,
		"random_state":      dt.randomState,
	}
}

func (dt *DecisionTreeRegressor) String() string {
	return fmt.Sprintf("DecisionTreeRegressor(max_depth=%d, min_samples_split=%d, min_samples_leaf=%d)",
		dt.maxDepth, dt.minSamplesSplit, dt.minSamplesLeaf)
}
