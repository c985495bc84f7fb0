// Package ensemble provides tree ensembles for regression: random forests,
// gradient boosting and AdaBoost.R2.
package ensemble

import (
	"fmt"
	"math/rand"

	"github.com/YuminosukeSato/regselect/core/model"
	"github.com/YuminosukeSato/regselect/core/parallel"
	"github.com/YuminosukeSato/regselect/pkg/errors"
	"github.com/YuminosukeSato/regselect/sklearn/tree"
	"gonum.org/v1/gonum/mat"
)

// RandomForestRegressor はブートストラップ標本で学習した回帰木の平均を予測とする。
// デフォルトは scikit-learn の RandomForestRegressor()（100 本、全特徴量、深さ無制限）。
type RandomForestRegressor struct {
	state *model.StateManager

	nEstimators     int
	maxDepth        int
	minSamplesSplit int
	minSamplesLeaf  int
	maxFeatures     int
	bootstrap       bool
	randomState     int64
	nJobs           int

	estimators_ []*tree.DecisionTreeRegressor
}

// ForestOption は RandomForestRegressor の設定オプション
type ForestOption func(*RandomForestRegressor)

// WithForestEstimators は木の本数を設定する
func WithForestEstimators(n int) ForestOption {
	return func(rf *RandomForestRegressor) { rf.nEstimators = n }
}

// WithForestMaxDepth は各木の最大深さを設定する（-1 で無制限）
func WithForestMaxDepth(depth int) ForestOption {
	return func(rf *RandomForestRegressor) { rf.maxDepth = depth }
}

// WithForestMinSamplesSplit は分割に必要な最小サンプル数を設定する
func WithForestMinSamplesSplit(n int) ForestOption {
	return func(rf *RandomForestRegressor) { rf.minSamplesSplit = n }
}

// WithForestMinSamplesLeaf は葉の最小サンプル数を設定する
func WithForestMinSamplesLeaf(n int) ForestOption {
	return func(rf *RandomForestRegressor) { rf.minSamplesLeaf = n }
}

// WithForestMaxFeatures は各分割で探索する特徴量数を設定する（0 ですべて）
func WithForestMaxFeatures(n int) ForestOption {
	return func(rf *RandomForestRegressor) { rf.maxFeatures = n }
}

// WithBootstrap はブートストラップ標本を使うかどうかを設定する
func WithBootstrap(bootstrap bool) ForestOption {
	return func(rf *RandomForestRegressor) { rf.bootstrap = bootstrap }
}

// WithForestRandomState は乱数シードを設定する
func WithForestRandomState(seed int64) ForestOption {
	return func(rf *RandomForestRegressor) { rf.randomState = seed }
}

// WithNJobs は並列に学習する木の数を設定する（0 以下で CPU コア数）
func WithNJobs(n int) ForestOption {
	return func(rf *RandomForestRegressor) { rf.nJobs = n }
}

// NewRandomForestRegressor は新しいランダムフォレストを作成する
func NewRandomForestRegressor(opts ...ForestOption) *RandomForestRegressor {
	rf := &RandomForestRegressor{
		state:           model.NewStateManager(),
		nEstimators:     100,
		maxDepth:        -1,
		minSamplesSplit: 2,
		minSamplesLeaf:  1,
		bootstrap:       true,
		randomState:     42,
	}
	for _, opt := range opts {
		opt(rf)
	}
	return rf
}

// Fit はフォレストを学習する。
//
// 各木のシードは親の乱数列から事前に順番に引くため、
// 並列実行のスケジューリングに関係なく同じフォレストが得られる。
func (rf *RandomForestRegressor) Fit(X, y mat.Matrix) (err error) {
	defer errors.Recover(&err, "RandomForestRegressor.Fit")

	rows, cols, err := model.ValidateFitInput("RandomForestRegressor.Fit", X, y)
	if err != nil {
		return err
	}
	if rf.nEstimators < 1 {
		return errors.NewValidationError("n_estimators", "must be >= 1", rf.nEstimators)
	}

	xRows := model.Rows(X)
	yCol := model.Column(y)

	master := rand.New(rand.NewSource(rf.randomState))
	seeds := make([]int64, rf.nEstimators)
	for i := range seeds {
		seeds[i] = master.Int63()
	}

	estimators := make([]*tree.DecisionTreeRegressor, rf.nEstimators)
	errs := make([]error, rf.nEstimators)

	parallel.ParallelizeWorkers(rf.nEstimators, rf.nJobs, func(start, end int) {
		for k := start; k < end; k++ {
			estimators[k], errs[k] = rf.fitTree(xRows, yCol, cols, rows, seeds[k])
		}
	})

	for k, e := range errs {
		if e != nil {
			return errors.Wrapf(e, "RandomForestRegressor.Fit: tree %d", k)
		}
	}

	rf.estimators_ = estimators
	rf.state.SetFitted(cols, rows)
	return nil
}

func (rf *RandomForestRegressor) fitTree(X [][]float64, y []float64, nFeatures, nSamples int, seed int64) (*tree.DecisionTreeRegressor, error) {
	rng := rand.New(rand.NewSource(seed))

	var weights []float64
	if rf.bootstrap {
		weights = make([]float64, nSamples)
		for i := 0; i < nSamples; i++ {
			weights[rng.Intn(nSamples)]++
		}
	}

	dt := tree.NewDecisionTreeRegressor(
		tree.WithMaxDepth(rf.maxDepth),
		tree.WithMinSamplesSplit(rf.minSamplesSplit),
		tree.WithMinSamplesLeaf(rf.minSamplesLeaf),
		tree.WithMaxFeatures(rf.maxFeatures),
		tree.WithRandomState(rng.Int63()),
	)
	if err := dt.FitRows(X, y, weights, nFeatures, nSamples); err != nil {
		return nil, err
	}
	return dt, nil
}

// Predict は全ての木の予測の平均を返す
func (rf *RandomForestRegressor) Predict(X mat.Matrix) (mat.Matrix, error) {
	if err := rf.state.RequireFitted("RandomForestRegressor", "Predict", X); err != nil {
		return nil, err
	}

	rowsX := model.Rows(X)
	out := mat.NewDense(len(rowsX), 1, nil)
	nTrees := float64(len(rf.estimators_))
	for i, row := range rowsX {
		var sum float64
		for _, est := range rf.estimators_ {
			sum += est.PredictRow(row)
		}
		out.Set(i, 0, sum/nTrees)
	}
	return out, nil
}

// Score は決定係数（R²）を返す
func (rf *RandomForestRegressor) Score(X, y mat.Matrix) (float64, error) {
	return model.ScoreR2(rf, X, y)
}

// IsFitted returns whether the model has been fitted
func (rf *RandomForestRegressor) IsFitted() bool {
	return rf.state.IsFitted()
}

// Estimators は学習済みの木を返す
func (rf *RandomForestRegressor) Estimators() []*tree.DecisionTreeRegressor {
	return rf.estimators_
}

// GetParams returns the hyperparameters using scikit-learn names.
func (rf *RandomForestRegressor) GetParams() map[string]interface{} {
	return map[string]interface{}{
		"n_estimators":      rf.nEstimators,
		"max_depth":         rf.maxDepth,
		"min_samples_split": rf.minSamplesSplit,
		"min_samples_leaf":  rf.minSamplesLeaf,
		"max_features":      rf.maxFeatures,
		"bootstrap":         rf.bootstrap,
		"random_state":      rf.randomState,
		"n_jobs":            rf.nJobs,
	}
}

func (rf *RandomForestRegressor) String() string {
	return fmt.Sprintf("RandomForestRegressor(n_estimators=%d, bootstrap=%t)", rf.nEstimators, rf.bootstrap)
}
