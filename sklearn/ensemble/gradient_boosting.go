package ensemble

import (
	"fmt"

	"github.com/YuminosukeSato/regselect/core/model"
	"github.com/YuminosukeSato/regselect/pkg/errors"
	"github.com/YuminosukeSato/regselect/sklearn/tree"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

// GradientBoostingRegressor は二乗誤差の勾配ブースティング。
// 初期値は目的変数の平均で、各ステージは残差に回帰木をあてはめる。
type GradientBoostingRegressor struct {
	state *model.StateManager

	nEstimators     int
	learningRate    float64
	maxDepth        int
	minSamplesSplit int
	minSamplesLeaf  int
	randomState     int64

	init_       float64
	estimators_ []*tree.DecisionTreeRegressor
	trainScore_ []float64
}

// BoostingOption は GradientBoostingRegressor の設定オプション
type BoostingOption func(*GradientBoostingRegressor)

// WithBoostingEstimators はステージ数を設定する
func WithBoostingEstimators(n int) BoostingOption {
	return func(gb *GradientBoostingRegressor) { gb.nEstimators = n }
}

// WithBoostingLearningRate は学習率を設定する
func WithBoostingLearningRate(lr float64) BoostingOption {
	return func(gb *GradientBoostingRegressor) { gb.learningRate = lr }
}

// WithBoostingMaxDepth は各ステージの木の最大深さを設定する
func WithBoostingMaxDepth(depth int) BoostingOption {
	return func(gb *GradientBoostingRegressor) { gb.maxDepth = depth }
}

// WithBoostingMinSamplesSplit は分割に必要な最小サンプル数を設定する
func WithBoostingMinSamplesSplit(n int) BoostingOption {
	return func(gb *GradientBoostingRegressor) { gb.minSamplesSplit = n }
}

// WithBoostingMinSamplesLeaf は葉の最小サンプル数を設定する
func WithBoostingMinSamplesLeaf(n int) BoostingOption {
	return func(gb *GradientBoostingRegressor) { gb.minSamplesLeaf = n }
}

// WithBoostingRandomState は乱数シードを設定する
func WithBoostingRandomState(seed int64) BoostingOption {
	return func(gb *GradientBoostingRegressor) { gb.randomState = seed }
}

// NewGradientBoostingRegressor は scikit-learn と同じデフォルト
// （100 ステージ、学習率 0.1、深さ 3）で作成する
func NewGradientBoostingRegressor(opts ...BoostingOption) *GradientBoostingRegressor {
	gb := &GradientBoostingRegressor{
		state:           model.NewStateManager(),
		nEstimators:     100,
		learningRate:    0.1,
		maxDepth:        3,
		minSamplesSplit: 2,
		minSamplesLeaf:  1,
		randomState:     42,
	}
	for _, opt := range opts {
		opt(gb)
	}
	return gb
}

// Fit はブースティングを学習する
func (gb *GradientBoostingRegressor) Fit(X, y mat.Matrix) (err error) {
	defer errors.Recover(&err, "GradientBoostingRegressor.Fit")

	rows, cols, err := model.ValidateFitInput("GradientBoostingRegressor.Fit", X, y)
	if err != nil {
		return err
	}
	if gb.nEstimators < 1 {
		return errors.NewValidationError("n_estimators", "must be >= 1", gb.nEstimators)
	}
	if gb.learningRate <= 0 {
		return errors.NewValidationError("learning_rate", "must be > 0", gb.learningRate)
	}

	xRows := model.Rows(X)
	yCol := model.Column(y)

	gb.init_ = stat.Mean(yCol, nil)
	F := make([]float64, rows)
	for i := range F {
		F[i] = gb.init_
	}

	residual := make([]float64, rows)
	gb.estimators_ = make([]*tree.DecisionTreeRegressor, 0, gb.nEstimators)
	gb.trainScore_ = make([]float64, 0, gb.nEstimators)

	for m := 0; m < gb.nEstimators; m++ {
		// 二乗誤差の負の勾配 = 残差
		floats.SubTo(residual, yCol, F)

		dt := tree.NewDecisionTreeRegressor(
			tree.WithMaxDepth(gb.maxDepth),
			tree.WithMinSamplesSplit(gb.minSamplesSplit),
			tree.WithMinSamplesLeaf(gb.minSamplesLeaf),
			tree.WithRandomState(gb.randomState+int64(m)),
		)
		if err := dt.FitRows(xRows, residual, nil, cols, rows); err != nil {
			return errors.Wrapf(err, "GradientBoostingRegressor.Fit: stage %d", m)
		}

		var loss float64
		for i, row := range xRows {
			F[i] += gb.learningRate * dt.PredictRow(row)
			d := yCol[i] - F[i]
			loss += d * d
		}
		loss /= float64(rows)
		if err := errors.CheckScalar("GradientBoostingRegressor.Fit", loss, m); err != nil {
			return err
		}

		gb.estimators_ = append(gb.estimators_, dt)
		gb.trainScore_ = append(gb.trainScore_, loss)
	}

	gb.state.SetFitted(cols, rows)
	return nil
}

// Predict は初期値と各ステージの寄与の和を返す
func (gb *GradientBoostingRegressor) Predict(X mat.Matrix) (mat.Matrix, error) {
	if err := gb.state.RequireFitted("GradientBoostingRegressor", "Predict", X); err != nil {
		return nil, err
	}

	rowsX := model.Rows(X)
	out := mat.NewDense(len(rowsX), 1, nil)
	for i, row := range rowsX {
		f := gb.init_
		for _, est := range gb.estimators_ {
			f += gb.learningRate * est.PredictRow(row)
		}
		out.Set(i, 0, f)
	}
	return out, nil
}

// Score は決定係数（R²）を返す
func (gb *GradientBoostingRegressor) Score(X, y mat.Matrix) (float64, error) {
	return model.ScoreR2(gb, X, y)
}

// IsFitted returns whether the model has been fitted
func (gb *GradientBoostingRegressor) IsFitted() bool {
	return gb.state.IsFitted()
}

// TrainScore は各ステージ後の訓練 MSE を返す
func (gb *GradientBoostingRegressor) TrainScore() []float64 {
	return append([]float64(nil), gb.trainScore_...)
}

// GetParams returns the hyperparameters using scikit-learn names.
func (gb *GradientBoostingRegressor) GetParams() map[string]interface{} {
	return map[string]interface{}{
		"loss":              "squared_error",
		"n_estimators":      gb.nEstimators,
		"learning_rate":     gb.learningRate,
		"max_depth":         gb.maxDepth,
		"min_samples_split": gb.minSamplesSplit,
		"min_samples_leaf":  gb.minSamplesLeaf,
		"random_state":      gb.randomState,
	}
}

func (gb *GradientBoostingRegressor) String() string {
	return fmt.Sprintf("GradientBoostingRegressor(n_estimators=%d, learning_rate=%g, max_depth=%d)",
		gb.nEstimators, gb.learningRate, gb.maxDepth)
}
