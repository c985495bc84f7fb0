package ensemble

import (
	"fmt"
	"math"
	"math/rand/v2"
	"sort"

	"github.com/YuminosukeSato/regselect/core/model"
	"github.com/YuminosukeSato/regselect/pkg/errors"
	"github.com/YuminosukeSato/regselect/sklearn/tree"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat/distuv"
)

// AdaBoostRegressor は AdaBoost.R2（Drucker, 1997）の回帰ブースティング。
// 基底推定器は深さ 3 の回帰木で、予測は推定器重みによる加重中央値。
type AdaBoostRegressor struct {
	state *model.StateManager

	nEstimators  int
	learningRate float64
	loss         string
	maxDepth     int
	randomState  int64

	estimators_       []*tree.DecisionTreeRegressor
	estimatorWeights_ []float64
	estimatorErrors_  []float64
}

// AdaBoostOption は AdaBoostRegressor の設定オプション
type AdaBoostOption func(*AdaBoostRegressor)

// WithAdaBoostEstimators は推定器の最大数を設定する
func WithAdaBoostEstimators(n int) AdaBoostOption {
	return func(ab *AdaBoostRegressor) { ab.nEstimators = n }
}

// WithAdaBoostLearningRate は学習率を設定する
func WithAdaBoostLearningRate(lr float64) AdaBoostOption {
	return func(ab *AdaBoostRegressor) { ab.learningRate = lr }
}

// WithLoss は損失関数を設定する（"linear", "square", "exponential"）
func WithLoss(loss string) AdaBoostOption {
	return func(ab *AdaBoostRegressor) { ab.loss = loss }
}

// WithAdaBoostMaxDepth は基底回帰木の最大深さを設定する
func WithAdaBoostMaxDepth(depth int) AdaBoostOption {
	return func(ab *AdaBoostRegressor) { ab.maxDepth = depth }
}

// WithAdaBoostRandomState は乱数シードを設定する
func WithAdaBoostRandomState(seed int64) AdaBoostOption {
	return func(ab *AdaBoostRegressor) { ab.randomState = seed }
}

// NewAdaBoostRegressor は scikit-learn と同じデフォルト
// （50 推定器、学習率 1.0、linear 損失）で作成する
func NewAdaBoostRegressor(opts ...AdaBoostOption) *AdaBoostRegressor {
	ab := &AdaBoostRegressor{
		state:        model.NewStateManager(),
		nEstimators:  50,
		learningRate: 1.0,
		loss:         "linear",
		maxDepth:     3,
		randomState:  42,
	}
	for _, opt := range opts {
		opt(ab)
	}
	return ab
}

// Fit は AdaBoost.R2 を学習する
func (ab *AdaBoostRegressor) Fit(X, y mat.Matrix) (err error) {
	defer errors.Recover(&err, "AdaBoostRegressor.Fit")

	rows, cols, err := model.ValidateFitInput("AdaBoostRegressor.Fit", X, y)
	if err != nil {
		return err
	}
	if err := ab.validateParams(); err != nil {
		return err
	}

	xRows := model.Rows(X)
	yCol := model.Column(y)
	rng := rand.New(rand.NewPCG(uint64(ab.randomState), 0))

	sampleWeight := make([]float64, rows)
	for i := range sampleWeight {
		sampleWeight[i] = 1 / float64(rows)
	}

	ab.estimators_ = ab.estimators_[:0]
	ab.estimatorWeights_ = ab.estimatorWeights_[:0]
	ab.estimatorErrors_ = ab.estimatorErrors_[:0]

	for iboost := 0; iboost < ab.nEstimators; iboost++ {
		est, weight, estErr, ok, err := ab.boost(iboost, xRows, yCol, sampleWeight, cols, rng)
		if err != nil {
			return errors.Wrapf(err, "AdaBoostRegressor.Fit: iteration %d", iboost)
		}
		if !ok {
			break
		}
		ab.estimators_ = append(ab.estimators_, est)
		ab.estimatorWeights_ = append(ab.estimatorWeights_, weight)
		ab.estimatorErrors_ = append(ab.estimatorErrors_, estErr)

		// 完全にあてはまった場合、または誤差が 0.5 以上の場合は終了
		if estErr == 0 || estErr >= 0.5 {
			break
		}

		total := floats.Sum(sampleWeight)
		if total <= 0 || math.IsInf(total, 0) || math.IsNaN(total) {
			break
		}
		if iboost < ab.nEstimators-1 {
			floats.Scale(1/total, sampleWeight)
		}
	}

	if len(ab.estimators_) == 0 {
		return errors.NewModelError("AdaBoostRegressor.Fit", "no estimator could be fitted", nil)
	}

	ab.state.SetFitted(cols, rows)
	return nil
}

func (ab *AdaBoostRegressor) validateParams() error {
	if ab.nEstimators < 1 {
		return errors.NewValidationError("n_estimators", "must be >= 1", ab.nEstimators)
	}
	if ab.learningRate <= 0 {
		return errors.NewValidationError("learning_rate", "must be > 0", ab.learningRate)
	}
	switch ab.loss {
	case "linear", "square", "exponential":
	default:
		return errors.NewValidationError("loss", "must be one of linear, square, exponential", ab.loss)
	}
	return nil
}

// boost は1回のブースティングを行い、sampleWeight をその場で更新する。
// ok が false の場合は推定器を採用せずに学習を打ち切る。
func (ab *AdaBoostRegressor) boost(iboost int, X [][]float64, y, sampleWeight []float64, nFeatures int, rng *rand.Rand) (est *tree.DecisionTreeRegressor, weight, estErr float64, ok bool, err error) {
	n := len(y)

	// 重み付きブートストラップ（復元抽出）の出現回数を重みとして使う
	sampler := distuv.NewCategorical(sampleWeight, rng)
	counts := make([]float64, n)
	for i := 0; i < n; i++ {
		counts[int(sampler.Rand())]++
	}

	est = tree.NewDecisionTreeRegressor(
		tree.WithMaxDepth(ab.maxDepth),
		tree.WithRandomState(rng.Int64()),
	)
	if err := est.FitRows(X, y, counts, nFeatures, n); err != nil {
		return nil, 0, 0, false, err
	}

	errVec := make([]float64, n)
	for i, row := range X {
		errVec[i] = math.Abs(est.PredictRow(row) - y[i])
	}

	var errMax float64
	for i, e := range errVec {
		if sampleWeight[i] > 0 && e > errMax {
			errMax = e
		}
	}
	if errMax != 0 {
		floats.Scale(1/errMax, errVec)
	}
	switch ab.loss {
	case "square":
		floats.Mul(errVec, errVec)
	case "exponential":
		for i, e := range errVec {
			errVec[i] = 1 - math.Exp(-e)
		}
	}

	for i, e := range errVec {
		if sampleWeight[i] > 0 {
			estErr += sampleWeight[i] * e
		}
	}

	if estErr <= 0 {
		return est, 1, 0, true, nil
	}
	if estErr >= 0.5 {
		// 最初の推定器だけは残す
		if iboost == 0 {
			return est, 1, estErr, true, nil
		}
		return nil, 0, 0, false, nil
	}

	beta := estErr / (1 - estErr)
	weight = ab.learningRate * math.Log(1/beta)

	if iboost < ab.nEstimators-1 {
		for i, e := range errVec {
			if sampleWeight[i] > 0 {
				sampleWeight[i] *= math.Pow(beta, (1-e)*ab.learningRate)
			}
		}
	}
	return est, weight, estErr, true, nil
}

// Predict は推定器重みによる加重中央値を返す
func (ab *AdaBoostRegressor) Predict(X mat.Matrix) (mat.Matrix, error) {
	if err := ab.state.RequireFitted("AdaBoostRegressor", "Predict", X); err != nil {
		return nil, err
	}

	rowsX := model.Rows(X)
	out := mat.NewDense(len(rowsX), 1, nil)
	preds := make([]float64, len(ab.estimators_))
	order := make([]int, len(ab.estimators_))
	for i, row := range rowsX {
		for k, est := range ab.estimators_ {
			preds[k] = est.PredictRow(row)
			order[k] = k
		}
		out.Set(i, 0, weightedMedian(preds, ab.estimatorWeights_, order))
	}
	return out, nil
}

// weightedMedian は累積重みが総重みの半分以上に達する最初の予測値を返す
func weightedMedian(values, weights []float64, order []int) float64 {
	sort.SliceStable(order, func(a, b int) bool {
		return values[order[a]] < values[order[b]]
	})

	total := floats.Sum(weights)
	var cdf float64
	for _, k := range order {
		cdf += weights[k]
		if cdf >= 0.5*total {
			return values[k]
		}
	}
	return values[order[len(order)-1]]
}

// Score は決定係数（R²）を返す
func (ab *AdaBoostRegressor) Score(X, y mat.Matrix) (float64, error) {
	return model.ScoreR2(ab, X, y)
}

// IsFitted returns whether the model has been fitted
func (ab *AdaBoostRegressor) IsFitted() bool {
	return ab.state.IsFitted()
}

// EstimatorWeights は各推定器の重みを返す
func (ab *AdaBoostRegressor) EstimatorWeights() []float64 {
	return append([]float64(nil), ab.estimatorWeights_...)
}

// EstimatorErrors は各推定器の重み付き誤差を返す
func (ab *AdaBoostRegressor) EstimatorErrors() []float64 {
	return append([]float64(nil), ab.estimatorErrors_...)
}

// GetParams returns the hyperparameters using scikit-learn names.
func (ab *AdaBoostRegressor) GetParams() map[string]interface{} {
	return map[string]interface{}{
		"n_estimators":  ab.nEstimators,
		"learning_rate": ab.learningRate,
		"loss":          ab.loss,
		"max_depth":     ab.maxDepth,
		"random_state":  ab.randomState,
	}
}

func (ab *AdaBoostRegressor) String() string {
	return fmt.Sprintf("AdaBoostRegressor(n_estimators=%d, learning_rate=%g, loss=%s)",
		ab.nEstimators, ab.learningRate, ab.loss)
}
