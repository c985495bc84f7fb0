// Package neighbors implements k-nearest-neighbors regression.
package neighbors

import (
	"fmt"
	"sort"

	"github.com/YuminosukeSato/regselect/core/model"
	"github.com/YuminosukeSato/regselect/core/parallel"
	"github.com/YuminosukeSato/regselect/pkg/errors"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// Weights は近傍の重み付け方法
type Weights string

const (
	// Uniform はすべての近傍を等しく扱う
	Uniform Weights = "uniform"
	// Distance は距離の逆数で重み付けする
	Distance Weights = "distance"
)

// predictParallelThreshold を超える行数の予測は並列化する
const predictParallelThreshold = 256

// KNeighborsRegressor は k 近傍の目的変数の平均を予測とする。
// 総当たりのユークリッド距離で近傍を求める。
type KNeighborsRegressor struct {
	state *model.StateManager

	nNeighbors int
	weights    Weights

	fitX [][]float64
	fitY []float64
	k_   int
}

// Option は KNeighborsRegressor の設定オプション
type Option func(*KNeighborsRegressor)

// WithNNeighbors は近傍数 k を設定する
func WithNNeighbors(k int) Option {
	return func(kn *KNeighborsRegressor) { kn.nNeighbors = k }
}

// WithWeights は重み付け方法を設定する
func WithWeights(w Weights) Option {
	return func(kn *KNeighborsRegressor) { kn.weights = w }
}

// NewKNeighborsRegressor は k=5、一様重みで作成する
func NewKNeighborsRegressor(opts ...Option) *KNeighborsRegressor {
	kn := &KNeighborsRegressor{
		state:      model.NewStateManager(),
		nNeighbors: 5,
		weights:    Uniform,
	}
	for _, opt := range opts {
		opt(kn)
	}
	return kn
}

// Fit は訓練データを保持する。
// 訓練サンプル数が k より少ない場合は k をサンプル数に切り詰め、警告を出す。
func (kn *KNeighborsRegressor) Fit(X, y mat.Matrix) (err error) {
	defer errors.Recover(&err, "KNeighborsRegressor.Fit")

	rows, cols, err := model.ValidateFitInput("KNeighborsRegressor.Fit", X, y)
	if err != nil {
		return err
	}
	if kn.nNeighbors < 1 {
		return errors.NewValidationError("n_neighbors", "must be >= 1", kn.nNeighbors)
	}
	if kn.weights != Uniform && kn.weights != Distance {
		return errors.NewValidationError("weights", "must be uniform or distance", kn.weights)
	}

	kn.k_ = kn.nNeighbors
	if kn.k_ > rows {
		errors.Warn(errors.NewParameterAdjustedWarning("KNeighborsRegressor", "n_neighbors",
			kn.nNeighbors, rows, "fewer training samples than neighbors"))
		kn.k_ = rows
	}

	kn.fitX = model.Rows(X)
	kn.fitY = model.Column(y)
	kn.state.SetFitted(cols, rows)
	return nil
}

// Predict は各サンプルの k 近傍の（重み付き）平均を返す
func (kn *KNeighborsRegressor) Predict(X mat.Matrix) (mat.Matrix, error) {
	if err := kn.state.RequireFitted("KNeighborsRegressor", "Predict", X); err != nil {
		return nil, err
	}

	query := model.Rows(X)
	out := make([]float64, len(query))
	parallel.ParallelizeWithThreshold(len(query), predictParallelThreshold, func(start, end int) {
		dist := make([]float64, len(kn.fitX))
		idx := make([]int, len(kn.fitX))
		for i := start; i < end; i++ {
			out[i] = kn.predictRow(query[i], dist, idx)
		}
	})
	return mat.NewDense(len(query), 1, out), nil
}

func (kn *KNeighborsRegressor) predictRow(row []float64, dist []float64, idx []int) float64 {
	for j, x := range kn.fitX {
		dist[j] = floats.Distance(row, x, 2)
		idx[j] = j
	}
	// 距離が等しい場合は訓練データの順序を保つ
	sort.SliceStable(idx, func(a, b int) bool {
		return dist[idx[a]] < dist[idx[b]]
	})
	neighbors := idx[:kn.k_]

	if kn.weights == Distance {
		// 距離 0 の近傍があればそれらの平均を返す
		var exactSum float64
		exact := 0
		for _, j := range neighbors {
			if dist[j] == 0 {
				exactSum += kn.fitY[j]
				exact++
			}
		}
		if exact > 0 {
			return exactSum / float64(exact)
		}

		var num, den float64
		for _, j := range neighbors {
			w := 1 / dist[j]
			num += w * kn.fitY[j]
			den += w
		}
		return num / den
	}

	var sum float64
	for _, j := range neighbors {
		sum += kn.fitY[j]
	}
	return sum / float64(len(neighbors))
}

// Score は決定係数（R²）を返す
func (kn *KNeighborsRegressor) Score(X, y mat.Matrix) (float64, error) {
	return model.ScoreR2(kn, X, y)
}

// IsFitted returns whether the model has been fitted
func (kn *KNeighborsRegressor) IsFitted() bool {
	return kn.state.IsFitted()
}

// EffectiveNeighbors は学習時に確定した k を返す
func (kn *KNeighborsRegressor) EffectiveNeighbors() int {
	return kn.k_
}

// GetParams returns the hyperparameters using scikit-learn names.
func (kn *KNeighborsRegressor) GetParams() map[string]interface{} {
	return map[string]interface{}{
		"n_neighbors": kn.nNeighbors,
		"weights":     string(kn.weights),
		"algorithm":   "brute",
		"metric":      "euclidean",
	}
}

func (kn *KNeighborsRegressor) String() string {
	return fmt.Sprintf("KNeighborsRegressor(n_neighbors=%d, weights=%s)", kn.nNeighbors, kn.weights)
}
