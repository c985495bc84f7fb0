package linear_model

import (
	"fmt"
	"math"

	"github.com/YuminosukeSato/regselect/core/model"
	"github.com/YuminosukeSato/regselect/pkg/errors"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// LinearRegression is ordinary least squares linear regression.
// Defaults match scikit-learn's LinearRegression().
type LinearRegression struct {
	state *model.StateManager

	// Hyperparameters
	fitIntercept bool // Whether to learn the intercept
	positive     bool // Whether to clip coefficients to be non-negative

	// Learned parameters
	coef_      []float64
	intercept_ float64
	rank_      int
	singular_  []float64
}

// LinearRegressionOption は設定オプション
type LinearRegressionOption func(*LinearRegression)

// WithFitIntercept は切片の学習有無を設定
func WithFitIntercept(fit bool) LinearRegressionOption {
	return func(lr *LinearRegression) {
		lr.fitIntercept = fit
	}
}

// WithPositive は係数の非負制約を設定
func WithPositive(positive bool) LinearRegressionOption {
	return func(lr *LinearRegression) {
		lr.positive = positive
	}
}

// NewLinearRegression は新しいLinearRegressionモデルを作成
func NewLinearRegression(options ...LinearRegressionOption) *LinearRegression {
	lr := &LinearRegression{
		state:        model.NewStateManager(),
		fitIntercept: true,
	}
	for _, opt := range options {
		opt(lr)
	}
	return lr
}

// Fit はモデルを訓練データで学習
//
// 特徴量と目的変数を中心化した上で、特異値分解による最小ノルム最小二乗解を求める。
// ランク落ちした X（定数列や重複列）でも scikit-learn の lstsq と同じく解が得られる。
func (lr *LinearRegression) Fit(X, y mat.Matrix) (err error) {
	defer errors.Recover(&err, "LinearRegression.Fit")

	rows, cols, err := model.ValidateFitInput("LinearRegression.Fit", X, y)
	if err != nil {
		return err
	}

	XWork := mat.DenseCopyOf(X)
	yWork := model.Column(y)

	xMean := make([]float64, cols)
	var yMean float64
	if lr.fitIntercept {
		for j := 0; j < cols; j++ {
			col := mat.Col(nil, j, XWork)
			xMean[j] = floats.Sum(col) / float64(rows)
			floats.AddConst(-xMean[j], col)
			XWork.SetCol(j, col)
		}
		yMean = floats.Sum(yWork) / float64(rows)
		floats.AddConst(-yMean, yWork)
	}

	coef, rank, singular, err := leastSquares(XWork, yWork)
	if err != nil {
		return errors.NewModelError("LinearRegression.Fit", "failed to solve least squares", err)
	}

	if lr.positive {
		for i := range coef {
			if coef[i] < 0 {
				coef[i] = 0
			}
		}
	}

	lr.coef_ = coef
	lr.rank_ = rank
	lr.singular_ = singular
	lr.intercept_ = 0
	if lr.fitIntercept {
		lr.intercept_ = yMean - floats.Dot(xMean, coef)
	}

	lr.state.SetFitted(cols, rows)
	return nil
}

// leastSquares は pinv(A)·b を SVD で計算する
func leastSquares(A *mat.Dense, b []float64) ([]float64, int, []float64, error) {
	rows, cols := A.Dims()

	var svd mat.SVD
	if ok := svd.Factorize(A, mat.SVDThin); !ok {
		return nil, 0, nil, errors.ErrSingularMatrix
	}
	s := svd.Values(nil)

	var u, v mat.Dense
	svd.UTo(&u)
	svd.VTo(&v)

	// 打ち切り閾値は numpy.linalg.lstsq (rcond=None) と同じ
	var sMax float64
	if len(s) > 0 {
		sMax = s[0]
	}
	tol := sMax * float64(max(rows, cols)) * 2.220446049250313e-16

	utb := mat.NewVecDense(len(s), nil)
	utb.MulVec(u.T(), mat.NewVecDense(rows, b))

	rank := 0
	for i, si := range s {
		if si > tol {
			utb.SetVec(i, utb.AtVec(i)/si)
			rank++
		} else {
			utb.SetVec(i, 0)
		}
	}

	coef := mat.NewVecDense(cols, nil)
	coef.MulVec(&v, utb)

	out := make([]float64, cols)
	for i := range out {
		out[i] = coef.AtVec(i)
		if math.IsNaN(out[i]) {
			return nil, rank, s, errors.NewNumericalInstabilityError("least_squares", out, 0)
		}
	}
	return out, rank, s, nil
}

// Predict は入力データに対する予測を行う
func (lr *LinearRegression) Predict(X mat.Matrix) (mat.Matrix, error) {
	if err := lr.state.RequireFitted("LinearRegression", "Predict", X); err != nil {
		return nil, err
	}

	rows, _ := X.Dims()
	coef := mat.NewVecDense(len(lr.coef_), lr.coef_)

	predictions := mat.NewDense(rows, 1, nil)
	col := mat.NewVecDense(rows, nil)
	col.MulVec(X, coef)
	for i := 0; i < rows; i++ {
		predictions.Set(i, 0, col.AtVec(i)+lr.intercept_)
	}
	return predictions, nil
}

// Score はモデルの決定係数（R²）を計算
func (lr *LinearRegression) Score(X, y mat.Matrix) (float64, error) {
	return model.ScoreR2(lr, X, y)
}

// IsFitted returns whether the model has been fitted
func (lr *LinearRegression) IsFitted() bool {
	return lr.state.IsFitted()
}

// Coef は学習された重み係数を返す
func (lr *LinearRegression) Coef() []float64 {
	if lr.coef_ == nil {
		return nil
	}
	coef := make([]float64, len(lr.coef_))
	copy(coef, lr.coef_)
	return coef
}

// Intercept は学習された切片を返す
func (lr *LinearRegression) Intercept() float64 {
	return lr.intercept_
}

// Rank は中心化後の X の数値ランクを返す
func (lr *LinearRegression) Rank() int {
	return lr.rank_
}

// GetParams returns the model's hyperparameters (scikit-learn compatible)
func (lr *LinearRegression) GetParams() map[string]interface{} {
	return map[string]interface{}{
		"fit_intercept": lr.fitIntercept,
		"positive":      lr.positive,
	}
}

// String returns the string representation of the model
func (lr *LinearRegression) String() string {
	if !lr.state.IsFitted() {
		return fmt.Sprintf("LinearRegression(fit_intercept=%t, positive=%t)", lr.fitIntercept, lr.positive)
	}
	nFeatures, _ := lr.state.GetDimensions()
	return fmt.Sprintf("LinearRegression(fit_intercept=%t, n_features=%d, fitted=true)", lr.fitIntercept, nFeatures)
}
