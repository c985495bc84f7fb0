// Package metrics provides regression evaluation metrics.
package metrics

import (
	"math"

	"github.com/YuminosukeSato/regselect/pkg/errors"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

// MSE は平均二乗誤差（Mean Squared Error）を計算する
func MSE(yTrue, yPred *mat.VecDense) (float64, error) {
	t, p, err := vectors("MSE", yTrue, yPred)
	if err != nil {
		return 0, err
	}

	var sum float64
	for i := range t {
		diff := t[i] - p[i]
		sum += diff * diff
	}
	return sum / float64(len(t)), nil
}

// RMSE は平方根平均二乗誤差（Root Mean Squared Error）を計算する
func RMSE(yTrue, yPred *mat.VecDense) (float64, error) {
	mse, err := MSE(yTrue, yPred)
	if err != nil {
		return 0, err
	}
	return math.Sqrt(mse), nil
}

// MAE は平均絶対誤差（Mean Absolute Error）を計算する
func MAE(yTrue, yPred *mat.VecDense) (float64, error) {
	t, p, err := vectors("MAE", yTrue, yPred)
	if err != nil {
		return 0, err
	}

	var sum float64
	for i := range t {
		sum += math.Abs(t[i] - p[i])
	}
	return sum / float64(len(t)), nil
}

// R2Score は決定係数（R²）を計算する
//
// yTrue の分散がゼロの場合は scikit-learn の r2_score と同様に、
// 予測が完全一致なら 1.0、そうでなければ 0.0 を返す。
func R2Score(yTrue, yPred *mat.VecDense) (float64, error) {
	t, p, err := vectors("R2Score", yTrue, yPred)
	if err != nil {
		return 0, err
	}
	return r2(t, p), nil
}

// R2ScoreMatrix は n×1 行列形式の入力に対して R² を計算する
func R2ScoreMatrix(yTrue, yPred mat.Matrix) (float64, error) {
	rTrue, cTrue := yTrue.Dims()
	rPred, cPred := yPred.Dims()

	if rTrue == 0 || cTrue == 0 {
		return 0, errors.NewValueError("R2ScoreMatrix", "empty matrix")
	}
	if rTrue != rPred {
		return 0, errors.NewDimensionError("R2ScoreMatrix", rTrue, rPred, 0)
	}
	if cTrue != 1 || cPred != 1 {
		return 0, errors.NewValueError("R2ScoreMatrix", "must be a column vector (n×1 matrix)")
	}

	t := make([]float64, rTrue)
	p := make([]float64, rTrue)
	for i := 0; i < rTrue; i++ {
		t[i] = yTrue.At(i, 0)
		p[i] = yPred.At(i, 0)
	}
	return r2(t, p), nil
}

func r2(t, p []float64) float64 {
	yMean := stat.Mean(t, nil)

	// 全変動（TSS）と残差変動（RSS）
	var tss, rss float64
	for i := range t {
		tss += (t[i] - yMean) * (t[i] - yMean)
		rss += (t[i] - p[i]) * (t[i] - p[i])
	}

	if tss == 0 {
		if rss == 0 {
			return 1
		}
		return 0
	}
	return 1 - rss/tss
}

func vectors(op string, yTrue, yPred *mat.VecDense) ([]float64, []float64, error) {
	n := yTrue.Len()
	if n == 0 {
		return nil, nil, errors.NewValueError(op, "empty vector")
	}
	if yPred.Len() != n {
		return nil, nil, errors.NewDimensionError(op, n, yPred.Len(), 0)
	}
	t := make([]float64, n)
	p := make([]float64, n)
	for i := 0; i < n; i++ {
		t[i] = yTrue.AtVec(i)
		p[i] = yPred.AtVec(i)
	}
	if floats.HasNaN(t) || floats.HasNaN(p) {
		return nil, nil, errors.NewValueError(op, "input contains NaN")
	}
	return t, p, nil
}
