package model

import (
	"github.com/YuminosukeSato/regselect/metrics"
	"github.com/YuminosukeSato/regselect/pkg/errors"
	"gonum.org/v1/gonum/mat"
)

// ValidateFitInput は Fit に渡された X, y の形状を検証し、サンプル数と特徴量数を返す。
func ValidateFitInput(op string, X, y mat.Matrix) (nSamples, nFeatures int, err error) {
	if X == nil || y == nil {
		return 0, 0, errors.NewModelError(op, "empty data", errors.ErrEmptyData)
	}
	nSamples, nFeatures = X.Dims()
	yRows, yCols := y.Dims()

	if nSamples == 0 || nFeatures == 0 {
		return 0, 0, errors.NewModelError(op, "empty data", errors.ErrEmptyData)
	}
	if yRows != nSamples {
		return 0, 0, errors.NewDimensionError(op, nSamples, yRows, 0)
	}
	if yCols != 1 {
		return 0, 0, errors.NewDimensionError(op, 1, yCols, 1)
	}
	return nSamples, nFeatures, nil
}

// Column は n×1 行列を []float64 にコピーする。
func Column(y mat.Matrix) []float64 {
	r, _ := y.Dims()
	out := make([]float64, r)
	for i := range out {
		out[i] = y.At(i, 0)
	}
	return out
}

// Rows は X の各行を []float64 として取り出す。
// 木構造モデルは行単位のアクセスが多いため、学習前に一度だけ展開する。
func Rows(X mat.Matrix) [][]float64 {
	r, c := X.Dims()
	out := make([][]float64, r)
	if d, ok := X.(*mat.Dense); ok {
		for i := 0; i < r; i++ {
			out[i] = mat.Row(nil, i, d)
		}
		return out
	}
	for i := 0; i < r; i++ {
		row := make([]float64, c)
		for j := 0; j < c; j++ {
			row[j] = X.At(i, j)
		}
		out[i] = row
	}
	return out
}

// ScoreR2 は p の予測と y の決定係数（R²）を計算する。
func ScoreR2(p Predictor, X, y mat.Matrix) (float64, error) {
	yRows, yCols := y.Dims()
	xRows, _ := X.Dims()
	if yRows != xRows {
		return 0, errors.NewDimensionError("Score", xRows, yRows, 0)
	}
	if yCols != 1 {
		return 0, errors.NewDimensionError("Score", 1, yCols, 1)
	}

	predictions, err := p.Predict(X)
	if err != nil {
		return 0, err
	}
	return metrics.R2ScoreMatrix(y, predictions)
}
