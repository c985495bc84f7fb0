// Package dataset validates the train/test matrices handed to the trainer and
// splits them into features and target.
package dataset

import (
	"github.com/YuminosukeSato/regselect/pkg/errors"
	"gonum.org/v1/gonum/mat"
)

// Split は最終列を目的変数とする行列
type Split struct {
	X *mat.Dense
	Y *mat.Dense
}

// Rows はサンプル数を返す
func (s Split) Rows() int {
	r, _ := s.X.Dims()
	return r
}

// Features は特徴量数を返す
func (s Split) Features() int {
	_, c := s.X.Dims()
	return c
}

// Validate は train と test が分割可能か検査する。
// 両方とも 1 行以上、2 列以上（特徴量 1 列 + 目的変数）で、列数が一致し、
// 値がすべて有限であること。
func Validate(train, test mat.Matrix) error {
	if err := validateOne("train", train); err != nil {
		return err
	}
	if err := validateOne("test", test); err != nil {
		return err
	}
	_, trainCols := train.Dims()
	_, testCols := test.Dims()
	if trainCols != testCols {
		return errors.NewValidationError("test", "column count must match train", testCols)
	}
	return nil
}

func validateOne(name string, m mat.Matrix) error {
	if m == nil || isEmpty(m) {
		return errors.NewValidationError(name, "matrix must not be empty", 0)
	}
	_, cols := m.Dims()
	if cols < 2 {
		return errors.NewValidationError(name, "needs at least one feature column and a target column", cols)
	}
	if err := errors.CheckMatrix("dataset."+name, m); err != nil {
		return errors.NewValidationError(name, "contains NaN or Inf", err.Error())
	}
	return nil
}

// isEmpty reports zero-sized matrices without triggering mat's panics.
func isEmpty(m mat.Matrix) bool {
	if d, ok := m.(*mat.Dense); ok && (d == nil || d.IsEmpty()) {
		return true
	}
	r, c := m.Dims()
	return r == 0 || c == 0
}

// SplitXY は最終列を目的変数として特徴量と分ける
func SplitXY(m mat.Matrix) Split {
	rows, cols := m.Dims()
	X := mat.NewDense(rows, cols-1, nil)
	X.Copy(m)
	y := mat.NewDense(rows, 1, nil)
	for i := 0; i < rows; i++ {
		y.Set(i, 0, m.At(i, cols-1))
	}
	return Split{X: X, Y: y}
}

// TrainTest は検証したうえで train と test をそれぞれ分割する
func TrainTest(train, test mat.Matrix) (Split, Split, error) {
	if err := Validate(train, test); err != nil {
		return Split{}, Split{}, err
	}
	return SplitXY(train), SplitXY(test), nil
}
