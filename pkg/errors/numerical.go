package errors

import (
	"fmt"
	"math"
)

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

// CheckScalar は学習ループ中の損失やスコアが有限値かを確かめます。
// iteration はブースティングのラウンド番号など、発生箇所の目印です。
func CheckScalar(operation string, value float64, iteration int) error {
	if finite(value) {
		return nil
	}
	return NewNumericalInstabilityError(operation, []float64{value}, iteration)
}

// NonFiniteCellError は行列の中に NaN / Inf のセルが見つかったことを表します。
type NonFiniteCellError struct {
	Operation string
	Row, Col  int
	Value     float64
}

func (e *NonFiniteCellError) Error() string {
	return fmt.Sprintf("regselect: %s: non-finite value %v at row %d, column %d",
		e.Operation, e.Value, e.Row, e.Col)
}

// CheckMatrix は m を行優先で走査し、最初の非有限セルの位置を返します。
func CheckMatrix(operation string, m interface {
	Dims() (int, int)
	At(int, int) float64
}) error {
	rows, cols := m.Dims()
	for i := 0; i < rows; i++ {
		for j := 0; j < cols; j++ {
			if v := m.At(i, j); !finite(v) {
				return WithStack(&NonFiniteCellError{Operation: operation, Row: i, Col: j, Value: v})
			}
		}
	}
	return nil
}
