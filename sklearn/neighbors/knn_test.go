package neighbors

import (
	"testing"

	"github.com/YuminosukeSato/regselect/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
)

func TestKNeighborsRegressor_Uniform(t *testing.T) {
	X := mat.NewDense(6, 1, []float64{0, 1, 2, 10, 11, 12})
	y := mat.NewDense(6, 1, []float64{1, 2, 3, 10, 20, 30})

	kn := NewKNeighborsRegressor(WithNNeighbors(3))
	require.NoError(t, kn.Fit(X, y))

	pred, err := kn.Predict(mat.NewDense(2, 1, []float64{1, 11}))
	require.NoError(t, err)
	assert.InDelta(t, 2.0, pred.At(0, 0), 1e-12)
	assert.InDelta(t, 20.0, pred.At(1, 0), 1e-12)
}

func TestKNeighborsRegressor_Distance(t *testing.T) {
	X := mat.NewDense(3, 1, []float64{0, 1, 3})
	y := mat.NewDense(3, 1, []float64{0, 10, 30})

	kn := NewKNeighborsRegressor(WithNNeighbors(2), WithWeights(Distance))
	require.NoError(t, kn.Fit(X, y))

	pred, err := kn.Predict(mat.NewDense(2, 1, []float64{0.5, 1}))
	require.NoError(t, err)
	// 0.5 から 0 と 1 は等距離
	assert.InDelta(t, 5.0, pred.At(0, 0), 1e-12)
	// 距離 0 の近傍はその値をそのまま返す
	assert.InDelta(t, 10.0, pred.At(1, 0), 1e-12)
}

func TestKNeighborsRegressor_ClampsNeighbors(t *testing.T) {
	var warnings []error
	errors.SetWarningHandler(func(w error) { warnings = append(warnings, w) })
	defer errors.SetWarningHandler(nil)

	X := mat.NewDense(3, 2, []float64{0, 0, 1, 1, 2, 2})
	y := mat.NewDense(3, 1, []float64{1, 2, 6})

	kn := NewKNeighborsRegressor()
	require.NoError(t, kn.Fit(X, y))
	assert.Equal(t, 3, kn.EffectiveNeighbors())

	require.Len(t, warnings, 1)
	var pw *errors.ParameterAdjustedWarning
	require.True(t, errors.As(warnings[0], &pw))
	assert.Equal(t, "n_neighbors", pw.ParamName)
	assert.Equal(t, 5, pw.From)
	assert.Equal(t, 3, pw.To)

	pred, err := kn.Predict(mat.NewDense(1, 2, []float64{5, 5}))
	require.NoError(t, err)
	assert.InDelta(t, 3.0, pred.At(0, 0), 1e-12)
}

func TestKNeighborsRegressor_ParallelPredictMatchesSequential(t *testing.T) {
	n := 600
	X := mat.NewDense(n, 2, nil)
	y := mat.NewDense(n, 1, nil)
	for i := 0; i < n; i++ {
		a, b := float64(i%37), float64(i%11)
		X.SetRow(i, []float64{a, b})
		y.Set(i, 0, a*2+b)
	}

	kn := NewKNeighborsRegressor()
	require.NoError(t, kn.Fit(X, y))

	pred, err := kn.Predict(X)
	require.NoError(t, err)

	dist := make([]float64, n)
	idx := make([]int, n)
	for i := 0; i < n; i++ {
		assert.Equal(t, kn.predictRow(X.RawRowView(i), dist, idx), pred.At(i, 0))
	}
}

func TestKNeighborsRegressor_Errors(t *testing.T) {
	X := mat.NewDense(3, 1, []float64{0, 1, 2})
	y := mat.NewDense(3, 1, []float64{0, 1, 2})

	_, err := NewKNeighborsRegressor().Predict(X)
	var nf *errors.NotFittedError
	assert.True(t, errors.As(err, &nf))

	var ve *errors.ValidationError
	assert.True(t, errors.As(NewKNeighborsRegressor(WithNNeighbors(0)).Fit(X, y), &ve))
	assert.True(t, errors.As(NewKNeighborsRegressor(WithWeights("cosine")).Fit(X, y), &ve))
}
