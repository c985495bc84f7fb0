package ensemble

import (
	"math"
	"math/rand"
	"testing"

	"github.com/YuminosukeSato/regselect/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
)

// makeRegression は y = 3*x0 - 2*x1 + sin(2*x2) + noise のデータを生成する
func makeRegression(n int, seed int64) (*mat.Dense, *mat.Dense) {
	rng := rand.New(rand.NewSource(seed))
	X := mat.NewDense(n, 3, nil)
	y := mat.NewDense(n, 1, nil)
	for i := 0; i < n; i++ {
		x0, x1, x2 := rng.Float64()*4, rng.Float64()*4, rng.Float64()*4
		X.SetRow(i, []float64{x0, x1, x2})
		y.Set(i, 0, 3*x0-2*x1+math.Sin(2*x2)+rng.NormFloat64()*0.1)
	}
	return X, y
}

func TestRandomForestRegressor(t *testing.T) {
	XTrain, yTrain := makeRegression(300, 1)
	XTest, yTest := makeRegression(100, 2)

	rf := NewRandomForestRegressor(WithForestEstimators(30))
	require.NoError(t, rf.Fit(XTrain, yTrain))
	assert.Len(t, rf.Estimators(), 30)

	score, err := rf.Score(XTest, yTest)
	require.NoError(t, err)
	assert.Greater(t, score, 0.85)
}

func TestRandomForestRegressor_Deterministic(t *testing.T) {
	X, y := makeRegression(120, 3)

	fitPredict := func(jobs int) mat.Matrix {
		rf := NewRandomForestRegressor(WithForestEstimators(10), WithNJobs(jobs), WithForestRandomState(7))
		require.NoError(t, rf.Fit(X, y))
		pred, err := rf.Predict(X)
		require.NoError(t, err)
		return pred
	}

	sequential := fitPredict(1)
	concurrent := fitPredict(4)
	assert.True(t, mat.Equal(sequential, concurrent), "forest must not depend on scheduling")
}

func TestRandomForestRegressor_NoBootstrapEqualsTree(t *testing.T) {
	X, y := makeRegression(50, 4)

	// ブートストラップなし・全特徴量なら全ての木が訓練データを完全に再現する
	rf := NewRandomForestRegressor(WithForestEstimators(3), WithBootstrap(false))
	require.NoError(t, rf.Fit(X, y))
	score, err := rf.Score(X, y)
	require.NoError(t, err)
	assert.InDelta(t, 1.0, score, 1e-9)
}

func TestGradientBoostingRegressor(t *testing.T) {
	XTrain, yTrain := makeRegression(300, 5)
	XTest, yTest := makeRegression(100, 6)

	gb := NewGradientBoostingRegressor()
	require.NoError(t, gb.Fit(XTrain, yTrain))

	losses := gb.TrainScore()
	require.Len(t, losses, 100)
	assert.Less(t, losses[99], losses[0])

	score, err := gb.Score(XTest, yTest)
	require.NoError(t, err)
	assert.Greater(t, score, 0.9)
}

func TestGradientBoostingRegressor_ConstantTarget(t *testing.T) {
	X, _ := makeRegression(20, 7)
	y := mat.NewDense(20, 1, nil)
	for i := 0; i < 20; i++ {
		y.Set(i, 0, 4)
	}

	gb := NewGradientBoostingRegressor(WithBoostingEstimators(5))
	require.NoError(t, gb.Fit(X, y))
	pred, err := gb.Predict(X)
	require.NoError(t, err)
	for i := 0; i < 20; i++ {
		assert.InDelta(t, 4.0, pred.At(i, 0), 1e-12)
	}
}

func TestAdaBoostRegressor(t *testing.T) {
	XTrain, yTrain := makeRegression(300, 8)
	XTest, yTest := makeRegression(100, 9)

	ab := NewAdaBoostRegressor()
	require.NoError(t, ab.Fit(XTrain, yTrain))

	weights := ab.EstimatorWeights()
	require.NotEmpty(t, weights)
	assert.LessOrEqual(t, len(weights), 50)
	for _, e := range ab.EstimatorErrors() {
		assert.Less(t, e, 0.5)
	}

	score, err := ab.Score(XTest, yTest)
	require.NoError(t, err)
	assert.Greater(t, score, 0.7)
}

func TestAdaBoostRegressor_Deterministic(t *testing.T) {
	X, y := makeRegression(80, 10)

	fitPredict := func() mat.Matrix {
		ab := NewAdaBoostRegressor(WithAdaBoostEstimators(10))
		require.NoError(t, ab.Fit(X, y))
		pred, err := ab.Predict(X)
		require.NoError(t, err)
		return pred
	}
	assert.True(t, mat.Equal(fitPredict(), fitPredict()))
}

func TestWeightedMedian(t *testing.T) {
	tests := []struct {
		name    string
		values  []float64
		weights []float64
		want    float64
	}{
		{"uniform odd", []float64{3, 1, 2}, []float64{1, 1, 1}, 2},
		{"uniform even takes lower", []float64{4, 1, 3, 2}, []float64{1, 1, 1, 1}, 2},
		{"heavy weight dominates", []float64{1, 10, 2}, []float64{0.1, 5, 0.1}, 10},
		{"single", []float64{7}, []float64{0.3}, 7},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			order := make([]int, len(tt.values))
			for i := range order {
				order[i] = i
			}
			assert.Equal(t, tt.want, weightedMedian(tt.values, tt.weights, order))
		})
	}
}

func TestEnsemble_Validation(t *testing.T) {
	X, y := makeRegression(10, 11)

	tests := []struct {
		name string
		fit  func() error
	}{
		{"forest n_estimators", func() error { return NewRandomForestRegressor(WithForestEstimators(0)).Fit(X, y) }},
		{"boosting learning_rate", func() error { return NewGradientBoostingRegressor(WithBoostingLearningRate(0)).Fit(X, y) }},
		{"adaboost loss", func() error { return NewAdaBoostRegressor(WithLoss("huber")).Fit(X, y) }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var ve *errors.ValidationError
			assert.True(t, errors.As(tt.fit(), &ve))
		})
	}

	t.Run("predict before fit", func(t *testing.T) {
		_, err := NewAdaBoostRegressor().Predict(X)
		var nf *errors.NotFittedError
		assert.True(t, errors.As(err, &nf))
	})
}
