package model

import "gonum.org/v1/gonum/mat"

// Fitter learns from a feature matrix X (n×p) and a target column y (n×1).
type Fitter interface {
	Fit(X, y mat.Matrix) error
}

// Predictor は学習済みモデルで X の各行の予測値を n×1 行列として返す
type Predictor interface {
	Predict(X mat.Matrix) (mat.Matrix, error)
}

// Scorer computes R² of the model's predictions against y.
type Scorer interface {
	Score(X, y mat.Matrix) (float64, error)
}

// Estimator は Fit 済みかを問い合わせられる Fitter
type Estimator interface {
	Fitter
	IsFitted() bool
}

// Regressor is what the candidate registry hands to the evaluator.
type Regressor interface {
	Estimator
	Predictor
	Scorer
}

// ParameterGetter は GetParams で scikit-learn 名のハイパーパラメータを返すモデル。
// evaluation はこれを実装する候補のパラメータをスコア表とレポートに載せる。
type ParameterGetter interface {
	GetParams() map[string]interface{}
}
