// Package xgboost implements an XGBoost-style regressor: second-order
// gradient boosting over histogram bins with L2-regularized leaf weights.
package xgboost

import (
	"fmt"
	"math"

	"github.com/YuminosukeSato/regselect/core/model"
	"github.com/YuminosukeSato/regselect/core/parallel"
	"github.com/YuminosukeSato/regselect/pkg/errors"
	"github.com/YuminosukeSato/regselect/sklearn/internal/binning"
	"github.com/YuminosukeSato/regselect/sklearn/tree"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

// kRtEps より小さい損失減少は分割とみなさない
const kRtEps = 1e-6

// XGBRegressor は reg:squarederror 目的関数の hist ブースティング。
// デフォルトは xgboost.XGBRegressor() と同じ（100 ラウンド、eta 0.3、深さ 6、
// lambda 1、gamma 0、min_child_weight 1、max_bin 256）。
type XGBRegressor struct {
	state *model.StateManager

	nEstimators    int
	learningRate   float64
	maxDepth       int
	regLambda      float64
	gamma          float64
	minChildWeight float64
	maxBin         int

	baseScore_ float64
	trees_     []*tree.Tree
}

// Option は XGBRegressor の設定オプション
type Option func(*XGBRegressor)

// WithNEstimators はブースティングのラウンド数を設定する
func WithNEstimators(n int) Option {
	return func(x *XGBRegressor) { x.nEstimators = n }
}

// WithLearningRate は eta を設定する
func WithLearningRate(eta float64) Option {
	return func(x *XGBRegressor) { x.learningRate = eta }
}

// WithMaxDepth は木の最大深さを設定する
func WithMaxDepth(depth int) Option {
	return func(x *XGBRegressor) { x.maxDepth = depth }
}

// WithRegLambda は葉の重みの L2 正則化を設定する
func WithRegLambda(lambda float64) Option {
	return func(x *XGBRegressor) { x.regLambda = lambda }
}

// WithGamma は分割に必要な最小損失減少を設定する
func WithGamma(gamma float64) Option {
	return func(x *XGBRegressor) { x.gamma = gamma }
}

// WithMinChildWeight は子ノードのヘシアン和の下限を設定する
func WithMinChildWeight(w float64) Option {
	return func(x *XGBRegressor) { x.minChildWeight = w }
}

// WithMaxBin はヒストグラムのビン数を設定する
func WithMaxBin(n int) Option {
	return func(x *XGBRegressor) { x.maxBin = n }
}

// NewXGBRegressor は新しい XGBRegressor を作成する
func NewXGBRegressor(opts ...Option) *XGBRegressor {
	x := &XGBRegressor{
		state:          model.NewStateManager(),
		nEstimators:    100,
		learningRate:   0.3,
		maxDepth:       6,
		regLambda:      1,
		gamma:          0,
		minChildWeight: 1,
		maxBin:         256,
	}
	for _, opt := range opts {
		opt(x)
	}
	return x
}

func (x *XGBRegressor) validateParams() error {
	switch {
	case x.nEstimators < 1:
		return errors.NewValidationError("n_estimators", "must be >= 1", x.nEstimators)
	case x.learningRate <= 0:
		return errors.NewValidationError("learning_rate", "must be > 0", x.learningRate)
	case x.maxDepth < 1:
		return errors.NewValidationError("max_depth", "must be >= 1", x.maxDepth)
	case x.regLambda < 0:
		return errors.NewValidationError("reg_lambda", "must be >= 0", x.regLambda)
	case x.gamma < 0:
		return errors.NewValidationError("gamma", "must be >= 0", x.gamma)
	case x.maxBin < 2 || x.maxBin > binning.MaxBins:
		return errors.NewValidationError("max_bin", "must be in [2, 65535]", x.maxBin)
	}
	return nil
}

// Fit はブースティングを学習する
func (x *XGBRegressor) Fit(X, y mat.Matrix) (err error) {
	defer errors.Recover(&err, "XGBRegressor.Fit")

	rows, cols, err := model.ValidateFitInput("XGBRegressor.Fit", X, y)
	if err != nil {
		return err
	}
	if err := x.validateParams(); err != nil {
		return err
	}

	xRows := model.Rows(X)
	yCol := model.Column(y)

	mapper := binning.Fit(xRows, x.maxBin)
	g := &grower{
		params: x,
		mapper: mapper,
		bins:   mapper.Transform(xRows),
		grad:   make([]float64, rows),
		hess:   make([]float64, rows),
	}

	x.baseScore_ = stat.Mean(yCol, nil)
	pred := make([]float64, rows)
	for i := range pred {
		pred[i] = x.baseScore_
	}

	x.trees_ = make([]*tree.Tree, 0, x.nEstimators)
	indices := make([]int, rows)
	for round := 0; round < x.nEstimators; round++ {
		// 二乗誤差: grad = pred - y, hess = 1
		for i := range pred {
			g.grad[i] = pred[i] - yCol[i]
			g.hess[i] = 1
		}
		for i := range indices {
			indices[i] = i
		}

		t := g.build(indices)
		for i, row := range xRows {
			pred[i] += t.PredictRow(row)
		}
		if err := errors.CheckScalar("XGBRegressor.Fit", t.Nodes[0].Value, round); err != nil {
			return err
		}
		x.trees_ = append(x.trees_, t)
	}

	x.state.SetFitted(cols, rows)
	return nil
}

// grower は1本の木をヒストグラムから深さ優先で成長させる
type grower struct {
	params *XGBRegressor
	mapper *binning.Mapper
	bins   [][]uint16
	grad   []float64
	hess   []float64
}

type candidate struct {
	feature int
	bin     int
	gain    float64
}

func (g *grower) build(indices []int) *tree.Tree {
	t := &tree.Tree{}
	g.grow(t, indices, 0)
	return t
}

func (g *grower) grow(t *tree.Tree, indices []int, depth int) int {
	var G, H float64
	for _, i := range indices {
		G += g.grad[i]
		H += g.hess[i]
	}

	p := g.params
	nodeIdx := len(t.Nodes)
	t.Nodes = append(t.Nodes, tree.Node{
		Feature:  -1,
		Value:    -G / (H + p.regLambda) * p.learningRate,
		NSamples: len(indices),
		Weight:   H,
	})

	if depth >= p.maxDepth || len(indices) < 2 {
		return nodeIdx
	}

	best, ok := g.findBestSplit(indices, G, H)
	if !ok {
		return nodeIdx
	}

	var left, right []int
	col := g.bins[best.feature]
	for _, i := range indices {
		if int(col[i]) <= best.bin {
			left = append(left, i)
		} else {
			right = append(right, i)
		}
	}

	l := g.grow(t, left, depth+1)
	r := g.grow(t, right, depth+1)

	node := &t.Nodes[nodeIdx]
	node.Feature = best.feature
	node.Threshold = g.mapper.Threshold(best.feature, best.bin)
	node.Impurity = best.gain
	node.Left = l
	node.Right = r
	return nodeIdx
}

// findBestSplit は特徴量ごとに勾配ヒストグラムを作り、利得最大の分割を探す
func (g *grower) findBestSplit(indices []int, G, H float64) (candidate, bool) {
	p := g.params
	nFeatures := g.mapper.NumFeatures()
	perFeature := make([]candidate, nFeatures)
	parentScore := G * G / (H + p.regLambda)

	parallel.ParallelizeWithThreshold(nFeatures, 4, func(start, end int) {
		for f := start; f < end; f++ {
			perFeature[f] = candidate{feature: f, gain: math.Inf(-1)}
			nBins := g.mapper.NumBins(f)
			if nBins < 2 {
				continue
			}
			gHist := make([]float64, nBins)
			hHist := make([]float64, nBins)
			col := g.bins[f]
			for _, i := range indices {
				gHist[col[i]] += g.grad[i]
				hHist[col[i]] += g.hess[i]
			}

			var GL, HL float64
			for b := 0; b < nBins-1; b++ {
				GL += gHist[b]
				HL += hHist[b]
				GR, HR := G-GL, H-HL
				if HL < p.minChildWeight || HR < p.minChildWeight {
					continue
				}
				gain := 0.5*(GL*GL/(HL+p.regLambda)+GR*GR/(HR+p.regLambda)-parentScore) - p.gamma
				if gain > perFeature[f].gain {
					perFeature[f] = candidate{feature: f, bin: b, gain: gain}
				}
			}
		}
	})

	best := candidate{gain: math.Inf(-1)}
	for _, c := range perFeature {
		if c.gain > best.gain {
			best = c
		}
	}
	return best, best.gain > kRtEps
}

// Predict は base_score と各木の出力の和を返す
func (x *XGBRegressor) Predict(X mat.Matrix) (mat.Matrix, error) {
	if err := x.state.RequireFitted("XGBRegressor", "Predict", X); err != nil {
		return nil, err
	}

	rowsX := model.Rows(X)
	out := mat.NewDense(len(rowsX), 1, nil)
	for i, row := range rowsX {
		f := x.baseScore_
		for _, t := range x.trees_ {
			f += t.PredictRow(row)
		}
		out.Set(i, 0, f)
	}
	return out, nil
}

// Score は決定係数（R²）を返す
func (x *XGBRegressor) Score(X, y mat.Matrix) (float64, error) {
	return model.ScoreR2(x, X, y)
}

// IsFitted returns whether the model has been fitted
func (x *XGBRegressor) IsFitted() bool {
	return x.state.IsFitted()
}

// Trees は学習済みの木を返す
func (x *XGBRegressor) Trees() []*tree.Tree {
	return x.trees_
}

// BaseScore は初期予測値（目的変数の平均）を返す
func (x *XGBRegressor) BaseScore() float64 {
	return x.baseScore_
}

// GetParams returns the hyperparameters using XGBoost's scikit-learn API names.
func (x *XGBRegressor) GetParams() map[string]interface{} {
	return map[string]interface{}{
		"objective":        "reg:squarederror",
		"tree_method":      "hist",
		"n_estimators":     x.nEstimators,
		"learning_rate":    x.learningRate,
		"max_depth":        x.maxDepth,
		"reg_lambda":       x.regLambda,
		"gamma":            x.gamma,
		"min_child_weight": x.minChildWeight,
		"max_bin":          x.maxBin,
	}
}

func (x *XGBRegressor) String() string {
	return fmt.Sprintf("XGBRegressor(n_estimators=%d, learning_rate=%g, max_depth=%d)",
		x.nEstimators, x.learningRate, x.maxDepth)
}
