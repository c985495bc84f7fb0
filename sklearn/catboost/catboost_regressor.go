// Package catboost implements a CatBoost-style regressor built from
// symmetric (oblivious) decision trees over quantized feature borders.
package catboost

import (
	"fmt"
	"math"
	"time"

	"github.com/YuminosukeSato/regselect/core/model"
	"github.com/YuminosukeSato/regselect/pkg/errors"
	"github.com/YuminosukeSato/regselect/pkg/log"
	"github.com/YuminosukeSato/regselect/sklearn/internal/binning"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

// ObliviousTree は各深さで同じ (特徴量, 境界) を使う対称木。
// 葉番号は深さ d の条件 x[Features[d]] > Borders[d] をビット d とした値。
type ObliviousTree struct {
	Features []int
	Borders  []float64
	Values   []float64
}

// Leaf はサンプルが到達する葉の番号を返す
func (t *ObliviousTree) Leaf(row []float64) int {
	leaf := 0
	for d, f := range t.Features {
		if row[f] > t.Borders[d] {
			leaf |= 1 << d
		}
	}
	return leaf
}

// PredictRow は葉の値を返す
func (t *ObliviousTree) PredictRow(row []float64) float64 {
	return t.Values[t.Leaf(row)]
}

// Depth は木の深さを返す
func (t *ObliviousTree) Depth() int {
	return len(t.Features)
}

// CatBoostRegressor は RMSE 損失の勾配ブースティング。
// デフォルトは catboost.CatBoostRegressor() と同じ（1000 イテレーション、
// 学習率 0.03、深さ 6、l2_leaf_reg 3、border_count 254）。
type CatBoostRegressor struct {
	state *model.StateManager

	iterations  int
	learnRate   float64
	depth       int
	l2LeafReg   float64
	borderCount int
	verbose     bool
	logPeriod   int

	logger log.Logger

	bias_  float64
	trees_ []*ObliviousTree
}

// Option は CatBoostRegressor の設定オプション
type Option func(*CatBoostRegressor)

// WithIterations はブースティングのイテレーション数を設定する
func WithIterations(n int) Option {
	return func(c *CatBoostRegressor) { c.iterations = n }
}

// WithLearningRate は学習率を設定する
func WithLearningRate(lr float64) Option {
	return func(c *CatBoostRegressor) { c.learnRate = lr }
}

// WithDepth は対称木の深さを設定する
func WithDepth(depth int) Option {
	return func(c *CatBoostRegressor) { c.depth = depth }
}

// WithL2LeafReg は葉の値の L2 正則化を設定する
func WithL2LeafReg(reg float64) Option {
	return func(c *CatBoostRegressor) { c.l2LeafReg = reg }
}

// WithBorderCount は特徴量ごとの境界数を設定する
func WithBorderCount(n int) Option {
	return func(c *CatBoostRegressor) { c.borderCount = n }
}

// WithVerbose は学習の進捗ログを有効にする
func WithVerbose(verbose bool) Option {
	return func(c *CatBoostRegressor) { c.verbose = verbose }
}

// WithLogPeriod は進捗ログを出すイテレーション間隔を設定する
func WithLogPeriod(n int) Option {
	return func(c *CatBoostRegressor) { c.logPeriod = n }
}

// WithLogger は進捗ログの出力先を設定する
func WithLogger(logger log.Logger) Option {
	return func(c *CatBoostRegressor) { c.logger = logger }
}

// NewCatBoostRegressor は新しい CatBoostRegressor を作成する
func NewCatBoostRegressor(opts ...Option) *CatBoostRegressor {
	c := &CatBoostRegressor{
		state:       model.NewStateManager(),
		iterations:  1000,
		learnRate:   0.03,
		depth:       6,
		l2LeafReg:   3,
		borderCount: 254,
		verbose:     true,
		logPeriod:   100,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.logger == nil {
		c.logger = log.GetLoggerWithName("catboost")
	}
	return c
}

func (c *CatBoostRegressor) validateParams() error {
	switch {
	case c.iterations < 1:
		return errors.NewValidationError("iterations", "must be >= 1", c.iterations)
	case c.learnRate <= 0:
		return errors.NewValidationError("learning_rate", "must be > 0", c.learnRate)
	case c.depth < 1 || c.depth > 16:
		return errors.NewValidationError("depth", "must be in [1, 16]", c.depth)
	case c.l2LeafReg < 0:
		return errors.NewValidationError("l2_leaf_reg", "must be >= 0", c.l2LeafReg)
	case c.borderCount < 1 || c.borderCount >= binning.MaxBins:
		return errors.NewValidationError("border_count", "must be in [1, 65534]", c.borderCount)
	case c.logPeriod < 1:
		return errors.NewValidationError("metric_period", "must be >= 1", c.logPeriod)
	}
	return nil
}

// Fit はブースティングを学習する
func (c *CatBoostRegressor) Fit(X, y mat.Matrix) (err error) {
	defer errors.Recover(&err, "CatBoostRegressor.Fit")

	rows, cols, err := model.ValidateFitInput("CatBoostRegressor.Fit", X, y)
	if err != nil {
		return err
	}
	if err := c.validateParams(); err != nil {
		return err
	}

	start := time.Now()
	xRows := model.Rows(X)
	yCol := model.Column(y)

	// 境界数 + 1 がビン数
	mapper := binning.Fit(xRows, c.borderCount+1)
	bins := mapper.Transform(xRows)

	c.bias_ = stat.Mean(yCol, nil)
	pred := make([]float64, rows)
	for i := range pred {
		pred[i] = c.bias_
	}

	residual := make([]float64, rows)
	leafOf := make([]int, rows)
	c.trees_ = make([]*ObliviousTree, 0, c.iterations)

	for iter := 0; iter < c.iterations; iter++ {
		for i := range residual {
			residual[i] = yCol[i] - pred[i]
		}

		t := c.buildTree(mapper, bins, residual, leafOf)
		for i := range pred {
			pred[i] += t.Values[leafOf[i]]
		}
		c.trees_ = append(c.trees_, t)

		if c.verbose && (iter%c.logPeriod == 0 || iter == c.iterations-1) {
			loss := rmse(yCol, pred)
			if err := errors.CheckScalar("CatBoostRegressor.Fit", loss, iter); err != nil {
				return err
			}
			c.logger.Info("CatBoost iteration",
				log.IterationKey, iter,
				log.LossKey, loss,
				log.DurationMsKey, log.Since(start),
			)
		}
	}

	c.state.SetFitted(cols, rows)
	return nil
}

// buildTree は深さごとに全葉共通の最良分割を貪欲に選び、対称木を構築する。
// leafOf には各サンプルの葉番号が書き込まれる。
func (c *CatBoostRegressor) buildTree(mapper *binning.Mapper, bins [][]uint16, residual []float64, leafOf []int) *ObliviousTree {
	for i := range leafOf {
		leafOf[i] = 0
	}
	t := &ObliviousTree{}
	lambda := c.l2LeafReg

	for d := 0; d < c.depth; d++ {
		nLeaves := 1 << d
		sum := make([]float64, nLeaves)
		cnt := make([]float64, nLeaves)
		for i, r := range residual {
			sum[leafOf[i]] += r
			cnt[leafOf[i]]++
		}
		var baseScore float64
		for l := 0; l < nLeaves; l++ {
			baseScore += sum[l] * sum[l] / (cnt[l] + lambda)
		}

		bestScore := math.Inf(-1)
		bestFeature, bestBin := -1, -1
		for f := 0; f < mapper.NumFeatures(); f++ {
			nBins := mapper.NumBins(f)
			if nBins < 2 {
				continue
			}
			// hist[leaf*nBins+bin]
			sHist := make([]float64, nLeaves*nBins)
			cHist := make([]float64, nLeaves*nBins)
			col := bins[f]
			for i, r := range residual {
				k := leafOf[i]*nBins + int(col[i])
				sHist[k] += r
				cHist[k]++
			}

			sLeft := make([]float64, nLeaves)
			cLeft := make([]float64, nLeaves)
			for b := 0; b < nBins-1; b++ {
				var score float64
				for l := 0; l < nLeaves; l++ {
					sLeft[l] += sHist[l*nBins+b]
					cLeft[l] += cHist[l*nBins+b]
					sR, cR := sum[l]-sLeft[l], cnt[l]-cLeft[l]
					score += sLeft[l]*sLeft[l]/(cLeft[l]+lambda) + sR*sR/(cR+lambda)
				}
				if score > bestScore {
					bestScore, bestFeature, bestBin = score, f, b
				}
			}
		}

		if bestFeature < 0 || bestScore <= baseScore*(1+1e-12)+1e-12 {
			break
		}

		border := mapper.Threshold(bestFeature, bestBin)
		t.Features = append(t.Features, bestFeature)
		t.Borders = append(t.Borders, border)
		col := bins[bestFeature]
		for i := range leafOf {
			if int(col[i]) > bestBin {
				leafOf[i] |= 1 << d
			}
		}
	}

	nLeaves := 1 << len(t.Features)
	sum := make([]float64, nLeaves)
	cnt := make([]float64, nLeaves)
	for i, r := range residual {
		sum[leafOf[i]] += r
		cnt[leafOf[i]]++
	}
	t.Values = make([]float64, nLeaves)
	for l := range t.Values {
		t.Values[l] = c.learnRate * sum[l] / (cnt[l] + lambda)
	}
	return t
}

func rmse(y, pred []float64) float64 {
	var s float64
	for i := range y {
		d := y[i] - pred[i]
		s += d * d
	}
	return math.Sqrt(s / float64(len(y)))
}

// Predict はバイアスと各木の出力の和を返す
func (c *CatBoostRegressor) Predict(X mat.Matrix) (mat.Matrix, error) {
	if err := c.state.RequireFitted("CatBoostRegressor", "Predict", X); err != nil {
		return nil, err
	}

	rowsX := model.Rows(X)
	out := mat.NewDense(len(rowsX), 1, nil)
	for i, row := range rowsX {
		f := c.bias_
		for _, t := range c.trees_ {
			f += t.PredictRow(row)
		}
		out.Set(i, 0, f)
	}
	return out, nil
}

// Score は決定係数（R²）を返す
func (c *CatBoostRegressor) Score(X, y mat.Matrix) (float64, error) {
	return model.ScoreR2(c, X, y)
}

// IsFitted returns whether the model has been fitted
func (c *CatBoostRegressor) IsFitted() bool {
	return c.state.IsFitted()
}

// Trees は学習済みの対称木を返す
func (c *CatBoostRegressor) Trees() []*ObliviousTree {
	return c.trees_
}

// GetParams returns the hyperparameters using CatBoost's names.
func (c *CatBoostRegressor) GetParams() map[string]interface{} {
	return map[string]interface{}{
		"loss_function": "RMSE",
		"iterations":    c.iterations,
		"learning_rate": c.learnRate,
		"depth":         c.depth,
		"l2_leaf_reg":   c.l2LeafReg,
		"border_count":  c.borderCount,
		"verbose":       c.verbose,
	}
}

func (c *CatBoostRegressor) String() string {
	return fmt.Sprintf("CatBoostRegressor(iterations=%d, learning_rate=%g, depth=%d, verbose=%t)",
		c.iterations, c.learnRate, c.depth, c.verbose)
}
