// Package evaluation fits every candidate of a registry on the training split
// and scores it by R² on the test split.
package evaluation

import (
	"context"
	"time"

	"github.com/YuminosukeSato/regselect/core/model"
	"github.com/YuminosukeSato/regselect/pkg/errors"
	"github.com/YuminosukeSato/regselect/pkg/log"
	"github.com/YuminosukeSato/regselect/registry"
	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/mat"
)

// Evaluator は候補モデルを学習・評価して ScoreBoard を作る。
// parallelism が 1 なら登録順に逐次実行する。
type Evaluator struct {
	parallelism int
	logger      log.Logger
}

// Option は Evaluator の設定オプション
type Option func(*Evaluator)

// WithParallelism は同時に学習する候補数の上限を設定する
func WithParallelism(n int) Option {
	return func(e *Evaluator) { e.parallelism = n }
}

// WithLogger はロガーを設定する
func WithLogger(logger log.Logger) Option {
	return func(e *Evaluator) { e.logger = logger }
}

// New は逐次実行の Evaluator を作成する
func New(opts ...Option) *Evaluator {
	e := &Evaluator{parallelism: 1}
	for _, opt := range opts {
		opt(e)
	}
	if e.logger == nil {
		e.logger = log.GetLoggerWithName("evaluation")
	}
	return e
}

// Evaluate は reg の各候補を (XTrain, yTrain) で学習し、(XTest, yTest) の R² を返す。
// 結果は並列実行でも登録順に並ぶ。いずれかの候補が失敗した時点で全体を失敗とする。
func (e *Evaluator) Evaluate(ctx context.Context, XTrain, yTrain, XTest, yTest mat.Matrix, reg registry.Registry) (ScoreBoard, error) {
	if len(reg) == 0 {
		return nil, errors.WithStack(errors.ErrEmptyRegistry)
	}

	board := make(ScoreBoard, len(reg))

	if e.parallelism <= 1 {
		for i, c := range reg {
			if err := ctx.Err(); err != nil {
				return nil, errors.Wrap(err, "evaluation cancelled")
			}
			s, err := e.evaluateOne(c, XTrain, yTrain, XTest, yTest)
			if err != nil {
				return nil, err
			}
			board[i] = s
		}
		return board, nil
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.parallelism)
	for i, c := range reg {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return errors.Wrap(err, "evaluation cancelled")
			}
			s, err := e.evaluateOne(c, XTrain, yTrain, XTest, yTest)
			if err != nil {
				return err
			}
			board[i] = s
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return board, nil
}

func (e *Evaluator) evaluateOne(c registry.Candidate, XTrain, yTrain, XTest, yTest mat.Matrix) (Score, error) {
	logger := e.logger.With(log.ModelNameKey, c.Name, log.ModelKindKey, c.Kind.String())
	start := time.Now()

	var score float64
	err := errors.SafeExecute("Evaluate."+c.Kind.String(), func() error {
		if err := c.Model.Fit(XTrain, yTrain); err != nil {
			return err
		}
		s, err := c.Model.Score(XTest, yTest)
		if err != nil {
			return err
		}
		score = s
		return errors.CheckScalar("Score", s, 0)
	})
	if err != nil {
		logger.Error("Candidate evaluation failed", err)
		return Score{}, errors.Wrapf(err, "candidate %q", c.Name)
	}

	elapsed := time.Since(start)
	logger.Debug("Candidate evaluated",
		log.OperationKey, log.OperationEvaluate,
		log.R2ScoreKey, score,
		log.DurationMsKey, elapsed.Milliseconds(),
	)
	s := Score{Kind: c.Kind, Name: c.Name, Score: score, Duration: elapsed}
	if pg, ok := c.Model.(model.ParameterGetter); ok {
		s.Params = pg.GetParams()
	}
	return s, nil
}
