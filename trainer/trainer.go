// Package trainer は学習済み候補の中から最良の回帰モデルを選び、
// 採用閾値を満たした場合にその名前を成果物として保存する。
package trainer

import (
	"context"
	"time"

	"github.com/YuminosukeSato/regselect/config"
	"github.com/YuminosukeSato/regselect/core/model"
	"github.com/YuminosukeSato/regselect/dataset"
	"github.com/YuminosukeSato/regselect/evaluation"
	"github.com/YuminosukeSato/regselect/pkg/errors"
	"github.com/YuminosukeSato/regselect/pkg/log"
	"github.com/YuminosukeSato/regselect/registry"
	"github.com/YuminosukeSato/regselect/report"
	"gonum.org/v1/gonum/mat"
)

const opSelect = "ModelTrainer.SelectBestModel"

// Evaluator は候補を学習・評価して ScoreBoard を返す。
// *evaluation.Evaluator が実装する。
type Evaluator interface {
	Evaluate(ctx context.Context, XTrain, yTrain, XTest, yTest mat.Matrix, reg registry.Registry) (evaluation.ScoreBoard, error)
}

// RegistryFactory は呼び出しごとに未学習の候補一覧を作る
type RegistryFactory func(seed int64) (registry.Registry, error)

// Option は ModelTrainer の設定オプション
type Option func(*ModelTrainer)

// WithEvaluator は評価器を差し替える
func WithEvaluator(e Evaluator) Option {
	return func(t *ModelTrainer) { t.evaluator = e }
}

// WithObjectStore は成果物の保存先を差し替える
func WithObjectStore(s model.ObjectStore) Option {
	return func(t *ModelTrainer) { t.store = s }
}

// WithLogger はロガーを設定する
func WithLogger(l log.Logger) Option {
	return func(t *ModelTrainer) { t.logger = l }
}

// WithRegistryFactory は候補一覧の生成方法を差し替える
func WithRegistryFactory(f RegistryFactory) Option {
	return func(t *ModelTrainer) { t.newRegistry = f }
}

// ModelTrainer はモデル選択ステップ。呼び出し間で状態を持たない。
type ModelTrainer struct {
	cfg         config.Config
	evaluator   Evaluator
	store       model.ObjectStore
	logger      log.Logger
	newRegistry RegistryFactory
}

// New は cfg を検査して ModelTrainer を作成する。
//
// 使用例:
//
//	t, err := trainer.New(config.Default())
//	sel, err := t.SelectBestModel(ctx, train, test)
func New(cfg config.Config, opts ...Option) (*ModelTrainer, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	kinds, err := cfg.Kinds()
	if err != nil {
		return nil, err
	}

	t := &ModelTrainer{cfg: cfg}
	for _, opt := range opts {
		opt(t)
	}
	if t.logger == nil {
		t.logger = log.GetLoggerWithName("trainer")
	}
	if t.evaluator == nil {
		t.evaluator = evaluation.New(
			evaluation.WithParallelism(cfg.Parallelism),
			evaluation.WithLogger(t.logger.With(log.ComponentKey, "evaluation")),
		)
	}
	if t.store == nil {
		t.store = model.NewFileStore()
	}
	if t.newRegistry == nil {
		t.newRegistry = func(seed int64) (registry.Registry, error) {
			return registry.Build(kinds, seed)
		}
	}
	return t, nil
}

// Config は使用中の設定を返す
func (t *ModelTrainer) Config() config.Config {
	return t.cfg
}

// SelectBestModel は train / test（最終列が目的変数）で全候補を評価し、
// 最高スコアの候補を選ぶ。
//
// 最高スコアが閾値未満の場合は Outcome が Rejected の Selection を nil エラーで返し、
// 成果物は書き込まない。評価・保存・レポートの失敗は StepError で包んで返す。
func (t *ModelTrainer) SelectBestModel(ctx context.Context, train, test mat.Matrix) (sel *Selection, err error) {
	defer errors.Recover(&err, opSelect)
	start := time.Now()

	trainSplit, testSplit, err := dataset.TrainTest(train, test)
	if err != nil {
		return nil, err
	}
	t.logger.Info("Created X, y train and test arrays",
		log.SamplesKey, trainSplit.Rows(),
		log.TestSamplesKey, testSplit.Rows(),
		log.FeaturesKey, trainSplit.Features(),
	)

	reg, err := t.newRegistry(t.cfg.RandomState)
	if err != nil {
		return nil, err
	}

	board, err := t.evaluator.Evaluate(ctx, trainSplit.X, trainSplit.Y, testSplit.X, testSplit.Y, reg)
	if err != nil {
		return nil, errors.NewStepError(opSelect, errors.KindEvaluation, err)
	}
	t.logger.Info("Models have been evaluated",
		log.OperationKey, log.OperationEvaluate,
		"candidates", len(board),
		log.DurationMsKey, log.Since(start),
	)

	best, ok := board.Best()
	if !ok {
		return nil, errors.NewStepError(opSelect, errors.KindEvaluation, errors.WithStack(errors.ErrEmptyRegistry))
	}

	sel = &Selection{
		Kind:       best.Kind,
		Name:       best.Name,
		Score:      best.Score,
		Threshold:  t.cfg.AcceptanceThreshold,
		Outcome:    Rejected,
		ScoreBoard: board,
	}

	if best.Score < t.cfg.AcceptanceThreshold {
		t.logger.Warn(noSuitableMessage(t.cfg.AcceptanceThreshold),
			log.PhaseKey, log.PhaseSelection,
			log.ModelNameKey, best.Name,
			log.R2ScoreKey, best.Score,
			log.ThresholdKey, t.cfg.AcceptanceThreshold,
		)
		if err := t.writeReport(sel); err != nil {
			return nil, err
		}
		return sel, nil
	}

	t.logger.Info("Best found model on both training and testing dataset",
		log.PhaseKey, log.PhaseSelection,
		log.ModelNameKey, best.Name,
		log.R2ScoreKey, best.Score,
	)

	if err := t.store.Save(t.cfg.OutputPath, best.Name); err != nil {
		return nil, errors.NewStepError(opSelect, errors.KindPersistence, err)
	}
	sel.Outcome = Accepted
	sel.ArtifactPath = t.cfg.OutputPath
	t.logger.Info("Saved best model name",
		log.OperationKey, log.OperationPersist,
		log.ArtifactPathKey, t.cfg.OutputPath,
	)

	if err := t.writeReport(sel); err != nil {
		return nil, err
	}
	return sel, nil
}

// SelectBestModelScore は採用された候補のスコアだけを返す。
// 不採用の場合は *errors.NoSuitableModelError を返す。
func (t *ModelTrainer) SelectBestModelScore(ctx context.Context, train, test mat.Matrix) (float64, error) {
	sel, err := t.SelectBestModel(ctx, train, test)
	if err != nil {
		return 0, err
	}
	if err := sel.Err(); err != nil {
		return 0, err
	}
	return sel.Score, nil
}

// writeReport は設定されている場合のみ JSON レポートとグラフを書き出す
func (t *ModelTrainer) writeReport(sel *Selection) error {
	if t.cfg.ReportPath != "" {
		summary := report.NewSummary(sel.ScoreBoard, sel.Threshold, sel.Accepted(), sel.ArtifactPath)
		if err := report.WriteJSON(t.cfg.ReportPath, summary); err != nil {
			return errors.NewStepError(opSelect, errors.KindReport, err)
		}
		t.logger.Debug("Wrote selection report", log.ReportPathKey, t.cfg.ReportPath)
	}
	if t.cfg.PlotPath != "" {
		if err := report.PlotScoreBoard(t.cfg.PlotPath, sel.ScoreBoard, sel.Threshold); err != nil {
			return errors.NewStepError(opSelect, errors.KindReport, err)
		}
		t.logger.Debug("Wrote score chart", log.ReportPathKey, t.cfg.PlotPath)
	}
	return nil
}
