package trainer

import (
	"context"
	"math"
	"path/filepath"
	"sync"
	"testing"

	"github.com/YuminosukeSato/regselect/config"
	"github.com/YuminosukeSato/regselect/core/model"
	"github.com/YuminosukeSato/regselect/evaluation"
	"github.com/YuminosukeSato/regselect/pkg/errors"
	"github.com/YuminosukeSato/regselect/pkg/log"
	"github.com/YuminosukeSato/regselect/registry"
	"github.com/YuminosukeSato/regselect/report"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
)

// fakeEvaluator は固定の ScoreBoard を返す
type fakeEvaluator struct {
	board evaluation.ScoreBoard
	err   error
	calls int
}

func (f *fakeEvaluator) Evaluate(_ context.Context, _, _, _, _ mat.Matrix, _ registry.Registry) (evaluation.ScoreBoard, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return append(evaluation.ScoreBoard(nil), f.board...), nil
}

// memoryStore は保存内容をメモリに記録する
type memoryStore struct {
	mu      sync.Mutex
	objects map[string]interface{}
	saves   int
	err     error
}

func newMemoryStore() *memoryStore {
	return &memoryStore{objects: make(map[string]interface{})}
}

func (s *memoryStore) Save(path string, obj interface{}) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	s.saves++
	s.objects[path] = obj
	return nil
}

func (s *memoryStore) Load(path string, into interface{}) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	obj, ok := s.objects[path]
	if !ok {
		return errors.Newf("no object at %s", path)
	}
	*(into.(*string)) = obj.(string)
	return nil
}

func board(scores ...interface{}) evaluation.ScoreBoard {
	var b evaluation.ScoreBoard
	for i := 0; i+1 < len(scores); i += 2 {
		b = append(b, evaluation.Score{Name: scores[i].(string), Score: scores[i+1].(float64)})
	}
	return b
}

// linearData は y = 2*x0 - x1 + 1 の行列（最終列が目的変数）を返す
func linearData(n int, offset float64) *mat.Dense {
	m := mat.NewDense(n, 3, nil)
	for i := 0; i < n; i++ {
		x0 := float64(i) + offset
		x1 := math.Mod(float64(i)*7, 11)
		m.SetRow(i, []float64{x0, x1, 2*x0 - x1 + 1})
	}
	return m
}

func newTestTrainer(t *testing.T, cfg config.Config, ev Evaluator, store model.ObjectStore) (*ModelTrainer, *log.TestLogger) {
	t.Helper()
	logger, _ := log.NewTestLogger(log.LevelDebug)
	tr, err := New(cfg,
		WithEvaluator(ev),
		WithObjectStore(store),
		WithLogger(logger),
	)
	require.NoError(t, err)
	return tr, logger
}

func TestSelectBestModel_FirstMaxWins(t *testing.T) {
	ev := &fakeEvaluator{board: board("Linear Regression", 0.42, "Random Forest", 0.81, "Decision Tree", 0.81)}
	store := newMemoryStore()
	tr, logger := newTestTrainer(t, config.Default(), ev, store)

	sel, err := tr.SelectBestModel(context.Background(), linearData(20, 0), linearData(5, 100))
	require.NoError(t, err)

	assert.Equal(t, Accepted, sel.Outcome)
	assert.NoError(t, sel.Err())
	assert.Equal(t, "Random Forest", sel.Name)
	assert.Equal(t, 0.81, sel.Score)
	assert.Equal(t, config.DefaultOutputPath, sel.ArtifactPath)
	assert.Equal(t, "Random Forest", store.objects[config.DefaultOutputPath])
	assert.Equal(t, 1, store.saves)

	assert.True(t, logger.ContainsMessage("Created X, y train and test arrays"))
	assert.True(t, logger.ContainsMessage("Models have been evaluated"))
	assert.True(t, logger.ContainsField(log.ModelNameKey, "Random Forest"))
	assert.True(t, logger.ContainsField(log.R2ScoreKey, 0.81))
}

func TestSelectBestModel_ReturnsMaxScore(t *testing.T) {
	ev := &fakeEvaluator{board: board("A", 0.61, "B", 0.97, "C", 0.7)}
	tr, _ := newTestTrainer(t, config.Default(), ev, newMemoryStore())

	score, err := tr.SelectBestModelScore(context.Background(), linearData(20, 0), linearData(5, 100))
	require.NoError(t, err)
	assert.Equal(t, 0.97, score)
}

func TestSelectBestModel_Rejected(t *testing.T) {
	tests := []struct {
		name  string
		board evaluation.ScoreBoard
		best  string
	}{
		{"all below threshold", board("Linear Regression", 0.1, "Decision Tree", -0.3), "Linear Regression"},
		{"all equal 0.5", board("A", 0.5, "B", 0.5, "C", 0.5), "A"},
		{"just below", board("A", 0.5999999), "A"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ev := &fakeEvaluator{board: tt.board}
			store := newMemoryStore()
			tr, logger := newTestTrainer(t, config.Default(), ev, store)

			sel, err := tr.SelectBestModel(context.Background(), linearData(20, 0), linearData(5, 100))
			require.NoError(t, err)
			assert.Equal(t, Rejected, sel.Outcome)
			assert.Equal(t, tt.best, sel.Name)
			assert.Empty(t, sel.ArtifactPath)
			assert.Zero(t, store.saves, "rejection must not write an artifact")
			assert.True(t, logger.ContainsMessage("All models' r2 scores are below 0.6"))

			var nsm *errors.NoSuitableModelError
			require.True(t, errors.As(sel.Err(), &nsm))
			assert.Equal(t, tt.best, nsm.BestName)
			assert.Equal(t, 0.6, nsm.Threshold)

			_, err = tr.SelectBestModelScore(context.Background(), linearData(20, 0), linearData(5, 100))
			assert.True(t, errors.As(err, &nsm))
		})
	}
}

func TestSelectBestModel_ThresholdIsInclusive(t *testing.T) {
	ev := &fakeEvaluator{board: board("A", 0.6)}
	store := newMemoryStore()
	tr, _ := newTestTrainer(t, config.Default(), ev, store)

	sel, err := tr.SelectBestModel(context.Background(), linearData(20, 0), linearData(5, 100))
	require.NoError(t, err)
	assert.Equal(t, Accepted, sel.Outcome)
	assert.Equal(t, 1, store.saves)
}

func TestSelectBestModel_ValidationBeforeEvaluation(t *testing.T) {
	tests := []struct {
		name        string
		train, test mat.Matrix
	}{
		{"target only", mat.NewDense(3, 1, []float64{1, 2, 3}), mat.NewDense(2, 1, []float64{1, 2})},
		{"column mismatch", linearData(10, 0), mat.NewDense(2, 4, nil)},
		{"nil train", (*mat.Dense)(nil), linearData(5, 0)},
		{"nan in test", linearData(10, 0), mat.NewDense(1, 3, []float64{1, math.NaN(), 2})},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ev := &fakeEvaluator{board: board("A", 0.9)}
			store := newMemoryStore()
			tr, _ := newTestTrainer(t, config.Default(), ev, store)

			_, err := tr.SelectBestModel(context.Background(), tt.train, tt.test)
			var ve *errors.ValidationError
			assert.True(t, errors.As(err, &ve), "got %v", err)
			assert.Zero(t, ev.calls)
			assert.Zero(t, store.saves)
		})
	}
}

func TestSelectBestModel_StepErrors(t *testing.T) {
	t.Run("evaluation", func(t *testing.T) {
		cause := errors.New("fit exploded")
		ev := &fakeEvaluator{err: cause}
		store := newMemoryStore()
		tr, _ := newTestTrainer(t, config.Default(), ev, store)

		_, err := tr.SelectBestModel(context.Background(), linearData(20, 0), linearData(5, 100))
		var se *errors.StepError
		require.True(t, errors.As(err, &se))
		assert.Equal(t, errors.KindEvaluation, se.Kind)
		assert.True(t, errors.Is(err, cause))
		assert.Zero(t, store.saves)
	})

	t.Run("persistence", func(t *testing.T) {
		cause := errors.New("disk full")
		store := newMemoryStore()
		store.err = cause
		tr, _ := newTestTrainer(t, config.Default(), &fakeEvaluator{board: board("A", 0.9)}, store)

		sel, err := tr.SelectBestModel(context.Background(), linearData(20, 0), linearData(5, 100))
		assert.Nil(t, sel)
		var se *errors.StepError
		require.True(t, errors.As(err, &se))
		assert.Equal(t, errors.KindPersistence, se.Kind)
		assert.True(t, errors.Is(err, cause))
	})

	t.Run("report", func(t *testing.T) {
		cfg := config.Default()
		cfg.PlotPath = filepath.Join(t.TempDir(), "scores.unsupported")
		tr, _ := newTestTrainer(t, cfg, &fakeEvaluator{board: board("A", 0.9)}, newMemoryStore())

		_, err := tr.SelectBestModel(context.Background(), linearData(20, 0), linearData(5, 100))
		var se *errors.StepError
		require.True(t, errors.As(err, &se))
		assert.Equal(t, errors.KindReport, se.Kind)
	})

	t.Run("empty board", func(t *testing.T) {
		tr, _ := newTestTrainer(t, config.Default(), &fakeEvaluator{}, newMemoryStore())

		_, err := tr.SelectBestModel(context.Background(), linearData(20, 0), linearData(5, 100))
		assert.True(t, errors.Is(err, errors.ErrEmptyRegistry))
	})
}

func TestSelectBestModel_Idempotent(t *testing.T) {
	ev := &fakeEvaluator{board: board("Linear Regression", 0.42, "Random Forest", 0.81, "Decision Tree", 0.81)}
	store := newMemoryStore()
	tr, _ := newTestTrainer(t, config.Default(), ev, store)

	train, test := linearData(20, 0), linearData(5, 100)
	first, err := tr.SelectBestModel(context.Background(), train, test)
	require.NoError(t, err)
	second, err := tr.SelectBestModel(context.Background(), train, test)
	require.NoError(t, err)

	assert.Equal(t, first.Score, second.Score)
	assert.Equal(t, first.Name, second.Name)
	assert.Equal(t, "Random Forest", store.objects[config.DefaultOutputPath])
}

func TestSelectBestModel_EndToEnd(t *testing.T) {
	dir := t.TempDir()
	cfg := config.Default()
	cfg.OutputPath = filepath.Join(dir, "artifacts", "model.pkl")
	cfg.ReportPath = filepath.Join(dir, "reports", "selection.json")
	cfg.PlotPath = filepath.Join(dir, "reports", "scores.png")
	cfg.Candidates = []string{"linear_regression", "decision_tree", "k_neighbors"}
	cfg.Parallelism = 2

	logger, _ := log.NewTestLogger(log.LevelDebug)
	tr, err := New(cfg, WithLogger(logger))
	require.NoError(t, err)

	sel, err := tr.SelectBestModel(context.Background(), linearData(40, 0), linearData(10, 0.5))
	require.NoError(t, err)
	require.Equal(t, Accepted, sel.Outcome)
	assert.Equal(t, registry.LinearRegression, sel.Kind)
	assert.InDelta(t, 1.0, sel.Score, 1e-9)
	require.Len(t, sel.ScoreBoard, 3)
	assert.Equal(t, "Linear Regression", sel.ScoreBoard[0].Name)

	var name string
	require.NoError(t, model.NewFileStore().Load(cfg.OutputPath, &name))
	assert.Equal(t, "Linear Regression", name)

	summary, err := report.ReadJSON(cfg.ReportPath)
	require.NoError(t, err)
	assert.Equal(t, report.OutcomeAccepted, summary.Outcome)
	assert.Equal(t, "Linear Regression", summary.BestName)
	assert.FileExists(t, cfg.PlotPath)
}

func TestSelectBestModel_Cancelled(t *testing.T) {
	cfg := config.Default()
	cfg.Candidates = []string{"linear_regression"}
	logger, _ := log.NewTestLogger(log.LevelDebug)
	store := newMemoryStore()
	tr, err := New(cfg, WithLogger(logger), WithObjectStore(store))
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = tr.SelectBestModel(ctx, linearData(20, 0), linearData(5, 100))
	assert.True(t, errors.Is(err, context.Canceled))
	assert.Zero(t, store.saves)
}

func TestNew_InvalidConfig(t *testing.T) {
	cfg := config.Default()
	cfg.AcceptanceThreshold = 1.5
	_, err := New(cfg)
	var ve *errors.ValidationError
	assert.True(t, errors.As(err, &ve))

	cfg = config.Default()
	cfg.Candidates = []string{"svm"}
	_, err = New(cfg)
	assert.True(t, errors.As(err, &ve))
}

func TestOutcome_String(t *testing.T) {
	assert.Equal(t, "accepted", Accepted.String())
	assert.Equal(t, "rejected", Rejected.String())
	assert.Equal(t, "Outcome(7)", Outcome(7).String())
}
