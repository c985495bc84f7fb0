// Package model provides the estimator interfaces, fitted-state bookkeeping and
// artifact persistence shared by every regressor in this module.
package model

import (
	"sync"

	"github.com/YuminosukeSato/regselect/pkg/errors"
)

// StateManager は回帰器の学習済みフラグと学習時の入力形状を保持する。
// evaluation の並列実行では同じ候補を複数 goroutine が読むため、読み書きはロックで守る。
type StateManager struct {
	mu     sync.RWMutex
	fitted bool
	cols   int // 学習時の特徴量数。Predict の列数検証に使う
	rows   int
}

// NewStateManager returns an unfitted StateManager.
func NewStateManager() *StateManager {
	return &StateManager{}
}

// SetFitted records a successful Fit on a cols × rows feature matrix.
// Refitting simply overwrites the previous shape.
func (s *StateManager) SetFitted(cols, rows int) {
	s.mu.Lock()
	s.fitted, s.cols, s.rows = true, cols, rows
	s.mu.Unlock()
}

func (s *StateManager) IsFitted() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.fitted
}

// GetDimensions returns the feature and sample counts seen by the last Fit.
func (s *StateManager) GetDimensions() (nFeatures, nSamples int) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cols, s.rows
}

// RequireFitted guards Predict-style methods: it fails with NotFittedError
// before Fit, and with a DimensionError (axis 1) when X's column count differs
// from the training matrix. A nil X only checks the fitted flag.
func (s *StateManager) RequireFitted(modelName, method string, X interface{ Dims() (int, int) }) error {
	s.mu.RLock()
	fitted, want := s.fitted, s.cols
	s.mu.RUnlock()

	if !fitted {
		return errors.NewNotFittedError(modelName, method)
	}
	if X == nil {
		return nil
	}
	if _, got := X.Dims(); got != want {
		return errors.NewDimensionError(modelName+"."+method, want, got, 1)
	}
	return nil
}
