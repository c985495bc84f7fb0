package trainer

import (
	"fmt"
	"strconv"

	"github.com/YuminosukeSato/regselect/evaluation"
	"github.com/YuminosukeSato/regselect/pkg/errors"
	"github.com/YuminosukeSato/regselect/registry"
)

// Outcome is the result of the acceptance check.
type Outcome int

const (
	// Rejected means no candidate reached the acceptance threshold.
	Rejected Outcome = iota
	// Accepted means the best candidate was persisted.
	Accepted
)

func (o Outcome) String() string {
	switch o {
	case Accepted:
		return "accepted"
	case Rejected:
		return "rejected"
	default:
		return fmt.Sprintf("Outcome(%d)", int(o))
	}
}

// Selection は1回のモデル選択の結果
type Selection struct {
	Kind         registry.Kind
	Name         string
	Score        float64
	Threshold    float64
	Outcome      Outcome
	ScoreBoard   evaluation.ScoreBoard
	// ArtifactPath は採用時のみ設定される
	ArtifactPath string
}

// Accepted reports whether the best candidate met the threshold.
func (s *Selection) Accepted() bool {
	return s.Outcome == Accepted
}

// Err は不採用の場合に *errors.NoSuitableModelError を返す
func (s *Selection) Err() error {
	if s.Accepted() {
		return nil
	}
	return errors.NewNoSuitableModelError(s.Name, s.Score, s.Threshold)
}

func (s *Selection) String() string {
	return fmt.Sprintf("Selection(name=%q, score=%.4f, threshold=%.4f, outcome=%s)",
		s.Name, s.Score, s.Threshold, s.Outcome)
}

func noSuitableMessage(threshold float64) string {
	return "All models' r2 scores are below " + strconv.FormatFloat(threshold, 'g', -1, 64)
}
