// Package report writes the outcome of a model selection run as a JSON
// summary and as a bar chart of candidate scores.
package report

import (
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/YuminosukeSato/regselect/evaluation"
	"github.com/YuminosukeSato/regselect/pkg/errors"
	json "github.com/goccy/go-json"
)

// Outcome values recorded in a Summary.
const (
	OutcomeAccepted = "accepted"
	OutcomeRejected = "rejected"
)

// Entry は1候補の評価結果
type Entry struct {
	Name       string  `json:"name"`
	Kind       string  `json:"kind"`
	R2         float64 `json:"r2"`
	DurationMs int64   `json:"duration_ms"`

	Params map[string]interface{} `json:"params,omitempty"`
}

// Summary はモデル選択1回分の記録
type Summary struct {
	Outcome      string    `json:"outcome"`
	BestName     string    `json:"best_name"`
	BestScore    float64   `json:"best_score"`
	Threshold    float64   `json:"threshold"`
	ArtifactPath string    `json:"artifact_path,omitempty"`
	GeneratedAt  time.Time `json:"generated_at"`
	Scores       []Entry   `json:"scores"`
}

// NewSummary は ScoreBoard から Summary を作る。
// artifactPath は採用された場合のみ記録する。
func NewSummary(board evaluation.ScoreBoard, threshold float64, accepted bool, artifactPath string) Summary {
	s := Summary{
		Outcome:     OutcomeRejected,
		Threshold:   threshold,
		GeneratedAt: time.Now().UTC(),
		Scores:      make([]Entry, len(board)),
	}
	if best, ok := board.Best(); ok {
		s.BestName = best.Name
		s.BestScore = best.Score
	}
	if accepted {
		s.Outcome = OutcomeAccepted
		s.ArtifactPath = artifactPath
	}
	for i, sc := range board {
		s.Scores[i] = Entry{
			Name:       sc.Name,
			Kind:       sc.Kind.String(),
			R2:         sc.Score,
			DurationMs: sc.Duration.Milliseconds(),
			Params:     sc.Params,
		}
	}
	return s
}

// Encode は Summary をインデント付き JSON で w に書き込む
func Encode(w io.Writer, s Summary) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(s); err != nil {
		return errors.Wrap(err, "encode report")
	}
	return nil
}

// WriteJSON は Summary を path に書き出す。親ディレクトリは作成する。
func WriteJSON(path string, s Summary) (err error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return errors.Wrapf(err, "create report directory for %s", path)
	}
	f, err := os.Create(path)
	if err != nil {
		return errors.Wrapf(err, "create report %s", path)
	}
	defer func() {
		if cerr := f.Close(); err == nil && cerr != nil {
			err = errors.Wrapf(cerr, "close report %s", path)
		}
	}()
	return Encode(f, s)
}

// ReadJSON は WriteJSON で書かれたレポートを読み込む
func ReadJSON(path string) (Summary, error) {
	var s Summary
	data, err := os.ReadFile(path)
	if err != nil {
		return s, errors.Wrapf(err, "read report %s", path)
	}
	if err := json.Unmarshal(data, &s); err != nil {
		return s, errors.Wrapf(err, "parse report %s", path)
	}
	return s, nil
}
