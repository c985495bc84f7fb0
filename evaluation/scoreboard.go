package evaluation

import (
	"time"

	"github.com/YuminosukeSato/regselect/registry"
)

// Score は1候補の評価結果
type Score struct {
	Kind     registry.Kind
	Name     string
	Score    float64
	Duration time.Duration
	// Params は候補が公開するハイパーパラメータ（GetParams を実装している場合のみ）
	Params   map[string]interface{}
}

// ScoreBoard は登録順に並んだ評価結果
type ScoreBoard []Score

// Best は最高スコアの候補を返す。同点なら先に登録された候補。
func (b ScoreBoard) Best() (Score, bool) {
	if len(b) == 0 {
		return Score{}, false
	}
	best := b[0]
	for _, s := range b[1:] {
		if s.Score > best.Score {
			best = s
		}
	}
	return best, true
}

// Get は名前からスコアを返す
func (b ScoreBoard) Get(name string) (float64, bool) {
	for _, s := range b {
		if s.Name == name {
			return s.Score, true
		}
	}
	return 0, false
}

// Map は名前からスコアへのマップを返す
func (b ScoreBoard) Map() map[string]float64 {
	m := make(map[string]float64, len(b))
	for _, s := range b {
		m[s.Name] = s.Score
	}
	return m
}
