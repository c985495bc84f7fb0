// Package config holds the trainer configuration and loads it from YAML or
// JSON files.
package config

import (
	"math"
	"os"
	"path/filepath"
	"strings"

	"github.com/YuminosukeSato/regselect/pkg/errors"
	"github.com/YuminosukeSato/regselect/registry"
	json "github.com/goccy/go-json"
	"gopkg.in/yaml.v3"
)

// 既定値
const (
	DefaultOutputPath          = "artifacts/model.pkl"
	DefaultAcceptanceThreshold = 0.6
	DefaultParallelism         = 1
	DefaultRandomState         = 42
	DefaultLogLevel            = "info"
)

// Config はモデル選択ステップの設定
type Config struct {
	// OutputPath は選ばれたモデル名を書き出すパス
	OutputPath          string   `yaml:"output_path" json:"output_path"`
	// AcceptanceThreshold は採用に必要な最小の R²
	AcceptanceThreshold float64  `yaml:"acceptance_threshold" json:"acceptance_threshold"`
	// Parallelism は同時に評価する候補数
	Parallelism         int      `yaml:"parallelism" json:"parallelism"`
	// RandomState は乱数を使う候補に渡すシード
	RandomState         int64    `yaml:"random_state" json:"random_state"`
	// ReportPath が空でなければ JSON レポートを書き出す
	ReportPath          string   `yaml:"report_path" json:"report_path"`
	// PlotPath が空でなければスコアの棒グラフを書き出す
	PlotPath            string   `yaml:"plot_path" json:"plot_path"`
	LogLevel            string   `yaml:"log_level" json:"log_level"`
	// Candidates は評価する候補のタグ（"random_forest" など）。空なら全候補。
	Candidates          []string `yaml:"candidates" json:"candidates"`
}

// Default は既定の設定を返す
func Default() Config {
	return Config{
		OutputPath:          DefaultOutputPath,
		AcceptanceThreshold: DefaultAcceptanceThreshold,
		Parallelism:         DefaultParallelism,
		RandomState:         DefaultRandomState,
		LogLevel:            DefaultLogLevel,
	}
}

// Validate は設定値を検査する
func (c Config) Validate() error {
	if strings.TrimSpace(c.OutputPath) == "" {
		return errors.NewValidationError("output_path", "must not be empty", c.OutputPath)
	}
	if math.IsNaN(c.AcceptanceThreshold) || math.IsInf(c.AcceptanceThreshold, 0) {
		return errors.NewValidationError("acceptance_threshold", "must be finite", c.AcceptanceThreshold)
	}
	if c.AcceptanceThreshold > 1 {
		return errors.NewValidationError("acceptance_threshold", "R² never exceeds 1", c.AcceptanceThreshold)
	}
	if c.Parallelism < 1 {
		return errors.NewValidationError("parallelism", "must be >= 1", c.Parallelism)
	}
	if _, err := c.Kinds(); err != nil {
		return err
	}
	return nil
}

// Kinds は評価対象の候補を登録順で返す
func (c Config) Kinds() ([]registry.Kind, error) {
	if len(c.Candidates) == 0 {
		return registry.DefaultOrder, nil
	}
	kinds := make([]registry.Kind, 0, len(c.Candidates))
	for _, tag := range c.Candidates {
		k, err := registry.ParseKind(strings.TrimSpace(tag))
		if err != nil {
			return nil, err
		}
		kinds = append(kinds, k)
	}
	return kinds, nil
}

// Load は拡張子に応じて YAML か JSON の設定ファイルを読み込む。
// ファイルにないキーは既定値のまま。
func Load(path string) (Config, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return LoadJSON(path)
	default:
		return LoadYAML(path)
	}
}

// LoadYAML は YAML ファイルを既定値の上に読み込む
func LoadYAML(path string) (Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, errors.Wrapf(err, "read config %s", path)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, errors.Wrapf(err, "parse yaml %s", path)
	}
	return cfg, cfg.Validate()
}

// LoadJSON は JSON ファイルを既定値の上に読み込む
func LoadJSON(path string) (Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, errors.Wrapf(err, "read config %s", path)
	}
	if err := json.Unmarshal(data, &cfg); err != nil {
		return cfg, errors.Wrapf(err, "parse json %s", path)
	}
	return cfg, cfg.Validate()
}
