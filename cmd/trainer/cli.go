package main

import (
	"context"
	"fmt"
	"io"

	"github.com/YuminosukeSato/regselect/config"
	"github.com/YuminosukeSato/regselect/dataset"
	"github.com/YuminosukeSato/regselect/pkg/log"
	"github.com/YuminosukeSato/regselect/trainer"
	"github.com/pkg/profile"
)

// CLI is the command line of the trainer binary.
type CLI struct {
	Train  string `required:"" type:"existingfile" help:"Training CSV, last column is the target."`
	Test   string `required:"" type:"existingfile" help:"Test CSV with the same columns as --train."`
	Config string `type:"existingfile" help:"YAML or JSON config file."`

	Output      string   `help:"Where to write the selected model name." placeholder:"PATH"`
	Threshold   *float64 `help:"Minimum R² a candidate must reach (default 0.6)."`
	Parallelism *int     `help:"Number of candidates evaluated concurrently."`
	Report      string   `help:"Write a JSON selection report to this path." placeholder:"PATH"`
	Plot        string   `help:"Write a score bar chart (.png, .svg, .pdf) to this path." placeholder:"PATH"`
	Candidates  []string `help:"Candidate tags to evaluate, e.g. random_forest,xgboost." sep:","`
	LogLevel    string   `name:"log-level" help:"debug, info, warn or error."`

	Profile    string `enum:",cpu,mem,block,mutex,trace" default:"" help:"Write a runtime profile of the selection (cpu, mem, block, mutex, trace)."`
	ProfileDir string `default:"." help:"Directory for --profile output." placeholder:"DIR"`

	out io.Writer `kong:"-"`
}

// Run is called by kong after parsing.
func (c *CLI) Run(ctx context.Context) error {
	if opt := profileMode(c.Profile); opt != nil {
		defer profile.Start(opt, profile.ProfilePath(c.ProfileDir), profile.Quiet, profile.NoShutdownHook).Stop()
	}

	sel, err := c.selectModel(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintf(c.out, "%s\t%.6f\t%s\n", sel.Name, sel.Score, sel.Outcome)
	return sel.Err()
}

func (c *CLI) selectModel(ctx context.Context) (*trainer.Selection, error) {
	cfg, err := c.config()
	if err != nil {
		return nil, err
	}
	if err := log.SetupLogger(cfg.LogLevel); err != nil {
		return nil, err
	}

	train, _, err := dataset.LoadCSV(c.Train)
	if err != nil {
		return nil, err
	}
	test, _, err := dataset.LoadCSV(c.Test)
	if err != nil {
		return nil, err
	}

	t, err := trainer.New(cfg)
	if err != nil {
		return nil, err
	}
	return t.SelectBestModel(ctx, train, test)
}

// config は設定ファイルを読み込み、指定されたフラグで上書きする
func (c *CLI) config() (config.Config, error) {
	cfg := config.Default()
	if c.Config != "" {
		loaded, err := config.Load(c.Config)
		if err != nil {
			return cfg, err
		}
		cfg = loaded
	}

	if c.Output != "" {
		cfg.OutputPath = c.Output
	}
	if c.Threshold != nil {
		cfg.AcceptanceThreshold = *c.Threshold
	}
	if c.Parallelism != nil {
		cfg.Parallelism = *c.Parallelism
	}
	if c.Report != "" {
		cfg.ReportPath = c.Report
	}
	if c.Plot != "" {
		cfg.PlotPath = c.Plot
	}
	if len(c.Candidates) > 0 {
		cfg.Candidates = c.Candidates
	}
	if c.LogLevel != "" {
		cfg.LogLevel = c.LogLevel
	}
	return cfg, cfg.Validate()
}

func profileMode(name string) func(*profile.Profile) {
	switch name {
	case "cpu":
		return profile.CPUProfile
	case "mem":
		return profile.MemProfile
	case "block":
		return profile.BlockProfile
	case "mutex":
		return profile.MutexProfile
	case "trace":
		return profile.TraceProfile
	default:
		return nil
	}
}
