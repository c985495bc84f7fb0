// Command trainer evaluates the regression candidates on a train/test CSV pair
// and records the name of the best one.
//
// Exit status is 0 when a model was accepted, 2 when every candidate scored
// below the acceptance threshold and 1 on any other error.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/YuminosukeSato/regselect/pkg/errors"
	"github.com/YuminosukeSato/regselect/pkg/log"
	"github.com/alecthomas/kong"
)

const (
	exitError    = 1
	exitRejected = 2
)

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	cli := &CLI{out: os.Stdout}
	parser, err := kong.New(cli,
		kong.Name("trainer"),
		kong.Description("Select the best regression model for a train/test split."),
		kong.BindTo(ctx, (*context.Context)(nil)),
		kong.UsageOnError(),
	)
	if err != nil {
		log.GetLogger().Error("Failed to build command line", err)
		return exitError
	}

	kctx, err := parser.Parse(args)
	if err != nil {
		parser.Errorf("%v", err)
		return exitError
	}

	return exitCode(log.GetLoggerWithName("trainer"), kctx.Run())
}

func exitCode(logger log.Logger, err error) int {
	if err == nil {
		return 0
	}
	var nsm *errors.NoSuitableModelError
	if errors.As(err, &nsm) {
		logger.Warn("No best model found", log.ModelNameKey, nsm.BestName, log.R2ScoreKey, nsm.BestScore, log.ThresholdKey, nsm.Threshold)
		return exitRejected
	}
	logger.Error("Model selection failed", err)
	return exitError
}
