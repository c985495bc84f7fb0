// Package regselect selects the best regression model for a pre-split
// train/test dataset.
//
// Every candidate in a fixed roster of regressors is fitted on the training
// split and scored by R² on the test split. The best candidate is accepted
// when its score reaches the acceptance threshold (0.6 by default), and its
// name is then written to the artifact path.
//
// # Quick Start
//
//	package main
//
//	import (
//	    "context"
//	    "fmt"
//	    "log"
//
//	    "github.com/YuminosukeSato/regselect/config"
//	    "github.com/YuminosukeSato/regselect/dataset"
//	    "github.com/YuminosukeSato/regselect/trainer"
//	)
//
//	func main() {
//	    train, _, err := dataset.LoadCSV("train.csv")
//	    if err != nil {
//	        log.Fatal(err)
//	    }
//	    test, _, err := dataset.LoadCSV("test.csv")
//	    if err != nil {
//	        log.Fatal(err)
//	    }
//
//	    t, err := trainer.New(config.Default())
//	    if err != nil {
//	        log.Fatal(err)
//	    }
//	    sel, err := t.SelectBestModel(context.Background(), train, test)
//	    if err != nil {
//	        log.Fatal(err)
//	    }
//	    if err := sel.Err(); err != nil {
//	        log.Fatal(err) // *errors.NoSuitableModelError
//	    }
//	    fmt.Println(sel.Name, sel.Score)
//	}
//
// # Packages
//
//   - trainer: the selection step (ModelTrainer, Selection)
//   - evaluation: fits and scores candidates, sequentially or in parallel
//   - registry: the candidate roster and the Kind enumeration
//   - sklearn/...: the regressors (tree, ensemble, linear_model, neighbors,
//     xgboost, catboost)
//   - dataset: CSV loading and feature/target splitting
//   - config: YAML/JSON configuration
//   - report: JSON summary and score chart
//   - metrics: regression metrics (R², MSE, MAE, ...)
//   - core/model, core/parallel: shared interfaces, fit state, persistence and
//     worker helpers
//   - pkg/errors, pkg/log: structured errors and logging
//
// The command cmd/trainer wraps the selection step for CSV files.
package regselect
