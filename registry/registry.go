// Package registry defines the fixed roster of candidate regressors that the
// trainer evaluates, as a tagged enumeration of algorithm kinds.
package registry

import (
	"fmt"

	"github.com/YuminosukeSato/regselect/core/model"
	"github.com/YuminosukeSato/regselect/pkg/errors"
	"github.com/YuminosukeSato/regselect/sklearn/catboost"
	"github.com/YuminosukeSato/regselect/sklearn/ensemble"
	"github.com/YuminosukeSato/regselect/sklearn/linear_model"
	"github.com/YuminosukeSato/regselect/sklearn/neighbors"
	"github.com/YuminosukeSato/regselect/sklearn/tree"
	"github.com/YuminosukeSato/regselect/sklearn/xgboost"
)

// Kind は候補アルゴリズムの種類
type Kind int

const (
	RandomForest Kind = iota
	DecisionTree
	GradientBoosting
	LinearRegression
	KNeighbors
	XGBoost
	CatBoost
	AdaBoost
)

// DefaultOrder は既定の評価順序。同点の場合はこの順で先のものが選ばれる。
var DefaultOrder = []Kind{
	RandomForest,
	DecisionTree,
	GradientBoosting,
	LinearRegression,
	KNeighbors,
	XGBoost,
	CatBoost,
	AdaBoost,
}

var kindTags = map[Kind]string{
	RandomForest:     "random_forest",
	DecisionTree:     "decision_tree",
	GradientBoosting: "gradient_boosting",
	LinearRegression: "linear_regression",
	KNeighbors:       "k_neighbors",
	XGBoost:          "xgboost",
	CatBoost:         "catboost",
	AdaBoost:         "adaboost",
}

// 表示名はアーティファクトに保存される値なので変更しないこと
var displayNames = map[Kind]string{
	RandomForest:     "Random Forest",
	DecisionTree:     "Decision Tree",
	GradientBoosting: "Gradient Boosting",
	LinearRegression: "Linear Regression",
	KNeighbors:       "K-Neighbors Classifier",
	XGBoost:          "XGBClassifier",
	CatBoost:         "CatBoosting Classifier",
	AdaBoost:         "AdaBoost Classifier",
}

// String は kind のタグ（"random_forest" など）を返す
func (k Kind) String() string {
	if tag, ok := kindTags[k]; ok {
		return tag
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// DisplayName は kind の表示名を返す
func (k Kind) DisplayName() string {
	return displayNames[k]
}

// ParseKind はタグから Kind を返す
func ParseKind(tag string) (Kind, error) {
	for k, t := range kindTags {
		if t == tag {
			return k, nil
		}
	}
	return 0, errors.NewValidationError("kind", "unknown candidate kind", tag)
}

// Candidate は名前付きの未学習モデル
type Candidate struct {
	Kind  Kind
	Name  string
	Model model.Regressor
}

// Registry は順序付きの候補リスト
type Registry []Candidate

// New は kind のモデルをライブラリ既定のハイパーパラメータで作成する。
// 乱数を使うモデルには seed を渡す。
func New(kind Kind, seed int64) (model.Regressor, error) {
	switch kind {
	case RandomForest:
		return ensemble.NewRandomForestRegressor(ensemble.WithForestRandomState(seed)), nil
	case DecisionTree:
		return tree.NewDecisionTreeRegressor(tree.WithRandomState(seed)), nil
	case GradientBoosting:
		return ensemble.NewGradientBoostingRegressor(ensemble.WithBoostingRandomState(seed)), nil
	case LinearRegression:
		return linear_model.NewLinearRegression(), nil
	case KNeighbors:
		return neighbors.NewKNeighborsRegressor(), nil
	case XGBoost:
		return xgboost.NewXGBRegressor(), nil
	case CatBoost:
		return catboost.NewCatBoostRegressor(catboost.WithVerbose(false)), nil
	case AdaBoost:
		return ensemble.NewAdaBoostRegressor(ensemble.WithAdaBoostRandomState(seed)), nil
	default:
		return nil, errors.NewValidationError("kind", "unknown candidate kind", int(kind))
	}
}

// Build は kinds の順に候補を作成する
func Build(kinds []Kind, seed int64) (Registry, error) {
	if len(kinds) == 0 {
		return nil, errors.WithStack(errors.ErrEmptyRegistry)
	}
	reg := make(Registry, 0, len(kinds))
	seen := make(map[Kind]bool, len(kinds))
	for _, k := range kinds {
		if seen[k] {
			return nil, errors.NewValidationError("kind", "duplicate candidate", k.String())
		}
		seen[k] = true

		m, err := New(k, seed)
		if err != nil {
			return nil, err
		}
		reg = append(reg, Candidate{Kind: k, Name: k.DisplayName(), Model: m})
	}
	return reg, nil
}

// Default は8種類すべての候補を既定順で作成する
func Default(seed int64) Registry {
	reg, err := Build(DefaultOrder, seed)
	if err != nil {
		panic(err)
	}
	return reg
}

// Names は候補名を順に返す
func (r Registry) Names() []string {
	names := make([]string, len(r))
	for i, c := range r {
		names[i] = c.Name
	}
	return names
}

// Lookup は名前から候補を探す
func (r Registry) Lookup(name string) (Candidate, bool) {
	for _, c := range r {
		if c.Name == name {
			return c, true
		}
	}
	return Candidate{}, false
}
