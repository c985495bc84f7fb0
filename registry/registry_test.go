package registry

import (
	"testing"

	"github.com/YuminosukeSato/regselect/pkg/errors"
	"github.com/YuminosukeSato/regselect/sklearn/catboost"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	reg := Default(42)

	assert.Equal(t, []string{
		"Random Forest",
		"Decision Tree",
		"Gradient Boosting",
		"Linear Regression",
		"K-Neighbors Classifier",
		"XGBClassifier",
		"CatBoosting Classifier",
		"AdaBoost Classifier",
	}, reg.Names())

	for i, c := range reg {
		assert.Equal(t, DefaultOrder[i], c.Kind)
		require.NotNil(t, c.Model, c.Name)
		assert.False(t, c.Model.IsFitted(), c.Name)
	}
}

func TestDefault_CatBoostIsQuiet(t *testing.T) {
	c, ok := Default(42).Lookup("CatBoosting Classifier")
	require.True(t, ok)

	cb, ok := c.Model.(*catboost.CatBoostRegressor)
	require.True(t, ok)
	assert.Equal(t, false, cb.GetParams()["verbose"])
}

func TestDefault_FreshInstances(t *testing.T) {
	a, b := Default(1), Default(1)
	for i := range a {
		assert.NotSame(t, a[i].Model, b[i].Model)
	}
}

func TestKind(t *testing.T) {
	for _, k := range DefaultOrder {
		parsed, err := ParseKind(k.String())
		require.NoError(t, err)
		assert.Equal(t, k, parsed)
		assert.NotEmpty(t, k.DisplayName())
	}

	_, err := ParseKind("svm")
	var ve *errors.ValidationError
	assert.True(t, errors.As(err, &ve))
	assert.Equal(t, "Kind(99)", Kind(99).String())
}

func TestBuild(t *testing.T) {
	reg, err := Build([]Kind{LinearRegression, RandomForest}, 0)
	require.NoError(t, err)
	assert.Equal(t, []string{"Linear Regression", "Random Forest"}, reg.Names())

	_, err = Build(nil, 0)
	assert.True(t, errors.Is(err, errors.ErrEmptyRegistry))

	_, err = Build([]Kind{DecisionTree, DecisionTree}, 0)
	var ve *errors.ValidationError
	assert.True(t, errors.As(err, &ve))

	_, ok := reg.Lookup("Decision Tree")
	assert.False(t, ok)
}
