package dataset

import (
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/YuminosukeSato/regselect/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
)

func TestTrainTest(t *testing.T) {
	train := mat.NewDense(3, 3, []float64{
		1, 2, 10,
		3, 4, 20,
		5, 6, 30,
	})
	test := mat.NewDense(1, 3, []float64{7, 8, 40})

	tr, te, err := TrainTest(train, test)
	require.NoError(t, err)

	assert.Equal(t, 3, tr.Rows())
	assert.Equal(t, 2, tr.Features())
	assert.Equal(t, []float64{1, 2}, tr.X.RawRowView(0))
	assert.Equal(t, []float64{10, 20, 30}, mat.Col(nil, 0, tr.Y))
	assert.Equal(t, []float64{7, 8}, te.X.RawRowView(0))
	assert.Equal(t, 40.0, te.Y.At(0, 0))

	// 入力は変更されない
	assert.Equal(t, 10.0, train.At(0, 2))
}

func TestValidate(t *testing.T) {
	ok := mat.NewDense(2, 2, []float64{1, 2, 3, 4})
	var nilDense *mat.Dense

	tests := []struct {
		name  string
		train mat.Matrix
		test  mat.Matrix
		param string
	}{
		{"nil train", nil, ok, "train"},
		{"typed nil test", ok, nilDense, "test"},
		{"empty dense", &mat.Dense{}, ok, "train"},
		{"target only", mat.NewDense(2, 1, []float64{1, 2}), ok, "train"},
		{"column mismatch", ok, mat.NewDense(1, 3, []float64{1, 2, 3}), "test"},
		{"nan", ok, mat.NewDense(1, 2, []float64{math.NaN(), 1}), "test"},
		{"inf", mat.NewDense(1, 2, []float64{1, math.Inf(1)}), ok, "train"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Validate(tt.train, tt.test)
			var ve *errors.ValidationError
			require.True(t, errors.As(err, &ve), "got %v", err)
			assert.Equal(t, tt.param, ve.ParamName)
		})
	}

	assert.NoError(t, Validate(ok, ok))
}

func TestReadCSV(t *testing.T) {
	t.Run("with header", func(t *testing.T) {
		m, header, err := ReadCSV(strings.NewReader("x1,x2,y\n1,2,3\n4, 5,6\n"))
		require.NoError(t, err)
		assert.Equal(t, []string{"x1", "x2", "y"}, header)
		r, c := m.Dims()
		assert.Equal(t, 2, r)
		assert.Equal(t, 3, c)
		assert.Equal(t, 5.0, m.At(1, 1))
	})

	t.Run("without header", func(t *testing.T) {
		m, header, err := ReadCSV(strings.NewReader("1,2\n3,4\n"))
		require.NoError(t, err)
		assert.Nil(t, header)
		assert.Equal(t, 4.0, m.At(1, 1))
	})

	t.Run("non numeric cell", func(t *testing.T) {
		_, _, err := ReadCSV(strings.NewReader("a,b\n1,2\n3,x\n"))
		var ve *errors.ValidationError
		assert.True(t, errors.As(err, &ve))
	})

	t.Run("header only", func(t *testing.T) {
		_, _, err := ReadCSV(strings.NewReader("a,b\n"))
		assert.True(t, errors.Is(err, errors.ErrEmptyData))
	})

	t.Run("ragged", func(t *testing.T) {
		_, _, err := ReadCSV(strings.NewReader("1,2\n3\n"))
		assert.Error(t, err)
	})
}

func TestLoadCSV(t *testing.T) {
	path := filepath.Join(t.TempDir(), "train.csv")
	require.NoError(t, os.WriteFile(path, []byte("f,target\n0.5,1\n1.5,2\n"), 0o644))

	m, header, err := LoadCSV(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"f", "target"}, header)
	assert.Equal(t, 1.5, m.At(1, 0))

	_, _, err = LoadCSV(filepath.Join(t.TempDir(), "missing.csv"))
	assert.True(t, errors.Is(err, os.ErrNotExist))
}
