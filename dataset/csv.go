package dataset

import (
	"encoding/csv"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/YuminosukeSato/regselect/pkg/errors"
	"gonum.org/v1/gonum/mat"
)

// LoadCSV は数値 CSV を行列として読み込む。
// 先頭行に数値として解釈できないセルがあればヘッダーとして読み飛ばす。
func LoadCSV(path string) (*mat.Dense, []string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, errors.Wrapf(err, "open %s", path)
	}
	defer f.Close()

	m, header, err := ReadCSV(f)
	if err != nil {
		return nil, nil, errors.Wrapf(err, "read %s", path)
	}
	return m, header, nil
}

// ReadCSV は r から数値 CSV を読み込む
func ReadCSV(r io.Reader) (*mat.Dense, []string, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true

	records, err := reader.ReadAll()
	if err != nil {
		return nil, nil, errors.Wrap(err, "parse csv")
	}
	if len(records) == 0 {
		return nil, nil, errors.WithStack(errors.ErrEmptyData)
	}

	var header []string
	if !isNumericRow(records[0]) {
		header = records[0]
		records = records[1:]
	}
	if len(records) == 0 {
		return nil, header, errors.WithStack(errors.ErrEmptyData)
	}

	cols := len(records[0])
	data := make([]float64, 0, len(records)*cols)
	for i, rec := range records {
		for j, cell := range rec {
			v, err := strconv.ParseFloat(strings.TrimSpace(cell), 64)
			if err != nil {
				return nil, header, errors.NewValidationError("csv", "non-numeric cell at row "+strconv.Itoa(i+1)+", column "+strconv.Itoa(j+1), cell)
			}
			data = append(data, v)
		}
	}
	return mat.NewDense(len(records), cols, data), header, nil
}

func isNumericRow(rec []string) bool {
	for _, cell := range rec {
		if _, err := strconv.ParseFloat(strings.TrimSpace(cell), 64); err != nil {
			return false
		}
	}
	return true
}
