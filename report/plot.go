package report

import (
	"image/color"
	"os"
	"path/filepath"

	"github.com/YuminosukeSato/regselect/evaluation"
	"github.com/YuminosukeSato/regselect/pkg/errors"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
)

var (
	barColor       = color.RGBA{R: 66, G: 133, B: 244, A: 255}
	thresholdColor = color.RGBA{R: 219, G: 68, B: 55, A: 255}
)

// PlotScoreBoard は候補ごとの R² を棒グラフにし、採用閾値を破線で重ねて保存する。
// 画像形式は path の拡張子（.png, .svg, .pdf など）で決まる。
func PlotScoreBoard(path string, board evaluation.ScoreBoard, threshold float64) error {
	if len(board) == 0 {
		return errors.WithStack(errors.ErrEmptyData)
	}

	p, err := newScorePlot(board, threshold)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return errors.Wrapf(err, "create plot directory for %s", path)
	}
	width := vg.Length(len(board)) * 2 * vg.Centimeter
	if width < 12*vg.Centimeter {
		width = 12 * vg.Centimeter
	}
	if err := p.Save(width, 10*vg.Centimeter, path); err != nil {
		return errors.Wrapf(err, "save plot %s", path)
	}
	return nil
}

func newScorePlot(board evaluation.ScoreBoard, threshold float64) (*plot.Plot, error) {
	names := make([]string, len(board))
	values := make(plotter.Values, len(board))
	for i, s := range board {
		names[i] = s.Name
		values[i] = s.Score
	}

	p := plot.New()
	p.Title.Text = "Candidate R² on test split"
	p.Y.Label.Text = "R²"

	bars, err := plotter.NewBarChart(values, vg.Points(18))
	if err != nil {
		return nil, errors.Wrap(err, "bar chart")
	}
	bars.Color = barColor
	bars.LineStyle.Width = vg.Length(0)
	p.Add(bars)
	p.NominalX(names...)

	line, err := plotter.NewLine(plotter.XYs{
		{X: -0.5, Y: threshold},
		{X: float64(len(board)) - 0.5, Y: threshold},
	})
	if err != nil {
		return nil, errors.Wrap(err, "threshold line")
	}
	line.LineStyle.Color = thresholdColor
	line.LineStyle.Width = vg.Points(1.5)
	line.LineStyle.Dashes = []vg.Length{vg.Points(6), vg.Points(3)}
	p.Add(line)
	p.Legend.Add("acceptance threshold", line)
	p.Legend.Top = true

	return p, nil
}
