package metrics

import (
	"math"
	"testing"

	"gonum.org/v1/gonum/mat"
)

func TestMSE(t *testing.T) {
	tests := []struct {
		name    string
		yTrue   *mat.VecDense
		yPred   *mat.VecDense
		want    float64
		wantErr bool
	}{
		{
			name:  "perfect prediction",
			yTrue: mat.NewVecDense(5, []float64{1, 2, 3, 4, 5}),
			yPred: mat.NewVecDense(5, []float64{1, 2, 3, 4, 5}),
			want:  0,
		},
		{
			name:  "simple case",
			yTrue: mat.NewVecDense(4, []float64{1, 2, 3, 4}),
			yPred: mat.NewVecDense(4, []float64{1.5, 2.5, 2.5, 3.5}),
			want:  0.25,
		},
		{
			name:    "dimension mismatch",
			yTrue:   mat.NewVecDense(3, []float64{1, 2, 3}),
			yPred:   mat.NewVecDense(2, []float64{1, 2}),
			wantErr: true,
		},
		{
			name:    "empty vectors",
			yTrue:   &mat.VecDense{},
			yPred:   &mat.VecDense{},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := MSE(tt.yTrue, tt.yPred)
			if (err != nil) != tt.wantErr {
				t.Fatalf("MSE() error = %v, wantErr %v", err, tt.wantErr)
			}
			if !tt.wantErr && math.Abs(got-tt.want) > 1e-10 {
				t.Errorf("MSE() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestRMSEAndMAE(t *testing.T) {
	yTrue := mat.NewVecDense(3, []float64{10, 20, 30})
	yPred := mat.NewVecDense(3, []float64{12, 18, 33})

	rmse, err := RMSE(yTrue, yPred)
	if err != nil {
		t.Fatal(err)
	}
	if math.Abs(rmse-math.Sqrt(17.0/3.0)) > 1e-10 {
		t.Errorf("RMSE() = %v", rmse)
	}

	mae, err := MAE(yTrue, yPred)
	if err != nil {
		t.Fatal(err)
	}
	if math.Abs(mae-7.0/3.0) > 1e-10 {
		t.Errorf("MAE() = %v", mae)
	}
}

func TestR2Score(t *testing.T) {
	tests := []struct {
		name  string
		yTrue []float64
		yPred []float64
		want  float64
	}{
		{"perfect", []float64{1, 2, 3, 4}, []float64{1, 2, 3, 4}, 1},
		{"mean predictor", []float64{1, 2, 3, 4}, []float64{2.5, 2.5, 2.5, 2.5}, 0},
		// RSS = 0.25*4 = 1, TSS = 5 -> 1 - 1/5
		{"half off", []float64{1, 2, 3, 4}, []float64{1.5, 2.5, 2.5, 3.5}, 0.8},
		{"worse than mean", []float64{1, 2, 3}, []float64{3, 2, 1}, -3},
		{"constant target perfect", []float64{2, 2, 2}, []float64{2, 2, 2}, 1},
		{"constant target miss", []float64{2, 2, 2}, []float64{1, 2, 3}, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			n := len(tt.yTrue)
			got, err := R2Score(mat.NewVecDense(n, tt.yTrue), mat.NewVecDense(n, tt.yPred))
			if err != nil {
				t.Fatalf("R2Score() unexpected error: %v", err)
			}
			if math.Abs(got-tt.want) > 1e-10 {
				t.Errorf("R2Score() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestR2ScoreMatrix(t *testing.T) {
	yTrue := mat.NewDense(4, 1, []float64{1, 2, 3, 4})
	yPred := mat.NewDense(4, 1, []float64{1.5, 2.5, 2.5, 3.5})

	got, err := R2ScoreMatrix(yTrue, yPred)
	if err != nil {
		t.Fatal(err)
	}
	if math.Abs(got-0.8) > 1e-10 {
		t.Errorf("R2ScoreMatrix() = %v, want 0.8", got)
	}

	if _, err := R2ScoreMatrix(mat.NewDense(2, 2, nil), mat.NewDense(2, 2, nil)); err == nil {
		t.Error("expected error for multi-column input")
	}
	if _, err := R2ScoreMatrix(yTrue, mat.NewDense(3, 1, nil)); err == nil {
		t.Error("expected error for row mismatch")
	}
}
