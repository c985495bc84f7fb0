// Package binning quantizes continuous features into histogram bins for the
// gradient boosting trainers.
package binning

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/stat"
)

// MaxBins は1特徴量あたりのビン数の上限
const MaxBins = math.MaxUint16

// Mapper は特徴量ごとのビン境界を保持する。
// Cuts[f] は昇順の上限値で、最後は +Inf。ビン b は Cuts[f][b-1] < x <= Cuts[f][b]。
type Mapper struct {
	Cuts [][]float64
}

// Fit は X（行単位）から各特徴量のビン境界を求める。
// ユニーク値が maxBins 以下なら隣接値の中点、それ以上なら等頻度の分位点で区切る。
func Fit(X [][]float64, maxBins int) *Mapper {
	if maxBins < 2 {
		maxBins = 2
	}
	if maxBins > MaxBins {
		maxBins = MaxBins
	}

	nFeatures := len(X[0])
	m := &Mapper{Cuts: make([][]float64, nFeatures)}
	col := make([]float64, len(X))
	for f := 0; f < nFeatures; f++ {
		for i, row := range X {
			col[i] = row[f]
		}
		sort.Float64s(col)
		m.Cuts[f] = featureCuts(col, maxBins)
	}
	return m
}

func featureCuts(sorted []float64, maxBins int) []float64 {
	unique := []float64{sorted[0]}
	for _, v := range sorted[1:] {
		if v != unique[len(unique)-1] {
			unique = append(unique, v)
		}
	}

	cuts := make([]float64, 0, min(len(unique), maxBins))
	if len(unique) <= maxBins {
		for i := 0; i < len(unique)-1; i++ {
			cuts = append(cuts, midpoint(unique[i], unique[i+1]))
		}
		return append(cuts, math.Inf(1))
	}

	for k := 1; k < maxBins; k++ {
		q := stat.Quantile(float64(k)/float64(maxBins), stat.Empirical, sorted, nil)
		j := sort.SearchFloat64s(unique, q)
		if j+1 >= len(unique) {
			break
		}
		cut := midpoint(unique[j], unique[j+1])
		if len(cuts) == 0 || cut > cuts[len(cuts)-1] {
			cuts = append(cuts, cut)
		}
	}
	return append(cuts, math.Inf(1))
}

func midpoint(a, b float64) float64 {
	m := a/2 + b/2
	if m >= b {
		return a
	}
	return m
}

// NumFeatures は特徴量数を返す
func (m *Mapper) NumFeatures() int {
	return len(m.Cuts)
}

// NumBins は特徴量 f のビン数を返す
func (m *Mapper) NumBins(f int) int {
	return len(m.Cuts[f])
}

// Bin は値 v が属するビン番号を返す
func (m *Mapper) Bin(f int, v float64) int {
	return sort.SearchFloat64s(m.Cuts[f], v)
}

// Threshold はビン b 以下を左に送る分割の閾値を返す
func (m *Mapper) Threshold(f, b int) float64 {
	return m.Cuts[f][b]
}

// Transform は X を特徴量ごとのビン番号に変換する（列優先）
func (m *Mapper) Transform(X [][]float64) [][]uint16 {
	out := make([][]uint16, len(m.Cuts))
	for f := range out {
		out[f] = make([]uint16, len(X))
		for i, row := range X {
			out[f][i] = uint16(m.Bin(f, row[f]))
		}
	}
	return out
}
