package tree

import (
	"math"
	"math/rand"
	"sort"
)

// featureThreshold は2つの特徴量の値を区別する最小差（scikit-learn と同じ）
const featureThreshold = 1e-7

// Node は回帰木の1ノード。葉では Feature = -1。
type Node struct {
	Feature   int
	Threshold float64
	Left      int
	Right     int
	Value     float64
	Impurity  float64
	NSamples  int
	Weight    float64
}

// IsLeaf はノードが葉かどうかを返す
func (n *Node) IsLeaf() bool {
	return n.Feature < 0
}

// Tree はフラットなノード配列で表現された二分木。Nodes[0] が根。
type Tree struct {
	Nodes []Node
}

// PredictRow は1サンプルの予測値を返す
func (t *Tree) PredictRow(row []float64) float64 {
	return t.Nodes[t.Apply(row)].Value
}

// Apply はサンプルが到達する葉のインデックスを返す
func (t *Tree) Apply(row []float64) int {
	idx := 0
	for {
		n := &t.Nodes[idx]
		if n.IsLeaf() {
			return idx
		}
		if row[n.Feature] <= n.Threshold {
			idx = n.Left
		} else {
			idx = n.Right
		}
	}
}

// Depth は木の深さ（根のみなら 0）を返す
func (t *Tree) Depth() int {
	var walk func(idx int) int
	walk = func(idx int) int {
		n := &t.Nodes[idx]
		if n.IsLeaf() {
			return 0
		}
		return 1 + max(walk(n.Left), walk(n.Right))
	}
	if len(t.Nodes) == 0 {
		return 0
	}
	return walk(0)
}

// NLeaves は葉の数を返す
func (t *Tree) NLeaves() int {
	count := 0
	for i := range t.Nodes {
		if t.Nodes[i].IsLeaf() {
			count++
		}
	}
	return count
}

// BuildParams は CART 構築の停止条件
type BuildParams struct {
	MaxDepth        int // <0 で無制限
	MinSamplesSplit int
	MinSamplesLeaf  int
	MaxFeatures     int // 0 ならすべての特徴量
}

// Builder は二乗誤差を基準に CART を成長させる。
// X は行単位、w はサンプル重み（0 の行は無視される）。
type Builder struct {
	Params BuildParams
	Rng    *rand.Rand

	x [][]float64
	y []float64
	w []float64
}

// Build は indices に含まれるサンプルで木を構築する
func (b *Builder) Build(X [][]float64, y, w []float64, indices []int) *Tree {
	b.x, b.y, b.w = X, y, w
	t := &Tree{}
	b.grow(t, indices, 0)
	b.x, b.y, b.w = nil, nil, nil
	return t
}

type split struct {
	feature   int
	threshold float64
	pos       int // 左側のサンプル数（ソート済み indices 上）
	proxy     float64
}

func (b *Builder) grow(t *Tree, indices []int, depth int) int {
	var sumW, sumWY, sumWY2 float64
	for _, i := range indices {
		wi := b.w[i]
		sumW += wi
		sumWY += wi * b.y[i]
		sumWY2 += wi * b.y[i] * b.y[i]
	}
	mean := sumWY / sumW
	impurity := math.Max(sumWY2/sumW-mean*mean, 0)

	nodeIdx := len(t.Nodes)
	t.Nodes = append(t.Nodes, Node{
		Feature:  -1,
		Value:    mean,
		Impurity: impurity,
		NSamples: len(indices),
		Weight:   sumW,
	})

	p := b.Params
	n := len(indices)
	if (p.MaxDepth >= 0 && depth >= p.MaxDepth) ||
		n < p.MinSamplesSplit ||
		n < 2*p.MinSamplesLeaf ||
		impurity <= featureThreshold*featureThreshold {
		return nodeIdx
	}

	best, ok := b.findBestSplit(indices, sumW, sumWY)
	if !ok {
		return nodeIdx
	}

	// 最良特徴量で並べ替えて左右に分割
	sortByFeature(indices, b.x, best.feature)
	left := append([]int(nil), indices[:best.pos]...)
	right := append([]int(nil), indices[best.pos:]...)

	l := b.grow(t, left, depth+1)
	r := b.grow(t, right, depth+1)

	node := &t.Nodes[nodeIdx]
	node.Feature = best.feature
	node.Threshold = best.threshold
	node.Left = l
	node.Right = r
	return nodeIdx
}

func (b *Builder) findBestSplit(indices []int, sumW, sumWY float64) (split, bool) {
	nFeatures := len(b.x[indices[0]])
	features := b.candidateFeatures(nFeatures)

	best := split{proxy: math.Inf(-1)}
	found := false
	parentProxy := sumWY * sumWY / sumW
	sorted := append([]int(nil), indices...)
	minLeaf := b.Params.MinSamplesLeaf

	for _, f := range features {
		sortByFeature(sorted, b.x, f)
		if b.x[sorted[len(sorted)-1]][f] <= b.x[sorted[0]][f]+featureThreshold {
			continue // 定数特徴量
		}

		var wL, sL float64
		for k := 0; k < len(sorted)-1; k++ {
			i := sorted[k]
			wL += b.w[i]
			sL += b.w[i] * b.y[i]

			cur := b.x[i][f]
			next := b.x[sorted[k+1]][f]
			if next <= cur+featureThreshold {
				continue
			}
			nLeft := k + 1
			if nLeft < minLeaf || len(sorted)-nLeft < minLeaf {
				continue
			}
			wR := sumW - wL
			if wL <= 0 || wR <= 0 {
				continue
			}
			sR := sumWY - sL
			proxy := sL*sL/wL + sR*sR/wR
			if proxy > best.proxy {
				threshold := cur/2 + next/2
				if threshold == next || math.IsInf(threshold, 0) {
					threshold = cur
				}
				best = split{feature: f, threshold: threshold, pos: nLeft, proxy: proxy}
				found = true
			}
		}
	}

	// 改善がない分割は採用しない
	if found && best.proxy <= parentProxy+1e-12*math.Abs(parentProxy) {
		return best, false
	}
	return best, found
}

func (b *Builder) candidateFeatures(nFeatures int) []int {
	k := b.Params.MaxFeatures
	if k <= 0 || k >= nFeatures || b.Rng == nil {
		features := make([]int, nFeatures)
		for i := range features {
			features[i] = i
		}
		return features
	}
	return b.Rng.Perm(nFeatures)[:k]
}

func sortByFeature(indices []int, X [][]float64, f int) {
	sort.SliceStable(indices, func(a, c int) bool {
		return X[indices[a]][f] < X[indices[c]][f]
	})
}
