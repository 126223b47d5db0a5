// internal/ml/tree.go
package ml

import (
	"sort"
)

// treeNode - узел дерева. У листа Left == -1.
type treeNode struct {
	Feature   int     `json:"f"`
	Threshold float64 `json:"t"`
	Left      int     `json:"l"`
	Right     int     `json:"r"`
	Value     float64 `json:"v"`
}

// RegressionTree - дерево CART с критерием MSE. MaxDepth == 0 означает без ограничения глубины.
type RegressionTree struct {
	MaxDepth        int        `json:"max_depth"`
	MinSamplesSplit int        `json:"min_samples_split"`
	MinSamplesLeaf  int        `json:"min_samples_leaf"`
	NFeatures       int        `json:"n_features"`
	Nodes           []treeNode `json:"nodes"`
}

func NewRegressionTree(maxDepth int) *RegressionTree {
	return &RegressionTree{MaxDepth: maxDepth, MinSamplesSplit: 2, MinSamplesLeaf: 1}
}

func (t *RegressionTree) Fit(X [][]float64, y []float64) error {
	if _, err := checkXY(X, y); err != nil {
		return err
	}
	idx := make([]int, len(X))
	for i := range idx {
		idx[i] = i
	}
	t.fitIndices(X, y, idx)
	return nil
}

// fitIndices строит дерево по подмножеству строк. Повторяющиеся индексы (бутстрэп) допустимы.
func (t *RegressionTree) fitIndices(X [][]float64, y []float64, idx []int) {
	if t.MinSamplesSplit < 2 {
		t.MinSamplesSplit = 2
	}
	if t.MinSamplesLeaf < 1 {
		t.MinSamplesLeaf = 1
	}
	t.NFeatures = len(X[0])
	t.Nodes = t.Nodes[:0]
	t.grow(X, y, idx, 0)
}

func (t *RegressionTree) grow(X [][]float64, y []float64, idx []int, depth int) int {
	sum, sumSq := 0.0, 0.0
	for _, i := range idx {
		sum += y[i]
		sumSq += y[i] * y[i]
	}
	n := float64(len(idx))
	node := len(t.Nodes)
	t.Nodes = append(t.Nodes, treeNode{Left: -1, Right: -1, Value: sum / n})

	impurity := sumSq - sum*sum/n
	if len(idx) < t.MinSamplesSplit || (t.MaxDepth > 0 && depth >= t.MaxDepth) || impurity <= 1e-12*n {
		return node
	}

	feature, threshold, ok := t.bestSplit(X, y, idx, sum, impurity)
	if !ok {
		return node
	}

	var left, right []int
	for _, i := range idx {
		if X[i][feature] <= threshold {
			left = append(left, i)
		} else {
			right = append(right, i)
		}
	}

	l := t.grow(X, y, left, depth+1)
	r := t.grow(X, y, right, depth+1)
	t.Nodes[node].Feature = feature
	t.Nodes[node].Threshold = threshold
	t.Nodes[node].Left = l
	t.Nodes[node].Right = r
	return node
}

// bestSplit перебирает все признаки и пороги (середины между соседними различными значениями)
// и выбирает разбиение с минимальной суммой квадратов отклонений в потомках.
func (t *RegressionTree) bestSplit(X [][]float64, y []float64, idx []int, total, impurity float64) (int, float64, bool) {
	n := len(idx)
	sorted := make([]int, n)
	bestScore := impurity - 1e-12
	bestFeature, bestThreshold, found := -1, 0.0, false

	for f := 0; f < t.NFeatures; f++ {
		copy(sorted, idx)
		sort.SliceStable(sorted, func(a, b int) bool { return X[sorted[a]][f] < X[sorted[b]][f] })

		leftSum, leftSq := 0.0, 0.0
		totalSq := 0.0
		for _, i := range sorted {
			totalSq += y[i] * y[i]
		}
		for k := 0; k < n-1; k++ {
			v := y[sorted[k]]
			leftSum += v
			leftSq += v * v
			nl := k + 1
			nr := n - nl
			if nl < t.MinSamplesLeaf || nr < t.MinSamplesLeaf {
				continue
			}
			cur, next := X[sorted[k]][f], X[sorted[k+1]][f]
			if cur >= next {
				continue
			}
			rightSum := total - leftSum
			rightSq := totalSq - leftSq
			score := (leftSq - leftSum*leftSum/float64(nl)) + (rightSq - rightSum*rightSum/float64(nr))
			if score < bestScore {
				bestScore = score
				bestFeature = f
				bestThreshold = cur + (next-cur)/2
				if bestThreshold >= next {
					bestThreshold = cur
				}
				found = true
			}
		}
	}
	return bestFeature, bestThreshold, found
}

func (t *RegressionTree) Predict(x []float64) (float64, error) {
	if len(t.Nodes) == 0 {
		return 0, ErrNotFitted
	}
	if err := checkInput(x, t.NFeatures); err != nil {
		return 0, err
	}
	node := 0
	for t.Nodes[node].Left >= 0 {
		if x[t.Nodes[node].Feature] <= t.Nodes[node].Threshold {
			node = t.Nodes[node].Left
		} else {
			node = t.Nodes[node].Right
		}
	}
	return t.Nodes[node].Value, nil
}
