// internal/ml/crossval.go
package ml

import (
	"fmt"
	"math"
)

type Fold struct {
	Train []int
	Test  []int
}

// KFold делит индексы 0..n-1 на k последовательных блоков без перемешивания.
// Первые n%k блоков на один элемент больше.
func KFold(n, k int) ([]Fold, error) {
	if k < 2 {
		return nil, fmt.Errorf("число блоков должно быть не меньше 2, получено %d", k)
	}
	if k > n {
		return nil, fmt.Errorf("число блоков %d больше числа объектов %d", k, n)
	}
	folds := make([]Fold, 0, k)
	start := 0
	for f := 0; f < k; f++ {
		size := n / k
		if f < n%k {
			size++
		}
		end := start + size
		fold := Fold{Test: make([]int, 0, size), Train: make([]int, 0, n-size)}
		for i := 0; i < n; i++ {
			if i >= start && i < end {
				fold.Test = append(fold.Test, i)
			} else {
				fold.Train = append(fold.Train, i)
			}
		}
		folds = append(folds, fold)
		start = end
	}
	return folds, nil
}

// R2Score - коэффициент детерминации. Для постоянного yTrue: 1 при точном совпадении, иначе 0.
// Для одного объекта R^2 не определен, возвращается NaN.
func R2Score(yTrue, yPred []float64) (float64, error) {
	if len(yTrue) == 0 || len(yTrue) != len(yPred) {
		return 0, fmt.Errorf("%w: %d истинных и %d предсказанных значений", ErrDimension, len(yTrue), len(yPred))
	}
	if len(yTrue) < 2 {
		return math.NaN(), nil
	}
	mu := mean(yTrue)
	ssRes, ssTot := 0.0, 0.0
	for i, v := range yTrue {
		ssRes += (v - yPred[i]) * (v - yPred[i])
		ssTot += (v - mu) * (v - mu)
	}
	if ssTot == 0 {
		if ssRes == 0 {
			return 1, nil
		}
		return 0, nil
	}
	return 1 - ssRes/ssTot, nil
}

// CrossValScore обучает новую модель на каждом блоке и возвращает R^2 на отложенной части.
func CrossValScore(newModel Factory, X [][]float64, y []float64, k int) ([]float64, error) {
	if _, err := checkXY(X, y); err != nil {
		return nil, err
	}
	folds, err := KFold(len(X), k)
	if err != nil {
		return nil, err
	}
	scores := make([]float64, 0, k)
	for fi, fold := range folds {
		trX, trY := subset(X, y, fold.Train)
		teX, teY := subset(X, y, fold.Test)

		model := newModel()
		if err := model.Fit(trX, trY); err != nil {
			return nil, fmt.Errorf("блок %d: обучение: %w", fi, err)
		}
		pred := make([]float64, len(teX))
		for i, row := range teX {
			p, err := model.Predict(row)
			if err != nil {
				return nil, fmt.Errorf("блок %d: предсказание: %w", fi, err)
			}
			if math.IsNaN(p) || math.IsInf(p, 0) {
				return nil, fmt.Errorf("блок %d: некорректное предсказание %v", fi, p)
			}
			pred[i] = p
		}
		s, err := R2Score(teY, pred)
		if err != nil {
			return nil, fmt.Errorf("блок %d: %w", fi, err)
		}
		scores = append(scores, s)
	}
	return scores, nil
}

// meanStd - среднее и стандартное отклонение генеральной совокупности.
func meanStd(v []float64) (float64, float64) {
	mu := mean(v)
	s := 0.0
	for _, x := range v {
		s += (x - mu) * (x - mu)
	}
	if len(v) == 0 {
		return 0, 0
	}
	return mu, math.Sqrt(s / float64(len(v)))
}

// NumFolds - число блоков для n объектов: min(5, n), но не меньше 2.
func NumFolds(n int) int {
	if n < 2 {
		return 2
	}
	return min(5, n)
}
