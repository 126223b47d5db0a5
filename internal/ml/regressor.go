// internal/ml/regressor.go
package ml

import (
	"errors"
	"fmt"
)

var (
	ErrNotFitted = errors.New("модель не обучена")
	ErrEmptyData = errors.New("пустой набор данных")
	ErrDimension = errors.New("несовпадение размерности признаков")
)

// Regressor - модель регрессии, обучаемая на матрице признаков X (строка = объект).
type Regressor interface {
	Fit(X [][]float64, y []float64) error
	Predict(x []float64) (float64, error)
}

// Factory создает новый необученный экземпляр модели.
type Factory func() Regressor

type Candidate struct {
	Name string
	New  Factory
}

// DefaultCandidates возвращает модели для сравнения в фиксированном порядке.
// При равном среднем R^2 выигрывает модель, стоящая раньше.
func DefaultCandidates() []Candidate {
	return []Candidate{
		{Name: "LinearRegression", New: func() Regressor { return NewLinearRegression() }},
		{Name: "Ridge", New: func() Regressor { return NewRidge(1.0) }},
		{Name: "RandomForest", New: func() Regressor { return NewRandomForest(100, 42) }},
		{Name: "GradientBoosting", New: func() Regressor { return NewGradientBoosting(100, 0.1, 3) }},
		{Name: "SVR", New: func() Regressor { return NewSVR(1.0, 0.1) }},
	}
}

// checkXY проверяет форму данных и возвращает число признаков.
func checkXY(X [][]float64, y []float64) (int, error) {
	if len(X) == 0 {
		return 0, ErrEmptyData
	}
	if len(X) != len(y) {
		return 0, fmt.Errorf("%w: %d строк X и %d значений y", ErrDimension, len(X), len(y))
	}
	nf := len(X[0])
	if nf == 0 {
		return 0, fmt.Errorf("%w: нет признаков", ErrDimension)
	}
	for i, row := range X {
		if len(row) != nf {
			return 0, fmt.Errorf("%w: строка %d содержит %d признаков, ожидалось %d", ErrDimension, i, len(row), nf)
		}
	}
	return nf, nil
}

func checkInput(x []float64, want int) error {
	if want == 0 {
		return ErrNotFitted
	}
	if len(x) != want {
		return fmt.Errorf("%w: получено %d, ожидалось %d", ErrDimension, len(x), want)
	}
	return nil
}

func mean(v []float64) float64 {
	if len(v) == 0 {
		return 0
	}
	s := 0.0
	for _, x := range v {
		s += x
	}
	return s / float64(len(v))
}

func subset(X [][]float64, y []float64, idx []int) ([][]float64, []float64) {
	xs := make([][]float64, len(idx))
	ys := make([]float64, len(idx))
	for i, j := range idx {
		xs[i] = X[j]
		ys[i] = y[j]
	}
	return xs, ys
}
