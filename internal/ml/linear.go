// internal/ml/linear.go
package ml

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
)

// LinearRegression - метод наименьших квадратов со свободным членом.
// Решение через SVD, устойчиво к линейно зависимым признакам (решение минимальной нормы).
type LinearRegression struct {
	Coef      []float64 `json:"coef"`
	Intercept float64   `json:"intercept"`
}

func NewLinearRegression() *LinearRegression { return &LinearRegression{} }

func (m *LinearRegression) Fit(X [][]float64, y []float64) error {
	nf, err := checkXY(X, y)
	if err != nil {
		return err
	}
	xc, xMean, yc, yMean := center(X, y)

	var svd mat.SVD
	if ok := svd.Factorize(xc, mat.SVDThin); !ok {
		return fmt.Errorf("linear regression: не удалось выполнить SVD")
	}
	rows, cols := xc.Dims()
	eps := math.Nextafter(1, 2) - 1
	rank := svd.Rank(eps * float64(max(rows, cols)))

	coef := make([]float64, nf)
	if rank > 0 {
		var beta mat.VecDense
		svd.SolveVecTo(&beta, yc, rank)
		for j := range coef {
			coef[j] = beta.AtVec(j)
		}
	}
	m.Coef = coef
	m.Intercept = yMean - dot(xMean, coef)
	return nil
}

func (m *LinearRegression) Predict(x []float64) (float64, error) {
	if err := checkInput(x, len(m.Coef)); err != nil {
		return 0, err
	}
	return m.Intercept + dot(x, m.Coef), nil
}

// Ridge - линейная регрессия с L2-регуляризацией. Свободный член не штрафуется.
type Ridge struct {
	Alpha     float64   `json:"alpha"`
	Coef      []float64 `json:"coef"`
	Intercept float64   `json:"intercept"`
}

func NewRidge(alpha float64) *Ridge { return &Ridge{Alpha: alpha} }

func (m *Ridge) Fit(X [][]float64, y []float64) error {
	nf, err := checkXY(X, y)
	if err != nil {
		return err
	}
	if m.Alpha < 0 {
		return fmt.Errorf("ridge: alpha должен быть неотрицательным, получено %v", m.Alpha)
	}
	xc, xMean, yc, yMean := center(X, y)

	// (Xc^T Xc + alpha*I) beta = Xc^T yc
	var a mat.Dense
	a.Mul(xc.T(), xc)
	for j := 0; j < nf; j++ {
		a.Set(j, j, a.At(j, j)+m.Alpha)
	}
	var b mat.VecDense
	b.MulVec(xc.T(), yc)

	var beta mat.VecDense
	if err := beta.SolveVec(&a, &b); err != nil {
		// alpha = 0 и вырожденная матрица: откат к решению минимальной нормы
		lr := NewLinearRegression()
		if lerr := lr.Fit(X, y); lerr != nil {
			return fmt.Errorf("ridge: %w", err)
		}
		m.Coef, m.Intercept = lr.Coef, lr.Intercept
		return nil
	}
	coef := make([]float64, nf)
	for j := range coef {
		coef[j] = beta.AtVec(j)
	}
	m.Coef = coef
	m.Intercept = yMean - dot(xMean, coef)
	return nil
}

func (m *Ridge) Predict(x []float64) (float64, error) {
	if err := checkInput(x, len(m.Coef)); err != nil {
		return 0, err
	}
	return m.Intercept + dot(x, m.Coef), nil
}

// center возвращает центрированные X и y вместе со средними.
func center(X [][]float64, y []float64) (*mat.Dense, []float64, *mat.VecDense, float64) {
	n, nf := len(X), len(X[0])
	xMean := make([]float64, nf)
	for _, row := range X {
		for j, v := range row {
			xMean[j] += v
		}
	}
	for j := range xMean {
		xMean[j] /= float64(n)
	}
	xc := mat.NewDense(n, nf, nil)
	for i, row := range X {
		for j, v := range row {
			xc.Set(i, j, v-xMean[j])
		}
	}
	yMean := mean(y)
	yc := mat.NewVecDense(n, nil)
	for i, v := range y {
		yc.SetVec(i, v-yMean)
	}
	return xc, xMean, yc, yMean
}

func dot(a, b []float64) float64 {
	s := 0.0
	for i := range a {
		s += a[i] * b[i]
	}
	return s
}
