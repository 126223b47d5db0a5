// internal/ml/svr.go
package ml

import (
	"fmt"
	"math"
)

// SVR - регрессия опорных векторов с RBF-ядром и эпсилон-нечувствительной функцией потерь.
// Gamma вычисляется как 1/(n_features*Var(X)). Свободный член включен в ядро (K+1),
// двойственная задача решается покоординатным спуском с ограничением |beta_i| <= C.
type SVR struct {
	C       float64 `json:"c"`
	Epsilon float64 `json:"epsilon"`
	Gamma   float64 `json:"gamma"`
	Tol     float64 `json:"tol"`
	MaxIter int     `json:"max_iter"`

	SupportVectors [][]float64 `json:"support_vectors"`
	DualCoef       []float64   `json:"dual_coef"`
}

func NewSVR(c, epsilon float64) *SVR {
	return &SVR{C: c, Epsilon: epsilon, Tol: 1e-3, MaxIter: 1000}
}

func (m *SVR) Fit(X [][]float64, y []float64) error {
	if _, err := checkXY(X, y); err != nil {
		return err
	}
	if m.C <= 0 || m.Epsilon < 0 {
		return fmt.Errorf("svr: некорректные параметры C=%v epsilon=%v", m.C, m.Epsilon)
	}
	if m.Tol <= 0 {
		m.Tol = 1e-3
	}
	if m.MaxIter <= 0 {
		m.MaxIter = 1000
	}
	m.Gamma = scaleGamma(X)

	n := len(X)
	q := make([][]float64, n)
	for i := range q {
		q[i] = make([]float64, n)
	}
	for i := 0; i < n; i++ {
		for j := i; j < n; j++ {
			k := rbf(X[i], X[j], m.Gamma) + 1
			q[i][j], q[j][i] = k, k
		}
	}

	beta := make([]float64, n)
	f := make([]float64, n) // f = Q*beta
	for iter := 0; iter < m.MaxIter; iter++ {
		maxDelta := 0.0
		for i := 0; i < n; i++ {
			qii := q[i][i]
			g := f[i] - qii*beta[i] - y[i]
			nb := -softThreshold(g, m.Epsilon) / qii
			nb = math.Max(-m.C, math.Min(m.C, nb))
			delta := nb - beta[i]
			if delta == 0 {
				continue
			}
			beta[i] = nb
			for j := 0; j < n; j++ {
				f[j] += delta * q[i][j]
			}
			maxDelta = math.Max(maxDelta, math.Abs(delta))
		}
		if maxDelta < m.Tol {
			break
		}
	}

	m.SupportVectors = m.SupportVectors[:0]
	m.DualCoef = m.DualCoef[:0]
	for i, b := range beta {
		if b != 0 {
			m.SupportVectors = append(m.SupportVectors, append([]float64(nil), X[i]...))
			m.DualCoef = append(m.DualCoef, b)
		}
	}
	if len(m.SupportVectors) == 0 {
		// Все точки внутри эпсилон-трубки вокруг нуля: модель предсказывает 0.
		m.SupportVectors = [][]float64{make([]float64, len(X[0]))}
		m.DualCoef = []float64{0}
	}
	return nil
}

func (m *SVR) Predict(x []float64) (float64, error) {
	if len(m.SupportVectors) == 0 {
		return 0, ErrNotFitted
	}
	if err := checkInput(x, len(m.SupportVectors[0])); err != nil {
		return 0, err
	}
	out := 0.0
	for i, sv := range m.SupportVectors {
		out += m.DualCoef[i] * (rbf(sv, x, m.Gamma) + 1)
	}
	return out, nil
}

func rbf(a, b []float64, gamma float64) float64 {
	d := 0.0
	for i := range a {
		diff := a[i] - b[i]
		d += diff * diff
	}
	return math.Exp(-gamma * d)
}

func softThreshold(v, t float64) float64 {
	switch {
	case v > t:
		return v - t
	case v < -t:
		return v + t
	default:
		return 0
	}
}

// scaleGamma - 1/(n_features*Var(X)) по всем элементам матрицы; 1 для нулевой дисперсии.
func scaleGamma(X [][]float64) float64 {
	nf := len(X[0])
	total := float64(len(X) * nf)
	s := 0.0
	for _, row := range X {
		for _, v := range row {
			s += v
		}
	}
	mu := s / total
	v := 0.0
	for _, row := range X {
		for _, x := range row {
			v += (x - mu) * (x - mu)
		}
	}
	v /= total
	if v == 0 {
		return 1
	}
	return 1 / (float64(nf) * v)
}
