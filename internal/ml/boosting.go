// internal/ml/boosting.go
package ml

import "fmt"

// GradientBoosting - градиентный бустинг деревьев с квадратичной функцией потерь.
// Начальное приближение - среднее значение y.
type GradientBoosting struct {
	NEstimators  int               `json:"n_estimators"`
	LearningRate float64           `json:"learning_rate"`
	MaxDepth     int               `json:"max_depth"`
	Init         float64           `json:"init"`
	Trees        []*RegressionTree `json:"trees"`
}

func NewGradientBoosting(nEstimators int, learningRate float64, maxDepth int) *GradientBoosting {
	return &GradientBoosting{NEstimators: nEstimators, LearningRate: learningRate, MaxDepth: maxDepth}
}

func (m *GradientBoosting) Fit(X [][]float64, y []float64) error {
	if _, err := checkXY(X, y); err != nil {
		return err
	}
	if m.NEstimators <= 0 || m.LearningRate <= 0 {
		return fmt.Errorf("gradient boosting: некорректные параметры n_estimators=%d learning_rate=%v", m.NEstimators, m.LearningRate)
	}

	m.Init = mean(y)
	pred := make([]float64, len(y))
	for i := range pred {
		pred[i] = m.Init
	}
	residual := make([]float64, len(y))
	m.Trees = make([]*RegressionTree, 0, m.NEstimators)

	for s := 0; s < m.NEstimators; s++ {
		for i := range y {
			residual[i] = y[i] - pred[i]
		}
		tree := NewRegressionTree(m.MaxDepth)
		if err := tree.Fit(X, residual); err != nil {
			return fmt.Errorf("gradient boosting: этап %d: %w", s, err)
		}
		for i, row := range X {
			v, _ := tree.Predict(row)
			pred[i] += m.LearningRate * v
		}
		m.Trees = append(m.Trees, tree)
	}
	return nil
}

func (m *GradientBoosting) Predict(x []float64) (float64, error) {
	if len(m.Trees) == 0 {
		return 0, ErrNotFitted
	}
	out := m.Init
	for _, t := range m.Trees {
		v, err := t.Predict(x)
		if err != nil {
			return 0, err
		}
		out += m.LearningRate * v
	}
	return out, nil
}
