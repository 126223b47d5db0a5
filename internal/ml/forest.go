// internal/ml/forest.go
package ml

import (
	"fmt"
	"math/rand/v2"
	"runtime"

	"golang.org/x/sync/errgroup"
)

// RandomForest - бэггинг деревьев без ограничения глубины. Предсказание - среднее по деревьям.
type RandomForest struct {
	NEstimators int               `json:"n_estimators"`
	Seed        uint64            `json:"seed"`
	Trees       []*RegressionTree `json:"trees"`
}

func NewRandomForest(nEstimators int, seed uint64) *RandomForest {
	return &RandomForest{NEstimators: nEstimators, Seed: seed}
}

func (m *RandomForest) Fit(X [][]float64, y []float64) error {
	if _, err := checkXY(X, y); err != nil {
		return err
	}
	if m.NEstimators <= 0 {
		return fmt.Errorf("random forest: n_estimators должен быть положительным, получено %d", m.NEstimators)
	}

	// Выборки генерируются последовательно, чтобы результат не зависел от порядка горутин.
	rng := rand.New(rand.NewPCG(m.Seed, m.Seed))
	samples := make([][]int, m.NEstimators)
	for t := range samples {
		idx := make([]int, len(X))
		for i := range idx {
			idx[i] = rng.IntN(len(X))
		}
		samples[t] = idx
	}

	trees := make([]*RegressionTree, m.NEstimators)
	var g errgroup.Group
	g.SetLimit(runtime.GOMAXPROCS(0))
	for t := range trees {
		g.Go(func() error {
			tree := NewRegressionTree(0)
			tree.fitIndices(X, y, samples[t])
			trees[t] = tree
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}
	m.Trees = trees
	return nil
}

func (m *RandomForest) Predict(x []float64) (float64, error) {
	if len(m.Trees) == 0 {
		return 0, ErrNotFitted
	}
	sum := 0.0
	for _, t := range m.Trees {
		v, err := t.Predict(x)
		if err != nil {
			return 0, err
		}
		sum += v
	}
	return sum / float64(len(m.Trees)), nil
}
