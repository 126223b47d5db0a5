// internal/ml/compare.go
package ml

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"math"

	"golang.org/x/sync/errgroup"
)

// Result - итог кросс-валидации одной модели. При ошибке Mean = -Inf, Std = 0.
type Result struct {
	Name   string
	Mean   float64
	Std    float64
	Scores []float64
	Err    error
}

type Comparison struct {
	CV        int
	Samples   int
	Results   []Result
	BestIndex int
	Model     Regressor
}

func (c *Comparison) Best() Result { return c.Results[c.BestIndex] }

// CompareModels оценивает кандидатов кросс-валидацией параллельно, выбирает лучшего по среднему R^2
// и обучает его на всех данных. Ошибка отдельной модели не прерывает сравнение.
func CompareModels(ctx context.Context, candidates []Candidate, X [][]float64, y []float64) (*Comparison, error) {
	if len(candidates) == 0 {
		return nil, fmt.Errorf("нет моделей для сравнения")
	}
	if _, err := checkXY(X, y); err != nil {
		return nil, err
	}

	cv := NumFolds(len(X))
	slog.Info("Обучение и оценка моделей", "models", len(candidates), "cv", cv, "samples", len(X))

	results := make([]Result, len(candidates))
	g, gctx := errgroup.WithContext(ctx)
	for i, c := range candidates {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			res := Result{Name: c.Name}
			scores, err := CrossValScore(c.New, X, y, cv)
			if err != nil {
				slog.Warn("Модель не прошла кросс-валидацию", "model", c.Name, "error", err)
				res.Mean, res.Std, res.Err = math.Inf(-1), 0, err
			} else {
				res.Scores = scores
				res.Mean, res.Std = meanStd(scores)
				slog.Info("Модель оценена", "model", c.Name, "mean_r2", res.Mean, "std_r2", res.Std)
			}
			results[i] = res
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	// NaN не больше любого значения, поэтому при неопределенных оценках остается первый кандидат.
	best := 0
	for i := 1; i < len(results); i++ {
		if results[i].Mean > results[best].Mean {
			best = i
		}
	}

	model := candidates[best].New()
	if err := model.Fit(X, y); err != nil {
		return nil, fmt.Errorf("обучение лучшей модели %s на всех данных: %w", candidates[best].Name, err)
	}

	return &Comparison{CV: cv, Samples: len(X), Results: results, BestIndex: best, Model: model}, nil
}

// WriteSummary печатает таблицу результатов, лучшая модель помечается.
func WriteSummary(w io.Writer, c *Comparison) error {
	if _, err := fmt.Fprintln(w, "Model comparison summary:"); err != nil {
		return err
	}
	for i, r := range c.Results {
		marker := ""
		if i == c.BestIndex {
			marker = "<-- selected"
		}
		if _, err := fmt.Fprintf(w, "%-15s mean R^2 = %.4f ± %.4f %s\n", r.Name, r.Mean, r.Std, marker); err != nil {
			return err
		}
	}
	return nil
}
