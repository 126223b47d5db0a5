// internal/scoring/rescorer.go
package scoring

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"time"

	"hr-evaluator.kz/internal/db"
	"hr-evaluator.kz/internal/metrics"
	"hr-evaluator.kz/internal/models"
)

const scoreEpsilon = 1e-9

// Rescorer пересчитывает сохраненные оценки всех сотрудников текущей моделью.
// Нужен после замены файла модели: записи, созданные старой моделью, обновляются.
type Rescorer struct {
	predictor     Predictor
	listEmployees func(ctx context.Context) ([]*models.Employee, error)
	updateScore   func(ctx context.Context, id int64, score float64) error
}

func NewRescorer(p Predictor) *Rescorer {
	return &Rescorer{
		predictor:     p,
		listEmployees: db.ListEmployees,
		updateScore:   db.UpdatePredictedScore,
	}
}

// Run выполняет один проход и возвращает число обновленных строк.
// Ошибка предсказания для отдельного сотрудника логируется и не прерывает проход.
func (r *Rescorer) Run(ctx context.Context) (int, error) {
	employees, err := r.listEmployees(ctx)
	if err != nil {
		return 0, fmt.Errorf("пересчет оценок: %w", err)
	}

	updated := 0
	for _, e := range employees {
		if err := ctx.Err(); err != nil {
			return updated, err
		}
		score, err := r.predictor.Predict(e.Features())
		if err != nil {
			slog.Error("Ошибка пересчета оценки сотрудника", "employee_id", e.ID, "error", err)
			continue
		}
		if math.Abs(score-e.PredictedScore) <= scoreEpsilon {
			continue
		}
		if err := r.updateScore(ctx, e.ID, score); err != nil {
			slog.Error("Ошибка сохранения пересчитанной оценки", "employee_id", e.ID, "error", err)
			continue
		}
		updated++
	}
	if updated > 0 {
		metrics.RescoredEmployees.Add(float64(updated))
		slog.Info("Оценки сотрудников пересчитаны", "updated", updated, "total", len(employees))
	}
	return updated, nil
}

// Start запускает периодический пересчет до отмены контекста.
func (r *Rescorer) Start(ctx context.Context, interval time.Duration) {
	slog.Info("Планировщик пересчета оценок запущен", "interval", interval.String())
	ticker := time.NewTicker(interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				slog.Info("Планировщик пересчета оценок остановлен")
				return
			case <-ticker.C:
				slog.Debug("Запуск планового пересчета оценок...")
				if _, err := r.Run(ctx); err != nil {
					slog.Error("Плановый пересчет оценок завершился с ошибкой", "error", err)
				}
			}
		}
	}()
}
