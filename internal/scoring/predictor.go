// internal/scoring/predictor.go
package scoring

import (
	"fmt"
	"log/slog"
	"math"
	"time"

	"hr-evaluator.kz/internal/metrics"
	"hr-evaluator.kz/internal/ml"
	"hr-evaluator.kz/internal/models"
)

// Predictor вычисляет прогнозную оценку по вектору признаков в порядке models.FeatureNames.
type Predictor interface {
	Predict(features []float64) (float64, error)
	ModelInfo() ModelInfo
}

// ModelInfo - сведения о загруженной модели для страниц и логов.
type ModelInfo struct {
	Name      string
	Kind      string
	Path      string
	TrainedAt time.Time
	Samples   int
	CVMeanR2  *float64
	CVStdR2   *float64
}

type ModelPredictor struct {
	artifact *ml.Artifact
	path     string
}

// LoadPredictor загружает модель один раз при старте сервера.
func LoadPredictor(path string) (*ModelPredictor, error) {
	a, err := ml.LoadArtifact(path)
	if err != nil {
		return nil, fmt.Errorf("не удалось загрузить модель: %w", err)
	}
	slog.Info("Модель загружена", "path", path, "name", a.Name, "kind", a.Kind, "trained_at", a.TrainedAt, "samples", a.Samples)
	return &ModelPredictor{artifact: a, path: path}, nil
}

func NewModelPredictor(a *ml.Artifact) *ModelPredictor {
	return &ModelPredictor{artifact: a}
}

func (p *ModelPredictor) Predict(features []float64) (float64, error) {
	if len(features) != len(models.FeatureNames) {
		metrics.Predictions.WithLabelValues("error").Inc()
		return 0, fmt.Errorf("ожидалось %d признаков, получено %d", len(models.FeatureNames), len(features))
	}
	score, err := p.artifact.Model.Predict(features)
	if err != nil {
		metrics.Predictions.WithLabelValues("error").Inc()
		return 0, fmt.Errorf("ошибка предсказания модели %s: %w", p.artifact.Name, err)
	}
	if math.IsNaN(score) || math.IsInf(score, 0) {
		metrics.Predictions.WithLabelValues("error").Inc()
		return 0, fmt.Errorf("модель %s вернула некорректное значение %v", p.artifact.Name, score)
	}
	metrics.Predictions.WithLabelValues("ok").Inc()
	return score, nil
}

func (p *ModelPredictor) ModelInfo() ModelInfo {
	a := p.artifact
	return ModelInfo{
		Name:      a.Name,
		Kind:      a.Kind,
		Path:      p.path,
		TrainedAt: a.TrainedAt,
		Samples:   a.Samples,
		CVMeanR2:  a.CVMeanR2,
		CVStdR2:   a.CVStdR2,
	}
}
