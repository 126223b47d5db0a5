// internal/ml/artifact.go
package ml

import (
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"slices"
	"time"

	"hr-evaluator.kz/internal/models"
)

const (
	KindLinearRegression = "linear_regression"
	KindRidge            = "ridge"
	KindRandomForest     = "random_forest"
	KindGradientBoosting = "gradient_boosting"
	KindSVR              = "svr"
)

// Artifact - сохраненная обученная модель вместе с метаданными обучения.
type Artifact struct {
	Name      string          `json:"name"`
	Kind      string          `json:"kind"`
	Features  []string        `json:"features"`
	TrainedAt time.Time       `json:"trained_at"`
	CVMeanR2  *float64        `json:"cv_mean_r2,omitempty"`
	CVStdR2   *float64        `json:"cv_std_r2,omitempty"`
	Samples   int             `json:"samples"`
	Params    json.RawMessage `json:"params"`

	Model Regressor `json:"-"`
}

// NewArtifact оборачивает обученную модель. Нечисловые оценки CV (например -Inf) не сохраняются.
func NewArtifact(name string, model Regressor, samples int, cvMean, cvStd float64) (*Artifact, error) {
	kind, err := kindOf(model)
	if err != nil {
		return nil, err
	}
	a := &Artifact{
		Name:      name,
		Kind:      kind,
		Features:  append([]string(nil), models.FeatureNames...),
		TrainedAt: time.Now().UTC(),
		Samples:   samples,
		Model:     model,
	}
	if finite(cvMean) && finite(cvStd) {
		a.CVMeanR2, a.CVStdR2 = &cvMean, &cvStd
	}
	return a, nil
}

func finite(v float64) bool { return !math.IsNaN(v) && !math.IsInf(v, 0) }

func kindOf(m Regressor) (string, error) {
	switch m.(type) {
	case *LinearRegression:
		return KindLinearRegression, nil
	case *Ridge:
		return KindRidge, nil
	case *RandomForest:
		return KindRandomForest, nil
	case *GradientBoosting:
		return KindGradientBoosting, nil
	case *SVR:
		return KindSVR, nil
	default:
		return "", fmt.Errorf("неизвестный тип модели %T", m)
	}
}

func newByKind(kind string) (Regressor, error) {
	switch kind {
	case KindLinearRegression:
		return &LinearRegression{}, nil
	case KindRidge:
		return &Ridge{}, nil
	case KindRandomForest:
		return &RandomForest{}, nil
	case KindGradientBoosting:
		return &GradientBoosting{}, nil
	case KindSVR:
		return &SVR{}, nil
	default:
		return nil, fmt.Errorf("неизвестный вид модели %q", kind)
	}
}

// SaveArtifact записывает модель в JSON через временный файл, создавая каталог при необходимости.
func SaveArtifact(path string, a *Artifact) error {
	if a.Model == nil {
		return ErrNotFitted
	}
	params, err := json.Marshal(a.Model)
	if err != nil {
		return fmt.Errorf("ошибка сериализации модели: %w", err)
	}
	a.Params = params

	data, err := json.MarshalIndent(a, "", "  ")
	if err != nil {
		return fmt.Errorf("ошибка сериализации артефакта: %w", err)
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("не удалось создать каталог %s: %w", dir, err)
	}
	tmp, err := os.CreateTemp(dir, ".model-*.json")
	if err != nil {
		return fmt.Errorf("не удалось создать временный файл: %w", err)
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("ошибка записи модели: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("ошибка записи модели: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("не удалось сохранить модель в %s: %w", path, err)
	}
	return nil
}

// LoadArtifact читает модель и проверяет, что набор признаков совпадает с текущим.
func LoadArtifact(path string) (*Artifact, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("не удалось прочитать файл модели %s: %w", path, err)
	}
	var a Artifact
	if err := json.Unmarshal(data, &a); err != nil {
		return nil, fmt.Errorf("некорректный файл модели %s: %w", path, err)
	}
	if !slices.Equal(a.Features, models.FeatureNames) {
		return nil, fmt.Errorf("модель %s обучена на признаках %v, ожидались %v", path, a.Features, models.FeatureNames)
	}
	m, err := newByKind(a.Kind)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(a.Params, m); err != nil {
		return nil, fmt.Errorf("некорректные параметры модели %s: %w", a.Kind, err)
	}
	if _, err := m.Predict(make([]float64, len(models.FeatureNames))); err != nil {
		return nil, fmt.Errorf("модель %s непригодна: %w", path, err)
	}
	a.Model = m
	return &a, nil
}
