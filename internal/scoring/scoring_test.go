package scoring

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hr-evaluator.kz/internal/ml"
	"hr-evaluator.kz/internal/models"
)

// trainedArtifact обучает линейную модель, где оценка - среднее пяти метрик.
func trainedArtifact(t *testing.T) *ml.Artifact {
	t.Helper()
	var X [][]float64
	var y []float64
	for i := 1; i <= 10; i++ {
		f := float64(i)
		row := []float64{f, float64((i*7)%10 + 1), float64(i%3 + 1), float64(i%4 + 1), float64(i%5 + 1)}
		X = append(X, row)
		y = append(y, (row[0]+row[1]+row[2]+row[3]+row[4])/5)
	}
	m := ml.NewLinearRegression()
	require.NoError(t, m.Fit(X, y))
	a, err := ml.NewArtifact("LinearRegression", m, len(X), 1, 0)
	require.NoError(t, err)
	return a
}

func TestLoadPredictor(t *testing.T) {
	path := filepath.Join(t.TempDir(), "performance_model.json")
	require.NoError(t, ml.SaveArtifact(path, trainedArtifact(t)))

	p, err := LoadPredictor(path)
	require.NoError(t, err)

	score, err := p.Predict([]float64{5, 5, 5, 5, 5})
	require.NoError(t, err)
	assert.InDelta(t, 5, score, 1e-9)

	info := p.ModelInfo()
	assert.Equal(t, "LinearRegression", info.Name)
	assert.Equal(t, ml.KindLinearRegression, info.Kind)
	assert.Equal(t, path, info.Path)
	assert.Equal(t, 10, info.Samples)
}

func TestLoadPredictor_MissingFile(t *testing.T) {
	_, err := LoadPredictor(filepath.Join(t.TempDir(), "nope.json"))
	assert.Error(t, err)
}

func TestModelPredictor_WrongFeatureCount(t *testing.T) {
	p := NewModelPredictor(trainedArtifact(t))
	_, err := p.Predict([]float64{1, 2})
	assert.Error(t, err)
}

type fakePredictor struct {
	scores map[float64]float64
	err    error
}

func (f fakePredictor) Predict(features []float64) (float64, error) {
	if f.err != nil {
		return 0, f.err
	}
	return f.scores[features[0]], nil
}

func (fakePredictor) ModelInfo() ModelInfo { return ModelInfo{Name: "fake"} }

func TestRescorer_UpdatesOnlyChangedScores(t *testing.T) {
	employees := []*models.Employee{
		{ID: 1, Attendance: 1, PredictedScore: 3},
		{ID: 2, Attendance: 2, PredictedScore: 4},
		{ID: 3, Attendance: 3, PredictedScore: 0},
	}
	updates := map[int64]float64{}
	r := &Rescorer{
		predictor:     fakePredictor{scores: map[float64]float64{1: 3, 2: 7.5, 3: 1}},
		listEmployees: func(context.Context) ([]*models.Employee, error) { return employees, nil },
		updateScore: func(_ context.Context, id int64, score float64) error {
			updates[id] = score
			return nil
		},
	}

	n, err := r.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Equal(t, map[int64]float64{2: 7.5, 3: 1}, updates)
}

func TestRescorer_PredictErrorsAreSkipped(t *testing.T) {
	r := &Rescorer{
		predictor: fakePredictor{err: errors.New("bad model")},
		listEmployees: func(context.Context) ([]*models.Employee, error) {
			return []*models.Employee{{ID: 1}}, nil
		},
		updateScore: func(context.Context, int64, float64) error {
			t.Fatal("update must not be called")
			return nil
		},
	}
	n, err := r.Run(context.Background())
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestRescorer_ListError(t *testing.T) {
	r := &Rescorer{
		predictor:     fakePredictor{},
		listEmployees: func(context.Context) ([]*models.Employee, error) { return nil, errors.New("db down") },
	}
	_, err := r.Run(context.Background())
	assert.ErrorContains(t, err, "db down")
}
