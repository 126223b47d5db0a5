// internal/ml/dataset.go
package ml

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"hr-evaluator.kz/internal/models"
)

const TargetColumn = "performance_score"

// Dataset - обучающая выборка: признаки в порядке models.FeatureNames и целевая оценка.
type Dataset struct {
	X [][]float64
	Y []float64
}

func LoadDataset(path string) (*Dataset, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("не удалось открыть набор данных %s: %w", path, err)
	}
	defer f.Close()
	ds, err := ReadDataset(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return ds, nil
}

// ReadDataset читает CSV с заголовком. Порядок колонок произвольный, лишние колонки игнорируются.
func ReadDataset(r io.Reader) (*Dataset, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("пустой файл: %w", ErrEmptyData)
		}
		return nil, fmt.Errorf("ошибка чтения заголовка: %w", err)
	}
	pos := make(map[string]int, len(header))
	for i, h := range header {
		pos[strings.TrimSpace(strings.TrimPrefix(h, "\ufeff"))] = i
	}
	wanted := append(append([]string(nil), models.FeatureNames...), TargetColumn)
	cols := make([]int, len(wanted))
	for i, name := range wanted {
		p, ok := pos[name]
		if !ok {
			return nil, fmt.Errorf("нет колонки %q", name)
		}
		cols[i] = p
	}

	ds := &Dataset{}
	line := 1
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		line++
		if err != nil {
			return nil, fmt.Errorf("строка %d: %w", line, err)
		}
		row := make([]float64, len(models.FeatureNames))
		for i, c := range cols {
			v, err := strconv.ParseFloat(strings.TrimSpace(rec[c]), 64)
			if err != nil {
				return nil, fmt.Errorf("строка %d, колонка %q: некорректное число %q", line, wanted[i], rec[c])
			}
			if i < len(row) {
				row[i] = v
			} else {
				ds.Y = append(ds.Y, v)
			}
		}
		ds.X = append(ds.X, row)
	}
	if len(ds.X) == 0 {
		return nil, ErrEmptyData
	}
	return ds, nil
}
