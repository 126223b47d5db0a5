// internal/ml/plot.go
package ml

import (
	"fmt"
	"image/color"
	"math"
	"os"
	"path/filepath"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
)

var (
	barColor  = color.RGBA{R: 31, G: 119, B: 180, A: 255}
	bestColor = color.RGBA{R: 255, G: 127, B: 14, A: 255}
	zeroColor = color.RGBA{R: 128, G: 128, B: 128, A: 255}
)

// errorBars отдает средние и отклонения в формате plotter.XYer + plotter.YErrorer.
type errorBars struct {
	means, stds []float64
}

func (e errorBars) Len() int                        { return len(e.means) }
func (e errorBars) XY(i int) (float64, float64)     { return float64(i), e.means[i] }
func (e errorBars) YError(i int) (float64, float64) { return e.stds[i], e.stds[i] }

// PlotComparison сохраняет столбчатую диаграмму средних R^2 с отклонениями. Лучшая модель выделена цветом.
func PlotComparison(c *Comparison, path string) error {
	p := plot.New()
	p.Title.Text = "Model comparison (higher is better)"
	p.Y.Label.Text = "Mean R^2 (CV)"

	names := make([]string, len(c.Results))
	eb := errorBars{means: make([]float64, len(c.Results)), stds: make([]float64, len(c.Results))}
	for i, r := range c.Results {
		names[i] = r.Name
		eb.means[i] = clampFinite(r.Mean)
		eb.stds[i] = clampFinite(r.Std)
	}

	width := vg.Points(28)
	for i := range c.Results {
		bar, err := plotter.NewBarChart(plotter.Values{eb.means[i]}, width)
		if err != nil {
			return fmt.Errorf("ошибка построения столбца %s: %w", names[i], err)
		}
		bar.XMin = float64(i)
		bar.Color = barColor
		if i == c.BestIndex {
			bar.Color = bestColor
		}
		bar.LineStyle.Width = vg.Length(0)
		p.Add(bar)
	}

	yerr, err := plotter.NewYErrorBars(eb)
	if err != nil {
		return fmt.Errorf("ошибка построения отклонений: %w", err)
	}
	yerr.CapWidth = vg.Points(10)
	p.Add(yerr)

	zero := plotter.NewFunction(func(float64) float64 { return 0 })
	zero.Color = zeroColor
	zero.Width = vg.Points(0.8)
	p.Add(zero)

	p.NominalX(names...)
	p.X.Tick.Label.Rotation = math.Pi / 6

	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("не удалось создать каталог %s: %w", dir, err)
		}
	}
	if err := p.Save(8*vg.Inch, 4*vg.Inch, path); err != nil {
		return fmt.Errorf("не удалось сохранить график %s: %w", path, err)
	}
	return nil
}

func clampFinite(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return v
}
