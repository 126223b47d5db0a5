// internal/handlers/report.go
package handlers

import (
	"log/slog"
	"math"
	"net/http"

	"hr-evaluator.kz/internal/db"
	"hr-evaluator.kz/internal/models"
)

const defaultInsightRowLimit = 25

// ReportRow - строка отчета: сохраненная оценка, пересчет текущей моделью и AI-анализ.
type ReportRow struct {
	Employee   *models.Employee
	LiveScore  float64
	LiveOK     bool
	Drift      bool
	Insight    string
	HasInsight bool
}

func (h *AppHandlers) ReportPageHandler(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	data := h.NewPageData(r)
	data.PageTitle = "Отчет по сотрудникам"

	employees, err := db.ListEmployees(ctx)
	if err != nil {
		slog.Error("ReportPageHandler: не удалось получить сотрудников", "error", err)
		http.Error(w, "Внутренняя ошибка сервера", http.StatusInternalServerError)
		return
	}

	stats, err := db.GetReportStats(ctx)
	if err != nil {
		slog.Error("ReportPageHandler: не удалось получить статистику", "error", err)
	}
	data.Stats = stats

	rows := make([]ReportRow, len(employees))
	for i, e := range employees {
		rows[i].Employee = e
		score, err := h.Predictor.Predict(e.Features())
		if err != nil {
			slog.Warn("ReportPageHandler: ошибка пересчета оценки", "employeeID", e.ID, "error", err)
			continue
		}
		rows[i].LiveScore = score
		rows[i].LiveOK = true
		rows[i].Drift = math.Abs(score-e.PredictedScore) > 0.005
	}

	if h.Insights != nil && h.Config.InsightsConfigured() && len(employees) > 0 {
		settings, err := db.GetAllAppSettings(ctx)
		if err != nil {
			slog.Error("ReportPageHandler: не удалось загрузить настройки", "error", err)
			settings = map[string]string{}
		}
		if db.BoolSetting(settings, db.SettingAIInsightsEnabled, true) {
			limit := db.IntSetting(settings, db.SettingInsightRowLimit, defaultInsightRowLimit)
			if limit <= 0 || limit > len(employees) {
				limit = len(employees)
			}
			insights := h.Insights.GenerateAll(ctx, employees[:limit])
			for i := 0; i < limit; i++ {
				rows[i].Insight = insights[employees[i].ID]
				rows[i].HasInsight = true
			}
			data.InsightsShown = true
			data.InsightRowLimit = limit
		}
	}

	data.Rows = rows
	h.RenderPage(w, r, "report.html", data)
}
