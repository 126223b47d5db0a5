// internal/db/reports_db.go
package db

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"time"

	"hr-evaluator.kz/internal/models"
)

// ReportStats содержит агрегированные данные для страницы отчета.
type ReportStats struct {
	TotalEmployees     int
	NewEmployeesLast30 int
	AverageScore       float64
	TopPerformerName   string
	TopPerformerScore  float64
	Departments        []models.DepartmentStats
}

// GetReportStats собирает статистику по сотрудникам. Ошибки отдельных запросов логируются,
// статистика возвращается частично заполненной.
func GetReportStats(ctx context.Context) (*ReportStats, error) {
	if DB == nil {
		return nil, ErrNotInitialized
	}

	stats := &ReportStats{}

	var avg sql.NullFloat64
	err := DB.QueryRowContext(ctx, "SELECT COUNT(*), AVG(predicted_score) FROM employees").Scan(&stats.TotalEmployees, &avg)
	if err != nil {
		slog.Error("Ошибка получения общего количества сотрудников для статистики", "error", err)
	}
	if avg.Valid {
		stats.AverageScore = avg.Float64
	}

	thirtyDaysAgo := time.Now().AddDate(0, 0, -30).Truncate(24 * time.Hour)
	err = DB.QueryRowContext(ctx, "SELECT COUNT(*) FROM employees WHERE created_at >= ?", thirtyDaysAgo).Scan(&stats.NewEmployeesLast30)
	if err != nil {
		slog.Error("Ошибка получения новых сотрудников за последние 30 дней", "error", err)
	}

	err = DB.QueryRowContext(ctx, "SELECT name, predicted_score FROM employees ORDER BY predicted_score DESC, id ASC LIMIT 1").
		Scan(&stats.TopPerformerName, &stats.TopPerformerScore)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		slog.Error("Ошибка получения лучшего сотрудника", "error", err)
	}

	rows, err := DB.QueryContext(ctx, `SELECT department, COUNT(*), AVG(predicted_score)
		FROM employees GROUP BY department ORDER BY AVG(predicted_score) DESC, department`)
	if err != nil {
		slog.Error("Ошибка получения статистики по отделам", "error", err)
		return stats, nil
	}
	defer rows.Close()

	for rows.Next() {
		var d models.DepartmentStats
		var depAvg sql.NullFloat64
		if err := rows.Scan(&d.Department, &d.Employees, &depAvg); err != nil {
			slog.Error("Ошибка сканирования статистики отдела", "error", err)
			continue
		}
		if depAvg.Valid {
			d.AverageScore = depAvg.Float64
		}
		stats.Departments = append(stats.Departments, d)
	}
	if err := rows.Err(); err != nil {
		slog.Error("Ошибка итерации по статистике отделов", "error", err)
	}

	return stats, nil
}
