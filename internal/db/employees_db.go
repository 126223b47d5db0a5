// internal/db/employees_db.go
package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"hr-evaluator.kz/internal/models"
)

var ErrEmployeeNotFound = errors.New("сотрудник не найден")

// PredictFunc считает прогнозную оценку по вектору признаков в порядке models.FeatureNames.
type PredictFunc func(features []float64) (float64, error)

const employeeColumns = `id, name, department, attendance, task_efficiency, teamwork, initiative, project_quality, predicted_score, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanEmployee(row rowScanner) (*models.Employee, error) {
	var e models.Employee
	var predicted sql.NullFloat64
	err := row.Scan(
		&e.ID, &e.Name, &e.Department,
		&e.Attendance, &e.TaskEfficiency, &e.Teamwork, &e.Initiative, &e.ProjectQuality,
		&predicted, &e.CreatedAt, &e.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if predicted.Valid {
		e.PredictedScore = predicted.Float64
	}
	return &e, nil
}

// CreateEmployee вставляет сотрудника вместе с уже посчитанной оценкой и возвращает его id.
func CreateEmployee(ctx context.Context, e *models.Employee) (int64, error) {
	if DB == nil {
		return 0, ErrNotInitialized
	}
	query := `INSERT INTO employees
		(name, department, attendance, task_efficiency, teamwork, initiative, project_quality, predicted_score, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	now := time.Now()
	res, err := DB.ExecContext(ctx, query,
		e.Name, e.Department,
		e.Attendance, e.TaskEfficiency, e.Teamwork, e.Initiative, e.ProjectQuality,
		e.PredictedScore, now, now,
	)
	if err != nil {
		slog.Error("Ошибка создания сотрудника", "name", e.Name, "department", e.Department, "error", err)
		return 0, fmt.Errorf("не удалось создать сотрудника: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("не удалось получить id нового сотрудника: %w", err)
	}
	e.ID = id
	e.CreatedAt = now
	e.UpdatedAt = now
	slog.Info("Сотрудник добавлен", "employeeID", id, "predicted_score", e.PredictedScore)
	return id, nil
}

func GetEmployeeByID(ctx context.Context, id int64) (*models.Employee, error) {
	if DB == nil {
		return nil, ErrNotInitialized
	}
	row := DB.QueryRowContext(ctx, `SELECT `+employeeColumns+` FROM employees WHERE id = ?`, id)
	e, err := scanEmployee(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("сотрудник с id %d: %w", id, ErrEmployeeNotFound)
		}
		return nil, fmt.Errorf("ошибка получения сотрудника %d: %w", id, err)
	}
	return e, nil
}

func ListEmployees(ctx context.Context) ([]*models.Employee, error) {
	if DB == nil {
		return nil, ErrNotInitialized
	}
	rows, err := DB.QueryContext(ctx, `SELECT `+employeeColumns+` FROM employees ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("ошибка получения списка сотрудников: %w", err)
	}
	defer rows.Close()

	var employees []*models.Employee
	for rows.Next() {
		e, err := scanEmployee(rows)
		if err != nil {
			return nil, fmt.Errorf("ошибка сканирования сотрудника: %w", err)
		}
		employees = append(employees, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("ошибка итерации при получении сотрудников: %w", err)
	}
	return employees, nil
}

func ListEmployeeRefs(ctx context.Context) ([]models.EmployeeRef, error) {
	if DB == nil {
		return nil, ErrNotInitialized
	}
	rows, err := DB.QueryContext(ctx, `SELECT id, name, department FROM employees ORDER BY name, id`)
	if err != nil {
		return nil, fmt.Errorf("ошибка получения списка сотрудников: %w", err)
	}
	defer rows.Close()

	var refs []models.EmployeeRef
	for rows.Next() {
		var ref models.EmployeeRef
		if err := rows.Scan(&ref.ID, &ref.Name, &ref.Department); err != nil {
			return nil, fmt.Errorf("ошибка сканирования сотрудника: %w", err)
		}
		refs = append(refs, ref)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("ошибка итерации при получении сотрудников: %w", err)
	}
	return refs, nil
}

// EvaluateEmployee обновляет три оцениваемые метрики, пересчитывает прогноз по всем пяти
// и сохраняет его. Все шаги выполняются в одной транзакции.
func EvaluateEmployee(ctx context.Context, id int64, taskEfficiency, teamwork, projectQuality float64, predict PredictFunc) (*models.Employee, error) {
	if DB == nil {
		return nil, ErrNotInitialized
	}
	tx, err := DB.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("не удалось начать транзакцию: %w", err)
	}
	defer tx.Rollback()

	// RowsAffected в MySQL равен 0 и для строки без изменений, поэтому существование
	// проверяется следующим SELECT.
	_, err = tx.ExecContext(ctx,
		`UPDATE employees SET task_efficiency = ?, teamwork = ?, project_quality = ?, updated_at = ? WHERE id = ?`,
		taskEfficiency, teamwork, projectQuality, time.Now(), id,
	)
	if err != nil {
		return nil, fmt.Errorf("не удалось обновить метрики сотрудника %d: %w", id, err)
	}

	row := tx.QueryRowContext(ctx, `SELECT `+employeeColumns+` FROM employees WHERE id = ? FOR UPDATE`, id)
	e, err := scanEmployee(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("сотрудник с id %d: %w", id, ErrEmployeeNotFound)
		}
		return nil, fmt.Errorf("ошибка чтения сотрудника %d: %w", id, err)
	}

	score, err := predict(e.Features())
	if err != nil {
		return nil, fmt.Errorf("не удалось пересчитать оценку сотрудника %d: %w", id, err)
	}

	if _, err := tx.ExecContext(ctx, `UPDATE employees SET predicted_score = ? WHERE id = ?`, score, id); err != nil {
		return nil, fmt.Errorf("не удалось сохранить оценку сотрудника %d: %w", id, err)
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("не удалось зафиксировать оценку сотрудника %d: %w", id, err)
	}

	e.PredictedScore = score
	slog.Info("Сотрудник оценен", "employeeID", id, "predicted_score", score)
	return e, nil
}

func UpdatePredictedScore(ctx context.Context, id int64, score float64) error {
	if DB == nil {
		return ErrNotInitialized
	}
	res, err := DB.ExecContext(ctx, `UPDATE employees SET predicted_score = ? WHERE id = ?`, score, id)
	if err != nil {
		return fmt.Errorf("не удалось обновить оценку сотрудника %d: %w", id, err)
	}
	if affected, err := res.RowsAffected(); err == nil && affected == 0 {
		return fmt.Errorf("сотрудник с id %d: %w", id, ErrEmployeeNotFound)
	}
	return nil
}
