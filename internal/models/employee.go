// internal/models/employee.go
package models

import "time"

// Порядок признаков модели. Совпадает с колонками обучающего CSV.
var FeatureNames = []string{
	"attendance",
	"task_efficiency",
	"teamwork",
	"initiative",
	"project_quality",
}

const (
	MetricMin = 1.0
	MetricMax = 10.0
)

type Employee struct {
	ID             int64     `json:"id"`
	Name           string    `json:"name"`
	Department     string    `json:"department"`
	Attendance     float64   `json:"attendance"`
	TaskEfficiency float64   `json:"task_efficiency"`
	Teamwork       float64   `json:"teamwork"`
	Initiative     float64   `json:"initiative"`
	ProjectQuality float64   `json:"project_quality"`
	PredictedScore float64   `json:"predicted_score"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// Features возвращает метрики сотрудника в порядке FeatureNames.
func (e *Employee) Features() []float64 {
	return []float64{e.Attendance, e.TaskEfficiency, e.Teamwork, e.Initiative, e.ProjectQuality}
}

// EmployeeRef - краткая запись для выпадающего списка на странице оценки.
type EmployeeRef struct {
	ID         int64  `json:"id"`
	Name       string `json:"name"`
	Department string `json:"department"`
}

type EmployeeForm struct {
	Name           string  `form:"name" validate:"required,max=100"`
	Department     string  `form:"department" validate:"required,max=100"`
	Attendance     float64 `form:"attendance" validate:"metric"`
	TaskEfficiency float64 `form:"task_efficiency" validate:"metric"`
	Teamwork       float64 `form:"teamwork" validate:"metric"`
	Initiative     float64 `form:"initiative" validate:"metric"`
	ProjectQuality float64 `form:"project_quality" validate:"metric"`
}

func (f *EmployeeForm) ToEmployee() *Employee {
	return &Employee{
		Name:           f.Name,
		Department:     f.Department,
		Attendance:     f.Attendance,
		TaskEfficiency: f.TaskEfficiency,
		Teamwork:       f.Teamwork,
		Initiative:     f.Initiative,
		ProjectQuality: f.ProjectQuality,
	}
}

type EvaluationForm struct {
	EmployeeID     int64   `form:"employee_id" validate:"required,gt=0"`
	TaskEfficiency float64 `form:"task_efficiency" validate:"metric"`
	Teamwork       float64 `form:"teamwork" validate:"metric"`
	ProjectQuality float64 `form:"project_quality" validate:"metric"`
}

// DepartmentStats - агрегаты по отделу для отчета.
type DepartmentStats struct {
	Department   string
	Employees    int
	AverageScore float64
}
