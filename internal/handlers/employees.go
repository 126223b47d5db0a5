// internal/handlers/employees.go
package handlers

import (
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"hr-evaluator.kz/internal/auth"
	"hr-evaluator.kz/internal/db"
	"hr-evaluator.kz/internal/metrics"
	"hr-evaluator.kz/internal/models"
	"hr-evaluator.kz/internal/validation"
)

func (h *AppHandlers) AddEmployeePageHandler(w http.ResponseWriter, r *http.Request) {
	data := h.NewPageData(r)
	data.PageTitle = "Добавить сотрудника"
	h.RenderPage(w, r, "add_employee.html", data)
}

// AddEmployeeHandler проверяет форму, считает прогноз и сохраняет сотрудника.
func (h *AppHandlers) AddEmployeeHandler(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		slog.Warn("AddEmployeeHandler: ошибка парсинга формы", "error", err)
		http.Error(w, "Некорректные данные формы.", http.StatusBadRequest)
		return
	}

	errs := url.Values{}
	form := &models.EmployeeForm{
		Name:           auth.CollapseWhitespace(r.PostForm.Get("name")),
		Department:     auth.CollapseWhitespace(r.PostForm.Get("department")),
		Attendance:     validation.ParseMetric(r.PostForm, "attendance", errs),
		TaskEfficiency: validation.ParseMetric(r.PostForm, "task_efficiency", errs),
		Teamwork:       validation.ParseMetric(r.PostForm, "teamwork", errs),
		Initiative:     validation.ParseMetric(r.PostForm, "initiative", errs),
		ProjectQuality: validation.ParseMetric(r.PostForm, "project_quality", errs),
	}
	errs = validation.Merge(errs, validation.ValidateStruct(form))

	renderForm := func(status int, errs url.Values) {
		data := h.NewPageData(r)
		data.PageTitle = "Добавить сотрудника"
		data.Errors = errs
		data.FormValues = r.PostForm
		h.render(w, r, status, "add_employee.html", data)
	}

	if len(errs) > 0 {
		renderForm(http.StatusBadRequest, errs)
		return
	}

	employee := form.ToEmployee()
	score, err := h.Predictor.Predict(employee.Features())
	if err != nil {
		slog.Error("AddEmployeeHandler: ошибка прогноза", "error", err)
		renderForm(http.StatusInternalServerError, url.Values{"general": {"Не удалось рассчитать оценку. Попробуйте позже."}})
		return
	}
	employee.PredictedScore = score

	if _, err := db.CreateEmployee(r.Context(), employee); err != nil {
		slog.Error("AddEmployeeHandler: не удалось сохранить сотрудника", "error", err)
		renderForm(http.StatusInternalServerError, url.Values{"general": {"Не удалось сохранить сотрудника. Попробуйте позже."}})
		return
	}
	metrics.EmployeesCreated.Inc()

	h.SessionManager.Put(r.Context(), flashSuccessKey, "Сотрудник "+employee.Name+" добавлен, прогнозная оценка "+strconv.FormatFloat(score, 'f', 2, 64)+".")
	http.Redirect(w, r, "/report", http.StatusSeeOther)
}

// EvaluatePageHandler показывает список сотрудников. Параметр ?id= выбирает сотрудника.
func (h *AppHandlers) EvaluatePageHandler(w http.ResponseWriter, r *http.Request) {
	data := h.NewPageData(r)
	data.PageTitle = "Оценка сотрудника"

	refs, err := db.ListEmployeeRefs(r.Context())
	if err != nil {
		slog.Error("EvaluatePageHandler: не удалось получить список сотрудников", "error", err)
		http.Error(w, "Внутренняя ошибка сервера", http.StatusInternalServerError)
		return
	}
	data.Employees = refs

	status := http.StatusOK
	if raw := r.URL.Query().Get("id"); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || id <= 0 {
			data.Errors.Add("employee_id", "Некорректный идентификатор сотрудника.")
			status = http.StatusBadRequest
		} else {
			e, err := db.GetEmployeeByID(r.Context(), id)
			switch {
			case errors.Is(err, db.ErrEmployeeNotFound):
				data.Errors.Add("employee_id", "Сотрудник не найден.")
				status = http.StatusNotFound
			case err != nil:
				slog.Error("EvaluatePageHandler: ошибка получения сотрудника", "employeeID", id, "error", err)
				http.Error(w, "Внутренняя ошибка сервера", http.StatusInternalServerError)
				return
			default:
				data.SelectedEmployee = e
				data.FormValues.Set("employee_id", raw)
			}
		}
	}
	h.render(w, r, status, "evaluate.html", data)
}

// EvaluateHandler обновляет три метрики и пересчитывает оценку.
func (h *AppHandlers) EvaluateHandler(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		slog.Warn("EvaluateHandler: ошибка парсинга формы", "error", err)
		http.Error(w, "Некорректные данные формы.", http.StatusBadRequest)
		return
	}

	errs := url.Values{}
	form := &models.EvaluationForm{
		TaskEfficiency: validation.ParseMetric(r.PostForm, "task_efficiency", errs),
		Teamwork:       validation.ParseMetric(r.PostForm, "teamwork", errs),
		ProjectQuality: validation.ParseMetric(r.PostForm, "project_quality", errs),
	}
	if id, err := strconv.ParseInt(strings.TrimSpace(r.PostForm.Get("employee_id")), 10, 64); err == nil {
		form.EmployeeID = id
	}
	errs = validation.Merge(errs, validation.ValidateStruct(form))

	renderForm := func(status int, errs url.Values) {
		data := h.NewPageData(r)
		data.PageTitle = "Оценка сотрудника"
		data.Errors = errs
		data.FormValues = r.PostForm
		refs, err := db.ListEmployeeRefs(r.Context())
		if err != nil {
			slog.Error("EvaluateHandler: не удалось получить список сотрудников", "error", err)
			if !data.Errors.Has("general") {
				data.Errors.Add("general", "Не удалось загрузить список сотрудников. Попробуйте позже.")
			}
		}
		data.Employees = refs
		h.render(w, r, status, "evaluate.html", data)
	}

	if len(errs) > 0 {
		renderForm(http.StatusBadRequest, errs)
		return
	}

	e, err := db.EvaluateEmployee(r.Context(), form.EmployeeID, form.TaskEfficiency, form.Teamwork, form.ProjectQuality, h.Predictor.Predict)
	switch {
	case errors.Is(err, db.ErrEmployeeNotFound):
		slog.Info("EvaluateHandler: сотрудник не найден", "employeeID", form.EmployeeID)
		renderForm(http.StatusNotFound, url.Values{"employee_id": {"Сотрудник не найден."}})
		return
	case err != nil:
		slog.Error("EvaluateHandler: ошибка оценки сотрудника", "employeeID", form.EmployeeID, "error", err)
		renderForm(http.StatusInternalServerError, url.Values{"general": {"Не удалось сохранить оценку. Попробуйте позже."}})
		return
	}
	metrics.EmployeesEvaluated.Inc()

	h.SessionManager.Put(r.Context(), flashSuccessKey, "Оценка сотрудника "+e.Name+" обновлена: "+strconv.FormatFloat(e.PredictedScore, 'f', 2, 64)+".")
	http.Redirect(w, r, "/report", http.StatusSeeOther)
}
