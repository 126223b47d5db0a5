package handlers

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/alexedwards/scs/v2"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hr-evaluator.kz/internal/config"
	"hr-evaluator.kz/internal/db"
	"hr-evaluator.kz/internal/llm"
	"hr-evaluator.kz/internal/metrics"
	"hr-evaluator.kz/internal/scoring"
)

// meanPredictor - среднее пяти метрик.
type meanPredictor struct{ err error }

func (p meanPredictor) Predict(features []float64) (float64, error) {
	if p.err != nil {
		return 0, p.err
	}
	sum := 0.0
	for _, v := range features {
		sum += v
	}
	return sum / float64(len(features)), nil
}

func (meanPredictor) ModelInfo() scoring.ModelInfo {
	return scoring.ModelInfo{Name: "LinearRegression", Kind: "linear_regression", Samples: 10}
}

func testConfig() *config.Config {
	return &config.Config{
		SiteName:      "HR Test",
		BaseURL:       "http://localhost:8080",
		TemplatesPath: "../../templates",
		StaticPath:    "../../static",
		RemoteLLM:     config.RemoteLLMConfig{Provider: config.ProviderNone},
	}
}

func newTestApp(t *testing.T, cfg *config.Config, p scoring.Predictor, insights *llm.InsightService) (*AppHandlers, http.Handler, sqlmock.Sqlmock) {
	t.Helper()
	mock := db.UseMockDB(t)
	sm := scs.New()
	app, err := NewAppHandlers(cfg, sm, p, insights)
	require.NoError(t, err)
	return app, sm.LoadAndSave(app.Routes()), mock
}

func postForm(target string, form url.Values) *http.Request {
	req := httptest.NewRequest(http.MethodPost, target, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return req
}

func serve(h http.Handler, req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func employeeRows() *sqlmock.Rows {
	now := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	return sqlmock.NewRows(db.EmployeeColumns).
		AddRow(1, "Алия", "Sales", 9.0, 8.0, 7.0, 6.0, 5.0, 7.0, now, now).
		AddRow(2, "Бауыржан", "IT", 4.0, 4.0, 4.0, 4.0, 4.0, 3.5, now, now)
}

func expectReportStats(mock sqlmock.Sqlmock) {
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*), AVG(predicted_score) FROM employees")).
		WillReturnRows(sqlmock.NewRows([]string{"count", "avg"}).AddRow(2, 5.25))
	mock.ExpectQuery(regexp.QuoteMeta("WHERE created_at >= ?")).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(2))
	mock.ExpectQuery(regexp.QuoteMeta("ORDER BY predicted_score DESC")).
		WillReturnRows(sqlmock.NewRows([]string{"name", "predicted_score"}).AddRow("Алия", 7.0))
	mock.ExpectQuery(regexp.QuoteMeta("GROUP BY department")).
		WillReturnRows(sqlmock.NewRows([]string{"department", "count", "avg"}).
			AddRow("Sales", 1, 7.0).
			AddRow("IT", 1, 3.5))
}

func validEmployeeForm() url.Values {
	return url.Values{
		"name":            {"Алия"},
		"department":      {"Sales"},
		"attendance":      {"9"},
		"task_efficiency": {"8"},
		"teamwork":        {"7"},
		"initiative":      {"6"},
		"project_quality": {"5"},
	}
}

func TestIndexPage(t *testing.T) {
	_, h, _ := newTestApp(t, testConfig(), meanPredictor{}, nil)

	rec := serve(h, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "LinearRegression")
	assert.Contains(t, rec.Body.String(), "HR Test")

	rec = serve(h, httptest.NewRequest(http.MethodGet, "/unknown", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestMethodNotAllowed(t *testing.T) {
	_, h, _ := newTestApp(t, testConfig(), meanPredictor{}, nil)

	for _, path := range []string{"/add_employee", "/evaluate", "/report"} {
		rec := serve(h, httptest.NewRequest(http.MethodPut, path, nil))
		assert.Equal(t, http.StatusMethodNotAllowed, rec.Code, path)
	}
	rec := serve(h, httptest.NewRequest(http.MethodDelete, "/", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestAddEmployee_InsertsPredictedRow(t *testing.T) {
	_, h, mock := newTestApp(t, testConfig(), meanPredictor{}, nil)
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO employees")).
		WithArgs("Алия", "Sales", 9.0, 8.0, 7.0, 6.0, 5.0, 7.0, sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(11, 1))

	before := testutil.ToFloat64(metrics.EmployeesCreated)
	rec := serve(h, postForm("/add_employee", validEmployeeForm()))

	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/report", rec.Header().Get("Location"))
	assert.Equal(t, before+1, testutil.ToFloat64(metrics.EmployeesCreated))
}

func TestAddEmployee_InvalidFormIsRerendered(t *testing.T) {
	_, h, _ := newTestApp(t, testConfig(), meanPredictor{}, nil)

	form := validEmployeeForm()
	form.Set("name", "  ")
	form.Set("attendance", "11")
	form.Set("teamwork", "abc")
	rec := serve(h, postForm("/add_employee", form))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, "Это поле обязательно для заполнения.")
	assert.Contains(t, body, "Значение должно быть от 1 до 10.")
	assert.Contains(t, body, "Введите число.")
	assert.Contains(t, body, `value="Sales"`)
}

func TestAddEmployee_PredictError(t *testing.T) {
	_, h, _ := newTestApp(t, testConfig(), meanPredictor{err: errors.New("model broken")}, nil)

	rec := serve(h, postForm("/add_employee", validEmployeeForm()))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Contains(t, rec.Body.String(), "Не удалось рассчитать оценку")
}

func TestEvaluatePage_PreselectsEmployee(t *testing.T) {
	_, h, mock := newTestApp(t, testConfig(), meanPredictor{}, nil)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, name, department FROM employees")).
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "department"}).
			AddRow(1, "Алия", "Sales").
			AddRow(2, "Бауыржан", "IT"))
	now := time.Now()
	mock.ExpectQuery(regexp.QuoteMeta("FROM employees WHERE id = ?")).
		WithArgs(int64(2)).
		WillReturnRows(sqlmock.NewRows(db.EmployeeColumns).AddRow(2, "Бауыржан", "IT", 4.0, 4.5, 4.0, 4.0, 6.5, 4.6, now, now))

	rec := serve(h, httptest.NewRequest(http.MethodGet, "/evaluate?id=2", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, `<option value="2" selected>`)
	assert.Contains(t, body, `value="4.5"`)
	assert.Contains(t, body, `value="6.5"`)
}

func TestEvaluatePage_UnknownID(t *testing.T) {
	_, h, mock := newTestApp(t, testConfig(), meanPredictor{}, nil)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, name, department FROM employees")).
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "department"}).AddRow(1, "Алия", "Sales"))
	mock.ExpectQuery(regexp.QuoteMeta("FROM employees WHERE id = ?")).
		WithArgs(int64(99)).
		WillReturnRows(sqlmock.NewRows(db.EmployeeColumns))

	rec := serve(h, httptest.NewRequest(http.MethodGet, "/evaluate?id=99", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, rec.Body.String(), "Сотрудник не найден.")
}

func TestEvaluate_UpdatesAndRedirects(t *testing.T) {
	_, h, mock := newTestApp(t, testConfig(), meanPredictor{}, nil)
	now := time.Now()
	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("UPDATE employees SET task_efficiency = ?, teamwork = ?, project_quality = ?")).
		WithArgs(10.0, 9.0, 8.0, sqlmock.AnyArg(), int64(1)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(regexp.QuoteMeta("FOR UPDATE")).
		WithArgs(int64(1)).
		WillReturnRows(sqlmock.NewRows(db.EmployeeColumns).AddRow(1, "Алия", "Sales", 9.0, 10.0, 9.0, 6.0, 8.0, 7.0, now, now))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE employees SET predicted_score = ? WHERE id = ?")).
		WithArgs(8.4, int64(1)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	rec := serve(h, postForm("/evaluate", url.Values{
		"employee_id":     {"1"},
		"task_efficiency": {"10"},
		"teamwork":        {"9"},
		"project_quality": {"8"},
	}))
	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/report", rec.Header().Get("Location"))
}

func TestEvaluate_UnknownEmployeeReturns404(t *testing.T) {
	_, h, mock := newTestApp(t, testConfig(), meanPredictor{}, nil)
	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("UPDATE employees SET task_efficiency")).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(regexp.QuoteMeta("FOR UPDATE")).
		WithArgs(int64(404)).
		WillReturnRows(sqlmock.NewRows(db.EmployeeColumns))
	mock.ExpectRollback()
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, name, department FROM employees")).
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "department"}).AddRow(1, "Алия", "Sales"))

	rec := serve(h, postForm("/evaluate", url.Values{
		"employee_id":     {"404"},
		"task_efficiency": {"5"},
		"teamwork":        {"5"},
		"project_quality": {"5"},
	}))
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, rec.Body.String(), "Сотрудник не найден.")
}

func TestEvaluate_InvalidForm(t *testing.T) {
	_, h, mock := newTestApp(t, testConfig(), meanPredictor{}, nil)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, name, department FROM employees")).
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "department"}))

	rec := serve(h, postForm("/evaluate", url.Values{
		"employee_id":     {"-3"},
		"task_efficiency": {"0"},
		"teamwork":        {"5"},
		"project_quality": {"5"},
	}))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "Выберите сотрудника.")
	assert.Contains(t, rec.Body.String(), "Значение должно быть от 1 до 10.")
}

func TestEvaluate_InvalidFormWhenEmployeeListFails(t *testing.T) {
	_, h, mock := newTestApp(t, testConfig(), meanPredictor{}, nil)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, name, department FROM employees")).
		WillReturnError(errors.New("connection reset"))

	rec := serve(h, postForm("/evaluate", url.Values{
		"employee_id":     {"4"},
		"task_efficiency": {"5"},
		"teamwork":        {"11"},
		"project_quality": {"5"},
	}))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, "Значение должно быть от 1 до 10.")
	assert.Contains(t, body, "Не удалось загрузить список сотрудников.")
	assert.NotContains(t, body, "Сотрудников пока нет")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestReportPage_WithoutInsights(t *testing.T) {
	_, h, mock := newTestApp(t, testConfig(), meanPredictor{}, nil)
	mock.ExpectQuery(regexp.QuoteMeta("FROM employees ORDER BY id")).WillReturnRows(employeeRows())
	expectReportStats(mock)

	rec := serve(h, httptest.NewRequest(http.MethodGet, "/report", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, "Алия")
	assert.Contains(t, body, "Бауыржан")
	assert.Contains(t, body, `<td class="drift">4.00</td>`)
	assert.Contains(t, body, "5.25")
	assert.NotContains(t, body, "AI-анализ</th>")
}

func TestReportPage_InsightsLimitedByRowLimit(t *testing.T) {
	cfg := testConfig()
	cfg.RemoteLLM.Provider = config.ProviderRemote
	calls := 0
	client := llm.ClientFunc(func(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
		calls++
		return "Стабильные показатели.", nil
	})
	insights := llm.NewInsightService(client, cfg.RemoteLLM, nil)

	_, h, mock := newTestApp(t, cfg, meanPredictor{}, insights)
	mock.ExpectQuery(regexp.QuoteMeta("FROM employees ORDER BY id")).WillReturnRows(employeeRows())
	expectReportStats(mock)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT setting_key, setting_value FROM app_settings")).
		WillReturnRows(sqlmock.NewRows([]string{"setting_key", "setting_value"}).
			AddRow(db.SettingAIInsightsEnabled, "true").
			AddRow(db.SettingInsightRowLimit, "1"))

	rec := serve(h, httptest.NewRequest(http.MethodGet, "/report", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Equal(t, 1, calls)
	assert.Equal(t, 1, strings.Count(body, "Стабильные показатели."))
	assert.Contains(t, body, "AI-анализ запрошен для первых 1 строк.")
}

func TestReportPage_InsightsDisabledBySetting(t *testing.T) {
	cfg := testConfig()
	cfg.RemoteLLM.Provider = config.ProviderRemote
	client := llm.ClientFunc(func(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
		t.Error("LLM не должен вызываться")
		return "", nil
	})
	_, h, mock := newTestApp(t, cfg, meanPredictor{}, llm.NewInsightService(client, cfg.RemoteLLM, nil))
	mock.ExpectQuery(regexp.QuoteMeta("FROM employees ORDER BY id")).WillReturnRows(employeeRows())
	expectReportStats(mock)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT setting_key, setting_value FROM app_settings")).
		WillReturnRows(sqlmock.NewRows([]string{"setting_key", "setting_value"}).
			AddRow(db.SettingAIInsightsEnabled, "false"))

	rec := serve(h, httptest.NewRequest(http.MethodGet, "/report", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestSettings_UpdateAndFlash(t *testing.T) {
	app, h, mock := newTestApp(t, testConfig(), meanPredictor{}, nil)
	for _, args := range [][]any{
		{db.SettingSiteName, "Новый HR"},
		{db.SettingAIInsightsEnabled, "true"},
		{db.SettingInsightRowLimit, "10"},
		{db.SettingInsightSystemPrompt, "Кратко."},
	} {
		mock.ExpectExec(regexp.QuoteMeta("INSERT INTO app_settings")).
			WithArgs(args[0], args[1], "", sqlmock.AnyArg()).
			WillReturnResult(sqlmock.NewResult(0, 1))
	}

	rec := serve(h, postForm("/settings", url.Values{
		"site_name":                     {"Новый HR"},
		"ai_insights_enabled":           {"on"},
		"insight_row_limit":             {"10"},
		"insight_system_prompt_content": {" Кратко. "},
	}))
	require.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "Новый HR", app.SiteName())

	mock.ExpectQuery(regexp.QuoteMeta("SELECT setting_key, setting_value FROM app_settings")).
		WillReturnRows(sqlmock.NewRows([]string{"setting_key", "setting_value"}).
			AddRow(db.SettingSiteName, "Новый HR").
			AddRow(db.SettingInsightSystemPrompt, "Кратко."))
	req := httptest.NewRequest(http.MethodGet, "/settings", nil)
	for _, c := range rec.Result().Cookies() {
		req.AddCookie(c)
	}
	rec = serve(h, req)
	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, "Настройки успешно обновлены.")
	assert.Contains(t, body, "Сейчас используется: настройки приложения.")
}

func TestSettings_RejectsNegativeRowLimit(t *testing.T) {
	_, h, _ := newTestApp(t, testConfig(), meanPredictor{}, nil)

	rec := serve(h, postForm("/settings", url.Values{"insight_row_limit": {"-1"}}))
	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/settings", rec.Header().Get("Location"))
}

func TestSettings_RejectsEmptySiteName(t *testing.T) {
	app, h, mock := newTestApp(t, testConfig(), meanPredictor{}, nil)
	before := app.SiteName()

	rec := serve(h, postForm("/settings", url.Values{
		"site_name":         {"   "},
		"insight_row_limit": {"5"},
	}))
	require.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/settings", rec.Header().Get("Location"))
	assert.Equal(t, before, app.SiteName())
	assert.NoError(t, mock.ExpectationsWereMet())

	mock.ExpectQuery(regexp.QuoteMeta("SELECT setting_key, setting_value FROM app_settings")).
		WillReturnRows(sqlmock.NewRows([]string{"setting_key", "setting_value"}))
	req := httptest.NewRequest(http.MethodGet, "/settings", nil)
	for _, c := range rec.Result().Cookies() {
		req.AddCookie(c)
	}
	rec = serve(h, req)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Название сайта не может быть пустым.")
}

func TestHealthz(t *testing.T) {
	_, h, _ := newTestApp(t, testConfig(), meanPredictor{}, nil)

	rec := serve(h, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok","db":"ok","model":"LinearRegression"}`, rec.Body.String())
}

func TestStaticAndMetrics(t *testing.T) {
	_, h, _ := newTestApp(t, testConfig(), meanPredictor{}, nil)

	rec := serve(h, httptest.NewRequest(http.MethodGet, "/static/script.js", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "evaluateForm")

	rec = serve(h, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "hr_evaluator_")
}
