// internal/handlers/pages.go
package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"html/template"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/alexedwards/scs/v2"
	"github.com/justinas/nosurf"

	"hr-evaluator.kz/internal/config"
	"hr-evaluator.kz/internal/db"
	"hr-evaluator.kz/internal/llm"
	"hr-evaluator.kz/internal/middleware"
	"hr-evaluator.kz/internal/models"
	"hr-evaluator.kz/internal/scoring"
)

const (
	flashSuccessKey = "flash_success"
	flashErrorKey   = "flash_error"
)

type PageData struct {
	SiteName        string
	SiteDescription string
	CurrentYear     int
	BaseURL         string
	CurrentPath     string
	CSRFToken       string
	RequestID       string
	PageTitle       string
	FlashSuccess    string
	FlashError      string
	Errors          url.Values
	FormValues      url.Values
	Model           scoring.ModelInfo

	// Оценка
	Employees        []models.EmployeeRef
	SelectedEmployee *models.Employee

	// Отчет
	Rows            []ReportRow
	Stats           *db.ReportStats
	InsightsShown   bool
	InsightRowLimit int

	// Настройки
	AppSettings     map[string]string
	LLMProvider     string
	SystemPromptSrc string
}

type AppHandlers struct {
	Config         *config.Config
	BaseTmpl       *template.Template
	PagesPath      string
	SessionManager *scs.SessionManager
	Predictor      scoring.Predictor
	// Insights равен nil, если LLM провайдер не настроен.
	Insights *llm.InsightService

	mu       sync.RWMutex
	siteName string
}

func parseBaseTemplates(templatesDir, baseFilename, appBaseURL string) (*template.Template, error) {
	baseFile := filepath.Join(templatesDir, baseFilename)
	if _, err := os.Stat(baseFile); os.IsNotExist(err) {
		return nil, fmt.Errorf("базовый шаблон '%s' не найден в '%s'", baseFilename, templatesDir)
	}

	partsDir := filepath.Join(templatesDir, "parts")
	partFiles, err := filepath.Glob(filepath.Join(partsDir, "*.html"))
	if err != nil {
		return nil, fmt.Errorf("ошибка поиска частичных шаблонов в '%s': %w", partsDir, err)
	}

	funcMap := template.FuncMap{
		"add":       func(a, b int) int { return a + b },
		"hasPrefix": strings.HasPrefix,
		"base_url":  func() string { return strings.TrimSuffix(appBaseURL, "/") },
		"score":     func(v float64) string { return fmt.Sprintf("%.2f", v) },
		"date":      func(t time.Time) string { return t.Format("02.01.2006") },
	}

	tmpl, err := template.New(filepath.Base(baseFile)).Funcs(funcMap).ParseFiles(baseFile)
	if err != nil {
		return nil, fmt.Errorf("ошибка парсинга базового шаблона '%s': %w", baseFile, err)
	}
	if len(partFiles) > 0 {
		tmpl, err = tmpl.ParseFiles(partFiles...)
		if err != nil {
			return nil, fmt.Errorf("ошибка парсинга частичных шаблонов из '%s': %w", partsDir, err)
		}
	}
	slog.Info("Базовый шаблон и частичные шаблоны успешно загружены", "base_template", baseFile, "parts_dir", partsDir)
	return tmpl, nil
}

func NewAppHandlers(cfg *config.Config, sm *scs.SessionManager, predictor scoring.Predictor, insights *llm.InsightService) (*AppHandlers, error) {
	baseTmpl, err := parseBaseTemplates(cfg.TemplatesPath, "base.html", cfg.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse base templates: %w", err)
	}
	if cfg.CurrentYear == 0 {
		cfg.CurrentYear = time.Now().Year()
	}
	return &AppHandlers{
		Config:         cfg,
		BaseTmpl:       baseTmpl,
		PagesPath:      filepath.Join(cfg.TemplatesPath, "pages"),
		SessionManager: sm,
		Predictor:      predictor,
		Insights:       insights,
		siteName:       cfg.SiteName,
	}, nil
}

// SetSiteName применяет настройку site_name без перезапуска.
func (h *AppHandlers) SetSiteName(name string) {
	name = strings.TrimSpace(name)
	if name == "" {
		return
	}
	h.mu.Lock()
	h.siteName = name
	h.mu.Unlock()
}

func (h *AppHandlers) SiteName() string {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.siteName
}

func (h *AppHandlers) NewPageData(r *http.Request) *PageData {
	ctx := r.Context()
	return &PageData{
		SiteName:        h.SiteName(),
		SiteDescription: h.Config.SiteDescription,
		CurrentYear:     h.Config.CurrentYear,
		BaseURL:         strings.TrimSuffix(h.Config.BaseURL, "/"),
		CurrentPath:     r.URL.Path,
		CSRFToken:       nosurf.Token(r),
		RequestID:       middleware.GetRequestID(ctx),
		FlashSuccess:    h.SessionManager.PopString(ctx, flashSuccessKey),
		FlashError:      h.SessionManager.PopString(ctx, flashErrorKey),
		Errors:          url.Values{},
		FormValues:      url.Values{},
		Model:           h.Predictor.ModelInfo(),
	}
}

func (h *AppHandlers) RenderPage(w http.ResponseWriter, r *http.Request, pageName string, data *PageData) {
	h.render(w, r, http.StatusOK, pageName, data)
}

// render собирает страницу в буфер, чтобы ошибка шаблона не оставляла наполовину отданный ответ.
func (h *AppHandlers) render(w http.ResponseWriter, r *http.Request, status int, pageName string, data *PageData) {
	if data == nil {
		data = h.NewPageData(r)
	}
	if data.PageTitle == "" {
		data.PageTitle = data.SiteName
	}

	pagePath := filepath.Join(h.PagesPath, pageName)
	if _, err := os.Stat(pagePath); os.IsNotExist(err) {
		slog.Error("Файл шаблона страницы не найден", "page", pageName, "path", pagePath)
		http.Error(w, "Внутренняя ошибка сервера (шаблон страницы)", http.StatusInternalServerError)
		return
	}

	tmpl, err := h.BaseTmpl.Clone()
	if err != nil {
		slog.Error("Не удалось клонировать базовый шаблон", "error", err)
		http.Error(w, "Внутренняя ошибка сервера", http.StatusInternalServerError)
		return
	}
	tmpl, err = tmpl.ParseFiles(pagePath)
	if err != nil {
		slog.Error("Не удалось загрузить шаблон страницы", "page", pageName, "path", pagePath, "error", err)
		http.Error(w, "Внутренняя ошибка сервера", http.StatusInternalServerError)
		return
	}

	var buf bytes.Buffer
	if err := tmpl.ExecuteTemplate(&buf, "base.html", data); err != nil {
		slog.Error("Ошибка выполнения шаблона", "page", pageName, "error", err, "request_id", data.RequestID)
		http.Error(w, "Внутренняя ошибка сервера", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("X-Content-Type-Options", "nosniff")
	w.WriteHeader(status)
	_, _ = buf.WriteTo(w)
}

func (h *AppHandlers) IndexPageHandler(w http.ResponseWriter, r *http.Request) {
	data := h.NewPageData(r)
	data.PageTitle = "Оценка эффективности сотрудников"
	h.RenderPage(w, r, "index.html", data)
}

// HealthzHandler проверяет соединение с БД.
func (h *AppHandlers) HealthzHandler(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	resp := map[string]string{"status": "ok", "db": "ok", "model": h.Predictor.ModelInfo().Name}
	status := http.StatusOK
	if err := db.Ping(ctx); err != nil {
		slog.Warn("Healthz: БД недоступна", "error", err)
		resp["status"] = "degraded"
		resp["db"] = err.Error()
		status = http.StatusServiceUnavailable
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(resp)
}
