// internal/handlers/routes.go
package handlers

import (
	"net/http"

	"hr-evaluator.kz/internal/metrics"
)

// Routes регистрирует маршруты приложения. Для остальных методов mux отвечает 405.
func (h *AppHandlers) Routes() *http.ServeMux {
	mux := http.NewServeMux()

	fs := http.FileServer(http.Dir(h.Config.StaticPath))
	mux.Handle("GET /static/", http.StripPrefix("/static/", fs))

	mux.HandleFunc("GET /{$}", h.IndexPageHandler)
	mux.HandleFunc("GET /add_employee", h.AddEmployeePageHandler)
	mux.HandleFunc("POST /add_employee", h.AddEmployeeHandler)
	mux.HandleFunc("GET /evaluate", h.EvaluatePageHandler)
	mux.HandleFunc("POST /evaluate", h.EvaluateHandler)
	mux.HandleFunc("GET /report", h.ReportPageHandler)
	mux.HandleFunc("GET /settings", h.SettingsPageHandler)
	mux.HandleFunc("POST /settings", h.UpdateSettingsHandler)

	mux.HandleFunc("GET /healthz", h.HealthzHandler)
	mux.Handle("GET /metrics", metrics.Handler())
	return mux
}
