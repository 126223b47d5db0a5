// cmd/server/main.go
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/alexedwards/scs/mysqlstore"
	"github.com/alexedwards/scs/v2"

	"hr-evaluator.kz/internal/config"
	"hr-evaluator.kz/internal/db"
	"hr-evaluator.kz/internal/handlers"
	"hr-evaluator.kz/internal/llm"
	"hr-evaluator.kz/internal/middleware"
	"hr-evaluator.kz/internal/scoring"
)

func main() {
	configPath := "configs/config.yaml"
	if p := os.Getenv("CONFIG_PATH"); p != "" {
		configPath = p
	}
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Критическая ошибка: не удалось загрузить конфигурацию: %v\n", err)
		os.Exit(1)
	}

	config.InitLogger(cfg.AppEnv)
	slog.Info("Запуск сервера HR Performance...", "app_env", cfg.AppEnv)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	predictor, err := scoring.LoadPredictor(cfg.Model.Path)
	if err != nil {
		slog.Error("Критическая ошибка: не удалось загрузить модель. Обучите ее командой 'trainer compare'.", "path", cfg.Model.Path, "error", err)
		os.Exit(1)
	}

	if err := db.InitDB(cfg); err != nil {
		slog.Error("Критическая ошибка: не удалось инициализировать базу данных", "error", err)
		os.Exit(1)
	}
	defer db.DB.Close()
	slog.Info("База данных успешно инициализирована и миграции применены.")

	llmClient, err := llm.NewClient(ctx, cfg.RemoteLLM)
	if err != nil {
		slog.Error("Критическая ошибка: не удалось создать LLM клиента", "provider", cfg.RemoteLLM.Provider, "error", err)
		os.Exit(1)
	}
	var insights *llm.InsightService
	if llmClient != nil {
		insights = llm.NewInsightService(llmClient, cfg.RemoteLLM, func(ctx context.Context) string {
			s, err := db.GetSetting(ctx, db.SettingInsightSystemPrompt)
			if err != nil || s == nil {
				return ""
			}
			return s.Value
		})
		slog.Info("AI-анализ в отчете включен", "provider", cfg.RemoteLLM.Provider, "model", cfg.RemoteLLM.ModelName)
	} else {
		slog.Info("LLM провайдер не настроен, AI-анализ в отчете отключен.")
	}

	rescorer := scoring.NewRescorer(predictor)
	if cfg.Model.RescoreOnStart {
		if n, err := rescorer.Run(ctx); err != nil {
			slog.Error("Ошибка пересчета оценок при старте", "error", err)
		} else {
			slog.Info("Пересчет оценок при старте завершен", "updated", n)
		}
	}
	if cfg.Model.RescoreIntervalMinutes > 0 {
		rescorer.Start(ctx, time.Duration(cfg.Model.RescoreIntervalMinutes)*time.Minute)
	}

	sessionManager := scs.New()
	sessionManager.Store = mysqlstore.New(db.DB)
	sessionManager.Lifetime = 12 * time.Hour
	sessionManager.Cookie.Name = "hr_session"
	sessionManager.Cookie.HttpOnly = true
	sessionManager.Cookie.Persist = true
	sessionManager.Cookie.SameSite = http.SameSiteLaxMode
	sessionManager.Cookie.Secure = cfg.IsProduction()
	sessionManager.Cookie.Path = "/"
	slog.Info("Менеджер сессий инициализирован", "store", "mysqlstore", "lifetime", sessionManager.Lifetime, "secure_cookie", sessionManager.Cookie.Secure)

	appHandlers, err := handlers.NewAppHandlers(cfg, sessionManager, predictor, insights)
	if err != nil {
		slog.Error("Критическая ошибка: не удалось инициализировать обработчики страниц", "error", err)
		os.Exit(1)
	}
	if s, err := db.GetSetting(ctx, db.SettingSiteName); err == nil && s != nil {
		appHandlers.SetSiteName(s.Value)
	}

	routes := appHandlers.Routes()

	limiter := middleware.NewIPRateLimiter(cfg.RateLimit.RPS, cfg.RateLimit.Burst)
	limiter.StartCleanup(ctx, 5*time.Minute)

	var handler http.Handler = middleware.NoSurfMiddleware(routes, cfg.IsProduction(), "/healthz", "/metrics")
	handler = sessionManager.LoadAndSave(handler)
	handler = middleware.RequireBasicAuth(cfg.Auth.Username, cfg.Auth.PasswordHash, "/healthz", "/metrics")(handler)
	handler = limiter.Middleware(handler)
	handler = middleware.RequestLogger(routes)(handler)

	addr := fmt.Sprintf(":%d", cfg.Port)
	server := &http.Server{
		Addr:         addr,
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 120 * time.Second,
		IdleTimeout:  240 * time.Second,
	}

	go func() {
		slog.Info("Сервер HR Performance запущен и слушает", "address", fmt.Sprintf("http://localhost%s", addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("Критическая ошибка: не удалось запустить HTTP-сервер", "address", addr, "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	slog.Info("Получен сигнал остановки, завершаем работу сервера...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		slog.Error("Ошибка при остановке HTTP-сервера", "error", err)
	}
	slog.Info("Сервер остановлен.")
}
