// internal/config/config.go
package config

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const (
	ProviderNone   = "none"
	ProviderRemote = "remote"
	ProviderOpenAI = "openai"
	ProviderGemini = "gemini"

	DefaultFallbackText = "AI insight unavailable."
	DefaultTemperature  = 0.4
)

// EnvFile - путь к .env, который подгружается вне production.
var EnvFile = "configs/.env"

type RemoteLLMConfig struct {
	Provider              string   `yaml:"provider" env:"REMOTE_LLM_PROVIDER"`
	APIKey                string   `yaml:"api_key" env:"REMOTE_LLM_API_KEY"`
	APIUrl                string   `yaml:"api_url" env:"REMOTE_LLM_API_URL"`
	ModelName             string   `yaml:"model_name" env:"REMOTE_LLM_MODEL_NAME"`
	SystemPromptPath      string   `yaml:"system_prompt_path" env:"REMOTE_LLM_SYSTEM_PROMPT_PATH"`
	RequestTimeoutSeconds int      `yaml:"request_timeout_seconds"`
	MaxConcurrency        int      `yaml:"max_concurrency"`
	RequestsPerSecond     float64  `yaml:"requests_per_second"`
	MaxTokens             int      `yaml:"max_tokens"`
	Temperature           *float64 `yaml:"temperature"`
	FallbackText          string   `yaml:"fallback_text"`
}

type DatabaseConfig struct {
	DSN            string `yaml:"dsn" env:"DATABASE_DSN"`
	Host           string `yaml:"host" env:"DB_HOST"`
	Port           int    `yaml:"port" env:"DB_PORT"`
	User           string `yaml:"user" env:"DB_USER"`
	Password       string `yaml:"-" env:"DB_PASSWORD"`
	DBName         string `yaml:"dbname" env:"DB_NAME"`
	MigrationsPath string `yaml:"migrations_path" env:"MIGRATIONS_PATH"`
}

type ModelConfig struct {
	Path                   string `yaml:"path" env:"MODEL_PATH"`
	RescoreOnStart         bool   `yaml:"rescore_on_start" env:"MODEL_RESCORE_ON_START"`
	RescoreIntervalMinutes int    `yaml:"rescore_interval_minutes" env:"MODEL_RESCORE_INTERVAL_MINUTES"`
}

type AuthConfig struct {
	Username     string `yaml:"username" env:"HR_AUTH_USERNAME"`
	PasswordHash string `yaml:"-" env:"HR_AUTH_PASSWORD_HASH"`
}

type RateLimitConfig struct {
	RPS   float64 `yaml:"rps" env:"RATE_LIMIT_RPS"`
	Burst int     `yaml:"burst" env:"RATE_LIMIT_BURST"`
}

type Config struct {
	SiteName        string          `yaml:"site_name"`
	SiteDescription string          `yaml:"site_description"`
	CurrentYear     int             `yaml:"current_year"`
	BaseURL         string          `yaml:"base_url" env:"BASE_URL"`
	Port            int             `yaml:"port" env:"PORT"`
	AppEnv          string          `yaml:"app_env" env:"APP_ENV"`
	TemplatesPath   string          `yaml:"templates_path" env:"TEMPLATES_PATH"`
	StaticPath      string          `yaml:"static_path" env:"STATIC_PATH"`
	RemoteLLM       RemoteLLMConfig `yaml:"remote_llm"`
	Database        DatabaseConfig  `yaml:"database"`
	Model           ModelConfig     `yaml:"model"`
	Auth            AuthConfig      `yaml:"auth"`
	RateLimit       RateLimitConfig `yaml:"rate_limit"`
}

func (c *Config) IsProduction() bool {
	return c.AppEnv == "production"
}

// InsightsConfigured - задан ли провайдер для AI-анализа в отчете.
func (c *Config) InsightsConfigured() bool {
	return c.RemoteLLM.Provider != "" && c.RemoteLLM.Provider != ProviderNone
}

func (c RemoteLLMConfig) RequestTimeout() time.Duration {
	return time.Duration(c.RequestTimeoutSeconds) * time.Second
}

// TemperatureValue возвращает температуру генерации. Явный 0 сохраняется.
func (c RemoteLLMConfig) TemperatureValue() float64 {
	if c.Temperature == nil {
		return DefaultTemperature
	}
	return *c.Temperature
}

func LoadConfig(filename string) (*Config, error) {
	if os.Getenv("APP_ENV") != "production" {
		if err := godotenv.Load(EnvFile); err != nil {
			slog.Info(EnvFile+" не найден или ошибка загрузки, это ожидаемо для production или если переменные установлены системно.", "error", err)
		} else {
			slog.Info("Переменные окружения загружены из " + EnvFile)
		}
	}

	file, err := os.Open(filename)
	if os.IsNotExist(err) {
		return nil, fmt.Errorf("файл конфигурации не найден: %s", filename)
	}
	if err != nil {
		return nil, fmt.Errorf("ошибка открытия файла конфигурации '%s': %w", filename, err)
	}
	defer file.Close()

	var cfg Config
	if err := yaml.NewDecoder(file).Decode(&cfg); err != nil && err != io.EOF {
		return nil, fmt.Errorf("ошибка декодирования YAML из файла '%s': %w", filename, err)
	}

	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("ошибка чтения переменных окружения: %w", err)
	}

	applyDefaults(&cfg)
	if err := validate(&cfg); err != nil {
		return nil, err
	}

	slog.Info("Конфигурация загружена",
		"app_env", cfg.AppEnv,
		"base_url", cfg.BaseURL,
		"port", cfg.Port,
		"llm_provider", cfg.RemoteLLM.Provider,
		"model_path", cfg.Model.Path,
	)
	return &cfg, nil
}

func applyDefaults(cfg *Config) {
	if cfg.AppEnv == "" {
		cfg.AppEnv = "development"
	}
	if cfg.Port == 0 {
		cfg.Port = 8080
	}
	if cfg.SiteName == "" {
		cfg.SiteName = "HR Performance"
	}
	if cfg.CurrentYear == 0 {
		cfg.CurrentYear = time.Now().Year()
	}
	cfg.BaseURL = strings.TrimSuffix(cfg.BaseURL, "/")
	if cfg.BaseURL == "" {
		cfg.BaseURL = fmt.Sprintf("http://localhost:%d", cfg.Port)
	}
	if cfg.TemplatesPath == "" {
		cfg.TemplatesPath = "templates"
	}
	if cfg.StaticPath == "" {
		cfg.StaticPath = "static"
	}

	if cfg.Database.DSN != "" {
		cfg.Database.Host = ""
	}
	if cfg.Database.Port == 0 {
		cfg.Database.Port = 3306
	}
	if cfg.Database.MigrationsPath == "" {
		cfg.Database.MigrationsPath = "migrations"
	}

	if cfg.Model.Path == "" {
		cfg.Model.Path = "model/performance_model.json"
	}

	cfg.RemoteLLM.Provider = strings.ToLower(strings.TrimSpace(cfg.RemoteLLM.Provider))
	if cfg.RemoteLLM.Provider == "" {
		cfg.RemoteLLM.Provider = ProviderNone
	}
	if cfg.RemoteLLM.RequestTimeoutSeconds <= 0 {
		cfg.RemoteLLM.RequestTimeoutSeconds = 30
	}
	if cfg.RemoteLLM.MaxConcurrency <= 0 {
		cfg.RemoteLLM.MaxConcurrency = 4
	}
	if cfg.RemoteLLM.RequestsPerSecond <= 0 {
		cfg.RemoteLLM.RequestsPerSecond = 2
	}
	if cfg.RemoteLLM.MaxTokens <= 0 {
		cfg.RemoteLLM.MaxTokens = 256
	}
	if cfg.RemoteLLM.Temperature == nil {
		t := DefaultTemperature
		cfg.RemoteLLM.Temperature = &t
	}
	if cfg.RemoteLLM.FallbackText == "" {
		cfg.RemoteLLM.FallbackText = DefaultFallbackText
	}

	if cfg.Auth.Username == "" {
		cfg.Auth.Username = "hr"
	}
	if cfg.RateLimit.RPS <= 0 {
		cfg.RateLimit.RPS = 5
	}
	if cfg.RateLimit.Burst <= 0 {
		cfg.RateLimit.Burst = 20
	}
}

func validate(cfg *Config) error {
	isProduction := cfg.IsProduction()

	if isProduction && !strings.HasPrefix(cfg.BaseURL, "https://") {
		return fmt.Errorf("в production окружении BASE_URL должен начинаться с https://")
	}
	if cfg.Database.DSN == "" && cfg.Database.Host == "" {
		return fmt.Errorf("параметры подключения к БД (DATABASE_DSN или DB_HOST и др.) не заданы")
	}
	if cfg.Database.Host != "" {
		if cfg.Database.User == "" {
			return fmt.Errorf("DB_USER не задан для подключения к БД")
		}
		if cfg.Database.DBName == "" {
			return fmt.Errorf("DB_NAME не задан для подключения к БД")
		}
	}

	if t := cfg.RemoteLLM.TemperatureValue(); t < 0 || t > 2 {
		return fmt.Errorf("remote_llm.temperature должна быть в диапазоне [0, 2], получено %g", t)
	}

	switch cfg.RemoteLLM.Provider {
	case ProviderNone:
	case ProviderRemote:
		if cfg.RemoteLLM.APIUrl == "" {
			return fmt.Errorf("remote_llm.api_url (REMOTE_LLM_API_URL) не задан для провайдера remote")
		}
		fallthrough
	case ProviderOpenAI, ProviderGemini:
		if cfg.RemoteLLM.ModelName == "" {
			return fmt.Errorf("remote_llm.model_name (REMOTE_LLM_MODEL_NAME) не задан")
		}
		if cfg.RemoteLLM.APIKey == "" {
			if isProduction {
				return fmt.Errorf("REMOTE_LLM_API_KEY должен быть установлен в переменных окружения для production")
			}
			slog.Warn("REMOTE_LLM_API_KEY не установлен, AI-анализ в отчете будет возвращать заглушку", "provider", cfg.RemoteLLM.Provider)
		}
	default:
		return fmt.Errorf("неизвестный провайдер LLM: %q (допустимо: none, remote, openai, gemini)", cfg.RemoteLLM.Provider)
	}

	if cfg.Auth.PasswordHash == "" {
		if isProduction {
			return fmt.Errorf("HR_AUTH_PASSWORD_HASH должен быть установлен для production")
		}
		slog.Warn("HR_AUTH_PASSWORD_HASH не установлен! Доступ к приложению без аутентификации (ТОЛЬКО ДЛЯ РАЗРАБОТКИ).")
	}
	return nil
}

func InitLogger(appEnv string) {
	slog.SetDefault(NewLogger(os.Stdout, appEnv))
}

func NewLogger(w io.Writer, appEnv string) *slog.Logger {
	if appEnv == "development" {
		return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{
			Level:     slog.LevelDebug,
			AddSource: true,
		}))
	}
	return slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{
		Level:     slog.LevelInfo,
		AddSource: false,
	}))
}
