package config

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoadConfig_DefaultsAndEnvOverrides(t *testing.T) {
	EnvFile = filepath.Join(t.TempDir(), "missing.env")
	path := writeConfig(t, `
site_name: "HR Test"
port: 9090
database:
  host: db.local
  user: hr
  dbname: hr_db
remote_llm:
  provider: OpenAI
  model_name: gpt-4o-mini
`)
	t.Setenv("DB_PASSWORD", "secret")
	t.Setenv("DB_HOST", "mysql.internal")
	t.Setenv("REMOTE_LLM_API_KEY", "key-123")

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, "HR Test", cfg.SiteName)
	assert.Equal(t, 9090, cfg.Port)
	assert.Equal(t, "development", cfg.AppEnv)
	assert.Equal(t, "http://localhost:9090", cfg.BaseURL)
	assert.Equal(t, "mysql.internal", cfg.Database.Host)
	assert.Equal(t, "secret", cfg.Database.Password)
	assert.Equal(t, 3306, cfg.Database.Port)
	assert.Equal(t, "migrations", cfg.Database.MigrationsPath)
	assert.Equal(t, ProviderOpenAI, cfg.RemoteLLM.Provider)
	assert.Equal(t, "key-123", cfg.RemoteLLM.APIKey)
	assert.Equal(t, DefaultFallbackText, cfg.RemoteLLM.FallbackText)
	assert.Equal(t, "model/performance_model.json", cfg.Model.Path)
	assert.True(t, cfg.InsightsConfigured())
}

func TestLoadConfig_DSNDisablesHost(t *testing.T) {
	EnvFile = filepath.Join(t.TempDir(), "missing.env")
	path := writeConfig(t, `
database:
  host: db.local
`)
	t.Setenv("DATABASE_DSN", "hr:pw@tcp(db:3306)/hr?parseTime=true")

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Empty(t, cfg.Database.Host)
	assert.Equal(t, "hr:pw@tcp(db:3306)/hr?parseTime=true", cfg.Database.DSN)
	assert.False(t, cfg.InsightsConfigured())
}

func TestLoadConfig_Errors(t *testing.T) {
	EnvFile = filepath.Join(t.TempDir(), "missing.env")

	tests := []struct {
		name    string
		yaml    string
		env     map[string]string
		wantErr string
	}{
		{
			name:    "no database",
			yaml:    "port: 8080\n",
			wantErr: "DATABASE_DSN",
		},
		{
			name:    "host without user",
			yaml:    "database:\n  host: db\n  dbname: hr\n",
			wantErr: "DB_USER",
		},
		{
			name:    "unknown provider",
			yaml:    "database:\n  dsn: x\nremote_llm:\n  provider: claude-local\n",
			wantErr: "неизвестный провайдер",
		},
		{
			name:    "remote without url",
			yaml:    "database:\n  dsn: x\nremote_llm:\n  provider: remote\n  model_name: m\n",
			wantErr: "api_url",
		},
		{
			name:    "negative temperature",
			yaml:    "database:\n  dsn: x\nremote_llm:\n  temperature: -0.5\n",
			wantErr: "temperature",
		},
		{
			name:    "production requires https",
			yaml:    "base_url: http://hr.local\ndatabase:\n  dsn: x\n",
			env:     map[string]string{"APP_ENV": "production"},
			wantErr: "https://",
		},
		{
			name:    "production requires auth hash",
			yaml:    "base_url: https://hr.local\ndatabase:\n  dsn: x\n",
			env:     map[string]string{"APP_ENV": "production"},
			wantErr: "HR_AUTH_PASSWORD_HASH",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			_, err := LoadConfig(writeConfig(t, tt.yaml))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestLoadConfig_Temperature(t *testing.T) {
	EnvFile = filepath.Join(t.TempDir(), "missing.env")

	cfg, err := LoadConfig(writeConfig(t, "database:\n  dsn: x\n"))
	require.NoError(t, err)
	require.NotNil(t, cfg.RemoteLLM.Temperature)
	assert.Equal(t, DefaultTemperature, cfg.RemoteLLM.TemperatureValue())

	cfg, err = LoadConfig(writeConfig(t, "database:\n  dsn: x\nremote_llm:\n  temperature: 0\n"))
	require.NoError(t, err)
	assert.Equal(t, 0.0, cfg.RemoteLLM.TemperatureValue())

	assert.Equal(t, DefaultTemperature, RemoteLLMConfig{}.TemperatureValue())
}

func TestLoadConfig_MissingFile(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "не найден")
}

func TestNewLogger(t *testing.T) {
	var buf bytes.Buffer
	NewLogger(&buf, "production").Info("hello", "k", "v")
	assert.Contains(t, buf.String(), `"msg":"hello"`)

	buf.Reset()
	NewLogger(&buf, "development").Debug("dbg")
	assert.Contains(t, buf.String(), "msg=dbg")
}
