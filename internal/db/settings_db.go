// internal/db/settings_db.go
package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"
)

const (
	SettingSiteName            = "site_name"
	SettingAIInsightsEnabled   = "ai_insights_enabled"
	SettingInsightRowLimit     = "insight_row_limit"
	SettingInsightSystemPrompt = "insight_system_prompt_content"
)

// AppSetting определяет структуру для настройки приложения.
type AppSetting struct {
	Key         string    `json:"key"`
	Value       string    `json:"value"`
	Description string    `json:"description,omitempty"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// GetSetting извлекает одну настройку по ключу. Если настройки нет, возвращает nil, nil.
func GetSetting(ctx context.Context, key string) (*AppSetting, error) {
	if DB == nil {
		return nil, ErrNotInitialized
	}
	query := "SELECT setting_key, setting_value, description, updated_at FROM app_settings WHERE setting_key = ?"
	row := DB.QueryRowContext(ctx, query, key)
	setting := &AppSetting{}
	var value sql.NullString
	var description sql.NullString
	err := row.Scan(&setting.Key, &value, &description, &setting.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		slog.Error("Ошибка получения настройки по ключу", "key", key, "error", err)
		return nil, fmt.Errorf("ошибка получения настройки '%s': %w", key, err)
	}
	if value.Valid {
		setting.Value = value.String
	}
	if description.Valid {
		setting.Description = description.String
	}
	return setting, nil
}

// GetAllAppSettings извлекает все настройки приложения в виде карты.
func GetAllAppSettings(ctx context.Context) (map[string]string, error) {
	if DB == nil {
		return nil, ErrNotInitialized
	}
	rows, err := DB.QueryContext(ctx, "SELECT setting_key, setting_value FROM app_settings")
	if err != nil {
		slog.Error("Ошибка получения всех настроек приложения", "error", err)
		return nil, fmt.Errorf("ошибка получения всех настроек: %w", err)
	}
	defer rows.Close()

	settingsMap := make(map[string]string)
	for rows.Next() {
		var key string
		var value sql.NullString
		if err := rows.Scan(&key, &value); err != nil {
			slog.Error("Ошибка сканирования строки настройки", "error", err)
			continue
		}
		settingsMap[key] = value.String
	}
	if err = rows.Err(); err != nil {
		slog.Error("Ошибка итерации по строкам настроек", "error", err)
		return nil, fmt.Errorf("ошибка итерации настроек: %w", err)
	}
	return settingsMap, nil
}

// UpdateSetting обновляет или создает настройку. Пустое описание не затирает существующее.
func UpdateSetting(ctx context.Context, key string, value string, description ...string) error {
	if DB == nil {
		return ErrNotInitialized
	}

	desc := ""
	if len(description) > 0 {
		desc = description[0]
	}

	query := `
		INSERT INTO app_settings (setting_key, setting_value, description, updated_at)
		VALUES (?, ?, ?, ?)
		ON DUPLICATE KEY UPDATE
		setting_value = VALUES(setting_value),
		description = IF(VALUES(description) = '' AND description IS NOT NULL, description, VALUES(description)),
		updated_at = VALUES(updated_at)
	`
	_, err := DB.ExecContext(ctx, query, key, value, desc, time.Now())
	if err != nil {
		slog.Error("Ошибка обновления/вставки настройки", "key", key, "error", err)
		return fmt.Errorf("не удалось обновить/вставить настройку '%s': %w", key, err)
	}
	slog.Info("Настройка приложения обновлена/вставлена", "key", key)
	return nil
}

// BoolSetting читает настройку "true"/"false" из карты, def - если ключа нет или значение некорректно.
func BoolSetting(settings map[string]string, key string, def bool) bool {
	v, ok := settings[key]
	if !ok {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def
	}
	return b
}

func IntSetting(settings map[string]string, key string, def int) int {
	v, ok := settings[key]
	if !ok {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}

// SeedInitialSettings гарантирует наличие базовых настроек в БД.
// Вызывается после применения миграций.
func SeedInitialSettings() {
	slog.Info("Инициализация/проверка настроек приложения по умолчанию...")
	ctx := context.Background()

	defaultSettings := []struct {
		Key         string
		Value       string
		Description string
	}{
		{SettingSiteName, "HR Performance", "Имя приложения в заголовках страниц."},
		{SettingAIInsightsEnabled, "true", "Установите 'true' для AI-анализа сотрудников в отчете (нужен настроенный LLM провайдер)."},
		{SettingInsightRowLimit, "25", "Максимум строк отчета, для которых запрашивается AI-анализ."},
		{SettingInsightSystemPrompt, "", "Системный промпт для AI-анализа (приоритетнее файла из конфигурации)."},
	}

	for _, s := range defaultSettings {
		existingSetting, err := GetSetting(ctx, s.Key)
		if err != nil {
			slog.Error("Ошибка проверки существующей настройки при инициализации", "key", s.Key, "error", err)
			continue
		}
		if existingSetting != nil {
			continue
		}
		if err := UpdateSetting(ctx, s.Key, s.Value, s.Description); err != nil {
			slog.Error("Не удалось инициализировать настройку по умолчанию", "key", s.Key, "error", err)
		} else {
			slog.Info("Настройка по умолчанию установлена", "key", s.Key, "value", s.Value)
		}
	}
}
