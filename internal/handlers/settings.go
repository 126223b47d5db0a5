// internal/handlers/settings.go
package handlers

import (
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"hr-evaluator.kz/internal/db"
)

func (h *AppHandlers) SettingsPageHandler(w http.ResponseWriter, r *http.Request) {
	data := h.NewPageData(r)
	data.PageTitle = "Настройки"

	appSettings, err := db.GetAllAppSettings(r.Context())
	if err != nil {
		slog.Error("SettingsPageHandler: не удалось загрузить настройки приложения", "error", err)
		data.FlashError = "Ошибка загрузки текущих настроек."
		appSettings = make(map[string]string)
	}
	data.AppSettings = appSettings
	data.LLMProvider = h.Config.RemoteLLM.Provider

	switch {
	case strings.TrimSpace(appSettings[db.SettingInsightSystemPrompt]) != "":
		data.SystemPromptSrc = "настройки приложения"
	case h.Config.RemoteLLM.SystemPromptPath != "":
		data.SystemPromptSrc = "файл " + h.Config.RemoteLLM.SystemPromptPath
	default:
		data.SystemPromptSrc = "встроенный промпт"
	}

	h.RenderPage(w, r, "settings.html", data)
}

func (h *AppHandlers) UpdateSettingsHandler(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		slog.Error("UpdateSettingsHandler: ошибка парсинга формы", "error", err)
		h.SessionManager.Put(r.Context(), flashErrorKey, "Ошибка обработки данных формы.")
		http.Redirect(w, r, "/settings", http.StatusSeeOther)
		return
	}

	rowLimit := strings.TrimSpace(r.PostForm.Get(db.SettingInsightRowLimit))
	if n, err := strconv.Atoi(rowLimit); err != nil || n < 0 {
		h.SessionManager.Put(r.Context(), flashErrorKey, "Лимит строк для AI-анализа должен быть неотрицательным целым числом.")
		http.Redirect(w, r, "/settings", http.StatusSeeOther)
		return
	}

	siteName := strings.TrimSpace(r.PostForm.Get(db.SettingSiteName))
	if siteName == "" {
		h.SessionManager.Put(r.Context(), flashErrorKey, "Название сайта не может быть пустым.")
		http.Redirect(w, r, "/settings", http.StatusSeeOther)
		return
	}
	settingsToUpdate := []struct{ key, value string }{
		{db.SettingSiteName, siteName},
		{db.SettingAIInsightsEnabled, strconv.FormatBool(r.PostForm.Get(db.SettingAIInsightsEnabled) == "on")},
		{db.SettingInsightRowLimit, rowLimit},
		{db.SettingInsightSystemPrompt, strings.TrimSpace(r.PostForm.Get(db.SettingInsightSystemPrompt))},
	}

	var updateErrors []string
	for _, s := range settingsToUpdate {
		if err := db.UpdateSetting(r.Context(), s.key, s.value); err != nil {
			slog.Error("UpdateSettingsHandler: не удалось обновить настройку", "key", s.key, "error", err)
			updateErrors = append(updateErrors, fmt.Sprintf("Ошибка сохранения '%s'", s.key))
		}
	}

	if len(updateErrors) > 0 {
		h.SessionManager.Put(r.Context(), flashErrorKey, "Некоторые настройки не удалось сохранить: "+strings.Join(updateErrors, ", "))
	} else {
		h.SetSiteName(siteName)
		h.SessionManager.Put(r.Context(), flashSuccessKey, "Настройки успешно обновлены.")
	}
	http.Redirect(w, r, "/settings", http.StatusSeeOther)
}
