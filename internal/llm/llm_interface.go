// internal/llm/llm_interface.go
package llm

import (
	"context"
	"fmt"
	"log/slog"

	"hr-evaluator.kz/internal/config"
)

// Client генерирует текст по системному и пользовательскому промпту.
type Client interface {
	Generate(ctx context.Context, systemPrompt, userPrompt string) (string, error)
}

// ClientFunc позволяет использовать обычную функцию как Client.
type ClientFunc func(ctx context.Context, systemPrompt, userPrompt string) (string, error)

func (f ClientFunc) Generate(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	return f(ctx, systemPrompt, userPrompt)
}

// unavailableClient отвечает ошибкой создания на каждый запрос.
func unavailableClient(cause error) Client {
	return ClientFunc(func(context.Context, string, string) (string, error) {
		return "", fmt.Errorf("LLM провайдер недоступен: %w", cause)
	})
}

// NewClient создает клиента выбранного провайдера. Для "none" возвращает nil без ошибки.
func NewClient(ctx context.Context, cfg config.RemoteLLMConfig) (Client, error) {
	switch cfg.Provider {
	case "", config.ProviderNone:
		return nil, nil
	case config.ProviderRemote:
		return NewRemoteClient(cfg), nil
	case config.ProviderOpenAI:
		return NewOpenAIClient(cfg), nil
	case config.ProviderGemini:
		c, err := NewGeminiClient(ctx, cfg)
		if err != nil {
			slog.Warn("Клиент Gemini не создан, AI-анализ будет возвращать заглушку", "error", err)
			return unavailableClient(err), nil
		}
		return c, nil
	default:
		return nil, fmt.Errorf("неизвестный LLM провайдер %q", cfg.Provider)
	}
}
