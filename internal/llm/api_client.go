// internal/llm/api_client.go
package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"hr-evaluator.kz/internal/config"
)

// Структура для сообщений в запросе к API
type APIRequestMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Структура тела запроса к API
type APIRequestBody struct {
	Model       string              `json:"model"`
	Messages    []APIRequestMessage `json:"messages"`
	MaxTokens   int                 `json:"max_tokens,omitempty"`
	Temperature *float64            `json:"temperature,omitempty"`
	Stream      bool                `json:"stream"`
}

type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// Ответ OpenAI-совместимого API (только нужные поля)
type APIResponseBody struct {
	Choices []struct {
		Message struct {
			Role    string `json:"role"`
			Content string `json:"content"`
		} `json:"message"`
		FinishReason string `json:"finish_reason"`
	} `json:"choices"`
	Usage Usage     `json:"usage"`
	Error *APIError `json:"error,omitempty"`
}

type APIError struct {
	Message string `json:"message"`
	Type    string `json:"type"`
	Code    string `json:"code"`
}

// RemoteClient обращается к OpenAI-совместимому chat completions API напрямую по HTTP.
type RemoteClient struct {
	cfg        config.RemoteLLMConfig
	httpClient *http.Client
}

func NewRemoteClient(cfg config.RemoteLLMConfig) *RemoteClient {
	return &RemoteClient{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: cfg.RequestTimeout()},
	}
}

// Generate отправляет системный и пользовательский промпт и возвращает текст первого варианта ответа.
func (c *RemoteClient) Generate(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	messages := []APIRequestMessage{}
	if systemPrompt != "" {
		messages = append(messages, APIRequestMessage{Role: "system", Content: systemPrompt})
	}
	messages = append(messages, APIRequestMessage{Role: "user", Content: userPrompt})

	temperature := c.cfg.TemperatureValue()
	requestBody := APIRequestBody{
		Model:       c.cfg.ModelName,
		Messages:    messages,
		Stream:      false,
		MaxTokens:   c.cfg.MaxTokens,
		Temperature: &temperature,
	}

	jsonData, err := json.Marshal(requestBody)
	if err != nil {
		return "", fmt.Errorf("ошибка кодирования запроса для LLM API: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.APIUrl, bytes.NewBuffer(jsonData))
	if err != nil {
		return "", fmt.Errorf("ошибка создания запроса к LLM API: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if c.cfg.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	}

	slog.Debug("Отправка запроса к Remote LLM API", "url", c.cfg.APIUrl, "model", c.cfg.ModelName)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
			return "", fmt.Errorf("LLM API не ответил вовремя или запрос был отменен (%w)", err)
		}
		return "", fmt.Errorf("ошибка отправки запроса к LLM API (%s): %w", c.cfg.APIUrl, err)
	}
	defer resp.Body.Close()

	bodyBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("ошибка чтения ответа от LLM API: %w", err)
	}

	var apiResp APIResponseBody
	if err := json.Unmarshal(bodyBytes, &apiResp); err != nil {
		if resp.StatusCode >= 400 {
			return "", fmt.Errorf("ошибка от LLM API: статус %d, тело: %s", resp.StatusCode, truncate(string(bodyBytes), 200))
		}
		return "", fmt.Errorf("ошибка декодирования JSON ответа от LLM API: %w", err)
	}

	if apiResp.Error != nil {
		return "", fmt.Errorf("ошибка LLM API: %s (%s)", apiResp.Error.Message, apiResp.Error.Type)
	}
	if resp.StatusCode >= 400 {
		return "", fmt.Errorf("ошибка LLM API: статус %d", resp.StatusCode)
	}
	if len(apiResp.Choices) == 0 || apiResp.Choices[0].Message.Content == "" {
		return "", errors.New("получен пустой ответ от LLM API")
	}

	aiResponse := apiResp.Choices[0].Message.Content
	slog.Debug("Сгенерирован ответ Remote LLM", "response_length", len(aiResponse), "total_tokens", apiResp.Usage.TotalTokens)
	return aiResponse, nil
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "…"
}
