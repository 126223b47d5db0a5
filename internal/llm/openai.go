// internal/llm/openai.go
package llm

import (
	"context"
	"errors"
	"fmt"
	"math"
	"net/http"

	"github.com/sashabaranov/go-openai"

	"hr-evaluator.kz/internal/config"
)

type OpenAIClient struct {
	client      *openai.Client
	model       string
	maxTokens   int
	temperature float32
}

// NewOpenAIClient создает клиента go-openai. APIUrl, если задан, заменяет базовый адрес
// (например, для OpenAI-совместимых шлюзов).
func NewOpenAIClient(cfg config.RemoteLLMConfig) *OpenAIClient {
	oc := openai.DefaultConfig(cfg.APIKey)
	if cfg.APIUrl != "" {
		oc.BaseURL = cfg.APIUrl
	}
	oc.HTTPClient = &http.Client{Timeout: cfg.RequestTimeout()}

	model := cfg.ModelName
	if model == "" {
		model = openai.GPT4oMini
	}
	// go-openai опускает нулевую температуру, поэтому 0 передается как минимальное положительное значение.
	temperature := float32(cfg.TemperatureValue())
	if temperature == 0 {
		temperature = math.SmallestNonzeroFloat32
	}
	return &OpenAIClient{
		client:      openai.NewClientWithConfig(oc),
		model:       model,
		maxTokens:   cfg.MaxTokens,
		temperature: temperature,
	}
}

func (c *OpenAIClient) Generate(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	messages := make([]openai.ChatCompletionMessage, 0, 2)
	if systemPrompt != "" {
		messages = append(messages, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleSystem, Content: systemPrompt})
	}
	messages = append(messages, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleUser, Content: userPrompt})

	resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       c.model,
		Messages:    messages,
		MaxTokens:   c.maxTokens,
		Temperature: c.temperature,
	})
	if err != nil {
		return "", fmt.Errorf("ошибка запроса к OpenAI: %w", err)
	}
	if len(resp.Choices) == 0 || resp.Choices[0].Message.Content == "" {
		return "", errors.New("получен пустой ответ от OpenAI")
	}
	return resp.Choices[0].Message.Content, nil
}
