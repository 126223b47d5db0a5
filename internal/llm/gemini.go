// internal/llm/gemini.go
package llm

import (
	"context"
	"errors"
	"fmt"

	"google.golang.org/genai"

	"hr-evaluator.kz/internal/config"
)

const defaultGeminiModel = "gemini-2.5-flash"

type GeminiClient struct {
	client      *genai.Client
	model       string
	maxTokens   int32
	temperature float32
}

func NewGeminiClient(ctx context.Context, cfg config.RemoteLLMConfig) (*GeminiClient, error) {
	cc := &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	}
	if cfg.APIUrl != "" {
		cc.HTTPOptions = genai.HTTPOptions{BaseURL: cfg.APIUrl}
	}
	client, err := genai.NewClient(ctx, cc)
	if err != nil {
		return nil, fmt.Errorf("не удалось создать клиента Gemini: %w", err)
	}

	model := cfg.ModelName
	if model == "" {
		model = defaultGeminiModel
	}
	return &GeminiClient{
		client:      client,
		model:       model,
		maxTokens:   int32(cfg.MaxTokens),
		temperature: float32(cfg.TemperatureValue()),
	}, nil
}

func (c *GeminiClient) Generate(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	gc := &genai.GenerateContentConfig{
		Temperature:     genai.Ptr(c.temperature),
		MaxOutputTokens: c.maxTokens,
	}
	if systemPrompt != "" {
		gc.SystemInstruction = genai.NewContentFromText(systemPrompt, genai.RoleUser)
	}

	resp, err := c.client.Models.GenerateContent(ctx, c.model, genai.Text(userPrompt), gc)
	if err != nil {
		return "", fmt.Errorf("ошибка запроса к Gemini: %w", err)
	}
	if resp == nil {
		return "", errors.New("Gemini вернул пустой ответ")
	}
	text := resp.Text()
	if text == "" {
		return "", errors.New("ответ Gemini не содержит текста")
	}
	return text, nil
}
