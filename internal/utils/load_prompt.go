// internal/utils/load_prompt.go
package utils

import (
	"fmt"
	"os"
	"strings"
)

// LoadSystemPrompt читает системный промпт AI-анализа из файла. Пустой файл - ошибка.
func LoadSystemPrompt(filePath string) (string, error) {
	content, err := os.ReadFile(filePath)
	if err != nil {
		return "", fmt.Errorf("ошибка чтения файла системного промпта '%s': %w", filePath, err)
	}
	prompt := strings.TrimSpace(string(content))
	if prompt == "" {
		return "", fmt.Errorf("файл системного промпта '%s' пуст", filePath)
	}
	return prompt, nil
}
