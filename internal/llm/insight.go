// internal/llm/insight.go
package llm

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"hr-evaluator.kz/internal/config"
	"hr-evaluator.kz/internal/metrics"
	"hr-evaluator.kz/internal/models"
	"hr-evaluator.kz/internal/utils"
)

const (
	circuitBreakerThreshold = 5
	circuitBreakerTimeout   = time.Minute
)

// DefaultSystemPrompt используется, если промпт не задан ни в настройках, ни в файле.
const DefaultSystemPrompt = "Ты - HR-аналитик. По метрикам сотрудника (шкала 1-10) и прогнозной оценке " +
	"модели дай краткий вывод на русском языке: 2-3 предложения о сильных сторонах и одной зоне роста. " +
	"Не повторяй цифры без необходимости, не используй разметку."

// InsightService генерирует короткий AI-анализ по каждому сотруднику отчета.
// Любая ошибка превращается в текст-заглушку, ошибки наружу не возвращаются.
type InsightService struct {
	client       Client
	provider     string
	fallback     string
	timeout      time.Duration
	concurrency  int
	limiter      *rate.Limiter
	promptSource func(ctx context.Context) string

	mu                  sync.Mutex
	consecutiveFailures int
	circuitOpenUntil    time.Time
	now                 func() time.Time
}

// NewInsightService собирает сервис. promptSource может быть nil: тогда используется
// файл из конфигурации или DefaultSystemPrompt.
func NewInsightService(client Client, cfg config.RemoteLLMConfig, promptSource func(ctx context.Context) string) *InsightService {
	fallback := cfg.FallbackText
	if fallback == "" {
		fallback = config.DefaultFallbackText
	}
	concurrency := cfg.MaxConcurrency
	if concurrency <= 0 {
		concurrency = 1
	}
	limit := rate.Inf
	if cfg.RequestsPerSecond > 0 {
		limit = rate.Limit(cfg.RequestsPerSecond)
	}
	timeout := cfg.RequestTimeout()
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	s := &InsightService{
		client:      client,
		provider:    cfg.Provider,
		fallback:    fallback,
		timeout:     timeout,
		concurrency: concurrency,
		limiter:     rate.NewLimiter(limit, concurrency),
		now:         time.Now,
	}

	filePrompt := DefaultSystemPrompt
	if cfg.SystemPromptPath != "" {
		if p, err := utils.LoadSystemPrompt(cfg.SystemPromptPath); err != nil {
			slog.Warn("Не удалось загрузить системный промпт AI-анализа, используется встроенный", "path", cfg.SystemPromptPath, "error", err)
		} else {
			filePrompt = p
		}
	}
	s.promptSource = func(ctx context.Context) string {
		if promptSource != nil {
			if p := strings.TrimSpace(promptSource(ctx)); p != "" {
				return p
			}
		}
		return filePrompt
	}
	return s
}

// BuildPrompt формирует пользовательский промпт по данным сотрудника.
func BuildPrompt(e *models.Employee) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Сотрудник: %s\n", e.Name)
	fmt.Fprintf(&b, "Отдел: %s\n", e.Department)
	fmt.Fprintf(&b, "Посещаемость: %.1f\n", e.Attendance)
	fmt.Fprintf(&b, "Эффективность выполнения задач: %.1f\n", e.TaskEfficiency)
	fmt.Fprintf(&b, "Командная работа: %.1f\n", e.Teamwork)
	fmt.Fprintf(&b, "Инициативность: %.1f\n", e.Initiative)
	fmt.Fprintf(&b, "Качество проектов: %.1f\n", e.ProjectQuality)
	fmt.Fprintf(&b, "Прогнозная оценка эффективности: %.2f", e.PredictedScore)
	return b.String()
}

// Generate возвращает анализ для одного сотрудника или заглушку.
func (s *InsightService) Generate(ctx context.Context, e *models.Employee) string {
	return s.generate(ctx, s.promptSource(ctx), e)
}

func (s *InsightService) generate(ctx context.Context, systemPrompt string, e *models.Employee) string {
	if s.client == nil {
		return s.fallback
	}
	if s.circuitOpen() {
		metrics.InsightRequests.WithLabelValues(s.provider, "circuit_open").Inc()
		return s.fallback
	}

	callCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	if err := s.limiter.Wait(callCtx); err != nil {
		metrics.InsightRequests.WithLabelValues(s.provider, "rate_limited").Inc()
		slog.Warn("AI-анализ пропущен: превышено ожидание лимита запросов", "employee_id", e.ID, "error", err)
		return s.fallback
	}

	start := time.Now()
	text, err := s.client.Generate(callCtx, systemPrompt, BuildPrompt(e))
	metrics.InsightDuration.WithLabelValues(s.provider).Observe(time.Since(start).Seconds())
	text = strings.TrimSpace(text)
	if err == nil && text == "" {
		err = errors.New("пустой ответ")
	}
	if err != nil {
		s.recordFailure()
		metrics.InsightRequests.WithLabelValues(s.provider, "error").Inc()
		slog.Error("Ошибка генерации AI-анализа", "employee_id", e.ID, "provider", s.provider, "error", err)
		return s.fallback
	}

	s.recordSuccess()
	metrics.InsightRequests.WithLabelValues(s.provider, "ok").Inc()
	return text
}

// GenerateAll запрашивает анализ для всех сотрудников с ограничением параллельности.
// Результат всегда содержит запись для каждого ID.
func (s *InsightService) GenerateAll(ctx context.Context, employees []*models.Employee) map[int64]string {
	out := make(map[int64]string, len(employees))
	if len(employees) == 0 {
		return out
	}
	systemPrompt := s.promptSource(ctx)

	var mu sync.Mutex
	var g errgroup.Group
	g.SetLimit(s.concurrency)
	for _, e := range employees {
		g.Go(func() error {
			text := s.generate(ctx, systemPrompt, e)
			mu.Lock()
			out[e.ID] = text
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()
	return out
}

func (s *InsightService) circuitOpen() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.now().Before(s.circuitOpenUntil)
}

func (s *InsightService) recordFailure() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.consecutiveFailures++
	if s.consecutiveFailures >= circuitBreakerThreshold {
		s.circuitOpenUntil = s.now().Add(circuitBreakerTimeout)
		s.consecutiveFailures = 0
		slog.Warn("AI-анализ временно отключен после серии ошибок", "open_until", s.circuitOpenUntil)
	}
}

func (s *InsightService) recordSuccess() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.consecutiveFailures = 0
}
