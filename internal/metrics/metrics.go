// internal/metrics/metrics.go
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "hr_evaluator"

// Registry - собственный реестр, чтобы /metrics отдавал только метрики приложения и рантайма.
var Registry = prometheus.NewRegistry()

var auto = promauto.With(Registry)

var (
	HTTPRequests = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "http_requests_total",
		Help:      "Total number of HTTP requests by route, method and status code",
	}, []string{"route", "method", "status_code"})

	HTTPRequestDuration = auto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "http_request_duration_seconds",
		Help:      "HTTP request duration in seconds",
		Buckets:   prometheus.DefBuckets,
	}, []string{"route", "method"})

	Predictions = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "predictions_total",
		Help:      "Number of performance score predictions by result",
	}, []string{"result"})

	InsightRequests = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "insight_requests_total",
		Help:      "AI insight generations by provider and outcome",
	}, []string{"provider", "outcome"})

	InsightDuration = auto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "insight_request_duration_seconds",
		Help:      "Duration of AI insight requests",
		Buckets:   []float64{0.25, 0.5, 1, 2, 5, 10, 20, 30, 60},
	}, []string{"provider"})

	RescoredEmployees = auto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "rescored_employees_total",
		Help:      "Employees whose stored predicted score was updated by background rescoring",
	})

	EmployeesCreated = auto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "employees_created_total",
		Help:      "Employees added through the web form",
	})

	EmployeesEvaluated = auto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "employees_evaluated_total",
		Help:      "Successful employee evaluations",
	})
)

func init() {
	Registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
}

// Handler отдает метрики реестра в формате Prometheus.
func Handler() http.Handler {
	return promhttp.HandlerFor(Registry, promhttp.HandlerOpts{Registry: Registry})
}
