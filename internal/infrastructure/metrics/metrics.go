package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the service's prometheus collectors on a private registry
type Metrics struct {
	registry *prometheus.Registry

	requestsTotal   *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec

	persistTotal    *prometheus.CounterVec
	persistDuration *prometheus.HistogramVec

	tasksTotal     prometheus.Gauge
	tasksCompleted prometheus.Gauge
	tasksOverdue   prometheus.Gauge
}

// New creates and registers every collector
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		requestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "path", "status"},
		),
		requestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "path"},
		),
		persistTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "todo_persist_total",
				Help: "Task list writes to the persistence backend",
			},
			[]string{"backend", "result"},
		),
		persistDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "todo_persist_duration_seconds",
				Help:    "Task list write duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"backend"},
		),
		tasksTotal: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "todo_tasks_total",
			Help: "Tasks in the active list",
		}),
		tasksCompleted: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "todo_tasks_completed",
			Help: "Completed tasks in the active list",
		}),
		tasksOverdue: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "todo_tasks_overdue",
			Help: "Tasks in the active list whose due instant has passed",
		}),
	}

	m.registry.MustRegister(
		m.requestsTotal,
		m.requestDuration,
		m.persistTotal,
		m.persistDuration,
		m.tasksTotal,
		m.tasksCompleted,
		m.tasksOverdue,
	)

	return m
}

// Registry exposes the registry for tests and extra collectors
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Middleware records request counts and latencies per route
func (m *Metrics) Middleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()

			err := next(c)

			status := c.Response().Status
			if he, ok := err.(*echo.HTTPError); ok {
				status = he.Code
			}

			m.requestsTotal.WithLabelValues(
				c.Request().Method,
				c.Path(),
				strconv.Itoa(status),
			).Inc()

			m.requestDuration.WithLabelValues(
				c.Request().Method,
				c.Path(),
			).Observe(time.Since(start).Seconds())

			return err
		}
	}
}

// Handler serves the registry in the prometheus text format
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// ObservePersist counts one persistence attempt
func (m *Metrics) ObservePersist(backend string, duration time.Duration, err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	m.persistTotal.WithLabelValues(backend, result).Inc()
	m.persistDuration.WithLabelValues(backend).Observe(duration.Seconds())
}

// SetTaskCounts publishes the list gauges
func (m *Metrics) SetTaskCounts(total, completed, overdue int) {
	m.tasksTotal.Set(float64(total))
	m.tasksCompleted.Set(float64(completed))
	m.tasksOverdue.Set(float64(overdue))
}
