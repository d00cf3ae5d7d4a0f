package metrics

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the service collectors. A nil *Metrics is valid and records
// nothing.
type Metrics struct {
	registry *prometheus.Registry

	RequestCounter   *prometheus.CounterVec
	RequestDuration  *prometheus.HistogramVec
	AttemptsStarted  prometheus.Counter
	AttemptsFinal    *prometheus.CounterVec
	AnswersGraded    *prometheus.CounterVec
	StageFailures    *prometheus.CounterVec
	StageDuration    *prometheus.HistogramVec
	SamplerShortages *prometheus.CounterVec
}

// New registers every collector on a fresh registry.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		RequestCounter: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "endpoint", "status"},
		),
		RequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "Duration of HTTP requests",
				Buckets: []float64{0.1, 0.5, 1, 2, 5, 15, 30},
			},
			[]string{"method", "endpoint"},
		),
		AttemptsStarted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "quiz_attempts_started_total",
			Help: "Attempts opened",
		}),
		AttemptsFinal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "quiz_attempts_finalized_total",
				Help: "Attempts that reached a terminal state",
			},
			[]string{"status"},
		),
		AnswersGraded: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "quiz_answers_graded_total",
				Help: "Answers graded and persisted",
			},
			[]string{"variant", "correct"},
		),
		StageFailures: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "quiz_answer_stage_failures_total",
				Help: "Answer pipeline failures by stage",
			},
			[]string{"stage"},
		),
		StageDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "quiz_answer_stage_duration_seconds",
				Help:    "Answer pipeline stage latency",
				Buckets: []float64{0.05, 0.25, 1, 2.5, 5, 10, 30, 60},
			},
			[]string{"stage"},
		),
		SamplerShortages: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "quiz_sampler_shortages_total",
				Help: "Quizzes sampled with fewer questions than planned",
			},
			[]string{"pool"},
		),
	}

	m.registry.MustRegister(
		m.RequestCounter,
		m.RequestDuration,
		m.AttemptsStarted,
		m.AttemptsFinal,
		m.AnswersGraded,
		m.StageFailures,
		m.StageDuration,
		m.SamplerShortages,
	)
	return m
}

func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

func (m *Metrics) ObserveAttemptStarted() {
	if m == nil {
		return
	}
	m.AttemptsStarted.Inc()
}

func (m *Metrics) ObserveAttemptFinal(status string) {
	if m == nil {
		return
	}
	m.AttemptsFinal.WithLabelValues(status).Inc()
}

func (m *Metrics) ObserveAnswer(variant string, correct bool) {
	if m == nil {
		return
	}
	m.AnswersGraded.WithLabelValues(variant, strconv.FormatBool(correct)).Inc()
}

func (m *Metrics) ObserveStage(stage string, started time.Time, err error) {
	if m == nil {
		return
	}
	m.StageDuration.WithLabelValues(stage).Observe(time.Since(started).Seconds())
	if err != nil {
		m.StageFailures.WithLabelValues(stage).Inc()
	}
}

func (m *Metrics) ObserveShortage(pool string) {
	if m == nil {
		return
	}
	m.SamplerShortages.WithLabelValues(pool).Inc()
}

func (m *Metrics) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		if m == nil {
			return
		}
		duration := time.Since(start).Seconds()
		status := c.Writer.Status()

		m.RequestCounter.WithLabelValues(
			c.Request.Method,
			c.FullPath(),
			strconv.Itoa(status),
		).Inc()

		m.RequestDuration.WithLabelValues(
			c.Request.Method,
			c.FullPath(),
		).Observe(duration)
	}
}

func (m *Metrics) Handler() gin.HandlerFunc {
	h := promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
	return func(c *gin.Context) {
		h.ServeHTTP(c.Writer, c.Request)
	}
}
