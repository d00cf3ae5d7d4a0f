package metrics

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestMetrics_Observations(t *testing.T) {
	m := New()

	m.ObserveAttemptStarted()
	m.ObserveAnswer("COPY", true)
	m.ObserveAnswer("COPY", true)
	m.ObserveStage("grade", time.Now(), errors.New("timeout"))
	m.ObserveStage("upload", time.Now(), nil)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.AttemptsStarted))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.AnswersGraded.WithLabelValues("COPY", "true")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.StageFailures.WithLabelValues("grade")))
	assert.Equal(t, 0.0, testutil.ToFloat64(m.StageFailures.WithLabelValues("upload")))
}

func TestMetrics_NilIsSafe(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.ObserveAttemptStarted()
		m.ObserveAttemptFinal("SUBMITTED")
		m.ObserveAnswer("TEXT", false)
		m.ObserveStage("grade", time.Now(), nil)
		m.ObserveShortage("basic")
	})
}

func TestMetrics_MiddlewareAndHandler(t *testing.T) {
	gin.SetMode(gin.TestMode)
	m := New()

	router := gin.New()
	router.Use(m.Middleware())
	router.GET("/ping", func(c *gin.Context) { c.String(http.StatusOK, "pong") })
	router.GET("/metrics", m.Handler())

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ping", nil))
	assert.Equal(t, http.StatusOK, w.Code)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.RequestCounter.WithLabelValues("GET", "/ping", "200")))

	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "http_requests_total")
}
