package utils

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestRecordGeneration(t *testing.T) {
	m := NewMetricsCollector()
	m.RecordGeneration(OutcomeSuccess, 2*time.Second)
	m.RecordGeneration(OutcomeMissingCredential, 0)
	m.RecordGeneration(OutcomeMissingCredential, 0)

	if got := testutil.ToFloat64(m.Generations.WithLabelValues(OutcomeMissingCredential)); got != 2 {
		t.Fatalf("missing_credential count = %v", got)
	}
	if got := testutil.CollectAndCount(m.GenerationDuration); got != 1 {
		t.Fatalf("duration series = %d", got)
	}
}

func TestRecordExport(t *testing.T) {
	m := NewMetricsCollector()
	m.RecordExport("doc", nil)
	m.RecordExport("doc", errors.New("boom"))

	if got := testutil.ToFloat64(m.Exports.WithLabelValues("doc", "error")); got != 1 {
		t.Fatalf("error count = %v", got)
	}
}

func TestMiddlewareAndHandler(t *testing.T) {
	gin.SetMode(gin.TestMode)
	m := NewMetricsCollector()

	r := gin.New()
	r.Use(m.Middleware())
	r.GET("/ping", func(c *gin.Context) { c.String(http.StatusOK, "pong") })
	r.GET("/metrics", m.Handler())

	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/ping", nil))

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `http_requests_total{endpoint="/ping",method="GET",status="200"} 1`) {
		t.Fatalf("request counter missing from output:\n%s", rec.Body.String())
	}
}
