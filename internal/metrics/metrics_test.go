package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCollectorCounts(t *testing.T) {
	c := NewCollector(nil)

	c.ObserveAttempt("Gemini", "failure", 2*time.Second)
	c.ObserveAttempt("Gemini", "failure", time.Second)
	c.ObserveAttempt("DeepSeek", "success", time.Second)
	c.IncFailover("Gemini")
	c.ObserveCache(true)
	c.ObserveCache(false)
	c.ObserveCache(false)

	assert.Equal(t, 2.0, testutil.ToFloat64(c.attempts.WithLabelValues("Gemini", "failure")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.attempts.WithLabelValues("DeepSeek", "success")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.failovers.WithLabelValues("Gemini")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.cacheRequests.WithLabelValues("hit")))
	assert.Equal(t, 2.0, testutil.ToFloat64(c.cacheRequests.WithLabelValues("miss")))
}

func TestNilCollectorIsNoop(t *testing.T) {
	var c *Collector
	assert.NotPanics(t, func() {
		c.ObserveAttempt("Gemini", "success", time.Second)
		c.IncFailover("Gemini")
		c.ObserveCache(true)
	})
}

func TestCollectorHandler(t *testing.T) {
	c := NewCollector(nil)
	c.ObserveCache(true)

	rec := httptest.NewRecorder()
	c.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "compliance_ocr_cache_requests_total")
}
