package tracer

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/FACorreiaa/smart-travel-guide/app/observability/metrics"
)

func TestInitTracingAndMetrics(t *testing.T) {
	handler, shutdown, err := InitTracingAndMetrics()
	require.NoError(t, err)
	t.Cleanup(func() { _ = shutdown(context.Background()) })

	metrics.Get().RecommendationCacheHits.Add(context.Background(), 1)

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "go_goroutines")
}
