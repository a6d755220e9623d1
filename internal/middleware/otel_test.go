package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"

	"upixl/internal/infrastructure"
)

func collectMetrics(t *testing.T, reader *sdkmetric.ManualReader) map[string]metricdata.Metrics {
	t.Helper()

	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))

	out := make(map[string]metricdata.Metrics)
	for _, scope := range rm.ScopeMetrics {
		for _, m := range scope.Metrics {
			out[m.Name] = m
		}
	}
	return out
}

func TestOTelMiddlewareRecordsHTTPMetrics(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	meter := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader)).Meter("test")

	metrics, err := infrastructure.CreateConversionMetrics(meter)
	require.NoError(t, err)

	handler := NewOTelMiddleware(nil, metrics, testLogger()).Handler(
		http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusTeapot)
		}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/convert", nil))
	require.Equal(t, http.StatusTeapot, rec.Code)

	collected := collectMetrics(t, reader)

	requests, ok := collected["http_requests_total"]
	require.True(t, ok, "request counter was recorded")
	sum, ok := requests.Data.(metricdata.Sum[int64])
	require.True(t, ok)
	require.Len(t, sum.DataPoints, 1)
	assert.Equal(t, int64(1), sum.DataPoints[0].Value)

	attrs := sum.DataPoints[0].Attributes
	method, _ := attrs.Value(attribute.Key("method"))
	assert.Equal(t, "GET", method.AsString())
	status, _ := attrs.Value(attribute.Key("status_code"))
	assert.Equal(t, int64(http.StatusTeapot), status.AsInt64())

	durations, ok := collected["http_request_duration_seconds"]
	require.True(t, ok, "duration histogram was recorded")
	hist, ok := durations.Data.(metricdata.Histogram[float64])
	require.True(t, ok)
	require.Len(t, hist.DataPoints, 1)
	assert.Equal(t, uint64(1), hist.DataPoints[0].Count)
}

func TestOTelMiddlewareCountsEachRequest(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	meter := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader)).Meter("test")

	metrics, err := infrastructure.CreateConversionMetrics(meter)
	require.NoError(t, err)

	handler := NewOTelMiddleware(nil, metrics, testLogger()).Handler(okHandler())
	for i := 0; i < 3; i++ {
		handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/healthz", nil))
	}

	collected := collectMetrics(t, reader)
	sum, ok := collected["http_requests_total"].Data.(metricdata.Sum[int64])
	require.True(t, ok)
	require.Len(t, sum.DataPoints, 1)
	assert.Equal(t, int64(3), sum.DataPoints[0].Value)
}

func TestOTelMiddlewareNilMetricsPassesThrough(t *testing.T) {
	handler := NewOTelMiddleware(nil, nil, testLogger()).Handler(okHandler())

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
}
