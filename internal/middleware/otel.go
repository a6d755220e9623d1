package middleware

import (
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/propagation"
	semconv "go.opentelemetry.io/otel/semconv/v1.28.0"
	"go.opentelemetry.io/otel/trace"

	"upixl/internal/infrastructure"
)

// OTelMiddleware instruments HTTP requests: a server span per request and
// the http_requests_total / http_request_duration_seconds instruments.
type OTelMiddleware struct {
	tracer  trace.Tracer
	metrics *infrastructure.ConversionMetrics
	logger  *slog.Logger
}

// NewOTelMiddleware creates the HTTP instrumentation middleware. tracer and
// metrics may each be nil when the corresponding signal is disabled.
func NewOTelMiddleware(tracer trace.Tracer, metrics *infrastructure.ConversionMetrics, logger *slog.Logger) *OTelMiddleware {
	return &OTelMiddleware{
		tracer:  tracer,
		metrics: metrics,
		logger:  logger,
	}
}

// Handler returns the middleware handler function.
func (m *OTelMiddleware) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		ctx = otel.GetTextMapPropagator().Extract(ctx, propagation.HeaderCarrier(r.Header))

		var span trace.Span
		if m.tracer != nil {
			spanName := fmt.Sprintf("%s %s", r.Method, r.URL.Path)
			ctx, span = m.tracer.Start(ctx, spanName,
				trace.WithSpanKind(trace.SpanKindServer),
				trace.WithAttributes(
					semconv.HTTPRequestMethodKey.String(r.Method),
					semconv.HTTPRouteKey.String(r.URL.Path),
					semconv.ServerAddressKey.String(r.Host),
					semconv.UserAgentOriginalKey.String(r.UserAgent()),
					semconv.HTTPRequestBodySizeKey.Int64(r.ContentLength),
				),
			)
			defer span.End()

			ctx = infrastructure.WithTraceID(ctx, span.SpanContext().TraceID().String())
		}
		r = r.WithContext(ctx)

		ww := chimiddleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()

		next.ServeHTTP(ww, r)

		duration := time.Since(start)
		statusCode := ww.Status()

		if m.metrics != nil {
			attrs := []attribute.KeyValue{
				attribute.String("method", r.Method),
				attribute.String("route", routePattern(r)),
				attribute.Int("status_code", statusCode),
			}
			m.metrics.HTTPRequestsTotal.Add(ctx, 1, metric.WithAttributes(attrs...))
			m.metrics.HTTPRequestDuration.Record(ctx, duration.Seconds(), metric.WithAttributes(attrs...))
		}

		if span != nil {
			span.SetAttributes(
				semconv.HTTPResponseStatusCodeKey.Int(statusCode),
				semconv.HTTPResponseBodySizeKey.Int64(int64(ww.BytesWritten())),
			)
			if statusCode >= 400 {
				span.SetStatus(codes.Error, http.StatusText(statusCode))
			}
		}
	})
}

// routePattern prefers the chi route pattern over the raw path so metric
// cardinality stays bounded.
func routePattern(r *http.Request) string {
	if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
		return rctx.RoutePattern()
	}
	return r.URL.Path
}
