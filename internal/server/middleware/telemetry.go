package middleware

import (
	"fmt"
	"log"
	"time"

	"github.com/labstack/echo/v4"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

// Telemetry returns middleware that opens a server span per request and
// records a request counter and duration histogram. Providers are read from
// the otel globals; with no providers set, everything here is a no-op.
func Telemetry(serviceName string) echo.MiddlewareFunc {
	tracer := otel.Tracer(serviceName)
	meter := otel.Meter(serviceName)
	requests, err := meter.Int64Counter("http.server.requests")
	if err != nil {
		log.Printf("telemetry: counter init: %v", err)
	}
	duration, err := meter.Float64Histogram("http.server.duration", metric.WithUnit("ms"))
	if err != nil {
		log.Printf("telemetry: histogram init: %v", err)
	}
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			req := c.Request()
			ctx, span := tracer.Start(req.Context(), req.Method+" "+c.Path(), trace.WithSpanKind(trace.SpanKindServer))
			defer span.End()
			c.SetRequest(req.WithContext(ctx))

			start := time.Now()
			err := next(c)
			status := c.Response().Status
			if err != nil {
				if he, ok := err.(*echo.HTTPError); ok {
					status = he.Code
				}
				span.RecordError(err)
			}
			elapsed := time.Since(start)

			attrs := []attribute.KeyValue{
				attribute.String("http.method", req.Method),
				attribute.String("http.route", c.Path()),
				attribute.Int("http.status_code", status),
			}
			span.SetAttributes(attrs...)
			if status >= 500 {
				span.SetStatus(codes.Error, fmt.Sprintf("HTTP %d", status))
			}
			if requests != nil {
				requests.Add(ctx, 1, metric.WithAttributes(attrs...))
			}
			if duration != nil {
				duration.Record(ctx, float64(elapsed.Milliseconds()), metric.WithAttributes(attrs...))
			}
			return err
		}
	}
}
