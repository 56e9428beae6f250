package server

import (
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/hyp3rd/ewrap"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	semconv "go.opentelemetry.io/otel/semconv/v1.24.0"
	"go.opentelemetry.io/otel/trace"
)

// Instrumentation wraps the API with tracing and RED metrics.
type Instrumentation struct {
	tracer        trace.Tracer
	requests      metric.Int64Counter
	duration      metric.Float64Histogram
	ignoredRoutes map[string]struct{}
}

// NewInstrumentation creates request instrumentation using the provided
// tracer and meter providers. Routes in ignored are passed through
// untouched; the health endpoint is the usual candidate.
func NewInstrumentation(tp trace.TracerProvider, mp metric.MeterProvider, ignored ...string) (*Instrumentation, error) {
	tracer := tp.Tracer("countd/http")
	meter := mp.Meter("countd/http")

	reqCounter, err := meter.Int64Counter(
		"http.server.requests",
		metric.WithDescription("Number of HTTP server requests received"),
	)
	if err != nil {
		return nil, ewrap.Wrap(err, "create request counter")
	}

	latencyHist, err := meter.Float64Histogram(
		"http.server.duration.ms",
		metric.WithDescription("Latency of HTTP server requests"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return nil, ewrap.Wrap(err, "create latency histogram")
	}

	return &Instrumentation{
		tracer:        tracer,
		requests:      reqCounter,
		duration:      latencyHist,
		ignoredRoutes: toSet(ignored),
	}, nil
}

// Middleware returns the handler-wrapping middleware.
func (m *Instrumentation) Middleware() Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			route := routeFromRequest(r)
			if _, skip := m.ignoredRoutes[route]; skip {
				next.ServeHTTP(w, r)

				return
			}

			attrs := []attribute.KeyValue{
				semconv.HTTPMethodKey.String(r.Method),
				semconv.HTTPRouteKey.String(route),
			}

			ctx, span := m.tracer.Start(
				r.Context(),
				spanName(r.Method, route),
				trace.WithSpanKind(trace.SpanKindServer),
			)
			defer span.End()

			start := time.Now()
			rr := &responseRecorder{ResponseWriter: w, status: http.StatusOK}

			next.ServeHTTP(rr, r.WithContext(ctx))

			duration := time.Since(start)

			attrs = append(attrs, semconv.HTTPStatusCodeKey.Int(rr.status))
			if host := clientIP(r); host != "" {
				attrs = append(attrs, semconv.ClientAddressKey.String(host))
			}

			if rr.status >= http.StatusInternalServerError {
				span.SetStatus(codes.Error, http.StatusText(rr.status))
			} else {
				span.SetStatus(codes.Ok, "")
			}

			span.SetAttributes(attrs...)

			m.requests.Add(ctx, 1, metric.WithAttributes(attrs...))
			m.duration.Record(ctx, float64(duration.Milliseconds()), metric.WithAttributes(attrs...))
		})
	}
}

func toSet(values []string) map[string]struct{} {
	set := make(map[string]struct{}, len(values))

	for _, val := range values {
		val = strings.TrimSpace(val)
		if val == "" {
			continue
		}

		set[val] = struct{}{}
	}

	return set
}

func spanName(method, route string) string {
	if route == "" {
		route = "/"
	}

	return method + " " + route
}

func routeFromRequest(r *http.Request) string {
	if r == nil || r.URL == nil || r.URL.Path == "" {
		return "/"
	}

	return r.URL.Path
}

func clientIP(r *http.Request) string {
	if r == nil {
		return ""
	}

	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}

	return host
}

type responseRecorder struct {
	http.ResponseWriter
	status int
}

// WriteHeader records the status code and delegates to the underlying ResponseWriter.
func (r *responseRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}
