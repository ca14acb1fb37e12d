package observability

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	semconv "go.opentelemetry.io/otel/semconv/v1.25.0"
	"go.opentelemetry.io/otel/trace"
)

type interceptingResponseWriter struct {
	http.ResponseWriter

	statusCode int
}

func (w *interceptingResponseWriter) WriteHeader(statusCode int) {
	w.statusCode = statusCode

	w.ResponseWriter.WriteHeader(statusCode)
}

// routePattern returns the matched chi route, or the raw path when the
// request was not routed by chi.
func routePattern(r *http.Request) string {
	if rctx := chi.RouteContext(r.Context()); rctx != nil {
		if pattern := rctx.RoutePattern(); pattern != "" {
			return pattern
		}
	}
	return r.URL.Path
}

// RequestTracing returns an HTTP handler that traces all HTTP requests coming
// in and counts response status codes per route. Supports Chi routers, so
// this should be one of the first middlewares on the router.
func RequestTracing() func(http.Handler) http.Handler {
	statusCodes := ObtainMetricCounter("http_status_codes", "Number of returned HTTP status codes")

	return func(next http.Handler) http.Handler {
		fn := func(w http.ResponseWriter, r *http.Request) {
			writer := &interceptingResponseWriter{ResponseWriter: w, statusCode: http.StatusOK}

			next.ServeHTTP(writer, r)

			route := routePattern(r)
			trace.SpanFromContext(r.Context()).SetAttributes(semconv.HTTPRouteKey.String(route))
			statusCodes.Add(
				r.Context(),
				1,
				metric.WithAttributes(attribute.Int("code", writer.statusCode), semconv.HTTPRouteKey.String(route)),
			)
		}

		return otelhttp.NewHandler(http.HandlerFunc(fn), "api")
	}
}

// NewTransport wraps base so that outbound provider calls carry trace
// context and produce client spans.
func NewTransport(base http.RoundTripper) http.RoundTripper {
	if base == nil {
		base = http.DefaultTransport
	}
	return otelhttp.NewTransport(base)
}
