package otel

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

// HTTPMiddleware returns a chi-compatible middleware that creates spans for
// HTTP requests. Spans are named after the matched route pattern so run IDs
// do not end up in span names. Health checks are not traced.
func HTTPMiddleware(serviceName string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		// otelhttp renames the span after the handler returns, but only when
		// r.Pattern is set on its own request. Middleware further down may
		// clone the request, so copy chi's matched pattern back here.
		withPattern := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			next.ServeHTTP(w, r)
			if r.Pattern == "" {
				r.Pattern = chiPattern(r)
			}
		})
		return otelhttp.NewHandler(withPattern, serviceName,
			otelhttp.WithSpanNameFormatter(spanName),
			otelhttp.WithFilter(func(r *http.Request) bool {
				return !strings.HasPrefix(r.URL.Path, "/health")
			}),
		)
	}
}

// spanName is "METHOD pattern" once a route matched, else the operation.
func spanName(operation string, r *http.Request) string {
	pattern := chiPattern(r)
	if pattern == "" {
		pattern = r.Pattern
	}
	if pattern == "" {
		return operation
	}
	return r.Method + " " + pattern
}

func chiPattern(r *http.Request) string {
	if rctx := chi.RouteContext(r.Context()); rctx != nil {
		return rctx.RoutePattern()
	}
	return ""
}
