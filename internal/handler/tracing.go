package handler

import (
	"net/http"

	"github.com/DMarby/postcard-poodle/internal/tracing"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
)

// Tracer is a handler that adds tracing for handlers, skipping the given routes
func Tracer(tracer *tracing.Tracer, h http.Handler, routeMatcher RouteMatcher, untracedRoutes ...string) http.Handler {
	skip := make(map[string]bool, len(untracedRoutes))
	for _, route := range untracedRoutes {
		skip[route] = true
	}

	tagged := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		span := trace.SpanFromContext(r.Context())
		span.SetAttributes(attribute.String("request.id", GetReqID(r.Context())))

		h.ServeHTTP(w, r)
	})

	return otelhttp.NewHandler(
		tagged,
		"http",
		otelhttp.WithTracerProvider(tracer),
		otelhttp.WithPropagators(propagation.NewCompositeTextMapPropagator(propagation.TraceContext{}, propagation.Baggage{})),
		otelhttp.WithSpanNameFormatter(func(operation string, r *http.Request) string {
			return routeMatcher.Match(r)
		}),
		otelhttp.WithFilter(func(r *http.Request) bool {
			return !skip[routeMatcher.Match(r)]
		}),
	)
}
