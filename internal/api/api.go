package api

import (
	"net/http"
	"time"

	"github.com/DMarby/postcard-poodle/internal/caption"
	"github.com/DMarby/postcard-poodle/internal/handler"
	"github.com/DMarby/postcard-poodle/internal/health"
	"github.com/DMarby/postcard-poodle/internal/logger"
	"github.com/DMarby/postcard-poodle/internal/session"
	"github.com/DMarby/postcard-poodle/internal/tracing"
	"github.com/gorilla/mux"
)

// DefaultMaxUploadSize bounds uploaded photos when no limit is configured
const DefaultMaxUploadSize = 20 << 20

// API is a http api
type API struct {
	Renderer       session.Renderer
	Captions       caption.Provider
	Sessions       *session.Store
	HealthChecker  *health.Checker
	Log            *logger.Logger
	Tracer         *tracing.Tracer
	HandlerTimeout time.Duration
	MaxUploadSize  int64
	AllowedOrigins []string
}

// Utility methods for logging
func (a *API) logError(r *http.Request, message string, err error) {
	a.Log.Errorw(message, handler.LogFields(r, "error", err)...)
}

// Router returns a http router
func (a *API) Router() http.Handler {
	router := mux.NewRouter()

	router.NotFoundHandler = handler.Handler(a.notFoundHandler)
	router.MethodNotAllowedHandler = handler.Handler(a.methodNotAllowedHandler)

	// Healthcheck
	router.Handle("/health", handler.Health(a.HealthChecker)).Methods("GET").Name("health")

	// One-shot routes
	router.Handle("/generate-message", handler.Handler(a.generateMessageHandler)).Methods("POST")
	router.Handle("/postcard", handler.Handler(a.postcardHandler)).Methods("POST")
	router.Handle("/preview", handler.Handler(a.previewHandler)).Methods("POST")

	// Session routes
	router.Handle("/sessions", handler.Handler(a.createSessionHandler)).Methods("POST")
	router.Handle("/sessions/{id}", handler.Handler(a.getSessionHandler)).Methods("GET")
	router.Handle("/sessions/{id}", handler.Handler(a.deleteSessionHandler)).Methods("DELETE")
	router.Handle("/sessions/{id}/image", handler.Handler(a.selectImageHandler)).Methods("PUT")
	router.Handle("/sessions/{id}/filter", handler.Handler(a.chooseFilterHandler)).Methods("PUT")
	router.Handle("/sessions/{id}/message", handler.Handler(a.editMessageHandler)).Methods("PUT")
	router.Handle("/sessions/{id}/generate-message", handler.Handler(a.sessionGenerateMessageHandler)).Methods("POST")
	router.Handle("/sessions/{id}/preview.png", handler.Handler(a.sessionPreviewHandler)).Methods("GET")
	router.Handle("/sessions/{id}/postcard.png", handler.Handler(a.sessionPostcardHandler)).Methods("GET")

	routeMatcher := &handler.MuxRouteMatcher{Router: router}

	// Set up handlers for adding a request id, handling panics, tracing, metrics, request logging, setting CORS headers, and handler execution timeout
	return handler.AddRequestID(
		handler.Recovery(a.Log,
			handler.Tracer(a.Tracer,
				handler.Metrics(
					handler.Logger(a.Log,
						handler.CORS(a.AllowedOrigins, []string{"Content-Disposition", handler.RequestIDHeader},
							http.TimeoutHandler(router, a.HandlerTimeout, "Something went wrong. Timed out."),
						),
					),
					routeMatcher,
				),
				routeMatcher,
				"health",
			),
		),
	)
}

func (a *API) maxUploadSize() int64 {
	if a.MaxUploadSize <= 0 {
		return DefaultMaxUploadSize
	}

	return a.MaxUploadSize
}

// Handle not found errors
var notFoundError = &handler.Error{
	Message: "page not found",
	Code:    http.StatusNotFound,
}

func (a *API) notFoundHandler(w http.ResponseWriter, r *http.Request) *handler.Error {
	return notFoundError
}

func (a *API) methodNotAllowedHandler(w http.ResponseWriter, r *http.Request) *handler.Error {
	return &handler.Error{
		Message: "method not allowed",
		Code:    http.StatusMethodNotAllowed,
	}
}
