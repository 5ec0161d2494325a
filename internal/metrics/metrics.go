package metrics

import (
	"context"
	"net/http"
	"net/http/pprof"
	"time"

	"github.com/DMarby/postcard-poodle/internal/handler"
	"github.com/DMarby/postcard-poodle/internal/health"
	"github.com/DMarby/postcard-poodle/internal/logger"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const shutdownTimeout = 5 * time.Second

// Router returns the routes of the metrics server: prometheus metrics, health and pprof
func Router(healthChecker *health.Checker) http.Handler {
	router := mux.NewRouter()
	router.Handle("/metrics", promhttp.HandlerFor(prometheus.DefaultGatherer, promhttp.HandlerOpts{})).Methods("GET")
	router.Handle("/health", handler.Health(healthChecker)).Methods("GET")

	router.HandleFunc("/debug/pprof/", pprof.Index)
	router.HandleFunc("/debug/pprof/cmdline", pprof.Cmdline)
	router.HandleFunc("/debug/pprof/profile", pprof.Profile)
	router.HandleFunc("/debug/pprof/symbol", pprof.Symbol)
	router.HandleFunc("/debug/pprof/trace", pprof.Trace)
	router.PathPrefix("/debug/pprof/").HandlerFunc(pprof.Index)

	return router
}

// Serve starts an http server for metrics and healthchecks, running until ctx is done
func Serve(ctx context.Context, log *logger.Logger, healthChecker *health.Checker, listenAddress string) {
	server := &http.Server{
		Addr:              listenAddress,
		Handler:           Router(healthChecker),
		ReadHeaderTimeout: 5 * time.Second,
		ErrorLog:          logger.NewHTTPErrorLog(log),
	}

	go func() {
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Errorf("metrics http server stopped: %s", err)
		}
	}()

	log.Infof("metrics http server listening on %s", listenAddress)

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Warnf("error shutting down metrics http server: %s", err)
	}
}
