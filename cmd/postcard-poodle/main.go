package main

import (
	"context"
	"crypto/rand"
	"flag"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/DMarby/postcard-poodle/internal/api"
	"github.com/DMarby/postcard-poodle/internal/cache"
	"github.com/DMarby/postcard-poodle/internal/cache/memory"
	"github.com/DMarby/postcard-poodle/internal/cache/redis"
	"github.com/DMarby/postcard-poodle/internal/caption"
	"github.com/DMarby/postcard-poodle/internal/cmd"
	"github.com/DMarby/postcard-poodle/internal/health"
	"github.com/DMarby/postcard-poodle/internal/hmac"
	"github.com/DMarby/postcard-poodle/internal/logger"
	"github.com/DMarby/postcard-poodle/internal/metrics"
	"github.com/DMarby/postcard-poodle/internal/postcard"
	"github.com/DMarby/postcard-poodle/internal/render"
	"github.com/DMarby/postcard-poodle/internal/session"
	"github.com/DMarby/postcard-poodle/internal/tracing"

	"github.com/jamiealquiza/envy"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/automaxprocs/maxprocs"
	"go.uber.org/zap"
)

const serviceName = "postcard-poodle"

// Comandline flags
var (
	// Global
	listen         = flag.String("listen", ":8080", "listen address")
	metricsListen  = flag.String("metrics-listen", "127.0.0.1:8082", "metrics listen address")
	loglevel       = zap.LevelFlag("log-level", zap.InfoLevel, "log level (default \"info\") (debug, info, warn, error, dpanic, panic, fatal)")
	allowedOrigins = flag.String("allowed-origins", "", "comma separated list of origins allowed to call the api, all origins when empty")
	maxUploadSize  = flag.Int64("max-upload-size", api.DefaultMaxUploadSize, "maximum size of an uploaded photo in bytes")

	// Rendering
	workers = flag.Int("workers", 3, "number of render workers")

	// Cache
	cacheBackend       = flag.String("cache", "memory", "which cache backend to use for rendered images (memory, redis)")
	cacheMemoryEntries = flag.Int("cache-memory-entries", 256, "maximum number of rendered images kept in memory")
	cacheTTL           = flag.Duration("cache-ttl", time.Hour, "how long rendered images are kept in redis")

	// Cache - Redis
	cacheRedisAddress  = flag.String("cache-redis-address", "redis://127.0.0.1:6379", "redis address, may contain authentication details")
	cacheRedisPoolSize = flag.Int("cache-redis-pool-size", 10, "redis connection pool size")

	// Caption
	captionAPIKey  = flag.String("caption-api-key", "", "api key for the caption provider, falls back to OPENAI_API_KEY")
	captionModel   = flag.String("caption-model", caption.DefaultModel, "caption model")
	captionBaseURL = flag.String("caption-base-url", "", "caption provider base url, the OpenAI api when empty")
	captionTimeout = flag.Duration("caption-timeout", 30*time.Second, "timeout for a single caption request")

	// Sessions
	sessionTTL      = flag.Duration("session-ttl", 30*time.Minute, "how long an idle session is kept")
	sessionCapacity = flag.Int("session-capacity", 10000, "maximum number of sessions, unbounded when 0")

	// HMAC
	hmacKey = flag.String("hmac-key", "", "hmac key used to sign session ids, random when empty")

	// Tracing
	tracingEnabled     = flag.Bool("tracing", false, "export traces over otlp, configured through the OTEL_EXPORTER_OTLP_* environment variables")
	tracingSampleRatio = flag.Float64("tracing-sample-ratio", 1, "fraction of traces to sample")
)

func main() {
	// Parse environment variables
	envy.Parse("POSTCARD")

	// Parse commandline flags
	flag.Parse()

	// Initialize the logger
	log := logger.New(*loglevel)
	defer log.Sync()

	// Set GOMAXPROCS
	maxprocs.Set(maxprocs.Logger(log.Infof))

	// Set up context for shutting down
	shutdownCtx, shutdown := context.WithCancel(context.Background())
	defer shutdown()

	// Initialize tracing
	tracer, err := setupTracer(shutdownCtx, log)
	if err != nil {
		log.Fatalf("error initializing tracing: %s", err)
	}
	defer tracer.Shutdown(context.Background())

	// Initialize the cache
	cacheProvider, err := setupCache(shutdownCtx, tracer)
	if err != nil {
		log.Fatalf("error initializing cache: %s", err)
	}
	defer cacheProvider.Shutdown()

	// Initialize the renderer
	compositor, err := postcard.New(postcard.DefaultLayout)
	if err != nil {
		log.Fatalf("error initializing postcard compositor: %s", err)
	}

	processorCtx, processorCancel := context.WithCancel(context.Background())
	defer processorCancel()

	processor := render.New(processorCtx, log, tracer, *workers, &cache.Auto{Tracer: tracer, Provider: cacheProvider}, compositor)
	if err := processor.RegisterMetrics(prometheus.DefaultRegisterer); err != nil {
		log.Fatalf("error registering render metrics: %s", err)
	}

	// Initialize the sessions
	key, err := sessionKey(log)
	if err != nil {
		log.Fatalf("error generating hmac key: %s", err)
	}

	sessionsCtx, sessionsCancel := context.WithCancel(context.Background())
	defer sessionsCancel()

	sessions := session.NewStore(log, &hmac.HMAC{Key: key}, *sessionTTL, *sessionCapacity)
	go sessions.Run(sessionsCtx)

	// Initialize and start the health checker
	checkerCtx, checkerCancel := context.WithCancel(context.Background())
	defer checkerCancel()

	checker := &health.Checker{
		Ctx:      checkerCtx,
		Cache:    cacheProvider,
		Renderer: processor,
		Log:      log,
	}
	go checker.Run()

	// Start the metrics http server
	go metrics.Serve(shutdownCtx, log, checker, *metricsListen)

	// Start and listen on http
	api := &api.API{
		Renderer:       processor,
		Captions:       setupCaptions(tracer),
		Sessions:       sessions,
		HealthChecker:  checker,
		Log:            log,
		Tracer:         tracer,
		HandlerTimeout: cmd.HandlerTimeout,
		MaxUploadSize:  *maxUploadSize,
		AllowedOrigins: splitList(*allowedOrigins),
	}
	server := &http.Server{
		Addr:         *listen,
		Handler:      api.Router(),
		ReadTimeout:  cmd.ReadTimeout,
		WriteTimeout: cmd.WriteTimeout,
		ErrorLog:     logger.NewHTTPErrorLog(log),
	}

	go func() {
		if err := server.ListenAndServe(); err != nil {
			log.Infof("shutting down the http server: %s", err)
			shutdown()
		}
	}()

	log.Infof("http server listening on %s", *listen)

	// Wait for shutdown or error
	err = cmd.WaitForInterrupt(shutdownCtx)
	log.Infof("shutting down: %s", err)

	// Shut down http server
	serverCtx, serverCancel := context.WithTimeout(context.Background(), cmd.ShutdownTimeout)
	defer serverCancel()
	if err := server.Shutdown(serverCtx); err != nil {
		log.Warnf("error shutting down: %s", err)
	}
}

func setupTracer(ctx context.Context, log *logger.Logger) (*tracing.Tracer, error) {
	if !*tracingEnabled {
		return tracing.Noop(log, serviceName), nil
	}

	return tracing.New(ctx, log, serviceName, *tracingSampleRatio)
}

func setupCache(ctx context.Context, tracer *tracing.Tracer) (cache cache.Provider, err error) {
	switch *cacheBackend {
	case "memory":
		cache = memory.New(*cacheMemoryEntries)
	case "redis":
		cache, err = redis.New(ctx, tracer, *cacheRedisAddress, *cacheRedisPoolSize, *cacheTTL)
	default:
		err = fmt.Errorf("invalid cache backend")
	}

	return
}

func setupCaptions(tracer *tracing.Tracer) caption.Provider {
	apiKey := *captionAPIKey
	if apiKey == "" {
		apiKey = os.Getenv("OPENAI_API_KEY")
	}

	return &caption.OpenAI{
		APIKey:     apiKey,
		BaseURL:    *captionBaseURL,
		Model:      *captionModel,
		HTTPClient: &http.Client{Timeout: *captionTimeout},
		Tracer:     tracer,
	}
}

func sessionKey(log *logger.Logger) ([]byte, error) {
	if *hmacKey != "" {
		return []byte(*hmacKey), nil
	}

	log.Warnf("no hmac key configured, using a random key; session ids will not survive a restart")

	key := make([]byte, 32)
	if _, err := rand.Read(key); err != nil {
		return nil, err
	}

	return key, nil
}

func splitList(s string) []string {
	var list []string
	for _, item := range strings.Split(s, ",") {
		if item = strings.TrimSpace(item); item != "" {
			list = append(list, item)
		}
	}

	return list
}
