package metrics_test

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/DMarby/postcard-poodle/internal/cache/memory"
	"github.com/DMarby/postcard-poodle/internal/health"
	"github.com/DMarby/postcard-poodle/internal/logger"
	"github.com/DMarby/postcard-poodle/internal/metrics"
	"go.uber.org/zap"
)

func TestRouter(t *testing.T) {
	log := logger.New(zap.FatalLevel)
	defer log.Sync()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	checker := &health.Checker{Ctx: ctx, Cache: memory.New(0), Log: log}
	checker.Run()

	ts := httptest.NewServer(metrics.Router(checker))
	defer ts.Close()

	tests := []struct {
		Path           string
		ExpectedStatus int
		Contains       string
	}{
		{"/metrics", http.StatusOK, "go_goroutines"},
		{"/health", http.StatusOK, "\"healthy\":true"},
		{"/debug/pprof/", http.StatusOK, "goroutine"},
	}

	for _, test := range tests {
		res, err := http.Get(ts.URL + test.Path)
		if err != nil {
			t.Errorf("%s: %s", test.Path, err)
			continue
		}

		body, _ := io.ReadAll(res.Body)
		res.Body.Close()

		if res.StatusCode != test.ExpectedStatus {
			t.Errorf("%s: wrong status code %d", test.Path, res.StatusCode)
		}

		if !strings.Contains(string(body), test.Contains) {
			t.Errorf("%s: response does not contain %q", test.Path, test.Contains)
		}
	}
}
