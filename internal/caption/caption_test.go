package caption_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/DMarby/postcard-poodle/internal/caption"
	"github.com/DMarby/postcard-poodle/internal/filter"
	"github.com/DMarby/postcard-poodle/internal/logger"
	"github.com/DMarby/postcard-poodle/internal/tracing/test"
	"go.uber.org/zap"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		Name     string
		Input    string
		Expected string
	}{
		{"empty", "", caption.Fallback},
		{"whitespace", " \n\t ", caption.Fallback},
		{"trims", "  Greetings from the beach!  \n", "Greetings from the beach!"},
		{"exactly 60", strings.Repeat("a", 60), strings.Repeat("a", 60)},
		{"61", strings.Repeat("b", 61), strings.Repeat("b", 57) + "..."},
		{"80", strings.Repeat("c", 80), strings.Repeat("c", 57) + "..."},
		{"multibyte is counted in characters", strings.Repeat("🐾", 60), strings.Repeat("🐾", 60)},
		{"multibyte truncation", strings.Repeat("é", 70), strings.Repeat("é", 57) + "..."},
	}

	for _, test := range tests {
		got := caption.Normalize(test.Input)
		if got != test.Expected {
			t.Errorf("%s: got %q", test.Name, got)
		}

		if utf8.RuneCountInString(got) > caption.MaxLength {
			t.Errorf("%s: caption too long: %d", test.Name, utf8.RuneCountInString(got))
		}
	}
}

func TestPromptFor(t *testing.T) {
	tests := []struct {
		FilterType string
		Contains   string
	}{
		{"none", "a fun and friendly postcard"},
		{"mustache", "mustache theme"},
		{"neon", "vibrant, electric"},
		{"pixel", "retro, pixelated"},
		{"flare", "1990s-style"},
		{"sepia", "a fun and friendly postcard"},
		{"", "a fun and friendly postcard"},
	}

	for _, test := range tests {
		prompt := caption.PromptFor(test.FilterType)
		if !strings.Contains(prompt, test.Contains) {
			t.Errorf("%q: prompt does not mention %q", test.FilterType, test.Contains)
		}

		if !strings.Contains(prompt, "maximum 60 characters") {
			t.Errorf("%q: prompt does not limit the length", test.FilterType)
		}
	}
}

type chatRequest struct {
	Model       string  `json:"model"`
	MaxTokens   int     `json:"max_tokens"`
	Temperature float64 `json:"temperature"`
	Messages    []struct {
		Role    string `json:"role"`
		Content string `json:"content"`
	} `json:"messages"`
}

func completionServer(t *testing.T, status int, content string, requests *[]chatRequest) *httptest.Server {
	t.Helper()

	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/chat/completions" {
			t.Errorf("wrong path %s", r.URL.Path)
		}

		if auth := r.Header.Get("Authorization"); auth != "Bearer test-key" {
			t.Errorf("wrong authorization header %q", auth)
		}

		var req chatRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("invalid request body: %s", err)
		}
		*requests = append(*requests, req)

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)

		if status != http.StatusOK {
			json.NewEncoder(w).Encode(map[string]interface{}{
				"error": map[string]interface{}{
					"message": content,
					"type":    "server_error",
				},
			})
			return
		}

		json.NewEncoder(w).Encode(map[string]interface{}{
			"id":      "chatcmpl-test",
			"object":  "chat.completion",
			"created": 1,
			"model":   "gpt-4o-mini",
			"choices": []map[string]interface{}{
				{
					"index":         0,
					"finish_reason": "stop",
					"message": map[string]interface{}{
						"role":    "assistant",
						"content": content,
					},
				},
			},
		})
	}))
	t.Cleanup(ts.Close)

	return ts
}

func TestOpenAI(t *testing.T) {
	log := logger.New(zap.FatalLevel)
	defer log.Sync()

	tracer := test.Tracer(log)

	t.Run("generates a caption", func(t *testing.T) {
		var requests []chatRequest
		ts := completionServer(t, http.StatusOK, "  Stay groovy! ✨ \n", &requests)

		provider := &caption.OpenAI{APIKey: "test-key", BaseURL: ts.URL + "/v1", Tracer: tracer}
		got, err := provider.Generate(context.Background(), filter.Neon)
		if err != nil {
			t.Fatal(err)
		}

		if got != "Stay groovy! ✨" {
			t.Errorf("wrong caption %q", got)
		}

		if len(requests) != 1 {
			t.Fatalf("expected a single request, got %d", len(requests))
		}

		req := requests[0]
		if req.Model != "gpt-4o-mini" || req.MaxTokens != 50 || req.Temperature < 0.89 || req.Temperature > 0.91 {
			t.Errorf("wrong request parameters %+v", req)
		}

		if len(req.Messages) != 2 || req.Messages[0].Role != "system" || req.Messages[1].Role != "user" {
			t.Fatalf("wrong messages %+v", req.Messages)
		}

		if !strings.Contains(req.Messages[1].Content, "vibrant, electric") {
			t.Errorf("prompt not templated for the filter: %q", req.Messages[1].Content)
		}
	})

	t.Run("truncates long captions", func(t *testing.T) {
		var requests []chatRequest
		ts := completionServer(t, http.StatusOK, strings.Repeat("x", 80), &requests)

		provider := &caption.OpenAI{APIKey: "test-key", BaseURL: ts.URL + "/v1", Tracer: tracer}
		got, err := provider.Generate(context.Background(), filter.Flare)
		if err != nil {
			t.Fatal(err)
		}

		if utf8.RuneCountInString(got) != 60 || !strings.HasSuffix(got, "...") {
			t.Errorf("wrong caption %q", got)
		}
	})

	t.Run("empty response falls back", func(t *testing.T) {
		var requests []chatRequest
		ts := completionServer(t, http.StatusOK, "   ", &requests)

		provider := &caption.OpenAI{APIKey: "test-key", BaseURL: ts.URL + "/v1", Tracer: tracer}
		got, err := provider.Generate(context.Background(), filter.None)
		if err != nil {
			t.Fatal(err)
		}

		if got != caption.Fallback {
			t.Errorf("wrong caption %q", got)
		}
	})

	t.Run("missing credential", func(t *testing.T) {
		var requests []chatRequest
		ts := completionServer(t, http.StatusOK, "unused", &requests)

		provider := &caption.OpenAI{BaseURL: ts.URL + "/v1", Tracer: tracer}
		_, err := provider.Generate(context.Background(), filter.None)
		if !errors.Is(err, caption.ErrMissingCredential) {
			t.Errorf("wrong error %v", err)
		}

		if len(requests) != 0 {
			t.Errorf("request made without a credential")
		}
	})

	t.Run("provider error", func(t *testing.T) {
		var requests []chatRequest
		ts := completionServer(t, http.StatusInternalServerError, "the model is asleep", &requests)

		provider := &caption.OpenAI{APIKey: "test-key", BaseURL: ts.URL + "/v1", Tracer: tracer}
		_, err := provider.Generate(context.Background(), filter.Mustache)

		var providerErr *caption.ProviderError
		if !errors.As(err, &providerErr) {
			t.Fatalf("wrong error %v", err)
		}

		if !strings.Contains(err.Error(), "the model is asleep") {
			t.Errorf("provider message not propagated: %s", err)
		}
	})
}
