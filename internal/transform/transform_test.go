package transform_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"readout/internal/config"
	"readout/internal/services"
	"readout/internal/transform"
)

func completionServer(t *testing.T, handler http.HandlerFunc) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	return server
}

func respondWith(t *testing.T, w http.ResponseWriter, content string) {
	t.Helper()
	payload := map[string]any{
		"choices": []map[string]any{
			{"message": map[string]any{"content": content}, "finish_reason": "stop"},
		},
	}
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		t.Fatalf("encode response: %v", err)
	}
}

func newTransformer(t *testing.T, server *httptest.Server) *transform.Transformer {
	t.Helper()
	client := transform.NewClient(
		config.LLM{BaseURL: server.URL, Model: "test-model", APIKey: "key"},
		transform.WithRetry(3, time.Millisecond, time.Millisecond),
		transform.WithSleeper(func(time.Duration) {}),
	)
	return transform.NewTransformer(client)
}

func TestSummarize(t *testing.T) {
	server := completionServer(t, func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Model    string `json:"model"`
			Messages []struct {
				Role    string `json:"role"`
				Content string `json:"content"`
			} `json:"messages"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode request: %v", err)
		}
		if req.Model != "test-model" || len(req.Messages) != 2 {
			t.Errorf("unexpected request: %+v", req)
		}
		respondWith(t, w, "A tight little summary.")
	})

	summary, err := newTransformer(t, server).Summarize(context.Background(), "Long article body.")
	if err != nil {
		t.Fatalf("Summarize failed: %v", err)
	}
	if summary != "A tight little summary." {
		t.Fatalf("summary = %q", summary)
	}
}

func TestCompleteRetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	server := completionServer(t, func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			http.Error(w, "overloaded", http.StatusServiceUnavailable)
			return
		}
		respondWith(t, w, "Recovered answer.")
	})

	summary, err := newTransformer(t, server).Summarize(context.Background(), "body")
	if err != nil {
		t.Fatalf("Summarize failed after retries: %v", err)
	}
	if summary != "Recovered answer." || calls.Load() != 3 {
		t.Fatalf("summary = %q after %d calls", summary, calls.Load())
	}
}

func TestCompleteDoesNotRetryClientErrors(t *testing.T) {
	var calls atomic.Int32
	server := completionServer(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		http.Error(w, "bad key", http.StatusUnauthorized)
	})

	_, err := newTransformer(t, server).Summarize(context.Background(), "body")
	if !errors.Is(err, services.ErrTransform) {
		t.Fatalf("expected transform error, got %v", err)
	}
	if calls.Load() != 1 {
		t.Fatalf("expected a single attempt, got %d", calls.Load())
	}
}

func TestCompleteDeadlineDuringBackoffIsTransient(t *testing.T) {
	server := completionServer(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "overloaded", http.StatusServiceUnavailable)
	})

	// The long backoff guarantees the deadline fires during the retry wait,
	// not inside the request.
	client := transform.NewClient(
		config.LLM{BaseURL: server.URL, Model: "test-model", APIKey: "key"},
		transform.WithRetry(2, time.Second, time.Second),
	)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	_, err := client.Complete(ctx, "system", "body")
	if !errors.Is(err, services.ErrTransient) {
		t.Fatalf("expected transient classification, got %v", err)
	}
	if errors.Is(err, services.ErrCancelled) {
		t.Fatalf("deadline must not read as a cancel: %v", err)
	}
}

func TestPodcastScriptRequiresSpeakerLines(t *testing.T) {
	server := completionServer(t, func(w http.ResponseWriter, r *http.Request) {
		respondWith(t, w, "Just prose with no dialogue markers.")
	})

	_, err := newTransformer(t, server).PodcastScript(context.Background(), "body")
	if !errors.Is(err, services.ErrTransform) {
		t.Fatalf("expected transform error, got %v", err)
	}
}

func TestTitleSanitizesOutput(t *testing.T) {
	server := completionServer(t, func(w http.ResponseWriter, r *http.Request) {
		respondWith(t, w, "\"Deep Sea Mining Future\"\nextra line")
	})

	title, err := newTransformer(t, server).Title(context.Background(), "body")
	if err != nil {
		t.Fatalf("Title failed: %v", err)
	}
	if title != "Deep Sea Mining Future" {
		t.Fatalf("title = %q", title)
	}
}

func TestCompleteStripsThinkTags(t *testing.T) {
	server := completionServer(t, func(w http.ResponseWriter, r *http.Request) {
		respondWith(t, w, "<think>planning the answer</think>The real summary.")
	})

	summary, err := newTransformer(t, server).Summarize(context.Background(), "body")
	if err != nil {
		t.Fatalf("Summarize failed: %v", err)
	}
	if summary != "The real summary." {
		t.Fatalf("summary = %q", summary)
	}
}
