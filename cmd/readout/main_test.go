package main

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestDialableAddr(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"0.0.0.0:7877", "127.0.0.1:7877"},
		{"127.0.0.1:7877", "127.0.0.1:7877"},
		{"[::]:7877", "127.0.0.1:7877"},
		{"example.com:80", "example.com:80"},
		{"not-an-addr", "not-an-addr"},
	}
	for _, tc := range cases {
		if got := dialableAddr(tc.in); got != tc.want {
			t.Errorf("dialableAddr(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func runCommand(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCommand()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestStatusCommandRendersSnapshot(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/queue/status" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"queue": map[string]int{
				"total": 2, "pending": 1, "processing": 1,
			},
			"tasks": []map[string]any{
				{"id": 7, "mode": "summary", "status": "processing", "stage": "extract", "progress": 20, "title": "Deep Sea Mining"},
			},
			"errors":     []any{},
			"lastUpdate": "2025-03-10T09:00:00Z",
		})
	}))
	defer srv.Close()

	out, err := runCommand(t, "status", "--addr", srv.URL)
	if err != nil {
		t.Fatalf("status failed: %v\n%s", err, out)
	}
	if !strings.Contains(out, "2 total") || !strings.Contains(out, "Deep Sea Mining") {
		t.Fatalf("unexpected output:\n%s", out)
	}
}

func TestSubmitURLCommand(t *testing.T) {
	var gotPath string
	var gotBody map[string]string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		_ = json.NewDecoder(r.Body).Decode(&gotBody)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusAccepted)
		_ = json.NewEncoder(w).Encode(map[string]any{"id": 3, "mode": "podcast", "status": "pending"})
	}))
	defer srv.Close()

	out, err := runCommand(t, "submit", "url", "https://example.com/story",
		"--mode", "podcast", "--engine", "edge", "--addr", srv.URL)
	if err != nil {
		t.Fatalf("submit failed: %v\n%s", err, out)
	}
	if gotPath != "/v1/url/podcast" {
		t.Fatalf("path = %q", gotPath)
	}
	if gotBody["url"] != "https://example.com/story" {
		t.Fatalf("body = %v", gotBody)
	}
	if gotBody["tts_engine"] != "edge" {
		t.Fatalf("engine field = %v", gotBody)
	}
	if !strings.Contains(out, "queued task 3") {
		t.Fatalf("unexpected output:\n%s", out)
	}
}

func TestQueueRemoveCommandReportsDaemonError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusNotFound)
		_ = json.NewEncoder(w).Encode(map[string]string{"error": "queue: lookup: task 42 not found"})
	}))
	defer srv.Close()

	_, err := runCommand(t, "queue", "remove", "42", "--addr", srv.URL)
	if err == nil || !strings.Contains(err.Error(), "task 42") {
		t.Fatalf("expected daemon error, got %v", err)
	}
}
