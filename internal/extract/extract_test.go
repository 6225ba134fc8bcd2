package extract_test

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"readout/internal/extract"
	"readout/internal/queue"
	"readout/internal/services"
)

var longParagraph = strings.TrimSpace(strings.Repeat("The quick brown fox jumps over the lazy dog near the riverbank today. ", 20))

func serve(t *testing.T, handler http.HandlerFunc) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	return server
}

func TestExtractHTMLArticle(t *testing.T) {
	page := fmt.Sprintf(`<html><head>
        <title>Fallback Title</title>
        <meta property="og:title" content="Deep Sea Mining">
        <meta name="author" content="Jordan Reyes">
        <meta property="article:published_time" content="2025-02-14T08:30:00Z">
    </head><body>
        <nav>Home News About Contact</nav>
        <p>%s</p>
        <p>Share</p>
        <p>Tweet</p>
    </body></html>`, longParagraph)
	server := serve(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		fmt.Fprint(w, page)
	})

	extractor := extract.New(nil)
	doc, err := extractor.Extract(context.Background(), queue.URLOrigin(server.URL+"/story"))
	if err != nil {
		t.Fatalf("Extract failed: %v", err)
	}
	if doc.Title != "Deep Sea Mining" {
		t.Fatalf("title = %q", doc.Title)
	}
	if len(doc.Authors) != 1 || doc.Authors[0] != "Jordan Reyes" {
		t.Fatalf("authors = %v", doc.Authors)
	}
	if doc.Published.IsZero() {
		t.Fatal("expected published time")
	}
	if strings.Contains(doc.Text, "Share") || strings.Contains(doc.Text, "Home News") {
		t.Fatalf("boilerplate not filtered: %q", doc.Text)
	}
	if doc.Markdown == "" {
		t.Fatal("expected markdown rendering")
	}

	spoken := doc.SpokenText()
	if !strings.HasPrefix(spoken, "Deep Sea Mining.\n\n") {
		t.Fatalf("unexpected lead-in: %q", spoken[:60])
	}
	if !strings.Contains(spoken, "Written by: Jordan Reyes.") {
		t.Fatal("lead-in missing author")
	}
	if !strings.Contains(spoken, "Published on: February 14, 2025.") {
		t.Fatal("lead-in missing date")
	}
}

func TestExtractClassifiesHTTPFailures(t *testing.T) {
	notFound := serve(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "gone", http.StatusNotFound)
	})
	flaky := serve(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusBadGateway)
	})

	extractor := extract.New(nil)
	ctx := context.Background()

	if _, err := extractor.Extract(ctx, queue.URLOrigin(notFound.URL)); !errors.Is(err, services.ErrExtraction) {
		t.Fatalf("404 should be permanent, got %v", err)
	}
	if _, err := extractor.Extract(ctx, queue.URLOrigin(flaky.URL)); !errors.Is(err, services.ErrTransient) {
		t.Fatalf("502 should be transient, got %v", err)
	}
}

func TestExtractRejectsThinPages(t *testing.T) {
	server := serve(t, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `<html><body><p>This article body is far too short to narrate properly and keep listeners engaged throughout playback sessions.</p></body></html>`)
	})

	extractor := extract.New(nil)
	_, err := extractor.Extract(context.Background(), queue.URLOrigin(server.URL))
	if !errors.Is(err, services.ErrExtraction) {
		t.Fatalf("expected extraction error for thin page, got %v", err)
	}
}

func TestExtractTextOriginPassesThrough(t *testing.T) {
	extractor := extract.New(nil)
	doc, err := extractor.Extract(context.Background(), queue.TextOrigin("  A note to narrate.  "))
	if err != nil {
		t.Fatalf("Extract failed: %v", err)
	}
	if doc.Text != "A note to narrate." {
		t.Fatalf("text = %q", doc.Text)
	}
	if doc.Title != "" {
		t.Fatal("raw text carries no title until the transform names it")
	}
}

func TestSpokenTextWithoutMetadata(t *testing.T) {
	doc := &extract.Document{Text: "Plain body."}
	if got := doc.SpokenText(); got != "Plain body." {
		t.Fatalf("SpokenText = %q", got)
	}
}
