package feeds_test

import (
	"context"
	"testing"
	"time"

	"github.com/mmcdole/gofeed"

	"readout/internal/feeds"
	"readout/internal/sources"
	"readout/internal/testsupport"
)

func fixedNow() time.Time {
	return time.Date(2025, 3, 10, 9, 0, 0, 0, time.Local)
}

func newScanner(t *testing.T, feed *gofeed.Feed, opts ...feeds.Option) (*feeds.Scanner, *sources.Store) {
	t.Helper()
	cfg := testsupport.NewConfig(t)
	queueStore := testsupport.MustOpenStore(t, cfg)
	sourceStore := sources.NewStore(queueStore.DB())

	fetch := func(ctx context.Context, url string) (*gofeed.Feed, error) {
		return feed, nil
	}
	opts = append([]feeds.Option{feeds.WithFetch(fetch), feeds.WithNow(fixedNow)}, opts...)
	return feeds.NewScanner(queueStore.DB(), sourceStore, nil, opts...), sourceStore
}

func itemAt(title, link string, published time.Time) *gofeed.Item {
	return &gofeed.Item{Title: title, Link: link, PublishedParsed: &published}
}

func TestScanAcceptsTodaysMatchingEntries(t *testing.T) {
	today := fixedNow().Add(-2 * time.Hour)
	yesterday := fixedNow().Add(-26 * time.Hour)
	feed := &gofeed.Feed{Items: []*gofeed.Item{
		itemAt("AI breakthroughs in robotics", "https://example.com/ai", today),
		itemAt("Weather report", "https://example.com/weather", today),
		itemAt("AI news from yesterday", "https://example.com/old", yesterday),
	}}
	scanner, sourceStore := newScanner(t, feed)
	ctx := context.Background()

	if _, err := sourceStore.Add(ctx, sources.Source{URL: "https://example.com/feed", Category: "tech", Keywords: []string{"node"}}); err != nil {
		t.Fatalf("Add source failed: %v", err)
	}
	if err := sourceStore.AddGlobalKeywords(ctx, []string{"ai"}); err != nil {
		t.Fatalf("AddGlobalKeywords failed: %v", err)
	}

	added, err := scanner.Scan(ctx)
	if err != nil {
		t.Fatalf("Scan failed: %v", err)
	}
	if len(added) != 1 {
		t.Fatalf("added = %d, want 1", len(added))
	}

	candidates := scanner.Today()
	if len(candidates) != 1 {
		t.Fatalf("unexpected candidates: %#v", candidates)
	}
	got := candidates[0]
	if got.Title != "AI breakthroughs in robotics" || got.Category != "tech" || got.Source != "https://example.com/feed" {
		t.Fatalf("unexpected candidate: %#v", got)
	}
}

func TestScanIsIdempotentWithinADay(t *testing.T) {
	today := fixedNow().Add(-time.Hour)
	feed := &gofeed.Feed{Items: []*gofeed.Item{
		itemAt("Anything goes", "https://example.com/post", today),
	}}
	scanner, sourceStore := newScanner(t, feed)
	ctx := context.Background()

	if _, err := sourceStore.Add(ctx, sources.Source{URL: "https://example.com/feed", Keywords: []string{"*"}}); err != nil {
		t.Fatalf("Add source failed: %v", err)
	}

	for run := 0; run < 2; run++ {
		if _, err := scanner.Scan(ctx); err != nil {
			t.Fatalf("Scan %d failed: %v", run, err)
		}
	}
	if candidates := scanner.Today(); len(candidates) != 1 {
		t.Fatalf("expected one candidate after repeated scans, got %d", len(candidates))
	}
}

func TestTodayClearsAtDayRollover(t *testing.T) {
	today := fixedNow().Add(-time.Hour)
	feed := &gofeed.Feed{Items: []*gofeed.Item{
		itemAt("Anything goes", "https://example.com/post", today),
	}}

	current := fixedNow()
	scanner, sourceStore := newScanner(t, feed, feeds.WithNow(func() time.Time { return current }))
	ctx := context.Background()

	if _, err := sourceStore.Add(ctx, sources.Source{URL: "https://example.com/feed", Keywords: []string{"*"}}); err != nil {
		t.Fatalf("Add source failed: %v", err)
	}
	if _, err := scanner.Scan(ctx); err != nil {
		t.Fatalf("Scan failed: %v", err)
	}
	if len(scanner.Today()) != 1 {
		t.Fatal("expected a candidate before rollover")
	}

	current = current.Add(24 * time.Hour)
	if len(scanner.Today()) != 0 {
		t.Fatal("expected empty candidate list after rollover")
	}
}

func TestCanonicalLink(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"HTTPS://Example.com/Post/", "https://example.com/Post"},
		{"https://example.com/post#frag", "https://example.com/post"},
		{"  https://example.com/post  ", "https://example.com/post"},
	}
	for _, tc := range cases {
		if got := feeds.CanonicalLink(tc.in); got != tc.want {
			t.Errorf("CanonicalLink(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}
