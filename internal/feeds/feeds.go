// Package feeds scans configured sources for new articles and maintains the
// current day's candidate list. Discovery never enqueues tasks; clients
// decide which candidates become work.
package feeds

import (
	"context"
	"database/sql"
	"log/slog"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/mmcdole/gofeed"

	"readout/internal/logging"
	"readout/internal/sources"
)

// Candidate is an accepted feed entry, ephemeral within its scan day.
type Candidate struct {
	Title     string    `json:"title"`
	Link      string    `json:"link"`
	Published time.Time `json:"published"`
	Category  string    `json:"category"`
	Source    string    `json:"source"`
}

// FetchFunc retrieves and parses a feed. Swappable for tests.
type FetchFunc func(ctx context.Context, url string) (*gofeed.Feed, error)

// Scanner polls sources, filters entries by keyword rules, deduplicates
// against the persisted seen-link set, and accumulates today's candidates.
type Scanner struct {
	store     *sources.Store
	seen      *seenStore
	fetch     FetchFunc
	logger    *slog.Logger
	retention time.Duration
	now       func() time.Time

	mu    sync.Mutex
	day   string
	today []Candidate
}

// Option customizes a Scanner.
type Option func(*Scanner)

// WithFetch overrides the feed fetcher.
func WithFetch(fetch FetchFunc) Option {
	return func(s *Scanner) { s.fetch = fetch }
}

// WithNow overrides the clock.
func WithNow(now func() time.Time) Option {
	return func(s *Scanner) { s.now = now }
}

// WithSeenRetention overrides how long seen links are remembered.
func WithSeenRetention(d time.Duration) Option {
	return func(s *Scanner) { s.retention = d }
}

// NewScanner builds a Scanner over the shared database handle.
func NewScanner(db *sql.DB, store *sources.Store, logger *slog.Logger, opts ...Option) *Scanner {
	if logger == nil {
		logger = logging.NewNop()
	}
	parser := gofeed.NewParser()
	scanner := &Scanner{
		store: store,
		seen:  &seenStore{db: db},
		fetch: func(ctx context.Context, feedURL string) (*gofeed.Feed, error) {
			return parser.ParseURLWithContext(feedURL, ctx)
		},
		logger:    logger.With(logging.String(logging.FieldComponent, "feeds")),
		retention: 90 * 24 * time.Hour,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(scanner)
	}
	return scanner
}

// Scan polls every configured source once. Accepted entries are appended to
// today's candidate list; entries already seen, filtered out, or published on
// another day are skipped. A failing source is logged and skipped so one bad
// feed never poisons the scan. Returns the newly accepted entries.
func (s *Scanner) Scan(ctx context.Context) ([]Candidate, error) {
	configured, err := s.store.List(ctx)
	if err != nil {
		return nil, err
	}
	global, err := s.store.GlobalKeywords(ctx)
	if err != nil {
		return nil, err
	}
	if err := s.seen.prune(ctx, s.now().Add(-s.retention)); err != nil {
		s.logger.Warn("prune seen links", logging.Error(err))
	}

	scanDay := dayKey(s.now())
	var added []Candidate
	for _, source := range configured {
		if ctx.Err() != nil {
			return added, ctx.Err()
		}
		feed, err := s.fetch(ctx, source.URL)
		if err != nil {
			s.logger.Warn("fetch feed failed",
				logging.String("source", source.URL), logging.Error(err))
			continue
		}
		for _, item := range feed.Items {
			candidate, ok := s.evaluate(ctx, source, global, item, scanDay)
			if !ok {
				continue
			}
			s.appendToday(scanDay, candidate)
			added = append(added, candidate)
		}
	}
	s.logger.Info("scan complete",
		logging.Int("sources", len(configured)), logging.Int("accepted", len(added)))
	return added, nil
}

func (s *Scanner) evaluate(ctx context.Context, source sources.Source, global []string, item *gofeed.Item, scanDay string) (Candidate, bool) {
	if item == nil || strings.TrimSpace(item.Link) == "" {
		return Candidate{}, false
	}
	published := itemTime(item)
	if published.IsZero() || dayKey(published) != scanDay {
		return Candidate{}, false
	}
	if !sources.Accept(item.Title, item.Description, source.Keywords, global) {
		return Candidate{}, false
	}

	link := CanonicalLink(item.Link)
	fresh, err := s.seen.markSeen(ctx, link, s.now())
	if err != nil {
		s.logger.Warn("record seen link", logging.String("link", link), logging.Error(err))
		return Candidate{}, false
	}
	if !fresh {
		return Candidate{}, false
	}

	return Candidate{
		Title:     strings.TrimSpace(item.Title),
		Link:      link,
		Published: published,
		Category:  source.Category,
		Source:    source.URL,
	}, true
}

// Today returns a snapshot of the current day's candidates. A day rollover
// clears the list.
func (s *Scanner) Today() []Candidate {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.day != dayKey(s.now()) {
		s.today = nil
	}
	out := make([]Candidate, len(s.today))
	copy(out, s.today)
	return out
}

func (s *Scanner) appendToday(scanDay string, candidate Candidate) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.day != scanDay {
		s.day = scanDay
		s.today = nil
	}
	s.today = append(s.today, candidate)
}

// CanonicalLink normalizes a link for seen-set bookkeeping: lowercased
// scheme and host, fragment stripped, trailing slash removed.
func CanonicalLink(raw string) string {
	trimmed := strings.TrimSpace(raw)
	parsed, err := url.Parse(trimmed)
	if err != nil || parsed.Host == "" {
		return trimmed
	}
	parsed.Scheme = strings.ToLower(parsed.Scheme)
	parsed.Host = strings.ToLower(parsed.Host)
	parsed.Fragment = ""
	return strings.TrimSuffix(parsed.String(), "/")
}

func itemTime(item *gofeed.Item) time.Time {
	if item.PublishedParsed != nil {
		return item.PublishedParsed.Local()
	}
	if item.UpdatedParsed != nil {
		return item.UpdatedParsed.Local()
	}
	return time.Time{}
}

func dayKey(ts time.Time) string {
	return ts.Format("2006-01-02")
}
