package extract

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	md "github.com/JohannesKaufmann/html-to-markdown"

	"readout/internal/logging"
	"readout/internal/queue"
	"readout/internal/services"
)

// minWordCount guards against paywall stubs and navigation-only pages.
const minWordCount = 100

// Handler processes one kind of fetched content. Handlers are consulted in
// registration order; the first one whose CanHandle returns true wins.
type Handler interface {
	CanHandle(url string, resp *http.Response) bool
	Handle(ctx context.Context, url string, resp *http.Response) (*Document, error)
}

// Extractor fetches a URL origin and routes the response through the handler
// chain. Raw text origins never touch the network.
type Extractor struct {
	client   *http.Client
	handlers []Handler
	logger   *slog.Logger
}

// Option customizes an Extractor.
type Option func(*Extractor)

// WithClient overrides the HTTP client.
func WithClient(client *http.Client) Option {
	return func(e *Extractor) { e.client = client }
}

// New builds an Extractor with the default handler chain: wiki pages, PDFs,
// then generic HTML as the fallback.
func New(logger *slog.Logger, opts ...Option) *Extractor {
	if logger == nil {
		logger = logging.NewNop()
	}
	converter := md.NewConverter("", true, nil)
	e := &Extractor{
		client: &http.Client{Timeout: 30 * time.Second},
		logger: logger.With(logging.String(logging.FieldComponent, "extract")),
	}
	e.handlers = []Handler{
		&wikiHandler{converter: converter},
		&pdfHandler{},
		&htmlHandler{converter: converter},
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Extract resolves an origin into a Document. Network and server failures
// classify as transient; malformed or empty content classifies as a
// permanent extraction error.
func (e *Extractor) Extract(ctx context.Context, origin queue.Origin) (*Document, error) {
	switch origin.Kind {
	case queue.OriginText:
		return fromText(origin.Value), nil
	case queue.OriginURL:
		return e.extractURL(ctx, origin.Value)
	default:
		return nil, services.Wrap(services.ErrValidation, "extract", "", fmt.Sprintf("unknown origin kind %q", origin.Kind), nil)
	}
}

func (e *Extractor) extractURL(ctx context.Context, rawURL string) (*Document, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, services.Wrap(services.ErrExtraction, "extract", "build request", rawURL, err)
	}
	req.Header.Set("User-Agent", "readout/1.0")

	resp, err := e.client.Do(req)
	if err != nil {
		return nil, services.Wrap(services.ErrTransient, "extract", "fetch", rawURL, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		marker := services.ErrTransient
		if resp.StatusCode >= 400 && resp.StatusCode < 500 && resp.StatusCode != http.StatusTooManyRequests {
			marker = services.ErrExtraction
		}
		return nil, services.Wrap(marker, "extract", "fetch", fmt.Sprintf("%s returned %s", rawURL, resp.Status), nil)
	}

	for _, handler := range e.handlers {
		if !handler.CanHandle(rawURL, resp) {
			continue
		}
		doc, err := handler.Handle(ctx, rawURL, resp)
		if err != nil {
			return nil, err
		}
		if doc.WordCount() < minWordCount {
			return nil, services.Wrap(services.ErrExtraction, "extract", "",
				fmt.Sprintf("extracted only %d words from %s", doc.WordCount(), rawURL), nil)
		}
		doc.SourceURL = rawURL
		if doc.Domain == "" {
			doc.Domain = siteDomain(rawURL)
		}
		e.logger.Debug("extracted document",
			logging.String("url", rawURL),
			logging.String("title", doc.Title),
			logging.Int("words", doc.WordCount()))
		return doc, nil
	}
	return nil, services.Wrap(services.ErrExtraction, "extract", "", "no handler for "+rawURL, nil)
}

func fromText(text string) *Document {
	trimmed := strings.TrimSpace(text)
	return &Document{Text: trimmed, Markdown: trimmed}
}

// siteDomain reduces a URL to its bare host for the spoken lead-in.
func siteDomain(rawURL string) string {
	parsed, err := url.Parse(rawURL)
	if err != nil || parsed.Host == "" {
		return ""
	}
	return strings.TrimPrefix(strings.ToLower(parsed.Host), "www.")
}
