package extract

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"regexp"
	"strings"
	"time"

	md "github.com/JohannesKaufmann/html-to-markdown"
	"github.com/PuerkitoBio/goquery"

	"readout/internal/services"
)

// htmlHandler is the fallback for ordinary article pages. It pulls metadata
// from the head, drops boilerplate-heavy short lines from the body, and
// keeps a markdown rendering for the sidecar file.
type htmlHandler struct {
	converter *md.Converter
}

func (h *htmlHandler) CanHandle(string, *http.Response) bool {
	return true
}

func (h *htmlHandler) Handle(_ context.Context, rawURL string, resp *http.Response) (*Document, error) {
	body, err := io.ReadAll(io.LimitReader(resp.Body, 10<<20))
	if err != nil {
		return nil, services.Wrap(services.ErrTransient, "extract", "read body", rawURL, err)
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, services.Wrap(services.ErrExtraction, "extract", "parse html", rawURL, err)
	}

	out := &Document{
		Title:     pageTitle(doc),
		Authors:   metaAuthors(doc),
		Published: publishedTime(doc),
	}

	doc.Find("script, style, nav, header, footer, aside, form, noscript").Remove()
	var paragraphs []string
	doc.Find("p, h1, h2, h3, li").Each(func(_ int, sel *goquery.Selection) {
		text := strings.TrimSpace(sel.Text())
		if text != "" {
			paragraphs = append(paragraphs, text)
		}
	})
	out.Text = filterShortLines(paragraphs)

	if markdown, err := h.converter.ConvertString(string(body)); err == nil {
		out.Markdown = markdown
	} else {
		out.Markdown = out.Text
	}
	return out, nil
}

func pageTitle(doc *goquery.Document) string {
	if og, ok := doc.Find(`meta[property="og:title"]`).Attr("content"); ok && strings.TrimSpace(og) != "" {
		return strings.TrimSpace(og)
	}
	return strings.TrimSpace(doc.Find("title").First().Text())
}

func metaAuthors(doc *goquery.Document) []string {
	seen := map[string]struct{}{}
	var authors []string
	doc.Find(`meta[name="author"], meta[property="author"], meta[property="article:author"]`).Each(func(_ int, sel *goquery.Selection) {
		content := strings.TrimSpace(sel.AttrOr("content", ""))
		if content == "" || strings.HasPrefix(content, "http") {
			return
		}
		if _, dup := seen[content]; dup {
			return
		}
		seen[content] = struct{}{}
		authors = append(authors, content)
	})
	return authors
}

var publishedFormats = []string{
	time.RFC3339,
	"2006-01-02T15:04:05.999999999Z0700",
	"2006-01-02T15:04:05",
	"2006-01-02",
}

func publishedTime(doc *goquery.Document) time.Time {
	raw, ok := doc.Find(`meta[property="article:published_time"]`).Attr("content")
	if !ok {
		raw, _ = doc.Find(`meta[name="date"]`).Attr("content")
	}
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}
	}
	for _, format := range publishedFormats {
		if ts, err := time.Parse(format, raw); err == nil {
			return ts
		}
	}
	return time.Time{}
}

var separatorRun = regexp.MustCompile(`[-_]{3,}`)

// filterShortLines drops runs of two or more consecutive short lines, which
// in practice are menus, captions, and share buttons rather than prose. A
// lone short line between paragraphs (a heading) survives.
func filterShortLines(lines []string) string {
	const shortWords = 15
	var kept []string
	for i := 0; i < len(lines); {
		if wordCount(lines[i]) < shortWords {
			if i+1 < len(lines) && wordCount(lines[i+1]) < shortWords {
				for i < len(lines) && wordCount(lines[i]) < shortWords {
					i++
				}
				continue
			}
		}
		kept = append(kept, separatorRun.ReplaceAllString(lines[i], ""))
		i++
	}
	return strings.TrimSpace(strings.Join(kept, "\n\n"))
}

func wordCount(line string) int {
	return len(strings.Fields(line))
}
