package extract

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strings"

	md "github.com/JohannesKaufmann/html-to-markdown"
	"github.com/PuerkitoBio/goquery"

	"readout/internal/services"
)

// citationMarker matches inline reference markers like [1] or [citation needed].
var citationMarker = regexp.MustCompile(`\[[^\]]{1,30}\]`)

// wikiHandler extracts the article body of MediaWiki pages, which bury their
// content inside #mw-content-text and are full of citation markers the
// narrator should not read aloud.
type wikiHandler struct {
	converter *md.Converter
}

func (h *wikiHandler) CanHandle(rawURL string, _ *http.Response) bool {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return false
	}
	host := strings.ToLower(parsed.Host)
	return strings.HasSuffix(host, ".wikipedia.org") || strings.HasSuffix(host, ".wiktionary.org")
}

func (h *wikiHandler) Handle(_ context.Context, rawURL string, resp *http.Response) (*Document, error) {
	body, err := io.ReadAll(io.LimitReader(resp.Body, 10<<20))
	if err != nil {
		return nil, services.Wrap(services.ErrTransient, "extract", "read body", rawURL, err)
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, services.Wrap(services.ErrExtraction, "extract", "parse wiki page", rawURL, err)
	}

	content := doc.Find("#mw-content-text")
	if content.Length() == 0 {
		return nil, services.Wrap(services.ErrExtraction, "extract", "", "no wiki article body in "+rawURL, nil)
	}
	content.Find("table, .infobox, .navbox, .reflist, .mw-editsection, sup.reference, style").Remove()

	var paragraphs []string
	content.Find("p, h2, h3").Each(func(_ int, sel *goquery.Selection) {
		text := citationMarker.ReplaceAllString(strings.TrimSpace(sel.Text()), "")
		text = strings.TrimSpace(text)
		if text != "" && !strings.HasPrefix(text, "References") && !strings.HasPrefix(text, "External links") {
			paragraphs = append(paragraphs, text)
		}
	})

	title := strings.TrimSpace(doc.Find("#firstHeading").Text())
	if title == "" {
		title = pageTitle(doc)
	}

	out := &Document{
		Title: title,
		Text:  strings.Join(paragraphs, "\n\n"),
	}
	if markdown, err := h.converter.ConvertString(string(body)); err == nil {
		out.Markdown = markdown
	} else {
		out.Markdown = out.Text
	}
	return out, nil
}
