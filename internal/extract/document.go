package extract

import (
	"fmt"
	"strings"
	"time"
)

// Document is the extracted content of one origin.
type Document struct {
	Title     string
	Authors   []string
	Published time.Time
	Domain    string
	SourceURL string
	Text      string
	Markdown  string
}

// SpokenText prefixes the article body with a spoken lead-in naming the
// title, site, authors, and publication date, the way a narrator would
// introduce a piece.
func (d *Document) SpokenText() string {
	var b strings.Builder
	if title := strings.TrimSpace(d.Title); title != "" {
		b.WriteString(title + ".\n\n")
	}
	if d.Domain != "" {
		b.WriteString("From " + d.Domain + ".\n\n")
	}
	if len(d.Authors) > 0 {
		b.WriteString("Written by: " + strings.Join(d.Authors, ", ") + ".\n\n")
	}
	if !d.Published.IsZero() {
		b.WriteString(fmt.Sprintf("Published on: %s.\n\n", d.Published.Format("January 2, 2006")))
	}
	b.WriteString(d.Text)
	return b.String()
}

// WordCount counts whitespace-separated words in the document body.
func (d *Document) WordCount() int {
	return len(strings.Fields(d.Text))
}
