// Package media owns the durable output of completed tasks: audio files,
// markdown sidecars, and their database records.
package media

import (
	"crypto/sha256"
	"encoding/base64"
	"strings"
	"time"
)

// ContentType distinguishes the three produced media kinds.
type ContentType string

const (
	TypeArticle ContentType = "article"
	TypeText    ContentType = "text"
	TypePodcast ContentType = "podcast"
)

// ParseContentType converts a string into a known ContentType.
func ParseContentType(value string) (ContentType, bool) {
	switch ContentType(strings.ToLower(strings.TrimSpace(value))) {
	case TypeArticle:
		return TypeArticle, true
	case TypeText:
		return TypeText, true
	case TypePodcast:
		return TypePodcast, true
	default:
		return "", false
	}
}

// Item is one media record.
type Item struct {
	ID            string
	ContentType   ContentType
	Title         string
	SourceURL     string
	AudioFile     string
	MarkdownFile  string
	FullText      string
	ShortText     string
	DateAdded     time.Time
	DatePublished time.Time
}

// Ref identifies a media record for bulk deletion.
type Ref struct {
	ContentType ContentType `json:"content_type"`
	ID          string      `json:"id"`
}

// IDFor derives the stable media id from the content's origin: a short
// base64url prefix of its SHA-256.
func IDFor(seed string) string {
	sum := sha256.Sum256([]byte(seed))
	return base64.RawURLEncoding.EncodeToString(sum[:])[:12]
}
