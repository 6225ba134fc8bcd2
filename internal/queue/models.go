package queue

import (
	"crypto/sha256"
	"encoding/base64"
	"net/url"
	"strings"
	"time"

	"readout/internal/services"
)

// Status represents the lifecycle of a queue task.
type Status string

const (
	StatusPending    Status = "pending"
	StatusProcessing Status = "processing"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
)

var allStatuses = []Status{
	StatusPending,
	StatusProcessing,
	StatusCompleted,
	StatusFailed,
}

var statusSet = func() map[Status]struct{} {
	set := make(map[Status]struct{}, len(allStatuses))
	for _, status := range allStatuses {
		set[status] = struct{}{}
	}
	return set
}()

// AllStatuses returns the ordered list of known statuses.
func AllStatuses() []Status {
	cp := make([]Status, len(allStatuses))
	copy(cp, allStatuses)
	return cp
}

// ParseStatus converts a string into a known Status.
func ParseStatus(value string) (Status, bool) {
	normalized := Status(strings.ToLower(strings.TrimSpace(value)))
	if normalized == "" {
		return "", false
	}
	_, ok := statusSet[normalized]
	return normalized, ok
}

// IsActive reports whether the status still blocks a duplicate submission.
func (s Status) IsActive() bool {
	return s == StatusPending || s == StatusProcessing
}

// Mode selects what the pipeline produces from the source content.
type Mode string

const (
	ModeFull    Mode = "full"
	ModeSummary Mode = "summary"
	ModePodcast Mode = "podcast"
)

// ParseMode converts a string into a known Mode.
func ParseMode(value string) (Mode, bool) {
	switch Mode(strings.ToLower(strings.TrimSpace(value))) {
	case ModeFull:
		return ModeFull, true
	case ModeSummary:
		return ModeSummary, true
	case ModePodcast:
		return ModePodcast, true
	default:
		return "", false
	}
}

// OriginKind distinguishes URL submissions from raw text submissions.
type OriginKind string

const (
	OriginURL  OriginKind = "url"
	OriginText OriginKind = "text"
)

// Origin is the source of a task: a fetchable URL or literal text.
type Origin struct {
	Kind  OriginKind
	Value string
}

// URLOrigin builds a URL origin.
func URLOrigin(raw string) Origin {
	return Origin{Kind: OriginURL, Value: strings.TrimSpace(raw)}
}

// TextOrigin builds a raw text origin.
func TextOrigin(text string) Origin {
	return Origin{Kind: OriginText, Value: text}
}

// Validate checks the origin before it may be enqueued. URLs must be
// absolute http/https with a host; text must be non-empty.
func (o Origin) Validate() error {
	switch o.Kind {
	case OriginURL:
		parsed, err := url.Parse(o.Value)
		if err != nil {
			return services.Wrap(services.ErrValidation, "queue", "validate origin", "invalid url", err)
		}
		if parsed.Scheme != "http" && parsed.Scheme != "https" {
			return services.Wrap(services.ErrValidation, "queue", "validate origin", "url scheme must be http or https", nil)
		}
		if parsed.Host == "" {
			return services.Wrap(services.ErrValidation, "queue", "validate origin", "url missing host", nil)
		}
		return nil
	case OriginText:
		if strings.TrimSpace(o.Value) == "" {
			return services.Wrap(services.ErrValidation, "queue", "validate origin", "text is empty", nil)
		}
		return nil
	default:
		return services.Wrap(services.ErrValidation, "queue", "validate origin", "unknown origin kind", nil)
	}
}

// Normalized returns the canonical form used for duplicate detection:
// lowercased scheme and host with the fragment stripped for URLs, trimmed
// whitespace for text.
func (o Origin) Normalized() string {
	switch o.Kind {
	case OriginURL:
		parsed, err := url.Parse(strings.TrimSpace(o.Value))
		if err != nil {
			return strings.TrimSpace(o.Value)
		}
		parsed.Scheme = strings.ToLower(parsed.Scheme)
		parsed.Host = strings.ToLower(parsed.Host)
		parsed.Fragment = ""
		return parsed.String()
	default:
		return strings.TrimSpace(o.Value)
	}
}

// DedupKey derives the duplicate-suppression key for an origin and mode.
// Two submissions with the same key may not be active at the same time.
func DedupKey(origin Origin, mode Mode) string {
	sum := sha256.Sum256([]byte(origin.Normalized() + "|" + string(mode)))
	return base64.RawURLEncoding.EncodeToString(sum[:])[:12]
}

// Task is a queue row: one unit of conversion work.
type Task struct {
	ID              int64
	Origin          Origin
	Mode            Mode
	Engine          string
	Status          Status
	Progress        int
	Stage           string
	Title           string
	ErrorKind       string
	ErrorMessage    string
	MediaID         string
	DedupKey        string
	CancelRequested bool
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// IsProcessing reports whether the task is currently claimed by a worker.
func (t Task) IsProcessing() bool {
	return t.Status == StatusProcessing
}

// Stats holds per-status task counts.
type Stats struct {
	Total      int
	Pending    int
	Processing int
	Completed  int
	Failed     int
}
