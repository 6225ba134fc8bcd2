package daemon

import (
	"time"

	"readout/internal/media"
	"readout/internal/queue"
	"readout/internal/sources"
	"readout/internal/status"
)

type taskView struct {
	ID           int64     `json:"id"`
	OriginKind   string    `json:"originKind"`
	Origin       string    `json:"origin"`
	Mode         string    `json:"mode"`
	Engine       string    `json:"engine"`
	Status       string    `json:"status"`
	Progress     int       `json:"progress"`
	Stage        string    `json:"stage,omitempty"`
	Title        string    `json:"title,omitempty"`
	ErrorKind    string    `json:"errorKind,omitempty"`
	ErrorMessage string    `json:"errorMessage,omitempty"`
	MediaID      string    `json:"mediaId,omitempty"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

func viewTask(t *queue.Task) taskView {
	origin := t.Origin.Value
	if t.Origin.Kind == queue.OriginText {
		origin = truncateOrigin(origin, 120)
	}
	return taskView{
		ID:           t.ID,
		OriginKind:   string(t.Origin.Kind),
		Origin:       origin,
		Mode:         string(t.Mode),
		Engine:       t.Engine,
		Status:       string(t.Status),
		Progress:     t.Progress,
		Stage:        t.Stage,
		Title:        t.Title,
		ErrorKind:    t.ErrorKind,
		ErrorMessage: t.ErrorMessage,
		MediaID:      t.MediaID,
		CreatedAt:    t.CreatedAt,
		UpdatedAt:    t.UpdatedAt,
	}
}

func truncateOrigin(text string, limit int) string {
	if len(text) <= limit {
		return text
	}
	return text[:limit] + "..."
}

type statsView struct {
	Total      int `json:"total"`
	Pending    int `json:"pending"`
	Processing int `json:"processing"`
	Completed  int `json:"completed"`
	Failed     int `json:"failed"`
}

type queueStatusResponse struct {
	Queue      statsView           `json:"queue"`
	Tasks      []taskView          `json:"tasks"`
	Errors     []status.ErrorEntry `json:"errors"`
	LastUpdate time.Time           `json:"lastUpdate"`
}

func viewSnapshot(snap *status.Snapshot) queueStatusResponse {
	tasks := make([]taskView, 0, len(snap.Tasks))
	for _, t := range snap.Tasks {
		tasks = append(tasks, viewTask(t))
	}
	return queueStatusResponse{
		Queue: statsView{
			Total:      snap.Queue.Total,
			Pending:    snap.Queue.Pending,
			Processing: snap.Queue.Processing,
			Completed:  snap.Queue.Completed,
			Failed:     snap.Queue.Failed,
		},
		Tasks:      tasks,
		Errors:     snap.Errors,
		LastUpdate: snap.LastUpdate,
	}
}

type sourceView struct {
	URL       string    `json:"url"`
	Category  string    `json:"category,omitempty"`
	Keywords  []string  `json:"keywords,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}

func viewSource(s sources.Source) sourceView {
	return sourceView{
		URL:       s.URL,
		Category:  s.Category,
		Keywords:  s.Keywords,
		CreatedAt: s.CreatedAt,
	}
}

type mediaView struct {
	ID            string     `json:"id"`
	ContentType   string     `json:"content_type"`
	Title         string     `json:"title"`
	SourceURL     string     `json:"sourceUrl,omitempty"`
	AudioFile     string     `json:"audioFile"`
	MarkdownFile  string     `json:"markdownFile,omitempty"`
	ShortText     string     `json:"shortText,omitempty"`
	FullText      string     `json:"fullText,omitempty"`
	DateAdded     time.Time  `json:"dateAdded"`
	DatePublished *time.Time `json:"datePublished,omitempty"`
}

func viewMedia(item *media.Item, includeText bool) mediaView {
	v := mediaView{
		ID:           item.ID,
		ContentType:  string(item.ContentType),
		Title:        item.Title,
		SourceURL:    item.SourceURL,
		AudioFile:    item.AudioFile,
		MarkdownFile: item.MarkdownFile,
		ShortText:    item.ShortText,
		DateAdded:    item.DateAdded,
	}
	if includeText {
		v.FullText = item.FullText
	}
	if !item.DatePublished.IsZero() {
		published := item.DatePublished
		v.DatePublished = &published
	}
	return v
}
