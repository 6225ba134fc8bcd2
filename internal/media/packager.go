package media

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/bogem/id3v2/v2"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"readout/internal/logging"
	"readout/internal/services"
)

const (
	tagArtist = "READOUT"
	tagGenre  = "Spoken Audio"
)

// Packager finalizes a completed task: it lays out the per-day output
// folder, writes the markdown sidecar, tags the audio file, and inserts the
// media record.
type Packager struct {
	store     *Store
	outputDir string
	logger    *slog.Logger
	now       func() time.Time
}

// NewPackager builds a Packager writing under outputDir.
func NewPackager(store *Store, outputDir string, logger *slog.Logger) *Packager {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Packager{
		store:     store,
		outputDir: outputDir,
		logger:    logger.With(logging.String(logging.FieldComponent, "package")),
		now:       time.Now,
	}
}

// AudioPath returns the target audio file path for a media id, creating the
// per-day folder. Synthesis writes here before Finalize runs.
func (p *Packager) AudioPath(id string) (string, error) {
	dir := filepath.Join(p.outputDir, p.now().Format("20060102"))
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", services.Wrap(services.ErrPersistence, "package", "create output dir", dir, err)
	}
	return filepath.Join(dir, id+".mp3"), nil
}

// Request carries everything Finalize needs to produce the media record.
type Request struct {
	ID          string
	ContentType ContentType
	Title       string
	SourceURL   string
	AudioPath   string
	Markdown    string
	FullText    string
	ShortText   string
	Published   time.Time
}

// Finalize writes the markdown sidecar next to the audio file, tags the
// audio, and inserts the media record. Returns the stored item.
func (p *Packager) Finalize(ctx context.Context, req Request) (*Item, error) {
	if req.ID == "" || req.AudioPath == "" {
		return nil, services.Wrap(services.ErrValidation, "package", "finalize", "missing id or audio path", nil)
	}
	if _, err := os.Stat(req.AudioPath); err != nil {
		return nil, services.Wrap(services.ErrPersistence, "package", "finalize", "audio file missing", err)
	}

	title := strings.TrimSpace(req.Title)
	if title == "" {
		title = "Untitled " + p.now().Format("2006-01-02")
	}

	markdownPath := strings.TrimSuffix(req.AudioPath, filepath.Ext(req.AudioPath)) + ".md"
	if err := p.writeSidecar(markdownPath, title, req); err != nil {
		return nil, err
	}

	if err := p.tagAudio(req.AudioPath, title); err != nil {
		p.logger.Warn("tag audio failed", logging.String("file", req.AudioPath), logging.Error(err))
	}

	item := &Item{
		ID:            req.ID,
		ContentType:   req.ContentType,
		Title:         title,
		SourceURL:     req.SourceURL,
		AudioFile:     req.AudioPath,
		MarkdownFile:  markdownPath,
		FullText:      req.FullText,
		ShortText:     req.ShortText,
		DateAdded:     p.now().UTC(),
		DatePublished: req.Published,
	}
	if err := p.store.Insert(ctx, item); err != nil {
		return nil, err
	}

	p.logger.Info("packaged media",
		logging.String("media_id", item.ID),
		logging.String("type", string(item.ContentType)),
		logging.String("audio", item.AudioFile))
	return item, nil
}

func (p *Packager) writeSidecar(path, title string, req Request) error {
	var b strings.Builder
	fmt.Fprintf(&b, "# %s\n\n", title)
	if req.SourceURL != "" {
		fmt.Fprintf(&b, "Source: %s\n\n", req.SourceURL)
	}
	if req.ShortText != "" {
		fmt.Fprintf(&b, "## TL;DR\n\n%s\n\n", strings.TrimSpace(req.ShortText))
	}
	body := strings.TrimSpace(req.Markdown)
	if body == "" {
		body = strings.TrimSpace(req.FullText)
	}
	b.WriteString(body)
	b.WriteString("\n")

	if err := os.WriteFile(path, []byte(b.String()), 0o644); err != nil {
		return services.Wrap(services.ErrPersistence, "package", "write sidecar", path, err)
	}
	return nil
}

// tagAudio writes ID3 frames so podcast clients group a day's output into
// one album.
func (p *Packager) tagAudio(path, title string) error {
	tag, err := id3v2.Open(path, id3v2.Options{Parse: true})
	if err != nil {
		return fmt.Errorf("open id3 tag: %w", err)
	}
	defer func() { _ = tag.Close() }()

	tag.SetTitle(cases.Title(language.Und).String(title))
	tag.SetAlbum(tagArtist + p.now().Format("20060102"))
	tag.SetArtist(tagArtist)
	tag.SetGenre(tagGenre)
	tag.AddTextFrame(tag.CommonID("Track number/Position in set"), tag.DefaultEncoding(), "1")

	if err := tag.Save(); err != nil {
		return fmt.Errorf("save id3 tag: %w", err)
	}
	return nil
}
