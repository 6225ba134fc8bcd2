package media_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"readout/internal/media"
	"readout/internal/services"
	"readout/internal/testsupport"
)

func newStore(t *testing.T) (*media.Store, string) {
	t.Helper()
	cfg := testsupport.NewConfig(t)
	queueStore := testsupport.MustOpenStore(t, cfg)
	return media.NewStore(queueStore.DB()), cfg.Paths.OutputDir
}

func sampleItem(id string, contentType media.ContentType, added time.Time) *media.Item {
	return &media.Item{
		ID:          id,
		ContentType: contentType,
		Title:       "Sample " + id,
		AudioFile:   "/tmp/does-not-exist-" + id + ".mp3",
		FullText:    "body",
		DateAdded:   added,
	}
}

func TestInsertAndGet(t *testing.T) {
	store, _ := newStore(t)
	ctx := context.Background()

	item := sampleItem("aaa111", media.TypeArticle, time.Now())
	item.SourceURL = "https://example.com/story"
	item.ShortText = "tldr"
	if err := store.Insert(ctx, item); err != nil {
		t.Fatalf("Insert failed: %v", err)
	}

	fetched, err := store.GetByID(ctx, media.TypeArticle, "aaa111")
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if fetched.Title != "Sample aaa111" || fetched.ShortText != "tldr" || fetched.SourceURL != "https://example.com/story" {
		t.Fatalf("unexpected item: %#v", fetched)
	}

	if _, err := store.GetByID(ctx, media.TypePodcast, "aaa111"); !errors.Is(err, services.ErrNotFound) {
		t.Fatalf("wrong content type should be not found, got %v", err)
	}
}

func TestListPaginatesNewestFirst(t *testing.T) {
	store, _ := newStore(t)
	ctx := context.Background()

	base := time.Now().Add(-time.Hour)
	for i, id := range []string{"old", "mid", "new"} {
		if err := store.Insert(ctx, sampleItem(id, media.TypeText, base.Add(time.Duration(i)*time.Minute))); err != nil {
			t.Fatalf("Insert failed: %v", err)
		}
	}

	page, err := store.List(ctx, media.TypeText, 2, 0)
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(page) != 2 || page[0].ID != "new" || page[1].ID != "mid" {
		t.Fatalf("unexpected page: %#v", page)
	}

	rest, err := store.List(ctx, media.TypeText, 2, 2)
	if err != nil {
		t.Fatalf("List offset failed: %v", err)
	}
	if len(rest) != 1 || rest[0].ID != "old" {
		t.Fatalf("unexpected remainder: %#v", rest)
	}
}

func TestDeleteRemovesRecordsAndFiles(t *testing.T) {
	store, outputDir := newStore(t)
	ctx := context.Background()

	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	audioPath := filepath.Join(outputDir, "gone.mp3")
	if err := os.WriteFile(audioPath, []byte("audio"), 0o644); err != nil {
		t.Fatalf("write audio: %v", err)
	}

	item := sampleItem("gone", media.TypePodcast, time.Now())
	item.AudioFile = audioPath
	if err := store.Insert(ctx, item); err != nil {
		t.Fatalf("Insert failed: %v", err)
	}

	deleted, err := store.Delete(ctx, []media.Ref{
		{ContentType: media.TypePodcast, ID: "gone"},
		{ContentType: media.TypeArticle, ID: "never-existed"},
	})
	if err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if deleted != 1 {
		t.Fatalf("deleted = %d, want 1", deleted)
	}
	if _, err := os.Stat(audioPath); !errors.Is(err, os.ErrNotExist) {
		t.Fatal("audio file should be removed")
	}
	if _, err := store.GetByID(ctx, media.TypePodcast, "gone"); !errors.Is(err, services.ErrNotFound) {
		t.Fatalf("record should be removed, got %v", err)
	}
}

func TestIDForIsStableAndShort(t *testing.T) {
	a := media.IDFor("https://example.com/story")
	b := media.IDFor("https://example.com/story")
	c := media.IDFor("https://example.com/other")
	if a != b {
		t.Fatal("id must be deterministic")
	}
	if a == c {
		t.Fatal("different seeds must differ")
	}
	if len(a) != 12 {
		t.Fatalf("id length = %d, want 12", len(a))
	}
}
