package media_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"readout/internal/logging"
	"readout/internal/media"
	"readout/internal/services"
)

func newPackager(t *testing.T) (*media.Packager, *media.Store, string) {
	t.Helper()
	store, outputDir := newStore(t)
	return media.NewPackager(store, outputDir, logging.NewNop()), store, outputDir
}

func TestAudioPathUsesDayFolder(t *testing.T) {
	pkg, _, outputDir := newPackager(t)

	path, err := pkg.AudioPath("abc123def456")
	if err != nil {
		t.Fatalf("AudioPath failed: %v", err)
	}

	day := time.Now().Format("20060102")
	want := filepath.Join(outputDir, day, "abc123def456.mp3")
	if path != want {
		t.Fatalf("path = %q, want %q", path, want)
	}
	if info, err := os.Stat(filepath.Dir(path)); err != nil || !info.IsDir() {
		t.Fatalf("day folder not created: %v", err)
	}
}

func TestFinalizeWritesSidecarAndRecord(t *testing.T) {
	pkg, store, _ := newPackager(t)
	ctx := context.Background()

	audioPath, err := pkg.AudioPath("story0000001")
	if err != nil {
		t.Fatalf("AudioPath failed: %v", err)
	}
	if err := os.WriteFile(audioPath, []byte("not really audio"), 0o644); err != nil {
		t.Fatalf("write audio: %v", err)
	}

	item, err := pkg.Finalize(ctx, media.Request{
		ID:          "story0000001",
		ContentType: media.TypeArticle,
		Title:       "Deep Sea Mining",
		SourceURL:   "https://example.com/mining",
		AudioPath:   audioPath,
		Markdown:    "Full article body in markdown.",
		FullText:    "Full article body.",
		ShortText:   "Mining moves offshore.",
	})
	if err != nil {
		t.Fatalf("Finalize failed: %v", err)
	}

	if item.MarkdownFile != strings.TrimSuffix(audioPath, ".mp3")+".md" {
		t.Fatalf("unexpected sidecar path %q", item.MarkdownFile)
	}
	sidecar, err := os.ReadFile(item.MarkdownFile)
	if err != nil {
		t.Fatalf("read sidecar: %v", err)
	}
	text := string(sidecar)
	for _, want := range []string{
		"# Deep Sea Mining",
		"Source: https://example.com/mining",
		"## TL;DR",
		"Mining moves offshore.",
		"Full article body in markdown.",
	} {
		if !strings.Contains(text, want) {
			t.Fatalf("sidecar missing %q:\n%s", want, text)
		}
	}

	stored, err := store.GetByID(ctx, media.TypeArticle, "story0000001")
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if stored.Title != "Deep Sea Mining" || stored.AudioFile != audioPath {
		t.Fatalf("unexpected record: %#v", stored)
	}
}

func TestFinalizeDefaultsTitleAndRequiresAudio(t *testing.T) {
	pkg, _, _ := newPackager(t)
	ctx := context.Background()

	_, err := pkg.Finalize(ctx, media.Request{ID: "x", ContentType: media.TypeText})
	if !errors.Is(err, services.ErrValidation) {
		t.Fatalf("missing audio path should be a validation error, got %v", err)
	}

	_, err = pkg.Finalize(ctx, media.Request{
		ID:          "x",
		ContentType: media.TypeText,
		AudioPath:   filepath.Join(t.TempDir(), "missing.mp3"),
	})
	if !errors.Is(err, services.ErrPersistence) {
		t.Fatalf("absent audio file should be a persistence error, got %v", err)
	}

	audioPath, err := pkg.AudioPath("untitled00001")
	if err != nil {
		t.Fatalf("AudioPath failed: %v", err)
	}
	if err := os.WriteFile(audioPath, []byte("audio"), 0o644); err != nil {
		t.Fatalf("write audio: %v", err)
	}
	item, err := pkg.Finalize(ctx, media.Request{
		ID:          "untitled00001",
		ContentType: media.TypeText,
		AudioPath:   audioPath,
		FullText:    "just text",
	})
	if err != nil {
		t.Fatalf("Finalize failed: %v", err)
	}
	if !strings.HasPrefix(item.Title, "Untitled ") {
		t.Fatalf("expected generated title, got %q", item.Title)
	}
}
