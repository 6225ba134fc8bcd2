package synth_test

import (
	"strings"
	"testing"

	"readout/internal/synth"
)

func TestSplitTextRespectsSentenceBoundaries(t *testing.T) {
	text := "First sentence here. Second sentence follows! Third one asks? Fourth closes."
	chunks := synth.SplitText(text, 45)
	if len(chunks) < 2 {
		t.Fatalf("expected multiple chunks, got %v", chunks)
	}
	for _, chunk := range chunks {
		if len(chunk) > 45 {
			t.Fatalf("chunk exceeds budget: %q", chunk)
		}
		if strings.TrimSpace(chunk) == "" {
			t.Fatal("empty chunk")
		}
	}
	if joined := strings.Join(chunks, " "); joined != text {
		t.Fatalf("chunks lose content: %q", joined)
	}
}

func TestSplitTextHandlesOversizedSentence(t *testing.T) {
	long := strings.Repeat("word ", 100) + "end."
	chunks := synth.SplitText(long, 120)
	if len(chunks) < 2 {
		t.Fatalf("expected the sentence to be split, got %d chunk(s)", len(chunks))
	}
	for _, chunk := range chunks {
		if len(chunk) > 120 {
			t.Fatalf("chunk exceeds budget: %d chars", len(chunk))
		}
	}
}

func TestSegmentsFromTextUsesPrimaryVoice(t *testing.T) {
	segments := synth.SegmentsFromText("One. Two. Three.", 1800)
	if len(segments) != 1 {
		t.Fatalf("expected a single segment, got %d", len(segments))
	}
	if segments[0].Voice != synth.VoicePrimary {
		t.Fatal("narration must use the primary voice")
	}
}

func TestSegmentsFromScriptAlternatesVoices(t *testing.T) {
	script := `speaker1: Welcome to the show.
speaker2: Thanks, um, glad to be here.
You know, this continues the same thought.
speaker1: Let's dig in.`

	segments := synth.SegmentsFromScript(script)
	if len(segments) != 3 {
		t.Fatalf("expected 3 segments, got %#v", segments)
	}
	if segments[0].Voice != synth.VoicePrimary || segments[1].Voice != synth.VoiceAlternate || segments[2].Voice != synth.VoicePrimary {
		t.Fatalf("unexpected voice assignment: %#v", segments)
	}
	if !strings.Contains(segments[1].Text, "continues the same thought") {
		t.Fatalf("continuation line not merged: %q", segments[1].Text)
	}
	for _, segment := range segments {
		if strings.Contains(strings.ToLower(segment.Text), "speaker") {
			t.Fatalf("speaker tag leaked into text: %q", segment.Text)
		}
	}
}
