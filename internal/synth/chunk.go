package synth

import (
	"strings"
	"unicode"
)

// SplitText breaks text into chunks of at most maxChars, preferring sentence
// boundaries so each chunk synthesizes as natural speech. A single sentence
// longer than the budget is split on whitespace.
func SplitText(text string, maxChars int) []string {
	if maxChars <= 0 {
		maxChars = 1800
	}
	var chunks []string
	var current strings.Builder
	for _, sentence := range splitSentences(text) {
		if current.Len() > 0 && current.Len()+len(sentence)+1 > maxChars {
			chunks = append(chunks, strings.TrimSpace(current.String()))
			current.Reset()
		}
		if len(sentence) > maxChars {
			chunks = append(chunks, flushBuilder(&current)...)
			chunks = append(chunks, splitByWords(sentence, maxChars)...)
			continue
		}
		if current.Len() > 0 {
			current.WriteByte(' ')
		}
		current.WriteString(sentence)
	}
	if trimmed := strings.TrimSpace(current.String()); trimmed != "" {
		chunks = append(chunks, trimmed)
	}
	return chunks
}

// SegmentsFromText chunks plain narration onto the primary voice.
func SegmentsFromText(text string, maxChars int) []Segment {
	chunks := SplitText(text, maxChars)
	segments := make([]Segment, 0, len(chunks))
	for _, chunk := range chunks {
		segments = append(segments, Segment{Text: chunk, Voice: VoicePrimary})
	}
	return segments
}

// SegmentsFromScript parses a two-speaker podcast script into segments with
// alternating voices. Lines are prefixed "speaker1:" or "speaker2:"; text
// without a recognized prefix joins the previous speaker's segment.
func SegmentsFromScript(script string) []Segment {
	var segments []Segment
	current := VoicePrimary
	for _, line := range strings.Split(script, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		lower := strings.ToLower(line)
		switch {
		case strings.HasPrefix(lower, "speaker1:"):
			current = VoicePrimary
			line = strings.TrimSpace(line[len("speaker1:"):])
		case strings.HasPrefix(lower, "speaker2:"):
			current = VoiceAlternate
			line = strings.TrimSpace(line[len("speaker2:"):])
		default:
			if len(segments) > 0 {
				segments[len(segments)-1].Text += " " + line
				continue
			}
		}
		if line == "" {
			continue
		}
		segments = append(segments, Segment{Text: line, Voice: current})
	}
	return segments
}

func splitSentences(text string) []string {
	var sentences []string
	var current strings.Builder
	runes := []rune(strings.TrimSpace(text))
	for i, r := range runes {
		current.WriteRune(r)
		if r == '.' || r == '!' || r == '?' {
			next := i + 1
			if next >= len(runes) || unicode.IsSpace(runes[next]) {
				if trimmed := strings.TrimSpace(current.String()); trimmed != "" {
					sentences = append(sentences, trimmed)
				}
				current.Reset()
			}
		}
	}
	if trimmed := strings.TrimSpace(current.String()); trimmed != "" {
		sentences = append(sentences, trimmed)
	}
	return sentences
}

func splitByWords(sentence string, maxChars int) []string {
	var chunks []string
	var current strings.Builder
	for _, word := range strings.Fields(sentence) {
		if current.Len() > 0 && current.Len()+len(word)+1 > maxChars {
			chunks = append(chunks, current.String())
			current.Reset()
		}
		if current.Len() > 0 {
			current.WriteByte(' ')
		}
		current.WriteString(word)
	}
	if current.Len() > 0 {
		chunks = append(chunks, current.String())
	}
	return chunks
}

func flushBuilder(b *strings.Builder) []string {
	trimmed := strings.TrimSpace(b.String())
	b.Reset()
	if trimmed == "" {
		return nil
	}
	return []string{trimmed}
}
