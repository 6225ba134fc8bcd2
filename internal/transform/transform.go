package transform

import (
	"context"
	"fmt"
	"strings"

	"readout/internal/services"
)

const systemPrompt = "You are a helpful assistant."

const summaryPrompt = `Return a concise summary for the text highlighted between ###, without referencing the text or mentioning 'in the text' or similar phrases. Keep the tone and perspective of the original text.
###
%s
###`

const podcastPrompt = `Using the text highlighted between ###, generate a detailed and engaging podcast conversation between two speakers, a man and a woman. The conversation should flow naturally and explore the content of the seed text. Include filler words like "um" and "you know" to make it sound human. Identify speakers at the beginning of their lines as "speaker1:" and "speaker2:". Do not include stage directions, sound effects, or any other annotations. No names are used in the dialogue.
###
%s
###`

const titlePrompt = `Return a concise, 3-5 word phrase as the title for the text highlighted between ###, strictly adhering to the 3-5 word limit and avoiding the use of the word 'title'. Output only the phrase and nothing else.
###
%s
###`

// maxPromptChars bounds how much source text is sent to the backend.
const maxPromptChars = 24000

// Transformer produces derived texts for the summary and podcast modes.
type Transformer struct {
	client *Client
}

// NewTransformer wraps a completion client.
func NewTransformer(client *Client) *Transformer {
	return &Transformer{client: client}
}

// Summarize returns the TL;DR variant of the text.
func (t *Transformer) Summarize(ctx context.Context, text string) (string, error) {
	out, err := t.complete(ctx, summaryPrompt, text)
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(out) == "" {
		return "", services.Wrap(services.ErrTransform, "transform", "summarize", "empty summary", nil)
	}
	return out, nil
}

// PodcastScript rewrites the text as a two-speaker conversation. Each line
// starts with "speaker1:" or "speaker2:".
func (t *Transformer) PodcastScript(ctx context.Context, text string) (string, error) {
	out, err := t.complete(ctx, podcastPrompt, text)
	if err != nil {
		return "", err
	}
	if !strings.Contains(strings.ToLower(out), "speaker1:") {
		return "", services.Wrap(services.ErrTransform, "transform", "podcast", "script has no speaker lines", nil)
	}
	return out, nil
}

// Title produces a short title for untitled content, such as raw text
// submissions.
func (t *Transformer) Title(ctx context.Context, text string) (string, error) {
	out, err := t.complete(ctx, titlePrompt, truncate(text, 2000))
	if err != nil {
		return "", err
	}
	title := sanitizeTitle(out)
	if title == "" {
		return "", services.Wrap(services.ErrTransform, "transform", "title", "empty title", nil)
	}
	return title, nil
}

func (t *Transformer) complete(ctx context.Context, template, text string) (string, error) {
	prompt := fmt.Sprintf(template, truncate(text, maxPromptChars))
	return t.client.Complete(ctx, systemPrompt, prompt)
}

func truncate(text string, limit int) string {
	if len(text) <= limit {
		return text
	}
	return text[:limit]
}

func sanitizeTitle(raw string) string {
	title := strings.TrimSpace(raw)
	title = strings.Trim(title, `"'`)
	if idx := strings.IndexByte(title, '\n'); idx >= 0 {
		title = title[:idx]
	}
	return strings.TrimSpace(title)
}
