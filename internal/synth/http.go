package synth

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"readout/internal/config"
	"readout/internal/services"
)

const httpEngineName = "http"

// HTTPEngine speaks the OpenAI-compatible /audio/speech API. Chunks are
// requested sequentially and appended to the output file; MP3 frames
// concatenate cleanly.
type HTTPEngine struct {
	cfg    config.TTS
	client *http.Client
}

// NewHTTPEngine builds the HTTP synthesis engine from config.
func NewHTTPEngine(cfg config.TTS) *HTTPEngine {
	timeout := 120 * time.Second
	if cfg.TimeoutSeconds > 0 {
		timeout = time.Duration(cfg.TimeoutSeconds) * time.Second
	}
	return &HTTPEngine{cfg: cfg, client: &http.Client{Timeout: timeout}}
}

// Name implements Engine.
func (e *HTTPEngine) Name() string { return httpEngineName }

// WithClient overrides the HTTP client (used in tests).
func (e *HTTPEngine) WithClient(client *http.Client) *HTTPEngine {
	e.client = client
	return e
}

type speechRequest struct {
	Model          string `json:"model"`
	Input          string `json:"input"`
	Voice          string `json:"voice"`
	ResponseFormat string `json:"response_format"`
}

// Synthesize implements Engine.
func (e *HTTPEngine) Synthesize(ctx context.Context, segments []Segment, outputPath string, progress ProgressFunc) error {
	if len(segments) == 0 {
		return services.Wrap(services.ErrSynthesis, "synthesize", "", "no segments to synthesize", nil)
	}
	out, err := os.Create(outputPath)
	if err != nil {
		return services.Wrap(services.ErrSynthesis, "synthesize", "create output", outputPath, err)
	}
	defer func() { _ = out.Close() }()

	total := len(segments)
	for i, segment := range segments {
		if err := ctx.Err(); err != nil {
			return classifyInterrupt(err)
		}
		if err := e.synthesizeSegment(ctx, segment, out); err != nil {
			return err
		}
		if progress != nil {
			progress(i+1, total)
		}
	}
	return nil
}

func (e *HTTPEngine) synthesizeSegment(ctx context.Context, segment Segment, out io.Writer) error {
	voice := e.cfg.HTTP.Voice
	if segment.Voice == VoiceAlternate && e.cfg.HTTP.AltVoice != "" {
		voice = e.cfg.HTTP.AltVoice
	}
	payload := speechRequest{
		Model:          e.cfg.HTTP.Model,
		Input:          segment.Text,
		Voice:          voice,
		ResponseFormat: "mp3",
	}
	encoded, err := json.Marshal(payload)
	if err != nil {
		return services.Wrap(services.ErrSynthesis, "synthesize", "encode request", "", err)
	}

	endpoint := strings.TrimRight(e.cfg.HTTP.BaseURL, "/") + "/audio/speech"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(encoded))
	if err != nil {
		return services.Wrap(services.ErrSynthesis, "synthesize", "build request", "", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if e.cfg.HTTP.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+e.cfg.HTTP.APIKey)
	}

	resp, err := e.client.Do(req)
	if err != nil {
		return services.Wrap(services.ErrSynthesis, "synthesize", "request speech", "", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return services.Wrap(services.ErrSynthesis, "synthesize", "request speech",
			fmt.Sprintf("http %d: %s", resp.StatusCode, strings.TrimSpace(string(body))), nil)
	}
	if _, err := io.Copy(out, resp.Body); err != nil {
		return services.Wrap(services.ErrSynthesis, "synthesize", "write audio", "", err)
	}
	return nil
}
