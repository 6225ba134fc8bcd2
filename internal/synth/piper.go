package synth

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"readout/internal/config"
	"readout/internal/services"
)

const piperEngineName = "piper"

// PiperEngine runs the local piper binary per chunk and merges the WAV
// chunks into one MP3 with ffmpeg. Piper has a single configured voice, so
// podcast role alternation is flattened.
type PiperEngine struct {
	cfg        config.TTS
	ffmpegPath string
}

// NewPiperEngine builds the piper subprocess engine from config.
func NewPiperEngine(cfg config.TTS) *PiperEngine {
	return &PiperEngine{cfg: cfg, ffmpegPath: "ffmpeg"}
}

// Name implements Engine.
func (e *PiperEngine) Name() string { return piperEngineName }

// Synthesize implements Engine.
func (e *PiperEngine) Synthesize(ctx context.Context, segments []Segment, outputPath string, progress ProgressFunc) error {
	if len(segments) == 0 {
		return services.Wrap(services.ErrSynthesis, "synthesize", "", "no segments to synthesize", nil)
	}
	if _, err := exec.LookPath(e.cfg.Piper.Binary); err != nil {
		return services.Wrap(services.ErrSynthesis, "synthesize", "piper", "binary not found", err)
	}
	if _, err := exec.LookPath(e.ffmpegPath); err != nil {
		return services.Wrap(services.ErrSynthesis, "synthesize", "ffmpeg", "binary not found", err)
	}

	workDir, err := os.MkdirTemp("", "readout-piper-")
	if err != nil {
		return services.Wrap(services.ErrSynthesis, "synthesize", "piper", "temp dir", err)
	}
	defer func() { _ = os.RemoveAll(workDir) }()

	total := len(segments)
	wavPaths := make([]string, 0, total)
	for i, segment := range segments {
		if err := ctx.Err(); err != nil {
			return classifyInterrupt(err)
		}
		wavPath := filepath.Join(workDir, fmt.Sprintf("chunk-%03d.wav", i))
		if err := e.runPiper(ctx, segment.Text, wavPath); err != nil {
			return err
		}
		wavPaths = append(wavPaths, wavPath)
		if progress != nil {
			progress(i+1, total)
		}
	}

	return e.mergeToMP3(ctx, workDir, wavPaths, outputPath)
}

func (e *PiperEngine) runPiper(ctx context.Context, text, wavPath string) error {
	cmd := exec.CommandContext(ctx, e.cfg.Piper.Binary,
		"--model", e.cfg.Piper.VoicePath,
		"--output_file", wavPath,
	)
	cmd.Stdin = strings.NewReader(text)
	if output, err := cmd.CombinedOutput(); err != nil {
		return services.Wrap(services.ErrSynthesis, "synthesize", "piper",
			strings.TrimSpace(string(output)), err)
	}
	return nil
}

func (e *PiperEngine) mergeToMP3(ctx context.Context, workDir string, wavPaths []string, outputPath string) error {
	listPath := filepath.Join(workDir, "chunks.txt")
	var list strings.Builder
	for _, path := range wavPaths {
		fmt.Fprintf(&list, "file '%s'\n", path)
	}
	if err := os.WriteFile(listPath, []byte(list.String()), 0o644); err != nil {
		return services.Wrap(services.ErrSynthesis, "synthesize", "ffmpeg", "write concat list", err)
	}

	cmd := exec.CommandContext(ctx, e.ffmpegPath,
		"-y",
		"-f", "concat",
		"-safe", "0",
		"-i", listPath,
		"-codec:a", "libmp3lame",
		"-qscale:a", "4",
		outputPath,
	)
	if output, err := cmd.CombinedOutput(); err != nil {
		return services.Wrap(services.ErrSynthesis, "synthesize", "ffmpeg",
			strings.TrimSpace(string(output)), err)
	}
	return nil
}
