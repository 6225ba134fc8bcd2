package synth

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"readout/internal/config"
	"readout/internal/services"
)

// VoiceRole selects which configured voice speaks a segment. Podcast scripts
// alternate roles; plain narration uses the primary voice throughout.
type VoiceRole int

const (
	VoicePrimary VoiceRole = iota
	VoiceAlternate
)

// Segment is one unit of synthesis work.
type Segment struct {
	Text  string
	Voice VoiceRole
}

// ProgressFunc receives chunk completion updates during synthesis.
type ProgressFunc func(done, total int)

// Engine synthesizes segments into a single audio file at outputPath.
type Engine interface {
	Name() string
	Synthesize(ctx context.Context, segments []Segment, outputPath string, progress ProgressFunc) error
}

// classifyInterrupt maps a context error observed between chunks. A hit
// stage deadline is a retryable synthesis failure; only an explicit cancel
// is terminal.
func classifyInterrupt(err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return services.Wrap(services.ErrSynthesis, "synthesize", "", "stage deadline exceeded", err)
	}
	return services.Wrap(services.ErrCancelled, "synthesize", "", "", err)
}

// Registry resolves engine ids to engines.
type Registry struct {
	engines map[string]Engine
}

// NewRegistry builds a registry from the given engines.
func NewRegistry(engines ...Engine) *Registry {
	r := &Registry{engines: make(map[string]Engine, len(engines))}
	for _, engine := range engines {
		r.engines[engine.Name()] = engine
	}
	return r
}

// FromConfig builds the standard registry: the HTTP engine and, when a
// binary is configured, piper.
func FromConfig(cfg *config.Config) *Registry {
	engines := []Engine{NewHTTPEngine(cfg.TTS)}
	if cfg.TTS.Piper.Binary != "" {
		engines = append(engines, NewPiperEngine(cfg.TTS))
	}
	return NewRegistry(engines...)
}

// Get resolves an engine id. Unknown ids are a validation error, caught at
// enqueue time.
func (r *Registry) Get(name string) (Engine, error) {
	engine, ok := r.engines[name]
	if !ok {
		return nil, services.Wrap(services.ErrValidation, "synthesize", "",
			fmt.Sprintf("unknown tts engine %q (have %v)", name, r.Names()), nil)
	}
	return engine, nil
}

// Names lists registered engine ids, sorted.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.engines))
	for name := range r.engines {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
