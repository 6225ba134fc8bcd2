package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains directory and bind address configuration.
type Paths struct {
	OutputDir string `toml:"output_dir"`
	DataDir   string `toml:"data_dir"`
	LogDir    string `toml:"log_dir"`
	APIBind   string `toml:"api_bind"`
}

// Workflow contains worker pool timing and retry settings.
type Workflow struct {
	Workers            int `toml:"workers"`
	QueuePollInterval  int `toml:"queue_poll_interval"`
	ErrorRetryInterval int `toml:"error_retry_interval"`
	StageTimeout       int `toml:"stage_timeout"`
	RetryBaseDelay     int `toml:"retry_base_delay"`
}

// LLM contains connection settings for the transform backend.
type LLM struct {
	APIKey         string `toml:"api_key"`
	BaseURL        string `toml:"base_url"`
	Model          string `toml:"model"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
}

// TTSHTTP configures the OpenAI-compatible speech synthesis endpoint.
type TTSHTTP struct {
	BaseURL  string `toml:"base_url"`
	APIKey   string `toml:"api_key"`
	Model    string `toml:"model"`
	Voice    string `toml:"voice"`
	AltVoice string `toml:"alt_voice"`
}

// TTSPiper configures the local piper subprocess engine.
type TTSPiper struct {
	Binary    string `toml:"binary"`
	VoicePath string `toml:"voice_path"`
}

// TTS contains speech synthesis settings shared across engines.
type TTS struct {
	DefaultEngine  string   `toml:"default_engine"`
	ChunkChars     int      `toml:"chunk_chars"`
	TimeoutSeconds int      `toml:"timeout_seconds"`
	HTTP           TTSHTTP  `toml:"http"`
	Piper          TTSPiper `toml:"piper"`
}

// Scheduler contains source scan timing.
type Scheduler struct {
	FetchTimes            []string `toml:"fetch_times"`
	SeenLinkRetentionDays int      `toml:"seen_link_retention_days"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
}

// Config encapsulates all configuration values for readout.
type Config struct {
	Paths     Paths     `toml:"paths"`
	Workflow  Workflow  `toml:"workflow"`
	LLM       LLM       `toml:"llm"`
	TTS       TTS       `toml:"tts"`
	Scheduler Scheduler `toml:"scheduler"`
	Logging   Logging   `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath("~/.config/readout/config.toml")
}

// Load locates, parses, and validates a configuration file. The returned
// config has all paths expanded and defaults applied. When path is empty the
// default location is used; a missing file at the default location yields the
// defaults rather than an error.
func Load(path string) (*Config, string, bool, error) {
	resolved, usedDefault, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	cfg := Default()

	raw, err := os.ReadFile(resolved)
	switch {
	case err == nil:
		if err := toml.Unmarshal(raw, &cfg); err != nil {
			return nil, resolved, false, fmt.Errorf("parse config %s: %w", resolved, err)
		}
	case errors.Is(err, fs.ErrNotExist):
		if !usedDefault {
			return nil, resolved, false, fmt.Errorf("config file %s does not exist", resolved)
		}
	default:
		return nil, resolved, false, fmt.Errorf("read config %s: %w", resolved, err)
	}

	if err := cfg.normalize(); err != nil {
		return nil, resolved, false, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, resolved, false, err
	}
	return &cfg, resolved, err == nil, nil
}

// WriteSample writes the embedded sample configuration to path, refusing to
// overwrite an existing file.
func WriteSample(path string) error {
	expanded, err := expandPath(path)
	if err != nil {
		return err
	}
	if _, err := os.Stat(expanded); err == nil {
		return fmt.Errorf("config file %s already exists", expanded)
	} else if !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("stat %s: %w", expanded, err)
	}
	if err := os.MkdirAll(filepath.Dir(expanded), 0o755); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}
	if err := os.WriteFile(expanded, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}

// EnsureDirectories creates the directories the daemon writes into.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.OutputDir, c.Paths.DataDir, c.Paths.LogDir} {
		if strings.TrimSpace(dir) == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %s: %w", dir, err)
		}
	}
	return nil
}

// DatabasePath returns the location of the SQLite database file.
func (c *Config) DatabasePath() string {
	return filepath.Join(c.Paths.DataDir, "readout.db")
}

// LockFilePath returns the location of the daemon singleton lock file.
func (c *Config) LockFilePath() string {
	return filepath.Join(c.Paths.DataDir, "readoutd.lock")
}

func (c *Config) normalize() error {
	var err error
	if c.Paths.OutputDir, err = expandPath(c.Paths.OutputDir); err != nil {
		return err
	}
	if c.Paths.DataDir, err = expandPath(c.Paths.DataDir); err != nil {
		return err
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return err
	}
	if c.TTS.Piper.VoicePath, err = expandPath(c.TTS.Piper.VoicePath); err != nil {
		return err
	}

	if c.Workflow.Workers <= 0 {
		c.Workflow.Workers = defaultWorkers
	}
	if c.Workflow.QueuePollInterval <= 0 {
		c.Workflow.QueuePollInterval = defaultQueuePollInterval
	}
	if c.Workflow.ErrorRetryInterval <= 0 {
		c.Workflow.ErrorRetryInterval = defaultErrorRetryInterval
	}
	if c.Workflow.StageTimeout <= 0 {
		c.Workflow.StageTimeout = defaultStageTimeout
	}
	if c.Workflow.RetryBaseDelay <= 0 {
		c.Workflow.RetryBaseDelay = defaultRetryBaseDelay
	}
	if c.TTS.ChunkChars <= 0 {
		c.TTS.ChunkChars = defaultChunkChars
	}
	if c.TTS.TimeoutSeconds <= 0 {
		c.TTS.TimeoutSeconds = defaultTTSTimeoutSeconds
	}
	if c.LLM.TimeoutSeconds <= 0 {
		c.LLM.TimeoutSeconds = defaultLLMTimeoutSeconds
	}
	if len(c.Scheduler.FetchTimes) == 0 {
		c.Scheduler.FetchTimes = append([]string{}, defaultFetchTimes...)
	}
	if c.Scheduler.SeenLinkRetentionDays <= 0 {
		c.Scheduler.SeenLinkRetentionDays = defaultSeenLinkRetentionDays
	}
	if strings.TrimSpace(c.Logging.Format) == "" {
		c.Logging.Format = defaultLogFormat
	}
	if strings.TrimSpace(c.Logging.Level) == "" {
		c.Logging.Level = defaultLogLevel
	}
	if strings.TrimSpace(c.TTS.DefaultEngine) == "" {
		c.TTS.DefaultEngine = defaultTTSEngine
	}
	return nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if strings.TrimSpace(path) != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		return expanded, false, nil
	}
	resolved, err := DefaultConfigPath()
	if err != nil {
		return "", false, err
	}
	return resolved, true, nil
}

func expandPath(path string) (string, error) {
	trimmed := strings.TrimSpace(path)
	if trimmed == "" {
		return "", nil
	}
	if trimmed == "~" || strings.HasPrefix(trimmed, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if trimmed == "~" {
			return home, nil
		}
		return filepath.Join(home, trimmed[2:]), nil
	}
	abs, err := filepath.Abs(trimmed)
	if err != nil {
		return "", fmt.Errorf("resolve path %s: %w", trimmed, err)
	}
	return abs, nil
}
