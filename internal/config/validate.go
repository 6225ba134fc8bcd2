package config

import (
	"fmt"
	"net"
	"strconv"
	"strings"
)

// Validate checks configuration values that would otherwise fail deep inside
// the daemon, returning actionable messages.
func (c *Config) Validate() error {
	var problems []string

	if strings.TrimSpace(c.Paths.OutputDir) == "" {
		problems = append(problems, "paths.output_dir must not be empty")
	}
	if strings.TrimSpace(c.Paths.DataDir) == "" {
		problems = append(problems, "paths.data_dir must not be empty")
	}
	if bind := strings.TrimSpace(c.Paths.APIBind); bind != "" {
		if _, _, err := net.SplitHostPort(bind); err != nil {
			problems = append(problems, fmt.Sprintf("paths.api_bind %q is not host:port", bind))
		}
	}
	if c.Workflow.Workers > 16 {
		problems = append(problems, fmt.Sprintf("workflow.workers %d exceeds the supported maximum of 16", c.Workflow.Workers))
	}
	switch c.TTS.DefaultEngine {
	case "http", "piper":
	default:
		problems = append(problems, fmt.Sprintf("tts.default_engine %q is not a known engine (http, piper)", c.TTS.DefaultEngine))
	}
	for _, value := range c.Scheduler.FetchTimes {
		if _, _, err := ParseClockTime(value); err != nil {
			problems = append(problems, fmt.Sprintf("scheduler.fetch_times entry %q: %v", value, err))
		}
	}
	switch strings.ToLower(strings.TrimSpace(c.Logging.Format)) {
	case "console", "json":
	default:
		problems = append(problems, fmt.Sprintf("logging.format %q is not supported (console, json)", c.Logging.Format))
	}

	if len(problems) > 0 {
		return fmt.Errorf("invalid configuration:\n  - %s", strings.Join(problems, "\n  - "))
	}
	return nil
}

// ParseClockTime parses an "HH:MM" wall-clock string.
func ParseClockTime(value string) (hour, minute int, err error) {
	parts := strings.SplitN(strings.TrimSpace(value), ":", 2)
	if len(parts) != 2 {
		return 0, 0, fmt.Errorf("expected HH:MM")
	}
	hour, err = strconv.Atoi(parts[0])
	if err != nil || hour < 0 || hour > 23 {
		return 0, 0, fmt.Errorf("hour out of range")
	}
	minute, err = strconv.Atoi(parts[1])
	if err != nil || minute < 0 || minute > 59 {
		return 0, 0, fmt.Errorf("minute out of range")
	}
	return hour, minute, nil
}
