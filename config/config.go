// Package config loads optional settings from a TOML file. Flags and
// environment variables layered on top in main override whatever the file
// sets; a missing file just yields defaults.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/BurntSushi/toml"
)

// Config mirrors the [recording] and [transcription] tables of murmur.toml.
type Config struct {
	Recording     Recording     `toml:"recording"`
	Transcription Transcription `toml:"transcription"`
}

type Recording struct {
	// GapSeconds is how long after a segment starts the next one is
	// spawned. Must be shorter than DurationSeconds so segments overlap.
	GapSeconds      float64 `toml:"gap_seconds"`
	DurationSeconds float64 `toml:"duration_seconds"`
	Device          string  `toml:"device"`
}

type Transcription struct {
	Language       string `toml:"language"`
	MaxRetries     int    `toml:"max_retries"`
	TranscriptPath string `toml:"transcript_path"`
}

// Default returns the built-in settings used when no file is present.
func Default() Config {
	return Config{
		Recording: Recording{
			GapSeconds:      12,
			DurationSeconds: 15,
		},
		Transcription: Transcription{
			Language:   "en",
			MaxRetries: 3,
		},
	}
}

// DefaultPath returns the conventional config location, or "" when the
// user config dir cannot be resolved.
func DefaultPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return ""
	}
	return filepath.Join(dir, "murmur", "murmur.toml")
}

// Load reads a TOML config file. A missing file is not an error; a
// malformed one is.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return cfg, nil
	}
	if err != nil {
		return cfg, fmt.Errorf("read config: %w", err)
	}
	if err := toml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse %s: %w", path, err)
	}
	return cfg, cfg.validate()
}

func (c Config) validate() error {
	if c.Recording.GapSeconds <= 0 {
		return fmt.Errorf("recording.gap_seconds must be positive, got %v", c.Recording.GapSeconds)
	}
	if c.Recording.DurationSeconds <= c.Recording.GapSeconds {
		return fmt.Errorf("recording.duration_seconds (%v) must exceed gap_seconds (%v) so segments overlap",
			c.Recording.DurationSeconds, c.Recording.GapSeconds)
	}
	if c.Transcription.MaxRetries < 1 {
		return fmt.Errorf("transcription.max_retries must be at least 1, got %d", c.Transcription.MaxRetries)
	}
	return nil
}

// Gap returns the segment spawn interval as a duration.
func (c Config) Gap() time.Duration {
	return time.Duration(c.Recording.GapSeconds * float64(time.Second))
}

// SegmentDuration returns the per-segment capture ceiling as a duration.
func (c Config) SegmentDuration() time.Duration {
	return time.Duration(c.Recording.DurationSeconds * float64(time.Second))
}
