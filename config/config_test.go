package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "murmur.toml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadMissingFileYieldsDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.toml"))
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Gap() != 12*time.Second {
		t.Errorf("gap = %v, want 12s", cfg.Gap())
	}
	if cfg.SegmentDuration() != 15*time.Second {
		t.Errorf("duration = %v, want 15s", cfg.SegmentDuration())
	}
	if cfg.Transcription.Language != "en" {
		t.Errorf("language = %q", cfg.Transcription.Language)
	}
}

func TestLoadOverridesDefaults(t *testing.T) {
	path := writeConfig(t, `
[recording]
gap_seconds = 8
duration_seconds = 10.5
device = "USB Microphone"

[transcription]
language = "es"
max_retries = 5
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Gap() != 8*time.Second {
		t.Errorf("gap = %v", cfg.Gap())
	}
	if cfg.SegmentDuration() != 10500*time.Millisecond {
		t.Errorf("duration = %v", cfg.SegmentDuration())
	}
	if cfg.Recording.Device != "USB Microphone" {
		t.Errorf("device = %q", cfg.Recording.Device)
	}
	if cfg.Transcription.MaxRetries != 5 {
		t.Errorf("max_retries = %d", cfg.Transcription.MaxRetries)
	}
}

func TestLoadPartialFileKeepsRest(t *testing.T) {
	path := writeConfig(t, "[transcription]\nlanguage = \"fr\"\n")
	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Transcription.Language != "fr" {
		t.Errorf("language = %q", cfg.Transcription.Language)
	}
	if cfg.Gap() != 12*time.Second {
		t.Errorf("gap = %v, want default", cfg.Gap())
	}
}

func TestLoadRejectsBadValues(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"gap not positive", "[recording]\ngap_seconds = 0\nduration_seconds = 15\n"},
		{"duration not past gap", "[recording]\ngap_seconds = 15\nduration_seconds = 15\n"},
		{"retries zero", "[transcription]\nmax_retries = 0\n"},
		{"malformed toml", "[recording\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Load(writeConfig(t, tt.body)); err == nil {
				t.Error("expected error")
			}
		})
	}
}
