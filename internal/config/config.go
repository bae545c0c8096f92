// Package config handles replay configuration
package config

import (
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/caarlos0/env/v6"

	apperrors "github.com/GriffinCanCode/replay/internal/errors"
)

// Resume source names accepted in RESUME_SOURCES.
const (
	ResumeLogind = "logind"
	ResumeClock  = "clock"
	ResumeSignal = "signal"
)

type Config struct {
	HTTPAddr string `env:"HTTP_ADDR" envDefault:"127.0.0.1:8000"`
	LogLevel string `env:"LOG_LEVEL" envDefault:"info"`

	FFmpegPath       string `env:"FFMPEG_PATH" envDefault:"ffmpeg"`
	CaptureFramerate int    `env:"CAPTURE_FRAMERATE" envDefault:"15"`
	CaptureBitrate   string `env:"CAPTURE_BITRATE" envDefault:"2M"`
	X11Display       string `env:"X11_DISPLAY"`

	ResumeSources     []string      `env:"RESUME_SOURCES" envSeparator:"," envDefault:"logind,clock,signal"`
	ClockGapInterval  time.Duration `env:"CLOCK_GAP_INTERVAL" envDefault:"5s"`
	ClockGapThreshold time.Duration `env:"CLOCK_GAP_THRESHOLD" envDefault:"30s"`
}

// Load parses the environment into a Config and validates it.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodeConfigInvalid, "parse environment")
	}
	if cfg.X11Display == "" {
		cfg.X11Display = getEnv("DISPLAY", ":0")
	}
	for i, s := range cfg.ResumeSources {
		cfg.ResumeSources[i] = strings.ToLower(strings.TrimSpace(s))
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects values the capture pipeline cannot run with.
func (c *Config) Validate() error {
	if c.CaptureFramerate <= 0 {
		return apperrors.Newf(apperrors.CodeConfigInvalid, "CAPTURE_FRAMERATE must be positive, got %d", c.CaptureFramerate)
	}
	if c.ClockGapInterval <= 0 || c.ClockGapThreshold <= 0 {
		return apperrors.New(apperrors.CodeConfigInvalid, "clock gap interval and threshold must be positive")
	}
	for _, s := range c.ResumeSources {
		switch s {
		case ResumeLogind, ResumeClock, ResumeSignal:
		default:
			return apperrors.Newf(apperrors.CodeConfigInvalid, "unknown resume source %q", s).
				WithMetadata("allowed", strings.Join([]string{ResumeLogind, ResumeClock, ResumeSignal}, ","))
		}
	}
	return nil
}

// SlogLevel maps LOG_LEVEL onto a slog level, defaulting to info.
func (c *Config) SlogLevel() slog.Level {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return slog.LevelInfo
	}
	return lvl
}

// HasResumeSource reports whether name is enabled.
func (c *Config) HasResumeSource(name string) bool {
	for _, s := range c.ResumeSources {
		if s == name {
			return true
		}
	}
	return false
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
