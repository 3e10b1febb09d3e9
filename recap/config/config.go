// Package config loads the optional YAML configuration shared by the chat-recap commands and builds
// their loggers.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/lmittmann/tint"
	"gopkg.in/yaml.v3"

	"github.com/theimaginaryfoundation/chat-recap/recap/provider"
)

// File is the on-disk configuration. Every field is optional; command-line flags override it.
type File struct {
	Provider string        `yaml:"provider"`
	Model    string        `yaml:"model"`
	BaseURL  string        `yaml:"base_url"`
	APIKey   string        `yaml:"api_key"`
	Retry    RetryConfig   `yaml:"retry"`
	Server   ServerConfig  `yaml:"server"`
	Logging  LoggingConfig `yaml:"logging"`
}

// RetryConfig mirrors provider.RetryPolicy in milliseconds. Unset fields keep the policy's value.
type RetryConfig struct {
	MaxRetries  *int `yaml:"max_retries"`
	BaseDelayMS *int `yaml:"base_delay_ms"`
	JitterMaxMS *int `yaml:"jitter_max_ms"`
}

type ServerConfig struct {
	Addr         string `yaml:"addr"`
	MaxBodyBytes int64  `yaml:"max_body_bytes"`
}

type LoggingConfig struct {
	Level string `yaml:"level"`
}

// Load reads path, expands ${VAR} references from the environment and decodes the YAML strictly.
func Load(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config.Load: read: %w", err)
	}
	expanded := os.ExpandEnv(string(data))

	var f File
	dec := yaml.NewDecoder(bytes.NewReader([]byte(expanded)))
	dec.KnownFields(true)
	if err := dec.Decode(&f); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("config.Load: parse %s: %w", path, err)
	}
	if err := f.Validate(); err != nil {
		return nil, fmt.Errorf("config.Load: %s: %w", path, err)
	}
	return &f, nil
}

func (f File) Validate() error {
	switch strings.ToLower(strings.TrimSpace(f.Provider)) {
	case "", provider.BackendGemini, provider.BackendOpenAI:
	default:
		return fmt.Errorf("unknown provider %q", f.Provider)
	}
	for name, v := range map[string]*int{
		"retry.max_retries":   f.Retry.MaxRetries,
		"retry.base_delay_ms": f.Retry.BaseDelayMS,
		"retry.jitter_max_ms": f.Retry.JitterMaxMS,
	} {
		if v != nil && *v < 0 {
			return fmt.Errorf("%s must be >= 0", name)
		}
	}
	if f.Server.MaxBodyBytes < 0 {
		return errors.New("server.max_body_bytes must be >= 0")
	}
	if f.Logging.Level != "" {
		if _, err := ParseLevel(f.Logging.Level); err != nil {
			return err
		}
	}
	return nil
}

// Apply overlays the configured values onto p.
func (r RetryConfig) Apply(p provider.RetryPolicy) provider.RetryPolicy {
	if r.MaxRetries != nil {
		p.MaxRetries = *r.MaxRetries
	}
	if r.BaseDelayMS != nil {
		p.BaseDelay = time.Duration(*r.BaseDelayMS) * time.Millisecond
	}
	if r.JitterMaxMS != nil {
		p.JitterMax = time.Duration(*r.JitterMaxMS) * time.Millisecond
	}
	return p
}

// ConfigPath returns the value of a -config flag in args without parsing the rest, so the file can supply
// defaults that the remaining flags then override.
func ConfigPath(args []string) string {
	for i := 0; i < len(args); i++ {
		a := args[i]
		if a == "--" {
			break
		}
		name, value, hasValue := strings.Cut(strings.TrimLeft(a, "-"), "=")
		if !strings.HasPrefix(a, "-") || name != "config" {
			continue
		}
		if hasValue {
			return value
		}
		if i+1 < len(args) {
			return args[i+1]
		}
	}
	return ""
}

// ParseLevel accepts debug, info, warn or error (case-insensitive).
func ParseLevel(s string) (slog.Level, error) {
	var l slog.Level
	if err := l.UnmarshalText([]byte(strings.TrimSpace(s))); err != nil {
		return slog.LevelInfo, fmt.Errorf("invalid log level %q", s)
	}
	return l, nil
}

// NewLogger builds a tint handler with RFC3339 timestamps. debug forces the debug level.
func NewLogger(w io.Writer, level string, debug bool) *slog.Logger {
	lvl := slog.LevelInfo
	if level != "" {
		if l, err := ParseLevel(level); err == nil {
			lvl = l
		}
	}
	if debug {
		lvl = slog.LevelDebug
	}
	return slog.New(tint.NewHandler(w, &tint.Options{
		Level:      lvl,
		TimeFormat: time.RFC3339,
	}))
}
