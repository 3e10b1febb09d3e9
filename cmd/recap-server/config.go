package main

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/theimaginaryfoundation/chat-recap/recap/config"
	"github.com/theimaginaryfoundation/chat-recap/recap/provider"
)

type Config struct {
	ConfigPath string

	Addr            string
	Provider        string
	Model           string
	BaseURL         string
	MaxBodyBytes    int64
	RequestTimeout  time.Duration
	ShutdownTimeout time.Duration

	MaxRetries int
	BaseDelay  time.Duration
	JitterMax  time.Duration

	LogLevel string
	Debug    bool
}

func (c Config) Validate() error {
	if c.Addr == "" {
		return errors.New("missing -addr")
	}
	switch strings.ToLower(c.Provider) {
	case provider.BackendGemini, provider.BackendOpenAI:
	default:
		return fmt.Errorf("unknown -provider %q (want gemini or openai)", c.Provider)
	}
	if c.MaxBodyBytes <= 0 {
		return errors.New("max body bytes must be > 0")
	}
	if c.MaxRetries < 0 {
		return errors.New("max retries must be >= 0")
	}
	if c.BaseDelay < 0 || c.JitterMax < 0 {
		return errors.New("retry delays must be >= 0")
	}
	if c.RequestTimeout < 0 {
		return errors.New("request timeout must be >= 0")
	}
	if c.LogLevel != "" {
		if _, err := config.ParseLevel(c.LogLevel); err != nil {
			return err
		}
	}
	return nil
}

func (c Config) RetryPolicy() provider.RetryPolicy {
	return provider.RetryPolicy{MaxRetries: c.MaxRetries, BaseDelay: c.BaseDelay, JitterMax: c.JitterMax}
}

func defaultConfig() Config {
	retry := provider.DefaultRetryPolicy()
	return Config{
		Addr:            ":8080",
		Provider:        provider.BackendGemini,
		MaxBodyBytes:    32 << 20,
		RequestTimeout:  5 * time.Minute,
		ShutdownTimeout: 15 * time.Second,
		MaxRetries:      retry.MaxRetries,
		BaseDelay:       retry.BaseDelay,
		JitterMax:       retry.JitterMax,
		LogLevel:        "info",
	}
}

// applyFile copies values set in the YAML file over the defaults.
func applyFile(cfg *Config, f *config.File) {
	if f.Provider != "" {
		cfg.Provider = strings.ToLower(f.Provider)
	}
	if f.Model != "" {
		cfg.Model = f.Model
	}
	if f.BaseURL != "" {
		cfg.BaseURL = f.BaseURL
	}
	if f.Server.Addr != "" {
		cfg.Addr = f.Server.Addr
	}
	if f.Server.MaxBodyBytes > 0 {
		cfg.MaxBodyBytes = f.Server.MaxBodyBytes
	}
	if f.Logging.Level != "" {
		cfg.LogLevel = f.Logging.Level
	}
	p := f.Retry.Apply(cfg.RetryPolicy())
	cfg.MaxRetries, cfg.BaseDelay, cfg.JitterMax = p.MaxRetries, p.BaseDelay, p.JitterMax
}
