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

	InputPath  string
	OutputPath string
	Recursive  bool
	Pretty     bool
	Overwrite  bool
	CheckKey   bool

	APIKey   string
	Provider string
	Model    string
	BaseURL  string

	MaxRetries int
	BaseDelay  time.Duration
	JitterMax  time.Duration

	LogLevel string
	Debug    bool
}

func (c Config) Validate() error {
	if !c.CheckKey {
		if c.InputPath == "" {
			return errors.New("missing -in")
		}
		if c.OutputPath == "" {
			return errors.New("missing -out")
		}
	}
	switch strings.ToLower(c.Provider) {
	case provider.BackendGemini, provider.BackendOpenAI:
	default:
		return fmt.Errorf("unknown -provider %q (want gemini or openai)", c.Provider)
	}
	if c.MaxRetries < 0 {
		return errors.New("max retries must be >= 0")
	}
	if c.BaseDelay < 0 || c.JitterMax < 0 {
		return errors.New("retry delays must be >= 0")
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
		OutputPath: "chat-recap-report.json",
		Provider:   provider.BackendGemini,
		MaxRetries: retry.MaxRetries,
		BaseDelay:  retry.BaseDelay,
		JitterMax:  retry.JitterMax,
		LogLevel:   "info",
	}
}

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
	if f.APIKey != "" {
		cfg.APIKey = f.APIKey
	}
	if f.Logging.Level != "" {
		cfg.LogLevel = f.Logging.Level
	}
	p := f.Retry.Apply(cfg.RetryPolicy())
	cfg.MaxRetries, cfg.BaseDelay, cfg.JitterMax = p.MaxRetries, p.BaseDelay, p.JitterMax
}
