package provider

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"
)

// GenerationParams are the sampling controls sent with every request.
type GenerationParams struct {
	Temperature     float64
	TopK            int
	TopP            float64
	MaxOutputTokens int
}

// Request is one text-generation call. Credential authorizes only this call and is never logged.
type Request struct {
	Prompt     string
	Credential string
	Params     GenerationParams

	// SchemaName and Schema optionally describe the expected JSON output to backends that accept one.
	SchemaName string
	Schema     map[string]any
}

// Generator is an opaque text-completion endpoint.
type Generator interface {
	Name() string
	Generate(ctx context.Context, req Request) (string, error)
}

const (
	BackendGemini = "gemini"
	BackendOpenAI = "openai"
)

// Options configures a backend built by New.
type Options struct {
	Model      string
	BaseURL    string
	Timeout    time.Duration
	HTTPClient *http.Client
}

// New builds the named backend. An empty name selects Gemini.
func New(name string, opts Options) (Generator, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", BackendGemini:
		return NewGemini(GeminiConfig{
			Model:      opts.Model,
			BaseURL:    opts.BaseURL,
			Timeout:    opts.Timeout,
			HTTPClient: opts.HTTPClient,
		}), nil
	case BackendOpenAI:
		return NewOpenAI(OpenAIConfig{
			Model:      opts.Model,
			BaseURL:    opts.BaseURL,
			HTTPClient: opts.HTTPClient,
		}), nil
	default:
		return nil, fmt.Errorf("provider.New: unknown backend %q", name)
	}
}

// DefaultModel returns the model used when none is configured.
func DefaultModel(backend string) string {
	if strings.EqualFold(strings.TrimSpace(backend), BackendOpenAI) {
		return defaultOpenAIModel
	}
	return defaultGeminiModel
}

// CredentialEnvVar names the environment variable a command falls back to for the backend's key.
func CredentialEnvVar(backend string) string {
	if strings.EqualFold(strings.TrimSpace(backend), BackendOpenAI) {
		return "OPENAI_API_KEY"
	}
	return "GEMINI_API_KEY"
}
