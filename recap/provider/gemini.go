package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const (
	defaultGeminiModel   = "gemini-1.5-flash"
	defaultGeminiBaseURL = "https://generativelanguage.googleapis.com/v1beta"
)

// GeminiConfig holds configuration for the Gemini backend.
type GeminiConfig struct {
	Model      string
	BaseURL    string
	Timeout    time.Duration // defaults to 120s
	HTTPClient *http.Client
}

// Gemini calls the Generative Language REST API.
type Gemini struct {
	model      string
	baseURL    string
	httpClient *http.Client
}

// NewGemini creates a Gemini backend.
func NewGemini(cfg GeminiConfig) *Gemini {
	if cfg.Model == "" {
		cfg.Model = defaultGeminiModel
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultGeminiBaseURL
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 120 * time.Second
	}
	client := cfg.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: cfg.Timeout}
	}
	return &Gemini{
		model:      cfg.Model,
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		httpClient: client,
	}
}

func (g *Gemini) Name() string { return BackendGemini }

// Generate sends the prompt and returns the concatenated text of all candidate parts.
func (g *Gemini) Generate(ctx context.Context, req Request) (string, error) {
	if strings.TrimSpace(req.Credential) == "" {
		return "", errors.New("gemini: credential is empty")
	}

	body := generateContentRequest{
		Contents: []geminiContent{{Role: "user", Parts: []geminiPart{{Text: req.Prompt}}}},
		GenerationConfig: geminiGenerationConfig{
			Temperature:     req.Params.Temperature,
			TopK:            req.Params.TopK,
			TopP:            req.Params.TopP,
			MaxOutputTokens: req.Params.MaxOutputTokens,
		},
	}
	b, err := json.Marshal(body)
	if err != nil {
		return "", fmt.Errorf("gemini: marshal request: %w", err)
	}

	endpoint := fmt.Sprintf("%s/models/%s:generateContent", g.baseURL, url.PathEscape(g.model))
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(b))
	if err != nil {
		return "", fmt.Errorf("gemini: build request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("x-goog-api-key", req.Credential)

	resp, err := g.httpClient.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("gemini: request failed: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("gemini: read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return "", geminiAPIError(resp.StatusCode, raw)
	}

	var out generateContentResponse
	if err := json.Unmarshal(raw, &out); err != nil {
		return "", fmt.Errorf("gemini: parse response: %w", err)
	}
	if out.PromptFeedback != nil && out.PromptFeedback.BlockReason != "" {
		return "", fmt.Errorf("gemini: prompt blocked: %s", out.PromptFeedback.BlockReason)
	}
	if len(out.Candidates) == 0 {
		return "", errors.New("gemini: no response candidates")
	}

	var text strings.Builder
	for _, c := range out.Candidates {
		if c.Content == nil {
			continue
		}
		for _, p := range c.Content.Parts {
			text.WriteString(p.Text)
		}
	}
	if text.Len() == 0 {
		return "", fmt.Errorf("gemini: no text content in response (finish_reason=%s)", out.Candidates[0].FinishReason)
	}
	return text.String(), nil
}

func geminiAPIError(status int, raw []byte) error {
	apiErr := &APIError{Provider: BackendGemini, StatusCode: status}
	var er geminiErrorResponse
	if err := json.Unmarshal(raw, &er); err == nil && er.Error.Message != "" {
		apiErr.Status = er.Error.Status
		apiErr.Message = er.Error.Message
		for _, d := range er.Error.Details {
			if d.Reason != "" {
				apiErr.Reasons = append(apiErr.Reasons, d.Reason)
			}
		}
		return apiErr
	}
	apiErr.Message = http.StatusText(status)
	return apiErr
}

type generateContentRequest struct {
	Contents         []geminiContent        `json:"contents"`
	GenerationConfig geminiGenerationConfig `json:"generationConfig"`
}

type geminiContent struct {
	Role  string       `json:"role,omitempty"`
	Parts []geminiPart `json:"parts"`
}

type geminiPart struct {
	Text string `json:"text"`
}

type geminiGenerationConfig struct {
	Temperature     float64 `json:"temperature"`
	TopK            int     `json:"topK,omitempty"`
	TopP            float64 `json:"topP,omitempty"`
	MaxOutputTokens int     `json:"maxOutputTokens,omitempty"`
}

type generateContentResponse struct {
	Candidates     []geminiCandidate `json:"candidates"`
	PromptFeedback *struct {
		BlockReason string `json:"blockReason"`
	} `json:"promptFeedback,omitempty"`
}

type geminiCandidate struct {
	Content      *geminiContent `json:"content"`
	FinishReason string         `json:"finishReason"`
}

type geminiErrorResponse struct {
	Error struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
		Status  string `json:"status"`
		Details []struct {
			Reason string `json:"reason"`
		} `json:"details"`
	} `json:"error"`
}
