package recap

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/theimaginaryfoundation/chat-recap/recap/metrics"
	"github.com/theimaginaryfoundation/chat-recap/recap/provider"
	"github.com/theimaginaryfoundation/chat-recap/recap/recovery"
)

var (
	ErrNoMessages        = errors.New("invalid messages format")
	ErrNoChats           = errors.New("invalid request data")
	ErrMissingCredential = errors.New("API key is required")
	ErrProbeMismatch     = errors.New("API key test failed: unexpected response from the model")
)

const (
	VariantChat    = "chat"
	VariantOverall = "overall"
	VariantProbe   = "probe"
)

var (
	chatContract    = recovery.MustContract(VariantChat, "participants", "sentiments")
	overallContract = recovery.MustContract(VariantOverall, "relationship_type", "compatibility_score")
)

var (
	ChatParams    = provider.GenerationParams{Temperature: 0.7, TopK: 40, TopP: 0.95, MaxOutputTokens: 8192}
	OverallParams = provider.GenerationParams{Temperature: 0.8, TopK: 40, TopP: 0.95, MaxOutputTokens: 8192}
	ProbeParams   = provider.GenerationParams{Temperature: 0.1, MaxOutputTokens: 100}
)

// AnalyzerConfig wires an Analyzer. Retry is used as given; a zero policy means a single attempt.
type AnalyzerConfig struct {
	Generator provider.Generator
	Retry     provider.RetryPolicy
	Logger    *slog.Logger

	// Sleep overrides the wait between attempts.
	Sleep provider.SleepFunc
}

// Analyzer runs the invoke-then-recover pipeline for both analysis variants. It holds no per-request
// state and is safe for concurrent use.
type Analyzer struct {
	gen    provider.Generator
	retry  provider.RetryPolicy
	logger *slog.Logger
	sleep  provider.SleepFunc

	chatSchema    map[string]any
	overallSchema map[string]any
}

func NewAnalyzer(cfg AnalyzerConfig) (*Analyzer, error) {
	if cfg.Generator == nil {
		return nil, errors.New("NewAnalyzer: Generator is nil")
	}
	if cfg.Retry.MaxRetries < 0 || cfg.Retry.BaseDelay < 0 || cfg.Retry.JitterMax < 0 {
		return nil, fmt.Errorf("NewAnalyzer: invalid retry policy %+v", cfg.Retry)
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Analyzer{
		gen:           cfg.Generator,
		retry:         cfg.Retry,
		logger:        logger,
		sleep:         cfg.Sleep,
		chatSchema:    provider.GenerateSchema[ChatInsights](),
		overallSchema: provider.GenerateSchema[RelationshipInsights](),
	}, nil
}

// RetryPolicy returns the policy every analysis invocation uses.
func (a *Analyzer) RetryPolicy() provider.RetryPolicy { return a.retry }

func (a *Analyzer) invoker(variant string, policy provider.RetryPolicy, onAttempt func(provider.Attempt)) provider.Invoker {
	return provider.Invoker{
		Variant:   variant,
		Policy:    policy,
		Logger:    a.logger,
		Sleep:     a.sleep,
		OnAttempt: onAttempt,
	}
}

// ChatRequest asks for the analysis of one conversation.
type ChatRequest struct {
	Messages   []ChatMessage
	Credential string
	FileName   string

	// OnAttempt, if set, observes each backend attempt.
	OnAttempt func(provider.Attempt)
}

// AnalyzeChat analyzes one conversation. Errors come only from validation or the backend; undecodable
// replies are replaced by a fallback result.
func (a *Analyzer) AnalyzeChat(ctx context.Context, req ChatRequest) (ChatAnalysis, error) {
	if len(req.Messages) == 0 {
		return ChatAnalysis{}, ErrNoMessages
	}
	if strings.TrimSpace(req.Credential) == "" {
		return ChatAnalysis{}, ErrMissingCredential
	}
	start := time.Now()
	defer func() { metrics.AnalysisLatency.WithLabelValues(VariantChat).Observe(time.Since(start).Seconds()) }()

	participants := Participants(req.Messages, 2)
	genReq := provider.Request{
		Prompt:     BuildChatPrompt(req.Messages, participants),
		Credential: req.Credential,
		Params:     ChatParams,
		SchemaName: "ChatInsights",
		Schema:     a.chatSchema,
	}

	raw, attempts, err := a.invoker(VariantChat, a.retry, req.OnAttempt).Do(ctx, func(ctx context.Context) (string, error) {
		return a.gen.Generate(ctx, genReq)
	})
	if err != nil {
		return ChatAnalysis{}, err
	}

	insights, outcome := recovery.Recover(chatContract, raw, func() ChatInsights {
		return FallbackChatAnalysis(participants, ComputeParticipantStats(req.Messages, padParticipants(participants, 2)))
	}, a.logger)
	insights.Participants = participants

	a.logger.Info("chat analysis complete",
		"file", req.FileName, "messages", len(req.Messages), "attempts", len(attempts), "outcome", string(outcome),
		"duration", time.Since(start).Round(time.Millisecond))

	return ChatAnalysis{
		ChatInsights: insights,
		MessageStats: ComputeMessageStats(req.Messages),
		FileName:     req.FileName,
	}, nil
}

// OverallRequest asks for the aggregate analysis of every conversation.
type OverallRequest struct {
	Chats      []ChatFile
	Prior      []ChatAnalysis
	Credential string

	OnAttempt func(provider.Attempt)
}

// AnalyzeOverall analyzes every conversation together.
func (a *Analyzer) AnalyzeOverall(ctx context.Context, req OverallRequest) (OverallAnalysis, error) {
	if len(req.Chats) == 0 {
		return OverallAnalysis{}, ErrNoChats
	}
	all := AllMessages(req.Chats)
	if len(all) == 0 {
		return OverallAnalysis{}, ErrNoMessages
	}
	if strings.TrimSpace(req.Credential) == "" {
		return OverallAnalysis{}, ErrMissingCredential
	}
	start := time.Now()
	defer func() { metrics.AnalysisLatency.WithLabelValues(VariantOverall).Observe(time.Since(start).Seconds()) }()

	genReq := provider.Request{
		Prompt:     BuildOverallPrompt(req.Chats, req.Prior),
		Credential: req.Credential,
		Params:     OverallParams,
		SchemaName: "RelationshipInsights",
		Schema:     a.overallSchema,
	}

	raw, attempts, err := a.invoker(VariantOverall, a.retry, req.OnAttempt).Do(ctx, func(ctx context.Context) (string, error) {
		return a.gen.Generate(ctx, genReq)
	})
	if err != nil {
		return OverallAnalysis{}, err
	}

	insights, outcome := recovery.Recover(overallContract, raw, func() RelationshipInsights {
		return FallbackOverallAnalysis(Participants(all, 0))
	}, a.logger)

	a.logger.Info("overall analysis complete",
		"chats", len(req.Chats), "messages", len(all), "attempts", len(attempts), "outcome", string(outcome),
		"duration", time.Since(start).Round(time.Millisecond))

	return OverallAnalysis{
		RelationshipInsights: insights,
		TotalStats:           ComputeTotalStats(req.Chats),
	}, nil
}

// CheckCredential sends a single short probe and reports whether the backend accepted the credential.
func (a *Analyzer) CheckCredential(ctx context.Context, credential string) error {
	if strings.TrimSpace(credential) == "" {
		return ErrMissingCredential
	}
	genReq := provider.Request{
		Prompt:     credentialProbePrompt,
		Credential: credential,
		Params:     ProbeParams,
	}
	out, _, err := a.invoker(VariantProbe, provider.RetryPolicy{}, nil).Do(ctx, func(ctx context.Context) (string, error) {
		return a.gen.Generate(ctx, genReq)
	})
	if err != nil {
		return err
	}
	if !strings.Contains(strings.ToLower(out), "working") {
		return ErrProbeMismatch
	}
	return nil
}

// CheckGeminiKeyFormat applies the shape Google API keys usually have. It is advisory: a key that passes can
// still be rejected by the backend.
func CheckGeminiKeyFormat(key string) error {
	key = strings.TrimSpace(key)
	switch {
	case key == "":
		return ErrMissingCredential
	case !strings.HasPrefix(key, "AIza"):
		return errors.New("Google API keys should start with 'AIza'")
	case len(key) != 39:
		return errors.New("Google API keys should be 39 characters long")
	}
	return nil
}
