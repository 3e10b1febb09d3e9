package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"slices"
	"strings"
	"syscall"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/joho/godotenv"

	"github.com/theimaginaryfoundation/chat-recap/recap"
	"github.com/theimaginaryfoundation/chat-recap/recap/config"
	"github.com/theimaginaryfoundation/chat-recap/recap/fileutils"
	"github.com/theimaginaryfoundation/chat-recap/recap/provider"
)

func main() {
	_ = godotenv.Load()

	cfg, err := parseFlags(flag.CommandLine, os.Args[1:])
	if err != nil {
		fmt.Fprintln(os.Stderr, err.Error())
		os.Exit(2)
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintln(os.Stderr, err.Error())
		os.Exit(2)
	}

	logger := config.NewLogger(os.Stderr, cfg.LogLevel, cfg.Debug)

	apiKey := resolveCredential(cfg.APIKey, cfg.Provider, os.Getenv)
	if apiKey == "" {
		fmt.Fprintf(os.Stderr, "missing %s (or pass -api-key)\n", provider.CredentialEnvVar(cfg.Provider))
		os.Exit(2)
	}
	if cfg.Provider == provider.BackendGemini {
		if err := recap.CheckGeminiKeyFormat(apiKey); err != nil {
			logger.Warn("api key looks unusual", "err", err)
		}
	}

	gen, err := provider.New(cfg.Provider, provider.Options{Model: cfg.Model, BaseURL: cfg.BaseURL})
	if err != nil {
		fmt.Fprintln(os.Stderr, err.Error())
		os.Exit(2)
	}
	analyzer, err := recap.NewAnalyzer(recap.AnalyzerConfig{
		Generator: gen,
		Retry:     cfg.RetryPolicy(),
		Logger:    logger,
	})
	if err != nil {
		fmt.Fprintln(os.Stderr, err.Error())
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.CheckKey {
		if err := analyzer.CheckCredential(ctx, apiKey); err != nil {
			fmt.Fprintf(os.Stderr, "api key check failed: %s\n", userMessage(err))
			os.Exit(1)
		}
		fmt.Fprintln(os.Stdout, "API key is valid and working correctly!")
		return
	}

	if !cfg.Overwrite && fileutils.FileExists(cfg.OutputPath) {
		fmt.Fprintf(os.Stderr, "output exists (pass -overwrite): %s\n", cfg.OutputPath)
		os.Exit(2)
	}

	inputFiles, err := collectInputFiles(cfg.InputPath, cfg.Recursive)
	if err != nil {
		fmt.Fprintln(os.Stderr, err.Error())
		os.Exit(2)
	}
	if len(inputFiles) == 0 {
		fmt.Fprintln(os.Stderr, "no input .json files found")
		os.Exit(2)
	}

	chats, err := loadChats(ctx, inputFiles, logger)
	if err != nil {
		fmt.Fprintln(os.Stderr, err.Error())
		os.Exit(1)
	}

	start := time.Now()
	report, runErr := analyzer.RunSession(ctx, chats, apiKey, func(p recap.Progress) {
		logger.Info("progress",
			"file", p.CurrentFile,
			"total", p.TotalFiles,
			"name", p.CurrentFileName,
			"status", string(p.Status),
			"elapsed", time.Since(start).Round(time.Second))
	})
	if runErr != nil {
		fmt.Fprintf(os.Stderr, "analysis failed: %s\n", userMessage(runErr))
		logger.Error("session aborted", "err", runErr, "analyzed", len(report.Analyses))
		if len(report.Analyses) == 0 {
			os.Exit(1)
		}
	}

	if err := fileutils.WriteJSONFileAtomic(cfg.OutputPath, report, cfg.Pretty); err != nil {
		fmt.Fprintf(os.Stderr, "write report: %s\n", err.Error())
		os.Exit(1)
	}
	fmt.Fprintf(os.Stdout, "run_id=%s chats_analyzed=%d skipped=%d overall=%t out=%s\n",
		report.RunID, len(report.Analyses), len(report.Skipped), report.Overall != nil, cfg.OutputPath)
	if runErr != nil {
		os.Exit(1)
	}
}

func parseFlags(fs *flag.FlagSet, args []string) (Config, error) {
	cfg := defaultConfig()
	fs.SetOutput(os.Stderr)

	if path := config.ConfigPath(args); path != "" {
		f, err := config.Load(path)
		if err != nil {
			return Config{}, err
		}
		applyFile(&cfg, f)
	}

	fs.StringVar(&cfg.ConfigPath, "config", "", "Optional YAML config file; flags override its values")
	fs.StringVar(&cfg.InputPath, "in", cfg.InputPath, "Chat export .json file, directory of exports, or glob pattern (** supported)")
	fs.StringVar(&cfg.OutputPath, "out", cfg.OutputPath, "Path of the JSON report to write")
	fs.BoolVar(&cfg.Recursive, "recursive", false, "When -in is a directory, include .json files in subdirectories")
	fs.BoolVar(&cfg.Pretty, "pretty", false, "Pretty-print the report")
	fs.BoolVar(&cfg.Overwrite, "overwrite", false, "Overwrite an existing report")
	fs.BoolVar(&cfg.CheckKey, "check-key", false, "Only verify the API key with a short probe request and exit")
	fs.StringVar(&cfg.APIKey, "api-key", cfg.APIKey, "API key (overrides GEMINI_API_KEY / OPENAI_API_KEY)")
	fs.StringVar(&cfg.Provider, "provider", cfg.Provider, "Model backend: gemini or openai")
	fs.StringVar(&cfg.Model, "model", cfg.Model, "Model name (defaults per provider)")
	fs.StringVar(&cfg.BaseURL, "base-url", cfg.BaseURL, "Override the backend base URL")
	fs.IntVar(&cfg.MaxRetries, "max-retries", cfg.MaxRetries, "Retries after the first failed backend attempt")
	fs.DurationVar(&cfg.BaseDelay, "retry-base-delay", cfg.BaseDelay, "Base backoff delay; doubles each retry")
	fs.DurationVar(&cfg.JitterMax, "retry-jitter", cfg.JitterMax, "Upper bound of random jitter added to each backoff")
	fs.StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "Log level: debug, info, warn, error")
	fs.BoolVar(&cfg.Debug, "debug", false, "Enable debug logging")

	fs.Usage = func() {
		fmt.Fprintf(fs.Output(), "Usage:\n  %s [flags]\n\nFlags:\n", filepath.Base(os.Args[0]))
		fs.PrintDefaults()
		fmt.Fprintln(fs.Output(), "\nExample:")
		fmt.Fprintln(fs.Output(), "  go run ./cmd/chat-recap -in exports/inbox/ana_123 -out recap.json -pretty -overwrite")
	}

	if err := fs.Parse(args); err != nil {
		return Config{}, err
	}
	cfg.Provider = strings.ToLower(strings.TrimSpace(cfg.Provider))
	if cfg.InputPath != "" && !doublestar.ValidatePattern(cfg.InputPath) {
		return Config{}, fmt.Errorf("invalid -in pattern: %s", cfg.InputPath)
	}
	if cfg.InputPath != "" {
		cfg.InputPath = filepath.Clean(cfg.InputPath)
	}
	if cfg.OutputPath != "" {
		cfg.OutputPath = filepath.Clean(cfg.OutputPath)
	}
	return cfg, nil
}

// resolveCredential prefers an explicit key, then the backend's environment variable.
func resolveCredential(explicit, backend string, getenv func(string) string) string {
	if k := strings.TrimSpace(explicit); k != "" {
		return k
	}
	return strings.TrimSpace(getenv(provider.CredentialEnvVar(backend)))
}

func userMessage(err error) string {
	var ie *provider.InvokeError
	if errors.As(err, &ie) {
		return ie.UserMessage()
	}
	return err.Error()
}

func collectInputFiles(inputPath string, recursive bool) ([]string, error) {
	if strings.ContainsAny(inputPath, "*?[{") {
		matches, err := doublestar.FilepathGlob(inputPath, doublestar.WithFilesOnly())
		if err != nil {
			return nil, fmt.Errorf("glob -in: %w", err)
		}
		return jsonOnly(matches), nil
	}

	fi, err := os.Stat(inputPath)
	if err != nil {
		return nil, fmt.Errorf("stat -in: %w", err)
	}
	if !fi.IsDir() {
		if strings.ToLower(filepath.Ext(inputPath)) != ".json" {
			return nil, fmt.Errorf("input file must be .json: %s", inputPath)
		}
		return []string{inputPath}, nil
	}

	pattern := "*"
	if recursive {
		pattern = "**/*"
	}
	matches, err := doublestar.Glob(os.DirFS(inputPath), pattern, doublestar.WithFilesOnly())
	if err != nil {
		return nil, fmt.Errorf("read input dir: %w", err)
	}
	files := make([]string, 0, len(matches))
	for _, m := range matches {
		files = append(files, filepath.Join(inputPath, filepath.FromSlash(m)))
	}
	return jsonOnly(files), nil
}

func jsonOnly(paths []string) []string {
	out := paths[:0]
	for _, p := range paths {
		if strings.ToLower(filepath.Ext(p)) != ".json" {
			continue
		}
		info, err := os.Lstat(p)
		if err != nil || info.Mode()&fs.ModeType != 0 {
			continue
		}
		out = append(out, p)
	}
	slices.Sort(out)
	return out
}

// loadChats reads every export and orders them by the number in their file name.
func loadChats(ctx context.Context, paths []string, logger *slog.Logger) ([]recap.ChatFile, error) {
	chats := make([]recap.ChatFile, 0, len(paths))
	for _, p := range paths {
		cf, err := recap.LoadChatFile(ctx, p)
		if err != nil {
			return nil, fmt.Errorf("load %s: %w", p, err)
		}
		logger.Debug("loaded chat export", "path", p, "messages", len(cf.Data))
		chats = append(chats, cf)
	}
	recap.SortChatFiles(chats)
	return chats, nil
}
