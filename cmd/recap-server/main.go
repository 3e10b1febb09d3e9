package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/theimaginaryfoundation/chat-recap/recap"
	"github.com/theimaginaryfoundation/chat-recap/recap/config"
	"github.com/theimaginaryfoundation/chat-recap/recap/provider"
)

func main() {
	// A missing .env is fine; the server takes credentials per request.
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

	s := &server{
		analyzer:       analyzer,
		logger:         logger,
		maxBodyBytes:   cfg.MaxBodyBytes,
		requestTimeout: cfg.RequestTimeout,
	}
	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           s.routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		logger.Info("listening",
			"addr", cfg.Addr,
			"provider", gen.Name(),
			"model", modelOrDefault(cfg),
			"max_retries", cfg.MaxRetries)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server stopped", "err", err)
			os.Exit(1)
		}
	case <-ctx.Done():
		logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("shutdown", "err", err)
			os.Exit(1)
		}
	}
}

func modelOrDefault(cfg Config) string {
	if cfg.Model != "" {
		return cfg.Model
	}
	return provider.DefaultModel(cfg.Provider)
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
	fs.StringVar(&cfg.Addr, "addr", cfg.Addr, "Listen address")
	fs.StringVar(&cfg.Provider, "provider", cfg.Provider, "Model backend: gemini or openai")
	fs.StringVar(&cfg.Model, "model", cfg.Model, "Model name (defaults per provider)")
	fs.StringVar(&cfg.BaseURL, "base-url", cfg.BaseURL, "Override the backend base URL")
	fs.Int64Var(&cfg.MaxBodyBytes, "max-body-bytes", cfg.MaxBodyBytes, "Maximum accepted request body size")
	fs.DurationVar(&cfg.RequestTimeout, "request-timeout", cfg.RequestTimeout, "Deadline for one analysis request including retries (0 disables)")
	fs.DurationVar(&cfg.ShutdownTimeout, "shutdown-timeout", cfg.ShutdownTimeout, "Grace period for in-flight requests on shutdown")
	fs.IntVar(&cfg.MaxRetries, "max-retries", cfg.MaxRetries, "Retries after the first failed backend attempt")
	fs.DurationVar(&cfg.BaseDelay, "retry-base-delay", cfg.BaseDelay, "Base backoff delay; doubles each retry")
	fs.DurationVar(&cfg.JitterMax, "retry-jitter", cfg.JitterMax, "Upper bound of random jitter added to each backoff")
	fs.StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "Log level: debug, info, warn, error")
	fs.BoolVar(&cfg.Debug, "debug", false, "Enable debug logging")

	fs.Usage = func() {
		fmt.Fprintf(fs.Output(), "Usage:\n  %s [flags]\n\nFlags:\n", filepath.Base(os.Args[0]))
		fs.PrintDefaults()
		fmt.Fprintln(fs.Output(), "\nExample:")
		fmt.Fprintln(fs.Output(), "  go run ./cmd/recap-server -addr :8080 -provider gemini")
	}

	if err := fs.Parse(args); err != nil {
		return Config{}, err
	}
	return cfg, nil
}
