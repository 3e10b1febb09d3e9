package recap

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/theimaginaryfoundation/chat-recap/recap/provider"
)

type ProgressStatus string

const (
	StatusAnalyzing ProgressStatus = "analyzing"
	StatusRetrying  ProgressStatus = "retrying"
	StatusCompleted ProgressStatus = "completed"
	StatusError     ProgressStatus = "error"
)

// Progress is a snapshot of a running session. Sessions emit values; they keep no shared progress state.
type Progress struct {
	CurrentFile     int            `json:"current_file"`
	TotalFiles      int            `json:"total_files"`
	CurrentFileName string         `json:"current_file_name"`
	Status          ProgressStatus `json:"status"`
	RetryCount      int            `json:"retry_count,omitempty"`
}

// SessionReport collects everything a session produced.
type SessionReport struct {
	RunID        string           `json:"run_id"`
	StartedAt    time.Time        `json:"started_at"`
	FinishedAt   time.Time        `json:"finished_at"`
	Files        []string         `json:"files"`
	Skipped      []string         `json:"skipped,omitempty"`
	Analyses     []ChatAnalysis   `json:"analyses"`
	Overall      *OverallAnalysis `json:"overall,omitempty"`
	OverallError string           `json:"overall_error,omitempty"`
}

// RunSession analyzes files one at a time, in the given order, and then all of them together.
// A failed conversation aborts the session and the partial report is returned with the error. A failed
// overall analysis is recorded in the report and does not fail the session.
func (a *Analyzer) RunSession(ctx context.Context, files []ChatFile, credential string, onProgress func(Progress)) (SessionReport, error) {
	emit := func(p Progress) {
		if onProgress != nil {
			onProgress(p)
		}
	}

	total := len(files)
	report := SessionReport{
		RunID:     ulid.Make().String(),
		StartedAt: time.Now().UTC(),
		Files:     make([]string, 0, total),
		Analyses:  make([]ChatAnalysis, 0, total),
	}
	logger := a.logger.With("run_id", report.RunID)

	fail := func(err error) (SessionReport, error) {
		msg := err.Error()
		var ie *provider.InvokeError
		if errors.As(err, &ie) {
			msg = ie.UserMessage()
		}
		emit(Progress{CurrentFile: 0, TotalFiles: total, CurrentFileName: "Error: " + msg, Status: StatusError})
		report.FinishedAt = time.Now().UTC()
		return report, err
	}

	if total == 0 {
		return fail(ErrNoChats)
	}
	if credential == "" {
		return fail(ErrMissingCredential)
	}

	maxRetries := a.retry.MaxRetries
	emit(Progress{CurrentFile: 0, TotalFiles: total, Status: StatusAnalyzing})

	for i, f := range files {
		report.Files = append(report.Files, f.Name)
		emit(Progress{CurrentFile: i + 1, TotalFiles: total, CurrentFileName: f.Name, Status: StatusAnalyzing})

		if len(f.Data) == 0 {
			logger.Warn("skipping file without messages", "file", f.Name)
			report.Skipped = append(report.Skipped, f.Name)
			continue
		}

		analysis, err := a.AnalyzeChat(ctx, ChatRequest{
			Messages:   f.Data,
			Credential: credential,
			FileName:   f.Name,
			OnAttempt:  retryReporter(emit, i+1, total, f.Name, maxRetries),
		})
		if err != nil {
			logger.Error("conversation analysis failed", "file", f.Name, "err", err)
			return fail(fmt.Errorf("analyze %s: %w", f.Name, err))
		}
		report.Analyses = append(report.Analyses, analysis)
	}

	if len(report.Analyses) > 0 {
		const overallLabel = "Overall analysis"
		emit(Progress{CurrentFile: total, TotalFiles: total, CurrentFileName: "Generating overall analysis...", Status: StatusAnalyzing})
		overall, err := a.AnalyzeOverall(ctx, OverallRequest{
			Chats:      files,
			Prior:      report.Analyses,
			Credential: credential,
			OnAttempt:  retryReporter(emit, total, total, overallLabel, maxRetries),
		})
		switch {
		case err == nil:
			report.Overall = &overall
		case ctx.Err() != nil:
			return fail(ctx.Err())
		default:
			logger.Warn("overall analysis failed, keeping per-conversation results", "err", err)
			report.OverallError = err.Error()
		}
	}

	emit(Progress{CurrentFile: total, TotalFiles: total, CurrentFileName: "Analysis completed!", Status: StatusCompleted})
	report.FinishedAt = time.Now().UTC()
	logger.Info("session complete",
		"files", total, "analyzed", len(report.Analyses), "skipped", len(report.Skipped),
		"overall", report.Overall != nil, "duration", report.FinishedAt.Sub(report.StartedAt).Round(time.Millisecond))
	return report, nil
}

// retryReporter turns failed, retryable attempts into "retrying" progress values.
func retryReporter(emit func(Progress), current, total int, name string, maxRetries int) func(provider.Attempt) {
	return func(at provider.Attempt) {
		if at.Succeeded() || at.Class.Fatal() || at.Number > maxRetries {
			return
		}
		emit(Progress{
			CurrentFile:     current,
			TotalFiles:      total,
			CurrentFileName: fmt.Sprintf("%s (Retry %d/%d)", name, at.Number, maxRetries),
			Status:          StatusRetrying,
			RetryCount:      at.Number,
		})
	}
}
