package main

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/theimaginaryfoundation/chat-recap/recap"
	"github.com/theimaginaryfoundation/chat-recap/recap/provider"
)

type server struct {
	analyzer       *recap.Analyzer
	logger         *slog.Logger
	maxBodyBytes   int64
	requestTimeout time.Duration
}

func (s *server) routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/analyze-chat", s.handleAnalyzeChat)
	mux.HandleFunc("POST /api/analyze-overall", s.handleAnalyzeOverall)
	mux.HandleFunc("POST /api/test-api-key", s.handleTestAPIKey)
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	mux.Handle("GET /metrics", promhttp.Handler())
	return s.withRequestLog(mux)
}

type analyzeChatRequest struct {
	Messages []recap.ChatMessage `json:"messages"`
	APIKey   string              `json:"apiKey"`
	FileName string              `json:"fileName"`
}

type analyzeOverallRequest struct {
	AllChats           []recap.ChatFile     `json:"allChats"`
	IndividualAnalyses []recap.ChatAnalysis `json:"individualAnalyses"`
	APIKey             string               `json:"apiKey"`
}

type testAPIKeyRequest struct {
	APIKey string `json:"apiKey"`
}

func (s *server) handleAnalyzeChat(w http.ResponseWriter, r *http.Request) {
	var req analyzeChatRequest
	if !s.decode(w, r, &req) {
		return
	}
	ctx, cancel := s.requestContext(r)
	defer cancel()

	out, err := s.analyzer.AnalyzeChat(ctx, recap.ChatRequest{
		Messages:   req.Messages,
		Credential: req.APIKey,
		FileName:   req.FileName,
	})
	if err != nil {
		s.writeError(w, r, err, false)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *server) handleAnalyzeOverall(w http.ResponseWriter, r *http.Request) {
	var req analyzeOverallRequest
	if !s.decode(w, r, &req) {
		return
	}
	ctx, cancel := s.requestContext(r)
	defer cancel()

	out, err := s.analyzer.AnalyzeOverall(ctx, recap.OverallRequest{
		Chats:      req.AllChats,
		Prior:      req.IndividualAnalyses,
		Credential: req.APIKey,
	})
	if err != nil {
		s.writeError(w, r, err, false)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *server) handleTestAPIKey(w http.ResponseWriter, r *http.Request) {
	var req testAPIKeyRequest
	if !s.decode(w, r, &req) {
		return
	}
	ctx, cancel := s.requestContext(r)
	defer cancel()

	if err := s.analyzer.CheckCredential(ctx, req.APIKey); err != nil {
		s.writeError(w, r, err, true)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"message": "API key is valid and working correctly!",
		"success": true,
	})
}

// requestContext bounds the whole retry sequence of one request.
func (s *server) requestContext(r *http.Request) (context.Context, context.CancelFunc) {
	if s.requestTimeout <= 0 {
		return context.WithCancel(r.Context())
	}
	return context.WithTimeout(r.Context(), s.requestTimeout)
}

func (s *server) decode(w http.ResponseWriter, r *http.Request, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, s.maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		var tooBig *http.MaxBytesError
		if errors.As(err, &tooBig) {
			writeJSON(w, http.StatusRequestEntityTooLarge, errorBody{Error: "Request body too large"})
			return false
		}
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "Invalid request body: " + err.Error()})
		return false
	}
	return true
}

type errorBody struct {
	Error   string `json:"error"`
	Success *bool  `json:"success,omitempty"`
}

// errorStatus maps an analysis error to an HTTP status and a message safe to show to the caller.
func errorStatus(err error) (int, string) {
	switch {
	case errors.Is(err, recap.ErrNoMessages):
		return http.StatusBadRequest, "Invalid messages format"
	case errors.Is(err, recap.ErrNoChats):
		return http.StatusBadRequest, "Invalid request data"
	case errors.Is(err, recap.ErrMissingCredential):
		return http.StatusBadRequest, "API key is required"
	case errors.Is(err, recap.ErrProbeMismatch):
		return http.StatusBadRequest, "API key test failed - unexpected response from the model"
	}

	msg := err.Error()
	var ie *provider.InvokeError
	if errors.As(err, &ie) {
		msg = ie.UserMessage()
	}
	switch provider.ClassOf(err) {
	case provider.ClassAuth:
		return http.StatusUnauthorized, msg
	case provider.ClassNotFound:
		return http.StatusNotFound, msg
	case provider.ClassRateLimited:
		return http.StatusTooManyRequests, msg
	case provider.ClassUnavailable:
		return http.StatusServiceUnavailable, msg
	case provider.ClassCanceled:
		return http.StatusGatewayTimeout, msg
	default:
		return http.StatusInternalServerError, msg
	}
}

func (s *server) writeError(w http.ResponseWriter, r *http.Request, err error, withSuccess bool) {
	status, msg := errorStatus(err)
	s.logger.Error("request failed",
		"request_id", w.Header().Get(requestIDHeader), "path", r.URL.Path, "status", status, "err", err)
	body := errorBody{Error: msg}
	if withSuccess {
		f := false
		body.Success = &f
	}
	writeJSON(w, status, body)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

const requestIDHeader = "X-Request-Id"

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

// withRequestLog tags every response with a ULID request id and logs it once served.
func (s *server) withRequestLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(requestIDHeader)
		if id == "" {
			id = ulid.Make().String()
		}
		w.Header().Set(requestIDHeader, id)

		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)

		s.logger.Info("request",
			"request_id", id,
			"method", r.Method,
			"path", r.URL.Path,
			"status", rec.status,
			"duration", time.Since(start).Round(time.Millisecond))
	})
}
