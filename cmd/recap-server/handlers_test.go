package main

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/theimaginaryfoundation/chat-recap/recap"
	"github.com/theimaginaryfoundation/chat-recap/recap/provider"
)

type fakeGenerator struct {
	mu    sync.Mutex
	calls int
	fn    func(n int, req provider.Request) (string, error)
}

func (g *fakeGenerator) Name() string { return "fake" }

func (g *fakeGenerator) Generate(_ context.Context, req provider.Request) (string, error) {
	g.mu.Lock()
	g.calls++
	n := g.calls
	g.mu.Unlock()
	return g.fn(n, req)
}

func newTestServer(t *testing.T, gen provider.Generator) http.Handler {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	a, err := recap.NewAnalyzer(recap.AnalyzerConfig{
		Generator: gen,
		Retry:     provider.RetryPolicy{MaxRetries: 2, BaseDelay: time.Millisecond},
		Logger:    logger,
		Sleep:     func(ctx context.Context, _ time.Duration) error { return ctx.Err() },
	})
	if err != nil {
		t.Fatalf("NewAnalyzer: %v", err)
	}
	s := &server{analyzer: a, logger: logger, maxBodyBytes: 1 << 20, requestTimeout: time.Minute}
	return s.routes()
}

func post(t *testing.T, h http.Handler, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode body %q: %v", rec.Body.String(), err)
	}
	return out
}

const chatBody = `{"apiKey":"k","fileName":"message_2.json","messages":[
 {"sender_name":"Ana","timestamp_ms":0,"content":"hey, how are you"},
 {"sender_name":"Ben","timestamp_ms":86400000,"content":"fine"}]}`

func TestAnalyzeChat_OK(t *testing.T) {
	t.Parallel()

	gen := &fakeGenerator{fn: func(int, provider.Request) (string, error) {
		return "Here you go:\n```json\n{\"participants\": [\"x\"], \"sentiments\": {\"Ana\": \"positive\", \"Ben\": \"neutral\",},}\n```", nil
	}}
	rec := post(t, newTestServer(t, gen), "/api/analyze-chat", chatBody)
	if rec.Code != http.StatusOK {
		t.Fatalf("status=%d body=%s", rec.Code, rec.Body.String())
	}
	if rec.Header().Get(requestIDHeader) == "" {
		t.Fatalf("missing %s header", requestIDHeader)
	}

	var got recap.ChatAnalysis
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(got.Participants) != 2 || got.Participants[0] != "Ana" || got.Participants[1] != "Ben" {
		t.Fatalf("participants=%v", got.Participants)
	}
	if got.Sentiments["Ben"] != "neutral" {
		t.Fatalf("sentiments=%v", got.Sentiments)
	}
	if got.FileName != "message_2.json" || got.MessageStats.TotalMessages != 2 {
		t.Fatalf("fileName=%q stats=%+v", got.FileName, got.MessageStats)
	}
}

func TestAnalyzeChat_Validation(t *testing.T) {
	t.Parallel()

	gen := &fakeGenerator{fn: func(int, provider.Request) (string, error) { return "{}", nil }}
	h := newTestServer(t, gen)

	cases := []struct {
		name string
		body string
		code int
		msg  string
	}{
		{"no messages", `{"apiKey":"k"}`, http.StatusBadRequest, "Invalid messages format"},
		{"no key", `{"messages":[{"sender_name":"A","content":"x"}]}`, http.StatusBadRequest, "API key is required"},
		{"messages not array", `{"messages":{"a":1},"apiKey":"k"}`, http.StatusBadRequest, "Invalid request body"},
		{"not json", `nope`, http.StatusBadRequest, "Invalid request body"},
	}
	for _, tc := range cases {
		rec := post(t, h, "/api/analyze-chat", tc.body)
		if rec.Code != tc.code {
			t.Fatalf("%s: status=%d want %d", tc.name, rec.Code, tc.code)
		}
		if msg, _ := decodeBody(t, rec)["error"].(string); !strings.HasPrefix(msg, tc.msg) {
			t.Fatalf("%s: error=%q want prefix %q", tc.name, msg, tc.msg)
		}
	}
	if gen.calls != 0 {
		t.Fatalf("backend calls=%d want 0", gen.calls)
	}
}

func TestAnalyzeChat_AuthFailureMapsTo401(t *testing.T) {
	t.Parallel()

	gen := &fakeGenerator{fn: func(int, provider.Request) (string, error) {
		return "", &provider.APIError{Provider: "gemini", StatusCode: 400, Status: "INVALID_ARGUMENT",
			Message: "API key not valid", Reasons: []string{"API_KEY_INVALID"}}
	}}
	rec := post(t, newTestServer(t, gen), "/api/analyze-chat", chatBody)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status=%d want 401", rec.Code)
	}
	if msg, _ := decodeBody(t, rec)["error"].(string); !strings.HasPrefix(msg, "Invalid API key") {
		t.Fatalf("error=%q", msg)
	}
	if gen.calls != 1 {
		t.Fatalf("calls=%d want 1", gen.calls)
	}
}

func TestAnalyzeChat_UnavailableAfterRetries(t *testing.T) {
	t.Parallel()

	gen := &fakeGenerator{fn: func(int, provider.Request) (string, error) {
		return "", &provider.APIError{Provider: "gemini", StatusCode: 503, Message: "overloaded"}
	}}
	rec := post(t, newTestServer(t, gen), "/api/analyze-chat", chatBody)
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("status=%d want 503", rec.Code)
	}
	if gen.calls != 3 {
		t.Fatalf("calls=%d want 3", gen.calls)
	}
}

func TestAnalyzeOverall_OK(t *testing.T) {
	t.Parallel()

	gen := &fakeGenerator{fn: func(int, provider.Request) (string, error) {
		return `{"relationship_type": "friendship", "compatibility_score": "82"}`, nil
	}}
	body := `{"apiKey":"k","allChats":[{"name":"message_1.json","data":[
	 {"sender_name":"Ana","timestamp_ms":0,"content":"hi"},
	 {"sender_name":"Ben","timestamp_ms":1000,"content":"hello"},
	 {"sender_name":"Ana","timestamp_ms":2000,"content":"bye"}]}],"individualAnalyses":[]}`

	rec := post(t, newTestServer(t, gen), "/api/analyze-overall", body)
	if rec.Code != http.StatusOK {
		t.Fatalf("status=%d body=%s", rec.Code, rec.Body.String())
	}
	var got recap.OverallAnalysis
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got.RelationshipType != "friendship" || got.CompatibilityScore != 82 {
		t.Fatalf("type=%q score=%d", got.RelationshipType, got.CompatibilityScore)
	}
	if got.TotalStats.TotalMessages != 3 || got.TotalStats.TotalParticipants != 2 {
		t.Fatalf("total_stats=%+v", got.TotalStats)
	}
}

func TestAnalyzeOverall_NoChats(t *testing.T) {
	t.Parallel()

	gen := &fakeGenerator{fn: func(int, provider.Request) (string, error) { return "{}", nil }}
	rec := post(t, newTestServer(t, gen), "/api/analyze-overall", `{"apiKey":"k","allChats":[]}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status=%d want 400", rec.Code)
	}
	if msg, _ := decodeBody(t, rec)["error"].(string); msg != "Invalid request data" {
		t.Fatalf("error=%q", msg)
	}
}

func TestTestAPIKey(t *testing.T) {
	t.Parallel()

	t.Run("working", func(t *testing.T) {
		t.Parallel()
		gen := &fakeGenerator{fn: func(int, provider.Request) (string, error) { return "API key is working", nil }}
		rec := post(t, newTestServer(t, gen), "/api/test-api-key", `{"apiKey":"k"}`)
		if rec.Code != http.StatusOK {
			t.Fatalf("status=%d", rec.Code)
		}
		body := decodeBody(t, rec)
		if body["success"] != true || body["message"] != "API key is valid and working correctly!" {
			t.Fatalf("body=%v", body)
		}
	})

	t.Run("unexpected reply", func(t *testing.T) {
		t.Parallel()
		gen := &fakeGenerator{fn: func(int, provider.Request) (string, error) { return "hello", nil }}
		rec := post(t, newTestServer(t, gen), "/api/test-api-key", `{"apiKey":"k"}`)
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("status=%d", rec.Code)
		}
		if body := decodeBody(t, rec); body["success"] != false {
			t.Fatalf("body=%v", body)
		}
	})

	t.Run("rate limited is not retried", func(t *testing.T) {
		t.Parallel()
		gen := &fakeGenerator{fn: func(int, provider.Request) (string, error) {
			return "", &provider.APIError{Provider: "gemini", StatusCode: 429, Message: "quota"}
		}}
		rec := post(t, newTestServer(t, gen), "/api/test-api-key", `{"apiKey":"k"}`)
		if rec.Code != http.StatusTooManyRequests {
			t.Fatalf("status=%d", rec.Code)
		}
		if gen.calls != 1 {
			t.Fatalf("calls=%d want 1", gen.calls)
		}
	})

	t.Run("missing key", func(t *testing.T) {
		t.Parallel()
		gen := &fakeGenerator{fn: func(int, provider.Request) (string, error) { return "", nil }}
		rec := post(t, newTestServer(t, gen), "/api/test-api-key", `{}`)
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("status=%d", rec.Code)
		}
	})
}

func TestBodyTooLarge(t *testing.T) {
	t.Parallel()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	a, err := recap.NewAnalyzer(recap.AnalyzerConfig{
		Generator: &fakeGenerator{fn: func(int, provider.Request) (string, error) { return "{}", nil }},
		Logger:    logger,
	})
	if err != nil {
		t.Fatalf("NewAnalyzer: %v", err)
	}
	h := (&server{analyzer: a, logger: logger, maxBodyBytes: 16}).routes()

	rec := post(t, h, "/api/analyze-chat", chatBody)
	if rec.Code != http.StatusRequestEntityTooLarge {
		t.Fatalf("status=%d want 413", rec.Code)
	}
}

func TestHealthzAndMetrics(t *testing.T) {
	t.Parallel()

	h := newTestServer(t, &fakeGenerator{fn: func(int, provider.Request) (string, error) { return "", nil }})

	for _, path := range []string{"/healthz", "/metrics"} {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
		if rec.Code != http.StatusOK {
			t.Fatalf("%s status=%d", path, rec.Code)
		}
	}

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/analyze-chat", nil))
	if rec.Code != http.StatusMethodNotAllowed {
		t.Fatalf("GET analyze-chat status=%d want 405", rec.Code)
	}
}

func TestRequestIDIsEchoed(t *testing.T) {
	t.Parallel()

	h := newTestServer(t, &fakeGenerator{fn: func(int, provider.Request) (string, error) { return "", nil }})
	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	req.Header.Set(requestIDHeader, "abc")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if got := rec.Header().Get(requestIDHeader); got != "abc" {
		t.Fatalf("%s=%q want abc", requestIDHeader, got)
	}
}
