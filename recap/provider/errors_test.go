package provider

import (
	"context"
	"errors"
	"fmt"
	"testing"
)

type timeoutErr struct{}

func (timeoutErr) Error() string   { return "i/o timeout" }
func (timeoutErr) Timeout() bool   { return true }
func (timeoutErr) Temporary() bool { return true }

func TestClassify(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name string
		err  error
		want ErrorClass
	}{
		{"api key invalid", &APIError{Provider: "gemini", StatusCode: 400, Status: "INVALID_ARGUMENT", Message: "API key not valid", Reasons: []string{"API_KEY_INVALID"}}, ClassAuth},
		{"permission denied marker", errors.New("PERMISSION_DENIED"), ClassAuth},
		{"typed 403", &APIError{Provider: "gemini", StatusCode: 403}, ClassAuth},
		{"typed 404", &APIError{Provider: "gemini", StatusCode: 404}, ClassNotFound},
		{"typed 429", &APIError{Provider: "gemini", StatusCode: 429}, ClassRateLimited},
		{"typed 500", &APIError{Provider: "gemini", StatusCode: 500}, ClassUnavailable},
		{"plain 400", &APIError{Provider: "gemini", StatusCode: 400, Status: "INVALID_ARGUMENT", Message: "bad"}, ClassTransient},
		{"unauthenticated", errors.New("UNAUTHENTICATED: request had invalid credentials"), ClassAuth},
		{"503 text", errors.New("503 Service Unavailable"), ClassUnavailable},
		{"visibility check", errors.New("Visibility check was unavailable"), ClassUnavailable},
		{"model not found", errors.New("models/foo is not found for API version v1beta"), ClassNotFound},
		{"quota", errors.New("You exceeded your current quota"), ClassRateLimited},
		{"resource exhausted", errors.New("RESOURCE_EXHAUSTED"), ClassRateLimited},
		{"canceled", fmt.Errorf("wrap: %w", context.Canceled), ClassCanceled},
		{"deadline", context.DeadlineExceeded, ClassUnavailable},
		{"client timeout", fmt.Errorf("gemini: request failed: %w", timeoutErr{}), ClassUnavailable},
		{"other", errors.New("unexpected EOF"), ClassTransient},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			if got := Classify(tc.err); got != tc.want {
				t.Fatalf("Classify(%v)=%s want %s", tc.err, got, tc.want)
			}
		})
	}
}

func TestErrorClassFatal(t *testing.T) {
	t.Parallel()

	fatal := map[ErrorClass]bool{
		ClassTransient:   false,
		ClassRateLimited: false,
		ClassUnavailable: false,
		ClassAuth:        true,
		ClassNotFound:    true,
		ClassCanceled:    true,
	}
	for c, want := range fatal {
		if c.Fatal() != want {
			t.Fatalf("%s Fatal()=%v", c, c.Fatal())
		}
		if c.UserMessage() == "" {
			t.Fatalf("%s has no user message", c)
		}
	}
}

func TestAPIErrorString(t *testing.T) {
	t.Parallel()

	err := &APIError{Provider: "gemini", StatusCode: 400, Status: "INVALID_ARGUMENT", Message: "API key not valid", Reasons: []string{"API_KEY_INVALID"}}
	want := "gemini error (status=400 INVALID_ARGUMENT): API key not valid [API_KEY_INVALID]"
	if err.Error() != want {
		t.Fatalf("got=%q", err.Error())
	}
	if got := (&APIError{Provider: "gemini", StatusCode: 502}).Error(); got != "gemini error (status=502): request failed" {
		t.Fatalf("got=%q", got)
	}
}

func TestClassOf(t *testing.T) {
	t.Parallel()

	wrapped := fmt.Errorf("analyze: %w", &InvokeError{Variant: "chat", Class: ClassNotFound, Attempts: 1, Err: errors.New("x")})
	if ClassOf(wrapped) != ClassNotFound {
		t.Fatalf("class=%s", ClassOf(wrapped))
	}
	if ClassOf(errors.New("quota exceeded")) != ClassRateLimited {
		t.Fatalf("expected direct classification")
	}
}
