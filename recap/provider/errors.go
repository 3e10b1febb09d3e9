package provider

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"

	"github.com/openai/openai-go"
)

// ErrorClass says how a failed attempt should be handled.
type ErrorClass int

const (
	ClassTransient ErrorClass = iota
	ClassRateLimited
	ClassUnavailable
	ClassAuth
	ClassNotFound
	ClassCanceled
)

func (c ErrorClass) String() string {
	switch c {
	case ClassRateLimited:
		return "rate_limited"
	case ClassUnavailable:
		return "unavailable"
	case ClassAuth:
		return "auth"
	case ClassNotFound:
		return "not_found"
	case ClassCanceled:
		return "canceled"
	default:
		return "transient"
	}
}

// Fatal reports whether the class aborts the retry loop immediately.
func (c ErrorClass) Fatal() bool {
	return c == ClassAuth || c == ClassNotFound || c == ClassCanceled
}

// UserMessage is the caller-facing explanation for a terminal failure of this class.
func (c ErrorClass) UserMessage() string {
	switch c {
	case ClassAuth:
		return "Invalid API key or insufficient permissions. Please check your API key and ensure it has access to the model."
	case ClassNotFound:
		return "The requested model is not available. Please try again or check your API access."
	case ClassRateLimited:
		return "API rate limit exceeded. Please wait a moment and try again."
	case ClassUnavailable:
		return "The AI service is temporarily unavailable. This is usually a temporary issue; please try again in a few moments."
	case ClassCanceled:
		return "The analysis was canceled before it completed."
	default:
		return "Analysis failed. Please try again."
	}
}

// APIError is a non-200 reply from a REST generation backend.
type APIError struct {
	Provider   string
	StatusCode int
	Status     string
	Message    string
	Reasons    []string
}

func (e *APIError) Error() string {
	msg := strings.TrimSpace(e.Message)
	if msg == "" {
		msg = "request failed"
	}
	var b strings.Builder
	fmt.Fprintf(&b, "%s error (status=%d", e.Provider, e.StatusCode)
	if e.Status != "" {
		b.WriteString(" " + e.Status)
	}
	b.WriteString("): " + msg)
	if len(e.Reasons) > 0 {
		b.WriteString(" [" + strings.Join(e.Reasons, ", ") + "]")
	}
	return b.String()
}

// InvokeError is returned by Invoker.Do once an invocation reaches a terminal failure.
type InvokeError struct {
	Variant  string
	Class    ErrorClass
	Attempts int
	Err      error
}

func (e *InvokeError) Error() string {
	return fmt.Sprintf("%s invocation failed (%s) after %d attempt(s): %v", e.Variant, e.Class, e.Attempts, e.Err)
}

func (e *InvokeError) Unwrap() error { return e.Err }

// UserMessage returns a human-readable classification message for the failure.
func (e *InvokeError) UserMessage() string {
	if e.Class == ClassTransient && e.Err != nil {
		return e.Err.Error()
	}
	return e.Class.UserMessage()
}

// ClassOf returns the class carried by an *InvokeError in err's chain, or classifies err directly.
func ClassOf(err error) ErrorClass {
	var ie *InvokeError
	if errors.As(err, &ie) {
		return ie.Class
	}
	return Classify(err)
}

// Classify maps an attempt error to an ErrorClass. Typed status codes win over message markers.
func Classify(err error) ErrorClass {
	if err == nil {
		return ClassTransient
	}
	if errors.Is(err, context.Canceled) {
		return ClassCanceled
	}
	// A per-call timeout (http.Client.Timeout, a dial deadline) is the backend being slow, not the caller giving up.
	var netErr net.Error
	if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &netErr) && netErr.Timeout()) {
		return ClassUnavailable
	}

	s := err.Error()

	// Gemini reports a bad key as 400 INVALID_ARGUMENT with reason API_KEY_INVALID.
	if strings.Contains(s, "API_KEY_INVALID") || strings.Contains(s, "PERMISSION_DENIED") {
		return ClassAuth
	}

	var apiErr *APIError
	if errors.As(err, &apiErr) {
		if c, ok := classFromStatus(apiErr.StatusCode); ok {
			return c
		}
	}
	var oaiErr *openai.Error
	if errors.As(err, &oaiErr) {
		if c, ok := classFromStatus(oaiErr.StatusCode); ok {
			return c
		}
	}

	lower := strings.ToLower(s)
	switch {
	case strings.Contains(s, "UNAUTHENTICATED") || strings.Contains(lower, "invalid api key"):
		return ClassAuth
	case strings.Contains(s, "503") || strings.Contains(lower, "service unavailable") ||
		strings.Contains(lower, "visibility check was unavailable") || strings.Contains(s, "UNAVAILABLE"):
		return ClassUnavailable
	case strings.Contains(lower, "not found") || strings.Contains(s, "404") || strings.Contains(s, "NOT_FOUND"):
		return ClassNotFound
	case strings.Contains(s, "429") || strings.Contains(lower, "quota") || strings.Contains(lower, "rate limit") ||
		strings.Contains(lower, "too many requests") || strings.Contains(s, "RESOURCE_EXHAUSTED"):
		return ClassRateLimited
	}
	return ClassTransient
}

func classFromStatus(code int) (ErrorClass, bool) {
	switch {
	case code == 401 || code == 403:
		return ClassAuth, true
	case code == 404:
		return ClassNotFound, true
	case code == 429:
		return ClassRateLimited, true
	case code >= 500 && code <= 599:
		return ClassUnavailable, true
	}
	return ClassTransient, false
}
