// Package recovery turns raw model text into a shaped result. It never fails: when the text cannot be
// decoded, even after repair, the caller's fallback builder supplies the result.
package recovery

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/theimaginaryfoundation/chat-recap/recap/fileutils"
	"github.com/theimaginaryfoundation/chat-recap/recap/metrics"
)

// Outcome says which path produced a shaped result.
type Outcome string

const (
	OutcomeStrict   Outcome = "strict"
	OutcomeRepaired Outcome = "repaired"
	OutcomeFallback Outcome = "fallback"
)

// maxLoggedText bounds how much cleaned model output is written to logs.
const maxLoggedText = 2000

// Contract names the fields a decoded record must carry to count as a shaped result.
type Contract struct {
	Name     string
	Required []string

	schema *jsonschema.Schema
}

// NewContract compiles a contract requiring an object with every field present and non-null.
func NewContract(name string, required ...string) (*Contract, error) {
	if strings.TrimSpace(name) == "" {
		return nil, errors.New("NewContract: name is empty")
	}
	props := make(map[string]any, len(required))
	for _, f := range required {
		props[f] = map[string]any{"not": map[string]any{"type": "null"}}
	}
	doc := map[string]any{
		"type":       "object",
		"required":   append([]string{}, required...),
		"properties": props,
	}
	b, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("NewContract: marshal schema: %w", err)
	}
	c := jsonschema.NewCompiler()
	url := name + ".schema.json"
	if err := c.AddResource(url, bytes.NewReader(b)); err != nil {
		return nil, fmt.Errorf("NewContract: add schema: %w", err)
	}
	schema, err := c.Compile(url)
	if err != nil {
		return nil, fmt.Errorf("NewContract: compile schema: %w", err)
	}
	return &Contract{Name: name, Required: append([]string(nil), required...), schema: schema}, nil
}

// MustContract is NewContract for package-level contracts.
func MustContract(name string, required ...string) *Contract {
	c, err := NewContract(name, required...)
	if err != nil {
		panic(err)
	}
	return c
}

// Validate checks that text is a JSON object satisfying the contract.
func (c *Contract) Validate(text string) error {
	var doc any
	if err := json.Unmarshal([]byte(text), &doc); err != nil {
		return fmt.Errorf("decode: %w", err)
	}
	if err := c.schema.Validate(doc); err != nil {
		return fmt.Errorf("contract %s: %w", c.Name, err)
	}
	return nil
}

// Decode validates text against the contract and then decodes it into T.
func Decode[T any](c *Contract, text string) (T, error) {
	var out T
	if err := c.Validate(text); err != nil {
		return out, err
	}
	if err := json.Unmarshal([]byte(text), &out); err != nil {
		return out, fmt.Errorf("decode %s: %w", c.Name, err)
	}
	return out, nil
}

// Recover produces a shaped result from raw model text: strict decode, then heuristic repair, then fallback.
// fallback must not panic; it only sees the caller's own input statistics, never the undecodable text.
func Recover[T any](c *Contract, raw string, fallback func() T, logger *slog.Logger) (T, Outcome) {
	if logger == nil {
		logger = slog.Default()
	}

	text := strings.TrimSpace(raw)
	if out, err := Decode[T](c, text); err == nil {
		metrics.RecoveryOutcomes.WithLabelValues(c.Name, string(OutcomeStrict)).Inc()
		return out, OutcomeStrict
	}

	cleaned := Repair(text)
	err := errors.New("not a JSON object")
	if isObjectFramed(cleaned) {
		var out T
		if out, err = Decode[T](c, cleaned); err == nil {
			logger.Debug("model output repaired", "contract", c.Name)
			metrics.RecoveryOutcomes.WithLabelValues(c.Name, string(OutcomeRepaired)).Inc()
			return out, OutcomeRepaired
		}
	}

	logger.Warn("model output not decodable, using fallback",
		"contract", c.Name,
		"err", err,
		"raw_len", len(raw),
		"cleaned", fileutils.Truncate(cleaned, maxLoggedText))
	metrics.RecoveryOutcomes.WithLabelValues(c.Name, string(OutcomeFallback)).Inc()
	return fallback(), OutcomeFallback
}
