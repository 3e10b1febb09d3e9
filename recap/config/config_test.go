package config

import (
	"bytes"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/theimaginaryfoundation/chat-recap/recap/provider"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoad(t *testing.T) {
	t.Setenv("RECAP_TEST_KEY", "AIza-from-env")

	path := writeConfig(t, `
provider: gemini
model: gemini-1.5-pro
api_key: ${RECAP_TEST_KEY}
retry:
  max_retries: 5
  base_delay_ms: 250
server:
  addr: ":9090"
  max_body_bytes: 1048576
logging:
  level: debug
`)
	f, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if f.APIKey != "AIza-from-env" || f.Model != "gemini-1.5-pro" {
		t.Fatalf("f=%+v", f)
	}
	if f.Server.Addr != ":9090" || f.Server.MaxBodyBytes != 1<<20 {
		t.Fatalf("server=%+v", f.Server)
	}

	p := f.Retry.Apply(provider.DefaultRetryPolicy())
	if p.MaxRetries != 5 || p.BaseDelay != 250*time.Millisecond || p.JitterMax != time.Second {
		t.Fatalf("policy=%+v", p)
	}
}

func TestLoad_ZeroRetriesIsExplicit(t *testing.T) {
	t.Parallel()

	f, err := Load(writeConfig(t, "retry:\n  max_retries: 0\n  jitter_max_ms: 0\n"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	p := f.Retry.Apply(provider.DefaultRetryPolicy())
	if p.MaxRetries != 0 || p.JitterMax != 0 || p.BaseDelay != 2*time.Second {
		t.Fatalf("policy=%+v", p)
	}
}

func TestLoad_Empty(t *testing.T) {
	t.Parallel()

	f, err := Load(writeConfig(t, ""))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if f.Provider != "" {
		t.Fatalf("f=%+v", f)
	}
}

func TestLoad_Errors(t *testing.T) {
	t.Parallel()

	cases := map[string]string{
		"unknown field":    "retries: 3\n",
		"unknown provider": "provider: bard\n",
		"negative retries": "retry:\n  max_retries: -1\n",
		"bad level":        "logging:\n  level: loud\n",
		"bad yaml":         "provider: [\n",
	}
	for name, body := range cases {
		if _, err := Load(writeConfig(t, body)); err == nil {
			t.Fatalf("%s: expected error", name)
		}
	}
	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Fatalf("expected error for missing file")
	}
}

func TestConfigPath(t *testing.T) {
	t.Parallel()

	cases := []struct {
		args []string
		want string
	}{
		{[]string{"-config", "a.yaml", "-pretty"}, "a.yaml"},
		{[]string{"--config=b.yaml"}, "b.yaml"},
		{[]string{"-in", "x", "-config"}, ""},
		{[]string{"-in", "config"}, ""},
		{[]string{"--", "-config", "c.yaml"}, ""},
		{nil, ""},
	}
	for _, tc := range cases {
		if got := ConfigPath(tc.args); got != tc.want {
			t.Fatalf("ConfigPath(%v)=%q want %q", tc.args, got, tc.want)
		}
	}
}

func TestNewLogger(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	logger := NewLogger(&buf, "warn", false)
	logger.Info("hidden")
	logger.Warn("shown", "k", "v")
	out := buf.String()
	if strings.Contains(out, "hidden") || !strings.Contains(out, "shown") {
		t.Fatalf("out=%q", out)
	}

	buf.Reset()
	NewLogger(&buf, "error", true).Debug("debug wins")
	if !strings.Contains(buf.String(), "debug wins") {
		t.Fatalf("out=%q", buf.String())
	}

	if l, err := ParseLevel("DEBUG"); err != nil || l != slog.LevelDebug {
		t.Fatalf("l=%v err=%v", l, err)
	}
}
