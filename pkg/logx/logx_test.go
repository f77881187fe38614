package logx_test

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/Abraxas-365/filesmile/pkg/logx"
)

func newBufferLogger(format logx.Format) (*logx.Logger, *bytes.Buffer) {
	buf := &bytes.Buffer{}
	cfg := logx.DefaultConfig()
	cfg.Format = format
	cfg.EnableColors = false
	cfg.Output = buf
	return logx.NewLogger(cfg), buf
}

func TestJSONFormatter_RedactsSecrets(t *testing.T) {
	logger, buf := newBufferLogger(logx.FormatJSON)

	logger.WithFields(logx.Fields{
		"email":                 "a@acme.com",
		"erp_secret":            "hunter2",
		"erp_password_or_token": "hunter3",
		"Authorization":         "Bearer abc",
		"token":                 "xyz",
	}).Info("registering")

	var out map[string]interface{}
	if err := json.Unmarshal(buf.Bytes(), &out); err != nil {
		t.Fatalf("invalid json line %q: %v", buf.String(), err)
	}
	if out["email"] != "a@acme.com" {
		t.Fatalf("expected email to pass through, got %v", out["email"])
	}
	for _, k := range []string{"erp_secret", "erp_password_or_token", "Authorization", "token"} {
		if out[k] != logx.Redacted {
			t.Fatalf("expected %s to be redacted, got %v", k, out[k])
		}
	}
	if strings.Contains(buf.String(), "hunter2") {
		t.Fatal("plaintext secret reached the log line")
	}
}

func TestConsoleFormatter_SortedFieldsAndError(t *testing.T) {
	logger, buf := newBufferLogger(logx.FormatConsole)

	logger.WithField("tenant_id", 7).WithField("password", "p").WithError(errors.New("boom")).Error("failed")

	line := buf.String()
	if !strings.Contains(line, "ERROR failed") {
		t.Fatalf("missing level/message: %q", line)
	}
	if !strings.Contains(line, "password="+logx.Redacted) {
		t.Fatalf("password not redacted: %q", line)
	}
	if strings.Index(line, "error=") > strings.Index(line, "tenant_id=") {
		t.Fatalf("fields not sorted: %q", line)
	}
}

func TestLevelFiltering(t *testing.T) {
	logger, buf := newBufferLogger(logx.FormatConsole)
	logger.SetLevel(logx.LevelWarn)

	logger.WithField("k", "v").Info("hidden")
	if buf.Len() != 0 {
		t.Fatalf("info should be filtered at warn level, got %q", buf.String())
	}

	logger.WithField("k", "v").Warn("shown")
	if !strings.Contains(buf.String(), "shown") {
		t.Fatalf("warn should be emitted, got %q", buf.String())
	}
}

func TestParseLevel(t *testing.T) {
	cases := map[string]logx.Level{
		"debug":   logx.LevelDebug,
		"WARNING": logx.LevelWarn,
		"off":     logx.LevelOff,
		"bogus":   logx.LevelInfo,
	}
	for in, want := range cases {
		if got := logx.ParseLevel(in); got != want {
			t.Errorf("ParseLevel(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestIsSensitiveKey(t *testing.T) {
	if logx.IsSensitiveKey("email") || logx.IsSensitiveKey("tenant_id") {
		t.Fatal("plain identity fields must not be redacted")
	}
	if !logx.IsSensitiveKey("ERP_Admin_Secret") || !logx.IsSensitiveKey("access_token") {
		t.Fatal("secret-bearing keys must be redacted")
	}
}
