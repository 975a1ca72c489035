package logging

import (
	"bytes"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"
	"testing"
)

func TestLogLevel_String(t *testing.T) {
	tests := []struct {
		level    LogLevel
		expected string
	}{
		{LevelDebug, "DEBUG"},
		{LevelInfo, "INFO"},
		{LevelWarn, "WARN"},
		{LevelError, "ERROR"},
		{LogLevel(999), "UNKNOWN"},
	}

	for _, test := range tests {
		result := test.level.String()
		if result != test.expected {
			t.Errorf("LogLevel(%d).String() = %s, expected %s", test.level, result, test.expected)
		}
	}
}

func TestLogLevel_SlogLevel(t *testing.T) {
	tests := []struct {
		level    LogLevel
		expected slog.Level
	}{
		{LevelDebug, slog.LevelDebug},
		{LevelInfo, slog.LevelInfo},
		{LevelWarn, slog.LevelWarn},
		{LevelError, slog.LevelError},
		{LogLevel(999), slog.LevelInfo}, // Default for unknown
	}

	for _, test := range tests {
		result := test.level.SlogLevel()
		if result != test.expected {
			t.Errorf("LogLevel(%d).SlogLevel() = %v, expected %v", test.level, result, test.expected)
		}
	}
}

func TestInitForCLI(t *testing.T) {
	var buf bytes.Buffer

	InitForCLI(LevelInfo, &buf)

	if Logger() == nil {
		t.Fatal("Expected logger to be set after InitForCLI")
	}

	Info("test-subsystem", "test message %d", 42)

	output := buf.String()
	if !strings.Contains(output, "test message 42") {
		t.Error("Expected log message to appear in CLI output")
	}

	if !strings.Contains(output, "test-subsystem") {
		t.Error("Expected subsystem to appear in CLI output")
	}
}

func TestCLILevelFiltering(t *testing.T) {
	var buf bytes.Buffer

	InitForCLI(LevelInfo, &buf)

	Debug("test", "debug message")
	Info("test", "info message")

	output := buf.String()
	if strings.Contains(output, "debug message") {
		t.Error("Debug message should be filtered out at INFO level")
	}

	if !strings.Contains(output, "info message") {
		t.Error("Info message should appear at INFO level")
	}
}

func TestErrorIncludesError(t *testing.T) {
	var buf bytes.Buffer
	InitForCLI(LevelDebug, &buf)

	Error("test", errors.New("boom"), "operation failed")

	output := buf.String()
	if !strings.Contains(output, "operation failed") || !strings.Contains(output, "boom") {
		t.Errorf("Expected message and error in output, got %q", output)
	}
}

func TestJSONFormat(t *testing.T) {
	var buf bytes.Buffer
	InitWithFormat(LevelInfo, &buf, FormatJSON)

	Warn("Gateway", "denied %s", "search")

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("Expected JSON output, got %q: %v", buf.String(), err)
	}
	if entry["subsystem"] != "Gateway" {
		t.Errorf("Expected subsystem Gateway, got %v", entry["subsystem"])
	}
	if entry["msg"] != "denied search" {
		t.Errorf("Expected formatted message, got %v", entry["msg"])
	}
}

func TestAudit(t *testing.T) {
	var buf bytes.Buffer
	InitForCLI(LevelInfo, &buf)

	Audit(AuditEvent{
		Action:   "token_issued",
		Outcome:  "success",
		ClientID: "mcp-123",
	})

	output := buf.String()
	for _, want := range []string{"[AUDIT] token_issued", "outcome=success", "client_id=mcp-123"} {
		if !strings.Contains(output, want) {
			t.Errorf("Expected %q in audit output %q", want, output)
		}
	}
	if strings.Contains(output, "target=") {
		t.Error("Empty fields should be omitted from audit output")
	}
}

func TestFingerprint(t *testing.T) {
	if got := Fingerprint(""); got != "<empty>" {
		t.Errorf("Fingerprint(\"\") = %q", got)
	}

	a := Fingerprint("secret-a")
	b := Fingerprint("secret-b")
	if len(a) != fingerprintLength {
		t.Errorf("Expected %d characters, got %d", fingerprintLength, len(a))
	}
	if a == b {
		t.Error("Different secrets should have different fingerprints")
	}
	if a != Fingerprint("secret-a") {
		t.Error("Fingerprint should be deterministic")
	}
	if strings.Contains(a, "secret") {
		t.Error("Fingerprint must not contain the secret")
	}
}
