package logging

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
)

func TestLogLevelFiltering(t *testing.T) {
	tests := []struct {
		configLevel LogLevel
		logLevel    LogLevel
		want        bool
	}{
		{DebugLevel, DebugLevel, true},
		{DebugLevel, ErrorLevel, true},
		{InfoLevel, DebugLevel, false},
		{WarnLevel, InfoLevel, false},
		{WarnLevel, WarnLevel, true},
		{ErrorLevel, WarnLevel, false},
		{ErrorLevel, ErrorLevel, true},
	}

	for _, tt := range tests {
		t.Run(string(tt.configLevel)+"/"+string(tt.logLevel), func(t *testing.T) {
			var buf bytes.Buffer
			logger := NewLogger(Config{Format: HumanFormat, Level: tt.configLevel, Output: &buf})
			logger.log(tt.logLevel, "msg", nil)

			got := buf.Len() > 0
			if got != tt.want {
				t.Errorf("logged = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestJSONFormat(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(Config{Format: JSONFormat, Level: InfoLevel, Output: &buf})

	logger.Info("analysis complete", map[string]interface{}{
		"path":  "/tmp/repo",
		"files": 42,
	})

	var entry map[string]interface{}
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("output is not valid JSON: %v", err)
	}
	if entry["message"] != "analysis complete" {
		t.Errorf("message = %v", entry["message"])
	}
	if entry["level"] != "info" {
		t.Errorf("level = %v", entry["level"])
	}
	fields, ok := entry["fields"].(map[string]interface{})
	if !ok {
		t.Fatal("fields missing from entry")
	}
	if fields["path"] != "/tmp/repo" {
		t.Errorf("fields.path = %v", fields["path"])
	}
}

func TestHumanFormatSortedFields(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(Config{Format: HumanFormat, Level: InfoLevel, Output: &buf})

	logger.Warn("cache write failed", map[string]interface{}{
		"b": 2,
		"a": 1,
	})

	out := buf.String()
	if !strings.Contains(out, "[warn] cache write failed") {
		t.Errorf("unexpected output: %q", out)
	}
	if strings.Index(out, "a=1") > strings.Index(out, "b=2") {
		t.Errorf("fields not sorted: %q", out)
	}
}

func TestNopLoggerDiscards(t *testing.T) {
	logger := NewNop()
	// Must not panic, must not write anywhere visible.
	logger.Error("ignored", map[string]interface{}{"k": "v"})
}
