package logging

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/tidwall/gjson"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func TestNew_ConsoleFormat(t *testing.T) {
	var buf bytes.Buffer
	logger := New(Options{Level: "info", Format: "console", Writer: &buf})

	logger.Info("test message", zap.String("key", "value"))

	output := buf.String()
	if !strings.Contains(output, "test message") {
		t.Errorf("expected 'test message' in output, got: %s", output)
	}
	if !strings.Contains(output, `"key": "value"`) {
		t.Errorf("expected key field in output, got: %s", output)
	}
	if !strings.Contains(output, "INFO") {
		t.Errorf("expected capital level in output, got: %s", output)
	}
}

func TestNew_JSONFormat(t *testing.T) {
	var buf bytes.Buffer
	logger := New(Options{Level: "info", Format: "json", Writer: &buf})

	logger.Info("test message", zap.String("key", "value"))

	line := buf.Bytes()
	if got := gjson.GetBytes(line, "msg").String(); got != "test message" {
		t.Errorf("expected msg field, got: %s", line)
	}
	if got := gjson.GetBytes(line, "key").String(); got != "value" {
		t.Errorf("expected key field, got: %s", line)
	}
	if got := gjson.GetBytes(line, "level").String(); got != "info" {
		t.Errorf("expected level info, got: %s", line)
	}
}

func TestNew_LevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	logger := New(Options{Level: "warn", Format: "console", Writer: &buf})

	logger.Info("should not appear")
	logger.Warn("should appear")

	output := buf.String()
	if strings.Contains(output, "should not appear") {
		t.Errorf("INFO message should be filtered at WARN level, got: %s", output)
	}
	if !strings.Contains(output, "should appear") {
		t.Errorf("WARN message should appear at WARN level, got: %s", output)
	}
}

func TestNew_ChildLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := New(Options{Level: "debug", Format: "json", Writer: &buf})
	child := logger.With(zap.String("task", "orders"))

	child.Debug("tick", zap.Int("tick", 3))

	line := buf.Bytes()
	if gjson.GetBytes(line, "task").String() != "orders" || gjson.GetBytes(line, "tick").Int() != 3 {
		t.Errorf("expected child context in output, got: %s", line)
	}
}

func TestNew_WritesToFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "barrage.log")
	logger := New(Options{Level: "info", Format: "console", File: path})

	logger.Info("to file", zap.String("task", "orders"))
	_ = logger.Sync()

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("reading log file: %v", err)
	}
	if got := gjson.GetBytes(data, "msg").String(); got != "to file" {
		t.Errorf("expected JSON entry in log file, got: %s", data)
	}
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		input string
		want  zapcore.Level
	}{
		{"debug", zapcore.DebugLevel},
		{"DEBUG", zapcore.DebugLevel},
		{"info", zapcore.InfoLevel},
		{"warn", zapcore.WarnLevel},
		{"warning", zapcore.WarnLevel},
		{"error", zapcore.ErrorLevel},
		{" Error ", zapcore.ErrorLevel},
		{"unknown", zapcore.InfoLevel},
		{"", zapcore.InfoLevel},
	}

	for _, tt := range tests {
		if got := ParseLevel(tt.input); got != tt.want {
			t.Errorf("ParseLevel(%q) = %v, want %v", tt.input, got, tt.want)
		}
	}
}
