package logging

import (
	"bytes"
	"strings"
	"testing"
)

func TestLogLevel_String(t *testing.T) {
	tests := []struct {
		level    LogLevel
		expected string
	}{
		{LogLevelDebug, "DEBUG"},
		{LogLevelInfo, "INFO"},
		{LogLevelWarn, "WARN"},
		{LogLevelError, "ERROR"},
		{LogLevel(99), "UNKNOWN"},
	}

	for _, tt := range tests {
		if got := tt.level.String(); got != tt.expected {
			t.Errorf("LogLevel(%d).String() = %q, want %q", tt.level, got, tt.expected)
		}
	}
}

func TestParseLogLevel(t *testing.T) {
	tests := []struct {
		input    string
		expected LogLevel
	}{
		{"debug", LogLevelDebug},
		{"DEBUG", LogLevelDebug},
		{"info", LogLevelInfo},
		{"warn", LogLevelWarn},
		{"Warning", LogLevelWarn},
		{"error", LogLevelError},
		{"unknown", LogLevelInfo},
		{"", LogLevelInfo},
	}

	for _, tt := range tests {
		if got := ParseLogLevel(tt.input); got != tt.expected {
			t.Errorf("ParseLogLevel(%q) = %v, want %v", tt.input, got, tt.expected)
		}
	}
}

func TestLogger_Log(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(LoggerConfig{Level: LogLevelDebug, Output: &buf})

	logger.Info("opened %s (%d bytes)", "a.txt", 42)

	out := buf.String()
	if !strings.Contains(out, `"message":"opened a.txt (42 bytes)"`) {
		t.Errorf("output missing formatted message: %s", out)
	}
	if !strings.Contains(out, `"level":"info"`) {
		t.Errorf("output missing level: %s", out)
	}
}

func TestLogger_LevelFilter(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(LoggerConfig{Level: LogLevelWarn, Output: &buf})

	logger.Debug("debug")
	logger.Info("info")
	if buf.Len() != 0 {
		t.Errorf("expected no output below warn, got %q", buf.String())
	}

	logger.Warn("warn")
	if !strings.Contains(buf.String(), `"message":"warn"`) {
		t.Errorf("expected warn message, got %q", buf.String())
	}

	buf.Reset()
	logger.SetLevel(LogLevelDebug)
	logger.Debug("now visible")
	if !strings.Contains(buf.String(), "now visible") {
		t.Errorf("expected debug message after SetLevel, got %q", buf.String())
	}
}

func TestLogger_WithComponent(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(LoggerConfig{Level: LogLevelInfo, Output: &buf})

	tabLog := logger.WithComponent("tab").WithField("uri", "file:///a.txt")
	tabLog.Info("loaded")

	out := buf.String()
	if !strings.Contains(out, `"component":"tab"`) {
		t.Errorf("missing component field: %s", out)
	}
	if !strings.Contains(out, `"uri":"file:///a.txt"`) {
		t.Errorf("missing uri field: %s", out)
	}

	buf.Reset()
	logger.Info("parent")
	if strings.Contains(buf.String(), "component") {
		t.Errorf("parent logger should not carry child fields: %s", buf.String())
	}
}

func TestLogger_Disable(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(LoggerConfig{Level: LogLevelDebug, Output: &buf})

	logger.Disable()
	logger.Error("hidden")
	if buf.Len() != 0 {
		t.Errorf("disabled logger wrote %q", buf.String())
	}

	logger.Enable()
	logger.Error("shown")
	if !strings.Contains(buf.String(), "shown") {
		t.Errorf("enabled logger did not write: %q", buf.String())
	}
}

func TestLogger_Writer(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(LoggerConfig{Level: LogLevelDebug, Output: &buf})

	w := logger.Writer(LogLevelInfo)
	_, _ = w.Write([]byte("first line\nsecond "))
	_, _ = w.Write([]byte("line\n"))

	out := buf.String()
	if !strings.Contains(out, `"message":"first line"`) {
		t.Errorf("missing first line: %s", out)
	}
	if !strings.Contains(out, `"message":"second line"`) {
		t.Errorf("missing joined second line: %s", out)
	}
}

func TestNullLogger(t *testing.T) {
	NullLogger.Info("nothing %d", 1)
	NullLogger.WithComponent("x").Error("still nothing")
}
