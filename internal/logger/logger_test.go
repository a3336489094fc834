package logger

import (
	"bytes"
	"strings"
	"testing"
)

func TestParseLevel(t *testing.T) {
	tests := map[string]Level{
		"debug":   DebugLevel,
		"INFO":    InfoLevel,
		"warning": WarnLevel,
		" error ": ErrorLevel,
		"bogus":   InfoLevel,
	}
	for in, want := range tests {
		if got := ParseLevel(in); got != want {
			t.Errorf("ParseLevel(%q) = %d, want %d", in, got, want)
		}
	}
}

func TestLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	InitWriter(&buf, "warn", "json")
	defer Init("info", "text")

	Debug("hidden %d", 1)
	Info("hidden %d", 2)
	Warn("shown %d", 3)
	Error("shown %d", 4)

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Errorf("messages below warn leaked: %q", out)
	}
	if !strings.Contains(out, "[WARN] shown 3") || !strings.Contains(out, "[ERROR] shown 4") {
		t.Errorf("missing expected lines: %q", out)
	}
}

func TestTextFormatAddsCaller(t *testing.T) {
	var buf bytes.Buffer
	InitWriter(&buf, "debug", "text")
	defer Init("info", "text")

	Info("hello")
	if !strings.Contains(buf.String(), "logger_test.go:") {
		t.Errorf("expected caller file in %q", buf.String())
	}
}

func TestPrinter(t *testing.T) {
	var buf bytes.Buffer
	InitWriter(&buf, "info", "json")
	defer Init("info", "text")

	Printer(DebugLevel).Printf("cron %s", "tick")
	Printer(ErrorLevel).Printf("cron %s", "panic")

	out := buf.String()
	if strings.Contains(out, "tick") {
		t.Errorf("debug printer should be filtered at info: %q", out)
	}
	if !strings.Contains(out, "[ERROR] cron panic") {
		t.Errorf("missing error line: %q", out)
	}
}
