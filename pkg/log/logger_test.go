// Structured logging tests
//
// Copyright (C) 2026  Go Migration Team
//
// This file may be distributed under the terms of the GNU GPLv3 license.

package log

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"
)

func newTestLogger(buf *bytes.Buffer) *Logger {
	logger := New("test")
	logger.SetWriter(buf)
	logger.SetLevel(DEBUG)
	logger.SetColorize(false)
	return logger
}

func TestLoggerBasic(t *testing.T) {
	var buf bytes.Buffer
	logger := newTestLogger(&buf)

	logger.Info("hello %s", "world")

	output := buf.String()
	if !strings.Contains(output, "[INFO ]") {
		t.Errorf("expected INFO level, got: %s", output)
	}
	if !strings.Contains(output, "test:") {
		t.Errorf("expected prefix 'test:', got: %s", output)
	}
	if !strings.Contains(output, "hello world") {
		t.Errorf("expected message 'hello world', got: %s", output)
	}
}

func TestLoggerLevels(t *testing.T) {
	var buf bytes.Buffer
	logger := newTestLogger(&buf)
	logger.SetLevel(INFO)

	logger.Debug("debug message")
	if buf.Len() != 0 {
		t.Errorf("expected DEBUG to be filtered, got: %s", buf.String())
	}
	for _, fn := range []func(string, ...interface{}){logger.Info, logger.Warn, logger.Error} {
		buf.Reset()
		fn("passes")
		if !strings.Contains(buf.String(), "passes") {
			t.Errorf("expected message to pass level filter, got: %q", buf.String())
		}
	}
}

func TestChildSharesLevel(t *testing.T) {
	var buf bytes.Buffer
	root := newTestLogger(&buf)
	child := root.WithPrefix("anim")

	root.SetLevel(ERROR)
	child.Warn("hidden")
	if buf.Len() != 0 {
		t.Errorf("child should follow root level, got: %s", buf.String())
	}

	root.SetLevel(DEBUG)
	child.Debug("visible")
	if !strings.Contains(buf.String(), "anim: visible") {
		t.Errorf("expected child output after level change, got: %s", buf.String())
	}
}

func TestLoggerJSON(t *testing.T) {
	var buf bytes.Buffer
	logger := newTestLogger(&buf)
	logger.SetFormat(FormatJSON)

	logger.WithFields(Fields{"part": "bay-door", "axis": 2}).Info("json test")

	var entry JSONLogEntry
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("failed to parse JSON: %v, output: %s", err, buf.String())
	}
	if entry.Level != "INFO" || entry.Logger != "test" || entry.Message != "json test" {
		t.Errorf("unexpected entry: %+v", entry)
	}
	if entry.Fields["part"] != "bay-door" {
		t.Errorf("expected part=bay-door, got: %v", entry.Fields["part"])
	}
	if entry.SimTime != nil {
		t.Errorf("sim_time should be absent without a sim clock")
	}
}

func TestLoggerWithFieldsText(t *testing.T) {
	var buf bytes.Buffer
	logger := newTestLogger(&buf)

	logger.With(Fields{"object": "alpha"}).WithField("kind", "docked").Info("started")

	output := buf.String()
	if !strings.Contains(output, "kind=docked") || !strings.Contains(output, "object=alpha") {
		t.Errorf("expected both fields, got: %s", output)
	}
}

func TestLoggerWithError(t *testing.T) {
	var buf bytes.Buffer
	logger := newTestLogger(&buf)
	logger.SetFormat(FormatJSON)

	logger.WithError(errors.New("something went wrong")).Error("operation failed")

	var entry JSONLogEntry
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("failed to parse JSON: %v", err)
	}
	if entry.Fields["error"] != "something went wrong" {
		t.Errorf("expected error field, got: %v", entry.Fields)
	}
}

func TestLoggerSimClock(t *testing.T) {
	var buf bytes.Buffer
	logger := newTestLogger(&buf)
	logger.SetSimClock(func() time.Duration { return 1500 * time.Millisecond })

	logger.Info("tick")
	if !strings.Contains(buf.String(), "sim=1.500") {
		t.Errorf("expected sim stamp, got: %s", buf.String())
	}
}

func TestLoggerCaller(t *testing.T) {
	var buf bytes.Buffer
	logger := newTestLogger(&buf)
	logger.SetCaller(true)

	logger.Info("caller test")
	logger.WithField("k", 1).Info("entry caller test")

	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		if !strings.Contains(line, "logger_test.go:") {
			t.Errorf("expected caller info 'logger_test.go:', got: %s", line)
		}
	}
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		input    string
		expected LogLevel
	}{
		{"DEBUG", DEBUG},
		{"debug", DEBUG},
		{"INFO", INFO},
		{"warn", WARN},
		{"WARNING", WARN},
		{" error ", ERROR},
		{"bogus", INFO},
		{"", INFO},
	}
	for _, tt := range tests {
		if got := ParseLevel(tt.input); got != tt.expected {
			t.Errorf("ParseLevel(%q) = %v, want %v", tt.input, got, tt.expected)
		}
	}
}

func TestConfigureFromEnv(t *testing.T) {
	t.Setenv("ROTANIM_LOG_LEVEL", "warn")
	t.Setenv("ROTANIM_LOG_FORMAT", "json")
	t.Setenv("NO_COLOR", "1")

	var buf bytes.Buffer
	logger := New("env")
	logger.SetWriter(&buf)
	ConfigureFromEnv(logger)

	if logger.GetLevel() != WARN {
		t.Errorf("expected WARN, got %v", logger.GetLevel())
	}
	logger.Warn("json please")
	var entry JSONLogEntry
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("expected JSON output: %v", err)
	}
}
