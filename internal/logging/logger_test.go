package logging

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		input    string
		expected Level
	}{
		{"debug", LevelDebug},
		{"info", LevelInfo},
		{"warn", LevelWarn},
		{"warning", LevelWarn},
		{"error", LevelError},
		{"bogus", LevelInfo},
	}

	for _, tc := range tests {
		t.Run(tc.input, func(t *testing.T) {
			if got := ParseLevel(tc.input); got != tc.expected {
				t.Errorf("ParseLevel(%q) = %v, want %v", tc.input, got, tc.expected)
			}
		})
	}
}

func TestLevelString(t *testing.T) {
	if got := Level(99).String(); got != "unknown" {
		t.Errorf("Level(99).String() = %q, want unknown", got)
	}
	if got := LevelWarn.String(); got != "warn" {
		t.Errorf("LevelWarn.String() = %q, want warn", got)
	}
}

func TestParseFormat(t *testing.T) {
	if ParseFormat("text") != FormatText {
		t.Error("expected text format")
	}
	if ParseFormat("json") != FormatJSON {
		t.Error("expected json format")
	}
	if ParseFormat("yaml") != FormatJSON {
		t.Error("unknown format should default to json")
	}
}

func TestLoggerJSONOutput(t *testing.T) {
	var buf bytes.Buffer
	l := New(Config{Level: LevelInfo, Format: FormatJSON, Output: &buf})

	l.Infof("tick finished", map[string]any{"deleted": 3})

	var entry Entry
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("failed to parse JSON log output: %v", err)
	}
	if entry.Message != "tick finished" {
		t.Errorf("message = %q, want %q", entry.Message, "tick finished")
	}
	if entry.Level != "info" {
		t.Errorf("level = %q, want info", entry.Level)
	}
	if entry.Fields["deleted"] != float64(3) {
		t.Errorf("fields[deleted] = %v, want 3", entry.Fields["deleted"])
	}
	if entry.Timestamp.IsZero() {
		t.Error("timestamp should not be zero")
	}
}

func TestLoggerLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	l := New(Config{Level: LevelWarn, Output: &buf})

	l.Debug("debug msg")
	l.Info("info msg")
	if buf.Len() > 0 {
		t.Error("debug/info should be filtered at warn level")
	}

	l.Warn("warn msg")
	if buf.Len() == 0 {
		t.Error("warn should be logged at warn level")
	}

	l.SetLevel(LevelError)
	if l.GetLevel() != LevelError {
		t.Errorf("GetLevel() = %v, want error", l.GetLevel())
	}
}

func TestLoggerDerivedCarriesComponentAndTick(t *testing.T) {
	var buf bytes.Buffer
	base := New(Config{Level: LevelDebug, Output: &buf})

	l := base.WithComponent("story-reaper").WithTickID("tick-1").With(map[string]any{"reaper": "stories"})
	l.Debug("candidate reaped")

	var entry Entry
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("failed to parse JSON: %v", err)
	}
	if entry.Component != "story-reaper" {
		t.Errorf("component = %q, want story-reaper", entry.Component)
	}
	if entry.TickID != "tick-1" {
		t.Errorf("tickId = %q, want tick-1", entry.TickID)
	}
	if entry.Fields["reaper"] != "stories" {
		t.Errorf("fields[reaper] = %v, want stories", entry.Fields["reaper"])
	}

	// The base logger is untouched.
	if base.TickID() != "" {
		t.Errorf("base tick id = %q, want empty", base.TickID())
	}
}

func TestLoggerTextOutput(t *testing.T) {
	var buf bytes.Buffer
	l := New(Config{Level: LevelInfo, Format: FormatText, Output: &buf}).
		WithComponent("scheduler").
		WithTickID("abc")

	l.Warnf("tick skipped", map[string]any{"job": "accounts"})

	out := buf.String()
	for _, want := range []string{"[warn]", "scheduler: tick skipped", "tickId=abc", "job=accounts"} {
		if !strings.Contains(out, want) {
			t.Errorf("text output %q missing %q", out, want)
		}
	}
}

func TestLoggerCallerInfo(t *testing.T) {
	var buf bytes.Buffer
	l := New(Config{Level: LevelDebug, Output: &buf, AddCaller: true})

	l.Debug("with caller info")

	var entry Entry
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("failed to parse JSON: %v", err)
	}
	if !strings.HasSuffix(entry.File, "logger_test.go") {
		t.Errorf("file = %q, want logger_test.go", entry.File)
	}
	if entry.Line == 0 {
		t.Error("expected non-zero line")
	}
}

func TestDiscardDropsEverything(t *testing.T) {
	l := Discard()
	l.Error("nothing to see")
	if l.GetLevel() <= LevelError {
		t.Errorf("discard level = %v, want above error", l.GetLevel())
	}
}
