package logger

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/funnyzak/reqloop/internal/config"
)

func TestJSONLoggerWritesFields(t *testing.T) {
	var buf bytes.Buffer
	log := newLogger(&config.LogConfig{Level: "debug"}, "json", &buf)

	log.With("session", "abc").Info("run finished",
		"status", 200,
		"duration", 1500*time.Millisecond,
		"err", errors.New("boom"),
	)

	var entry map[string]interface{}
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("expected one JSON line, got %q: %v", buf.String(), err)
	}
	if entry["message"] != "run finished" {
		t.Fatalf("unexpected message: %v", entry["message"])
	}
	if entry["session"] != "abc" {
		t.Fatalf("expected session field from With, got %v", entry["session"])
	}
	if entry["status"].(float64) != 200 {
		t.Fatalf("unexpected status: %v", entry["status"])
	}
	if entry["err"] != "boom" {
		t.Fatalf("unexpected err field: %v", entry["err"])
	}
}

func TestLoggerRespectsLevel(t *testing.T) {
	var buf bytes.Buffer
	log := newLogger(&config.LogConfig{Level: "warn"}, "json", &buf)

	log.Info("hidden")
	log.Warn("shown")

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Fatalf("info line should be filtered: %s", out)
	}
	if !strings.Contains(out, "shown") {
		t.Fatalf("warn line missing: %s", out)
	}
}

func TestInvalidLevelFallsBackToInfo(t *testing.T) {
	var buf bytes.Buffer
	log := newLogger(&config.LogConfig{Level: "loud"}, "json", &buf)

	log.Debug("debug line")
	log.Info("info line")

	if strings.Contains(buf.String(), "debug line") {
		t.Fatalf("debug should be filtered at info level")
	}
	if !strings.Contains(buf.String(), "info line") {
		t.Fatalf("info line missing")
	}
}

func TestNopDiscards(t *testing.T) {
	log := Nop()
	log.Info("nothing", "k", "v")
	log.With("a", 1).Error("still nothing")
}
