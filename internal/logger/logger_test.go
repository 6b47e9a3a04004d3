package logger

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"testing"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		level, env string
		want       slog.Level
	}{
		{"", "prod", slog.LevelInfo},
		{"", "dev", slog.LevelDebug},
		{"WARN", "dev", slog.LevelWarn},
		{"error", "prod", slog.LevelError},
		{"bogus", "prod", slog.LevelInfo},
	}
	for _, tt := range tests {
		if got := parseLevel(tt.level, tt.env); got != tt.want {
			t.Errorf("parseLevel(%q, %q) = %v, want %v", tt.level, tt.env, got, tt.want)
		}
	}
}

func TestProdLoggerWritesJSON(t *testing.T) {
	var buf bytes.Buffer
	newLogger(&buf, "prod", "").Info("hello", "household_id", "h1")

	var line map[string]any
	if err := json.Unmarshal(buf.Bytes(), &line); err != nil {
		t.Fatalf("not JSON: %q", buf.String())
	}
	if line["msg"] != "hello" || line["household_id"] != "h1" {
		t.Fatalf("line = %v", line)
	}
}
