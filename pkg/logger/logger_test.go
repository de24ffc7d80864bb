package logger

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/dreschagin/infra-optimizer/internal/application/port"
)

type recordingPublisher struct {
	entries []port.LogEntry
}

func (r *recordingPublisher) Publish(_ context.Context, entry port.LogEntry) error {
	r.entries = append(r.entries, entry)
	return nil
}

func TestLogger_LevelFiltering(t *testing.T) {
	tests := []struct {
		level    string
		wantInfo bool
		wantWarn bool
	}{
		{"debug", true, true},
		{"info", true, true},
		{"warn", false, true},
		{"error", false, false},
		{"unknown", true, true},
	}

	for _, tt := range tests {
		t.Run(tt.level, func(t *testing.T) {
			var buf bytes.Buffer
			l := NewWithWriter(tt.level, &buf)

			l.Info("info message")
			l.Warn("warn message")

			if got := strings.Contains(buf.String(), "info message"); got != tt.wantInfo {
				t.Errorf("info logged = %v, want %v", got, tt.wantInfo)
			}
			if got := strings.Contains(buf.String(), "warn message"); got != tt.wantWarn {
				t.Errorf("warn logged = %v, want %v", got, tt.wantWarn)
			}
		})
	}
}

func TestLogger_FormatsKeyValues(t *testing.T) {
	var buf bytes.Buffer
	l := NewWithWriter("info", &buf)

	l.Error("save failed", errors.New("disk full"), "path", "optimization_results.json")

	out := buf.String()
	for _, want := range []string{"[ERROR] save failed", "path=optimization_results.json", "error=disk full"} {
		if !strings.Contains(out, want) {
			t.Errorf("output %q does not contain %q", out, want)
		}
	}
}

func TestLogger_ForwardsToPublisher(t *testing.T) {
	var buf bytes.Buffer
	l := NewWithWriter("info", &buf)
	pub := &recordingPublisher{}
	l.SetLogPublisher(pub)

	l.Debug("hidden")
	l.Info("cycle finished", "status", "complete", "applied", 2)

	if len(pub.entries) != 1 {
		t.Fatalf("expected 1 forwarded entry, got %d", len(pub.entries))
	}
	entry := pub.entries[0]
	if entry.Level != port.LogLevelInfo || entry.Message != "cycle finished" {
		t.Fatalf("unexpected entry: %+v", entry)
	}
	if entry.Fields["status"] != "complete" || entry.Fields["applied"] != 2 {
		t.Fatalf("unexpected fields: %v", entry.Fields)
	}
}

func TestLogger_WithAddsFieldsAndSharesPublisher(t *testing.T) {
	var buf bytes.Buffer
	root := NewWithWriter("info", &buf)
	child := root.With("cycle_id", "abc")

	pub := &recordingPublisher{}
	root.SetLogPublisher(pub)

	child.Info("action applied", "action", "resize db")
	root.Info("unscoped")

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 2 {
		t.Fatalf("expected 2 lines, got %q", buf.String())
	}
	if !strings.Contains(lines[0], "| cycle_id=abc action=resize db") {
		t.Errorf("child line %q lacks scoped fields", lines[0])
	}
	if strings.Contains(lines[1], "cycle_id") {
		t.Errorf("root line %q must not inherit child fields", lines[1])
	}

	if len(pub.entries) != 2 || pub.entries[0].Fields["cycle_id"] != "abc" {
		t.Fatalf("child entry not forwarded with fields: %+v", pub.entries)
	}
}

func TestLogger_OddArgs(t *testing.T) {
	var buf bytes.Buffer
	NewWithWriter("info", &buf).Info("odd", "key", "value", "dangling")

	if !strings.Contains(buf.String(), "key=value !EXTRA=dangling") {
		t.Fatalf("unexpected output %q", buf.String())
	}
}
