package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"

	"github.com/rs/zerolog"
)

func newBufferLogger(buf *bytes.Buffer) *SchedulerLogger {
	l := zerolog.New(buf).With().Str("component", "scheduler").Logger()
	return &SchedulerLogger{base: &l}
}

func TestSchedulerLogger_WithContext(t *testing.T) {
	var buf bytes.Buffer
	base := newBufferLogger(&buf)

	ctx := WithSolveID(context.Background(), "run-1")
	base.WithContext(ctx).Named("hybrid").StartSolve("p1", 3, 2, 2, 4)

	var line map[string]interface{}
	if err := json.Unmarshal(buf.Bytes(), &line); err != nil {
		t.Fatalf("日志不是 JSON: %v", err)
	}
	if line["solve_id"] != "run-1" {
		t.Errorf("solve_id = %v, want run-1", line["solve_id"])
	}
	if line["stage"] != "hybrid" {
		t.Errorf("stage = %v, want hybrid", line["stage"])
	}
}

func TestSchedulerLogger_WithContextWithoutID(t *testing.T) {
	var buf bytes.Buffer
	base := newBufferLogger(&buf)

	if got := base.WithContext(context.Background()); got != base {
		t.Error("上下文没有求解任务ID时应返回原日志器")
	}
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want zerolog.Level
	}{
		{"debug", zerolog.DebugLevel},
		{"warn", zerolog.WarnLevel},
		{"error", zerolog.ErrorLevel},
		{"unknown", zerolog.InfoLevel},
	}
	for _, tt := range tests {
		if got := parseLevel(tt.in); got != tt.want {
			t.Errorf("parseLevel(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}
