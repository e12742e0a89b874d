package observability

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
)

func TestNopTracer(t *testing.T) {
	tracer := NopTracer()
	ctx := context.Background()
	ctx2, span := tracer.StartSpan(ctx, "test")
	if ctx2 != ctx {
		t.Fatalf("nop tracer should return same context")
	}
	span.SetTag("key", "value")
	span.SetError(nil)
	span.Finish()
}

func TestSlogLoggerWritesFields(t *testing.T) {
	var buf bytes.Buffer
	log := NewSlogLogger(&buf, "info").With(String("request", "r1"))
	log.Debug("hidden")
	log.Info("generated", Int("pages", 2), Error("cause", errors.New("boom")))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 1 {
		t.Fatalf("expected debug to be filtered, got %d lines", len(lines))
	}
	var rec map[string]interface{}
	if err := json.Unmarshal([]byte(lines[0]), &rec); err != nil {
		t.Fatalf("invalid json: %v", err)
	}
	if rec["msg"] != "generated" || rec["request"] != "r1" || rec["cause"] != "boom" {
		t.Fatalf("unexpected record: %v", rec)
	}
	if rec["pages"].(float64) != 2 {
		t.Fatalf("pages field missing: %v", rec)
	}
}

func TestLogTracerReportsFailures(t *testing.T) {
	var buf bytes.Buffer
	tracer := LogTracer(NewSlogLogger(&buf, "debug"))
	_, span := tracer.StartSpan(context.Background(), "load")
	span.SetTag("bytes", 10)
	span.SetError(errors.New("bad xref"))
	span.Finish()
	out := buf.String()
	if !strings.Contains(out, `"span":"load"`) || !strings.Contains(out, "bad xref") {
		t.Fatalf("unexpected span output: %s", out)
	}
}

func TestParseLevel(t *testing.T) {
	cases := map[string]string{"debug": "DEBUG", "WARN": "WARN", "error": "ERROR", "": "INFO", "bogus": "INFO"}
	for in, want := range cases {
		if got := ParseLevel(in).String(); got != want {
			t.Errorf("ParseLevel(%q) = %s, want %s", in, got, want)
		}
	}
}
