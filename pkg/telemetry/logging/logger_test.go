package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"testing"

	"ntm-hq/ntm/pkg/config"
)

func TestNew(t *testing.T) {
	tests := []struct {
		name    string
		config  Config
		wantErr bool
	}{
		{name: "valid JSON config", config: Config{Level: "info", Format: "json"}},
		{name: "valid text config", config: Config{Level: "debug", Format: "text"}},
		{name: "defaults", config: Config{}},
		{name: "invalid log level", config: Config{Level: "invalid"}, wantErr: true},
		{name: "invalid format", config: Config{Format: "console"}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			logger, err := New(tt.config)
			if (err != nil) != tt.wantErr {
				t.Fatalf("New() error = %v, wantErr %v", err, tt.wantErr)
			}
			if !tt.wantErr && logger == nil {
				t.Fatal("New() returned nil logger")
			}
		})
	}
}

func TestLogger_LevelFiltering(t *testing.T) {
	tests := []struct {
		level   string
		logFunc func(*slog.Logger)
		want    bool
	}{
		{"info", func(l *slog.Logger) { l.Debug("message") }, false},
		{"info", func(l *slog.Logger) { l.Info("message") }, true},
		{"warn", func(l *slog.Logger) { l.Info("message") }, false},
		{"warn", func(l *slog.Logger) { l.Error("message") }, true},
		{"debug", func(l *slog.Logger) { l.Debug("message") }, true},
		{"error", func(l *slog.Logger) { l.Warn("message") }, false},
	}

	for i, tt := range tests {
		t.Run(fmt.Sprintf("%d_%s", i, tt.level), func(t *testing.T) {
			var buf bytes.Buffer
			logger, err := New(Config{Level: tt.level, Writer: &buf})
			if err != nil {
				t.Fatalf("New() error = %v", err)
			}
			tt.logFunc(logger)
			if got := strings.Contains(buf.String(), "message"); got != tt.want {
				t.Errorf("logged = %v, want %v (output %q)", got, tt.want, buf.String())
			}
		})
	}
}

func TestLogger_Formats(t *testing.T) {
	var jsonBuf, textBuf bytes.Buffer

	jsonLogger, _ := New(Config{Format: "json", Writer: &jsonBuf})
	jsonLogger.Info("launched", "pid", 42)

	var entry map[string]any
	if err := json.Unmarshal(jsonBuf.Bytes(), &entry); err != nil {
		t.Fatalf("json output not decodable: %v (%q)", err, jsonBuf.String())
	}
	if entry["msg"] != "launched" || entry["pid"] != float64(42) {
		t.Errorf("entry = %v", entry)
	}

	textLogger, _ := New(Config{Format: "text", Writer: &textBuf})
	textLogger.Info("launched", "pid", 42)
	if !strings.Contains(textBuf.String(), "msg=launched pid=42") {
		t.Errorf("text output = %q", textBuf.String())
	}
}

func TestLogger_AddSource(t *testing.T) {
	var buf bytes.Buffer
	logger, _ := New(Config{AddSource: true, Writer: &buf})
	logger.Info("message")
	if !strings.Contains(buf.String(), "logger_test.go") {
		t.Errorf("source missing from %q", buf.String())
	}
}

func TestLogger_Redaction(t *testing.T) {
	var buf bytes.Buffer
	logger, _ := New(Config{Format: "text", Secrets: []string{"s3cret"}, Writer: &buf})

	logger.Info("fetch failed",
		"url", "http://10.0.0.1:8000/client/a/config?token=s3cret",
		"error", errors.New(`Get "http://h/x?token=other&y=1": refused`),
		"note", "token is s3cret",
	)

	out := buf.String()
	if strings.Contains(out, "s3cret") || strings.Contains(out, "other") {
		t.Errorf("secret leaked: %q", out)
	}
	for _, want := range []string{"token=***", "y=1", "token is ***"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q: %q", want, out)
		}
	}
}

func TestLogger_NoRedactionWithoutSecrets(t *testing.T) {
	var buf bytes.Buffer
	logger, _ := New(Config{Format: "text", Writer: &buf})
	logger.Info("fetch", "url", "http://h/x?token=visible")
	if !strings.Contains(buf.String(), "token=visible") {
		t.Errorf("output = %q", buf.String())
	}
}

func TestFromConfig(t *testing.T) {
	off := false
	tests := []struct {
		name        string
		cfg         config.LoggingConfig
		secret      string
		wantSecrets int
	}{
		{"default redacts", config.LoggingConfig{Level: "debug"}, "tok", 1},
		{"disabled", config.LoggingConfig{RedactSecrets: &off}, "tok", 0},
		{"no secret", config.LoggingConfig{}, "", 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := FromConfig(tt.cfg, tt.secret)
			if len(got.Secrets) != tt.wantSecrets {
				t.Errorf("Secrets = %v, want %d entries", got.Secrets, tt.wantSecrets)
			}
			if got.Level != tt.cfg.Level {
				t.Errorf("Level = %q, want %q", got.Level, tt.cfg.Level)
			}
		})
	}
}

func TestComponent(t *testing.T) {
	var buf bytes.Buffer
	base, _ := New(Config{Format: "text", Writer: &buf})
	Component(base, "supervisor").Info("state")
	if !strings.Contains(buf.String(), "component=supervisor") {
		t.Errorf("output = %q", buf.String())
	}
	if Component(nil, "x") == nil {
		t.Error("Component(nil) returned nil")
	}
}

func TestFromContext(t *testing.T) {
	var buf bytes.Buffer
	base, _ := New(Config{Format: "text", Writer: &buf})

	FromContext(context.Background(), base).Info("plain")
	if strings.Contains(buf.String(), "request_id") {
		t.Errorf("unexpected request_id: %q", buf.String())
	}

	buf.Reset()
	ctx := WithRequestID(context.Background(), "req-1")
	if got := GetRequestID(ctx); got != "req-1" {
		t.Errorf("GetRequestID() = %q", got)
	}
	FromContext(ctx, base).Info("tagged")
	if !strings.Contains(buf.String(), "request_id=req-1") {
		t.Errorf("output = %q", buf.String())
	}
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		input   string
		want    slog.Level
		wantErr bool
	}{
		{"debug", slog.LevelDebug, false},
		{"INFO", slog.LevelInfo, false},
		{"", slog.LevelInfo, false},
		{"warning", slog.LevelWarn, false},
		{"error", slog.LevelError, false},
		{"trace", slog.LevelInfo, true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := parseLevel(tt.input)
			if (err != nil) != tt.wantErr {
				t.Fatalf("parseLevel(%q) error = %v", tt.input, err)
			}
			if got != tt.want {
				t.Errorf("parseLevel(%q) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}
