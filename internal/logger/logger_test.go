package logger

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"unicode/utf8"
)

func TestNew(t *testing.T) {
	t.Run("JSONFormat", func(t *testing.T) {
		log, err := New(Config{Level: "info", Format: "json"})
		if err != nil {
			t.Fatalf("Failed to create logger: %v", err)
		}
		log.WithComponent("test").WithRunID("run-1").Info("hello")
	})

	t.Run("ConsoleWithFile", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "logs", "sentinel.log")
		log, err := New(Config{
			Level:  "debug",
			Format: "console",
			File:   &FileConfig{Enabled: true, Path: path},
		})
		if err != nil {
			t.Fatalf("Failed to create logger: %v", err)
		}
		log.Debug("to file")
		if err := log.Sync(); err != nil {
			t.Logf("sync: %v", err)
		}
		data, err := os.ReadFile(path)
		if err != nil {
			t.Fatalf("Log file not created: %v", err)
		}
		if !strings.Contains(string(data), `"msg":"to file"`) {
			t.Errorf("File core did not receive the entry: %s", data)
		}
	})

	t.Run("InvalidLevel", func(t *testing.T) {
		if _, err := New(Config{Level: "loud", Format: "json"}); err == nil {
			t.Error("Expected error for invalid level")
		}
	})
}

func TestRedactValue(t *testing.T) {
	if got := RedactValue("hunter2", true); got != "[REDACTED]" {
		t.Errorf("Secret value not redacted: %q", got)
	}
	if got := RedactValue("localhost", false); got != "localhost" {
		t.Errorf("Short value changed: %q", got)
	}
	long := "https://api.example.com/v1/some/very/long/path"
	if got := RedactValue(long, false); len(got) != 32 {
		t.Errorf("Long value not shortened to 32 chars: %q", got)
	}
}

func TestRedactValue_MultiByte(t *testing.T) {
	value := strings.Repeat("é", 40)
	got := RedactValue(value, false)
	if !utf8.ValidString(got) {
		t.Fatalf("Truncation split a rune: %q", got)
	}
	if n := utf8.RuneCountInString(got); n != 32 {
		t.Errorf("Expected 32 runes, got %d", n)
	}
}

func TestLiteral(t *testing.T) {
	if f := Literal("value", "s3cr3t-token", true); f.String != "[REDACTED]" {
		t.Errorf("Secret literal leaked: %q", f.String)
	}
	if f := Literal("value", "eu-west-1", false); f.Key != "value" || f.String != "eu-west-1" {
		t.Errorf("Unexpected field: %+v", f)
	}
}
