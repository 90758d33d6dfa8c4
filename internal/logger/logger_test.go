package logger

import (
	"os"
	"path/filepath"
	"photobooth/internal/config"
	"strings"
	"testing"
)

func TestNewLogger_WritesLevelFiles(t *testing.T) {
	dir := t.TempDir()
	l, err := NewLogger(&config.Config{LogDirectory: dir})
	if err != nil {
		t.Fatalf("NewLogger failed: %v", err)
	}
	defer l.Close()

	l.Info("hello %s", "info")
	l.Warning("careful %d", 1)
	l.Error("broken %v", "thing")

	tests := []struct {
		level string
		want  string
	}{
		{LevelInfo, "hello info"},
		{LevelWarning, "careful 1"},
		{LevelError, "broken thing"},
	}

	for _, tt := range tests {
		data, err := os.ReadFile(filepath.Join(dir, FileName(tt.level)))
		if err != nil {
			t.Fatalf("Failed to read %s log: %v", tt.level, err)
		}
		if !strings.Contains(string(data), tt.want) {
			t.Errorf("Expected %s log to contain %q, got %q", tt.level, tt.want, data)
		}
	}
}

func TestCleanLogs_Truncates(t *testing.T) {
	dir := t.TempDir()
	l, err := NewLogger(&config.Config{LogDirectory: dir})
	if err != nil {
		t.Fatalf("NewLogger failed: %v", err)
	}
	defer l.Close()

	l.Error("something failed")
	if err := l.CleanLogs(FileName(LevelError)); err != nil {
		t.Fatalf("CleanLogs failed: %v", err)
	}

	info, err := os.Stat(filepath.Join(dir, FileName(LevelError)))
	if err != nil {
		t.Fatalf("Stat failed: %v", err)
	}
	if info.Size() != 0 {
		t.Errorf("Expected empty error log, got %d bytes", info.Size())
	}
}

func TestFileName(t *testing.T) {
	tests := []struct {
		level    string
		expected string
	}{
		{"info", "info.log"},
		{"warning", "warning.log"},
		{"error", "error.log"},
		{"debug", ""},
		{"../etc", ""},
	}

	for _, tt := range tests {
		if got := FileName(tt.level); got != tt.expected {
			t.Errorf("FileName(%q) = %q, expected %q", tt.level, got, tt.expected)
		}
	}
}
