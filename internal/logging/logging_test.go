package logging

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"go.uber.org/zap"
)

func TestFileAndConsoleSinks(t *testing.T) {
	var console bytes.Buffer
	file := filepath.Join(t.TempDir(), "logs", "sync.log")

	logger, flush, err := New(Options{File: file, Level: "info", MaxSizeMB: 1, Console: &console})
	if err != nil {
		t.Fatalf("New() failed: %v", err)
	}
	logger.Debug("hidden")
	logger.Info("pulled", zap.String("profile", "work"))
	logger.Warn("remote unreachable")
	flush()

	data, err := os.ReadFile(file)
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	if len(lines) != 2 {
		t.Fatalf("expected 2 file entries, got %d:\n%s", len(lines), data)
	}
	var entry map[string]any
	if err := json.Unmarshal([]byte(lines[0]), &entry); err != nil {
		t.Fatalf("file entry is not JSON: %v", err)
	}
	if entry["msg"] != "pulled" || entry["profile"] != "work" {
		t.Errorf("unexpected entry: %v", entry)
	}

	out := console.String()
	if strings.Contains(out, "pulled") {
		t.Error("info must not reach the console")
	}
	if !strings.Contains(out, "remote unreachable") {
		t.Errorf("warning missing from console: %q", out)
	}
}

func TestVerboseConsole(t *testing.T) {
	var console bytes.Buffer
	logger, flush, err := New(Options{Console: &console, Verbose: true})
	if err != nil {
		t.Fatalf("New() failed: %v", err)
	}
	logger.Debug("git fetch")
	flush()

	if !strings.Contains(console.String(), "git fetch") {
		t.Errorf("verbose console should show debug, got %q", console.String())
	}
}

func TestInvalidLevel(t *testing.T) {
	if _, _, err := New(Options{Level: "loud"}); err == nil {
		t.Fatal("expected error for unknown level")
	}
}
