package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestRunVersion(t *testing.T) {
	var stdout, stderr bytes.Buffer
	if err := run([]string{"--version"}, &stdout, &stderr); err != nil {
		t.Fatal(err)
	}
	if got := stdout.String(); got != "clipime "+Version+"\n" {
		t.Errorf("version output %q", got)
	}
}

func TestRunRejectsUnknownArgument(t *testing.T) {
	t.Setenv("CLIPIME_CONFIG_DIR", t.TempDir())
	var stdout, stderr bytes.Buffer
	err := run([]string{"bogus"}, &stdout, &stderr)
	if err == nil || !strings.Contains(err.Error(), "bogus") {
		t.Errorf("err = %v", err)
	}
}

func TestRunRejectsUnknownFlag(t *testing.T) {
	var stdout, stderr bytes.Buffer
	if err := run([]string{"--no-such-flag"}, &stdout, &stderr); err == nil {
		t.Error("expected error for unknown flag")
	}
}

func TestNewLoggerFanout(t *testing.T) {
	path := filepath.Join(t.TempDir(), "clipime.log")
	var stderr bytes.Buffer

	logger, closeLog, err := newLogger(&stderr, false, path)
	if err != nil {
		t.Fatal(err)
	}
	logger.Debug("debug only in file", "n", 1)
	logger.Info("everywhere", "n", 2)
	if err := closeLog(); err != nil {
		t.Fatal(err)
	}

	if strings.Contains(stderr.String(), "debug only in file") {
		t.Error("debug record reached stderr without --verbose")
	}
	if !strings.Contains(stderr.String(), "everywhere") {
		t.Error("info record missing from stderr")
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	if len(lines) != 2 {
		t.Fatalf("log file has %d records, want 2", len(lines))
	}
	var rec map[string]any
	if err := json.Unmarshal([]byte(lines[0]), &rec); err != nil {
		t.Fatalf("log file record is not JSON: %v", err)
	}
	if rec["msg"] != "debug only in file" {
		t.Errorf("first record %v", rec)
	}
}

func TestNewLoggerBadFile(t *testing.T) {
	var stderr bytes.Buffer
	if _, _, err := newLogger(&stderr, false, "/nonexistent/dir/clipime.log"); err == nil {
		t.Error("expected error for unwritable log file")
	}
}
