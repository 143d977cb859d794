package logger

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestNewWithOptions_WritesRotatingFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "checkit.log")

	log := NewWithOptions(Options{
		Level:      "info",
		Pretty:     false,
		File:       path,
		MaxSizeMB:  1,
		MaxBackups: 1,
		MaxAgeDays: 1,
	})
	log.With(String("component", "test")).Info("sweep finished", Int("probed", 3))
	log.Debug("dropped below level")
	_ = log.Sync()

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("failed to read log file: %v", err)
	}
	out := string(data)
	if !strings.Contains(out, `"msg":"sweep finished"`) {
		t.Errorf("log file missing message: %s", out)
	}
	if !strings.Contains(out, `"component":"test"`) || !strings.Contains(out, `"probed":3`) {
		t.Errorf("log file missing fields: %s", out)
	}
	if strings.Contains(out, "dropped below level") {
		t.Errorf("debug line should be filtered at info level: %s", out)
	}
}

func TestParseLevel(t *testing.T) {
	for _, lvl := range []string{"debug", "info", "warn", "error"} {
		if parseLevel(lvl) == nil {
			t.Errorf("parseLevel(%q) returned nil", lvl)
		}
	}
	if parseLevel("verbose") != nil {
		t.Error("parseLevel should return nil for unknown levels")
	}
}
