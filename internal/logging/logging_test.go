package logging

import (
	"bytes"
	"strings"
	"testing"
)

func TestNewLevels(t *testing.T) {
	var buf bytes.Buffer
	log := New(Options{Output: &buf})
	log.Debug("hidden")
	log.Warn("shown", "target", "Dog")
	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Errorf("debug logged without verbose: %q", out)
	}
	if !strings.Contains(out, "shown") || !strings.Contains(out, "target=Dog") {
		t.Errorf("warning missing: %q", out)
	}

	buf.Reset()
	New(Options{Output: &buf, Verbose: true}).Debug("visible")
	if !strings.Contains(buf.String(), "visible") {
		t.Errorf("debug not logged with verbose: %q", buf.String())
	}
}

func TestNewJSON(t *testing.T) {
	var buf bytes.Buffer
	New(Options{Output: &buf, Format: "JSON"}).Warn("w")
	if !strings.HasPrefix(buf.String(), "{") {
		t.Errorf("expected JSON output, got %q", buf.String())
	}
}

func TestNop(t *testing.T) {
	Nop().Error("discarded")
}
