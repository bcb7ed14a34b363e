package logger

import (
	"bytes"
	"os"
	"strings"
	"testing"
)

func reset() {
	SetVerbose(false)
	SetOutput(os.Stderr)
}

func TestSetVerbose(t *testing.T) {
	defer reset()

	SetVerbose(false)
	if IsVerbose() {
		t.Error("expected verbose to be false initially")
	}

	SetVerbose(true)
	if !IsVerbose() {
		t.Error("expected verbose to be true after SetVerbose(true)")
	}

	SetVerbose(false)
	if IsVerbose() {
		t.Error("expected verbose to be false after SetVerbose(false)")
	}
}

func TestDebug_WhenVerbose(t *testing.T) {
	defer reset()

	var buf bytes.Buffer
	SetOutput(&buf)
	SetVerbose(true)

	Debug("test message %s", "arg")

	if got := buf.String(); got != "[DEBUG] test message arg\n" {
		t.Errorf("unexpected output: %q", got)
	}
}

func TestDebug_WhenNotVerbose(t *testing.T) {
	defer reset()

	var buf bytes.Buffer
	SetOutput(&buf)
	SetVerbose(false)

	Debug("test message")
	Info("info message")
	Warn("warn message")
	Section("section")

	if buf.Len() != 0 {
		t.Errorf("expected no output when verbose is disabled, got %q", buf.String())
	}
}

func TestLevels_WhenVerbose(t *testing.T) {
	defer reset()

	var buf bytes.Buffer
	SetOutput(&buf)
	SetVerbose(true)

	Info("loaded %d chunks", 3)
	Warn("slow provider")
	Section("Retrieval")

	want := "[INFO] loaded 3 chunks\n[WARN] slow provider\n[INFO] === Retrieval ===\n"
	if got := buf.String(); got != want {
		t.Errorf("unexpected output:\n got %q\nwant %q", got, want)
	}
}

func TestError_AlwaysPrinted(t *testing.T) {
	defer reset()

	var buf bytes.Buffer
	SetOutput(&buf)
	SetVerbose(false)

	Error("store failed: %v", "timeout")

	if got := buf.String(); got != "[ERROR] store failed: timeout\n" {
		t.Errorf("unexpected output: %q", got)
	}
}

func TestDebugw_IncludesFields(t *testing.T) {
	defer reset()

	var buf bytes.Buffer
	SetOutput(&buf)
	SetVerbose(true)

	Debugw("section retrieved", "section", "live", "items", 2)

	got := buf.String()
	if !strings.HasPrefix(got, "[DEBUG] section retrieved") {
		t.Errorf("unexpected prefix: %q", got)
	}
	if !strings.Contains(got, `"section": "live"`) || !strings.Contains(got, `"items": 2`) {
		t.Errorf("expected structured fields in output: %q", got)
	}
}
