package logger

import (
	"bytes"
	"os"
	"strings"
	"testing"
)

func TestDebugOnlyWhenVerbose(t *testing.T) {
	var buf bytes.Buffer
	SetOutput(&buf)
	defer SetOutput(os.Stderr)
	defer SetVerbose(false)

	SetVerbose(false)
	Debug("hidden %d", 1)
	if buf.Len() != 0 {
		t.Errorf("expected no output when verbose disabled, got %q", buf.String())
	}

	SetVerbose(true)
	Debug("shown %d", 2)
	if !strings.Contains(buf.String(), "[DEBUG] shown 2") {
		t.Errorf("expected debug output, got %q", buf.String())
	}
}

func TestLevelsAlwaysPrint(t *testing.T) {
	var buf bytes.Buffer
	SetOutput(&buf)
	defer SetOutput(os.Stderr)

	SetVerbose(false)
	Info("info %s", "msg")
	Warn("warn %s", "msg")
	Error("error %s", "msg")

	out := buf.String()
	for _, want := range []string{"[INFO] info msg", "[WARN] warn msg", "[ERROR] error msg"} {
		if !strings.Contains(out, want) {
			t.Errorf("expected %q in output, got %q", want, out)
		}
	}
}

func TestIsVerbose(t *testing.T) {
	SetVerbose(true)
	if !IsVerbose() {
		t.Error("expected IsVerbose true")
	}
	SetVerbose(false)
	if IsVerbose() {
		t.Error("expected IsVerbose false")
	}
}
