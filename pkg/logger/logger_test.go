package logger

import (
	"bytes"
	"strings"
	"testing"
)

func newTestLogger(level LogLevel) (*Logger, *bytes.Buffer) {
	var buf bytes.Buffer
	return New(Config{Level: level, Output: &buf}), &buf
}

func TestLevelFiltering(t *testing.T) {
	log, buf := newTestLogger(WARN)

	log.Infof("hidden %d", 1)
	log.Warnf("shown %d", 2)
	log.Errorf("shown %d", 3)

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Errorf("INFO message should be filtered at WARN level, got %q", out)
	}
	if !strings.Contains(out, "[WARN] shown 2") {
		t.Errorf("missing WARN line in %q", out)
	}
	if !strings.Contains(out, "[ERROR] shown 3") {
		t.Errorf("missing ERROR line in %q", out)
	}
}

func TestWithPrefixSharesSink(t *testing.T) {
	log, buf := newTestLogger(INFO)
	child := log.With("req=abc")

	child.Infof("processing")
	log.SetLevel(ERROR)
	child.Infof("dropped")

	out := buf.String()
	if !strings.Contains(out, "req=abc processing") {
		t.Errorf("child prefix missing from %q", out)
	}
	if strings.Contains(out, "dropped") {
		t.Errorf("parent level change should apply to child, got %q", out)
	}

	nested := child.With("step=pitch")
	log.SetLevel(DEBUG)
	nested.Debugf("x")
	if !strings.Contains(buf.String(), "req=abc step=pitch x") {
		t.Errorf("nested prefix missing from %q", buf.String())
	}
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want LogLevel
	}{
		{"debug", DEBUG},
		{"INFO", INFO},
		{" warning ", WARN},
		{"error", ERROR},
		{"FATAL", FATAL},
		{"verbose", INFO},
	}

	for _, tt := range tests {
		if got := ParseLevel(tt.in); got != tt.want {
			t.Errorf("ParseLevel(%q) = %v, expected %v", tt.in, got, tt.want)
		}
	}
}
