package logging

import (
	"bytes"
	"encoding/json"
	"testing"
)

func TestNewWithWriterJSON(t *testing.T) {
	var buf bytes.Buffer
	log := NewWithWriter("tvonline", "debug", &buf)
	log.WithField("channels", 3).Debug("parsed")

	var line map[string]any
	if err := json.Unmarshal(buf.Bytes(), &line); err != nil {
		t.Fatalf("output is not JSON: %v (%s)", err, buf.String())
	}
	if line["service"] != "tvonline" || line["msg"] != "parsed" || line["level"] != "debug" {
		t.Errorf("unexpected log line: %v", line)
	}
	if line["channels"] != float64(3) {
		t.Errorf("channels field = %v", line["channels"])
	}
}

func TestNewWithWriterLevelFallback(t *testing.T) {
	var buf bytes.Buffer
	log := NewWithWriter("tvonline", "verbose", &buf)
	log.Debug("hidden")
	if buf.Len() != 0 {
		t.Errorf("debug line written at default info level: %s", buf.String())
	}
	log.Info("shown")
	if buf.Len() == 0 {
		t.Error("info line missing")
	}
}
