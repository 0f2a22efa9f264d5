package logging

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/sirupsen/logrus"
)

func TestJSONFormat(t *testing.T) {
	var buf bytes.Buffer
	log, err := NewWithOutput(&buf, "json", "debug")
	if err != nil {
		t.Fatal(err)
	}
	log.WithField("component", "runner").Debug("hello")

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("output is not json: %v (%s)", err, buf.String())
	}
	if entry["component"] != "runner" || entry["msg"] != "hello" {
		t.Fatalf("entry = %v", entry)
	}
}

func TestDefaultLevelIsInfo(t *testing.T) {
	log, err := NewWithOutput(&bytes.Buffer{}, "", "")
	if err != nil {
		t.Fatal(err)
	}
	if log.GetLevel() != logrus.InfoLevel {
		t.Fatalf("level = %s", log.GetLevel())
	}
}

func TestRejectsUnknownFormat(t *testing.T) {
	if _, err := NewWithOutput(&bytes.Buffer{}, "xml", "info"); err == nil {
		t.Fatal("expected error")
	}
	if _, err := NewWithOutput(&bytes.Buffer{}, "text", "loud"); err == nil {
		t.Fatal("expected error")
	}
}
