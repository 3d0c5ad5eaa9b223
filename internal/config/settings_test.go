package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadSettings_FileAndEnv(t *testing.T) {
	dir := t.TempDir()
	doc := []byte(`schema_version: v1
plugins: []
settings:
  log:
    level: warn
  remote:
    timeout: 5s
    attempts: 2
  source:
    driver: kafka
    kafka:
      brokers: [localhost:9092]
      topic: raw-ledger
      partition: 2
  sink:
    driver: kafka
    kafka:
      brokers: [localhost:9092]
      topic: ledger
`)
	path := filepath.Join(dir, "export.yml")
	if err := os.WriteFile(path, doc, 0o644); err != nil {
		t.Fatalf("write export: %v", err)
	}
	t.Setenv("BEANEXPORT__LOG__JSON", "true")
	t.Setenv("BEANEXPORT__METRICS__TEXTFILE", "/tmp/beanexport.prom")

	s, err := LoadSettings(path)
	if err != nil {
		t.Fatalf("LoadSettings: %v", err)
	}
	if s.Log.Level != "warn" || !s.Log.JSON {
		t.Fatalf("unexpected log settings: %+v", s.Log)
	}
	if s.Remote.Timeout != 5*time.Second || s.Remote.Attempts != 2 {
		t.Fatalf("unexpected remote settings: %+v", s.Remote)
	}
	if s.Remote.Backoff != 200*time.Millisecond {
		t.Fatalf("want default backoff, got %v", s.Remote.Backoff)
	}
	if s.Metrics.Textfile != "/tmp/beanexport.prom" || s.Metrics.Namespace != "beanexport" {
		t.Fatalf("unexpected metrics settings: %+v", s.Metrics)
	}
	if s.Sink.Driver != "kafka" || s.Sink.Kafka.Topic != "ledger" || len(s.Sink.Kafka.Brokers) != 1 {
		t.Fatalf("unexpected sink settings: %+v", s.Sink)
	}
	if s.Source.Driver != "kafka" || s.Source.Kafka.Partition != 2 || s.Source.Kafka.Timeout != time.Minute {
		t.Fatalf("unexpected source settings: %+v", s.Source)
	}
}

func TestLoadSettings_MissingFileUsesDefaults(t *testing.T) {
	s, err := LoadSettings(filepath.Join(t.TempDir(), "absent.yml"))
	if err != nil {
		t.Fatalf("LoadSettings: %v", err)
	}
	if s.Sink.Driver != "file" || s.Sink.Path != "-" || s.Log.Level != "info" || s.Source.Driver != "file" {
		t.Fatalf("unexpected defaults: %+v", s)
	}
}

func TestLoadSettings_InvalidSchema(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "export.yml")
	if err := os.WriteFile(path, []byte("schema_version: v2\n"), 0o644); err != nil {
		t.Fatalf("write export: %v", err)
	}
	_, err := LoadSettings(path)
	if !errors.Is(err, ErrInvalidConfig) {
		t.Fatalf("expected ErrInvalidConfig for invalid schema_version, got %v", err)
	}
}

func TestLoadSettings_MalformedDocument(t *testing.T) {
	dir := t.TempDir()
	for name, body := range map[string]string{
		"unterminated.yml": "plugins: [\n",
		"sequence.yml":     "- keep_only_transactions: true\n",
	} {
		path := filepath.Join(dir, name)
		if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
			t.Fatalf("write export: %v", err)
		}
		_, err := LoadSettings(path)
		var ve *ValidationError
		if !errors.As(err, &ve) || ve.Index != -1 {
			t.Fatalf("%s: expected document-level ValidationError, got %v", name, err)
		}
	}
}
