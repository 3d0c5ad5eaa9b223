package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// EnvPrefix selects environment overrides, e.g. BEANEXPORT__LOG__LEVEL=debug.
const EnvPrefix = "BEANEXPORT__"

type LogSettings struct {
	Level string `koanf:"level"`
	JSON  bool   `koanf:"json"`
}

type MetricsSettings struct {
	Namespace string `koanf:"namespace"`
	Textfile  string `koanf:"textfile"` // node_exporter textfile target, empty = off
}

// RemoteSettings governs grpc:// delegated handlers.
type RemoteSettings struct {
	Timeout  time.Duration `koanf:"timeout"`
	Attempts int           `koanf:"attempts"` // retries after the first call
	Backoff  time.Duration `koanf:"backoff"`
}

type KafkaSourceSettings struct {
	Brokers   []string      `koanf:"brokers"`
	Topic     string        `koanf:"topic"`
	Partition int32         `koanf:"partition"`
	Version   string        `koanf:"version"`
	Timeout   time.Duration `koanf:"timeout"` // bound on reading the whole partition
}

// SourceSettings select where the directive stream comes from. The file
// driver reads the ledger path given on the command line.
type SourceSettings struct {
	Driver string              `koanf:"driver"` // file|kafka
	Kafka  KafkaSourceSettings `koanf:"kafka"`
}

type KafkaSinkSettings struct {
	Brokers []string `koanf:"brokers"`
	Topic   string   `koanf:"topic"`
	Acks    int16    `koanf:"required_acks"` // 0,1,-1
}

type SinkSettings struct {
	Driver string            `koanf:"driver"` // file|kafka
	Path   string            `koanf:"path"`   // file driver, "-" = stdout
	Kafka  KafkaSinkSettings `koanf:"kafka"`
}

// Settings are the runtime knobs of an export run. They live under the
// settings key of the export definition and can be overridden from the
// environment.
type Settings struct {
	Log     LogSettings     `koanf:"log"`
	Metrics MetricsSettings `koanf:"metrics"`
	Remote  RemoteSettings  `koanf:"remote"`
	Source  SourceSettings  `koanf:"source"`
	Sink    SinkSettings    `koanf:"sink"`
}

// LoadSettings merges the settings section of path (if present) with env
// vars (prefix BEANEXPORT__, delimiter __).
func LoadSettings(path string) (Settings, error) {
	k := koanf.New(".")
	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil &&
			!errors.Is(err, fs.ErrNotExist) {
			return Settings{}, &ValidationError{Index: -1, Constraint: err.Error()}
		}
	}
	sv := k.String("schema_version")
	if sv != "" && sv != SupportedSchema {
		return Settings{}, &ValidationError{
			Index:      -1,
			Field:      "schema_version",
			Constraint: fmt.Sprintf("%q not supported (want %q)", sv, SupportedSchema),
		}
	}

	envKeys := func(s string) string {
		return "settings__" + strings.ToLower(strings.TrimPrefix(s, EnvPrefix))
	}
	if err := k.Load(env.Provider(EnvPrefix, "__", envKeys), nil); err != nil {
		return Settings{}, err
	}

	var s Settings
	if err := k.Unmarshal("settings", &s); err != nil {
		return s, &ValidationError{Index: -1, Field: "settings", Constraint: err.Error()}
	}
	applyDefaults(&s)
	return s, nil
}

func applyDefaults(s *Settings) {
	if s.Log.Level == "" {
		s.Log.Level = "info"
	}
	if s.Metrics.Namespace == "" {
		s.Metrics.Namespace = "beanexport"
	}
	if s.Remote.Timeout == 0 {
		s.Remote.Timeout = 30 * time.Second
	}
	if s.Remote.Attempts < 0 {
		s.Remote.Attempts = 0
	}
	if s.Remote.Backoff == 0 {
		s.Remote.Backoff = 200 * time.Millisecond
	}
	if s.Source.Driver == "" {
		s.Source.Driver = "file"
	}
	if s.Source.Kafka.Timeout == 0 {
		s.Source.Kafka.Timeout = time.Minute
	}
	if s.Sink.Driver == "" {
		s.Sink.Driver = "file"
	}
	if s.Sink.Path == "" {
		s.Sink.Path = "-"
	}
}
