package file

import (
	"context"
	"fmt"
	"io"
	"os"

	"beanexport/internal/ledger"
	"beanexport/sink"
)

// Config names the output document; "-" writes stdout.
type Config struct {
	Path string `yaml:"path"`
}

type driver struct {
	cfg    Config
	stdout io.Writer
}

func New() sink.Adapter { return &driver{stdout: os.Stdout} }

func (d *driver) Configure(c any) error {
	cfg, ok := c.(Config)
	if !ok {
		return fmt.Errorf("file-sink: want Config, got %T", c)
	}
	if cfg.Path == "" {
		cfg.Path = "-"
	}
	d.cfg = cfg
	return nil
}

func (d *driver) Write(_ context.Context, entries ledger.Entries) error {
	if d.cfg.Path == "-" {
		return ledger.Encode(d.stdout, entries)
	}
	f, err := os.Create(d.cfg.Path)
	if err != nil {
		return err
	}
	if err := ledger.Encode(f, entries); err != nil {
		_ = f.Close()
		return fmt.Errorf("%s: %w", d.cfg.Path, err)
	}
	return f.Close()
}

func (d *driver) Close() error { return nil }

func init() { sink.Register("file", New) }
