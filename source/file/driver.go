package file

import (
	"context"
	"fmt"
	"io"
	"os"

	"beanexport/internal/ledger"
	"beanexport/source"
)

// Config names the stream document to read; "-" reads stdin.
type Config struct {
	Path string `yaml:"path"`
}

type driver struct {
	cfg   Config
	stdin io.Reader
}

func New() source.Adapter { return &driver{stdin: os.Stdin} }

func (d *driver) Configure(c any) error {
	cfg, ok := c.(Config)
	if !ok {
		return fmt.Errorf("file-source: want Config, got %T", c)
	}
	if cfg.Path == "" {
		return fmt.Errorf("file-source: empty path")
	}
	d.cfg = cfg
	return nil
}

func (d *driver) Read(context.Context) (ledger.Entries, error) {
	if d.cfg.Path == "-" {
		return ledger.Decode(d.stdin)
	}
	f, err := os.Open(d.cfg.Path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	entries, err := ledger.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", d.cfg.Path, err)
	}
	return entries, nil
}

func (d *driver) Close() error { return nil }

func init() { source.Register("file", New) }
