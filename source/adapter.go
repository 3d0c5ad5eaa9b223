package source

import (
	"context"
	"fmt"

	"beanexport/internal/ledger"
)

// Adapter is the common behaviour every source exposes. A source yields one
// complete, finite directive stream per Read.
type Adapter interface {
	Configure(any) error // driver-specific config struct
	Read(context.Context) (ledger.Entries, error)
	Close() error // idempotent
}

/*──────── registry ───────*/

type factory = func() Adapter

var reg = map[string]factory{}

// Register is called from each driver's init().
func Register(name string, f factory) { reg[name] = f }

func NewAdapter(name string) (Adapter, error) {
	if f, ok := reg[name]; ok {
		return f(), nil
	}
	return nil, fmt.Errorf("unknown source %q", name)
}
