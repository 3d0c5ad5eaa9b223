// Package plugin resolves delegated handlers named by module_name entries of
// an export definition. Handlers are registered explicitly in a Registry; a
// registry may also consult discovery hooks (for example remote gRPC handler
// servers) for names it does not hold.
package plugin

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"beanexport/internal/ledger"
)

// ErrUnknownHandler is returned when no registered handler or discovery hook
// serves a name.
var ErrUnknownHandler = errors.New("plugin: unknown handler")

// Handler is an externally supplied transform. config is the optional
// string_config of the entry, nil when absent. The []error result carries
// non-fatal problems; a non-nil error result is fatal to the run.
type Handler interface {
	Handle(ctx context.Context, entries ledger.Entries, config *string) (ledger.Entries, []error, error)
}

type HandlerFunc func(ctx context.Context, entries ledger.Entries, config *string) (ledger.Entries, []error, error)

func (f HandlerFunc) Handle(ctx context.Context, entries ledger.Entries, config *string) (ledger.Entries, []error, error) {
	return f(ctx, entries, config)
}

// DiscoverFunc resolves a name outside the fixed table. It returns
// ErrUnknownHandler for names it does not recognise so the next hook is
// tried. Returned handlers implementing io.Closer are closed by their user.
type DiscoverFunc func(ctx context.Context, name string) (Handler, error)

type Registry struct {
	handlers map[string]Handler
	discover []DiscoverFunc
}

func NewRegistry() *Registry {
	return &Registry{handlers: map[string]Handler{}}
}

// Register is called at startup while the fixed table is assembled.
func (r *Registry) Register(name string, h Handler) {
	r.handlers[name] = h
}

// AddDiscovery appends a hook consulted, in order, for unregistered names.
func (r *Registry) AddDiscovery(fn DiscoverFunc) {
	r.discover = append(r.discover, fn)
}

// Lookup returns the handler serving name. It does not modify the registry,
// so concurrent or repeated resolutions see the same table.
func (r *Registry) Lookup(ctx context.Context, name string) (Handler, error) {
	if h, ok := r.handlers[name]; ok {
		return h, nil
	}
	for _, fn := range r.discover {
		h, err := fn(ctx, name)
		if errors.Is(err, ErrUnknownHandler) {
			continue
		}
		if err != nil {
			return nil, err
		}
		return h, nil
	}
	return nil, fmt.Errorf("%w %q", ErrUnknownHandler, name)
}

// Names lists the fixed table, sorted.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.handlers))
	for n := range r.handlers {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}
