package transform

import (
	"context"

	"beanexport/internal/ledger"
)

// Transform rewrites a full directive stream.
//
// Non-fatal problems with specific directives are returned in the error
// slice alongside an otherwise complete stream. A non-nil final error is
// fatal and stops the pipeline; the returned stream is then ignored.
type Transform interface {
	Name() string
	Apply(ctx context.Context, entries ledger.Entries) (ledger.Entries, []error, error)
}

// Func adapts a plain function to Transform.
type Func struct {
	Label string
	Fn    func(ctx context.Context, entries ledger.Entries) (ledger.Entries, []error, error)
}

func (f Func) Name() string { return f.Label }

func (f Func) Apply(ctx context.Context, entries ledger.Entries) (ledger.Entries, []error, error) {
	return f.Fn(ctx, entries)
}
