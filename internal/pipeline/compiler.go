package pipeline

import (
	"context"
	"io"

	"go.uber.org/multierr"
	"go.uber.org/zap"

	"beanexport/internal/config"
	"beanexport/internal/ledger"
	"beanexport/internal/logging"
	"beanexport/internal/plugin"
	"beanexport/internal/transform"
)

// Compile resolves every action of root, in order, into a Runner. If a
// plugin cannot be resolved the handlers acquired so far are closed and a
// *ResolutionError is returned.
func Compile(ctx context.Context, root config.Root, reg *plugin.Registry, opts ...Option) (*Runner, error) {
	r := NewRunner(opts...)
	for i, a := range root.Plugins {
		t, err := Resolve(ctx, i, a, reg)
		if err != nil {
			return nil, multierr.Append(err, r.Close())
		}
		r.AddStage(t)
	}
	r.log.Debug("pipeline: compiled", zap.Int("stages", len(r.stages)))
	return r, nil
}

// Resolve maps one action to a transform. Built-in actions always resolve;
// plugins are looked up in reg, which is never modified.
func Resolve(ctx context.Context, index int, a config.Action, reg *plugin.Registry) (transform.Transform, error) {
	res := &resolver{ctx: ctx, index: index, reg: reg}
	if err := a.Accept(res); err != nil {
		return nil, err
	}
	return res.out, nil
}

type resolver struct {
	ctx   context.Context
	index int
	reg   *plugin.Registry
	out   transform.Transform
}

func (r *resolver) VisitKeepOnlyTransactions(a config.KeepOnlyTransactions) error {
	r.out = transform.KeepOnlyTransactions{Keep: a.Keep, Tidy: a.Tidy}
	return nil
}

func (r *resolver) VisitRenameAccount(a config.RenameAccount) error {
	r.out = transform.RenameAccount{Old: a.Old, New: a.New}
	return nil
}

func (r *resolver) VisitRenameCommodity(a config.RenameCommodity) error {
	r.out = transform.RenameCommodity{Old: a.Old, New: a.New}
	return nil
}

func (r *resolver) VisitPlugin(a config.Plugin) error {
	if r.reg == nil {
		return &ResolutionError{Stage: r.index, Module: a.ModuleName, Err: plugin.ErrUnknownHandler}
	}
	h, err := r.reg.Lookup(r.ctx, a.ModuleName)
	if err != nil {
		logging.L().Error("pipeline: cannot resolve plugin",
			zap.Int("index", r.index), zap.String("module", a.ModuleName), zap.Error(err))
		return &ResolutionError{Stage: r.index, Module: a.ModuleName, Err: err}
	}
	r.out = &delegated{module: a.ModuleName, config: a.StringConfig, handler: h}
	return nil
}

// delegated runs a plugin handler as a pipeline stage.
type delegated struct {
	module  string
	config  *string
	handler plugin.Handler
}

func (d *delegated) Name() string { return d.module }

func (d *delegated) Apply(ctx context.Context, entries ledger.Entries) (ledger.Entries, []error, error) {
	return d.handler.Handle(ctx, entries, d.config)
}

func (d *delegated) Close() error {
	if c, ok := d.handler.(io.Closer); ok {
		return c.Close()
	}
	return nil
}
