package transform

import (
	"context"

	"beanexport/internal/ledger"
)

// RenameAccount moves the Old account subtree to New in every directive
// that carries an account: Old itself and every Old:... descendant are
// rewritten, keeping their trailing segments. Old == New is a no-op.
type RenameAccount struct {
	Old, New ledger.Account
}

func (RenameAccount) Name() string { return "rename_account" }

func (r RenameAccount) Apply(_ context.Context, entries ledger.Entries) (ledger.Entries, []error, error) {
	if r.Old == r.New {
		return entries, nil, nil
	}
	rebase := func(a ledger.Account) ledger.Account {
		moved, _ := a.Rebase(r.Old, r.New)
		return moved
	}
	out := make(ledger.Entries, len(entries))
	for i, d := range entries {
		out[i] = ledger.MapAccounts(d, rebase)
	}
	return out, nil, nil
}

// RenameCommodity replaces Old with New in every commodity valued field.
// Commodities have no hierarchy, so only exact matches change.
type RenameCommodity struct {
	Old, New ledger.Commodity
}

func (RenameCommodity) Name() string { return "rename_commodity" }

func (r RenameCommodity) Apply(_ context.Context, entries ledger.Entries) (ledger.Entries, []error, error) {
	if r.Old == r.New {
		return entries, nil, nil
	}
	swap := func(c ledger.Commodity) ledger.Commodity {
		if c == r.Old {
			return r.New
		}
		return c
	}
	out := make(ledger.Entries, len(entries))
	for i, d := range entries {
		out[i] = ledger.MapCommodities(d, swap)
	}
	return out, nil, nil
}
