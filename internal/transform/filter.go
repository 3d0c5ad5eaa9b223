package transform

import (
	"context"

	"beanexport/internal/ledger"
)

// KeepOnlyTransactions drops every directive that is not a transaction,
// keeping the relative order of the rest. With Keep unset all directives pass
// through. Tidy additionally tidies every surviving transaction in the same
// pass.
type KeepOnlyTransactions struct {
	Keep bool
	Tidy bool
}

func (KeepOnlyTransactions) Name() string { return "keep_only_transactions" }

func (k KeepOnlyTransactions) Apply(_ context.Context, entries ledger.Entries) (ledger.Entries, []error, error) {
	out := make(ledger.Entries, 0, len(entries))
	for _, d := range entries {
		txn, ok := d.(ledger.Transaction)
		if !ok {
			if !k.Keep {
				out = append(out, d)
			}
			continue
		}
		if k.Tidy {
			txn = TidyTransaction(txn)
		}
		out = append(out, txn)
	}
	return out, nil, nil
}
