package transform

import (
	"context"

	"github.com/shopspring/decimal"

	"beanexport/internal/ledger"
)

// TidyPostings applies TidyTransaction to every transaction of the stream.
// Other directives pass through; nothing is dropped or reordered.
type TidyPostings struct{}

func (TidyPostings) Name() string { return "tidy_transactions" }

func (TidyPostings) Apply(_ context.Context, entries ledger.Entries) (ledger.Entries, []error, error) {
	out := make(ledger.Entries, len(entries))
	for i, d := range entries {
		if txn, ok := d.(ledger.Transaction); ok {
			d = TidyTransaction(txn)
		}
		out[i] = d
	}
	return out, nil, nil
}

type postingKey struct {
	account   ledger.Account
	commodity ledger.Commodity
}

type postingGroup struct {
	first ledger.Posting
	sum   decimal.Decimal
	size  int
}

// TidyTransaction merges postings sharing an (account, commodity) pair into
// one posting carrying their exact sum, and drops pairs that sum to zero.
// Survivors keep the position, flag, price and metadata of the first posting
// of their pair. A transaction that is already minimal is returned as is,
// and one whose postings all cancel out keeps an empty posting list.
func TidyTransaction(txn ledger.Transaction) ledger.Transaction {
	index := make(map[postingKey]int, len(txn.Postings))
	groups := make([]postingGroup, 0, len(txn.Postings))

	for _, p := range txn.Postings {
		k := postingKey{account: p.Account, commodity: p.Units.Commodity}
		if i, ok := index[k]; ok {
			groups[i].sum = groups[i].sum.Add(p.Units.Number)
			groups[i].size++
			continue
		}
		index[k] = len(groups)
		groups = append(groups, postingGroup{first: p, sum: p.Units.Number, size: 1})
	}

	changed := len(groups) != len(txn.Postings)
	postings := make([]ledger.Posting, 0, len(groups))
	for _, g := range groups {
		if g.sum.IsZero() {
			changed = true
			continue
		}
		p := g.first
		if g.size > 1 {
			p.Units.Number = g.sum
		}
		postings = append(postings, p)
	}
	if !changed {
		return txn
	}
	txn.Postings = postings
	return txn
}
