package plugin

import (
	"context"
	"strings"

	"beanexport/internal/ledger"
)

const (
	FilterTagsName      = "beancount_toolbox.plugins.filter_tags"
	ZeroDuplicationName = "beancount_toolbox.plugins.zero_duplication"

	// ZeroDuplicationKey marks transactions whose postings are cleared.
	ZeroDuplicationKey = "zero_duplication"
)

// Builtin returns a registry holding the handlers shipped with beanexport.
func Builtin() *Registry {
	r := NewRegistry()
	r.Register(FilterTagsName, HandlerFunc(FilterTags))
	r.Register(ZeroDuplicationName, HandlerFunc(ZeroDuplication))
	return r
}

// FilterTags keeps transactions tagged with at least one of the space
// separated tags in config. Other directives pass through. Without config
// the stream is returned unchanged.
func FilterTags(_ context.Context, entries ledger.Entries, config *string) (ledger.Entries, []error, error) {
	if config == nil {
		return entries, nil, nil
	}
	tags := strings.Fields(*config)
	if len(tags) == 0 {
		return entries, nil, nil
	}

	out := make(ledger.Entries, 0, len(entries))
	for _, d := range entries {
		txn, ok := d.(ledger.Transaction)
		if !ok || hasAnyTag(txn, tags) {
			out = append(out, d)
		}
	}
	return out, nil, nil
}

func hasAnyTag(txn ledger.Transaction, tags []string) bool {
	for _, tag := range tags {
		if txn.HasTag(tag) {
			return true
		}
	}
	return false
}

// ZeroDuplication empties the postings of transactions carrying the
// zero_duplication metadata key, e.g. mirror entries of a transfer that is
// booked in another ledger.
func ZeroDuplication(_ context.Context, entries ledger.Entries, _ *string) (ledger.Entries, []error, error) {
	out := make(ledger.Entries, len(entries))
	for i, d := range entries {
		if txn, ok := d.(ledger.Transaction); ok {
			if _, marked := txn.Meta[ZeroDuplicationKey]; marked {
				txn.Postings = []ledger.Posting{}
				d = txn
			}
		}
		out[i] = d
	}
	return out, nil, nil
}
