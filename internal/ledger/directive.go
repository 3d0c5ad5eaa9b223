// Package ledger models the parsed directive stream the export pipeline
// rewrites. It does not read Beancount source text; producers hand it an
// ordered, finite, in-memory Entries value.
package ledger

import "time"

// Kind tags a Directive.
type Kind string

const (
	KindTransaction Kind = "transaction"
	KindOpen        Kind = "open"
	KindClose       Kind = "close"
	KindBalance     Kind = "balance"
	KindPad         Kind = "pad"
	KindPrice       Kind = "price"
	KindNote        Kind = "note"
	KindDocument    Kind = "document"
	KindCommodity   Kind = "commodity"
	KindEvent       Kind = "event"
)

// Meta is opaque directive or posting metadata.
type Meta map[string]string

// Header holds the fields every directive carries.
type Header struct {
	Date time.Time
	Meta Meta
}

// Head returns the shared header of a directive.
func (h Header) Head() Header { return h }

// Directive is one parsed ledger entry. The set of kinds is closed: only this
// package implements it.
type Directive interface {
	Kind() Kind
	Head() Header

	mapAccounts(func(Account) Account) Directive
	mapCommodities(func(Commodity) Commodity) Directive
}

// Entries is an ordered directive stream. Order is significant.
type Entries []Directive

// MapAccounts returns a copy of d with fn applied to every account valued
// field. d itself is left untouched.
func MapAccounts(d Directive, fn func(Account) Account) Directive {
	return d.mapAccounts(fn)
}

// MapCommodities returns a copy of d with fn applied to every commodity valued
// field, including the commodity of every amount.
func MapCommodities(d Directive, fn func(Commodity) Commodity) Directive {
	return d.mapCommodities(fn)
}

// Posting is one account/amount line of a Transaction.
type Posting struct {
	Account Account
	Units   Amount
	Price   *Amount
	Flag    string
	Meta    Meta
}

func (p Posting) mapCommodities(fn func(Commodity) Commodity) Posting {
	p.Units.Commodity = fn(p.Units.Commodity)
	if p.Price != nil {
		price := *p.Price
		price.Commodity = fn(price.Commodity)
		p.Price = &price
	}
	return p
}

type Transaction struct {
	Header
	Flag      string
	Payee     string
	Narration string
	Tags      []string
	Links     []string
	Postings  []Posting
}

func (Transaction) Kind() Kind { return KindTransaction }

// HasTag reports whether the transaction carries tag.
func (t Transaction) HasTag(tag string) bool {
	for _, have := range t.Tags {
		if have == tag {
			return true
		}
	}
	return false
}

func (t Transaction) mapAccounts(fn func(Account) Account) Directive {
	postings := make([]Posting, len(t.Postings))
	for i, p := range t.Postings {
		p.Account = fn(p.Account)
		postings[i] = p
	}
	t.Postings = postings
	return t
}

func (t Transaction) mapCommodities(fn func(Commodity) Commodity) Directive {
	postings := make([]Posting, len(t.Postings))
	for i, p := range t.Postings {
		postings[i] = p.mapCommodities(fn)
	}
	t.Postings = postings
	return t
}

type Open struct {
	Header
	Account    Account
	Currencies []Commodity
	Booking    string
}

func (Open) Kind() Kind { return KindOpen }

func (o Open) mapAccounts(fn func(Account) Account) Directive {
	o.Account = fn(o.Account)
	return o
}

func (o Open) mapCommodities(fn func(Commodity) Commodity) Directive {
	if o.Currencies == nil {
		return o
	}
	currencies := make([]Commodity, len(o.Currencies))
	for i, c := range o.Currencies {
		currencies[i] = fn(c)
	}
	o.Currencies = currencies
	return o
}

type Close struct {
	Header
	Account Account
}

func (Close) Kind() Kind { return KindClose }

func (c Close) mapAccounts(fn func(Account) Account) Directive {
	c.Account = fn(c.Account)
	return c
}

func (c Close) mapCommodities(func(Commodity) Commodity) Directive { return c }

type Balance struct {
	Header
	Account Account
	Amount  Amount
}

func (Balance) Kind() Kind { return KindBalance }

func (b Balance) mapAccounts(fn func(Account) Account) Directive {
	b.Account = fn(b.Account)
	return b
}

func (b Balance) mapCommodities(fn func(Commodity) Commodity) Directive {
	b.Amount.Commodity = fn(b.Amount.Commodity)
	return b
}

type Pad struct {
	Header
	Account Account
	Source  Account
}

func (Pad) Kind() Kind { return KindPad }

func (p Pad) mapAccounts(fn func(Account) Account) Directive {
	p.Account = fn(p.Account)
	p.Source = fn(p.Source)
	return p
}

func (p Pad) mapCommodities(func(Commodity) Commodity) Directive { return p }

// Price records the value of one unit of Currency in Amount.
type Price struct {
	Header
	Currency Commodity
	Amount   Amount
}

func (Price) Kind() Kind { return KindPrice }

func (p Price) mapAccounts(func(Account) Account) Directive { return p }

func (p Price) mapCommodities(fn func(Commodity) Commodity) Directive {
	p.Currency = fn(p.Currency)
	p.Amount.Commodity = fn(p.Amount.Commodity)
	return p
}

type Note struct {
	Header
	Account Account
	Comment string
}

func (Note) Kind() Kind { return KindNote }

func (n Note) mapAccounts(fn func(Account) Account) Directive {
	n.Account = fn(n.Account)
	return n
}

func (n Note) mapCommodities(func(Commodity) Commodity) Directive { return n }

type Document struct {
	Header
	Account Account
	Path    string
	Tags    []string
	Links   []string
}

func (Document) Kind() Kind { return KindDocument }

func (d Document) mapAccounts(fn func(Account) Account) Directive {
	d.Account = fn(d.Account)
	return d
}

func (d Document) mapCommodities(func(Commodity) Commodity) Directive { return d }

// CommodityDecl declares a commodity.
type CommodityDecl struct {
	Header
	Currency Commodity
}

func (CommodityDecl) Kind() Kind { return KindCommodity }

func (c CommodityDecl) mapAccounts(func(Account) Account) Directive { return c }

func (c CommodityDecl) mapCommodities(fn func(Commodity) Commodity) Directive {
	c.Currency = fn(c.Currency)
	return c
}

type Event struct {
	Header
	Type        string
	Description string
}

func (Event) Kind() Kind { return KindEvent }

func (e Event) mapAccounts(func(Account) Account) Directive       { return e }
func (e Event) mapCommodities(func(Commodity) Commodity) Directive { return e }
