package ledger

import (
	"errors"
	"fmt"
	"io"
	"time"

	"gopkg.in/yaml.v3"
)

// DateLayout is the on-disk date format of the stream document.
const DateLayout = "2006-01-02"

// record is the YAML shape of one directive. Fields not used by a kind are
// left empty.
type record struct {
	Kind Kind   `yaml:"kind"`
	Date string `yaml:"date"`
	Meta Meta   `yaml:"meta,omitempty"`

	Flag      string          `yaml:"flag,omitempty"`
	Payee     string          `yaml:"payee,omitempty"`
	Narration string          `yaml:"narration,omitempty"`
	Tags      []string        `yaml:"tags,omitempty"`
	Links     []string        `yaml:"links,omitempty"`
	Postings  []postingRecord `yaml:"postings,omitempty"`

	Account     string   `yaml:"account,omitempty"`
	Source      string   `yaml:"source,omitempty"`
	Currencies  []string `yaml:"currencies,omitempty"`
	Booking     string   `yaml:"booking,omitempty"`
	Currency    string   `yaml:"currency,omitempty"`
	Amount      string   `yaml:"amount,omitempty"`
	Comment     string   `yaml:"comment,omitempty"`
	Path        string   `yaml:"path,omitempty"`
	Type        string   `yaml:"type,omitempty"`
	Description string   `yaml:"description,omitempty"`
}

type postingRecord struct {
	Account string `yaml:"account"`
	Units   string `yaml:"units"`
	Price   string `yaml:"price,omitempty"`
	Flag    string `yaml:"flag,omitempty"`
	Meta    Meta   `yaml:"meta,omitempty"`
}

// Decode reads a YAML sequence of directives. An empty document yields an
// empty stream.
func Decode(r io.Reader) (Entries, error) {
	var recs []record
	if err := yaml.NewDecoder(r).Decode(&recs); err != nil {
		if errors.Is(err, io.EOF) {
			return Entries{}, nil
		}
		return nil, fmt.Errorf("ledger: decode: %w", err)
	}
	out := make(Entries, 0, len(recs))
	for i, rec := range recs {
		d, err := rec.directive()
		if err != nil {
			return nil, fmt.Errorf("ledger: entry %d: %w", i, err)
		}
		out = append(out, d)
	}
	return out, nil
}

// Encode writes entries as a YAML sequence readable by Decode.
func Encode(w io.Writer, entries Entries) error {
	recs := make([]record, 0, len(entries))
	for _, d := range entries {
		recs = append(recs, toRecord(d))
	}
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(recs); err != nil {
		return fmt.Errorf("ledger: encode: %w", err)
	}
	return enc.Close()
}

func (r record) directive() (Directive, error) {
	date, err := time.Parse(DateLayout, r.Date)
	if err != nil {
		return nil, fmt.Errorf("date %q: %w", r.Date, err)
	}
	h := Header{Date: date, Meta: r.Meta}

	switch r.Kind {
	case KindTransaction:
		postings := make([]Posting, 0, len(r.Postings))
		for j, pr := range r.Postings {
			p, err := pr.posting()
			if err != nil {
				return nil, fmt.Errorf("posting %d: %w", j, err)
			}
			postings = append(postings, p)
		}
		return Transaction{
			Header: h, Flag: r.Flag, Payee: r.Payee, Narration: r.Narration,
			Tags: r.Tags, Links: r.Links, Postings: postings,
		}, nil
	case KindOpen:
		var currencies []Commodity
		for _, c := range r.Currencies {
			currencies = append(currencies, Commodity(c))
		}
		return Open{Header: h, Account: Account(r.Account), Currencies: currencies, Booking: r.Booking}, nil
	case KindClose:
		return Close{Header: h, Account: Account(r.Account)}, nil
	case KindBalance:
		amt, err := ParseAmount(r.Amount)
		if err != nil {
			return nil, err
		}
		return Balance{Header: h, Account: Account(r.Account), Amount: amt}, nil
	case KindPad:
		return Pad{Header: h, Account: Account(r.Account), Source: Account(r.Source)}, nil
	case KindPrice:
		amt, err := ParseAmount(r.Amount)
		if err != nil {
			return nil, err
		}
		return Price{Header: h, Currency: Commodity(r.Currency), Amount: amt}, nil
	case KindNote:
		return Note{Header: h, Account: Account(r.Account), Comment: r.Comment}, nil
	case KindDocument:
		return Document{Header: h, Account: Account(r.Account), Path: r.Path, Tags: r.Tags, Links: r.Links}, nil
	case KindCommodity:
		return CommodityDecl{Header: h, Currency: Commodity(r.Currency)}, nil
	case KindEvent:
		return Event{Header: h, Type: r.Type, Description: r.Description}, nil
	default:
		return nil, fmt.Errorf("unknown directive kind %q", r.Kind)
	}
}

func (pr postingRecord) posting() (Posting, error) {
	units, err := ParseAmount(pr.Units)
	if err != nil {
		return Posting{}, err
	}
	p := Posting{Account: Account(pr.Account), Units: units, Flag: pr.Flag, Meta: pr.Meta}
	if pr.Price != "" {
		price, err := ParseAmount(pr.Price)
		if err != nil {
			return Posting{}, fmt.Errorf("price: %w", err)
		}
		p.Price = &price
	}
	return p, nil
}

func toRecord(d Directive) record {
	h := d.Head()
	r := record{Kind: d.Kind(), Date: h.Date.Format(DateLayout), Meta: h.Meta}

	switch v := d.(type) {
	case Transaction:
		r.Flag, r.Payee, r.Narration = v.Flag, v.Payee, v.Narration
		r.Tags, r.Links = v.Tags, v.Links
		for _, p := range v.Postings {
			pr := postingRecord{Account: string(p.Account), Units: p.Units.String(), Flag: p.Flag, Meta: p.Meta}
			if p.Price != nil {
				pr.Price = p.Price.String()
			}
			r.Postings = append(r.Postings, pr)
		}
	case Open:
		r.Account, r.Booking = string(v.Account), v.Booking
		for _, c := range v.Currencies {
			r.Currencies = append(r.Currencies, string(c))
		}
	case Close:
		r.Account = string(v.Account)
	case Balance:
		r.Account, r.Amount = string(v.Account), v.Amount.String()
	case Pad:
		r.Account, r.Source = string(v.Account), string(v.Source)
	case Price:
		r.Currency, r.Amount = string(v.Currency), v.Amount.String()
	case Note:
		r.Account, r.Comment = string(v.Account), v.Comment
	case Document:
		r.Account, r.Path, r.Tags, r.Links = string(v.Account), v.Path, v.Tags, v.Links
	case CommodityDecl:
		r.Currency = string(v.Currency)
	case Event:
		r.Type, r.Description = v.Type, v.Description
	}
	return r
}
