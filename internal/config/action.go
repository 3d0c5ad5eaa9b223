package config

import "beanexport/internal/ledger"

// Action is one validated entry of the plugins list. The set of actions is
// closed; consumers dispatch through Accept so that adding a kind breaks
// every Visitor at compile time.
type Action interface {
	Accept(Visitor) error
	// Kind is the configuration key that selected this action.
	Kind() string
	action()
}

// Visitor handles every action kind.
type Visitor interface {
	VisitKeepOnlyTransactions(KeepOnlyTransactions) error
	VisitRenameAccount(RenameAccount) error
	VisitRenameCommodity(RenameCommodity) error
	VisitPlugin(Plugin) error
}

const (
	KeyKeepOnlyTransactions = "keep_only_transactions"
	KeyTidyTransactions     = "tidy_transactions"
	KeyRenameAccount        = "rename_account"
	KeyRenameCommodity      = "rename_commodity"
	KeyModuleName           = "module_name"
	KeyStringConfig         = "string_config"
)

// KeepOnlyTransactions drops every non-transaction directive when Keep is set
// and tidies transaction postings when Tidy is set.
type KeepOnlyTransactions struct {
	Keep bool
	Tidy bool
}

func (a KeepOnlyTransactions) Accept(v Visitor) error { return v.VisitKeepOnlyTransactions(a) }
func (KeepOnlyTransactions) Kind() string             { return KeyKeepOnlyTransactions }

func (KeepOnlyTransactions) action() {}

type RenameAccount struct {
	Old, New ledger.Account
}

func (a RenameAccount) Accept(v Visitor) error { return v.VisitRenameAccount(a) }
func (RenameAccount) Kind() string             { return KeyRenameAccount }

func (RenameAccount) action() {}

type RenameCommodity struct {
	Old, New ledger.Commodity
}

func (a RenameCommodity) Accept(v Visitor) error { return v.VisitRenameCommodity(a) }
func (RenameCommodity) Kind() string             { return KeyRenameCommodity }

func (RenameCommodity) action() {}

// Plugin delegates to a handler resolved by ModuleName. StringConfig is
// passed through untouched; nil means it was not configured.
type Plugin struct {
	ModuleName   string
	StringConfig *string
}

func (a Plugin) Accept(v Visitor) error { return v.VisitPlugin(a) }
func (Plugin) Kind() string             { return KeyModuleName }

func (Plugin) action() {}

// Root is the validated export definition. It is not modified after Parse.
type Root struct {
	Plugins []Action
}
