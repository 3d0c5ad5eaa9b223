package ledger

import "strings"

// Separator splits an account into its hierarchy segments.
const Separator = ":"

// Account is a colon separated account path such as Assets:Bank:Checking.
type Account string

// Under reports whether a is root itself or one of its descendants.
// Assets:BankOfFoo is not under Assets:Bank.
func (a Account) Under(root Account) bool {
	if a == root {
		return true
	}
	return strings.HasPrefix(string(a), string(root)+Separator)
}

// Rebase moves a from the old subtree to the new one, keeping the trailing
// segments. Accounts outside old are returned unchanged with ok == false.
func (a Account) Rebase(old, new Account) (Account, bool) {
	if !a.Under(old) {
		return a, false
	}
	return new + a[len(old):], true
}

// Parts returns the hierarchy segments of a.
func (a Account) Parts() []string {
	if a == "" {
		return nil
	}
	return strings.Split(string(a), Separator)
}

// Commodity identifies a currency or tradable unit. Equality is exact.
type Commodity string
