package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/multierr"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"beanexport/internal/ledger"
	"beanexport/internal/logging"
)

func TestLoad_ReadsOrderedActions(t *testing.T) {
	dir := t.TempDir()
	doc := []byte(`schema_version: v1
plugins:
  - keep_only_transactions: true
    tidy_transactions: true
  - rename_account: {old: Assets:Bank, new: Assets:Checking}
  - rename_commodity:
      old: EUR
      new: EURO
  - module_name: beancount_toolbox.plugins.filter_tags
    string_config: "foo bar"
  - module_name: beancount_toolbox.plugins.zero_duplication
`)
	path := filepath.Join(dir, "export.yml")
	if err := os.WriteFile(path, doc, 0o644); err != nil {
		t.Fatalf("write export: %v", err)
	}

	root, err := Load(path)
	require.NoError(t, err)
	require.Len(t, root.Plugins, 5)

	assert.Equal(t, KeepOnlyTransactions{Keep: true, Tidy: true}, root.Plugins[0])
	assert.Equal(t, RenameAccount{Old: "Assets:Bank", New: "Assets:Checking"}, root.Plugins[1])
	assert.Equal(t, RenameCommodity{Old: "EUR", New: "EURO"}, root.Plugins[2])

	p, ok := root.Plugins[3].(Plugin)
	require.True(t, ok)
	assert.Equal(t, "beancount_toolbox.plugins.filter_tags", p.ModuleName)
	require.NotNil(t, p.StringConfig)
	assert.Equal(t, "foo bar", *p.StringConfig)

	p, ok = root.Plugins[4].(Plugin)
	require.True(t, ok)
	assert.Nil(t, p.StringConfig)
}

func TestParse_JSONDocument(t *testing.T) {
	root, err := Parse([]byte(`{"plugins":[{"rename_account":{"old":"Assets:Bank","new":"Assets:Checking"}}]}`))
	require.NoError(t, err)
	assert.Equal(t, []Action{RenameAccount{Old: ledger.Account("Assets:Bank"), New: "Assets:Checking"}}, root.Plugins)
}

func TestParse_RenameTupleForm(t *testing.T) {
	root, err := Parse([]byte(`plugins:
  - rename_account: [Assets:Bank, Assets:Checking]
`))
	require.NoError(t, err)
	assert.Equal(t, RenameAccount{Old: "Assets:Bank", New: "Assets:Checking"}, root.Plugins[0])

	_, err = Parse([]byte(`plugins:
  - rename_account: [Assets:Bank]
`))
	assert.ErrorIs(t, err, ErrInvalidConfig)
}

func TestParse_OneOfViolations(t *testing.T) {
	cases := map[string]string{
		"none": `plugins:
  - tidy_transactions: true
`,
		"two kinds": `plugins:
  - keep_only_transactions: true
    rename_account: {old: A, new: B}
`,
		"plugin and rename": `plugins:
  - module_name: x
    rename_commodity: {old: A, new: B}
`,
		"empty entry": `plugins:
  - {}
`,
	}
	for name, doc := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := Parse([]byte(doc))
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrInvalidConfig)

			var ve *ValidationError
			require.True(t, errors.As(err, &ve))
			assert.Equal(t, 0, ve.Index)
			assert.Contains(t, ve.Constraint, "exactly one of")
		})
	}
}

func TestParse_ReportsEveryBadEntry(t *testing.T) {
	_, err := Parse([]byte(`plugins:
  - keep_only_transactions: true
  - rename_account: {old: "", new: Assets:X}
  - rename_commodity: {old: USD}
  - module_name: "  "
  - 42
`))
	require.Error(t, err)

	errs := multierr.Errors(err)
	require.Len(t, errs, 4)

	var got []string
	for _, e := range errs {
		var ve *ValidationError
		require.True(t, errors.As(e, &ve))
		got = append(got, ve.Error())
	}
	assert.Equal(t, []string{
		"plugins[1].rename_account.old: must not be empty",
		"plugins[2].rename_commodity.new: must not be empty",
		"plugins[3].module_name: must not be empty",
		"plugins[4]: want a mapping, got scalar",
	}, got)
}

func TestParse_SameOldAndNewIsAccepted(t *testing.T) {
	root, err := Parse([]byte(`plugins: [{rename_commodity: {old: USD, new: USD}}]`))
	require.NoError(t, err)
	assert.Equal(t, RenameCommodity{Old: "USD", New: "USD"}, root.Plugins[0])
}

func TestParse_TidyOutsideKeepIsIgnored(t *testing.T) {
	defer logging.Set(logging.L())
	core, logs := observer.New(zapcore.WarnLevel)
	logging.Set(zap.New(core))

	root, err := Parse([]byte(`plugins:
  - rename_account: {old: A, new: B}
    tidy_transactions: true
  - keep_only_transactions: false
    string_config: "x"
`))
	require.NoError(t, err)
	assert.Equal(t, RenameAccount{Old: "A", New: "B"}, root.Plugins[0])
	assert.Equal(t, KeepOnlyTransactions{}, root.Plugins[1])
	assert.Equal(t, 2, logs.FilterMessage("config: ignoring key outside its action").Len())
}

func TestParse_InvalidSchema(t *testing.T) {
	_, err := Parse([]byte("schema_version: v999\nplugins: []\n"))
	var ve *ValidationError
	require.True(t, errors.As(err, &ve))
	assert.Equal(t, -1, ve.Index)
	assert.Equal(t, "schema_version", ve.Field)
}

func TestParse_Malformed(t *testing.T) {
	_, err := Parse([]byte("plugins: [\n"))
	assert.ErrorIs(t, err, ErrInvalidConfig)

	_, err = Parse([]byte("plugins:\n  - keep_only_transactions: maybe\n"))
	assert.ErrorIs(t, err, ErrInvalidConfig)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yml"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}

type countingVisitor struct{ seen []string }

func (c *countingVisitor) VisitKeepOnlyTransactions(KeepOnlyTransactions) error {
	c.seen = append(c.seen, KeyKeepOnlyTransactions)
	return nil
}
func (c *countingVisitor) VisitRenameAccount(RenameAccount) error {
	c.seen = append(c.seen, KeyRenameAccount)
	return nil
}
func (c *countingVisitor) VisitRenameCommodity(RenameCommodity) error {
	c.seen = append(c.seen, KeyRenameCommodity)
	return nil
}
func (c *countingVisitor) VisitPlugin(Plugin) error {
	c.seen = append(c.seen, KeyModuleName)
	return nil
}

func TestAction_AcceptDispatchesByKind(t *testing.T) {
	v := &countingVisitor{}
	actions := []Action{KeepOnlyTransactions{}, RenameAccount{}, RenameCommodity{}, Plugin{}}
	for _, a := range actions {
		require.NoError(t, a.Accept(v))
	}
	var kinds []string
	for _, a := range actions {
		kinds = append(kinds, a.Kind())
	}
	assert.Equal(t, kinds, v.seen)
}
