package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"go.uber.org/multierr"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"beanexport/internal/ledger"
	"beanexport/internal/logging"
)

const SupportedSchema = "v1"

// ErrInvalidConfig is matched by every error Parse returns for a document
// that was read but does not describe a valid export.
var ErrInvalidConfig = errors.New("config: invalid export definition")

// ValidationError points at one offending plugins entry. Index is -1 for
// document level problems.
type ValidationError struct {
	Index      int
	Field      string
	Constraint string
}

func (e *ValidationError) Error() string {
	where := "export definition"
	if e.Index >= 0 {
		where = fmt.Sprintf("plugins[%d]", e.Index)
	}
	if e.Field != "" {
		where += "." + e.Field
	}
	return fmt.Sprintf("%s: %s", where, e.Constraint)
}

func (e *ValidationError) Unwrap() error { return ErrInvalidConfig }

type document struct {
	SchemaVersion string      `yaml:"schema_version"`
	Plugins       []yaml.Node `yaml:"plugins"`
}

type rawAction struct {
	KeepOnlyTransactions *bool       `yaml:"keep_only_transactions"`
	TidyTransactions     *bool       `yaml:"tidy_transactions"`
	RenameAccount        *renamePair `yaml:"rename_account"`
	RenameCommodity      *renamePair `yaml:"rename_commodity"`
	ModuleName           *string     `yaml:"module_name"`
	StringConfig         *string     `yaml:"string_config"`
}

// renamePair accepts {old: A, new: B} and the older [A, B] form.
type renamePair struct {
	Old string `yaml:"old"`
	New string `yaml:"new"`
}

func (p *renamePair) UnmarshalYAML(n *yaml.Node) error {
	switch n.Kind {
	case yaml.MappingNode:
		type plain renamePair
		return n.Decode((*plain)(p))
	case yaml.SequenceNode:
		var pair []string
		if err := n.Decode(&pair); err != nil {
			return err
		}
		if len(pair) != 2 {
			return fmt.Errorf("want [old, new], got %d items", len(pair))
		}
		p.Old, p.New = pair[0], pair[1]
		return nil
	default:
		return fmt.Errorf("want {old, new} mapping, got %s", nodeKind(n))
	}
}

// Load reads and validates the export definition at path.
func Load(path string) (Root, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return Root{}, err
	}
	return Parse(raw)
}

// Parse validates a YAML or JSON export definition. All invalid entries are
// reported, combined with multierr.
func Parse(raw []byte) (Root, error) {
	var doc document
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return Root{}, &ValidationError{Index: -1, Constraint: err.Error()}
	}
	if doc.SchemaVersion == "" {
		doc.SchemaVersion = SupportedSchema
	}
	if doc.SchemaVersion != SupportedSchema {
		return Root{}, &ValidationError{
			Index:      -1,
			Field:      "schema_version",
			Constraint: fmt.Sprintf("%q not supported (want %q)", doc.SchemaVersion, SupportedSchema),
		}
	}

	var (
		root Root
		errs error
	)
	for i := range doc.Plugins {
		a, err := decodeAction(i, &doc.Plugins[i])
		if err != nil {
			errs = multierr.Append(errs, err)
			continue
		}
		root.Plugins = append(root.Plugins, a)
	}
	if errs != nil {
		return Root{}, errs
	}
	return root, nil
}

func decodeAction(i int, n *yaml.Node) (Action, error) {
	if n.Kind != yaml.MappingNode {
		return nil, &ValidationError{Index: i, Constraint: fmt.Sprintf("want a mapping, got %s", nodeKind(n))}
	}
	var raw rawAction
	if err := n.Decode(&raw); err != nil {
		return nil, &ValidationError{Index: i, Constraint: err.Error()}
	}

	var present []string
	if raw.KeepOnlyTransactions != nil {
		present = append(present, KeyKeepOnlyTransactions)
	}
	if raw.RenameAccount != nil {
		present = append(present, KeyRenameAccount)
	}
	if raw.RenameCommodity != nil {
		present = append(present, KeyRenameCommodity)
	}
	if raw.ModuleName != nil {
		present = append(present, KeyModuleName)
	}
	if len(present) != 1 {
		return nil, &ValidationError{
			Index: i,
			Constraint: fmt.Sprintf("exactly one of %s, %s, %s, %s must be set, got %d [%s]",
				KeyKeepOnlyTransactions, KeyRenameAccount, KeyRenameCommodity, KeyModuleName,
				len(present), strings.Join(present, ", ")),
		}
	}

	if raw.TidyTransactions != nil && raw.KeepOnlyTransactions == nil {
		ignored(i, KeyTidyTransactions, present[0])
	}
	if raw.StringConfig != nil && raw.ModuleName == nil {
		ignored(i, KeyStringConfig, present[0])
	}

	switch {
	case raw.KeepOnlyTransactions != nil:
		return KeepOnlyTransactions{
			Keep: *raw.KeepOnlyTransactions,
			Tidy: raw.TidyTransactions != nil && *raw.TidyTransactions,
		}, nil
	case raw.RenameAccount != nil:
		if err := raw.RenameAccount.validate(i, KeyRenameAccount); err != nil {
			return nil, err
		}
		return RenameAccount{Old: ledger.Account(raw.RenameAccount.Old), New: ledger.Account(raw.RenameAccount.New)}, nil
	case raw.RenameCommodity != nil:
		if err := raw.RenameCommodity.validate(i, KeyRenameCommodity); err != nil {
			return nil, err
		}
		return RenameCommodity{Old: ledger.Commodity(raw.RenameCommodity.Old), New: ledger.Commodity(raw.RenameCommodity.New)}, nil
	default:
		if strings.TrimSpace(*raw.ModuleName) == "" {
			return nil, &ValidationError{Index: i, Field: KeyModuleName, Constraint: "must not be empty"}
		}
		return Plugin{ModuleName: *raw.ModuleName, StringConfig: raw.StringConfig}, nil
	}
}

func (p *renamePair) validate(i int, key string) error {
	var errs error
	if strings.TrimSpace(p.Old) == "" {
		errs = multierr.Append(errs, &ValidationError{Index: i, Field: key + ".old", Constraint: "must not be empty"})
	}
	if strings.TrimSpace(p.New) == "" {
		errs = multierr.Append(errs, &ValidationError{Index: i, Field: key + ".new", Constraint: "must not be empty"})
	}
	return errs
}

func ignored(i int, key, kind string) {
	logging.L().Warn("config: ignoring key outside its action",
		zap.Int("index", i), zap.String("key", key), zap.String("action", kind))
}

func nodeKind(n *yaml.Node) string {
	switch n.Kind {
	case yaml.ScalarNode:
		return "scalar"
	case yaml.SequenceNode:
		return "sequence"
	case yaml.MappingNode:
		return "mapping"
	case yaml.AliasNode:
		return "alias"
	default:
		return "document"
	}
}
