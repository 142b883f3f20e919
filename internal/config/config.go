package config

import (
	_ "embed"
	"errors"
	"fmt"

	"gopkg.in/yaml.v3"

	"github.com/ahrav/fringeproc/internal/domain/uistate"
)

//go:embed default_catalog.yaml
var defaultCatalog []byte

// ErrDuplicateAction is returned when a catalog names the same action twice.
var ErrDuplicateAction = errors.New("duplicate action")

// UnknownFlagError reports a constraint naming a flag outside the vocabulary.
type UnknownFlagError struct {
	Action string
	Flag   string
}

func (e *UnknownFlagError) Error() string {
	return fmt.Sprintf("action %q: unknown state flag %q", e.Action, e.Flag)
}

// Catalog is the declarative list of interactive actions and the states in
// which each is enabled.
type Catalog struct {
	Actions []ActionSpec `yaml:"actions"`
}

// ActionSpec describes one action's constraint. Exactly one form is expected:
//
//	any_of:     enabled when any listed flag is active
//	all:        enabled in every state
//	all_except: enabled when any flag other than the listed ones is active
//
// An ActionSpec with no form yields an empty constraint and the action stays disabled.
type ActionSpec struct {
	Name      string   `yaml:"name"`
	AnyOf     []string `yaml:"any_of,omitempty"`
	All       bool     `yaml:"all,omitempty"`
	AllExcept []string `yaml:"all_except,omitempty"`
}

// Constraint resolves the action spec against the vocabulary.
func (a ActionSpec) Constraint() (uistate.Set, error) {
	switch {
	case a.All:
		return uistate.Vocabulary(), nil
	case len(a.AllExcept) > 0:
		excluded, err := a.parse(a.AllExcept)
		if err != nil {
			return uistate.Set{}, err
		}
		return uistate.Vocabulary().Without(excluded...), nil
	default:
		flags, err := a.parse(a.AnyOf)
		if err != nil {
			return uistate.Set{}, err
		}
		return uistate.NewSet(flags...), nil
	}
}

func (a ActionSpec) parse(names []string) ([]uistate.StateFlag, error) {
	flags := make([]uistate.StateFlag, 0, len(names))
	for _, n := range names {
		f, err := uistate.ParseStateFlag(n)
		if err != nil {
			return nil, &UnknownFlagError{Action: a.Name, Flag: n}
		}
		flags = append(flags, f)
	}
	return flags, nil
}

// Validate checks names are present and unique and every flag is known.
func (c *Catalog) Validate() error {
	seen := make(map[string]struct{}, len(c.Actions))
	for i, a := range c.Actions {
		if a.Name == "" {
			return fmt.Errorf("action %d: name is required", i)
		}
		if _, dup := seen[a.Name]; dup {
			return fmt.Errorf("%w: %q", ErrDuplicateAction, a.Name)
		}
		seen[a.Name] = struct{}{}
		if _, err := a.Constraint(); err != nil {
			return err
		}
	}
	return nil
}

// ParseCatalog decodes and validates a YAML catalog.
func ParseCatalog(data []byte) (*Catalog, error) {
	var c Catalog
	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("failed to parse catalog: %w", err)
	}
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("invalid catalog: %w", err)
	}
	return &c, nil
}

// DefaultCatalog returns the built-in menu: file open, open mask, close,
// save, quit and the two phase operations.
func DefaultCatalog() *Catalog {
	c, err := ParseCatalog(defaultCatalog)
	if err != nil {
		panic(fmt.Sprintf("embedded catalog: %v", err))
	}
	return c
}
