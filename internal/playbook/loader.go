package playbook

import (
	_ "embed"
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

//go:embed catalog.yaml
var builtinCatalog []byte

// playbookSpec is the YAML shape of one playbook definition.
type playbookSpec struct {
	ID               string       `yaml:"id"`
	Name             string       `yaml:"name"`
	Description      string       `yaml:"description"`
	Category         string       `yaml:"category"`
	Severity         string       `yaml:"severity"`
	RequiresApproval *bool        `yaml:"requires_approval"`
	RollbackEnabled  *bool        `yaml:"rollback_enabled"`
	Timeout          string       `yaml:"timeout"`
	Prerequisites    []string     `yaml:"prerequisites"`
	Actions          []actionSpec `yaml:"actions"`
}

type actionSpec struct {
	Name        string         `yaml:"name"`
	Kind        string         `yaml:"kind"`
	Params      map[string]any `yaml:"params"`
	RollbackRef string         `yaml:"rollback_ref"`
	When        *whenSpec      `yaml:"when"`
}

// whenSpec is a declarative predicate over the finding. All set fields
// must match (case-insensitive).
type whenSpec struct {
	Category string `yaml:"category"`
	Severity string `yaml:"severity"`
}

type catalogSpec struct {
	Playbooks []playbookSpec `yaml:"playbooks"`
}

// LoadCatalog parses the embedded playbook catalog.
func LoadCatalog() ([]*Playbook, error) {
	return parseCatalog(builtinCatalog)
}

// LoadFile parses a user-supplied catalog file in the same format as the
// embedded one.
func LoadFile(path string) ([]*Playbook, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read playbook catalog: %w", err)
	}
	return parseCatalog(data)
}

func parseCatalog(data []byte) ([]*Playbook, error) {
	var spec catalogSpec
	if err := yaml.Unmarshal(data, &spec); err != nil {
		return nil, fmt.Errorf("failed to parse playbook catalog: %w", err)
	}
	if len(spec.Playbooks) == 0 {
		return nil, fmt.Errorf("playbook catalog defines no playbooks")
	}

	out := make([]*Playbook, 0, len(spec.Playbooks))
	seen := make(map[string]bool, len(spec.Playbooks))
	for _, ps := range spec.Playbooks {
		if seen[ps.ID] {
			return nil, fmt.Errorf("duplicate playbook id %q in catalog", ps.ID)
		}
		seen[ps.ID] = true

		p, err := ps.build()
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, nil
}

func (ps playbookSpec) build() (*Playbook, error) {
	b := NewBuilder(ps.ID, ps.Name).
		Description(ps.Description).
		Category(ps.Category).
		Severity(ps.Severity)

	if ps.RequiresApproval != nil {
		b.RequireApproval(*ps.RequiresApproval)
	}
	if ps.RollbackEnabled != nil {
		b.EnableRollback(*ps.RollbackEnabled)
	}
	if ps.Timeout != "" {
		d, err := time.ParseDuration(ps.Timeout)
		if err != nil {
			return nil, fmt.Errorf("playbook %s has invalid timeout %q: %w", ps.ID, ps.Timeout, err)
		}
		b.Timeout(d)
	}
	for _, pre := range ps.Prerequisites {
		b.AddPrerequisite(pre)
	}

	for _, as := range ps.Actions {
		action := Action{
			Name:        as.Name,
			Kind:        as.Kind,
			Params:      as.Params,
			RollbackRef: as.RollbackRef,
		}
		if as.When != nil {
			action.Predicate = as.When.predicate()
		}
		b.p.actions = append(b.p.actions, action)
	}
	return b.Build()
}

func (w whenSpec) predicate() Predicate {
	return func(f Finding) bool {
		if w.Category != "" && !strings.EqualFold(w.Category, f.Category) {
			return false
		}
		if w.Severity != "" && !strings.EqualFold(w.Severity, f.Severity) {
			return false
		}
		return true
	}
}
