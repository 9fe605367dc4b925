// Package playbook defines remediation playbooks and the engine that runs
// them: ordered actions with approval gates, dry-run, rollback, and an
// auditable execution history.
package playbook

import (
	"fmt"
	"time"
)

// Finding is the security finding a playbook remediates. The engine reads
// findings and never mutates them.
type Finding struct {
	ID              string `json:"id" yaml:"id"`
	Category        string `json:"category" yaml:"category"`
	Severity        string `json:"severity" yaml:"severity"`
	Resource        string `json:"resource" yaml:"resource"`
	RemediationHint string `json:"remediation_hint,omitempty" yaml:"remediation_hint,omitempty"`
}

// Predicate decides at run time whether an action applies to a finding.
type Predicate func(Finding) bool

// Action is one step of a playbook. Params are interpreted by the
// handler registered for Kind. RollbackRef names the rollback sub-handler;
// empty means "same as Kind".
type Action struct {
	Name        string
	Kind        string
	Params      map[string]any
	Predicate   Predicate
	RollbackRef string
}

// Playbook is an immutable ordered remediation plan. Construct one with
// Builder; the zero value is invalid.
type Playbook struct {
	id               string
	name             string
	description      string
	category         string
	severity         string
	prerequisites    []string
	actions          []Action
	requiresApproval bool
	rollbackEnabled  bool
	timeout          time.Duration
}

func (p *Playbook) ID() string            { return p.id }
func (p *Playbook) Name() string          { return p.name }
func (p *Playbook) Description() string   { return p.description }
func (p *Playbook) Category() string      { return p.category }
func (p *Playbook) Severity() string      { return p.severity }
func (p *Playbook) RequiresApproval() bool { return p.requiresApproval }
func (p *Playbook) RollbackEnabled() bool { return p.rollbackEnabled }
func (p *Playbook) Timeout() time.Duration { return p.timeout }

// Prerequisites returns a copy of the prerequisite check names.
func (p *Playbook) Prerequisites() []string {
	out := make([]string, len(p.prerequisites))
	copy(out, p.prerequisites)
	return out
}

// Actions returns a copy of the action list.
func (p *Playbook) Actions() []Action {
	out := make([]Action, len(p.actions))
	copy(out, p.actions)
	return out
}

// Builder assembles a playbook. All setters return the builder for
// chaining; Build freezes the result.
type Builder struct {
	p Playbook
}

// NewBuilder starts a playbook with approval required and rollback
// enabled. Remediation mutates cloud state, so both default to the
// cautious setting.
func NewBuilder(id, name string) *Builder {
	return &Builder{p: Playbook{
		id:               id,
		name:             name,
		requiresApproval: true,
		rollbackEnabled:  true,
		timeout:          5 * time.Minute,
	}}
}

func (b *Builder) Description(d string) *Builder {
	b.p.description = d
	return b
}

func (b *Builder) Category(c string) *Builder {
	b.p.category = c
	return b
}

func (b *Builder) Severity(s string) *Builder {
	b.p.severity = s
	return b
}

func (b *Builder) RequireApproval(required bool) *Builder {
	b.p.requiresApproval = required
	return b
}

func (b *Builder) EnableRollback(enabled bool) *Builder {
	b.p.rollbackEnabled = enabled
	return b
}

func (b *Builder) Timeout(d time.Duration) *Builder {
	b.p.timeout = d
	return b
}

func (b *Builder) AddPrerequisite(checkName string) *Builder {
	b.p.prerequisites = append(b.p.prerequisites, checkName)
	return b
}

// AddAction appends an unconditional action.
func (b *Builder) AddAction(name, kind string, params map[string]any) *Builder {
	b.p.actions = append(b.p.actions, Action{Name: name, Kind: kind, Params: params})
	return b
}

// AddConditionalAction appends an action gated by a predicate over the
// finding.
func (b *Builder) AddConditionalAction(name, kind string, params map[string]any, pred Predicate) *Builder {
	b.p.actions = append(b.p.actions, Action{Name: name, Kind: kind, Params: params, Predicate: pred})
	return b
}

// AddActionWithRollback appends an action whose rollback is dispatched to
// a differently named sub-handler.
func (b *Builder) AddActionWithRollback(name, kind string, params map[string]any, rollbackRef string) *Builder {
	b.p.actions = append(b.p.actions, Action{Name: name, Kind: kind, Params: params, RollbackRef: rollbackRef})
	return b
}

// Build validates structure and returns the frozen playbook. Handler
// resolution is checked separately by Executor.Validate, which knows the
// registry.
func (b *Builder) Build() (*Playbook, error) {
	p := b.p
	if p.id == "" {
		return nil, fmt.Errorf("playbook id is required")
	}
	if p.name == "" {
		return nil, fmt.Errorf("playbook name is required")
	}
	if len(p.actions) == 0 {
		return nil, fmt.Errorf("playbook %s has no actions", p.id)
	}

	seen := make(map[string]bool, len(p.actions))
	for _, a := range p.actions {
		if a.Name == "" {
			return nil, fmt.Errorf("playbook %s has an unnamed action", p.id)
		}
		if a.Kind == "" {
			return nil, fmt.Errorf("action %s has no kind", a.Name)
		}
		if seen[a.Name] {
			return nil, fmt.Errorf("duplicate action name %q in playbook %s", a.Name, p.id)
		}
		seen[a.Name] = true
	}

	frozen := p
	frozen.prerequisites = append([]string(nil), p.prerequisites...)
	frozen.actions = append([]Action(nil), p.actions...)
	return &frozen, nil
}
