// Package policy classifies provider commands into risk tiers and decides
// whether they may run under the configured security mode.
package policy

import (
	"fmt"
	"strings"

	"github.com/opsgate/opsgate/internal/config"
	"github.com/opsgate/opsgate/internal/provider"
)

// RiskTier orders commands from read-only to account-compromising.
type RiskTier int

const (
	TierSafe RiskTier = iota
	TierLow
	TierMedium
	TierHigh
	TierCritical
)

func (t RiskTier) String() string {
	switch t {
	case TierSafe:
		return "safe"
	case TierLow:
		return "low"
	case TierMedium:
		return "medium"
	case TierHigh:
		return "high"
	case TierCritical:
		return "critical"
	}
	return "unknown"
}

// Category names a family of dangerous operations.
type Category string

const (
	CategoryNone     Category = ""
	CategoryIdentity Category = "identity"
	CategorySecrets  Category = "secrets"
	CategoryLogging  Category = "logging"
	CategoryNetwork  Category = "network"
	CategoryProject  Category = "project"
	CategoryCompute  Category = "compute"
	CategoryStorage  Category = "storage"
	CategoryDatabase Category = "database"
	CategoryAuth     Category = "auth"
)

// Decision is the outcome of validating one command.
type Decision struct {
	Allowed  bool
	Tier     RiskTier
	Category Category
	Reason   string
	Warning  string
}

// Engine evaluates commands against the per-provider tables.
type Engine struct {
	mode     config.Mode
	warnTier RiskTier
}

// New returns an engine for the given mode with the default warn
// threshold of TierMedium.
func New(mode config.Mode) *Engine {
	return &Engine{mode: mode, warnTier: TierMedium}
}

// SetWarnTier adjusts the tier at which permissive mode starts warning.
func (e *Engine) SetWarnTier(t RiskTier) {
	e.warnTier = t
}

// Mode returns the engine's security mode.
func (e *Engine) Mode() config.Mode {
	return e.mode
}

// Classify assigns a risk tier and, when a block-list category matched,
// the category name. Classification is deterministic: the categorized
// tables are walked in declared order and the first match wins.
func Classify(kind provider.Kind, args []string) (RiskTier, Category) {
	if len(args) == 0 {
		return TierLow, CategoryNone
	}

	if isHelpCommand(args) || hasReadOnlyVerb(kind, args) {
		return TierSafe, CategoryNone
	}

	normalized := strings.ToLower(strings.Join(args, " "))
	for _, cat := range blockList(kind) {
		for _, prefix := range cat.prefixes {
			if strings.HasPrefix(normalized, prefix) {
				return cat.tier, cat.name
			}
		}
	}

	return TierLow, CategoryNone
}

// Validate applies the security mode to a classified command. Strict mode
// denies any block-listed command at TierMedium or above; permissive mode
// allows everything but attaches a warning from the warn threshold up.
func (e *Engine) Validate(kind provider.Kind, args []string) Decision {
	tier, category := Classify(kind, args)

	d := Decision{Allowed: true, Tier: tier, Category: category}
	if category == CategoryNone || tier < TierMedium {
		return d
	}

	reason := fmt.Sprintf("%s-mutating command blocked in strict mode (category=%s)", category, category)
	if e.mode == config.ModeStrict {
		d.Allowed = false
		d.Reason = reason
		return d
	}

	if tier >= e.warnTier {
		d.Warning = fmt.Sprintf("%s-mutating command allowed in permissive mode (category=%s, tier=%s)", category, category, tier)
	}
	return d
}

// isHelpCommand treats help and dry-run invocations as read-only.
func isHelpCommand(args []string) bool {
	for _, a := range args {
		switch a {
		case "help", "--help", "--version", "--dry-run":
			return true
		}
	}
	return false
}

// hasReadOnlyVerb scans the command-position tokens (everything before
// the first flag) for the provider's read-only verb set. AWS verbs are
// hyphenated prefixes (describe-instances); Azure and GCP verbs are
// exact tokens.
func hasReadOnlyVerb(kind provider.Kind, args []string) bool {
	prefixVerbs, exactVerbs := readOnlyVerbs(kind)

	for i, tok := range args {
		if i == 0 {
			continue
		}
		if strings.HasPrefix(tok, "-") {
			break
		}
		lower := strings.ToLower(tok)
		for _, v := range exactVerbs {
			if lower == v {
				return true
			}
		}
		for _, v := range prefixVerbs {
			if strings.HasPrefix(lower, v) {
				return true
			}
		}
	}
	return false
}
