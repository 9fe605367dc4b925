// Package nlp maps natural-language phrases to canonical provider CLI
// commands through per-provider dictionaries. Matching is substring based:
// the longest dictionary phrase contained in the normalized input wins.
package nlp

import (
	"regexp"
	"sort"
	"strings"

	"github.com/opsgate/opsgate/internal/provider"
)

type entry struct {
	phrase  string
	command string
}

// Interpreter resolves free-form text against the provider dictionaries.
// The dictionaries are built once at construction and read-only after.
type Interpreter struct {
	entries map[provider.Kind][]entry
}

var (
	politenessPrefix = regexp.MustCompile(`^(please|can you|could you|would you|i want to|i need to|i would like to)\s+`)
	trailingFiller   = regexp.MustCompile(`\s+for me$`)
	whitespace       = regexp.MustCompile(`\s+`)
)

// New builds an interpreter with the built-in dictionaries, sorted so the
// longest phrase is tried first. Sorting is stable: phrases of equal
// length keep their declared order.
func New() *Interpreter {
	in := &Interpreter{entries: make(map[provider.Kind][]entry, 3)}
	for kind, dict := range map[provider.Kind][]entry{
		provider.AWS:   awsDictionary,
		provider.Azure: azureDictionary,
		provider.GCP:   gcpDictionary,
	} {
		sorted := make([]entry, len(dict))
		copy(sorted, dict)
		sort.SliceStable(sorted, func(i, j int) bool {
			return len(sorted[i].phrase) > len(sorted[j].phrase)
		})
		in.entries[kind] = sorted
	}
	return in
}

// Interpret returns the canonical command for the first (longest) phrase
// contained in text, or false when nothing matches.
func (in *Interpreter) Interpret(kind provider.Kind, text string) (string, bool) {
	normalized := normalize(text)
	if normalized == "" {
		return "", false
	}
	for _, e := range in.entries[kind] {
		if strings.Contains(normalized, e.phrase) {
			return e.command, true
		}
	}
	return "", false
}

// Phrases returns the dictionary size for a provider, used by callers
// that surface interpreter coverage.
func (in *Interpreter) Phrases(kind provider.Kind) int {
	return len(in.entries[kind])
}

func normalize(text string) string {
	text = strings.ToLower(strings.TrimSpace(text))
	text = politenessPrefix.ReplaceAllString(text, "")
	text = trailingFiller.ReplaceAllString(text, "")
	return whitespace.ReplaceAllString(text, " ")
}
