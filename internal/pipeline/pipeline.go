// Package pipeline splits user command text into pipe-separated stages and
// tokenizes each stage without ever consulting a shell. Shell metacharacters
// outside of quotes are rejected outright; the only composition the gateway
// supports is piping a provider command through a short allowlist of text
// utilities.
package pipeline

import (
	"fmt"
	"strings"

	"github.com/opsgate/opsgate/internal/provider"
)

// Stage is one command in a pipe-separated sequence. Stage 0 is the
// provider stage; later stages are text utilities.
type Stage struct {
	Raw  string
	Args []string
}

// allowedUtilities are the only commands permitted after the first pipe.
var allowedUtilities = map[string]bool{
	"grep": true,
	"head": true,
	"tail": true,
	"cut":  true,
	"awk":  true,
	"sort": true,
	"uniq": true,
	"wc":   true,
	"sed":  true,
}

// AllowedUtility reports whether name may appear as a pipeline stage
// after the provider stage.
func AllowedUtility(name string) bool {
	return allowedUtilities[name]
}

// Parse splits command on unquoted pipes and tokenizes each stage.
func Parse(command string) ([]Stage, error) {
	parts, err := splitPipes(command)
	if err != nil {
		return nil, err
	}

	stages := make([]Stage, 0, len(parts))
	for i, part := range parts {
		part = strings.TrimSpace(part)
		if part == "" {
			return nil, fmt.Errorf("empty command at position %d in pipe", i)
		}
		args, err := Tokenize(part)
		if err != nil {
			return nil, err
		}
		if len(args) == 0 {
			return nil, fmt.Errorf("empty command at position %d in pipe", i)
		}
		stages = append(stages, Stage{Raw: part, Args: args})
	}

	if len(stages) == 0 {
		return nil, fmt.Errorf("empty command")
	}
	return stages, nil
}

// Validate checks that stage 0 belongs to the provider and every later
// stage starts with an allowed text utility.
func Validate(kind provider.Kind, stages []Stage) error {
	if len(stages) == 0 {
		return fmt.Errorf("empty command")
	}
	if !kind.HasPrefix(stages[0].Args) {
		return fmt.Errorf("command must start with one of %s", strings.Join(kind.Prefixes(), ", "))
	}
	for i, st := range stages[1:] {
		name := st.Args[0]
		if !AllowedUtility(name) {
			return fmt.Errorf("command %q at position %d in pipe is not allowed; only basic text utilities may follow a provider command", name, i+1)
		}
	}
	return nil
}

// splitPipes walks the string and splits on pipes that are not inside
// quotes. Forbidden shell metacharacters terminate the walk with an error
// wherever they appear outside quotes.
func splitPipes(s string) ([]string, error) {
	var (
		parts    []string
		current  strings.Builder
		inSingle bool
		inDouble bool
		escaped  bool
	)

	runes := []rune(s)
	for i := 0; i < len(runes); i++ {
		ch := runes[i]

		if escaped {
			current.WriteRune(ch)
			escaped = false
			continue
		}

		switch {
		case ch == '\\' && !inSingle:
			escaped = true
			current.WriteRune(ch)
		case ch == '\'' && !inDouble:
			inSingle = !inSingle
			current.WriteRune(ch)
		case ch == '"' && !inSingle:
			inDouble = !inDouble
			current.WriteRune(ch)
		case inSingle || inDouble:
			current.WriteRune(ch)
		case ch == '|':
			parts = append(parts, current.String())
			current.Reset()
		case ch == ';' || ch == '&' || ch == '`' || ch == '<' || ch == '>':
			return nil, fmt.Errorf("shell metacharacter %q is not allowed", string(ch))
		case ch == '$' && i+1 < len(runes) && runes[i+1] == '(':
			return nil, fmt.Errorf("command substitution is not allowed")
		default:
			current.WriteRune(ch)
		}
	}

	if inSingle || inDouble {
		return nil, fmt.Errorf("unbalanced quotes in command")
	}
	if escaped {
		return nil, fmt.Errorf("trailing escape character in command")
	}

	parts = append(parts, current.String())
	return parts, nil
}

// Tokenize performs POSIX-style word splitting: whitespace separates
// words, single quotes preserve everything literally, double quotes
// preserve everything except backslash escapes.
func Tokenize(s string) ([]string, error) {
	var (
		args     []string
		current  strings.Builder
		inWord   bool
		inSingle bool
		inDouble bool
		escaped  bool
	)

	flush := func() {
		if inWord {
			args = append(args, current.String())
			current.Reset()
			inWord = false
		}
	}

	for _, ch := range s {
		if escaped {
			current.WriteRune(ch)
			inWord = true
			escaped = false
			continue
		}

		switch {
		case ch == '\\' && !inSingle:
			escaped = true
			inWord = true
		case ch == '\'' && !inDouble:
			inSingle = !inSingle
			inWord = true
		case ch == '"' && !inSingle:
			inDouble = !inDouble
			inWord = true
		case (ch == ' ' || ch == '\t' || ch == '\n') && !inSingle && !inDouble:
			flush()
		default:
			current.WriteRune(ch)
			inWord = true
		}
	}

	if inSingle || inDouble {
		return nil, fmt.Errorf("unbalanced quotes in command")
	}
	if escaped {
		return nil, fmt.Errorf("trailing escape character in command")
	}
	flush()

	return args, nil
}
