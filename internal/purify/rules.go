// Package purify removes comments from LaTeX source and applies command removal
// and short-circuit rules.
package purify

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// DefaultRemovedCommands are removed in addition to the configured commands
// unless a short-circuit rule names them.
var DefaultRemovedCommands = []string{"comment"}

// ErrConflictingRules reports a command name listed for both removal and short-circuiting.
var ErrConflictingRules = errors.New("command listed for both removal and short-circuit")

// RuleAction is what happens to an invocation of a ruled command.
type RuleAction int

const (
	// ActionNone leaves the invocation untouched.
	ActionNone RuleAction = iota
	// ActionRemove deletes the invocation with all of its arguments.
	ActionRemove
	// ActionShortCircuit replaces the invocation with the content of its primary argument.
	ActionShortCircuit
)

// Rules maps command names to actions. The zero value has no rules.
type Rules struct {
	actions map[string]RuleAction
}

// WithDefaultRemovals returns remove extended by DefaultRemovedCommands. Defaults
// already listed or named in shortCircuit are left out.
func WithDefaultRemovals(remove []string, shortCircuit []string) []string {
	excluded := map[string]struct{}{}
	for _, name := range append(append([]string{}, remove...), shortCircuit...) {
		excluded[normalizeCommandName(name)] = struct{}{}
	}
	effective := append([]string{}, remove...)
	for _, name := range DefaultRemovedCommands {
		if _, skip := excluded[name]; skip {
			continue
		}
		effective = append(effective, name)
	}
	return effective
}

// NewRules builds a rule set. Names are trimmed, a leading backslash is dropped and empty names are skipped.
func NewRules(remove []string, shortCircuit []string) (Rules, error) {
	rules := Rules{actions: map[string]RuleAction{}}
	for _, name := range remove {
		if normalized := normalizeCommandName(name); normalized != "" {
			rules.actions[normalized] = ActionRemove
		}
	}
	var conflicts []string
	for _, name := range shortCircuit {
		normalized := normalizeCommandName(name)
		if normalized == "" {
			continue
		}
		if rules.actions[normalized] == ActionRemove {
			conflicts = append(conflicts, normalized)
			continue
		}
		rules.actions[normalized] = ActionShortCircuit
	}
	if len(conflicts) > 0 {
		sort.Strings(conflicts)
		return Rules{}, fmt.Errorf("%w: %s", ErrConflictingRules, strings.Join(conflicts, ", "))
	}
	return rules, nil
}

// Action returns the action registered for name.
func (rules Rules) Action(name string) RuleAction {
	return rules.actions[name]
}

// Names returns the sorted command names registered for action.
func (rules Rules) Names(action RuleAction) []string {
	var names []string
	for name, registered := range rules.actions {
		if registered == action {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names
}

// Empty reports whether no rule is registered.
func (rules Rules) Empty() bool {
	return len(rules.actions) == 0
}

func normalizeCommandName(name string) string {
	return strings.TrimPrefix(strings.TrimSpace(name), `\`)
}
