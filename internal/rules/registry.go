package rules

import (
	"errors"
	"fmt"
	"iter"
	"strings"
)

var (
	ErrDuplicateRuleID = errors.New("duplicate rule id")
	ErrUnknownRule     = errors.New("unknown rule")
)

// Registry is an ordered collection of rules keyed by id and code.
type Registry struct {
	rules []Rule
	byKey map[string]Rule
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{byKey: make(map[string]Rule)}
}

// Register appends rule. It fails with ErrDuplicateRuleID when the rule's
// id or code is already taken.
func (r *Registry) Register(rule Rule) error {
	if rule == nil {
		return errors.New("cannot register nil rule")
	}
	if rule.ID() == "" {
		return errors.New("rule id must not be empty")
	}
	keys := ruleKeys(rule)
	for _, k := range keys {
		if _, exists := r.byKey[k]; exists {
			return fmt.Errorf("%w: %s", ErrDuplicateRuleID, k)
		}
	}
	for _, k := range keys {
		r.byKey[k] = rule
	}
	r.rules = append(r.rules, rule)
	return nil
}

// MustRegister is Register for static rule sets; it panics on error.
func (r *Registry) MustRegister(rules ...Rule) {
	for _, rule := range rules {
		if err := r.Register(rule); err != nil {
			panic(err)
		}
	}
}

// All yields the rules in registration order. The sequence may be ranged
// over any number of times.
func (r *Registry) All() iter.Seq[Rule] {
	return func(yield func(Rule) bool) {
		for _, rule := range r.rules {
			if !yield(rule) {
				return
			}
		}
	}
}

// Get looks a rule up by id or code, case-insensitively.
func (r *Registry) Get(idOrCode string) (Rule, bool) {
	rule, ok := r.byKey[normalizeKey(idOrCode)]
	return rule, ok
}

// Len returns the number of registered rules.
func (r *Registry) Len() int { return len(r.rules) }

// IDs returns rule ids in registration order.
func (r *Registry) IDs() []string {
	ids := make([]string, 0, len(r.rules))
	for _, rule := range r.rules {
		ids = append(ids, rule.ID())
	}
	return ids
}

// Without returns a new registry holding every rule except the ones named
// by keys (ids or codes). Unknown keys fail with ErrUnknownRule.
func (r *Registry) Without(keys ...string) (*Registry, error) {
	drop := make(map[string]bool, len(keys))
	for _, k := range keys {
		rule, ok := r.Get(k)
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrUnknownRule, k)
		}
		drop[rule.ID()] = true
	}

	out := NewRegistry()
	for _, rule := range r.rules {
		if drop[rule.ID()] {
			continue
		}
		if err := out.Register(rule); err != nil {
			return nil, err
		}
	}
	return out, nil
}

func ruleKeys(rule Rule) []string {
	keys := []string{normalizeKey(rule.ID())}
	if code := normalizeKey(rule.Code()); code != "" && code != keys[0] {
		keys = append(keys, code)
	}
	return keys
}

func normalizeKey(k string) string {
	return strings.ToLower(strings.TrimSpace(k))
}
