// Package rules defines the Rule contract, the ordered Rule Registry and the
// built-in Rust anti-pattern rules.
package rules

import (
	"errors"
	"fmt"
	"strings"

	"ferrolint/internal/source"
)

// Severity classifies how serious a Finding is.
type Severity string

const (
	SeverityInfo    Severity = "info"
	SeverityWarning Severity = "warning"
	SeverityError   Severity = "error"
)

// Rank orders severities; unknown values rank below info.
func (s Severity) Rank() int {
	switch s {
	case SeverityInfo:
		return 1
	case SeverityWarning:
		return 2
	case SeverityError:
		return 3
	}
	return 0
}

// AtLeast reports whether s is as serious as min.
func (s Severity) AtLeast(min Severity) bool { return s.Rank() >= min.Rank() }

// ParseSeverity accepts error, warning (or warn) and info, case-insensitively.
func ParseSeverity(s string) (Severity, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "error":
		return SeverityError, nil
	case "warning", "warn":
		return SeverityWarning, nil
	case "info", "note":
		return SeverityInfo, nil
	}
	return "", fmt.Errorf("unknown severity %q", s)
}

// Match is what a predicate reports for one item.
type Match struct {
	Span    source.Span
	Message string
}

// Rule is a stateless predicate over a single item of the Source Model.
type Rule interface {
	ID() string
	Code() string
	Description() string
	Severity() Severity
	// Check returns nil when the item does not exhibit the pattern.
	Check(ctx *Context, item *source.Item) *Match
}

// ErrUnsupportedFix is returned when a fix is requested from a rule that
// declares none.
var ErrUnsupportedFix = errors.New("rule has no fix")

// Edit is a replacement of Span (whose current text is OldText) by NewText.
type Edit struct {
	Span        source.Span
	OldText     string
	NewText     string
	Description string
}

// Fixable is implemented by rules with a deterministic rewrite.
type Fixable interface {
	Rule
	Fix(file *source.File, f Finding) (Edit, error)
}

// IsFixable reports whether r declares a fix.
func IsFixable(r Rule) bool {
	_, ok := r.(Fixable)
	return ok
}

// Finding is one reported instance of a Rule matching an Item.
type Finding struct {
	RuleID      string          `json:"rule_id"`
	Code        string          `json:"code"`
	Path        string          `json:"path"`
	Span        source.Span     `json:"span"`
	Start       source.Position `json:"start"`
	End         source.Position `json:"end"`
	Severity    Severity        `json:"severity"`
	Message     string          `json:"message"`
	Fixable     bool            `json:"fixable"`
	Fingerprint string          `json:"fingerprint"`
}

// meta carries the identity shared by every built-in rule.
type meta struct {
	id          string
	code        string
	description string
	severity    Severity
}

func (m meta) ID() string          { return m.id }
func (m meta) Code() string        { return m.code }
func (m meta) Description() string { return m.description }
func (m meta) Severity() Severity  { return m.severity }
