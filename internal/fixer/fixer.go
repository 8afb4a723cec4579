// Package fixer turns findings of fixable rules into validated text edits
// and applies them to files.
package fixer

import (
	"errors"
	"fmt"
	"sort"

	"ferrolint/internal/rules"
	"ferrolint/internal/source"

	"go.uber.org/zap"
)

var (
	// ErrUnsupportedFix matches rules.ErrUnsupportedFix.
	ErrUnsupportedFix   = rules.ErrUnsupportedFix
	ErrOverlappingFixes = errors.New("overlapping fix proposals")
	ErrInvalidProposal  = errors.New("invalid fix proposal")
)

// FixProposal is a replacement of Span, whose current text is OldText.
type FixProposal struct {
	RuleID      string      `json:"rule_id"`
	Code        string      `json:"code"`
	Path        string      `json:"path"`
	Span        source.Span `json:"span"`
	OldText     string      `json:"old_text"`
	Replacement string      `json:"replacement"`
	Description string      `json:"description"`
}

// SkippedFix records a finding for which no proposal was made.
type SkippedFix struct {
	RuleID string `json:"rule_id"`
	Line   int    `json:"line"`
	Reason string `json:"reason"`
}

// Fixer computes fix proposals using the rules of a registry.
type Fixer struct {
	registry *rules.Registry
	logger   *zap.Logger
}

// New creates a fixer. A nil logger disables logging.
func New(reg *rules.Registry, logger *zap.Logger) *Fixer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Fixer{registry: reg, logger: logger}
}

// Propose returns the proposal for finding f of file. It fails with
// ErrUnsupportedFix when the rule declares no fix, and with
// ErrInvalidProposal when the rule's edit would touch text outside the
// finding or does not match the file.
func (fx *Fixer) Propose(file *source.File, f rules.Finding) (FixProposal, error) {
	rule, ok := fx.registry.Get(f.RuleID)
	if !ok {
		return FixProposal{}, fmt.Errorf("%w: %s", rules.ErrUnknownRule, f.RuleID)
	}
	fixable, ok := rule.(rules.Fixable)
	if !ok {
		return FixProposal{}, fmt.Errorf("%w: %s", ErrUnsupportedFix, rule.ID())
	}
	edit, err := fixable.Fix(file, f)
	if err != nil {
		return FixProposal{}, fmt.Errorf("%w: %s: %v", ErrInvalidProposal, rule.ID(), err)
	}

	p := FixProposal{
		RuleID:      rule.ID(),
		Code:        rule.Code(),
		Path:        file.Path,
		Span:        edit.Span,
		OldText:     edit.OldText,
		Replacement: edit.NewText,
		Description: edit.Description,
	}
	if err := validate(file.Content, p); err != nil {
		return FixProposal{}, err
	}
	if !f.Span.Contains(p.Span) {
		return FixProposal{}, fmt.Errorf("%w: %s edit %d-%d leaves finding span %d-%d",
			ErrInvalidProposal, rule.ID(), p.Span.Start, p.Span.End, f.Span.Start, f.Span.End)
	}
	return p, nil
}

// ProposeAll returns proposals for every fixable finding, in finding order,
// and the findings that were skipped with the reason.
func (fx *Fixer) ProposeAll(file *source.File, findings []rules.Finding) ([]FixProposal, []SkippedFix) {
	var proposals []FixProposal
	var skipped []SkippedFix
	for _, f := range findings {
		p, err := fx.Propose(file, f)
		if err != nil {
			reason := err.Error()
			if errors.Is(err, ErrUnsupportedFix) {
				reason = "no automatic fix"
			} else {
				fx.logger.Warn("fix proposal rejected",
					zap.String("path", file.Path),
					zap.String("rule", f.RuleID),
					zap.Int("line", f.Start.Line),
					zap.Error(err),
				)
			}
			skipped = append(skipped, SkippedFix{RuleID: f.RuleID, Line: f.Start.Line, Reason: reason})
			continue
		}
		proposals = append(proposals, p)
	}
	return proposals, skipped
}

// Apply returns content with every proposal applied. Proposals must not
// overlap; if any do, Apply fails with ErrOverlappingFixes and returns no
// content. Bytes outside the proposal spans are preserved exactly.
func Apply(content []byte, proposals []FixProposal) ([]byte, error) {
	sorted := append([]FixProposal(nil), proposals...)
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].Span.Start != sorted[j].Span.Start {
			return sorted[i].Span.Start < sorted[j].Span.Start
		}
		return sorted[i].Span.End < sorted[j].Span.End
	})

	for i, p := range sorted {
		if err := validate(content, p); err != nil {
			return nil, err
		}
		for _, prev := range sorted[:i] {
			if prev.Span.Overlaps(p.Span) {
				return nil, fmt.Errorf("%w: %s at %d-%d and %s at %d-%d", ErrOverlappingFixes,
					prev.RuleID, prev.Span.Start, prev.Span.End, p.RuleID, p.Span.Start, p.Span.End)
			}
		}
	}

	out := append([]byte(nil), content...)
	for i := len(sorted) - 1; i >= 0; i-- {
		p := sorted[i]
		suffix := append([]byte(nil), out[p.Span.End:]...)
		out = append(append(out[:p.Span.Start], p.Replacement...), suffix...)
	}
	return out, nil
}

func validate(content []byte, p FixProposal) error {
	if p.Span.Start < 0 || p.Span.End < p.Span.Start || p.Span.End > len(content) {
		return fmt.Errorf("%w: %s span %d-%d out of range", ErrInvalidProposal, p.RuleID, p.Span.Start, p.Span.End)
	}
	if string(content[p.Span.Start:p.Span.End]) != p.OldText {
		return fmt.Errorf("%w: %s expected %q at %d", ErrInvalidProposal, p.RuleID, p.OldText, p.Span.Start)
	}
	return nil
}
