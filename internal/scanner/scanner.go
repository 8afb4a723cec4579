// Package scanner applies a rule registry to parsed Rust files.
package scanner

import (
	"context"
	"fmt"

	"ferrolint/internal/rules"
	"ferrolint/internal/source"

	"go.uber.org/zap"
)

// Scanner evaluates every registered rule against every item of a file.
// It holds no per-file state and is safe for concurrent use.
type Scanner struct {
	registry   *rules.Registry
	logger     *zap.Logger
	severities map[string]rules.Severity
}

type Option func(*Scanner)

// WithLogger sets the logger used for debug output.
func WithLogger(l *zap.Logger) Option {
	return func(s *Scanner) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithSeverityOverrides replaces the default severity of rules, keyed by
// rule id or code. Unknown keys are ignored.
func WithSeverityOverrides(overrides map[string]rules.Severity) Option {
	return func(s *Scanner) {
		for key, sev := range overrides {
			if rule, ok := s.registry.Get(key); ok {
				s.severities[rule.ID()] = sev
			}
		}
	}
}

// New creates a scanner over reg.
func New(reg *rules.Registry, opts ...Option) *Scanner {
	s := &Scanner{
		registry:   reg,
		logger:     zap.NewNop(),
		severities: make(map[string]rules.Severity),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Registry returns the rules the scanner applies.
func (s *Scanner) Registry() *rules.Registry { return s.registry }

// Scan returns the findings of file ordered by item position, then by
// registration order. Each rule reports at most once per item.
func (s *Scanner) Scan(ctx context.Context, file *source.File) ([]rules.Finding, error) {
	rctx := rules.NewContext(file)
	s.logger.Debug("scanning file",
		zap.String("path", file.Path),
		zap.Int("rules", s.registry.Len()),
		zap.Int("call_graph_symbols", rctx.Graph.Stats().Symbols),
		zap.Int("call_graph_edges", rctx.Graph.Stats().Edges),
	)

	var findings []rules.Finding
	occurrences := make(map[rules.FingerprintKey]int)
	for _, item := range file.All() {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		for rule := range s.registry.All() {
			m := rule.Check(rctx, item)
			if m == nil {
				continue
			}
			key := rules.NewFingerprintKey(rule.Code(), file.Path, item.Kind, rctx.FunctionName(item), file.Text(m.Span))
			f := s.finding(file, rule, m)
			f.Fingerprint = key.Fingerprint(occurrences[key])
			occurrences[key]++
			findings = append(findings, f)
		}
	}
	return findings, nil
}

// ScanSource parses content and scans it.
func (s *Scanner) ScanSource(ctx context.Context, path string, content []byte) ([]rules.Finding, error) {
	file, err := source.Parse(ctx, path, content)
	if err != nil {
		return nil, err
	}
	defer file.Close()
	return s.Scan(ctx, file)
}

// ScanFile reads, parses and scans the file at path.
func (s *Scanner) ScanFile(ctx context.Context, path string) ([]rules.Finding, error) {
	file, err := source.ParseFile(ctx, path)
	if err != nil {
		return nil, err
	}
	defer file.Close()
	findings, err := s.Scan(ctx, file)
	if err != nil {
		return nil, fmt.Errorf("failed to scan %s: %w", path, err)
	}
	return findings, nil
}

func (s *Scanner) finding(file *source.File, rule rules.Rule, m *rules.Match) rules.Finding {
	sev := rule.Severity()
	if override, ok := s.severities[rule.ID()]; ok {
		sev = override
	}
	return rules.Finding{
		RuleID:      rule.ID(),
		Code:        rule.Code(),
		Path:        file.Path,
		Span:        m.Span,
		Start:       file.Position(m.Span.Start),
		End:         file.Position(m.Span.End),
		Severity:    sev,
		Message:     m.Message,
		Fixable:     rules.IsFixable(rule),
	}
}
