package fixer

import (
	"bytes"
	"context"
	"fmt"
	"os"

	"ferrolint/internal/rules"
	"ferrolint/internal/scanner"
	"ferrolint/internal/source"

	"github.com/pmezard/go-difflib/difflib"
	"go.uber.org/zap"
)

// Options controls FixFile.
type Options struct {
	// DryRun computes the result without writing the file.
	DryRun bool
	// Rules restricts fixing to these rule ids or codes. Empty means all.
	Rules []string
}

// FileResult describes the fixes of one file.
type FileResult struct {
	Path     string
	Applied  []FixProposal
	Skipped  []SkippedFix
	Original []byte
	Fixed    []byte
	Written  bool
}

// Changed reports whether any fix altered the file content.
func (r *FileResult) Changed() bool {
	return !bytes.Equal(r.Original, r.Fixed)
}

// Diff renders a unified diff between the original and fixed content.
func (r *FileResult) Diff() (string, error) {
	if !r.Changed() {
		return "", nil
	}
	return difflib.GetUnifiedDiffString(difflib.UnifiedDiff{
		A:        difflib.SplitLines(string(r.Original)),
		B:        difflib.SplitLines(string(r.Fixed)),
		FromFile: "a/" + r.Path,
		ToFile:   "b/" + r.Path,
		Context:  3,
	})
}

// FixFile scans path, applies every valid proposal and, unless DryRun is
// set, writes the result back with the original file mode. If proposals
// overlap the file is left untouched and ErrOverlappingFixes is returned.
func (fx *Fixer) FixFile(ctx context.Context, sc *scanner.Scanner, path string, opts Options) (*FileResult, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read file %s: %w", path, err)
	}
	file, err := source.Parse(ctx, path, content)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	findings, err := sc.Scan(ctx, file)
	if err != nil {
		return nil, fmt.Errorf("failed to scan %s: %w", path, err)
	}
	findings, err = fx.selectFindings(findings, opts.Rules)
	if err != nil {
		return nil, err
	}

	proposals, skipped := fx.ProposeAll(file, findings)
	fixed, err := Apply(content, proposals)
	if err != nil {
		return nil, fmt.Errorf("failed to fix %s: %w", path, err)
	}

	result := &FileResult{
		Path:     path,
		Applied:  proposals,
		Skipped:  skipped,
		Original: content,
		Fixed:    fixed,
	}
	if opts.DryRun || !result.Changed() {
		return result, nil
	}

	mode := os.FileMode(0o644)
	if info, err := os.Stat(path); err == nil {
		mode = info.Mode()
	}
	if err := os.WriteFile(path, fixed, mode); err != nil {
		return nil, fmt.Errorf("failed to write %s: %w", path, err)
	}
	result.Written = true
	fx.logger.Info("applied fixes", zap.String("path", path), zap.Int("fixes", len(proposals)))
	return result, nil
}

func (fx *Fixer) selectFindings(findings []rules.Finding, keys []string) ([]rules.Finding, error) {
	if len(keys) == 0 {
		return findings, nil
	}
	want := make(map[string]bool, len(keys))
	for _, k := range keys {
		rule, ok := fx.registry.Get(k)
		if !ok {
			return nil, fmt.Errorf("%w: %s", rules.ErrUnknownRule, k)
		}
		want[rule.ID()] = true
	}
	var out []rules.Finding
	for _, f := range findings {
		if want[f.RuleID] {
			out = append(out, f)
		}
	}
	return out, nil
}
