// Package analysis widens changed lines to the functions they affect.
package analysis

import (
	"context"
	"sort"

	"ferrolint/internal/crawler"
	"ferrolint/internal/git"
	"ferrolint/internal/graph"
	"ferrolint/internal/source"

	"go.uber.org/zap"
)

// ImpactReport summarizes the functions affected by changed lines.
type ImpactReport struct {
	DirectlyAffected   []*graph.Symbol
	IndirectlyAffected []*graph.Symbol
}

// Analyzer performs impact analysis on the call graph of one file.
type Analyzer struct {
	g *graph.Graph
}

// NewAnalyzer creates a new analyzer.
func NewAnalyzer(g *graph.Graph) *Analyzer {
	return &Analyzer{g: g}
}

// AnalyzeImpact returns the functions containing a changed line and,
// transitively, the functions of the file that call them.
func (a *Analyzer) AnalyzeImpact(lines []int) *ImpactReport {
	report := &ImpactReport{
		DirectlyAffected:   []*graph.Symbol{},
		IndirectlyAffected: []*graph.Symbol{},
	}

	seen := make(map[string]bool)
	var queue []string
	for id, node := range a.g.Nodes {
		if isAffected(node.Symbol, lines) {
			seen[id] = true
			queue = append(queue, id)
			report.DirectlyAffected = append(report.DirectlyAffected, node.Symbol)
		}
	}

	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		for _, dep := range a.g.GetDependents(cur) {
			if seen[dep.Symbol.ID] {
				continue
			}
			seen[dep.Symbol.ID] = true
			queue = append(queue, dep.Symbol.ID)
			report.IndirectlyAffected = append(report.IndirectlyAffected, dep.Symbol)
		}
	}

	sortSymbols(report.DirectlyAffected)
	sortSymbols(report.IndirectlyAffected)
	return report
}

// Lines returns every line covered by an affected function, in order.
func (r *ImpactReport) Lines() []int {
	set := make(map[int]bool)
	for _, group := range [][]*graph.Symbol{r.DirectlyAffected, r.IndirectlyAffected} {
		for _, s := range group {
			for l := s.StartLine; l <= s.EndLine; l++ {
				set[l] = true
			}
		}
	}
	out := make([]int, 0, len(set))
	for l := range set {
		out = append(out, l)
	}
	sort.Ints(out)
	return out
}

// ExpandChanges adds to each changed Rust file the lines of the functions
// its changes affect. Files that no longer exist or fail to parse keep
// their original lines.
func ExpandChanges(ctx context.Context, changes []git.ChangedFile, logger *zap.Logger) ([]git.ChangedFile, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	out := make([]git.ChangedFile, 0, len(changes))
	for _, change := range changes {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if !crawler.IsRust(change.Path) || len(change.ChangedLines) == 0 {
			out = append(out, change)
			continue
		}

		f, err := source.ParseFile(ctx, change.Path)
		if err != nil {
			logger.Debug("impact analysis skipped", zap.String("path", change.Path), zap.Error(err))
			out = append(out, change)
			continue
		}
		report := NewAnalyzer(graph.FromFile(f)).AnalyzeImpact(change.ChangedLines)
		f.Close()

		logger.Debug("impact analysis",
			zap.String("path", change.Path),
			zap.Int("direct", len(report.DirectlyAffected)),
			zap.Int("indirect", len(report.IndirectlyAffected)))

		out = append(out, git.ChangedFile{
			Path:         change.Path,
			ChangedLines: mergeLines(change.ChangedLines, report.Lines()),
		})
	}
	return out, nil
}

func isAffected(s *graph.Symbol, lines []int) bool {
	for _, line := range lines {
		if line >= s.StartLine && line <= s.EndLine {
			return true
		}
	}
	return false
}

func sortSymbols(syms []*graph.Symbol) {
	sort.Slice(syms, func(i, j int) bool {
		if syms[i].StartLine != syms[j].StartLine {
			return syms[i].StartLine < syms[j].StartLine
		}
		return syms[i].ID < syms[j].ID
	})
}

func mergeLines(a, b []int) []int {
	set := make(map[int]bool, len(a)+len(b))
	for _, l := range a {
		set[l] = true
	}
	for _, l := range b {
		set[l] = true
	}
	out := make([]int, 0, len(set))
	for l := range set {
		out = append(out, l)
	}
	sort.Ints(out)
	return out
}
