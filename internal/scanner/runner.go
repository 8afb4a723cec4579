package scanner

import (
	"context"
	"runtime"
	"sort"

	"ferrolint/internal/rules"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// FileError is a per-file failure that did not stop the run.
type FileError struct {
	Path string `json:"path"`
	Err  error  `json:"-"`
}

func (e FileError) Error() string { return e.Err.Error() }

func (e FileError) Unwrap() error { return e.Err }

// Report aggregates the results of a multi-file scan.
type Report struct {
	Files    int
	Findings []rules.Finding
	Errors   []FileError
}

type fileResult struct {
	findings []rules.Finding
	err      error
}

// ScanFiles scans paths with up to jobs files in flight. A file that fails
// to read or parse is recorded in Report.Errors and does not affect the
// others. Findings are sorted by (path, position, rule id) so the report is
// independent of completion order.
func (s *Scanner) ScanFiles(ctx context.Context, paths []string, jobs int) (*Report, error) {
	if jobs <= 0 {
		jobs = runtime.GOMAXPROCS(0)
	}
	report := &Report{Files: len(paths)}
	if len(paths) == 0 {
		return report, nil
	}

	// Each goroutine owns its index, so no mutex is needed.
	results := make([]fileResult, len(paths))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(min(jobs, len(paths)))

	for i, path := range paths {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			findings, err := s.ScanFile(gctx, path)
			if err != nil && gctx.Err() != nil {
				return gctx.Err()
			}
			results[i] = fileResult{findings: findings, err: err}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	for i, res := range results {
		if res.err != nil {
			s.logger.Warn("skipping file", zap.String("path", paths[i]), zap.Error(res.err))
			report.Errors = append(report.Errors, FileError{Path: paths[i], Err: res.err})
			continue
		}
		report.Findings = append(report.Findings, res.findings...)
	}
	SortFindings(report.Findings)
	sort.SliceStable(report.Errors, func(i, j int) bool { return report.Errors[i].Path < report.Errors[j].Path })

	s.logger.Debug("scan complete",
		zap.Int("files", report.Files),
		zap.Int("findings", len(report.Findings)),
		zap.Int("errors", len(report.Errors)),
	)
	return report, nil
}

// SortFindings orders findings by path, span start and rule id. The sort is
// stable, so findings of one file keep their scan order on ties.
func SortFindings(findings []rules.Finding) {
	sort.SliceStable(findings, func(i, j int) bool {
		a, b := findings[i], findings[j]
		if a.Path != b.Path {
			return a.Path < b.Path
		}
		if a.Span.Start != b.Span.Start {
			return a.Span.Start < b.Span.Start
		}
		return a.RuleID < b.RuleID
	})
}
