package main

import (
	"context"
	"errors"
	"fmt"
	"io"

	"ferrolint/internal/analysis"
	"ferrolint/internal/crawler"
	"ferrolint/internal/git"
	"ferrolint/internal/report"
	"ferrolint/internal/rules"
	"ferrolint/internal/scanner"
	"ferrolint/internal/storage"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

type scanOptions struct {
	format     string
	jobs       int
	disable    []string
	failOn     string
	newFromRev string
	impact     bool
	db         string
	baseline   string
}

func newScanCmd(a *app) *cobra.Command {
	opts := &scanOptions{}
	cmd := &cobra.Command{
		Use:   "scan [paths...]",
		Short: "Scan Rust sources and report findings",
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.scan(cmd, args, opts)
		},
	}
	f := cmd.Flags()
	f.StringVarP(&opts.format, "format", "f", "", "Output format: text, json or sarif")
	f.IntVarP(&opts.jobs, "jobs", "j", 0, "Files scanned in parallel (0 = number of CPUs)")
	f.StringSliceVar(&opts.disable, "disable", nil, "Rule ids or codes to disable")
	f.StringVar(&opts.failOn, "fail-on", "", "Lowest severity that fails the run: error, warning, info or none")
	f.StringVar(&opts.newFromRev, "new-from-rev", "", "Only report findings on lines changed since this git revision")
	f.BoolVar(&opts.impact, "impact", false, "With --new-from-rev, also report on functions affected by the changes and their callers")
	f.StringVar(&opts.db, "db", "", "Record the run in this SQLite database")
	f.StringVar(&opts.baseline, "baseline", "", "Hide findings already present in this recorded run (requires --db)")
	return cmd
}

// apply merges command-line flags over the loaded configuration.
func (o *scanOptions) apply(cmd *cobra.Command, a *app) error {
	cfg := a.cfg
	flags := cmd.Flags()
	if flags.Changed("format") {
		cfg.Format = o.format
	}
	if flags.Changed("jobs") {
		cfg.Jobs = o.jobs
	}
	if flags.Changed("fail-on") {
		cfg.FailOn = o.failOn
	}
	if flags.Changed("db") {
		cfg.Database = o.db
	}
	cfg.Rules.Disable = append(cfg.Rules.Disable, o.disable...)
	if o.impact && o.newFromRev == "" {
		return errors.New("--impact requires --new-from-rev")
	}
	if o.baseline != "" && cfg.Database == "" {
		return errors.New("--baseline requires --db or a configured database")
	}
	return cfg.Validate()
}

func (a *app) newScanner() (*scanner.Scanner, error) {
	reg, err := a.cfg.Registry()
	if err != nil {
		return nil, err
	}
	overrides, err := a.cfg.SeverityOverrides()
	if err != nil {
		return nil, err
	}
	return scanner.New(reg, scanner.WithLogger(a.logger), scanner.WithSeverityOverrides(overrides)), nil
}

// collect resolves the files to scan from args or the configured paths.
func (a *app) collect(args []string) ([]string, error) {
	roots := args
	if len(roots) == 0 {
		roots = a.cfg.Paths
	}
	return crawler.NewCrawler(a.cfg.Exclude).Collect(roots)
}

func (a *app) scan(cmd *cobra.Command, args []string, opts *scanOptions) error {
	ctx := cmd.Context()
	if err := opts.apply(cmd, a); err != nil {
		return err
	}
	format, err := report.ParseFormat(a.cfg.Format)
	if err != nil {
		return err
	}

	files, err := a.collect(args)
	if err != nil {
		return err
	}
	sc, err := a.newScanner()
	if err != nil {
		return err
	}

	a.logger.Info("scanning", zap.Int("files", len(files)), zap.Int("rules", sc.Registry().Len()))
	result, err := sc.ScanFiles(ctx, files, a.cfg.Jobs)
	if err != nil {
		return err
	}

	findings := result.Findings
	if opts.newFromRev != "" {
		changes, err := git.GetChangedFiles(ctx, ".", opts.newFromRev)
		if err != nil {
			return err
		}
		if opts.impact {
			if changes, err = analysis.ExpandChanges(ctx, changes, a.logger); err != nil {
				return err
			}
		}
		findings = git.NewChangeSet(changes).FilterFindings(findings)
	}

	fileErrors := make([]report.FileError, 0, len(result.Errors))
	for _, e := range result.Errors {
		fileErrors = append(fileErrors, report.FileError{Path: e.Path, Message: e.Error()})
	}

	if a.cfg.Database != "" {
		findings, err = a.record(ctx, result, findings, fileErrors, opts.baseline)
		if err != nil {
			return err
		}
	}

	out := cmd.OutOrStdout()
	if err := report.Render(out, format, findings, report.Options{
		Color:       format == report.FormatText && a.color(out),
		Registry:    sc.Registry(),
		ToolVersion: version,
		Errors:      fileErrors,
	}); err != nil {
		return err
	}

	if code := a.exitCode(findings, len(fileErrors)); code != exitClean {
		return &exitCodeError{code: code}
	}
	return nil
}

// record saves the run and, when a baseline run is named, returns only
// the findings absent from it.
func (a *app) record(ctx context.Context, result *scanner.Report, findings []rules.Finding, fileErrors []report.FileError, baseline string) ([]rules.Finding, error) {
	store, err := storage.NewSQLiteStore(a.cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	defer store.Close()

	run := &storage.Run{ToolVersion: version, Files: result.Files, Findings: findings}
	for _, e := range fileErrors {
		run.Errors = append(run.Errors, storage.RunError{Path: e.Path, Message: e.Message})
	}
	if err := store.SaveRun(ctx, run); err != nil {
		return nil, fmt.Errorf("failed to save run: %w", err)
	}
	a.logger.Info("run recorded", zap.String("id", run.ID), zap.String("database", a.cfg.Database))

	if baseline == "" {
		return findings, nil
	}
	known, err := store.Fingerprints(ctx, baseline)
	if err != nil {
		return nil, err
	}
	return storage.NewFindings(findings, known), nil
}

// exitCode maps a finished scan to the process status. Files that could
// not be analysed take precedence over findings.
func (a *app) exitCode(findings []rules.Finding, fileErrors int) int {
	if fileErrors > 0 {
		return exitError
	}
	threshold, ok := a.cfg.FailThreshold()
	if !ok {
		return exitClean
	}
	for _, f := range findings {
		if f.Severity.AtLeast(threshold) {
			return exitFindings
		}
	}
	return exitClean
}

func printf(w io.Writer, format string, args ...any) {
	_, _ = fmt.Fprintf(w, format, args...)
}
