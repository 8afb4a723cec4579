package main

import (
	"context"
	"errors"
	"time"

	"ferrolint/internal/crawler"
	"ferrolint/internal/report"
	"ferrolint/internal/rules"
	"ferrolint/internal/scanner"
	"ferrolint/internal/watch"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func newWatchCmd(a *app) *cobra.Command {
	var debounce time.Duration
	cmd := &cobra.Command{
		Use:   "watch [paths...]",
		Short: "Re-scan Rust files as they change",
		RunE: func(cmd *cobra.Command, args []string) error {
			roots := args
			if len(roots) == 0 {
				roots = a.cfg.Paths
			}
			sc, err := a.newScanner()
			if err != nil {
				return err
			}
			format, err := report.ParseFormat(a.cfg.Format)
			if err != nil {
				return err
			}

			w, err := watch.New(roots, crawler.NewCrawler(a.cfg.Exclude), debounce, a.logger)
			if err != nil {
				return err
			}
			defer w.Close()

			out := cmd.OutOrStdout()
			printf(cmd.ErrOrStderr(), "watching %v, press Ctrl-C to stop\n", roots)
			err = w.Run(cmd.Context(), func(ctx context.Context, paths []string) {
				var findings []rules.Finding
				var fileErrors []report.FileError
				for _, p := range paths {
					fs, err := sc.ScanFile(ctx, p)
					if err != nil {
						a.logger.Debug("scan failed", zap.String("path", p), zap.Error(err))
						fileErrors = append(fileErrors, report.FileError{Path: p, Message: err.Error()})
						continue
					}
					findings = append(findings, fs...)
				}
				scanner.SortFindings(findings)
				if err := report.Render(out, format, findings, report.Options{
					Color:       format == report.FormatText && a.color(out),
					Registry:    sc.Registry(),
					ToolVersion: version,
					Errors:      fileErrors,
				}); err != nil {
					a.logger.Warn("render failed", zap.Error(err))
				}
			})
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		},
	}
	cmd.Flags().DurationVar(&debounce, "debounce", watch.DefaultDebounce, "Quiet period before a changed file is scanned")
	return cmd
}
