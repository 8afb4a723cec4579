package main

import (
	"fmt"

	"ferrolint/internal/fixer"
	"ferrolint/internal/rules"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

type fixOptions struct {
	dryRun bool
	rules  []string
}

func newFixCmd(a *app) *cobra.Command {
	opts := &fixOptions{}
	cmd := &cobra.Command{
		Use:   "fix [paths...]",
		Short: "Apply automatic fixes to Rust sources",
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.fix(cmd, args, opts)
		},
	}
	cmd.Flags().BoolVarP(&opts.dryRun, "dry-run", "n", false, "Print a diff instead of writing files")
	cmd.Flags().StringSliceVarP(&opts.rules, "rule", "r", nil, "Only apply fixes of these rule ids or codes")
	return cmd
}

func (a *app) fix(cmd *cobra.Command, args []string, opts *fixOptions) error {
	ctx := cmd.Context()
	out := cmd.OutOrStdout()

	files, err := a.collect(args)
	if err != nil {
		return err
	}
	sc, err := a.newScanner()
	if err != nil {
		return err
	}
	for _, key := range opts.rules {
		if _, ok := sc.Registry().Get(key); !ok {
			return fmt.Errorf("%w: %s", rules.ErrUnknownRule, key)
		}
	}
	fx := fixer.New(sc.Registry(), a.logger)

	var applied, changed, failed int
	for _, path := range files {
		if err := ctx.Err(); err != nil {
			return err
		}
		res, err := fx.FixFile(ctx, sc, path, fixer.Options{DryRun: opts.dryRun, Rules: opts.rules})
		if err != nil {
			a.logger.Warn("fix failed", zap.String("path", path), zap.Error(err))
			printf(cmd.ErrOrStderr(), "%s: %v\n", path, err)
			failed++
			continue
		}
		for _, s := range res.Skipped {
			a.logger.Debug("fix skipped", zap.String("path", path), zap.String("rule", s.RuleID),
				zap.Int("line", s.Line), zap.String("reason", s.Reason))
		}
		if !res.Changed() {
			continue
		}
		changed++
		applied += len(res.Applied)

		if opts.dryRun {
			diff, err := res.Diff()
			if err != nil {
				return err
			}
			printf(out, "%s", diff)
			continue
		}
		printf(out, "fixed %s (%d edits)\n", path, len(res.Applied))
	}

	verb := "applied"
	if opts.dryRun {
		verb = "would apply"
	}
	printf(cmd.ErrOrStderr(), "%s %d fixes in %d files\n", verb, applied, changed)
	if failed > 0 {
		return &exitCodeError{code: exitError}
	}
	return nil
}
