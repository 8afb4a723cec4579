package main

import (
	"text/tabwriter"

	"ferrolint/internal/rules"

	"github.com/spf13/cobra"
)

func newRulesCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "rules",
		Short: "List the registered rules",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			reg, err := a.cfg.Registry()
			if err != nil {
				return err
			}
			overrides, err := a.cfg.SeverityOverrides()
			if err != nil {
				return err
			}

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			printf(tw, "CODE\tID\tSEVERITY\tFIX\tDESCRIPTION\n")
			for r := range reg.All() {
				sev := r.Severity()
				if o, ok := overrides[r.ID()]; ok {
					sev = o
				} else if o, ok := overrides[r.Code()]; ok {
					sev = o
				}
				fix := ""
				if rules.IsFixable(r) {
					fix = "yes"
				}
				printf(tw, "%s\t%s\t%s\t%s\t%s\n", r.Code(), r.ID(), sev, fix, r.Description())
			}
			return tw.Flush()
		},
	}
}
