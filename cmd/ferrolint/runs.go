package main

import (
	"errors"
	"text/tabwriter"
	"time"

	"ferrolint/internal/report"
	"ferrolint/internal/storage"

	"github.com/spf13/cobra"
)

func newRunsCmd(a *app) *cobra.Command {
	var db string
	var limit int
	var show string
	cmd := &cobra.Command{
		Use:   "runs",
		Short: "List or show scans recorded with --db",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if db == "" {
				db = a.cfg.Database
			}
			if db == "" {
				return errors.New("no database configured; pass --db")
			}
			store, err := storage.NewSQLiteStore(db)
			if err != nil {
				return err
			}
			defer store.Close()

			out := cmd.OutOrStdout()
			if show != "" {
				run, err := store.LoadRun(cmd.Context(), show)
				if err != nil {
					return err
				}
				fileErrors := make([]report.FileError, 0, len(run.Errors))
				for _, e := range run.Errors {
					fileErrors = append(fileErrors, report.FileError{Path: e.Path, Message: e.Message})
				}
				return report.Render(out, report.FormatText, run.Findings, report.Options{
					Color:  a.color(out),
					Errors: fileErrors,
				})
			}

			runs, err := store.ListRuns(cmd.Context(), limit)
			if err != nil {
				return err
			}
			tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
			printf(tw, "ID\tSTARTED\tVERSION\tFILES\tFINDINGS\tERRORS\n")
			for _, r := range runs {
				printf(tw, "%s\t%s\t%s\t%d\t%d\t%d\n", r.ID, r.StartedAt.Local().Format(time.DateTime),
					r.ToolVersion, r.Files, r.Findings, r.Errors)
			}
			return tw.Flush()
		},
	}
	cmd.Flags().StringVar(&db, "db", "", "SQLite database written by scan --db")
	cmd.Flags().IntVar(&limit, "limit", 20, "Number of runs to list (0 = all)")
	cmd.Flags().StringVar(&show, "show", "", "Print the findings of this run")
	return cmd
}
