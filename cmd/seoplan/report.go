package main

import (
	"fmt"
	"slices"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/dusk-indust/seoplan/internal/export"
	"github.com/dusk-indust/seoplan/internal/pipeline"
	"github.com/dusk-indust/seoplan/internal/store"
)

func (c *cli) newReportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "report",
		Short: "Inspect saved runs",
	}
	cmd.AddCommand(c.newReportListCmd(), c.newReportShowCmd(), c.newReportDeleteCmd())
	return cmd
}

func (c *cli) newReportListCmd() *cobra.Command {
	var state string
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List saved runs",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if state != "" {
				if _, ok := pipeline.ParseRunState(state); !ok {
					return fmt.Errorf("unknown state %q (want one of %s)", state, strings.Join(runStates(), ", "))
				}
			}

			// Reading the store never calls the generator.
			svc, err := c.wire(cmd.Context(), wireOptions{offline: true})
			if err != nil {
				return err
			}
			defer svc.Close()

			summaries, err := svc.List(cmd.Context())
			if err != nil {
				return err
			}
			if state != "" {
				summaries = slices.DeleteFunc(summaries, func(s store.Summary) bool { return s.State != state })
			}
			if len(summaries) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No saved runs.")
				fmt.Fprintln(cmd.OutOrStdout(), `Run 'seoplan run "<brief>"' to create one.`)
				return nil
			}

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tSTATE\tSTAGES\tUPDATED\tBRIEF")
			for _, s := range summaries {
				fmt.Fprintf(tw, "%s\t%s\t%d ok / %d failed / %d blocked\t%s\t%s\n",
					s.ID, s.State, s.Completed, s.Failed, s.Blocked,
					s.UpdatedAt.Local().Format(time.DateTime), truncate(s.Brief, 48))
			}
			return tw.Flush()
		},
	}
	cmd.Flags().StringVar(&state, "state", "", "only list runs in this state: "+strings.Join(runStates(), ", "))
	return cmd
}

func runStates() []string {
	return []string{
		pipeline.AllCompleted.String(),
		pipeline.PartiallyFailed.String(),
		pipeline.Aborted.String(),
	}
}

func (c *cli) newReportShowCmd() *cobra.Command {
	var (
		format string
		output string
	)
	cmd := &cobra.Command{
		Use:   "show <run-id>",
		Short: "Print a saved run",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := c.wire(cmd.Context(), wireOptions{offline: true})
			if err != nil {
				return err
			}
			defer svc.Close()

			rec, err := svc.Get(cmd.Context(), args[0])
			if err != nil {
				return fmt.Errorf("run %s: %w", args[0], err)
			}
			return writeRecord(cmd, rec, svc.Graph(), format, output)
		},
	}
	cmd.Flags().StringVarP(&format, "format", "f", export.FormatMarkdown, "output format: md, json or mermaid")
	cmd.Flags().StringVarP(&output, "output", "o", "", "write to a file instead of stdout")
	return cmd
}

func (c *cli) newReportDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <run-id>",
		Short: "Delete a saved run",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := c.wire(cmd.Context(), wireOptions{offline: true})
			if err != nil {
				return err
			}
			defer svc.Close()

			if err := svc.Delete(cmd.Context(), args[0]); err != nil {
				return fmt.Errorf("run %s: %w", args[0], err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "deleted %s\n", args[0])
			return nil
		},
	}
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}
