package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/dusk-indust/seoplan/internal/seo"
	"github.com/dusk-indust/seoplan/internal/store"
)

func (c *cli) newStageCmd() *cobra.Command {
	var (
		offline bool
		format  string
	)

	cmd := &cobra.Command{
		Use:   "stage <run-id> <stage>",
		Short: "Rerun one stage of a saved run",
		Long: fmt.Sprintf(`Reruns a single stage of a saved run from the stored outputs of its
dependencies and saves the result. Dependents are not rerun.

Stages: %v

Example:
  seoplan stage 1f0c9a2e-... content`, seo.Stages()),
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			runID, stage := args[0], args[1]

			svc, err := c.wire(cmd.Context(), wireOptions{offline: offline})
			if err != nil {
				return err
			}
			wait := printProgress(cmd.ErrOrStderr(), svc.Progress())
			rec, runErr := svc.RerunStage(cmd.Context(), runID, stage)
			closeErr := svc.Close()
			wait()
			if rec == nil {
				return runErr
			}
			if closeErr != nil {
				return closeErr
			}

			if format != "" {
				if err := writeRecord(cmd, rec, svc.Graph(), format, ""); err != nil {
					return err
				}
			}
			doc, _ := rec.Stage(stage)
			fmt.Fprintf(cmd.ErrOrStderr(), "\nrun %s: stage %s %s, run %s\n", rec.ID, stage, doc.Status, rec.State)
			if doc.Status != store.StatusCompleted {
				return runErr
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&offline, "offline", false, "use the offline generator")
	cmd.Flags().StringVarP(&format, "format", "f", "", "also print the updated report: md, json or mermaid")
	cmd.ValidArgsFunction = func(_ *cobra.Command, args []string, _ string) ([]string, cobra.ShellCompDirective) {
		if len(args) == 1 {
			return seo.Stages(), cobra.ShellCompDirectiveNoFileComp
		}
		return nil, cobra.ShellCompDirectiveNoFileComp
	}
	return cmd
}
