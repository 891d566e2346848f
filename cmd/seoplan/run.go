package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/dusk-indust/seoplan/internal/export"
	"github.com/dusk-indust/seoplan/internal/pipeline"
	"github.com/dusk-indust/seoplan/internal/store"
)

func (c *cli) newRunCmd() *cobra.Command {
	var (
		briefFile string
		offline   bool
		noSave    bool
		format    string
		output    string
	)

	cmd := &cobra.Command{
		Use:   "run [brief]",
		Short: "Run every stage for a business brief",
		Long: `Runs the full stage graph for a brief and prints the report.

The brief is the positional argument, or the content of --brief-file
("-" reads stdin). Progress is written to stderr; the report to stdout or
--output. The run is saved to the report database unless --no-save is set.

Example:
  seoplan run "plombier, Paris 11e, dépannage 24h/24"
  seoplan run --offline --format json --brief-file brief.txt`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			brief, err := readBrief(cmd.InOrStdin(), args, briefFile)
			if err != nil {
				return err
			}

			svc, err := c.wire(cmd.Context(), wireOptions{offline: offline, noStore: noSave})
			if err != nil {
				return err
			}
			wait := printProgress(cmd.ErrOrStderr(), svc.Progress())
			rec, runErr := svc.Run(cmd.Context(), brief, !noSave)
			closeErr := svc.Close()
			wait()
			if runErr != nil {
				return runErr
			}
			if closeErr != nil {
				return closeErr
			}

			if err := writeRecord(cmd, rec, svc.Graph(), format, output); err != nil {
				return err
			}
			fmt.Fprintf(cmd.ErrOrStderr(), "\nrun %s: %s\n", rec.ID, rec.State)
			if rec.State != pipeline.AllCompleted.String() {
				printFailures(cmd.ErrOrStderr(), rec)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&briefFile, "brief-file", "", `read the brief from a file ("-" for stdin)`)
	cmd.Flags().BoolVar(&offline, "offline", false, "use the offline generator (schema skeletons, no API calls)")
	cmd.Flags().BoolVar(&noSave, "no-save", false, "do not save the run")
	cmd.Flags().StringVarP(&format, "format", "f", export.FormatMarkdown, "output format: md, json or mermaid")
	cmd.Flags().StringVarP(&output, "output", "o", "", "write the report to a file instead of stdout")
	return cmd
}

// readBrief returns the brief from args or briefFile. Exactly one source is
// allowed.
func readBrief(stdin io.Reader, args []string, briefFile string) (string, error) {
	switch {
	case len(args) > 0 && briefFile != "":
		return "", errors.New("pass the brief as an argument or with --brief-file, not both")
	case len(args) > 0:
		return args[0], nil
	case briefFile == "-":
		data, err := io.ReadAll(stdin)
		if err != nil {
			return "", fmt.Errorf("reading brief from stdin: %w", err)
		}
		return strings.TrimSpace(string(data)), nil
	case briefFile != "":
		data, err := os.ReadFile(briefFile)
		if err != nil {
			return "", fmt.Errorf("reading brief: %w", err)
		}
		return strings.TrimSpace(string(data)), nil
	default:
		return "", errors.New("a brief is required: seoplan run \"<brief>\"")
	}
}

// writeRecord renders rec in format to output, or stdout when output is
// empty.
func writeRecord(cmd *cobra.Command, rec *store.Record, g *pipeline.Graph, format, output string) error {
	content, err := export.Render(rec, g, format)
	if err != nil {
		return err
	}
	if output == "" {
		_, err = io.WriteString(cmd.OutOrStdout(), content)
		return err
	}
	if err := os.WriteFile(output, []byte(content), 0o644); err != nil {
		return fmt.Errorf("writing %s: %w", output, err)
	}
	fmt.Fprintf(cmd.ErrOrStderr(), "  wrote %s\n", output)
	return nil
}

func printFailures(w io.Writer, rec *store.Record) {
	for _, d := range rec.Stages {
		if d.Status == store.StatusCompleted {
			continue
		}
		fmt.Fprintf(w, "  %-12s %-9s %s\n", d.Stage, d.Status, d.Error)
	}
}
