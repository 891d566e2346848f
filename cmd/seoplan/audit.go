package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/dusk-indust/seoplan/internal/export"
)

func (c *cli) newAuditCmd() *cobra.Command {
	var (
		keyword string
		offline bool
		format  string
	)
	cmd := &cobra.Command{
		Use:   "audit <url>",
		Short: "Audit the SEO of a web page",
		Long: `Fetches a page (directly, then through the configured proxies), extracts
its title, headings and text, and asks the model for a content audit scored
against an optional target keyword.

Example:
  seoplan audit https://example.com/plombier-paris --keyword "plombier paris"`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := c.wire(cmd.Context(), wireOptions{offline: offline, noStore: true})
			if err != nil {
				return err
			}
			defer svc.Close()

			res, err := svc.Audit(cmd.Context(), args[0], keyword)
			if err != nil {
				return err
			}

			switch format {
			case export.FormatJSON:
				out, err := json.MarshalIndent(res, "", "  ")
				if err != nil {
					return fmt.Errorf("marshal JSON: %w", err)
				}
				_, err = cmd.OutOrStdout().Write(append(out, '\n'))
				return err
			case export.FormatMarkdown, "":
				_, err = fmt.Fprint(cmd.OutOrStdout(), export.AuditMarkdown(res))
				return err
			default:
				return fmt.Errorf("unknown format %q (want md or json)", format)
			}
		},
	}
	cmd.Flags().StringVarP(&keyword, "keyword", "k", "", "target keyword")
	cmd.Flags().BoolVar(&offline, "offline", false, "use the offline generator")
	cmd.Flags().StringVarP(&format, "format", "f", export.FormatMarkdown, "output format: md or json")
	return cmd
}
