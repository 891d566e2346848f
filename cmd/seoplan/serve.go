package main

import (
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/dusk-indust/seoplan/internal/mcptools"
)

func (c *cli) newServeMCPCmd() *cobra.Command {
	var (
		addr    string
		offline bool
	)
	cmd := &cobra.Command{
		Use:   "serve-mcp",
		Short: "Serve the seoplan tools over MCP",
		Long: `Runs an MCP server exposing run_report, run_stage, get_report, list_reports
and audit_page. Stdio is used unless --http is given.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			svc, err := c.wire(cmd.Context(), wireOptions{offline: offline})
			if err != nil {
				return err
			}
			defer svc.Close()

			// Nothing reads run progress in server mode.
			go func() {
				for range svc.Progress() {
				}
			}()

			server := mcptools.NewServer(mcptools.NewService(svc.Planner))
			if addr == "" {
				c.logger.Info("serving MCP on stdio")
				return mcptools.RunStdio(cmd.Context(), server)
			}
			c.logger.Info("serving MCP over HTTP", zap.String("addr", addr))
			return mcptools.RunHTTP(cmd.Context(), server, addr)
		},
	}
	cmd.Flags().StringVar(&addr, "http", "", "listen address for streamable HTTP (e.g. localhost:8808)")
	cmd.Flags().BoolVar(&offline, "offline", false, "use the offline generator")
	return cmd
}
