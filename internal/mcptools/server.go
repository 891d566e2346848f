package mcptools

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// version is set by the linker at build time.
var version = "dev"

// NewServer creates an MCP server with the seoplan tools registered:
// run_report, run_stage, get_report, list_reports and audit_page.
func NewServer(svc *Service) *mcp.Server {
	server := mcp.NewServer(&mcp.Implementation{
		Name:    "seoplan",
		Version: version,
	}, nil)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "run_report",
		Description: "Generate a full SEO strategy for a business brief. Runs every stage (strategic profile, keyword clusters, content plan, technical checklist, authority plan, featured snippets, coordination) and returns per-stage statuses with a Markdown report.",
	}, svc.RunReport)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "run_stage",
		Description: "Rerun one stage of a stored report using the stored outputs of its dependencies. Use it to recover a failed stage.",
	}, svc.RunStage)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "get_report",
		Description: "Return a stored report rendered as Markdown, JSON or a Mermaid stage graph.",
	}, svc.GetReport)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "list_reports",
		Description: "List stored reports with their state and stage counts, most recent first.",
	}, svc.ListReports)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "audit_page",
		Description: "Fetch a web page, extract its title, headings and text, and audit its SEO against an optional target keyword.",
	}, svc.AuditPage)

	return server
}

// RunStdio runs the MCP server on stdio transport, blocking until stdin is
// closed or the context is cancelled.
func RunStdio(ctx context.Context, server *mcp.Server) error {
	return server.Run(ctx, &mcp.StdioTransport{})
}

// RunHTTP serves the MCP server over streamable HTTP on addr until ctx is
// cancelled.
func RunHTTP(ctx context.Context, server *mcp.Server, addr string) error {
	handler := mcp.NewStreamableHTTPHandler(
		func(_ *http.Request) *mcp.Server { return server },
		nil,
	)

	httpServer := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	// Shutdown gracefully when context is cancelled.
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = httpServer.Shutdown(shutdownCtx)
	}()

	if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
