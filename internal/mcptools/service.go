package mcptools

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/dusk-indust/seoplan/internal/export"
	"github.com/dusk-indust/seoplan/internal/planner"
	"github.com/dusk-indust/seoplan/internal/store"
)

// Service handles MCP tool calls. It wraps a Planner.
type Service struct {
	planner *planner.Planner
}

// NewService creates a Service over p.
func NewService(p *planner.Planner) *Service {
	return &Service{planner: p}
}

// RunReport runs the full pipeline for a brief.
func (s *Service) RunReport(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input RunReportInput,
) (*mcp.CallToolResult, RunReportOutput, error) {
	if strings.TrimSpace(input.Brief) == "" {
		return nil, RunReportOutput{}, fmt.Errorf("brief is required")
	}

	rec, err := s.planner.Run(ctx, input.Brief, !input.NoSave)
	if err != nil {
		return nil, RunReportOutput{}, err
	}
	return nil, RunReportOutput{
		RunID:    rec.ID,
		State:    rec.State,
		Stages:   stageStatuses(rec),
		Markdown: export.Markdown(rec),
	}, nil
}

// RunStage reruns one stage of a stored run. A failing stage is reported in
// the output rather than as a tool error.
func (s *Service) RunStage(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input RunStageInput,
) (*mcp.CallToolResult, RunStageOutput, error) {
	if input.RunID == "" || input.Stage == "" {
		return nil, RunStageOutput{}, fmt.Errorf("runId and stage are required")
	}

	rec, err := s.planner.RerunStage(ctx, input.RunID, input.Stage)
	if rec == nil {
		return nil, RunStageOutput{RunID: input.RunID, Stage: input.Stage, Status: store.StatusFailed}, err
	}

	out := RunStageOutput{RunID: rec.ID, Stage: input.Stage, State: rec.State}
	if doc, ok := rec.Stage(input.Stage); ok {
		out.Status = doc.Status
	}
	if err != nil {
		out.Message = err.Error()
	}
	return nil, out, nil
}

// GetReport renders a stored run.
func (s *Service) GetReport(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input GetReportInput,
) (*mcp.CallToolResult, GetReportOutput, error) {
	if input.RunID == "" {
		return nil, GetReportOutput{}, fmt.Errorf("runId is required")
	}
	format := input.Format
	if format == "" {
		format = export.FormatMarkdown
	}

	rec, err := s.planner.Get(ctx, input.RunID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, GetReportOutput{}, fmt.Errorf("no report with id %q", input.RunID)
		}
		return nil, GetReportOutput{}, err
	}

	content, err := export.Render(rec, s.planner.Graph(), format)
	if err != nil {
		return nil, GetReportOutput{}, err
	}
	return nil, GetReportOutput{
		RunID:   rec.ID,
		State:   rec.State,
		Format:  format,
		Stages:  stageStatuses(rec),
		Content: content,
	}, nil
}

// ListReports lists stored runs, most recent first.
func (s *Service) ListReports(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input ListReportsInput,
) (*mcp.CallToolResult, ListReportsOutput, error) {
	summaries, err := s.planner.List(ctx)
	if err != nil {
		return nil, ListReportsOutput{}, err
	}
	slices.Reverse(summaries)
	if input.Limit > 0 && len(summaries) > input.Limit {
		summaries = summaries[:input.Limit]
	}

	reports := make([]ReportSummary, 0, len(summaries))
	for _, sum := range summaries {
		reports = append(reports, ReportSummary{
			RunID:     sum.ID,
			Brief:     sum.Brief,
			State:     sum.State,
			UpdatedAt: sum.UpdatedAt.Format(time.RFC3339),
			Completed: sum.Completed,
			Failed:    sum.Failed,
			Blocked:   sum.Blocked,
		})
	}
	return nil, ListReportsOutput{Reports: reports}, nil
}

// AuditPage fetches a page and audits it against an optional keyword.
func (s *Service) AuditPage(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input AuditPageInput,
) (*mcp.CallToolResult, AuditPageOutput, error) {
	if input.URL == "" {
		return nil, AuditPageOutput{}, fmt.Errorf("url is required")
	}

	res, err := s.planner.Audit(ctx, input.URL, input.Keyword)
	if err != nil {
		return nil, AuditPageOutput{}, err
	}
	return nil, AuditPageOutput{
		URL:       res.URL,
		Title:     res.Page.Title,
		WordCount: res.Page.WordCount,
		Audit:     res.Audit,
		Markdown:  export.AuditMarkdown(res),
	}, nil
}

func stageStatuses(rec *store.Record) []StageStatus {
	out := make([]StageStatus, 0, len(rec.Stages))
	for _, d := range rec.Stages {
		out = append(out, StageStatus{Stage: d.Stage, Status: d.Status, Error: d.Error})
	}
	return out
}
