package mcptools

import "github.com/dusk-indust/seoplan/internal/audit"

// --- MCP tool types ---
// The SDK derives each tool's JSON schema from these structs.

// StageStatus is the outcome of one stage of a run.
type StageStatus struct {
	Stage  string `json:"stage"`
	Status string `json:"status"` // completed, failed, blocked or pending
	Error  string `json:"error,omitempty"`
}

// RunReportInput is the input for the run_report tool.
type RunReportInput struct {
	Brief  string `json:"brief" jsonschema:"free-text business brief, e.g. 'plombier, Paris 11e'"`
	NoSave bool   `json:"noSave,omitempty" jsonschema:"do not persist the run"`
}

// RunReportOutput is the result of the run_report tool.
type RunReportOutput struct {
	RunID    string        `json:"runId"`
	State    string        `json:"state"`
	Stages   []StageStatus `json:"stages"`
	Markdown string        `json:"markdown"`
}

// RunStageInput is the input for the run_stage tool.
type RunStageInput struct {
	RunID string `json:"runId" jsonschema:"ID of a stored run"`
	Stage string `json:"stage" jsonschema:"stage to rerun: strategic, cluster, content, technical, authority, snippet or coordinator"`
}

// RunStageOutput is the result of the run_stage tool.
type RunStageOutput struct {
	RunID   string `json:"runId"`
	Stage   string `json:"stage"`
	Status  string `json:"status"`
	State   string `json:"state"`
	Message string `json:"message,omitempty"`
}

// GetReportInput is the input for the get_report tool.
type GetReportInput struct {
	RunID  string `json:"runId" jsonschema:"ID of a stored run"`
	Format string `json:"format,omitempty" jsonschema:"md (default), json or mermaid"`
}

// GetReportOutput is the result of the get_report tool.
type GetReportOutput struct {
	RunID   string        `json:"runId"`
	State   string        `json:"state"`
	Format  string        `json:"format"`
	Stages  []StageStatus `json:"stages"`
	Content string        `json:"content"`
}

// ListReportsInput is the input for the list_reports tool.
type ListReportsInput struct {
	Limit int `json:"limit,omitempty" jsonschema:"maximum number of runs, most recent first (default: all)"`
}

// ListReportsOutput is the result of the list_reports tool.
type ListReportsOutput struct {
	Reports []ReportSummary `json:"reports"`
}

// ReportSummary is a brief overview of one stored run.
type ReportSummary struct {
	RunID     string `json:"runId"`
	Brief     string `json:"brief"`
	State     string `json:"state"`
	UpdatedAt string `json:"updatedAt"`
	Completed int    `json:"completed"`
	Failed    int    `json:"failed"`
	Blocked   int    `json:"blocked"`
}

// AuditPageInput is the input for the audit_page tool.
type AuditPageInput struct {
	URL     string `json:"url" jsonschema:"absolute http(s) URL of the page to audit"`
	Keyword string `json:"keyword,omitempty" jsonschema:"target keyword the page should rank for"`
}

// AuditPageOutput is the result of the audit_page tool.
type AuditPageOutput struct {
	URL       string              `json:"url"`
	Title     string              `json:"title"`
	WordCount int                 `json:"wordCount"`
	Audit     *audit.ContentAudit `json:"audit"`
	Markdown  string              `json:"markdown"`
}
