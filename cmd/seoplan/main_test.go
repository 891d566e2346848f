package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// execute runs the root command with args and returns stdout and stderr.
func execute(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	cmd := newRootCmd()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

// globals points the config dir and database into a temp dir.
func globals(t *testing.T) []string {
	t.Helper()
	dir := t.TempDir()
	return []string{"--config-dir", dir, "--db", filepath.Join(dir, "reports.db")}
}

func TestVersion(t *testing.T) {
	out, _, err := execute(t, append(globals(t), "version")...)
	require.NoError(t, err)
	assert.Equal(t, "dev\n", out)
}

func TestRun_OfflineNoSave(t *testing.T) {
	out, progress, err := execute(t, append(globals(t),
		"run", "--offline", "--no-save", "--format", "json", "plombier, Paris 11e")...)
	require.NoError(t, err)

	var report map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &report))
	assert.Equal(t, "plombier, Paris 11e", report["brief"])
	assert.Equal(t, "all-completed", report["state"])
	assert.Len(t, report["stages"], 7)

	assert.Contains(t, progress, "✓ coordinator complete")
	assert.Contains(t, progress, ": all-completed")
}

func TestRun_SaveThenInspect(t *testing.T) {
	g := globals(t)

	out, _, err := execute(t, append(g, "run", "--offline", "-f", "json", "serrurier, Lyon")...)
	require.NoError(t, err)
	var report struct {
		ID string `json:"id"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &report))
	require.NotEmpty(t, report.ID)

	list, _, err := execute(t, append(g, "report", "list")...)
	require.NoError(t, err)
	assert.Contains(t, list, report.ID)
	assert.Contains(t, list, "7 ok / 0 failed / 0 blocked")
	assert.Contains(t, list, "serrurier, Lyon")

	md, _, err := execute(t, append(g, "report", "show", report.ID)...)
	require.NoError(t, err)
	assert.Contains(t, md, "> serrurier, Lyon")

	mm, _, err := execute(t, append(g, "report", "show", report.ID, "--format", "mermaid")...)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(mm, "graph TD\n"))
	assert.Contains(t, mm, "class snippet completed")

	_, stageLog, err := execute(t, append(g, "stage", "--offline", report.ID, "snippet")...)
	require.NoError(t, err)
	assert.Contains(t, stageLog, "stage snippet completed, run all-completed")

	_, _, err = execute(t, append(g, "stage", "--offline", report.ID, "backlinks")...)
	require.Error(t, err)

	del, _, err := execute(t, append(g, "report", "delete", report.ID)...)
	require.NoError(t, err)
	assert.Contains(t, del, "deleted "+report.ID)

	_, _, err = execute(t, append(g, "report", "show", report.ID)...)
	require.Error(t, err)
}

func TestReportList_Empty(t *testing.T) {
	out, _, err := execute(t, append(globals(t), "report", "list")...)
	require.NoError(t, err)
	assert.Contains(t, out, "No saved runs.")
}

func TestReportList_StateFilter(t *testing.T) {
	g := globals(t)
	_, _, err := execute(t, append(g, "run", "--offline", "plombier, Paris")...)
	require.NoError(t, err)

	out, _, err := execute(t, append(g, "report", "list", "--state", "all-completed")...)
	require.NoError(t, err)
	assert.Contains(t, out, "plombier, Paris")

	out, _, err = execute(t, append(g, "report", "list", "--state", "partially-failed")...)
	require.NoError(t, err)
	assert.Contains(t, out, "No saved runs.")

	_, _, err = execute(t, append(g, "report", "list", "--state", "done")...)
	require.Error(t, err)
	assert.Contains(t, err.Error(), `unknown state "done"`)
}

func TestRun_RequiresAPIKeyWhenOnline(t *testing.T) {
	for _, key := range []string{"SEOPLAN_API_KEY", "GEMINI_API_KEY", "GOOGLE_API_KEY"} {
		t.Setenv(key, "")
	}
	_, _, err := execute(t, append(globals(t), "run", "--no-save", "plombier")...)
	require.ErrorIs(t, err, errNoAPIKey)
}

func TestRun_OutputFile(t *testing.T) {
	g := globals(t)
	path := filepath.Join(t.TempDir(), "report.md")

	out, _, err := execute(t, append(g, "run", "--offline", "--no-save", "-o", path, "plombier")...)
	require.NoError(t, err)
	assert.Empty(t, out)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "# Stratégie SEO")
}

func TestReadBrief(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "brief.txt")
	require.NoError(t, os.WriteFile(file, []byte("  plombier, Paris\n"), 0o644))

	got, err := readBrief(nil, []string{"arg brief"}, "")
	require.NoError(t, err)
	assert.Equal(t, "arg brief", got)

	got, err = readBrief(nil, nil, file)
	require.NoError(t, err)
	assert.Equal(t, "plombier, Paris", got)

	got, err = readBrief(strings.NewReader("from stdin\n"), nil, "-")
	require.NoError(t, err)
	assert.Equal(t, "from stdin", got)

	_, err = readBrief(nil, []string{"a"}, file)
	require.Error(t, err)

	_, err = readBrief(nil, nil, "")
	require.Error(t, err)

	_, err = readBrief(nil, nil, filepath.Join(dir, "missing.txt"))
	require.Error(t, err)
}

func TestInit(t *testing.T) {
	g := globals(t)
	dir := t.TempDir()

	out, _, err := execute(t, append(g, "init", "--prompts", dir)...)
	require.NoError(t, err)
	assert.Contains(t, out, "created ./seoplan.yml")
	assert.Contains(t, out, "created ./prompts/strategic.tmpl")
	assert.Contains(t, out, "created .mcp.json with seoplan MCP server")

	cfg, err := os.ReadFile(filepath.Join(dir, "seoplan.yml"))
	require.NoError(t, err)
	assert.Contains(t, string(cfg), "promptsDir: "+filepath.Join(dir, "prompts"))

	var mcp mcpConfig
	data, err := os.ReadFile(filepath.Join(dir, ".mcp.json"))
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(data, &mcp))
	assert.Contains(t, mcp.MCPServers, "seoplan")

	// The written config loads, and the copied prompts drive a run.
	out, _, err = execute(t, "--config-dir", dir, "--db", filepath.Join(dir, "r.db"),
		"run", "--offline", "--no-save", "-f", "json", "plombier")
	require.NoError(t, err)
	assert.Contains(t, out, `"state": "all-completed"`)

	again, _, err := execute(t, append(g, "init", dir)...)
	require.NoError(t, err)
	assert.Contains(t, again, "skipped ./seoplan.yml")
	assert.Contains(t, again, "skipped .mcp.json seoplan entry")
}
