package main

import (
	"encoding/json"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/dusk-indust/seoplan/internal/config"
	"github.com/dusk-indust/seoplan/internal/prompts"
)

// mcpConfig represents the structure of a .mcp.json file.
type mcpConfig struct {
	MCPServers map[string]json.RawMessage `json:"mcpServers"`
}

// seoplanMCPEntry is the MCP server configuration for the seoplan binary.
var seoplanMCPEntry = json.RawMessage(`{
  "type": "stdio",
  "command": "seoplan",
  "args": ["serve-mcp"]
}`)

const configTemplate = `# seoplan configuration
model: %s
# apiKey is read from SEOPLAN_API_KEY, GEMINI_API_KEY or GOOGLE_API_KEY when unset.
# temperature: 0.7
stageTimeout: 2m
httpTimeout: 30s
# strict rejects stage outputs missing required fields.
strict: false
# grounded enables Google Search grounding for the authority stage.
grounded: true
# dbPath: %s
%saudit:
  maxChars: %d
`

func (c *cli) newInitCmd() *cobra.Command {
	var (
		force       bool
		withPrompts bool
	)
	cmd := &cobra.Command{
		Use:   "init [dir]",
		Short: "Write seoplan.yml and register the MCP server in .mcp.json",
		Long: `Creates seoplan.yml in dir (default: the current directory) and adds a
seoplan entry to dir/.mcp.json. With --prompts the built-in prompt templates
are copied to dir/prompts and seoplan.yml points at them for editing.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir := "."
			if len(args) > 0 {
				dir = args[0]
			}
			return runInit(cmd.OutOrStdout(), dir, force, withPrompts)
		},
	}
	cmd.Flags().BoolVar(&force, "force", false, "overwrite existing files")
	cmd.Flags().BoolVar(&withPrompts, "prompts", false, "copy the built-in prompt templates for editing")
	return cmd
}

// runInit installs seoplan.yml, optional prompt templates, and the MCP
// configuration into dir.
func runInit(w io.Writer, dir string, force, withPrompts bool) error {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return fmt.Errorf("resolving %s: %w", dir, err)
	}
	if err := os.MkdirAll(abs, 0o755); err != nil {
		return err
	}

	promptsLine := ""
	if withPrompts {
		if err := copyPrompts(w, abs, force); err != nil {
			return fmt.Errorf("copying prompt templates: %w", err)
		}
		promptsLine = "promptsDir: " + filepath.Join(abs, "prompts") + "\n"
	}

	defaults := config.Defaults()
	body := fmt.Sprintf(configTemplate, defaults.Model, defaults.DBPath, promptsLine, defaults.Audit.MaxChars)
	if err := writeFile(w, abs, filepath.Join(abs, config.FileNames[0]), []byte(body), force); err != nil {
		return err
	}

	if err := mergeMCPConfig(w, filepath.Join(abs, ".mcp.json"), force); err != nil {
		return err
	}

	fmt.Fprintln(w, "\nSetup complete. Run 'seoplan run \"<brief>\"' or connect an MCP client.")
	return nil
}

func copyPrompts(w io.Writer, root string, force bool) error {
	src := prompts.Templates()
	return fs.WalkDir(src, ".", func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		dest := filepath.Join(root, "prompts", filepath.FromSlash(path))
		if d.IsDir() {
			return os.MkdirAll(dest, 0o755)
		}
		data, err := fs.ReadFile(src, path)
		if err != nil {
			return fmt.Errorf("reading embedded %s: %w", path, err)
		}
		return writeFile(w, root, dest, data, force)
	})
}

// writeFile writes data to dest unless it exists and force is unset.
func writeFile(w io.Writer, root, dest string, data []byte, force bool) error {
	if !force {
		if _, err := os.Stat(dest); err == nil {
			fmt.Fprintf(w, "  skipped %s (exists, use --force to overwrite)\n", dotRelative(root, dest))
			return nil
		}
	}
	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return err
	}
	if err := os.WriteFile(dest, data, 0o644); err != nil {
		return fmt.Errorf("writing %s: %w", dest, err)
	}
	fmt.Fprintf(w, "  created %s\n", dotRelative(root, dest))
	return nil
}

// mergeMCPConfig creates or merges the seoplan entry into .mcp.json.
func mergeMCPConfig(w io.Writer, mcpPath string, force bool) error {
	var cfg mcpConfig

	data, err := os.ReadFile(mcpPath)
	if err == nil {
		if err := json.Unmarshal(data, &cfg); err != nil {
			return fmt.Errorf("parsing %s: %w", mcpPath, err)
		}
	}

	if cfg.MCPServers == nil {
		cfg.MCPServers = make(map[string]json.RawMessage)
	}

	if _, exists := cfg.MCPServers["seoplan"]; exists && !force {
		fmt.Fprintln(w, "  skipped .mcp.json seoplan entry (exists, use --force to overwrite)")
		return nil
	}

	cfg.MCPServers["seoplan"] = seoplanMCPEntry

	out, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling .mcp.json: %w", err)
	}

	if err := os.WriteFile(mcpPath, append(out, '\n'), 0o644); err != nil {
		return fmt.Errorf("writing %s: %w", mcpPath, err)
	}

	action := "created"
	if data != nil {
		action = "updated"
	}
	fmt.Fprintf(w, "  %s .mcp.json with seoplan MCP server\n", action)
	return nil
}

// dotRelative returns a display path relative to base, prefixed with "./".
func dotRelative(base, path string) string {
	rel, err := filepath.Rel(base, path)
	if err != nil {
		return path
	}
	return "./" + rel
}
