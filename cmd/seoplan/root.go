package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/dusk-indust/seoplan/internal/config"
	"github.com/dusk-indust/seoplan/internal/logging"
)

// cli holds the global flags and what PersistentPreRunE builds from them.
type cli struct {
	configDir string
	dbPath    string
	verbose   bool
	jsonLogs  bool

	cfg    *config.Config
	logger *zap.Logger
}

func newRootCmd() *cobra.Command {
	c := &cli{}

	root := &cobra.Command{
		Use:   "seoplan",
		Short: "Generate a staged SEO strategy from a business brief",
		Long: `seoplan turns a free-text business brief into an SEO strategy.

Seven stages run as a dependency graph, independent stages in parallel:
  strategic  → cluster → content, technical, authority → snippet → coordinator

Each stage asks a language model for a JSON document, repairs and defaults it
against the stage schema, and hands it to its dependents. A failed stage only
blocks its own dependents; the report keeps everything that completed.`,
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: c.setup,
		PersistentPostRun: func(*cobra.Command, []string) {
			if c.logger != nil {
				_ = c.logger.Sync()
			}
		},
	}

	flags := root.PersistentFlags()
	flags.StringVar(&c.configDir, "config-dir", ".", "directory containing seoplan.yml")
	flags.StringVar(&c.dbPath, "db", "", "report database path (default from config)")
	flags.BoolVarP(&c.verbose, "verbose", "v", false, "enable debug logging")
	flags.BoolVar(&c.jsonLogs, "log-json", false, "write logs as JSON")

	root.AddCommand(
		c.newRunCmd(),
		c.newStageCmd(),
		c.newReportCmd(),
		c.newAuditCmd(),
		c.newServeMCPCmd(),
		c.newInitCmd(),
		newVersionCmd(),
	)
	return root
}

// setup loads the config and builds the logger. Flags override the file.
func (c *cli) setup(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load(c.configDir)
	if err != nil {
		return err
	}
	if c.dbPath != "" {
		cfg.DBPath = c.dbPath
	}
	if c.verbose {
		cfg.Verbose = true
	}
	c.cfg = cfg

	logger, err := logging.New(logging.Options{Verbose: cfg.Verbose, JSON: c.jsonLogs})
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	c.logger = logger.With(zap.String("cmd", cmd.Name()))
	return nil
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the seoplan version",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			_, err := fmt.Fprintln(cmd.OutOrStdout(), version)
			return err
		},
	}
}
