// Package cli provides the command-line interface for conceptc.
package cli

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/leapstack-labs/conceptc/internal/cli/commands"
	"github.com/leapstack-labs/conceptc/internal/config"
	"github.com/spf13/cobra"
)

// Version information (set at build time).
var (
	Version   = "0.1.0"
	BuildDate = "unknown"
	GitCommit = "unknown"
)

// NewRootCmd creates and returns the root command.
func NewRootCmd() *cobra.Command {
	var cfgFile string

	rootCmd := &cobra.Command{
		Use:   "conceptc",
		Short: "conceptc - concept model builder",
		Long: `conceptc reads scripts written in a concept DSL, resolves the references
between concepts, expands macros until the model is complete and orders the
result by dependency.`,
		Version: Version,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			// Skip config loading for help and completion commands
			if cmd.Name() == "help" || cmd.Name() == "completion" || cmd.Name() == "__complete" {
				return nil
			}

			cfg, err := config.Load(cfgFile, cmd.Root().PersistentFlags())
			if err != nil {
				return err
			}

			logger := newLogger(cmd, cfg.Verbose)
			ctx := config.WithConfig(cmd.Context(), cfg)
			ctx = config.WithLogger(ctx, logger)
			cmd.SetContext(ctx)

			if cfg.File != "" {
				logger.Debug("using config file", "path", cfg.File)
			}
			return nil
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.SetVersionTemplate(`{{.Name}} {{.Version}}
`)

	// Global persistent flags
	flags := rootCmd.PersistentFlags()
	flags.StringVar(&cfgFile, "config", "", "config file (default: ./conceptc.yaml)")
	flags.String("project-dir", "", "Project root directory")
	flags.String("dsl-dir", "", "Path to the DSL scripts directory")
	flags.String("macros-dir", "", "Path to the Starlark macros directory")
	flags.String("types-file", "", "Path to the concept types file")
	flags.String("cache", "", "Path to the concept cache database")
	flags.Int("max-iterations", config.DefaultMaxIterations, "Macro derivation depth limit")
	flags.Bool("allow-identical-duplicates", true, "Accept a concept declared twice with identical values")
	flags.Int("max-errors", config.DefaultMaxErrors, "Maximum syntax errors reported per build")
	flags.BoolP("verbose", "v", false, "Verbose output")
	flags.StringP("output", "o", "", "Output format (auto|text|markdown|json)")

	_ = rootCmd.RegisterFlagCompletionFunc("output", func(_ *cobra.Command, _ []string, _ string) ([]string, cobra.ShellCompDirective) {
		return config.OutputFormats, cobra.ShellCompDirectiveNoFileComp
	})

	rootCmd.AddCommand(commands.NewVersionCommand(Version))
	rootCmd.AddCommand(commands.NewInitCommand())
	rootCmd.AddCommand(commands.NewBuildCommand())
	rootCmd.AddCommand(commands.NewKeysCommand())
	rootCmd.AddCommand(commands.NewDAGCommand())
	rootCmd.AddCommand(commands.NewDiffCommand())
	rootCmd.AddCommand(commands.NewTypesCommand())
	rootCmd.AddCommand(commands.NewHistoryCommand())

	return rootCmd
}

// newLogger writes text logs to stderr: warnings by default, debug with --verbose.
func newLogger(cmd *cobra.Command, verbose bool) *slog.Logger {
	level := slog.LevelWarn
	if verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level}))
}

// Execute runs the root command.
func Execute() error {
	rootCmd := NewRootCmd()
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return err
	}
	return nil
}
