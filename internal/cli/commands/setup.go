// Package commands implements the conceptc subcommands.
package commands

import (
	"context"
	"log/slog"

	"github.com/leapstack-labs/conceptc/internal/cli/output"
	"github.com/leapstack-labs/conceptc/internal/config"
	"github.com/leapstack-labs/conceptc/internal/engine"
	"github.com/spf13/cobra"
)

// CommandContext holds common dependencies for CLI commands.
type CommandContext struct {
	Cfg      *config.Config
	Logger   *slog.Logger
	Engine   *engine.Engine
	Renderer *output.Renderer
}

// NewCommandContext creates a CommandContext with engine and renderer.
// Returns the context and a cleanup function that must be called (typically via defer).
func NewCommandContext(cmd *cobra.Command) (*CommandContext, func(), error) {
	cc := NewCommandContextWithoutEngine(cmd)

	if err := cc.Cfg.ValidateDirectories(); err != nil {
		return nil, nil, err
	}
	eng, err := engine.New(EngineConfig(cc.Cfg, cc.Logger))
	if err != nil {
		return nil, nil, err
	}
	cc.Engine = eng

	cleanup := func() {
		if err := eng.Close(); err != nil {
			cc.Logger.Warn("failed to close engine", "error", err)
		}
	}
	return cc, cleanup, nil
}

// NewCommandContextWithoutEngine creates a CommandContext without an engine.
// Useful for commands that don't read the project.
func NewCommandContextWithoutEngine(cmd *cobra.Command) *CommandContext {
	ctx := commandContext(cmd)
	cfg := config.FromContext(ctx)
	return &CommandContext{
		Cfg:      cfg,
		Logger:   config.GetLogger(ctx),
		Renderer: output.NewRenderer(cmd.OutOrStdout(), cmd.ErrOrStderr(), output.Mode(cfg.OutputFormat)),
	}
}

// EngineConfig maps the CLI configuration onto the engine.
func EngineConfig(cfg *config.Config, logger *slog.Logger) engine.Config {
	return engine.Config{
		DSLDir:                   cfg.DSLDir,
		MacrosDir:                cfg.MacrosDir,
		TypesFile:                cfg.TypesFile,
		CachePath:                cfg.CachePath,
		MaxIterations:            cfg.MaxIterations,
		AllowIdenticalDuplicates: cfg.AllowIdenticalDuplicates,
		MaxErrors:                cfg.MaxErrors,
		Logger:                   logger,
	}
}

func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}
