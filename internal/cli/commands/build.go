package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/leapstack-labs/conceptc/internal/cli/output"
	"github.com/leapstack-labs/conceptc/internal/engine"
	"github.com/leapstack-labs/conceptc/pkg/concept"
	"github.com/spf13/cobra"
)

// NewBuildCommand creates the build command.
func NewBuildCommand() *cobra.Command {
	var (
		watch   bool
		noCache bool
	)

	cmd := &cobra.Command{
		Use:   "build",
		Short: "Build the concept model",
		Long: `Parse every DSL script, resolve references, expand macros and print the
resulting concepts in dependency order.

Each successful build is recorded in the concept cache so that later builds
can report what changed.`,
		Example: `  # Build once
  conceptc build

  # Rebuild whenever a script, macro or types file changes
  conceptc build --watch

  # Output as JSON
  conceptc build --output json`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cc, cleanup, err := NewCommandContext(cmd)
			if err != nil {
				return err
			}
			defer cleanup()

			opts := engine.BuildOptions{Save: !noCache}
			if !watch {
				res, err := cc.Engine.Build(commandContext(cmd), opts)
				if err != nil {
					return err
				}
				return renderBuild(cc.Renderer, res)
			}

			ctx, stop := signal.NotifyContext(commandContext(cmd), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return runWatch(ctx, cc, opts)
		},
	}

	cmd.Flags().BoolVarP(&watch, "watch", "w", false, "Rebuild on file changes")
	cmd.Flags().BoolVar(&noCache, "no-cache", false, "Do not record the build in the concept cache")

	return cmd
}

func runWatch(ctx context.Context, cc *CommandContext, opts engine.BuildOptions) error {
	r := cc.Renderer
	r.Muted(fmt.Sprintf("Watching %s for changes (Ctrl+C to stop)", cc.Cfg.DSLDir))
	return cc.Engine.Watch(ctx, opts, func(res *engine.Result, err error) {
		if err != nil {
			r.Error(err.Error())
			return
		}
		if err := renderBuild(r, res); err != nil {
			r.Error(err.Error())
		}
	})
}

func renderBuild(r *output.Renderer, res *engine.Result) error {
	records := res.Records()

	switch r.EffectiveMode() {
	case output.ModeJSON:
		return r.JSON(output.BuildOutput{
			BuildID:    res.BuildID,
			Scripts:    len(res.Files),
			Parsed:     res.Parsed,
			Concepts:   conceptInfos(records),
			Added:      len(res.Diff.Added),
			Changed:    len(res.Diff.Changed),
			Removed:    len(res.Diff.Removed),
			DurationMS: res.Duration.Milliseconds(),
		})
	case output.ModeMarkdown:
		r.Header(1, "Concepts")
		for i, rec := range records {
			r.Printf("%d. `%s` (%s)\n", i+1, rec.Key, rec.Type)
		}
		r.Println("")
		r.Println(output.FormatHeader(2, "Summary"))
		r.Println(output.FormatKeyValue("Scripts", fmt.Sprintf("%d", len(res.Files))))
		r.Println(output.FormatKeyValue("Concepts", fmt.Sprintf("%d", len(records))))
		r.Println(output.FormatKeyValue("Changes", changeSummary(res)))
		if res.BuildID != "" {
			r.Println(output.FormatKeyValue("Build", res.BuildID))
		}
	default:
		styles := r.Styles()
		r.Header(1, "Concepts")
		for i, rec := range records {
			r.Printf("%4d. %s %s\n", i+1, styles.ConceptKey.Render(rec.Key), styles.Muted.Render("["+rec.Type+"]"))
		}
		r.Println("")
		r.Success(fmt.Sprintf("Built %d concepts from %d scripts in %s (%s)",
			len(records), len(res.Files), res.Duration.Round(time.Microsecond), changeSummary(res)))
	}
	return nil
}

func changeSummary(res *engine.Result) string {
	if res.Previous == nil {
		return "no previous build"
	}
	if res.Diff.Empty() {
		return "unchanged"
	}
	return fmt.Sprintf("+%d ~%d -%d", len(res.Diff.Added), len(res.Diff.Changed), len(res.Diff.Removed))
}

func conceptInfos(records []concept.Record) []output.ConceptInfo {
	out := make([]output.ConceptInfo, len(records))
	for i, rec := range records {
		out[i] = output.ConceptInfo{Key: rec.Key, Type: rec.Type, Values: rec.Values}
	}
	return out
}
