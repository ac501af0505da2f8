package commands

import (
	"fmt"
	"time"

	"github.com/leapstack-labs/conceptc/internal/cli/output"
	"github.com/leapstack-labs/conceptc/internal/engine"
	"github.com/leapstack-labs/conceptc/internal/state"
	"github.com/spf13/cobra"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// NewHistoryCommand creates the history command.
func NewHistoryCommand() *cobra.Command {
	var (
		limit int
		prune int
	)

	cmd := &cobra.Command{
		Use:   "history",
		Short: "List builds recorded in the concept cache",
		Example: `  # Last 10 builds
  conceptc history

  # Keep only the 5 most recent builds
  conceptc history --prune 5`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cc := NewCommandContextWithoutEngine(cmd)
			if cc.Cfg.CachePath == "" {
				return fmt.Errorf("the concept cache is disabled (cache_path is empty)")
			}
			eng, err := engine.New(EngineConfig(cc.Cfg, cc.Logger))
			if err != nil {
				return err
			}
			defer func() { _ = eng.Close() }()

			store, err := eng.Store()
			if err != nil {
				return err
			}
			ctx := commandContext(cmd)

			if cmd.Flags().Changed("prune") {
				n, err := store.Prune(ctx, prune)
				if err != nil {
					return err
				}
				cc.Renderer.Success(fmt.Sprintf("Pruned %d builds", n))
				return nil
			}

			builds, err := store.ListBuilds(ctx, limit)
			if err != nil {
				return err
			}
			return renderHistory(cc.Renderer, builds)
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 10, "Number of builds to show")
	cmd.Flags().IntVar(&prune, "prune", 0, "Delete all but the N most recent builds")

	return cmd
}

func renderHistory(r *output.Renderer, builds []*state.Build) error {
	infos := make([]output.BuildInfo, len(builds))
	for i, b := range builds {
		infos[i] = output.BuildInfo{
			ID:        b.ID,
			Status:    string(b.Status),
			StartedAt: b.StartedAt.Local().Format(time.DateTime),
			Scripts:   b.Scripts,
			Concepts:  b.Concepts,
			Error:     b.Error,
		}
	}

	if r.EffectiveMode() == output.ModeJSON {
		return r.JSON(infos)
	}

	r.Header(1, "Builds")
	if len(infos) == 0 {
		r.Muted("No builds recorded")
		return nil
	}
	titleCaser := cases.Title(language.English)
	rows := make([][]string, len(infos))
	for i, b := range infos {
		rows[i] = []string{b.ID, titleCaser.String(b.Status), b.StartedAt, fmt.Sprint(b.Scripts), fmt.Sprint(b.Concepts), firstLine(b.Error)}
	}
	r.Table([]string{"ID", "Status", "Started", "Scripts", "Concepts", "Error"}, rows)
	return nil
}
