package commands

import (
	"fmt"
	"slices"

	"github.com/leapstack-labs/conceptc/internal/cli/output"
	"github.com/leapstack-labs/conceptc/internal/diff"
	"github.com/leapstack-labs/conceptc/internal/engine"
	"github.com/leapstack-labs/conceptc/internal/resolver"
	"github.com/spf13/cobra"
)

// NewDiffCommand creates the diff command.
func NewDiffCommand() *cobra.Command {
	var save bool

	cmd := &cobra.Command{
		Use:   "diff",
		Short: "Compare the concept model with the last cached build",
		Long: `Build the concept model and report which concepts were added, changed
or removed since the last successful build recorded in the concept cache.

Concepts that did not change themselves but depend on an added or changed
concept are listed as affected.`,
		Example: `  # What changed since the last build?
  conceptc diff

  # Compare, then record this build
  conceptc diff --save`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cc, cleanup, err := NewCommandContext(cmd)
			if err != nil {
				return err
			}
			defer cleanup()

			if cc.Cfg.CachePath == "" {
				return fmt.Errorf("the concept cache is disabled (cache_path is empty)")
			}
			res, err := cc.Engine.Build(commandContext(cmd), engine.BuildOptions{Save: save})
			if err != nil {
				return err
			}
			affected, err := affectedKeys(res)
			if err != nil {
				return err
			}
			return renderDiff(cc.Renderer, res, affected)
		},
	}

	cmd.Flags().BoolVar(&save, "save", false, "Record this build in the concept cache")

	return cmd
}

// affectedKeys returns the downstream dependents of added and changed
// concepts, excluding those concepts themselves.
func affectedKeys(res *engine.Result) ([]string, error) {
	changed := append(diff.Keys(res.Diff.Added), changedKeys(res.Diff)...)
	if len(changed) == 0 {
		return nil, nil
	}
	graph, err := resolver.Graph(res.Model)
	if err != nil {
		return nil, err
	}
	var affected []string
	for _, k := range graph.GetAffectedNodes(changed) {
		if !slices.Contains(changed, k) {
			affected = append(affected, k)
		}
	}
	return affected, nil
}

func renderDiff(r *output.Renderer, res *engine.Result, affected []string) error {
	d := res.Diff
	prev := ""
	if res.Previous != nil {
		prev = res.Previous.ID
	}

	switch r.EffectiveMode() {
	case output.ModeJSON:
		out := output.DiffOutput{
			Previous: prev,
			Added:    conceptInfos(d.Added),
			Changed:  make([]output.ChangeInfo, len(d.Changed)),
			Removed:  conceptInfos(d.Removed),
			Affected: affected,
		}
		for i, c := range d.Changed {
			out.Changed[i] = output.ChangeInfo{Key: c.New.Key, Old: c.Old.Values, New: c.New.Values}
		}
		return r.JSON(out)
	case output.ModeMarkdown:
		r.Header(1, "Concept Changes")
		if res.Previous == nil {
			r.Println("No cached build; every concept is new.")
			r.Println("")
		}
		diffSectionMarkdown(r, "Added", diff.Keys(d.Added))
		diffSectionMarkdown(r, "Changed", changedKeys(d))
		diffSectionMarkdown(r, "Removed", diff.Keys(d.Removed))
		diffSectionMarkdown(r, "Affected", affected)
	default:
		styles := r.Styles()
		r.Header(1, "Concept Changes")
		if res.Previous == nil {
			r.Warning("no cached build; every concept is new")
		}
		if d.Empty() {
			r.Success("No changes")
			return nil
		}
		for _, k := range diff.Keys(d.Added) {
			r.Printf("%s %s\n", styles.Success.Render("+"), k)
		}
		for _, c := range d.Changed {
			r.Printf("%s %s\n", styles.Warning.Render("~"), c.New.Key)
			for _, line := range valueChanges(c) {
				r.Printf("    %s\n", styles.Muted.Render(line))
			}
		}
		for _, k := range diff.Keys(d.Removed) {
			r.Printf("%s %s\n", styles.Error.Render("-"), k)
		}
		for _, k := range affected {
			r.Printf("%s %s\n", styles.Info.Render("*"), k)
		}
		r.Println("")
		summary := fmt.Sprintf("%d added, %d changed, %d removed", len(d.Added), len(d.Changed), len(d.Removed))
		if len(affected) > 0 {
			summary += fmt.Sprintf(", %d affected", len(affected))
		}
		r.Muted(summary)
	}
	return nil
}

func diffSectionMarkdown(r *output.Renderer, title string, keys []string) {
	if len(keys) == 0 {
		return
	}
	r.Println(output.FormatHeader(2, fmt.Sprintf("%s (%d)", title, len(keys))))
	for _, k := range keys {
		r.Printf("- `%s`\n", k)
	}
	r.Println("")
}

func changedKeys(d diff.Result) []string {
	keys := make([]string, len(d.Changed))
	for i, c := range d.Changed {
		keys[i] = c.New.Key
	}
	return keys
}

// valueChanges describes the members that differ between two versions.
func valueChanges(c diff.Change) []string {
	var lines []string
	for name, old := range c.Old.Values {
		if nv, ok := c.New.Values[name]; !ok {
			lines = append(lines, fmt.Sprintf("%s: %q -> (unset)", name, old))
		} else if nv != old {
			lines = append(lines, fmt.Sprintf("%s: %q -> %q", name, old, nv))
		}
	}
	for name, nv := range c.New.Values {
		if _, ok := c.Old.Values[name]; !ok {
			lines = append(lines, fmt.Sprintf("%s: (unset) -> %q", name, nv))
		}
	}
	slices.Sort(lines)
	return lines
}
