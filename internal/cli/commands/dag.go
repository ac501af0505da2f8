package commands

import (
	"fmt"
	"slices"
	"strings"

	"github.com/leapstack-labs/conceptc/internal/cli/output"
	"github.com/leapstack-labs/conceptc/internal/dag"
	"github.com/leapstack-labs/conceptc/internal/engine"
	"github.com/leapstack-labs/conceptc/internal/resolver"
	"github.com/spf13/cobra"
)

// GraphQuerier provides read-only access to DAG structure.
type GraphQuerier interface {
	GetParents(string) []string
	GetChildren(string) []string
	NodeCount() int
	EdgeCount() int
}

// NewDAGCommand creates the dag command.
func NewDAGCommand() *cobra.Command {
	var focus string

	cmd := &cobra.Command{
		Use:   "dag",
		Short: "Show the dependency graph",
		Long: `Display the dependency graph of all concepts.

Concepts are grouped by level: a concept depends only on concepts of
lower levels, through its references or through explicit macro edges.

Output adapts to environment:
  - Terminal: Styled output with colors
  - Piped/Scripted: Markdown format (agent-friendly)`,
		Example: `  # Show the DAG
  conceptc dag

  # Output as JSON
  conceptc dag --output json

  # Everything a single concept depends on, and everything built on it
  conceptc dag --concept "EntityInfo Shop.Customer"`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runDAG(cmd, focus)
		},
	}

	cmd.Flags().StringVar(&focus, "concept", "", "Show the upstream and downstream concepts of one concept key")

	return cmd
}

func runDAG(cmd *cobra.Command, focus string) error {
	cc, cleanup, err := NewCommandContext(cmd)
	if err != nil {
		return err
	}
	defer cleanup()

	res, err := cc.Engine.Build(commandContext(cmd), engine.BuildOptions{})
	if err != nil {
		return err
	}

	graph, err := resolver.Graph(res.Model)
	if err != nil {
		return err
	}
	if focus != "" {
		return dagFocus(cc.Renderer, graph, focus)
	}

	levels, err := graph.GetExecutionLevels()
	if err != nil {
		return fmt.Errorf("failed to get dependency levels: %w", err)
	}

	r := cc.Renderer
	switch r.EffectiveMode() {
	case output.ModeJSON:
		return dagJSON(r, graph, levels)
	case output.ModeMarkdown:
		return dagMarkdown(r, graph, levels)
	default:
		return dagText(r, graph, levels)
	}
}

// dagFocus outputs the transitive dependencies and dependents of one concept.
func dagFocus(r *output.Renderer, graph *dag.Graph, key string) error {
	if _, ok := graph.GetNode(key); !ok {
		return fmt.Errorf("concept %q not found", key)
	}
	out := output.DAGFocus{
		Key:        key,
		Upstream:   graph.GetUpstreamNodes(key),
		Downstream: graph.GetAffectedNodes([]string{key}),
	}
	out.Downstream = slices.DeleteFunc(out.Downstream, func(k string) bool { return k == key })

	switch r.EffectiveMode() {
	case output.ModeJSON:
		return r.JSON(out)
	case output.ModeMarkdown:
		r.Println(output.FormatHeader(1, key))
		r.Println("")
		focusSectionMarkdown(r, "Depends on", out.Upstream)
		focusSectionMarkdown(r, "Used by", out.Downstream)
	default:
		styles := r.Styles()
		r.Header(1, key)
		r.Println(styles.Header2.Render(fmt.Sprintf("Depends on (%d):", len(out.Upstream))))
		for _, k := range out.Upstream {
			r.Printf("  %s\n", styles.ConceptKey.Render(k))
		}
		r.Println(styles.Header2.Render(fmt.Sprintf("Used by (%d):", len(out.Downstream))))
		for _, k := range out.Downstream {
			r.Printf("  %s\n", styles.ConceptKey.Render(k))
		}
	}
	return nil
}

func focusSectionMarkdown(r *output.Renderer, title string, keys []string) {
	r.Println(output.FormatHeader(2, fmt.Sprintf("%s (%d)", title, len(keys))))
	for _, k := range keys {
		r.Printf("- %s\n", k)
	}
	r.Println("")
}

// dagText outputs DAG in styled text format.
func dagText(r *output.Renderer, graph GraphQuerier, levels [][]string) error {
	styles := r.Styles()

	r.Header(1, "Dependency Graph")

	for i, level := range levels {
		r.Println(styles.Header2.Render(fmt.Sprintf("Level %d:", i)))
		for _, key := range level {
			r.Printf("  %s\n", styles.ConceptKey.Render(key))
			if deps := graph.GetParents(key); len(deps) > 0 {
				r.Printf("    %s %s\n", styles.Muted.Render("depends on:"), strings.Join(deps, ", "))
			}
			if children := graph.GetChildren(key); len(children) > 0 {
				r.Printf("    %s %s\n", styles.Muted.Render("used by:"), strings.Join(children, ", "))
			}
		}
		r.Println("")
	}

	r.Println(styles.Muted.Render(fmt.Sprintf("Total: %d concepts, %d dependencies", graph.NodeCount(), graph.EdgeCount())))
	return nil
}

// dagMarkdown outputs DAG in markdown format.
func dagMarkdown(r *output.Renderer, graph GraphQuerier, levels [][]string) error {
	r.Println(output.FormatHeader(1, "Dependency Graph"))
	r.Println("")

	for i, level := range levels {
		r.Println(output.FormatHeader(2, fmt.Sprintf("Level %d", i)))
		for _, key := range level {
			r.Printf("- %s\n", key)
			if deps := graph.GetParents(key); len(deps) > 0 {
				r.Printf("  - depends on: %s\n", strings.Join(deps, ", "))
			}
			if children := graph.GetChildren(key); len(children) > 0 {
				r.Printf("  - used by: %s\n", strings.Join(children, ", "))
			}
		}
		r.Println("")
	}

	r.Println(output.FormatHeader(2, "Summary"))
	r.Println(output.FormatKeyValue("Total Concepts", fmt.Sprintf("%d", graph.NodeCount())))
	r.Println(output.FormatKeyValue("Total Dependencies", fmt.Sprintf("%d", graph.EdgeCount())))
	return nil
}

// dagJSON outputs DAG in JSON format.
func dagJSON(r *output.Renderer, graph GraphQuerier, levels [][]string) error {
	out := output.DAGOutput{
		Levels:        make([]output.DAGLevel, 0, len(levels)),
		TotalConcepts: graph.NodeCount(),
		TotalEdges:    graph.EdgeCount(),
	}
	for i, level := range levels {
		l := output.DAGLevel{Level: i, Concepts: make([]output.DAGNode, 0, len(level))}
		for _, key := range level {
			l.Concepts = append(l.Concepts, output.DAGNode{
				Key:       key,
				DependsOn: graph.GetParents(key),
				UsedBy:    graph.GetChildren(key),
			})
		}
		out.Levels = append(out.Levels, l)
	}
	return r.JSON(out)
}
