package commands

import (
	"fmt"
	"strings"

	"github.com/leapstack-labs/conceptc/internal/cli/output"
	"github.com/leapstack-labs/conceptc/internal/engine"
	"github.com/leapstack-labs/conceptc/pkg/concept"
	"github.com/spf13/cobra"
)

// NewTypesCommand creates the types command.
func NewTypesCommand() *cobra.Command {
	var showMembers bool

	cmd := &cobra.Command{
		Use:   "types",
		Short: "List concept types and macros",
		Long: `List the concept types available to scripts, from the built-in plugin
and the project's types file, together with the macros they trigger.`,
		Example: `  # Types with keywords and macros
  conceptc types

  # Include member lists
  conceptc types --members`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cc := NewCommandContextWithoutEngine(cmd)
			eng, err := engine.New(EngineConfig(cc.Cfg, cc.Logger))
			if err != nil {
				return err
			}
			defer func() { _ = eng.Close() }()

			return renderTypes(cc.Renderer, typesOutput(eng), showMembers)
		},
	}

	cmd.Flags().BoolVar(&showMembers, "members", false, "Show the members of each type")

	return cmd
}

func typesOutput(eng *engine.Engine) output.TypesOutput {
	p := eng.Pipeline()
	var out output.TypesOutput
	for _, t := range p.Registry.Types() {
		info := output.TypeInfo{Name: t.Name, Keyword: t.Keyword}
		if t.Base != nil {
			info.Base = t.Base.Name
		}
		for _, m := range t.AllMembers() {
			mi := output.MemberInfo{Name: m.Name, Kind: memberKind(m), Key: m.Key}
			if m.IsConcept() {
				mi.Ref = m.TypeName()
			}
			info.Members = append(info.Members, mi)
		}
		out.Types = append(out.Types, info)
	}
	for _, m := range p.Macros {
		mi := output.MacroInfo{Name: m.Name(), Trigger: m.Trigger()}
		if d, ok := m.(interface{ Doc() string }); ok {
			mi.Doc = d.Doc()
		}
		if v, ok := m.(interface{ IsValidator() bool }); ok {
			mi.Validator = v.IsValidator()
		}
		out.Macros = append(out.Macros, mi)
	}
	return out
}

func memberKind(m concept.Member) string {
	if m.Kind == concept.Scalar {
		return m.Scalar.String()
	}
	return m.Kind.String()
}

func renderTypes(r *output.Renderer, out output.TypesOutput, showMembers bool) error {
	if r.EffectiveMode() == output.ModeJSON {
		return r.JSON(out)
	}

	r.Header(1, "Concept Types")
	rows := make([][]string, 0, len(out.Types))
	for _, t := range out.Types {
		keyword := t.Keyword
		if keyword == "" {
			keyword = "(abstract)"
		}
		row := []string{t.Name, keyword, t.Base}
		if showMembers {
			row = append(row, describeMembers(t.Members))
		}
		rows = append(rows, row)
	}
	header := []string{"Type", "Keyword", "Base"}
	if showMembers {
		header = append(header, "Members")
	}
	r.Table(header, rows)
	r.Println("")

	r.Header(2, "Macros")
	if len(out.Macros) == 0 {
		r.Muted("No macros")
		return nil
	}
	rows = rows[:0]
	for _, m := range out.Macros {
		kind := "macro"
		if m.Validator {
			kind = "validator"
		}
		rows = append(rows, []string{m.Name, m.Trigger, kind, firstLine(m.Doc)})
	}
	r.Table([]string{"Name", "Trigger", "Kind", "Doc"}, rows)
	return nil
}

func describeMembers(members []output.MemberInfo) string {
	parts := make([]string, len(members))
	for i, m := range members {
		s := fmt.Sprintf("%s:%s", m.Name, m.Kind)
		if m.Ref != "" {
			s += "(" + m.Ref + ")"
		}
		if m.Key {
			s += "*"
		}
		parts[i] = s
	}
	return strings.Join(parts, " ")
}

func firstLine(s string) string {
	s = strings.TrimSpace(s)
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}
