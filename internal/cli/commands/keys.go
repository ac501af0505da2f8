package commands

import (
	"slices"

	"github.com/leapstack-labs/conceptc/internal/cli/output"
	"github.com/leapstack-labs/conceptc/internal/engine"
	"github.com/leapstack-labs/conceptc/internal/resolver"
	"github.com/leapstack-labs/conceptc/pkg/concept"
	"github.com/spf13/cobra"
)

// NewKeysCommand creates the keys command.
func NewKeysCommand() *cobra.Command {
	var (
		sorted   bool
		typeName string
	)

	cmd := &cobra.Command{
		Use:   "keys",
		Short: "List the identity keys of all concepts",
		Long: `Build the concept model without recording it and print one identity key
per line, in the order the concepts entered the model.`,
		Example: `  # All keys
  conceptc keys

  # Only entities, sorted
  conceptc keys --type EntityInfo --sorted`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cc, cleanup, err := NewCommandContext(cmd)
			if err != nil {
				return err
			}
			defer cleanup()

			res, err := cc.Engine.Build(commandContext(cmd), engine.BuildOptions{})
			if err != nil {
				return err
			}

			keys := res.Model.Keys()
			if typeName != "" {
				keys = keysOfType(res.Model, typeName)
			}
			if sorted {
				slices.Sort(keys)
			}

			r := cc.Renderer
			if r.EffectiveMode() == output.ModeJSON {
				return r.JSON(keys)
			}
			for _, k := range keys {
				r.Println(k)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&sorted, "sorted", false, "Sort keys alphabetically")
	cmd.Flags().StringVar(&typeName, "type", "", "Only concepts of this type or types derived from it")

	return cmd
}

func keysOfType(m *resolver.Model, typeName string) []string {
	match := make(map[*concept.Instance]bool)
	for _, inst := range m.ByType(typeName) {
		match[inst] = true
	}
	all := m.Keys()
	keys := []string{}
	for i, inst := range m.Concepts() {
		if match[inst] {
			keys = append(keys, all[i])
		}
	}
	return keys
}
