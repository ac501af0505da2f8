package builtin

import "github.com/leapstack-labs/conceptc/internal/plugin"

// Plugin returns the bundled plugin set.
func Plugin() plugin.Set {
	return plugin.Set{
		Types:        Types(),
		Macros:       Macros(),
		Initializers: Initializers(),
	}
}
