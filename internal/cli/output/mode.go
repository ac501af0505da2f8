// Package output renders command results as styled text, markdown or JSON.
package output

import "strings"

// OutputMode selects how results are rendered.
type OutputMode string

// Output modes.
const (
	ModeAuto     OutputMode = "auto"
	ModeText     OutputMode = "text"
	ModeMarkdown OutputMode = "markdown"
	ModeJSON     OutputMode = "json"
)

// Mode parses an output format name. Unknown or empty names are ModeAuto.
func Mode(s string) OutputMode {
	switch m := OutputMode(strings.ToLower(strings.TrimSpace(s))); m {
	case ModeText, ModeMarkdown, ModeJSON:
		return m
	case "md":
		return ModeMarkdown
	default:
		return ModeAuto
	}
}
