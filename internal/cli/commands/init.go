package commands

import (
	"embed"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"

	"github.com/spf13/cobra"
)

//go:embed all:templates
var templateFS embed.FS

const projectTemplate = "templates/project"

// NewInitCommand creates the init command.
func NewInitCommand() *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "init [directory]",
		Short: "Initialize a new conceptc project",
		Long: `Initialize a new conceptc project with a configuration file, an example
script, a types file and a Starlark macro.`,
		Example: `  # Initialize in current directory
  conceptc init

  # Initialize in a new directory
  conceptc init my-project

  # Overwrite existing files
  conceptc init --force`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir := "."
			if len(args) > 0 {
				dir = args[0]
			}
			r := NewCommandContextWithoutEngine(cmd).Renderer

			if _, err := os.Stat(filepath.Join(dir, "conceptc.yaml")); err == nil && !force {
				return fmt.Errorf("conceptc.yaml already exists. Use --force to overwrite")
			}
			if err := os.MkdirAll(dir, 0750); err != nil {
				return fmt.Errorf("failed to create directory %s: %w", dir, err)
			}

			written, err := copyTemplate(projectTemplate, dir, force)
			if err != nil {
				return fmt.Errorf("failed to initialize project: %w", err)
			}
			for _, f := range written {
				r.Printf("  %s %s\n", r.Styles().StatusSuccess.String(), f)
			}

			r.Println("")
			r.Success("conceptc project initialized!")
			r.Println("")
			r.Println("Next steps:")
			r.Println("  conceptc build    Build the concept model")
			r.Println("  conceptc dag      Show concept dependencies")
			r.Println("  conceptc types    List concept types and macros")
			return nil
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "Overwrite existing files")

	return cmd
}

// copyTemplate copies an embedded template directory to targetDir and
// returns the files written. Existing files are kept unless force is set.
func copyTemplate(root, targetDir string, force bool) ([]string, error) {
	var written []string
	err := fs.WalkDir(templateFS, root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		rel := p[len(root):]
		if rel == "" {
			return nil
		}
		rel = renameSpecialFiles(rel[1:])
		target := filepath.Join(targetDir, filepath.FromSlash(rel))

		if d.IsDir() {
			return os.MkdirAll(target, 0750)
		}
		if !force {
			if _, err := os.Stat(target); err == nil {
				return nil
			}
		}

		content, err := templateFS.ReadFile(p)
		if err != nil {
			return err
		}
		if err := os.WriteFile(target, content, 0600); err != nil {
			return err
		}
		written = append(written, rel)
		return nil
	})
	return written, err
}

// renameSpecialFiles handles files that need renaming (e.g., dotfiles).
func renameSpecialFiles(p string) string {
	if path.Base(p) == "gitignore" {
		return path.Join(path.Dir(p), ".gitignore")
	}
	return p
}
