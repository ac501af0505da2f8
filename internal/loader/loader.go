// Package loader reads DSL scripts from disk.
package loader

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/leapstack-labs/conceptc/internal/lexer"
)

// Ext is the file extension of DSL scripts.
const Ext = ".cdsl"

// File is a script read from disk.
type File struct {
	// Path is the file path as found on disk.
	Path   string
	Script lexer.Script
	// Frontmatter is nil when the script has no header.
	Frontmatter *Frontmatter
}

// Disabled reports whether the script's header disables it.
func (f File) Disabled() bool {
	return f.Frontmatter != nil && f.Frontmatter.Disabled
}

// LoadDir reads every script below dir, skipping hidden files and
// directories. Scripts are named by their slash-separated path relative to
// dir and returned in name order, so builds do not depend on directory
// listing order.
func LoadDir(dir string) ([]File, error) {
	var files []File
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if strings.HasPrefix(d.Name(), ".") && path != dir {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if d.IsDir() || filepath.Ext(path) != Ext {
			return nil
		}

		rel, err := filepath.Rel(dir, path)
		if err != nil {
			return err
		}
		f, err := ReadFile(path, filepath.ToSlash(rel))
		if err != nil {
			return err
		}
		files = append(files, f)
		return nil
	})
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("scripts directory %s does not exist", dir)
		}
		return nil, fmt.Errorf("failed to scan directory: %w", err)
	}

	sort.Slice(files, func(i, j int) bool {
		return files[i].Script.Name < files[j].Script.Name
	})
	return files, nil
}

// ReadFile reads one script and names it name.
func ReadFile(path, name string) (File, error) {
	content, err := os.ReadFile(path) //nolint:gosec // G304: path comes from the scripts directory walk
	if err != nil {
		return File{}, fmt.Errorf("failed to read %s: %w", path, err)
	}
	text := string(content)

	fm, err := ExtractFrontmatter(text)
	if err != nil {
		var parseErr *FrontmatterParseError
		var fieldErr *UnknownFieldError
		switch {
		case errors.As(err, &parseErr):
			parseErr.File = name
		case errors.As(err, &fieldErr):
			fieldErr.File = name
		}
		return File{}, err
	}

	return File{
		Path:        path,
		Script:      lexer.Script{Name: name, Text: text},
		Frontmatter: fm,
	}, nil
}

// Scripts returns the enabled scripts of files.
func Scripts(files []File) []lexer.Script {
	scripts := make([]lexer.Script, 0, len(files))
	for _, f := range files {
		if !f.Disabled() {
			scripts = append(scripts, f.Script)
		}
	}
	return scripts
}
