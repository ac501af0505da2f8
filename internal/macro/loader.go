// Package macro loads macro concepts written in Starlark.
//
// A macro file declares which concept types trigger its functions:
//
//	def audit(c, model):
//	    """Adds a CreatedAt property to every entity."""
//	    return concept("ShortStringPropertyInfo", DataStructure = c, Name = "CreatedAt")
//
//	macros = {"EntityInfo": audit}
//	validators = {"EntityInfo": check_name}
//
// Macro functions return None, a concept, an edge, or a list of them.
// Validator functions run once the model is complete and reject the
// concept by calling fail().
package macro

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	starctx "github.com/leapstack-labs/conceptc/internal/starlark"
	"go.starlark.net/starlark"
	"go.starlark.net/syntax"
)

// Loader scans a directory for .star files and loads their macros.
type Loader struct {
	dir    string
	types  starctx.TypeLookup
	pool   *starctx.ThreadPool
	logger *slog.Logger
}

// NewLoader creates a new macro loader for the specified directory. Concept
// types named by macro files resolve through types.
func NewLoader(dir string, types starctx.TypeLookup, logger *slog.Logger) *Loader {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Loader{
		dir:    dir,
		types:  types,
		pool:   starctx.NewThreadPool(0, logger),
		logger: logger,
	}
}

// LoadedModule represents a parsed Starlark macro file.
type LoadedModule struct {
	// Namespace is derived from filename (e.g., "audit" from "audit.star")
	Namespace string

	// Path is the path to the .star file
	Path string

	// Macros are the declared macros in declaration order.
	Macros []*Macro
}

// Load scans the macro directory and loads all .star files in file name
// order. A missing directory yields no modules.
func (l *Loader) Load() ([]*LoadedModule, error) {
	info, err := os.Stat(l.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to access macros directory: %w", err)
	}

	if !info.IsDir() {
		return nil, fmt.Errorf("macros path is not a directory: %s", l.dir)
	}

	files, err := filepath.Glob(filepath.Join(l.dir, "*.star"))
	if err != nil {
		return nil, fmt.Errorf("failed to scan macros directory: %w", err)
	}

	var modules []*LoadedModule
	for _, file := range files {
		module, err := l.loadFile(file)
		if err != nil {
			return nil, err
		}
		l.logger.Debug("loaded macro file", slog.String("path", file), slog.Int("macros", len(module.Macros)))
		modules = append(modules, module)
	}

	return modules, nil
}

// loadFile executes a single .star file and collects its macros.
func (l *Loader) loadFile(path string) (*LoadedModule, error) {
	content, err := os.ReadFile(path) //nolint:gosec // G304: path comes from a glob within the macros directory
	if err != nil {
		return nil, &LoadError{File: path, Message: fmt.Sprintf("failed to read file: %v", err)}
	}

	namespace := strings.TrimSuffix(filepath.Base(path), ".star")
	if err := validateNamespace(namespace); err != nil {
		return nil, &LoadError{File: path, Message: err.Error()}
	}

	thread := l.pool.Get("load:" + namespace)
	defer l.pool.Put(thread)

	globals, err := starlark.ExecFileOptions(&syntax.FileOptions{}, thread, path, content, starctx.Predeclared(l.types))
	if err != nil {
		return nil, &LoadError{File: path, Message: fmt.Sprintf("Starlark execution error: %v", err)}
	}

	module := &LoadedModule{Namespace: namespace, Path: path}
	for _, table := range []struct {
		global   string
		validate bool
	}{
		{"macros", false},
		{"validators", true},
	} {
		macros, err := l.table(namespace, globals[table.global], table.validate)
		if err != nil {
			return nil, &LoadError{File: path, Message: fmt.Sprintf("%s: %v", table.global, err)}
		}
		module.Macros = append(module.Macros, macros...)
	}
	return module, nil
}

// table reads a {"TypeName": fn or [fn, ...]} dict.
func (l *Loader) table(namespace string, v starlark.Value, validate bool) ([]*Macro, error) {
	if v == nil {
		return nil, nil
	}
	dict, ok := v.(*starlark.Dict)
	if !ok {
		return nil, fmt.Errorf("expected a dict, got %s", v.Type())
	}

	var out []*Macro
	for _, item := range dict.Items() {
		trigger, ok := starlark.AsString(item[0])
		if !ok {
			return nil, fmt.Errorf("keys must be concept type names, got %s", item[0].Type())
		}
		if _, known := l.types(trigger); !known {
			return nil, fmt.Errorf("unknown concept type %q", trigger)
		}

		var fns []starlark.Value
		switch x := item[1].(type) {
		case *starlark.List:
			for i := 0; i < x.Len(); i++ {
				fns = append(fns, x.Index(i))
			}
		case starlark.Tuple:
			fns = append(fns, x...)
		default:
			fns = append(fns, x)
		}

		for _, f := range fns {
			fn, ok := f.(*starlark.Function)
			if !ok {
				return nil, fmt.Errorf("%s: expected a function, got %s", trigger, f.Type())
			}
			if fn.NumParams() != 2 {
				return nil, fmt.Errorf("%s: function %s must take (concept, model)", trigger, fn.Name())
			}
			out = append(out, &Macro{
				name:     namespace + "." + fn.Name(),
				trigger:  trigger,
				fn:       fn,
				validate: validate,
				pool:     l.pool,
				logger:   l.logger,
			})
		}
	}
	return out, nil
}

// validateNamespace checks if a namespace name is valid.
func validateNamespace(name string) error {
	if name == "" {
		return fmt.Errorf("namespace cannot be empty")
	}

	for i, r := range name {
		if i == 0 {
			if !isLetter(r) && r != '_' {
				return fmt.Errorf("namespace must start with letter or underscore: %s", name)
			}
		} else {
			if !isLetter(r) && !isDigit(r) && r != '_' {
				return fmt.Errorf("namespace contains invalid character: %s", name)
			}
		}
	}

	return nil
}

func isLetter(r rune) bool {
	return (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z')
}

func isDigit(r rune) bool {
	return r >= '0' && r <= '9'
}

// LoadError represents an error loading a macro file.
type LoadError struct {
	File    string
	Message string
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("macros/%s: %s", filepath.Base(e.File), e.Message)
}
