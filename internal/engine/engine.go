// Package engine runs conceptc builds for a project directory: it loads the
// concept plugins, reads the DSL scripts, builds the model and records each
// build in the concept cache.
package engine

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/leapstack-labs/conceptc/internal/builtin"
	"github.com/leapstack-labs/conceptc/internal/loader"
	"github.com/leapstack-labs/conceptc/internal/macro"
	"github.com/leapstack-labs/conceptc/internal/pipeline"
	"github.com/leapstack-labs/conceptc/internal/plugin"
	"github.com/leapstack-labs/conceptc/internal/state"
)

// DefaultKeepBuilds is how many builds the cache retains.
const DefaultKeepBuilds = 20

// Engine orchestrates builds of one project.
type Engine struct {
	cfg    Config
	logger *slog.Logger

	mu       sync.Mutex
	set      plugin.Set
	modules  []*macro.LoadedModule
	pipeline *pipeline.Context

	store       state.Store
	storeOpened bool
}

// Config holds engine configuration.
type Config struct {
	// DSLDir is the directory holding the .cdsl scripts.
	DSLDir string
	// MacrosDir holds Starlark macro files (optional).
	MacrosDir string
	// TypesFile declares additional concept types in YAML (optional).
	TypesFile string
	// CachePath is the SQLite concept cache. Empty disables caching.
	CachePath string
	// KeepBuilds bounds the builds kept in the cache. Zero means DefaultKeepBuilds.
	KeepBuilds int

	MaxIterations            int
	AllowIdenticalDuplicates bool
	MaxErrors                int

	// Logger is the structured logger (optional, uses discard if nil)
	Logger *slog.Logger
}

// New creates an engine and loads its plugins. The cache is opened lazily.
func New(cfg Config) (*Engine, error) {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	if cfg.KeepBuilds == 0 {
		cfg.KeepBuilds = DefaultKeepBuilds
	}

	logger.Debug("initializing engine", "dsl_dir", cfg.DSLDir, "macros_dir", cfg.MacrosDir)

	e := &Engine{cfg: cfg, logger: logger}
	if err := e.Reload(); err != nil {
		return nil, err
	}
	return e, nil
}

// Reload reloads concept types and macros from disk.
func (e *Engine) Reload() error {
	set := builtin.Plugin()

	if e.cfg.TypesFile != "" {
		types, err := plugin.LoadTypesFile(e.cfg.TypesFile, set)
		switch {
		case errors.Is(err, fs.ErrNotExist):
			e.logger.Debug("no types file", "path", e.cfg.TypesFile)
		case err != nil:
			return fmt.Errorf("failed to load types: %w", err)
		default:
			set = plugin.Merge(set, plugin.Set{Types: types})
		}
	}

	var modules []*macro.LoadedModule
	if e.cfg.MacrosDir != "" {
		var err error
		modules, err = macro.NewLoader(e.cfg.MacrosDir, set.Type, e.logger).Load()
		if err != nil {
			return fmt.Errorf("failed to load macros: %w", err)
		}
		set = plugin.Merge(set, plugin.Set{Macros: macro.Macros(modules)})
	}

	p, err := pipeline.New(set, pipeline.Options{
		MaxIterations:            e.cfg.MaxIterations,
		AllowIdenticalDuplicates: e.cfg.AllowIdenticalDuplicates,
		MaxErrors:                e.cfg.MaxErrors,
		Logger:                   e.logger,
	})
	if err != nil {
		return err
	}

	e.mu.Lock()
	e.set, e.modules, e.pipeline = set, modules, p
	e.mu.Unlock()

	e.logger.Debug("plugins loaded",
		slog.Int("types", len(set.Types)),
		slog.Int("macros", len(set.Macros)),
		slog.Int("macro_files", len(modules)))
	return nil
}

// Plugin returns the loaded plugin set.
func (e *Engine) Plugin() plugin.Set {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.set
}

// MacroModules returns the loaded Starlark macro files.
func (e *Engine) MacroModules() []*macro.LoadedModule {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.modules
}

// Pipeline returns the current build context.
func (e *Engine) Pipeline() *pipeline.Context {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.pipeline
}

// Discover reads the project's DSL scripts.
func (e *Engine) Discover() ([]loader.File, error) {
	files, err := loader.LoadDir(e.cfg.DSLDir)
	if err != nil {
		return nil, fmt.Errorf("failed to discover scripts: %w", err)
	}
	e.logger.Debug("discovered scripts", slog.Int("count", len(files)))
	return files, nil
}

// Store returns the concept cache, opening it on first use. It returns nil
// when caching is disabled.
func (e *Engine) Store() (state.Store, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.storeOpened || e.cfg.CachePath == "" {
		return e.store, nil
	}

	if dir := filepath.Dir(e.cfg.CachePath); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0750); err != nil {
			return nil, fmt.Errorf("failed to create cache directory: %w", err)
		}
	}
	store := state.NewSQLiteStore(e.logger)
	if err := store.Open(e.cfg.CachePath); err != nil {
		return nil, fmt.Errorf("failed to open concept cache: %w", err)
	}
	e.store = store
	e.storeOpened = true
	return e.store, nil
}

// Close releases the concept cache.
func (e *Engine) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.store != nil {
		return e.store.Close()
	}
	return nil
}
