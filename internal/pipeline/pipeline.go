// Package pipeline runs a complete build: tokenize, parse, resolve and
// expand macros, then order the model by dependency.
package pipeline

import (
	"context"
	"log/slog"
	"time"

	"github.com/leapstack-labs/conceptc/internal/grammar"
	"github.com/leapstack-labs/conceptc/internal/lexer"
	"github.com/leapstack-labs/conceptc/internal/parser"
	"github.com/leapstack-labs/conceptc/internal/plugin"
	"github.com/leapstack-labs/conceptc/internal/resolver"
	"github.com/leapstack-labs/conceptc/pkg/concept"
)

// Options tune a build.
type Options struct {
	// MaxIterations is the macro derivation ceiling.
	MaxIterations int
	// AllowIdenticalDuplicates drops concepts identical to one already
	// declared instead of rejecting them.
	AllowIdenticalDuplicates bool
	// MaxErrors bounds the syntax errors reported by one build.
	MaxErrors int
	Logger    *slog.Logger
}

// DefaultOptions returns the options used when nothing is configured.
func DefaultOptions() Options {
	return Options{
		MaxIterations:            resolver.DefaultMaxIterations,
		AllowIdenticalDuplicates: true,
		MaxErrors:                parser.DefaultMaxErrors,
	}
}

// Context holds everything a build needs. It is created per invocation and
// shares no state with other contexts.
type Context struct {
	Registry *grammar.Registry
	Macros   []concept.Macro

	parser *parser.Parser
	engine *resolver.Engine
	logger *slog.Logger
}

// New validates the plugin set and prepares a build context.
func New(set plugin.Set, opts Options) (*Context, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	reg, err := set.Registry()
	if err != nil {
		return nil, err
	}
	engine, err := resolver.New(reg, set.Macros,
		resolver.WithLogger(logger),
		resolver.WithMaxIterations(opts.MaxIterations),
		resolver.WithIdenticalDuplicates(opts.AllowIdenticalDuplicates))
	if err != nil {
		return nil, err
	}

	logger.Debug("build context ready",
		slog.Int("types", reg.Count()),
		slog.Int("macros", len(set.Macros)))

	return &Context{
		Registry: reg,
		Macros:   set.Macros,
		parser:   parser.New(reg, parser.WithLogger(logger), parser.WithMaxErrors(opts.MaxErrors)),
		engine:   engine,
		logger:   logger,
	}, nil
}

// Result is the outcome of a successful build.
type Result struct {
	Model *resolver.Model
	// Ordered lists every concept after the concepts it depends on.
	Ordered []*concept.Instance
	// Parsed is the number of concepts read from the scripts.
	Parsed   int
	Duration time.Duration
}

// Records returns the flattened concepts in dependency order.
func (r *Result) Records() []concept.Record {
	h := make(map[*concept.Instance]string, r.Model.Len())
	for i, inst := range r.Model.Concepts() {
		h[inst] = r.Model.Key(concept.Handle(i + 1))
	}
	records := make([]concept.Record, len(r.Ordered))
	for i, inst := range r.Ordered {
		records[i] = concept.NewRecord(h[inst], inst)
	}
	return records
}

// Build runs the pipeline over the scripts. Errors are the typed errors of
// package dslerr, possibly aggregated in a dslerr.List.
func (c *Context) Build(ctx context.Context, scripts []lexer.Script) (*Result, error) {
	start := time.Now()

	tokens, err := lexer.Tokenize(ctx, scripts)
	if err != nil {
		return nil, err
	}

	parsed, err := c.parser.Parse(tokens)
	if err != nil {
		return nil, err
	}

	model, err := c.engine.Run(ctx, parsed)
	if err != nil {
		return nil, err
	}

	ordered, err := resolver.Order(model)
	if err != nil {
		return nil, err
	}

	res := &Result{
		Model:    model,
		Ordered:  ordered,
		Parsed:   len(parsed),
		Duration: time.Since(start),
	}
	c.logger.Info("build complete",
		slog.Int("scripts", len(scripts)),
		slog.Int("parsed", res.Parsed),
		slog.Int("concepts", model.Len()),
		slog.Duration("duration", res.Duration))
	return res, nil
}

// BuildSource is Build for a single in-memory script.
func (c *Context) BuildSource(ctx context.Context, name, text string) (*Result, error) {
	return c.Build(ctx, []lexer.Script{{Name: name, Text: text}})
}
