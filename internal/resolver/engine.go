// Package resolver binds concept references and expands macros until the
// concept model reaches a fixpoint, then orders the model by dependency.
package resolver

import (
	"context"
	"log/slog"
	"slices"

	"github.com/leapstack-labs/conceptc/internal/grammar"
	"github.com/leapstack-labs/conceptc/pkg/concept"
	"github.com/leapstack-labs/conceptc/pkg/dslerr"
	"github.com/leapstack-labs/conceptc/pkg/identity"
)

// DefaultMaxIterations is the default macro derivation ceiling.
const DefaultMaxIterations = 1000

// Engine runs the resolution and macro fixpoint. An engine is stateless
// between runs and may be reused.
type Engine struct {
	reg            *grammar.Registry
	macros         []concept.Macro
	logger         *slog.Logger
	maxIterations  int
	allowIdentical bool
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// WithMaxIterations sets the macro derivation ceiling. A concept produced
// through a chain of more than n macro evaluations aborts the build.
func WithMaxIterations(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			e.maxIterations = n
		}
	}
}

// WithIdenticalDuplicates controls whether a concept that is structurally
// identical to one already in the model is dropped (true) or rejected.
func WithIdenticalDuplicates(allow bool) Option {
	return func(e *Engine) {
		e.allowIdentical = allow
	}
}

// New creates an engine for the registry's concept types. Macros are
// evaluated in the order given; every macro must trigger on a registered type.
func New(reg *grammar.Registry, macros []concept.Macro, opts ...Option) (*Engine, error) {
	e := &Engine{
		reg:            reg,
		logger:         slog.New(slog.DiscardHandler),
		maxIterations:  DefaultMaxIterations,
		allowIdentical: true,
	}
	for _, opt := range opts {
		opt(e)
	}
	for _, m := range macros {
		if _, ok := reg.Type(m.Trigger()); !ok {
			return nil, dslerr.NewConfigError(m.Trigger(), "macro %q triggers on an unknown concept type", m.Name())
		}
		e.macros = append(e.macros, m)
	}
	return e, nil
}

// pending is an unresolved reference: the member at idx of concept h.
type pending struct {
	h   concept.Handle
	idx int
}

// run holds the state of one fixpoint computation.
type run struct {
	*Engine
	model *Model
	keyer *identity.Keyer
	// owned holds the handle of every instance already inserted, keyed by
	// both the caller's instance and the model's copy.
	owned map[*concept.Instance]concept.Handle
	refs  []pending
	// open counts the unresolved references per handle.
	open map[concept.Handle]int
	// ready holds concepts whose references are all bound and whose macros
	// have not been evaluated yet, in handle order.
	ready []concept.Handle
}

// Run inserts the seed concepts and alternates resolution and macro passes
// until neither produces anything new. The returned model is fully
// resolved.
func (e *Engine) Run(ctx context.Context, seed []*concept.Instance) (*Model, error) {
	r := &run{
		Engine: e,
		model:  NewModel(),
		keyer:  identity.NewKeyer(),
		owned:  make(map[*concept.Instance]concept.Handle),
		open:   make(map[concept.Handle]int),
	}

	var errs dslerr.List
	for _, inst := range seed {
		if err := r.insert(inst, 0); err != nil {
			errs = append(errs, err)
		}
	}
	if err := errs.Err(); err != nil {
		return nil, err
	}

	for pass := 1; ; pass++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		bound, err := r.resolve()
		if err != nil {
			return nil, err
		}
		batch := r.ready
		r.ready = nil
		e.logger.Debug("fixpoint pass",
			slog.Int("pass", pass),
			slog.Int("bound", bound),
			slog.Int("macro_triggers", len(batch)),
			slog.Int("concepts", r.model.Len()))

		if len(batch) == 0 && bound == 0 {
			break
		}
		if err := r.expand(batch); err != nil {
			return nil, err
		}
	}

	if err := r.unresolved(); err != nil {
		return nil, err
	}
	if err := r.validate(); err != nil {
		return nil, err
	}

	e.logger.Info("concept model resolved",
		slog.Int("concepts", r.model.Len()),
		slog.Int("edges", len(r.model.edges)))
	return r.model, nil
}

// insert adds a copy of a concept to the model, applying the duplicate
// policy. The caller's instance is left untouched, so a seed taken from
// an earlier model keeps resolving against that model.
func (r *run) insert(src *concept.Instance, depth int) error {
	if _, ok := r.owned[src]; ok {
		return nil
	}
	key, err := r.keyer.Key(src)
	if err != nil {
		return err
	}
	inst := src.Clone()
	if h, ok := r.model.Handle(key); ok {
		existing := r.model.Get(h)
		if r.allowIdentical && existing.Equal(inst) {
			r.logger.Debug("identical duplicate dropped", slog.String("key", key))
			return nil
		}
		return dslerr.NewIdentityError(inst.Pos, key, "",
			"concept %s conflicts with %s declared at %s", identity.Describe(inst), identity.Describe(existing), existing.Pos)
	}

	h := r.model.add(inst, key, depth)
	r.owned[src] = h
	r.owned[inst] = h
	n := 0
	for idx, m := range inst.Members() {
		if m.IsConcept() && inst.ValueAt(idx).Set {
			inst.Bind(idx, 0)
			r.refs = append(r.refs, pending{h: h, idx: idx})
			n++
		}
	}
	if n == 0 {
		r.ready = append(r.ready, h)
	} else {
		r.open[h] = n
	}
	return nil
}

// resolve binds every pending reference whose target exists. A reference is
// bound only once its target is itself fully bound, so chains settle from
// the leaves; references along a cycle are bound together once no other
// progress is possible.
func (r *run) resolve() (int, error) {
	total := 0
	strict := true
	for {
		n, err := r.bind(strict)
		if err != nil {
			return total, err
		}
		total += n
		switch {
		case n > 0:
			strict = true
		case strict:
			strict = false
		default:
			slices.Sort(r.ready)
			return total, nil
		}
	}
}

func (r *run) bind(strict bool) (int, error) {
	bound := 0
	remaining := r.refs[:0]
	for _, p := range r.refs {
		inst := r.model.Get(p.h)
		m := inst.Members()[p.idx]
		ref := inst.ValueAt(p.idx).Ref
		target, ok := r.model.Handle(ref.Key())
		if !ok || (strict && target != p.h && r.open[target] > 0) {
			remaining = append(remaining, p)
			continue
		}
		if t := r.model.Get(target).Type; m.Ref != nil && !t.IsA(m.Ref) {
			return bound, dslerr.NewReferenceTypeError(inst.Pos, identity.Describe(inst), m.Name, ref.Key(), t.Name, m.Ref.Name)
		}
		inst.Bind(p.idx, target)
		bound++
		if r.open[p.h]--; r.open[p.h] == 0 {
			delete(r.open, p.h)
			r.ready = append(r.ready, p.h)
		}
	}
	r.refs = remaining
	return bound, nil
}

// expand evaluates the macros of every concept in the batch and merges the
// produced concepts after the whole batch was evaluated, so macros of one
// pass all observe the same model.
func (r *run) expand(batch []concept.Handle) error {
	type produced struct {
		inst  *concept.Instance
		depth int
	}
	var out []produced
	for _, h := range batch {
		trigger := r.model.Get(h)
		depth := r.model.depth[h-1] + 1
		for _, m := range r.macrosFor(trigger.Type) {
			exp, err := m.Expand(trigger, r.model)
			if err != nil {
				return dslerr.NewSemanticError(trigger.Pos, identity.Describe(trigger), err)
			}
			if len(exp.Concepts) > 0 && depth > r.maxIterations {
				return dslerr.NewConvergenceError(trigger.Pos, trigger.Type.Name, r.maxIterations)
			}
			for _, c := range exp.Concepts {
				if !c.Pos.IsValid() {
					c.Pos = trigger.Pos
				}
				out = append(out, produced{inst: c, depth: depth})
			}
			r.model.edges = append(r.model.edges, exp.Edges...)
		}
	}

	var errs dslerr.List
	for _, p := range out {
		if err := r.insert(p.inst, p.depth); err != nil {
			errs = append(errs, err)
		}
	}
	return errs.Err()
}

// macrosFor returns the macros triggered by t or any of its base types, in
// registration order.
func (r *run) macrosFor(t *concept.Type) []concept.Macro {
	var out []concept.Macro
	for _, m := range r.macros {
		for _, ct := range t.Chain() {
			if ct.Name == m.Trigger() {
				out = append(out, m)
				break
			}
		}
	}
	return out
}

// unresolved reports every reference left unbound at the fixpoint.
func (r *run) unresolved() error {
	var errs dslerr.List
	for _, p := range r.refs {
		inst := r.model.Get(p.h)
		m := inst.Members()[p.idx]
		errs = append(errs, dslerr.NewReferenceError(inst.Pos, identity.Describe(inst), m.Name, inst.ValueAt(p.idx).Ref.Key()))
	}
	return errs.Err()
}

// validate runs the validation hooks of macros over the final model.
func (r *run) validate() error {
	var errs dslerr.List
	for _, inst := range r.model.arena {
		for _, m := range r.macrosFor(inst.Type) {
			v, ok := m.(concept.Validator)
			if !ok {
				continue
			}
			if err := v.Validate(inst, r.model); err != nil {
				errs = append(errs, dslerr.NewSemanticError(inst.Pos, identity.Describe(inst), err))
			}
		}
	}
	return errs.Err()
}
