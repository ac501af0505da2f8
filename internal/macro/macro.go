package macro

import (
	"errors"
	"fmt"
	"log/slog"

	starctx "github.com/leapstack-labs/conceptc/internal/starlark"
	"github.com/leapstack-labs/conceptc/pkg/concept"
	"go.starlark.net/starlark"
)

// Macro is a Starlark function triggered by a concept type.
type Macro struct {
	name     string
	trigger  string
	fn       *starlark.Function
	validate bool
	pool     *starctx.ThreadPool
	logger   *slog.Logger
}

var (
	_ concept.Macro     = (*Macro)(nil)
	_ concept.Validator = (*Macro)(nil)
)

// Name returns "namespace.function".
func (m *Macro) Name() string { return m.name }

// Trigger returns the triggering concept type name.
func (m *Macro) Trigger() string { return m.trigger }

// Doc returns the function's docstring.
func (m *Macro) Doc() string { return m.fn.Doc() }

// IsValidator reports whether the macro only validates.
func (m *Macro) IsValidator() bool { return m.validate }

// Expand calls the macro function and converts its result.
func (m *Macro) Expand(trigger *concept.Instance, model concept.Model) (concept.Expansion, error) {
	var exp concept.Expansion
	if m.validate {
		return exp, nil
	}
	res, err := m.call(trigger, model)
	if err != nil {
		return exp, err
	}
	if err := collect(&exp, res); err != nil {
		return exp, fmt.Errorf("macro %s: %w", m.name, err)
	}
	return exp, nil
}

// Validate calls a validator function. Expansion macros never fail
// validation.
func (m *Macro) Validate(trigger *concept.Instance, model concept.Model) error {
	if !m.validate {
		return nil
	}
	_, err := m.call(trigger, model)
	return err
}

func (m *Macro) call(trigger *concept.Instance, model concept.Model) (starlark.Value, error) {
	thread := m.pool.Get(m.name)
	defer m.pool.Put(thread)

	args := starlark.Tuple{starctx.NewConcept(trigger, model), starctx.NewModel(model)}
	res, err := starlark.Call(thread, m.fn, args, nil)
	if err != nil {
		var evalErr *starlark.EvalError
		if errors.As(err, &evalErr) {
			m.logger.Debug("macro failed", slog.String("macro", m.name), slog.String("backtrace", evalErr.Backtrace()))
			return nil, fmt.Errorf("macro %s: %s", m.name, evalErr.Msg)
		}
		return nil, fmt.Errorf("macro %s: %w", m.name, err)
	}
	return res, nil
}

func collect(exp *concept.Expansion, v starlark.Value) error {
	switch x := v.(type) {
	case starlark.NoneType:
		return nil
	case *starctx.Concept:
		exp.Add(x.Instance())
		return nil
	case *starlark.List:
		for i := 0; i < x.Len(); i++ {
			if err := collect(exp, x.Index(i)); err != nil {
				return err
			}
		}
		return nil
	case starlark.Tuple:
		for _, item := range x {
			if err := collect(exp, item); err != nil {
				return err
			}
		}
		return nil
	}
	if e, ok := starctx.AsEdge(v); ok {
		exp.Edges = append(exp.Edges, e)
		return nil
	}
	return fmt.Errorf("unexpected result of type %s", v.Type())
}

// Macros flattens the macros of all modules in load order.
func Macros(modules []*LoadedModule) []concept.Macro {
	var out []concept.Macro
	for _, mod := range modules {
		for _, m := range mod.Macros {
			out = append(out, m)
		}
	}
	return out
}
