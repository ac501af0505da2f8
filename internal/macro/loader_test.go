package macro

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/leapstack-labs/conceptc/internal/builtin"
	"github.com/leapstack-labs/conceptc/internal/resolver"
	"github.com/leapstack-labs/conceptc/internal/testutil"
	"github.com/leapstack-labs/conceptc/pkg/concept"
	"github.com/leapstack-labs/conceptc/pkg/dslerr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeMacros(t *testing.T, files map[string]string) string {
	t.Helper()
	dir := filepath.Join(t.TempDir(), "macros")
	require.NoError(t, os.Mkdir(dir, 0o755))
	for name, content := range files {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
	}
	return dir
}

func newLoader(t *testing.T, dir string) *Loader {
	return NewLoader(dir, builtin.Plugin().Type, testutil.NewTestLogger(t))
}

const auditMacros = `
def audit(c, model):
    """Adds a CreatedAt property to every entity."""
    return concept("ShortStringPropertyInfo", DataStructure = c, Name = "CreatedAt")

def no_reserved(c, model):
    if c.Name == "Order":
        fail("entity name Order is reserved")

macros = {"EntityInfo": audit}
validators = {"EntityInfo": [no_reserved]}
`

func TestLoader_Load(t *testing.T) {
	tests := []struct {
		name           string
		setupDir       func(t *testing.T) string
		wantNil        bool
		wantErr        string
		wantNamespaces []string
		wantMacros     []string
	}{
		{
			name: "empty directory",
			setupDir: func(t *testing.T) string {
				return writeMacros(t, nil)
			},
		},
		{
			name: "non-existent directory",
			setupDir: func(_ *testing.T) string {
				return "/nonexistent/path/to/macros"
			},
			wantNil: true,
		},
		{
			name: "not a directory",
			setupDir: func(t *testing.T) string {
				path := filepath.Join(t.TempDir(), "macros")
				require.NoError(t, os.WriteFile(path, []byte("not a dir"), 0o644))
				return path
			},
			wantErr: "not a directory",
		},
		{
			name: "macros and validators",
			setupDir: func(t *testing.T) string {
				return writeMacros(t, map[string]string{"audit.star": auditMacros})
			},
			wantNamespaces: []string{"audit"},
			wantMacros:     []string{"audit.audit", "audit.no_reserved"},
		},
		{
			name: "file name order",
			setupDir: func(t *testing.T) string {
				return writeMacros(t, map[string]string{
					"b.star": "def f(c, m):\n    pass\nmacros = {\"ModuleInfo\": f}\n",
					"a.star": "def g(c, m):\n    pass\nmacros = {\"ModuleInfo\": g}\n",
				})
			},
			wantNamespaces: []string{"a", "b"},
			wantMacros:     []string{"a.g", "b.f"},
		},
		{
			name: "syntax error",
			setupDir: func(t *testing.T) string {
				return writeMacros(t, map[string]string{"broken.star": "def broken(:\n    return 1\n"})
			},
			wantErr: "Starlark execution error",
		},
		{
			name: "invalid namespace",
			setupDir: func(t *testing.T) string {
				return writeMacros(t, map[string]string{"123invalid.star": "x = 1"})
			},
			wantErr: "namespace must start with letter",
		},
		{
			name: "unknown trigger type",
			setupDir: func(t *testing.T) string {
				return writeMacros(t, map[string]string{"x.star": "def f(c, m):\n    pass\nmacros = {\"NopeInfo\": f}\n"})
			},
			wantErr: `unknown concept type "NopeInfo"`,
		},
		{
			name: "wrong arity",
			setupDir: func(t *testing.T) string {
				return writeMacros(t, map[string]string{"x.star": "def f(c):\n    pass\nmacros = {\"ModuleInfo\": f}\n"})
			},
			wantErr: "must take (concept, model)",
		},
		{
			name: "macros is not a dict",
			setupDir: func(t *testing.T) string {
				return writeMacros(t, map[string]string{"x.star": "macros = [1]\n"})
			},
			wantErr: "expected a dict",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			modules, err := newLoader(t, tt.setupDir(t)).Load()
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
				return
			}
			require.NoError(t, err)
			if tt.wantNil {
				assert.Nil(t, modules)
				return
			}

			var namespaces, names []string
			for _, m := range modules {
				namespaces = append(namespaces, m.Namespace)
			}
			for _, m := range Macros(modules) {
				names = append(names, m.Name())
			}
			assert.Equal(t, tt.wantNamespaces, namespaces)
			assert.Equal(t, tt.wantMacros, names)
		})
	}
}

func TestMacro_Doc(t *testing.T) {
	modules, err := newLoader(t, writeMacros(t, map[string]string{"audit.star": auditMacros})).Load()
	require.NoError(t, err)
	require.Len(t, modules, 1)

	m := modules[0].Macros[0]
	assert.Equal(t, "EntityInfo", m.Trigger())
	assert.Equal(t, "Adds a CreatedAt property to every entity.", m.Doc())
	assert.False(t, m.IsValidator())
	assert.True(t, modules[0].Macros[1].IsValidator())
}

func entity(module, name string) []*concept.Instance {
	mod := concept.New(builtin.Module).With("Name", module)
	ent := concept.New(builtin.Entity).
		With("Module", concept.PendingRef(builtin.Module.Name, module)).
		With("Name", name)
	return []*concept.Instance{mod, ent}
}

func run(t *testing.T, files map[string]string, seed []*concept.Instance) (*resolver.Model, error) {
	t.Helper()
	modules, err := newLoader(t, writeMacros(t, files)).Load()
	require.NoError(t, err)

	set := builtin.Plugin()
	reg, err := set.Registry()
	require.NoError(t, err)
	engine, err := resolver.New(reg, append(set.Macros, Macros(modules)...), resolver.WithLogger(testutil.NewTestLogger(t)))
	require.NoError(t, err)
	return engine.Run(context.Background(), seed)
}

func TestMacro_ExpandThroughEngine(t *testing.T) {
	model, err := run(t, map[string]string{"audit.star": auditMacros}, entity("M", "E"))
	require.NoError(t, err)

	inst, ok := model.Lookup("PropertyInfo M.E.CreatedAt")
	require.True(t, ok, "audit macro should add CreatedAt")
	assert.Equal(t, builtin.ShortString, inst.Type)
}

func TestMacro_ValidatorFails(t *testing.T) {
	_, err := run(t, map[string]string{"audit.star": auditMacros}, entity("M", "Order"))
	require.Error(t, err)

	var semErr *dslerr.SemanticError
	require.ErrorAs(t, err, &semErr)
	assert.Contains(t, semErr.Error(), "entity name Order is reserved")
	assert.Contains(t, semErr.Concept, "Entity")
}

func TestMacro_Edges(t *testing.T) {
	src := `
def order(c, model):
    return [edge("ModuleInfo Z", c), None]

macros = {"EntityInfo": order}
`
	seed := append(entity("M", "E"), concept.New(builtin.Module).With("Name", "Z"))
	model, err := run(t, map[string]string{"order.star": src}, seed)
	require.NoError(t, err)
	assert.Contains(t, model.Edges(), concept.Edge{Before: "ModuleInfo Z", After: "EntityInfo M.E"})

	ordered, err := resolver.Order(model)
	require.NoError(t, err)
	pos := map[string]int{}
	for i, inst := range ordered {
		if inst.Type == builtin.Module {
			pos[inst.String("Name")] = i
		}
		if inst.Type == builtin.Entity {
			pos["E"] = i
		}
	}
	assert.Less(t, pos["Z"], pos["E"])
}

func TestMacro_BadResult(t *testing.T) {
	src := `
def bad(c, model):
    return 42

macros = {"ModuleInfo": bad}
`
	_, err := run(t, map[string]string{"bad.star": src}, entity("M", "E"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unexpected result of type int")
}
