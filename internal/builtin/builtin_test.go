package builtin

import (
	"testing"

	"github.com/leapstack-labs/conceptc/pkg/concept"
	"github.com/leapstack-labs/conceptc/pkg/identity"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeModel resolves references by key only.
type fakeModel map[string]*concept.Instance

func (m fakeModel) Lookup(key string) (*concept.Instance, bool) {
	inst, ok := m[key]
	return inst, ok
}

func (m fakeModel) Resolve(ref concept.Ref) (*concept.Instance, bool) {
	return m.Lookup(ref.Key())
}

func (m fakeModel) ByType(string) []*concept.Instance { return nil }

func entityRef(path string) concept.Ref {
	return concept.PendingRef(Entity.Name, path)
}

func TestPluginRegistry(t *testing.T) {
	reg, err := Plugin().Registry()
	require.NoError(t, err)

	assert.Equal(t, len(Types()), reg.Count())
	assert.Contains(t, reg.Keywords(), "SqlDependsOn")
	assert.NotContains(t, reg.Keywords(), "")
	assert.Len(t, reg.Initializers(Module), 1)
}

func TestModuleSchemaInitializer(t *testing.T) {
	schema := Initializers()[0]

	mod := concept.New(Module).With("Name", "Shop")
	companions, err := schema.Initialize(mod)
	require.NoError(t, err)
	assert.Empty(t, companions)
	assert.Equal(t, "Shop", mod.String("Schema"))

	custom := concept.New(Module).With("Name", "Shop").With("Schema", "sales")
	_, err = schema.Initialize(custom)
	require.NoError(t, err)
	assert.Equal(t, "sales", custom.String("Schema"))
}

func TestUniqueMacro(t *testing.T) {
	trigger := concept.New(Unique).
		With("DataStructure", entityRef("Shop.Customer")).
		With("PropertyNames", "Name  Email")

	exp, err := uniqueMacro{}.Expand(trigger, fakeModel{})
	require.NoError(t, err)
	require.Len(t, exp.Concepts, 2)

	var got []string
	for _, c := range exp.Concepts {
		assert.Equal(t, "UniqueMultiplePropertiesInfo Shop.Customer.'Name  Email'", c.Ref("Unique").Key())
		got = append(got, c.Ref("Property").Key())
	}
	assert.Equal(t, []string{"PropertyInfo Shop.Customer.Name", "PropertyInfo Shop.Customer.Email"}, got)

	key, err := identity.Key(exp.Concepts[0])
	require.NoError(t, err)
	assert.Equal(t, "UniqueMultiplePropertyInfo Shop.Customer.'Name  Email'.Shop.Customer.Name", key)
}

func TestUniqueMacroErrors(t *testing.T) {
	tests := []struct {
		names   string
		wantErr string
	}{
		{"   ", "unique constraint lists no properties"},
		{"Name Name", "property Name listed more than once"},
	}
	for _, tt := range tests {
		trigger := concept.New(Unique).
			With("DataStructure", entityRef("Shop.Customer")).
			With("PropertyNames", tt.names)
		_, err := uniqueMacro{}.Expand(trigger, fakeModel{})
		assert.EqualError(t, err, tt.wantErr)
	}
}

func TestForeignKeyMacro(t *testing.T) {
	order := concept.New(Entity).
		With("Module", concept.PendingRef(Module.Name, "Shop")).
		With("Name", "Order")
	model := fakeModel{"EntityInfo Shop.Order": order}

	trigger := concept.New(Reference).
		With("DataStructure", entityRef("Shop.Order")).
		With("Name", "Buyer").
		With("Referenced", entityRef("Shop.Customer"))

	exp, err := foreignKeyMacro{}.Expand(trigger, model)
	require.NoError(t, err)
	require.Len(t, exp.Concepts, 1)
	fk := exp.Concepts[0]
	assert.Equal(t, "FK_Order_Buyer", fk.String("Constraint"))
	assert.Equal(t, "PropertyInfo Shop.Order.Buyer", fk.Ref("Property").Key())

	_, err = foreignKeyMacro{}.Expand(trigger, fakeModel{})
	assert.EqualError(t, err, "entity EntityInfo Shop.Order not found")
}

func TestForeignKeyValidate(t *testing.T) {
	ok := concept.New(Reference).With("Name", "Buyer")
	assert.NoError(t, foreignKeyMacro{}.Validate(ok, fakeModel{}))

	bad := concept.New(Reference).With("Name", "CustomerID")
	assert.EqualError(t, foreignKeyMacro{}.Validate(bad, fakeModel{}),
		`reference property name CustomerID must not end with "ID"`)

	var _ concept.Validator = foreignKeyMacro{}
}

func TestExtendsMacro(t *testing.T) {
	trigger := concept.New(Extends).
		With("Extension", entityRef("Shop.VipCustomer")).
		With("Base", entityRef("Shop.Customer"))

	exp, err := extendsMacro{}.Expand(trigger, fakeModel{})
	require.NoError(t, err)
	require.Len(t, exp.Concepts, 1)

	ref := exp.Concepts[0]
	assert.Same(t, Reference, ref.Type)
	assert.Equal(t, "Base", ref.String("Name"))
	assert.Equal(t, "EntityInfo Shop.VipCustomer", ref.Ref("DataStructure").Key())
	assert.Equal(t, "EntityInfo Shop.Customer", ref.Ref("Referenced").Key())

	self := concept.New(Extends).
		With("Extension", entityRef("Shop.Customer")).
		With("Base", entityRef("Shop.Customer"))
	_, err = extendsMacro{}.Expand(self, fakeModel{})
	assert.EqualError(t, err, "an entity cannot extend itself")
}

func TestDependsOnMacro(t *testing.T) {
	trigger := concept.New(SqlDependsOn).
		With("Dependent", entityRef("Shop.Order")).
		With("DependsOn", concept.PendingRef(Module.Name, "Billing"))

	exp, err := dependsOnMacro{}.Expand(trigger, fakeModel{})
	require.NoError(t, err)
	assert.Empty(t, exp.Concepts)
	assert.Equal(t, []concept.Edge{{Before: "ModuleInfo Billing", After: "EntityInfo Shop.Order"}}, exp.Edges)
}

func TestMacroTriggers(t *testing.T) {
	seen := make(map[string]bool)
	for _, m := range Macros() {
		assert.False(t, seen[m.Name()], "duplicate macro %s", m.Name())
		seen[m.Name()] = true
		_, ok := Plugin().Type(m.Trigger())
		assert.True(t, ok, "macro %s triggers on unknown type %s", m.Name(), m.Trigger())
	}
}
