package identity_test

import (
	"testing"

	"github.com/leapstack-labs/conceptc/pkg/concept"
	"github.com/leapstack-labs/conceptc/pkg/dslerr"
	"github.com/leapstack-labs/conceptc/pkg/identity"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	moduleType = &concept.Type{
		Name:    "ModuleInfo",
		Keyword: "Module",
		Members: []concept.Member{concept.KeyString("Name")},
	}
	entityType = &concept.Type{
		Name:    "EntityInfo",
		Keyword: "Entity",
		Members: []concept.Member{
			concept.KeyParent("Module", moduleType),
			concept.KeyString("Name"),
		},
	}
	viewType = &concept.Type{
		Name:    "ViewInfo",
		Keyword: "View",
		Base:    entityType,
		Members: []concept.Member{concept.StringMember("Query")},
	}
	tagType = &concept.Type{
		Name:    "TagInfo",
		Keyword: "Tag",
		Members: []concept.Member{
			concept.KeyRef("Target", nil),
			concept.KeyString("Label"),
		},
	}
)

func entity(module, name string) *concept.Instance {
	return concept.New(entityType).
		With("Module", concept.PendingRef("ModuleInfo", module)).
		With("Name", name)
}

func TestKey(t *testing.T) {
	tests := []struct {
		name string
		inst *concept.Instance
		want string
	}{
		{
			name: "single key member",
			inst: concept.New(moduleType).With("Name", "Shop"),
			want: "ModuleInfo Shop",
		},
		{
			name: "parent path",
			inst: entity("Shop", "Customer"),
			want: "EntityInfo Shop.Customer",
		},
		{
			name: "quoted member",
			inst: entity("Shop", "Order Line"),
			want: "EntityInfo Shop.'Order Line'",
		},
		{
			name: "derived type shares base key space",
			inst: concept.New(viewType).
				With("Module", concept.PendingRef("ModuleInfo", "Shop")).
				With("Name", "Top").
				With("Query", "select"),
			want: "EntityInfo Shop.Top",
		},
		{
			name: "polymorphic reference carries its type",
			inst: concept.New(tagType).
				With("Target", concept.PendingRef("EntityInfo", "Shop.Customer")).
				With("Label", "Hot"),
			want: "TagInfo EntityInfo:Shop.Customer.Hot",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			key, err := identity.Key(tt.inst)
			require.NoError(t, err)
			assert.Equal(t, tt.want, key)
		})
	}
}

func TestKeyMissingMember(t *testing.T) {
	inst := concept.New(entityType).With("Name", "Customer")

	_, err := identity.Key(inst)
	require.Error(t, err)

	var idErr *dslerr.IdentityError
	require.ErrorAs(t, err, &idErr)
	assert.Equal(t, "Module", idErr.Member)
	assert.Equal(t, `Entity <null>.Customer: key member "Module" is not set`, err.Error())
}

func TestRefTo(t *testing.T) {
	ref, err := identity.RefTo(entity("Shop", "Customer"))
	require.NoError(t, err)
	assert.Equal(t, "EntityInfo", ref.Type)
	assert.Equal(t, "Shop.Customer", ref.Path)
	assert.False(t, ref.Resolved())
	assert.Equal(t, "EntityInfo Shop.Customer", ref.Key())
}

func TestDescribe(t *testing.T) {
	assert.Equal(t, "Entity Shop.Customer", identity.Describe(entity("Shop", "Customer")))

	abstract := &concept.Type{Name: "NoteInfo", Members: []concept.Member{concept.StringMember("Text")}}
	assert.Equal(t, "NoteInfo", identity.Describe(concept.New(abstract)))
}

func TestKeyer(t *testing.T) {
	k := identity.NewKeyer()
	inst := entity("Shop", "Customer")

	key, err := k.Key(inst)
	require.NoError(t, err)
	assert.Equal(t, "EntityInfo Shop.Customer", key)
	assert.Equal(t, 1, k.Len())

	// Cached keys survive member changes until forgotten.
	inst.With("Name", "Client")
	assert.Equal(t, "EntityInfo Shop.Customer", k.MustKey(inst))

	k.Forget(inst)
	assert.Equal(t, 0, k.Len())
	assert.Equal(t, "EntityInfo Shop.Client", k.MustKey(inst))

	unkeyed := concept.New(entityType)
	_, err = k.Key(unkeyed)
	require.Error(t, err)
	assert.Equal(t, 1, k.Len())
	assert.Panics(t, func() { k.MustKey(unkeyed) })
}

func TestQuote(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Customer", "Customer"},
		{"order_2", "order_2"},
		{"Order Line", "'Order Line'"},
		{"it's", `"it's"`},
		{`say "hi"`, `'say "hi"'`},
		{`it's "x"`, `'it''s "x"'`},
		{"", "''"},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got := identity.Quote(tt.in)
			assert.Equal(t, tt.want, got)

			back, err := identity.Unquote(got)
			require.NoError(t, err)
			assert.Equal(t, tt.in, back)
		})
	}
}

func TestUnquoteErrors(t *testing.T) {
	for _, in := range []string{`'abc`, `"abc'`, `'a'b'`, `a b`, `'`} {
		_, err := identity.Unquote(in)
		assert.Error(t, err, in)
	}
}

func TestIsPlain(t *testing.T) {
	assert.True(t, identity.IsPlain("Abc_09"))
	assert.False(t, identity.IsPlain(""))
	assert.False(t, identity.IsPlain("a.b"))
	assert.False(t, identity.IsPlain("é"))
}
