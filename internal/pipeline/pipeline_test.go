package pipeline

import (
	"context"
	"sort"
	"testing"

	"github.com/leapstack-labs/conceptc/internal/builtin"
	"github.com/leapstack-labs/conceptc/internal/diff"
	"github.com/leapstack-labs/conceptc/internal/lexer"
	"github.com/leapstack-labs/conceptc/internal/resolver"
	"github.com/leapstack-labs/conceptc/internal/testutil"
	"github.com/leapstack-labs/conceptc/pkg/concept"
	"github.com/leapstack-labs/conceptc/pkg/dslerr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newContext(t *testing.T, mutate ...func(*Options)) *Context {
	t.Helper()
	opts := DefaultOptions()
	opts.Logger = testutil.NewTestLogger(t)
	for _, m := range mutate {
		m(&opts)
	}
	c, err := New(builtin.Plugin(), opts)
	require.NoError(t, err)
	return c
}

func build(t *testing.T, src string) *Result {
	t.Helper()
	res, err := newContext(t).BuildSource(context.Background(), "test.cdsl", src)
	require.NoError(t, err)
	return res
}

func sortedRecords(res *Result) []concept.Record {
	records := res.Model.Records()
	sort.Slice(records, func(i, j int) bool { return records[i].Key < records[j].Key })
	return records
}

const uniqueKey = "UniqueMultiplePropertiesInfo M.E.Name"
const uniquePropertyKey = "UniqueMultiplePropertyInfo M.E.Name.M.E.Name"

func TestBuild_Scenario(t *testing.T) {
	withUnique := build(t, `Module M { Entity E { ShortString Name; Unique Name; } }`)
	assert.Equal(t, []string{
		"ModuleInfo M",
		"EntityInfo M.E",
		"PropertyInfo M.E.Name",
		uniqueKey,
		uniquePropertyKey,
	}, withUnique.Model.Keys())
	assert.Equal(t, 4, withUnique.Parsed)

	prop, ok := withUnique.Model.Lookup("PropertyInfo M.E.Name")
	require.True(t, ok)
	assert.Equal(t, builtin.ShortString, prop.Type)

	synthesized, ok := withUnique.Model.Lookup(uniquePropertyKey)
	require.True(t, ok)
	target, ok := withUnique.Model.Resolve(synthesized.Ref("Property"))
	require.True(t, ok)
	assert.Same(t, prop, target)

	without := build(t, `Module M { Entity E { ShortString Name; } }`)
	changes := diff.Compare(withUnique.Records(), without.Records())
	assert.Empty(t, changes.Added)
	assert.Empty(t, changes.Changed)
	assert.ElementsMatch(t, []string{uniqueKey, uniquePropertyKey}, diff.Keys(changes.Removed))
}

func TestBuild_PathSyntaxMatchesNesting(t *testing.T) {
	nested := build(t, `Module M { Entity E { ShortString Name; Unique Name; } }`)
	flat := build(t, `
Module M;
Entity M.E;
ShortString M.E.Name;
Unique M.E.Name;
`)
	assert.Equal(t, sortedRecords(nested), sortedRecords(flat))
}

func TestBuild_ReferenceOrderIndependence(t *testing.T) {
	forward := build(t, `Module M { Entity B { Reference Owner M.A; } Entity A; }`)
	backward := build(t, `Module M { Entity A; Entity B { Reference Owner M.A; } }`)

	assert.Equal(t, sortedRecords(forward), sortedRecords(backward))

	for _, res := range []*Result{forward, backward} {
		ref, ok := res.Model.Lookup("PropertyInfo M.B.Owner")
		require.True(t, ok)
		target, ok := res.Model.Resolve(ref.Ref("Referenced"))
		require.True(t, ok)
		assert.Equal(t, "A", target.String("Name"))

		fk, ok := res.Model.Lookup("ForeignKeyInfo M.B.Owner")
		require.True(t, ok)
		assert.Equal(t, "FK_B_Owner", fk.String("Constraint"))
	}
}

func TestBuild_Idempotent(t *testing.T) {
	src := `Module M { Entity A; Entity B { Reference Owner M.A; Unique Owner; } Entity C { Extends M.A; } }`
	first := build(t, src)
	second := build(t, src)
	assert.Equal(t, first.Records(), second.Records())
	assert.True(t, diff.Compare(first.Records(), second.Records()).Empty())
}

func TestBuild_ReseedFromOrdered(t *testing.T) {
	c := newContext(t)
	first, err := c.BuildSource(context.Background(), "test.cdsl", `Module M { Entity B { Reference Owner M.A; } Entity A; }`)
	require.NoError(t, err)

	second, err := c.engine.Run(context.Background(), first.Ordered)
	require.NoError(t, err)
	assert.ElementsMatch(t, first.Model.Keys(), second.Keys())

	for _, m := range []*resolver.Model{first.Model, second} {
		owner, ok := m.Lookup("PropertyInfo M.B.Owner")
		require.True(t, ok)
		target, ok := m.Resolve(owner.Ref("Referenced"))
		require.True(t, ok)
		assert.Equal(t, "A", target.String("Name"))
	}
}

func TestBuild_OrderRespectsReferences(t *testing.T) {
	res := build(t, `Module M { Entity B { Reference Owner M.A; } Entity A; }`)

	pos := make(map[string]int)
	for i, r := range res.Records() {
		pos[r.Key] = i
	}
	assert.Less(t, pos["ModuleInfo M"], pos["EntityInfo M.B"])
	assert.Less(t, pos["EntityInfo M.A"], pos["PropertyInfo M.B.Owner"])
	assert.Less(t, pos["PropertyInfo M.B.Owner"], pos["ForeignKeyInfo M.B.Owner"])
}

func TestBuild_UnresolvedReference(t *testing.T) {
	_, err := newContext(t).BuildSource(context.Background(), "test.cdsl",
		`Module M { Entity E { Extends Nonexistent.Entity; } }`)
	require.Error(t, err)

	var refErr *dslerr.ReferenceError
	require.ErrorAs(t, err, &refErr)
	assert.Equal(t, "EntityInfo Nonexistent.Entity", refErr.Target)
	assert.Equal(t, "Base", refErr.Member)
	assert.Contains(t, err.Error(), "Nonexistent.Entity")
	assert.Equal(t, "test.cdsl", refErr.Position().Script)
	assert.Equal(t, 1, refErr.Position().Line)
}

func TestBuild_ExtendsAddsBaseReference(t *testing.T) {
	res := build(t, `Module M { Entity Base; Entity Ext { Extends M.Base; } }`)

	prop, ok := res.Model.Lookup("PropertyInfo M.Ext.Base")
	require.True(t, ok)
	assert.Equal(t, builtin.Reference, prop.Type)
	_, ok = res.Model.Lookup("ForeignKeyInfo M.Ext.Base")
	assert.True(t, ok, "the synthesized reference triggers the foreign key macro")
}

func TestBuild_OrderingCycle(t *testing.T) {
	_, err := newContext(t).BuildSource(context.Background(), "test.cdsl", `
Module M {
	Entity A { SqlDependsOn EntityInfo:M.C; }
	Entity B { SqlDependsOn Entity:M.A; }
	Entity C { SqlDependsOn EntityInfo:M.B; }
}`)
	require.Error(t, err)

	var orderErr *dslerr.OrderingError
	require.ErrorAs(t, err, &orderErr)
	// A waits for C, B for A and C for B.
	assert.Equal(t, []string{"EntityInfo M.A", "EntityInfo M.B", "EntityInfo M.C", "EntityInfo M.A"}, orderErr.Cycle)
	assert.Contains(t, err.Error(), "EntityInfo M.A -> EntityInfo M.B -> EntityInfo M.C -> EntityInfo M.A")
}

func TestBuild_Duplicates(t *testing.T) {
	scripts := []lexer.Script{
		{Name: "a.cdsl", Text: "Module M { Entity E; }"},
		{Name: "b.cdsl", Text: "Module M; Entity M.E;"},
	}

	res, err := newContext(t).Build(context.Background(), scripts)
	require.NoError(t, err)
	assert.Equal(t, 2, res.Model.Len())

	_, err = newContext(t, func(o *Options) { o.AllowIdenticalDuplicates = false }).
		Build(context.Background(), scripts)
	var idErr *dslerr.IdentityError
	require.ErrorAs(t, err, &idErr)
	assert.Equal(t, "ModuleInfo M", idErr.Key)
}

func TestBuild_ConflictingDuplicate(t *testing.T) {
	_, err := newContext(t).BuildSource(context.Background(), "test.cdsl",
		`Module M { Entity E { ShortString P; LongString P; } }`)
	var idErr *dslerr.IdentityError
	require.ErrorAs(t, err, &idErr)
	assert.Equal(t, "PropertyInfo M.E.P", idErr.Key)
}

func TestBuild_SemanticError(t *testing.T) {
	_, err := newContext(t).BuildSource(context.Background(), "test.cdsl",
		`Module M { Entity A; Entity B { Reference OwnerID M.A; } }`)
	var semErr *dslerr.SemanticError
	require.ErrorAs(t, err, &semErr)
	assert.Contains(t, semErr.Error(), `must not end with "ID"`)
}

func TestBuild_UnknownUniqueProperty(t *testing.T) {
	_, err := newContext(t).BuildSource(context.Background(), "test.cdsl",
		`Module M { Entity E { ShortString Name; Unique Name Code; } }`)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "expected ';' or '{'")

	_, err = newContext(t).BuildSource(context.Background(), "test.cdsl",
		`Module M { Entity E { ShortString Name; Unique 'Name Code'; } }`)
	var refErr *dslerr.ReferenceError
	require.ErrorAs(t, err, &refErr)
	assert.Equal(t, "PropertyInfo M.E.Code", refErr.Target)
}

func TestBuild_SyntaxErrorsAreBatched(t *testing.T) {
	_, err := newContext(t).Build(context.Background(), []lexer.Script{
		{Name: "a.cdsl", Text: "Module M; Bogus X; Entity M.E;"},
		{Name: "b.cdsl", Text: "Module N { Entity F;"},
	})
	require.Error(t, err)

	var list dslerr.List
	require.ErrorAs(t, err, &list)
	assert.Len(t, list, 2)
	assert.Contains(t, list[0].Error(), `unrecognized concept keyword "Bogus"`)
	assert.Contains(t, list[1].Error(), "missing '}'")
}

func TestBuild_LexErrors(t *testing.T) {
	_, err := newContext(t).BuildSource(context.Background(), "test.cdsl", "Module 'M;")
	var lexErr *dslerr.LexError
	require.ErrorAs(t, err, &lexErr)
	assert.Equal(t, 1, lexErr.Position().Line)
}

func TestBuild_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := newContext(t).BuildSource(ctx, "test.cdsl", "Module M;")
	assert.ErrorIs(t, err, context.Canceled)
}
